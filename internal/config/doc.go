// Package config handles configuration loading, saving, and schema definition.
package config

// Config is the top-level lineagent configuration.
// Uses json tags in camelCase to match the JSON config file format.
type Config struct {
	Line    LineConfig    `json:"line"`
	Agent   AgentConfig   `json:"agent"`
	Session SessionConfig `json:"session"`
	Gateway GatewayConfig `json:"gateway"`
	Redis   RedisConfig   `json:"redis"`
	Storage StorageConfig `json:"storage"`
}

// LineConfig holds LINE Messaging API channel settings.
type LineConfig struct {
	ChannelSecret      string   `json:"channelSecret"`
	ChannelAccessToken string   `json:"channelAccessToken"`
	AllowFrom          []string `json:"allowFrom,omitempty"`
}

// AgentConfig holds agent behavior settings.
type AgentConfig struct {
	APIKey          string  `json:"apiKey,omitempty"` // Gemini API key (GEMINI_API_KEY)
	Model           string  `json:"model,omitempty"`
	SystemPrompt    string  `json:"systemPrompt,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	MaxToolTurns    int     `json:"maxToolTurns,omitempty"`
	TurnTimeout     int     `json:"turnTimeout,omitempty"`  // seconds
	MaxAttempts     int     `json:"maxAttempts,omitempty"`  // whole-turn attempts on stream failure
	RetryBackoff    int     `json:"retryBackoff,omitempty"` // seconds between attempts
	Temperature     float64 `json:"temperature,omitempty"`
}

// SessionConfig holds session service settings.
type SessionConfig struct {
	AppName       string `json:"appName,omitempty"`
	DBPath        string `json:"dbPath,omitempty"`
	HistoryWindow int    `json:"historyWindow,omitempty"` // messages sent as context per turn
}

// GatewayConfig holds webhook server settings.
type GatewayConfig struct {
	Host    string `json:"host,omitempty"`
	Port    int    `json:"port,omitempty"`
	Workers int    `json:"workers,omitempty"` // turn worker pool size
}

// RedisConfig holds the optional session-registry cache connection.
type RedisConfig struct {
	URL      string `json:"url,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

// StorageConfig holds the object store used by the image tool.
type StorageConfig struct {
	Bucket        string `json:"bucket,omitempty"`
	Region        string `json:"region,omitempty"`
	PublicBaseURL string `json:"publicBaseUrl,omitempty"` // overrides the default bucket URL
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Agent: AgentConfig{
			Model:           "gemini-2.0-flash-001",
			MaxOutputTokens: 4096,
			MaxToolTurns:    8,
			TurnTimeout:     60,
			MaxAttempts:     3,
			RetryBackoff:    2,
			Temperature:     0.7,
		},
		Session: SessionConfig{
			AppName:       "line_oa_campaign_manager",
			DBPath:        "agent_session.db",
			HistoryWindow: 50,
		},
		Gateway: GatewayConfig{
			Host:    "0.0.0.0",
			Port:    18790,
			Workers: 8,
		},
	}
}
