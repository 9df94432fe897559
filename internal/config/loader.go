package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// GetConfigPath returns the default config file path (~/.lineagent/config.json).
func GetConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".lineagent", "config.json")
}

// Load reads configuration from a JSON file and overlays environment
// variables on top. If path is empty, uses the default config path.
// If the file doesn't exist, starts from DefaultConfig().
//
// A .env file in the working directory is honored (without overriding
// variables already set in the process environment).
func Load(path string) (Config, error) {
	godotenv.Load()

	if path == "" {
		path = GetConfigPath()
	}

	cfg := DefaultConfig() // start with defaults so zero-value fields get filled
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, err
		}
	} else if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	applyEnv(&cfg)
	return cfg, nil
}

// Save writes configuration to a JSON file.
// If path is empty, uses the default config path.
func Save(cfg Config, path string) error {
	if path == "" {
		path = GetConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnv overlays environment variables onto cfg.
// Env wins over the config file so deployments can keep secrets out of it.
func applyEnv(cfg *Config) {
	setStr(&cfg.Line.ChannelSecret, "LINE_CHANNEL_SECRET")
	setStr(&cfg.Line.ChannelAccessToken, "LINE_CHANNEL_ACCESS_TOKEN")
	setStr(&cfg.Agent.APIKey, "GEMINI_API_KEY")
	setStr(&cfg.Agent.Model, "LINEAGENT_MODEL")
	setStr(&cfg.Session.DBPath, "LINEAGENT_DB")
	setStr(&cfg.Session.AppName, "LINEAGENT_APP_NAME")
	setStr(&cfg.Redis.URL, "REDIS_URL")
	setStr(&cfg.Storage.Bucket, "LINEAGENT_BUCKET")
	setStr(&cfg.Storage.Region, "AWS_REGION")
	setStr(&cfg.Storage.PublicBaseURL, "LINEAGENT_PUBLIC_BASE_URL")
	setInt(&cfg.Gateway.Port, "LINEAGENT_PORT")
	setInt(&cfg.Gateway.Workers, "LINEAGENT_WORKERS")
	setInt(&cfg.Agent.TurnTimeout, "LINEAGENT_TURN_TIMEOUT")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate checks that credentials required to serve are present.
// The process refuses to start without them instead of degrading to
// 500s at request time.
func (c Config) Validate() error {
	if c.Line.ChannelSecret == "" || c.Line.ChannelAccessToken == "" {
		return errors.New("LINE_CHANNEL_SECRET and LINE_CHANNEL_ACCESS_TOKEN must be set")
	}
	if c.Agent.APIKey == "" {
		return errors.New("GEMINI_API_KEY must be set")
	}
	return nil
}
