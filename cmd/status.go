package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/worawit-m/lineagent/internal/config"
	"github.com/worawit-m/lineagent/internal/redis"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show lineagent configuration status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	configPath := config.GetConfigPath()
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Println("🤖 lineagent Status")
	fmt.Println()
	fmt.Printf("Config: %s\n", configPath)
	fmt.Printf("Model: %s\n", cfg.Agent.Model)
	fmt.Printf("App name: %s\n", cfg.Session.AppName)
	fmt.Printf("Session DB: %s\n", cfg.Session.DBPath)
	fmt.Printf("Gateway: %s:%d (%d workers)\n", cfg.Gateway.Host, cfg.Gateway.Port, cfg.Gateway.Workers)

	fmt.Println("\nCredentials:")
	fmt.Printf("  LINE channel secret: %s\n", mark(cfg.Line.ChannelSecret != ""))
	fmt.Printf("  LINE access token: %s\n", mark(cfg.Line.ChannelAccessToken != ""))
	fmt.Printf("  Gemini API key: %s\n", mark(cfg.Agent.APIKey != ""))

	fmt.Println("\nOptional:")
	if cfg.Redis.URL != "" {
		ok := redis.Init(redis.Config{URL: cfg.Redis.URL, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		fmt.Printf("  Redis: %s\n", mark(ok))
		if ok {
			redis.Close()
		}
	} else {
		fmt.Println("  Redis: not configured")
	}
	if cfg.Storage.Bucket != "" {
		fmt.Printf("  Image storage: %s (%s)\n", cfg.Storage.Bucket, cfg.Storage.Region)
	} else {
		fmt.Println("  Image storage: not configured")
	}

	return nil
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗ missing"
}
