package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/worawit-m/lineagent/internal/bus"
	"github.com/worawit-m/lineagent/internal/config"
	"github.com/worawit-m/lineagent/internal/gateway"
	"github.com/worawit-m/lineagent/internal/redis"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the LINE webhook gateway",
	RunE:  runServe,
}

var servePort int

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Webhook port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Gateway.Port = servePort
	}

	fmt.Printf("🤖 Starting lineagent gateway on port %d...\n", cfg.Gateway.Port)

	// Optional: session-id cache across restarts.
	if redis.Init(redis.Config{URL: cfg.Redis.URL, Password: cfg.Redis.Password, DB: cfg.Redis.DB}) {
		defer redis.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	srv := gateway.NewServer(gateway.ServerConfig{
		Host:          cfg.Gateway.Host,
		Port:          cfg.Gateway.Port,
		ChannelSecret: cfg.Line.ChannelSecret,
		AllowFrom:     cfg.Line.AllowFrom,
		Workers:       cfg.Gateway.Workers,
	}, bus.NewMessageBus(), rt.line, rt.turns)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	return srv.Run(ctx)
}
