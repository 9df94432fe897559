package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"google.golang.org/genai"

	"github.com/worawit-m/lineagent/internal/agent"
	"github.com/worawit-m/lineagent/internal/config"
	"github.com/worawit-m/lineagent/internal/line"
	"github.com/worawit-m/lineagent/internal/session"
	"github.com/worawit-m/lineagent/internal/storage"
	"github.com/worawit-m/lineagent/internal/tools"
)

// runtime holds the wired application components shared by the serve
// and chat commands.
type runtime struct {
	cfg     config.Config
	line    *line.Client
	service *session.SQLiteService
	turns   *agent.TurnRunner
}

func (rt *runtime) close() {
	if rt.service != nil {
		rt.service.Close()
	}
}

// buildRuntime wires the session service, the Gemini client, the tool
// registry, and the turn runner from config.
func buildRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	service, err := session.NewSQLiteService(cfg.Session.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Agent.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		service.Close()
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	lineClient := line.NewClient(cfg.Line.ChannelAccessToken)

	registry := tools.NewRegistry()
	registry.Register(tools.NewProfileTool(lineClient))
	if cfg.Storage.Bucket != "" {
		uploader, err := storage.NewS3Uploader(ctx, cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.PublicBaseURL)
		if err != nil {
			service.Close()
			return nil, fmt.Errorf("creating s3 uploader: %w", err)
		}
		registry.Register(tools.NewImageTool(client, uploader))
	} else {
		log.Println("[Setup] storage bucket not configured, image generation disabled")
	}

	runner := agent.NewGeminiRunner(client, service, registry, agent.GeminiConfig{
		AppName:         cfg.Session.AppName,
		Model:           cfg.Agent.Model,
		SystemPrompt:    cfg.Agent.SystemPrompt,
		MaxOutputTokens: cfg.Agent.MaxOutputTokens,
		Temperature:     cfg.Agent.Temperature,
		MaxToolTurns:    cfg.Agent.MaxToolTurns,
		HistoryWindow:   cfg.Session.HistoryWindow,
	})

	turns := agent.NewTurnRunner(runner, session.NewRegistry(cfg.Session.AppName, service), agent.TurnConfig{
		Timeout:      time.Duration(cfg.Agent.TurnTimeout) * time.Second,
		MaxAttempts:  cfg.Agent.MaxAttempts,
		RetryBackoff: time.Duration(cfg.Agent.RetryBackoff) * time.Second,
	})

	return &runtime{cfg: cfg, line: lineClient, service: service, turns: turns}, nil
}
