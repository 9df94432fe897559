package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"github.com/worawit-m/lineagent/internal/config"
	"github.com/worawit-m/lineagent/internal/redis"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the agent from the terminal",
	Long:  "Runs turns against the agent without LINE in the loop. Useful for prompt and tool debugging.",
	RunE:  runChat,
}

var (
	chatMessage string
	chatUserID  string
)

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send one message and exit")
	chatCmd.Flags().StringVarP(&chatUserID, "user", "u", "cli:local", "User id to run the session as")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Agent.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY must be set")
	}

	if redis.Init(redis.Config{URL: cfg.Redis.URL, Password: cfg.Redis.Password, DB: cfg.Redis.DB}) {
		defer redis.Close()
	}

	ctx := context.Background()
	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	send := func(text string) {
		msg := &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: text}}}
		answer, outcome := rt.turns.RunTurnBlocking(chatUserID, msg)
		fmt.Printf("[%s] %s\n", outcome, answer)
	}

	if chatMessage != "" {
		send(chatMessage)
		return nil
	}

	fmt.Println("Interactive chat. Ctrl-D or 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "exit" || text == "quit" {
			break
		}
		send(text)
	}
	return scanner.Err()
}
