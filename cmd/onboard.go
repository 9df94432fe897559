package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/worawit-m/lineagent/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize lineagent configuration",
	RunE:  runOnboard,
}

func init() {
	rootCmd.AddCommand(onboardCmd)
}

func runOnboard(cmd *cobra.Command, args []string) error {
	configPath := config.GetConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists at %s\n", configPath)
	} else {
		os.MkdirAll(filepath.Dir(configPath), 0755)
		if err := config.Save(config.DefaultConfig(), ""); err != nil {
			return fmt.Errorf("creating config: %w", err)
		}
		fmt.Printf("✓ Created config at %s\n", configPath)
	}

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Set LINE_CHANNEL_SECRET and LINE_CHANNEL_ACCESS_TOKEN")
	fmt.Println("  2. Set GEMINI_API_KEY")
	fmt.Println("  3. Optionally set REDIS_URL and LINEAGENT_BUCKET")
	fmt.Println("  4. Run: lineagent serve")
	fmt.Println()
	fmt.Println("Check readiness with: lineagent status")
	return nil
}
