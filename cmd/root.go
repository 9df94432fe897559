// Package cmd implements the lineagent CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "lineagent",
	Short: "lineagent — LINE OA campaign agent gateway",
	Long:  "lineagent connects a LINE Official Account to a Gemini-backed campaign agent: webhook in, agent turn, reply out.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
}
