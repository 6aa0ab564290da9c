package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// RootCmd runs the HTTP server when called without a subcommand.
var RootCmd = &cobra.Command{
	Use:   "server",
	Short: "Photo studio backend",
	Long: `Serves the photo studio API: projects, albums and photos with stable
ordering, prompt templates, and asynchronous fal.ai generations.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(migrateCmd)
	RootCmd.AddCommand(modelsCmd)
}

// envOr returns the flag value, or the environment variable when the flag
// was left empty.
func envOr(flag, key string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(key)
}
