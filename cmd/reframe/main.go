package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kalambet/reframe/internal/config"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "reframe",
	Short: "Transform negative language into positive communication",
	Long: `reframe analyzes short texts for sentiment and suggests a constructive
rewrite in the same language (English or Bahasa Indonesia), then hands the
result to the Farcaster composer.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A broken config is reported by the command itself; config set and
		// unset must still run to repair it.
		level := "info"
		if cfg, err := config.Load(); err == nil {
			level = cfg.Log.Level
		}
		setupLogging(level)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(dataCmd)
	rootCmd.AddCommand(manifestCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
