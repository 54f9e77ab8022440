// chatnerd drives the workflow orchestration core from the command line:
// list the tool catalogue, inspect usage quotas, and run a workflow plan
// through the control-message loop.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chatnerd/internal/config"
	"chatnerd/internal/logging"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "chatnerd",
	Short: "chatNERD - workflow/tool orchestration core",
	Long: `chatNERD is the workflow and tool orchestration core of an AI-assistant
chat application.

It owns the tool catalogue with tier gating, the daily sandbox quota,
remote sandbox session lifecycle, bounded web reading, and the
message-driven workflow loop. Everything else (UI, auth, billing) lives
in the surrounding application and is injected as capabilities.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		return logging.Init(level, cfg.Logging.Development)
	},
}

func main() {
	defer logging.Sync()

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config YAML")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(usageCmd())
	rootCmd.AddCommand(runCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
