package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/statelens/internal/cli"
	"github.com/aretw0/statelens/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "statelens",
	Short: "statelens is an interactive hierarchical state machine explorer",
	Long: `statelens loads a state machine definition (YAML or JSON), runs it and shows
which states are active, where an event would lead and which paths were already taken.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Log to stderr at debug level")
	rootCmd.PersistentFlags().String("policy", "active", "History policy: active, leaves or sources")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format for serve and mcp: text or json")
}

// serverLogger builds the stderr logger of the long-running commands.
func serverLogger(cmd *cobra.Command, level slog.Level) (*slog.Logger, error) {
	name, _ := cmd.Flags().GetString("log-format")
	format, err := logging.ParseFormat(name)
	if err != nil {
		return nil, err
	}
	return logging.NewWithFormat(os.Stderr, level, format), nil
}

// runOptions collects the persistent flags shared by every command.
func runOptions(cmd *cobra.Command, path string) cli.RunOptions {
	debug, _ := cmd.Flags().GetBool("debug")
	policy, _ := cmd.Flags().GetString("policy")
	return cli.RunOptions{
		Path:   path,
		Debug:  debug,
		Policy: policy,
		In:     cmd.InOrStdin(),
		Out:    cmd.OutOrStdout(),
	}
}
