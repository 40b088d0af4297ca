package main

import (
	"github.com/aretw0/statelens/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <definition>",
	Short: "Explore a machine interactively",
	Long: `Starts a REPL on the machine: type event names to send them, or :help for the
preview, selection and reset commands. With --watch the definition is reloaded on save.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runOptions(cmd, args[0])
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		opts.HideRoot, _ = cmd.Flags().GetBool("hide-root")
		opts.Plain, _ = cmd.Flags().GetBool("plain")
		return cli.Execute(opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("watch", "w", false, "Reload the definition when the file changes")
	runCmd.Flags().Bool("hide-root", false, "Do not print the machine header line")
	runCmd.Flags().Bool("plain", false, "Disable colours and styled output")
}
