package main

import (
	"fmt"
	"os"

	"github.com/aretw0/statelens"
	"github.com/aretw0/statelens/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <definition>...",
	Short: "Check machine definitions",
	Long:  `Compiles every definition and reports all structural problems found (unknown targets, bad initial states, malformed guards).`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := cli.NewEngine(runOptions(cmd, args[0]))
		if err != nil {
			return err
		}
		failed := 0
		for _, path := range args {
			id, err := validateFile(engine, path)
			if err != nil {
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", path, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: machine '%s' is valid ✅\n", path, id)
		}
		if failed > 0 {
			return fmt.Errorf("validation failed for %d of %d definitions", failed, len(args))
		}
		return nil
	},
}

func validateFile(engine *statelens.Engine, path string) (string, error) {
	def, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	m, err := engine.Validate(def)
	if err != nil {
		return "", err
	}
	return m.ID(), nil
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
