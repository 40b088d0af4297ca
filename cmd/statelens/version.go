package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/statelens"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of statelens",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "statelens version %s\n", strings.TrimSpace(statelens.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
