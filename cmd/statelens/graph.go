package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/statelens/internal/cli"
	"github.com/aretw0/statelens/internal/presentation/diagram"
	"github.com/aretw0/statelens/internal/presentation/tui"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <definition>",
	Short: "Export the machine graph",
	Long: `Prints the machine as a Mermaid stateDiagram-v2 (default), as JSON or as a text tree.
Events given with --send are replayed first so the export carries the resulting overlay.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		events, _ := cmd.Flags().GetStringSlice("send")
		hideRoot, _ := cmd.Flags().GetBool("hide-root")

		engine, err := cli.NewEngine(runOptions(cmd, args[0]))
		if err != nil {
			return err
		}
		def, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		ctx := context.Background()
		sess, err := engine.NewSession(ctx, def)
		if err != nil {
			return err
		}
		defer sess.Close(ctx)

		for _, e := range events {
			if _, err := sess.SendRaw(ctx, []byte(e)); err != nil {
				return fmt.Errorf("event %q: %w", e, err)
			}
		}

		v := sess.Snapshot()
		out := cmd.OutOrStdout()
		switch format {
		case "mermaid":
			fmt.Fprint(out, diagram.GenerateMermaid(v.Graph, diagram.OverlayFromView(v)))
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		case "tree":
			fmt.Fprint(out, tui.RenderTree(v, tui.TreeOptions{HideRoot: hideRoot, Profile: termenv.Ascii}))
		default:
			return fmt.Errorf("unknown format %q (want mermaid, json or tree)", format)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().StringP("format", "f", "mermaid", "Output format: mermaid, json or tree")
	graphCmd.Flags().StringSlice("send", nil, "Events to send before exporting")
	graphCmd.Flags().Bool("hide-root", false, "Omit the machine header line (tree format)")
}
