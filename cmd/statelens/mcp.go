package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/statelens"
	"github.com/aretw0/statelens/pkg/adapters/mcp"
	"github.com/aretw0/statelens/pkg/history"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp [definition]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts statelens as an MCP Server bound to a single session.
This allows AI agents to load machines, send and preview events and read the diagram as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")
		policyName, _ := cmd.Flags().GetString("policy")

		policy, err := history.ParsePolicy(policyName)
		if err != nil {
			return err
		}

		// Logs must never reach stdout: it carries the JSON-RPC stream.
		logger, err := serverLogger(cmd, slog.LevelDebug)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		log.SetOutput(os.Stderr)

		engine := statelens.New(statelens.WithLogger(logger), statelens.WithHistoryPolicy(policy))
		var def []byte
		if len(args) == 1 {
			if def, err = os.ReadFile(args[0]); err != nil {
				return err
			}
		}
		sess, err := engine.NewSession(context.Background(), def)
		if err != nil {
			return err
		}
		defer sess.Close(context.Background())

		srv := mcp.NewServer(sess, mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			logger.Info("Starting statelens MCP Server (Stdio)...")
			if err := srv.ServeStdio(); err != nil {
				return fmt.Errorf("MCP Server execution failed: %w", err)
			}
			return nil
		case "sse":
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("MCP Server execution failed: %w", err)
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Address to listen on (only for SSE)")
}
