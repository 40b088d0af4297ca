package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/statelens"
	httpAdapter "github.com/aretw0/statelens/pkg/adapters/http"
	"github.com/aretw0/statelens/pkg/history"
	"github.com/aretw0/statelens/pkg/observability"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [definition]",
	Short: "Start the HTTP server",
	Long: `Serves sessions over a JSON HTTP API with a Server-Sent Events stream per session
and Prometheus metrics on /metrics. A definition given as argument is loaded into a first session.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		debug, _ := cmd.Flags().GetBool("debug")
		policyName, _ := cmd.Flags().GetString("policy")

		policy, err := history.ParsePolicy(policyName)
		if err != nil {
			return err
		}
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		logger, err := serverLogger(cmd, level)
		if err != nil {
			return err
		}
		metrics := observability.NewMetrics()

		engine := statelens.New(
			statelens.WithLogger(logger),
			statelens.WithHistoryPolicy(policy),
			statelens.WithMetrics(metrics),
		)
		mgr := engine.NewManager()
		defer mgr.Close(context.Background())

		if len(args) == 1 {
			def, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			sess, err := mgr.Create(context.Background(), def)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s serving %s\n", sess.ID(), args[0])
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           httpAdapter.NewHandler(mgr, httpAdapter.WithMetrics(metrics), httpAdapter.WithLogger(logger)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Fprintf(cmd.OutOrStdout(), "Starting statelens server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			fmt.Fprintf(cmd.OutOrStdout(), "\nStart shutdown... Signal: %v\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "statelens server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
}
