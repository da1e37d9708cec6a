package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/air-quality-etl/internal/adapter/http"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

const defaultRunTimeout = 5 * time.Minute

func cmdRun() *cobra.Command {
	var outputFile string
	runTimeout := defaultRunTimeout
	addFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&outputFile, "output", outputFile, "write the snapshot to a file instead of stdout")
		cmd.Flags().DurationVar(&runTimeout, "timeout", runTimeout, "upper bound for the whole run")
	}
	var cmd = &cobra.Command{
		Use:   "run",
		Short: "perform one refresh and print the raw snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, runTimeout)
			defer cancel()

			report := a.pipeline.Run(ctx)

			out := cmd.OutOrStdout()
			if outputFile != "" {
				f, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}
			// Fetch and store problems are already logged and never change the exit code.
			return domain.EncodeSnapshot(out, report.Readings)
		},
	}
	addFlags(cmd)
	return cmd
}

func cmdServe() *cobra.Command {
	runTimeout := defaultRunTimeout
	addFlags := func(cmd *cobra.Command) {
		cmd.Flags().DurationVar(&runTimeout, "run-timeout", runTimeout, "upper bound for a run triggered over HTTP")
	}
	var cmd = &cobra.Command{
		Use:   "serve",
		Short: "serve the run trigger with health and metrics endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			logger := a.logger

			srv := httpadapter.NewServer(a.cfg.HTTPAddr, a.pipeline, a.pipeline, runTimeout, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case <-ctx.Done():
			case err := <-errCh:
				return fmt.Errorf("http server: %w", err)
			}
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
			logger.Info("shutdown complete")
			return nil
		},
	}
	addFlags(cmd)
	return cmd
}
