package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the menubar app with clipboard capture and the local API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenubar(cmd, ctx)
		},
	}
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string
	var noCapture bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run clipboard capture and the local API without a tray icon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}
			if noCapture {
				cfg.CaptureEnabled = false
			}

			sigCtx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, logger, err := ctx.openApp(sigCtx, true)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer a.Close()

			logger.Info("clipdeck starting",
				zap.String("version", Version),
				zap.String("listen_addr", cfg.ListenAddr),
				zap.String("database", cfg.DatabasePath),
			)
			return a.RunHeadless(sigCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address for the local API")
	cmd.Flags().BoolVar(&noCapture, "no-capture", false, "Serve the API without watching the clipboard")
	return cmd
}

func runMenubar(cmd *cobra.Command, ctx *commandContext) error {
	runCtx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, logger, err := ctx.openApp(runCtx, true)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	defer a.Close()

	if err := a.Run(runCtx); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
