package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mindmorass/clipdeck/internal/app"
	"github.com/mindmorass/clipdeck/internal/logging"
)

type commandContext struct {
	configDirFlag *string
	verbose       *bool

	configOnce sync.Once
	config     *app.Config
	configErr  error
}

func newCommandContext(configDirFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configDirFlag: configDirFlag,
		verbose:       verbose,
	}
}

func (c *commandContext) ensureConfig() (*app.Config, error) {
	c.configOnce.Do(func() {
		var dir string
		if c.configDirFlag != nil {
			dir = strings.TrimSpace(*c.configDirFlag)
		}
		c.config, c.configErr = app.LoadConfig(dir)
	})
	return c.config, c.configErr
}

// newLogger builds the logger. Long-running commands log at the configured
// level; one-shot commands stay quiet unless --verbose is set.
func (c *commandContext) newLogger(daemon bool) (*zap.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	opts := logging.Options{
		Level:       "error",
		Format:      cfg.LogFormat,
		OutputPaths: []string{"stderr"},
	}
	if daemon {
		opts.Level = cfg.LogLevel
		if cfg.LogFile != "" {
			opts.OutputPaths = append(opts.OutputPaths, cfg.LogFile)
		}
	}
	if c.verbose != nil && *c.verbose {
		opts.Level = "debug"
	}
	return logging.New(opts)
}

func (c *commandContext) openApp(ctx context.Context, daemon bool) (*app.App, *zap.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.newLogger(daemon)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, cfg, app.Options{Version: Version, Logger: logger})
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return a, logger, nil
}

// withApp opens the application for a one-shot command
func (c *commandContext) withApp(ctx context.Context, fn func(*app.App) error) error {
	a, logger, err := c.openApp(ctx, false)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close history: %v\n", err)
		}
		_ = logger.Sync()
	}()
	return fn(a)
}
