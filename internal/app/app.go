// Package app wires the history, augmentation, capture, API and menubar
// components together.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mindmorass/clipdeck/internal/api"
	"github.com/mindmorass/clipdeck/internal/augment"
	"github.com/mindmorass/clipdeck/internal/backend"
	"github.com/mindmorass/clipdeck/internal/capture"
	"github.com/mindmorass/clipdeck/internal/clipboard"
	"github.com/mindmorass/clipdeck/internal/library"
	"github.com/mindmorass/clipdeck/internal/llm"
	"github.com/mindmorass/clipdeck/internal/storage"
	"github.com/mindmorass/clipdeck/internal/store"
	"github.com/mindmorass/clipdeck/internal/ui"
	"github.com/mindmorass/clipdeck/internal/update"
)

// Options customizes App construction
type Options struct {
	Version string
	Logger  *zap.Logger

	// Source overrides the system clipboard
	Source clipboard.Source

	// Generator overrides the configured AI provider
	Generator augment.Generator
}

// App is the main application
type App struct {
	config        *Config
	logger        *zap.Logger
	version       string
	store         *store.Store
	library       *library.Service
	capture       *capture.Engine
	api           *api.Server
	updateChecker *update.Checker
	menubar       *ui.Menubar

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New opens the history database and builds every component. A missing AI
// credential leaves augmentation in fallback mode rather than failing.
func New(ctx context.Context, cfg *Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	key, source := ResolveAPIKey(cfg)
	gen := opts.Generator
	if gen == nil && key != "" {
		gen, err = llm.New(ctx, cfg.Provider, llm.Config{
			APIKey:  key,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("create AI provider: %w", err)
		}
	}
	if gen != nil && key != "" {
		logger.Info("AI provider configured",
			zap.String("provider", gen.Name()),
			zap.String("credential_source", source),
		)
	}
	ai := augment.New(augment.Config{APIKey: key, Timeout: cfg.RequestTimeout}, gen, logger.Named("augment"))

	lib := library.New(st, ai, library.Options{
		HistoryLimit: cfg.HistoryLimit,
		AutoEnrich:   cfg.AutoEnrich,
		Logger:       logger.Named("library"),
	})

	engine := capture.NewEngine(lib, opts.Source, cfg.CaptureInterval, logger.Named("capture"))

	server := api.New(lib, api.Options{
		Addr:           cfg.ListenAddr,
		Logger:         logger,
		Copier:         engine,
		RequestTimeout: cfg.RequestTimeout,
	})

	return &App{
		config:        cfg,
		logger:        logger,
		version:       opts.Version,
		store:         st,
		library:       lib,
		capture:       engine,
		api:           server,
		updateChecker: update.NewChecker(opts.Version, update.WithLogger(logger.Named("update"))),
	}, nil
}

// Run starts capture and the API, then runs the menubar until Quit
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := a.start(ctx)
	defer cancel()
	if err := a.startServices(ctx); err != nil {
		return err
	}

	a.menubar = ui.NewMenubar(a, a.logger.Named("ui"))
	go func() {
		<-ctx.Done()
		a.menubar.Quit()
	}()

	// Blocks until the tray exits
	a.menubar.Run()
	cancel()
	a.stopServices()
	return nil
}

// RunHeadless starts capture and the API and blocks until ctx is done
func (a *App) RunHeadless(ctx context.Context) error {
	ctx, cancel := a.start(ctx)
	defer cancel()
	if err := a.startServices(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.stopServices()
	return nil
}

func (a *App) start(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	return ctx, cancel
}

func (a *App) startServices(ctx context.Context) error {
	if err := a.api.Start(ctx); err != nil {
		return err
	}
	if !a.config.CaptureEnabled {
		a.logger.Info("clipboard capture disabled by config")
		return nil
	}
	if err := a.capture.Start(); err != nil {
		if errors.Is(err, clipboard.ErrUnsupported) {
			a.logger.Warn("clipboard capture unavailable on this platform")
			return nil
		}
		return fmt.Errorf("start capture: %w", err)
	}
	return nil
}

func (a *App) stopServices() {
	a.capture.Stop()
	a.api.Stop()
	a.library.Wait()
}

// Close releases the history database
func (a *App) Close() error {
	a.library.Close()
	return a.store.Close()
}

// Quit stops a running Run or RunHeadless
func (a *App) Quit() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Library returns the history service
func (a *App) Library() *library.Service {
	return a.library
}

// Capture returns the capture engine
func (a *App) Capture() *capture.Engine {
	return a.capture
}

// Config returns the loaded configuration
func (a *App) Config() *Config {
	return a.config
}

// APIAddr returns the address the API listens on
func (a *App) APIAddr() string {
	return a.api.Addr()
}

// WebUIURL returns where the browser UI is served
func (a *App) WebUIURL() string {
	return a.config.WebUIURL()
}

// Version returns the application version
func (a *App) Version() string {
	return a.version
}

// UpdateChecker returns the update checker
func (a *App) UpdateChecker() *update.Checker {
	return a.updateChecker
}

// Backend builds the configured backup destination. A non-empty location
// overrides the configured one.
func (a *App) Backend(location string) (backend.Backend, error) {
	cfg := a.config.BackendConfig()
	if loc := strings.TrimSpace(location); loc != "" {
		cfg.Location = expandHome(loc)
		switch cfg.Type {
		case backend.BackendLocal, "":
			abs, err := filepath.Abs(cfg.Location)
			if err != nil {
				return nil, fmt.Errorf("resolve backup location: %w", err)
			}
			cfg.Location = abs
		case backend.BackendS3:
			cfg.S3Bucket, cfg.S3Prefix = "", ""
		case backend.BackendDropbox:
			cfg.DropboxPath = loc
		}
	}
	return backend.New(cfg)
}

// Export writes an encrypted (when passphrase is set) snapshot to the backup
// destination
func (a *App) Export(ctx context.Context, location, passphrase string) (*storage.FileHeader, error) {
	b, err := a.Backend(location)
	if err != nil {
		return nil, err
	}
	defer b.Close()
	return a.library.Export(ctx, b, passphrase)
}

// Import merges the stored snapshot into the history
func (a *App) Import(ctx context.Context, location, passphrase string) (store.RestoreResult, *storage.FileHeader, error) {
	b, err := a.Backend(location)
	if err != nil {
		return store.RestoreResult{}, nil, err
	}
	defer b.Close()
	return a.library.Import(ctx, b, passphrase)
}

// BackUp exports an unencrypted snapshot to the configured destination
func (a *App) BackUp(ctx context.Context) (*storage.FileHeader, error) {
	return a.Export(ctx, "", "")
}

// InspectBackup describes the snapshot stored at the backup destination
func (a *App) InspectBackup(ctx context.Context, location string) (*library.BackupInfo, error) {
	b, err := a.Backend(location)
	if err != nil {
		return nil, err
	}
	defer b.Close()
	return a.library.Inspect(ctx, b)
}

// LastBackup describes the snapshot at the configured destination
func (a *App) LastBackup(ctx context.Context) (*library.BackupInfo, error) {
	return a.InspectBackup(ctx, "")
}

// SharedLocation returns the configured backup location
func (a *App) SharedLocation() string {
	return a.config.SharedLocation
}

// SetSharedLocation switches backups to a local folder and saves the config
func (a *App) SetSharedLocation(path string) error {
	b := backend.NewLocalBackend("")
	if err := b.SetLocation(path); err != nil {
		return err
	}

	a.config.BackendType = string(backend.BackendLocal)
	a.config.SharedLocation = path
	if err := SaveConfig(a.config); err != nil {
		a.logger.Warn("failed to save config", zap.Error(err))
		return err
	}
	return nil
}
