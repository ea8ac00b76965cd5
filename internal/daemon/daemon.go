package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"slipstream/internal/config"
	"slipstream/internal/contentstore"
	"slipstream/internal/logging"
	"slipstream/internal/notifications"
	"slipstream/internal/pipeline"
	"slipstream/internal/receipts"
	"slipstream/internal/recognize"
	"slipstream/internal/watcher"
)

// Daemon coordinates the ingest services and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	catalog *receipts.Store
	blobs   *contentstore.Store
	orch    *pipeline.Orchestrator
	watch   *watcher.Watcher

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	catalog, err := receipts.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	blobs, err := contentstore.New(cfg.Paths.AttachmentsDir)
	if err != nil {
		_ = catalog.Close()
		return nil, fmt.Errorf("open content store: %w", err)
	}
	backend, err := BuildBackend(cfg)
	if err != nil {
		_ = catalog.Close()
		return nil, err
	}

	notifier := notifications.NewService(cfg)
	orch, err := pipeline.New(cfg, blobs, catalog, backend, notifier, logger)
	if err != nil {
		_ = catalog.Close()
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	watch, err := watcher.New(cfg, orch, logger)
	if err != nil {
		_ = catalog.Close()
		return nil, fmt.Errorf("build watcher: %w", err)
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		catalog:  catalog,
		blobs:    blobs,
		orch:     orch,
		watch:    watch,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// BuildBackend selects the recognition backend named by the configuration.
func BuildBackend(cfg *config.Config) (recognize.Backend, error) {
	switch cfg.Recognition.Engine {
	case "mock":
		return recognize.NewMock(cfg.Recognition.MockText), nil
	case "tesseract":
		return recognize.NewTesseract(
			cfg.Recognition.TesseractBinary,
			strings.Join(cfg.Recognition.Languages, "+"),
			cfg.Recognition.TimeoutSeconds,
		)
	default:
		return nil, fmt.Errorf("unknown recognition engine %q", cfg.Recognition.Engine)
	}
}

// Start acquires the daemon lock and launches the pipeline and watcher.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another slipstream daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.orch.Start(runCtx); err != nil {
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return fmt.Errorf("start pipeline: %w", err)
	}
	if err := d.watch.Start(runCtx); err != nil {
		d.orch.Stop()
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return fmt.Errorf("start watcher: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("slipstream daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the watcher and pipeline and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.watch.Stop()
	d.orch.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("slipstream daemon stopped")
}

// Close releases all resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.catalog != nil {
		return d.catalog.Close()
	}
	return nil
}

// Running reports whether the daemon is currently started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Ingest submits a file directly, bypassing the inbox, and waits for its
// outcome.
func (d *Daemon) Ingest(ctx context.Context, path string) (pipeline.Outcome, error) {
	if !d.running.Load() {
		return pipeline.Outcome{}, errors.New("daemon not running")
	}
	return d.orch.SubmitWait(ctx, &pipeline.IntakeItem{
		Path:   path,
		Origin: pipeline.OriginDirect,
	})
}

// Catalog exposes the receipt store for command surfaces.
func (d *Daemon) Catalog() *receipts.Store {
	return d.catalog
}

// Subscribe relays pipeline outcome events.
func (d *Daemon) Subscribe(buffer int) (<-chan pipeline.Outcome, func()) {
	return d.orch.Subscribe(buffer)
}
