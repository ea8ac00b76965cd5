package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"slipstream/internal/config"
	"slipstream/internal/fileutil"
	"slipstream/internal/logging"
	"slipstream/internal/pipeline"
)

// stabilityChecks bounds how many settle intervals a growing file is given
// before it is abandoned for this event (a later write event retries it).
const stabilityChecks = 20

// Submitter is the pipeline surface the watcher produces onto.
type Submitter interface {
	Submit(ctx context.Context, item *pipeline.IntakeItem) error
}

// Watcher monitors configured inbox directories and submits stable files.
type Watcher struct {
	dirs   []string
	settle time.Duration
	sink   Submitter
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	fsw     *fsnotify.Watcher
}

// New constructs a watcher over the config's inbox directories.
func New(cfg *config.Config, sink Submitter, logger *slog.Logger) (*Watcher, error) {
	if sink == nil {
		return nil, errors.New("submitter required")
	}
	if len(cfg.Paths.InboxDirs) == 0 {
		return nil, errors.New("no inbox directories configured")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	settle := time.Duration(cfg.Pipeline.SettleMillis) * time.Millisecond
	if settle <= 0 {
		settle = 500 * time.Millisecond
	}
	return &Watcher{
		dirs:   cfg.Paths.InboxDirs,
		settle: settle,
		sink:   sink,
		logger: logging.NewComponentLogger(logger, "watcher"),
	}, nil
}

// Start begins watching. Existing files are swept before event delivery so
// nothing dropped while the daemon was down is skipped.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("watcher already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range w.dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			_ = fsw.Close()
			return err
		}
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.run(runCtx, fsw)

	w.logger.Info("watcher started", logging.Int("directories", len(w.dirs)))
	return nil
}

// Stop terminates watching and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	fsw := w.fsw
	w.running = false
	w.cancel = nil
	w.fsw = nil
	w.mu.Unlock()

	cancel()
	_ = fsw.Close()
	w.wg.Wait()
	w.logger.Info("watcher stopped")
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()

	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			// A single file can fire several events; the pipeline's hash
			// dedup makes repeated submission harmless.
			w.handlePath(ctx, event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error; directory events may be incomplete",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check inbox directory permissions"),
			)
		}
	}
}

func (w *Watcher) sweep(ctx context.Context) {
	for _, dir := range w.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			w.logger.Warn("inbox sweep failed", logging.String("dir", dir), logging.Error(err))
			continue
		}
		for _, entry := range entries {
			if ctx.Err() != nil {
				return
			}
			if entry.IsDir() {
				continue
			}
			w.handlePath(ctx, filepath.Join(dir, entry.Name()))
		}
	}
}

func (w *Watcher) handlePath(ctx context.Context, path string) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	if err := fileutil.WaitForStableFile(ctx, path, w.settle, stabilityChecks); err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("file never stabilized; waiting for next write event",
				logging.String("source", path),
				logging.Error(err),
			)
		}
		return
	}

	item := &pipeline.IntakeItem{
		Path:         path,
		Origin:       pipeline.OriginWatcher,
		DiscoveredAt: time.Now().UTC(),
	}
	if err := w.sink.Submit(ctx, item); err != nil {
		if ctx.Err() == nil {
			w.logger.Error("intake submission failed",
				logging.String("source", path),
				logging.Error(err),
			)
		}
		return
	}
	w.logger.Info("receipt queued",
		logging.String("source", path),
		logging.String(logging.FieldEventType, "intake_queued"),
	)
}
