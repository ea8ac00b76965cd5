package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"slipstream/internal/config"
	"slipstream/internal/contentstore"
	"slipstream/internal/logging"
	"slipstream/internal/notifications"
	"slipstream/internal/receipts"
	"slipstream/internal/recognize"
)

// ErrNotRunning is returned when items are submitted outside the
// orchestrator's running window.
var ErrNotRunning = errors.New("pipeline not running")

// Orchestrator drains the intake queue with a fixed set of workers. The
// CPU-bound preprocess and recognize stages run on a shared goroutine pool
// so a directory sweep cannot saturate every core.
type Orchestrator struct {
	cfg      *config.Config
	store    *contentstore.Store
	catalog  *receipts.Store
	backend  recognize.Backend
	notifier notifications.Service
	logger   *slog.Logger
	pool     *ants.Pool

	intake chan *IntakeItem

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	listenersMu sync.Mutex
	listeners   map[int]chan Outcome
	nextListen  int
}

// New constructs an orchestrator. The caller owns the content store, catalog,
// backend, and notifier lifecycles.
func New(cfg *config.Config, store *contentstore.Store, catalog *receipts.Store, backend recognize.Backend, notifier notifications.Service, logger *slog.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	capacity := cfg.Pipeline.QueueCapacity
	if capacity <= 0 {
		capacity = 1
	}
	poolSize := cfg.Pipeline.OCRPoolSize
	if poolSize <= 0 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		catalog:   catalog,
		backend:   backend,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		pool:      pool,
		intake:    make(chan *IntakeItem, capacity),
		listeners: make(map[int]chan Outcome),
	}, nil
}

// Start launches the worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return errors.New("pipeline already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.running = true

	workers := o.cfg.Pipeline.Workers
	if workers <= 0 {
		workers = 1
	}
	o.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go o.runWorker(runCtx, i)
	}
	o.logger.Info("pipeline started",
		logging.Int("workers", workers),
		logging.Int("queue_capacity", cap(o.intake)),
	)
	return nil
}

// Stop refuses further submissions, waits for in-flight items to finish, and
// releases the recognition pool. Queued items not yet dequeued are dropped;
// their sources remain on disk for re-submission.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	cancel := o.cancel
	o.running = false
	o.cancel = nil
	o.mu.Unlock()

	cancel()
	o.wg.Wait()
	o.pool.Release()
	o.logger.Info("pipeline stopped")
}

// Submit enqueues an intake item, blocking while the queue is full. The
// context bounds how long the producer is willing to wait.
func (o *Orchestrator) Submit(ctx context.Context, item *IntakeItem) error {
	if item == nil {
		return errors.New("item is nil")
	}
	o.mu.Lock()
	running := o.running
	o.mu.Unlock()
	if !running {
		return ErrNotRunning
	}
	o.prepare(item)
	select {
	case o.intake <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitWait enqueues an item and blocks until its outcome is known.
func (o *Orchestrator) SubmitWait(ctx context.Context, item *IntakeItem) (Outcome, error) {
	if item == nil {
		return Outcome{}, errors.New("item is nil")
	}
	item.reply = make(chan Outcome, 1)
	if err := o.Submit(ctx, item); err != nil {
		return Outcome{}, err
	}
	select {
	case outcome := <-item.reply:
		return outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (o *Orchestrator) prepare(item *IntakeItem) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.DiscoveredAt.IsZero() {
		item.DiscoveredAt = time.Now().UTC()
	}
	if item.Extension == "" && item.Path != "" {
		item.Extension = ExtensionFor(item.Path)
	}
	if item.Origin == "" {
		item.Origin = OriginDirect
	}
}

// Subscribe registers an outcome listener. Events are delivered best-effort:
// a listener that stops draining its channel misses events rather than
// stalling the workers. The returned func unregisters the listener.
func (o *Orchestrator) Subscribe(buffer int) (<-chan Outcome, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Outcome, buffer)
	o.listenersMu.Lock()
	id := o.nextListen
	o.nextListen++
	o.listeners[id] = ch
	o.listenersMu.Unlock()
	return ch, func() {
		o.listenersMu.Lock()
		delete(o.listeners, id)
		o.listenersMu.Unlock()
	}
}

func (o *Orchestrator) publish(outcome Outcome) {
	o.listenersMu.Lock()
	for _, ch := range o.listeners {
		select {
		case ch <- outcome:
		default:
		}
	}
	o.listenersMu.Unlock()
}

func (o *Orchestrator) runWorker(ctx context.Context, id int) {
	defer o.wg.Done()
	logger := o.logger.With(logging.Int("worker", id))
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-o.intake:
			// The item runs to its outcome even when shutdown begins
			// mid-stage, so no receipt is left half committed.
			outcome := o.process(context.WithoutCancel(ctx), logger, item)
			o.publish(outcome)
			o.notify(context.WithoutCancel(ctx), outcome)
			if item.reply != nil {
				item.reply <- outcome
			}
		}
	}
}

func (o *Orchestrator) notify(ctx context.Context, outcome Outcome) {
	if o.notifier == nil {
		return
	}
	var err error
	switch outcome.Kind {
	case OutcomeCompleted:
		var totalCents int64
		vendor := ""
		confidence := 0.0
		if outcome.Receipt != nil {
			vendor = outcome.Receipt.Vendor
			confidence = outcome.Receipt.Confidence
			if outcome.Receipt.TotalCents != nil {
				totalCents = *outcome.Receipt.TotalCents
			}
		}
		err = o.notifier.NotifyReceiptCompleted(ctx, vendor, totalCents, confidence)
	case OutcomeDuplicate:
		err = o.notifier.NotifyDuplicate(ctx, outcome.SourcePath, outcome.Hash)
	case OutcomeFailed:
		err = o.notifier.NotifyIngestFailed(ctx, outcome.SourcePath, string(outcome.Stage), outcome.Err)
	}
	if err != nil {
		o.logger.Warn("notification delivery failed", logging.Error(err))
	}
}
