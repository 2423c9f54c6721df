package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"reel/internal/config"
	"reel/internal/engine"
	"reel/internal/logging"
	"reel/internal/media"
	"reel/internal/queue"
	"reel/internal/services"
)

// converter is the slice of the engine session the coordinator drives.
// Tests substitute a scripted implementation.
type converter interface {
	Initialize(ctx context.Context) error
	Convert(ctx context.Context, input []byte, sourceName string, target media.Format, quality media.Quality, onProgress engine.ProgressFunc) (engine.Result, error)
	Mode() string
	Terminated() bool
}

// Summary aggregates the outcome of one batch run.
type Summary struct {
	BatchID   string
	Total     int
	Completed int
	Failed    int
	Skipped   int
	Elapsed   time.Duration
}

// Coordinator registers source files, tracks their jobs, and drives batch
// conversion runs through a single engine session. All methods are safe
// for concurrent use; conversions themselves run strictly one at a time.
type Coordinator struct {
	cfg    *config.Config
	store  *queue.Store
	engine converter
	logger *slog.Logger
	events Events

	mu          sync.Mutex
	payloads    map[string][]byte
	results     map[string][]byte
	running     bool
	cancel      context.CancelFunc
	lastSummary *Summary

	wg sync.WaitGroup
}

// Option customizes coordinator construction.
type Option func(*Coordinator)

// WithEvents attaches an observer for batch and job notifications.
func WithEvents(events Events) Option {
	return func(c *Coordinator) {
		if events != nil {
			c.events = events
		}
	}
}

// NewCoordinator builds a coordinator over the given store and engine
// session. A nil logger disables logging.
func NewCoordinator(cfg *config.Config, store *queue.Store, session *engine.Session, logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Coordinator{
		cfg:      cfg,
		store:    store,
		engine:   session,
		logger:   logging.NewComponentLogger(logger, "batch"),
		events:   NoopEvents{},
		payloads: make(map[string][]byte),
		results:  make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Running reports whether a batch run is in flight.
func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Wait blocks until the current batch run, if any, has settled.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Stop cancels the running batch and waits for it to settle. The job being
// converted fails with a shutdown message; jobs not yet started stay
// pending.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

// LastSummary returns the outcome of the most recently finished batch run.
func (c *Coordinator) LastSummary() *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastSummary == nil {
		return nil
	}
	cp := *c.lastSummary
	return &cp
}

// VaultSize reports how many payloads the coordinator holds in memory and
// their combined size, source and result bytes included.
func (c *Coordinator) VaultSize() (entries int, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.payloads {
		entries++
		bytes += int64(len(p))
	}
	for _, r := range c.results {
		entries++
		bytes += int64(len(r))
	}
	return entries, bytes
}

// begin transitions the coordinator into the running state after
// validating the selection. The returned context governs the run.
func (c *Coordinator) begin(ctx context.Context, jobIDs []string) (context.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, services.Wrap(services.ErrValidation, "batch", "start", "a batch is already running", nil)
	}
	c.running = true
	c.mu.Unlock()

	ready, err := c.IsBatchReady(ctx, jobIDs)
	if err == nil && !ready {
		err = services.Wrap(services.ErrValidation, "batch", "start", "batch is not ready: every job needs a target format", nil)
	}
	if err != nil {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	return runCtx, nil
}

// end clears the running state and records the run summary.
func (c *Coordinator) end(summary Summary) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.running = false
	cp := summary
	c.lastSummary = &cp
	c.mu.Unlock()
}

func (c *Coordinator) payload(jobID string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.payloads[jobID]
	return data, ok
}

func (c *Coordinator) storeResult(jobID string, data []byte) {
	c.mu.Lock()
	c.results[jobID] = data
	c.mu.Unlock()
}

// dropPayload releases both the source and result bytes held for a job.
func (c *Coordinator) dropPayload(jobID string) {
	c.mu.Lock()
	delete(c.payloads, jobID)
	delete(c.results, jobID)
	c.mu.Unlock()
}
