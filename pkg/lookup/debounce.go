package lookup

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DebounceConfig controls background discovery scheduling.
type DebounceConfig struct {
	// Quiet is how long the example stream must stay silent before a
	// pass runs. Every Notify restarts the clock.
	Quiet time.Duration

	// MinNewExamples is how many notifications must accumulate before
	// the quiet timer starts at all.
	MinNewExamples int

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

func (c *DebounceConfig) defaults() {
	if c.Quiet == 0 {
		c.Quiet = 30 * time.Second
	}
	if c.MinNewExamples == 0 {
		c.MinNewExamples = 3
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Debouncer coalesces bursts of new examples into single discovery
// passes. At most one pass runs at a time; a pass scheduled while one
// is running cancels it first, so the latest request wins. A
// cancelled pass commits nothing.
type Debouncer struct {
	mu      sync.Mutex
	cfg     DebounceConfig
	run     func(ctx context.Context) (int, error)
	pending int
	timer   *time.Timer
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

// NewDebouncer wraps a discovery function, typically
// [Resolver.RunDiscovery].
func NewDebouncer(run func(ctx context.Context) (int, error), cfg DebounceConfig) *Debouncer {
	cfg.defaults()
	return &Debouncer{cfg: cfg, run: run}
}

// Notify records one new example and (re)starts the quiet timer once
// enough have accumulated.
func (d *Debouncer) Notify() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.pending++
	if d.pending < d.cfg.MinNewExamples {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.cfg.Quiet, d.fire)
}

// Flush runs a pass immediately if any notifications are pending,
// without waiting out the quiet period.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.closed || d.pending == 0 {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	d.fire()
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if d.cancel != nil {
		d.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.pending = 0
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		added, err := d.run(ctx)
		switch {
		case ctx.Err() != nil:
			d.cfg.Logger.Debug("discovery pass superseded")
		case err != nil:
			d.cfg.Logger.Warn("discovery pass failed", "error", err)
		default:
			d.cfg.Logger.Info("discovery pass complete", "patterns_added", added)
		}
	}()
}

// Close stops the timer, cancels any running pass, and waits for it
// to unwind.
func (d *Debouncer) Close() {
	d.mu.Lock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()
	d.wg.Wait()
}
