package session

import (
	"context"
	"sync"
	"time"

	"github.com/wudi/pagekit/observability"
)

// DefaultDebounce is the quiet period before a notified change is written.
const DefaultDebounce = time.Second

// Option configures an Autosaver.
type Option func(*Autosaver)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(a *Autosaver) {
		if d > 0 {
			a.delay = d
		}
	}
}

// WithLogger sets the logger used for background save failures.
func WithLogger(l observability.Logger) Option {
	return func(a *Autosaver) { a.logger = observability.OrNop(l) }
}

// WithErrorHandler is called with every failed background save.
func WithErrorHandler(fn func(error)) Option {
	return func(a *Autosaver) { a.onError = fn }
}

// Autosaver writes snapshots to a Store after a quiet period. Every Notify
// restarts the timer; SaveNow writes immediately. Writes are serialized and
// an older snapshot never overwrites a newer one.
type Autosaver struct {
	store   Store
	delay   time.Duration
	logger  observability.Logger
	onError func(error)

	mu      sync.Mutex
	timer   *time.Timer
	pending *Snapshot
	seq     uint64 // sequence of the newest snapshot handed in
	gen     uint64 // timer generation; stale timers do nothing
	closed  bool

	saveMu sync.Mutex
	saved  uint64 // sequence of the newest snapshot written
}

// NewAutosaver creates an autosaver writing to store.
func NewAutosaver(store Store, opts ...Option) *Autosaver {
	a := &Autosaver{store: store, delay: DefaultDebounce, logger: observability.NopLogger{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Notify records s as the latest state and (re)starts the quiet timer.
func (a *Autosaver) Notify(s Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.seq++
	a.gen++
	a.pending = &s
	if a.timer != nil {
		a.timer.Stop()
	}
	gen, seq := a.gen, a.seq
	a.timer = time.AfterFunc(a.delay, func() { a.fire(gen, seq) })
}

func (a *Autosaver) fire(gen, seq uint64) {
	a.mu.Lock()
	if gen != a.gen || a.pending == nil {
		a.mu.Unlock()
		return
	}
	s := *a.pending
	a.pending = nil
	a.timer = nil
	a.mu.Unlock()

	if err := a.write(context.Background(), s, seq); err != nil {
		a.logger.Warn("autosave failed", observability.Error("error", err))
		if a.onError != nil {
			a.onError(err)
		}
	}
}

// take removes the pending snapshot and stops the timer.
func (a *Autosaver) take() (*Snapshot, uint64) {
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	s := a.pending
	a.pending = nil
	return s, a.seq
}

// SaveNow writes s immediately, superseding anything pending.
func (a *Autosaver) SaveNow(ctx context.Context, s Snapshot) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.take()
	a.seq++
	seq := a.seq
	a.mu.Unlock()
	return a.write(ctx, s, seq)
}

// Flush writes the pending snapshot, if any, without waiting for the timer.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	s, seq := a.take()
	a.mu.Unlock()
	if s == nil {
		return nil
	}
	return a.write(ctx, *s, seq)
}

// Pending reports whether a snapshot is waiting for its timer.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

// Close flushes pending work and stops accepting snapshots.
func (a *Autosaver) Close(ctx context.Context) error {
	err := a.Flush(ctx)
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	return err
}

func (a *Autosaver) write(ctx context.Context, s Snapshot, seq uint64) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()
	if seq <= a.saved {
		return nil
	}
	start := time.Now()
	if err := a.store.Save(ctx, s); err != nil {
		return err
	}
	a.saved = seq
	pages := 0
	if s.Document != nil {
		pages = s.Document.Len()
	}
	a.logger.Debug("session saved",
		observability.Int("pages", pages),
		observability.Int("active", s.ActiveIndex),
		observability.Duration("elapsed", time.Since(start)))
	return nil
}
