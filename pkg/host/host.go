package host

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vango-dev/reactor/pkg/reactor"
)

// DefaultInterval is the default time between drain passes.
const DefaultInterval = 16 * time.Millisecond

// ErrQueueFull is returned by Dispatch when the work queue is full.
var ErrQueueFull = errors.New("host: work queue full")

// ErrClosed is returned when work is submitted to a loop that has stopped.
var ErrClosed = errors.New("host: loop closed")

// TickEvent describes one drain pass that did work.
type TickEvent struct {
	Pass       uint64    `json:"pass"`
	Runs       int       `json:"runs"`
	Skipped    int       `json:"skipped"`
	Remaining  int       `json:"remaining"`
	Failures   []string  `json:"failures,omitempty"`
	DurationMS float64   `json:"durationMs"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Loop owns a runtime and serializes every access to it on one goroutine.
// It drains pending reactions once per tick and after every Do.
type Loop struct {
	rt       *reactor.Runtime
	interval time.Duration
	logger   *slog.Logger

	work    chan func()
	done    chan struct{}
	running atomic.Bool

	mu      sync.Mutex
	subs    map[int]chan TickEvent
	nextSub int
	last    TickEvent
}

// Option configures a Loop.
type Option func(*Loop)

// WithInterval sets the tick interval.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithQueueSize sets the capacity of the work queue.
func WithQueueSize(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.work = make(chan func(), n)
		}
	}
}

// New creates a Loop for rt. The loop does nothing until Run is called.
func New(rt *reactor.Runtime, opts ...Option) *Loop {
	l := &Loop{
		rt:       rt,
		interval: DefaultInterval,
		logger:   slog.Default(),
		work:     make(chan func(), 64),
		done:     make(chan struct{}),
		subs:     make(map[int]chan TickEvent),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run processes work and ticks until ctx is cancelled. It returns nil on
// cancellation. Run must be called at most once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("host: loop already running")
	}
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Info("host loop started", "interval", l.interval)
	for {
		select {
		case <-ctx.Done():
			l.closeSubscribers()
			l.logger.Info("host loop stopped")
			return nil
		case fn := <-l.work:
			fn()
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

// Do runs fn on the loop goroutine, drains pending reactions, and returns
// fn's error. It must not be called from inside fn or a reaction.
func (l *Loop) Do(ctx context.Context, fn func(rt *reactor.Runtime) error) error {
	result := make(chan error, 1)
	job := func() {
		err := fn(l.rt)
		l.tick(ctx)
		result <- err
	}

	select {
	case l.work <- job:
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch queues fn to run on the loop goroutine without waiting. It is the
// way to write cells from callbacks of asynchronous work.
func (l *Loop) Dispatch(fn func(rt *reactor.Runtime)) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.work <- func() { fn(l.rt) }:
		return nil
	default:
		l.logger.Warn("work queue full, discarding dispatch")
		return ErrQueueFull
	}
}

// Tick drains pending reactions now and returns the resulting event. The
// event is zero when nothing was pending.
func (l *Loop) Tick(ctx context.Context) (TickEvent, error) {
	var ev TickEvent
	err := l.Do(ctx, func(*reactor.Runtime) error {
		ev = l.tick(ctx)
		return nil
	})
	return ev, err
}

// Last returns the most recent event.
func (l *Loop) Last() TickEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// Subscribe returns a channel receiving every TickEvent and a function that
// cancels the subscription. Events are dropped for subscribers whose buffer
// is full. The channel is closed when the loop stops or on cancel.
func (l *Loop) Subscribe(buf int) (<-chan TickEvent, func()) {
	ch := make(chan TickEvent, buf)

	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = ch
	l.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if c, ok := l.subs[id]; ok {
				delete(l.subs, id)
				close(c)
			}
		})
	}
}

func (l *Loop) tick(ctx context.Context) TickEvent {
	if l.rt.Pending() == 0 {
		return TickEvent{}
	}
	report, err := l.rt.DrainPending(ctx)
	ev := newTickEvent(report, err)
	if err != nil {
		l.logger.Error("drain failed", "pass", report.Pass, "error", err)
	}
	l.publish(ev)
	return ev
}

func newTickEvent(report reactor.DrainReport, err error) TickEvent {
	ev := TickEvent{
		Pass:       report.Pass,
		Runs:       report.Runs,
		Skipped:    report.Skipped,
		Remaining:  report.Remaining,
		DurationMS: float64(report.Duration.Microseconds()) / 1000,
		At:         time.Now(),
	}
	for _, f := range report.Failures {
		ev.Failures = append(ev.Failures, f.Error())
	}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

func (l *Loop) publish(ev TickEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = ev
	for _, ch := range l.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (l *Loop) closeSubscribers() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, ch := range l.subs {
		delete(l.subs, id)
		close(ch)
	}
}
