// Package worker runs the heavy step of asynchronous actions off the
// coordinating goroutine.
//
// Each submitted Task gets its own goroutine. Completion is never delivered
// from the worker goroutine itself: it is posted to the coordinator as a
// closure so Done always runs there. Periodic status strings go straight to
// Task.Status, which forwards them to the coordinator in a single post.
// Cancellation is cooperative; EndNow cancels the task context and Work is
// expected to poll it.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/facekit/internal/metrics"
)

// DefaultTickInterval is the default period between status ticks.
const DefaultTickInterval = time.Second

// Errors reported to Task.Done.
var (
	ErrTimeout   = errors.New("worker: timed out")
	ErrCancelled = errors.New("worker: ended early")
	ErrWorkPanic = errors.New("worker: panic in work")
	ErrShutdown  = errors.New("worker: pool shut down")
)

// Poster hands a func to the coordinating goroutine.
type Poster interface {
	Post(fn func()) error
}

// PostFunc adapts a func to Poster.
type PostFunc func(fn func()) error

// Post calls f(fn).
func (f PostFunc) Post(fn func()) error { return f(fn) }

// Task is one unit of background work.
type Task struct {
	// Name prefixes status ticks.
	Name string

	// Work runs on the worker goroutine.
	Work func(ctx context.Context) error

	// Done receives the outcome on the coordinator.
	Done func(err error)

	// Dropped runs on the worker goroutine instead of Done when the outcome
	// cannot be posted, for example after the coordinator has stopped. It
	// must not touch coordinator-owned state beyond releasing the task.
	Dropped func(err error)

	// Status receives progress strings from the tick goroutine and must be
	// safe to call from it. Optional.
	Status func(msg string)

	// UserInstigated tasks count towards Active.
	UserInstigated bool

	// Timeout overrides the pool default. Zero uses the default; a negative
	// value disables the timeout.
	Timeout time.Duration
}

// Handle controls a running task.
type Handle struct {
	name    string
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}

	mu  sync.Mutex
	err error
}

// Name returns the task name.
func (h *Handle) Name() string { return h.name }

// Elapsed returns the time since the task started.
func (h *Handle) Elapsed() time.Duration { return time.Since(h.started) }

// EndNow asks the task to stop. It does not wait.
func (h *Handle) EndNow() { h.cancel() }

// Done is closed when Work has returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the outcome once Done is closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Pool tracks running tasks.
type Pool struct {
	poster  Poster
	tick    time.Duration
	timeout time.Duration

	mu      sync.Mutex
	active  int
	running map[*Handle]struct{}
	closed  bool
	wg      sync.WaitGroup

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// Option configures a Pool.
type Option func(*Pool)

// WithTickInterval sets the status tick period. Zero disables ticks.
func WithTickInterval(d time.Duration) Option {
	return func(p *Pool) {
		p.tick = d
	}
}

// WithTimeout sets the default task timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(p *Pool) {
		p.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pool) {
		p.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pool) {
		p.metrics = m
	}
}

// NewPool creates a pool posting completions to poster.
func NewPool(poster Poster, opts ...Option) *Pool {
	p := &Pool{
		poster:  poster,
		tick:    DefaultTickInterval,
		running: make(map[*Handle]struct{}),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit starts t on a new goroutine.
func (p *Pool) Submit(t Task) (*Handle, error) {
	if t.Work == nil {
		return nil, errors.New("worker: task has no work")
	}

	timeout := t.Timeout
	if timeout == 0 {
		timeout = p.timeout
	}
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	h := &Handle{
		name:    t.Name,
		started: time.Now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		cancel()
		return nil, ErrShutdown
	}
	p.running[h] = struct{}{}
	if t.UserInstigated {
		p.active++
		p.metrics.SetActiveWorkers(p.active)
	}
	p.wg.Add(1)
	p.mu.Unlock()

	p.logger.Debug().Str("task", t.Name).Dur("timeout", timeout).Msg("worker started")
	go p.run(ctx, h, t)
	return h, nil
}

func (p *Pool) run(ctx context.Context, h *Handle, t Task) {
	defer p.wg.Done()

	stopTicks := p.startTicks(ctx, h, t)
	err := p.work(ctx, t)
	stopTicks()
	h.cancel()

	h.mu.Lock()
	h.err = err
	h.mu.Unlock()

	p.logger.Debug().Str("task", t.Name).Dur("elapsed", h.Elapsed()).Err(err).Msg("worker finished")

	// The completion is queued before the task leaves the running set so an
	// idle pool never has completions still to post.
	if t.Done != nil {
		if perr := p.poster.Post(func() { t.Done(err) }); perr != nil {
			p.logger.Warn().Str("task", t.Name).Err(perr).Msg("completion dropped")
			if t.Dropped != nil {
				t.Dropped(err)
			}
		}
	}

	p.mu.Lock()
	delete(p.running, h)
	if t.UserInstigated {
		p.active--
		p.metrics.SetActiveWorkers(p.active)
	}
	p.mu.Unlock()
	close(h.done)
}

// work calls t.Work, converting panics and context expiry into errors.
func (p *Pool) work(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Str("task", t.Name).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("panic in worker")
			err = fmt.Errorf("%w: %v", ErrWorkPanic, r)
		}
	}()

	err = t.Work(ctx)
	if cerr := ctx.Err(); cerr != nil && (err == nil || errors.Is(err, cerr)) {
		if errors.Is(cerr, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ErrCancelled
	}
	return err
}

// startTicks sends "<name>: <elapsed>" to t.Status every tick until the
// returned func is called.
func (p *Pool) startTicks(ctx context.Context, h *Handle, t Task) func() {
	if p.tick <= 0 || t.Status == nil {
		return func() {}
	}
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(p.tick)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				msg := fmt.Sprintf("%s: %s", t.Name, h.Elapsed().Round(p.tick))
				t.Status(msg)
			}
		}
	}()
	return func() {
		close(stop)
		wg.Wait()
	}
}

// Active returns the number of running user-instigated tasks.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Busy reports whether any user-instigated task is running.
func (p *Pool) Busy() bool {
	return p.Active() > 0
}

// Running returns the number of running tasks of any kind.
func (p *Pool) Running() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.running)
}

// Shutdown rejects new tasks, ends running ones and waits for them or ctx.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	for h := range p.running {
		h.EndNow()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
