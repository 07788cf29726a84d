// Package loop provides the coordinating goroutine.
//
// Every step that touches action state (dispatch, refresh, undo restore and
// DoAfter) runs as a func posted to a Loop. Posting never blocks, so
// background workers can hand completions back at any time. Funcs run one at
// a time in FIFO order.
package loop

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Errors returned by Loop.
var (
	ErrClosed  = errors.New("loop: closed")
	ErrRunning = errors.New("loop: already running")
)

// Loop is a FIFO of funcs executed on a single goroutine.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	closed  bool
	running atomic.Bool

	logger zerolog.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used to report recovered panics.
func WithLogger(l zerolog.Logger) Option {
	return func(lp *Loop) {
		lp.logger = l
	}
}

// New creates a loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		wake:   make(chan struct{}, 1),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post appends fn to the queue. It is safe from any goroutine.
func (l *Loop) Post(fn func()) error {
	if fn == nil {
		return nil
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of queued funcs.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

// run executes fn. A panic escaping a posted func is an engine invariant
// violation; it is logged and re-raised.
func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("panic on coordinating loop")
			panic(r)
		}
	}()
	fn()
}

// Step runs the next queued func, waiting for one if the queue is empty. It
// returns false when ctx is done or the loop is closed and drained.
func (l *Loop) Step(ctx context.Context) bool {
	for {
		if fn, ok := l.pop(); ok {
			l.run(fn)
			return true
		}
		l.mu.Lock()
		closed := l.closed
		l.mu.Unlock()
		if closed {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-l.wake:
		}
	}
}

// Drain runs queued funcs, including ones posted while draining, until the
// queue is empty. It returns the number run.
func (l *Loop) Drain() int {
	n := 0
	for {
		fn, ok := l.pop()
		if !ok {
			return n
		}
		l.run(fn)
		n++
	}
}

// Run processes funcs until ctx is done or the loop is closed. Funcs still
// queued at Close are run before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer l.running.Store(false)

	for l.Step(ctx) {
	}
	return ctx.Err()
}

// Close stops accepting posts and wakes a waiting Run.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Closed reports whether Close was called.
func (l *Loop) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
