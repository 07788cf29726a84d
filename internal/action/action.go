package action

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/facekit/internal/document"
	"github.com/dshills/facekit/internal/engine/history"
	"github.com/dshills/facekit/internal/engine/worker"
	"github.com/dshills/facekit/internal/event"
	"github.com/dshills/facekit/internal/metrics"
)

// Env is the engine context an action runs in.
type Env interface {
	Documents() *document.Manager
	History() *history.Manager
	Workers() *worker.Pool

	// Post runs fn on the coordinating goroutine.
	Post(fn func()) error

	// Notify reports the result of an execution to the dispatcher. It is
	// called on the coordinating goroutine.
	Notify(origin *Action, result event.Group, doc *document.Document)

	// Status publishes a progress or error message.
	Status(msg string)

	Logger() zerolog.Logger
	Metrics() *metrics.Metrics
}

// Option configures an Action.
type Option func(*Action)

// Async runs DoWork on a background worker.
func Async() Option {
	return func(a *Action) { a.async = true }
}

// Reentrant allows Execute while a previous execution is still working.
func Reentrant() Option {
	return func(a *Action) { a.reentrant = true }
}

// Locked creates the action locked.
func Locked() Option {
	return func(a *Action) { a.locked = true }
}

// WithDisplayName sets the name shown in menus and undo history.
func WithDisplayName(name string) Option {
	return func(a *Action) { a.display = name }
}

// WithTimeout bounds the DoWork of an async action.
func WithTimeout(d time.Duration) Option {
	return func(a *Action) { a.timeout = d }
}

// Action is a named operation with a fixed lifecycle.
type Action struct {
	name      string
	display   string
	behavior  Behavior
	async     bool
	reentrant bool
	timeout   time.Duration

	purgeOn   event.Group
	refreshOn event.Group
	triggerOn event.Group
	sealed    bool

	env    Env
	logger zerolog.Logger

	mu      sync.Mutex
	locked  bool
	allowed bool
	checked bool
	working int
	nextRun int
	ends    map[int]func()
}

// New creates an action named name performing b.
func New(name string, b Behavior, opts ...Option) *Action {
	a := &Action{
		name:     name,
		display:  name,
		behavior: b,
		allowed:  true,
		logger:   zerolog.Nop(),
		ends:     make(map[int]func()),
	}
	for _, opt := range opts {
		opt(a)
	}
	if binder, ok := b.(Binder); ok {
		binder.Bind(a)
	}
	return a
}

// Attach binds the action to an engine. The engine calls it on registration.
func (a *Action) Attach(env Env) {
	a.env = env
	a.logger = env.Logger().With().Str("action", a.name).Logger()
}

// Seal freezes the event masks. The dispatcher calls it on finalise.
func (a *Action) Seal() {
	a.sealed = true
}

// Name returns the unique action name.
func (a *Action) Name() string { return a.name }

// DisplayName returns the human-readable name.
func (a *Action) DisplayName() string { return a.display }

// Behavior returns the wrapped behavior.
func (a *Action) Behavior() Behavior { return a.behavior }

// IsAsync reports whether DoWork runs on a worker.
func (a *Action) IsAsync() bool { return a.async }

// IsReentrant reports whether concurrent executions are allowed.
func (a *Action) IsReentrant() bool { return a.reentrant }

// PurgeOn returns the purge mask.
func (a *Action) PurgeOn() event.Group { return a.purgeOn }

// RefreshOn returns the refresh mask.
func (a *Action) RefreshOn() event.Group { return a.refreshOn }

// TriggerOn returns the trigger mask.
func (a *Action) TriggerOn() event.Group { return a.triggerOn }

// String implements fmt.Stringer.
func (a *Action) String() string { return a.name }

// AddPurgeEvent adds g to the events that purge this action's caches.
func (a *Action) AddPurgeEvent(g event.Group) {
	if a.checkSealed("purge", g) {
		a.purgeOn = a.purgeOn.Union(g)
	}
}

// AddRefreshEvent adds g to the events that refresh this action.
func (a *Action) AddRefreshEvent(g event.Group) {
	if a.checkSealed("refresh", g) {
		a.refreshOn = a.refreshOn.Union(g)
	}
}

// AddTriggerEvent adds g to the events that execute this action.
func (a *Action) AddTriggerEvent(g event.Group) {
	if a.checkSealed("trigger", g) {
		a.triggerOn = a.triggerOn.Union(g)
	}
}

func (a *Action) checkSealed(mask string, g event.Group) bool {
	if a.sealed {
		a.logger.Warn().Str("mask", mask).Str("events", g.Name()).Msg("event mask change after finalise ignored")
		return false
	}
	return true
}

// request builds the request for trigger, defaulting to the selected document.
func (a *Action) request(trigger event.Group, doc *document.Document) Request {
	if doc == nil && a.env != nil {
		doc = a.env.Documents().Selected()
	}
	return Request{Action: a, Trigger: trigger, Document: doc}
}

// Execute runs the action on the selected document. trigger is the event
// group that caused the call, or event.None when the user invoked it. It
// reports whether DoWork was started.
func (a *Action) Execute(trigger event.Group) bool {
	return a.ExecuteOn(trigger, nil)
}

// ExecuteOn is Execute against doc. A nil doc means the selected document.
func (a *Action) ExecuteOn(trigger event.Group, doc *document.Document) bool {
	if a.env == nil {
		a.logger.Error().Err(ErrNotAttached).Msg("execute")
		return false
	}
	req := a.request(trigger, doc)

	if reason := a.admit(req); reason != "" {
		a.logger.Debug().Str("reason", reason).Str("trigger", trigger.Name()).Msg("execute rejected")
		a.env.Metrics().RecordAction(a.name, metrics.OutcomeRejected)
		return false
	}

	if p, ok := a.behavior.(Preparer); ok && !p.DoBefore(req) {
		a.logger.Debug().Msg("cancelled before work")
		a.env.Metrics().RecordAction(a.name, metrics.OutcomeCancelled)
		a.Refresh(trigger)
		a.env.Notify(a, event.Of(event.ActionCancelled), req.Document)
		return false
	}

	id, ctx, release := a.startRun()
	start := time.Now()

	if !a.async {
		err := a.doWork(ctx, req)
		release()
		a.finish(id, req, err, start)
		return true
	}

	h, err := a.env.Workers().Submit(worker.Task{
		Name:           a.display,
		Work:           func(wctx context.Context) error { return a.doWork(wctx, req) },
		Done:           func(err error) { a.finish(id, req, err, start) },
		Dropped:        func(err error) { a.abandon(id, err) },
		Status:         a.env.Status,
		UserInstigated: req.UserInstigated(),
		Timeout:        a.timeout,
	})
	release()
	if err != nil {
		a.finish(id, req, err, start)
		return true
	}

	a.mu.Lock()
	if _, live := a.ends[id]; live {
		a.ends[id] = h.EndNow
	}
	a.mu.Unlock()
	return true
}

// admit returns why req may not run, or "" when it may.
func (a *Action) admit(req Request) string {
	a.mu.Lock()
	locked, busy := a.locked, a.working > 0 && !a.reentrant
	a.mu.Unlock()

	switch {
	case locked:
		return "locked"
	case busy:
		return "working"
	case !a.allowedFor(req):
		return "not allowed"
	}
	return ""
}

// startRun opens the working window.
func (a *Action) startRun() (int, context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextRun++
	id := a.nextRun
	a.working++
	a.ends[id] = cancel
	return id, ctx, cancel
}

// endRun closes the working window of run id.
func (a *Action) endRun(id int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.ends, id)
	a.working--
}

func (a *Action) doWork(ctx context.Context, req Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("panic in DoWork")
			err = fmt.Errorf("%w: %v", ErrWorkPanic, r)
		}
	}()
	return a.behavior.DoWork(ctx, req)
}

// finish runs DoAfter, closes the working window, refreshes and notifies.
func (a *Action) finish(id int, req Request, err error, start time.Time) {
	result := a.after(req, err)
	a.endRun(id)

	elapsed := time.Since(start)
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case isCancel(err):
		outcome = metrics.OutcomeCancelled
	default:
		outcome = metrics.OutcomeFault
	}
	a.env.Metrics().RecordAction(a.name, outcome)
	a.env.Metrics().ObserveWork(a.name, elapsed)
	a.logger.Debug().
		Str("outcome", outcome).
		Dur("elapsed", elapsed).
		Str("result", result.Name()).
		Err(err).
		Msg("executed")

	a.Refresh(req.Trigger)
	a.env.Notify(a, result, a.target(req))
}

// abandon closes the working window of a run whose outcome could not reach
// the coordinator. DoAfter and the result broadcast are skipped.
func (a *Action) abandon(id int, err error) {
	a.endRun(id)
	a.env.Metrics().RecordAction(a.name, metrics.OutcomeCancelled)
	a.logger.Warn().Err(err).Msg("outcome undeliverable, run abandoned")
}

func (a *Action) target(req Request) *document.Document {
	if t, ok := a.behavior.(Targeter); ok {
		if doc := t.Target(req); doc != nil {
			return doc
		}
	}
	return req.Document
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, worker.ErrCancelled)
}

// after calls DoAfter. A panic there is an action fault like one in DoWork.
func (a *Action) after(req Request, err error) (result event.Group) {
	f, ok := a.behavior.(Finisher)
	if !ok {
		if err != nil {
			a.logger.Warn().Err(err).Msg("work failed")
			a.env.Status(fmt.Sprintf("%s failed: %v", a.display, err))
			return event.Of(event.ActionComplete)
		}
		return event.None
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("panic in DoAfter")
			a.env.Status(fmt.Sprintf("%s failed: %v", a.display, r))
			result = event.Of(event.ActionComplete)
		}
	}()
	return f.DoAfter(req, err)
}

func (a *Action) allowedFor(req Request) bool {
	if al, ok := a.behavior.(Allower); ok {
		return al.IsAllowed(req)
	}
	return true
}

// Refresh recomputes the enabled and checked state for g.
func (a *Action) Refresh(g event.Group) {
	req := a.request(g, nil)
	allowed := a.allowedFor(req)
	checked := false
	if c, ok := a.behavior.(Checker); ok {
		checked = c.IsChecked(req)
	}

	a.mu.Lock()
	a.allowed = allowed
	a.checked = checked
	a.mu.Unlock()
}

// Purge lets the behavior drop caches derived from doc.
func (a *Action) Purge(doc *document.Document, g event.Group) {
	if p, ok := a.behavior.(Purger); ok {
		p.Purge(doc, g)
	}
}

// IsEnabled reports whether the action can be executed now. It is false
// while any run is working, reentrant or not.
func (a *Action) IsEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.locked && a.allowed && a.working == 0
}

// IsChecked returns the checked state from the last Refresh.
func (a *Action) IsChecked() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.checked
}

// IsWorking reports whether an execution is between DoWork and DoAfter.
func (a *Action) IsWorking() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.working > 0
}

// IsLocked reports whether the action is locked.
func (a *Action) IsLocked() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.locked
}

// SetLocked locks or unlocks the action and refreshes it.
func (a *Action) SetLocked(locked bool) {
	a.mu.Lock()
	a.locked = locked
	a.mu.Unlock()
	a.Refresh(event.None)
}

// EndNow asks every running execution to stop. DoWork must poll its context.
func (a *Action) EndNow() {
	a.mu.Lock()
	ends := make([]func(), 0, len(a.ends))
	for _, end := range a.ends {
		ends = append(ends, end)
	}
	a.mu.Unlock()

	for _, end := range ends {
		end()
	}
}

// StoreUndo records the state of docs before this action mutates them.
func (a *Action) StoreUndo(g event.Group, autoRestore bool, docs ...*document.Document) (*history.State, error) {
	if a.env == nil {
		return nil, ErrNotAttached
	}
	return a.env.History().Store(a.owner(), g, autoRestore, docs...)
}

// StoreUndoLocked is StoreUndo for a caller holding the write lock on docs
// until its mutation is done.
func (a *Action) StoreUndoLocked(g event.Group, autoRestore bool, docs ...*document.Document) (*history.State, error) {
	if a.env == nil {
		return nil, ErrNotAttached
	}
	return a.env.History().StoreLocked(a.owner(), g, autoRestore, docs...)
}

// ScrapLastUndo discards doc's most recent undo state.
func (a *Action) ScrapLastUndo(doc *document.Document) bool {
	if a.env == nil {
		return false
	}
	return a.env.History().ScrapLast(doc.ID)
}
