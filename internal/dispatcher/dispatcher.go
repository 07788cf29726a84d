package dispatcher

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dshills/facekit/internal/action"
	"github.com/dshills/facekit/internal/document"
	"github.com/dshills/facekit/internal/event"
	"github.com/dshills/facekit/internal/metrics"
)

// DefaultMaxDepth is the default nesting limit of Raise within one cycle.
const DefaultMaxDepth = 32

// Observer receives the union of the groups raised in a cycle and the
// document of the outermost Raise.
type Observer func(g event.Group, doc *document.Document)

// stage is a bit per broadcast step, recorded per action and cycle.
type stage uint8

const (
	stagePurge stage = 1 << iota
	stageRefresh
	stageTrigger
)

type observerEntry struct {
	id int
	fn Observer
}

// Dispatcher holds the ordered action registry and broadcasts events.
type Dispatcher struct {
	mu        sync.RWMutex
	actions   []*action.Action
	byName    map[string]*action.Action
	finalised bool
	observers []observerEntry
	nextObs   int
	maxDepth  int

	// Cycle state. Only touched on the coordinating goroutine.
	depth     int
	deepest   int
	processed map[*action.Action]stage
	raised    event.Group
	snapshot  []*action.Action
	watchers  []observerEntry

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMaxDepth sets the nesting limit of Raise.
func WithMaxDepth(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxDepth = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// New creates a dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		byName:   make(map[string]*action.Action),
		maxDepth: DefaultMaxDepth,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Finalise seals every action's event masks and refreshes all actions. No
// actions can be registered afterwards.
func (d *Dispatcher) Finalise() {
	d.mu.Lock()
	if d.finalised {
		d.mu.Unlock()
		return
	}
	d.finalised = true
	actions := append([]*action.Action(nil), d.actions...)
	d.mu.Unlock()

	for _, a := range actions {
		a.Seal()
	}
	for _, a := range actions {
		a.Refresh(event.None)
	}
	d.logger.Info().Int("actions", len(actions)).Msg("dispatcher finalised")
}

// Finalised reports whether Finalise was called.
func (d *Dispatcher) Finalised() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.finalised
}

// Subscribe adds an observer. Observers added during a cycle are first
// called for the next one. The returned func removes the observer.
func (d *Dispatcher) Subscribe(fn Observer) (cancel func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextObs++
	id := d.nextObs
	d.observers = append(d.observers, observerEntry{id: id, fn: fn})

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, o := range d.observers {
			if o.id == id {
				d.observers = append(d.observers[:i:i], d.observers[i+1:]...)
				return
			}
		}
	}
}

// Raise broadcasts g, produced by origin against doc, to every action. origin
// may be nil for events that do not come from an action.
func (d *Dispatcher) Raise(g event.Group, doc *document.Document, origin *action.Action) {
	if g.IsEmpty() {
		return
	}
	if d.depth > 0 {
		d.broadcast(g, doc, origin)
		return
	}

	raised, watchers := d.runCycle(g, doc, origin)
	for _, o := range watchers {
		o.fn(raised, doc)
	}
}

// runCycle runs an outermost Raise and returns the union of all groups raised
// in it with the observers to notify.
func (d *Dispatcher) runCycle(g event.Group, doc *document.Document, origin *action.Action) (event.Group, []observerEntry) {
	d.beginCycle()
	defer d.endCycle()

	d.broadcast(g, doc, origin)
	return d.raised, d.watchers
}

func (d *Dispatcher) broadcast(g event.Group, doc *document.Document, origin *action.Action) {
	d.depth++
	defer func() { d.depth-- }()

	if d.depth > d.deepest {
		d.deepest = d.depth
	}
	if d.depth > d.maxDepth {
		panic(fmt.Sprintf("dispatcher: raise nested deeper than %d (raising %s from %s)",
			d.maxDepth, g.Name(), originName(origin)))
	}

	d.raised = d.raised.Union(g)
	if origin != nil {
		d.processed[origin] |= stageTrigger
	}

	d.logger.Debug().
		Str("events", g.Name()).
		Str("origin", originName(origin)).
		Int("depth", d.depth).
		Msg("raise")

	for _, a := range d.snapshot {
		if g.Intersects(a.PurgeOn()) && d.claim(a, stagePurge) {
			a.Purge(doc, g)
		}
		if g.Intersects(a.RefreshOn()) && d.claim(a, stageRefresh) {
			a.Refresh(g)
		}
		if g.Intersects(a.TriggerOn()) && d.claim(a, stageTrigger) {
			a.ExecuteOn(g, doc)
		}
	}
}

// claim marks stage s done for a in this cycle. It reports false if it was
// already done.
func (d *Dispatcher) claim(a *action.Action, s stage) bool {
	if d.processed[a]&s != 0 {
		return false
	}
	d.processed[a] |= s
	return true
}

func (d *Dispatcher) beginCycle() {
	d.mu.RLock()
	d.snapshot = append([]*action.Action(nil), d.actions...)
	d.watchers = append([]observerEntry(nil), d.observers...)
	d.mu.RUnlock()

	d.processed = make(map[*action.Action]stage, len(d.snapshot))
	d.raised = event.None
	d.deepest = 0
}

func (d *Dispatcher) endCycle() {
	d.metrics.RecordCycle(d.deepest)
	d.depth = 0
	d.processed = nil
	d.snapshot = nil
	d.watchers = nil
}

// Depth returns the current Raise nesting, zero outside a cycle.
func (d *Dispatcher) Depth() int {
	return d.depth
}

// Dispatch executes the action registered under name as a user request. It
// reports whether DoWork was started.
func (d *Dispatcher) Dispatch(name string) (bool, error) {
	a, ok := d.Get(name)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNoAction, name)
	}
	return a.Execute(event.None), nil
}

func originName(a *action.Action) string {
	if a == nil {
		return "-"
	}
	return a.Name()
}
