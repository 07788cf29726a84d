package app

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dshills/facekit/internal/action"
	"github.com/dshills/facekit/internal/config"
	"github.com/dshills/facekit/internal/dispatcher"
	"github.com/dshills/facekit/internal/document"
	"github.com/dshills/facekit/internal/engine/history"
	"github.com/dshills/facekit/internal/engine/loop"
	"github.com/dshills/facekit/internal/engine/worker"
	"github.com/dshills/facekit/internal/event"
	"github.com/dshills/facekit/internal/logging"
	"github.com/dshills/facekit/internal/metrics"
)

// Engine is the process-wide context actions run in. It owns the
// coordinating loop, the open documents, the undo history, the worker pool
// and the dispatcher, and implements action.Env.
type Engine struct {
	cfg      *config.Config
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	registry *prometheus.Registry

	loop       *loop.Loop
	docs       *document.Manager
	history    *history.Manager
	workers    *worker.Pool
	dispatcher *dispatcher.Dispatcher

	mu       sync.Mutex
	statusFn []func(string)

	running  atomic.Bool
	runWG    sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	logger     *zerolog.Logger
	registerer prometheus.Registerer
}

// WithLogger sets the root logger. Without it one is built from the logging
// configuration.
func WithLogger(l zerolog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = &l
	}
}

// WithRegisterer registers metrics with reg instead of a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *engineOptions) {
		o.registerer = reg
	}
}

// New builds an engine from cfg. A nil cfg uses config.Default().
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, NewOperationError("configure", "engine", err)
	}

	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{
		cfg:  cfg,
		docs: document.NewManager(),
		done: make(chan struct{}),
	}

	if o.logger != nil {
		e.logger = *o.logger
	} else {
		e.logger = logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	}

	if cfg.Metrics.Enabled {
		reg := o.registerer
		if reg == nil {
			e.registry = prometheus.NewRegistry()
			reg = e.registry
		}
		m, err := metrics.New(reg, cfg.Metrics.Namespace)
		if err != nil {
			return nil, NewOperationError("register", "metrics", err)
		}
		e.metrics = m
	}

	e.loop = loop.New(loop.WithLogger(logging.Component(e.logger, "loop")))
	e.history = history.NewManager(
		history.WithMaxRestores(cfg.Undo.MaxRestores),
		history.WithStrict(cfg.Undo.Strict),
		history.WithLogger(logging.Component(e.logger, "history")),
		history.WithMetrics(e.metrics),
	)
	e.workers = worker.NewPool(e.loop,
		worker.WithTickInterval(cfg.Worker.TickInterval.Std()),
		worker.WithTimeout(cfg.Worker.Timeout.Std()),
		worker.WithLogger(logging.Component(e.logger, "worker")),
		worker.WithMetrics(e.metrics),
	)
	e.dispatcher = dispatcher.New(
		dispatcher.WithMaxDepth(cfg.Dispatch.MaxDepth),
		dispatcher.WithLogger(logging.Component(e.logger, "dispatcher")),
		dispatcher.WithMetrics(e.metrics),
	)

	e.docs.OnClose(func(doc *document.Document) {
		e.history.Clear(doc.ID)
		e.logger.Debug().Str("document", doc.Name).Msg("undo history cleared")
	})
	return e, nil
}

// Register attaches actions to the engine and registers them in order.
func (e *Engine) Register(actions ...*action.Action) error {
	for _, a := range actions {
		if a == nil {
			return NewOperationError("register", "", dispatcher.ErrNilAction)
		}
		a.Attach(e)
		if err := e.dispatcher.Register(a); err != nil {
			return NewOperationError("register", a.Name(), err)
		}
	}
	return nil
}

// Finalise seals the action registry.
func (e *Engine) Finalise() {
	e.dispatcher.Finalise()
}

// Open adds doc, selects it and raises the load event. It must run on the
// coordinating loop.
func (e *Engine) Open(doc *document.Document) error {
	if err := e.docs.Add(doc); err != nil {
		return NewOperationError("open", doc.Name, err)
	}
	e.dispatcher.Raise(event.Of(event.ModelLoad, event.ModelSelect), doc, nil)
	return nil
}

// OnDispatch calls fn after every dispatch cycle with the union of the events
// raised in it.
func (e *Engine) OnDispatch(fn dispatcher.Observer) (cancel func()) {
	return e.dispatcher.Subscribe(fn)
}

// OnStatus calls fn on the coordinating loop with every status message.
func (e *Engine) OnStatus(fn func(msg string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statusFn = append(e.statusFn, fn)
}

// Busy reports whether any user-instigated work is running.
func (e *Engine) Busy() bool {
	return e.workers.Busy()
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// Dispatcher returns the action dispatcher.
func (e *Engine) Dispatcher() *dispatcher.Dispatcher { return e.dispatcher }

// Loop returns the coordinating loop.
func (e *Engine) Loop() *loop.Loop { return e.loop }

// Gatherer returns the private metrics registry, or nil when metrics are
// disabled or registered elsewhere.
func (e *Engine) Gatherer() prometheus.Gatherer {
	if e.registry == nil {
		return nil
	}
	return e.registry
}
