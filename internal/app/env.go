package app

import (
	"github.com/rs/zerolog"

	"github.com/dshills/facekit/internal/action"
	"github.com/dshills/facekit/internal/document"
	"github.com/dshills/facekit/internal/engine/history"
	"github.com/dshills/facekit/internal/engine/worker"
	"github.com/dshills/facekit/internal/event"
	"github.com/dshills/facekit/internal/metrics"
)

var _ action.Env = (*Engine)(nil)

// Documents returns the open documents.
func (e *Engine) Documents() *document.Manager { return e.docs }

// History returns the undo manager.
func (e *Engine) History() *history.Manager { return e.history }

// Workers returns the background worker pool.
func (e *Engine) Workers() *worker.Pool { return e.workers }

// Logger returns the root logger.
func (e *Engine) Logger() zerolog.Logger { return e.logger }

// Metrics returns the metrics sink, nil when disabled.
func (e *Engine) Metrics() *metrics.Metrics { return e.metrics }

// Post runs fn on the coordinating loop.
func (e *Engine) Post(fn func()) error {
	return e.loop.Post(fn)
}

// Notify raises an action's result.
func (e *Engine) Notify(origin *action.Action, result event.Group, doc *document.Document) {
	e.dispatcher.Raise(result, doc, origin)
}

// Status delivers msg to the status listeners on the coordinating loop.
func (e *Engine) Status(msg string) {
	err := e.loop.Post(func() {
		e.mu.Lock()
		fns := append(([]func(string))(nil), e.statusFn...)
		e.mu.Unlock()
		for _, fn := range fns {
			fn(msg)
		}
	})
	if err != nil {
		e.logger.Debug().Str("status", msg).Msg("status dropped")
	}
}
