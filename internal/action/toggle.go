package action

import (
	"context"
	"sync"

	"github.com/dshills/facekit/internal/document"
	"github.com/dshills/facekit/internal/event"
)

// Visualisation is a display mode that can be switched on and off per
// document.
type Visualisation interface {
	// Available reports whether the mode applies to doc.
	Available(doc *document.Document) bool
	// Apply switches the mode for doc.
	Apply(doc *document.Document, on bool) error
}

// toggle adapts a Visualisation to a checkable Behavior.
type toggle struct {
	vis Visualisation

	mu sync.Mutex
	on map[string]bool
}

// NewToggle creates an action that switches vis for the selected document.
// It is checked while the mode is on, refreshes on selection and view changes
// and forgets closed documents.
func NewToggle(name string, vis Visualisation, opts ...Option) *Action {
	t := &toggle{vis: vis, on: make(map[string]bool)}
	a := New(name, t, opts...)
	a.AddRefreshEvent(event.Of(event.ModelLoad, event.ModelSelect, event.ModelClose, event.ViewChange))
	a.AddPurgeEvent(event.Of(event.ModelClose))
	return a
}

func (t *toggle) IsAllowed(req Request) bool {
	if req.Document == nil {
		return false
	}
	req.Document.RLock()
	defer req.Document.RUnlock()
	return t.vis.Available(req.Document)
}

func (t *toggle) DoWork(_ context.Context, req Request) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := !t.on[req.Document.ID]
	if err := t.vis.Apply(req.Document, next); err != nil {
		return err
	}
	t.on[req.Document.ID] = next
	return nil
}

func (t *toggle) DoAfter(_ Request, err error) event.Group {
	if err != nil {
		return event.Of(event.ActionComplete)
	}
	return event.Of(event.ViewChange)
}

func (t *toggle) IsChecked(req Request) bool {
	if req.Document == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.on[req.Document.ID]
}

func (t *toggle) Purge(doc *document.Document, g event.Group) {
	if doc == nil || !g.Has(event.ModelClose) {
		return
	}
	t.mu.Lock()
	delete(t.on, doc.ID)
	t.mu.Unlock()

	if p, ok := t.vis.(Purger); ok {
		p.Purge(doc, g)
	}
}
