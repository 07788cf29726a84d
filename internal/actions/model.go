package actions

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/facekit/internal/action"
	"github.com/dshills/facekit/internal/document"
	"github.com/dshills/facekit/internal/engine/history"
	"github.com/dshills/facekit/internal/event"
)

// Model action names.
const (
	LoadName   = "model.load"
	SelectName = "model.select"
	CloseName  = "model.close"
	UndoName   = "model.undo"
	RedoName   = "model.redo"
)

// load opens a model from a path the user enters.
type load struct {
	loader   Loader
	prompter Prompter

	mu     sync.Mutex
	path   string
	loaded *document.Document
}

// NewLoad creates model.load. The path is prompted for on the coordinator and
// the file is read on a worker.
func NewLoad(loader Loader, prompter Prompter) *action.Action {
	return action.New(LoadName, &load{loader: loader, prompter: prompter},
		action.Async(), action.WithDisplayName("Open model"))
}

func (l *load) IsAllowed(action.Request) bool {
	return l.loader != nil && l.prompter != nil
}

func (l *load) DoBefore(action.Request) bool {
	path, ok := l.prompter.Prompt("Open model", "")
	if !ok || path == "" {
		return false
	}
	l.mu.Lock()
	l.path, l.loaded = path, nil
	l.mu.Unlock()
	return true
}

func (l *load) DoWork(ctx context.Context, _ action.Request) error {
	l.mu.Lock()
	path := l.path
	l.mu.Unlock()

	doc, err := l.loader.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	l.mu.Lock()
	l.loaded = doc
	l.mu.Unlock()
	return nil
}

func (l *load) DoAfter(req action.Request, err error) event.Group {
	if err != nil {
		req.Status(err.Error())
		return event.Of(event.ActionComplete)
	}
	l.mu.Lock()
	doc := l.loaded
	l.mu.Unlock()

	if err := req.Env().Documents().Add(doc); err != nil {
		req.Status(fmt.Sprintf("open %s: %v", doc.Name, err))
		return event.Of(event.ActionComplete)
	}
	req.Status("Opened " + doc.Name)
	return event.Of(event.ModelLoad, event.ModelSelect)
}

func (l *load) Target(action.Request) *document.Document {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// selectModel changes the selected document.
type selectModel struct {
	chooser Chooser
	next    *document.Document
}

// NewSelect creates model.select. A nil chooser cycles through the open
// documents.
func NewSelect(chooser Chooser) *action.Action {
	if chooser == nil {
		chooser = NextDocument
	}
	return action.New(SelectName, &selectModel{chooser: chooser}, action.WithDisplayName("Select model"))
}

func (s *selectModel) Bind(a *action.Action) {
	a.AddRefreshEvent(event.Of(event.ModelLoad, event.ModelClose))
}

func (s *selectModel) IsAllowed(req action.Request) bool {
	return req.Env() != nil && req.Env().Documents().Count() > 1
}

func (s *selectModel) DoBefore(req action.Request) bool {
	docs := req.Env().Documents()
	next, ok := s.chooser.Choose(docs.List(), req.Document)
	if !ok || next == nil || next == req.Document {
		return false
	}
	s.next = next
	return true
}

func (s *selectModel) DoWork(_ context.Context, req action.Request) error {
	_, err := req.Env().Documents().Select(s.next.ID)
	return err
}

func (s *selectModel) DoAfter(req action.Request, err error) event.Group {
	if err != nil {
		req.Status(fmt.Sprintf("select %s: %v", s.next.Name, err))
		return event.Of(event.ActionComplete)
	}
	return event.Of(event.ModelSelect)
}

func (s *selectModel) Target(action.Request) *document.Document {
	return s.next
}

// closeModel closes the selected document.
type closeModel struct{}

// NewClose creates model.close. Closing clears the document's undo history.
func NewClose() *action.Action {
	return action.New(CloseName, closeModel{}, action.WithDisplayName("Close model"))
}

func (closeModel) Bind(a *action.Action) {
	a.AddRefreshEvent(event.Of(event.ModelLoad, event.ModelSelect, event.ModelClose))
}

func (closeModel) IsAllowed(req action.Request) bool {
	return req.Document != nil
}

func (closeModel) DoWork(_ context.Context, req action.Request) error {
	return req.Env().Documents().Close(req.Document.ID)
}

func (closeModel) DoAfter(req action.Request, err error) event.Group {
	if err != nil {
		req.Status(fmt.Sprintf("close %s: %v", req.Document.Name, err))
		return event.Of(event.ActionComplete)
	}
	g := event.Of(event.ModelClose, event.UndoChange)
	if req.Env().Documents().Selected() != nil {
		g = g.With(event.ModelSelect)
	}
	return g
}

// restore steps through the undo history of the selected document.
type restore struct {
	redo   bool
	result event.Group
}

// NewUndo creates model.undo.
func NewUndo() *action.Action {
	return action.New(UndoName, &restore{}, action.WithDisplayName("Undo"))
}

// NewRedo creates model.redo.
func NewRedo() *action.Action {
	return action.New(RedoName, &restore{redo: true}, action.WithDisplayName("Redo"))
}

func (r *restore) Bind(a *action.Action) {
	a.AddRefreshEvent(event.AnyChange)
}

func historyID(doc *document.Document) string {
	if doc == nil {
		return history.NoDocument
	}
	return doc.ID
}

func (r *restore) IsAllowed(req action.Request) bool {
	if req.Env() == nil {
		return false
	}
	h := req.Env().History()
	if r.redo {
		return h.CanRedo(historyID(req.Document))
	}
	return h.CanUndo(historyID(req.Document))
}

func (r *restore) DoWork(_ context.Context, req action.Request) error {
	h := req.Env().History()
	id := historyID(req.Document)

	var err error
	if r.redo {
		r.result, err = h.Redo(id)
	} else {
		r.result, err = h.Undo(id)
	}
	return err
}

func (r *restore) DoAfter(req action.Request, err error) event.Group {
	if err != nil {
		req.Status(fmt.Sprintf("%s failed: %v", req.Action.DisplayName(), err))
		return event.Of(event.ActionComplete)
	}
	return r.result.With(event.UndoChange)
}
