package history

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dshills/facekit/internal/document"
	"github.com/dshills/facekit/internal/engine/snapshot"
	"github.com/dshills/facekit/internal/event"
	"github.com/dshills/facekit/internal/metrics"
)

// DefaultMaxRestores is the default per-document stack capacity.
const DefaultMaxRestores = 10

// NoDocument is the bucket for states not tied to a document.
const NoDocument = ""

// Common errors for history operations.
var (
	ErrNothingToUndo = errors.New("history: nothing to undo")
	ErrNothingToRedo = errors.New("history: nothing to redo")

	// ErrSaveNotImplemented indicates a custom (non-auto) store by an owner
	// without SaveState.
	ErrSaveNotImplemented = errors.New("history: owner does not implement SaveState")

	// ErrRestoreNotImplemented indicates a custom state whose owner has no
	// RestoreState.
	ErrRestoreNotImplemented = errors.New("history: owner does not implement RestoreState")
)

// stacks is the undo/redo history of one document.
type stacks struct {
	undo []*State
	redo []*State
}

// Manager holds bounded undo/redo stacks per document.
type Manager struct {
	mu     sync.Mutex
	docs   map[string]*stacks
	max    int
	strict bool

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxRestores sets the per-document capacity of each stack.
func WithMaxRestores(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.max = n
		}
	}
}

// WithStrict makes programming errors (custom restore without RestoreState,
// custom store without SaveState) panic instead of returning an error.
func WithStrict(strict bool) Option {
	return func(m *Manager) {
		m.strict = strict
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// NewManager creates an undo manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		docs:   make(map[string]*stacks),
		max:    DefaultMaxRestores,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MaxRestores returns the per-document stack capacity.
func (m *Manager) MaxRestores() int {
	return m.max
}

func key(docs []*document.Document) string {
	if len(docs) == 0 || docs[0] == nil {
		return NoDocument
	}
	return docs[0].ID
}

// stacksLocked returns the stacks for id, creating them on demand.
func (m *Manager) stacksLocked(id string) *stacks {
	s := m.docs[id]
	if s == nil {
		s = &stacks{}
		m.docs[id] = s
	}
	return s
}

// lockDocs write-locks docs in order and returns the matching unlock.
func lockDocs(docs []*document.Document) func() {
	for _, d := range docs {
		if d != nil {
			d.Lock()
		}
	}
	return func() {
		for i := len(docs) - 1; i >= 0; i-- {
			if docs[i] != nil {
				docs[i].Unlock()
			}
		}
	}
}

// Store records the pre-mutation state of docs for owner and pushes it on the
// primary document's undo stack, clearing its redo stack. With autoRestore a
// snapshot of the fields implied by g is captured per document; otherwise
// owner must implement Saver and fills the state itself.
//
// Store write-locks docs while it runs. A caller that mutates the documents
// afterwards should hold the lock across both and use StoreLocked.
func (m *Manager) Store(owner Owner, g event.Group, autoRestore bool, docs ...*document.Document) (*State, error) {
	unlock := lockDocs(docs)
	defer unlock()
	return m.StoreLocked(owner, g, autoRestore, docs...)
}

// StoreLocked is Store for callers holding the write lock on every document
// in docs. Undo and Redo of those documents wait for the lock, so the state
// and the mutation that follows it are never separated.
func (m *Manager) StoreLocked(owner Owner, g event.Group, autoRestore bool, docs ...*document.Document) (*State, error) {
	st := newState(owner, g, autoRestore, docs)
	if dn, ok := owner.(interface{ DisplayName() string }); ok {
		st.name = dn.DisplayName()
	}

	if autoRestore {
		for _, d := range docs {
			st.snapshots = append(st.snapshots, snapshot.CaptureLocked(d, g))
		}
	} else {
		saver, ok := owner.(Saver)
		if !ok {
			return nil, m.programmingError(fmt.Errorf("%w: %s", ErrSaveNotImplemented, owner.Name()))
		}
		saver.SaveState(st)
	}

	m.mu.Lock()
	s := m.stacksLocked(key(docs))
	s.undo = m.bounded(append(s.undo, st))
	s.redo = nil
	depth := len(s.undo)
	m.mu.Unlock()

	m.metrics.RecordUndo("store")
	m.logger.Debug().
		Str("owner", owner.Name()).
		Str("events", g.Name()).
		Bool("auto", autoRestore).
		Int("depth", depth).
		Msg("undo stored")
	return st, nil
}

// bounded drops the oldest entries beyond capacity.
func (m *Manager) bounded(stack []*State) []*State {
	if excess := len(stack) - m.max; excess > 0 {
		for i := 0; i < excess; i++ {
			stack[i] = nil
		}
		stack = stack[excess:]
	}
	return stack
}

// ScrapLast discards the most recent undo state of a document without
// restoring it. It reports whether anything was discarded.
func (m *Manager) ScrapLast(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.docs[id]
	if s == nil || len(s.undo) == 0 {
		return false
	}
	s.undo[len(s.undo)-1] = nil
	s.undo = s.undo[:len(s.undo)-1]
	m.metrics.RecordUndo("scrap")
	return true
}

// Undo restores the most recent undo state of a document, moves a state
// capturing the current content onto the redo stack, and returns the event
// group to raise.
func (m *Manager) Undo(id string) (event.Group, error) {
	return m.restore(id, true)
}

// Redo re-applies the most recently undone state of a document.
func (m *Manager) Redo(id string) (event.Group, error) {
	return m.restore(id, false)
}

func (m *Manager) restore(id string, undo bool) (event.Group, error) {
	op, empty := "redo", ErrNothingToRedo
	if undo {
		op, empty = "undo", ErrNothingToUndo
	}

	// The documents of the top state are locked before it is popped, so a
	// Store racing with us either lands first and is the state restored, or
	// waits until the restore is complete.
	var (
		st     *State
		unlock func()
	)
	for {
		m.mu.Lock()
		top := m.topLocked(id, undo)
		m.mu.Unlock()
		if top == nil {
			return event.None, empty
		}

		unlock = lockDocs(top.docs)
		m.mu.Lock()
		if m.topLocked(id, undo) == top {
			m.popLocked(id, undo)
			m.mu.Unlock()
			st = top
			break
		}
		m.mu.Unlock()
		unlock()
	}
	defer unlock()

	counter, err := m.apply(st)
	if err != nil {
		m.mu.Lock()
		s := m.stacksLocked(id)
		if undo {
			s.undo = append(s.undo, st)
		} else {
			s.redo = append(s.redo, st)
		}
		m.mu.Unlock()
		return event.None, err
	}

	m.mu.Lock()
	s := m.stacksLocked(id)
	if undo {
		s.redo = m.bounded(append(s.redo, counter))
	} else {
		s.undo = m.bounded(append(s.undo, counter))
	}
	m.mu.Unlock()

	m.metrics.RecordUndo(op)
	m.logger.Debug().Str("op", op).Str("name", st.name).Str("events", st.group.Name()).Msg("state restored")
	return st.group, nil
}

// topLocked returns the state Undo (or Redo) would restore next.
func (m *Manager) topLocked(id string, undo bool) *State {
	s := m.docs[id]
	if s == nil {
		return nil
	}
	src := s.redo
	if undo {
		src = s.undo
	}
	if len(src) == 0 {
		return nil
	}
	return src[len(src)-1]
}

func (m *Manager) popLocked(id string, undo bool) {
	s := m.docs[id]
	src := &s.redo
	if undo {
		src = &s.undo
	}
	(*src)[len(*src)-1] = nil
	*src = (*src)[:len(*src)-1]
}

// apply restores st, whose documents the caller has write-locked, and returns
// a state holding the content that was replaced, for the opposite stack.
func (m *Manager) apply(st *State) (*State, error) {
	var restorer Restorer
	if !st.auto {
		r, ok := st.owner.(Restorer)
		if !ok {
			return nil, m.programmingError(fmt.Errorf("%w: %s", ErrRestoreNotImplemented, st.owner.Name()))
		}
		restorer = r
	}

	counter := newState(st.owner, st.group, st.auto, st.docs)
	counter.name = st.name

	if st.auto {
		for _, d := range st.docs {
			counter.snapshots = append(counter.snapshots, snapshot.CaptureLocked(d, st.group))
		}
		for i, snap := range st.snapshots {
			snap.Restore(st.docs[i])
		}
	} else {
		if saver, ok := st.owner.(Saver); ok {
			saver.SaveState(counter)
		}
		if err := restorer.RestoreState(st); err != nil {
			return nil, fmt.Errorf("history: restore %s: %w", st.name, err)
		}
	}

	for _, d := range st.docs {
		d.Touch()
	}
	return counter, nil
}

// programmingError panics in strict mode and otherwise logs and returns err.
func (m *Manager) programmingError(err error) error {
	if m.strict {
		panic(err)
	}
	m.logger.Error().Err(err).Msg("undo misuse")
	return err
}

// CanUndo reports whether the document has undo history.
func (m *Manager) CanUndo(id string) bool {
	return m.UndoCount(id) > 0
}

// CanRedo reports whether the document has redo history.
func (m *Manager) CanRedo(id string) bool {
	return m.RedoCount(id) > 0
}

// UndoCount returns the number of undo states for a document.
func (m *Manager) UndoCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.docs[id]; s != nil {
		return len(s.undo)
	}
	return 0
}

// RedoCount returns the number of redo states for a document.
func (m *Manager) RedoCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.docs[id]; s != nil {
		return len(s.redo)
	}
	return 0
}

// UndoName returns the name of the next undo state, or "".
func (m *Manager) UndoName(id string) string {
	info, _ := m.PeekUndo(id)
	return info.Name
}

// RedoName returns the name of the next redo state, or "".
func (m *Manager) RedoName(id string) string {
	info, _ := m.PeekRedo(id)
	return info.Name
}

// PeekUndo describes the next undo state without removing it.
func (m *Manager) PeekUndo(id string) (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.docs[id]
	if s == nil || len(s.undo) == 0 {
		return Info{}, false
	}
	return s.undo[len(s.undo)-1].info(), true
}

// PeekRedo describes the next redo state without removing it.
func (m *Manager) PeekRedo(id string) (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.docs[id]
	if s == nil || len(s.redo) == 0 {
		return Info{}, false
	}
	return s.redo[len(s.redo)-1].info(), true
}

// UndoInfo lists a document's undo states, oldest first.
func (m *Manager) UndoInfo(id string) []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.docs[id]
	if s == nil {
		return nil
	}
	out := make([]Info, len(s.undo))
	for i, st := range s.undo {
		out[i] = st.info()
	}
	return out
}

// Clear drops both stacks of a document. Called when the document closes.
func (m *Manager) Clear(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	m.metrics.RecordUndo("clear")
}

// ClearAll drops every document's history.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[string]*stacks)
	m.metrics.RecordUndo("clear")
}
