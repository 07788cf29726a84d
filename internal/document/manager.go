package document

import (
	"errors"
	"sync"
)

// Manager errors.
var (
	// ErrNotFound indicates a document id is not open.
	ErrNotFound = errors.New("document: not found")

	// ErrAlreadyOpen indicates a document with the same id is already open.
	ErrAlreadyOpen = errors.New("document: already open")
)

// CloseHook is called after a document is removed from the manager.
type CloseHook func(doc *Document)

// Manager tracks open documents and the current selection.
type Manager struct {
	mu        sync.RWMutex
	documents map[string]*Document
	order     []string // open order
	selected  *Document
	hooks     []CloseHook
}

// NewManager creates an empty document manager.
func NewManager() *Manager {
	return &Manager{
		documents: make(map[string]*Document),
	}
}

// Add opens doc and selects it.
func (m *Manager) Add(doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.documents[doc.ID]; exists {
		return ErrAlreadyOpen
	}
	m.documents[doc.ID] = doc
	m.order = append(m.order, doc.ID)
	m.selected = doc
	return nil
}

// Get returns the document with the given id.
func (m *Manager) Get(id string) (*Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[id]
	return doc, ok
}

// Select makes the document with the given id the selection.
func (m *Manager) Select(id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	m.selected = doc
	return doc, nil
}

// Selected returns the selected document or nil.
func (m *Manager) Selected() *Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selected
}

// List returns open documents in open order.
func (m *Manager) List() []*Document {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Document, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.documents[id])
	}
	return out
}

// Count returns the number of open documents.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.documents)
}

// OnClose registers a hook run after every Close.
func (m *Manager) OnClose(h CloseHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, h)
}

// Close removes the document and runs the close hooks. If it was selected the
// most recently opened remaining document becomes the selection.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	doc, exists := m.documents[id]
	if !exists {
		m.mu.Unlock()
		return ErrNotFound
	}

	delete(m.documents, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}

	if m.selected == doc {
		m.selected = nil
		if n := len(m.order); n > 0 {
			m.selected = m.documents[m.order[n-1]]
		}
	}

	hooks := make([]CloseHook, len(m.hooks))
	copy(hooks, m.hooks)
	m.mu.Unlock()

	for _, h := range hooks {
		h(doc)
	}
	return nil
}
