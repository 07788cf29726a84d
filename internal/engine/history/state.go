package history

import (
	"sort"
	"time"

	"github.com/dshills/facekit/internal/document"
	"github.com/dshills/facekit/internal/engine/snapshot"
	"github.com/dshills/facekit/internal/event"
)

// Owner is the action that produced a State.
type Owner interface {
	Name() string
}

// Saver is implemented by owners that store custom undo data instead of
// relying on automatic snapshots. SaveState runs with the write lock held on
// every document in s.Documents().
type Saver interface {
	SaveState(s *State)
}

// Restorer is implemented by owners that apply custom undo data. RestoreState
// runs with the write lock held on every document in s.Documents().
type Restorer interface {
	RestoreState(s *State) error
}

// State is one entry of a document's undo or redo history.
type State struct {
	owner     Owner
	group     event.Group
	name      string
	auto      bool
	docs      []*document.Document
	snapshots []*snapshot.State
	data      map[string]any
	timestamp time.Time
}

func newState(owner Owner, g event.Group, auto bool, docs []*document.Document) *State {
	return &State{
		owner:     owner,
		group:     g,
		name:      owner.Name(),
		auto:      auto,
		docs:      docs,
		data:      make(map[string]any),
		timestamp: time.Now(),
	}
}

// Owner returns the action that produced the state.
func (s *State) Owner() Owner { return s.owner }

// Group returns the event group raised when the state is restored.
func (s *State) Group() event.Group { return s.group }

// Name returns the human-readable name shown in undo/redo menus.
func (s *State) Name() string { return s.name }

// SetName overrides the display name.
func (s *State) SetName(name string) { s.name = name }

// AutoRestore reports whether restoring overwrites documents from snapshots.
func (s *State) AutoRestore() bool { return s.auto }

// Documents returns the affected documents; the first is the primary.
func (s *State) Documents() []*document.Document { return s.docs }

// Document returns the primary document or nil for global states.
func (s *State) Document() *document.Document {
	if len(s.docs) == 0 {
		return nil
	}
	return s.docs[0]
}

// Snapshots returns the captured snapshots, one per document.
func (s *State) Snapshots() []*snapshot.State { return s.snapshots }

// Timestamp returns when the state was stored.
func (s *State) Timestamp() time.Time { return s.timestamp }

// Set stores a value in the side table.
func (s *State) Set(key string, value any) {
	s.data[key] = value
}

// Get returns a value from the side table.
func (s *State) Get(key string) (any, bool) {
	v, ok := s.data[key]
	return v, ok
}

// GetString returns a string value from the side table.
func (s *State) GetString(key string) string {
	if v, ok := s.data[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return ""
}

// Keys returns the side table keys in sorted order.
func (s *State) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Info describes a stored state for display.
type Info struct {
	Name      string
	Group     event.Group
	Timestamp time.Time
}

func (s *State) info() Info {
	return Info{Name: s.name, Group: s.group, Timestamp: s.timestamp}
}
