package event

import (
	"fmt"
	"math/bits"
	"strings"
)

// Event is a single domain-change flag.
type Event uint64

// Event vocabulary. Each value occupies exactly one bit.
const (
	// ModelLoad is raised when a face model has been loaded.
	ModelLoad Event = 1 << iota
	// ModelClose is raised when a face model has been closed.
	ModelClose
	// ModelSave is raised when a face model has been written out.
	ModelSave
	// ModelSelect is raised when the selected model changes.
	ModelSelect
	// GeometryChange is raised when vertex positions change.
	GeometryChange
	// ConnectivityChange is raised when the face/manifold structure changes.
	ConnectivityChange
	// AffineChange is raised when the model transform changes.
	AffineChange
	// LandmarksChange is raised when landmarks are added, moved or removed.
	LandmarksChange
	// PathsChange is raised when measurement paths change.
	PathsChange
	// MetadataChange is raised when textual metadata changes.
	MetadataChange
	// CameraChange is raised when a view's camera parameters change.
	CameraChange
	// ViewChange is raised when a visualisation is toggled.
	ViewChange
	// UndoChange is raised when undo/redo availability changes.
	UndoChange
	// ActionCancelled is reserved for actions whose DoBefore declined.
	ActionCancelled
	// ActionComplete is reported by actions that changed nothing else.
	ActionComplete

	lastEvent = ActionComplete
)

var eventNames = map[Event]string{
	ModelLoad:          "load",
	ModelClose:         "close",
	ModelSave:          "save",
	ModelSelect:        "select",
	GeometryChange:     "geometry",
	ConnectivityChange: "connectivity",
	AffineChange:       "affine",
	LandmarksChange:    "landmarks",
	PathsChange:        "paths",
	MetadataChange:     "metadata",
	CameraChange:       "camera",
	ViewChange:         "view",
	UndoChange:         "undo",
	ActionCancelled:    "cancelled",
	ActionComplete:     "complete",
}

// String returns the event's stable name.
func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	if bits.OnesCount64(uint64(e)) != 1 {
		return Group{bits: uint64(e)}.Name()
	}
	return fmt.Sprintf("event(%#x)", uint64(e))
}

// Valid reports whether e is exactly one known flag.
func (e Event) Valid() bool {
	_, ok := eventNames[e]
	return ok
}

// Parse returns the event with the given name. Matching ignores case.
func Parse(name string) (Event, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for e, n := range eventNames {
		if n == name {
			return e, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}

// All returns every event in bit order.
func All() []Event {
	out := make([]Event, 0, len(eventNames))
	for e := Event(1); e <= lastEvent; e <<= 1 {
		out = append(out, e)
	}
	return out
}
