package event

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEvent is returned when an event name is not in the vocabulary.
var ErrUnknownEvent = errors.New("event: unknown event")

// Group is an immutable union of events.
// The zero value is None.
type Group struct {
	bits uint64
}

// None is the empty group. It is the identity for Union and Has is always
// false on it.
var None = Group{}

// Predefined combinations.
var (
	// MeshChange covers any change to the surface itself.
	MeshChange = Of(GeometryChange, ConnectivityChange)

	// ModelData covers every change to restorable document content.
	ModelData = Of(GeometryChange, ConnectivityChange, AffineChange,
		LandmarksChange, PathsChange, MetadataChange, CameraChange)

	// ModelLifecycle covers loading, closing, saving and selection.
	ModelLifecycle = Of(ModelLoad, ModelClose, ModelSave, ModelSelect)

	// AnyChange is every event in the vocabulary.
	AnyChange = Of(All()...)
)

// Of returns the group containing the given events.
func Of(events ...Event) Group {
	var g Group
	for _, e := range events {
		g.bits |= uint64(e)
	}
	return g
}

// Union returns the union of the given groups.
func Union(groups ...Group) Group {
	var g Group
	for _, o := range groups {
		g.bits |= o.bits
	}
	return g
}

// Union returns the union of g and o.
func (g Group) Union(o Group) Group {
	return Group{bits: g.bits | o.bits}
}

// With returns g with the given events added.
func (g Group) With(events ...Event) Group {
	return g.Union(Of(events...))
}

// Without returns g with the given events removed.
func (g Group) Without(events ...Event) Group {
	return Group{bits: g.bits &^ Of(events...).bits}
}

// Has reports whether g and e share at least one flag.
func (g Group) Has(e Event) bool {
	return g.bits&uint64(e) != 0
}

// Intersects reports whether g and o share at least one flag.
func (g Group) Intersects(o Group) bool {
	return g.bits&o.bits != 0
}

// Intersection returns the flags common to g and o.
func (g Group) Intersection(o Group) Group {
	return Group{bits: g.bits & o.bits}
}

// Is reports whether g is exactly e.
func (g Group) Is(e Event) bool {
	return g.bits == uint64(e)
}

// Equals reports whether g and o contain the same flags.
func (g Group) Equals(o Group) bool {
	return g.bits == o.bits
}

// IsEmpty reports whether g is None.
func (g Group) IsEmpty() bool {
	return g.bits == 0
}

// Events returns the flags in g in bit order.
func (g Group) Events() []Event {
	var out []Event
	for b := g.bits; b != 0; b &= b - 1 {
		out = append(out, Event(b&-b))
	}
	return out
}

// Name joins the names of the flags in g with "|".
// The empty group is named "none".
func (g Group) Name() string {
	if g.bits == 0 {
		return "none"
	}
	events := g.Events()
	names := make([]string, len(events))
	for i, e := range events {
		if n, ok := eventNames[e]; ok {
			names[i] = n
		} else {
			names[i] = fmt.Sprintf("event(%#x)", uint64(e))
		}
	}
	return strings.Join(names, "|")
}

// String implements fmt.Stringer.
func (g Group) String() string {
	return g.Name()
}

// ParseGroup parses a "|"- or ","-separated list of event names.
// The empty string and "none" parse to None.
func ParseGroup(s string) (Group, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return None, nil
	}
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' })
	var g Group
	for _, f := range fields {
		e, err := Parse(f)
		if err != nil {
			return None, err
		}
		g.bits |= uint64(e)
	}
	return g, nil
}
