// Package event defines the vocabulary of domain changes broadcast between
// actions.
//
// An Event is a single bit naming one kind of change to a face model or to the
// application (a model was loaded, its geometry changed, the camera moved, an
// action was cancelled). Events combine into a Group, an immutable bitset value
// that actions use for their purge, refresh and trigger masks and that the
// dispatcher broadcasts after every action completes.
//
// # Algebra
//
//	g := event.Of(event.GeometryChange, event.LandmarksChange)
//	g.Has(event.GeometryChange)      // true: the sets intersect
//	g.Is(event.GeometryChange)       // false: g is not exactly GeometryChange
//	event.Union(g, event.None) == g  // None is the identity for union
//
// Groups never mutate. Union, With and Without always return a new value.
//
// # Names
//
// Every event has a stable lower-case name ("geometry", "camera", ...) used in
// logs, status text and Lua scripts. Group.Name joins the names of the set
// flags with "|" and ParseGroup reverses it.
package event
