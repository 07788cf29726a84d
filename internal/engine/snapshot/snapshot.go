// Package snapshot captures the restorable fields of a document.
//
// A State copies only what an event group says is about to change: a
// camera-only change copies the cameras and nothing else, a geometry change
// copies vertices and the derived bounds. Restore writes exactly those fields
// back and leaves every other field of the live document alone.
package snapshot

import (
	"strings"

	"github.com/dshills/facekit/internal/document"
	"github.com/dshills/facekit/internal/event"
)

// Field is a bitmask of restorable document fields.
type Field uint16

// Restorable fields.
const (
	FieldGeometry Field = 1 << iota
	FieldConnectivity
	FieldBounds
	FieldTransform
	FieldLandmarks
	FieldPaths
	FieldCameras
	FieldMetadata

	FieldNone Field = 0
	FieldAll        = FieldGeometry | FieldConnectivity | FieldBounds | FieldTransform |
		FieldLandmarks | FieldPaths | FieldCameras | FieldMetadata
)

var fieldNames = []struct {
	f    Field
	name string
}{
	{FieldGeometry, "geometry"},
	{FieldConnectivity, "connectivity"},
	{FieldBounds, "bounds"},
	{FieldTransform, "transform"},
	{FieldLandmarks, "landmarks"},
	{FieldPaths, "paths"},
	{FieldCameras, "cameras"},
	{FieldMetadata, "metadata"},
}

// Has reports whether f includes all of o.
func (f Field) Has(o Field) bool {
	return f&o == o
}

// String joins the field names with "|".
func (f Field) String() string {
	if f == FieldNone {
		return "none"
	}
	var parts []string
	for _, fn := range fieldNames {
		if f&fn.f != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// captureRules maps each event to the fields it invalidates.
var captureRules = []struct {
	e      event.Event
	fields Field
}{
	{event.GeometryChange, FieldGeometry | FieldBounds},
	{event.ConnectivityChange, FieldConnectivity | FieldBounds},
	{event.AffineChange, FieldTransform | FieldBounds},
	{event.LandmarksChange, FieldLandmarks},
	{event.PathsChange, FieldPaths},
	{event.MetadataChange, FieldMetadata},
	{event.CameraChange, FieldCameras},
}

// FieldsFor returns the fields a change described by g can affect.
func FieldsFor(g event.Group) Field {
	var f Field
	for _, r := range captureRules {
		if g.Has(r.e) {
			f |= r.fields
		}
	}
	return f
}

// State is an immutable, selectively populated copy of a document.
type State struct {
	docID  string
	group  event.Group
	fields Field

	geometry     []document.Vec3
	connectivity document.Connectivity
	bounds       document.Bounds
	transform    document.Mat4
	landmarks    map[string]document.Vec3
	paths        map[string][]document.Vec3
	cameras      map[int]document.Camera
	metadata     map[string]string
}

// Capture copies the fields of doc implied by g. It takes the read lock.
func Capture(doc *document.Document, g event.Group) *State {
	doc.RLock()
	defer doc.RUnlock()
	return CaptureLocked(doc, g)
}

// CaptureLocked is Capture for callers already holding a lock on doc.
func CaptureLocked(doc *document.Document, g event.Group) *State {
	s := &State{
		docID:  doc.ID,
		group:  g,
		fields: FieldsFor(g),
	}
	f := s.fields
	if f.Has(FieldGeometry) {
		s.geometry = append([]document.Vec3(nil), doc.Geometry...)
	}
	if f.Has(FieldConnectivity) {
		s.connectivity = doc.Connectivity.Clone()
	}
	if f.Has(FieldBounds) {
		s.bounds = doc.Bounds
	}
	if f.Has(FieldTransform) {
		s.transform = doc.Transform
	}
	if f.Has(FieldLandmarks) {
		s.landmarks = document.CloneLandmarks(doc.Landmarks)
	}
	if f.Has(FieldPaths) {
		s.paths = document.ClonePaths(doc.Paths)
	}
	if f.Has(FieldCameras) {
		s.cameras = document.CloneCameras(doc.Cameras)
	}
	if f.Has(FieldMetadata) {
		s.metadata = document.CloneMetadata(doc.Metadata)
	}
	return s
}

// Restore overwrites the populated fields of doc from s. The caller must hold
// doc's write lock. s is unchanged and may be restored again.
func (s *State) Restore(doc *document.Document) {
	f := s.fields
	if f.Has(FieldGeometry) {
		doc.Geometry = append([]document.Vec3(nil), s.geometry...)
	}
	if f.Has(FieldConnectivity) {
		doc.Connectivity = s.connectivity.Clone()
	}
	if f.Has(FieldBounds) {
		doc.Bounds = s.bounds
	}
	if f.Has(FieldTransform) {
		doc.Transform = s.transform
	}
	if f.Has(FieldLandmarks) {
		doc.Landmarks = document.CloneLandmarks(s.landmarks)
	}
	if f.Has(FieldPaths) {
		doc.Paths = document.ClonePaths(s.paths)
	}
	if f.Has(FieldCameras) {
		doc.Cameras = document.CloneCameras(s.cameras)
	}
	if f.Has(FieldMetadata) {
		doc.Metadata = document.CloneMetadata(s.metadata)
	}
}

// DocumentID returns the id of the captured document.
func (s *State) DocumentID() string { return s.docID }

// Group returns the event group the capture was made for.
func (s *State) Group() event.Group { return s.group }

// Fields returns the populated fields.
func (s *State) Fields() Field { return s.fields }

// Empty reports whether nothing was captured.
func (s *State) Empty() bool { return s.fields == FieldNone }
