// Package document holds the face models actions operate on.
package document

import (
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Document is an open face model.
//
// Restorable fields are exported so snapshots can copy them. Any mutation
// must hold the write lock (Lock/Unlock); read-only inspection, such as an
// action deciding whether it is allowed, takes the read lock.
type Document struct {
	mu sync.RWMutex

	// ID uniquely identifies the document for the process lifetime.
	ID string

	// Path is the source file (empty for synthetic models).
	Path string

	// Name is the display name.
	Name string

	Geometry     []Vec3
	Connectivity Connectivity
	Bounds       Bounds
	Landmarks    map[string]Vec3
	Paths        map[string][]Vec3
	Transform    Mat4
	// Cameras holds camera parameters per view index.
	Cameras  map[int]Camera
	Metadata map[string]string

	modified atomic.Bool
	version  atomic.Int64
}

// New creates an empty document.
func New(path string) *Document {
	name := filepath.Base(path)
	if path == "" {
		name = "Untitled"
	}
	return &Document{
		ID:        uuid.NewString(),
		Path:      path,
		Name:      name,
		Landmarks: make(map[string]Vec3),
		Paths:     make(map[string][]Vec3),
		Transform: Identity(),
		Cameras:   make(map[int]Camera),
		Metadata:  make(map[string]string),
	}
}

// NewMesh creates a document from vertices and faces. Every face is placed on
// manifold 0 and bounds are computed.
func NewMesh(name string, vertices []Vec3, faces []Face) *Document {
	d := New("")
	d.Name = name
	d.Geometry = append([]Vec3(nil), vertices...)
	d.Connectivity = Connectivity{
		Faces:     append([]Face(nil), faces...),
		Manifolds: make([]int, len(faces)),
	}
	d.RecomputeBounds()
	return d
}

// Lock acquires the write lock.
func (d *Document) Lock() { d.mu.Lock() }

// Unlock releases the write lock.
func (d *Document) Unlock() { d.mu.Unlock() }

// RLock acquires the read lock.
func (d *Document) RLock() { d.mu.RLock() }

// RUnlock releases the read lock.
func (d *Document) RUnlock() { d.mu.RUnlock() }

// RecomputeBounds re-derives Bounds from Geometry and Transform.
// Caller holds the write lock.
func (d *Document) RecomputeBounds() {
	d.Bounds = BoundsOf(d.Geometry, d.Transform)
}

// IsModified reports whether the document changed since it was last saved.
func (d *Document) IsModified() bool {
	return d.modified.Load()
}

// SetModified sets the modified flag.
func (d *Document) SetModified(modified bool) {
	d.modified.Store(modified)
}

// Version returns the change counter.
func (d *Document) Version() int64 {
	return d.version.Load()
}

// Touch marks the document modified and bumps its version.
func (d *Document) Touch() int64 {
	d.modified.Store(true)
	return d.version.Add(1)
}

// HasMesh reports whether the document has any geometry.
// Caller holds at least the read lock.
func (d *Document) HasMesh() bool {
	return len(d.Geometry) > 0
}

// CloneLandmarks returns a copy of the landmark set.
func CloneLandmarks(m map[string]Vec3) map[string]Vec3 {
	out := make(map[string]Vec3, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ClonePaths returns a deep copy of the path set.
func ClonePaths(m map[string][]Vec3) map[string][]Vec3 {
	out := make(map[string][]Vec3, len(m))
	for k, v := range m {
		out[k] = append([]Vec3(nil), v...)
	}
	return out
}

// CloneCameras returns a copy of the per-view cameras.
func CloneCameras(m map[int]Camera) map[int]Camera {
	out := make(map[int]Camera, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CloneMetadata returns a copy of the metadata.
func CloneMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
