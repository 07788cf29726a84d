package actions

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/dshills/facekit/internal/action"
	"github.com/dshills/facekit/internal/document"
	"github.com/dshills/facekit/internal/event"
)

// View action names.
const (
	ResetCameraName = "view.reset_camera"
	WireframeName   = "view.wireframe"
	LandmarksName   = "view.landmarks"
	PathsName       = "view.paths"
)

// DefaultFOV is the vertical field of view of a reset camera, in degrees.
const DefaultFOV = 30.0

// FitCamera returns a camera looking down -Z at the centre of b from far
// enough away to see all of it.
func FitCamera(b document.Bounds) document.Camera {
	center := b.Center()
	dist := b.Diagonal() / (2 * math.Tan(DefaultFOV*math.Pi/360))
	if dist == 0 {
		dist = 1
	}
	return document.Camera{
		Position: center.Add(document.Vec3{0, 0, dist}),
		Focus:    center,
		ViewUp:   document.Vec3{0, 1, 0},
		FOV:      DefaultFOV,
	}
}

// resetCamera frames the model in one view.
type resetCamera struct {
	view    int
	changed bool
}

// NewResetCamera creates view.reset_camera for view index view.
func NewResetCamera(view int) *action.Action {
	return action.New(ResetCameraName, &resetCamera{view: view}, action.WithDisplayName("Reset camera"))
}

func (r *resetCamera) Bind(a *action.Action) {
	a.AddRefreshEvent(modelEvents.Union(event.MeshChange))
}

func (r *resetCamera) IsAllowed(req action.Request) bool { return hasMesh(req) }

func (r *resetCamera) DoWork(_ context.Context, req action.Request) error {
	doc := req.Document
	doc.Lock()
	defer doc.Unlock()
	cam := FitCamera(doc.Bounds)
	current, ok := doc.Cameras[r.view]
	r.changed = !ok || current != cam
	if !r.changed {
		return nil
	}

	if _, err := req.StoreUndoLocked(event.Of(event.CameraChange), true); err != nil {
		return err
	}
	doc.Cameras[r.view] = cam
	doc.Touch()
	return nil
}

func (r *resetCamera) DoAfter(req action.Request, err error) event.Group {
	if err != nil {
		req.Status(fmt.Sprintf("reset camera failed: %v", err))
		return event.Of(event.ActionComplete)
	}
	if !r.changed {
		return event.Of(event.ActionComplete)
	}
	return event.Of(event.CameraChange)
}

// Scene records which overlays are shown for each document.
type Scene struct {
	mu      sync.Mutex
	visible map[string]map[string]bool
}

// NewScene creates an empty scene.
func NewScene() *Scene {
	return &Scene{visible: make(map[string]map[string]bool)}
}

// Visible reports whether overlay is shown for the document id.
func (s *Scene) Visible(id, overlay string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible[id][overlay]
}

// Overlays returns the overlays shown for the document id, sorted.
func (s *Scene) Overlays(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for name, on := range s.visible[id] {
		if on {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Scene) set(id, overlay string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.visible[id]
	if m == nil {
		m = make(map[string]bool)
		s.visible[id] = m
	}
	m[overlay] = on
}

func (s *Scene) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.visible, id)
}

// overlay is a Visualisation backed by a Scene.
type overlay struct {
	scene     *Scene
	name      string
	available func(doc *document.Document) bool
}

func (o *overlay) Available(doc *document.Document) bool { return o.available(doc) }

func (o *overlay) Apply(doc *document.Document, on bool) error {
	o.scene.set(doc.ID, o.name, on)
	return nil
}

func (o *overlay) Purge(doc *document.Document, _ event.Group) {
	o.scene.forget(doc.ID)
}

// Toggles returns the overlay toggle actions for s: wireframe, landmarks and
// paths.
func (s *Scene) Toggles() []*action.Action {
	wireframe := action.NewToggle(WireframeName, &overlay{scene: s, name: "wireframe",
		available: func(d *document.Document) bool { return d.HasMesh() }},
		action.WithDisplayName("Wireframe"))
	wireframe.AddRefreshEvent(event.MeshChange)

	landmarks := action.NewToggle(LandmarksName, &overlay{scene: s, name: "landmarks",
		available: func(d *document.Document) bool { return len(d.Landmarks) > 0 }},
		action.WithDisplayName("Show landmarks"))
	landmarks.AddRefreshEvent(event.Of(event.LandmarksChange))

	paths := action.NewToggle(PathsName, &overlay{scene: s, name: "paths",
		available: func(d *document.Document) bool { return len(d.Paths) > 0 }},
		action.WithDisplayName("Show paths"))
	paths.AddRefreshEvent(event.Of(event.PathsChange))

	return []*action.Action{wireframe, landmarks, paths}
}
