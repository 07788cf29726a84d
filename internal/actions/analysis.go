package actions

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/facekit/internal/action"
	"github.com/dshills/facekit/internal/document"
	"github.com/dshills/facekit/internal/event"
)

// Analysis action names.
const (
	DetectLandmarksName = "analysis.detect_landmarks"
	RemeshName          = "analysis.remesh"
	CurvatureName       = "analysis.curvature"
)

// meshCopy returns copies of doc's vertices and faces taken under the read
// lock, so collaborators can work on them off the coordinator.
func meshCopy(doc *document.Document) ([]document.Vec3, []document.Face) {
	doc.RLock()
	defer doc.RUnlock()
	return append([]document.Vec3(nil), doc.Geometry...),
		append([]document.Face(nil), doc.Connectivity.Faces...)
}

// detectLandmarks runs a Detector on a worker and stores the result.
type detectLandmarks struct {
	detector Detector

	mu    sync.Mutex
	found int
}

// NewDetectLandmarks creates analysis.detect_landmarks. It also runs by
// itself whenever a model without landmarks is loaded.
func NewDetectLandmarks(detector Detector) *action.Action {
	return action.New(DetectLandmarksName, &detectLandmarks{detector: detector},
		action.Async(), action.WithDisplayName("Detect landmarks"))
}

func (d *detectLandmarks) Bind(a *action.Action) {
	a.AddRefreshEvent(modelEvents.Union(event.MeshChange))
	a.AddTriggerEvent(event.Of(event.ModelLoad))
}

func (d *detectLandmarks) IsAllowed(req action.Request) bool {
	if d.detector == nil || req.Document == nil {
		return false
	}
	req.Document.RLock()
	defer req.Document.RUnlock()
	if !req.Document.HasMesh() {
		return false
	}
	return req.UserInstigated() || len(req.Document.Landmarks) == 0
}

func (d *detectLandmarks) DoWork(ctx context.Context, req action.Request) error {
	vertices, faces := meshCopy(req.Document)
	found, err := d.detector.Detect(ctx, vertices, faces)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := req.Document
	doc.Lock()
	if _, err := req.StoreUndoLocked(event.Of(event.LandmarksChange), true); err != nil {
		doc.Unlock()
		return err
	}
	for name, p := range found {
		doc.Landmarks[name] = p
	}
	doc.Touch()
	doc.Unlock()

	d.mu.Lock()
	d.found = len(found)
	d.mu.Unlock()
	return nil
}

func (d *detectLandmarks) DoAfter(req action.Request, err error) event.Group {
	if err != nil {
		req.Status(fmt.Sprintf("landmark detection failed: %v", err))
		return event.Of(event.ActionComplete)
	}
	d.mu.Lock()
	n := d.found
	d.mu.Unlock()
	req.Status(fmt.Sprintf("Detected %d landmarks", n))
	return event.Of(event.LandmarksChange)
}

// remesh rebuilds the surface on a worker.
type remesh struct {
	remesher Remesher
}

// NewRemesh creates analysis.remesh.
func NewRemesh(remesher Remesher) *action.Action {
	return action.New(RemeshName, &remesh{remesher: remesher},
		action.Async(), action.WithDisplayName("Remesh"))
}

func (r *remesh) Bind(a *action.Action) {
	a.AddRefreshEvent(modelEvents.Union(event.MeshChange))
}

func (r *remesh) IsAllowed(req action.Request) bool {
	return r.remesher != nil && hasMesh(req)
}

func (r *remesh) DoWork(ctx context.Context, req action.Request) error {
	vertices, faces := meshCopy(req.Document)
	vertices, faces, err := r.remesher.Remesh(ctx, vertices, faces)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := req.Document
	doc.Lock()
	defer doc.Unlock()
	if _, err := req.StoreUndoLocked(event.MeshChange, true); err != nil {
		return err
	}
	doc.Geometry = vertices
	doc.Connectivity = document.Connectivity{Faces: faces, Manifolds: make([]int, len(faces))}
	doc.RecomputeBounds()
	doc.Touch()
	return nil
}

func (r *remesh) DoAfter(req action.Request, err error) event.Group {
	if err != nil {
		req.Status(fmt.Sprintf("remesh failed: %v", err))
		return event.Of(event.ActionComplete)
	}
	return event.MeshChange
}

// Curvature estimates per-vertex curvature and caches the result per
// document until the mesh or transform changes.
type Curvature struct {
	mu    sync.Mutex
	cache map[string][]float64
}

// NewCurvature creates analysis.curvature and returns it with its cache.
func NewCurvature() (*action.Action, *Curvature) {
	c := &Curvature{cache: make(map[string][]float64)}
	return action.New(CurvatureName, c, action.WithDisplayName("Curvature")), c
}

// Bind registers the cache invalidation events.
func (c *Curvature) Bind(a *action.Action) {
	a.AddRefreshEvent(modelEvents.Union(event.MeshChange).With(event.AffineChange))
	a.AddPurgeEvent(event.MeshChange.With(event.AffineChange, event.ModelClose))
}

// IsAllowed requires a mesh.
func (c *Curvature) IsAllowed(req action.Request) bool { return hasMesh(req) }

// IsChecked reports whether curvature is cached for the selected document.
func (c *Curvature) IsChecked(req action.Request) bool {
	if req.Document == nil {
		return false
	}
	_, ok := c.Values(req.Document.ID)
	return ok
}

// DoWork computes and caches the curvature of the selected document.
func (c *Curvature) DoWork(_ context.Context, req action.Request) error {
	doc := req.Document
	doc.RLock()
	values := umbrella(doc.Geometry, doc.Connectivity.Faces, doc.Transform)
	doc.RUnlock()

	c.mu.Lock()
	c.cache[doc.ID] = values
	c.mu.Unlock()
	return nil
}

// Purge drops the cached values of doc.
func (c *Curvature) Purge(doc *document.Document, _ event.Group) {
	if doc == nil {
		return
	}
	c.mu.Lock()
	delete(c.cache, doc.ID)
	c.mu.Unlock()
}

// Values returns the cached curvature of the document id.
func (c *Curvature) Values(id string) ([]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.cache[id]
	return v, ok
}

// umbrella returns, per vertex, the distance between the transformed vertex
// and the centroid of its neighbours. Isolated vertices get 0.
func umbrella(vertices []document.Vec3, faces []document.Face, m document.Mat4) []float64 {
	world := make([]document.Vec3, len(vertices))
	for i, v := range vertices {
		world[i] = m.Apply(v)
	}

	neighbours := make([]map[int]struct{}, len(vertices))
	link := func(a, b int) {
		if neighbours[a] == nil {
			neighbours[a] = make(map[int]struct{})
		}
		neighbours[a][b] = struct{}{}
	}
	for _, f := range faces {
		for i := 0; i < 3; i++ {
			a, b := f[i], f[(i+1)%3]
			link(a, b)
			link(b, a)
		}
	}

	out := make([]float64, len(vertices))
	for i, ns := range neighbours {
		if len(ns) == 0 {
			continue
		}
		var sum document.Vec3
		for n := range ns {
			sum = sum.Add(world[n])
		}
		out[i] = sum.Scale(1 / float64(len(ns))).Sub(world[i]).Len()
	}
	return out
}
