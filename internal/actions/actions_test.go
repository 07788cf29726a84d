package actions

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/facekit/internal/action"
	"github.com/dshills/facekit/internal/app"
	"github.com/dshills/facekit/internal/config"
	"github.com/dshills/facekit/internal/document"
	"github.com/dshills/facekit/internal/event"
)

// script answers prompts from a fixed list and cancels once it runs out.
type script struct {
	mu      sync.Mutex
	answers []string
	labels  []string
}

func answers(a ...string) *script { return &script{answers: a} }

func (s *script) Prompt(label, _ string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels = append(s.labels, label)
	if len(s.answers) == 0 {
		return "", false
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, true
}

func (s *script) push(a ...string) {
	s.mu.Lock()
	s.answers = append(s.answers, a...)
	s.mu.Unlock()
}

type loaderFunc func(ctx context.Context, path string) (*document.Document, error)

func (f loaderFunc) Load(ctx context.Context, path string) (*document.Document, error) {
	return f(ctx, path)
}

type detectorFunc func(ctx context.Context, v []document.Vec3, f []document.Face) (map[string]document.Vec3, error)

func (f detectorFunc) Detect(ctx context.Context, v []document.Vec3, faces []document.Face) (map[string]document.Vec3, error) {
	return f(ctx, v, faces)
}

type remesherFunc func(ctx context.Context, v []document.Vec3, f []document.Face) ([]document.Vec3, []document.Face, error)

func (f remesherFunc) Remesh(ctx context.Context, v []document.Vec3, faces []document.Face) ([]document.Vec3, []document.Face, error) {
	return f(ctx, v, faces)
}

func tetra(name string) *document.Document {
	return document.NewMesh(name,
		[]document.Vec3{{1, 1, 1}, {3, 1, 1}, {1, 3, 1}, {1, 1, 3}},
		[]document.Face{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}})
}

type harness struct {
	t   *testing.T
	eng *app.Engine
	set *Set

	mu     sync.Mutex
	status []string
	groups []event.Group
}

func newHarness(t *testing.T, c Collaborators) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Worker.TickInterval = 0

	eng, err := app.New(cfg, app.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	h := &harness{t: t, eng: eng, set: Builtin(c)}
	require.NoError(t, eng.Register(h.set.Actions...))
	eng.Finalise()

	eng.OnStatus(func(msg string) {
		h.mu.Lock()
		h.status = append(h.status, msg)
		h.mu.Unlock()
	})
	eng.OnDispatch(func(g event.Group, _ *document.Document) {
		h.mu.Lock()
		h.groups = append(h.groups, g)
		h.mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- eng.Run(ctx) }()
	require.Eventually(t, eng.IsRunning, time.Second, time.Millisecond)
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-errc)
	})
	return h
}

func (h *harness) open(doc *document.Document) {
	h.t.Helper()
	h.call(func() { require.NoError(h.t, h.eng.Open(doc)) })
}

func (h *harness) call(fn func()) {
	h.t.Helper()
	require.NoError(h.t, h.eng.Call(context.Background(), fn))
}

// exec runs the named action and waits for any background work it started.
func (h *harness) exec(name string) bool {
	h.t.Helper()
	started, err := h.eng.Execute(context.Background(), name)
	require.NoError(h.t, err)
	h.idle()
	return started
}

func (h *harness) idle() {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(h.t, h.eng.WaitIdle(ctx))
}

func (h *harness) action(name string) *action.Action {
	a, ok := h.eng.Dispatcher().Get(name)
	require.True(h.t, ok, name)
	return a
}

func (h *harness) raised() event.Group {
	h.mu.Lock()
	defer h.mu.Unlock()
	return event.Union(h.groups...)
}

func (h *harness) statuses() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return strings.Join(h.status, "\n")
}

func TestBuiltin_Catalogue(t *testing.T) {
	set := Builtin(Collaborators{})
	seen := make(map[string]bool)
	for _, a := range set.Actions {
		assert.False(t, seen[a.Name()], "duplicate %s", a.Name())
		seen[a.Name()] = true
	}
	assert.Len(t, set.Actions, 15)
	assert.True(t, seen[UndoName])
	assert.True(t, seen[RemeshName])
	assert.NotNil(t, set.Scene)
	assert.NotNil(t, set.Curvature)
}

func TestLoad_OpensAndDetectsLandmarks(t *testing.T) {
	prompts := answers("scans/s01.obj")
	h := newHarness(t, Collaborators{
		Prompter: prompts,
		Loader: loaderFunc(func(_ context.Context, path string) (*document.Document, error) {
			return tetra(path), nil
		}),
		Detector: detectorFunc(func(context.Context, []document.Vec3, []document.Face) (map[string]document.Vec3, error) {
			return map[string]document.Vec3{"pronasale": {1, 1, 3}}, nil
		}),
	})

	assert.True(t, h.exec(LoadName))
	h.idle()

	docs := h.eng.Documents()
	require.Equal(t, 1, docs.Count())
	doc := docs.Selected()
	assert.Equal(t, "scans/s01.obj", doc.Name)
	assert.Contains(t, doc.Landmarks, "pronasale")
	assert.Equal(t, "Detect landmarks", h.eng.History().UndoName(doc.ID))

	g := h.raised()
	assert.True(t, g.Has(event.ModelLoad))
	assert.True(t, g.Has(event.LandmarksChange))
	assert.Contains(t, h.statuses(), "Opened scans/s01.obj")
	assert.Contains(t, h.statuses(), "Detected 1 landmarks")
}

func TestLoad_CancelledPrompt(t *testing.T) {
	h := newHarness(t, Collaborators{
		Prompter: answers(),
		Loader: loaderFunc(func(context.Context, string) (*document.Document, error) {
			t.Error("loader called after cancel")
			return nil, nil
		}),
	})

	assert.False(t, h.exec(LoadName))
	assert.Equal(t, 0, h.eng.Documents().Count())
	assert.True(t, h.raised().Has(event.ActionCancelled))
	assert.False(t, h.action(LoadName).IsWorking())
}

func TestLoad_Failure(t *testing.T) {
	h := newHarness(t, Collaborators{
		Prompter: answers("missing.obj"),
		Loader: loaderFunc(func(context.Context, string) (*document.Document, error) {
			return nil, errors.New("no such file")
		}),
	})

	assert.True(t, h.exec(LoadName))
	assert.Equal(t, 0, h.eng.Documents().Count())
	assert.Contains(t, h.statuses(), "load missing.obj: no such file")
	assert.True(t, h.raised().Is(event.ActionComplete))
}

func TestTransform_UndoRedo(t *testing.T) {
	h := newHarness(t, Collaborators{})
	doc := tetra("face")
	h.open(doc)

	undo, redo := h.action(UndoName), h.action(RedoName)
	assert.False(t, undo.IsEnabled())

	assert.True(t, h.exec(TransformName))
	assert.Equal(t, document.Vec3{-1, -1, -1}, doc.Bounds.Min)
	assert.True(t, undo.IsEnabled())
	assert.False(t, redo.IsEnabled())
	assert.Equal(t, "Transform", h.eng.History().UndoName(doc.ID))

	assert.True(t, h.exec(UndoName))
	assert.Equal(t, document.Identity(), doc.Transform)
	assert.Equal(t, document.Vec3{1, 1, 1}, doc.Bounds.Min)
	assert.False(t, undo.IsEnabled())
	assert.True(t, redo.IsEnabled())

	assert.True(t, h.exec(RedoName))
	assert.Equal(t, document.Vec3{-1, -1, -1}, doc.Bounds.Min)
	assert.True(t, undo.IsEnabled())
	assert.False(t, redo.IsEnabled())

	g := h.raised()
	assert.True(t, g.Has(event.AffineChange))
	assert.True(t, g.Has(event.UndoChange))
}

func TestSetMetadata(t *testing.T) {
	prompts := answers("s02")
	h := newHarness(t, Collaborators{Prompter: prompts, MetadataKey: "subject"})
	doc := tetra("face")
	doc.Metadata["subject"] = "s01"
	h.open(doc)

	assert.True(t, h.exec(MetadataName))
	assert.Equal(t, "s02", doc.Metadata["subject"])
	assert.Equal(t, 1, h.eng.History().UndoCount(doc.ID))

	prompts.push(" s02 ")
	assert.True(t, h.exec(MetadataName))
	assert.Equal(t, 1, h.eng.History().UndoCount(doc.ID), "unchanged value must not leave an undo state")

	assert.True(t, h.exec(UndoName))
	assert.Equal(t, "s01", doc.Metadata["subject"])
}

func TestSetMetadata_NoChangeKeepsRedo(t *testing.T) {
	prompts := answers("s02")
	h := newHarness(t, Collaborators{Prompter: prompts, MetadataKey: "subject"})
	doc := tetra("face")
	doc.Metadata["subject"] = "s01"
	h.open(doc)

	assert.True(t, h.exec(MetadataName))
	assert.True(t, h.exec(UndoName))
	assert.Equal(t, 1, h.eng.History().RedoCount(doc.ID))

	prompts.push("s01")
	assert.True(t, h.exec(MetadataName))
	assert.Equal(t, 0, h.eng.History().UndoCount(doc.ID))
	assert.Equal(t, 1, h.eng.History().RedoCount(doc.ID), "unchanged value must not clear redo")

	assert.True(t, h.exec(RedoName))
	assert.Equal(t, "s02", doc.Metadata["subject"])
}

func TestRenameLandmark_CustomUndo(t *testing.T) {
	prompts := answers("nose", "pronasale")
	h := newHarness(t, Collaborators{Prompter: prompts})
	doc := tetra("face")
	doc.Landmarks["nose"] = document.Vec3{1, 1, 3}
	doc.Landmarks["chin"] = document.Vec3{1, 0, 1}
	h.open(doc)

	assert.True(t, h.exec(RenameLandmarkName))
	assert.Contains(t, doc.Landmarks, "pronasale")
	assert.NotContains(t, doc.Landmarks, "nose")
	assert.Equal(t, "Rename nose to pronasale", h.eng.History().UndoName(doc.ID))

	assert.True(t, h.exec(UndoName))
	assert.Equal(t, document.Vec3{1, 1, 3}, doc.Landmarks["nose"])
	assert.NotContains(t, doc.Landmarks, "pronasale")
	assert.Equal(t, "Rename nose to pronasale", h.eng.History().RedoName(doc.ID))

	assert.True(t, h.exec(RedoName))
	assert.Contains(t, doc.Landmarks, "pronasale")
	assert.Contains(t, doc.Landmarks, "chin")
}

func TestRenameLandmark_Unknown(t *testing.T) {
	h := newHarness(t, Collaborators{Prompter: answers("tragion", "tr")})
	doc := tetra("face")
	doc.Landmarks["nose"] = document.Vec3{}
	h.open(doc)

	assert.True(t, h.exec(RenameLandmarkName))
	assert.False(t, h.eng.History().CanUndo(doc.ID))
	assert.Contains(t, h.statuses(), "unknown landmark: tragion")
}

func TestSelect_CyclesDocumentsWithSeparateHistory(t *testing.T) {
	h := newHarness(t, Collaborators{})
	a, b := tetra("a"), tetra("b")
	h.open(a)
	assert.False(t, h.action(SelectName).IsEnabled())
	h.open(b)
	assert.True(t, h.action(SelectName).IsEnabled())

	assert.True(t, h.exec(TransformName))
	assert.True(t, h.eng.History().CanUndo(b.ID))

	assert.True(t, h.exec(SelectName))
	assert.Equal(t, a, h.eng.Documents().Selected())
	assert.False(t, h.action(UndoName).IsEnabled(), "a has no history")

	assert.True(t, h.exec(SelectName))
	assert.Equal(t, b, h.eng.Documents().Selected())
	assert.True(t, h.action(UndoName).IsEnabled())
}

func TestClose_ClearsHistoryAndPurgesCaches(t *testing.T) {
	h := newHarness(t, Collaborators{})
	doc := tetra("face")
	h.open(doc)

	assert.True(t, h.exec(WireframeName))
	assert.True(t, h.set.Scene.Visible(doc.ID, "wireframe"))
	assert.True(t, h.action(WireframeName).IsChecked())

	assert.True(t, h.exec(CurvatureName))
	_, ok := h.set.Curvature.Values(doc.ID)
	assert.True(t, ok)

	assert.True(t, h.exec(TransformName))
	assert.True(t, h.exec(CurvatureName))
	require.True(t, h.eng.History().CanUndo(doc.ID))

	assert.True(t, h.exec(CloseName))
	assert.Equal(t, 0, h.eng.Documents().Count())
	assert.False(t, h.eng.History().CanUndo(doc.ID))
	assert.Empty(t, h.set.Scene.Overlays(doc.ID))
	_, ok = h.set.Curvature.Values(doc.ID)
	assert.False(t, ok)

	assert.False(t, h.action(CloseName).IsEnabled())
	assert.False(t, h.action(UndoName).IsEnabled())
	assert.False(t, h.action(WireframeName).IsChecked())
}

func TestCurvature_PurgedByTransform(t *testing.T) {
	h := newHarness(t, Collaborators{})
	doc := tetra("face")
	h.open(doc)

	assert.True(t, h.exec(CurvatureName))
	values, ok := h.set.Curvature.Values(doc.ID)
	require.True(t, ok)
	require.Len(t, values, 4)
	assert.Greater(t, values[0], 0.0)
	assert.True(t, h.action(CurvatureName).IsChecked())

	assert.True(t, h.exec(TransformName))
	_, ok = h.set.Curvature.Values(doc.ID)
	assert.False(t, ok)
	assert.False(t, h.action(CurvatureName).IsChecked())
}

func TestRemesh_UndoRestoresSurface(t *testing.T) {
	h := newHarness(t, Collaborators{
		Remesher: remesherFunc(func(_ context.Context, v []document.Vec3, f []document.Face) ([]document.Vec3, []document.Face, error) {
			return v[:3], f[:1], nil
		}),
	})
	doc := tetra("face")
	doc.Landmarks["nose"] = document.Vec3{1, 1, 3}
	h.open(doc)

	assert.True(t, h.exec(RemeshName))
	assert.Len(t, doc.Geometry, 3)
	assert.Len(t, doc.Connectivity.Faces, 1)
	assert.Equal(t, document.Vec3{3, 3, 1}, doc.Bounds.Max)

	assert.True(t, h.exec(UndoName))
	assert.Len(t, doc.Geometry, 4)
	assert.Len(t, doc.Connectivity.Faces, 4)
	assert.Equal(t, document.Vec3{3, 3, 3}, doc.Bounds.Max)
	assert.Contains(t, doc.Landmarks, "nose")
}

func TestRemesh_EndNow(t *testing.T) {
	entered := make(chan struct{})
	h := newHarness(t, Collaborators{
		Remesher: remesherFunc(func(ctx context.Context, v []document.Vec3, f []document.Face) ([]document.Vec3, []document.Face, error) {
			close(entered)
			<-ctx.Done()
			return nil, nil, ctx.Err()
		}),
	})
	doc := tetra("face")
	h.open(doc)

	started, err := h.eng.Execute(context.Background(), RemeshName)
	require.NoError(t, err)
	require.True(t, started)
	<-entered

	remesh := h.action(RemeshName)
	assert.True(t, remesh.IsWorking())
	assert.False(t, remesh.IsEnabled())
	assert.True(t, h.eng.Busy())

	remesh.EndNow()
	h.idle()

	assert.False(t, remesh.IsWorking())
	assert.True(t, remesh.IsEnabled())
	assert.False(t, h.eng.History().CanUndo(doc.ID))
	assert.Len(t, doc.Geometry, 4)
	assert.Contains(t, h.statuses(), "remesh failed")
}

func TestDetectLandmarks_SkipsModelsWithLandmarks(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	h := newHarness(t, Collaborators{
		Detector: detectorFunc(func(context.Context, []document.Vec3, []document.Face) (map[string]document.Vec3, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			return map[string]document.Vec3{"nose": {}}, nil
		}),
	})

	marked := tetra("marked")
	marked.Landmarks["nose"] = document.Vec3{1, 1, 3}
	h.open(marked)
	h.idle()

	mu.Lock()
	assert.Equal(t, 0, calls)
	mu.Unlock()

	assert.True(t, h.exec(DetectLandmarksName), "user requests are always allowed")
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}

func TestResetCamera(t *testing.T) {
	h := newHarness(t, Collaborators{})
	doc := tetra("face")
	h.open(doc)

	assert.True(t, h.exec(ResetCameraName))
	cam := doc.Cameras[0]
	assert.Equal(t, document.Vec3{2, 2, 2}, cam.Focus)
	assert.Equal(t, DefaultFOV, cam.FOV)
	assert.Equal(t, 1, h.eng.History().UndoCount(doc.ID))

	assert.True(t, h.exec(ResetCameraName))
	assert.Equal(t, 1, h.eng.History().UndoCount(doc.ID), "no-op reset stores nothing")

	assert.True(t, h.exec(UndoName))
	assert.NotContains(t, doc.Cameras, 0)
}

func TestNextDocument(t *testing.T) {
	a, b, c := tetra("a"), tetra("b"), tetra("c")
	docs := []*document.Document{a, b, c}

	next, ok := NextDocument.Choose(docs, b)
	assert.True(t, ok)
	assert.Equal(t, c, next)

	next, _ = NextDocument.Choose(docs, c)
	assert.Equal(t, a, next)

	_, ok = NextDocument.Choose(nil, nil)
	assert.False(t, ok)
}

func TestUmbrella(t *testing.T) {
	flat := umbrella(
		[]document.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {5, 5, 5}},
		[]document.Face{{0, 1, 2}},
		document.Identity())

	require.Len(t, flat, 4)
	assert.InDelta(t, 0.7071, flat[0], 1e-3)
	assert.Equal(t, 0.0, flat[3])

	scaled := umbrella(
		[]document.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		[]document.Face{{0, 1, 2}},
		document.Scaling(2))
	assert.InDelta(t, 2*flat[0], scaled[0], 1e-9)
}
