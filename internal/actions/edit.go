package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/facekit/internal/action"
	"github.com/dshills/facekit/internal/document"
	"github.com/dshills/facekit/internal/engine/history"
	"github.com/dshills/facekit/internal/event"
)

// Edit action names.
const (
	TransformName      = "edit.transform"
	MetadataName       = "edit.metadata"
	RenameLandmarkName = "edit.rename_landmark"
)

// modelEvents are the events after which model-dependent actions refresh.
var modelEvents = event.Of(event.ModelLoad, event.ModelSelect, event.ModelClose)

// hasMesh reports whether req targets a document with geometry.
func hasMesh(req action.Request) bool {
	if req.Document == nil {
		return false
	}
	req.Document.RLock()
	defer req.Document.RUnlock()
	return req.Document.HasMesh()
}

// transform applies a rigid or scaling transform to the model.
type transform struct {
	source TransformSource
	m      document.Mat4
}

// NewTransform creates edit.transform. A nil source centres the model on the
// origin.
func NewTransform(source TransformSource) *action.Action {
	if source == nil {
		source = CenterAtOrigin
	}
	return action.New(TransformName, &transform{source: source}, action.WithDisplayName("Transform"))
}

func (t *transform) Bind(a *action.Action) {
	a.AddRefreshEvent(modelEvents.Union(event.MeshChange))
}

func (t *transform) IsAllowed(req action.Request) bool { return hasMesh(req) }

func (t *transform) DoBefore(req action.Request) bool {
	m, ok := t.source.Transform(req.Document)
	if !ok {
		return false
	}
	t.m = m
	return true
}

func (t *transform) DoWork(_ context.Context, req action.Request) error {
	doc := req.Document
	doc.Lock()
	defer doc.Unlock()
	if _, err := req.StoreUndoLocked(event.Of(event.AffineChange), true); err != nil {
		return err
	}
	doc.Transform = t.m.Mul(doc.Transform)
	doc.RecomputeBounds()
	doc.Touch()
	return nil
}

func (t *transform) DoAfter(req action.Request, err error) event.Group {
	if err != nil {
		req.Status(fmt.Sprintf("transform failed: %v", err))
		return event.Of(event.ActionComplete)
	}
	return event.Of(event.AffineChange)
}

// setMetadata edits one metadata field.
type setMetadata struct {
	key      string
	prompter Prompter

	value   string
	changed bool
}

// NewSetMetadata creates edit.metadata for the field key.
func NewSetMetadata(key string, prompter Prompter) *action.Action {
	return action.New(MetadataName, &setMetadata{key: key, prompter: prompter},
		action.WithDisplayName("Edit "+key))
}

func (s *setMetadata) Bind(a *action.Action) {
	a.AddRefreshEvent(modelEvents)
}

func (s *setMetadata) IsAllowed(req action.Request) bool {
	return req.Document != nil && s.prompter != nil
}

func (s *setMetadata) DoBefore(req action.Request) bool {
	req.Document.RLock()
	current := req.Document.Metadata[s.key]
	req.Document.RUnlock()

	value, ok := s.prompter.Prompt(s.key, current)
	if !ok {
		return false
	}
	s.value = strings.TrimSpace(value)
	return true
}

func (s *setMetadata) DoWork(_ context.Context, req action.Request) error {
	doc := req.Document
	doc.Lock()
	defer doc.Unlock()
	s.changed = doc.Metadata[s.key] != s.value
	if !s.changed {
		return nil
	}
	if _, err := req.StoreUndoLocked(event.Of(event.MetadataChange), true); err != nil {
		return err
	}
	doc.Metadata[s.key] = s.value
	doc.Touch()
	return nil
}

func (s *setMetadata) DoAfter(req action.Request, err error) event.Group {
	if err != nil {
		req.Status(fmt.Sprintf("edit %s failed: %v", s.key, err))
		return event.Of(event.ActionComplete)
	}
	if !s.changed {
		return event.Of(event.ActionComplete)
	}
	return event.Of(event.MetadataChange)
}

// landmarksKey holds the landmark set in custom undo states.
const landmarksKey = "landmarks"

// renameLandmark renames a landmark and restores renames itself rather than
// through snapshots.
type renameLandmark struct {
	prompter Prompter
	from, to string
}

// NewRenameLandmark creates edit.rename_landmark.
func NewRenameLandmark(prompter Prompter) *action.Action {
	return action.New(RenameLandmarkName, &renameLandmark{prompter: prompter},
		action.WithDisplayName("Rename landmark"))
}

func (r *renameLandmark) Bind(a *action.Action) {
	a.AddRefreshEvent(modelEvents.With(event.LandmarksChange))
}

func (r *renameLandmark) IsAllowed(req action.Request) bool {
	if req.Document == nil || r.prompter == nil {
		return false
	}
	req.Document.RLock()
	defer req.Document.RUnlock()
	return len(req.Document.Landmarks) > 0
}

func (r *renameLandmark) DoBefore(action.Request) bool {
	from, ok := r.prompter.Prompt("Landmark", "")
	if !ok || from == "" {
		return false
	}
	to, ok := r.prompter.Prompt("New name", from)
	if !ok || to == "" || to == from {
		return false
	}
	r.from, r.to = from, to
	return true
}

func (r *renameLandmark) DoWork(_ context.Context, req action.Request) error {
	doc := req.Document
	doc.Lock()
	defer doc.Unlock()
	_, hasFrom := doc.Landmarks[r.from]
	_, hasTo := doc.Landmarks[r.to]
	switch {
	case !hasFrom:
		return fmt.Errorf("%w: %s", ErrUnknownLandmark, r.from)
	case hasTo:
		return fmt.Errorf("%w: %s", ErrLandmarkExists, r.to)
	}

	st, err := req.StoreUndoLocked(event.Of(event.LandmarksChange), false)
	if err != nil {
		return err
	}
	st.SetName(fmt.Sprintf("Rename %s to %s", r.from, r.to))

	doc.Landmarks[r.to] = doc.Landmarks[r.from]
	delete(doc.Landmarks, r.from)
	doc.Touch()
	return nil
}

func (r *renameLandmark) DoAfter(req action.Request, err error) event.Group {
	if err != nil {
		req.Status(err.Error())
		return event.Of(event.ActionComplete)
	}
	return event.Of(event.LandmarksChange)
}

// SaveState stores a copy of the landmark set. The document is write locked
// by the caller.
func (r *renameLandmark) SaveState(s *history.State) {
	s.Set(landmarksKey, document.CloneLandmarks(s.Document().Landmarks))
}

// RestoreState puts the stored landmark set back. The document is write
// locked by the caller.
func (r *renameLandmark) RestoreState(s *history.State) error {
	v, ok := s.Get(landmarksKey)
	if !ok {
		return fmt.Errorf("rename landmark: state has no %s", landmarksKey)
	}
	landmarks, ok := v.(map[string]document.Vec3)
	if !ok {
		return fmt.Errorf("rename landmark: unexpected %T", v)
	}
	s.Document().Landmarks = document.CloneLandmarks(landmarks)
	return nil
}
