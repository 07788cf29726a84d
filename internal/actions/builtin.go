package actions

import "github.com/dshills/facekit/internal/action"

// Collaborators supplies the external services built-in actions use. Any of
// them may be nil; actions that need a missing one are never allowed.
type Collaborators struct {
	Loader    Loader
	Prompter  Prompter
	Chooser   Chooser
	Transform TransformSource
	Detector  Detector
	Remesher  Remesher

	// MetadataKey is the field edited by edit.metadata. Defaults to "subject".
	MetadataKey string
}

// Set is the built-in action catalogue.
type Set struct {
	Actions   []*action.Action
	Scene     *Scene
	Curvature *Curvature
}

// Builtin creates every built-in action in registration order. Actions that
// purge caches come before those that read them.
func Builtin(c Collaborators) *Set {
	key := c.MetadataKey
	if key == "" {
		key = "subject"
	}
	scene := NewScene()
	curvature, cache := NewCurvature()

	acts := []*action.Action{
		NewLoad(c.Loader, c.Prompter),
		NewSelect(c.Chooser),
		NewClose(),
		NewUndo(),
		NewRedo(),
		NewTransform(c.Transform),
		NewSetMetadata(key, c.Prompter),
		NewRenameLandmark(c.Prompter),
		NewResetCamera(0),
	}
	acts = append(acts, scene.Toggles()...)
	acts = append(acts,
		curvature,
		NewDetectLandmarks(c.Detector),
		NewRemesh(c.Remesher),
	)
	return &Set{Actions: acts, Scene: scene, Curvature: cache}
}
