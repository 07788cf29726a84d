package actions

import (
	"context"
	"errors"

	"github.com/dshills/facekit/internal/document"
)

// Errors reported by built-in actions.
var (
	ErrUnknownLandmark = errors.New("actions: unknown landmark")
	ErrLandmarkExists  = errors.New("actions: landmark already exists")
)

// Prompter asks the user for a value. ok is false when the user cancels.
type Prompter interface {
	Prompt(label, current string) (value string, ok bool)
}

// PromptFunc adapts a func to Prompter.
type PromptFunc func(label, current string) (string, bool)

// Prompt calls f.
func (f PromptFunc) Prompt(label, current string) (string, bool) { return f(label, current) }

// Loader reads a face model from storage.
type Loader interface {
	Load(ctx context.Context, path string) (*document.Document, error)
}

// Chooser picks the document to select. ok is false when the user cancels.
type Chooser interface {
	Choose(docs []*document.Document, current *document.Document) (*document.Document, bool)
}

// ChooserFunc adapts a func to Chooser.
type ChooserFunc func(docs []*document.Document, current *document.Document) (*document.Document, bool)

// Choose calls f.
func (f ChooserFunc) Choose(docs []*document.Document, current *document.Document) (*document.Document, bool) {
	return f(docs, current)
}

// NextDocument chooses the document opened after current, wrapping around.
var NextDocument = ChooserFunc(func(docs []*document.Document, current *document.Document) (*document.Document, bool) {
	if len(docs) == 0 {
		return nil, false
	}
	for i, d := range docs {
		if d == current {
			return docs[(i+1)%len(docs)], true
		}
	}
	return docs[0], true
})

// Detector locates anatomical landmarks on a mesh. It must return promptly
// once ctx is done.
type Detector interface {
	Detect(ctx context.Context, vertices []document.Vec3, faces []document.Face) (map[string]document.Vec3, error)
}

// Remesher rebuilds a mesh surface. It must return promptly once ctx is done.
type Remesher interface {
	Remesh(ctx context.Context, vertices []document.Vec3, faces []document.Face) ([]document.Vec3, []document.Face, error)
}

// TransformSource supplies the transform applied by edit.transform.
type TransformSource interface {
	Transform(doc *document.Document) (document.Mat4, bool)
}

// TransformFunc adapts a func to TransformSource.
type TransformFunc func(doc *document.Document) (document.Mat4, bool)

// Transform calls f.
func (f TransformFunc) Transform(doc *document.Document) (document.Mat4, bool) { return f(doc) }

// CenterAtOrigin translates the model so its bounds are centred on the origin.
var CenterAtOrigin = TransformFunc(func(doc *document.Document) (document.Mat4, bool) {
	doc.RLock()
	defer doc.RUnlock()
	if !doc.Bounds.Valid {
		return document.Mat4{}, false
	}
	return document.Translation(doc.Bounds.Center().Scale(-1)), true
})
