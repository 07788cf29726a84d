package action

import (
	"context"

	"github.com/dshills/facekit/internal/document"
	"github.com/dshills/facekit/internal/event"
)

// Behavior is the operation an Action performs.
type Behavior interface {
	// DoWork performs the operation. For async actions it runs on a worker
	// goroutine and must poll ctx to honour EndNow.
	DoWork(ctx context.Context, req Request) error
}

// BehaviorFunc adapts a func to Behavior.
type BehaviorFunc func(ctx context.Context, req Request) error

// DoWork calls f.
func (f BehaviorFunc) DoWork(ctx context.Context, req Request) error { return f(ctx, req) }

// Allower gates execution. Without it an action is always allowed.
type Allower interface {
	IsAllowed(req Request) bool
}

// Preparer runs on the coordinator before DoWork and may ask the user for
// input. Returning false cancels the execution.
type Preparer interface {
	DoBefore(req Request) bool
}

// Finisher computes the result event group after DoWork. err is the DoWork
// outcome, including recovered panics and worker timeouts.
type Finisher interface {
	DoAfter(req Request, err error) event.Group
}

// Purger drops cached data derived from doc.
type Purger interface {
	Purge(doc *document.Document, g event.Group)
}

// Checker reports the checked state of actions representing a mode.
type Checker interface {
	IsChecked(req Request) bool
}

// Binder receives its Action once, when the action is constructed, so it can
// register event masks or keep a back reference.
type Binder interface {
	Bind(a *Action)
}

// Targeter names the document a result refers to when it is not the
// request's document, as for actions that open or select one.
type Targeter interface {
	Target(req Request) *document.Document
}
