package action

import "github.com/dshills/facekit/internal/engine/history"

// owner is the history.Owner of an action's undo states. It exposes the
// behavior's SaveState and RestoreState only when the behavior has them, so
// the history manager can tell custom undo from automatic undo.
type owner struct{ a *Action }

func (o owner) Name() string        { return o.a.name }
func (o owner) DisplayName() string { return o.a.display }

// Action returns the action that stored the state.
func (o owner) Action() *Action { return o.a }

type savingOwner struct {
	owner
	history.Saver
}

type restoringOwner struct {
	owner
	history.Restorer
}

type customOwner struct {
	owner
	history.Saver
	history.Restorer
}

func (a *Action) owner() history.Owner {
	o := owner{a}
	s, saves := a.behavior.(history.Saver)
	r, restores := a.behavior.(history.Restorer)
	switch {
	case saves && restores:
		return customOwner{o, s, r}
	case saves:
		return savingOwner{o, s}
	case restores:
		return restoringOwner{o, r}
	}
	return o
}

// OwnerOf returns the action that stored st, if any.
func OwnerOf(st *history.State) (*Action, bool) {
	type actionOwner interface{ Action() *Action }
	if ao, ok := st.Owner().(actionOwner); ok {
		return ao.Action(), true
	}
	return nil, false
}
