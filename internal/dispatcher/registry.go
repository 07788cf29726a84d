package dispatcher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/facekit/internal/action"
)

// Register appends a to the broadcast order.
func (d *Dispatcher) Register(a *action.Action) error {
	if a == nil {
		return ErrNilAction
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.finalised {
		return fmt.Errorf("%w: %s", ErrFinalised, a.Name())
	}
	if _, exists := d.byName[a.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAction, a.Name())
	}
	d.actions = append(d.actions, a)
	d.byName[a.Name()] = a

	d.logger.Debug().
		Str("action", a.Name()).
		Str("purge", a.PurgeOn().Name()).
		Str("refresh", a.RefreshOn().Name()).
		Str("trigger", a.TriggerOn().Name()).
		Msg("action registered")
	return nil
}

// Get returns the action registered under name.
func (d *Dispatcher) Get(name string) (*action.Action, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.byName[name]
	return a, ok
}

// Actions returns the registered actions in broadcast order.
func (d *Dispatcher) Actions() []*action.Action {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]*action.Action(nil), d.actions...)
}

// Names returns the registered action names in broadcast order.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, len(d.actions))
	for i, a := range d.actions {
		names[i] = a.Name()
	}
	return names
}

// Count returns the number of registered actions.
func (d *Dispatcher) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.actions)
}

// namespaceOf returns the prefix before the first dot ("edit" in
// "edit.Transform"), or "" for names without one.
func namespaceOf(name string) string {
	if idx := strings.IndexByte(name, '.'); idx > 0 {
		return name[:idx]
	}
	return ""
}

// Namespaces returns the sorted set of action namespaces.
func (d *Dispatcher) Namespaces() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, a := range d.actions {
		seen[namespaceOf(a.Name())] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// InNamespace returns the actions of ns in broadcast order.
func (d *Dispatcher) InNamespace(ns string) []*action.Action {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*action.Action
	for _, a := range d.actions {
		if namespaceOf(a.Name()) == ns {
			out = append(out, a)
		}
	}
	return out
}
