package lua

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/facekit/internal/action"
	"github.com/dshills/facekit/internal/event"
)

// Script is a loaded Lua file and the actions it defines. Its actions share
// one Lua state.
type Script struct {
	name    string
	state   *State
	actions []*action.Action
	logger  zerolog.Logger

	// status is the status sink of the running call. Guarded by the state.
	status func(string)
}

// Option configures script loading.
type Option func(*options)

type options struct {
	logger  zerolog.Logger
	timeout time.Duration
}

// WithLogger sets the logger for script errors.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTimeout bounds each call into the script. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// LoadFile loads the script at path.
func LoadFile(path string, opts ...Option) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ScriptError{Script: path, Err: err}
	}
	return Load(filepath.Base(path), string(data), opts...)
}

// Load runs source and builds the actions it registers.
func Load(name, source string, opts ...Option) (*Script, error) {
	o := options{logger: zerolog.Nop(), timeout: DefaultExecutionTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Script{
		name:   name,
		state:  NewState(WithExecutionTimeout(o.timeout)),
		logger: o.logger.With().Str("script", name).Logger(),
	}

	var defs []*lua.LTable
	err := s.state.With(context.Background(), func(L *lua.LState) error {
		registerDocType(L)
		L.SetGlobal("action", L.NewFunction(func(L *lua.LState) int {
			defs = append(defs, L.CheckTable(1))
			return 0
		}))
		L.SetGlobal("status", L.NewFunction(func(L *lua.LState) int {
			msg := L.CheckString(1)
			if s.status != nil {
				s.status(msg)
			}
			return 0
		}))
		return nil
	})
	if err != nil {
		s.Close()
		return nil, &ScriptError{Script: name, Err: err}
	}

	if err := s.state.DoString(context.Background(), name, source); err != nil {
		s.Close()
		return nil, &ScriptError{Script: name, Err: err}
	}
	if len(defs) == 0 {
		s.Close()
		return nil, &ScriptError{Script: name, Err: ErrNoActions}
	}

	for _, def := range defs {
		a, err := s.build(def)
		if err != nil {
			s.Close()
			return nil, &ScriptError{Script: name, Err: err}
		}
		s.actions = append(s.actions, a)
	}
	return s, nil
}

// Name returns the script name.
func (s *Script) Name() string { return s.name }

// Actions returns the actions the script defines, in definition order.
func (s *Script) Actions() []*action.Action { return s.actions }

// Close releases the Lua state. The script's actions fail afterwards.
func (s *Script) Close() {
	s.state.Close()
}

// build turns one action table into an Action.
func (s *Script) build(def *lua.LTable) (*action.Action, error) {
	name, ok := def.RawGetString("name").(lua.LString)
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: name must be a non-empty string", ErrInvalidAction)
	}
	run, ok := def.RawGetString("run").(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("%w: %s: run must be a function", ErrInvalidAction, name)
	}

	b := &scripted{script: s, run: run}
	switch v := def.RawGetString("allowed").(type) {
	case *lua.LFunction:
		b.allowed = v
	case *lua.LNilType:
	default:
		return nil, fmt.Errorf("%w: %s: allowed must be a function", ErrInvalidAction, name)
	}

	groups := make(map[string]event.Group)
	for _, field := range []string{"refresh_on", "purge_on", "trigger_on", "undo", "result"} {
		g, err := groupField(def, field)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %s: %w", ErrInvalidAction, name, field, err)
		}
		groups[field] = g
	}
	b.undo = groups["undo"]
	b.result = groups["result"]
	if b.result.IsEmpty() {
		b.result = b.undo
	}

	opts := []action.Option{}
	if display, ok := def.RawGetString("display").(lua.LString); ok && display != "" {
		opts = append(opts, action.WithDisplayName(string(display)))
	}
	if lua.LVAsBool(def.RawGetString("async")) {
		opts = append(opts, action.Async())
	}

	a := action.New(string(name), b, opts...)
	a.AddRefreshEvent(groups["refresh_on"])
	a.AddPurgeEvent(groups["purge_on"])
	a.AddTriggerEvent(groups["trigger_on"])
	return a, nil
}

// groupField reads a list of event names or a single "a|b" string.
func groupField(def *lua.LTable, field string) (event.Group, error) {
	switch v := def.RawGetString(field).(type) {
	case *lua.LNilType:
		return event.None, nil
	case lua.LString:
		return event.ParseGroup(string(v))
	case *lua.LTable:
		var g event.Group
		var err error
		v.ForEach(func(_, item lua.LValue) {
			if err != nil {
				return
			}
			var e event.Event
			e, err = event.Parse(item.String())
			g = g.With(e)
		})
		return g, err
	default:
		return event.None, fmt.Errorf("expected list of event names, got %s", v.Type())
	}
}

// scripted is the Behavior of a scripted action.
type scripted struct {
	script  *Script
	run     *lua.LFunction
	allowed *lua.LFunction
	undo    event.Group
	result  event.Group
}

// IsAllowed calls the allowed function. While the script's state is busy
// its actions are not allowed.
func (b *scripted) IsAllowed(req action.Request) bool {
	if b.allowed == nil {
		return req.Document != nil
	}
	var allowed bool
	ran, err := b.script.state.TryWith(context.Background(), func(L *lua.LState) error {
		out, err := Call(L, b.allowed, newDoc(L, req.Document))
		if err != nil {
			return err
		}
		allowed = len(out) > 0 && lua.LVAsBool(out[0])
		return nil
	})
	if err != nil {
		b.script.logger.Warn().Err(err).Str("action", req.Action.Name()).Msg("allowed failed")
		return false
	}
	return ran && allowed
}

func (b *scripted) DoWork(ctx context.Context, req action.Request) error {
	if req.Document == nil {
		return action.ErrNoDocument
	}
	return b.script.state.With(ctx, func(L *lua.LState) error {
		b.script.status = req.Status
		defer func() { b.script.status = nil }()

		doc := req.Document
		doc.Lock()
		defer doc.Unlock()
		if !b.undo.IsEmpty() {
			if _, err := req.StoreUndoLocked(b.undo, true); err != nil {
				return err
			}
		}
		_, err := Call(L, b.run, newHeldDoc(L, doc))
		return err
	})
}

func (b *scripted) DoAfter(req action.Request, err error) event.Group {
	if err != nil {
		b.script.logger.Warn().Err(err).Str("action", req.Action.Name()).Msg("script failed")
		req.Status(fmt.Sprintf("%s failed: %v", req.Action.DisplayName(), err))
		return event.Of(event.ActionComplete)
	}
	return b.result
}
