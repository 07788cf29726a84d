package lua

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"
)

func TestState_Sandbox(t *testing.T) {
	s := NewState()
	defer s.Close()

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		err := s.With(context.Background(), func(L *lua.LState) error {
			if L.GetGlobal(name) != lua.LNil {
				t.Errorf("%s is still available", name)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("With: %v", err)
		}
	}

	if err := s.DoString(context.Background(), "os", `require("os")`); err == nil {
		t.Error("require(\"os\") succeeded")
	}
	if err := s.DoString(context.Background(), "string", `local s = require("string"); assert(s.upper("a") == "A")`); err != nil {
		t.Errorf("require(\"string\"): %v", err)
	}
	if err := s.DoString(context.Background(), "io", `io.write("x")`); err == nil {
		t.Error("io library is available")
	}
}

func TestState_Timeout(t *testing.T) {
	s := NewState(WithExecutionTimeout(50 * time.Millisecond))
	defer s.Close()

	start := time.Now()
	err := s.DoString(context.Background(), "spin", `while true do end`)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("timeout took %v", time.Since(start))
	}

	// The state stays usable.
	if err := s.DoString(context.Background(), "after", `x = 1`); err != nil {
		t.Errorf("after timeout: %v", err)
	}
}

func TestState_Cancel(t *testing.T) {
	s := NewState(WithExecutionTimeout(0))
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := s.DoString(ctx, "spin", `while true do end`)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
}

func TestState_TryWithBusy(t *testing.T) {
	s := NewState()
	defer s.Close()

	err := s.With(context.Background(), func(*lua.LState) error {
		ran, err := s.TryWith(context.Background(), func(*lua.LState) error { return nil })
		if ran || err != nil {
			t.Errorf("TryWith on busy state = %v, %v", ran, err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	ran, err := s.TryWith(context.Background(), func(*lua.LState) error { return nil })
	if !ran || err != nil {
		t.Errorf("TryWith on idle state = %v, %v", ran, err)
	}
}

func TestState_Closed(t *testing.T) {
	s := NewState()
	s.Close()
	s.Close()

	if !s.IsClosed() {
		t.Error("IsClosed = false")
	}
	if err := s.DoString(context.Background(), "x", `x = 1`); !errors.Is(err, ErrStateClosed) {
		t.Errorf("err = %v, want ErrStateClosed", err)
	}
}

func TestCall(t *testing.T) {
	s := NewState()
	defer s.Close()

	if err := s.DoString(context.Background(), "fn", `function pair(a) return a, a * 2 end`); err != nil {
		t.Fatal(err)
	}
	err := s.With(context.Background(), func(L *lua.LState) error {
		out, err := Call(L, L.GetGlobal("pair"), lua.LNumber(21))
		if err != nil {
			return err
		}
		if len(out) != 2 || out[0] != lua.LNumber(21) || out[1] != lua.LNumber(42) {
			t.Errorf("Call = %v", out)
		}
		if L.GetTop() != 0 {
			t.Errorf("stack not restored: top = %d", L.GetTop())
		}

		if _, err := Call(L, lua.LString("nope")); err == nil || !strings.Contains(err.Error(), "not a function") {
			t.Errorf("Call on string: %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
