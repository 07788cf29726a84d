package app

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds how long Run waits for workers to stop.
const shutdownTimeout = 5 * time.Second

// Run processes the coordinating loop until ctx is done or Shutdown is
// called. Running workers are ended and their completions processed before
// Run returns.
func (e *Engine) Run(ctx context.Context) error {
	e.runWG.Add(1)
	defer e.runWG.Done()
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)

	e.logger.Info().Int("actions", e.dispatcher.Count()).Msg("engine started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.loop.Run(context.Background())
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-e.done:
		}
		return e.stop()
	})

	err := g.Wait()
	e.logger.Info().Msg("engine stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// stop ends the workers and closes the loop, which drains and returns.
func (e *Engine) stop() error {
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := e.workers.Shutdown(sctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("workers did not stop in time")
	}
	e.loop.Close()
	return err
}

// Shutdown stops the engine and waits until Run has returned or ctx is done.
// On an engine that is not running it stops the workers and closes the loop.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.stopOnce.Do(func() { close(e.done) })
	if !e.running.Load() {
		err := e.workers.Shutdown(ctx)
		e.loop.Close()
		return err
	}

	exited := make(chan struct{})
	go func() {
		e.runWG.Wait()
		close(exited)
	}()
	select {
	case <-exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether Run is active.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// Call runs fn on the coordinating loop and waits for it.
func (e *Engine) Call(ctx context.Context, fn func()) error {
	if !e.running.Load() {
		return ErrNotRunning
	}
	done := make(chan struct{})
	if err := e.loop.Post(func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Execute runs the named action on the coordinating loop as a user request.
// It reports whether the action started its work.
func (e *Engine) Execute(ctx context.Context, name string) (bool, error) {
	var (
		started bool
		err     error
	)
	if cerr := e.Call(ctx, func() {
		started, err = e.dispatcher.Dispatch(name)
	}); cerr != nil {
		return false, NewOperationError("execute", name, cerr)
	}
	if err != nil {
		return false, NewOperationError("execute", name, err)
	}
	return started, nil
}

// WaitIdle waits until no worker is running and the loop queue is empty.
func (e *Engine) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		idle := false
		if err := e.Call(ctx, func() {
			idle = e.workers.Running() == 0 && e.loop.Pending() == 0
		}); err != nil {
			return err
		}
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// IsRegistered reports whether an action name is known.
func (e *Engine) IsRegistered(name string) bool {
	_, ok := e.dispatcher.Get(name)
	return ok
}
