package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/facekit/internal/actions"
	"github.com/dshills/facekit/internal/app"
	"github.com/dshills/facekit/internal/config"
	"github.com/dshills/facekit/internal/logging"
	"github.com/dshills/facekit/internal/plugin/lua"
)

// session is an engine with the built-in and scripted actions registered.
type session struct {
	cfg     *config.Config
	logger  zerolog.Logger
	eng     *app.Engine
	set     *actions.Set
	scripts []*lua.Script
}

func newSession(opts *rootOptions, logOut io.Writer, collab actions.Collaborators) (*session, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Logging.Format = opts.logFormat
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: logOut,
	})

	eng, err := app.New(cfg, app.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger, eng: eng, set: actions.Builtin(collab)}
	if err := eng.Register(s.set.Actions...); err != nil {
		return nil, err
	}

	luaOpts := []lua.Option{lua.WithLogger(logging.Component(logger, "lua"))}
	if d := cfg.Worker.Timeout.Std(); d > 0 {
		luaOpts = append(luaOpts, lua.WithTimeout(d))
	}
	paths := append(append([]string(nil), cfg.Plugins.Scripts...), opts.scripts...)
	for _, path := range paths {
		script, err := lua.LoadFile(path, luaOpts...)
		if err != nil {
			s.close()
			return nil, err
		}
		s.scripts = append(s.scripts, script)
		if err := eng.Register(script.Actions()...); err != nil {
			s.close()
			return nil, err
		}
		logger.Info().Str("script", script.Name()).Int("actions", len(script.Actions())).Msg("script loaded")
	}

	eng.Finalise()
	return s, nil
}

func (s *session) close() {
	for _, script := range s.scripts {
		script.Close()
	}
}

// run starts the engine and, when configured, the metrics endpoint, calls fn
// and shuts everything down once fn returns.
func (s *session) run(ctx context.Context, fn func(ctx context.Context) error) error {
	defer s.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.eng.Run(gctx) })

	if addr := s.cfg.Metrics.Listen; addr != "" && s.eng.Gatherer() != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.eng.Gatherer(), promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			s.logger.Info().Str("addr", addr).Msg("serving metrics")
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			return srv.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		defer cancel()
		if err := waitRunning(gctx, s.eng); err != nil {
			return err
		}
		return fn(gctx)
	})

	return g.Wait()
}

func waitRunning(ctx context.Context, eng *app.Engine) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for !eng.IsRunning() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
