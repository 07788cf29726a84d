package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/facekit/internal/dispatcher"
	"github.com/dshills/facekit/internal/engine/history"
	"github.com/dshills/facekit/internal/engine/worker"
	"github.com/dshills/facekit/internal/logging"
	"github.com/dshills/facekit/internal/metrics"
)

// Duration is a time.Duration read from a TOML string such as "1500ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the complete facekit configuration.
type Config struct {
	Undo     UndoConfig     `toml:"undo"`
	Worker   WorkerConfig   `toml:"worker"`
	Dispatch DispatchConfig `toml:"dispatch"`
	Logging  LoggingConfig  `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Plugins  PluginsConfig  `toml:"plugins"`
}

// UndoConfig configures the undo manager.
type UndoConfig struct {
	// MaxRestores bounds each per-document stack.
	MaxRestores int `toml:"max_restores"`
	// Strict panics on undo programming errors instead of reporting them.
	Strict bool `toml:"strict"`
}

// WorkerConfig configures background workers.
type WorkerConfig struct {
	// TickInterval is the status tick period. Zero disables ticks.
	TickInterval Duration `toml:"tick_interval"`
	// Timeout is the default limit on async work. Zero means none.
	Timeout Duration `toml:"timeout"`
}

// DispatchConfig configures the dispatcher.
type DispatchConfig struct {
	// MaxDepth limits Raise nesting within one cycle.
	MaxDepth int `toml:"max_depth"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
	// Listen is the address of the /metrics endpoint. Empty disables it.
	Listen string `toml:"listen"`
}

// PluginsConfig lists Lua scripts defining extra actions.
type PluginsConfig struct {
	Scripts []string `toml:"scripts"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Undo: UndoConfig{
			MaxRestores: history.DefaultMaxRestores,
		},
		Worker: WorkerConfig{
			TickInterval: Duration(worker.DefaultTickInterval),
		},
		Dispatch: DispatchConfig{
			MaxDepth: dispatcher.DefaultMaxDepth,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatAuto,
		},
		Metrics: MetricsConfig{
			Namespace: metrics.DefaultNamespace,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path or a missing file yields the defaults
// with overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := cfg.Decode(path, data); err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode parses TOML data from source over c. Unknown keys are errors.
func (c *Config) Decode(source string, data []byte) error {
	dec := toml.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		perr := &ParseError{Path: source, Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return perr
	}
	return nil
}

// Encode renders c as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	add := func(key, msg string, v any) {
		errs = append(errs, &ValidationError{Key: key, Message: msg, Value: v})
	}

	if c.Undo.MaxRestores < 1 {
		add("undo.max_restores", "must be at least 1", c.Undo.MaxRestores)
	}
	if c.Worker.TickInterval < 0 {
		add("worker.tick_interval", "must not be negative", c.Worker.TickInterval.Std())
	}
	if c.Worker.Timeout < 0 {
		add("worker.timeout", "must not be negative", c.Worker.Timeout.Std())
	}
	if c.Dispatch.MaxDepth < 1 {
		add("dispatch.max_depth", "must be at least 1", c.Dispatch.MaxDepth)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "off", "disabled":
	default:
		add("logging.level", "unknown level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", logging.FormatAuto, logging.FormatConsole, logging.FormatJSON:
	default:
		add("logging.format", "must be auto, console or json", c.Logging.Format)
	}
	if c.Metrics.Listen != "" && !c.Metrics.Enabled {
		add("metrics.listen", "requires metrics.enabled", c.Metrics.Listen)
	}
	for i, s := range c.Plugins.Scripts {
		if strings.TrimSpace(s) == "" {
			add(fmt.Sprintf("plugins.scripts[%d]", i), "must not be empty", s)
		}
	}
	return errors.Join(errs...)
}
