package config

import (
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FACEKIT_"

// LookupFunc looks up an environment variable.
type LookupFunc func(key string) (string, bool)

// envBinding applies one environment variable to a config.
type envBinding struct {
	name  string
	apply func(c *Config, v string) error
}

func intVar(dst func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func boolVar(dst func(c *Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}
}

func stringVar(dst func(c *Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func durationVar(dst func(c *Config) *Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*dst(c) = Duration(d)
		return nil
	}
}

// envBindings maps FACEKIT_* variables to settings.
var envBindings = []envBinding{
	{"UNDO_MAX_RESTORES", intVar(func(c *Config) *int { return &c.Undo.MaxRestores })},
	{"UNDO_STRICT", boolVar(func(c *Config) *bool { return &c.Undo.Strict })},
	{"WORKER_TICK_INTERVAL", durationVar(func(c *Config) *Duration { return &c.Worker.TickInterval })},
	{"WORKER_TIMEOUT", durationVar(func(c *Config) *Duration { return &c.Worker.Timeout })},
	{"DISPATCH_MAX_DEPTH", intVar(func(c *Config) *int { return &c.Dispatch.MaxDepth })},
	{"LOG_LEVEL", stringVar(func(c *Config) *string { return &c.Logging.Level })},
	{"LOG_FORMAT", stringVar(func(c *Config) *string { return &c.Logging.Format })},
	{"METRICS_ENABLED", boolVar(func(c *Config) *bool { return &c.Metrics.Enabled })},
	{"METRICS_NAMESPACE", stringVar(func(c *Config) *string { return &c.Metrics.Namespace })},
	{"METRICS_LISTEN", stringVar(func(c *Config) *string { return &c.Metrics.Listen })},
	{"PLUGINS_SCRIPTS", func(c *Config, v string) error {
		c.Plugins.Scripts = nil
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.Plugins.Scripts = append(c.Plugins.Scripts, s)
			}
		}
		return nil
	}},
}

// EnvVars returns the names of all recognised environment variables.
func EnvVars() []string {
	names := make([]string, len(envBindings))
	for i, b := range envBindings {
		names[i] = EnvPrefix + b.name
	}
	return names
}

// ApplyEnv overrides settings from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	for _, b := range envBindings {
		name := EnvPrefix + b.name
		v, ok := lookup(name)
		if !ok {
			continue
		}
		if err := b.apply(c, v); err != nil {
			return &EnvError{Var: name, Value: v, Err: err}
		}
	}
	return nil
}
