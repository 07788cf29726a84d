package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Undo.MaxRestores)
	assert.Equal(t, 32, cfg.Dispatch.MaxDepth)
	assert.Equal(t, time.Second, cfg.Worker.TickInterval.Std())
	assert.Equal(t, "facekit", cfg.Metrics.Namespace)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facekit.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[undo]
max_restores = 25
strict = true

[worker]
tick_interval = "250ms"
timeout = "2m"

[logging]
level = "debug"
format = "json"

[plugins]
scripts = ["scripts/mirror.lua"]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Undo.MaxRestores)
	assert.True(t, cfg.Undo.Strict)
	assert.Equal(t, 250*time.Millisecond, cfg.Worker.TickInterval.Std())
	assert.Equal(t, 2*time.Minute, cfg.Worker.Timeout.Std())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"scripts/mirror.lua"}, cfg.Plugins.Scripts)
	assert.Equal(t, 32, cfg.Dispatch.MaxDepth, "unset keys keep defaults")
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Undo, cfg.Undo)
}

func TestDecode_Errors(t *testing.T) {
	cfg := Default()
	err := cfg.Decode("bad.toml", []byte("[undo]\nmax_restores = \"ten\"\n"))
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "bad.toml", perr.Path)

	err = Default().Decode("unknown.toml", []byte("[undo]\nmax_restore = 3\n"))
	assert.Error(t, err)

	err = Default().Decode("dur.toml", []byte("[worker]\ntimeout = \"soon\"\n"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(lookupFrom(map[string]string{
		"FACEKIT_UNDO_MAX_RESTORES": "4",
		"FACEKIT_UNDO_STRICT":       "true",
		"FACEKIT_WORKER_TIMEOUT":    "30s",
		"FACEKIT_LOG_LEVEL":         "warn",
		"FACEKIT_METRICS_ENABLED":   "1",
		"FACEKIT_PLUGINS_SCRIPTS":   "a.lua, b.lua,",
	}))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Undo.MaxRestores)
	assert.True(t, cfg.Undo.Strict)
	assert.Equal(t, 30*time.Second, cfg.Worker.Timeout.Std())
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, []string{"a.lua", "b.lua"}, cfg.Plugins.Scripts)
}

func TestApplyEnv_BadValue(t *testing.T) {
	err := Default().ApplyEnv(lookupFrom(map[string]string{"FACEKIT_DISPATCH_MAX_DEPTH": "deep"}))

	var eerr *EnvError
	require.True(t, errors.As(err, &eerr))
	assert.Equal(t, "FACEKIT_DISPATCH_MAX_DEPTH", eerr.Var)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facekit.toml")
	require.NoError(t, os.WriteFile(path, []byte("[undo]\nmax_restores = 25\n"), 0o644))
	t.Setenv("FACEKIT_UNDO_MAX_RESTORES", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Undo.MaxRestores)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Undo.MaxRestores = 0
	cfg.Dispatch.MaxDepth = -1
	cfg.Logging.Format = "xml"
	cfg.Metrics.Listen = ":9090"
	cfg.Plugins.Scripts = []string{" "}

	err := cfg.Validate()
	require.Error(t, err)
	for _, path := range []string{"undo.max_restores", "dispatch.max_depth", "logging.format", "metrics.listen", "plugins.scripts[0]"} {
		assert.Contains(t, err.Error(), path)
	}

	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestEncode_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Worker.Timeout = Duration(90 * time.Second)

	data, err := cfg.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), "1m30s")

	back := &Config{}
	require.NoError(t, back.Decode("encoded", data))
	assert.Equal(t, cfg.Worker, back.Worker)
}

func TestEnvVars(t *testing.T) {
	vars := EnvVars()
	assert.Contains(t, vars, "FACEKIT_UNDO_MAX_RESTORES")
	assert.Contains(t, vars, "FACEKIT_METRICS_LISTEN")
}
