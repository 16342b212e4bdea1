package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-cypher/pkg/logging"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cypher.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultQueryTimeout, cfg.QueryTimeout)
	assert.True(t, cfg.Pushdown)
	assert.Equal(t, logging.InfoLevel, cfg.Level())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
query_timeout: 5s
slow_query: 250ms
max_rows: 100
pushdown: false
metrics_namespace: graph
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, logging.DebugLevel, cfg.Level())
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.SlowQuery)
	assert.Equal(t, 100, cfg.MaxRows)
	assert.False(t, cfg.Pushdown)
	// unset keys keep their defaults
	assert.True(t, cfg.Profile)
	assert.Equal(t, "graph", cfg.MetricsNamespace)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "log_level: [debug"},
		{"bad level", "log_level: loud"},
		{"negative rows", "max_rows: -1"},
		{"empty namespace", "metrics_namespace: ''"},
		{"slow above timeout", "query_timeout: 1s\nslow_query: 2s"},
		{"negative slow", "slow_query: -1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_ClampsTimeout(t *testing.T) {
	cfg, err := Load(writeConfig(t, "query_timeout: 1h"))
	require.NoError(t, err)
	assert.Equal(t, MaxQueryTimeout, cfg.QueryTimeout)

	cfg, err = Load(writeConfig(t, "query_timeout: 0s"))
	require.NoError(t, err)
	assert.Equal(t, DefaultQueryTimeout, cfg.QueryTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvQueryTimeout, "2s")
	t.Setenv(EnvSlowQuery, "100ms")

	cfg, err := Load(writeConfig(t, "log_level: debug\nquery_timeout: 5s"))
	require.NoError(t, err)
	assert.Equal(t, logging.WarnLevel, cfg.Level())
	assert.Equal(t, 2*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.SlowQuery)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{EnvMaxRows: "7", EnvQueryTimeout: ""}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, 7, cfg.MaxRows)
	assert.Equal(t, DefaultQueryTimeout, cfg.QueryTimeout)

	env[EnvSlowQuery] = "soon"
	assert.ErrorContains(t, cfg.ApplyEnv(lookup), EnvSlowQuery)

	delete(env, EnvSlowQuery)
	env[EnvMaxRows] = "many"
	assert.ErrorContains(t, cfg.ApplyEnv(lookup), EnvMaxRows)
}

func TestValidateTimeout(t *testing.T) {
	cfg := TimeoutConfig{Min: time.Second, Max: time.Minute, Default: 10 * time.Second}
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, 10 * time.Second},
		{-time.Second, 10 * time.Second},
		{500 * time.Millisecond, 10 * time.Second},
		{30 * time.Second, 30 * time.Second},
		{time.Hour, time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidateTimeout(tt.in, cfg), "ValidateTimeout(%v)", tt.in)
	}
	assert.Equal(t, time.Hour, ValidateTimeout(time.Hour, TimeoutConfig{Default: time.Second}))
}
