package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no real config file
// is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)
	t.Setenv("CONFIG_ENV", "none")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 30*time.Second, cfg.SweepGrace)
	assert.Equal(t, 60*time.Second, cfg.PongWait)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, 50, cfg.RateLimit.Events)
	assert.Equal(t, "kick", cfg.Backpressure)
	require.Len(t, cfg.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.ICEServers[0].URLs)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	yaml := []byte(`mode: debug
port: 9000
sweep_grace: 45s
rate_limit:
  events: 5
ice_servers:
  - urls: ["turn:turn.example.com:3478"]
    username: u
    credential: p
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), yaml, 0o644))

	t.Setenv("HUDDLE_RATE_LIMIT_EVENTS", "7")
	t.Setenv("HUDDLE_SWEEP_INTERVAL", "1m")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 8080, "")
	flags.StringSlice("allowed-origin", nil, "")
	flags.String("config-env", "", "")
	require.NoError(t, flags.Parse([]string{"--config-env=test", "--port=9100", "--allowed-origin=http://localhost:5173"}))

	cfg, err := Load(flags)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, 45*time.Second, cfg.SweepGrace)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 7, cfg.RateLimit.Events)
	require.Len(t, cfg.ICEServers, 1)
	assert.Equal(t, "u", cfg.ICEServers[0].Username)
	assert.Equal(t, "p", cfg.ICEServers[0].Credential)
}

func TestValidate(t *testing.T) {
	ok := Config{Port: 80, PongWait: time.Minute, PingPeriod: 50 * time.Second}
	require.NoError(t, ok.Validate())

	bad := ok
	bad.PingPeriod = 2 * time.Minute
	assert.Error(t, bad.Validate())

	bad = ok
	bad.Port = 0
	assert.Error(t, bad.Validate())

	bad = ok
	bad.ICEServers = []ICEServer{{}}
	assert.Error(t, bad.Validate())
}
