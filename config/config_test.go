package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
auto_sit_in: true
action_delay: {min: 200ms, max: 2s}
action_delay_window: 0.3
post_action_wait: {min: 1s, max: 3s}
max_action_wait: 8s
default_dealer: 1
default_big_blind: 50
total_chips: 5000
bet_rounding: 5
allin_threshold: 0.7
bet_method_probabilities: [0.6, 1]
strategies: [strategies/hu-40.yaml, strategies/hu-100.yaml]
runner:
  capture_interval: 250ms
  max_error_count: 4
  max_error_interval: 2m
  max_idle_time: 15m
journal:
  mode: postgres
  dsn: postgres://localhost/autopilot
metrics:
  addr: ":9102"
tables:
  - id: felt-1
    source: remote
    url: ws://127.0.0.1:8090/ws
  - id: practice
    source: sim
sim:
  start_stack: 2500
  small_blind: 25
  big_blind: 50
  time_bank: 5
  seed: 42
  opponent: {aggression: 0.7, tightness: 0.2, bluffing: 0.4, randomness: 0.1}
  noise: {duplicate: 0.05, drop: 0.01}
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "autopilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	e := cfg.Engine
	assert.True(t, e.AutoSitIn)
	assert.Equal(t, 200*time.Millisecond, e.ActionDelay.Min)
	assert.Equal(t, 2*time.Second, e.ActionDelay.Max)
	assert.Equal(t, 0.3, e.ActionDelayWindow)
	assert.Equal(t, 3*time.Second, e.PostActionWait.Max)
	assert.Equal(t, 8*time.Second, e.MaxActionWait)
	assert.Equal(t, 1, e.DefaultDealer)
	assert.Equal(t, int64(50), e.DefaultBigBlind)
	assert.Equal(t, int64(5000), e.TotalChips)
	assert.Equal(t, int64(5), e.BetRounding)
	assert.Equal(t, 0.7, e.AllInThreshold)
	assert.Equal(t, []float64{0.6, 1}, e.BetMethodProbabilities)

	assert.Equal(t, []string{"strategies/hu-40.yaml", "strategies/hu-100.yaml"}, cfg.Strategies)
	assert.Equal(t, 250*time.Millisecond, cfg.Runner.CaptureInterval)
	assert.Equal(t, 4, cfg.Runner.MaxErrorCount)
	assert.Equal(t, 2*time.Minute, cfg.Runner.MaxErrorInterval)
	assert.Equal(t, 15*time.Minute, cfg.Runner.MaxIdleTime)
	assert.Equal(t, "postgres", cfg.Journal.Mode)
	assert.Equal(t, ":9102", cfg.Metrics.Addr)
	assert.Equal(t, "info", cfg.Log.Level, "defaults survive a partial file")

	require.Len(t, cfg.Tables, 2)
	assert.Equal(t, Table{ID: "felt-1", Source: SourceRemote, URL: "ws://127.0.0.1:8090/ws"}, cfg.Tables[0])
	assert.Equal(t, int64(2500), cfg.Sim.StartStack)
	assert.Equal(t, 5, cfg.Sim.TimeBank)
	assert.Equal(t, 0.7, cfg.Sim.Opponent.Aggression)
	assert.Equal(t, 0.05, cfg.Sim.Noise.Duplicate)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Engine.TotalChips, cfg.Engine.TotalChips)
	assert.Equal(t, cfg.Sim.TotalChips(), cfg.Engine.TotalChips)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AUTOPILOT_AUTO_SIT_IN", "false")
	t.Setenv("AUTOPILOT_JOURNAL_MODE", "memory")
	t.Setenv("AUTOPILOT_CAPTURE_INTERVAL", "1s")
	t.Setenv("AUTOPILOT_STRATEGIES", " a.yaml, ,b.yaml ")
	t.Setenv("AUTOPILOT_METRICS_ADDR", ":9999")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.False(t, cfg.Engine.AutoSitIn)
	assert.Equal(t, "memory", cfg.Journal.Mode)
	assert.Equal(t, time.Second, cfg.Runner.CaptureInterval)
	assert.Equal(t, []string{"a.yaml", "b.yaml"}, cfg.Strategies)
	assert.Equal(t, ":9999", cfg.Metrics.Addr)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("AUTOPILOT_TOTAL_CHIPS", "lots")
	_, err := Load("")
	assert.ErrorContains(t, err, "AUTOPILOT_TOTAL_CHIPS")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "tables: [oops"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"engine":         func(c *Config) { c.Engine.DefaultDealer = 2 },
		"runner":         func(c *Config) { c.Runner.MaxErrorCount = 0 },
		"journal mode":   func(c *Config) { c.Journal.Mode = "redis" },
		"log level":      func(c *Config) { c.Log.Level = "loud" },
		"no tables":      func(c *Config) { c.Tables = nil },
		"table id":       func(c *Config) { c.Tables = []Table{{Source: SourceSim}} },
		"duplicate":      func(c *Config) { c.Tables = append(c.Tables, c.Tables[0]) },
		"source":         func(c *Config) { c.Tables[0].Source = "vnc" },
		"remote url":     func(c *Config) { c.Tables[0] = Table{ID: "r", Source: SourceRemote} },
		"sim noise":      func(c *Config) { c.Sim.Noise.Drop = 2 },
		"chip mismatch":  func(c *Config) { c.Engine.TotalChips = 3000 },
		"bet method sum": func(c *Config) { c.Engine.BetMethodProbabilities = []float64{0.8, 0.2} },
	}
	require.NoError(t, Default().Validate())
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	// chip totals only matter when a simulator is in play
	cfg := Default()
	cfg.Tables = []Table{{ID: "r", Source: SourceRemote, URL: "ws://x/ws"}}
	cfg.Engine.TotalChips = 3000
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "configs", "autopilot.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"configs/strategies/hu-100.yaml"}, cfg.Strategies)
	assert.Equal(t, cfg.Sim.TotalChips(), cfg.Engine.TotalChips)
	assert.Equal(t, []float64{0.7, 1}, cfg.Engine.BetMethodProbabilities)
	require.Len(t, cfg.Tables, 1)
	assert.Equal(t, SourceSim, cfg.Tables[0].Source)
}
