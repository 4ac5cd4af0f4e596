// Package config loads the autopilot settings: engine behavior, the
// supervisor, the journal and the tables to play.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"holdem-autopilot/engine"
	"holdem-autopilot/runner"
	"holdem-autopilot/sim"
)

const envPrefix = "AUTOPILOT_"

// Table sources
const (
	SourceSim    = "sim"
	SourceRemote = "remote"
)

type Config struct {
	Engine engine.Config `yaml:",inline"`

	// Strategy files, one per stack depth
	Strategies []string `yaml:"strategies"`

	Runner  runner.Config `yaml:"runner"`
	Journal Journal       `yaml:"journal"`
	Metrics Metrics       `yaml:"metrics"`
	Log     Log           `yaml:"log"`

	Tables []Table    `yaml:"tables"`
	Sim    sim.Config `yaml:"sim"`
}

type Journal struct {
	Mode string `yaml:"mode"` // none | memory | sqlite | postgres
	DSN  string `yaml:"dsn"`
}

type Metrics struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

type Log struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// Table is one table to play. Sim tables run in-process; remote tables
// are reached through a bridge URL.
type Table struct {
	ID     string `yaml:"id"`
	Source string `yaml:"source"`
	URL    string `yaml:"url"`
}

func Default() Config {
	return Config{
		Engine:  engine.DefaultConfig(),
		Runner:  runner.DefaultConfig(),
		Journal: Journal{Mode: "sqlite"},
		Log:     Log{Level: "info", Console: true},
		Tables:  []Table{{ID: "sim-1", Source: SourceSim}},
		Sim:     sim.DefaultConfig(),
	}
}

// Load reads path over the defaults, applies AUTOPILOT_* overrides and
// validates. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(envPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int64) {
		if v, ok := lookup(envPrefix + key); ok {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(envPrefix + key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	boolean("AUTO_SIT_IN", &cfg.Engine.AutoSitIn)
	integer("TOTAL_CHIPS", &cfg.Engine.TotalChips)
	integer("DEFAULT_BIG_BLIND", &cfg.Engine.DefaultBigBlind)
	integer("BET_ROUNDING", &cfg.Engine.BetRounding)
	duration("MAX_ACTION_WAIT", &cfg.Engine.MaxActionWait)
	duration("CAPTURE_INTERVAL", &cfg.Runner.CaptureInterval)
	duration("MAX_IDLE_TIME", &cfg.Runner.MaxIdleTime)
	str("JOURNAL_MODE", &cfg.Journal.Mode)
	str("JOURNAL_DSN", &cfg.Journal.DSN)
	str("METRICS_ADDR", &cfg.Metrics.Addr)
	str("LOG_LEVEL", &cfg.Log.Level)
	if v, ok := lookup(envPrefix + "STRATEGIES"); ok {
		cfg.Strategies = nil
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Strategies = append(cfg.Strategies, p)
			}
		}
	}
	return errors.Join(errs...)
}

func (c Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if err := c.Runner.Validate(); err != nil {
		return err
	}
	switch strings.ToLower(c.Journal.Mode) {
	case "", "none", "off", "memory", "local", "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("unknown journal mode %q", c.Journal.Mode)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table is required")
	}
	seen := make(map[string]bool, len(c.Tables))
	hasSim := false
	for i, t := range c.Tables {
		if t.ID == "" {
			return fmt.Errorf("tables[%d]: id is required", i)
		}
		if seen[t.ID] {
			return fmt.Errorf("tables[%d]: duplicate id %q", i, t.ID)
		}
		seen[t.ID] = true
		switch t.Source {
		case SourceSim:
			hasSim = true
		case SourceRemote:
			if t.URL == "" {
				return fmt.Errorf("tables[%d]: remote table %q needs a url", i, t.ID)
			}
		default:
			return fmt.Errorf("tables[%d]: unknown source %q", i, t.Source)
		}
	}
	if !hasSim {
		return nil
	}
	if err := c.Sim.Validate(); err != nil {
		return fmt.Errorf("sim: %w", err)
	}
	if c.Sim.TotalChips() != c.Engine.TotalChips {
		return fmt.Errorf("total_chips %d does not match the simulator's %d", c.Engine.TotalChips, c.Sim.TotalChips())
	}
	return nil
}
