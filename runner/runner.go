// Package runner supervises tables: it captures snapshots on a fixed
// interval, feeds them to the engine and stops a table whose error budget
// runs dry.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"holdem-autopilot/engine"
)

var (
	// ErrBudgetExhausted stops a table that failed too often.
	ErrBudgetExhausted = errors.New("error budget exhausted")
	// ErrIdle is charged when no decision landed for max_idle_time.
	ErrIdle = errors.New("no decision within max idle time")
)

// Source produces table captures. *sim.Table and *remote.Client satisfy it.
type Source interface {
	Next(ctx context.Context) (engine.Snapshot, error)
}

// Ticker consumes captures; *engine.Engine satisfies it.
type Ticker interface {
	Tick(ctx context.Context, s engine.Snapshot) (*engine.Decision, error)
}

type Config struct {
	CaptureInterval time.Duration `yaml:"capture_interval"`
	// At most MaxErrorCount tick errors per MaxErrorInterval, refilled
	// continuously
	MaxErrorCount    int           `yaml:"max_error_count"`
	MaxErrorInterval time.Duration `yaml:"max_error_interval"`
	// 0 disables the idle check
	MaxIdleTime time.Duration `yaml:"max_idle_time"`
	// Stop every table when one stops
	FailFast bool `yaml:"fail_fast"`
}

func DefaultConfig() Config {
	return Config{
		CaptureInterval:  500 * time.Millisecond,
		MaxErrorCount:    10,
		MaxErrorInterval: 5 * time.Minute,
		MaxIdleTime:      10 * time.Minute,
	}
}

func (c Config) Validate() error {
	if c.CaptureInterval <= 0 {
		return fmt.Errorf("capture_interval must be > 0")
	}
	if c.MaxErrorCount < 1 {
		return fmt.Errorf("max_error_count must be >= 1")
	}
	if c.MaxErrorInterval <= 0 {
		return fmt.Errorf("max_error_interval must be > 0")
	}
	if c.MaxIdleTime < 0 {
		return fmt.Errorf("max_idle_time must be >= 0")
	}
	return nil
}

// Stats summarizes a table loop.
type Stats struct {
	Captures  int
	Decisions int
	Retries   int
	Errors    int
	Rollbacks int
}

// Table is the capture loop of one table.
type Table struct {
	id     string
	src    Source
	eng    Ticker
	cfg    Config
	budget *rate.Limiter
	log    zerolog.Logger
	now    func() time.Time

	lastDecision time.Time

	mu    sync.Mutex
	stats Stats
}

type Option func(*Table)

func WithLogger(l zerolog.Logger) Option { return func(t *Table) { t.log = l } }

func WithClock(f func() time.Time) Option { return func(t *Table) { t.now = f } }

func NewTable(id string, src Source, eng Ticker, cfg Config, opts ...Option) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil || eng == nil {
		return nil, fmt.Errorf("runner %s: source and engine are required", id)
	}
	t := &Table{
		id:  id,
		src: src,
		eng: eng,
		cfg: cfg,
		log: zerolog.Nop(),
		now: time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	every := cfg.MaxErrorInterval / time.Duration(cfg.MaxErrorCount)
	t.budget = rate.NewLimiter(rate.Every(every), cfg.MaxErrorCount)
	t.log = t.log.With().Str("table", id).Logger()
	return t, nil
}

func (t *Table) ID() string { return t.id }

func (t *Table) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// Run captures until ctx is cancelled or the table has to stop.
// Cancellation is not an error.
func (t *Table) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.cfg.CaptureInterval)
	defer ticker.Stop()
	tablesRunning.Inc()
	defer tablesRunning.Dec()

	t.lastDecision = t.now()
	t.log.Info().Dur("interval", t.cfg.CaptureInterval).Msg("table started")
	for {
		if err := t.Step(ctx); err != nil {
			stopsTotal.WithLabelValues(t.id, stopReason(err)).Inc()
			t.log.Error().Err(err).Msg("table stopped")
			return err
		}
		select {
		case <-ctx.Done():
			t.log.Info().Msg("table stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Step runs one capture and tick. It returns an error only when the table
// must stop.
func (t *Table) Step(ctx context.Context) error {
	s, err := t.src.Next(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return t.charge(fmt.Errorf("capture: %w", err))
	}

	dec, err := t.eng.Tick(ctx, s)
	class := engine.Classify(err)
	t.count(class, dec)
	switch class {
	case engine.ClassNone:
		t.lastDecision = t.now()
		return nil
	case engine.ClassTick:
		if ctx.Err() != nil {
			return nil
		}
		if err := t.charge(err); err != nil {
			return err
		}
	case engine.ClassTable:
		return fmt.Errorf("table %s: %w", t.id, err)
	}

	if t.cfg.MaxIdleTime > 0 && t.now().Sub(t.lastDecision) > t.cfg.MaxIdleTime {
		idle := t.now().Sub(t.lastDecision)
		t.lastDecision = t.now()
		return t.charge(fmt.Errorf("%w (%s)", ErrIdle, idle.Round(time.Second)))
	}
	return nil
}

func (t *Table) count(class engine.Class, dec *engine.Decision) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.Captures++
	switch class {
	case engine.ClassNone:
		t.stats.Decisions++
		if dec != nil && dec.Rollback {
			t.stats.Rollbacks++
		}
	case engine.ClassRetry:
		t.stats.Retries++
	}
}

// charge spends one token of the error budget.
func (t *Table) charge(err error) error {
	t.mu.Lock()
	t.stats.Errors++
	t.mu.Unlock()
	errorsTotal.WithLabelValues(t.id).Inc()

	now := t.now()
	ok := t.budget.AllowN(now, 1)
	remaining := t.budget.TokensAt(now)
	budgetRemaining.WithLabelValues(t.id).Set(remaining)
	if !ok {
		return fmt.Errorf("table %s: %w: last error: %v", t.id, ErrBudgetExhausted, err)
	}
	t.log.Warn().Err(err).Float64("budget", remaining).Msg("tick failed")
	return nil
}

func stopReason(err error) string {
	switch {
	case errors.Is(err, ErrBudgetExhausted):
		return "budget"
	case errors.Is(err, engine.ErrSittingOut):
		return "sitting_out"
	}
	return "other"
}

// Run supervises tables until ctx ends. A stopped table leaves the others
// running unless cfg.FailFast is set; every stop reason is returned.
func Run(ctx context.Context, cfg Config, tables ...*Table) error {
	g := &errgroup.Group{}
	if cfg.FailFast {
		g, ctx = errgroup.WithContext(ctx)
	}
	var (
		mu   sync.Mutex
		errs []error
	)
	for _, t := range tables {
		t := t
		g.Go(func() error {
			err := t.Run(ctx)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return err
		})
	}
	g.Wait()
	return errors.Join(errs...)
}
