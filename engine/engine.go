// Package engine reconciles table snapshots with a walk over the betting
// tree and turns the strategy's choice into table commands.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"holdem-autopilot/abstraction"
)

type Config struct {
	// Sit back in automatically instead of stopping the table
	AutoSitIn bool `yaml:"auto_sit_in"`

	// Deliberation before acting, narrowed by ActionDelayWindow as more
	// of the stack is committed
	ActionDelay       Interval      `yaml:"action_delay"`
	ActionDelayWindow float64       `yaml:"action_delay_window"`
	PostActionWait    Interval      `yaml:"post_action_wait"`
	MaxActionWait     time.Duration `yaml:"max_action_wait"`

	// Fallbacks for misreads
	DefaultDealer   int   `yaml:"default_dealer"`
	DefaultBigBlind int64 `yaml:"default_big_blind"`

	// Chips in play at the table; the opponent's stack is derived from it
	TotalChips int64 `yaml:"total_chips"`

	BetRounding int64 `yaml:"bet_rounding"`
	// Raises within this fraction of either stack become all-in (0 disables)
	AllInThreshold         float64   `yaml:"allin_threshold"`
	BetMethodProbabilities []float64 `yaml:"bet_method_probabilities"`
}

func DefaultConfig() Config {
	return Config{
		ActionDelay:            Interval{Min: 0, Max: time.Second},
		ActionDelayWindow:      0.5,
		PostActionWait:         Interval{Min: 5 * time.Second, Max: 5 * time.Second},
		MaxActionWait:          10 * time.Second,
		DefaultBigBlind:        20,
		TotalChips:             2000,
		AllInThreshold:         0.8,
		BetMethodProbabilities: []float64{1},
	}
}

func (c Config) Validate() error {
	if !c.ActionDelay.valid() {
		return fmt.Errorf("action_delay must satisfy 0 <= min <= max, got %v..%v", c.ActionDelay.Min, c.ActionDelay.Max)
	}
	if c.ActionDelayWindow < 0 || c.ActionDelayWindow > 1 {
		return fmt.Errorf("action_delay_window must be in [0,1]")
	}
	if !c.PostActionWait.valid() {
		return fmt.Errorf("post_action_wait must satisfy 0 <= min <= max")
	}
	if c.MaxActionWait <= 0 {
		return fmt.Errorf("max_action_wait must be > 0")
	}
	if c.DefaultDealer != 0 && c.DefaultDealer != 1 {
		return fmt.Errorf("default_dealer must be 0 or 1, got %d", c.DefaultDealer)
	}
	if c.DefaultBigBlind <= 0 {
		return fmt.Errorf("default_big_blind must be > 0")
	}
	if c.TotalChips <= 0 {
		return fmt.Errorf("total_chips must be > 0")
	}
	if c.BetRounding < 0 {
		return fmt.Errorf("bet_rounding must be >= 0")
	}
	if c.AllInThreshold < 0 || c.AllInThreshold > 1 {
		return fmt.Errorf("allin_threshold must be in [0,1]")
	}
	prev := 0.0
	for i, p := range c.BetMethodProbabilities {
		if p < prev || p > 1 {
			return fmt.Errorf("bet_method_probabilities must be cumulative in [0,1] (index %d)", i)
		}
		prev = p
	}
	return nil
}

// Decision is a command that was dispatched and committed.
type Decision struct {
	Table    string
	HandID   uuid.UUID
	Path     string // where we acted
	Edge     abstraction.Action
	Command  Command
	Depth    int
	BigBlind int64
	Round    abstraction.Round
	Rollback bool
	Snapshot Snapshot
	At       time.Time
}

// Recorder receives every committed decision. Failures are logged only.
type Recorder interface {
	Record(ctx context.Context, d Decision) error
}

// Engine drives one table. Tick must not be called concurrently.
type Engine struct {
	id       string
	cfg      Config
	artifact abstraction.Artifact
	act      Actuator
	store    BeliefStore

	log   zerolog.Logger
	rng   *rand.Rand
	draw  func() float64
	sleep func(time.Duration)
	now   func() time.Time
	rec   Recorder
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithDraw replaces the uniform source used for sampling and bet translation.
func WithDraw(f func() float64) Option { return func(e *Engine) { e.draw = f } }

// WithRand seeds delays and bet method choice.
func WithRand(r *rand.Rand) Option { return func(e *Engine) { e.rng = r } }

func WithSleep(f func(time.Duration)) Option { return func(e *Engine) { e.sleep = f } }

func WithClock(f func() time.Time) Option { return func(e *Engine) { e.now = f } }

func WithRecorder(r Recorder) Option { return func(e *Engine) { e.rec = r } }

func New(id string, cfg Config, artifact abstraction.Artifact, act Actuator, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if artifact == nil || len(artifact.Depths()) == 0 {
		return nil, abstraction.ErrNoStrategy
	}
	if act == nil {
		return nil, fmt.Errorf("engine %s: nil actuator", id)
	}
	e := &Engine{
		id:       id,
		cfg:      cfg,
		artifact: artifact,
		act:      act,
		log:      zerolog.Nop(),
		sleep:    time.Sleep,
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.draw == nil {
		e.draw = e.rng.Float64
	}
	e.log = e.log.With().Str("table", id).Logger()
	return e, nil
}

func (e *Engine) ID() string { return e.id }

// Store exposes the committed beliefs for inspection.
func (e *Engine) Store() *BeliefStore { return &e.store }

// Tick processes one snapshot. On any error the belief store is unchanged.
func (e *Engine) Tick(ctx context.Context, s Snapshot) (dec *Decision, err error) {
	start := e.now()
	ctx, span := tracer.Start(ctx, "engine.Tick", trace.WithAttributes(attribute.String("table", e.id)))
	defer func() {
		class := Classify(err)
		ticksTotal.WithLabelValues(e.id, class.String()).Inc()
		if class == ClassTick || class == ClassTable {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		tickDuration.Observe(e.now().Sub(start).Seconds())
		span.End()
	}()

	if err := e.gate(ctx, s); err != nil {
		return nil, err
	}
	e.log.Debug().Object("snapshot", s).Msg("snapshot")

	cur := e.store.Current()
	rollback := cur != nil && s.SameReading(cur.Snapshot)
	if rollback {
		e.log.Warn().Str("path", cur.Path()).Msg("identical snapshot; previous action not fulfilled, reverting")
		rollbacksTotal.WithLabelValues(e.id).Inc()
	}
	base := e.store.Base(rollback)

	inf, err := e.infer(base, s)
	if err != nil {
		return nil, err
	}
	tbl, err := e.artifact.Table(inf.depth)
	if err != nil {
		return nil, fmt.Errorf("strategy for depth %d: %w", inf.depth, err)
	}
	e.log.Debug().
		Int("dealer", inf.dealer).
		Int64("bb", inf.bigBlind).
		Int("depth", inf.depth).
		Str("tree", tbl.Tree().Config()).
		Stringer("round", inf.round).
		Msg("inferred")

	node, err := e.resync(base, inf, tbl, s)
	if err != nil {
		return nil, err
	}
	tree := tbl.Tree()
	span.SetAttributes(
		attribute.String("round", inf.round.String()),
		attribute.Int("depth", inf.depth),
		attribute.String("node", tree.Describe(node)),
	)

	edge, err := e.selectEdge(tbl, node, s)
	if err != nil {
		return nil, err
	}
	p, err := e.translate(tree, node, edge, s, inf.bigBlind)
	if err != nil {
		return nil, err
	}
	next := tree.Child(node, p.commit)
	if next == abstraction.NoNode {
		return nil, inconsistent("no %s edge at %s", p.commit, tree.Describe(node))
	}
	span.SetAttributes(attribute.String("edge", p.commit.Name()))

	wait, lo, hi := e.decisionDelay(s, inf.bigBlind, inf.depth)
	e.log.Debug().Dur("wait", wait).Dur("min", lo).Dur("max", hi).Msg("waiting before acting")
	e.sleep(wait)

	if err := e.act.Dispatch(ctx, p.cmd); err != nil {
		return nil, &DispatchError{Cmd: p.cmd, Err: err}
	}
	e.log.Info().Str("node", tree.Describe(node)).Stringer("command", p.cmd).Msg("acted")

	e.sleep(e.postActionWait())

	handID := uuid.New()
	if !inf.newHand {
		handID = base.HandID
	}
	committed := &Belief{
		HandID:   handID,
		Dealer:   inf.dealer,
		BigBlind: inf.bigBlind,
		Depth:    inf.depth,
		Table:    tbl,
		Node:     next,
		Snapshot: s,
	}
	e.store.Commit(base, committed)
	decisionsTotal.WithLabelValues(e.id, p.commit.Name()).Inc()

	dec = &Decision{
		Table:    e.id,
		HandID:   handID,
		Path:     tree.PathString(node),
		Edge:     p.commit,
		Command:  p.cmd,
		Depth:    inf.depth,
		BigBlind: inf.bigBlind,
		Round:    inf.round,
		Rollback: rollback,
		Snapshot: s,
		At:       e.now(),
	}
	if e.rec != nil {
		if err := e.rec.Record(ctx, *dec); err != nil {
			e.log.Warn().Err(err).Msg("journal write failed")
		}
	}
	return dec, nil
}
