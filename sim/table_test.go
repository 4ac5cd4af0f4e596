package sim

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdem-autopilot/abstraction"
	"holdem-autopilot/card"
	"holdem-autopilot/engine"
)

func newTestTable(t *testing.T, mutate func(*Config), moves ...Decision) *Table {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = 11
	if mutate != nil {
		mutate(&cfg)
	}
	tbl, err := NewTable("sim-1", cfg, WithBrain(&Script{Moves: moves}))
	require.NoError(t, err)
	return tbl
}

func next(t *testing.T, tbl *Table) engine.Snapshot {
	t.Helper()
	s, err := tbl.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2000), tbl.Chips(), "chips are conserved")
	return s
}

func TestConfigValidate(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.SmallBlind = 0 },
		func(c *Config) { c.SmallBlind = 30 },
		func(c *Config) { c.StartStack = 30 },
		func(c *Config) { c.Noise.Drop = 1.5 },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		if _, err := NewTable("x", cfg); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestTable_FirstCapture(t *testing.T) {
	tbl := newTestTable(t, nil)
	s := next(t, tbl)

	assert.True(t, s.Waiting)
	assert.True(t, s.Highlight[0])
	assert.True(t, s.Buttons.Has(engine.ButtonFold|engine.ButtonCall|engine.ButtonRaise))
	assert.True(t, s.Hole[0].Known() && s.Hole[1].Known())
	assert.Equal(t, abstraction.Preflop, s.Round())

	if s.Dealer[0] {
		assert.Equal(t, [2]int64{10, 20}, s.Bet)
		assert.Equal(t, int64(30), s.TotalPot)
		assert.Equal(t, int64(990), s.Stack)
	} else {
		// the opponent completed the small blind before we were asked
		assert.Equal(t, [2]int64{20, 20}, s.Bet)
		assert.Equal(t, int64(40), s.TotalPot)
		assert.Equal(t, int64(980), s.Stack)
	}
}

func TestTable_CheckDownReachesShowdown(t *testing.T) {
	tbl := newTestTable(t, nil)
	ctx := context.Background()
	boardLen := 0
	for i := 0; i < 20 && tbl.Stats().Hands < 2; i++ {
		s := next(t, tbl)
		if tbl.Stats().Hands == 2 {
			break
		}
		n := 0
		for _, c := range s.Board {
			if c.Known() {
				n++
			}
		}
		assert.GreaterOrEqual(t, n, boardLen, "board never shrinks within a hand")
		boardLen = n
		require.NoError(t, tbl.Dispatch(ctx, engine.Command{Kind: engine.CommandCall}))
	}
	st := tbl.Stats()
	assert.Equal(t, 2, st.Hands)
	assert.Equal(t, 1, st.Showdowns)
	assert.Contains(t, []int64{-20, 0, 20}, st.HeroNet)
}

func TestTable_FoldLosesBlind(t *testing.T) {
	tbl := newTestTable(t, nil)
	s := next(t, tbl)
	require.NoError(t, tbl.Dispatch(context.Background(), engine.Command{Kind: engine.CommandFold}))
	assert.Equal(t, -s.Bet[0], tbl.Stats().HeroNet)

	err := tbl.Dispatch(context.Background(), engine.Command{Kind: engine.CommandCall})
	assert.ErrorIs(t, err, ErrHandEnded)

	s2 := next(t, tbl)
	assert.Equal(t, 2, tbl.Stats().Hands)
	assert.NotEqual(t, s.Dealer, s2.Dealer, "button moves every hand")
}

func TestTable_RaiseIsClampedToMinimum(t *testing.T) {
	tbl := newTestTable(t, nil)
	ctx := context.Background()
	next(t, tbl)
	require.NoError(t, tbl.Dispatch(ctx, engine.Command{Kind: engine.CommandRaise, Amount: 5}))

	// the opponent must answer before we can act again
	err := tbl.Dispatch(ctx, engine.Command{Kind: engine.CommandCall})
	assert.ErrorIs(t, err, ErrOutOfTurn)

	s := next(t, tbl)
	assert.Equal(t, int64(80), s.TotalPot, "raise to 40 called")
	assert.Equal(t, abstraction.Flop, s.Round())
}

func TestTable_OverbetIsAllIn(t *testing.T) {
	tbl := newTestTable(t, nil)
	next(t, tbl)
	require.NoError(t, tbl.Dispatch(context.Background(), engine.Command{Kind: engine.CommandRaise, Amount: 5000}))

	// the scripted opponent cannot call for less than all and folds
	s := next(t, tbl)
	assert.Equal(t, int64(20), tbl.Stats().HeroNet)
	assert.Equal(t, 2, tbl.Stats().Hands)
	assert.False(t, s.AllIn[0])
}

func TestTable_DroppedCommandRepeatsReading(t *testing.T) {
	tbl := newTestTable(t, nil)
	s1 := next(t, tbl)
	tbl.DropNext()
	require.NoError(t, tbl.Dispatch(context.Background(), engine.Command{Kind: engine.CommandFold}))
	s2 := next(t, tbl)
	assert.True(t, s1.SameReading(s2))
	assert.Equal(t, 1, tbl.Stats().Dropped)
	assert.Equal(t, 1, tbl.Stats().Hands)
}

func TestTable_SitOut(t *testing.T) {
	tbl := newTestTable(t, func(c *Config) { c.Noise.HeroSitOut = 1 })
	s := next(t, tbl)
	require.True(t, s.SitOut[0])
	require.NoError(t, tbl.Dispatch(context.Background(), engine.Command{Kind: engine.CommandSitIn}))
	s = next(t, tbl)
	assert.False(t, s.SitOut[0])

	tbl = newTestTable(t, func(c *Config) { c.Noise.OpponentSitOut = 1 })
	ctx := context.Background()
	s = next(t, tbl)
	assert.True(t, s.SitOut[1])
	// an absent dealer folds its small blind, so we always see the button
	assert.True(t, s.Dealer[0])
	before, hands := tbl.Stats().HeroNet, tbl.Stats().Hands
	require.NoError(t, tbl.Dispatch(ctx, engine.Command{Kind: engine.CommandRaise, Amount: 60}))
	s = next(t, tbl)
	require.True(t, s.Dealer[0])

	// every hand started before ours was one where the absent opponent dealt
	// and forfeited its small blind
	skipped := int64(tbl.Stats().Hands - hands - 1)
	assert.Equal(t, before+20+10*skipped, tbl.Stats().HeroNet, "a sitting-out opponent folds to a raise")
}

func TestNoise_Corrupt(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	clean := engine.Snapshot{Stack: 990, Dealer: [2]bool{true, false}}
	clean.Hole = [2]card.Card{card.MustParse("As"), card.MustParse("Kd")}
	copy(clean.Board[:], []card.Card{card.MustParse("2c"), card.MustParse("7d"), card.MustParse("9h")})

	var st Stats
	n := Noise{Unreadable: 1, UnreadableDeal: 1, DoubleDealer: 1}
	for i := 0; i < 20; i++ {
		s := n.corrupt(rng, clean, &st)
		lost := !s.Hole[0].Known() || !s.Hole[1].Known() || s.Stack == engine.Unknown
		assert.True(t, lost)
		assert.Equal(t, abstraction.InvalidRound, s.Round(), "a lost flop card breaks the round")
		assert.Equal(t, [2]bool{true, true}, s.Dealer)
	}
	assert.Equal(t, 40, st.Unreadable)
	assert.Equal(t, 20, st.DoubleDealer)

	// the clean capture is a value and stays untouched
	assert.Equal(t, int64(990), clean.Stack)
}

func TestTable_OpponentRaiseShowsInCapture(t *testing.T) {
	tbl := newTestTable(t, nil, Decision{Action: ActionRaise, Amount: 60})
	s := next(t, tbl)
	if s.Dealer[0] {
		// the big blind answers our limp
		require.NoError(t, tbl.Dispatch(context.Background(), engine.Command{Kind: engine.CommandCall}))
		s = next(t, tbl)
	}
	assert.Equal(t, [2]int64{20, 60}, s.Bet)
	assert.Equal(t, int64(40), s.ToCall())
	assert.Equal(t, abstraction.Preflop, s.Round())
}

func TestTable_TimeBankActsForUs(t *testing.T) {
	tbl := newTestTable(t, func(c *Config) { c.TimeBank = 2 })
	first := next(t, tbl)
	assert.True(t, first.SameReading(next(t, tbl)))
	assert.Zero(t, tbl.Stats().TimedOut)

	third := next(t, tbl)
	assert.Equal(t, 1, tbl.Stats().TimedOut)
	assert.False(t, first.SameReading(third))
	if first.Dealer[0] {
		assert.Equal(t, int64(-10), tbl.Stats().HeroNet, "the clock folds our small blind")
	} else {
		assert.Equal(t, abstraction.Flop, third.Round(), "the clock checks our option")
	}
}
