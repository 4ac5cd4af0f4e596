package engine

import (
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdem-autopilot/abstraction"
)

func testEngine(mutate func(*Config)) *Engine {
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return &Engine{cfg: cfg, log: zerolog.Nop(), rng: rand.New(rand.NewSource(7))}
}

func TestSizeRaise(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*Config)
		pot      int64
		bet      [2]int64
		stack    int64
		fraction float64
		want     sizing
	}{
		{
			name: "pot bet", pot: 40, stack: 980, fraction: 1,
			want: sizing{amount: 40, minBet: 20, maxBet: 980},
		},
		{
			name: "rounded", mutate: func(c *Config) { c.BetRounding = 25 }, pot: 40, stack: 980, fraction: 1,
			want: sizing{amount: 50, minBet: 20, maxBet: 980},
		},
		{
			name: "min clamp", pot: 40, stack: 980, fraction: 0.1,
			want: sizing{amount: 20, minBet: 20, maxBet: 980},
		},
		{
			name: "facing a bet", pot: 80, bet: [2]int64{20, 60}, stack: 980, fraction: 1,
			want: sizing{amount: 180, minBet: 100, maxBet: 1000},
		},
		{
			name: "close to our stack", pot: 200, stack: 100, fraction: 1,
			want: sizing{amount: 100, minBet: 20, maxBet: 100, allIn: true},
		},
		{
			name: "close to opponent stack", pot: 200, stack: 1500, fraction: 1.5,
			want: sizing{amount: 1500, minBet: 20, maxBet: 1500, allIn: true},
		},
		{
			name: "threshold disabled", mutate: func(c *Config) { c.AllInThreshold = 0 }, pot: 200, stack: 1500, fraction: 1.5,
			want: sizing{amount: 300, minBet: 20, maxBet: 1500},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := testEngine(tc.mutate)
			s := Snapshot{TotalPot: tc.pot, Bet: tc.bet, Stack: tc.stack}
			got, err := e.sizeRaise(s, 20, tc.fraction, false)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSizeRaise_Errors(t *testing.T) {
	e := testEngine(nil)
	_, err := e.sizeRaise(Snapshot{Stack: 0}, 20, 1, false)
	assert.Error(t, err)

	// our stack plus the pot already exceeds every chip in play
	_, err = e.sizeRaise(Snapshot{TotalPot: 100, Stack: 1950}, 20, 1, false)
	assert.Error(t, err)
}

func TestSizeRaise_StaysWithinBounds(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	e := testEngine(func(c *Config) { c.BetRounding = 5 })
	for i := 0; i < 2000; i++ {
		stack := 1 + r.Int63n(1500)
		bet0 := r.Int63n(200)
		bet1 := bet0 + r.Int63n(300)
		pot := bet0 + bet1 + r.Int63n(200)
		if stack+pot-bet1 >= e.cfg.TotalChips {
			continue
		}
		s := Snapshot{TotalPot: pot, Bet: [2]int64{bet0, bet1}, Stack: stack}
		f := []float64{0.25, 0.5, 1, 2, 10, abstraction.AllInFraction}[r.Intn(6)]

		sz, err := e.sizeRaise(s, 20, f, false)
		require.NoError(t, err)
		assert.LessOrEqual(t, sz.minBet, sz.amount)
		assert.LessOrEqual(t, sz.amount, sz.maxBet)

		oppMax := e.cfg.TotalChips - (s.Stack + s.TotalPot - s.Bet[1])
		if float64(sz.amount)/float64(sz.maxBet) >= e.cfg.AllInThreshold ||
			float64(sz.amount)/float64(oppMax) >= e.cfg.AllInThreshold {
			assert.Equal(t, sz.maxBet, sz.amount)
		}
		if sz.allIn {
			assert.Equal(t, sz.maxBet, sz.amount)
		}
	}
}

func TestTranslate_EdgeCommands(t *testing.T) {
	tree, err := abstraction.NewTree("nlhe-fchpa-100")
	require.NoError(t, err)
	e := testEngine(nil)
	root := tree.Root()
	s := Snapshot{TotalPot: 30, Bet: [2]int64{10, 20}, Stack: 990}

	p, err := e.translate(tree, root, abstraction.Fold, s, 20)
	require.NoError(t, err)
	assert.Equal(t, CommandFold, p.cmd.Kind)

	p, err = e.translate(tree, root, abstraction.Call, s, 20)
	require.NoError(t, err)
	assert.Equal(t, CommandCall, p.cmd.Kind)
	assert.Equal(t, abstraction.Call, p.commit)

	p, err = e.translate(tree, root, abstraction.RaiseP, s, 20)
	require.NoError(t, err)
	assert.Equal(t, CommandRaise, p.cmd.Kind)
	assert.Equal(t, "RAISE_P", p.cmd.Edge)
	assert.Equal(t, int64(60), p.cmd.Amount)
	assert.Equal(t, int64(40), p.cmd.MinBet)
	assert.Equal(t, abstraction.RaiseP, p.commit)

	// a raise relabelled as all-in commits to the all-in child
	short := Snapshot{TotalPot: 30, Bet: [2]int64{10, 20}, Stack: 60}
	p, err = e.translate(tree, root, abstraction.RaiseP, short, 20)
	require.NoError(t, err)
	assert.Equal(t, "RAISE_A", p.cmd.Edge)
	assert.Equal(t, int64(70), p.cmd.Amount)
	assert.Equal(t, abstraction.RaiseP, p.chosen)
	assert.Equal(t, abstraction.RaiseA, p.commit)
}

func TestBetMethod(t *testing.T) {
	e := testEngine(func(c *Config) { c.BetMethodProbabilities = []float64{0, 1} })
	for i := 0; i < 20; i++ {
		assert.Equal(t, MethodClickTable, e.betMethod())
	}
	e = testEngine(func(c *Config) { c.BetMethodProbabilities = []float64{1, 1} })
	assert.Equal(t, MethodDoubleClickInput, e.betMethod())
}
