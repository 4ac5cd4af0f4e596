package abstraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTree(t *testing.T, cfg string) *Tree {
	t.Helper()
	tr, err := NewTree(cfg)
	require.NoError(t, err)
	return tr
}

func TestNewTree_RejectsBadConfig(t *testing.T) {
	for _, cfg := range []string{"", "nlhe-fc", "holdem-fc-20", "nlhe-fxz-20", "nlhe-fpa-20", "nlhe-fc-1"} {
		_, err := NewTree(cfg)
		assert.Error(t, err, cfg)
	}
}

func TestNewTree_RootChildren(t *testing.T) {
	tr := mustTree(t, "nlhe-fchqpwdta-20")
	root := tr.Root()

	assert.Equal(t, 0, tr.Player(root))
	assert.Equal(t, Preflop, tr.Round(root))
	assert.Equal(t, [2]int{1, 2}, tr.Pot(root))

	// 10x collapses into all-in at 10 big blinds
	assert.Equal(t,
		[]Action{Fold, Call, RaiseH, RaiseQ, RaiseP, RaiseW, RaiseD, RaiseA},
		tr.Actions(root))

	assert.Equal(t, [2]int{4, 2}, tr.Pot(tr.Child(root, RaiseH)))
	assert.Equal(t, [2]int{6, 2}, tr.Pot(tr.Child(root, RaiseP)))
	assert.Equal(t, [2]int{20, 2}, tr.Pot(tr.Child(root, RaiseA)))
	assert.Equal(t, 1, tr.Player(tr.Child(root, RaiseP)))
	assert.True(t, tr.Terminal(tr.Child(root, Fold)))
	assert.Equal(t, NoNode, tr.Child(root, RaiseT))
}

func TestTree_LimpCheckAdvancesRound(t *testing.T) {
	tr := mustTree(t, "nlhe-fchqpwdta-20")
	limp := tr.Call(tr.Root())
	require.NotEqual(t, NoNode, limp)
	assert.Equal(t, Preflop, tr.Round(limp))
	assert.Equal(t, 1, tr.Player(limp))
	assert.Equal(t, -1, tr.ChildIndex(limp, Fold), "no fold after a check")

	flop := tr.Call(limp)
	assert.Equal(t, Flop, tr.Round(flop))
	assert.Equal(t, 1, tr.Player(flop), "big blind opens postflop")
	assert.False(t, tr.Terminal(flop))

	// first check of the flop keeps the round
	n := tr.Call(flop)
	assert.Equal(t, Flop, tr.Round(n))
	assert.Equal(t, 0, tr.Player(n))
}

func TestTree_RiverCheckBehindIsTerminal(t *testing.T) {
	tr := mustTree(t, "nlhe-fchqpwdta-20")
	n, err := tr.Find("cCCcCcC")
	require.NoError(t, err)
	assert.Equal(t, River, tr.Round(n))
	assert.Equal(t, 0, tr.Player(n))
	assert.False(t, tr.Terminal(n))
	assert.True(t, tr.Terminal(tr.Call(n)))
}

func TestTree_CallingAllInIsTerminal(t *testing.T) {
	tr := mustTree(t, "nlhe-fchqpwdta-20")
	shove := tr.Child(tr.Root(), RaiseA)
	assert.Equal(t, []Action{Fold, Call}, tr.Actions(shove))
	assert.True(t, tr.Terminal(tr.Call(shove)))
	assert.Equal(t, NoNode, tr.LargestRaise(shove))
}

func TestTree_LimitedSmallRaisesOncePerRound(t *testing.T) {
	tr := mustTree(t, "nlhe-fcHpa-200")
	limp := tr.Call(tr.Root())
	h := tr.Child(limp, RaiseH)
	require.NotEqual(t, NoNode, h)
	// dealer re-raises, big blind may not go half-pot again this round
	back := tr.Child(h, RaiseP)
	require.NotEqual(t, NoNode, back)
	assert.Equal(t, NoNode, tr.Child(back, RaiseH))
	assert.NotEqual(t, NoNode, tr.Child(back, RaiseP))
}

func TestTree_PathRoundTrip(t *testing.T) {
	tr := mustTree(t, "nlhe-fchqpwdta-40")
	n, err := tr.Find("pQc")
	require.NoError(t, err)
	assert.Equal(t, "pQc", tr.PathString(n))
	assert.Equal(t, []Action{RaiseP, RaiseQ, Call}, tr.Path(n))
	assert.Equal(t, Flop, tr.Round(n))

	_, err = tr.Find("x")
	assert.Error(t, err)
	_, err = tr.Find("ff")
	assert.Error(t, err)
}

func TestTree_InfoSetsDenseOverNonTerminals(t *testing.T) {
	tr := mustTree(t, "nlhe-fchqpwdta-20")
	seen := make(map[int]bool)
	for i := 0; i < tr.Len(); i++ {
		id := tr.InfoSet(NodeID(i))
		if tr.Terminal(NodeID(i)) {
			assert.Equal(t, -1, id)
			continue
		}
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Equal(t, tr.InfoSets(), len(seen))
}

func TestTranslateBet(t *testing.T) {
	tr := mustTree(t, "nlhe-fchqpwdta-20")
	limp := tr.Call(tr.Root())
	require.Equal(t, []Action{Call, RaiseH, RaiseQ, RaiseP, RaiseW, RaiseD, RaiseA}, tr.Actions(limp))

	cases := []struct {
		name     string
		fraction float64
		draw     float64
		want     Action
	}{
		{"exact pot", 1.0, 0.99, RaiseP},
		{"between lower", 0.6, 0.5, RaiseH},
		{"between upper", 0.6, 0.6, RaiseQ},
		{"below smallest", 0.1, 0.0, RaiseH},
		{"beyond stack", 50, 0.0, RaiseA},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tr.TranslateBet(limp, tc.fraction, tc.draw)
			require.NotEqual(t, NoNode, got)
			assert.Equal(t, tc.want, tr.Action(got))
		})
	}

	shove := tr.Child(tr.Root(), RaiseA)
	assert.Equal(t, NoNode, tr.TranslateBet(shove, 1, 0))
}

func TestSoftTranslate_Bounds(t *testing.T) {
	assert.InDelta(t, 1.0, softTranslate(0.5, 0.5, 1.0), 1e-9)
	assert.InDelta(t, 0.0, softTranslate(0.5, 1.0, 1.0), 1e-9)
	assert.InDelta(t, 0.5625, softTranslate(0.5, 0.6, 0.75), 1e-9)
}
