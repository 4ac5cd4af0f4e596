package abstraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdem-autopilot/card"
)

func hole(t *testing.T, a, b string) [2]card.Card {
	t.Helper()
	return [2]card.Card{card.MustParse(a), card.MustParse(b)}
}

func board(t *testing.T, cards ...string) [5]card.Card {
	t.Helper()
	var out [5]card.Card
	for i, c := range cards {
		out[i] = card.MustParse(c)
	}
	return out
}

func TestHandStrength_Preflop(t *testing.T) {
	h := NewHandStrength([4]int{8, 8, 8, 8})

	b, err := h.Bucket(Preflop, hole(t, "As", "Ah"), board(t))
	require.NoError(t, err)
	assert.Equal(t, 7, b)

	b, err = h.Bucket(Preflop, hole(t, "7s", "2d"), board(t))
	require.NoError(t, err)
	assert.Equal(t, 0, b)

	suited, err := h.Strength(hole(t, "Ks", "Qs"), nil)
	require.NoError(t, err)
	offsuit, err := h.Strength(hole(t, "Ks", "Qd"), nil)
	require.NoError(t, err)
	assert.Greater(t, suited, offsuit)
}

func TestHandStrength_River(t *testing.T) {
	h := NewHandStrength([4]int{8, 8, 8, 8})

	b, err := h.Bucket(River, hole(t, "As", "Ks"), board(t, "Qs", "Js", "Ts", "2c", "3d"))
	require.NoError(t, err)
	assert.Equal(t, 7, b)

	weak, err := h.Strength(hole(t, "7c", "2h"), []card.Card{
		card.MustParse("As"), card.MustParse("Kd"), card.MustParse("Qh"), card.MustParse("Jc"), card.MustParse("9s"),
	})
	require.NoError(t, err)
	assert.Less(t, weak, 0.5)
}

func TestHandStrength_Errors(t *testing.T) {
	h := NewHandStrength([4]int{8, 8, 8, 8})

	_, err := h.Bucket(Preflop, [2]card.Card{card.MustParse("As"), card.CardInvalid}, board(t))
	assert.ErrorIs(t, err, ErrUnreadableCards)

	_, err = h.Bucket(Turn, hole(t, "As", "Ah"), board(t, "2c", "3d", "4h"))
	assert.ErrorIs(t, err, ErrUnreadableCards)

	_, err = h.Bucket(River, hole(t, "As", "Ah"), board(t, "As", "3d", "4h", "5c", "9d"))
	assert.Error(t, err)

	_, err = h.Bucket(InvalidRound, hole(t, "As", "Ah"), board(t))
	assert.Error(t, err)
}

func TestHandStrength_SingleBucket(t *testing.T) {
	h := NewHandStrength([4]int{1, 1, 1, 1})
	b, err := h.Bucket(Flop, hole(t, "As", "Ah"), board(t, "2c", "3d", "4h"))
	require.NoError(t, err)
	assert.Equal(t, 0, b)
}
