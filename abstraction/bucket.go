package abstraction

import (
	"errors"
	"fmt"
	"math"

	"holdem-autopilot/card"
)

var ErrUnreadableCards = errors.New("cards required for bucketing are unreadable")

// Bucketer classifies hole and board cards into a per-round bucket.
type Bucketer interface {
	Bucket(r Round, hole [2]card.Card, board [5]card.Card) (int, error)
}

// HandStrength buckets by the share of opponent holdings beaten.
// Preflop uses the Chen score; later rounds enumerate opponent hands and
// the remaining runouts with the 7-card evaluator.
type HandStrength struct {
	Counts [4]int
	// FlopStride subsamples flop runouts; 1 enumerates all of them.
	FlopStride int
}

func NewHandStrength(counts [4]int) *HandStrength {
	return &HandStrength{Counts: counts, FlopStride: 7}
}

func (h *HandStrength) Bucket(r Round, hole [2]card.Card, board [5]card.Card) (int, error) {
	if r < Preflop || r > River {
		return -1, fmt.Errorf("bucket for round %d", r)
	}
	if !hole[0].Known() || !hole[1].Known() {
		return -1, ErrUnreadableCards
	}
	n := r.BoardCards()
	for i := 0; i < n; i++ {
		if !board[i].Known() {
			return -1, ErrUnreadableCards
		}
	}

	count := h.Counts[r]
	if count <= 1 {
		return 0, nil
	}

	var s float64
	var err error
	if r == Preflop {
		s = chenStrength(hole)
	} else {
		s, err = h.strength(hole, board[:n])
		if err != nil {
			return -1, err
		}
	}
	b := int(s * float64(count))
	if b >= count {
		b = count - 1
	}
	if b < 0 {
		b = 0
	}
	return b, nil
}

// Strength exposes the raw [0,1] strength used for bucketing.
func (h *HandStrength) Strength(hole [2]card.Card, board []card.Card) (float64, error) {
	if len(board) == 0 {
		return chenStrength(hole), nil
	}
	return h.strength(hole, board)
}

func (h *HandStrength) strength(hole [2]card.Card, board []card.Card) (float64, error) {
	used := append([]card.Card{hole[0], hole[1]}, board...)
	for i := range used {
		for j := i + 1; j < len(used); j++ {
			if used[i] == used[j] {
				return 0, fmt.Errorf("card %s appears twice", used[i])
			}
		}
	}
	rest := card.FullDeck().Without(used...)

	stride := 1
	if len(board) == 3 && h.FlopStride > 1 {
		stride = h.FlopStride
	}

	var runouts [][]card.Card
	switch len(board) {
	case 5:
		runouts = [][]card.Card{nil}
	case 4:
		for _, c := range rest {
			runouts = append(runouts, []card.Card{c})
		}
	case 3:
		k := 0
		for i := 0; i < len(rest); i++ {
			for j := i + 1; j < len(rest); j++ {
				if k%stride == 0 {
					runouts = append(runouts, []card.Card{rest[i], rest[j]})
				}
				k++
			}
		}
	default:
		return 0, fmt.Errorf("board of %d cards", len(board))
	}

	var win, total float64
	for _, ro := range runouts {
		var full [5]card.Card
		copy(full[:], board)
		copy(full[len(board):], ro)

		mine, err := card.Eval7([7]card.Card{hole[0], hole[1], full[0], full[1], full[2], full[3], full[4]})
		if err != nil {
			return 0, err
		}
		opp := rest.Without(ro...)
		for i := 0; i < len(opp); i++ {
			for j := i + 1; j < len(opp); j++ {
				theirs, err := card.Eval7([7]card.Card{opp[i], opp[j], full[0], full[1], full[2], full[3], full[4]})
				if err != nil {
					return 0, err
				}
				switch {
				case mine > theirs:
					win++
				case mine == theirs:
					win += 0.5
				}
				total++
			}
		}
	}
	if total == 0 {
		return 0, nil
	}
	return win / total, nil
}

// chenStrength normalizes the Chen formula score (-1..20) into [0,1].
func chenStrength(hole [2]card.Card) float64 {
	hi, lo := hole[0].HandRealVal(), hole[1].HandRealVal()
	if lo > hi {
		hi, lo = lo, hi
	}

	var score float64
	switch hi {
	case 14:
		score = 10
	case 13:
		score = 8
	case 12:
		score = 7
	case 11:
		score = 6
	default:
		score = float64(hi) / 2
	}

	if hi == lo {
		score *= 2
		if score < 5 {
			score = 5
		}
	} else {
		if hole[0].Suit() == hole[1].Suit() {
			score += 2
		}
		gap := hi - lo - 1
		switch {
		case gap == 1:
			score--
		case gap == 2:
			score -= 2
		case gap == 3:
			score -= 4
		case gap >= 4:
			score -= 5
		}
		if gap <= 1 && hi < 12 {
			score++
		}
	}

	return (math.Ceil(score) + 1) / 21
}
