package sim

import (
	"fmt"
	"math/rand"

	"holdem-autopilot/card"
	"holdem-autopilot/engine"
)

// Noise corrupts captures and commands the way a screen-reading bot sees
// them. Each field is a per-event probability.
type Noise struct {
	Duplicate      float64 `yaml:"duplicate"`       // repeat the previous capture
	Unreadable     float64 `yaml:"unreadable"`      // lose a hole card or the stack
	UnreadableDeal float64 `yaml:"unreadable_deal"` // lose a board card
	DoubleDealer   float64 `yaml:"double_dealer"`   // both dealer buttons read on
	Drop           float64 `yaml:"drop"`            // acknowledge a command but ignore it
	HeroSitOut     float64 `yaml:"hero_sit_out"`    // per hand
	OpponentSitOut float64 `yaml:"opponent_sit_out"`
}

func (n Noise) validate() error {
	for name, p := range map[string]float64{
		"duplicate":        n.Duplicate,
		"unreadable":       n.Unreadable,
		"unreadable_deal":  n.UnreadableDeal,
		"double_dealer":    n.DoubleDealer,
		"drop":             n.Drop,
		"hero_sit_out":     n.HeroSitOut,
		"opponent_sit_out": n.OpponentSitOut,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("noise %s must be in [0,1], got %v", name, p)
		}
	}
	return nil
}

func (n Noise) zero() bool { return n == Noise{} }

// corrupt applies capture noise to a clean snapshot.
func (n Noise) corrupt(rng *rand.Rand, s engine.Snapshot, st *Stats) engine.Snapshot {
	if n.Unreadable > 0 && rng.Float64() < n.Unreadable {
		st.Unreadable++
		if rng.Intn(2) == 0 {
			s.Hole[rng.Intn(2)] = card.CardInvalid
		} else {
			s.Stack = engine.Unknown
		}
	}
	if n.UnreadableDeal > 0 && s.Board[0].Known() && rng.Float64() < n.UnreadableDeal {
		st.Unreadable++
		s.Board[rng.Intn(3)] = card.CardInvalid
	}
	if n.DoubleDealer > 0 && rng.Float64() < n.DoubleDealer {
		st.DoubleDealer++
		s.Dealer = [2]bool{true, true}
	}
	return s
}
