package engine

import (
	"math"
	"math/rand"
	"time"
)

// Interval is a closed range of durations.
type Interval struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

func (i Interval) valid() bool { return i.Min >= 0 && i.Max >= i.Min }

// decisionDelay models deliberation: the more of the effective stack is
// already in the pot, the longer we take.
func (e *Engine) decisionDelay(s Snapshot, bigBlind int64, depth int) (wait, lo, hi time.Duration) {
	invested := float64(s.TotalPot+s.ToCall()) / 2
	factor := 0.0
	if bigBlind > 0 && depth > 0 {
		factor = (invested / float64(bigBlind) * 2) / float64(depth)
	}
	factor = math.Max(0, math.Min(factor, 1))

	d0, d1 := float64(e.cfg.ActionDelay.Min), float64(e.cfg.ActionDelay.Max)
	window := e.cfg.ActionDelayWindow
	a := d0 + factor*(d1-d0)*window
	b := d1 - (1-factor)*(d1-d0)*window

	w := math.Max(0, normalBetween(e.rng, a, b))
	return time.Duration(w), time.Duration(a), time.Duration(b)
}

func (e *Engine) postActionWait() time.Duration {
	iv := e.cfg.PostActionWait
	if iv.Max <= iv.Min {
		return iv.Min
	}
	return iv.Min + time.Duration(e.rng.Int63n(int64(iv.Max-iv.Min)+1))
}

// normalBetween samples a normal centred in [a,b] with three sigmas to
// either bound, clamped to the range.
func normalBetween(r *rand.Rand, a, b float64) float64 {
	mean := (a + b) / 2
	sigma := (mean - a) / 3
	x := r.NormFloat64()*sigma + mean
	return math.Max(a, math.Min(x, b))
}
