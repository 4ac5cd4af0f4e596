package sim

import (
	"math/rand"

	"holdem-autopilot/card"
)

// ActionType 动作类型
type ActionType byte

const (
	ActionNone ActionType = iota
	ActionCheck
	ActionCall
	ActionRaise
	ActionFold
	ActionAllIn
)

var actionNames = map[ActionType]string{
	ActionNone:  "NONE",
	ActionCheck: "CHECK",
	ActionCall:  "CALL",
	ActionRaise: "RAISE",
	ActionFold:  "FOLD",
	ActionAllIn: "ALLIN",
}

func (a ActionType) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "UNKNOWN"
}

// View is what the opponent sees when it is asked to act.
type View struct {
	Street     int // 0=preflop, 1=flop, 2=turn, 3=river
	Hole       [2]card.Card
	Board      []card.Card
	Pot        int64 // collected plus both current bets
	CurrentBet int64
	MyBet      int64
	MyStack    int64
	MinRaiseTo int64
	Legal      []ActionType
}

func (v View) can(a ActionType) bool {
	for _, x := range v.Legal {
		if x == a {
			return true
		}
	}
	return false
}

// Decision is the opponent's move. Amount is the raise-to total for the
// street and is ignored for other actions.
type Decision struct {
	Action ActionType
	Amount int64
}

// Brain plays the opponent seat.
type Brain interface {
	Decide(v View) Decision
	Name() string
}

// Profile tunes a RuleBrain.
type Profile struct {
	Aggression float64 `yaml:"aggression"` // 0..1: bet/raise vs check/call
	Tightness  float64 `yaml:"tightness"`  // 0..1: 1 plays only premiums
	Bluffing   float64 `yaml:"bluffing"`
	Randomness float64 `yaml:"randomness"` // per-decision parameter noise
}

var DefaultProfile = Profile{Aggression: 0.45, Tightness: 0.35, Bluffing: 0.2, Randomness: 0.3}

// RuleBrain is a parameterised heuristic opponent.
type RuleBrain struct {
	profile Profile
	rng     *rand.Rand
}

func NewRuleBrain(p Profile, seed int64) *RuleBrain {
	return &RuleBrain{profile: p, rng: rand.New(rand.NewSource(seed))}
}

func (b *RuleBrain) Name() string { return "rule" }

func (b *RuleBrain) Decide(v View) Decision {
	p := b.profile
	aggression := clamp01(p.Aggression + (b.rng.Float64()-0.5)*p.Randomness*0.4)
	tightness := clamp01(p.Tightness + (b.rng.Float64()-0.5)*p.Randomness*0.3)

	if len(v.Legal) == 0 {
		return Decision{Action: ActionFold}
	}
	strength := b.strength(v)

	if v.Street == 0 && strength < tightness*0.6 {
		if v.can(ActionCheck) {
			return Decision{Action: ActionCheck}
		}
		if v.can(ActionFold) {
			return Decision{Action: ActionFold}
		}
	}

	aggressive := strength > (1.0-aggression)*0.5
	if aggressive && v.can(ActionRaise) {
		return Decision{Action: ActionRaise, Amount: b.raiseTo(v, aggression)}
	}
	if !aggressive && v.can(ActionRaise) && b.rng.Float64() < p.Bluffing*0.3 {
		return Decision{Action: ActionRaise, Amount: b.raiseTo(v, 0.4)}
	}

	if v.can(ActionCheck) {
		return Decision{Action: ActionCheck}
	}
	if v.can(ActionCall) {
		if strength > tightness*0.4 || b.rng.Float64() < (1.0-tightness)*0.5 {
			return Decision{Action: ActionCall}
		}
		return Decision{Action: ActionFold}
	}
	if v.can(ActionAllIn) {
		if strength > 0.6 || b.rng.Float64() < aggression*0.2 {
			return Decision{Action: ActionAllIn}
		}
		return Decision{Action: ActionFold}
	}
	return Decision{Action: v.Legal[0]}
}

// strength is a rough 0..1 score: ranks, pairs, suits and connectedness
// preflop; the made hand on the river; noise in between.
func (b *RuleBrain) strength(v View) float64 {
	c0, c1 := v.Hole[0], v.Hole[1]
	if !c0.Known() || !c1.Known() {
		return 0.3
	}
	r0, r1 := c0.HandRealVal(), c1.HandRealVal()
	s := float64(r0+r1) / 28.0
	if r0 == r1 {
		s += 0.25
	}
	if c0.Suit() == c1.Suit() {
		s += 0.05
	}
	if gap := r0 - r1; gap >= -2 && gap <= 2 {
		s += 0.05
	}
	switch {
	case len(v.Board) == 5:
		var seven [7]card.Card
		seven[0], seven[1] = c0, c1
		copy(seven[2:], v.Board)
		if score, err := card.Eval7(seven); err == nil {
			// the evaluator ranks roughly 7462 distinct hands
			s = 0.5*s + 0.5*float64(score)/7462
		}
	case v.Street > 0:
		s += (b.rng.Float64() - 0.5) * 0.2
	}
	return clamp01(s)
}

// raiseTo sizes between 2x and 3.5x the current bet, or a pot fraction
// when nobody has bet yet.
func (b *RuleBrain) raiseTo(v View, aggression float64) int64 {
	var to int64
	if v.CurrentBet == 0 {
		to = int64(float64(v.Pot) * (0.33 + aggression*0.67))
	} else {
		to = int64(float64(v.CurrentBet) * (2.0 + aggression*1.5))
	}
	if to < v.MinRaiseTo {
		to = v.MinRaiseTo
	}
	if all := v.MyStack + v.MyBet; to > all {
		to = all
	}
	return to
}

// Script replays fixed decisions, then falls back to checking or calling.
type Script struct {
	Moves []Decision
	next  int
}

func (s *Script) Name() string { return "script" }

func (s *Script) Decide(v View) Decision {
	if s.next < len(s.Moves) {
		d := s.Moves[s.next]
		s.next++
		if v.can(d.Action) {
			return d
		}
	}
	if v.can(ActionCheck) {
		return Decision{Action: ActionCheck}
	}
	if v.can(ActionCall) {
		return Decision{Action: ActionCall}
	}
	return Decision{Action: v.Legal[0]}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
