package abstraction

import "strings"

// Action is an edge label in the betting tree. Raise sizes ascend with the
// action rank, which the resynchronizer relies on when replaying paths.
type Action int8

const (
	Fold   Action = iota
	Call          // check or call
	RaiseO        // 0.25 pot
	RaiseH        // 0.5 pot
	RaiseQ        // 0.75 pot
	RaiseP        // 1 pot
	RaiseW        // 1.5 pot
	RaiseD        // 2 pot
	RaiseV        // 5 pot
	RaiseT        // 10 pot
	RaiseA        // all-in
	NumActions

	NoAction Action = -1
)

// AllInFraction is the pot fraction that stands for "everything".
const AllInFraction = 999.0

const actionLetters = "fcohqpwdvta"

var actionNames = [NumActions]string{
	Fold:   "FOLD",
	Call:   "CALL",
	RaiseO: "RAISE_O",
	RaiseH: "RAISE_H",
	RaiseQ: "RAISE_Q",
	RaiseP: "RAISE_P",
	RaiseW: "RAISE_W",
	RaiseD: "RAISE_D",
	RaiseV: "RAISE_V",
	RaiseT: "RAISE_T",
	RaiseA: "RAISE_A",
}

var raiseFactors = [NumActions]float64{
	RaiseO: 0.25,
	RaiseH: 0.5,
	RaiseQ: 0.75,
	RaiseP: 1.0,
	RaiseW: 1.5,
	RaiseD: 2.0,
	RaiseV: 5.0,
	RaiseT: 10.0,
	RaiseA: AllInFraction,
}

func (a Action) Valid() bool { return a >= Fold && a < NumActions }

// Name is the human readable edge name sent along with raise commands.
func (a Action) Name() string {
	if !a.Valid() {
		return "NONE"
	}
	return actionNames[a]
}

func (a Action) String() string { return a.Name() }

func (a Action) IsRaise() bool { return a > Call && a < NumActions }

// Factor is the raise size as a fraction of the pot after calling; 0 for fold and call.
func (a Action) Factor() float64 {
	if !a.Valid() {
		return 0
	}
	return raiseFactors[a]
}

func (a Action) Letter() byte {
	if !a.Valid() {
		return '?'
	}
	return actionLetters[a]
}

func (a Action) mask() mask { return 1 << uint(a) }

// ParseAction accepts a letter ("p"), or a name ("RAISE_P", "call").
func ParseAction(s string) (Action, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 1 {
		i := strings.IndexByte(actionLetters, s[0]|0x20)
		if i >= 0 {
			return Action(i), true
		}
		return NoAction, false
	}
	up := strings.ToUpper(s)
	for i, n := range actionNames {
		if n == up {
			return Action(i), true
		}
	}
	return NoAction, false
}

type mask uint16

// Round is a betting street.
type Round int8

const (
	Preflop Round = iota
	Flop
	Turn
	River

	InvalidRound Round = -1
)

func (r Round) String() string {
	switch r {
	case Preflop:
		return "preflop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	}
	return "invalid"
}

// BoardCards is how many board cards are dealt by the start of the round.
func (r Round) BoardCards() int {
	switch r {
	case Flop:
		return 3
	case Turn:
		return 4
	case River:
		return 5
	}
	return 0
}
