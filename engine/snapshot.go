package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"holdem-autopilot/abstraction"
	"holdem-autopilot/card"
)

// Unknown marks a numeric reading that could not be recognized.
const Unknown int64 = -1

// Buttons is the set of action buttons visible on the table.
type Buttons uint8

const (
	ButtonFold Buttons = 1 << iota
	ButtonCall
	ButtonRaise
	ButtonInput
)

func (b Buttons) Has(x Buttons) bool { return b&x == x }

func (b Buttons) String() string {
	if b == 0 {
		return "-"
	}
	var parts []string
	for _, x := range []struct {
		bit  Buttons
		name string
	}{{ButtonFold, "fold"}, {ButtonCall, "call"}, {ButtonRaise, "raise"}, {ButtonInput, "input"}} {
		if b.Has(x.bit) {
			parts = append(parts, x.name)
		}
	}
	return strings.Join(parts, "|")
}

// Snapshot is one capture of the table. Seat 0 is always us.
type Snapshot struct {
	TotalPot  int64        `json:"total_pot"`
	Bet       [2]int64     `json:"bet"`
	Stack     int64        `json:"stack"`
	Dealer    [2]bool      `json:"dealer"`
	AllIn     [2]bool      `json:"all_in"`
	SitOut    [2]bool      `json:"sit_out"`
	Highlight [2]bool      `json:"highlight"`
	Waiting   bool         `json:"waiting"`
	Buttons   Buttons      `json:"buttons"`
	Hole      [2]card.Card `json:"hole"`
	Board     [5]card.Card `json:"board"`
	TakenAt   time.Time    `json:"taken_at"`
}

// SameReading reports whether two captures show the same hole, board,
// stack and bets. A repeat means the last command never landed.
func (s Snapshot) SameReading(o Snapshot) bool {
	return s.Hole == o.Hole && s.Board == o.Board && s.Stack == o.Stack && s.Bet == o.Bet
}

// Round derives the street from the visible board cards.
func (s Snapshot) Round() abstraction.Round {
	b := s.Board
	switch {
	case b[0].Known() && b[1].Known() && b[2].Known():
		switch {
		case !b[3].Known():
			return abstraction.Flop
		case !b[4].Known():
			return abstraction.Turn
		}
		return abstraction.River
	case !b[0].Known() && !b[1].Known() && !b[2].Known():
		return abstraction.Preflop
	}
	return abstraction.InvalidRound
}

// DealerSeat returns the seat showing the dealer button. ambiguous is set
// when both buttons read on; seat is -1 when neither does.
func (s Snapshot) DealerSeat() (seat int, ambiguous bool) {
	switch {
	case s.Dealer[0] && s.Dealer[1]:
		return -1, true
	case s.Dealer[0]:
		return 0, false
	case s.Dealer[1]:
		return 1, false
	}
	return -1, false
}

func (s Snapshot) unambiguousDealer() bool { return s.Dealer[0] != s.Dealer[1] }

// ToCall is what we owe to match the opponent.
func (s Snapshot) ToCall() int64 { return s.Bet[1] - s.Bet[0] }

func cardsString(cards []card.Card) string {
	var b strings.Builder
	for _, c := range cards {
		if !c.Known() {
			break
		}
		b.WriteString(c.String())
	}
	return b.String()
}

func (s Snapshot) String() string {
	return fmt.Sprintf("pot=%d bet=%v stack=%d dealer=%v allin=%v sitout=%v hl=%v buttons=%s hole=%s%s board=%s",
		s.TotalPot, s.Bet, s.Stack, s.Dealer, s.AllIn, s.SitOut, s.Highlight, s.Buttons,
		s.Hole[0], s.Hole[1], cardsString(s.Board[:]))
}

// MarshalZerologObject lets snapshots be logged with Object("snapshot", s).
func (s Snapshot) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("pot", s.TotalPot).
		Int64("bet0", s.Bet[0]).
		Int64("bet1", s.Bet[1]).
		Int64("stack", s.Stack).
		Str("hole", s.Hole[0].String()+s.Hole[1].String()).
		Str("board", cardsString(s.Board[:])).
		Str("buttons", s.Buttons.String()).
		Bool("dealer0", s.Dealer[0]).
		Bool("dealer1", s.Dealer[1]).
		Bool("allin1", s.AllIn[1])
}
