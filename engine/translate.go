package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"holdem-autopilot/abstraction"
)

type CommandKind int

const (
	CommandFold CommandKind = iota
	CommandCall
	CommandRaise
	CommandSitIn
)

func (k CommandKind) String() string {
	switch k {
	case CommandFold:
		return "fold"
	case CommandCall:
		return "call"
	case CommandRaise:
		return "raise"
	case CommandSitIn:
		return "sit-in"
	}
	return "unknown"
}

// BetMethod hints how the actuator should enter a raise amount.
type BetMethod int

const (
	MethodDoubleClickInput BetMethod = iota
	MethodClickTable
)

// Command is what the engine asks the actuator to do.
type Command struct {
	Kind    CommandKind   `json:"kind"`
	Edge    string        `json:"edge,omitempty"` // tree edge name, e.g. RAISE_P
	Amount  int64         `json:"amount,omitempty"`
	MinBet  int64         `json:"min_bet,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty"`
	Method  BetMethod     `json:"method,omitempty"`
}

func (c Command) String() string {
	if c.Kind == CommandRaise {
		return fmt.Sprintf("raise %s to %d (min %d)", c.Edge, c.Amount, c.MinBet)
	}
	return c.Kind.String()
}

// Actuator delivers commands to the table. It reports whether the button
// presses succeeded, nothing more.
type Actuator interface {
	Dispatch(ctx context.Context, cmd Command) error
}

// sizing is a raise amount bounded to what the table accepts.
type sizing struct {
	amount, minBet, maxBet int64
	allIn                  bool
}

// sizeRaise turns a pot fraction into a raise-to amount.
func (e *Engine) sizeRaise(s Snapshot, bigBlind int64, fraction float64, allInEdge bool) (sizing, error) {
	toCall := s.ToCall()
	maxBet := s.Stack + s.Bet[0]
	if maxBet <= 0 {
		return sizing{}, inconsistent("no chips to raise with (stack=%d bet=%d)", s.Stack, s.Bet[0])
	}
	minBet := min(s.Bet[1]+max(bigBlind, toCall), maxBet)

	raw := float64(s.Bet[1]) + fraction*float64(s.TotalPot+toCall)
	if p := e.cfg.BetRounding; p > 0 {
		if rounded := math.Round(raw/float64(p)) * float64(p); rounded != raw {
			e.log.Debug().Float64("raw", raw).Float64("rounded", rounded).Int64("multiple", p).Msg("bet rounded")
			raw = rounded
		}
	}
	amount := maxBet
	if raw < float64(maxBet) {
		amount = int64(math.Floor(raw))
	}
	amount = max(minBet, min(amount, maxBet))

	sz := sizing{amount: amount, minBet: minBet, maxBet: maxBet, allIn: allInEdge}
	if allInEdge {
		sz.amount = maxBet
		return sz, nil
	}

	oppMax := e.cfg.TotalChips - (s.Stack + s.TotalPot - s.Bet[1])
	if oppMax <= 0 {
		return sizing{}, inconsistent("opponent has no chips behind (%d)", oppMax)
	}
	if thr := e.cfg.AllInThreshold; thr > 0 {
		own := float64(amount) / float64(maxBet)
		opp := float64(amount) / float64(oppMax)
		switch {
		case own >= thr:
			e.log.Info().Int64("amount", amount).Int64("max_bet", maxBet).Float64("ratio", own).Msg("bet close to our stack; going all-in")
			sz.amount, sz.allIn = maxBet, true
		case opp >= thr:
			e.log.Info().Int64("amount", amount).Int64("opp_max", oppMax).Float64("ratio", opp).Msg("bet close to opponent stack; going all-in")
			sz.amount, sz.allIn = maxBet, true
		}
	}
	return sz, nil
}

// plan is a command plus the edge the belief advances along once it lands.
type plan struct {
	cmd    Command
	chosen abstraction.Action
	commit abstraction.Action
}

// translate converts the sampled edge into a concrete command.
func (e *Engine) translate(tree *abstraction.Tree, node abstraction.NodeID, edge abstraction.Action, s Snapshot, bigBlind int64) (plan, error) {
	p := plan{chosen: edge, commit: edge}
	timeout := e.cfg.MaxActionWait

	fraction := edge.Factor()
	switch edge {
	case abstraction.Fold:
		p.cmd = Command{Kind: CommandFold, Timeout: timeout}
		return p, nil
	case abstraction.Call:
		// calling would end the hand before the river in the tree; make
		// the real table agree by shoving
		if tree.Round(node) < abstraction.River && tree.Terminal(tree.Call(node)) {
			e.log.Info().Msg("translating pre-river terminal call to all-in")
			edge = abstraction.RaiseA
			fraction = abstraction.AllInFraction
		} else {
			p.cmd = Command{Kind: CommandCall, Timeout: timeout}
			return p, nil
		}
	}

	sz, err := e.sizeRaise(s, bigBlind, fraction, edge == abstraction.RaiseA)
	if err != nil {
		return plan{}, err
	}
	if sz.allIn {
		edge = abstraction.RaiseA
	}
	if tree.Child(node, edge) != abstraction.NoNode {
		p.commit = edge
	}
	p.cmd = Command{
		Kind:    CommandRaise,
		Edge:    edge.Name(),
		Amount:  sz.amount,
		MinBet:  sz.minBet,
		Timeout: timeout,
		Method:  e.betMethod(),
	}
	return p, nil
}

// betMethod picks the first method whose cumulative probability exceeds a
// uniform draw.
func (e *Engine) betMethod() BetMethod {
	probs := e.cfg.BetMethodProbabilities
	x := e.rng.Float64()
	for i, p := range probs {
		if x < p && p > 0 {
			return BetMethod(i)
		}
	}
	return MethodDoubleClickInput
}
