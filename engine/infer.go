package engine

import (
	"math"

	"holdem-autopilot/abstraction"
)

type inference struct {
	round    abstraction.Round
	newHand  bool
	reason   string
	dealer   int
	bigBlind int64
	depth    int
	own, opp float64
}

// newHandReason explains why s cannot belong to the hand in prev; empty
// when it continues that hand.
func newHandReason(prev *Belief, s Snapshot) string {
	if !prev.live() {
		return "no hand in progress"
	}
	// dealing, the opponent can only face us with more than a big blind
	// after raising in this hand
	if s.unambiguousDealer() && s.Dealer[0] && s.Bet[1] > 2*s.Bet[0] {
		return ""
	}

	last := prev.Snapshot
	for i, c := range last.Board {
		if c.Known() && c != s.Board[i] {
			return "board cards changed"
		}
	}
	if s.unambiguousDealer() && last.unambiguousDealer() && s.Dealer != last.Dealer {
		return "dealer changed"
	}
	if s.Hole != last.Hole {
		return "hole cards changed"
	}
	if s.Stack > 0 && last.Stack > 0 && s.Stack > last.Stack {
		return "stack increased"
	}
	if s.TotalPot < last.TotalPot {
		return "total pot decreased"
	}
	return ""
}

// StackEstimates derives both stacks at the start of the hand. Only ours is
// read; the opponent's follows from the chips in play.
func StackEstimates(s Snapshot, totalChips int64) (own, opp float64) {
	own = float64(s.Stack) + float64(s.TotalPot-s.Bet[0]-s.Bet[1])/2 + float64(s.Bet[0])
	return own, float64(totalChips) - own
}

// StackDepth is the effective stack in small blinds.
func StackDepth(own, opp float64, bigBlind int64) int {
	return int(math.Ceil(math.Min(own, opp) / float64(bigBlind) * 2))
}

func (e *Engine) infer(base *Belief, s Snapshot) (inference, error) {
	if s.TotalPot < 0 || s.Bet[0] < 0 || s.Bet[1] < 0 {
		return inference{}, inconsistent("unreadable pot or bets (pot=%d bet=%v)", s.TotalPot, s.Bet)
	}
	if !s.Dealer[0] && !s.Dealer[1] {
		return inference{}, inconsistent("no dealer button visible")
	}
	inf := inference{round: s.Round()}
	if inf.round == abstraction.InvalidRound {
		return inference{}, inconsistent("board %s does not form a street", cardsString(s.Board[:]))
	}

	inf.reason = newHandReason(base, s)
	inf.newHand = inf.reason != ""
	if inf.newHand {
		e.log.Info().Str("reason", inf.reason).Msg("new hand")
		if s.Bet[0] <= 0 || (s.Bet[1] <= 0 && !s.AllIn[1]) {
			return inference{}, inconsistent("new hand without both blinds posted (bet=%v)", s.Bet)
		}
	}

	dealer, ambiguous := s.DealerSeat()
	if ambiguous {
		if inf.newHand {
			dealer = e.cfg.DefaultDealer
		} else {
			dealer = base.Dealer
		}
		e.log.Warn().Int("dealer", dealer).Bool("new_hand", inf.newHand).Msg("both dealer buttons lit")
		heuristicTotal.WithLabelValues(heuristicDealer).Inc()
	}
	if !inf.newHand && dealer != base.Dealer {
		return inference{}, inconsistent("dealer moved to seat %d mid-hand", dealer)
	}
	inf.dealer = dealer

	if inf.newHand {
		// only the big blind seat's post is trustworthy
		inf.bigBlind = s.Bet[0]
		if dealer == 0 {
			inf.bigBlind = 2 * s.Bet[0]
		}
	} else {
		inf.bigBlind = base.BigBlind
	}
	if inf.bigBlind <= 0 {
		e.log.Warn().Int64("read", inf.bigBlind).Int64("default", e.cfg.DefaultBigBlind).Msg("invalid blind; using default")
		heuristicTotal.WithLabelValues(heuristicBlind).Inc()
		inf.bigBlind = e.cfg.DefaultBigBlind
	}

	if s.Stack <= 0 {
		return inference{}, inconsistent("stack %d is not positive", s.Stack)
	}
	inf.own, inf.opp = StackEstimates(s, e.cfg.TotalChips)
	if inf.own <= 0 || inf.opp <= 0 {
		return inference{}, inconsistent("stack estimates not positive (own=%.1f opp=%.1f)", inf.own, inf.opp)
	}
	inf.depth = StackDepth(inf.own, inf.opp, inf.bigBlind)
	return inf, nil
}
