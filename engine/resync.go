package engine

import (
	"holdem-autopilot/abstraction"
)

// resync walks the belief's node forward until it matches what the
// snapshot shows. It returns the node at which we now have to act.
func (e *Engine) resync(base *Belief, inf inference, tbl abstraction.DecisionTable, s Snapshot) (abstraction.NodeID, error) {
	tree := tbl.Tree()
	node := tree.Root()

	if !inf.newHand {
		node = base.Node
		// a depth change that lands on the same table keeps the node
		if tbl != base.Table {
			node = e.replay(base, tree)
		}
		node = e.correctFailedAllIn(tree, node, s)
	}
	if node == abstraction.NoNode || tree.Terminal(node) {
		return abstraction.NoNode, inconsistent("belief node %s is not a decision", tree.Describe(node))
	}

	var err error
	if node, err = e.catchUp(tree, node, inf.round); err != nil {
		return abstraction.NoNode, err
	}
	if node, err = e.opponentAction(tree, tbl, node, inf, s); err != nil {
		return abstraction.NoNode, err
	}

	switch {
	case tree.Terminal(node):
		return abstraction.NoNode, inconsistent("reached terminal node %s with an action pending", tree.Describe(node))
	case tree.Round(node) != inf.round:
		return abstraction.NoNode, inconsistent("node %s is on the %s, table shows the %s", tree.Describe(node), tree.Round(node), inf.round)
	case tree.Player(node) != inf.dealer:
		return abstraction.NoNode, inconsistent("node %s is not ours to act (dealer seat %d)", tree.Describe(node), inf.dealer)
	}
	return node, nil
}

// replay re-walks the committed path on another depth's tree. Each edge
// maps to the nearest edge of equal or smaller rank; fold never substitutes.
func (e *Engine) replay(base *Belief, tree *abstraction.Tree) abstraction.NodeID {
	path := base.Tree().Path(base.Node)
	cur := tree.Root()
	for _, a := range path {
		for i := a; i > abstraction.Fold; i-- {
			if c := tree.Child(cur, i); c != abstraction.NoNode {
				cur = c
				break
			}
		}
	}
	e.log.Warn().
		Int("from_depth", base.Depth).
		Int("to_depth", tree.StackSize()).
		Str("from", base.Tree().Describe(base.Node)).
		Str("to", tree.Describe(cur)).
		Msg("stack depth changed mid-hand; replayed path")
	heuristicTotal.WithLabelValues(heuristicDrift).Inc()
	return cur
}

// correctFailedAllIn handles a committed shove the table never took: we
// still have chips and no all-in flag. The actuator most likely entered the
// minimum raise, so move to the raise just above call, or to call itself.
func (e *Engine) correctFailedAllIn(tree *abstraction.Tree, node abstraction.NodeID, s Snapshot) abstraction.NodeID {
	parent := tree.Parent(node)
	if parent == abstraction.NoNode || tree.Action(node) != abstraction.RaiseA {
		return node
	}
	if s.Stack <= 0 || s.AllIn[0] {
		return node
	}
	i := tree.ChildIndex(parent, abstraction.Call)
	if i < 0 {
		return node
	}
	next := tree.ChildAt(parent, i+1)
	if next == abstraction.NoNode || tree.Action(next) == abstraction.RaiseA {
		next = tree.ChildAt(parent, i)
		e.log.Warn().Str("node", tree.Describe(next)).Msg("all-in did not register; treating it as a call")
	} else {
		e.log.Warn().Str("node", tree.Describe(next)).Msg("all-in did not register; treating it as a minimum raise")
	}
	heuristicTotal.WithLabelValues(heuristicFailedAllIn).Inc()
	return next
}

// catchUp follows call edges while the table is on a later street than the
// node. The first step is the opponent calling our last bet; further steps
// stand for checks we never saw.
func (e *Engine) catchUp(tree *abstraction.Tree, node abstraction.NodeID, round abstraction.Round) (abstraction.NodeID, error) {
	if round < tree.Round(node) {
		return abstraction.NoNode, inconsistent("table on the %s behind node %s", round, tree.Describe(node))
	}
	for step := 0; tree.Round(node) < round; step++ {
		if step == 0 {
			e.log.Info().Msg("round changed; opponent called")
		} else {
			e.log.Warn().Stringer("node", tree.Round(node)).Stringer("table", round).Msg("round mismatch; assuming the missing action was a call")
			heuristicTotal.WithLabelValues(heuristicRoundSkip).Inc()
		}
		next := tree.Call(node)
		if next == abstraction.NoNode {
			return abstraction.NoNode, inconsistent("no call edge at %s while catching up to the %s", tree.Describe(node), round)
		}
		node = next
	}
	return node, nil
}

// opponentAction applies the opponent's latest action, if one is visible.
func (e *Engine) opponentAction(tree *abstraction.Tree, tbl abstraction.DecisionTable, node abstraction.NodeID, inf inference, s Snapshot) (abstraction.NodeID, error) {
	round := tree.Round(node)
	if s.SitOut[1] {
		e.log.Info().Msg("opponent is sitting out")
	}

	var next abstraction.NodeID
	switch {
	case (round == abstraction.Preflop && s.Bet[1] > inf.bigBlind) || (round > abstraction.Preflop && s.Bet[1] > 0):
		if s.AllIn[1] {
			e.log.Info().Int64("bet", s.Bet[1]).Msg("opponent is all-in")
			next = tree.Child(node, abstraction.RaiseA)
			if next == abstraction.NoNode {
				next = tree.LargestRaise(node)
			}
			break
		}
		raised := s.ToCall()
		fraction := float64(raised) / float64(s.TotalPot-raised)
		if raised <= 0 || s.TotalPot-raised <= 0 || fraction <= 0 {
			return abstraction.NoNode, inconsistent("opponent bet %d against our %d with pot %d", s.Bet[1], s.Bet[0], s.TotalPot)
		}
		next = tbl.TranslateBet(node, fraction, e.draw())
		e.log.Info().Int64("bet", s.Bet[1]).Float64("pot_fraction", fraction).Stringer("edge", tree.Action(next)).Msg("opponent raised")
	case round == abstraction.Preflop && inf.dealer == 1 && s.Bet[1] <= inf.bigBlind:
		e.log.Info().Msg("facing a big blind out of position preflop; opponent called")
		next = tree.Call(node)
	case round > abstraction.Preflop && inf.dealer == 0 && s.Bet[1] == 0:
		e.log.Info().Msg("facing no bet in position; opponent checked")
		next = tree.Call(node)
	default:
		return node, nil
	}
	if next == abstraction.NoNode {
		return abstraction.NoNode, inconsistent("opponent action has no edge at %s", tree.Describe(node))
	}
	return next, nil
}
