package engine

import (
	"holdem-autopilot/abstraction"
)

// selectEdge samples our action at node.
func (e *Engine) selectEdge(tbl abstraction.DecisionTable, node abstraction.NodeID, s Snapshot) (abstraction.Action, error) {
	tree := tbl.Tree()

	// never fold into a sitting-out opponent's dead blind
	if s.SitOut[1] {
		forced := tree.SmallestRaise(node)
		if forced == abstraction.NoNode {
			forced = tree.Call(node)
		}
		if forced != abstraction.NoNode {
			e.log.Info().Stringer("edge", tree.Action(forced)).Msg("opponent sitting out; forcing edge")
			return tree.Action(forced), nil
		}
	}

	round := tree.Round(node)
	bucket, err := tbl.Bucket(round, s.Hole, s.Board)
	if err != nil {
		return abstraction.NoAction, inconsistent("bucket on the %s: %v", round, err)
	}
	draw := e.draw()
	edge, err := tbl.Sample(node, bucket, draw)
	if err != nil {
		return abstraction.NoAction, inconsistent("sample %s: %v", tree.Describe(node), err)
	}
	if probs, err := tbl.Probabilities(node, bucket); err == nil {
		if i := tree.ChildIndex(node, edge); i >= 0 {
			e.log.Info().Stringer("edge", edge).Float64("probability", probs[i]).Int("bucket", bucket).Msg("strategy")
		}
	}
	return edge, nil
}
