package engine

import (
	"github.com/google/uuid"

	"holdem-autopilot/abstraction"
)

// Belief is the engine's model of the hand in progress. A Belief is never
// modified after it is committed; every tick derives a new one.
type Belief struct {
	HandID   uuid.UUID
	Dealer   int
	BigBlind int64
	Depth    int // effective stack in small blinds
	Table    abstraction.DecisionTable
	Node     abstraction.NodeID
	Snapshot Snapshot
}

func (b *Belief) Tree() *abstraction.Tree {
	if b == nil || b.Table == nil {
		return nil
	}
	return b.Table.Tree()
}

// Path renders the committed tree position, e.g. "pQc".
func (b *Belief) Path() string {
	if t := b.Tree(); t != nil {
		return t.PathString(b.Node)
	}
	return ""
}

// State is where the resynchronizer stands.
type State int

const (
	AwaitingHand State = iota
	AtDecision
	Terminal
)

func (s State) String() string {
	switch s {
	case AwaitingHand:
		return "awaiting-hand"
	case AtDecision:
		return "at-decision"
	case Terminal:
		return "terminal"
	}
	return "unknown"
}

func (b *Belief) State() State {
	t := b.Tree()
	switch {
	case t == nil || b.Node == abstraction.NoNode:
		return AwaitingHand
	case t.Terminal(b.Node):
		return Terminal
	}
	return AtDecision
}

// live reports whether a hand can continue from b.
func (b *Belief) live() bool { return b.State() == AtDecision }

// BeliefStore keeps the committed belief and the one before it.
// Not safe for concurrent use; one engine owns one store.
type BeliefStore struct {
	current  *Belief
	previous *Belief
}

func (s *BeliefStore) Current() *Belief  { return s.current }
func (s *BeliefStore) Previous() *Belief { return s.previous }

// Base picks the generation a tick reconciles against: the current one,
// or the one before it when the last command did not register.
func (s *BeliefStore) Base(rollback bool) *Belief {
	if rollback {
		return s.previous
	}
	return s.current
}

// Commit records next on top of base. Rolling back and then committing
// drops the generation whose command never landed.
func (s *BeliefStore) Commit(base, next *Belief) {
	s.previous = base
	s.current = next
}

func (s *BeliefStore) State() State { return s.current.State() }

func (s *BeliefStore) Reset() {
	s.current = nil
	s.previous = nil
}
