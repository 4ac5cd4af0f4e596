package abstraction

import (
	"errors"
	"fmt"
	"sort"

	"holdem-autopilot/card"
)

var (
	ErrNoStrategy  = errors.New("no strategy loaded")
	ErrTerminal    = errors.New("node is terminal")
	ErrNoChildren  = errors.New("node has no children")
	ErrBadBucket   = errors.New("bucket out of range")
	ErrUnknownNode = errors.New("unknown node")
)

// DecisionTable is the strategy for one effective stack depth.
type DecisionTable interface {
	Tree() *Tree
	// Depth is the stack depth, in small blinds, the table was solved for.
	Depth() int
	Bucket(r Round, hole [2]card.Card, board [5]card.Card) (int, error)
	// Probabilities is the distribution over the children of n, in child order.
	Probabilities(n NodeID, bucket int) ([]float64, error)
	// Sample picks an edge leaving n with a single uniform draw in [0,1).
	Sample(n NodeID, bucket int, draw float64) (Action, error)
	TranslateBet(n NodeID, fraction, draw float64) NodeID
}

// Artifact maps effective stack depths to decision tables. Implementations
// must be read-only after construction; tables share it across goroutines.
type Artifact interface {
	Table(depth int) (DecisionTable, error)
	Depths() []int
}

// Fallback decides the distribution for rows the strategy does not list.
type Fallback int

const (
	FallbackUniform Fallback = iota
	FallbackCall
)

type rowKey struct {
	info   int32
	bucket int32
}

// Strategy is a sparse decision table over a Tree.
type Strategy struct {
	name     string
	tree     *Tree
	bucketer *HandStrength
	fallback Fallback
	rows     map[rowKey][]float64
}

func NewStrategy(name string, tree *Tree, counts [4]int, fallback Fallback) *Strategy {
	return &Strategy{
		name:     name,
		tree:     tree,
		bucketer: NewHandStrength(counts),
		fallback: fallback,
		rows:     make(map[rowKey][]float64),
	}
}

func (s *Strategy) Name() string            { return s.name }
func (s *Strategy) Tree() *Tree             { return s.tree }
func (s *Strategy) Depth() int              { return s.tree.StackSize() }
func (s *Strategy) Buckets(r Round) int     { return s.bucketer.Counts[r] }
func (s *Strategy) Rows() int               { return len(s.rows) }
func (s *Strategy) Bucketer() *HandStrength { return s.bucketer }

func (s *Strategy) Bucket(r Round, hole [2]card.Card, board [5]card.Card) (int, error) {
	return s.bucketer.Bucket(r, hole, board)
}

// Set stores weights for the children of n; bucket -1 applies to every
// bucket of the node's round. Weights are normalized.
func (s *Strategy) Set(n NodeID, bucket int, weights []float64) error {
	if s.tree.Terminal(n) || s.tree.InfoSet(n) < 0 {
		return fmt.Errorf("%w: %s", ErrTerminal, s.tree.PathString(n))
	}
	cnt := s.tree.NumChildren(n)
	if len(weights) != cnt {
		return fmt.Errorf("node %s has %d children, got %d weights", s.tree.PathString(n), cnt, len(weights))
	}
	var sum float64
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("negative weight at %s", s.tree.PathString(n))
		}
		sum += w
	}
	if sum <= 0 {
		return fmt.Errorf("weights at %s sum to zero", s.tree.PathString(n))
	}
	probs := make([]float64, cnt)
	for i, w := range weights {
		probs[i] = w / sum
	}

	info := int32(s.tree.InfoSet(n))
	if bucket >= 0 {
		if bucket >= s.bucketer.Counts[s.tree.Round(n)] && s.bucketer.Counts[s.tree.Round(n)] > 0 {
			return fmt.Errorf("%w: %d", ErrBadBucket, bucket)
		}
		s.rows[rowKey{info, int32(bucket)}] = probs
		return nil
	}
	for b := 0; b < max(1, s.bucketer.Counts[s.tree.Round(n)]); b++ {
		s.rows[rowKey{info, int32(b)}] = probs
	}
	return nil
}

func (s *Strategy) Probabilities(n NodeID, bucket int) ([]float64, error) {
	if n < 0 || int(n) >= s.tree.Len() {
		return nil, ErrUnknownNode
	}
	if s.tree.Terminal(n) {
		return nil, ErrTerminal
	}
	cnt := s.tree.NumChildren(n)
	if cnt == 0 {
		return nil, ErrNoChildren
	}
	if bucket < 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadBucket, bucket)
	}
	if p, ok := s.rows[rowKey{int32(s.tree.InfoSet(n)), int32(bucket)}]; ok {
		return p, nil
	}

	probs := make([]float64, cnt)
	if s.fallback == FallbackCall {
		if i := s.tree.ChildIndex(n, Call); i >= 0 {
			probs[i] = 1
			return probs, nil
		}
	}
	for i := range probs {
		probs[i] = 1 / float64(cnt)
	}
	return probs, nil
}

func (s *Strategy) Sample(n NodeID, bucket int, draw float64) (Action, error) {
	probs, err := s.Probabilities(n, bucket)
	if err != nil {
		return NoAction, err
	}
	i := sampleIndex(probs, draw)
	return s.tree.Action(s.tree.ChildAt(n, i)), nil
}

func (s *Strategy) TranslateBet(n NodeID, fraction, draw float64) NodeID {
	return s.tree.TranslateBet(n, fraction, draw)
}

// sampleIndex walks the cumulative distribution; rounding slack goes to the
// last positive entry.
func sampleIndex(probs []float64, draw float64) int {
	var cum float64
	last := 0
	for i, p := range probs {
		if p <= 0 {
			continue
		}
		last = i
		cum += p
		if draw < cum {
			return i
		}
	}
	return last
}

// Set is an Artifact holding one Strategy per stack depth.
type Set struct {
	tables map[int]*Strategy
	depths []int
}

func NewSet(strategies ...*Strategy) *Set {
	s := &Set{tables: make(map[int]*Strategy)}
	for _, st := range strategies {
		s.tables[st.Depth()] = st
	}
	for d := range s.tables {
		s.depths = append(s.depths, d)
	}
	sort.Ints(s.depths)
	return s
}

// Table returns the table for the smallest depth >= depth, or the deepest one.
func (s *Set) Table(depth int) (DecisionTable, error) {
	if len(s.depths) == 0 {
		return nil, ErrNoStrategy
	}
	for _, d := range s.depths {
		if d >= depth {
			return s.tables[d], nil
		}
	}
	return s.tables[s.depths[len(s.depths)-1]], nil
}

func (s *Set) Depths() []int {
	out := make([]int, len(s.depths))
	copy(out, s.depths)
	return out
}

func (s *Set) Strategy(depth int) *Strategy { return s.tables[depth] }
