package abstraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NodeID addresses a node inside a Tree's arena.
type NodeID int32

const NoNode NodeID = -1

// initial blinds in small blind units
var initialPot = [2]int32{1, 2}

type node struct {
	parent   NodeID
	action   Action
	player   int8
	round    Round
	terminal bool
	pot      [2]int32
	masks    [2]mask
	info     int32
	first    NodeID
	count    int8
}

// Tree is a heads-up no-limit betting abstraction. Player 0 is the dealer
// (small blind) and acts first preflop; player 1 opens every later round.
// A Tree is immutable once built and safe for concurrent readers.
type Tree struct {
	config   string
	stack    int32
	enabled  mask
	limited  mask
	nodes    []node
	infoSets int
}

var configRe = regexp.MustCompile(`^([^-]+)-([A-Za-z]+)-([0-9]+)$`)

// NewTree builds the full tree described by config, e.g. "nlhe-fchqpwdta-40".
// Lowercase letters enable an action; uppercase letters also limit raises
// smaller than a pot to one per player per round. The number is the stack
// in small blinds.
func NewTree(config string) (*Tree, error) {
	m := configRe.FindStringSubmatch(strings.TrimSpace(config))
	if m == nil {
		return nil, fmt.Errorf("unable to parse tree config %q", config)
	}
	if m[1] != "nlhe" {
		return nil, fmt.Errorf("unknown game %q in tree config", m[1])
	}
	stack, err := strconv.Atoi(m[3])
	if err != nil || stack < int(initialPot[1]) {
		return nil, fmt.Errorf("invalid stack %q in tree config", m[3])
	}

	t := &Tree{config: m[0], stack: int32(stack)}
	for i := 0; i < len(m[2]); i++ {
		c := m[2][i]
		a, ok := ParseAction(string(c))
		if !ok {
			return nil, fmt.Errorf("unknown action %q in tree config", c)
		}
		t.enabled |= a.mask()
		if c >= 'A' && c <= 'Z' {
			t.limited |= a.mask()
		}
	}
	if t.enabled&Call.mask() == 0 {
		return nil, fmt.Errorf("tree config %q must enable call", config)
	}

	t.nodes = append(t.nodes, node{
		parent: NoNode,
		action: NoAction,
		player: 0,
		round:  Preflop,
		pot:    initialPot,
		first:  NoNode,
	})
	t.expand(0)
	t.assignInfoSets()
	return t, nil
}

func (t *Tree) expand(id NodeID) {
	p := t.nodes[id]
	if p.terminal {
		return
	}
	first := NodeID(len(t.nodes))
	var n int8
	for a := Fold; a < NumActions; a++ {
		child, ok := t.makeChild(id, p, a)
		if !ok {
			continue
		}
		t.nodes = append(t.nodes, child)
		n++
	}
	t.nodes[id].first = first
	t.nodes[id].count = n
	for i := NodeID(0); i < NodeID(n); i++ {
		t.expand(first + i)
	}
}

func (t *Tree) enabledAction(a Action) bool {
	return a.Valid() && t.enabled&a.mask() != 0
}

func (t *Tree) makeChild(id NodeID, p node, a Action) (node, bool) {
	if !t.enabledAction(a) {
		return node{}, false
	}

	pl := int(p.player)
	opp := 1 - pl
	oppAllIn := p.pot[opp] == t.stack
	prev := p.action

	if a.IsRaise() && oppAllIn {
		return node{}, false
	}
	// no check -> fold
	if a == Fold && prev == Call {
		return node{}, false
	}

	parentRound := InvalidRound
	if p.parent != NoNode {
		parentRound = t.nodes[p.parent].round
	}

	terminal := false
	switch {
	case a == Fold:
		terminal = true
	case a == Call && p.round == River && parentRound == River:
		terminal = true
	case a == Call && oppAllIn:
		terminal = true
	}

	round := p.round
	if prev.IsRaise() && a == Call {
		round++
	} else if prev == Call && a == Call && p.parent != NoNode && p.round == parentRound {
		round++
	}

	masks := p.masks
	if round != p.round {
		masks = [2]mask{}
	}
	if a > Call && a < RaiseP && t.limited&a.mask() != 0 {
		if masks[pl]&a.mask() != 0 {
			return node{}, false
		}
		masks[pl] |= a.mask()
	}

	pot := p.pot
	toCall := p.pot[opp] - p.pot[pl]
	inPot := p.pot[opp] + p.pot[pl] - toCall

	switch {
	case a == Fold:
	case a == Call:
		pot[pl] = p.pot[opp]
	default:
		np := t.playerPot(p.pot[pl], toCall, inPot, a)

		// combine sizes that reach the next enabled size
		next := a
		if a != RaiseA {
			next++
			for next < NumActions && !t.enabledAction(next) {
				next++
			}
		}
		maxPot := t.stack
		if next < NumActions {
			maxPot = t.playerPot(p.pot[pl], toCall, inPot, next)
		}

		if np < maxPot {
			if prev == NoAction {
				np = max32(p.pot[pl]+3, np)
			} else {
				inc := 2 * toCall
				if toCall == 0 {
					inc = 2
				}
				np = max32(p.pot[pl]+inc, np)
			}
			if np > t.stack {
				np = t.stack
			}
		}
		if np >= maxPot && a != next {
			return node{}, false
		}
		pot[pl] = np
	}

	player := int8(opp)
	if round != p.round {
		player = 1
	}

	return node{
		parent:   id,
		action:   a,
		player:   player,
		round:    round,
		terminal: terminal,
		pot:      pot,
		masks:    masks,
		info:     -1,
		first:    NoNode,
	}, true
}

func (t *Tree) playerPot(playerPot, toCall, inPot int32, a Action) int32 {
	v := playerPot + int32(float64(toCall)+float64(2*toCall+inPot)*a.Factor())
	if v > t.stack || v < playerPot {
		return t.stack
	}
	return v
}

func (t *Tree) assignInfoSets() {
	n := int32(0)
	for i := range t.nodes {
		if t.nodes[i].terminal {
			t.nodes[i].info = -1
			continue
		}
		t.nodes[i].info = n
		n++
	}
	t.infoSets = int(n)
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func (t *Tree) Config() string { return t.config }

// StackSize is the effective stack in small blinds this tree was built for.
func (t *Tree) StackSize() int { return int(t.stack) }

// Len is the number of nodes, terminal ones included.
func (t *Tree) Len() int { return len(t.nodes) }

// InfoSets is the number of non-terminal nodes.
func (t *Tree) InfoSets() int { return t.infoSets }

func (t *Tree) Root() NodeID { return 0 }

func (t *Tree) valid(n NodeID) bool { return n >= 0 && int(n) < len(t.nodes) }

func (t *Tree) Parent(n NodeID) NodeID {
	if !t.valid(n) {
		return NoNode
	}
	return t.nodes[n].parent
}

// Action is the edge that produced n; NoAction for the root.
func (t *Tree) Action(n NodeID) Action {
	if !t.valid(n) {
		return NoAction
	}
	return t.nodes[n].action
}

// Player is the tree player to act at n.
func (t *Tree) Player(n NodeID) int {
	if !t.valid(n) {
		return -1
	}
	return int(t.nodes[n].player)
}

func (t *Tree) Round(n NodeID) Round {
	if !t.valid(n) {
		return InvalidRound
	}
	return t.nodes[n].round
}

func (t *Tree) Terminal(n NodeID) bool {
	return t.valid(n) && t.nodes[n].terminal
}

// Pot returns each player's total commitment in small blinds.
func (t *Tree) Pot(n NodeID) [2]int {
	if !t.valid(n) {
		return [2]int{}
	}
	p := t.nodes[n].pot
	return [2]int{int(p[0]), int(p[1])}
}

// InfoSet is the dense strategy row index of n, -1 when terminal.
func (t *Tree) InfoSet(n NodeID) int {
	if !t.valid(n) {
		return -1
	}
	return int(t.nodes[n].info)
}

func (t *Tree) NumChildren(n NodeID) int {
	if !t.valid(n) {
		return 0
	}
	return int(t.nodes[n].count)
}

// ChildAt returns the i-th child of n in ascending action order.
func (t *Tree) ChildAt(n NodeID, i int) NodeID {
	if !t.valid(n) || i < 0 || i >= int(t.nodes[n].count) {
		return NoNode
	}
	return t.nodes[n].first + NodeID(i)
}

// ChildIndex is the position of the child reached by a, or -1.
func (t *Tree) ChildIndex(n NodeID, a Action) int {
	if !t.valid(n) {
		return -1
	}
	nd := t.nodes[n]
	for i := 0; i < int(nd.count); i++ {
		if t.nodes[nd.first+NodeID(i)].action == a {
			return i
		}
	}
	return -1
}

// Child follows edge a from n, NoNode when the edge does not exist.
func (t *Tree) Child(n NodeID, a Action) NodeID {
	return t.ChildAt(n, t.ChildIndex(n, a))
}

func (t *Tree) Call(n NodeID) NodeID { return t.Child(n, Call) }

// Actions lists the edges leaving n.
func (t *Tree) Actions(n NodeID) []Action {
	cnt := t.NumChildren(n)
	out := make([]Action, 0, cnt)
	for i := 0; i < cnt; i++ {
		out = append(out, t.Action(t.ChildAt(n, i)))
	}
	return out
}

// Path returns the edges from the root down to n.
func (t *Tree) Path(n NodeID) []Action {
	var path []Action
	for cur := n; t.valid(cur) && t.nodes[cur].parent != NoNode; cur = t.nodes[cur].parent {
		path = append(path, t.nodes[cur].action)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// PathString renders the edge letters from the root, lowercase for actions
// taken by player 0 and uppercase for player 1.
func (t *Tree) PathString(n NodeID) string {
	var b []byte
	for cur := n; t.valid(cur) && t.nodes[cur].parent != NoNode; cur = t.nodes[cur].parent {
		c := t.nodes[cur].action.Letter()
		if t.nodes[t.nodes[cur].parent].player == 1 {
			c -= 'a' - 'A'
		}
		b = append(b, c)
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// Find resolves a path string (case-insensitive) back to its node.
func (t *Tree) Find(path string) (NodeID, error) {
	cur := t.Root()
	for i := 0; i < len(path); i++ {
		a, ok := ParseAction(string(path[i]))
		if !ok {
			return NoNode, fmt.Errorf("bad action %q at %d in path %q", path[i], i, path)
		}
		next := t.Child(cur, a)
		if next == NoNode {
			return NoNode, fmt.Errorf("no %s edge at %q", a, path[:i])
		}
		cur = next
	}
	return cur, nil
}

// Describe renders n as "<info>:<path>".
func (t *Tree) Describe(n NodeID) string {
	return fmt.Sprintf("%d:%s", t.InfoSet(n), t.PathString(n))
}
