package abstraction

// TranslateBet maps an observed raise, expressed as a fraction of the pot
// after calling, onto one of the raise edges leaving n. The edges just below
// and above the fraction are mixed with the pseudo-harmonic mapping; draw is
// a uniform sample in [0,1) deciding between them. Returns NoNode when no
// raise edge exists (the acting player faces an all-in).
func (t *Tree) TranslateBet(n NodeID, fraction, draw float64) NodeID {
	if !t.valid(n) || t.nodes[n].terminal {
		return NoNode
	}
	nd := t.nodes[n]
	pl := int(nd.player)
	if nd.pot[1-pl] == t.stack {
		return NoNode
	}

	toCall := float64(nd.pot[1-pl] - nd.pot[pl])
	inPot := float64(nd.pot[1-pl] + nd.pot[pl])

	var sizes [NumActions]float64
	for a := RaiseO; a < RaiseA; a++ {
		sizes[a] = a.Factor()
	}
	// to_call + x*(to_call+in_pot) = stack
	sizes[RaiseA] = (float64(t.stack) - toCall) / (toCall + inPot)

	lower, upper := NoAction, NoAction
	for a := RaiseO; a < NumActions; a++ {
		if t.Child(n, a) == NoNode {
			continue
		}
		if sizes[a] <= fraction && (lower == NoAction || sizes[a] > sizes[lower]) {
			lower = a
		} else if sizes[a] >= fraction && (upper == NoAction || sizes[a] < sizes[upper]) {
			upper = a
		}
	}

	var pick Action
	switch {
	case lower == NoAction && upper == NoAction:
		return NoNode
	case lower == NoAction:
		pick = upper
	case upper == NoAction, lower == upper:
		pick = lower
	default:
		if draw < softTranslate(sizes[lower], fraction, sizes[upper]) {
			pick = lower
		} else {
			pick = upper
		}
	}
	return t.Child(n, pick)
}

// softTranslate is the probability of mapping b onto the smaller size b1
// rather than b2, for b1 <= b <= b2.
func softTranslate(b1, b, b2 float64) float64 {
	if b2 == b1 {
		return 1
	}
	return ((b2 - b) * (1 + b1)) / ((b2 - b1) * (1 + b))
}

// LargestRaise returns the child for the biggest raise edge leaving n,
// preferring the all-in edge, or NoNode.
func (t *Tree) LargestRaise(n NodeID) NodeID {
	for a := RaiseA; a > Call; a-- {
		if c := t.Child(n, a); c != NoNode {
			return c
		}
	}
	return NoNode
}

// SmallestRaise returns the child for the smallest raise edge leaving n, or NoNode.
func (t *Tree) SmallestRaise(n NodeID) NodeID {
	for a := RaiseO; a < NumActions; a++ {
		if c := t.Child(n, a); c != NoNode {
			return c
		}
	}
	return NoNode
}
