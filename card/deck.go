package card

import "math/rand"

// Deck is an ordered pile of cards; Pop takes from the top (end).
type Deck []Card

// FullDeck returns the 52 cards in suit-major order.
func FullDeck() Deck {
	d := make(Deck, 0, 52)
	for s := Spade; s <= Diamond; s++ {
		for r := byte(1); r <= 13; r++ {
			d = append(d, New(s, r))
		}
	}
	return d
}

// Count 获取总牌数
func (d Deck) Count() int {
	return len(d)
}

func (d Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d), func(i, j int) {
		d[i], d[j] = d[j], d[i]
	})
}

func (d *Deck) Pop() Card {
	n := len(*d)
	if n == 0 {
		return CardInvalid
	}
	c := (*d)[n-1]
	*d = (*d)[:n-1]
	return c
}

// Without returns a copy of the deck minus the given cards.
func (d Deck) Without(cards ...Card) Deck {
	out := make(Deck, 0, len(d))
next:
	for _, c := range d {
		for _, x := range cards {
			if c == x {
				continue next
			}
		}
		out = append(out, c)
	}
	return out
}
