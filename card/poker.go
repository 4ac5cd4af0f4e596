package card

import (
	"fmt"

	"github.com/paulhankin/poker"
)

// ToPoker converts to the evaluator's card encoding (Club, Diamond, Heart, Spade; A=1).
func (c Card) ToPoker() (poker.Card, error) {
	if !c.Known() {
		return 0, fmt.Errorf("card %s is not readable", c)
	}
	var s poker.Suit
	switch c.Suit() {
	case Club:
		s = poker.Suit(0)
	case Diamond:
		s = poker.Suit(1)
	case Heart:
		s = poker.Suit(2)
	case Spade:
		s = poker.Suit(3)
	}
	return poker.MakeCard(s, poker.Rank(c.Rank()))
}

// Eval7 scores a seven card hand; higher wins.
func Eval7(cards [7]Card) (int16, error) {
	var hand [7]poker.Card
	for i, c := range cards {
		pc, err := c.ToPoker()
		if err != nil {
			return 0, err
		}
		hand[i] = pc
	}
	return poker.Eval7(&hand), nil
}

// Describe names the best hand in cards, e.g. "two pair, kings and fours".
func Describe(cards []Card) (string, error) {
	hand := make([]poker.Card, 0, len(cards))
	for _, c := range cards {
		pc, err := c.ToPoker()
		if err != nil {
			return "", err
		}
		hand = append(hand, pc)
	}
	return poker.Describe(hand)
}
