package card

import (
	"fmt"
	"strings"
)

// Card 牌枚举
//
// 编码规则:
// - 高4位: 花色 (0:Spade, 1:Heart, 2:Club, 3:Diamond)
// - 低4位: 点数 (1:A, 2..9, 10:T, 11:J, 12:Q, 13:K)
//
// CardInvalid doubles as "unreadable" for cards coming off a capture.
type Card byte

const (
	CardInvalid Card = 0
	CardRear    Card = 0xFF
)

const rankChars = "A23456789TJQK"

// New builds a card from a suit and a rank in 1..13 (A=1).
func New(s Suit, rank byte) Card {
	if rank < 1 || rank > 13 || s > Diamond {
		return CardInvalid
	}
	return Card(byte(s)<<4 | rank)
}

func (c Card) String() string {
	if c == CardInvalid {
		return "??"
	}
	if c == CardRear {
		return "Rear"
	}
	r := c.Rank()
	if r < 1 || r > 13 {
		return fmt.Sprintf("Card(%#x)", byte(c))
	}
	return string(rankChars[r-1]) + string(c.Suit().Letter())
}

// Known reports whether the card carries a legible face.
func (c Card) Known() bool {
	if c == CardInvalid || c == CardRear {
		return false
	}
	r := c.Rank()
	return r >= 1 && r <= 13 && c.Suit() <= Diamond
}

// Rank 获取牌面值 1-13 (A=1, K=13)
func (c Card) Rank() byte {
	if c == CardInvalid || c == CardRear {
		return 0
	}
	return byte(c & 0x0F)
}

// Suit 花色 (0:Spades, 1:Hearts, 2:Clubs, 3:Diamonds)
func (c Card) Suit() Suit {
	return Suit(c >> 4)
}

// HandRealVal 返回用于比较大小的点数, A 视为 14
func (c Card) HandRealVal() int {
	r := int(c & 0x0F)
	if r == 1 {
		return 14
	}
	return r
}

// Parse 将字符串 (如 "As", "Td", "10h") 转换为 Card. "", "??" and "--" read as CardInvalid.
func Parse(s string) (Card, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "??", "--":
		return CardInvalid, nil
	}
	if len(s) < 2 {
		return CardInvalid, fmt.Errorf("invalid card string: %s", s)
	}

	suit, ok := suitFromLetter(s[len(s)-1])
	if !ok {
		return CardInvalid, fmt.Errorf("invalid suit: %c", s[len(s)-1])
	}

	rankStr := strings.ToUpper(s[:len(s)-1])
	if rankStr == "10" {
		rankStr = "T"
	}
	if len(rankStr) != 1 {
		return CardInvalid, fmt.Errorf("invalid rank: %s", rankStr)
	}
	idx := strings.IndexByte(rankChars, rankStr[0])
	if idx < 0 {
		return CardInvalid, fmt.Errorf("invalid rank: %s", rankStr)
	}
	return New(suit, byte(idx+1)), nil
}

// MustParse panics on malformed input; meant for fixtures.
func MustParse(s string) Card {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseList parses a whitespace or comma separated card list.
func ParseList(s string) ([]Card, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
	out := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := Parse(f)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (c Card) MarshalText() ([]byte, error) {
	if !c.Known() {
		return []byte{}, nil
	}
	return []byte(c.String()), nil
}

func (c *Card) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
