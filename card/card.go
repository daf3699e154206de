package card

import "fmt"

// Card is a single card of the Spanish 40-card deck.
//
// Encoding:
// - high nibble: suit (0:Gold, 1:Cup, 2:Sword, 3:Club)
// - low nibble: rank (1..7, 10:Sota=0xA, 11:Caballo=0xB, 12:Rey=0xC)
//
// Ranks 8 and 9 do not exist in this deck.
type Card byte

const CardInvalid Card = 0

// Make builds a card from suit and rank. Rank must be 1..7 or 10..12.
func Make(s Suit, rank byte) Card {
	return Card(byte(s)<<4 | rank&0x0F)
}

func (c Card) Rank() byte {
	if c == CardInvalid {
		return 0
	}
	return byte(c & 0x0F)
}

func (c Card) Suit() Suit {
	return Suit(c >> 4)
}

// Power returns the fixed Truco comparison value. It is a strict total
// order over the 40 cards: the four matas first, then ranks grouped
// regardless of suit. Higher wins a trick.
func (c Card) Power() int {
	switch {
	case c == SwordOne:
		return 13
	case c == ClubOne:
		return 12
	case c == SwordSeven:
		return 11
	case c == GoldSeven:
		return 10
	}
	switch c.Rank() {
	case 3:
		return 9
	case 2:
		return 8
	case 1:
		return 7 // gold and cup aces
	case 12:
		return 6
	case 11:
		return 5
	case 10:
		return 4
	case 7:
		return 3 // cup and club sevens
	case 6:
		return 2
	case 5:
		return 1
	default:
		return 0 // fours
	}
}

// IsMata reports whether c is one of the four top cards ranked outside
// the suit-general order.
func (c Card) IsMata() bool {
	return c == SwordOne || c == ClubOne || c == SwordSeven || c == GoldSeven
}

// EnvidoValue is the card's contribution to envido/flor totals:
// face cards (10, 11, 12) count zero, everything else its rank.
func (c Card) EnvidoValue() int {
	r := c.Rank()
	if r >= 10 {
		return 0
	}
	return int(r)
}

func (c Card) String() string {
	if c == CardInvalid {
		return "Invalid"
	}
	return fmt.Sprintf("%d de %s", c.Rank(), c.Suit())
}

// The matas, by name.
const (
	SwordOne   = Card(2<<4 | 1)
	ClubOne    = Card(3<<4 | 1)
	SwordSeven = Card(2<<4 | 7)
	GoldSeven  = Card(0<<4 | 7)
)
