package card

import "fmt"

// TrucoRanks are the ten ranks of the Spanish deck in ascending rank order.
var TrucoRanks = []byte{1, 2, 3, 4, 5, 6, 7, 10, 11, 12}

// TrucoCards is the full 40-card deck in suit-then-rank order.
var TrucoCards = buildDeck()

func buildDeck() []Card {
	out := make([]Card, 0, 40)
	for s := Gold; s <= Club; s++ {
		for _, r := range TrucoRanks {
			out = append(out, Make(s, r))
		}
	}
	return out
}

type CardList []Card

func (ds *CardList) Init(cards []Card) {
	*ds = make([]Card, len(cards))
	copy(*ds, cards)
}

func (ds CardList) Count() int {
	return len(ds)
}

func (ds *CardList) Add(cards ...Card) {
	*ds = append(*ds, cards...)
}

func (ds *CardList) PopCard() Card {
	total := ds.Count()
	if total == 0 {
		return CardInvalid
	}
	c := (*ds)[0]
	*ds = (*ds)[1:]
	return c
}

func (ds *CardList) PopCards(size int) ([]Card, bool) {
	if size > ds.Count() {
		return nil, false
	}
	cards := make([]Card, size)
	copy(cards, (*ds)[:size])
	*ds = (*ds)[size:]
	return cards, true
}

// Cut splits the list at position and puts the bottom part on top ("corte").
// The position must leave at least one card on each side.
func (ds *CardList) Cut(position int) error {
	if position < 1 || position >= ds.Count() {
		return fmt.Errorf("cut position %d out of range [1,%d]", position, ds.Count()-1)
	}
	out := make([]Card, 0, ds.Count())
	out = append(out, (*ds)[position:]...)
	out = append(out, (*ds)[:position]...)
	*ds = out
	return nil
}

// Contains reports whether c is present in the list.
func (ds CardList) Contains(c Card) bool {
	for _, cc := range ds {
		if cc == c {
			return true
		}
	}
	return false
}

// Remove deletes the first occurrence of c, reporting whether it was found.
// Remaining cards keep their order.
func (ds *CardList) Remove(c Card) bool {
	for i, cc := range *ds {
		if cc == c {
			*ds = append((*ds)[:i], (*ds)[i+1:]...)
			return true
		}
	}
	return false
}
