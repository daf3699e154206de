package truco

import "truco-mesa/card"

// Player is one seat at the mesa. Seats are fixed once the match starts;
// hands shrink as cards are played and are never reordered.
type Player struct {
	ID   string
	Name string
	Team int // 1 or 2
	Seat int
	Bot  bool

	Hand      card.CardList
	Connected bool

	// HasFlor is computed at deal time and frozen for the round.
	HasFlor bool
	// FlorShown tracks whether this seat's flor was declared this round.
	FlorShown bool
}

func (p *Player) resetForRound() {
	p.Hand = nil
	p.HasFlor = false
	p.FlorShown = false
}

// Team groups seats and accumulates the match score.
type Team struct {
	ID    int
	Seats []int
	Score int
}

// other returns the opposing team id.
func otherTeam(team int) int {
	if team == 1 {
		return 2
	}
	return 1
}

// PlayedCard is one card on the table during the current trick.
type PlayedCard struct {
	Seat int
	Team int
	Card card.Card
}
