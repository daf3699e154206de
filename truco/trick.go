package truco

import "truco-mesa/card"

// Trick holds the cards played in one of a round's three tricks.
type Trick struct {
	Plays []PlayedCard
	// WinnerTeam is TrickTie when both teams shared the top power.
	WinnerTeam int
	// WinnerSeat is InvalidSeat on a tie.
	WinnerSeat int
}

func (t *Trick) add(seat, team int, c card.Card) {
	t.Plays = append(t.Plays, PlayedCard{Seat: seat, Team: team, Card: c})
}

// resolve computes the trick winner once every seat has played.
// The highest power wins; if both teams hold a card of the top power
// the trick is a tie ("parda"). WinnerSeat is the first seat in play
// order holding the top power, InvalidSeat on a tie.
func (t *Trick) resolve() {
	top := -1
	for _, p := range t.Plays {
		if pw := p.Card.Power(); pw > top {
			top = pw
		}
	}
	t.WinnerTeam = TrickTie
	t.WinnerSeat = InvalidSeat
	for _, p := range t.Plays {
		if p.Card.Power() != top {
			continue
		}
		if t.WinnerSeat == InvalidSeat {
			t.WinnerSeat = p.Seat
			t.WinnerTeam = p.Team
			continue
		}
		if p.Team != t.WinnerTeam {
			t.WinnerTeam = TrickTie
			t.WinnerSeat = InvalidSeat
			return
		}
	}
}

// roundWinner inspects the finished tricks and reports the winning team,
// or TrickTie when the round is still undecided.
//
// Rules, in order:
//   - two tricks won by a team decide the round
//   - if the first trick tied, the first decided trick wins; if all
//     three tie, the mano team wins
//   - if a later trick ties, the first trick's winner takes the round
func roundWinner(tricks []Trick, manoTeam int) int {
	wins := map[int]int{}
	for _, t := range tricks {
		if t.WinnerTeam != TrickTie {
			wins[t.WinnerTeam]++
		}
	}
	for team, n := range wins {
		if n >= 2 {
			return team
		}
	}
	if len(tricks) == 0 {
		return TrickTie
	}
	if tricks[0].WinnerTeam == TrickTie {
		// First trick parda: next decided trick wins outright.
		for _, t := range tricks[1:] {
			if t.WinnerTeam != TrickTie {
				return t.WinnerTeam
			}
		}
		if len(tricks) == 3 {
			return manoTeam
		}
		return TrickTie
	}
	// First trick was decided; any later parda hands it the round.
	for _, t := range tricks[1:] {
		if t.WinnerTeam == TrickTie {
			return tricks[0].WinnerTeam
		}
	}
	return TrickTie
}
