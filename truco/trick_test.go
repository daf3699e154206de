package truco

import (
	"testing"

	"truco-mesa/card"
)

func play(seat, team int, s card.Suit, rank byte) PlayedCard {
	return PlayedCard{Seat: seat, Team: team, Card: card.Make(s, rank)}
}

func TestTrickResolve(t *testing.T) {
	cases := []struct {
		name     string
		plays    []PlayedCard
		wantTeam int
		wantSeat int
	}{
		{
			name:     "mata beats everything",
			plays:    []PlayedCard{play(0, 1, card.Sword, 1), play(1, 2, card.Gold, 3)},
			wantTeam: 1, wantSeat: 0,
		},
		{
			name:     "same rank different suit is a parda",
			plays:    []PlayedCard{play(0, 1, card.Gold, 3), play(1, 2, card.Cup, 3)},
			wantTeam: TrickTie, wantSeat: InvalidSeat,
		},
		{
			name: "teammates sharing top power is not a parda",
			plays: []PlayedCard{
				play(0, 1, card.Gold, 3), play(1, 2, card.Cup, 2),
				play(2, 1, card.Club, 3), play(3, 2, card.Gold, 4),
			},
			wantTeam: 1, wantSeat: 0,
		},
		{
			name:     "sword seven over gold seven",
			plays:    []PlayedCard{play(0, 1, card.Gold, 7), play(1, 2, card.Sword, 7)},
			wantTeam: 2, wantSeat: 1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := Trick{Plays: tc.plays}
			tr.resolve()
			if tr.WinnerTeam != tc.wantTeam || tr.WinnerSeat != tc.wantSeat {
				t.Fatalf("got team=%d seat=%d, want team=%d seat=%d",
					tr.WinnerTeam, tr.WinnerSeat, tc.wantTeam, tc.wantSeat)
			}
		})
	}
}

func trickWonBy(team int) Trick { return Trick{WinnerTeam: team, WinnerSeat: 0} }
func trickTied() Trick          { return Trick{WinnerTeam: TrickTie, WinnerSeat: InvalidSeat} }

func TestRoundWinnerFallbacks(t *testing.T) {
	cases := []struct {
		name   string
		tricks []Trick
		mano   int
		want   int
	}{
		{"two straight wins", []Trick{trickWonBy(1), trickWonBy(1)}, 2, 1},
		{"split after two tricks is undecided", []Trick{trickWonBy(1), trickWonBy(2)}, 1, TrickTie},
		{"third trick decides a split", []Trick{trickWonBy(1), trickWonBy(2), trickWonBy(2)}, 1, 2},
		{"first parda then decided trick wins", []Trick{trickTied(), trickWonBy(2)}, 1, 2},
		{"first parda still open after one trick", []Trick{trickTied()}, 1, TrickTie},
		{"all three pardas fall to the mano", []Trick{trickTied(), trickTied(), trickTied()}, 2, 2},
		{"second parda hands it to the first winner", []Trick{trickWonBy(1), trickTied()}, 2, 1},
		{"third parda after a split goes to the first winner", []Trick{trickWonBy(2), trickWonBy(1), trickTied()}, 1, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := roundWinner(tc.tricks, tc.mano); got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
		})
	}
}

// Replaying the same play sequence must always produce the same result.
func TestTrickResolveDeterministic(t *testing.T) {
	plays := []PlayedCard{
		play(0, 1, card.Cup, 12), play(1, 2, card.Club, 12),
		play(2, 1, card.Gold, 1), play(3, 2, card.Sword, 4),
	}
	first := Trick{Plays: plays}
	first.resolve()
	for i := 0; i < 10; i++ {
		tr := Trick{Plays: plays}
		tr.resolve()
		if tr.WinnerTeam != first.WinnerTeam || tr.WinnerSeat != first.WinnerSeat {
			t.Fatalf("replay %d diverged: team=%d seat=%d", i, tr.WinnerTeam, tr.WinnerSeat)
		}
	}
}
