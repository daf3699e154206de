package truco

import (
	"testing"

	"truco-mesa/card"
)

func hand(cards ...card.Card) []card.Card { return cards }

func TestEnvidoValue(t *testing.T) {
	cases := []struct {
		name string
		hand []card.Card
		want int
	}{
		{"two suited plus twenty", hand(card.Make(card.Gold, 7), card.Make(card.Gold, 6), card.Make(card.Cup, 1)), 33},
		{"faces count zero", hand(card.Make(card.Cup, 12), card.Make(card.Cup, 11), card.Make(card.Gold, 4)), 20},
		{"face plus pip suited", hand(card.Make(card.Sword, 10), card.Make(card.Sword, 5), card.Make(card.Gold, 2)), 25},
		{"no pair takes highest single", hand(card.Make(card.Gold, 4), card.Make(card.Cup, 6), card.Make(card.Sword, 2)), 6},
		{"all faces unsuited", hand(card.Make(card.Gold, 12), card.Make(card.Cup, 11), card.Make(card.Sword, 10)), 0},
		{"flor picks the best pair", hand(card.Make(card.Club, 7), card.Make(card.Club, 6), card.Make(card.Club, 2)), 33},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EnvidoValue(tc.hand); got != tc.want {
				t.Fatalf("EnvidoValue(%v) = %d, want %d", tc.hand, got, tc.want)
			}
		})
	}
}

// The value must not depend on hand order.
func TestEnvidoValueOrderIndependent(t *testing.T) {
	h := hand(card.Make(card.Gold, 7), card.Make(card.Gold, 6), card.Make(card.Cup, 1))
	perms := [][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	want := EnvidoValue(h)
	for _, p := range perms {
		got := EnvidoValue([]card.Card{h[p[0]], h[p[1]], h[p[2]]})
		if got != want {
			t.Fatalf("permutation %v: got %d, want %d", p, got, want)
		}
	}
}

// Every possible three-card hand scores inside [0,33].
func TestEnvidoValueRange(t *testing.T) {
	deck := card.TrucoCards
	for i := 0; i < len(deck); i++ {
		for j := i + 1; j < len(deck); j++ {
			for k := j + 1; k < len(deck); k++ {
				v := EnvidoValue(hand(deck[i], deck[j], deck[k]))
				if v < 0 || v > 33 {
					t.Fatalf("hand (%s %s %s) scored %d", deck[i], deck[j], deck[k], v)
				}
			}
		}
	}
}

func TestEnvidoChainStakes(t *testing.T) {
	cases := []struct {
		name        string
		chain       []EnvidoLevel
		falta       int
		wantAccept  int
		wantDecline int
	}{
		{"envido", []EnvidoLevel{Envido}, 10, 2, 1},
		{"envido envido", []EnvidoLevel{Envido, Envido}, 10, 4, 2},
		{"envido real", []EnvidoLevel{Envido, RealEnvido}, 10, 5, 2},
		{"envido real falta", []EnvidoLevel{Envido, RealEnvido, FaltaEnvido}, 25, 30, 5},
		{"falta straight away", []EnvidoLevel{FaltaEnvido}, 30, 30, 1},
		{"real straight away", []EnvidoLevel{RealEnvido}, 10, 3, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnvidoState(tc.chain[0], 1)
			for _, l := range tc.chain[1:] {
				e.escalate(l, otherTeam(e.callerTeam))
			}
			e.settleStakes(tc.falta)
			if e.acceptPoints != tc.wantAccept || e.declinePoints != tc.wantDecline {
				t.Fatalf("got accept=%d decline=%d, want accept=%d decline=%d",
					e.acceptPoints, e.declinePoints, tc.wantAccept, tc.wantDecline)
			}
		})
	}
}

func TestEnvidoEscalationRules(t *testing.T) {
	e := newEnvidoState(Envido, 1)
	if !e.canEscalate(Envido) {
		t.Fatal("envido should allow one envido repeat")
	}
	e.escalate(Envido, 2)
	if e.canEscalate(Envido) {
		t.Fatal("envido may only be repeated once")
	}
	if !e.canEscalate(RealEnvido) || !e.canEscalate(FaltaEnvido) {
		t.Fatal("real and falta must top a repeated envido")
	}
	e.escalate(FaltaEnvido, 1)
	if e.canEscalate(RealEnvido) || e.canEscalate(FaltaEnvido) {
		t.Fatal("nothing tops falta envido")
	}
}

func TestEnvidoDeclarationAdjudication(t *testing.T) {
	// Calling team (1) declares first, mano team is 1.
	e := newEnvidoState(Envido, 1)
	e.beginDeclarations([]int{0, 1})
	if e.declarerSeat() != 0 {
		t.Fatalf("expected seat 0 to declare first, got %d", e.declarerSeat())
	}
	if done := e.declare(EnvidoDeclaration{Seat: 0, Team: 1, Points: 27}, 1); done {
		t.Fatal("declaration should still be open")
	}
	if done := e.declare(EnvidoDeclaration{Seat: 1, Team: 2, Points: 29}, 1); !done {
		t.Fatal("declaration should be complete")
	}
	if e.bestTeam != 2 || e.bestValue != 29 {
		t.Fatalf("got best team=%d value=%d, want team=2 value=29", e.bestTeam, e.bestValue)
	}
}

// Exact ties fall to the mano's team, regardless of declaration order.
func TestEnvidoDeclarationTieGoesToMano(t *testing.T) {
	e := newEnvidoState(Envido, 2)
	e.beginDeclarations([]int{1, 0})
	e.declare(EnvidoDeclaration{Seat: 1, Team: 2, Points: 27}, 1)
	e.declare(EnvidoDeclaration{Seat: 0, Team: 1, Points: 27}, 1)
	if e.bestTeam != 1 {
		t.Fatalf("tie should fall to mano team 1, got %d", e.bestTeam)
	}
}

// "Son buenas" on a matching value concedes to the standing best.
func TestEnvidoDeclarationSonBuenas(t *testing.T) {
	e := newEnvidoState(Envido, 1)
	e.beginDeclarations([]int{0, 1})
	e.declare(EnvidoDeclaration{Seat: 0, Team: 1, Points: 31}, 2)
	done := e.declare(EnvidoDeclaration{Seat: 1, Team: 2, Points: 31, SonBuenas: true}, 2)
	if !done || !e.conceded {
		t.Fatal("son buenas should end the declaration as a concession")
	}
	if e.bestTeam != 1 {
		t.Fatalf("conceded tie should leave team 1 best, got %d", e.bestTeam)
	}
}
