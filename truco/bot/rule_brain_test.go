package bot

import (
	"testing"

	"truco-mesa/card"
	"truco-mesa/truco"
)

func startMesa(t *testing.T, h0, h1 []card.Card) *truco.Mesa {
	t.Helper()
	used := map[card.Card]bool{}
	var deck []card.Card
	for i := 0; i < 3; i++ {
		for _, h := range [][]card.Card{h0, h1} {
			deck = append(deck, h[i])
			used[h[i]] = true
		}
	}
	for _, c := range card.TrucoCards {
		if !used[c] {
			deck = append(deck, c)
		}
	}
	dealer := 1
	m, err := truco.NewMesa(truco.Config{
		TeamSize: 1, WithFlor: true, Seed: 3,
		DeckOverride: deck, ForcedDealerSeat: &dealer,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Join("a", "a", false); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Join("b", "bot", true); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestRuleBrainAcceptsTrucoWithMata(t *testing.T) {
	h0 := []card.Card{card.Make(card.Gold, 4), card.Make(card.Cup, 5), card.Make(card.Sword, 6)}
	h1 := []card.Card{card.Make(card.Sword, 1), card.Make(card.Cup, 4), card.Make(card.Gold, 6)}
	m := startMesa(t, h0, h1)
	if err := m.CallTruco(0, truco.LevelTruco); err != nil {
		t.Fatal(err)
	}

	d := NewRuleBrain("bot", 1).Decide(m.SnapshotFor(1))
	if d.Action != ActRespondTruco || !d.Accept {
		t.Fatalf("got %+v, want accepted truco response", d)
	}
}

func TestRuleBrainDeclaresTrueEnvido(t *testing.T) {
	h0 := []card.Card{card.Make(card.Gold, 7), card.Make(card.Gold, 6), card.Make(card.Cup, 1)}
	h1 := []card.Card{card.Make(card.Sword, 5), card.Make(card.Sword, 4), card.Make(card.Cup, 2)}
	m := startMesa(t, h0, h1)
	if err := m.CallEnvido(0, truco.Envido, 0); err != nil {
		t.Fatal(err)
	}

	d := NewRuleBrain("bot", 1).Decide(m.SnapshotFor(1))
	if d.Action != ActRespondEnvido || !d.Accept {
		t.Fatalf("got %+v, want accepted envido (29 in hand)", d)
	}
	if err := m.RespondEnvido(1, true); err != nil {
		t.Fatal(err)
	}
	if err := m.DeclareEnvido(0, 33, false); err != nil {
		t.Fatal(err)
	}

	d = NewRuleBrain("bot", 1).Decide(m.SnapshotFor(1))
	if d.Action != ActDeclareEnvido || d.Points != 29 {
		t.Fatalf("got %+v, want a truthful 29", d)
	}
}

// The brain beats the table with its cheapest winning card.
func TestRuleBrainPlaysCheapestWinner(t *testing.T) {
	h0 := []card.Card{card.Make(card.Gold, 3), card.Make(card.Cup, 5), card.Make(card.Sword, 6)}
	h1 := []card.Card{card.Make(card.Sword, 1), card.Make(card.Sword, 7), card.Make(card.Gold, 4)}
	m := startMesa(t, h0, h1)
	if err := m.PlayCard(0, card.Make(card.Gold, 3)); err != nil {
		t.Fatal(err)
	}

	d := NewRuleBrain("bot", 1).Decide(m.SnapshotFor(1))
	if d.Action != ActPlayCard {
		t.Fatalf("got %+v, want a card play", d)
	}
	if d.Card != card.Make(card.Sword, 7) {
		t.Fatalf("played %s, want 7 de espada over the 3", d.Card)
	}
}
