package bot

import (
	"math/rand"

	"truco-mesa/card"
	"truco-mesa/truco"
)

// Strength thresholds for the rule brain. Envido values top out at 33 and
// card power at 13, so these are absolute, not tuned per opponent.
const (
	envidoCallAt   = 27
	envidoAcceptAt = 24
	trucoAcceptAt  = 10 // at least one mata in hand
	trucoCallAt    = 12 // one of the two top matas
)

// RuleBrain is a deterministic-ish bot: fixed thresholds with a seeded
// rng for the occasional opening call, so two bots at one mesa don't
// mirror each other move for move.
type RuleBrain struct {
	name string
	rng  *rand.Rand
}

func NewRuleBrain(name string, seed int64) *RuleBrain {
	return &RuleBrain{name: name, rng: rand.New(rand.NewSource(seed))}
}

func (b *RuleBrain) Name() string { return b.name }

func (b *RuleBrain) Decide(view truco.Snapshot) Decision {
	if p := view.Pending; p != nil {
		switch p.Kind {
		case "truco":
			return Decision{Action: ActRespondTruco, Accept: b.bestPower(view.YourHand) >= trucoAcceptAt}
		case "envido":
			return Decision{Action: ActRespondEnvido, Accept: truco.EnvidoValue(view.YourHand) >= envidoAcceptAt}
		case "envido-declaration":
			return Decision{Action: ActDeclareEnvido, Points: truco.EnvidoValue(view.YourHand)}
		case "flor":
			if view.YourFlor {
				return Decision{Action: ActRespondFlor, Flor: truco.FlorRaiseContra}
			}
			return Decision{Action: ActRespondFlor, Flor: truco.FlorAck}
		case "perros":
			return Decision{
				Action:           ActRespondPerros,
				WantsContraFlor:  view.YourFlor,
				WantsFaltaEnvido: truco.EnvidoValue(view.YourHand) >= envidoCallAt,
				WantsTruco:       b.bestPower(view.YourHand) >= trucoAcceptAt,
			}
		}
	}

	// Our turn to play. Open with a flor or a strong envido while the
	// window is still open.
	if view.RoundStatus == truco.RoundAwaitingCalls.String() {
		if view.YourFlor {
			return Decision{Action: ActCallFlor}
		}
		if truco.EnvidoValue(view.YourHand) >= envidoCallAt && b.rng.Intn(4) > 0 {
			return Decision{Action: ActCallEnvido, EnvidoLevel: truco.Envido}
		}
	}
	return Decision{Action: ActPlayCard, Card: b.pickCard(view)}
}

func (b *RuleBrain) bestPower(hand []card.Card) int {
	best := -1
	for _, c := range hand {
		if p := c.Power(); p > best {
			best = p
		}
	}
	return best
}

// pickCard plays the cheapest card that still takes the trick, the
// highest card when leading, and the lowest when the trick is lost.
func (b *RuleBrain) pickCard(view truco.Snapshot) card.Card {
	hand := view.YourHand
	top := b.topOpposingPower(view)
	if top < 0 {
		// Leading: put the strongest card out.
		best := hand[0]
		for _, c := range hand[1:] {
			if c.Power() > best.Power() {
				best = c
			}
		}
		return best
	}
	var winner card.Card
	winnerSet := false
	for _, c := range hand {
		if c.Power() > top && (!winnerSet || c.Power() < winner.Power()) {
			winner = c
			winnerSet = true
		}
	}
	if winnerSet {
		return winner
	}
	low := hand[0]
	for _, c := range hand[1:] {
		if c.Power() < low.Power() {
			low = c
		}
	}
	return low
}

// topOpposingPower is the strongest opposing card in the current trick,
// or -1 when the bot leads.
func (b *RuleBrain) topOpposingPower(view truco.Snapshot) int {
	if len(view.Tricks) == 0 {
		return -1
	}
	myTeam := 0
	for _, p := range view.Players {
		if p.Seat == view.YourSeat {
			myTeam = p.Team
		}
	}
	trick := view.Tricks[len(view.Tricks)-1]
	top := -1
	for _, pl := range trick.Plays {
		for _, p := range view.Players {
			if p.Seat == pl.Seat && p.Team != myTeam && pl.Card.Power() > top {
				top = pl.Card.Power()
			}
		}
	}
	if len(trick.Plays) == 0 {
		return -1
	}
	return top
}
