package truco

import (
	"fmt"

	"truco-mesa/card"
)

const (
	DefaultTargetScore = 30
	MaxTeamSize        = 3
)

type Config struct {
	// TeamSize is players per team: 1 (1v1), 2 (2v2) or 3 (3v3).
	TeamSize int

	// TargetScore is the match point target. Defaults to 30.
	TargetScore int

	// WithFlor enables the flor subsystem. Variant flag; defaults on.
	WithFlor bool

	// RNG seed (0 => time-based, chosen by NewMesa).
	Seed int64

	// DeckOverride replaces the shuffled deck for the next deals. Used by
	// tests and replays; must be a permutation of the 40 truco cards. A
	// non-nil override suppresses shuffling so deals are fully scripted.
	DeckOverride []card.Card

	// ForcedDealerSeat pins the first round's dealer. Tests only.
	ForcedDealerSeat *int
}

func (c Config) validate() error {
	if c.TeamSize < 1 || c.TeamSize > MaxTeamSize {
		return fmt.Errorf("TeamSize must be in [1,%d]", MaxTeamSize)
	}
	if c.TargetScore < 0 {
		return fmt.Errorf("TargetScore must be >= 0")
	}
	if c.DeckOverride != nil {
		if len(c.DeckOverride) != len(card.TrucoCards) {
			return fmt.Errorf("deck override must hold %d cards", len(card.TrucoCards))
		}
		seen := make(map[card.Card]struct{}, len(c.DeckOverride))
		for _, cc := range c.DeckOverride {
			if _, dup := seen[cc]; dup {
				return fmt.Errorf("deck override contains duplicate card %v", cc)
			}
			seen[cc] = struct{}{}
		}
	}
	return nil
}

func (c Config) targetScore() int {
	if c.TargetScore == 0 {
		return DefaultTargetScore
	}
	return c.TargetScore
}

func (c Config) seatCount() int { return c.TeamSize * 2 }
