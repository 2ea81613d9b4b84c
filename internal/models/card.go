package models

import "github.com/google/uuid"

// SpecialPower identifies the ability a card grants when played from a draw.
type SpecialPower string

const (
	// SpecialNone marks a card with no ability.
	SpecialNone SpecialPower = ""

	// SpecialPeek lets the player privately look at one card (queens).
	SpecialPeek SpecialPower = "peek"

	// SpecialSwap lets the player exchange any two cards between hands (jacks).
	SpecialSwap SpecialPower = "swap"
)

// Card is an immutable playing card. Cards never change fields after the
// deck is built; all movement between piles and hands is pointer movement.
type Card struct {
	ID      uuid.UUID    `json:"id"`
	Rank    string       `json:"rank"`
	Suit    string       `json:"suit"`
	Points  int          `json:"points"`
	Special SpecialPower `json:"special,omitempty"`
}

// HasSpecial reports whether playing this card opens a special sub-protocol.
func (c *Card) HasSpecial() bool {
	return c.Special != SpecialNone
}

// CardFace is the rank/suit/points view of a card a player has seen.
// Stored in a player's private memory keyed by card ID, so later peeks and
// swaps can be reconciled without re-revealing the card to anyone else.
type CardFace struct {
	Rank   string `json:"rank"`
	Suit   string `json:"suit"`
	Points int    `json:"points"`
}

// Face returns the knowable view of the card.
func (c *Card) Face() CardFace {
	return CardFace{Rank: c.Rank, Suit: c.Suit, Points: c.Points}
}
