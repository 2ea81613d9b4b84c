// Package deck builds and validates card decks from declarative specs.
// The factory is the only place cards are created; once built, cards are
// immutable and move around the game by pointer.
package deck

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/recallhq/recall/internal/models"
)

// JokerSuit marks all joker copies. Jokers carry no real suit.
const JokerSuit = "X"

// RankSpec declares one rank of the deck.
type RankSpec struct {
	Points          int                 `mapstructure:"points" json:"points"`
	Special         models.SpecialPower `mapstructure:"special" json:"special,omitempty"`
	QuantityPerSuit int                 `mapstructure:"quantity_per_suit" json:"quantityPerSuit"`
}

// JokerSpec declares the optional joker section.
type JokerSpec struct {
	Points        int `mapstructure:"points" json:"points"`
	QuantityTotal int `mapstructure:"quantity_total" json:"quantityTotal"`
}

// Spec is the declarative description of a deck. Loaded from config or
// supplied directly by tests.
type Spec struct {
	Suits   []string            `mapstructure:"suits" json:"suits"`
	Ranks   map[string]RankSpec `mapstructure:"ranks" json:"ranks"`
	Jokers  *JokerSpec          `mapstructure:"jokers" json:"jokers,omitempty"`
	Testing bool                `mapstructure:"testing" json:"testing,omitempty"`
}

// ValidationResult reports whether a spec can produce a playable deck.
// Errors block Build; warnings do not.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate checks a spec for structural problems without building anything.
func Validate(spec Spec) ValidationResult {
	res := ValidationResult{Valid: true}

	if len(spec.Suits) == 0 {
		res.Errors = append(res.Errors, "spec declares no suits")
	}
	if len(spec.Ranks) == 0 {
		res.Errors = append(res.Errors, "spec declares no ranks")
	}
	seen := map[string]bool{}
	for _, s := range spec.Suits {
		if seen[s] {
			res.Errors = append(res.Errors, fmt.Sprintf("duplicate suit %q", s))
		}
		seen[s] = true
	}
	for rank, rs := range spec.Ranks {
		if rs.QuantityPerSuit <= 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("rank %q has non-positive quantity_per_suit", rank))
		}
		if rs.Points < -13 || rs.Points > 50 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("rank %q has unusual point value %d", rank, rs.Points))
		}
	}
	if spec.Jokers != nil && spec.Jokers.QuantityTotal == 0 {
		res.Warnings = append(res.Warnings, "joker section declared with quantity_total 0")
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// ExpectedCount returns the number of cards the spec should produce.
func ExpectedCount(spec Spec) int {
	n := 0
	for _, rs := range spec.Ranks {
		n += rs.QuantityPerSuit * len(spec.Suits)
	}
	if spec.Jokers != nil {
		n += spec.Jokers.QuantityTotal
	}
	return n
}

// Build creates every card the spec declares, in deterministic order
// (suits as listed, ranks sorted). IDs are derived per game so two games
// built from the same spec never share card IDs. The result is unshuffled;
// callers shuffle separately so deals stay testable.
func Build(spec Spec, gameID uuid.UUID) ([]*models.Card, error) {
	if res := Validate(spec); !res.Valid {
		return nil, fmt.Errorf("invalid deck spec: %v", res.Errors)
	}

	ranks := make([]string, 0, len(spec.Ranks))
	for r := range spec.Ranks {
		ranks = append(ranks, r)
	}
	sort.Strings(ranks)

	var cards []*models.Card
	for _, suit := range spec.Suits {
		for _, rank := range ranks {
			rs := spec.Ranks[rank]
			for i := 0; i < rs.QuantityPerSuit; i++ {
				cards = append(cards, &models.Card{
					ID:      cardID(gameID, rank, suit, i),
					Rank:    rank,
					Suit:    suit,
					Points:  rs.Points,
					Special: rs.Special,
				})
			}
		}
	}
	if spec.Jokers != nil {
		for i := 0; i < spec.Jokers.QuantityTotal; i++ {
			cards = append(cards, &models.Card{
				ID:     cardID(gameID, "joker", JokerSuit, i),
				Rank:   "joker",
				Suit:   JokerSuit,
				Points: spec.Jokers.Points,
			})
		}
	}

	if want := ExpectedCount(spec); len(cards) != want {
		return nil, fmt.Errorf("deck build produced %d cards, spec expects %d", len(cards), want)
	}
	return cards, nil
}

// cardID derives a card ID unique within the game. Uniqueness is the only
// contract; the inputs just make collisions impossible across occurrences
// and concurrent builds.
func cardID(gameID uuid.UUID, rank, suit string, occurrence int) uuid.UUID {
	name := fmt.Sprintf("%s|%s|%d|%d", rank, suit, occurrence, time.Now().UnixNano())
	return uuid.NewSHA1(gameID, []byte(name))
}

// Shuffle permutes the deck in place using a time-seeded source.
func Shuffle(cards []*models.Card) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
}
