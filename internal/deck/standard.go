package deck

import "github.com/recallhq/recall/internal/models"

// StandardSpec returns the default 54-card deck: four suits, A through K,
// queens grant peek, jacks grant swap, two jokers worth zero.
func StandardSpec() Spec {
	return Spec{
		Suits: []string{"hearts", "diamonds", "clubs", "spades"},
		Ranks: map[string]RankSpec{
			"A":  {Points: 1, QuantityPerSuit: 1},
			"2":  {Points: 2, QuantityPerSuit: 1},
			"3":  {Points: 3, QuantityPerSuit: 1},
			"4":  {Points: 4, QuantityPerSuit: 1},
			"5":  {Points: 5, QuantityPerSuit: 1},
			"6":  {Points: 6, QuantityPerSuit: 1},
			"7":  {Points: 7, QuantityPerSuit: 1},
			"8":  {Points: 8, QuantityPerSuit: 1},
			"9":  {Points: 9, QuantityPerSuit: 1},
			"10": {Points: 10, QuantityPerSuit: 1},
			"J":  {Points: 11, Special: models.SpecialSwap, QuantityPerSuit: 1},
			"Q":  {Points: 12, Special: models.SpecialPeek, QuantityPerSuit: 1},
			"K":  {Points: 13, QuantityPerSuit: 1},
		},
		Jokers: &JokerSpec{Points: 0, QuantityTotal: 2},
	}
}

// TestingSpec returns a small two-suit deck for deterministic tests.
func TestingSpec() Spec {
	return Spec{
		Suits: []string{"hearts", "spades"},
		Ranks: map[string]RankSpec{
			"A": {Points: 1, QuantityPerSuit: 2},
			"5": {Points: 5, QuantityPerSuit: 2},
			"J": {Points: 11, Special: models.SpecialSwap, QuantityPerSuit: 1},
			"Q": {Points: 12, Special: models.SpecialPeek, QuantityPerSuit: 1},
			"K": {Points: 13, QuantityPerSuit: 2},
		},
		Testing: true,
	}
}
