package engine

import (
	"math/rand/v2"
)

// seedStream is the second PCG word; any fixed odd constant gives a distinct stream per seed
const seedStream = 0x9e3779b97f4a7c15

// NewRand returns a deterministic generator for a deal seed
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seedStream))
}

// RandomSeed picks a non-zero seed for an unseeded deal
func RandomSeed() uint64 {
	for {
		if s := rand.Uint64(); s != 0 {
			return s
		}
	}
}

// ShuffleDeck permutes deck in place with Fisher-Yates
func ShuffleDeck(deck []Card, rng *rand.Rand) {
	for i := len(deck) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// DealTable lays out a shuffled deck. Cards are taken from the end of deck one row at a
// time: row r gives one card to every column c >= r, face up only for column r. The 24
// cards left over become the stock in their remaining order, so the last of them is on top.
func DealTable(deck []Card) Table {
	if len(deck) != DeckSize {
		panic("engine: deal needs a full deck")
	}
	remaining := append([]Card(nil), deck...)
	pop := func() Card {
		c := remaining[len(remaining)-1]
		remaining = remaining[:len(remaining)-1]
		return c
	}

	var t Table
	for row := 0; row < TableauColumns; row++ {
		for col := row; col < TableauColumns; col++ {
			t.Tableau[col] = append(t.Tableau[col], PlacedCard{Card: pop(), FaceUp: col == row})
		}
	}

	t.Stock = make(Pile, 0, len(remaining))
	for _, c := range remaining {
		t.Stock = append(t.Stock, PlacedCard{Card: c})
	}
	t.Waste = Pile{}
	for i := range t.Foundations {
		t.Foundations[i] = Pile{}
	}
	return t
}

// Deal builds, shuffles and lays out a fresh deck
func Deal(rng *rand.Rand) Table {
	deck := NewDeck()
	ShuffleDeck(deck, rng)
	return DealTable(deck)
}
