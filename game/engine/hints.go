package engine

// HintKind says what a hint asks the player to do
type HintKind string

const (
	HintMove      HintKind = "move"
	HintDraw      HintKind = "draw"
	HintResetDeck HintKind = "reset_deck"
)

// Hint is one legal action on the current table
type Hint struct {
	Kind HintKind `json:"kind"`
	Card Card     `json:"card,omitzero"`
	From PileID   `json:"from"`
	To   PileID   `json:"to"`
	// RunLength is the number of cards that travel together
	RunLength int `json:"run_length,omitempty"`
	// Reveals is set when the move turns a face-down tableau card
	Reveals bool `json:"reveals,omitempty"`
}

// Hints lists every legal action. Foundation moves come first, then tableau moves,
// then the stock action. Nothing is legal outside normal play.
func (e *GameEngine) Hints() []Hint {
	if e.state.Status != Playing {
		return nil
	}
	return LegalMoves(&e.state.Table)
}

// LegalMoves enumerates every legal action on t
func LegalMoves(t *Table) []Hint {
	var toFoundation, toTableau []Hint

	for from := PileID(0); from < pileCount; from++ {
		if from.Kind() == StockPile {
			continue
		}
		src := *t.Pile(from)
		for idx := len(src) - 1; idx >= 0; idx-- {
			if !src[idx].FaceUp {
				break
			}
			card := src[idx].Card
			for to := PileID(0); to < pileCount; to++ {
				if _, ok := locateMove(t, card, from, to); !ok {
					continue
				}
				h := Hint{
					Kind:      HintMove,
					Card:      card,
					From:      from,
					To:        to,
					RunLength: len(src) - idx,
					Reveals:   from.Kind() == TableauPile && idx > 0 && !src[idx-1].FaceUp,
				}
				if to.Kind() == FoundationPile {
					toFoundation = append(toFoundation, h)
				} else {
					toTableau = append(toTableau, h)
				}
			}
			if from.Kind() != TableauPile {
				break
			}
		}
	}

	hints := append(toFoundation, toTableau...)
	switch {
	case len(t.Stock) > 0:
		hints = append(hints, Hint{Kind: HintDraw, From: Stock, To: Waste})
	case len(t.Waste) > 0:
		hints = append(hints, Hint{Kind: HintResetDeck, From: Waste, To: Stock})
	}
	return hints
}
