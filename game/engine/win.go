package engine

// IsWon reports whether all four foundations have a King on top. Checking the top is
// enough because a foundation only ever accepts the next card of its own suit.
func IsWon(t *Table) bool {
	for _, f := range t.Foundations {
		top, ok := f.Top()
		if !ok || top.Card.Rank != King {
			return false
		}
	}
	return true
}

// ShouldAttemptAutoSolve reports whether the rest of the game is a plain search:
// the stock is empty, every card is face up, and the waste holds at most its top card.
func ShouldAttemptAutoSolve(deckEmpty, allCardsFaceUp, discardSettled bool) bool {
	return deckEmpty && allCardsFaceUp && discardSettled
}
