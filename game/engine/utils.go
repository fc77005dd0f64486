package engine

// topCard returns the top card of a pile, or nil when it is empty
func topCard(p Pile) *Card {
	top, ok := p.Top()
	if !ok {
		return nil
	}
	c := top.Card
	return &c
}

// allFaceUp reports whether no card on the table is hidden. The stock is
// face down by definition, so any stock card counts as hidden.
func allFaceUp(t *Table) bool {
	if len(t.Stock) > 0 {
		return false
	}
	for i := range t.Tableau {
		if t.Tableau[i].FaceDownCount() > 0 {
			return false
		}
	}
	return true
}

// isRun reports whether cards form a face-up, descending, alternating sequence
func isRun(cards Pile) bool {
	for i, pc := range cards {
		if !pc.FaceUp {
			return false
		}
		if i > 0 && !pc.Card.CanStackOn(cards[i-1].Card) {
			return false
		}
	}
	return true
}

func removeTop(p *Pile, n int) Pile {
	cut := len(*p) - n
	moved := append(Pile(nil), (*p)[cut:]...)
	*p = (*p)[:cut]
	return moved
}
