package engine

import "go.uber.org/zap"

// ValidateMove reports whether card may move from one pile to another on table t.
// A tableau card takes every card above it along; waste and foundation moves are
// top card only. The stock is never a source and neither stock nor waste is a target.
func ValidateMove(t *Table, card Card, from, to PileID) bool {
	_, ok := locateMove(t, card, from, to)
	return ok
}

// locateMove validates a move and returns the index of card in from
func locateMove(t *Table, card Card, from, to PileID) (int, bool) {
	if !from.Valid() || !to.Valid() || from == to {
		return 0, false
	}
	if from.Kind() == StockPile {
		return 0, false
	}
	if k := to.Kind(); k != TableauPile && k != FoundationPile {
		return 0, false
	}

	src := *t.Pile(from)
	idx := src.IndexOf(card)
	if idx < 0 || !src[idx].FaceUp {
		return 0, false
	}
	hasChildren := idx < len(src)-1
	if hasChildren && (from.Kind() != TableauPile || !isRun(src[idx:])) {
		return 0, false
	}

	if !CanAccept(to, topCard(*t.Pile(to)), card, hasChildren) {
		return 0, false
	}
	return idx, true
}

// ValidateMove checks a move against the current table without applying it
func (e *GameEngine) ValidateMove(card Card, from, to PileID) bool {
	return ValidateMove(&e.state.Table, card, from, to)
}

// RequestMove applies a player move if it is legal. Rejections leave state untouched.
func (e *GameEngine) RequestMove(card Card, from, to PileID) MoveResult {
	if e.state.Status != Playing {
		return MoveResult{}
	}
	idx, ok := locateMove(&e.state.Table, card, from, to)
	if !ok {
		return MoveResult{}
	}

	e.state.SolveStalled = false
	res := e.applyMove(card, from, to, idx, true)
	e.evaluate()
	return res
}

// AutoMoveToFoundation sends a single exposed card to its suit's foundation (the
// double-click gesture).
func (e *GameEngine) AutoMoveToFoundation(card Card, from PileID) MoveResult {
	return e.RequestMove(card, from, FoundationID(card.Suit))
}

// applyMove moves card and everything above it, flips the newly exposed tableau card,
// and records the action when record is set.
func (e *GameEngine) applyMove(card Card, from, to PileID, idx int, record bool) MoveResult {
	src := e.state.Table.Pile(from)
	dst := e.state.Table.Pile(to)

	moved := removeTop(src, len(*src)-idx)
	*dst = append(*dst, moved...)

	action := Action{
		Kind:      ActionMoveCard,
		Card:      card,
		From:      from,
		To:        to,
		FromIndex: idx,
		Auto:      !record,
	}
	res := MoveResult{Accepted: true, Action: &action}
	for _, pc := range moved {
		res.Moved = append(res.Moved, pc.Card)
	}

	if from.Kind() == TableauPile && idx > 0 && !(*src)[idx-1].FaceUp {
		(*src)[idx-1].FaceUp = true
		action.ParentFaceDown = true
		flipped := (*src)[idx-1].Card
		res.Flipped = &flipped
	}

	if record || e.rules.LogAutoSolveMoves {
		e.state.Actions.Push(action)
	}
	e.logger.Debug("move", zap.Stringer("action", action), zap.Int("cards", len(moved)))
	return res
}

// RequestDraw turns up to DrawMode cards from the stock onto the waste.
// It is rejected when the stock is empty; use RequestResetDeck instead.
func (e *GameEngine) RequestDraw() bool {
	if e.state.Status != Playing {
		return false
	}
	t := &e.state.Table
	if len(t.Stock) == 0 {
		return false
	}

	n := min(e.state.DrawMode.Count(), len(t.Stock))
	for i := 0; i < n; i++ {
		pc := t.Stock[len(t.Stock)-1]
		t.Stock = t.Stock[:len(t.Stock)-1]
		pc.FaceUp = true
		t.Waste = append(t.Waste, pc)
	}

	e.state.SolveStalled = false
	e.state.Actions.Push(Action{Kind: ActionDraw, From: Stock, To: Waste, Count: n})
	e.evaluate()
	return true
}

// RequestResetDeck turns the waste back over into the stock. The bottom waste card
// becomes the next card drawn.
func (e *GameEngine) RequestResetDeck() bool {
	if e.state.Status != Playing {
		return false
	}
	t := &e.state.Table
	if len(t.Stock) != 0 || len(t.Waste) == 0 {
		return false
	}

	t.Stock = turnOver(t.Waste, false)
	t.Waste = Pile{}

	e.state.SolveStalled = false
	e.state.Actions.Push(Action{Kind: ActionResetDeck, From: Waste, To: Stock})
	e.evaluate()
	return true
}

// turnOver returns p reversed with every card set to the given face
func turnOver(p Pile, faceUp bool) Pile {
	out := make(Pile, 0, len(p))
	for i := len(p) - 1; i >= 0; i-- {
		pc := p[i]
		pc.FaceUp = faceUp
		out = append(out, pc)
	}
	return out
}
