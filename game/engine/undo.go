package engine

import (
	"fmt"

	"go.uber.org/zap"
)

func (e *GameEngine) canUndo() bool {
	return !e.state.Dragging && e.state.Status == Playing && e.state.Actions.Len() > 0
}

// Undo reverts the most recent logged action. It does nothing while a card is being
// dragged, when the log is empty, or outside normal play.
//
// Undo panics if the table no longer matches the log, since continuing would lose cards.
func (e *GameEngine) Undo() (Action, bool) {
	if !e.canUndo() {
		return Action{}, false
	}
	a, _ := e.state.Actions.Pop()
	t := &e.state.Table

	switch a.Kind {
	case ActionMoveCard:
		dst := t.Pile(a.To)
		idx := dst.IndexOf(a.Card)
		if idx < 0 {
			panic(fmt.Sprintf("engine: undo %s: %s is not in %s", a, a.Card, a.To))
		}
		src := t.Pile(a.From)
		if len(*src) != a.FromIndex {
			panic(fmt.Sprintf("engine: undo %s: %s holds %d cards, expected %d", a, a.From, len(*src), a.FromIndex))
		}
		if a.ParentFaceDown {
			if len(*src) == 0 {
				panic(fmt.Sprintf("engine: undo %s: no card to cover in %s", a, a.From))
			}
			(*src)[len(*src)-1].FaceUp = false
		}
		*src = append(*src, removeTop(dst, len(*dst)-idx)...)

	case ActionResetDeck:
		if len(t.Waste) != 0 {
			panic(fmt.Sprintf("engine: undo %s: waste holds %d cards", a, len(t.Waste)))
		}
		t.Waste = turnOver(t.Stock, true)
		t.Stock = Pile{}

	case ActionDraw:
		if len(t.Waste) < a.Count {
			panic(fmt.Sprintf("engine: undo %s: waste holds only %d cards", a, len(t.Waste)))
		}
		for i := 0; i < a.Count; i++ {
			pc := t.Waste[len(t.Waste)-1]
			t.Waste = t.Waste[:len(t.Waste)-1]
			pc.FaceUp = false
			t.Stock = append(t.Stock, pc)
		}

	default:
		panic(fmt.Sprintf("engine: undo: unknown action kind %q", a.Kind))
	}

	e.state.SolveStalled = false
	e.logger.Debug("undo", zap.Stringer("action", a))
	e.evaluate()
	return a, true
}
