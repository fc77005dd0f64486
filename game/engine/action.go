package engine

import "fmt"

// ActionKind tags an entry in the action log
type ActionKind string

const (
	ActionMoveCard  ActionKind = "move_card"
	ActionResetDeck ActionKind = "reset_deck"
	ActionDraw      ActionKind = "draw"
)

// Action is one reversible entry in the undo log.
//
// For move_card, FromIndex is the position Card occupied in From before the move, and
// ParentFaceDown records that the card beneath it was face down until the move exposed it.
// For draw, Count is the number of cards actually turned. Draw and reset_deck entries
// carry the stock and waste as From and To in the direction the cards travelled.
type Action struct {
	Kind           ActionKind `json:"kind"`
	Card           Card       `json:"card,omitzero"`
	From           PileID     `json:"from"`
	To             PileID     `json:"to"`
	FromIndex      int        `json:"from_index,omitempty"`
	ParentFaceDown bool       `json:"parent_face_down,omitempty"`
	Count          int        `json:"count,omitempty"`
	Auto           bool       `json:"auto,omitempty"`
}

func (a Action) String() string {
	switch a.Kind {
	case ActionMoveCard:
		return fmt.Sprintf("move %s %s -> %s", a.Card, a.From, a.To)
	case ActionResetDeck:
		return "reset deck"
	case ActionDraw:
		return fmt.Sprintf("draw %d", a.Count)
	}
	return string(a.Kind)
}

// ActionLog is a LIFO stack of actions
type ActionLog []Action

// Push appends an action
func (l *ActionLog) Push(a Action) {
	*l = append(*l, a)
}

// Pop removes and returns the most recent action
func (l *ActionLog) Pop() (Action, bool) {
	n := len(*l)
	if n == 0 {
		return Action{}, false
	}
	a := (*l)[n-1]
	*l = (*l)[:n-1]
	return a, true
}

// Len returns the number of logged actions
func (l ActionLog) Len() int { return len(l) }
