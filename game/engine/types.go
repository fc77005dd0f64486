package engine

import (
	"fmt"
	"time"
)

// GameState is the phase the game is in
type GameState uint8

const (
	Menu GameState = iota
	Playing
	AutoSolving
	Shuffle
	Won
)

var gameStateNames = map[GameState]string{
	Menu:        "menu",
	Playing:     "playing",
	AutoSolving: "auto_solving",
	Shuffle:     "shuffle",
	Won:         "won",
}

func (s GameState) String() string {
	if name, ok := gameStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

func (s GameState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *GameState) UnmarshalText(b []byte) error {
	for k, v := range gameStateNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown game state %q", string(b))
}

// Table holds every pile. Foundations are indexed by Suit.
type Table struct {
	Tableau     [TableauColumns]Pile `json:"tableau"`
	Foundations [4]Pile              `json:"foundations"`
	Stock       Pile                 `json:"stock"`
	Waste       Pile                 `json:"waste"`
}

// Pile returns a pointer to the pile with the given id
func (t *Table) Pile(id PileID) *Pile {
	switch id.Kind() {
	case TableauPile:
		return &t.Tableau[id]
	case FoundationPile:
		s, _ := id.Suit()
		return &t.Foundations[s]
	case StockPile:
		return &t.Stock
	}
	if id == Waste {
		return &t.Waste
	}
	panic(fmt.Sprintf("engine: no pile %d", uint8(id)))
}

// Clone deep-copies the table
func (t *Table) Clone() Table {
	var c Table
	for id := PileID(0); id < pileCount; id++ {
		src := *t.Pile(id)
		if src == nil {
			continue
		}
		*c.Pile(id) = append(Pile(nil), src...)
	}
	return c
}

// State is the complete, serializable state of one game
type State struct {
	Table          Table     `json:"table"`
	Status         GameState `json:"status"`
	DrawMode       DrawMode  `json:"draw_mode"`
	Actions        ActionLog `json:"actions"`
	DealID         string    `json:"deal_id,omitempty"`
	Seed           uint64    `json:"seed"`
	DealtAt        time.Time `json:"dealt_at,omitzero"`
	SolveCountdown Duration  `json:"solve_countdown"`
	SolveStalled   bool      `json:"solve_stalled,omitempty"`
	SolverMoves    int       `json:"solver_moves"`
	Dragging       bool      `json:"dragging,omitempty"`
	Message        string    `json:"message"`
	ConfigName     string    `json:"config_name"`
}

// Clone deep-copies the state so it can be read without holding the engine
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Table = s.Table.Clone()
	c.Actions = append(ActionLog{}, s.Actions...)
	return &c
}

// SolverMove is one foundation move proposed and applied by the auto-solver
type SolverMove struct {
	Card Card   `json:"card"`
	From PileID `json:"from"`
	To   PileID `json:"to"`
}

// MoveResult reports the outcome of a move request
type MoveResult struct {
	Accepted bool    `json:"accepted"`
	Action   *Action `json:"action,omitempty"`
	// Moved lists the cards that changed pile, bottom first
	Moved []Card `json:"moved,omitempty"`
	// Flipped is the tableau card turned face up by the move, if any
	Flipped *Card `json:"flipped,omitempty"`
}

// PileSnapshot is what a renderer needs to draw a pile
type PileSnapshot struct {
	ID            PileID `json:"id"`
	Count         int    `json:"count"`
	FaceDownCount int    `json:"face_down_count"`
	Top           *Card  `json:"top,omitempty"`
	// Visible lists the face-up cards, bottom first
	Visible []Card `json:"visible,omitempty"`
}

// Snapshot is a read-only summary of the table for rendering clients
type Snapshot struct {
	Status    GameState      `json:"status"`
	Piles     []PileSnapshot `json:"piles"`
	DeckEmpty bool           `json:"deck_empty"`
	Won       bool           `json:"won"`
	CanUndo   bool           `json:"can_undo"`
	LogLength int            `json:"log_length"`
}
