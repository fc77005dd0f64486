package service

import (
	"time"

	"github.com/wricardo/klondike/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string        `json:"id"`
	ConfigName     string        `json:"config_name"`
	CreatedAt      time.Time     `json:"created_at"`
	LastAccessedAt time.Time     `json:"last_accessed_at"`
	GameState      *engine.State `json:"game_state"`
	Rules          *engine.Rules `json:"rules"`
}

// CreateSessionRequest selects the preset and, optionally, overrides its draw mode and seed
type CreateSessionRequest struct {
	ConfigID string `json:"config_id,omitempty"`
	DrawMode string `json:"draw_mode,omitempty"`
	Seed     uint64 `json:"seed,omitempty"`
}

// DealRequest starts a new game in an existing session
type DealRequest struct {
	DrawMode string `json:"draw_mode,omitempty"`
	Seed     uint64 `json:"seed,omitempty"`
}

// MoveRequest names a card and its piles using card and pile notation ("QH", "tableau-3")
type MoveRequest struct {
	Card string `json:"card"`
	From string `json:"from"`
	To   string `json:"to,omitempty"`
}

// ActionResult contains the result of any state-changing request. A rejected request
// is not an error: Success is false and the state is unchanged.
type ActionResult struct {
	Success    bool               `json:"success"`
	GameState  *engine.State      `json:"game_state"`
	Message    string             `json:"message"`
	Action     *engine.Action     `json:"action,omitempty"`
	Moved      []engine.Card      `json:"moved,omitempty"`
	Flipped    *engine.Card       `json:"flipped,omitempty"`
	SolverMove *engine.SolverMove `json:"solver_move,omitempty"`
	Events     []GameEvent        `json:"events,omitempty"`
}

// AutoSolveResult summarises a background auto-solve run
type AutoSolveResult struct {
	Moves     []engine.SolverMove `json:"moves"`
	Won       bool                `json:"won"`
	Stalled   bool                `json:"stalled"`
	GameState *engine.State       `json:"game_state"`
}

// Event types
const (
	EventDeal          = "deal"
	EventMove          = "move"
	EventDraw          = "draw"
	EventResetDeck     = "reset_deck"
	EventUndo          = "undo"
	EventFlip          = "flip"
	EventAutoSolve     = "auto_solve"
	EventAutoSolveMove = "auto_solve_move"
	EventStalled       = "stalled"
	EventWon           = "won"
)

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryOptions configures action log retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryEntry is one action log entry with its 1-based position in the log
type HistoryEntry struct {
	Seq    int           `json:"seq"`
	Action engine.Action `json:"action"`
}

// HistoryResponse contains a page of the action log
type HistoryResponse struct {
	Actions      []HistoryEntry `json:"actions"`
	TotalActions int            `json:"total_actions"`
	Page         int            `json:"page"`
	PageSize     int            `json:"page_size"`
	TotalPages   int            `json:"total_pages"`
	HasNext      bool           `json:"has_next"`
	HasPrevious  bool           `json:"has_previous"`
}

// ConfigInfo provides information about a rule preset
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	DrawMode    string `json:"draw_mode"`
	AutoSolve   bool   `json:"auto_solve"`
	Seeded      bool   `json:"seeded"`
}
