package service

import (
	"context"
	"time"

	"github.com/wricardo/klondike/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	NewDeal(ctx context.Context, sessionID string, req DealRequest) (*ActionResult, error)
	Move(ctx context.Context, sessionID string, req MoveRequest) (*ActionResult, error)
	AutoMove(ctx context.Context, sessionID string, req MoveRequest) (*ActionResult, error)
	Draw(ctx context.Context, sessionID string) (*ActionResult, error)
	ResetDeck(ctx context.Context, sessionID string) (*ActionResult, error)
	Undo(ctx context.Context, sessionID string) (*ActionResult, error)
	SetDragging(ctx context.Context, sessionID string, dragging bool) (*engine.State, error)
	Tick(ctx context.Context, sessionID string, elapsed time.Duration) (*ActionResult, error)
	RunAutoSolve(ctx context.Context, sessionID string, onStep StepFunc) (*AutoSolveResult, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.State, error)
	GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetHints(ctx context.Context, sessionID string) ([]engine.Hint, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.Rules, error)
	SaveConfig(ctx context.Context, configName string, rules *engine.Rules) error
}

// StepFunc receives every move the background auto-solver makes
type StepFunc func(move engine.SolverMove, state *engine.State)

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, rules *engine.Rules) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles rule preset loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.Rules, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.Rules
	SaveConfig(name string, rules *engine.Rules) error
}

// Session represents an active game session
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	Rules          *engine.Rules
	ConfigID       string
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
