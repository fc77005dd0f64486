package session

import (
	"time"

	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
)

// SessionPersistence stores sessions outside the process
type SessionPersistence interface {
	Save(session *service.Session) error
	Load(id string) (*service.Session, error)
	Delete(id string) error
	// ListAll returns the ids of all stored sessions
	ListAll() ([]string, error)
	Exists(id string) bool
}

// PersistedSessionData is the on-disk form of a session. Rules are not stored; the
// preset named by ConfigID is loaded again on restore.
type PersistedSessionData struct {
	ID             string        `json:"id"`
	ConfigID       string        `json:"config_id"`
	CreatedAt      time.Time     `json:"created_at"`
	LastAccessedAt time.Time     `json:"last_accessed_at"`
	GameState      *engine.State `json:"game_state"`
}
