package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound is the service sentinel so callers can match on either package
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

const idAttempts = 16

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the manager's logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Manager keeps sessions in memory, keyed case-insensitively, and mirrors them to an
// optional persistence layer
type Manager struct {
	sessions    map[string]*service.Session
	persistence SessionPersistence
	logger      *zap.Logger
	mu          sync.RWMutex
}

// NewManager creates an in-memory session manager
func NewManager(opts ...Option) *Manager {
	return NewManagerWithPersistence(nil, opts...)
}

// NewManagerWithPersistence creates a session manager backed by persistence
func NewManagerWithPersistence(persistence SessionPersistence, opts ...Option) *Manager {
	m := &Manager{
		sessions:    make(map[string]*service.Session),
		persistence: persistence,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func key(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Create creates a session playing by rules. An empty id generates one.
// The engine starts in the menu; the caller deals.
func (m *Manager) Create(id, configID string, rules *engine.Rules) (*service.Session, error) {
	if strings.ContainsAny(id, `/\ `) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		var err error
		if id, err = m.generateSessionID(); err != nil {
			return nil, err
		}
	} else if _, exists := m.sessions[key(id)]; exists {
		return nil, ErrSessionAlreadyExists
	}

	eng, err := engine.NewEngine(rules, engine.WithLogger(m.logger.With(zap.String("session", id))))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	now := time.Now()
	session := &service.Session{
		ID:             id,
		Engine:         eng,
		Rules:          eng.GetRules(),
		ConfigID:       configID,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.sessions[key(id)] = session

	m.persist(session)
	return session, nil
}

// persist saves a session, logging rather than failing on error
func (m *Manager) persist(session *service.Session) {
	if m.persistence == nil {
		return
	}
	if err := m.persistence.Save(session); err != nil {
		m.logger.Warn("failed to persist session", zap.String("session", session.ID), zap.Error(err))
	}
}

// Get retrieves a session by id, loading it from persistence when not in memory
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	session, exists := m.sessions[key(id)]
	m.mu.RUnlock()
	if exists {
		return session, nil
	}

	if m.persistence == nil || !m.persistence.Exists(id) {
		return nil, ErrSessionNotFound
	}

	loaded, err := m.persistence.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// another goroutine may have loaded it first
	if session, exists := m.sessions[key(id)]; exists {
		return session, nil
	}
	m.sessions[key(id)] = loaded
	return loaded, nil
}

// List returns all sessions in memory
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// Delete removes a session from memory and from persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, inMemory := m.sessions[key(id)]
	delete(m.sessions, key(id))

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory evicts a session without touching persistence
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[key(id)]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, key(id))
	return nil
}

// UpdateLastAccessed stamps the session and persists it
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[key(id)]
	if !exists {
		return ErrSessionNotFound
	}
	session.LastAccessedAt = time.Now()
	m.persist(session)
	return nil
}

// Save persists one session
func (m *Manager) Save(id string) error {
	m.mu.RLock()
	session, exists := m.sessions[key(id)]
	m.mu.RUnlock()

	if !exists {
		return ErrSessionNotFound
	}
	if m.persistence == nil {
		return nil
	}
	return m.persistence.Save(session)
}

// CleanupExpiredSessions evicts sessions idle for longer than maxAge. Persisted
// copies are kept and reload on the next Get.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for k, session := range m.sessions {
		if session.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, k)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("expired sessions evicted", zap.Int("count", removed))
	}
	return removed
}

// Count returns the number of sessions in memory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionID returns an unused 4-character hex id. Callers hold m.mu.
func (m *Manager) generateSessionID() (string, error) {
	buf := make([]byte, 2)
	for range idAttempts {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate session id: %w", err)
		}
		id := hex.EncodeToString(buf)
		if _, taken := m.sessions[id]; taken {
			continue
		}
		if m.persistence != nil && m.persistence.Exists(id) {
			continue
		}
		return id, nil
	}
	return "", fmt.Errorf("%w: no free id after %d attempts", ErrInvalidSessionID, idAttempts)
}

// LoadPersistedSessions loads every persisted session not already in memory.
// Sessions that fail to load are skipped.
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		if _, exists := m.sessions[key(id)]; exists {
			continue
		}
		session, err := m.persistence.Load(id)
		if err != nil {
			m.logger.Warn("failed to load persisted session", zap.String("session", id), zap.Error(err))
			continue
		}
		m.sessions[key(id)] = session
		loaded++
	}

	if loaded > 0 {
		m.logger.Info("loaded persisted sessions", zap.Int("count", loaded))
	}
	return nil
}

// SaveAllSessions persists every session in memory
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	sessions := m.List()
	failed := 0
	for _, session := range sessions {
		if err := m.persistence.Save(session); err != nil {
			m.logger.Warn("failed to save session", zap.String("session", session.ID), zap.Error(err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to save %d sessions", failed)
	}
	return nil
}
