package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
	"go.uber.org/zap"
)

const sessionExt = ".json"

// FilePersistence stores each session as <id>.json in a directory
type FilePersistence struct {
	sessionsDir   string
	configManager service.ConfigManager
	logger        *zap.Logger
}

// NewFilePersistence creates the sessions directory if needed
func NewFilePersistence(sessionsDir string, configManager service.ConfigManager, opts ...FileOption) (*FilePersistence, error) {
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	fp := &FilePersistence{
		sessionsDir:   sessionsDir,
		configManager: configManager,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(fp)
	}
	return fp, nil
}

// FileOption configures a FilePersistence
type FileOption func(*FilePersistence)

// WithFileLogger sets the logger used when a preset is missing on restore
func WithFileLogger(logger *zap.Logger) FileOption {
	return func(fp *FilePersistence) {
		if logger != nil {
			fp.logger = logger
		}
	}
}

// Save writes the session through a temp file so readers never see a partial file
func (fp *FilePersistence) Save(session *service.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	path, err := fp.getFilePath(session.ID)
	if err != nil {
		return err
	}

	data := PersistedSessionData{
		ID:             session.ID,
		ConfigID:       session.ConfigID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		GameState:      session.Engine.GetState(),
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load restores a session, rebuilding its engine from the stored preset id
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	path, err := fp.getFilePath(id)
	if err != nil {
		return nil, err
	}

	jsonData, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	if data.GameState == nil {
		return nil, fmt.Errorf("session %s has no game state", id)
	}

	rules, err := fp.configManager.LoadConfig(data.ConfigID)
	if err != nil {
		fp.logger.Warn("preset missing, restoring with default rules",
			zap.String("session", data.ID),
			zap.String("config", data.ConfigID),
			zap.Error(err))
		rules = fp.configManager.GetDefault()
	}

	eng, err := engine.NewEngine(rules, engine.WithLogger(fp.logger.With(zap.String("session", data.ID))))
	if err != nil {
		return nil, fmt.Errorf("failed to create game engine: %w", err)
	}
	if err := eng.SetState(data.GameState); err != nil {
		return nil, fmt.Errorf("failed to restore game state: %w", err)
	}

	return &service.Session{
		ID:             data.ID,
		Engine:         eng,
		Rules:          eng.GetRules(),
		ConfigID:       data.ConfigID,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}

// Delete removes a session file
func (fp *FilePersistence) Delete(id string) error {
	path, err := fp.getFilePath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// ListAll returns the ids of all stored sessions
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, sessionExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, sessionExt))
	}
	return ids, nil
}

// Exists reports whether a session file exists
func (fp *FilePersistence) Exists(id string) bool {
	path, err := fp.getFilePath(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (fp *FilePersistence) getFilePath(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return filepath.Join(fp.sessionsDir, id+sessionExt), nil
}
