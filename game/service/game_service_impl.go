package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/klondike/game/engine"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrAutoSolveRunning   = errors.New("auto-solve already running")
	ErrConfigNotAvailable = errors.New("config not available")
)

// Option configures the game service
type Option func(*gameServiceImpl)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *gameServiceImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	logger   *zap.Logger
	mu       sync.RWMutex
	solving  map[string]bool
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		logger:   zap.NewNop(),
		solving:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newEvent(kind, message string) GameEvent {
	return GameEvent{
		ID:        uuid.NewString(),
		Type:      kind,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// getConfigID returns the preset id for a display name
func (s *gameServiceImpl) getConfigID(displayName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == displayName {
				return cfg.ConfigID
			}
		}
	}
	if displayName == "" {
		return "default"
	}
	return displayName
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     sess.ConfigID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState().Clone(),
		Rules:          sess.Rules,
	}
}

func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return sess, nil
}

// touch records the access and persists the session
func (s *gameServiceImpl) touch(sessionID string) {
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		s.logger.Warn("failed to update session", zap.String("session", sessionID), zap.Error(err))
	}
}

func parseDrawMode(raw string, fallback engine.DrawMode) (engine.DrawMode, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	mode, err := engine.ParseDrawMode(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return mode, nil
}

// CreateSession creates a session from a preset and deals the first game
func (s *gameServiceImpl) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rules *engine.Rules
	var err error
	configID := configIDOf(req.ConfigID)
	if configID != "" {
		rules, err = s.configs.LoadConfig(configID)
		if err != nil {
			availableConfigs, listErr := s.configs.ListConfigs()
			if listErr == nil && len(availableConfigs) > 0 {
				var ids []string
				for _, cfg := range availableConfigs {
					ids = append(ids, cfg.ConfigID)
				}
				return nil, fmt.Errorf("%w: config '%s' (%v). Available configs: %v", ErrConfigNotAvailable, configID, err, ids)
			}
			return nil, fmt.Errorf("%w: config '%s': %v", ErrConfigNotAvailable, configID, err)
		}
	} else {
		rules = s.configs.GetDefault()
		configID = s.getConfigID(rules.Name)
	}

	mode, err := parseDrawMode(req.DrawMode, rules.DrawMode)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Create("", configID, rules)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	deal(sess.Engine, mode, req.Seed)
	if err := s.sessions.Save(sess.ID); err != nil {
		s.logger.Warn("failed to persist new session", zap.String("session", sess.ID), zap.Error(err))
	}

	s.logger.Info("session created",
		zap.String("session", sess.ID),
		zap.String("config", configID),
		zap.Stringer("draw_mode", mode),
		zap.Uint64("seed", sess.Engine.GetState().Seed))

	return s.sessionInfo(sess), nil
}

func configIDOf(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, ".yaml")
	return strings.TrimSuffix(name, ".yml")
}

func deal(eng *engine.GameEngine, mode engine.DrawMode, seed uint64) *engine.State {
	if seed != 0 {
		return eng.NewSeededDeal(mode, seed)
	}
	return eng.NewDeal(mode)
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	// touch writes LastAccessedAt, which sessionInfo reads
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	s.touch(sessionID)
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
		}
		return err
	}
	s.logger.Info("session deleted", zap.String("session", sessionID))
	return nil
}

// mutate runs fn against a session's engine under the service lock, then persists
func (s *gameServiceImpl) mutate(sessionID string, fn func(sess *Session) (*ActionResult, error)) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	before := sess.Engine.Status()
	result, err := fn(sess)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.GetState().Clone()
	result.GameState = state
	if result.Message == "" {
		result.Message = state.Message
	}
	result.Events = append(result.Events, statusEvents(before, state)...)

	s.touch(sessionID)
	return result, nil
}

// statusEvents reports phase changes caused by a request
func statusEvents(before engine.GameState, state *engine.State) []GameEvent {
	if before == state.Status {
		return nil
	}
	switch state.Status {
	case engine.AutoSolving:
		return []GameEvent{newEvent(EventAutoSolve, state.Message)}
	case engine.Won:
		return []GameEvent{newEvent(EventWon, state.Message)}
	case engine.Playing:
		if before == engine.AutoSolving && state.SolveStalled {
			return []GameEvent{newEvent(EventStalled, state.Message)}
		}
	}
	return nil
}

// NewDeal shuffles and deals a new game in an existing session
func (s *gameServiceImpl) NewDeal(ctx context.Context, sessionID string, req DealRequest) (*ActionResult, error) {
	return s.mutate(sessionID, func(sess *Session) (*ActionResult, error) {
		mode, err := parseDrawMode(req.DrawMode, sess.Engine.GetState().DrawMode)
		if err != nil {
			return nil, err
		}
		state := deal(sess.Engine, mode, req.Seed)
		s.logger.Debug("new deal", zap.String("session", sess.ID), zap.String("deal_id", state.DealID))
		return &ActionResult{
			Success: true,
			Events:  []GameEvent{newEvent(EventDeal, fmt.Sprintf("Dealt game %d (%s draw)", state.Seed, mode))},
		}, nil
	})
}

func parseMove(req MoveRequest, needTo bool) (engine.Card, engine.PileID, engine.PileID, error) {
	card, err := engine.ParseCard(req.Card)
	if err != nil {
		return engine.NoCard, 0, 0, fmt.Errorf("%w: card: %v", ErrInvalidRequest, err)
	}
	from, err := engine.ParsePileID(req.From)
	if err != nil {
		return engine.NoCard, 0, 0, fmt.Errorf("%w: from: %v", ErrInvalidRequest, err)
	}
	if !needTo {
		return card, from, 0, nil
	}
	to, err := engine.ParsePileID(req.To)
	if err != nil {
		return engine.NoCard, 0, 0, fmt.Errorf("%w: to: %v", ErrInvalidRequest, err)
	}
	return card, from, to, nil
}

func moveResult(res engine.MoveResult, card engine.Card) *ActionResult {
	if !res.Accepted {
		return &ActionResult{Success: false, Message: fmt.Sprintf("%s cannot go there", card)}
	}
	result := &ActionResult{
		Success: true,
		Action:  res.Action,
		Moved:   res.Moved,
		Flipped: res.Flipped,
		Events: []GameEvent{newEvent(EventMove,
			fmt.Sprintf("Moved %s from %s to %s", card, res.Action.From, res.Action.To))},
	}
	if res.Flipped != nil {
		result.Events = append(result.Events, newEvent(EventFlip, fmt.Sprintf("Turned over %s", res.Flipped)))
	}
	return result
}

// Move applies a card move requested by the player
func (s *gameServiceImpl) Move(ctx context.Context, sessionID string, req MoveRequest) (*ActionResult, error) {
	card, from, to, err := parseMove(req, true)
	if err != nil {
		return nil, err
	}
	return s.mutate(sessionID, func(sess *Session) (*ActionResult, error) {
		return moveResult(sess.Engine.RequestMove(card, from, to), card), nil
	})
}

// AutoMove sends a card to its foundation (double-click)
func (s *gameServiceImpl) AutoMove(ctx context.Context, sessionID string, req MoveRequest) (*ActionResult, error) {
	card, from, _, err := parseMove(req, false)
	if err != nil {
		return nil, err
	}
	return s.mutate(sessionID, func(sess *Session) (*ActionResult, error) {
		return moveResult(sess.Engine.AutoMoveToFoundation(card, from), card), nil
	})
}

// Draw turns cards from the stock onto the waste
func (s *gameServiceImpl) Draw(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.mutate(sessionID, func(sess *Session) (*ActionResult, error) {
		if !sess.Engine.RequestDraw() {
			return &ActionResult{Success: false, Message: "The stock is empty; reset the deck instead"}, nil
		}
		history := sess.Engine.GetActionLog()
		last := history[history.Len()-1]
		return &ActionResult{
			Success: true,
			Action:  &last,
			Events:  []GameEvent{newEvent(EventDraw, fmt.Sprintf("Drew %d", last.Count))},
		}, nil
	})
}

// ResetDeck recycles the waste into the stock
func (s *gameServiceImpl) ResetDeck(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.mutate(sessionID, func(sess *Session) (*ActionResult, error) {
		if !sess.Engine.RequestResetDeck() {
			return &ActionResult{Success: false, Message: "The deck can only be reset when the stock is empty"}, nil
		}
		return &ActionResult{
			Success: true,
			Events:  []GameEvent{newEvent(EventResetDeck, "Waste turned back into the stock")},
		}, nil
	})
}

// Undo reverts the last logged action
func (s *gameServiceImpl) Undo(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.mutate(sessionID, func(sess *Session) (*ActionResult, error) {
		action, ok := sess.Engine.Undo()
		if !ok {
			return &ActionResult{Success: false, Message: "Nothing to undo"}, nil
		}
		return &ActionResult{
			Success: true,
			Action:  &action,
			Events:  []GameEvent{newEvent(EventUndo, "Undid "+action.String())},
		}, nil
	})
}

// SetDragging forwards the drag guard from the input layer
func (s *gameServiceImpl) SetDragging(ctx context.Context, sessionID string, dragging bool) (*engine.State, error) {
	result, err := s.mutate(sessionID, func(sess *Session) (*ActionResult, error) {
		sess.Engine.SetDragging(dragging)
		return &ActionResult{Success: true}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.GameState, nil
}

// Tick advances the auto-solve countdown by the client's elapsed frame time
func (s *gameServiceImpl) Tick(ctx context.Context, sessionID string, elapsed time.Duration) (*ActionResult, error) {
	if elapsed < 0 {
		return nil, fmt.Errorf("%w: negative elapsed time", ErrInvalidRequest)
	}
	return s.mutate(sessionID, func(sess *Session) (*ActionResult, error) {
		move, ok := sess.Engine.Tick(elapsed)
		if !ok {
			return &ActionResult{Success: false}, nil
		}
		return &ActionResult{
			Success:    true,
			SolverMove: &move,
			Events: []GameEvent{newEvent(EventAutoSolveMove,
				fmt.Sprintf("Auto-solve moved %s to %s", move.Card, move.To))},
		}, nil
	})
}

// RunAutoSolve drives the auto-solver in real time until the game leaves AutoSolving
// or ctx is cancelled. onStep is called under the service lock after every move.
func (s *gameServiceImpl) RunAutoSolve(ctx context.Context, sessionID string, onStep StepFunc) (*AutoSolveResult, error) {
	s.mu.Lock()
	sess, err := s.getSession(sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.solving[sess.ID] {
		s.mu.Unlock()
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrAutoSolveRunning)
	}
	interval := sess.Rules.AutoSolveInterval.Std()
	if sess.Engine.Status() != engine.AutoSolving {
		state := sess.Engine.GetState().Clone()
		s.mu.Unlock()
		return &AutoSolveResult{Won: state.Status == engine.Won, Stalled: state.SolveStalled, GameState: state}, nil
	}
	s.solving[sess.ID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.solving, sess.ID)
		s.mu.Unlock()
	}()

	ticker := time.NewTicker(max(interval, time.Millisecond))
	defer ticker.Stop()

	result := &AutoSolveResult{Moves: []engine.SolverMove{}}
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.mu.RLock()
			result.GameState = sess.Engine.GetState().Clone()
			s.mu.RUnlock()
			return result, ctx.Err()

		case now := <-ticker.C:
			s.mu.Lock()
			move, ok := sess.Engine.Tick(now.Sub(last))
			last = now
			state := sess.Engine.GetState().Clone()
			if ok {
				result.Moves = append(result.Moves, move)
				if onStep != nil {
					onStep(move, state)
				}
			}
			done := state.Status != engine.AutoSolving
			if done {
				s.touch(sess.ID)
				result.Won = state.Status == engine.Won
				result.Stalled = state.SolveStalled
				result.GameState = state
			}
			s.mu.Unlock()

			if done {
				s.logger.Info("auto-solve finished",
					zap.String("session", sess.ID),
					zap.Int("moves", len(result.Moves)),
					zap.Bool("won", result.Won))
				return result, nil
			}
		}
	}
}

// GetGameState returns the full state of a session's game
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetState().Clone(), nil
}

// GetSnapshot returns the rendering summary of a session's table
func (s *gameServiceImpl) GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	snap := sess.Engine.Snapshot()
	return &snap, nil
}

// GetHints lists the legal actions in a session
func (s *gameServiceImpl) GetHints(ctx context.Context, sessionID string) ([]engine.Hint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	hints := sess.Engine.Hints()
	if hints == nil {
		hints = []engine.Hint{}
	}
	return hints, nil
}

// GetHistory returns a page of the action log
func (s *gameServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetActionLog()
	total := history.Len()

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := min(start+opts.Limit, total)

	entries := []HistoryEntry{}
	if opts.Order == "desc" {
		// most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			entries = append(entries, HistoryEntry{Seq: i + 1, Action: history[i]})
		}
	} else {
		for i := start; i < end; i++ {
			entries = append(entries, HistoryEntry{Seq: i + 1, Action: history[i]})
		}
	}

	return &HistoryResponse{
		Actions:      entries,
		TotalActions: total,
		Page:         opts.Page,
		PageSize:     opts.Limit,
		TotalPages:   totalPages,
		HasNext:      opts.Page < totalPages,
		HasPrevious:  opts.Page > 1,
	}, nil
}

// ListConfigs returns available rule presets
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a rule preset by id
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.Rules, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig stores a rule preset
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, rules *engine.Rules) error {
	return s.configs.SaveConfig(configName, rules)
}
