package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
)

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	mu       sync.Mutex
	sessions map[string]*service.Session
	saves    int
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(id, configID string, rules *engine.Rules) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Generate ID if empty (mimics real session manager behavior)
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	eng, err := engine.NewEngine(rules)
	if err != nil {
		return nil, err
	}

	session := &service.Session{
		ID:             id,
		Engine:         eng,
		Rules:          rules,
		ConfigID:       configID,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
	m.sessions[id] = session
	return session, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, service.ErrSessionNotFound
	}
	return session, nil
}

func (m *MockSessionManager) List() []*service.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return service.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[id]
	if !exists {
		return service.ErrSessionNotFound
	}
	session.LastAccessedAt = time.Now()
	m.saves++
	return nil
}

func (m *MockSessionManager) Save(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return service.ErrSessionNotFound
	}
	m.saves++
	return nil
}

// MockConfigManager implements service.ConfigManager for testing
type MockConfigManager struct {
	configs map[string]*engine.Rules
	saved   map[string]*engine.Rules
}

func NewMockConfigManager() *MockConfigManager {
	classic := testRules("Classic", engine.DrawSingle, true)
	triple := testRules("Triple", engine.DrawTriple, true)
	manual := testRules("Manual", engine.DrawSingle, false)
	return &MockConfigManager{
		configs: map[string]*engine.Rules{
			"classic": classic,
			"triple":  triple,
			"manual":  manual,
		},
		saved: make(map[string]*engine.Rules),
	}
}

func testRules(name string, mode engine.DrawMode, autoSolve bool) *engine.Rules {
	rules := &engine.Rules{
		Name:              name,
		DrawMode:          mode,
		AutoSolve:         autoSolve,
		AutoSolveInterval: engine.Duration(time.Millisecond),
	}
	rules.ApplyDefaults()
	return rules
}

func (m *MockConfigManager) LoadConfig(name string) (*engine.Rules, error) {
	if rules, ok := m.configs[name]; ok {
		return rules, nil
	}
	return nil, errors.New("configuration not found")
}

func (m *MockConfigManager) ListConfigs() ([]*service.ConfigInfo, error) {
	var out []*service.ConfigInfo
	for _, id := range []string{"classic", "manual", "triple"} {
		rules := m.configs[id]
		out = append(out, &service.ConfigInfo{
			Filename: id + ".yaml",
			ConfigID: id,
			Name:     rules.Name,
			DrawMode: rules.DrawMode.String(),
		})
	}
	return out, nil
}

func (m *MockConfigManager) GetDefault() *engine.Rules {
	return m.configs["classic"]
}

func (m *MockConfigManager) SaveConfig(name string, rules *engine.Rules) error {
	m.saved[name] = rules
	return nil
}

func newTestService(t *testing.T) (service.GameService, *MockSessionManager) {
	t.Helper()
	sessions := NewMockSessionManager()
	return service.NewGameService(sessions, NewMockConfigManager()), sessions
}

func placed(card string) engine.PlacedCard {
	return engine.PlacedCard{Card: engine.MustParseCard(card), FaceUp: true}
}

// foundationTo builds a foundation holding Ace through top of one suit
func foundationTo(suit engine.Suit, top engine.Rank) engine.Pile {
	var p engine.Pile
	for r := engine.Ace; r <= top; r++ {
		p = append(p, engine.PlacedCard{Card: engine.Card{Suit: suit, Rank: r}, FaceUp: true})
	}
	return p
}

// endgameState has every card home except QH, KH and KC, which sit face up on the tableau
func endgameState() *engine.State {
	var table engine.Table
	table.Foundations[engine.Spades] = foundationTo(engine.Spades, engine.King)
	table.Foundations[engine.Diamonds] = foundationTo(engine.Diamonds, engine.King)
	table.Foundations[engine.Clubs] = foundationTo(engine.Clubs, engine.Queen)
	table.Foundations[engine.Hearts] = foundationTo(engine.Hearts, engine.Jack)
	table.Tableau[0] = engine.Pile{placed("QH")}
	table.Tableau[1] = engine.Pile{placed("KH")}
	table.Tableau[2] = engine.Pile{placed("KC")}
	return &engine.State{
		Table:    table,
		Status:   engine.Playing,
		DrawMode: engine.DrawSingle,
		Actions:  engine.ActionLog{},
	}
}

func loadEndgame(t *testing.T, sessions *MockSessionManager, id string) {
	t.Helper()
	sess, err := sessions.Get(id)
	require.NoError(t, err)
	require.NoError(t, sess.Engine.SetState(endgameState()))
}

func TestCreateSessionDealsGame(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{})
	require.NoError(t, err)

	assert.Equal(t, "classic", info.ConfigName, "default preset should resolve to its id")
	require.NotNil(t, info.GameState)
	assert.Equal(t, engine.Playing, info.GameState.Status)
	assert.Len(t, info.GameState.Table.Stock, 24)
	assert.NotEmpty(t, info.GameState.DealID)
	assert.Positive(t, sessions.saves)
}

func TestCreateSessionOverrides(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{ConfigID: "classic", DrawMode: "triple", Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, engine.DrawTriple, info.GameState.DrawMode)
	assert.Equal(t, uint64(42), info.GameState.Seed)

	again, err := svc.CreateSession(ctx, service.CreateSessionRequest{ConfigID: "classic.yaml", Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, info.GameState.Table.Tableau, again.GameState.Table.Tableau, "same seed deals the same layout")
	assert.Equal(t, engine.DrawSingle, again.GameState.DrawMode)
}

func TestCreateSessionErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, service.CreateSessionRequest{ConfigID: "nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrConfigNotAvailable)
	assert.Contains(t, err.Error(), "classic")

	_, err = svc.CreateSession(ctx, service.CreateSessionRequest{DrawMode: "quadruple"})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)
}

func TestSessionLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{ConfigID: "manual"})
	require.NoError(t, err)

	got, err := svc.GetSession(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.ID, got.ID)
	assert.Equal(t, "Manual", got.Rules.Name)

	list, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteSession(ctx, info.ID))

	_, err = svc.GetSession(ctx, info.ID)
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
	assert.ErrorIs(t, svc.DeleteSession(ctx, info.ID), service.ErrSessionNotFound)
}

func TestGetSessionConcurrentWithList(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{ConfigID: "manual"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := svc.GetSession(ctx, info.ID); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			list, err := svc.ListSessions(ctx)
			if err != nil {
				errs <- err
				return
			}
			for _, s := range list {
				_ = s.LastAccessedAt.IsZero()
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	got, err := svc.GetSession(ctx, info.ID)
	require.NoError(t, err)
	assert.False(t, got.LastAccessedAt.Before(info.LastAccessedAt))
}

func TestMoveRequests(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{ConfigID: "manual"})
	require.NoError(t, err)
	loadEndgame(t, sessions, info.ID)

	t.Run("bad notation is an error", func(t *testing.T) {
		_, err := svc.Move(ctx, info.ID, service.MoveRequest{Card: "ZZ", From: "tableau-0", To: "foundation-hearts"})
		assert.ErrorIs(t, err, service.ErrInvalidRequest)

		_, err = svc.Move(ctx, info.ID, service.MoveRequest{Card: "QH", From: "tableau-9", To: "foundation-hearts"})
		assert.ErrorIs(t, err, service.ErrInvalidRequest)
	})

	t.Run("illegal move is rejected without error", func(t *testing.T) {
		result, err := svc.Move(ctx, info.ID, service.MoveRequest{Card: "KH", From: "tableau-1", To: "foundation-hearts"})
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Empty(t, result.GameState.Actions)
	})

	t.Run("legal move is applied and logged", func(t *testing.T) {
		result, err := svc.Move(ctx, info.ID, service.MoveRequest{Card: "QH", From: "tableau-0", To: "foundation-hearts"})
		require.NoError(t, err)
		assert.True(t, result.Success)
		require.NotNil(t, result.Action)
		assert.Equal(t, engine.FoundationHearts, result.Action.To)
		assert.Len(t, result.GameState.Actions, 1)
		require.NotEmpty(t, result.Events)
		assert.Equal(t, service.EventMove, result.Events[0].Type)
		assert.NotEmpty(t, result.Events[0].ID)
	})

	t.Run("auto move finishes the game", func(t *testing.T) {
		result, err := svc.AutoMove(ctx, info.ID, service.MoveRequest{Card: "KH", From: "tableau-1"})
		require.NoError(t, err)
		assert.True(t, result.Success)

		result, err = svc.AutoMove(ctx, info.ID, service.MoveRequest{Card: "KC", From: "tableau-2"})
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, engine.Won, result.GameState.Status)
		assert.Equal(t, service.EventWon, result.Events[len(result.Events)-1].Type)
	})
}

func TestDrawResetAndUndo(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{ConfigID: "manual", Seed: 7})
	require.NoError(t, err)

	result, err := svc.ResetDeck(ctx, info.ID)
	require.NoError(t, err)
	assert.False(t, result.Success, "reset needs an empty stock")

	for i := 0; i < 24; i++ {
		result, err = svc.Draw(ctx, info.ID)
		require.NoError(t, err)
		require.True(t, result.Success)
	}
	assert.Empty(t, result.GameState.Table.Stock)
	assert.Len(t, result.GameState.Table.Waste, 24)

	result, err = svc.Draw(ctx, info.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)

	result, err = svc.ResetDeck(ctx, info.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, result.GameState.Table.Stock, 24)

	result, err = svc.Undo(ctx, info.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.NotNil(t, result.Action)
	assert.Equal(t, engine.ActionResetDeck, result.Action.Kind)
	assert.Len(t, result.GameState.Table.Waste, 24)
}

func TestUndoBlockedWhileDragging(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{ConfigID: "manual"})
	require.NoError(t, err)
	_, err = svc.Draw(ctx, info.ID)
	require.NoError(t, err)

	state, err := svc.SetDragging(ctx, info.ID, true)
	require.NoError(t, err)
	assert.True(t, state.Dragging)

	result, err := svc.Undo(ctx, info.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)

	_, err = svc.SetDragging(ctx, info.ID, false)
	require.NoError(t, err)
	result, err = svc.Undo(ctx, info.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestNewDealKeepsDrawMode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{ConfigID: "triple"})
	require.NoError(t, err)
	_, err = svc.Draw(ctx, info.ID)
	require.NoError(t, err)

	result, err := svc.NewDeal(ctx, info.ID, service.DealRequest{Seed: 99})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, engine.DrawTriple, result.GameState.DrawMode)
	assert.Equal(t, uint64(99), result.GameState.Seed)
	assert.Empty(t, result.GameState.Actions)
	assert.NotEqual(t, info.GameState.DealID, result.GameState.DealID)

	result, err = svc.NewDeal(ctx, info.ID, service.DealRequest{DrawMode: "single"})
	require.NoError(t, err)
	assert.Equal(t, engine.DrawSingle, result.GameState.DrawMode)
}

func TestTickDrivesAutoSolve(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{ConfigID: "classic"})
	require.NoError(t, err)
	loadEndgame(t, sessions, info.ID)

	result, err := svc.Move(ctx, info.ID, service.MoveRequest{Card: "KC", From: "tableau-2", To: "foundation-clubs"})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, engine.AutoSolving, result.GameState.Status)
	assert.Equal(t, service.EventAutoSolve, result.Events[len(result.Events)-1].Type)

	_, err = svc.Tick(ctx, info.ID, -time.Second)
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	result, err = svc.Tick(ctx, info.ID, time.Second)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotNil(t, result.SolverMove)
	assert.Equal(t, engine.MustParseCard("QH"), result.SolverMove.Card)

	result, err = svc.Tick(ctx, info.ID, time.Second)
	require.NoError(t, err)
	assert.Equal(t, engine.Won, result.GameState.Status)
}

func TestRunAutoSolve(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{ConfigID: "classic"})
	require.NoError(t, err)
	loadEndgame(t, sessions, info.ID)

	_, err = svc.Move(ctx, info.ID, service.MoveRequest{Card: "KC", From: "tableau-2", To: "foundation-clubs"})
	require.NoError(t, err)

	var steps []engine.SolverMove
	result, err := svc.RunAutoSolve(ctx, info.ID, func(move engine.SolverMove, state *engine.State) {
		steps = append(steps, move)
	})
	require.NoError(t, err)
	assert.True(t, result.Won)
	assert.Len(t, result.Moves, 2)
	assert.Equal(t, result.Moves, steps)
	assert.Empty(t, result.GameState.Actions, "solver moves are not logged by default")

	// a finished game returns at once
	again, err := svc.RunAutoSolve(ctx, info.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, again.Moves)
	assert.True(t, again.Won)
}

func TestGetHintsAndSnapshot(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{ConfigID: "manual"})
	require.NoError(t, err)
	loadEndgame(t, sessions, info.ID)

	hints, err := svc.GetHints(ctx, info.ID)
	require.NoError(t, err)
	require.NotEmpty(t, hints)
	assert.Equal(t, engine.HintMove, hints[0].Kind)

	snap, err := svc.GetSnapshot(ctx, info.ID)
	require.NoError(t, err)
	assert.True(t, snap.DeckEmpty)
	assert.False(t, snap.Won)
	assert.False(t, snap.CanUndo)

	_, err = svc.GetHints(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestGetHistoryPagination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{ConfigID: "manual"})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := svc.Draw(ctx, info.ID)
		require.NoError(t, err)
	}

	tests := []struct {
		name     string
		opts     service.HistoryOptions
		wantSeqs []int
		pages    int
		hasNext  bool
	}{
		{"defaults are newest first", service.HistoryOptions{}, []int{5, 4, 3, 2, 1}, 1, false},
		{"ascending first page", service.HistoryOptions{Page: 1, Limit: 2, Order: "asc"}, []int{1, 2}, 3, true},
		{"descending second page", service.HistoryOptions{Page: 2, Limit: 2, Order: "desc"}, []int{3, 2}, 3, true},
		{"last partial page", service.HistoryOptions{Page: 3, Limit: 2, Order: "asc"}, []int{5}, 3, false},
		{"past the end", service.HistoryOptions{Page: 9, Limit: 2, Order: "asc"}, nil, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history, err := svc.GetHistory(ctx, info.ID, tt.opts)
			require.NoError(t, err)

			var seqs []int
			for _, entry := range history.Actions {
				seqs = append(seqs, entry.Seq)
				assert.Equal(t, engine.ActionDraw, entry.Action.Kind)
			}
			assert.Equal(t, tt.wantSeqs, seqs)
			assert.Equal(t, 5, history.TotalActions)
			assert.Equal(t, tt.pages, history.TotalPages)
			assert.Equal(t, tt.hasNext, history.HasNext)
		})
	}
}

func TestConfigPassthrough(t *testing.T) {
	sessions := NewMockSessionManager()
	configs := NewMockConfigManager()
	svc := service.NewGameService(sessions, configs)
	ctx := context.Background()

	list, err := svc.ListConfigs(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	rules, err := svc.LoadConfig(ctx, "triple")
	require.NoError(t, err)
	assert.Equal(t, engine.DrawTriple, rules.DrawMode)

	require.NoError(t, svc.SaveConfig(ctx, "mine", rules))
	assert.Same(t, rules, configs.saved["mine"])
}
