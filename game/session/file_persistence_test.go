package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/klondike/game/config"
	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
)

func newTestPersistence(t *testing.T) (*FilePersistence, *config.Manager, string) {
	t.Helper()
	dir := t.TempDir()

	configManager, err := config.NewManager("../../configs")
	require.NoError(t, err)

	persistence, err := NewFilePersistence(dir, configManager)
	require.NoError(t, err)
	return persistence, configManager, dir
}

func newDealtSession(t *testing.T, id, configID string, rules *engine.Rules) *service.Session {
	t.Helper()
	eng, err := engine.NewEngine(rules)
	require.NoError(t, err)
	eng.NewSeededDeal(engine.DrawTriple, 1234)

	now := time.Now().Truncate(time.Second)
	return &service.Session{
		ID:             id,
		Engine:         eng,
		Rules:          eng.GetRules(),
		ConfigID:       configID,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
}

func TestFilePersistence_SaveAndLoad(t *testing.T) {
	persistence, configManager, dir := newTestPersistence(t)
	rules, err := configManager.LoadConfig("classic")
	require.NoError(t, err)

	session := newDealtSession(t, "test1", "classic", rules)
	require.True(t, session.Engine.RequestDraw())

	require.NoError(t, persistence.Save(session))
	assert.True(t, persistence.Exists("test1"))
	_, err = os.Stat(filepath.Join(dir, "test1.json.tmp"))
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

	loaded, err := persistence.Load("test1")
	require.NoError(t, err)

	assert.Equal(t, session.ID, loaded.ID)
	assert.Equal(t, "classic", loaded.ConfigID)
	assert.Equal(t, rules.Name, loaded.Rules.Name)
	assert.True(t, session.CreatedAt.Equal(loaded.CreatedAt))

	want := session.Engine.GetState()
	got := loaded.Engine.GetState()
	assert.Equal(t, want.Table, got.Table)
	assert.Equal(t, want.Actions, got.Actions)
	assert.Equal(t, engine.DrawTriple, got.DrawMode)
	assert.Equal(t, want.Seed, got.Seed)
	assert.Equal(t, want.DealID, got.DealID)
	assert.NoError(t, loaded.Engine.Conserved())

	// the restored log still undoes the draw
	_, ok := loaded.Engine.Undo()
	assert.True(t, ok)
	assert.Len(t, loaded.Engine.GetState().Table.Stock, 24)
}

func TestFilePersistence_FileFormat(t *testing.T) {
	persistence, configManager, dir := newTestPersistence(t)
	session := newDealtSession(t, "fmt1", "triple", configManager.GetDefault())
	require.NoError(t, persistence.Save(session))

	raw, err := os.ReadFile(filepath.Join(dir, "fmt1.json"))
	require.NoError(t, err)

	var data map[string]any
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, "fmt1", data["id"])
	assert.Equal(t, "triple", data["config_id"])

	state, ok := data["game_state"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "playing", state["status"])
	assert.Equal(t, "triple", state["draw_mode"])
}

func TestFilePersistence_MissingPresetFallsBackToDefault(t *testing.T) {
	persistence, configManager, _ := newTestPersistence(t)
	session := newDealtSession(t, "orphan", "deleted-preset", configManager.GetDefault())
	require.NoError(t, persistence.Save(session))

	loaded, err := persistence.Load("orphan")
	require.NoError(t, err)
	assert.Equal(t, configManager.GetDefault().Name, loaded.Rules.Name)
	assert.Equal(t, "deleted-preset", loaded.ConfigID)
}

func TestFilePersistence_RejectsCorruptState(t *testing.T) {
	persistence, _, dir := newTestPersistence(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{not json"), 0644))
	_, err := persistence.Load("junk")
	assert.Error(t, err)

	// a table missing cards must not load
	var state engine.State
	state.Status = engine.Playing
	state.DrawMode = engine.DrawSingle
	state.Table.Stock = engine.Pile{{Card: engine.MustParseCard("AS")}}
	data, err := json.Marshal(PersistedSessionData{ID: "short", ConfigID: "classic", GameState: &state})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "short.json"), data, 0644))

	_, err = persistence.Load("short")
	assert.ErrorIs(t, err, engine.ErrNotConserved)
}

func TestFilePersistence_DeleteAndList(t *testing.T) {
	persistence, configManager, _ := newTestPersistence(t)
	for _, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, persistence.Save(newDealtSession(t, id, "classic", configManager.GetDefault())))
	}

	ids, err := persistence.ListAll()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2", "s3"}, ids)

	require.NoError(t, persistence.Delete("s2"))
	assert.False(t, persistence.Exists("s2"))
	assert.ErrorIs(t, persistence.Delete("s2"), ErrSessionNotFound)

	_, err = persistence.Load("s2")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestFilePersistence_RejectsPathIDs(t *testing.T) {
	persistence, _, _ := newTestPersistence(t)

	for _, id := range []string{"", "..", "a/b", `a\b`} {
		assert.False(t, persistence.Exists(id), id)
		_, err := persistence.Load(id)
		assert.ErrorIs(t, err, ErrInvalidSessionID, id)
	}
}
