package session

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
)

func createTestRules() *engine.Rules {
	rules := &engine.Rules{
		Name:      "Test Rules",
		DrawMode:  engine.DrawSingle,
		AutoSolve: true,
	}
	rules.ApplyDefaults()
	return rules
}

func TestManager_Create(t *testing.T) {
	manager := NewManager()
	rules := createTestRules()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session", "classic", rules)
		require.NoError(t, err)
		assert.Equal(t, "test-session", session.ID)
		assert.Equal(t, "classic", session.ConfigID)
		require.NotNil(t, session.Engine)
		assert.Equal(t, engine.Menu, session.Engine.Status(), "the caller deals")
		assert.Equal(t, "Test Rules", session.Rules.Name)
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", "classic", rules)
		require.NoError(t, err)
		assert.Len(t, session.ID, 4)
	})

	t.Run("duplicate ID is rejected case-insensitively", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", "classic", rules)
		assert.ErrorIs(t, err, ErrSessionAlreadyExists)
	})

	t.Run("ID with a path separator is rejected", func(t *testing.T) {
		_, err := manager.Create("../evil", "classic", rules)
		assert.ErrorIs(t, err, ErrInvalidSessionID)
	})

	t.Run("invalid rules are rejected", func(t *testing.T) {
		_, err := manager.Create("bad", "classic", &engine.Rules{})
		assert.ErrorIs(t, err, engine.ErrInvalidRules)
	})
}

func TestManager_Get(t *testing.T) {
	manager := NewManager()
	created, err := manager.Create("AbCd", "classic", createTestRules())
	require.NoError(t, err)

	for _, id := range []string{"AbCd", "abcd", "ABCD", " abcd "} {
		got, err := manager.Get(id)
		require.NoError(t, err, id)
		assert.Same(t, created, got)
	}

	_, err = manager.Get("zzzz")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestManager_ListAndDelete(t *testing.T) {
	manager := NewManager()
	rules := createTestRules()
	for _, id := range []string{"a1", "b2", "c3"} {
		_, err := manager.Create(id, "classic", rules)
		require.NoError(t, err)
	}
	assert.Len(t, manager.List(), 3)

	require.NoError(t, manager.Delete("B2"))
	assert.Len(t, manager.List(), 2)
	assert.ErrorIs(t, manager.Delete("b2"), ErrSessionNotFound)

	require.NoError(t, manager.DeleteFromMemory("a1"))
	assert.ErrorIs(t, manager.DeleteFromMemory("a1"), ErrSessionNotFound)
	assert.Equal(t, 1, manager.Count())
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := NewManager()
	session, err := manager.Create("touch", "classic", createTestRules())
	require.NoError(t, err)

	before := session.LastAccessedAt
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, manager.UpdateLastAccessed("TOUCH"))
	assert.True(t, session.LastAccessedAt.After(before))

	assert.ErrorIs(t, manager.UpdateLastAccessed("nope"), ErrSessionNotFound)
	assert.ErrorIs(t, manager.Save("nope"), ErrSessionNotFound)
	assert.NoError(t, manager.Save("touch"), "save without persistence is a no-op")
}

func TestManager_CleanupExpiredSessions(t *testing.T) {
	manager := NewManager()
	rules := createTestRules()

	old, err := manager.Create("old", "classic", rules)
	require.NoError(t, err)
	_, err = manager.Create("new", "classic", rules)
	require.NoError(t, err)
	old.LastAccessedAt = time.Now().Add(-2 * time.Hour)

	assert.Equal(t, 1, manager.CleanupExpiredSessions(time.Hour))
	_, err = manager.Get("old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = manager.Get("new")
	assert.NoError(t, err)
}

func TestManager_GeneratedIDsAreUnique(t *testing.T) {
	manager := NewManager()
	rules := createTestRules()
	seen := make(map[string]bool)

	for i := 0; i < 200; i++ {
		session, err := manager.Create("", "classic", rules)
		require.NoError(t, err)
		id := strings.ToLower(session.ID)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestManager_Concurrency(t *testing.T) {
	manager := NewManager()
	rules := createTestRules()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := manager.Create("", "classic", rules)
			if err != nil {
				t.Errorf("create failed: %v", err)
				return
			}
			if _, err := manager.Get(session.ID); err != nil {
				t.Errorf("get failed: %v", err)
			}
			manager.List()
			if err := manager.UpdateLastAccessed(session.ID); err != nil {
				t.Errorf("touch failed: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, manager.Count())
}
