package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/mcp-training/seadrive/game/engine"
	"github.com/wricardo/mcp-training/seadrive/game/service"
)

func createTestConfig() *engine.SimConfig {
	return engine.DefaultSimConfig()
}

// sail runs n full-throttle ticks on a session
func sail(s *service.Session, n int) {
	s.Lock()
	defer s.Unlock()
	for i := 0; i < n; i++ {
		s.Vehicle.Tick(engine.Input{Throttle: 1})
	}
}

func TestManager_Create(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("custom-id", "default", config)
		require.NoError(t, err)
		assert.Equal(t, "custom-id", session.ID)
		assert.Equal(t, "default", session.ConfigID)
		require.NotNil(t, session.Vehicle)
		assert.Equal(t, config.Playfield.Center().X, session.Vehicle.Status().Position.X)
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", "default", config)
		require.NoError(t, err)
		assert.Len(t, session.ID, 4)
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		_, err := manager.Create("custom-id", "default", config)
		assert.ErrorIs(t, err, ErrSessionAlreadyExists)
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		_, err := manager.Create("CUSTOM-ID", "default", config)
		assert.ErrorIs(t, err, ErrSessionAlreadyExists)
	})

	t.Run("invalid session ID", func(t *testing.T) {
		_, err := manager.Create("../escape", "default", config)
		assert.ErrorIs(t, err, ErrInvalidSessionID)
	})

	t.Run("invalid config", func(t *testing.T) {
		bad := createTestConfig()
		bad.Name = ""
		_, err := manager.Create("bad-config", "default", bad)
		assert.Error(t, err)
		assert.Equal(t, 2, manager.Count())
	})
}

func TestManager_Get(t *testing.T) {
	manager := NewManager()
	created, err := manager.Create("get-test", "default", createTestConfig())
	require.NoError(t, err)

	t.Run("get existing session", func(t *testing.T) {
		session, err := manager.Get("get-test")
		require.NoError(t, err)
		assert.Same(t, created, session)
	})

	t.Run("case-insensitive get", func(t *testing.T) {
		session, err := manager.Get("GET-TEST")
		require.NoError(t, err)
		assert.Same(t, created, session)
	})

	t.Run("get non-existent session", func(t *testing.T) {
		_, err := manager.Get("non-existent")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestManager_GetOrCreate(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	first, err := manager.GetOrCreate("goc", "default", config)
	require.NoError(t, err)

	second, err := manager.GetOrCreate("goc", "default", config)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, manager.Count())
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	t.Run("delete existing session", func(t *testing.T) {
		session, err := manager.Create("delete-test", "default", config)
		require.NoError(t, err)

		require.NoError(t, manager.Delete("delete-test"))
		assert.True(t, session.Vehicle.Closed())

		_, err = manager.Get("delete-test")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("delete non-existent session", func(t *testing.T) {
		assert.ErrorIs(t, manager.Delete("non-existent"), ErrSessionNotFound)
	})

	t.Run("case-insensitive delete", func(t *testing.T) {
		_, err := manager.Create("case-delete", "default", config)
		require.NoError(t, err)
		require.NoError(t, manager.Delete("CASE-DELETE"))
		assert.Equal(t, 0, manager.Count())
	})

	t.Run("delete stops runner", func(t *testing.T) {
		session, err := manager.Create("running", "default", config)
		require.NoError(t, err)

		session.Lock()
		session.Runner = engine.NewRunner(session.Vehicle, session.Input, engine.WithLocker(session))
		runner := session.Runner
		session.Unlock()
		runner.Start(t.Context())
		require.True(t, session.Running())

		require.NoError(t, manager.Delete("running"))
		assert.False(t, runner.Running())
	})
}

func TestManager_List(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	ids := []string{"list-1", "list-2", "list-3"}
	for _, id := range ids {
		_, err := manager.Create(id, "default", config)
		require.NoError(t, err)
	}

	found := make(map[string]bool)
	for _, session := range manager.List() {
		found[session.ID] = true
	}
	for _, id := range ids {
		assert.True(t, found[id], "session %s not listed", id)
	}
	assert.Len(t, found, 3)
}

func TestManager_CleanupExpired(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	active, err := manager.Create("active", "default", config)
	require.NoError(t, err)
	expired, err := manager.Create("expired", "default", config)
	require.NoError(t, err)

	expired.LastAccessedAt = time.Now().Add(-2 * time.Hour)
	active.LastAccessedAt = time.Now()

	assert.Equal(t, 1, manager.CleanupExpiredSessions(time.Hour))
	assert.True(t, expired.Vehicle.Closed())

	_, err = manager.Get("expired")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = manager.Get("active")
	assert.NoError(t, err)
}

func TestManager_CleanupKeepsRunningSessions(t *testing.T) {
	manager := NewManager()
	session, err := manager.Create("busy", "default", createTestConfig())
	require.NoError(t, err)

	session.Lock()
	session.Runner = engine.NewRunner(session.Vehicle, session.Input, engine.WithLocker(session))
	runner := session.Runner
	session.LastAccessedAt = time.Now().Add(-48 * time.Hour)
	session.Unlock()
	runner.Start(t.Context())
	defer runner.Stop()

	assert.Equal(t, 0, manager.CleanupExpiredSessions(time.Hour))
	assert.Equal(t, 1, manager.Count())
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := NewManager()
	session, err := manager.Create("access-test", "default", createTestConfig())
	require.NoError(t, err)
	original := session.LastAccessed()

	time.Sleep(10 * time.Millisecond)

	require.NoError(t, manager.UpdateLastAccessed("access-test"))
	assert.True(t, session.LastAccessed().After(original))
	assert.ErrorIs(t, manager.UpdateLastAccessed("nobody"), ErrSessionNotFound)
}

func TestManager_Exists(t *testing.T) {
	manager := NewManager()
	_, err := manager.Create("exists-test", "default", createTestConfig())
	require.NoError(t, err)

	assert.True(t, manager.sessionExists("exists-test"))
	assert.True(t, manager.sessionExists("EXISTS-TEST"))
	assert.False(t, manager.sessionExists("non-existent"))
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("worker-%d", i%10)
			if _, err := manager.GetOrCreate(id, "default", config); err != nil && err != ErrSessionAlreadyExists {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error during concurrent access: %v", err)
	}
	assert.Equal(t, 10, manager.Count())
}

func TestManager_SessionIsolation(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	session1, err := manager.Create("iso-1", "default", config)
	require.NoError(t, err)
	session2, err := manager.Create("iso-2", "default", config)
	require.NoError(t, err)

	sail(session1, 20)

	assert.Equal(t, config.Playfield.Center().Y, session2.Vehicle.Status().Position.Y)
	assert.NotEqual(t, session1.Vehicle.Status().Position, session2.Vehicle.Status().Position)
}

func TestManager_SessionIDGeneration(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	generated := make(map[string]bool)
	for i := 0; i < 50; i++ {
		session, err := manager.Create("", "default", config)
		require.NoError(t, err)

		assert.False(t, generated[session.ID], "duplicate session ID %s", session.ID)
		generated[session.ID] = true
		assert.Len(t, session.ID, 4)
	}
}
