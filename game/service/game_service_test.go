package service_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/mcp-training/seadrive/game/engine"
	"github.com/wricardo/mcp-training/seadrive/game/service"
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

func (m *MockSessionManager) Create(id, configID string, config *engine.SimConfig) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Generate ID if empty (mimics real session manager behavior)
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	session, err := service.NewSession(id, configID, config, "", zerolog.Nop())
	if err != nil {
		return nil, err
	}
	m.sessions[id] = session
	return session, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, errors.New("session not found")
	}
	return session, nil
}

func (m *MockSessionManager) GetOrCreate(id, configID string, config *engine.SimConfig) (*service.Session, error) {
	if session, err := m.Get(id); err == nil {
		return session, nil
	}
	return m.Create(id, configID, config)
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
	session, exists := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !exists {
		return errors.New("session not found")
	}
	session.Close()
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	session, err := m.Get(id)
	if err != nil {
		return err
	}
	session.Touch()
	return nil
}

func (m *MockSessionManager) Save(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return errors.New("session not found")
	}
	m.saves++
	return nil
}

// MockConfigManager implements service.ConfigManager for testing
type MockConfigManager struct {
	configs map[string]*engine.SimConfig
}

// reefBayConfig is open water with a reef covering the top of the playfield
// (y < 190). The spawn point is deep water facing north.
func reefBayConfig() *engine.SimConfig {
	layout := make([]string, 24)
	for i := range layout {
		if i < 10 {
			layout[i] = strings.Repeat("x", 32)
		} else {
			layout[i] = strings.Repeat("~", 32)
		}
	}

	config := &engine.SimConfig{
		Name:        "test",
		Description: "Test configuration",
		Mapping:     engine.Mapping{Scale: 20},
		Layout:      layout,
		Vehicle:     engine.DefaultSimConfig().Vehicle,
		Messages: engine.Messages{
			Welcome:   "Welcome to test!",
			OutOfFuel: "Out of fuel!",
		},
	}
	config.ApplyDefaults()
	return config
}

func NewMockConfigManager() *MockConfigManager {
	config := reefBayConfig()
	return &MockConfigManager{
		configs: map[string]*engine.SimConfig{
			"test":    config,
			"default": config,
		},
	}
}

func (m *MockConfigManager) LoadConfig(name string) (*engine.SimConfig, error) {
	config, exists := m.configs[name]
	if !exists {
		return nil, errors.New("configuration not found")
	}
	return config, nil
}

func (m *MockConfigManager) ListConfigs() ([]*service.ConfigInfo, error) {
	result := make([]*service.ConfigInfo, 0, len(m.configs))
	for name, config := range m.configs {
		result = append(result, &service.ConfigInfo{
			Filename:    name + ".json",
			ConfigID:    name,
			Name:        config.Name,
			Description: config.Description,
			Vehicle:     config.Vehicle.Name,
			Kind:        config.Vehicle.Kind,
			Terrain:     "layout",
			TickRate:    config.TickRate,
		})
	}
	return result, nil
}

func (m *MockConfigManager) GetDefault() *engine.SimConfig {
	return m.configs["default"]
}

func (m *MockConfigManager) SaveConfig(name string, config *engine.SimConfig) error {
	if err := engine.ValidateSimConfig(config); err != nil {
		return err
	}
	m.configs[name] = config
	return nil
}

func (m *MockConfigManager) BaseDir() string {
	return ""
}

// MockNotifier records broadcasts
type MockNotifier struct {
	mu     sync.Mutex
	events map[string]int
}

func (n *MockNotifier) BroadcastToSession(sessionID, event string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.events == nil {
		n.events = make(map[string]int)
	}
	n.events[sessionID+"/"+event]++
}

func (n *MockNotifier) count(key string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[key]
}

func newTestService(opts ...service.Option) (service.SimService, *MockSessionManager) {
	sessions := NewMockSessionManager()
	return service.NewSimService(sessions, NewMockConfigManager(), opts...), sessions
}

func newSession(t *testing.T, svc service.SimService) string {
	t.Helper()
	info, err := svc.CreateSession(context.Background(), "test")
	require.NoError(t, err)
	return info.ID
}

// Test cases

func TestSimService_CreateSession(t *testing.T) {
	tests := []struct {
		name       string
		configName string
		wantErr    string
	}{
		{name: "default config", configName: ""},
		{name: "named config", configName: "test"},
		{name: "unknown config", configName: "atlantis", wantErr: "Available configs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			info, err := svc.CreateSession(context.Background(), tt.configName)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, info.ID)
			assert.Equal(t, "Welcome to test!", info.Message)
			assert.False(t, info.Running)
			require.NotNil(t, info.Status)
			assert.Equal(t, "N", info.Status.Heading)
			assert.Equal(t, "Dinghy", info.Status.Vehicle)
			assert.Equal(t, engine.Motor, info.Status.Propulsion)
			assert.Equal(t, engine.Deep, info.Status.Terrain)
		})
	}
}

func TestSimService_SessionLifecycle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	id := newSession(t, svc)
	_, err := svc.GetSession(ctx, id)
	require.NoError(t, err)

	sessions, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	require.NoError(t, svc.DeleteSession(ctx, id))
	_, err = svc.GetSession(ctx, id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
	assert.Error(t, svc.DeleteSession(ctx, id))
}

func TestSimService_Step(t *testing.T) {
	ctx := context.Background()

	t.Run("full throttle moves north", func(t *testing.T) {
		svc, sessions := newTestService()
		id := newSession(t, svc)

		result, err := svc.Step(ctx, id, service.StepRequest{Throttle: 1, Ticks: 10})
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, 10, result.TicksExecuted)
		assert.Equal(t, 10, result.RequestedTicks)
		assert.Less(t, result.EndPos.Y, result.StartPos.Y)
		// deep water sway adds a little sideways drift
		assert.InDelta(t, result.StartPos.Y-result.EndPos.Y, result.Distance, 1.0)
		assert.Less(t, result.EndFuel, result.StartFuel)
		assert.Equal(t, uint64(10), result.Status.Tick)
		assert.Equal(t, 1, sessions.saves)
	})

	t.Run("zero ticks means one", func(t *testing.T) {
		svc, _ := newTestService()
		id := newSession(t, svc)

		result, err := svc.Step(ctx, id, service.StepRequest{})
		require.NoError(t, err)
		assert.Equal(t, 1, result.TicksExecuted)
		assert.True(t, result.Success)
		assert.Zero(t, result.Distance)
	})

	t.Run("truncated at the limit", func(t *testing.T) {
		svc, _ := newTestService()
		id := newSession(t, svc)

		result, err := svc.Step(ctx, id, service.StepRequest{Ticks: service.MaxStepTicks + 50})
		require.NoError(t, err)
		assert.True(t, result.Truncated)
		assert.Equal(t, service.MaxStepTicks, result.Limit)
		assert.Equal(t, service.MaxStepTicks+50, result.RequestedTicks)
		assert.Equal(t, service.MaxStepTicks, result.TicksExecuted)
		assert.True(t, result.Success)
	})

	t.Run("stop on reef", func(t *testing.T) {
		svc, _ := newTestService()
		id := newSession(t, svc)

		result, err := svc.Step(ctx, id, service.StepRequest{Throttle: 1, Ticks: 200, StopOnEvent: true})
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "terrain_blocked", result.StopReasonCode)
		assert.Equal(t, result.TicksExecuted, result.StoppedOnTick)
		assert.Less(t, result.TicksExecuted, 200)
		assert.Equal(t, "Blocked by reef", result.Message)
		assert.GreaterOrEqual(t, result.EndPos.Y, 190.0)
		require.Len(t, result.Events, 1)
		assert.Equal(t, string(engine.Reef), string(result.Events[0].Terrain))
	})

	t.Run("disabled vehicle", func(t *testing.T) {
		svc, _ := newTestService()
		id := newSession(t, svc)

		_, err := svc.Command(ctx, id, service.Command{Type: service.CommandDisable})
		require.NoError(t, err)

		result, err := svc.Step(ctx, id, service.StepRequest{Throttle: 1, Ticks: 5})
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "disabled", result.StopReasonCode)
		assert.Equal(t, 0, result.TicksExecuted)
		assert.Equal(t, 1, result.StoppedOnTick)
	})

	t.Run("cancelled context", func(t *testing.T) {
		svc, _ := newTestService()
		id := newSession(t, svc)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		result, err := svc.Step(cancelled, id, service.StepRequest{Ticks: 5})
		require.NoError(t, err)
		assert.Equal(t, "cancelled", result.StopReasonCode)
		assert.Equal(t, 0, result.TicksExecuted)
	})

	t.Run("reset before stepping", func(t *testing.T) {
		svc, _ := newTestService()
		id := newSession(t, svc)

		_, err := svc.Step(ctx, id, service.StepRequest{Throttle: 1, Ticks: 10})
		require.NoError(t, err)

		result, err := svc.Step(ctx, id, service.StepRequest{Ticks: 2, Reset: true})
		require.NoError(t, err)
		require.NotEmpty(t, result.Events)
		assert.Equal(t, "reset", result.Events[0].Type)
		assert.Equal(t, uint64(2), result.Status.Tick)
		assert.Equal(t, 240.0, result.StartPos.Y)
	})

	t.Run("unknown session", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.Step(ctx, "nope", service.StepRequest{})
		assert.Error(t, err)
	})
}

func TestSimService_Command(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		cmd     service.Command
		wantErr error
		success bool
		check   func(t *testing.T, r *service.CommandResult)
	}{
		{
			name:    "direction",
			cmd:     service.Command{Type: service.CommandDirection, Direction: 4},
			success: true,
			check: func(t *testing.T, r *service.CommandResult) {
				assert.Equal(t, 4, r.Status.Direction)
				assert.Equal(t, "E", r.Status.Heading)
			},
		},
		{
			name:    "direction wraps",
			cmd:     service.Command{Type: service.CommandDirection, Direction: 17},
			success: true,
			check: func(t *testing.T, r *service.CommandResult) {
				assert.Equal(t, 1, r.Status.Direction)
			},
		},
		{
			name:    "refuel",
			cmd:     service.Command{Type: service.CommandRefuel, Amount: 1000},
			success: true,
			check: func(t *testing.T, r *service.CommandResult) {
				assert.Equal(t, r.Status.FuelMax, r.Status.Fuel)
			},
		},
		{name: "refuel needs an amount", cmd: service.Command{Type: service.CommandRefuel, Amount: -1}, wantErr: service.ErrInvalidCommand},
		{name: "step back out of range", cmd: service.Command{Type: service.CommandStepBack, Steps: engine.HistorySize}, wantErr: service.ErrInvalidCommand},
		{name: "step back", cmd: service.Command{Type: service.CommandStepBack, Steps: 0}, success: true},
		{
			name:    "spawn edge",
			cmd:     service.Command{Type: service.CommandSpawnEdge, Edge: "SOUTH"},
			success: true,
			check: func(t *testing.T, r *service.CommandResult) {
				line := engine.SpawnLineForEdge(engine.EdgeSouth)
				assert.Equal(t, line.Position.X, r.Status.Position.X)
			},
		},
		{name: "spawn unknown edge", cmd: service.Command{Type: service.CommandSpawnEdge, Edge: "up"}, wantErr: service.ErrInvalidCommand},
		{name: "spawn line", cmd: service.Command{Type: service.CommandSpawnLine, Line: 3}, success: true},
		{name: "spawn line out of range", cmd: service.Command{Type: service.CommandSpawnLine, Line: engine.NumDirections}, wantErr: service.ErrInvalidCommand},
		{
			name:    "disable",
			cmd:     service.Command{Type: service.CommandDisable},
			success: true,
			check: func(t *testing.T, r *service.CommandResult) {
				assert.False(t, r.Status.Enabled)
			},
		},
		{name: "enable", cmd: service.Command{Type: service.CommandEnable}, success: true},
		{
			name:    "switch to oars",
			cmd:     service.Command{Type: service.CommandPropulsion, Propulsion: "Oar"},
			success: true,
			check: func(t *testing.T, r *service.CommandResult) {
				assert.Equal(t, engine.Oar, r.Status.Propulsion)
				require.Len(t, r.Events, 1)
				assert.Equal(t, "propulsion_changed", r.Events[0].Type)
				assert.Equal(t, "Propulsion changed from motor to oar", r.Events[0].Message)
			},
		},
		{
			name:    "no sail fitted",
			cmd:     service.Command{Type: service.CommandPropulsion, Propulsion: "sail"},
			success: false,
			check: func(t *testing.T, r *service.CommandResult) {
				assert.Equal(t, engine.Motor, r.Status.Propulsion)
			},
		},
		{
			name:    "tile",
			cmd:     service.Command{Type: service.CommandTile, Tile: engine.Tile{X: 2, Y: 3}},
			success: true,
			check: func(t *testing.T, r *service.CommandResult) {
				assert.Equal(t, engine.Tile{X: 2, Y: 3}, r.Status.Tile)
			},
		},
		{name: "restore without save", cmd: service.Command{Type: service.CommandRestoreSession}, wantErr: service.ErrNoSavedSession},
		{name: "unknown command", cmd: service.Command{Type: "teleport"}, wantErr: service.ErrInvalidCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			id := newSession(t, svc)

			result, err := svc.Command(ctx, id, tt.cmd)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cmd.Type, result.Command)
			assert.Equal(t, tt.success, result.Success)
			assert.NotEmpty(t, result.Message)
			if tt.check != nil {
				tt.check(t, result)
			}
		})
	}
}

func TestSimService_SaveRestoreSession(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	id := newSession(t, svc)

	_, err := svc.Command(ctx, id, service.Command{Type: service.CommandTile, Tile: engine.Tile{X: 1, Y: 1}})
	require.NoError(t, err)
	saved, err := svc.Command(ctx, id, service.Command{Type: service.CommandSaveSession})
	require.NoError(t, err)
	require.True(t, saved.Success)

	_, err = svc.Step(ctx, id, service.StepRequest{Throttle: 1, Ticks: 5})
	require.NoError(t, err)
	_, err = svc.Command(ctx, id, service.Command{Type: service.CommandTile, Tile: engine.Tile{X: 9, Y: 9}})
	require.NoError(t, err)

	restored, err := svc.Command(ctx, id, service.Command{Type: service.CommandRestoreSession})
	require.NoError(t, err)
	assert.True(t, restored.Success)
	assert.Equal(t, saved.Status.Position, restored.Status.Position)
	assert.Equal(t, engine.Tile{X: 1, Y: 1}, restored.Status.Tile)
}

func TestSimService_Reset(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	id := newSession(t, svc)

	_, err := svc.Step(ctx, id, service.StepRequest{Throttle: 1, Steer: 1, Ticks: 20})
	require.NoError(t, err)

	status, err := svc.Reset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), status.Tick)
	assert.Equal(t, engine.Position{X: 320, Y: 240}, status.Position)
	assert.Equal(t, engine.NumDirections, status.Direction)

	history, err := svc.GetHistory(ctx, id, service.HistoryOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, history.Events)
	assert.Equal(t, "reset", history.Events[0].Type)

	_, err = svc.Reset(ctx, "nope")
	assert.Error(t, err)
}

func TestSimService_Runner(t *testing.T) {
	notifier := &MockNotifier{}
	svc, _ := newTestService(service.WithNotifier(notifier))
	ctx := context.Background()
	id := newSession(t, svc)

	status, err := svc.StartRunner(ctx, id)
	require.NoError(t, err)
	assert.True(t, status.Running)

	// Starting twice is harmless
	_, err = svc.StartRunner(ctx, id)
	require.NoError(t, err)

	require.NoError(t, svc.SetInput(ctx, id, engine.Input{Throttle: 1}))

	assert.Eventually(t, func() bool {
		st, err := svc.GetStatus(ctx, id)
		return err == nil && st.Position.Y < 240
	}, 3*time.Second, 20*time.Millisecond)
	assert.Positive(t, notifier.count(id+"/tick"))

	_, err = svc.Step(ctx, id, service.StepRequest{Ticks: 1})
	assert.ErrorIs(t, err, service.ErrRunnerActive)

	status, err = svc.Reset(ctx, id)
	require.NoError(t, err)
	assert.True(t, status.Running)

	status, err = svc.StopRunner(ctx, id)
	require.NoError(t, err)
	assert.False(t, status.Running)

	stopped, err := svc.GetStatus(ctx, id)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	after, err := svc.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, stopped.Tick, after.Tick)

	_, err = svc.Step(ctx, id, service.StepRequest{Ticks: 1})
	assert.NoError(t, err)

	assert.Error(t, svc.SetInput(ctx, "nope", engine.Input{}))
}

func TestSimService_DeleteRunningSession(t *testing.T) {
	svc, sessions := newTestService()
	ctx := context.Background()
	id := newSession(t, svc)

	_, err := svc.StartRunner(ctx, id)
	require.NoError(t, err)
	sess, err := sessions.Get(id)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSession(ctx, id))
	assert.False(t, sess.Running())
}

func TestSimService_GetHistory(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	id := newSession(t, svc)

	// Each switch raises one propulsion_changed event
	for i := 0; i < 5; i++ {
		for _, p := range []string{"oar", "motor"} {
			_, err := svc.Command(ctx, id, service.Command{Type: service.CommandPropulsion, Propulsion: p})
			require.NoError(t, err)
		}
	}
	_, err := svc.Step(ctx, id, service.StepRequest{Throttle: 1, Ticks: 3})
	require.NoError(t, err)

	tests := []struct {
		name        string
		opts        service.HistoryOptions
		wantCount   int
		wantPages   int
		hasNext     bool
		hasPrevious bool
		firstMsg    string
	}{
		{name: "defaults", opts: service.HistoryOptions{}, wantCount: 10, wantPages: 1, firstMsg: "Propulsion changed from oar to motor"},
		{name: "first page", opts: service.HistoryOptions{Page: 1, Limit: 4}, wantCount: 4, wantPages: 3, hasNext: true},
		{name: "last page", opts: service.HistoryOptions{Page: 3, Limit: 4}, wantCount: 2, wantPages: 3, hasPrevious: true},
		{name: "ascending", opts: service.HistoryOptions{Limit: 3, Order: "asc"}, wantCount: 3, wantPages: 4, hasNext: true, firstMsg: "Propulsion changed from motor to oar"},
		{name: "past the end", opts: service.HistoryOptions{Page: 9, Limit: 4}, wantCount: 0, wantPages: 3, hasPrevious: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history, err := svc.GetHistory(ctx, id, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, 10, history.TotalEvents)
			assert.Len(t, history.Events, tt.wantCount)
			assert.Equal(t, tt.wantPages, history.TotalPages)
			assert.Equal(t, tt.hasNext, history.HasNext)
			assert.Equal(t, tt.hasPrevious, history.HasPrevious)
			if tt.firstMsg != "" {
				assert.Equal(t, tt.firstMsg, history.Events[0].Message)
			}
			assert.Len(t, history.Trail, engine.HistorySize)
		})
	}
}

func TestSimService_Probe(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	id := newSession(t, svc)

	reef, err := svc.Probe(ctx, id, engine.Position{X: 320, Y: 100})
	require.NoError(t, err)
	assert.Equal(t, uint8(180), reef.Sample)
	assert.Equal(t, engine.Reef, reef.Verdict.Category)
	assert.False(t, reef.Verdict.Passable)
	assert.InDelta(t, 140, reef.Distance, 1e-9)

	deep, err := svc.Probe(ctx, id, engine.Position{X: 320, Y: 400})
	require.NoError(t, err)
	assert.Equal(t, engine.Deep, deep.Verdict.Category)
	assert.True(t, deep.Verdict.Passable)

	_, err = svc.Probe(ctx, id, engine.Position{X: math.NaN(), Y: 0})
	assert.ErrorIs(t, err, service.ErrInvalidPosition)
	_, err = svc.Probe(ctx, id, engine.Position{X: 0, Y: math.Inf(1)})
	assert.ErrorIs(t, err, service.ErrInvalidPosition)
}

func TestSimService_GetState(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	id := newSession(t, svc)

	_, err := svc.Step(ctx, id, service.StepRequest{Throttle: 1, Ticks: 7})
	require.NoError(t, err)

	state, err := svc.GetState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), state.Tick)
	assert.Equal(t, engine.Motor, state.Propulsion)
	assert.Equal(t, "Dinghy", state.Definition.Name)
}

func TestSimService_Configs(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	configs, err := svc.ListConfigs(ctx)
	require.NoError(t, err)
	assert.Len(t, configs, 2)

	config, err := svc.LoadConfig(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, "test", config.Name)

	copied := *config
	copied.Name = "copy"
	require.NoError(t, svc.SaveConfig(ctx, "copy", &copied))

	info, err := svc.CreateSession(ctx, "copy")
	require.NoError(t, err)
	assert.Equal(t, "copy", info.ConfigName)
}

func TestFormatEvent(t *testing.T) {
	custom := engine.Messages{
		LowFuel:        "Fuel at %.0f%%",
		TerrainEntered: "Now in the %s",
		OutOfBounds:    "Edge!",
	}

	tests := []struct {
		event engine.Event
		want  string
	}{
		{engine.Event{Type: engine.EventLowFuel, Level: 0.2}, "Fuel at 20%"},
		{engine.Event{Type: engine.EventLowStamina, Level: 0.15}, "The rowers are tiring: 15% stamina left"},
		{engine.Event{Type: engine.EventTerrainEntered, Terrain: engine.Shallow}, "Now in the shallow"},
		{engine.Event{Type: engine.EventTerrainBlocked, Terrain: engine.Reef}, "Blocked by reef"},
		{engine.Event{Type: engine.EventOutOfFuel}, engine.DefaultMessages.OutOfFuel},
		{engine.Event{Type: engine.EventOutOfBounds}, "Edge!"},
		{engine.Event{Type: engine.EventPropulsionChanged, From: engine.Motor, To: engine.Oar}, "Propulsion changed from motor to oar"},
		{engine.Event{Type: "mystery"}, "mystery"},
	}

	for _, tt := range tests {
		t.Run(string(tt.event.Type), func(t *testing.T) {
			assert.Equal(t, tt.want, service.FormatEvent(custom, tt.event))
		})
	}
}
