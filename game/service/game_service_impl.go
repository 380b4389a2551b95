package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wricardo/mcp-training/seadrive/game/engine"
	"gonum.org/v1/gonum/spatial/r2"
)

// simServiceImpl implements the SimService interface. The service mutex
// guards session lifecycle and runner transitions; each session's own
// mutex guards its vehicle.
type simServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	notifier Notifier
	log      zerolog.Logger
	mu       sync.RWMutex
}

// Option configures the service
type Option func(*simServiceImpl)

// WithNotifier receives realtime tick updates
func WithNotifier(n Notifier) Option {
	return func(s *simServiceImpl) {
		s.notifier = n
	}
}

// WithLogger sets the service logger
func WithLogger(log zerolog.Logger) Option {
	return func(s *simServiceImpl) {
		s.log = log
	}
}

// NewSimService creates a new simulation service instance
func NewSimService(sessions SessionManager, configs ConfigManager, opts ...Option) SimService {
	s := &simServiceImpl{
		sessions: sessions,
		configs:  configs,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given display name
func (s *simServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	return "default"
}

// CreateSession creates a new simulation session
func (s *simServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.SimConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if strings.Contains(err.Error(), "configuration not found") {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v", configName, configIDs)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations", configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	sess, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.log.Info().Str("session", sess.ID).Str("config", configID).Msg("session created")

	info := s.info(sess)
	info.Message = config.Messages.Welcome
	return info, nil
}

// GetSession retrieves session information
func (s *simServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.info(sess), nil
}

// ListSessions returns all active sessions
func (s *simServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess))
	}
	return result, nil
}

// DeleteSession stops and removes a session
func (s *simServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	s.log.Info().Str("session", sessionID).Msg("session deleted")
	return nil
}

// Step holds one input for req.Ticks ticks
func (s *simServiceImpl) Step(ctx context.Context, sessionID string, req StepRequest) (*StepResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Running() {
		return nil, fmt.Errorf("%w: stop the runner before stepping session %s", ErrRunnerActive, sessionID)
	}

	ticks := req.Ticks
	if ticks <= 0 {
		ticks = 1
	}
	result := &StepResult{
		RequestedTicks: ticks,
		Events:         make([]SimEvent, 0),
	}
	if ticks > MaxStepTicks {
		result.Truncated = true
		result.Limit = MaxStepTicks
		ticks = MaxStepTicks
	}

	sess.Lock()
	if req.Reset {
		if err := sess.rebuild(); err != nil {
			sess.Unlock()
			return nil, err
		}
		result.Events = append(result.Events, s.resetEvent(sess))
	}

	start := sess.Vehicle.Status()
	result.StartPos = start.Position
	result.StartFuel = start.Fuel

	in := engine.Input{Steer: req.Steer, Throttle: req.Throttle}
	for i := 1; i <= ticks; i++ {
		if ctx.Err() != nil {
			result.StoppedReason = "request cancelled"
			result.StopReasonCode = "cancelled"
			result.StoppedOnTick = i
			break
		}
		if !sess.Vehicle.Status().Enabled {
			result.StoppedReason = "vehicle is disabled"
			result.StopReasonCode = "disabled"
			result.StoppedOnTick = i
			break
		}

		sess.Vehicle.Tick(in)
		result.TicksExecuted++

		events := sess.drain()
		result.Events = append(result.Events, events...)
		if req.StopOnEvent && len(events) > 0 {
			result.StoppedReason = fmt.Sprintf("tick %d: %s", i, events[0].Message)
			result.StopReasonCode = events[0].Type
			result.StoppedOnTick = i
			break
		}
	}

	result.Status = sess.status()
	sess.Unlock()

	result.Success = result.TicksExecuted == ticks
	result.EndPos = result.Status.Position
	result.EndFuel = result.Status.Fuel
	result.Distance = r2.Norm(r2.Sub(result.EndPos.Vec(), result.StartPos.Vec()))
	if n := len(result.Events); n > 0 {
		result.Message = result.Events[n-1].Message
	}

	s.persist(sessionID, "step")
	return result, nil
}

// Reset rebuilds the vehicle from its scenario. A running session keeps running.
func (s *simServiceImpl) Reset(ctx context.Context, sessionID string) (*VehicleStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	wasRunning := s.stopRunner(sess)

	sess.Lock()
	if err := sess.rebuild(); err != nil {
		sess.Unlock()
		return nil, err
	}
	s.resetEvent(sess)
	sess.Unlock()

	if wasRunning {
		s.startRunner(sess)
	}

	sess.Lock()
	status := sess.status()
	sess.Unlock()

	s.persist(sessionID, "reset")
	return status, nil
}

// resetEvent records a reset in the event log. Caller holds the session lock.
func (s *simServiceImpl) resetEvent(sess *Session) SimEvent {
	e := SimEvent{
		Type:      "reset",
		Message:   "Vehicle reset to the scenario start",
		Position:  sess.Vehicle.Status().Position,
		Timestamp: time.Now(),
	}
	sess.record(e)
	return e
}

// Command applies a command between ticks
func (s *simServiceImpl) Command(ctx context.Context, sessionID string, cmd Command) (*CommandResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	message, ok, err := applyCommand(sess, cmd)
	if err != nil {
		sess.Unlock()
		return nil, err
	}
	result := &CommandResult{
		Command: cmd.Type,
		Success: ok,
		Message: message,
		Events:  sess.drain(),
		Status:  sess.status(),
	}
	sess.Unlock()

	s.log.Debug().Str("session", sessionID).Str("command", string(cmd.Type)).Bool("success", ok).Msg("command applied")
	s.persist(sessionID, string(cmd.Type))
	return result, nil
}

// applyCommand runs cmd against the session vehicle. Caller holds the lock.
func applyCommand(sess *Session, cmd Command) (string, bool, error) {
	v := sess.Vehicle
	switch cmd.Type {
	case CommandDirection:
		v.SetDirection(cmd.Direction)
		d := v.Status().Direction
		return fmt.Sprintf("Heading set to %s (%d)", engine.DirectionName(d), d), true, nil

	case CommandRefuel:
		if cmd.Amount <= 0 {
			return "", false, fmt.Errorf("%w: refuel amount must be positive", ErrInvalidCommand)
		}
		if v.Status().FuelMax <= 0 {
			return "This vehicle has no fuel tank", false, nil
		}
		v.Refuel(cmd.Amount)
		st := v.Status()
		return fmt.Sprintf("Refuelled to %.1f/%.1f", st.Fuel, st.FuelMax), true, nil

	case CommandStepBack:
		if cmd.Steps < 0 || cmd.Steps >= engine.HistorySize {
			return "", false, fmt.Errorf("%w: steps must be between 0 and %d", ErrInvalidCommand, engine.HistorySize-1)
		}
		v.StepBack(cmd.Steps)
		return fmt.Sprintf("Stepped back %d", cmd.Steps), true, nil

	case CommandSpawnEdge:
		edge, ok := engine.ParseEdge(cmd.Edge)
		if !ok {
			return "", false, fmt.Errorf("%w: unknown edge '%s' (valid: %v)", ErrInvalidCommand, cmd.Edge, engine.Edges())
		}
		v.SpawnAtEdge(edge)
		return fmt.Sprintf("Spawned at the %s edge", edge), true, nil

	case CommandSpawnLine:
		if cmd.Line < 0 || cmd.Line >= engine.NumDirections {
			return "", false, fmt.Errorf("%w: spawn line must be between 0 and %d", ErrInvalidCommand, engine.NumDirections-1)
		}
		v.SpawnAtLine(cmd.Line)
		return fmt.Sprintf("Spawned at line %d", cmd.Line), true, nil

	case CommandEnable:
		v.Enable()
		return "Vehicle enabled", true, nil

	case CommandDisable:
		v.Disable()
		return "Vehicle disabled", true, nil

	case CommandPropulsion:
		p := engine.Propulsion(strings.ToLower(strings.TrimSpace(cmd.Propulsion)))
		if !v.SetPropulsion(p) {
			return fmt.Sprintf("Propulsion '%s' is not available on this vehicle", cmd.Propulsion), false, nil
		}
		return fmt.Sprintf("Propulsion set to %s", p), true, nil

	case CommandTile:
		v.SetTile(cmd.Tile)
		return fmt.Sprintf("Tile set to (%d,%d)", cmd.Tile.X, cmd.Tile.Y), true, nil

	case CommandSaveSession:
		saved := v.SaveSession()
		sess.Saved = &saved
		return fmt.Sprintf("Saved position (%.1f,%.1f) on tile (%d,%d)", saved.Position.X, saved.Position.Y, saved.Tile.X, saved.Tile.Y), true, nil

	case CommandRestoreSession:
		if sess.Saved == nil {
			return "", false, fmt.Errorf("%w for session %s", ErrNoSavedSession, sess.ID)
		}
		v.RestoreSession(*sess.Saved)
		return "Saved session restored", true, nil
	}
	return "", false, fmt.Errorf("%w: unknown command '%s'", ErrInvalidCommand, cmd.Type)
}

// StartRunner ticks the session in realtime from its held input
func (s *simServiceImpl) StartRunner(ctx context.Context, sessionID string) (*VehicleStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.startRunner(sess)

	sess.Lock()
	defer sess.Unlock()
	return sess.status(), nil
}

// StopRunner stops realtime ticking and persists the session
func (s *simServiceImpl) StopRunner(ctx context.Context, sessionID string) (*VehicleStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.stopRunner(sess)

	sess.Lock()
	status := sess.status()
	sess.Unlock()

	s.persist(sessionID, "stop_runner")
	return status, nil
}

// SetInput replaces the input the runner samples
func (s *simServiceImpl) SetInput(ctx context.Context, sessionID string, in engine.Input) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	sess.Input.Set(in)
	return nil
}

// startRunner attaches a runner if needed and starts it. The runner outlives
// the request, so it runs on a background context.
func (s *simServiceImpl) startRunner(sess *Session) {
	sess.Lock()
	if sess.Runner == nil {
		sess.Runner = engine.NewRunner(sess.Vehicle, sess.Input,
			engine.WithLocker(sess),
			engine.WithTickHook(s.tickHook(sess)),
			engine.WithRunnerLogger(s.log.With().Str("session", sess.ID).Logger()),
		)
	}
	runner := sess.Runner
	sess.Unlock()

	runner.Start(context.Background())
	s.log.Info().Str("session", sess.ID).Msg("runner started")
}

// stopRunner stops a running runner and reports whether one was running
func (s *simServiceImpl) stopRunner(sess *Session) bool {
	sess.Lock()
	runner := sess.Runner
	sess.Unlock()
	if runner == nil || !runner.Running() {
		return false
	}
	runner.Stop()
	s.log.Info().Str("session", sess.ID).Msg("runner stopped")
	return true
}

// tickHook runs under the session lock after every realtime tick
func (s *simServiceImpl) tickHook(sess *Session) func(engine.Status) {
	return func(engine.Status) {
		events := sess.drain()
		if s.notifier == nil {
			return
		}
		s.notifier.BroadcastToSession(sess.ID, "tick", TickUpdate{
			Status: sess.status(),
			Events: events,
		})
	}
}

// GetStatus returns the enriched vehicle status
func (s *simServiceImpl) GetStatus(ctx context.Context, sessionID string) (*VehicleStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()
	return sess.status(), nil
}

// GetState returns the full serialisable vehicle state
func (s *simServiceImpl) GetState(ctx context.Context, sessionID string) (*engine.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	state := sess.Vehicle.Snapshot()
	sess.Unlock()
	return &state, nil
}

// GetHistory returns a page of the event log plus the step-back trail
func (s *simServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	log := append([]SimEvent(nil), sess.eventLog...)
	trail := sess.Vehicle.History()
	sess.Unlock()

	total := len(log)

	// Apply defaults
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
	end := start + opts.Limit
	if end > total {
		end = total
	}

	events := []SimEvent{}
	if opts.Order == "desc" {
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			events = append(events, log[i])
		}
	} else if start < total {
		events = append(events, log[start:end]...)
	}

	return &HistoryResponse{
		Events:      events,
		Trail:       trail,
		TotalEvents: total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// Probe classifies a point for the session vehicle without moving it
func (s *simServiceImpl) Probe(ctx context.Context, sessionID string, pos engine.Position) (*ProbeResult, error) {
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) {
		return nil, fmt.Errorf("%w: (%v,%v)", ErrInvalidPosition, pos.X, pos.Y)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	v := sess.Vehicle
	return &ProbeResult{
		Position: pos,
		Sample:   v.Terrain().SampleAt(pos.Vec()),
		Verdict:  v.Probe(pos),
		Distance: r2.Norm(r2.Sub(pos.Vec(), v.Status().Position.Vec())),
	}, nil
}

// ListConfigs returns available scenarios
func (s *simServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific scenario
func (s *simServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.SimConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a scenario to disk
func (s *simServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.SimConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// session looks up a session and records the access
func (s *simServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func (s *simServiceImpl) info(sess *Session) *SessionInfo {
	sess.Lock()
	defer sess.Unlock()
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     sess.ConfigID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Running:        sess.running(),
		Status:         sess.status(),
		Config:         sess.Config,
	}
}

func (s *simServiceImpl) persist(sessionID, op string) {
	if err := s.sessions.Save(sessionID); err != nil {
		s.log.Warn().Err(err).Str("session", sessionID).Str("op", op).Msg("failed to persist session")
	}
}
