package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wricardo/mcp-training/seadrive/game/engine"
)

// MaxEventLog is how many events a session keeps for GetHistory
const MaxEventLog = 500

// shoreLookahead bounds the shore distance reported in VehicleStatus
const shoreLookahead = 120.0

// Session represents an active simulation. Its mutex serialises ticks,
// commands and reads of the vehicle; Session itself is the runner's locker.
type Session struct {
	ID             string
	ConfigID       string
	Config         *engine.SimConfig
	Vehicle        *engine.Vehicle
	Events         *engine.EventRecorder
	Input          *engine.HeldInput
	Runner         *engine.Runner
	Saved          *engine.SavedSession
	CreatedAt      time.Time
	LastAccessedAt time.Time

	baseDir  string
	log      zerolog.Logger
	eventLog []SimEvent
	mu       sync.Mutex
}

// NewSession builds the vehicle described by config. Relative topology
// paths resolve against baseDir.
func NewSession(id, configID string, config *engine.SimConfig, baseDir string, log zerolog.Logger) (*Session, error) {
	s := &Session{
		ID:             id,
		ConfigID:       configID,
		Config:         config,
		Input:          &engine.HeldInput{},
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
		baseDir:        baseDir,
		log:            log.With().Str("session", id).Logger(),
	}
	if err := s.rebuild(); err != nil {
		return nil, err
	}
	return s, nil
}

// Lock implements sync.Locker
func (s *Session) Lock() { s.mu.Lock() }

// Unlock implements sync.Locker
func (s *Session) Unlock() { s.mu.Unlock() }

// Touch records an access
func (s *Session) Touch() {
	s.mu.Lock()
	s.LastAccessedAt = time.Now()
	s.mu.Unlock()
}

// LastAccessed returns the last access time
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LastAccessedAt
}

// Running reports whether the realtime runner is ticking
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running()
}

func (s *Session) running() bool {
	return s.Runner != nil && s.Runner.Running()
}

// Close stops the runner and silences the vehicle. The lock must not be held.
func (s *Session) Close() {
	s.mu.Lock()
	runner := s.Runner
	s.mu.Unlock()
	if runner != nil {
		runner.Stop()
	}
	s.mu.Lock()
	s.Vehicle.Close()
	s.mu.Unlock()
}

// rebuild replaces the vehicle with a fresh one from the config. The runner,
// if any, is dropped; the caller stops it first.
func (s *Session) rebuild() error {
	events := &engine.EventRecorder{}
	v, err := engine.NewVehicleFromConfig(s.Config, s.baseDir,
		engine.WithEventSink(events),
		engine.WithLogger(s.log),
	)
	if err != nil {
		return fmt.Errorf("failed to create vehicle: %w", err)
	}
	if s.Vehicle != nil {
		s.Vehicle.Close()
	}
	s.Vehicle, s.Events, s.Runner = v, events, nil
	return nil
}

// status builds the enriched status. Caller holds the lock.
func (s *Session) status() *VehicleStatus {
	st := s.Vehicle.Status()
	risk := engine.AnalyzeFuelRisk(st)
	ahead, _ := s.Vehicle.DistanceToCategory(engine.Shore, shoreLookahead)
	return &VehicleStatus{
		Status:   st,
		Heading:  engine.DirectionName(st.Direction),
		Vehicle:  s.Vehicle.Definition().Name,
		FuelRisk: risk,
		RiskCode: riskCode(risk),
		Running:  s.running(),

		ShoreAhead: ahead,
	}
}

// drain converts pending engine events and appends them to the event log.
// Caller holds the lock.
func (s *Session) drain() []SimEvent {
	raw := s.Events.Drain()
	if len(raw) == 0 {
		return nil
	}
	events := make([]SimEvent, 0, len(raw))
	now := time.Now()
	for _, e := range raw {
		events = append(events, SimEvent{
			Type:      string(e.Type),
			Message:   FormatEvent(s.Config.Messages, e),
			Tick:      e.Tick,
			Position:  e.Position,
			Terrain:   e.Terrain,
			From:      e.From,
			To:        e.To,
			Level:     e.Level,
			Timestamp: now,
		})
	}
	s.record(events...)
	return events
}

// record appends to the bounded event log. Caller holds the lock.
func (s *Session) record(events ...SimEvent) {
	s.eventLog = append(s.eventLog, events...)
	if over := len(s.eventLog) - MaxEventLog; over > 0 {
		s.eventLog = append([]SimEvent(nil), s.eventLog[over:]...)
	}
}

// EventLog returns a copy of the recorded events, oldest first
func (s *Session) EventLog() []SimEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SimEvent(nil), s.eventLog...)
}

// FormatEvent renders the player-facing message for e
func FormatEvent(m engine.Messages, e engine.Event) string {
	d := engine.DefaultMessages
	switch e.Type {
	case engine.EventTerrainEntered:
		return sprintf(pick(m.TerrainEntered, d.TerrainEntered), e.Terrain)
	case engine.EventTerrainBlocked:
		return sprintf(pick(m.TerrainBlocked, d.TerrainBlocked), e.Terrain)
	case engine.EventLowFuel:
		return sprintf(pick(m.LowFuel, d.LowFuel), e.Level*100)
	case engine.EventLowStamina:
		return sprintf(pick(m.LowStamina, d.LowStamina), e.Level*100)
	case engine.EventOutOfFuel:
		return pick(m.OutOfFuel, d.OutOfFuel)
	case engine.EventPropulsionChanged:
		return sprintf(pick(m.PropulsionChanged, d.PropulsionChanged), e.From, e.To)
	case engine.EventOutOfBounds:
		return pick(m.OutOfBounds, d.OutOfBounds)
	}
	return string(e.Type)
}

func pick(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

// sprintf leaves messages without verbs untouched
func sprintf(format string, args ...interface{}) string {
	if !strings.Contains(format, "%") {
		return format
	}
	return fmt.Sprintf(format, args...)
}

func riskCode(text string) string {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "critical"):
		return "CRITICAL"
	case strings.Contains(t, "danger"):
		return "DANGER"
	case strings.Contains(t, "caution"):
		return "CAUTION"
	case strings.Contains(t, "resting"):
		return "RESTING"
	case strings.Contains(t, "adrift"):
		return "ADRIFT"
	case strings.Contains(t, "safe"):
		return "SAFE"
	default:
		return "UNKNOWN"
	}
}
