package service

import (
	"context"
	"errors"

	"github.com/wricardo/mcp-training/seadrive/game/engine"
)

var (
	ErrRunnerActive    = errors.New("session is running in realtime")
	ErrInvalidCommand  = errors.New("invalid command")
	ErrNoSavedSession  = errors.New("no saved session")
	ErrInvalidPosition = errors.New("invalid position")
)

// MaxStepTicks bounds a single Step call
const MaxStepTicks = 1800

// SimService defines all simulation operations
type SimService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Simulation
	Step(ctx context.Context, sessionID string, req StepRequest) (*StepResult, error)
	Reset(ctx context.Context, sessionID string) (*VehicleStatus, error)
	Command(ctx context.Context, sessionID string, cmd Command) (*CommandResult, error)

	// Realtime
	StartRunner(ctx context.Context, sessionID string) (*VehicleStatus, error)
	StopRunner(ctx context.Context, sessionID string) (*VehicleStatus, error)
	SetInput(ctx context.Context, sessionID string, in engine.Input) error

	// State
	GetStatus(ctx context.Context, sessionID string) (*VehicleStatus, error)
	GetState(ctx context.Context, sessionID string) (*engine.State, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	Probe(ctx context.Context, sessionID string, pos engine.Position) (*ProbeResult, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.SimConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.SimConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.SimConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, configID string, config *engine.SimConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles scenario loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.SimConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.SimConfig
	SaveConfig(name string, config *engine.SimConfig) error
	// BaseDir resolves relative topology paths
	BaseDir() string
}

// Notifier pushes realtime updates to subscribers of a session
type Notifier interface {
	BroadcastToSession(sessionID, event string, data interface{})
}
