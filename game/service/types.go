package service

import (
	"time"

	"github.com/wricardo/mcp-training/seadrive/game/engine"
)

// SessionInfo provides information about a simulation session
type SessionInfo struct {
	ID             string            `json:"id"`
	ConfigName     string            `json:"config_name"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	Running        bool              `json:"running"`
	Message        string            `json:"message,omitempty"`
	Status         *VehicleStatus    `json:"status"`
	Config         *engine.SimConfig `json:"config"`
}

// VehicleStatus is the engine status enriched with decision aids
type VehicleStatus struct {
	engine.Status
	Heading  string `json:"heading"`
	Vehicle  string `json:"vehicle"`
	FuelRisk string `json:"fuel_risk"`
	RiskCode string `json:"risk_code"`
	Running  bool   `json:"running"`

	// ShoreAhead is the distance to shore along the heading, 0 when none
	// lies within shoreLookahead
	ShoreAhead float64 `json:"shore_ahead,omitempty"`
}

// SimEvent is an engine event with its player-facing message
type SimEvent struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Tick      uint64                 `json:"tick"`
	Position  engine.Position        `json:"position"`
	Terrain   engine.TerrainCategory `json:"terrain,omitempty"`
	From      engine.Propulsion      `json:"from,omitempty"`
	To        engine.Propulsion      `json:"to,omitempty"`
	Level     float64                `json:"level,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// StepRequest holds one input for a number of ticks
type StepRequest struct {
	Steer       int  `json:"steer"`
	Throttle    int  `json:"throttle"`
	Ticks       int  `json:"ticks"`
	Reset       bool `json:"reset"`
	StopOnEvent bool `json:"stop_on_event"`
}

// StepResult summarises a Step call
type StepResult struct {
	TicksExecuted  int  `json:"ticks_executed"`
	RequestedTicks int  `json:"requested_ticks"`
	Success        bool `json:"success"`
	Truncated      bool `json:"truncated,omitempty"`
	Limit          int  `json:"limit,omitempty"`

	StoppedReason  string `json:"stopped_reason,omitempty"`
	StopReasonCode string `json:"stop_reason_code,omitempty"` // disabled|terrain_blocked|terrain_entered|out_of_fuel|low_fuel|low_stamina|propulsion_changed|out_of_bounds
	StoppedOnTick  int    `json:"stopped_on_tick,omitempty"`  // 1-based

	StartPos  engine.Position `json:"start_pos"`
	EndPos    engine.Position `json:"end_pos"`
	StartFuel float64         `json:"start_fuel"`
	EndFuel   float64         `json:"end_fuel"`
	Distance  float64         `json:"distance"`

	Events  []SimEvent     `json:"events"`
	Status  *VehicleStatus `json:"status"`
	Message string         `json:"message,omitempty"`
}

// CommandType names a vehicle command
type CommandType string

const (
	CommandDirection      CommandType = "direction"
	CommandRefuel         CommandType = "refuel"
	CommandStepBack       CommandType = "step_back"
	CommandSpawnEdge      CommandType = "spawn_edge"
	CommandSpawnLine      CommandType = "spawn_line"
	CommandEnable         CommandType = "enable"
	CommandDisable        CommandType = "disable"
	CommandPropulsion     CommandType = "propulsion"
	CommandTile           CommandType = "tile"
	CommandSaveSession    CommandType = "save_session"
	CommandRestoreSession CommandType = "restore_session"
)

// Commands lists every command type in a stable order
func Commands() []CommandType {
	return []CommandType{
		CommandDirection, CommandRefuel, CommandStepBack, CommandSpawnEdge,
		CommandSpawnLine, CommandEnable, CommandDisable, CommandPropulsion,
		CommandTile, CommandSaveSession, CommandRestoreSession,
	}
}

// Command is applied between ticks. Only the fields its type uses are read.
type Command struct {
	Type       CommandType `json:"type"`
	Direction  int         `json:"direction,omitempty"`
	Amount     float64     `json:"amount,omitempty"`
	Steps      int         `json:"steps,omitempty"`
	Edge       string      `json:"edge,omitempty"`
	Line       int         `json:"line,omitempty"`
	Propulsion string      `json:"propulsion,omitempty"`
	Tile       engine.Tile `json:"tile,omitempty"`
}

// CommandResult is the outcome of a command
type CommandResult struct {
	Command CommandType    `json:"command"`
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Events  []SimEvent     `json:"events,omitempty"`
	Status  *VehicleStatus `json:"status"`
}

// ProbeResult is the terrain verdict for a point
type ProbeResult struct {
	Position engine.Position       `json:"position"`
	Sample   uint8                 `json:"sample"`
	Verdict  engine.TerrainVerdict `json:"verdict"`
	Distance float64               `json:"distance"`
}

// HistoryOptions configures event log retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains a page of the event log and the step-back trail
type HistoryResponse struct {
	Events      []SimEvent            `json:"events"`
	Trail       []engine.HistoryEntry `json:"trail"`
	TotalEvents int                   `json:"total_events"`
	Page        int                   `json:"page"`
	PageSize    int                   `json:"page_size"`
	TotalPages  int                   `json:"total_pages"`
	HasNext     bool                  `json:"has_next"`
	HasPrevious bool                  `json:"has_previous"`
}

// ConfigInfo provides information about a scenario file
type ConfigInfo struct {
	Filename    string             `json:"filename"`
	ConfigID    string             `json:"config_id"` // The identifier to use for session creation
	Name        string             `json:"name"`      // Display name
	Description string             `json:"description"`
	Vehicle     string             `json:"vehicle"`
	Kind        engine.VehicleKind `json:"kind"`
	Terrain     string             `json:"terrain"` // layout, topology or open
	TickRate    int                `json:"tick_rate"`
}

// TickUpdate is pushed to subscribers after each realtime tick
type TickUpdate struct {
	Status *VehicleStatus `json:"status"`
	Events []SimEvent     `json:"events,omitempty"`
}
