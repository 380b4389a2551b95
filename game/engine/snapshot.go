package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidState is returned when a snapshot cannot be applied
var ErrInvalidState = errors.New("invalid vehicle state")

// SavedSession is the small snapshot kept when leaving the playfield
type SavedSession struct {
	Position  Position `json:"position"`
	Direction int      `json:"direction"`
	Speed     float64  `json:"speed"`
	Tile      Tile     `json:"tile"`
}

// SaveSession captures position, heading, speed and tile
func (v *Vehicle) SaveSession() SavedSession {
	return SavedSession{
		Position:  PositionOf(v.pos),
		Direction: v.direction,
		Speed:     v.speed,
		Tile:      v.tile,
	}
}

// RestoreSession applies a saved session directly, without the spawn table.
// Acceleration is derived from the saved speed so the vehicle keeps moving.
func (v *Vehicle) RestoreSession(s SavedSession) {
	v.pos = s.Position.Vec()
	v.direction = NormalizeDirection(s.Direction)
	v.tile = s.Tile
	v.steering = 0
	v.terrainModifier = 1
	v.blockedLatch = ""
	v.edge = BoundsNone
	v.category = v.terrain.CategoryAt(v.pos)

	v.acceleration = 0
	if m := v.PropulsionMaxSpeed(); m > 0 {
		v.acceleration = clamp(s.Speed/m, MinAcceleration, MaxAcceleration)
	}
	v.speed = clamp(s.Speed, MinAcceleration*v.PropulsionMaxSpeed(), v.PropulsionMaxSpeed())
	v.forwardBackward = signf(v.speed)
	v.history.Reset(v.historyEntry())
}

// State is the full serialisable state of a vehicle
type State struct {
	Definition      VehicleDefinition `json:"definition"`
	Tick            uint64            `json:"tick"`
	Position        Position          `json:"position"`
	Direction       int               `json:"direction"`
	Steering        float64           `json:"steering"`
	Acceleration    float64           `json:"acceleration"`
	Speed           float64           `json:"speed"`
	ForwardBackward int               `json:"forward_backward"`
	Propulsion      Propulsion        `json:"propulsion"`
	Fuel            float64           `json:"fuel"`
	Stamina         float64           `json:"stamina"`
	Energy          EnergyProfile     `json:"energy"`
	TerrainModifier float64           `json:"terrain_modifier"`
	Terrain         TerrainCategory   `json:"terrain"`
	BlockedAttempts int               `json:"blocked_attempts"`
	BlockedOn       TerrainCategory   `json:"blocked_on,omitempty"`
	Edge            int               `json:"edge"`
	Tile            Tile              `json:"tile"`
	Enabled         bool              `json:"enabled"`
	OutOfFuel       bool              `json:"out_of_fuel"`
	FuelWarned      bool              `json:"fuel_warned"`
	StaminaWarned   bool              `json:"stamina_warned"`
	WavePhase       int               `json:"wave_phase"`
	History         []HistoryEntry    `json:"history"`
}

// Snapshot captures the complete vehicle state
func (v *Vehicle) Snapshot() State {
	energy := v.energy
	energy.FuelMax, energy.Fuel, energy.FuelRate = v.fuelMax, v.fuel, v.fuelRate
	energy.StaminaMax, energy.Stamina = v.staminaMax, v.stamina
	energy.StaminaRate, energy.StaminaRecovery = v.staminaRate, v.recovery
	return State{
		Definition:      v.def,
		Tick:            v.tick,
		Position:        PositionOf(v.pos),
		Direction:       v.direction,
		Steering:        v.steering,
		Acceleration:    v.acceleration,
		Speed:           v.speed,
		ForwardBackward: v.forwardBackward,
		Propulsion:      v.propulsion,
		Fuel:            v.fuel,
		Stamina:         v.stamina,
		Energy:          energy,
		TerrainModifier: v.terrainModifier,
		Terrain:         v.category,
		BlockedAttempts: v.blocked,
		BlockedOn:       v.blockedLatch,
		Edge:            v.edge,
		Tile:            v.tile,
		Enabled:         v.enabled,
		OutOfFuel:       v.outOfFuel,
		FuelWarned:      v.fuelWarn.fired,
		StaminaWarned:   v.staminaWarn.fired,
		WavePhase:       v.wave.phase,
		History:         v.history.Entries(),
	}
}

// Restore replaces the vehicle state with s
func (v *Vehicle) Restore(s State) error {
	switch s.Propulsion {
	case Motor, Sail, Oar, Drift, Resting:
	default:
		return fmt.Errorf("%w: unknown propulsion %q", ErrInvalidState, s.Propulsion)
	}
	if s.Energy.FuelMax < 0 || s.Energy.StaminaMax < 0 {
		return fmt.Errorf("%w: negative capacity", ErrInvalidState)
	}

	v.def = s.Definition
	v.energy = s.Energy
	v.fuelMax = s.Energy.FuelMax
	v.fuel = clamp(s.Fuel, 0, v.fuelMax)
	v.fuelRate = s.Energy.FuelRate
	v.staminaMax = s.Energy.StaminaMax
	v.stamina = clamp(s.Stamina, 0, v.staminaMax)
	v.staminaRate = s.Energy.StaminaRate
	v.recovery = s.Energy.StaminaRecovery

	v.tick = s.Tick
	v.pos = s.Position.Vec()
	v.direction = NormalizeDirection(s.Direction)
	v.steering = clamp(s.Steering, -1, 1)
	v.acceleration = clamp(s.Acceleration, MinAcceleration, MaxAcceleration)
	v.speed = s.Speed
	v.forwardBackward = sign(s.ForwardBackward)
	v.propulsion = s.Propulsion
	v.terrainModifier = clamp(s.TerrainModifier, 0, 1)
	v.category = s.Terrain
	if v.category == "" {
		v.category = v.terrain.CategoryAt(v.pos)
	}
	v.blocked = s.BlockedAttempts
	v.edge = s.Edge
	v.tile = s.Tile
	v.enabled = s.Enabled
	v.outOfFuel = s.OutOfFuel
	v.fuelWarn.fired = s.FuelWarned
	v.staminaWarn.fired = s.StaminaWarned
	v.wave.phase = ((s.WavePhase % len(amplitudes)) + len(amplitudes)) % len(amplitudes)
	v.blockedLatch = s.BlockedOn
	if len(s.History) > 0 {
		v.history.Load(s.History)
	} else {
		v.history.Reset(v.historyEntry())
	}
	return nil
}
