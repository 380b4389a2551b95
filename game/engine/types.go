package engine

import "gonum.org/v1/gonum/spatial/r2"

// TerrainCategory is the class a single topology sample falls into
type TerrainCategory string

const (
	Deep    TerrainCategory = "deep"
	Medium  TerrainCategory = "medium"
	Shallow TerrainCategory = "shallow"
	Reef    TerrainCategory = "reef"
	Current TerrainCategory = "current"
	Shore   TerrainCategory = "shore"
)

// Propulsion is the active locomotion source of a vehicle
type Propulsion string

const (
	Motor   Propulsion = "motor"
	Sail    Propulsion = "sail"
	Oar     Propulsion = "oar"
	Drift   Propulsion = "none"
	Resting Propulsion = "resting"
)

// SizeClass limits which shallow areas a hull can enter
type SizeClass string

const (
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
	SizeLarge  SizeClass = "large"
)

// VehicleKind only labels the vehicle; cars and boats share one model
type VehicleKind string

const (
	Boat VehicleKind = "boat"
	Car  VehicleKind = "car"
)

const (
	NumDirections   = 16
	HistorySize     = 10
	DefaultTickRate = 30
	MaxTickRate     = 120

	// Steering and throttle
	SteerGain        = 0.1
	SteerNotch       = 0.3
	SteerRecenter    = 0.9
	ThrottleStep     = 0.1
	ReverseThrottle  = -0.5
	MaxAcceleration  = 1.0
	MinAcceleration  = -0.5
	Drag             = 0.98
	MinMoveSpeed     = 0.1
	ProbeDamping     = 0.8
	ProbeReachAhead  = 10.0
	ProbeReachBehind = -5.0

	// Propulsion speeds
	MotorBaseSpeed   = 4.0
	MotorBonusSpeed  = 2.0
	MotorPowerScale  = 125.0
	SailBaseSpeed    = 4.0
	OarBaseSpeed     = 2.0
	DriftSpeed       = 0.5
	SailPeriodMillis = 5000.0

	// Energy
	BaseFuelCapacity      = 50.0
	FuelPerTank           = 25.0
	StartingFuelFraction  = 0.8
	FuelRate              = 0.05
	OutboardFuelRate      = 0.07
	StaminaCapacity       = 100.0
	StaminaRate           = 0.03
	StaminaRecovery       = 0.02
	LowResourceThreshold  = 0.2
	LowResourceRearm      = 0.1
	RestingResumeFraction = 0.3

	// Terrain
	ReefDurabilityThreshold = 3
	DefaultManeuverability  = 5.0

	// Stability defaults used when a definition leaves them at zero
	DefaultLateralStability      = 50.0
	DefaultLongitudinalStability = 50.0
	DefaultVerticalStability     = 30.0
)

// Position is a continuous playfield coordinate
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Vec converts p to a gonum vector
func (p Position) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// PositionOf converts a gonum vector to a Position
func PositionOf(v r2.Vec) Position {
	return Position{X: v.X, Y: v.Y}
}

// Tile is the map tile the playfield currently shows
type Tile struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Stability holds the three wave resistance stats, 0-100
type Stability struct {
	Lateral      float64 `json:"lateral" yaml:"lateral"`
	Longitudinal float64 `json:"longitudinal" yaml:"longitudinal"`
	Vertical     float64 `json:"vertical" yaml:"vertical"`
}

// VehicleDefinition describes the assembled vehicle. It is read-only while
// the simulation ticks. Missing numeric stats are zero; zero stability
// values fall back to the Default*Stability constants.
type VehicleDefinition struct {
	Name            string      `json:"name,omitempty" yaml:"name,omitempty"`
	Kind            VehicleKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Engine          bool        `json:"engine" yaml:"engine"`
	Outboard        bool        `json:"outboard,omitempty" yaml:"outboard,omitempty"`
	Sail            bool        `json:"sail" yaml:"sail"`
	Oars            int         `json:"oars" yaml:"oars"`
	Size            SizeClass   `json:"size,omitempty" yaml:"size,omitempty"`
	ShallowDraft    bool        `json:"shallow_draft,omitempty" yaml:"shallow_draft,omitempty"`
	ReefResistant   bool        `json:"reef_resistant,omitempty" yaml:"reef_resistant,omitempty"`
	Durability      int         `json:"durability" yaml:"durability"`
	FuelTanks       int         `json:"fuel_tanks,omitempty" yaml:"fuel_tanks,omitempty"`
	Power           float64     `json:"power" yaml:"power"`
	Maneuverability float64     `json:"maneuverability" yaml:"maneuverability"`
	DriftFactor     float64     `json:"drift_factor" yaml:"drift_factor"`
	Stability       Stability   `json:"stability" yaml:"stability"`
	WaterResistance float64     `json:"water_resistance,omitempty" yaml:"water_resistance,omitempty"`
}

// HasOars reports whether the vehicle can row
func (d VehicleDefinition) HasOars() bool {
	return d.Oars > 0
}

// CanCrossReef reports whether reefs are passable for this hull
func (d VehicleDefinition) CanCrossReef() bool {
	return d.ReefResistant || d.Durability >= ReefDurabilityThreshold
}

// CanEnterShallows reports whether shallow water is passable for this hull
func (d VehicleDefinition) CanEnterShallows() bool {
	return d.Size != SizeLarge || d.ShallowDraft
}

// Input is one tick worth of the three logical axes
type Input struct {
	Steer    int `json:"steer"`    // -1 left, 0, +1 right
	Throttle int `json:"throttle"` // -1 reverse, 0, +1 forward
}

func (in Input) clamped() Input {
	return Input{Steer: sign(in.Steer), Throttle: sign(in.Throttle)}
}

// InputSource is sampled once per tick
type InputSource interface {
	Sample() Input
}

// Status is the polled view of a vehicle
type Status struct {
	Tick                 uint64          `json:"tick"`
	Position             Position        `json:"position"`
	Direction            int             `json:"direction"`
	Speed                float64         `json:"speed"`
	Acceleration         float64         `json:"acceleration"`
	Steering             float64         `json:"steering"`
	Propulsion           Propulsion      `json:"propulsion"`
	Terrain              TerrainCategory `json:"terrain"`
	TerrainSpeedModifier float64         `json:"terrain_speed_modifier"`
	PropulsionMaxSpeed   float64         `json:"propulsion_max_speed"`
	EffectiveMaxSpeed    float64         `json:"effective_max_speed"`
	Fuel                 float64         `json:"fuel"`
	FuelMax              float64         `json:"fuel_max"`
	FuelPercent          float64         `json:"fuel_percent"`
	Stamina              float64         `json:"stamina"`
	StaminaMax           float64         `json:"stamina_max"`
	StaminaPercent       float64         `json:"stamina_percent"`
	Enabled              bool            `json:"enabled"`
	BlockedAttempts      int             `json:"blocked_attempts"`
	Edge                 int             `json:"edge"`
	Tile                 Tile            `json:"tile"`
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
