package engine

import (
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/spatial/r2"
)

// Engine is the command and polling surface of one simulated vehicle
type Engine interface {
	// Simulation
	Tick(in Input)
	Status() Status
	Definition() VehicleDefinition

	// Commands
	SetDirection(i int)
	Refuel(amount float64)
	StepBack(n int)
	SpawnAtEdge(edge Edge)
	SpawnAtLine(index int)
	Enable()
	Disable()
	SetPropulsion(p Propulsion) bool
	SetTile(t Tile)

	// Sessions and persistence
	SaveSession() SavedSession
	RestoreSession(s SavedSession)
	Snapshot() State
	Restore(s State) error
	History() []HistoryEntry

	Close()
}

// Clock supplies elapsed simulation time for time-driven effects
type Clock interface {
	Now() time.Duration
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Duration

// Now implements Clock
func (f ClockFunc) Now() time.Duration {
	return f()
}

// tickClock derives time from the tick counter so replays are deterministic
type tickClock struct {
	v *Vehicle
}

func (c tickClock) Now() time.Duration {
	return time.Duration(c.v.tick) * time.Second / time.Duration(c.v.tickRate)
}

// EnergyProfile holds fuel and stamina capacities and rates
type EnergyProfile struct {
	FuelMax         float64 `json:"fuel_max" yaml:"fuel_max"`
	Fuel            float64 `json:"fuel" yaml:"fuel"`
	FuelRate        float64 `json:"fuel_rate" yaml:"fuel_rate"`
	StaminaMax      float64 `json:"stamina_max" yaml:"stamina_max"`
	Stamina         float64 `json:"stamina" yaml:"stamina"`
	StaminaRate     float64 `json:"stamina_rate" yaml:"stamina_rate"`
	StaminaRecovery float64 `json:"stamina_recovery" yaml:"stamina_recovery"`
}

// DefaultEnergyProfile derives capacities and rates from the definition
func DefaultEnergyProfile(def VehicleDefinition) EnergyProfile {
	var p EnergyProfile
	if def.Engine {
		p.FuelMax = BaseFuelCapacity + FuelPerTank*float64(def.FuelTanks)
		p.Fuel = p.FuelMax * StartingFuelFraction
		p.FuelRate = FuelRate
		if def.Outboard {
			p.FuelRate = OutboardFuelRate
		}
	}
	if def.HasOars() {
		p.StaminaMax = StaminaCapacity
		p.Stamina = StaminaCapacity
		p.StaminaRate = StaminaRate / sqrt(float64(def.Oars))
		p.StaminaRecovery = StaminaRecovery
	}
	return p
}

// Option configures a Vehicle at construction
type Option func(*Vehicle)

// WithEventSink routes events to sink
func WithEventSink(sink EventSink) Option {
	return func(v *Vehicle) {
		if sink != nil {
			v.sink = sink
		}
	}
}

// WithClock replaces the tick-derived clock
func WithClock(c Clock) Option {
	return func(v *Vehicle) {
		if c != nil {
			v.clock = c
		}
	}
}

// WithLogger attaches a logger for propulsion transitions
func WithLogger(log zerolog.Logger) Option {
	return func(v *Vehicle) {
		v.log = log
	}
}

// WithEnergy overrides the energy profile derived from the definition
func WithEnergy(p EnergyProfile) Option {
	return func(v *Vehicle) {
		v.energy = p
	}
}

// WithPlayfield sets the clamp rectangle
func WithPlayfield(p Playfield) Option {
	return func(v *Vehicle) {
		v.playfield = p
	}
}

// WithSoftTerrain makes failed reef and shallow checks cap speed instead of blocking
func WithSoftTerrain(soft bool) Option {
	return func(v *Vehicle) {
		v.soft = soft
	}
}

// WithTickRate sets the nominal ticks per second
func WithTickRate(hz int) Option {
	return func(v *Vehicle) {
		if hz > 0 {
			v.tickRate = hz
		}
	}
}

// Vehicle is one simulation instance. It is not safe for concurrent use;
// callers serialise Tick and commands themselves (see Runner).
type Vehicle struct {
	def       VehicleDefinition
	terrain   *Terrain
	playfield Playfield
	soft      bool
	tickRate  int
	sink      EventSink
	clock     Clock
	log       zerolog.Logger
	energy    EnergyProfile

	pos             r2.Vec
	direction       int
	steering        float64
	acceleration    float64
	speed           float64
	forwardBackward int
	propulsion      Propulsion
	terrainModifier float64
	category        TerrainCategory
	blocked         int
	edge            int
	tile            Tile
	enabled         bool
	outOfFuel       bool
	closed          bool
	tick            uint64

	fuel, fuelMax, fuelRate                     float64
	stamina, staminaMax, staminaRate, recovery float64
	fuelWarn, staminaWarn                       warningLatch

	wave         waveState
	history      History
	blockedLatch TerrainCategory
	runner       *Runner
}

// NewVehicle creates a vehicle at the centre of the playfield facing north.
// A nil terrain is open water everywhere.
func NewVehicle(def VehicleDefinition, terrain *Terrain, opts ...Option) *Vehicle {
	v := &Vehicle{
		def:       def,
		terrain:   terrain,
		playfield: DefaultPlayfield,
		tickRate:  DefaultTickRate,
		sink:      discardSink{},
		log:       zerolog.Nop(),
		energy:    DefaultEnergyProfile(def),
		enabled:   true,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.clock == nil {
		v.clock = tickClock{v: v}
	}

	v.fuelMax = v.energy.FuelMax
	v.fuel = clamp(v.energy.Fuel, 0, v.fuelMax)
	v.fuelRate = v.energy.FuelRate
	v.staminaMax = v.energy.StaminaMax
	v.stamina = clamp(v.energy.Stamina, 0, v.staminaMax)
	v.staminaRate = v.energy.StaminaRate
	v.recovery = v.energy.StaminaRecovery
	v.propulsion = v.initialPropulsion()

	v.spawn(v.playfield.Center(), NumDirections)
	return v
}

// Definition returns the vehicle definition
func (v *Vehicle) Definition() VehicleDefinition {
	return v.def
}

// Terrain returns the terrain sampler
func (v *Vehicle) Terrain() *Terrain {
	return v.terrain
}

// Playfield returns the clamp rectangle
func (v *Vehicle) Playfield() Playfield {
	return v.playfield
}

// Status returns the polled view of the vehicle
func (v *Vehicle) Status() Status {
	return Status{
		Tick:                 v.tick,
		Position:             PositionOf(v.pos),
		Direction:            v.direction,
		Speed:                v.speed,
		Acceleration:         v.acceleration,
		Steering:             v.steering,
		Propulsion:           v.propulsion,
		Terrain:              v.category,
		TerrainSpeedModifier: v.terrainModifier,
		PropulsionMaxSpeed:   v.PropulsionMaxSpeed(),
		EffectiveMaxSpeed:    v.EffectiveMaxSpeed(),
		Fuel:                 v.fuel,
		FuelMax:              v.fuelMax,
		FuelPercent:          percent(v.fuel, v.fuelMax),
		Stamina:              v.stamina,
		StaminaMax:           v.staminaMax,
		StaminaPercent:       percent(v.stamina, v.staminaMax),
		Enabled:              v.enabled,
		BlockedAttempts:      v.blocked,
		Edge:                 v.edge,
		Tile:                 v.tile,
	}
}

// History returns the committed states, oldest first
func (v *Vehicle) History() []HistoryEntry {
	return v.history.Entries()
}

// SetDirection sets the heading, wrapping the index into 1..16
func (v *Vehicle) SetDirection(i int) {
	v.direction = NormalizeDirection(i)
}

// StepBack restores the n-th most recent committed state, 0 being the latest
func (v *Vehicle) StepBack(n int) {
	e := v.history.Back(n)
	v.pos = e.Position.Vec()
	v.direction = NormalizeDirection(e.Direction)
	v.category = v.terrain.CategoryAt(v.pos)
}

// SpawnAtEdge places the vehicle on the spawn line for edge
func (v *Vehicle) SpawnAtEdge(edge Edge) {
	v.SpawnAtLine(SpawnIndexForEdge(edge))
}

// SpawnAtLine places the vehicle on spawn line index, 0 when out of range
func (v *Vehicle) SpawnAtLine(index int) {
	line := SpawnLineAt(index)
	v.spawn(line.Position.Vec(), DirectionFromSpawnLine(line))
}

// Enable resumes ticking
func (v *Vehicle) Enable() {
	v.enabled = true
}

// Disable makes every tick a no-op until Enable
func (v *Vehicle) Disable() {
	v.enabled = false
}

// SetTile records which map tile the playfield shows
func (v *Vehicle) SetTile(t Tile) {
	v.tile = t
}

// Close stops an attached runner and silences the vehicle. It must not be
// called while holding the runner's lock.
func (v *Vehicle) Close() {
	if v.runner != nil {
		v.runner.Stop()
	}
	v.closed = true
	v.sink = discardSink{}
}

// Closed reports whether Close was called
func (v *Vehicle) Closed() bool {
	return v.closed
}

func (v *Vehicle) spawn(pos r2.Vec, direction int) {
	v.pos, _ = v.playfield.Clamp(pos)
	v.direction = NormalizeDirection(direction)
	v.steering = 0
	v.acceleration = 0
	v.speed = 0
	v.forwardBackward = 0
	v.terrainModifier = 1
	v.edge = 0
	v.blockedLatch = ""
	v.category = v.terrain.CategoryAt(v.pos)
	v.history.Reset(v.historyEntry())
}

func (v *Vehicle) historyEntry() HistoryEntry {
	return HistoryEntry{Position: PositionOf(v.pos), Direction: v.direction}
}

func (v *Vehicle) emit(e Event) {
	if v.closed {
		return
	}
	e.Tick = v.tick
	e.Position = PositionOf(v.pos)
	v.sink.Emit(e)
}
