package engine

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	deepSample   uint8 = 25
	mediumSample uint8 = 75
	shoreSample  uint8 = 245
)

// steadyHull has full stability so the wave overlay adds nothing
func steadyHull() VehicleDefinition {
	return VehicleDefinition{
		Kind:      Boat,
		Engine:    true,
		FuelTanks: 2,
		Size:      SizeSmall,
		Stability: Stability{Lateral: 100, Longitudinal: 100, Vertical: 100},
	}
}

// newTestVehicle maps the playfield 1:1 onto a 640x480 bitmap
func newTestVehicle(def VehicleDefinition, b *Bitmap, opts ...Option) (*Vehicle, *EventRecorder) {
	rec := &EventRecorder{}
	opts = append([]Option{WithEventSink(rec)}, opts...)
	var source TerrainSource
	if b != nil {
		source = b
	}
	return NewVehicle(def, NewTerrain(source, Mapping{Scale: 1}), opts...), rec
}

func place(v *Vehicle, x, y float64, direction int) {
	v.RestoreSession(SavedSession{Position: Position{X: x, Y: y}, Direction: direction})
}

func TestTick_FuelConsumptionInDeepWater(t *testing.T) {
	def := steadyHull()
	def.Stability = Stability{}
	v, _ := newTestVehicle(def, NewBitmap(640, 480, deepSample))

	start := v.Status()
	require.Equal(t, Motor, start.Propulsion)
	require.InDelta(t, 100.0, start.FuelMax, 1e-9)
	require.InDelta(t, 80.0, start.Fuel, 1e-9)

	expected := start.Fuel
	prev := start.Fuel
	for i := 0; i < 100; i++ {
		v.Tick(Input{Throttle: 1})
		s := v.Status()
		expected -= math.Abs(s.Speed) * FuelRate

		assert.Less(t, s.Fuel, prev, "tick %d", i+1)
		assert.GreaterOrEqual(t, s.Fuel, 0.0)
		prev = s.Fuel
	}
	assert.InDelta(t, expected, v.Status().Fuel, 1e-9)
}

func TestTick_ShoreAheadRejectsMove(t *testing.T) {
	b := NewBitmap(640, 480, mediumSample)
	b.FillRect(101, 0, 640, 480, shoreSample)
	v, rec := newTestVehicle(steadyHull(), b)
	place(v, 100.49, 240, 4)

	v.Tick(Input{Throttle: 1})
	s := v.Status()
	assert.Equal(t, 0.0, s.Speed)
	assert.Equal(t, 1, s.BlockedAttempts)
	assert.Equal(t, Position{X: 100.49, Y: 240}, s.Position)
	assert.Equal(t, 1, rec.Count(EventTerrainBlocked))

	v.Tick(Input{Throttle: 1})
	assert.Equal(t, 2, v.Status().BlockedAttempts)
	assert.Equal(t, 1, rec.Count(EventTerrainBlocked), "blocked event is edge triggered")
}

func TestTick_BlockedEventRearms(t *testing.T) {
	b := NewBitmap(640, 480, mediumSample)
	b.FillRect(101, 0, 640, 480, shoreSample)
	v, rec := newTestVehicle(steadyHull(), b)
	place(v, 100.49, 240, 4)

	v.Tick(Input{Throttle: 1})
	require.Equal(t, 1, rec.Count(EventTerrainBlocked))

	// coast until the speed drops under the move threshold
	for i := 0; i < 100; i++ {
		v.Tick(Input{})
	}
	require.LessOrEqual(t, math.Abs(v.Status().Speed), MinMoveSpeed)

	v.Tick(Input{Throttle: 1})
	assert.Equal(t, 2, rec.Count(EventTerrainBlocked))

	for _, e := range rec.Drain() {
		if e.Type == EventTerrainBlocked {
			assert.Equal(t, Shore, e.Terrain)
		}
	}
}

func TestTick_TurnProbeDeflectsFromShore(t *testing.T) {
	b := NewBitmap(640, 480, mediumSample)
	b.FillRect(0, 0, 640, 237, shoreSample)
	v, _ := newTestVehicle(steadyHull(), b)
	place(v, 300, 240, 4)

	v.Tick(Input{Throttle: 1})
	require.Equal(t, 4, v.Status().Direction)
	require.InDelta(t, 300.4, v.Status().Position.X, 1e-9)

	v.Tick(Input{Throttle: 1})
	s := v.Status()
	assert.Equal(t, 5, s.Direction, "heading pushed away from the shore side")
	assert.InDelta(t, 0.2*MotorBaseSpeed*0.9*ProbeDamping, s.Speed, 1e-9)
}

func TestTick_Steering(t *testing.T) {
	def := steadyHull()
	def.Maneuverability = 10
	v, _ := newTestVehicle(def, NewBitmap(640, 480, mediumSample))
	place(v, 320, 240, 1)

	for i := 0; i < 4; i++ {
		v.Tick(Input{Steer: 1})
	}
	s := v.Status()
	assert.Equal(t, 2, s.Direction)
	assert.Less(t, s.Steering, SteerNotch)

	before := s.Steering
	v.Tick(Input{})
	assert.InDelta(t, before*SteerRecenter, v.Status().Steering, 1e-12)

	place(v, 320, 240, 1)
	for i := 0; i < 4; i++ {
		v.Tick(Input{Steer: -1})
	}
	assert.Equal(t, 16, v.Status().Direction, "left of NNE wraps to N")
}

func TestTick_ThrottleClamps(t *testing.T) {
	v, _ := newTestVehicle(steadyHull(), NewBitmap(640, 480, mediumSample))

	for i := 0; i < 20; i++ {
		v.Tick(Input{Throttle: 1})
	}
	assert.InDelta(t, MaxAcceleration, v.Status().Acceleration, 1e-9)

	v.Tick(Input{})
	assert.InDelta(t, MaxAcceleration*Drag, v.Status().Acceleration, 1e-9)

	for i := 0; i < 60; i++ {
		v.Tick(Input{Throttle: -1})
	}
	assert.InDelta(t, MinAcceleration, v.Status().Acceleration, 1e-9)
	assert.Less(t, v.Status().Speed, 0.0)
}

func TestTick_InvariantsUnderRandomInput(t *testing.T) {
	b := NewBitmap(640, 480, deepSample)
	b.FillRect(200, 100, 260, 380, shoreSample)
	b.FillRect(400, 50, 460, 200, 180)
	b.FillRect(400, 300, 460, 430, 125)
	b.FillRect(100, 100, 160, 200, 210)

	def := steadyHull()
	def.Size = SizeLarge
	def.Stability = Stability{}
	def.Power = 200
	v, _ := newTestVehicle(def, b, WithEnergy(EnergyProfile{FuelMax: 1e6, Fuel: 1e6, FuelRate: FuelRate}))

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		v.Tick(Input{Steer: rng.Intn(3) - 1, Throttle: rng.Intn(3) - 1})
		s := v.Status()

		require.GreaterOrEqual(t, s.Direction, 1)
		require.LessOrEqual(t, s.Direction, NumDirections)
		require.LessOrEqual(t, math.Abs(s.Speed), s.PropulsionMaxSpeed*s.TerrainSpeedModifier+1e-9, "tick %d", i)
		require.InDelta(t, s.PropulsionMaxSpeed*s.TerrainSpeedModifier, s.EffectiveMaxSpeed, 1e-9)
		require.GreaterOrEqual(t, s.Fuel, 0.0)
		require.LessOrEqual(t, s.Fuel, s.FuelMax)
		require.GreaterOrEqual(t, s.Acceleration, MinAcceleration)
		require.LessOrEqual(t, s.Acceleration, MaxAcceleration)
		require.True(t, v.Playfield().Contains(s.Position.Vec()))
		require.NotEqual(t, Shore, v.Terrain().CategoryAt(s.Position.Vec()), "tick %d", i)
	}
}

func TestTick_DisabledIsNoop(t *testing.T) {
	v, rec := newTestVehicle(steadyHull(), NewBitmap(640, 480, mediumSample))
	v.Tick(Input{Throttle: 1})

	v.Disable()
	before := v.Status()
	for i := 0; i < 10; i++ {
		v.Tick(Input{Throttle: 1, Steer: 1})
	}
	after := v.Status()
	assert.Equal(t, before, after)
	assert.False(t, after.Enabled)

	v.Enable()
	rec.Drain()
	v.Tick(Input{Throttle: 1})
	assert.Equal(t, before.Tick+1, v.Status().Tick)
}

func TestTick_TerrainModifierFollowsDestination(t *testing.T) {
	b := NewBitmap(640, 480, deepSample)
	b.FillRect(0, 0, 640, 200, 125)
	v, rec := newTestVehicle(steadyHull(), b)
	place(v, 320, 203, 16)

	for i := 0; i < 5; i++ {
		v.Tick(Input{Throttle: 1})
	}
	s := v.Status()
	assert.Equal(t, Shallow, s.Terrain)
	assert.InDelta(t, 0.5, s.TerrainSpeedModifier, 1e-9)
	assert.Equal(t, 1, rec.Count(EventTerrainEntered))
}

func TestTick_LargeHullBlockedByShallows(t *testing.T) {
	b := NewBitmap(640, 480, mediumSample)
	b.FillRect(0, 0, 640, 240, 125)

	def := steadyHull()
	def.Size = SizeLarge

	hard, rec := newTestVehicle(def, b)
	place(hard, 320, 239.8, 16)
	hard.Tick(Input{Throttle: 1})
	assert.Equal(t, 1, hard.Status().BlockedAttempts)
	assert.InDelta(t, 0.2, hard.Status().TerrainSpeedModifier, 1e-9)
	assert.Equal(t, 1, rec.Count(EventTerrainBlocked))

	soft, _ := newTestVehicle(def, b, WithSoftTerrain(true))
	place(soft, 320, 239.8, 16)
	soft.Tick(Input{Throttle: 1})
	assert.Equal(t, 0, soft.Status().BlockedAttempts)
	assert.Equal(t, Shallow, soft.Status().Terrain)
	assert.InDelta(t, 0.2, soft.Status().TerrainSpeedModifier, 1e-9)
}

func TestTick_ReefNeedsDurability(t *testing.T) {
	b := NewBitmap(640, 480, mediumSample)
	b.FillRect(0, 0, 640, 240, 180)

	weak := steadyHull()
	weak.Durability = 2
	v, _ := newTestVehicle(weak, b)
	place(v, 320, 239.8, 16)
	v.Tick(Input{Throttle: 1})
	assert.Equal(t, 1, v.Status().BlockedAttempts)

	strong := steadyHull()
	strong.Durability = 3
	v, _ = newTestVehicle(strong, b)
	place(v, 320, 239.8, 16)
	v.Tick(Input{Throttle: 1})
	assert.Equal(t, 0, v.Status().BlockedAttempts)
	assert.Equal(t, Reef, v.Status().Terrain)
	assert.InDelta(t, 0.3, v.Status().TerrainSpeedModifier, 1e-9)
}

func TestTick_OutOfBoundsEdgeTriggered(t *testing.T) {
	v, rec := newTestVehicle(steadyHull(), NewBitmap(640, 480, mediumSample))
	place(v, 320, 52, 16)

	for i := 0; i < 6; i++ {
		v.Tick(Input{Throttle: 1})
	}
	s := v.Status()
	assert.Equal(t, BoundsTop, s.Edge)
	assert.Equal(t, 50.0, s.Position.Y)
	assert.Equal(t, 1, rec.Count(EventOutOfBounds))

	v.SetDirection(8)
	for i := 0; i < 3; i++ {
		v.Tick(Input{Throttle: 1})
	}
	assert.Equal(t, BoundsNone, v.Status().Edge)
	assert.Equal(t, 1, rec.Count(EventOutOfBounds))
}

func TestVehicles_AreIndependent(t *testing.T) {
	b := NewBitmap(640, 480, deepSample)
	a, _ := newTestVehicle(steadyHull(), b)
	c, _ := newTestVehicle(steadyHull(), b)

	for i := 0; i < 50; i++ {
		a.Tick(Input{Throttle: 1, Steer: 1})
	}
	assert.Equal(t, uint64(0), c.Status().Tick)

	for i := 0; i < 50; i++ {
		c.Tick(Input{Throttle: 1, Steer: 1})
	}
	assert.Equal(t, a.Status(), c.Status())
}

func TestDistanceToCategory(t *testing.T) {
	b := NewBitmap(640, 480, mediumSample)
	b.FillRect(101, 0, 640, 480, shoreSample)
	v, _ := newTestVehicle(steadyHull(), b)

	place(v, 90, 240, 4)
	d, ok := v.DistanceToCategory(Shore, 50)
	require.True(t, ok)
	assert.Equal(t, 11.0, d)

	_, ok = v.DistanceToCategory(Shore, 5)
	assert.False(t, ok)

	place(v, 90, 240, 12)
	_, ok = v.DistanceToCategory(Shore, 50)
	assert.False(t, ok)
}

func TestPlayfield_Clamp(t *testing.T) {
	pf := DefaultPlayfield
	tests := []struct {
		name string
		in   r2.Vec
		want r2.Vec
		code int
	}{
		{"inside", r2.Vec{X: 300, Y: 200}, r2.Vec{X: 300, Y: 200}, BoundsNone},
		{"left", r2.Vec{X: 10, Y: 200}, r2.Vec{X: 50, Y: 200}, BoundsLeft},
		{"right", r2.Vec{X: 600, Y: 200}, r2.Vec{X: 590, Y: 200}, BoundsRight},
		{"top", r2.Vec{X: 300, Y: 0}, r2.Vec{X: 300, Y: 50}, BoundsTop},
		{"bottom", r2.Vec{X: 300, Y: 479}, r2.Vec{X: 300, Y: 430}, BoundsBottom},
		{"corner reports vertical", r2.Vec{X: 0, Y: 0}, r2.Vec{X: 50, Y: 50}, BoundsTop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, code := pf.Clamp(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.code == BoundsNone, pf.Contains(tt.in))
		})
	}
}

func TestTick_SpeedCappedEnteringShallows(t *testing.T) {
	b := NewBitmap(640, 480, deepSample)
	b.FillRect(330, 0, 640, 480, 125)
	v, rec := newTestVehicle(steadyHull(), b)
	place(v, 300, 240, 4)

	entered := -1
	for i := 0; i < 40; i++ {
		v.Tick(Input{Throttle: 1})
		s := v.Status()
		require.LessOrEqual(t, math.Abs(s.Speed), s.EffectiveMaxSpeed+1e-9, "tick %d on %s", i, s.Terrain)
		if s.Terrain == Shallow && entered < 0 {
			entered = i
			assert.InDelta(t, 0.5, s.TerrainSpeedModifier, 1e-9)
			assert.InDelta(t, 0.5*s.PropulsionMaxSpeed, s.EffectiveMaxSpeed, 1e-9)
		}
	}

	require.GreaterOrEqual(t, entered, 0, "never reached the shallows")
	assert.Equal(t, 1, rec.Count(EventTerrainEntered))
	assert.InDelta(t, 0.5*MotorBaseSpeed, v.Status().Speed, 1e-9)
}
