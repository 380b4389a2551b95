package engine

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Tick advances the vehicle by one logic step. A disabled or closed vehicle
// ignores the call entirely.
func (v *Vehicle) Tick(in Input) {
	if v.closed || !v.enabled {
		return
	}
	v.tick++

	if v.propulsion == Motor && v.fuel <= 0 {
		v.handleOutOfFuel()
		v.capSpeed()
		return
	}
	v.checkResting()

	in = in.clamped()
	v.steer(in.Steer)
	propulsionMax := v.PropulsionMaxSpeed()
	v.accelerate(in.Throttle)
	v.speed = v.acceleration * propulsionMax * v.terrainModifier
	v.wave.advance()

	committed := false
	var blocked TerrainCategory
	if math.Abs(v.speed) > MinMoveSpeed {
		v.probeTurn()
		next := r2.Add(v.pos, r2.Scale(v.speed, DirectionVector(v.direction)))
		verdict := v.judge(next)
		switch {
		case v.speed == 0:
			// damped to a stop by the turn probe
		case verdict.Passable:
			v.commit(next, verdict)
			v.consumeEnergy()
			v.applyOverlay()
			committed = true
		default:
			v.speed = 0
			v.blocked++
			blocked = verdict.Category
			v.noteBlocked(verdict.Category)
		}
	}
	v.blockedLatch = blocked

	if !committed || v.propulsion == Resting {
		v.recoverStamina()
	}
	if v.propulsion == Resting {
		v.checkResting()
	}
	v.capSpeed()
	if committed {
		v.history.Push(v.historyEntry())
	}
	v.clampToPlayfield()
}

// capSpeed holds |speed| to the effective ceiling after the terrain
// modifier or the energy level dropped during the tick
func (v *Vehicle) capSpeed() {
	limit := v.EffectiveMaxSpeed()
	if math.Abs(v.speed) > limit {
		v.speed = math.Copysign(limit, v.speed)
	}
}

// steer accumulates steering bias and notches the direction once the bias
// passes the threshold
func (v *Vehicle) steer(input int) {
	if input == 0 {
		v.steering *= SteerRecenter
		return
	}
	man := v.def.Maneuverability
	if man == 0 {
		man = DefaultManeuverability
	}
	v.steering = clamp(v.steering+float64(input)*(man/10)*SteerGain, -1, 1)
	if math.Abs(v.steering) > SteerNotch {
		if v.steering > 0 {
			v.SetDirection(v.direction + 1)
		} else {
			v.SetDirection(v.direction - 1)
		}
		v.steering *= 0.5
	}
}

// accelerate integrates throttle into the acceleration accumulator.
// Reverse input counts at half strength.
func (v *Vehicle) accelerate(input int) {
	switch {
	case input > 0:
		v.acceleration += ThrottleStep
	case input < 0:
		v.acceleration += ReverseThrottle * ThrottleStep
	default:
		v.acceleration *= Drag
		return
	}
	v.acceleration = clamp(v.acceleration, MinAcceleration, MaxAcceleration)
}

func (v *Vehicle) commit(next r2.Vec, verdict TerrainVerdict) {
	v.pos = next
	switch {
	case v.speed > 0:
		v.forwardBackward = 1
	case v.speed < 0:
		v.forwardBackward = -1
	default:
		v.forwardBackward = 0
	}
	if verdict.Category != v.category {
		v.category = verdict.Category
		v.emit(Event{Type: EventTerrainEntered, Terrain: verdict.Category})
	}
}

// noteBlocked raises the blocked event once per continuous run of blocks
// against the same category
func (v *Vehicle) noteBlocked(c TerrainCategory) {
	if v.blockedLatch == c {
		return
	}
	v.emit(Event{Type: EventTerrainBlocked, Terrain: c})
}
