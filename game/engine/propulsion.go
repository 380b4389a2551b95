package engine

import (
	"math"
	"time"
)

// warningLatch fires once when a level drops to the threshold and re-arms
// once it climbs back above threshold plus the re-arm margin
type warningLatch struct {
	fired bool
}

func (w *warningLatch) update(fraction float64) bool {
	if !w.fired && fraction <= LowResourceThreshold {
		w.fired = true
		return true
	}
	if w.fired && fraction > LowResourceThreshold+LowResourceRearm {
		w.fired = false
	}
	return false
}

func (w *warningLatch) rearm(fraction float64) {
	if fraction > LowResourceThreshold+LowResourceRearm {
		w.fired = false
	}
}

func (v *Vehicle) initialPropulsion() Propulsion {
	switch {
	case v.def.Engine && v.fuel > 0:
		return Motor
	case v.def.Sail:
		return Sail
	case v.def.HasOars():
		return Oar
	}
	return Drift
}

// MaxSpeed is the propulsion ceiling before fuel, wind and stamina are applied
func MaxSpeed(p Propulsion, def VehicleDefinition) float64 {
	switch p {
	case Motor:
		return MotorBaseSpeed + math.Min(MotorBonusSpeed, def.Power/MotorPowerScale)
	case Sail:
		return SailBaseSpeed
	case Oar:
		return OarBaseSpeed
	}
	return DriftSpeed
}

// EffectiveMaxSpeed is this tick's speed ceiling: the propulsion ceiling
// scaled by the terrain under the vehicle
func (v *Vehicle) EffectiveMaxSpeed() float64 {
	return v.PropulsionMaxSpeed() * v.terrainModifier
}

// PropulsionMaxSpeed is the ceiling for the active propulsion before terrain
func (v *Vehicle) PropulsionMaxSpeed() float64 {
	switch v.propulsion {
	case Motor:
		if v.fuel > 0 {
			return MaxSpeed(Motor, v.def)
		}
		return DriftSpeed
	case Sail:
		ms := float64(v.clock.Now()) / float64(time.Millisecond)
		return MaxSpeed(Sail, v.def) * (0.8 + math.Sin(ms/SailPeriodMillis)*0.2)
	case Oar:
		f := 0.0
		if v.staminaMax > 0 {
			f = v.stamina / v.staminaMax
		}
		mod := f * 2.5
		if f > 0.5 {
			mod = 0.5 + f*0.5
		}
		return MaxSpeed(Oar, v.def) * math.Max(0.2, mod)
	}
	return DriftSpeed
}

// CanUse reports whether the vehicle is equipped for p
func (v *Vehicle) CanUse(p Propulsion) bool {
	switch p {
	case Motor:
		return v.def.Engine && v.fuel > 0
	case Sail:
		return v.def.Sail
	case Oar:
		return v.def.HasOars() && v.stamina > 0
	case Drift:
		return true
	}
	return false
}

// SetPropulsion switches to p when the vehicle is equipped for it
func (v *Vehicle) SetPropulsion(p Propulsion) bool {
	if !v.CanUse(p) {
		return false
	}
	v.outOfFuel = false
	v.enabled = true
	v.switchPropulsion(p)
	return true
}

// Refuel adds fuel, clamped to capacity. A vehicle that lost its motor to an
// empty tank gets it back.
func (v *Vehicle) Refuel(amount float64) {
	if v.fuelMax <= 0 || math.IsNaN(amount) || amount <= 0 {
		return
	}
	v.fuel = math.Min(v.fuelMax, v.fuel+amount)
	v.fuelWarn.rearm(v.fuel / v.fuelMax)
	if v.outOfFuel && v.def.Engine {
		v.outOfFuel = false
		v.enabled = true
		v.switchPropulsion(Motor)
	}
}

func (v *Vehicle) switchPropulsion(p Propulsion) {
	if p == v.propulsion {
		return
	}
	from := v.propulsion
	v.propulsion = p
	v.log.Debug().
		Str("from", string(from)).
		Str("to", string(p)).
		Uint64("tick", v.tick).
		Msg("propulsion changed")
	v.emit(Event{Type: EventPropulsionChanged, From: from, To: p})
}

// handleOutOfFuel disables the vehicle, reports the empty tank and falls
// back to the next available propulsion
func (v *Vehicle) handleOutOfFuel() {
	if !v.outOfFuel {
		v.outOfFuel = true
		v.enabled = false
		v.emit(Event{Type: EventOutOfFuel, Level: 0})
	}
	v.fallback()
}

// fallback prefers sail, then oars with stamina left, then drifting.
// Any result re-enables the vehicle.
func (v *Vehicle) fallback() {
	next := Drift
	switch {
	case v.def.Sail:
		next = Sail
	case v.def.HasOars() && v.stamina > 0:
		next = Oar
	}
	v.enabled = true
	v.switchPropulsion(next)
}

// consumeEnergy drains the active resource in proportion to |speed|
func (v *Vehicle) consumeEnergy() {
	used := math.Abs(v.speed)
	switch v.propulsion {
	case Motor:
		v.fuel = math.Max(0, v.fuel-used*v.fuelRate)
		if v.fuelMax > 0 && v.fuelWarn.update(v.fuel/v.fuelMax) {
			v.emit(Event{Type: EventLowFuel, Level: v.fuel / v.fuelMax})
		}
	case Oar:
		v.stamina = math.Max(0, v.stamina-used*v.staminaRate)
		if v.staminaMax > 0 && v.staminaWarn.update(v.stamina/v.staminaMax) {
			v.emit(Event{Type: EventLowStamina, Level: v.stamina / v.staminaMax})
		}
	}
}

// recoverStamina regenerates stamina for vehicles with oars
func (v *Vehicle) recoverStamina() {
	if v.staminaMax <= 0 || v.stamina >= v.staminaMax {
		return
	}
	v.stamina = math.Min(v.staminaMax, v.stamina+v.recovery)
	v.staminaWarn.rearm(v.stamina / v.staminaMax)
}

// checkResting moves a rower with an empty stamina pool into Resting and
// back to Oar once enough has been recovered
func (v *Vehicle) checkResting() {
	switch v.propulsion {
	case Oar:
		if v.stamina <= 0 {
			v.switchPropulsion(Resting)
		}
	case Resting:
		if v.stamina > v.staminaMax*RestingResumeFraction {
			v.switchPropulsion(Oar)
		}
	}
}
