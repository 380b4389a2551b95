package engine

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// amplitudes is one sine period sampled 100 times, scaled to -100..100
var amplitudes = [100]float64{
	6, 13, 19, 25, 31, 37, 43, 48, 54, 59, 64, 68, 73, 77, 81, 84, 88, 90, 93, 95,
	97, 98, 99, 100, 100, 100, 99, 98, 97, 95, 93, 90, 88, 84, 81, 77, 73, 68, 64, 59,
	54, 48, 43, 37, 31, 25, 19, 13, 6, 0, -6, -13, -19, -25, -31, -37, -43, -48, -54, -59,
	-64, -68, -73, -77, -81, -84, -88, -90, -93, -95, -97, -98, -99, -100, -100, -100, -99, -98, -97, -95,
	-93, -90, -88, -84, -81, -77, -73, -68, -64, -59, -54, -48, -43, -37, -31, -25, -19, -13, -6, 0,
}

const (
	wavePhaseStep   = 2
	pitchPhaseShift = 25
	heavePhaseShift = 50

	lateralWave = 0.15
	pitchWave   = 0.08
	heaveWave   = 0.05

	currentPush  = 0.5
	swayStrength = 0.1
	swayPeriodX  = 800.0
	swayPeriodY  = 1200.0
)

type waveState struct {
	phase int
}

func (w *waveState) advance() {
	w.phase = (w.phase + wavePhaseStep) % len(amplitudes)
}

// amplitude returns the table value shift entries ahead of the phase, in -1..1
func (w waveState) amplitude(shift int) float64 {
	return amplitudes[(w.phase+shift)%len(amplitudes)] / 100
}

// stabilityFactor converts a 0-100 stat to a 0-1 damping factor
func stabilityFactor(value, fallback float64) float64 {
	if value == 0 {
		value = fallback
	}
	return clamp(value/100, 0, 1)
}

// waveOffset is the bobbing displacement for the current phase
func (v *Vehicle) waveOffset() r2.Vec {
	drift := v.def.DriftFactor
	if drift == 0 {
		drift = 1
	}
	lateral := stabilityFactor(v.def.Stability.Lateral, DefaultLateralStability)
	longitudinal := stabilityFactor(v.def.Stability.Longitudinal, DefaultLongitudinalStability)
	vertical := stabilityFactor(v.def.Stability.Vertical, DefaultVerticalStability)

	offset := r2.Vec{X: v.wave.amplitude(0) * drift * lateralWave * (1 - lateral)}
	pitch := v.wave.amplitude(pitchPhaseShift) * drift * pitchWave * (1 - longitudinal)
	offset = r2.Add(offset, r2.Scale(pitch*0.5, DirectionVector(v.direction)))
	offset.Y += v.wave.amplitude(heavePhaseShift) * drift * heaveWave * (1 - vertical)
	return offset
}

// ambientOffset is the push from the water the vehicle sits in: currents
// carry it along the flow heading, deep water sways it slowly
func (v *Vehicle) ambientOffset() r2.Vec {
	var offset r2.Vec
	switch v.category {
	case Current:
		if flow, ok := v.terrain.FlowAt(v.pos); ok {
			angle := float64(flow) / 255 * 2 * math.Pi
			offset.X += math.Sin(angle) * currentPush
			offset.Y -= math.Cos(angle) * currentPush
		}
	case Deep:
		ms := float64(v.clock.Now()) / float64(time.Millisecond)
		offset.X += math.Sin(ms/swayPeriodX) * swayStrength
		offset.Y += math.Cos(ms/swayPeriodY) * swayStrength * 0.5
	}
	return offset
}

// applyOverlay nudges a committed position with waves and water movement.
// The nudge is dropped for this tick if it would land somewhere impassable.
func (v *Vehicle) applyOverlay() {
	candidate := r2.Add(v.pos, r2.Add(v.waveOffset(), v.ambientOffset()))
	verdict := v.verdictAt(candidate)
	if !verdict.Passable {
		return
	}
	v.pos = candidate
	if verdict.Category != v.category {
		v.category = verdict.Category
		v.emit(Event{Type: EventTerrainEntered, Terrain: verdict.Category})
	}
}
