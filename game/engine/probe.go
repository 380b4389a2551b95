package engine

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// probeTurn looks ahead (or just behind when reversing) on both rotational
// sides. The first side that touches shore pushes the heading away from it
// and damps speed.
func (v *Vehicle) probeTurn() {
	reach := ProbeReachBehind
	if v.forwardBackward == 1 {
		reach = ProbeReachAhead + v.speed
	}
	for _, side := range [2]int{-1, 1} {
		probe := r2.Add(v.pos, r2.Scale(reach, DirectionVector(v.direction+side)))
		if v.terrain.CategoryAt(probe) != Shore {
			continue
		}
		v.SetDirection(v.direction - side)
		v.speed *= ProbeDamping
		if math.Abs(v.speed) < MinMoveSpeed {
			v.speed = 0
		}
		return
	}
}

// judge classifies p for this vehicle and updates the terrain speed
// modifier from the verdict. Shore leaves the modifier untouched.
func (v *Vehicle) judge(p r2.Vec) TerrainVerdict {
	verdict := v.verdictAt(p)
	if verdict.Passable || verdict.Restricted {
		v.terrainModifier = verdict.SpeedModifier
	}
	return verdict
}

// verdictAt classifies p without side effects
func (v *Vehicle) verdictAt(p r2.Vec) TerrainVerdict {
	return Passability(v.terrain.CategoryAt(p), v.def, v.soft)
}

// Probe reports the verdict for a point without moving the vehicle
func (v *Vehicle) Probe(p Position) TerrainVerdict {
	return v.verdictAt(p.Vec())
}
