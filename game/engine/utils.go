package engine

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// TerrainHistogram counts bitmap pixels per terrain category
func TerrainHistogram(source TerrainSource) map[TerrainCategory]int {
	counts := make(map[TerrainCategory]int)
	if source == nil {
		return counts
	}
	w, h := source.Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			counts[Classify(source.Sample(x, y))]++
		}
	}
	return counts
}

// PassableFraction returns the share of pixels def may enter
func PassableFraction(source TerrainSource, def VehicleDefinition) float64 {
	if source == nil {
		return 1
	}
	w, h := source.Size()
	if w*h == 0 {
		return 0
	}
	passable := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if Passability(Classify(source.Sample(x, y)), def, false).Passable {
				passable++
			}
		}
	}
	return float64(passable) / float64(w*h)
}

// DistanceToCategory walks outwards from pos along the current heading and
// returns how far away the first point of category c lies, up to limit
func (v *Vehicle) DistanceToCategory(c TerrainCategory, limit float64) (float64, bool) {
	heading := DirectionVector(v.direction)
	for d := 1.0; d <= limit; d++ {
		if v.terrain.CategoryAt(r2.Add(v.pos, r2.Scale(d, heading))) == c {
			return d, true
		}
	}
	return 0, false
}

// AnalyzeFuelRisk summarises how close the vehicle is to losing propulsion
func AnalyzeFuelRisk(s Status) string {
	switch s.Propulsion {
	case Motor:
		if s.Fuel <= 0 {
			return "CRITICAL: Fuel empty!"
		}
		if s.FuelPercent <= LowResourceThreshold*100 {
			return "DANGER: Low fuel, refuel soon"
		}
		if s.FuelPercent <= 50 {
			return "CAUTION: Fuel below half"
		}
		return "SAFE: Fuel sufficient"
	case Oar:
		if s.StaminaPercent <= LowResourceThreshold*100 {
			return "CAUTION: Rowers tiring"
		}
		return "SAFE: Stamina sufficient"
	case Resting:
		return fmt.Sprintf("RESTING: Stamina %.0f%%, rowing resumes above %.0f%%", s.StaminaPercent, RestingResumeFraction*100)
	case Sail:
		return "SAFE: Sailing needs no fuel"
	}
	return "ADRIFT: No propulsion available"
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sqrt(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

// percent reports an empty pool as full, so vehicles without tanks or oars read 100
func percent(v, capacity float64) float64 {
	if capacity <= 0 {
		return 100
	}
	return v / capacity * 100
}

func signf(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
