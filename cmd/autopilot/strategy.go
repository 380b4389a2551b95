package main

import (
	"context"
	"math"

	"github.com/wricardo/mcp-training/seadrive/game/engine"
	"github.com/wricardo/mcp-training/seadrive/game/service"
)

// Prober reports the terrain verdict for a point of the session's playfield
type Prober interface {
	Probe(ctx context.Context, pos engine.Position) (*service.ProbeResult, error)
}

// Pilot steers a vehicle towards a waypoint one step request at a time.
// Before committing to a heading it probes ahead and fans out to either
// side, preferring Bias (+1 clockwise, -1 anticlockwise) when both are open.
type Pilot struct {
	Target       engine.Position
	ArriveRadius float64
	Lookahead    float64
	MaxTicks     int
	Bias         int

	prober Prober
	// headings the last plan had to skip because the probe was blocked
	skipped int
}

// NewPilot creates a pilot with sensible distances for a 640x480 playfield
func NewPilot(target engine.Position, prober Prober) *Pilot {
	return &Pilot{
		Target:       target,
		ArriveRadius: 12,
		Lookahead:    30,
		MaxTicks:     30,
		Bias:         1,
		prober:       prober,
	}
}

// Arrived reports whether pos is within the arrival radius of the target
func (p *Pilot) Arrived(pos engine.Position) bool {
	return distance(pos, p.Target) <= p.ArriveRadius
}

// Skipped is the number of blocked headings the last Plan stepped over
func (p *Pilot) Skipped() int {
	return p.skipped
}

// Plan picks the input for the next step. The returned request always has
// StopOnEvent set so terrain changes hand control back quickly.
func (p *Pilot) Plan(ctx context.Context, status *service.VehicleStatus) (service.StepRequest, error) {
	pos := status.Position
	desired := bearingDirection(pos, p.Target)

	heading, err := p.openHeading(ctx, pos, desired)
	if err != nil {
		return service.StepRequest{}, err
	}

	req := service.StepRequest{Throttle: 1, StopOnEvent: true}
	delta := turnDelta(status.Direction, heading)
	switch {
	case delta > 0:
		req.Steer = 1
	case delta < 0:
		req.Steer = -1
	}

	if delta != 0 {
		// a notch takes a few ticks of held steering
		req.Ticks = 4 * abs(delta)
	} else {
		// cover most of the remaining distance at the current speed
		speed := math.Max(status.Speed, 1)
		req.Ticks = int(distance(pos, p.Target) / speed)
	}
	if abs(delta) > engine.NumDirections/4 {
		// turning hard, keep the speed down
		req.Throttle = 0
	}
	req.Ticks = clampTicks(req.Ticks, p.MaxTicks)
	return req, nil
}

// openHeading returns desired when the water ahead is passable, otherwise
// the nearest passable heading fanning out to the bias side first
func (p *Pilot) openHeading(ctx context.Context, pos engine.Position, desired int) (int, error) {
	p.skipped = 0
	bias := 1
	if p.Bias < 0 {
		bias = -1
	}
	for offset := 0; offset <= engine.NumDirections/2; offset++ {
		candidates := []int{desired + bias*offset, desired - bias*offset}
		if offset == 0 {
			candidates = candidates[:1]
		}
		for _, dir := range candidates {
			dir = engine.NormalizeDirection(dir)
			ahead := lookahead(pos, dir, p.Lookahead)
			result, err := p.prober.Probe(ctx, ahead)
			if err != nil {
				return 0, err
			}
			if result.Verdict.Passable {
				return dir, nil
			}
			p.skipped++
		}
	}
	// boxed in: keep pointing at the target and let the step report the block
	return desired, nil
}

// bearingDirection returns the direction index whose heading points most
// directly from one position to another
func bearingDirection(from, to engine.Position) int {
	dx, dy := to.X-from.X, to.Y-from.Y
	best, bestDot := engine.NumDirections, math.Inf(-1)
	for i := 1; i <= engine.NumDirections; i++ {
		h := engine.DirectionVector(i)
		if dot := h.X*dx + h.Y*dy; dot > bestDot {
			best, bestDot = i, dot
		}
	}
	return best
}

// turnDelta is the signed number of notches from current to desired,
// positive clockwise, in [-8, 8)
func turnDelta(current, desired int) int {
	d := (engine.NormalizeDirection(desired) - engine.NormalizeDirection(current)) % engine.NumDirections
	if d < -engine.NumDirections/2 {
		d += engine.NumDirections
	}
	if d >= engine.NumDirections/2 {
		d -= engine.NumDirections
	}
	return d
}

func lookahead(pos engine.Position, direction int, dist float64) engine.Position {
	h := engine.DirectionVector(direction)
	return engine.Position{X: pos.X + h.X*dist, Y: pos.Y + h.Y*dist}
}

func distance(a, b engine.Position) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func clampTicks(ticks, limit int) int {
	if ticks < 1 {
		return 1
	}
	if limit > 0 && ticks > limit {
		return limit
	}
	return ticks
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
