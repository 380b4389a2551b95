package engine

import "gonum.org/v1/gonum/spatial/r2"

// Edge codes set when the clamp moves the vehicle back inside
const (
	BoundsNone   = 0
	BoundsLeft   = -1
	BoundsRight  = 1
	BoundsTop    = -2
	BoundsBottom = 2
)

// Playfield is the rectangle the vehicle is kept inside, inset by Margin
type Playfield struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Margin float64 `json:"margin" yaml:"margin"`
}

// DefaultPlayfield is a 640x480 screen with a 50 unit margin
var DefaultPlayfield = Playfield{Width: 640, Height: 480, Margin: 50}

// Center returns the middle of the playfield
func (p Playfield) Center() r2.Vec {
	return r2.Vec{X: p.Width / 2, Y: p.Height / 2}
}

// Contains reports whether pos lies inside the clamp rectangle
func (p Playfield) Contains(pos r2.Vec) bool {
	_, code := p.Clamp(pos)
	return code == BoundsNone
}

// Clamp pulls pos inside the margins. X is clamped before Y, so when both
// axes are out the vertical code wins.
func (p Playfield) Clamp(pos r2.Vec) (r2.Vec, int) {
	code := BoundsNone
	if pos.X < p.Margin {
		pos.X = p.Margin
		code = BoundsLeft
	} else if pos.X > p.Width-p.Margin {
		pos.X = p.Width - p.Margin
		code = BoundsRight
	}
	if pos.Y < p.Margin {
		pos.Y = p.Margin
		code = BoundsTop
	} else if pos.Y > p.Height-p.Margin {
		pos.Y = p.Height - p.Margin
		code = BoundsBottom
	}
	return pos, code
}

// clampToPlayfield keeps the vehicle inside and records the edge it hit.
// The out-of-bounds event fires only when the code changes to a new edge.
func (v *Vehicle) clampToPlayfield() {
	pos, code := v.playfield.Clamp(v.pos)
	v.pos = pos
	if code != BoundsNone && code != v.edge {
		v.edge = code
		v.emit(Event{Type: EventOutOfBounds, Edge: code})
		return
	}
	v.edge = code
}
