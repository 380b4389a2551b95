package engine

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	// ShoreSample is returned for any point outside the bitmap
	ShoreSample uint8 = 240
	// OpenWaterSample is returned when no topology is loaded at all
	OpenWaterSample uint8 = 25

	reefBlockedCap    = 0.1
	shallowBlockedCap = 0.2
)

// TerrainSource is a single-channel passability bitmap
type TerrainSource interface {
	Size() (width, height int)
	Sample(x, y int) uint8
}

// FlowSource is implemented by sources that also carry a current heading channel
type FlowSource interface {
	Flow(x, y int) uint8
}

type terrainBand struct {
	min, max uint8
	category TerrainCategory
	speed    float64
}

// Bands are ordered by sample value. Samples in the gaps between them
// (151-159, 221-239) classify as medium water.
var terrainBands = []terrainBand{
	{0, 50, Deep, 1.0},
	{51, 100, Medium, 0.9},
	{101, 150, Shallow, 0.5},
	{160, 200, Reef, 0.3},
	{201, 220, Current, 0.7},
	{240, 255, Shore, 0},
}

// Classify maps one sample byte to its terrain category
func Classify(v uint8) TerrainCategory {
	for _, b := range terrainBands {
		if v >= b.min && v <= b.max {
			return b.category
		}
	}
	return Medium
}

// SpeedMultiplier returns the base speed multiplier for a category
func SpeedMultiplier(c TerrainCategory) float64 {
	for _, b := range terrainBands {
		if b.category == c {
			return b.speed
		}
	}
	return 0
}

// Categories lists every terrain category from deepest to shore
func Categories() []TerrainCategory {
	out := make([]TerrainCategory, 0, len(terrainBands))
	for _, b := range terrainBands {
		out = append(out, b.category)
	}
	return out
}

// TerrainVerdict is the outcome of checking a point against a vehicle
type TerrainVerdict struct {
	Category      TerrainCategory `json:"category"`
	Passable      bool            `json:"passable"`
	SpeedModifier float64         `json:"speed_modifier"`
	// Restricted is set when a conditional check failed, whether or not
	// it ended up blocking
	Restricted bool `json:"restricted,omitempty"`
}

// Passability decides whether def may occupy terrain of category c.
// With soft set, failing the reef or shallow check only caps speed.
func Passability(c TerrainCategory, def VehicleDefinition, soft bool) TerrainVerdict {
	switch c {
	case Shore:
		return TerrainVerdict{Category: c}
	case Reef:
		if def.CanCrossReef() {
			return TerrainVerdict{Category: c, Passable: true, SpeedModifier: SpeedMultiplier(c)}
		}
		return TerrainVerdict{Category: c, Passable: soft, SpeedModifier: reefBlockedCap, Restricted: true}
	case Shallow:
		if def.CanEnterShallows() {
			return TerrainVerdict{Category: c, Passable: true, SpeedModifier: SpeedMultiplier(c)}
		}
		return TerrainVerdict{Category: c, Passable: soft, SpeedModifier: shallowBlockedCap, Restricted: true}
	}
	return TerrainVerdict{Category: c, Passable: true, SpeedModifier: SpeedMultiplier(c)}
}

// Mapping converts playfield coordinates to bitmap pixels
type Mapping struct {
	OffsetX float64 `json:"offset_x" yaml:"offset_x"`
	OffsetY float64 `json:"offset_y" yaml:"offset_y"`
	Scale   float64 `json:"scale" yaml:"scale"`
}

// DefaultMapping matches a bitmap drawn at half resolution
var DefaultMapping = Mapping{OffsetX: 4, OffsetY: 2, Scale: 2}

// ToBitmap returns the pixel covering p
func (m Mapping) ToBitmap(p r2.Vec) (int, int) {
	scale := m.Scale
	if scale <= 0 {
		scale = DefaultMapping.Scale
	}
	return int(math.Round((p.X - m.OffsetX) / scale)), int(math.Round((p.Y - m.OffsetY) / scale))
}

// Terrain samples a TerrainSource through a Mapping. A nil source is open water.
type Terrain struct {
	source  TerrainSource
	mapping Mapping
}

// NewTerrain creates a terrain sampler
func NewTerrain(source TerrainSource, mapping Mapping) *Terrain {
	if b, ok := source.(*Bitmap); ok && b == nil {
		source = nil
	}
	return &Terrain{source: source, mapping: mapping}
}

// Source returns the underlying bitmap, nil for open water
func (t *Terrain) Source() TerrainSource {
	return t.source
}

// Mapping returns the coordinate mapping in use
func (t *Terrain) Mapping() Mapping {
	return t.mapping
}

// SampleAt returns the raw byte at playfield point p
func (t *Terrain) SampleAt(p r2.Vec) uint8 {
	if t == nil || t.source == nil {
		return OpenWaterSample
	}
	x, y := t.mapping.ToBitmap(p)
	w, h := t.source.Size()
	if x < 0 || y < 0 || x >= w || y >= h {
		return ShoreSample
	}
	return t.source.Sample(x, y)
}

// FlowAt returns the current heading byte at p if the source carries one
func (t *Terrain) FlowAt(p r2.Vec) (uint8, bool) {
	if t == nil || t.source == nil {
		return 0, false
	}
	fs, ok := t.source.(FlowSource)
	if !ok {
		return 0, false
	}
	x, y := t.mapping.ToBitmap(p)
	w, h := t.source.Size()
	if x < 0 || y < 0 || x >= w || y >= h {
		return 0, false
	}
	return fs.Flow(x, y), true
}

// CategoryAt classifies the sample at p
func (t *Terrain) CategoryAt(p r2.Vec) TerrainCategory {
	return Classify(t.SampleAt(p))
}

// Bitmap is an in-memory TerrainSource with an optional flow channel
type Bitmap struct {
	width, height int
	terrain       []uint8
	flow          []uint8
}

// NewBitmap creates a bitmap filled with fill
func NewBitmap(width, height int, fill uint8) *Bitmap {
	b := &Bitmap{
		width:   width,
		height:  height,
		terrain: make([]uint8, width*height),
		flow:    make([]uint8, width*height),
	}
	if fill != 0 {
		for i := range b.terrain {
			b.terrain[i] = fill
		}
	}
	return b
}

// BitmapFromImage reads terrain from the red channel and flow from the green channel
func BitmapFromImage(img image.Image) *Bitmap {
	bounds := img.Bounds()
	b := NewBitmap(bounds.Dx(), bounds.Dy(), 0)
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			r, g, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			b.terrain[y*b.width+x] = uint8(r >> 8)
			b.flow[y*b.width+x] = uint8(g >> 8)
		}
	}
	return b
}

// Size implements TerrainSource
func (b *Bitmap) Size() (int, int) {
	return b.width, b.height
}

// Sample implements TerrainSource
func (b *Bitmap) Sample(x, y int) uint8 {
	if !b.inside(x, y) {
		return ShoreSample
	}
	return b.terrain[y*b.width+x]
}

// Flow implements FlowSource
func (b *Bitmap) Flow(x, y int) uint8 {
	if !b.inside(x, y) {
		return 0
	}
	return b.flow[y*b.width+x]
}

// Set writes a terrain sample
func (b *Bitmap) Set(x, y int, v uint8) {
	if b.inside(x, y) {
		b.terrain[y*b.width+x] = v
	}
}

// SetFlow writes a current heading sample
func (b *Bitmap) SetFlow(x, y int, v uint8) {
	if b.inside(x, y) {
		b.flow[y*b.width+x] = v
	}
}

// FillRect writes v over the rectangle [x0,x1) x [y0,y1)
func (b *Bitmap) FillRect(x0, y0, x1, y1 int, v uint8) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			b.Set(x, y, v)
		}
	}
}

func (b *Bitmap) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.width && y < b.height
}

// String summarises the bitmap for logs
func (b *Bitmap) String() string {
	return fmt.Sprintf("bitmap %dx%d", b.width, b.height)
}
