package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SimConfig is a scenario file: the playfield, its terrain and the vehicle
type SimConfig struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Playfield   Playfield         `json:"playfield" yaml:"playfield"`
	Mapping     Mapping           `json:"mapping" yaml:"mapping"`
	Topology    string            `json:"topology,omitempty" yaml:"topology,omitempty"`
	Layout      []string          `json:"layout,omitempty" yaml:"layout,omitempty"`
	Legend      map[string]int    `json:"legend,omitempty" yaml:"legend,omitempty"`
	Flow        map[string]int    `json:"flow,omitempty" yaml:"flow,omitempty"`
	CellSize    int               `json:"cell_size,omitempty" yaml:"cell_size,omitempty"`
	SpawnEdge   string            `json:"spawn_edge,omitempty" yaml:"spawn_edge,omitempty"`
	SpawnLine   *int              `json:"spawn_line,omitempty" yaml:"spawn_line,omitempty"`
	TickRate    int               `json:"tick_rate,omitempty" yaml:"tick_rate,omitempty"`
	SoftTerrain bool              `json:"soft_terrain,omitempty" yaml:"soft_terrain,omitempty"`
	Vehicle     VehicleDefinition `json:"vehicle" yaml:"vehicle"`
	Energy      *EnergyProfile    `json:"energy,omitempty" yaml:"energy,omitempty"`
	Messages    Messages          `json:"messages" yaml:"messages"`
}

// Messages are the player-facing texts attached to events
type Messages struct {
	Welcome           string `json:"welcome" yaml:"welcome"`
	OutOfFuel         string `json:"out_of_fuel" yaml:"out_of_fuel"`
	LowFuel           string `json:"low_fuel,omitempty" yaml:"low_fuel,omitempty"`
	LowStamina        string `json:"low_stamina,omitempty" yaml:"low_stamina,omitempty"`
	PropulsionChanged string `json:"propulsion_changed,omitempty" yaml:"propulsion_changed,omitempty"`
	TerrainEntered    string `json:"terrain_entered,omitempty" yaml:"terrain_entered,omitempty"`
	TerrainBlocked    string `json:"terrain_blocked,omitempty" yaml:"terrain_blocked,omitempty"`
	OutOfBounds       string `json:"out_of_bounds,omitempty" yaml:"out_of_bounds,omitempty"`
}

// DefaultMessages fill in any message a scenario leaves empty
var DefaultMessages = Messages{
	Welcome:           "Welcome aboard! Steer with the rudder and mind the shallows.",
	OutOfFuel:         "Out of fuel! The engine has stopped.",
	LowFuel:           "Low fuel: %.0f%% left",
	LowStamina:        "The rowers are tiring: %.0f%% stamina left",
	PropulsionChanged: "Propulsion changed from %s to %s",
	TerrainEntered:    "Entered %s water",
	TerrainBlocked:    "Blocked by %s",
	OutOfBounds:       "Reached the edge of the map",
}

// DefaultLegend maps layout characters to topology samples
var DefaultLegend = map[string]int{
	"~": 25,  // deep
	"-": 75,  // medium
	".": 125, // shallow
	"x": 180, // reef
	">": 210, // currents
	"<": 210,
	"^": 210,
	"v": 210,
	"L": 250, // land
}

// DefaultFlow gives the current characters their heading
var DefaultFlow = map[string]int{
	"^": 0,
	">": 64,
	"v": 128,
	"<": 191,
}

// ValidateSimConfig checks a scenario for consistency
func ValidateSimConfig(config *SimConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	if config.TickRate < 0 || config.TickRate > MaxTickRate {
		return fmt.Errorf("config validation: tick_rate must be between 1 and %d, got %d", MaxTickRate, config.TickRate)
	}

	pf := config.Playfield
	if pf.Margin < 0 {
		return fmt.Errorf("config validation: playfield.margin must not be negative, got %g", pf.Margin)
	}
	if pf.Width != 0 || pf.Height != 0 {
		if pf.Width <= 2*pf.Margin || pf.Height <= 2*pf.Margin {
			return fmt.Errorf("config validation: playfield %gx%g leaves no room inside margin %g", pf.Width, pf.Height, pf.Margin)
		}
	}
	if config.Mapping.Scale < 0 {
		return fmt.Errorf("config validation: mapping.scale must be positive, got %g", config.Mapping.Scale)
	}

	if config.Topology != "" && len(config.Layout) > 0 {
		return fmt.Errorf("config validation: topology and layout are mutually exclusive")
	}
	if len(config.Layout) > 0 {
		if err := validateLayout(config); err != nil {
			return err
		}
	}

	if config.SpawnEdge != "" {
		if _, ok := ParseEdge(config.SpawnEdge); !ok {
			return fmt.Errorf("config validation: unknown spawn_edge '%s'", config.SpawnEdge)
		}
	}
	if config.SpawnLine != nil && (*config.SpawnLine < 0 || *config.SpawnLine >= NumDirections) {
		return fmt.Errorf("config validation: spawn_line must be between 0 and %d, got %d", NumDirections-1, *config.SpawnLine)
	}

	if err := validateVehicle(config.Vehicle); err != nil {
		return err
	}

	if config.Energy != nil {
		e := config.Energy
		if e.FuelMax < 0 || e.Fuel < 0 || e.FuelRate < 0 || e.StaminaMax < 0 || e.Stamina < 0 || e.StaminaRate < 0 || e.StaminaRecovery < 0 {
			return fmt.Errorf("config validation: energy values must not be negative")
		}
		if e.Fuel > e.FuelMax {
			return fmt.Errorf("config validation: energy.fuel (%g) exceeds energy.fuel_max (%g)", e.Fuel, e.FuelMax)
		}
		if e.Stamina > e.StaminaMax {
			return fmt.Errorf("config validation: energy.stamina (%g) exceeds energy.stamina_max (%g)", e.Stamina, e.StaminaMax)
		}
	}

	if config.Messages.Welcome == "" {
		return fmt.Errorf("config validation: messages.welcome is required")
	}
	if config.Messages.OutOfFuel == "" {
		return fmt.Errorf("config validation: messages.out_of_fuel is required")
	}
	if m := config.Messages.PropulsionChanged; m != "" && strings.Count(m, "%s") != 2 {
		return fmt.Errorf("config validation: messages.propulsion_changed must contain two %%s for the propulsion names")
	}
	if m := config.Messages.TerrainBlocked; m != "" && !strings.Contains(m, "%s") {
		return fmt.Errorf("config validation: messages.terrain_blocked must contain %%s for the terrain name")
	}

	return nil
}

func validateLayout(config *SimConfig) error {
	if config.CellSize < 0 {
		return fmt.Errorf("config validation: cell_size must be positive, got %d", config.CellSize)
	}
	legend := config.legend()
	for key, value := range legend {
		if len([]rune(key)) != 1 {
			return fmt.Errorf("config validation: legend key '%s' must be a single character", key)
		}
		if value < 0 || value > 255 {
			return fmt.Errorf("config validation: legend['%s'] must be between 0 and 255, got %d", key, value)
		}
	}
	for key, value := range config.Flow {
		if value < 0 || value > 255 {
			return fmt.Errorf("config validation: flow['%s'] must be between 0 and 255, got %d", key, value)
		}
	}

	width := len([]rune(config.Layout[0]))
	if width == 0 {
		return fmt.Errorf("config validation: layout rows must not be empty")
	}
	for i, row := range config.Layout {
		runes := []rune(row)
		if len(runes) != width {
			return fmt.Errorf("config validation: row %d must have %d characters, got %d", i+1, width, len(runes))
		}
		for j, char := range runes {
			if _, ok := legend[string(char)]; !ok {
				return fmt.Errorf("config validation: invalid character '%c' at row %d, col %d", char, i+1, j+1)
			}
		}
	}
	return nil
}

func validateVehicle(def VehicleDefinition) error {
	switch def.Size {
	case "", SizeSmall, SizeMedium, SizeLarge:
	default:
		return fmt.Errorf("config validation: vehicle.size must be small, medium or large, got '%s'", def.Size)
	}
	switch def.Kind {
	case "", Boat, Car:
	default:
		return fmt.Errorf("config validation: vehicle.kind must be boat or car, got '%s'", def.Kind)
	}
	if def.Oars < 0 || def.Durability < 0 || def.FuelTanks < 0 {
		return fmt.Errorf("config validation: vehicle oars, durability and fuel_tanks must not be negative")
	}
	if def.Power < 0 || def.Maneuverability < 0 || def.DriftFactor < 0 {
		return fmt.Errorf("config validation: vehicle power, maneuverability and drift_factor must not be negative")
	}
	for name, v := range map[string]float64{
		"lateral":      def.Stability.Lateral,
		"longitudinal": def.Stability.Longitudinal,
		"vertical":     def.Stability.Vertical,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("config validation: vehicle.stability.%s must be between 0 and 100, got %g", name, v)
		}
	}
	return nil
}

func (c *SimConfig) legend() map[string]int {
	if len(c.Legend) > 0 {
		return c.Legend
	}
	return DefaultLegend
}

func (c *SimConfig) flow() map[string]int {
	if len(c.Flow) > 0 {
		return c.Flow
	}
	return DefaultFlow
}

// ApplyDefaults fills zero-valued settings with their defaults
func (c *SimConfig) ApplyDefaults() {
	if c.TickRate == 0 {
		c.TickRate = DefaultTickRate
	}
	if c.Playfield == (Playfield{}) {
		c.Playfield = DefaultPlayfield
	}
	if c.Mapping == (Mapping{}) {
		c.Mapping = DefaultMapping
	}
	if c.CellSize == 0 {
		c.CellSize = 1
	}
	m, d := &c.Messages, DefaultMessages
	orDefault(&m.Welcome, d.Welcome)
	orDefault(&m.OutOfFuel, d.OutOfFuel)
	orDefault(&m.LowFuel, d.LowFuel)
	orDefault(&m.LowStamina, d.LowStamina)
	orDefault(&m.PropulsionChanged, d.PropulsionChanged)
	orDefault(&m.TerrainEntered, d.TerrainEntered)
	orDefault(&m.TerrainBlocked, d.TerrainBlocked)
	orDefault(&m.OutOfBounds, d.OutOfBounds)
}

func orDefault(dst *string, src string) {
	if *dst == "" {
		*dst = src
	}
}

// DecodeSimConfig parses a scenario in the given format ("json" or "yaml")
// and validates it
func DecodeSimConfig(data []byte, format string) (*SimConfig, error) {
	var config SimConfig
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&config); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format '%s'", format)
	}
	if err := ValidateSimConfig(&config); err != nil {
		return nil, err
	}
	config.ApplyDefaults()
	return &config, nil
}

// EncodeSimConfig serialises a scenario in the given format
func EncodeSimConfig(config *SimConfig, format string) ([]byte, error) {
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "json":
		return json.MarshalIndent(config, "", "  ")
	case "yaml", "yml":
		return yaml.Marshal(config)
	}
	return nil, fmt.Errorf("unsupported config format '%s'", format)
}

// LoadSimConfig loads a scenario from a .json, .yaml or .yml file
func LoadSimConfig(filename string) (*SimConfig, error) {
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	return DecodeSimConfig(data, filepath.Ext(configPath))
}

// ConfigExtensions are the scenario file extensions tried in order
var ConfigExtensions = []string{".json", ".yaml", ".yml"}

// LoadConfigByName loads a scenario by name from the configs directory
func LoadConfigByName(configName string) (*SimConfig, error) {
	for _, ext := range ConfigExtensions {
		if strings.HasSuffix(configName, ext) {
			configName = strings.TrimSuffix(configName, ext)
			break
		}
	}

	for _, ext := range ConfigExtensions {
		configPath := filepath.Join("configs", configName+ext)
		if _, err := os.Stat(configPath); err != nil {
			continue
		}
		config, err := LoadSimConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config '%s': %w", configName, err)
		}
		return config, nil
	}
	return nil, fmt.Errorf("config file '%s' not found", configName)
}

// BuildTerrain creates the terrain sampler described by config. Topology
// paths are resolved against baseDir. A config with neither topology nor
// layout is open water.
func BuildTerrain(config *SimConfig, baseDir string) (*Terrain, error) {
	mapping := config.Mapping
	if mapping == (Mapping{}) {
		mapping = DefaultMapping
	}

	switch {
	case config.Topology != "":
		path := config.Topology
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open topology: %w", err)
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode topology %s: %w", config.Topology, err)
		}
		return NewTerrain(BitmapFromImage(img), mapping), nil
	case len(config.Layout) > 0:
		bitmap, err := BitmapFromLayout(config.Layout, config.legend(), config.flow(), config.CellSize)
		if err != nil {
			return nil, err
		}
		return NewTerrain(bitmap, mapping), nil
	}
	return NewTerrain(nil, mapping), nil
}

// BitmapFromLayout expands each layout character into a cellSize square
func BitmapFromLayout(layout []string, legend, flow map[string]int, cellSize int) (*Bitmap, error) {
	if len(layout) == 0 {
		return nil, fmt.Errorf("layout is empty")
	}
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := len([]rune(layout[0]))
	b := NewBitmap(cols*cellSize, len(layout)*cellSize, 0)
	for row, line := range layout {
		runes := []rune(line)
		if len(runes) != cols {
			return nil, fmt.Errorf("layout row %d has %d characters, want %d", row+1, len(runes), cols)
		}
		for col, char := range runes {
			sample, ok := legend[string(char)]
			if !ok {
				return nil, fmt.Errorf("layout character '%c' at row %d, col %d has no legend entry", char, row+1, col+1)
			}
			heading := flow[string(char)]
			x0, y0 := col*cellSize, row*cellSize
			for y := y0; y < y0+cellSize; y++ {
				for x := x0; x < x0+cellSize; x++ {
					b.Set(x, y, uint8(sample))
					b.SetFlow(x, y, uint8(heading))
				}
			}
		}
	}
	return b, nil
}

// NewVehicleFromConfig validates config, builds its terrain and spawns the
// vehicle. Options are applied after the ones derived from config.
func NewVehicleFromConfig(config *SimConfig, baseDir string, opts ...Option) (*Vehicle, error) {
	if err := ValidateSimConfig(config); err != nil {
		return nil, err
	}
	config.ApplyDefaults()

	terrain, err := BuildTerrain(config, baseDir)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithPlayfield(config.Playfield),
		WithSoftTerrain(config.SoftTerrain),
		WithTickRate(config.TickRate),
	}
	if config.Energy != nil {
		base = append(base, WithEnergy(*config.Energy))
	}
	v := NewVehicle(config.Vehicle, terrain, append(base, opts...)...)

	switch {
	case config.SpawnLine != nil:
		v.SpawnAtLine(*config.SpawnLine)
	case config.SpawnEdge != "":
		v.SpawnAtEdge(Edge(config.SpawnEdge))
	}
	return v, nil
}

// DefaultSimConfig is an open sea with a motor boat, used when no scenario is given
func DefaultSimConfig() *SimConfig {
	config := &SimConfig{
		Name:        "open_sea",
		Description: "Open water with no obstacles",
		Vehicle: VehicleDefinition{
			Name:            "Dinghy",
			Kind:            Boat,
			Engine:          true,
			Oars:            2,
			Size:            SizeSmall,
			Durability:      2,
			FuelTanks:       2,
			Power:           100,
			Maneuverability: 5,
			DriftFactor:     1,
		},
		Messages: DefaultMessages,
	}
	config.ApplyDefaults()
	return config
}
