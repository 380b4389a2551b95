package engine

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestConfig is a 32x24 bay with land along the top row, mapped 20px per cell
func createTestConfig() *SimConfig {
	layout := make([]string, 24)
	for i := range layout {
		layout[i] = strings.Repeat("~", 32)
	}
	layout[0] = strings.Repeat("L", 32)
	layout[12] = strings.Repeat("~", 10) + strings.Repeat(">", 4) + strings.Repeat("~", 18)

	return &SimConfig{
		Name:        "test_bay",
		Description: "A small test bay",
		Playfield:   DefaultPlayfield,
		Mapping:     Mapping{Scale: 20},
		Layout:      layout,
		Vehicle: VehicleDefinition{
			Name:      "Tender",
			Kind:      Boat,
			Engine:    true,
			Oars:      2,
			Size:      SizeSmall,
			FuelTanks: 1,
		},
		Messages: Messages{
			Welcome:   "Welcome to the test bay",
			OutOfFuel: "Tank empty",
		},
	}
}

func TestValidateSimConfig(t *testing.T) {
	require.NoError(t, ValidateSimConfig(createTestConfig()))

	line := 16
	tests := []struct {
		name   string
		modify func(*SimConfig)
		errMsg string
	}{
		{"missing name", func(c *SimConfig) { c.Name = "" }, "name is required"},
		{"missing description", func(c *SimConfig) { c.Description = "" }, "description is required"},
		{"tick rate", func(c *SimConfig) { c.TickRate = 500 }, "tick_rate"},
		{"negative margin", func(c *SimConfig) { c.Playfield.Margin = -1 }, "margin"},
		{"tiny playfield", func(c *SimConfig) { c.Playfield = Playfield{Width: 80, Height: 80, Margin: 50} }, "no room"},
		{"topology and layout", func(c *SimConfig) { c.Topology = "sea.png" }, "mutually exclusive"},
		{"bad character", func(c *SimConfig) { c.Layout[3] = "?" + c.Layout[3][1:] }, "invalid character '?'"},
		{"ragged rows", func(c *SimConfig) { c.Layout[5] = "~~" }, "row 6"},
		{"legend range", func(c *SimConfig) { c.Legend = map[string]int{"~": 300} }, "between 0 and 255"},
		{"unknown edge", func(c *SimConfig) { c.SpawnEdge = "up" }, "spawn_edge"},
		{"spawn line", func(c *SimConfig) { c.SpawnLine = &line }, "spawn_line"},
		{"vehicle size", func(c *SimConfig) { c.Vehicle.Size = "huge" }, "vehicle.size"},
		{"negative oars", func(c *SimConfig) { c.Vehicle.Oars = -1 }, "must not be negative"},
		{"stability", func(c *SimConfig) { c.Vehicle.Stability.Vertical = 150 }, "stability.vertical"},
		{"energy over capacity", func(c *SimConfig) { c.Energy = &EnergyProfile{FuelMax: 10, Fuel: 20} }, "exceeds"},
		{"missing welcome", func(c *SimConfig) { c.Messages.Welcome = "" }, "messages.welcome"},
		{"propulsion message", func(c *SimConfig) { c.Messages.PropulsionChanged = "now %s" }, "two %s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createTestConfig()
			tt.modify(config)
			err := ValidateSimConfig(config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

const yamlScenario = `
name: yaml_bay
description: The same bay in YAML
mapping:
  scale: 20
layout:
  - "LL"
  - "~x"
vehicle:
  engine: true
  sail: true
  oars: 0
  size: medium
  durability: 3
  power: 100
  maneuverability: 5
  drift_factor: 1
  stability:
    lateral: 60
    longitudinal: 50
    vertical: 40
energy:
  fuel_max: 40
  fuel: 40
  fuel_rate: 0.05
messages:
  welcome: Ahoy
  out_of_fuel: Dry
`

const jsonScenario = `{
  "name": "yaml_bay",
  "description": "The same bay in YAML",
  "mapping": {"scale": 20},
  "layout": ["LL", "~x"],
  "vehicle": {
    "engine": true, "sail": true, "oars": 0, "size": "medium", "durability": 3,
    "power": 100, "maneuverability": 5, "drift_factor": 1,
    "stability": {"lateral": 60, "longitudinal": 50, "vertical": 40}
  },
  "energy": {"fuel_max": 40, "fuel": 40, "fuel_rate": 0.05},
  "messages": {"welcome": "Ahoy", "out_of_fuel": "Dry"}
}`

func TestDecodeSimConfig_JSONAndYAMLAgree(t *testing.T) {
	fromYAML, err := DecodeSimConfig([]byte(yamlScenario), "yaml")
	require.NoError(t, err)
	fromJSON, err := DecodeSimConfig([]byte(jsonScenario), ".json")
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromYAML)
	assert.Equal(t, DefaultTickRate, fromYAML.TickRate)
	assert.Equal(t, DefaultPlayfield, fromYAML.Playfield)
	assert.Equal(t, DefaultMessages.LowFuel, fromYAML.Messages.LowFuel)
	assert.Equal(t, "Ahoy", fromYAML.Messages.Welcome)
	assert.Equal(t, 40.0, fromYAML.Energy.FuelMax)
	assert.Equal(t, SizeMedium, fromYAML.Vehicle.Size)
}

func TestDecodeSimConfig_Errors(t *testing.T) {
	_, err := DecodeSimConfig([]byte(yamlScenario+"unknown_key: 1\n"), "yaml")
	assert.Error(t, err)

	_, err = DecodeSimConfig([]byte("{"), "json")
	assert.Error(t, err)

	_, err = DecodeSimConfig([]byte(jsonScenario), "toml")
	assert.Error(t, err)

	_, err = DecodeSimConfig([]byte(`{"name": "x"}`), "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "description is required")
}

func TestEncodeSimConfig_RoundTrip(t *testing.T) {
	config := createTestConfig()
	config.ApplyDefaults()

	for _, format := range []string{"json", "yaml"} {
		data, err := EncodeSimConfig(config, format)
		require.NoError(t, err, format)
		decoded, err := DecodeSimConfig(data, format)
		require.NoError(t, err, format)
		assert.Equal(t, config, decoded, format)
	}
}

func writeConfig(t *testing.T, dir, name string, config *SimConfig) {
	t.Helper()
	format := strings.TrimPrefix(filepath.Ext(name), ".")
	data, err := EncodeSimConfig(config, format)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestLoadConfigByName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "configs"), 0o755))
	t.Chdir(dir)

	bay := createTestConfig()
	writeConfig(t, filepath.Join(dir, "configs"), "bay.yaml", bay)

	harbour := createTestConfig()
	harbour.Name = "harbour"
	writeConfig(t, filepath.Join(dir, "configs"), "harbour.json", harbour)

	loaded, err := LoadConfigByName("bay")
	require.NoError(t, err)
	assert.Equal(t, "test_bay", loaded.Name)

	loaded, err = LoadConfigByName("harbour.json")
	require.NoError(t, err)
	assert.Equal(t, "harbour", loaded.Name)

	_, err = LoadConfigByName("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "broken.json"), []byte(`{"name": ""}`), 0o644))
	_, err = LoadConfigByName("broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config 'broken'")
}

func TestLoadSimConfig_ConfigDir(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "bay.json", createTestConfig())
	t.Setenv("CONFIG_DIR", dir)

	loaded, err := LoadSimConfig("configs/bay.json")
	require.NoError(t, err)
	assert.Equal(t, "test_bay", loaded.Name)
}

func TestBuildTerrain_Topology(t *testing.T) {
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.NRGBA{R: 25, A: 255})
		}
	}
	img.Set(3, 4, color.NRGBA{R: 250, A: 255})

	f, err := os.Create(filepath.Join(dir, "sea.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	config := createTestConfig()
	config.Layout = nil
	config.Topology = "sea.png"
	config.Mapping = Mapping{Scale: 1}

	terrain, err := BuildTerrain(config, dir)
	require.NoError(t, err)
	assert.Equal(t, Shore, terrain.CategoryAt(Position{X: 3, Y: 4}.Vec()))
	assert.Equal(t, Deep, terrain.CategoryAt(Position{X: 8, Y: 8}.Vec()))

	config.Topology = "missing.png"
	_, err = BuildTerrain(config, dir)
	assert.Error(t, err)
}

func TestBuildTerrain_OpenWater(t *testing.T) {
	config := createTestConfig()
	config.Layout = nil

	terrain, err := BuildTerrain(config, "")
	require.NoError(t, err)
	assert.Nil(t, terrain.Source())
	assert.Equal(t, Deep, terrain.CategoryAt(Position{X: 300, Y: 300}.Vec()))
}

func TestNewVehicleFromConfig(t *testing.T) {
	config := createTestConfig()
	config.SpawnEdge = "West"
	config.Energy = &EnergyProfile{FuelMax: 30, Fuel: 30, FuelRate: FuelRate}

	v, err := NewVehicleFromConfig(config, "")
	require.NoError(t, err)

	s := v.Status()
	assert.Equal(t, Position{X: 50, Y: 202}, s.Position)
	assert.Equal(t, NumDirections, s.Direction)
	assert.Equal(t, Deep, s.Terrain)
	assert.Equal(t, 30.0, s.FuelMax)
	assert.Equal(t, Motor, s.Propulsion)

	// the current band sits in row 12 under cells 10..13
	assert.Equal(t, Current, v.Terrain().CategoryAt(Position{X: 230, Y: 240}.Vec()))
	assert.Equal(t, Shore, v.Terrain().CategoryAt(Position{X: 300, Y: 4}.Vec()))

	line := 7
	config.SpawnLine = &line
	v, err = NewVehicleFromConfig(config, "")
	require.NoError(t, err)
	assert.Equal(t, Position{X: 320, Y: 50}, v.Status().Position, "spawn line above the playfield is clamped")
	assert.Equal(t, 4, v.Status().Direction)

	config.Vehicle.Size = "huge"
	_, err = NewVehicleFromConfig(config, "")
	assert.Error(t, err)
}

func TestDefaultSimConfig(t *testing.T) {
	config := DefaultSimConfig()
	require.NoError(t, ValidateSimConfig(config))

	v, err := NewVehicleFromConfig(config, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultPlayfield.Center(), v.Status().Position.Vec())
	assert.Equal(t, Deep, v.Status().Terrain)
}
