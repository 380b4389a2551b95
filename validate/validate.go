// Command validate provides a small CLI that validates scenario files in the
// ../configs directory. It checks:
//   - JSON/YAML structure and the scenario rules enforced at load time
//   - Terrain: the topology bitmap or layout builds
//   - Spawn: the vehicle starts on water it is allowed to occupy
//   - Connectivity: how much navigable water is reachable from the spawn
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/mcp-training/seadrive/game/engine"
)

// gridStep is the playfield distance between connectivity samples
const gridStep = 8.0

// minReachableCells is the smallest reachable area, in samples, a spawn
// needs before the vehicle is considered trapped
const minReachableCells = 4

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single scenario file. Topology paths
// are resolved against baseDir.
func validateConfig(filePath, baseDir string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	config, err := engine.DecodeSimConfig(data, filepath.Ext(filePath))
	if err != nil {
		result.fail("Invalid scenario: %v", err)
		return result
	}

	vehicle, err := engine.NewVehicleFromConfig(config, baseDir)
	if err != nil {
		result.fail("Failed to build terrain: %v", err)
		return result
	}
	defer vehicle.Close()

	status := vehicle.Status()
	spawn := vehicle.Probe(status.Position)
	if !spawn.Passable {
		result.fail("Spawn at (%.0f,%.0f) is on %s, which %s cannot enter",
			status.Position.X, status.Position.Y, spawn.Category, vehicleName(config))
	}

	if result.Valid {
		conn := validateConnectivity(vehicle, status.Position)
		result.Valid = conn.Valid
		result.Errors = append(result.Errors, conn.Errors...)
	}

	if result.Valid {
		result.info("Name: %s", config.Name)
		result.info("Vehicle: %s (%s)", vehicleName(config), config.Vehicle.Kind)
		if config.Topology != "" {
			result.info("Terrain: topology %s", config.Topology)
		} else if len(config.Layout) > 0 {
			result.info("Terrain: %dx%d layout, cell size %d", len([]rune(config.Layout[0])), len(config.Layout), config.CellSize)
		} else {
			result.info("Terrain: open water")
		}
		result.info("Spawn: (%.0f,%.0f) facing %s on %s",
			status.Position.X, status.Position.Y, engine.DirectionName(status.Direction), spawn.Category)
		result.info("Fuel: %.0f/%.0f", status.Fuel, status.FuelMax)
	}

	return result
}

func vehicleName(config *engine.SimConfig) string {
	if config.Vehicle.Name != "" {
		return config.Vehicle.Name
	}
	return "the vehicle"
}

type cell struct{ x, y int }

// validateConnectivity flood fills a grid of playfield samples from the
// spawn using 4-directional moves over cells the vehicle may enter. A spawn
// that reaches fewer than minReachableCells samples is reported as trapped.
func validateConnectivity(v *engine.Vehicle, start engine.Position) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	pf := v.Playfield()
	cols := int((pf.Width-2*pf.Margin)/gridStep) + 1
	rows := int((pf.Height-2*pf.Margin)/gridStep) + 1
	if cols <= 0 || rows <= 0 {
		result.fail("Cannot validate connectivity: playfield has no interior")
		return result
	}

	toPos := func(c cell) engine.Position {
		return engine.Position{X: pf.Margin + float64(c.x)*gridStep, Y: pf.Margin + float64(c.y)*gridStep}
	}
	passable := make([][]bool, rows)
	navigable := 0
	for y := range passable {
		passable[y] = make([]bool, cols)
		for x := range passable[y] {
			passable[y][x] = v.Probe(toPos(cell{x, y})).Passable
			if passable[y][x] {
				navigable++
			}
		}
	}

	origin := cell{
		x: clampIndex(int((start.X-pf.Margin)/gridStep+0.5), cols),
		y: clampIndex(int((start.Y-pf.Margin)/gridStep+0.5), rows),
	}
	if !passable[origin.y][origin.x] {
		result.fail("Spawn sample (%.0f,%.0f) is not navigable", toPos(origin).X, toPos(origin).Y)
		return result
	}

	visited := map[cell]bool{origin: true}
	queue := []cell{origin}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, d := range []cell{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			next := cell{current.x + d.x, current.y + d.y}
			if next.x < 0 || next.y < 0 || next.x >= cols || next.y >= rows {
				continue
			}
			if visited[next] || !passable[next.y][next.x] {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}

	reachable := len(visited)
	if reachable < minReachableCells {
		result.fail("Connectivity failure: spawn is enclosed, only %d samples reachable", reachable)
		return result
	}

	pct := 100 * float64(reachable) / float64(navigable)
	result.info("Connectivity: %d/%d navigable samples reachable from spawn (%.0f%%)", reachable, navigable, pct)
	if reachable < navigable {
		result.Errors = append(result.Errors, fmt.Sprintf("! %d navigable samples are cut off from the spawn", navigable-reachable))
	}
	return result
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// scenarioFiles lists .json, .yaml and .yml files in dir
func scenarioFiles(dir string) ([]string, error) {
	var files []string
	for _, ext := range engine.ConfigExtensions {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// main scans ../configs (or the directory given as the first argument) and
// validates each scenario, printing a concise report and exiting with
// non-zero status if any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, err := scenarioFiles(configDir)
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No scenario files found in %s\n", configDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file, configDir)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All scenarios are valid!")
	} else {
		fmt.Println("❌ Some scenarios have errors")
		os.Exit(1)
	}
}
