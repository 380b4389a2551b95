// Command analyze prints quick, human-readable heuristics about scenario
// files in the configs directory. It summarizes the playfield, the vehicle,
// a histogram of terrain categories over the playfield, how much of it the
// vehicle can actually navigate, and which spawn lines drop it onto water
// it cannot leave. With --csv it prints one summary row per scenario.
package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/seadrive/game/engine"
	"gonum.org/v1/gonum/spatial/r2"
)

// sampleStep is the playfield distance between two analysis samples
const sampleStep = 4.0

// SpawnReport describes where one spawn line puts the vehicle
type SpawnReport struct {
	Index     int
	Position  engine.Position
	Direction string
	Verdict   engine.TerrainVerdict
}

// Analysis is the result for one scenario
type Analysis struct {
	Name        string
	Vehicle     string
	Kind        engine.VehicleKind
	Playfield   engine.Playfield
	Samples     int
	Histogram   map[engine.TerrainCategory]int
	Passable    int
	Restricted  int
	Spawns      []SpawnReport
	ChosenSpawn int // -1 when the scenario spawns at the centre
}

// PassableFraction is the share of the playfield the vehicle may enter
func (a *Analysis) PassableFraction() float64 {
	if a.Samples == 0 {
		return 0
	}
	return float64(a.Passable) / float64(a.Samples)
}

// BlockedSpawns lists spawn lines landing on impassable terrain
func (a *Analysis) BlockedSpawns() []SpawnReport {
	var out []SpawnReport
	for _, s := range a.Spawns {
		if !s.Verdict.Passable {
			out = append(out, s)
		}
	}
	return out
}

func main() {
	cmd := &cli.Command{
		Name:      "analyze",
		Usage:     "Summarize terrain and spawn lines of scenario files",
		ArgsUsage: "[configs-dir]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "csv", Usage: "Print one CSV summary row per scenario"},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	dir := "configs"
	if cmd.Args().Len() > 0 {
		dir = cmd.Args().First()
	}

	files, err := scenarioFiles(dir)
	if err != nil {
		return fmt.Errorf("listing %s: %w", dir, err)
	}
	if len(files) == 0 {
		fmt.Printf("No scenario files found in %s\n", dir)
		return nil
	}

	var rows []*summaryRow
	for _, file := range files {
		analysis, err := analyzeFile(file, dir)
		if cmd.Bool("csv") {
			rows = append(rows, summarize(filepath.Base(file), analysis, err))
			continue
		}

		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		printAnalysis(os.Stdout, analysis)
	}

	if cmd.Bool("csv") {
		return writeCSV(os.Stdout, rows)
	}
	return nil
}

// scenarioFiles returns every .json/.yaml/.yml file in dir, sorted
func scenarioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, known := range engine.ConfigExtensions {
			if ext == known {
				files = append(files, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func analyzeFile(path, baseDir string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	config, err := engine.DecodeSimConfig(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return analyzeConfig(config, baseDir)
}

// analyzeConfig samples the playfield on a grid and checks every spawn line
func analyzeConfig(config *engine.SimConfig, baseDir string) (*Analysis, error) {
	config.ApplyDefaults()
	terrain, err := engine.BuildTerrain(config, baseDir)
	if err != nil {
		return nil, err
	}

	def := config.Vehicle
	pf := config.Playfield
	a := &Analysis{
		Name:        config.Name,
		Vehicle:     def.Name,
		Kind:        def.Kind,
		Playfield:   pf,
		Histogram:   map[engine.TerrainCategory]int{},
		ChosenSpawn: -1,
	}

	for y := pf.Margin; y <= pf.Height-pf.Margin; y += sampleStep {
		for x := pf.Margin; x <= pf.Width-pf.Margin; x += sampleStep {
			category := terrain.CategoryAt(r2.Vec{X: x, Y: y})
			verdict := engine.Passability(category, def, config.SoftTerrain)
			a.Samples++
			a.Histogram[category]++
			if verdict.Passable {
				a.Passable++
			}
			if verdict.Restricted {
				a.Restricted++
			}
		}
	}

	for i, line := range engine.SpawnLines {
		pos, _ := pf.Clamp(line.Position.Vec())
		category := terrain.CategoryAt(pos)
		a.Spawns = append(a.Spawns, SpawnReport{
			Index:     i,
			Position:  engine.PositionOf(pos),
			Direction: engine.DirectionName(engine.DirectionFromSpawnLine(line)),
			Verdict:   engine.Passability(category, def, config.SoftTerrain),
		})
	}

	switch {
	case config.SpawnLine != nil:
		a.ChosenSpawn = *config.SpawnLine
	case config.SpawnEdge != "":
		a.ChosenSpawn = engine.SpawnIndexForEdge(engine.Edge(config.SpawnEdge))
	}

	return a, nil
}

func printAnalysis(w io.Writer, a *Analysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Vehicle: %s (%s)\n", a.Vehicle, a.Kind)
	fmt.Fprintf(w, "Playfield: %gx%g, margin %g\n", a.Playfield.Width, a.Playfield.Height, a.Playfield.Margin)

	fmt.Fprintf(w, "Terrain (%d samples):\n", a.Samples)
	for _, c := range engine.Categories() {
		n := a.Histogram[c]
		if n == 0 {
			continue
		}
		pct := 100 * float64(n) / float64(a.Samples)
		fmt.Fprintf(w, "   %-8s %5.1f%% %s\n", c, pct, strings.Repeat("#", int(pct/5)))
	}
	fmt.Fprintf(w, "Navigable: %.1f%%", 100*a.PassableFraction())
	if a.Restricted > 0 {
		fmt.Fprintf(w, " (%d samples restricted for this vehicle)", a.Restricted)
	}
	fmt.Fprintln(w)

	blocked := a.BlockedSpawns()
	if len(blocked) == 0 {
		fmt.Fprintf(w, "✅ All %d spawn lines land on navigable water\n", len(a.Spawns))
	} else {
		fmt.Fprintf(w, "⚠️  WARNING: %d spawn lines land on impassable terrain\n", len(blocked))
		for _, s := range blocked {
			fmt.Fprintf(w, "   Line %2d at (%.0f, %.0f) facing %s: %s\n",
				s.Index, s.Position.X, s.Position.Y, s.Direction, s.Verdict.Category)
		}
	}

	if a.ChosenSpawn >= 0 && a.ChosenSpawn < len(a.Spawns) && !a.Spawns[a.ChosenSpawn].Verdict.Passable {
		fmt.Fprintf(w, "⚠️  CRITICAL: the scenario spawns on line %d, which is %s\n",
			a.ChosenSpawn, a.Spawns[a.ChosenSpawn].Verdict.Category)
	}
}

// summaryRow is one line of the --csv output
type summaryRow struct {
	File          string  `csv:"file"`
	Name          string  `csv:"name"`
	Vehicle       string  `csv:"vehicle"`
	Kind          string  `csv:"kind"`
	Samples       int     `csv:"samples"`
	NavigablePct  float64 `csv:"navigable_pct"`
	ShorePct      float64 `csv:"shore_pct"`
	BlockedSpawns int     `csv:"blocked_spawns"`
	SpawnLine     int     `csv:"spawn_line"`
	Error         string  `csv:"error"`
}

func summarize(file string, a *Analysis, err error) *summaryRow {
	row := &summaryRow{File: file, SpawnLine: -1}
	if err != nil {
		row.Error = err.Error()
		return row
	}
	row.Name = a.Name
	row.Vehicle = a.Vehicle
	row.Kind = string(a.Kind)
	row.Samples = a.Samples
	row.NavigablePct = math.Round(1000*a.PassableFraction()) / 10
	if a.Samples > 0 {
		row.ShorePct = math.Round(1000*float64(a.Histogram[engine.Shore])/float64(a.Samples)) / 10
	}
	row.BlockedSpawns = len(a.BlockedSpawns())
	row.SpawnLine = a.ChosenSpawn
	return row
}

func writeCSV(w io.Writer, rows []*summaryRow) error {
	return gocsv.Marshal(rows, w)
}
