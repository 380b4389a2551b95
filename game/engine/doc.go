// Package engine provides the navigation simulation behind Sea Drive.
//
// A Vehicle moves across a continuous playfield whose passability comes from
// a single-channel topology bitmap. Each call to Tick advances it by one
// fixed logic step:
//   - steering notches the heading through a 16-point compass table
//   - throttle integrates into acceleration, scaled by the propulsion ceiling
//     and the terrain speed modifier
//   - turn probes and a move probe consult the terrain classifier before a
//     displacement is committed
//   - fuel or stamina is drained on commit and stamina recovers at rest
//   - a wave overlay bobs the committed position
//   - the position is clamped to the playfield and edge crossings reported
//
// Core Types:
//
// Vehicle implements the Engine interface. VehicleDefinition describes the
// assembled vehicle, Terrain samples a TerrainSource through a Mapping, and
// SimConfig is the scenario file loaded from JSON or YAML. Events are
// delivered synchronously to an EventSink; Runner ticks a vehicle from a
// background goroutine.
//
// Usage:
//
//	config, err := engine.LoadConfigByName("harbour")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	vehicle, err := engine.NewVehicleFromConfig(config, "configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	vehicle.Tick(engine.Input{Throttle: 1})
//	status := vehicle.Status()
//
// Nothing in a tick fails: direction indices wrap, points outside the
// bitmap read as shore, and a vehicle that runs dry falls back to sail,
// oars or drifting.
package engine
