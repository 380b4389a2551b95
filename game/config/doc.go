// Package config provides scenario management for Sea Drive.
//
// The config package handles:
//   - Loading scenarios from JSON or YAML files
//   - Validation through the engine's scenario rules
//   - Default scenario selection
//   - Scenario discovery and listing
//
// Scenario Format:
//
// A scenario names the vehicle definition, the playfield, the mapping from
// playfield to topology and the terrain itself. Terrain comes from either a
// grayscale topology image or an ASCII layout expanded through a legend
// (~ deep, - medium, . shallow, x reef, ><^v currents, L land). A scenario
// with neither is open water.
//
// Usage:
//
//	manager, err := config.NewManager("configs", config.WithLogger(log))
//	if err != nil {
//		log.Fatal().Err(err).Send()
//	}
//
//	harbour, err := manager.LoadConfig("harbour")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// The id "default" always resolves, falling back to the built-in open sea
// scenario when no file of that name exists.
package config
