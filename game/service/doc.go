// Package service provides the business logic layer for Sea Drive.
//
// The service package implements:
//   - Multi-session simulation management
//   - Stepping a vehicle through held input for a number of ticks
//   - Commands applied between ticks (heading, refuel, spawn, propulsion)
//   - Realtime runners that tick a session in the background
//   - A bounded per-session event log with paginated retrieval
//
// Core Interfaces:
//
// SimService is the main service interface used by the transports.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager loads and saves scenario files.
// Notifier receives a TickUpdate after every realtime tick.
//
// Usage:
//
//	configMgr, _ := config.NewManager("configs")
//	sessionMgr := session.NewManager(session.WithBaseDir("configs"))
//	sim := service.NewSimService(sessionMgr, configMgr)
//
//	info, err := sim.CreateSession(ctx, "harbour")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := sim.Step(ctx, info.ID, service.StepRequest{Throttle: 1, Ticks: 30})
//
// Locking:
//
// Every session carries its own mutex, which is also the locker handed to
// its runner, so ticks and commands never interleave. Persistence reads a
// session under that mutex and must be called without it held.
package service
