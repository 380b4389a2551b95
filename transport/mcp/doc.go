// Package mcp exposes Sea Drive to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a REST request against
// a running server (see package api) and the JSON response is rendered as
// text an agent can reason about.
//
// MCP Tools:
//   - create_session, get_session, list_sessions, delete_session
//   - step: hold steer/throttle for N ticks, optionally stopping on events
//   - command: heading, refuel, step back, respawn, propulsion, tile, save/restore
//   - reset: rebuild the vehicle from its scenario
//   - start_runner, stop_runner, set_input: realtime ticking
//   - vehicle_status, history, probe
//   - list_configs, get_config
//   - sim_instructions: rules and piloting tips
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := client.Run(); err != nil {
//		log.Fatal(err)
//	}
//
// Run serves over stdio, which is how desktop MCP hosts launch the binary
// (see the stdio-mcp command).
package mcp
