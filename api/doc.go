// Package api provides the HTTP REST API for Sea Drive.
//
// Endpoints:
//
// Session Management:
//   - POST   /api/sessions                 - Create session {config_id}
//   - GET    /api/sessions                 - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET    /api/sessions/unified         - Multi-session view (?sessionIds=a,b or ?configName=x)
//   - GET    /api/sessions/{id}            - Get session
//   - DELETE /api/sessions/{id}            - Delete session (stops its runner)
//
// Simulation:
//   - POST /api/sessions/{id}/step         - Hold {steer, throttle} for {ticks}
//   - POST /api/sessions/{id}/reset        - Rebuild the vehicle from its scenario
//   - POST /api/sessions/{id}/command      - Apply a command between ticks
//
// Realtime:
//   - POST   /api/sessions/{id}/runner     - Start ticking at the scenario tick rate
//   - DELETE /api/sessions/{id}/runner     - Stop ticking
//   - PUT    /api/sessions/{id}/input      - Replace the held input {steer, throttle}
//
// State:
//   - GET /api/sessions/{id}/status        - Polled status with decision aids
//   - GET /api/sessions/{id}/state         - Full restorable vehicle state
//   - GET /api/sessions/{id}/history       - Event log page and step-back trail (?page&limit&order)
//   - GET /api/sessions/{id}/probe?x=&y=   - Terrain verdict for a point
//
// Configuration:
//   - GET  /api/configs                    - List scenarios
//   - GET  /api/configs/{name}             - Load a scenario
//   - POST /api/configs                    - Save a scenario (optional "filename" picks .json/.yaml)
//
// Realtime updates are served on /ws?sessionId=ID. Every mutating endpoint
// also broadcasts its result to that session's subscribers.
//
// Error Handling:
//
// Errors are returned as JSON with an HTTP status derived from the
// underlying error:
//
//	{
//	  "error": "session not found: session not found",
//	  "code": 404
//	}
//
// Unknown sessions and scenarios map to 404, invalid commands, positions and
// scenarios to 400, an active runner or a missing saved session to 409.
package api
