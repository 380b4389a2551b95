// Package websocket pushes realtime simulation updates to browser clients.
//
// A central Hub owns every connection. Each client has a read pump and a
// write pump goroutine; the hub goroutine started with Run serialises
// registration, removal and fan-out.
//
// Message Protocol:
//
// Outgoing frames are JSON objects {session_id, event, data}. The runner
// emits "tick" frames carrying a service.TickUpdate; REST mutations emit
// "step", "command", "reset" and friends with their result payloads.
//
// Incoming frames are only acted on when they carry held input:
//
//	{"type": "input", "steer": -1, "throttle": 1}
//
// Session Integration:
//
// Clients pick a session with ?sessionId=abc1 on the upgrade request and only
// receive frames broadcast for that session.
//
// Usage:
//
//	var svc service.SimService
//	hub := websocket.NewHub(websocket.WithInputHandler(
//		func(ctx context.Context, id string, in engine.Input) error {
//			return svc.SetInput(ctx, id, in)
//		}))
//	svc = service.NewSimService(sessions, configs, service.WithNotifier(hub))
//	go hub.Run(ctx)
//
// BroadcastToSession never blocks. It is called from the tick loop while the
// session is locked, so a full queue drops the frame instead of stalling the
// simulation.
package websocket
