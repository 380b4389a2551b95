package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/seadrive/game/engine"
	"github.com/wricardo/mcp-training/seadrive/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Sea Drive",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Sea Drive - MCP Interface

This is a thin client that proxies all requests to the REST API server.

You pilot a boat or land vehicle across a 2D world. Each tick you hold a steer
(-1 left, 0, +1 right) and throttle (-1 reverse, 0, +1 forward) input. Terrain
is sampled from a topology bitmap: land, reef, shallows and currents all
change what the vehicle can do.

AVAILABLE TOOLS:
- create_session / get_session / list_sessions / delete_session
- step: hold one input for N ticks - requires intent explanation
- command: heading, refuel, step back, respawn, propulsion, save/restore
- reset: rebuild the vehicle from its scenario
- start_runner / stop_runner / set_input: realtime ticking
- vehicle_status: position, heading, fuel, stamina, terrain
- probe: terrain verdict for any point
- history: event log and step-back trail
- list_configs / get_config: scenarios
- sim_instructions: full rules

NOTE: The 'intent' parameter on step serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

func sessionSchema(extra map[string]interface{}, required ...string) mcp.ToolInputSchema {
	props := map[string]interface{}{
		"session_id": prop("string", "Session ID"),
	}
	for k, v := range extra {
		props[k] = v
	}
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: props,
		Required:   append([]string{"session_id"}, required...),
	}
}

func enumProp(typ, description string, values interface{}) map[string]interface{} {
	p := prop(typ, description)
	p["enum"] = values
	return p
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new simulation session with optional scenario selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": prop("string", "Scenario to use (optional, see list_configs)"),
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active simulation sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionSchema(nil),
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_session",
		Description: "Delete a session and stop its runner",
		InputSchema: sessionSchema(nil),
	}, c.handleDeleteSession)

	// Simulation
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "step",
		Description: "Hold a steer/throttle input for a number of ticks",
		InputSchema: sessionSchema(map[string]interface{}{
			"steer":         enumProp("integer", "-1 left, 0 straight, +1 right", []int{-1, 0, 1}),
			"throttle":      enumProp("integer", "-1 reverse, 0 coast, +1 forward", []int{-1, 0, 1}),
			"ticks":         prop("integer", fmt.Sprintf("Ticks to hold the input (default 1, max %d)", service.MaxStepTicks)),
			"stop_on_event": prop("boolean", "Stop at the first event (blocked, low fuel, propulsion change...)"),
			"reset":         prop("boolean", "Reset before stepping"),
			"intent":        prop("string", "Brief explanation of the intent behind this step (serves as a rubber duck to help explain your reasoning)"),
		}, "throttle"),
	}, c.handleStep)

	commandTypes := make([]string, 0, len(service.Commands()))
	for _, t := range service.Commands() {
		commandTypes = append(commandTypes, string(t))
	}
	edges := make([]string, 0, len(engine.Edges()))
	for _, e := range engine.Edges() {
		edges = append(edges, string(e))
	}
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "command",
		Description: "Apply a command between ticks",
		InputSchema: sessionSchema(map[string]interface{}{
			"type":       enumProp("string", "Command to apply", commandTypes),
			"direction":  prop("integer", "direction: heading 1-16, 16 is north, 4 east"),
			"amount":     prop("number", "refuel: fuel to add"),
			"steps":      prop("integer", fmt.Sprintf("step_back: 0-%d entries", engine.HistorySize-1)),
			"edge":       enumProp("string", "spawn_edge: edge to respawn on", edges),
			"line":       prop("integer", fmt.Sprintf("spawn_line: index 0-%d", engine.NumDirections-1)),
			"propulsion": enumProp("string", "propulsion: mode to switch to", []string{string(engine.Motor), string(engine.Oar), string(engine.Sail)}),
			"tile_x":     prop("integer", "tile: column"),
			"tile_y":     prop("integer", "tile: row"),
		}, "type"),
	}, c.handleCommand)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset",
		Description: "Reset the vehicle to its scenario start",
		InputSchema: sessionSchema(nil),
	}, c.handleReset)

	// Realtime
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_runner",
		Description: "Start ticking the session in realtime from its held input",
		InputSchema: sessionSchema(nil),
	}, c.handleStartRunner)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "stop_runner",
		Description: "Stop realtime ticking",
		InputSchema: sessionSchema(nil),
	}, c.handleStopRunner)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_input",
		Description: "Replace the input the realtime runner holds",
		InputSchema: sessionSchema(map[string]interface{}{
			"steer":    enumProp("integer", "-1 left, 0 straight, +1 right", []int{-1, 0, 1}),
			"throttle": enumProp("integer", "-1 reverse, 0 coast, +1 forward", []int{-1, 0, 1}),
		}),
	}, c.handleSetInput)

	// State
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "vehicle_status",
		Description: "Get the vehicle's position, heading, fuel, stamina and terrain",
		InputSchema: sessionSchema(nil),
	}, c.handleStatus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "history",
		Description: "View the event log and the step-back trail",
		InputSchema: sessionSchema(map[string]interface{}{
			"page":  prop("integer", "Page number (default 1)"),
			"limit": prop("integer", "Events per page (default 20)"),
			"order": enumProp("string", "Sort order (default desc)", []string{"asc", "desc"}),
		}),
	}, c.handleHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "probe",
		Description: "Get the terrain verdict for a point in playfield coordinates",
		InputSchema: sessionSchema(map[string]interface{}{
			"x": prop("number", "Playfield X"),
			"y": prop("number", "Playfield Y (grows southward)"),
		}, "x", "y"),
	}, c.handleProbe)

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available scenarios",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_config",
		Description: "Show a scenario's vehicle, playfield and terrain settings",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": prop("string", "Scenario ID"),
			},
			Required: []string{"config_id"},
		},
	}, c.handleGetConfig)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "sim_instructions",
		Description: "Get the full simulation rules and piloting tips",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleInstructions)
}

// Run serves MCP over stdio until the input closes
func (c *Client) Run() error {
	return server.ServeStdio(c.mcpServer)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

// intArg accepts JSON numbers; clients that send strings get the zero value
func intArg(args map[string]interface{}, key string) int {
	f, _ := args[key].(float64)
	return int(f)
}

func floatArg(args map[string]interface{}, key string) (float64, bool) {
	f, ok := args[key].(float64)
	return f, ok
}

func boolArg(args map[string]interface{}, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]string{}
	if configID := stringArg(args, "config_id"); configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n", session.ID, session.ConfigName)
	if session.Message != "" {
		result += session.Message + "\n"
	}
	if session.Status != nil {
		result += "\n" + formatStatus(session.Status)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                    `json:"count"`
		Sessions []*service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active sessions: %d\n\n", response.Count)
	for _, session := range response.Sessions {
		running := ""
		if session.Running {
			running = " [running]"
		}
		fmt.Fprintf(&b, "• %s (config: %s)%s", session.ID, session.ConfigName, running)
		if session.Status != nil {
			fmt.Fprintf(&b, " at (%.1f,%.1f) tick %d", session.Status.Position.X, session.Status.Position.Y, session.Status.Tick)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var response struct {
		Message string `json:"message"`
	}
	if err := c.apiCall(ctx, "DELETE", sessionPath(sessionID, ""), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response.Message), nil
}

func (c *Client) handleStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = stringArg(args, "intent")

	body := service.StepRequest{
		Steer:       intArg(args, "steer"),
		Throttle:    intArg(args, "throttle"),
		Ticks:       intArg(args, "ticks"),
		Reset:       boolArg(args, "reset"),
		StopOnEvent: boolArg(args, "stop_on_event"),
	}

	var result service.StepResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/step"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatStepResult(sessionID, &result)), nil
}

func (c *Client) handleCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	cmd := service.Command{
		Type:       service.CommandType(stringArg(args, "type")),
		Direction:  intArg(args, "direction"),
		Steps:      intArg(args, "steps"),
		Edge:       stringArg(args, "edge"),
		Line:       intArg(args, "line"),
		Propulsion: stringArg(args, "propulsion"),
		Tile:       engine.Tile{X: intArg(args, "tile_x"), Y: intArg(args, "tile_y")},
	}
	cmd.Amount, _ = floatArg(args, "amount")

	var result service.CommandResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/command"), cmd, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatCommandResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var response struct {
		Message string                 `json:"message"`
		Status  *service.VehicleStatus `json:"status"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response.Message + "\n\n" + formatStatus(response.Status)), nil
}

func (c *Client) handleStartRunner(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.runnerCall(ctx, request, "POST", "Runner started")
}

func (c *Client) handleStopRunner(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.runnerCall(ctx, request, "DELETE", "Runner stopped")
}

func (c *Client) runnerCall(ctx context.Context, request mcp.CallToolRequest, method, message string) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var status service.VehicleStatus
	if err := c.apiCall(ctx, method, sessionPath(sessionID, "/runner"), nil, &status); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(message + "\n\n" + formatStatus(&status)), nil
}

func (c *Client) handleSetInput(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")
	in := engine.Input{Steer: intArg(args, "steer"), Throttle: intArg(args, "throttle")}

	if err := c.apiCall(ctx, "PUT", sessionPath(sessionID, "/input"), in, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Holding steer=%d throttle=%d", in.Steer, in.Throttle)), nil
}

func (c *Client) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var status service.VehicleStatus
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/status"), nil, &status); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatStatus(&status)), nil
}

func (c *Client) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	params := url.Values{}
	if page := intArg(args, "page"); page > 0 {
		params.Set("page", fmt.Sprint(page))
	}
	if limit := intArg(args, "limit"); limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}
	if order := stringArg(args, "order"); order != "" {
		params.Set("order", order)
	}
	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleProbe(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")
	x, okX := floatArg(args, "x")
	y, okY := floatArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required numbers"), nil
	}

	params := url.Values{}
	params.Set("x", fmt.Sprint(x))
	params.Set("y", fmt.Sprint(y))

	var probe service.ProbeResult
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/probe?"+params.Encode()), nil, &probe); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatProbe(&probe)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Scenarios:\n\n")
	for _, cfg := range configs {
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Vehicle: %s (%s), Terrain: %s, Tick rate: %d/s\n\n",
			cfg.ConfigID, cfg.Name, cfg.Description, cfg.Vehicle, cfg.Kind, cfg.Terrain, cfg.TickRate)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	configID := stringArg(arguments(request), "config_id")

	var cfg engine.SimConfig
	if err := c.apiCall(ctx, "GET", "/api/configs/"+url.PathEscape(configID), nil, &cfg); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatConfig(&cfg)), nil
}

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Sea Drive - Complete Instructions

OBJECTIVE:
Pilot your vehicle across the playfield without running aground, out of fuel
or out of stamina. Scenarios decide the vehicle and the waters.

COORDINATES:
• Playfield X grows east, Y grows south. The vehicle starts at the centre.
• Headings are 1-16 clockwise in 22.5 degree steps: 16 is north, 4 east,
  8 south, 12 west.

INPUT:
• steer: -1 turns left, +1 turns right. Turning rate depends on speed.
• throttle: +1 accelerates forward, -1 brakes then reverses, 0 coasts.
• step holds one input for up to 1800 ticks; stop_on_event halts at the first event.

TERRAIN (sampled from the scenario topology):
• deep water: full speed, gentle sway
• medium and shallow water: slower; boats with a deep draft may be blocked
• reef: blocks vehicles without enough durability
• currents: push the vehicle in their direction
• land / shore: boats cannot enter; vehicles steer away when they touch it

PROPULSION:
• motor burns fuel; refuel with the refuel command
• oar drains stamina, which recovers while resting
• sail is only available on vehicles rigged for it
The vehicle may switch propulsion by itself when fuel or stamina runs out.

PILOTING TIPS:
• probe ahead before committing a long step
• use stop_on_event=true for long steps in unknown waters
• save_session before risky manoeuvres; restore_session rolls back
• step_back undoes up to 9 committed ticks of position and heading

COMMANDS:
direction, refuel, step_back, spawn_edge, spawn_line, enable, disable,
propulsion, tile, save_session, restore_session

Good luck, captain!`

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	running := "stopped"
	if session.Running {
		running = "running"
	}
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\nRunner: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		running,
		formatStatus(session.Status))
}

func formatStatus(status *service.VehicleStatus) string {
	if status == nil {
		return "No vehicle status available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Vehicle: %s | Tick: %d\n", status.Vehicle, status.Tick)
	fmt.Fprintf(&b, "Position: (%.1f,%.1f) | Tile: (%d,%d)\n",
		status.Position.X, status.Position.Y, status.Tile.X, status.Tile.Y)
	fmt.Fprintf(&b, "Heading: %s (%d) | Speed: %.2f / %.2f | Steering: %.2f\n",
		status.Heading, status.Direction, status.Speed, status.EffectiveMaxSpeed, status.Steering)
	fmt.Fprintf(&b, "Propulsion: %s | Terrain: %s (x%.2f)\n",
		status.Propulsion, status.Terrain, status.TerrainSpeedModifier)
	if status.FuelMax > 0 {
		fmt.Fprintf(&b, "Fuel: %.1f/%.1f (%.0f%%)", status.Fuel, status.FuelMax, status.FuelPercent)
		if status.FuelRisk != "" {
			fmt.Fprintf(&b, " risk: %s", status.FuelRisk)
		}
		b.WriteString("\n")
	}
	if status.StaminaMax > 0 {
		fmt.Fprintf(&b, "Stamina: %.1f/%.1f (%.0f%%)\n", status.Stamina, status.StaminaMax, status.StaminaPercent)
	}
	if !status.Enabled {
		b.WriteString("Vehicle is DISABLED\n")
	}
	if status.BlockedAttempts > 0 {
		fmt.Fprintf(&b, "Blocked attempts: %d\n", status.BlockedAttempts)
	}
	return b.String()
}

func formatEvents(b *strings.Builder, events []service.SimEvent) {
	if len(events) == 0 {
		return
	}
	b.WriteString("\nEvents:\n")
	for _, event := range events {
		fmt.Fprintf(b, "- tick %d %s: %s\n", event.Tick, event.Type, event.Message)
	}
}

func formatStepResult(sessionID string, result *service.StepResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session: %s\n", sessionID)
	fmt.Fprintf(&b, "Executed %d/%d ticks\n", result.TicksExecuted, result.RequestedTicks)
	if result.Truncated {
		fmt.Fprintf(&b, "Truncated to %d ticks\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped on tick %d [%s]: %s\n", result.StoppedOnTick, result.StopReasonCode, result.StoppedReason)
	}
	fmt.Fprintf(&b, "Moved (%.1f,%.1f) -> (%.1f,%.1f), distance %.1f\n",
		result.StartPos.X, result.StartPos.Y, result.EndPos.X, result.EndPos.Y, result.Distance)
	if result.StartFuel != result.EndFuel {
		fmt.Fprintf(&b, "Fuel %.1f -> %.1f\n", result.StartFuel, result.EndFuel)
	}

	formatEvents(&b, result.Events)

	b.WriteString("\n")
	b.WriteString(formatStatus(result.Status))
	return b.String()
}

func formatCommandResult(result *service.CommandResult) string {
	var b strings.Builder
	mark := "✓"
	if !result.Success {
		mark = "✗"
	}
	fmt.Fprintf(&b, "%s %s: %s\n", mark, result.Command, result.Message)
	formatEvents(&b, result.Events)
	b.WriteString("\n")
	b.WriteString(formatStatus(result.Status))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event log (page %d/%d, %d total):\n",
		history.Page, history.TotalPages, history.TotalEvents)
	for _, event := range history.Events {
		fmt.Fprintf(&b, "- tick %d %s at (%.1f,%.1f): %s\n",
			event.Tick, event.Type, event.Position.X, event.Position.Y, event.Message)
	}
	if history.HasNext {
		b.WriteString("(more on the next page)\n")
	}

	if len(history.Trail) > 0 {
		b.WriteString("\nStep-back trail (oldest first):\n")
		for i, entry := range history.Trail {
			fmt.Fprintf(&b, "%d. (%.1f,%.1f) heading %s\n",
				i, entry.Position.X, entry.Position.Y, engine.DirectionName(entry.Direction))
		}
	}
	return b.String()
}

func formatProbe(probe *service.ProbeResult) string {
	passable := "impassable"
	if probe.Verdict.Passable {
		passable = "passable"
	}
	return fmt.Sprintf("Probe (%.1f,%.1f): %s, %s, speed x%.2f (sample %d, %.1f away)",
		probe.Position.X, probe.Position.Y, probe.Verdict.Category, passable,
		probe.Verdict.SpeedModifier, probe.Sample, probe.Distance)
}

func formatConfig(cfg *engine.SimConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scenario: %s\n", cfg.Name)
	if cfg.Description != "" {
		fmt.Fprintf(&b, "%s\n", cfg.Description)
	}
	fmt.Fprintf(&b, "Playfield: %gx%g (margin %g)\n", cfg.Playfield.Width, cfg.Playfield.Height, cfg.Playfield.Margin)
	fmt.Fprintf(&b, "Vehicle: %s (%s), durability %d\n", cfg.Vehicle.Name, cfg.Vehicle.Kind, cfg.Vehicle.Durability)
	switch {
	case cfg.Topology != "":
		fmt.Fprintf(&b, "Terrain: topology %s\n", cfg.Topology)
	case len(cfg.Layout) > 0:
		fmt.Fprintf(&b, "Terrain: %d-row layout\n", len(cfg.Layout))
		for _, row := range cfg.Layout {
			b.WriteString("  " + row + "\n")
		}
	default:
		b.WriteString("Terrain: open water\n")
	}
	if cfg.TickRate > 0 {
		fmt.Fprintf(&b, "Tick rate: %d/s\n", cfg.TickRate)
	}
	return b.String()
}
