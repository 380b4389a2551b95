package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/wricardo/mcp-training/seadrive/game/config"
	"github.com/wricardo/mcp-training/seadrive/game/engine"
	"github.com/wricardo/mcp-training/seadrive/game/service"
	"github.com/wricardo/mcp-training/seadrive/game/session"
)

// Broadcaster pushes REST-driven changes to realtime subscribers
type Broadcaster interface {
	service.Notifier
	ServeWS(w http.ResponseWriter, r *http.Request, sessionID string)
}

// Server represents the REST API server
type Server struct {
	service   service.SimService
	hub       Broadcaster
	router    *mux.Router
	log       zerolog.Logger
	staticDir string
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithStaticDir serves files from dir for unmatched paths
func WithStaticDir(dir string) Option {
	return func(s *Server) {
		s.staticDir = dir
	}
}

// NewServer creates a new API server. hub may be nil.
func NewServer(simService service.SimService, hub Broadcaster, opts ...Option) *Server {
	s := &Server{
		service: simService,
		hub:     hub,
		router:  mux.NewRouter(),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	// Must be registered before the {id} pattern
	api.HandleFunc("/sessions/unified", s.handleUnifiedSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Simulation
	api.HandleFunc("/sessions/{id}/step", s.handleStep).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/command", s.handleCommand).Methods("POST")

	// Realtime
	api.HandleFunc("/sessions/{id}/runner", s.handleStartRunner).Methods("POST")
	api.HandleFunc("/sessions/{id}/runner", s.handleStopRunner).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/input", s.handleSetInput).Methods("PUT", "POST")

	// State
	api.HandleFunc("/sessions/{id}/status", s.handleGetStatus).Methods("GET")
	api.HandleFunc("/sessions/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/sessions/{id}/probe", s.handleProbe).Methods("GET")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)

	if s.staticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"error": message, "code": status})
}

// respondServiceError maps service errors onto HTTP status codes
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, config.ErrConfigNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrRunnerActive),
		errors.Is(err, service.ErrNoSavedSession),
		errors.Is(err, session.ErrSessionAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCommand),
		errors.Is(err, service.ErrInvalidPosition),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, session.ErrInvalidSessionID):
		return http.StatusBadRequest
	case strings.Contains(err.Error(), "not found"):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) broadcast(sessionID, event string, data interface{}) {
	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, event, data)
	}
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // Deprecated, use config_id
	}

	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	configID := req.ConfigID
	if configID == "" {
		configID = req.ConfigName
	}

	info, err := s.service.CreateSession(r.Context(), configID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	total := len(sessions)

	query := r.URL.Query()
	sortBy := query.Get("sort") // "created", "accessed" (default)
	order := query.Get("order") // "asc", "desc" (default)
	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 && l < len(sessions) {
		sessions = sessions[:l]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}
	s.broadcast(sessionID, "deleted", nil)

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Simulation Handlers

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req service.StepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Step(r.Context(), sessionID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	s.broadcast(sessionID, "step", result)

	stop := result.StopReasonCode
	if stop == "" {
		stop = "none"
	}
	s.log.Info().
		Str("session", sessionID).
		Int("ticks", result.TicksExecuted).
		Int("requested", result.RequestedTicks).
		Str("stop", stop).
		Float64("x", result.EndPos.X).
		Float64("y", result.EndPos.Y).
		Float64("fuel", result.EndFuel).
		Msg("step")

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	status, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	s.broadcast(sessionID, "reset", status)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Vehicle reset successfully",
		"status":  status,
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var cmd service.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if cmd.Type == "" {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Command type is required (valid: %v)", service.Commands()))
		return
	}

	result, err := s.service.Command(r.Context(), sessionID, cmd)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	s.broadcast(sessionID, "command", result)

	respondJSON(w, http.StatusOK, result)
}

// Realtime Handlers

func (s *Server) handleStartRunner(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	status, err := s.service.StartRunner(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	s.broadcast(sessionID, "runner_started", status)
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleStopRunner(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	status, err := s.service.StopRunner(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	s.broadcast(sessionID, "runner_stopped", status)
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleSetInput(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var in engine.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.service.SetInput(r.Context(), sessionID, in); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, in)
}

// State Handlers

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.GetStatus(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if p, err := strconv.Atoi(query.Get("page")); err == nil && p > 0 {
		opts.Page = p
	}
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 {
		opts.Limit = l
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetHistory(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	x, errX := strconv.ParseFloat(query.Get("x"), 64)
	y, errY := strconv.ParseFloat(query.Get("y"), 64)
	if errX != nil || errY != nil {
		respondError(w, http.StatusBadRequest, "x and y query parameters must be numbers")
		return
	}

	result, err := s.service.Probe(r.Context(), mux.Vars(r)["id"], engine.Position{X: x, Y: y})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.service.LoadConfig(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		engine.SimConfig
		Filename string `json:"filename,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	name := req.Filename
	if name == "" {
		name = req.Name
	}
	if name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	cfg := req.SimConfig
	if err := s.service.SaveConfig(r.Context(), name, &cfg); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": strings.TrimSuffix(name, filepath.Ext(name)),
	})
}

// Unified Sessions Handler

func (s *Server) handleUnifiedSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var sessions []*service.SessionInfo
	if ids := query.Get("sessionIds"); ids != "" {
		for _, id := range strings.Split(ids, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if info, err := s.service.GetSession(r.Context(), id); err == nil {
				sessions = append(sessions, info)
			}
		}
	} else {
		all, err := s.service.ListSessions(r.Context())
		if err != nil {
			respondServiceError(w, err)
			return
		}
		configName := query.Get("configName")
		for _, info := range all {
			if configName == "" || info.ConfigName == configName {
				sessions = append(sessions, info)
			}
		}
	}

	configName := ""
	running := 0
	entries := make([]map[string]interface{}, 0, len(sessions))
	for _, info := range sessions {
		if configName == "" {
			configName = info.ConfigName
		}
		if info.Running {
			running++
		}
		entries = append(entries, map[string]interface{}{
			"session_id":    info.ID,
			"config_name":   info.ConfigName,
			"status":        info.Status,
			"running":       info.Running,
			"created_at":    info.CreatedAt,
			"last_accessed": info.LastAccessedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"config_name": configName,
		"running":     running,
		"sessions":    entries,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "realtime updates are disabled", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query()
	sessionID := query.Get("sessionId")
	if sessionID == "" {
		sessionID = query.Get("session")
	}
	if sessionID == "" {
		http.Error(w, "sessionId parameter required", http.StatusBadRequest)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
