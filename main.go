// Command seadrive starts the Sea Drive simulation server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from seadrive.yaml, SEADRIVE_* environment variables and
// flags. An optional ngrok tunnel exposes the server during development.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/seadrive/api"
	"github.com/wricardo/mcp-training/seadrive/game/config"
	"github.com/wricardo/mcp-training/seadrive/game/engine"
	"github.com/wricardo/mcp-training/seadrive/game/service"
	"github.com/wricardo/mcp-training/seadrive/game/session"
	"github.com/wricardo/mcp-training/seadrive/transport/mcp"
	"github.com/wricardo/mcp-training/seadrive/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Sea Drive Server"
)

func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	cmd := newCommand()
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}

	if envErr != nil && !os.IsNotExist(envErr) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", envErr)
	}
}

// newCommand builds the command tree. Flags are shared by every mode.
func newCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
		&cli.IntFlag{Name: "port", Usage: "HTTP server port"},
		&cli.StringFlag{Name: "config-dir", Usage: "Directory containing scenario files"},
		&cli.StringFlag{Name: "static-dir", Usage: "Directory served for unmatched paths"},
		&cli.StringFlag{Name: "store", Usage: "Session store: file or sqlite"},
		&cli.StringFlag{Name: "sessions-dir", Usage: "Directory for the file store"},
		&cli.StringFlag{Name: "sqlite-path", Usage: "Database path for the sqlite store"},
		&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn or error"},
		&cli.BoolFlag{Name: "debug", Usage: "Shorthand for --log-level debug"},
		&cli.StringFlag{Name: "settings-dir", Value: ".", Usage: "Directory searched for seadrive.yaml"},
		&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel"},
		&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token (or NGROK_AUTHTOKEN)"},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)"},
		&cli.StringFlag{Name: "api-url", Usage: "External API checked by stdio-mcp before starting an internal one"},
	}

	return &cli.Command{
		Name:    "seadrive",
		Usage:   "2D vehicle navigation simulator with REST, WebSocket and MCP interfaces",
		Version: Version,
		Flags:   flags,
		Action:  serverAction,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  serverAction,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server, starting an internal HTTP server if needed",
				Action:  stdioAction,
			},
		},
	}
}

// flagOverrides collects flags the user set explicitly, keyed like settings
func flagOverrides(cmd *cli.Command) map[string]interface{} {
	overrides := map[string]interface{}{}
	strs := map[string]string{
		"host":         "host",
		"config-dir":   "config_dir",
		"static-dir":   "static_dir",
		"store":        "store",
		"sessions-dir": "sessions_dir",
		"sqlite-path":  "sqlite_path",
		"log-level":    "log_level",
		"ngrok-auth":   "ngrok.authtoken",
		"ngrok-domain": "ngrok.domain",
		"api-url":      "api_url",
	}
	for flag, key := range strs {
		if cmd.IsSet(flag) {
			overrides[key] = cmd.String(flag)
		}
	}
	if cmd.IsSet("port") {
		overrides["port"] = int(cmd.Int("port"))
	}
	if cmd.IsSet("ngrok") {
		overrides["ngrok.enabled"] = cmd.Bool("ngrok")
	}
	if cmd.Bool("debug") {
		overrides["log_level"] = "debug"
	}
	return overrides
}

func setup(cmd *cli.Command, mode string) (*Settings, zerolog.Logger, error) {
	settings, err := loadSettings(cmd.String("settings-dir"), flagOverrides(cmd))
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	// stdout belongs to the MCP protocol in stdio mode
	log := newLogger(settings.LogLevel, os.Stderr)
	log.Info().Str("version", Version).Str("mode", mode).Msgf("Starting %s", AppName)
	return settings, log, nil
}

func serverAction(ctx context.Context, cmd *cli.Command) error {
	settings, log, err := setup(cmd, "server")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := initializeServices(ctx, settings, log)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer app.Close()

	return runHTTPServer(ctx, app, settings, log)
}

func stdioAction(ctx context.Context, cmd *cli.Command) error {
	settings, log, err := setup(cmd, "stdio-mcp")
	if err != nil {
		return err
	}

	app, err := initializeServices(ctx, settings, log)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer app.Close()

	return runStdioMCPWithInternalServer(ctx, app, settings, log)
}

// application holds the wired services for one process
type application struct {
	service  service.SimService
	sessions *session.Manager
	store    session.SessionPersistence
	hub      *websocket.Hub
	handler  http.Handler
	closers  []io.Closer
}

// Close flushes sessions and releases the store
func (a *application) Close() error {
	err := a.sessions.SaveAllSessions()
	for _, c := range a.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// openStore creates the configured session persistence
func openStore(settings *Settings, configs *config.Manager, log zerolog.Logger) (session.SessionPersistence, io.Closer, error) {
	storeLog := log.With().Str("component", "store").Str("store", settings.Store).Logger()
	switch settings.Store {
	case "sqlite":
		p, err := session.NewSQLPersistence(settings.SQLitePath, configs, storeLog)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	default:
		p, err := session.NewFilePersistence(settings.SessionsDir, configs, storeLog)
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	}
}

// initializeServices wires configs, persistence, sessions, the service and
// the WebSocket hub. Background routines stop when ctx is done.
func initializeServices(ctx context.Context, settings *Settings, log zerolog.Logger) (*application, error) {
	configManager, err := config.NewManager(settings.ConfigDir,
		config.WithLogger(log.With().Str("component", "config").Logger()))
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, closer, err := openStore(settings, configManager, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence,
		session.WithBaseDir(configManager.BaseDir()),
		session.WithLogger(log.With().Str("component", "sessions").Logger()))

	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Warn().Err(err).Msg("Failed to load persisted sessions")
	}

	var svc service.SimService
	hub := websocket.NewHub(
		websocket.WithLogger(log.With().Str("component", "websocket").Logger()),
		websocket.WithInputHandler(func(ctx context.Context, sessionID string, in engine.Input) error {
			return svc.SetInput(ctx, sessionID, in)
		}),
	)
	svc = service.NewSimService(sessionManager, configManager,
		service.WithNotifier(hub),
		service.WithLogger(log.With().Str("component", "service").Logger()))

	opts := []api.Option{api.WithLogger(log.With().Str("component", "api").Logger())}
	if info, err := os.Stat(settings.StaticDir); err == nil && info.IsDir() {
		opts = append(opts, api.WithStaticDir(settings.StaticDir))
	}

	app := &application{
		service:  svc,
		sessions: sessionManager,
		store:    persistence,
		hub:      hub,
		handler:  api.NewServer(svc, hub, opts...),
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}

	go hub.Run(ctx)
	go sessionCleanupRoutine(ctx, sessionManager, settings.SessionTTL, settings.CleanupInterval, log)
	go filesystemSyncRoutine(ctx, sessionManager, persistence, settings.SyncInterval, log)

	return app, nil
}

// mcpHandler serves single JSON-RPC messages over HTTP POST
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	}
}

// runHTTPServer serves the REST API, WebSocket hub and /mcp endpoint until
// ctx is done. If ngrok is enabled it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, app *application, settings *Settings, log zerolog.Logger) error {
	addr := settings.Addr()
	mcpClient := mcp.NewClient("http://" + addr)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", app.handler)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info().
			Str("addr", addr).
			Str("api", "http://"+addr+"/api").
			Str("websocket", "ws://"+addr+"/ws?sessionId=<session_id>").
			Str("mcp", "http://"+addr+"/mcp").
			Msg("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if settings.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, settings.Ngrok, mainRouter, log.With().Str("component", "ngrok").Logger())
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down...")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info().Msg("Server stopped")
	return runErr
}

func runNgrokTunnel(ctx context.Context, settings NgrokSettings, handler http.Handler, log zerolog.Logger) {
	if settings.AuthToken == "" {
		log.Warn().Msg("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Info().Msg("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if settings.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.Domain))
		log.Info().Str("domain", settings.Domain).Msg("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(settings.AuthToken))
	if err != nil {
		log.Error().Err(err).Msg("Failed to start ngrok tunnel")
		return
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close ngrok tunnel")
		}
	}()

	url := tun.URL()
	log.Info().
		Str("url", url).
		Str("api", url+"/api").
		Str("websocket", strings.Replace(url, "https://", "wss://", 1)+"/ws?sessionId=<session_id>").
		Str("mcp", url+"/mcp").
		Msg("Ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		log.Error().Err(err).Msg("Ngrok server error")
	}
	log.Info().Msg("Ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within ttl.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, ttl, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.Info().Int("removed", removed).Msg("Cleaned up expired sessions")
			}
		}
	}
}

// syncWithStore drops in-memory sessions whose stored copy was removed
// out of band. It returns how many were pruned.
func syncWithStore(manager *session.Manager, persistence session.SessionPersistence, log zerolog.Logger) int {
	pruned := 0
	for _, s := range manager.List() {
		if persistence.Exists(s.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(s.ID); err == nil {
			pruned++
			log.Info().Str("session", s.ID).Msg("Pruned session from memory (store entry deleted)")
		}
	}
	return pruned
}

func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, interval time.Duration, log zerolog.Logger) {
	if persistence == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := syncWithStore(manager, persistence, log); pruned > 0 {
				log.Info().Int("pruned", pruned).Msg("Store sync pruned orphaned sessions")
			}
		}
	}
}

// apiAvailable reports whether a Sea Drive API answers at baseURL
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCPWithInternalServer runs an MCP stdio server. It reuses an
// external API when one answers at settings.APIURL; otherwise it serves the
// local services on a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, app *application, settings *Settings, log zerolog.Logger) error {
	baseURL := strings.TrimSuffix(settings.APIURL, "/")
	log.Info().Str("url", baseURL).Msg("Checking for external API server")

	if apiAvailable(ctx, baseURL) {
		log.Info().Str("url", baseURL).Msg("External API server found, using it for MCP")
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		httpServer := &http.Server{Handler: app.handler}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("Internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		log.Info().Str("url", baseURL).Msg("Started internal HTTP server for MCP stdio")
	}

	log.Info().Msg("MCP stdio server ready")
	if err := mcp.NewClient(baseURL).Run(); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
