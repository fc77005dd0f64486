// Command klondike starts the Klondike rules server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags (or the matching environment variables, also read from .env) control
// host/port, preset and session directories, debug logging, and optional ngrok
// tunneling for easy external access during development.
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
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/klondike/api"
	"github.com/wricardo/klondike/game/config"
	"github.com/wricardo/klondike/game/service"
	"github.com/wricardo/klondike/game/session"
	"github.com/wricardo/klondike/logging"
	"github.com/wricardo/klondike/transport/mcp"
	"github.com/wricardo/klondike/transport/websocket"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Klondike Rules Server"
)

// appConfig is the resolved set of flags and environment variables
type appConfig struct {
	Host        string
	Port        int
	ConfigDir   string
	SessionsDir string
	Debug       bool
	SessionTTL  time.Duration
	ExternalAPI string

	NgrokEnabled bool
	NgrokAuth    string
	NgrokDomain  string
}

func (c appConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "klondike",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing rule presets",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "sessions-dir",
				Value:   "sessions",
				Usage:   "Directory where sessions are persisted",
				Sources: cli.EnvVars("SESSIONS_DIR"),
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Value:   24 * time.Hour,
				Usage:   "Evict sessions from memory after this long without access",
				Sources: cli.EnvVars("SESSION_TTL"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  runServerCommand,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server, reusing an external API or starting an internal one",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://localhost:8080",
						Usage:   "External API to reuse when reachable",
						Sources: cli.EnvVars("KLONDIKE_API_URL"),
					},
				},
				Action: runStdioCommand,
			},
		},
		Action: runServerCommand,
	}
}

func configFromCommand(cmd *cli.Command) appConfig {
	return appConfig{
		Host:         cmd.String("host"),
		Port:         int(cmd.Int("port")),
		ConfigDir:    cmd.String("config-dir"),
		SessionsDir:  cmd.String("sessions-dir"),
		Debug:        cmd.Bool("debug"),
		SessionTTL:   cmd.Duration("session-ttl"),
		ExternalAPI:  cmd.String("api-url"),
		NgrokEnabled: cmd.Bool("ngrok"),
		NgrokAuth:    cmd.String("ngrok-auth"),
		NgrokDomain:  cmd.String("ngrok-domain"),
	}
}

// main loads .env and hands off to the CLI.
func main() {
	// Load .env file if it exists (ignore error if not found)
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if envErr != nil && !os.IsNotExist(envErr) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", envErr)
	}

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServerCommand(ctx context.Context, cmd *cli.Command) error {
	cfg := configFromCommand(cmd)
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting", zap.String("app", AppName), zap.String("version", Version), zap.String("mode", "server"))

	svcs, err := initializeServices(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svcs.shutdown()

	return runHTTPServer(ctx, cfg, svcs.game, logger)
}

func runStdioCommand(ctx context.Context, cmd *cli.Command) error {
	cfg := configFromCommand(cmd)
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting", zap.String("app", AppName), zap.String("version", Version), zap.String("mode", "stdio-mcp"))

	svcs, err := initializeServices(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svcs.shutdown()

	return runStdioMCPWithInternalServer(ctx, cfg, svcs.game, logger)
}

// newMCPHandler serves single JSON-RPC messages over HTTP POST
func newMCPHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRouter mounts the REST API at the root and the MCP proxy at /mcp
func newRouter(ctx context.Context, cfg appConfig, gameService service.GameService, hub *websocket.Hub, logger *zap.Logger) http.Handler {
	apiServer := api.NewServer(gameService, hub,
		api.WithLogger(logger.Named("api")),
		api.WithContext(ctx),
	)
	mcpClient := mcp.NewClient("http://" + cfg.addr())

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", newMCPHandler(mcpClient))
	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel. It returns once ctx is cancelled
// and the server has shut down.
func runHTTPServer(ctx context.Context, cfg appConfig, gameService service.GameService, logger *zap.Logger) error {
	hub := websocket.NewHub(websocket.WithLogger(logger.Named("ws")))
	go hub.Run(ctx)

	addr := cfg.addr()
	mainRouter := newRouter(ctx, cfg, gameService, hub, logger)

	// no WriteTimeout: auto-solve with ?wait=true holds the response open
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     mainRouter,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("api", fmt.Sprintf("http://%s/api", addr)),
			zap.String("ws", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)),
		)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	if cfg.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, cfg, mainRouter, logger.Named("ngrok"))
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	wg.Wait()
	logger.Info("server stopped")
	return nil
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is cancelled
func runNgrokTunnel(ctx context.Context, cfg appConfig, handler http.Handler, logger *zap.Logger) {
	if cfg.NgrokAuth == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		logger.Info("using custom ngrok domain", zap.String("domain", cfg.NgrokDomain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuth))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	// http.Serve only returns once the tunnel is closed
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("api", ngrokURL+"/api"),
		zap.String("ws", ngrokURL+"/ws?session=<session_id>"),
		zap.String("mcp", ngrokURL+"/mcp"),
	)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		logger.Warn("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// services bundles what initializeServices wires together
type services struct {
	game        service.GameService
	sessions    *session.Manager
	persistence *session.FilePersistence
	logger      *zap.Logger
}

// shutdown flushes every in-memory session to disk
func (s *services) shutdown() {
	if err := s.sessions.SaveAllSessions(); err != nil {
		s.logger.Warn("failed to save sessions on shutdown", zap.Error(err))
	}
}

// initializeServices wires config/session managers and the game service.
// It also starts background routines, bound to ctx, that prune stale sessions
// and resync memory with the sessions directory.
func initializeServices(ctx context.Context, cfg appConfig, logger *zap.Logger) (*services, error) {
	// Create config manager first (needed for persistence)
	configManager, err := config.NewManager(cfg.ConfigDir, config.WithLogger(logger.Named("config")))
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(cfg.SessionsDir, configManager,
		session.WithFileLogger(logger.Named("persistence")))
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence, session.WithLogger(logger.Named("session")))

	if err := sessionManager.LoadPersistedSessions(); err != nil {
		logger.Warn("failed to load persisted sessions", zap.Error(err))
	}

	gameService := service.NewGameService(sessionManager, configManager, service.WithLogger(logger.Named("service")))

	go sessionCleanupRoutine(ctx, sessionManager, cfg.SessionTTL, time.Hour, logger)
	go filesystemSyncRoutine(ctx, sessionManager, persistence, 5*time.Second, logger)

	return &services{game: gameService, sessions: sessionManager, persistence: persistence, logger: logger}, nil
}

// sessionCleanupRoutine periodically evicts sessions that have not been accessed
// within ttl. Evicted sessions stay on disk and reload on the next access.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, ttl, every time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				logger.Info("cleaned up expired sessions", zap.Int("count", removed))
			}
		}
	}
}

// filesystemSyncRoutine drops sessions from memory when their files are deleted.
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, every time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pruned := 0
		for _, s := range manager.List() {
			if !persistence.Exists(s.ID) {
				if err := manager.DeleteFromMemory(s.ID); err == nil {
					pruned++
					logger.Debug("pruned session from memory (file deleted)", zap.String("session_id", s.ID))
				}
			}
		}

		if pruned > 0 {
			logger.Info("filesystem sync pruned orphaned sessions", zap.Int("count", pruned))
		}
	}
}

// externalAPIAvailable reports whether a server answers /health at baseURL
func externalAPIAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API first; if unavailable, it starts a minimal
// internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, cfg appConfig, gameService service.GameService, logger *zap.Logger) error {
	baseURL := cfg.ExternalAPI

	if baseURL != "" && externalAPIAvailable(ctx, baseURL) {
		logger.Info("external API server found, using it for MCP", zap.String("url", baseURL))
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		internalAddr := listener.Addr().String()
		logger.Info("starting internal HTTP server for MCP stdio", zap.String("addr", internalAddr))

		hub := websocket.NewHub(websocket.WithLogger(logger.Named("ws")))
		go hub.Run(ctx)

		httpServer := &http.Server{
			Handler: api.NewServer(gameService, hub, api.WithLogger(logger.Named("api")), api.WithContext(ctx)),
		}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				logger.Error("internal HTTP server error", zap.Error(err))
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + internalAddr
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", zap.String("api", baseURL))

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
