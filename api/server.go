package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/klondike/game/config"
	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
	"github.com/wricardo/klondike/transport/websocket"
	"go.uber.org/zap"
)

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithContext bounds background auto-solve runs; cancelling it stops them
func WithContext(ctx context.Context) Option {
	return func(s *Server) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	logger  *zap.Logger
	ctx     context.Context
}

// NewServer creates a new API server. hub may be nil.
func NewServer(gameService service.GameService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  zap.NewNop(),
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game state
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/snapshot", s.handleGetSnapshot).Methods("GET")
	api.HandleFunc("/sessions/{id}/hints", s.handleGetHints).Methods("GET")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Game operations
	api.HandleFunc("/sessions/{id}/deal", s.handleDeal).Methods("POST")
	api.HandleFunc("/sessions/{id}/move", s.handleMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/auto-move", s.handleAutoMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/draw", s.handleDraw).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset-deck", s.handleResetDeck).Methods("POST")
	api.HandleFunc("/sessions/{id}/undo", s.handleUndo).Methods("POST")
	api.HandleFunc("/sessions/{id}/drag", s.handleDrag).Methods("POST")
	api.HandleFunc("/sessions/{id}/tick", s.handleTick).Methods("POST")
	api.HandleFunc("/sessions/{id}/auto-solve", s.handleAutoSolve).Methods("POST")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service and config errors to status codes
func respondServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrConfigNotAvailable),
		errors.Is(err, config.ErrConfigNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, engine.ErrInvalidRules):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrAutoSolveRunning):
		status = http.StatusConflict
	}
	respondError(w, status, err.Error())
}

// decodeOptional decodes a JSON body if one was sent
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// broadcast pushes the new state, and a won event when the request finished the game
func (s *Server) broadcast(sessionID string, result *service.ActionResult) {
	if s.hub == nil || result == nil || result.GameState == nil {
		return
	}
	s.hub.BroadcastToSession(sessionID, result.GameState)
	for _, ev := range result.Events {
		if ev.Type == service.EventWon {
			s.hub.BroadcastEvent(sessionID, websocket.EventWon, result.GameState, ev)
		}
	}
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSessionRequest
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := s.service.CreateSession(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default)
	limitStr := query.Get("limit") // number of sessions to return

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

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game State Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.service.GetSnapshot(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleGetHints(w http.ResponseWriter, r *http.Request) {
	hints, err := s.service.GetHints(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count": len(hints),
		"hints": hints,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
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

// Game Operation Handlers

// respondAction logs, broadcasts and writes the result of a state-changing request.
// Rejected moves are still 200 with success false.
func (s *Server) respondAction(w http.ResponseWriter, sessionID, op string, result *service.ActionResult, err error) {
	if err != nil {
		respondServiceError(w, err)
		return
	}

	fields := []zap.Field{
		zap.String("session", sessionID),
		zap.String("op", op),
		zap.Bool("success", result.Success),
	}
	if result.Action != nil {
		fields = append(fields, zap.Stringer("action", result.Action))
	}
	if result.GameState != nil {
		fields = append(fields, zap.Stringer("status", result.GameState.Status))
	}
	s.logger.Info("action", fields...)

	if result.Success {
		s.broadcast(sessionID, result)
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeal(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req service.DealRequest
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.NewDeal(r.Context(), sessionID, req)
	s.respondAction(w, sessionID, "deal", result, err)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req service.MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Card == "" || req.From == "" || req.To == "" {
		respondError(w, http.StatusBadRequest, "card, from and to are required")
		return
	}

	result, err := s.service.Move(r.Context(), sessionID, req)
	s.respondAction(w, sessionID, "move", result, err)
}

func (s *Server) handleAutoMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req service.MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Card == "" || req.From == "" {
		respondError(w, http.StatusBadRequest, "card and from are required")
		return
	}

	result, err := s.service.AutoMove(r.Context(), sessionID, req)
	s.respondAction(w, sessionID, "auto-move", result, err)
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	result, err := s.service.Draw(r.Context(), sessionID)
	s.respondAction(w, sessionID, "draw", result, err)
}

func (s *Server) handleResetDeck(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	result, err := s.service.ResetDeck(r.Context(), sessionID)
	s.respondAction(w, sessionID, "reset-deck", result, err)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	result, err := s.service.Undo(r.Context(), sessionID)
	s.respondAction(w, sessionID, "undo", result, err)
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Dragging bool `json:"dragging"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := s.service.SetDragging(r.Context(), sessionID, req.Dragging)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		ElapsedMS int64 `json:"elapsed_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Tick(r.Context(), sessionID, time.Duration(req.ElapsedMS)*time.Millisecond)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if result.SolverMove != nil && s.hub != nil {
		s.hub.BroadcastEvent(sessionID, websocket.EventAutoSolveMove, result.GameState, result.SolverMove)
	}
	s.broadcast(sessionID, result)
	respondJSON(w, http.StatusOK, result)
}

// handleAutoSolve runs the solver in the background and streams each move over the
// hub. With ?wait=true it blocks and returns the summary instead.
func (s *Server) handleAutoSolve(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetGameState(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if state.Status != engine.AutoSolving {
		respondJSON(w, http.StatusOK, map[string]any{
			"started":    false,
			"message":    fmt.Sprintf("Game is %s; auto-solve starts once every card is face up", state.Status),
			"game_state": state,
		})
		return
	}

	onStep := func(move engine.SolverMove, st *engine.State) {
		if s.hub == nil {
			return
		}
		s.hub.BroadcastEvent(sessionID, websocket.EventAutoSolveMove, st, move)
		if st.Status == engine.Won {
			s.hub.BroadcastEvent(sessionID, websocket.EventWon, st, nil)
		}
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		result, err := s.service.RunAutoSolve(r.Context(), sessionID, onStep)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
		return
	}

	go func() {
		result, err := s.service.RunAutoSolve(s.ctx, sessionID, onStep)
		if err != nil {
			s.logger.Warn("auto-solve stopped", zap.String("session", sessionID), zap.Error(err))
			return
		}
		s.logger.Info("auto-solve complete",
			zap.String("session", sessionID),
			zap.Int("moves", len(result.Moves)),
			zap.Bool("won", result.Won))
		if s.hub != nil {
			s.hub.BroadcastToSession(sessionID, result.GameState)
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]any{
		"started": true,
		"message": "Auto-solve started; moves are pushed over /ws",
	})
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	rules, err := s.service.LoadConfig(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rules)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var rules engine.Rules
	if err := json.NewDecoder(r.Body).Decode(&rules); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(rules.Name) == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		id = slug(rules.Name)
	}

	if err := s.service.SaveConfig(r.Context(), id, &rules); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message":   "Configuration saved successfully",
		"config_id": id,
	})
}

// slug turns a display name into a preset id: "Triple Draw" -> "triple-draw"
func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	if s.hub == nil {
		http.Error(w, "websocket not enabled", http.StatusServiceUnavailable)
		return
	}

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, session.ID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
