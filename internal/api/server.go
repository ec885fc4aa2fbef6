// Package api provides the HTTP API for observing a run.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/stormfield/internal/agents"
	"github.com/talgya/stormfield/internal/config"
	"github.com/talgya/stormfield/internal/engine"
	"github.com/talgya/stormfield/internal/persistence"
	"github.com/talgya/stormfield/internal/world"
)

// DefaultMaxStreamConns is the per-IP websocket cap when none is configured.
const DefaultMaxStreamConns = 4

// Server serves the run state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB // Optional; /runs is empty without it
	Hub      *Hub            // Optional; /stream is disabled without it
	Addr     string
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	MaxStreamConns int // Per-IP websocket cap

	upgrader websocket.Upgrader
	streams  *ConnLimiter
}

// Handler builds the routing table.
func (s *Server) Handler() http.Handler {
	maxConns := s.MaxStreamConns
	if maxConns == 0 {
		maxConns = DefaultMaxStreamConns
	}
	s.streams = NewConnLimiter(maxConns)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only
	}
	adminLimiter := NewRateLimiter(60, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/agent/{id}", s.handleAgentDetail)
	mux.HandleFunc("/api/v1/resources", s.handleResources)
	mux.HandleFunc("/api/v1/ledger", s.handleLedger)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)

	// Observer stream (websocket, loopback only).
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", RateLimitMiddleware(adminLimiter, s.adminOnly(s.handleSpeed)))
	mux.HandleFunc("/api/v1/storm", RateLimitMiddleware(adminLimiter, s.adminOnly(s.handleStorm)))

	return corsMiddleware(mux)
}

// Serve listens on Addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", s.Addr, "admin_auth", s.AdminKey != "", "stream", s.Hub != nil)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP shutdown", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no "+config.AdminKeyEnv+" set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	status := map[string]any{
		"name":      "Stormfield",
		"run_id":    snap.RunID,
		"tick":      snap.Tick,
		"storm":     snap.Storm,
		"agents":    len(snap.Agents),
		"delivered": snap.Delivered,
		"remaining": snap.Remaining,
		"finished":  s.Sim.Finished(),
		"stats":     snap.Stats,
	}
	if s.Eng != nil {
		status["speed"] = s.Eng.Speed()
	}
	if s.Hub != nil {
		status["observers"] = s.Hub.Subscribers()
	}
	writeJSON(w, status)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	views := s.Sim.Snapshot().Agents
	v := r.URL.Query().Get("variant")
	if v == "" {
		writeJSON(w, views)
		return
	}

	variant, err := agents.ParseVariant(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result := []agents.AgentView{}
	for _, a := range views {
		if a.Variant == variant.String() {
			result = append(result, a)
		}
	}
	writeJSON(w, result)
}

func (s *Server) handleAgentDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}
	detail, ok := s.Sim.Agent(agents.AgentID(id))
	if !ok {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, detail)
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	all := s.Sim.Resources()
	kind := r.URL.Query().Get("kind")
	onlyRemaining := r.URL.Query().Get("remaining") == "true"
	if kind == "" && !onlyRemaining {
		writeJSON(w, all)
		return
	}

	var want *world.ResourceKind
	if kind != "" {
		k, err := world.ParseKind(kind)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		want = &k
	}
	result := []engine.ResourceView{}
	for _, res := range all {
		if want != nil && res.Kind != *want {
			continue
		}
		if onlyRemaining && res.Collected {
			continue
		}
		result = append(result, res)
	}
	writeJSON(w, result)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	type agentLedger struct {
		ID        agents.AgentID             `json:"id"`
		Name      string                     `json:"name"`
		Variant   string                     `json:"variant"`
		Value     int                        `json:"value"`
		Delivered map[world.ResourceKind]int `json:"delivered"`
	}

	snap := s.Sim.Snapshot()
	rows := make([]agentLedger, 0, len(snap.Agents))
	for _, a := range snap.Agents {
		t := snap.Ledger[a.ID]
		rows = append(rows, agentLedger{
			ID:        a.ID,
			Name:      a.Name,
			Variant:   a.Variant,
			Value:     t.Value,
			Delivered: t.Count,
		})
	}

	writeJSON(w, map[string]any{
		"tick":       snap.Tick,
		"total":      snap.Delivered,
		"agents":     rows,
		"deliveries": s.Sim.Deliveries(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= engine.MaxEvents {
			limit = n
		}
	}

	events := s.Sim.RecentEvents(0)
	if cat := r.URL.Query().Get("category"); cat != "" {
		filtered := []engine.Event{}
		for _, e := range events {
			if e.Category == cat {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	writeJSON(w, events[start:])
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeJSON(w, []persistence.Run{})
		return
	}
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	runs, err := s.DB.RecentRuns(limit)
	if err != nil {
		slog.Error("list runs", "error", err)
		http.Error(w, "archive unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "engine not attached", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleStorm(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Active *bool `json:"active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
			http.Error(w, `body must be {"active": true|false}`, http.StatusBadRequest)
			return
		}
		s.Sim.SetStorm(*req.Active)
		slog.Info("storm forced", "active", *req.Active)
	}

	writeJSON(w, s.Sim.Snapshot().Storm)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.Hub == nil {
		http.Error(w, "streaming disabled", http.StatusForbidden)
		return
	}
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	ip := clientIP(r)
	if !s.streams.Acquire(ip) {
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer s.streams.Release(ip)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	subID, ch, ok := s.Hub.Subscribe()
	if !ok {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "run finished"), time.Now().Add(time.Second))
		return
	}
	defer s.Hub.Unsubscribe(subID)
	slog.Info("stream client connected", "sub", subID, "ip", ip)

	// Reader: observers send nothing, but reading surfaces the close frame.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case b, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"), time.Now().Add(time.Second))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-gone:
			slog.Info("stream client disconnected", "sub", subID)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
