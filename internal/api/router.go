package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/zonewatch/zonewatch/internal/auth"
	"github.com/zonewatch/zonewatch/internal/domain"
	"github.com/zonewatch/zonewatch/internal/ingest"
	"github.com/zonewatch/zonewatch/internal/storage"
)

// Router holds the HTTP routes and dependencies
type Router struct {
	mux     *http.ServeMux
	store   *storage.Store
	runner  *ingest.Runner
	gate    domain.Entitlements
	wsHub   *WebSocketHub
	auth    *auth.Service
	log     zerolog.Logger
}

// NewRouter creates a new HTTP router
func NewRouter(store *storage.Store, runner *ingest.Runner, gate domain.Entitlements, authService *auth.Service, log zerolog.Logger) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		store:  store,
		runner: runner,
		gate:   gate,
		wsHub:  NewWebSocketHub(log),
		auth:   authService,
		log:    log,
	}

	// API routes
	r.mux.HandleFunc("GET /api/servers", r.handleGetServers)
	r.mux.HandleFunc("GET /api/servers/{id}", r.handleGetServer)
	r.mux.HandleFunc("GET /api/servers/{id}/kills", r.handleGetServerKills)
	r.mux.HandleFunc("POST /api/servers/{id}/refresh", r.requireAdmin(r.handleRefreshServer))

	r.mux.HandleFunc("GET /api/players", r.handleGetPlayers)
	r.mux.HandleFunc("GET /api/players/{name}", r.handleGetPlayer)

	r.mux.HandleFunc("GET /api/killfeed", r.handleGetKillfeed)
	r.mux.HandleFunc("GET /api/stats/top", r.handleGetLeaderboard)

	// Auth routes
	r.mux.HandleFunc("POST /api/auth/login", r.handleLogin)
	r.mux.HandleFunc("POST /api/auth/logout", r.handleLogout)
	r.mux.HandleFunc("GET /api/auth/check", r.handleAuthCheck)
	r.mux.HandleFunc("POST /api/auth/change-password", r.requireAuth(r.handleChangePassword))

	// WebSocket endpoint
	r.mux.HandleFunc("GET /ws", r.handleWebSocket)

	// Health check
	r.mux.HandleFunc("GET /health", r.handleHealth)

	return r
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// CORS headers for API
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if req.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.mux.ServeHTTP(w, req)
}

// Hub returns the WebSocket hub so it can be wired as an event sink.
func (r *Router) Hub() *WebSocketHub {
	return r.wsHub
}

// StartWebSocketHub starts broadcasting events to WebSocket clients
func (r *Router) StartWebSocketHub() {
	go r.wsHub.Run()
}
