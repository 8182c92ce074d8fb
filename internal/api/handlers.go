package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/zonewatch/zonewatch/internal/domain"
	"github.com/zonewatch/zonewatch/internal/ingest"
	"github.com/zonewatch/zonewatch/internal/storage"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// parseID parses an ID from the URL path
func parseID(req *http.Request, param string) (int64, error) {
	idStr := req.PathValue(param)
	return strconv.ParseInt(idStr, 10, 64)
}

// parseLimit reads the limit query parameter with a fallback
func parseLimit(req *http.Request, fallback int) int {
	if v := req.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// requireTenant reads the mandatory tenant query parameter
func requireTenant(w http.ResponseWriter, req *http.Request) (string, bool) {
	tenant := req.URL.Query().Get("tenant")
	if tenant == "" {
		writeError(w, http.StatusBadRequest, "tenant is required")
		return "", false
	}
	return tenant, true
}

// requireEntitled checks the subscription gate for a premium feature
func (r *Router) requireEntitled(w http.ResponseWriter, tenantID, feature string) bool {
	ok, err := r.gate.IsEntitled(tenantID, feature)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "entitlement check failed")
		return false
	}
	if !ok {
		writeError(w, http.StatusPaymentRequired, "feature requires a premium subscription")
		return false
	}
	return true
}

// handleGetServers returns all servers
func (r *Router) handleGetServers(w http.ResponseWriter, req *http.Request) {
	servers, err := r.store.ListServers(req.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, servers)
}

// handleGetServer returns a single server
func (r *Router) handleGetServer(w http.ResponseWriter, req *http.Request) {
	id, err := parseID(req, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid server id")
		return
	}

	server, err := r.store.GetServerByID(req.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, server)
}

// handleGetServerKills returns the newest kill records for a server
func (r *Router) handleGetServerKills(w http.ResponseWriter, req *http.Request) {
	id, err := parseID(req, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid server id")
		return
	}

	kills, err := r.store.ServerKills(req.Context(), id, parseLimit(req, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, kills)
}

// handleRefreshServer forces an immediate ingestion cycle for one server
// and stream, outside the scheduler's cadence.
func (r *Router) handleRefreshServer(w http.ResponseWriter, req *http.Request) {
	id, err := parseID(req, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid server id")
		return
	}

	streamParam := req.URL.Query().Get("stream")
	if streamParam == "" {
		streamParam = string(domain.StreamLog)
	}
	stream, err := domain.ParseStream(streamParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown stream")
		return
	}

	server, err := r.store.GetServerByID(req.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}

	n, err := r.runner.RunCycle(req.Context(), server, stream)
	if errors.Is(err, ingest.ErrCycleInFlight) {
		writeError(w, http.StatusConflict, "a cycle for this server is already running")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"events_processed": n})
}

// handleGetPlayers returns a tenant's players ordered by kills
func (r *Router) handleGetPlayers(w http.ResponseWriter, req *http.Request) {
	tenant, ok := requireTenant(w, req)
	if !ok {
		return
	}

	players, err := r.store.TopPlayers(req.Context(), tenant, parseLimit(req, 20))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, players)
}

// handleGetPlayer returns one player's aggregate stats
func (r *Router) handleGetPlayer(w http.ResponseWriter, req *http.Request) {
	tenant, ok := requireTenant(w, req)
	if !ok {
		return
	}

	player, err := r.store.FindPlayer(req.Context(), tenant, req.PathValue("name"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if player == nil {
		writeError(w, http.StatusNotFound, "player not found")
		return
	}
	writeJSON(w, http.StatusOK, player)
}

// handleGetKillfeed returns a tenant's recent kill records (premium)
func (r *Router) handleGetKillfeed(w http.ResponseWriter, req *http.Request) {
	tenant, ok := requireTenant(w, req)
	if !ok {
		return
	}
	if !r.requireEntitled(w, tenant, domain.FeatureKillfeed) {
		return
	}

	kills, err := r.store.RecentKills(req.Context(), tenant, parseLimit(req, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, kills)
}

// handleGetLeaderboard returns a tenant's leaderboard (premium)
func (r *Router) handleGetLeaderboard(w http.ResponseWriter, req *http.Request) {
	tenant, ok := requireTenant(w, req)
	if !ok {
		return
	}
	if !r.requireEntitled(w, tenant, domain.FeatureLeaderboard) {
		return
	}

	players, err := r.store.TopPlayers(req.Context(), tenant, parseLimit(req, 20))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type entry struct {
		Rank    int               `json:"rank"`
		Player  domain.PlayerStat `json:"player"`
		KDRatio float64           `json:"kd_ratio"`
	}
	entries := make([]entry, 0, len(players))
	for i, p := range players {
		entries = append(entries, entry{Rank: i + 1, Player: p, KDRatio: p.KDRatio()})
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleHealth is the liveness endpoint
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
