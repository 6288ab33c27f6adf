// Package api serves the colony engine over HTTP. GET endpoints are
// public read-only observation; POST endpoints mutate planet state and
// require a bearer token.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Interstitch/Sectorwars2102-sub006/internal/colony"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/engine"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/events"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/galaxy"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/persistence"
)

// Server serves colony state and operations over HTTP.
type Server struct {
	Engine   *engine.Engine
	DB       *persistence.DB
	Galaxy   *galaxy.Directory
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	started time.Time
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	handler := s.Handler()
	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	s.started = time.Now()
	postLimiter := NewRateLimiter(5, 10)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/planets", s.handlePlanets)
	mux.HandleFunc("/api/v1/planet/", s.handlePlanetRoutes(postLimiter))
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/sector/", s.handleSector)

	// Genesis deployment (POST, bearer token).
	mux.HandleFunc("/api/v1/genesis", s.adminOnly(RateLimitMiddleware(postLimiter, s.handleGenesis)))

	// Live event feed (websocket).
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	return mux
}

// adminOnly requires a bearer token matching AdminKey on POST handlers.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "mutating endpoints disabled", http.StatusForbidden)
			return
		}
		auth := r.Header.Get("Authorization")
		if auth != "Bearer "+s.AdminKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

// writeError maps the colony error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case colony.IsNotFound(err):
		status = http.StatusNotFound
	case colony.KindOf(err) == colony.KindValidation:
		status = http.StatusBadRequest
	case colony.KindOf(err) == colony.KindConflict:
		status = http.StatusConflict
	case colony.KindOf(err) == colony.KindResource:
		status = http.StatusPaymentRequired
	case colony.KindOf(err) == colony.KindStateTransition:
		status = http.StatusUnprocessableEntity
	case colony.KindOf(err) == colony.KindInfrastructure:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"error":     err.Error(),
		"kind":      colony.KindOf(err).String(),
		"retryable": colony.IsRetryable(err),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sectors := 0
	if s.Galaxy != nil {
		sectors = s.Galaxy.Count()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"planets":        s.Engine.Store().Count(),
		"sectors":        sectors,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"events_dropped": s.Engine.Bus().Dropped(),
	})
}

func (s *Server) handlePlanets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.Engine.Store().Snapshots())
}

// handlePlanetRoutes dispatches /api/v1/planet/{id}[/subresource].
func (s *Server) handlePlanetRoutes(limiter *RateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/v1/planet/")
		parts := strings.SplitN(rest, "/", 2)
		planetID := parts[0]
		sub := ""
		if len(parts) == 2 {
			sub = parts[1]
		}
		if planetID == "" {
			http.Error(w, "planet id required", http.StatusBadRequest)
			return
		}

		if r.Method == http.MethodGet {
			s.handlePlanetGet(w, r, planetID, sub)
			return
		}
		if r.Method == http.MethodPost {
			s.adminOnly(RateLimitMiddleware(limiter, func(w http.ResponseWriter, r *http.Request) {
				s.handlePlanetPost(w, r, planetID, sub)
			}))(w, r)
			return
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePlanetGet(w http.ResponseWriter, r *http.Request, planetID, sub string) {
	switch sub {
	case "":
		p, err := s.Engine.GetPlanet(r.Context(), planetID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case "siege":
		siege, err := s.Engine.GetSiegeStatus(r.Context(), planetID)
		if err != nil {
			writeError(w, err)
			return
		}
		if siege == nil {
			writeJSON(w, http.StatusOK, map[string]any{"siege": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"siege": siege})
	default:
		http.Error(w, "unknown resource", http.StatusNotFound)
	}
}

func (s *Server) handlePlanetPost(w http.ResponseWriter, r *http.Request, planetID, sub string) {
	switch sub {
	case "allocation":
		var req struct {
			Resource string `json:"resource"`
			Value    int    `json:"value"`
		}
		if !decode(w, r, &req) {
			return
		}
		resource, err := colony.ParseResource(req.Resource)
		if err != nil {
			writeError(w, colony.WrapError(colony.KindValidation, planetID, "set_allocation", err))
			return
		}
		s.run(w, r, planetID, func() error {
			return s.Engine.SetAllocation(r.Context(), planetID, resource, req.Value)
		})

	case "preset":
		var req struct {
			Preset string `json:"preset"`
		}
		if !decode(w, r, &req) {
			return
		}
		preset, err := engine.ParsePreset(req.Preset)
		if err != nil {
			writeError(w, colony.WrapError(colony.KindValidation, planetID, "apply_preset", err))
			return
		}
		s.run(w, r, planetID, func() error {
			return s.Engine.ApplyPreset(r.Context(), planetID, preset)
		})

	case "specialization":
		var req struct {
			Specialization string `json:"specialization"`
		}
		if !decode(w, r, &req) {
			return
		}
		spec, err := colony.ParseSpecialization(req.Specialization)
		if err != nil {
			writeError(w, colony.WrapError(colony.KindValidation, planetID, "set_specialization", err))
			return
		}
		s.run(w, r, planetID, func() error {
			return s.Engine.SetSpecialization(r.Context(), planetID, spec)
		})

	case "upgrade":
		var req struct {
			Building string `json:"building"`
		}
		if !decode(w, r, &req) {
			return
		}
		building, err := colony.ParseBuildingType(req.Building)
		if err != nil {
			writeError(w, colony.WrapError(colony.KindValidation, planetID, "request_upgrade", err))
			return
		}
		s.run(w, r, planetID, func() error {
			return s.Engine.RequestUpgrade(r.Context(), planetID, building)
		})

	case "defenses":
		var req colony.Defenses
		if !decode(w, r, &req) {
			return
		}
		s.run(w, r, planetID, func() error {
			return s.Engine.SetDefenses(r.Context(), planetID, req)
		})

	case "siege/initiate":
		var req struct {
			AttackerID  string `json:"attacker_id"`
			AttackPower int    `json:"attack_power"`
		}
		if !decode(w, r, &req) {
			return
		}
		s.run(w, r, planetID, func() error {
			return s.Engine.InitiateSiege(r.Context(), planetID, req.AttackerID, req.AttackPower)
		})

	case "siege/action":
		var req struct {
			Action string `json:"action"`
		}
		if !decode(w, r, &req) {
			return
		}
		action, err := colony.ParseDefenseAction(req.Action)
		if err != nil {
			writeError(w, colony.WrapError(colony.KindValidation, planetID, "issue_defense_action", err))
			return
		}
		success, err := s.Engine.IssueDefenseAction(r.Context(), planetID, action)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": success})

	default:
		http.Error(w, "unknown resource", http.StatusNotFound)
	}
}

// run executes a mutating op and returns the fresh planet snapshot.
func (s *Server) run(w http.ResponseWriter, r *http.Request, planetID string, fn func() error) {
	if err := fn(); err != nil {
		writeError(w, err)
		return
	}
	p, err := s.Engine.GetPlanet(r.Context(), planetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGenesis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		SectorID uint64 `json:"sector_id"`
		Name     string `json:"name"`
		Type     string `json:"type"`
		OwnerID  string `json:"owner_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	ptype, err := colony.ParsePlanetType(req.Type)
	if err != nil {
		writeError(w, colony.WrapError(colony.KindValidation, "", "deploy_genesis", err))
		return
	}

	id, err := s.Engine.DeployGenesis(r.Context(), req.SectorID, req.Name, ptype, req.OwnerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"planet_id": id})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	if s.DB == nil {
		writeJSON(w, http.StatusOK, []events.Event{})
		return
	}
	evs, err := s.DB.RecentEvents(limit)
	if err != nil {
		http.Error(w, "event log unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, evs)
}

func (s *Server) handleSector(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/api/v1/sector/")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		http.Error(w, "bad sector id", http.StatusBadRequest)
		return
	}
	if s.Galaxy == nil {
		http.Error(w, "sector directory unavailable", http.StatusServiceUnavailable)
		return
	}
	sector, ok := s.Galaxy.Lookup(id)
	if !ok {
		http.Error(w, "sector not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sector)
}

// decode parses a JSON request body, replying 400 on malformed input.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return false
	}
	return true
}
