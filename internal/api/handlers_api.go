package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/lox/skycast/internal/dashboard"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) stateResponse(err error) StateResponse {
	st := s.dash.State()
	resp := StateResponse{State: st, Chart: chartFor(st.Snapshot)}
	if err != nil {
		resp.Reason = err.Error()
	}
	return resp
}

func (s *Server) handleAPIState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stateResponse(nil))
}

type searchRequest struct {
	City string `json:"city"`
}

func (s *Server) handleAPISearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	ctx, cancel := resolveContext(r)
	defer cancel()
	err := s.dash.RequestByCity(ctx, req.City)
	logOutcome("api search", err)
	writeJSON(w, statusFor(err), s.stateResponse(err))
}

func (s *Server) handleAPILocate(w http.ResponseWriter, r *http.Request) {
	var req locateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	ctx, cancel := resolveContext(r)
	defer cancel()
	err := s.locate(ctx, req)
	logOutcome("api locate", err)
	writeJSON(w, statusFor(err), s.stateResponse(err))
}

func (s *Server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.History())
}

func (s *Server) handleAPIResolutions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			http.Error(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = n
	}

	recent, err := s.store.RecentResolutions(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	stats, err := s.store.ResolutionStatsSince(r.Context(), time.Now().Add(-24*time.Hour))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := ResolutionsResponse{
		Stats:  stats,
		Recent: make([]ResolutionView, 0, len(recent)),
	}
	for _, rec := range recent {
		resp.Recent = append(resp.Recent, newResolutionView(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version, err := s.store.MigrationVersion()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "error": err.Error()})
		return
	}

	st := s.dash.State()
	health := HealthStatus{
		Status:      "ok",
		Phase:       st.Phase.String(),
		LastUpdated: st.UpdatedAt,
		Schema:      version,
	}
	if !st.UpdatedAt.IsZero() {
		health.AgeMinutes = int(time.Since(st.UpdatedAt).Minutes())
	}
	if st.Snapshot != nil {
		health.City = st.Snapshot.Current.City
	}
	if st.Phase == dashboard.PhaseFailed {
		health.Status = "degraded"
		health.Errors = append(health.Errors, st.Error)
	}

	writeJSON(w, http.StatusOK, health)
}
