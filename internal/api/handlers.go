package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mattjoyce/kompozer/internal/komposition"
	"github.com/mattjoyce/kompozer/internal/planner"
)

// HealthzResponse is the GET /healthz body.
type HealthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// OperationsResponse is the GET /v1/operations body.
type OperationsResponse struct {
	Operations  []string `json:"operations"`
	Transitions []string `json:"transitions"`
	Effects     []string `json:"effects"`
}

// ValidateResponse is the POST /v1/validate body.
type ValidateResponse struct {
	Valid      bool                    `json:"valid"`
	Violations []komposition.Violation `json:"violations,omitempty"`
}

// ErrorResponse is the body of any failed request.
type ErrorResponse struct {
	Error      string                  `json:"error"`
	Stage      string                  `json:"stage,omitempty"`
	Violations []komposition.Violation `json:"violations,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
	})
}

func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, OperationsResponse{
		Operations:  s.cat.Operations(),
		Transitions: s.cat.Transitions(),
		Effects:     s.cat.Effects(),
	})
}

// handleValidate runs schema validation only. The response always carries
// the full violation list, never just the first problem.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	k, ok := s.readKomposition(w, r)
	if !ok {
		return
	}

	if err := komposition.Validate(k, s.cat); err != nil {
		var vErr *komposition.ValidationError
		if errors.As(err, &vErr) {
			s.writeJSON(w, http.StatusUnprocessableEntity, ValidateResponse{
				Valid:      false,
				Violations: vErr.Violations,
			})
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, ValidateResponse{Valid: true})
}

// handlePlan compiles the posted komposition. The X-Kompozer-Cache header
// reports whether the plan came from the fingerprint cache.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	k, ok := s.readKomposition(w, r)
	if !ok {
		return
	}

	if s.cache != nil {
		if fingerprint, err := k.Fingerprint(); err == nil {
			if cached, err := s.cache.Get(r.Context(), fingerprint); err == nil {
				w.Header().Set("X-Kompozer-Cache", "hit")
				s.writeJSON(w, http.StatusOK, cached)
				return
			}
		}
	}

	bp, err := s.compiler.Compile(r.Context(), k)
	if err != nil {
		s.writePlanError(w, err)
		return
	}

	if s.cache != nil {
		if err := s.cache.Put(r.Context(), bp); err != nil {
			s.logger.Warn("failed to cache plan", "plan_id", bp.PlanID, "error", err)
		}
	}

	w.Header().Set("X-Kompozer-Cache", "miss")
	s.writeJSON(w, http.StatusOK, bp)
}

func (s *Server) readKomposition(w http.ResponseWriter, r *http.Request) (*komposition.Komposition, bool) {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20))
	var doc json.RawMessage
	if err := dec.Decode(&doc); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}

	k, err := komposition.ParseJSON(doc)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed komposition: "+err.Error())
		return nil, false
	}
	return k, true
}

// writePlanError maps pipeline failures onto 422 with the failing stage.
func (s *Server) writePlanError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var sErr *planner.StageError
	if errors.As(err, &sErr) {
		resp.Stage = string(sErr.Stage)
	}
	var vErr *komposition.ValidationError
	if errors.As(err, &vErr) {
		resp.Violations = vErr.Violations
	}

	s.writeJSON(w, http.StatusUnprocessableEntity, resp)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
