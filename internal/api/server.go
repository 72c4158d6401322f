// Package api exposes the resolver, proximity, affordability, and
// scoring operations over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/flatfind-sg/flatfind-cli/internal/afford"
	"github.com/flatfind-sg/flatfind-cli/internal/geocode"
	"github.com/flatfind-sg/flatfind-cli/internal/proximity"
	"github.com/flatfind-sg/flatfind-cli/internal/scorer"
	"github.com/flatfind-sg/flatfind-cli/internal/store"
)

// Server wires the core services into HTTP handlers. Store may be nil,
// in which case the run endpoints report 503 and score requests cannot
// be saved.
type Server struct {
	Index          *geocode.Index
	Engine         *proximity.Engine
	Scorer         *scorer.Scorer
	Store          store.Store
	Weights        scorer.Weights
	AllowedOrigins []string
}

// Router builds the chi handler with CORS and request-ID middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	origins := s.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/resolve", s.handleResolve)
		r.Get("/distances", s.handleDistances)
		r.Post("/affordability", s.handleAffordability)
		r.Post("/score", s.handleScore)
		r.Get("/towns", s.handleTowns)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		zap.L().Debug("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	block, street := q.Get("block"), q.Get("street")
	if block == "" || street == "" {
		writeError(w, http.StatusBadRequest, "block and street are required")
		return
	}

	pt, err := s.Index.Lookup(block, street, q.Get("town"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if pt == nil {
		writeError(w, http.StatusNotFound, "address not found")
		return
	}
	writeJSON(w, http.StatusOK, pt)
}

func (s *Server) handleDistances(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	block, street, town := q.Get("block"), q.Get("street"), q.Get("town")
	if block == "" || street == "" {
		writeError(w, http.StatusBadRequest, "block and street are required")
		return
	}

	pt, err := s.Index.Lookup(block, street, town)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if pt == nil {
		writeError(w, http.StatusNotFound, "address not found")
		return
	}

	d, err := s.Engine.DistancesFor(geocode.ExactKey(block, street, town), *pt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleAffordability(w http.ResponseWriter, r *http.Request) {
	var in afford.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.Price <= 0 {
		writeError(w, http.StatusBadRequest, "price must be > 0")
		return
	}
	writeJSON(w, http.StatusOK, afford.Evaluate(in))
}

// ScoreRequest is the POST /v1/score payload. Weights fall back to the
// server's configured vector when omitted.
type ScoreRequest struct {
	Candidates []scorer.Candidate `json:"candidates"`
	Weights    *scorer.Weights    `json:"weights,omitempty"`
	Profile    *scorer.Profile    `json:"profile,omitempty"`
	FlatType   string             `json:"flat_type,omitempty"`
	Towns      []string           `json:"towns,omitempty"`
	Save       bool               `json:"save,omitempty"`
}

// ScoreResponse carries the ranked results and, when the run was
// persisted, its ID.
type ScoreResponse struct {
	Results []scorer.ScoreResult `json:"results"`
	RunID   string               `json:"run_id,omitempty"`
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Candidates) == 0 {
		writeError(w, http.StatusBadRequest, "candidates are required")
		return
	}

	weights := s.Weights
	if req.Weights != nil {
		weights = *req.Weights
	}

	results, err := s.Scorer.ScoreBatch(r.Context(), req.Candidates, weights, req.Profile)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := ScoreResponse{Results: results}
	if req.Save {
		if s.Store == nil {
			writeError(w, http.StatusServiceUnavailable, "no store configured")
			return
		}
		run, err := scorer.SaveRun(r.Context(), s.Store, req.Candidates, weights, req.Profile, req.FlatType, req.Towns, results)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.RunID = run.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTowns(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}

	towns, err := s.Store.DistinctTowns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"towns": towns})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := s.Store.ListScoreRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}

	run, err := s.Store.GetScoreRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}
