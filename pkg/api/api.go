// Package api serves the scheduler's JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cass-sched/cass/pkg/carbon"
	"github.com/cass-sched/cass/pkg/clock"
	"github.com/cass-sched/cass/pkg/decision"
	"github.com/cass-sched/cass/pkg/decisionlog"
	"github.com/cass-sched/cass/pkg/failure"
	"github.com/cass-sched/cass/pkg/pareto"
	"github.com/cass-sched/cass/pkg/scheduler"
	"github.com/cass-sched/cass/pkg/scoring"
)

const (
	defaultLimit = 20
	maxLimit     = 1000
	defaultDays  = 7
)

// Ticker runs ticks on demand.
type Ticker interface {
	Tick(ctx context.Context) (*scheduler.TickResult, error)
	Last() *scheduler.TickResult
}

// CandidateSource returns the current eligible candidates.
type CandidateSource interface {
	Candidates(ctx context.Context) ([]decision.Candidate, map[string]carbon.Reading, error)
	Catalog() decision.Catalog
}

// Config wires the API to the scheduler's components.
type Config struct {
	Scheduler  Ticker
	Candidates CandidateSource
	Log        decisionlog.Log
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Server implements the HTTP handlers.
type Server struct {
	sched      Ticker
	candidates CandidateSource
	log        decisionlog.Log
	clock      clock.Clock
	logger     *slog.Logger
}

// NewServer creates an API server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Server{
		sched:      cfg.Scheduler,
		candidates: cfg.Candidates,
		log:        cfg.Log,
		clock:      clk,
		logger:     logger.With(slog.String("component", "api")),
	}
}

// Register adds the API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/tick", s.handleTick)
	mux.HandleFunc("GET /api/v1/last", s.handleLast)
	mux.HandleFunc("GET /api/v1/decisions", s.handleDecisions)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/regions", s.handleRegions)
	mux.HandleFunc("GET /api/v1/pareto", s.handlePareto)
}

// Handler returns a mux serving only the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// StatusFor maps an error to an HTTP status code.
func StatusFor(err error) int {
	switch failure.KindOf(err) {
	case failure.DataUnavailable:
		return http.StatusServiceUnavailable
	case failure.RetryExhausted, failure.TransientDispatchFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	res, err := s.sched.Tick(r.Context())
	if err != nil {
		s.logger.WarnContext(r.Context(), "on-demand tick failed", slog.String("error", err.Error()))
		// The tick result carries the decision and dispatch trace even
		// when dispatch was exhausted.
		writeJSON(w, StatusFor(err), res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLast(w http.ResponseWriter, r *http.Request) {
	res := s.sched.Last()
	if res == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "no tick has run yet"})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DecisionsResponse lists recent decisions, newest first.
type DecisionsResponse struct {
	Decisions []decisionlog.Record `json:"decisions"`
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultLimit)
	if err != nil || limit < 1 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
		return
	}
	limit = min(limit, maxLimit)

	recs, err := s.log.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []decisionlog.Record{}
	}
	writeJSON(w, http.StatusOK, DecisionsResponse{Decisions: recs})
}

// StatsResponse summarizes the decisions of the last Days days.
type StatsResponse struct {
	Days  int       `json:"days"`
	Since time.Time `json:"since"`
	decisionlog.Summary
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", defaultDays)
	if err != nil || days < 1 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "days must be a positive integer"})
		return
	}

	resp, err := Stats(r.Context(), s.log, s.clock.Now(), days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Stats summarizes the decisions logged in the days before now.
func Stats(ctx context.Context, log decisionlog.Log, now time.Time, days int) (*StatsResponse, error) {
	since := now.Add(-time.Duration(days) * 24 * time.Hour)
	recs, err := log.Since(ctx, since)
	if err != nil {
		return nil, err
	}
	return &StatsResponse{Days: days, Since: since, Summary: decisionlog.Summarize(recs)}, nil
}

// RegionsResponse is the current candidate set.
type RegionsResponse struct {
	Candidates []decision.Candidate      `json:"candidates"`
	Readings   map[string]carbon.Reading `json:"readings"`
	Missing    []string                  `json:"missing,omitempty"`
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	resp, err := Regions(r.Context(), s.candidates)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Regions fetches the current candidates and lists catalog regions that
// had no carbon reading.
func Regions(ctx context.Context, src CandidateSource) (*RegionsResponse, error) {
	cands, snapshot, err := src.Candidates(ctx)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, code := range src.Catalog().Codes() {
		if _, ok := snapshot[code]; !ok {
			missing = append(missing, code)
		}
	}
	return &RegionsResponse{Candidates: cands, Readings: snapshot, Missing: missing}, nil
}

// ParetoResponse is the trade-off between two objectives.
type ParetoResponse struct {
	X        string         `json:"x"`
	Y        string         `json:"y"`
	Points   []pareto.Point `json:"points"`
	Frontier []pareto.Point `json:"frontier"`
}

func (s *Server) handlePareto(w http.ResponseWriter, r *http.Request) {
	x, err := objectiveParam(r, "x", scoring.Carbon)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	y, err := objectiveParam(r, "y", scoring.Latency)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	cands, _, err := s.candidates.Candidates(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Pareto(cands, x, y))
}

// Pareto computes the trade-off view for cands.
func Pareto(cands []decision.Candidate, x, y scoring.Objective) ParetoResponse {
	points := make([]pareto.Point, len(cands))
	for i, c := range cands {
		points[i] = pareto.Point{Region: c.Region, Objective1: x.Value(c), Objective2: y.Value(c)}
	}
	frontier := pareto.Frontier(cands, x, y)
	if frontier == nil {
		frontier = []pareto.Point{}
	}
	return ParetoResponse{X: x.String(), Y: y.String(), Points: points, Frontier: frontier}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	kind := failure.KindOf(err)
	if status >= 500 {
		s.logger.WarnContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("kind", kind.String()),
			slog.String("error", err.Error()),
		)
	}
	resp := ErrorResponse{Error: err.Error()}
	if kind != failure.KindUnknown {
		resp.Kind = kind.String()
	}
	writeJSON(w, status, resp)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func objectiveParam(r *http.Request, name string, def scoring.Objective) (scoring.Objective, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return scoring.ParseObjective(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
