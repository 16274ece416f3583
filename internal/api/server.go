// Package api serves stored decode runs over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/rcintent/internal/config"
	"github.com/banshee-data/rcintent/internal/db"
	"github.com/banshee-data/rcintent/internal/httputil"
	"github.com/banshee-data/rcintent/internal/monitoring"
	"github.com/banshee-data/rcintent/internal/pipeline"
	"github.com/banshee-data/rcintent/internal/report"
	"github.com/banshee-data/rcintent/internal/security"
)

// ANSI escape codes for request logging
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

const defaultListLimit = 50

type Server struct {
	db *db.DB
	// cfg holds the server-wide decode settings requests may override.
	cfg *config.RunConfig
	// captureDir is where POST /api/runs may read captures from. Empty
	// disables decoding over HTTP.
	captureDir string
}

func NewServer(store *db.DB, cfg *config.RunConfig, captureDir string) *Server {
	if cfg == nil {
		cfg = config.EmptyRunConfig()
	}
	return &Server{db: store, cfg: cfg, captureDir: captureDir}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/", s.handleRunByID)
	mux.HandleFunc("/api/config", s.showConfig)
	return mux
}

// handleRuns handles GET and POST /api/runs
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listRuns(w, r)
	case http.MethodPost:
		s.createRun(w, r)
	default:
		httputil.MethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.BadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := s.db.ListRuns(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to list runs", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, runs)
}

// CreateRunRequest names a capture in the server's capture directory and
// optionally overrides decode settings for this run.
type CreateRunRequest struct {
	File string `json:"file"`
	config.RunConfig
}

// CreateRunResponse is returned when a capture has been decoded and stored.
type CreateRunResponse struct {
	ID     string          `json:"run_id"`
	Report []report.Entry  `json:"report"`
	Result *pipeline.Result `json:"result"`
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	if s.captureDir == "" {
		httputil.WriteJSONError(w, http.StatusForbidden, "decoding over HTTP is disabled")
		return
	}

	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}
	path, err := security.ResolveWithinDirectory(s.captureDir, req.File)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	cfg := *s.cfg
	cfg.Merge(&req.RunConfig)
	if err := cfg.Validate(); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	opts := pipeline.OptionsFromConfig(&cfg)
	opts.ShowFirst = 0
	res, err := pipeline.RunFile(r.Context(), path, opts)
	if errors.Is(err, pipeline.ErrNoFrames) {
		httputil.WriteJSONError(w, http.StatusUnprocessableEntity, fmt.Sprintf("%s: %v", req.File, err))
		return
	}
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("decode %s: %v", req.File, err))
		return
	}

	id, err := s.db.InsertRun(r.Context(), res)
	if err != nil {
		httputil.InternalServerError(w, "failed to store run", err)
		return
	}
	monitoring.Logf("decoded %s as run %s: %d frames", req.File, id, res.FramesDecoded)
	httputil.WriteJSON(w, http.StatusCreated, CreateRunResponse{ID: id, Report: report.Order(res.Counts), Result: res})
}

// handleRunByID handles /api/runs/:id, /api/runs/:id/events and
// /api/runs/:id/chart
func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/runs/"), "/")
	if len(parts) == 0 || parts[0] == "" || len(parts) > 2 {
		httputil.NotFound(w, "not found")
		return
	}
	id := parts[0]
	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		s.getRun(w, r, id)
	case sub == "" && r.Method == http.MethodDelete:
		s.deleteRun(w, r, id)
	case sub == "events" && r.Method == http.MethodGet:
		s.getRunEvents(w, r, id)
	case sub == "chart" && r.Method == http.MethodGet:
		s.getRunChart(w, r, id)
	case sub == "":
		httputil.MethodNotAllowed(w, http.MethodGet, http.MethodDelete)
	case sub == "events" || sub == "chart":
		httputil.MethodNotAllowed(w, http.MethodGet)
	default:
		httputil.NotFound(w, "not found")
	}
}

// RunDetail is the stored run with its report in display order.
type RunDetail struct {
	Run    db.Run         `json:"run"`
	Result *report.Export `json:"result"`
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request, id string) {
	run, err := s.db.GetRun(r.Context(), id)
	if s.runError(w, id, err) {
		return
	}
	res, err := s.db.LoadResult(r.Context(), id)
	if s.runError(w, id, err) {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RunDetail{Run: run, Result: report.NewExport(res, false)})
}

func (s *Server) deleteRun(w http.ResponseWriter, r *http.Request, id string) {
	if s.runError(w, id, s.db.DeleteRun(r.Context(), id)) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getRunEvents(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := s.db.GetRun(r.Context(), id); s.runError(w, id, err) {
		return
	}
	events, err := s.db.RunEvents(r.Context(), id)
	if s.runError(w, id, err) {
		return
	}
	out := make([]report.EventExport, 0, len(events))
	for _, ev := range events {
		out = append(out, report.EventExport{Timestamp: ev.Timestamp, Label: ev.Label})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) getRunChart(w http.ResponseWriter, r *http.Request, id string) {
	res, err := s.db.LoadResult(r.Context(), id)
	if s.runError(w, id, err) {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.URL.Query().Get("download") != "" {
		name := security.SanitizeFilename(strings.TrimSuffix(res.Source, filepath.Ext(res.Source))) + ".html"
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	}
	if err := report.RenderChart(w, res); err != nil {
		monitoring.Logf("render chart for run %s: %v", id, err)
	}
}

// runError writes the response for err and reports whether there was one.
func (s *Server) runError(w http.ResponseWriter, id string, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, db.ErrRunNotFound):
		httputil.NotFound(w, fmt.Sprintf("run %s not found", id))
	default:
		httputil.InternalServerError(w, fmt.Sprintf("failed to load run %s", id), err)
	}
	return true
}

// ConfigResponse reports the effective decode settings.
type ConfigResponse struct {
	UDPPort            int     `json:"udp_port"`
	Neutral            int     `json:"neutral"`
	Deadband           int     `json:"deadband"`
	DebounceSeconds    float64 `json:"debounce_seconds"`
	IgnoreHeadlessZero bool    `json:"ignore_headless_zero"`
	CaptureDecoding    bool    `json:"capture_decoding"`
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ConfigResponse{
		UDPPort:            s.cfg.GetUDPPort(),
		Neutral:            s.cfg.GetNeutral(),
		Deadband:           s.cfg.GetDeadband(),
		DebounceSeconds:    s.cfg.GetDebounceSeconds(),
		IgnoreHeadlessZero: s.cfg.GetIgnoreHeadlessZero(),
		CaptureDecoding:    s.captureDir != "",
	})
}
