// Package api serves computed hotspots over HTTP.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/hotspot.report/internal/config"
	"github.com/banshee-data/hotspot.report/internal/hotspot"
	"github.com/banshee-data/hotspot.report/internal/render"
)

// ANSI escape codes for request logs.
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// Response headers describing the snapshot behind a hotspot response.
const (
	headerSnapshotID = "X-Hotspot-Snapshot"
	headerStale      = "X-Hotspot-Stale"
)

const (
	defaultSnapshotLimit = 20
	maxSnapshotLimit     = 500
)

// Server exposes a HotspotService and its snapshot history.
type Server struct {
	svc        *HotspotService
	store      SnapshotStore // optional
	assetsHost string
}

// NewServer creates a server. store may be nil, in which case the
// snapshot listing is unavailable.
func NewServer(svc *HotspotService, store SnapshotStore) *Server {
	return &Server{svc: svc, store: store}
}

// SetAssetsHost overrides where chart pages load echarts from.
func (s *Server) SetAssetsHost(host string) {
	s.assetsHost = host
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
		diagf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

// Register adds the API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/hotspots", s.handleHotspots)
	mux.HandleFunc("/api/hotspots/chart", s.handleHotspotsChart)
	mux.HandleFunc("/api/params", s.handleParams)
	mux.HandleFunc("/api/snapshots", s.handleSnapshots)
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode response: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHotspots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	force, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	res, err := s.svc.Hotspots(r.Context(), force)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set(headerSnapshotID, res.Snapshot.ID)
	if res.Stale {
		w.Header().Set(headerStale, "true")
	}
	clusters := res.Snapshot.Clusters
	if clusters == nil {
		clusters = []hotspot.Cluster{}
	}
	s.writeJSON(w, clusters)
}

func (s *Server) handleHotspotsChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	res, err := s.svc.Hotspots(r.Context(), false)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	title := "Incident Hotspots"
	if !res.Snapshot.CreatedAt.IsZero() {
		title = fmt.Sprintf("Incident Hotspots %s", res.Snapshot.CreatedAt.Format(time.RFC3339))
	}

	var buf bytes.Buffer
	if err := render.Chart(&buf, res.Snapshot.Clusters, nil, render.ChartOptions{Title: title, AssetsHost: s.assetsHost}); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render hotspot chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSON(w, config.FromConfig(s.svc.Config()))
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.store == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "snapshot store not configured")
		return
	}

	limit := defaultSnapshotLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > maxSnapshotLimit {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	summaries, err := s.store.ListSnapshots(r.Context(), limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list snapshots: %v", err))
		return
	}
	s.writeJSON(w, summaries)
}
