// Package api serves live counting sessions, training history and goals
// over HTTP.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/reps.report/internal/httputil"
	"github.com/banshee-data/reps.report/internal/pose/exercise"
	"github.com/banshee-data/reps.report/internal/pose/history"
	"github.com/banshee-data/reps.report/internal/pose/storage/sqlite"
	"github.com/banshee-data/reps.report/internal/timeutil"
	"github.com/banshee-data/reps.report/internal/version"
)

const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Config wires a Server to its collaborators. Goals is optional: the
// goal and profile routes answer 404 without it.
type Config struct {
	Registry *exercise.Registry
	Sessions *Manager
	History  history.Store
	Goals    *sqlite.GoalStore
	Clock    timeutil.Clock

	// MaxBodyBytes bounds JSON and frame request bodies.
	MaxBodyBytes int64
	// ChartAssetsHost overrides where the history chart loads echarts from.
	ChartAssetsHost string
	// RecordingsDir holds frame recordings a session can replay. Empty
	// disables replay.
	RecordingsDir string
}

type Server struct {
	registry     *exercise.Registry
	sessions     *Manager
	history      history.Store
	goals        *sqlite.GoalStore
	clock        timeutil.Clock
	maxBodyBytes int64
	assetsHost   string
	recordings   string
}

func NewServer(cfg Config) *Server {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = httputil.DefaultMaxBodyBytes
	}
	return &Server{
		registry:     cfg.Registry,
		sessions:     cfg.Sessions,
		history:      cfg.History,
		goals:        cfg.Goals,
		clock:        cfg.Clock,
		maxBodyBytes: cfg.MaxBodyBytes,
		assetsHost:   cfg.ChartAssetsHost,
		recordings:   cfg.RecordingsDir,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// Flush lets the events stream push through the middleware.
func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func colorizeStatus(statusCode int) string {
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

// LoggingMiddleware logs method, status, URI and latency for each request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			colorizeStatus(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/version", s.showVersion)
	mux.HandleFunc("GET /api/exercises", s.listExercises)

	mux.HandleFunc("POST /api/sessions", s.createSession)
	mux.HandleFunc("GET /api/sessions", s.listSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.showSession)
	mux.HandleFunc("POST /api/sessions/{id}/frames", s.pushFrames)
	mux.HandleFunc("POST /api/sessions/{id}/pause", s.pauseSession)
	mux.HandleFunc("POST /api/sessions/{id}/resume", s.resumeSession)
	mux.HandleFunc("POST /api/sessions/{id}/finish", s.finishSession)
	mux.HandleFunc("GET /api/sessions/{id}/events", s.streamEvents)

	mux.HandleFunc("GET /api/history", s.listHistory)
	mux.HandleFunc("GET /api/history/last", s.lastActivity)
	mux.HandleFunc("GET /api/history/summary", s.showSummary)
	mux.HandleFunc("GET /api/history/chart", s.showChart)
	mux.HandleFunc("GET /api/history/plot.png", s.showPlot)

	mux.HandleFunc("GET /api/goals", s.listGoals)
	mux.HandleFunc("POST /api/goals", s.createGoal)
	mux.HandleFunc("PATCH /api/goals/{id}", s.updateGoal)
	mux.HandleFunc("DELETE /api/goals/{id}", s.deleteGoal)
	mux.HandleFunc("POST /api/goals/{id}/complete", s.completeGoal)
	mux.HandleFunc("GET /api/profile", s.showProfile)
	return mux
}

// Handler is ServeMux wrapped in LoggingMiddleware.
func (s *Server) Handler() http.Handler {
	return LoggingMiddleware(s.ServeMux())
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, version.Get())
}

type exerciseInfo struct {
	Type             exercise.Type `json:"type"`
	Name             string        `json:"name"`
	Pattern          string        `json:"pattern"`
	LevelGoals       []int         `json:"level_goals"`
	MinPhaseDuration string        `json:"min_phase_duration"`
}

func (s *Server) listExercises(w http.ResponseWriter, r *http.Request) {
	types := s.registry.Types()
	out := make([]exerciseInfo, 0, len(types))
	for _, t := range types {
		def, err := s.registry.Lookup(t)
		if err != nil {
			continue
		}
		out = append(out, exerciseInfo{
			Type:             def.Type,
			Name:             def.Name,
			Pattern:          def.Pattern,
			LevelGoals:       def.LevelGoals,
			MinPhaseDuration: def.MinPhaseDuration.String(),
		})
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"exercises":    out,
		"countdown_ms": s.registry.Countdown().Milliseconds(),
	})
}
