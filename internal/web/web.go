package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"fitcal/internal/config"
	"fitcal/internal/dateutil"
	"fitcal/internal/ics"
	appLog "fitcal/internal/log"
	"fitcal/internal/model"
	"fitcal/internal/session"
	"fitcal/internal/store"
)

// Store is the workout persistence used by the HTTP API.
type Store interface {
	GetWorkouts(ctx context.Context, day dateutil.Instant, cal dateutil.Calendar) ([]model.Workout, error)
	ListWorkouts(ctx context.Context, from, to dateutil.Instant) ([]model.Workout, error)
	GetWorkout(ctx context.Context, id string) (model.Workout, error)
	SaveWorkout(ctx context.Context, w model.Workout) (model.Workout, error)
	DeleteWorkout(ctx context.Context, id string) error
	CountByDay(ctx context.Context, from, to dateutil.Instant, cal dateutil.Calendar) (map[dateutil.Instant]int, error)
}

// Server provides the workout log HTTP API and the server-rendered month
// page.
type Server struct {
	cfg     *config.Config
	cal     dateutil.Calendar
	store   Store
	tracker *session.Tracker
	fetcher *ics.Fetcher
	now     func() time.Time
	mux     *http.ServeMux

	// Parsed plan and class events, shared by every planned-session query
	// so feeds are not refetched per request.
	eventsMu    sync.RWMutex
	eventsCache *eventsCache
}

// eventsCache holds the parsed planned events and when they were loaded.
type eventsCache struct {
	events    []ics.ParsedEvent
	updatedAt time.Time
}

// Option customizes a Server.
type Option func(*Server)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithFetcher replaces the class feed fetcher.
func WithFetcher(f *ics.Fetcher) Option {
	return func(s *Server) { s.fetcher = f }
}

// NewServer constructs a new Server. Calendar days follow cfg.Timezone.
func NewServer(cfg *config.Config, db Store, tracker *session.Tracker, opts ...Option) (*Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:     cfg,
		cal:     dateutil.NewCalendar(loc),
		store:   db,
		tracker: tracker,
		now:     time.Now,
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = ics.NewFetcher(cfg.CacheDir(), nil)
	}
	s.registerRoutes()
	return s, nil
}

// Calendar returns the calendar the server computes days in.
func (s *Server) Calendar() dateutil.Calendar {
	return s.cal
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured. Empty
// credentials count as disabled.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="fitcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/home", s.handleHome)
	s.mux.HandleFunc("GET /api/calendar/week", s.handleWeek)
	s.mux.HandleFunc("GET /api/calendar/month", s.handleMonth)

	s.mux.HandleFunc("GET /api/workouts", s.handleListWorkouts)
	s.mux.HandleFunc("POST /api/workouts", s.handleSaveWorkout)
	s.mux.HandleFunc("GET /api/workouts/{id}", s.handleGetWorkout)
	s.mux.HandleFunc("DELETE /api/workouts/{id}", s.handleDeleteWorkout)
	s.mux.HandleFunc("POST /api/workouts/{id}/repeat", s.handleRepeatWorkout)

	s.mux.HandleFunc("GET /api/session", s.handleGetSession)
	s.mux.HandleFunc("PUT /api/session", s.handleUpdateSession)
	s.mux.HandleFunc("POST /api/session/finish", s.handleFinishSession)
	s.mux.HandleFunc("DELETE /api/session", s.handleDiscardSession)

	s.mux.HandleFunc("GET /api/plans", s.handlePlans)
	s.mux.HandleFunc("GET /workouts.ics", s.handleExport)

	s.mux.HandleFunc("GET /calendar", s.handleCalendarPage)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last captured month snapshot from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	// http.ServeFile answers 404 for a missing snapshot.
	http.ServeFile(w, r, s.cfg.PreviewPath())
}

// today is the current instant.
func (s *Server) today() dateutil.Instant {
	return dateutil.FromTime(s.now())
}

// dateParam reads a millisecond timestamp query parameter, defaulting to
// def when absent.
func dateParam(r *http.Request, key string, def dateutil.Instant) (dateutil.Instant, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + key + ": expected milliseconds since epoch")
	}
	return dateutil.Instant(n), nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// writeDomainError maps store/session/model sentinels to HTTP statuses.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidWorkout):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrAlreadyInWorkout), errors.Is(err, session.ErrNoWorkout):
		writeError(w, http.StatusConflict, err.Error())
	default:
		appLog.Error("api "+op+" failed", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}
