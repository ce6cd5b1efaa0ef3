package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gigcal/internal/calendar"
	"gigcal/internal/clock"
	"gigcal/internal/config"
	"gigcal/internal/filter"
	"gigcal/internal/ics"
	appLog "gigcal/internal/log"
	"gigcal/internal/model"
)

// Catalog is the event store the server reads from.
type Catalog interface {
	Events() []model.NormalizedEvent
	LoadedAt() time.Time
	Reload(ctx context.Context) (int, error)
}

// Server exposes the event catalog over HTTP: filtered event lists, month
// grids and an iCalendar feed.
type Server struct {
	cfg     *config.Config
	catalog Catalog
	clock   clock.Clock
	loc     *time.Location
	mux     *http.ServeMux
}

// NewServer constructs a new Server. A nil clock uses the system clock in
// the configured timezone.
func NewServer(cfg *config.Config, cat Catalog, clk clock.Clock) *Server {
	loc := cfg.Location()
	if clk == nil {
		clk = clock.NewSystem(loc)
	}
	s := &Server{
		cfg:     cfg,
		catalog: cat,
		clock:   clk,
		loc:     loc,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := withCompression(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
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
			w.Header().Set("WWW-Authenticate", `Basic realm="gigcal", charset="UTF-8"`)
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
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/genres", s.handleGenres)
	s.mux.HandleFunc("GET /api/calendar", s.handleCalendar)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /calendar.ics", s.handleICS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events     []model.NormalizedEvent `json:"events"`
	MatchCount int                     `json:"match_count"`
	Total      int                     `json:"total"`
	Active     bool                    `json:"active"`
	State      filter.State            `json:"state"`
	LoadedAt   time.Time               `json:"loaded_at"`
}

// handleEvents returns the catalog narrowed by the filter query.
//
// GET /api/events?q=jazz&genre=jazz&start=2024-03-01&end=2024-03-31&min_price=0&max_price=30
//
// Dates are calendar days in the configured timezone; both ends inclusive.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	st, err := s.parseState(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	all := s.catalog.Events()
	matched := filter.Filter(all, st)

	appLog.Debug("api events request",
		"query", st.SearchQuery,
		"active", st.IsActive(),
		"matched", len(matched),
		"total", len(all),
	)

	writeJSON(w, http.StatusOK, eventsResponse{
		Events:     matched,
		MatchCount: len(matched),
		Total:      len(all),
		Active:     st.IsActive(),
		State:      st,
		LoadedAt:   s.catalog.LoadedAt(),
	})
}

// genreCount is one entry of /api/genres.
type genreCount struct {
	Genre model.Genre `json:"genre"`
	Count int         `json:"count"`
}

// handleGenres counts events per genre under the remaining filter criteria,
// ignoring any genre parameter.
func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	st, err := s.parseState(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	all := s.catalog.Events()
	out := make([]genreCount, 0, len(model.Genres()))
	for _, g := range model.Genres() {
		st.Genre = &g
		out = append(out, genreCount{Genre: g, Count: filter.MatchCount(all, st)})
	}
	writeJSON(w, http.StatusOK, out)
}

// calendarResponse is the JSON response shape for /api/calendar.
type calendarResponse struct {
	Year       int            `json:"year"`
	Month      int            `json:"month"`
	Timezone   string         `json:"timezone"`
	MatchCount int            `json:"match_count"`
	Days       []calendar.Day `json:"days"`
}

// handleCalendar returns the 42-cell grid of a month with filtered events.
//
// GET /api/calendar?year=2024&month=3 (defaults to the current month) plus
// the /api/events filter parameters.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	st, err := s.parseState(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := s.clock.Now().In(s.loc)
	q := r.URL.Query()
	year, err := parseIntDefault(q.Get("year"), now.Year())
	if err != nil {
		writeError(w, http.StatusBadRequest, "year: "+err.Error())
		return
	}
	month, err := parseIntDefault(q.Get("month"), int(now.Month()))
	if err != nil {
		writeError(w, http.StatusBadRequest, "month: "+err.Error())
		return
	}
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}
	if year < 1 || year > 9999 {
		writeError(w, http.StatusBadRequest, "year out of range")
		return
	}

	matched := filter.Filter(s.catalog.Events(), st)
	grid := calendar.BuildGrid(year, time.Month(month), calendar.IndexByDate(matched, s.loc), now)

	writeJSON(w, http.StatusOK, calendarResponse{
		Year:       year,
		Month:      month,
		Timezone:   s.loc.String(),
		MatchCount: len(matched),
		Days:       grid[:],
	})
}

// handleRefresh reloads the catalog from its snapshots.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	n, err := s.catalog.Reload(r.Context())
	resp := map[string]any{"events": n}
	if err != nil {
		appLog.Error("api refresh: reload finished with errors", err)
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleICS serves the filtered catalog as an iCalendar feed.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	st, err := s.parseState(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body := ics.Encode(filter.Filter(s.catalog.Events(), st), ics.Options{
		Name:  s.cfg.CalendarName,
		Stamp: s.clock.Now(),
	})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// parseState builds a filter state from query parameters. Absent
// parameters keep their neutral default.
func (s *Server) parseState(r *http.Request) (filter.State, error) {
	q := r.URL.Query()
	st := filter.DefaultState()
	st.SearchQuery = q.Get("q")

	if v := q.Get("genre"); v != "" {
		g, ok := model.ParseGenre(strings.ToLower(v))
		if !ok {
			return st, fmt.Errorf("unknown genre %q", v)
		}
		st.Genre = &g
	}

	var err error
	if st.StartDate, err = s.parseDate(q.Get("start")); err != nil {
		return st, fmt.Errorf("start: %w", err)
	}
	if st.EndDate, err = s.parseDate(q.Get("end")); err != nil {
		return st, fmt.Errorf("end: %w", err)
	}

	if v := q.Get("min_price"); v != "" {
		if st.MinPrice, err = parsePrice(v); err != nil {
			return st, fmt.Errorf("min_price: %w", err)
		}
	}
	if v := q.Get("max_price"); v != "" {
		if st.MaxPrice, err = parsePrice(v); err != nil {
			return st, fmt.Errorf("max_price: %w", err)
		}
	}
	return st, nil
}

func (s *Server) parseDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, s.loc)
	if err != nil {
		return nil, fmt.Errorf("want YYYY-MM-DD, got %q", v)
	}
	return &t, nil
}

func parsePrice(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || math.IsNaN(f) {
		return 0, fmt.Errorf("want a non-negative number, got %q", v)
	}
	return f, nil
}

// parseIntDefault returns def for an empty value.
func parseIntDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("want an integer, got %q", s)
	}
	return n, nil
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
