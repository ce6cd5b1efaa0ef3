package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigcal/internal/clock"
	"gigcal/internal/config"
	"gigcal/internal/model"
)

type fakeCatalog struct {
	events    []model.NormalizedEvent
	loadedAt  time.Time
	reloads   int
	reloadErr error
}

func (f *fakeCatalog) Events() []model.NormalizedEvent {
	out := make([]model.NormalizedEvent, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeCatalog) LoadedAt() time.Time { return f.loadedAt }

func (f *fakeCatalog) Reload(context.Context) (int, error) {
	f.reloads++
	return len(f.events), f.reloadErr
}

func chicago(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	return loc
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *fakeCatalog) {
	t.Helper()
	loc := chicago(t)
	cat := &fakeCatalog{
		loadedAt: time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC),
		events: []model.NormalizedEvent{
			{
				ID: "1", Source: model.SourceEventbrite, Name: "Jazz Night with XYZ",
				StartDate: time.Date(2024, 3, 15, 19, 0, 0, 0, loc),
				Price:     model.Price{Min: 25, Max: 25, Currency: "USD", Display: "$25"},
				Genre:     model.GenreJazz, Availability: model.AvailabilitySoldOut,
			},
			{
				ID: "2", Source: model.SourceTicketTailor, Name: "Eagles Tribute",
				StartDate: time.Date(2024, 3, 22, 20, 0, 0, 0, loc),
				Price:     model.Price{Min: 20, Max: 35, Currency: "USD", Display: "$20"},
				Genre:     model.GenreTribute, Availability: model.AvailabilityAvailable,
			},
			{
				ID: "3", Source: model.SourceTicketTailor, Name: "Open Mic",
				StartDate: time.Date(2024, 4, 2, 19, 0, 0, 0, loc),
				Price:     model.FreePrice("USD"),
				Genre:     model.GenreOther, Availability: model.AvailabilityAvailable,
			},
		},
	}
	clk := clock.NewFixed(time.Date(2024, 3, 20, 12, 0, 0, 0, loc))
	return NewServer(cfg, cat, clk), cat
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, config.DefaultConfig())
	rec := do(t, s.Handler(), http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestEventsUnfiltered(t *testing.T) {
	s, _ := newTestServer(t, config.DefaultConfig())
	rec := do(t, s.Handler(), http.MethodGet, "/api/events")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[eventsResponse](t, rec)
	assert.Equal(t, 3, resp.MatchCount)
	assert.Equal(t, 3, resp.Total)
	assert.False(t, resp.Active)
	assert.Len(t, resp.Events, 3)
	assert.True(t, math.IsInf(resp.State.MaxPrice, 1))
	assert.Contains(t, rec.Body.String(), `"max_price":null`)
}

func TestEventsEchoesState(t *testing.T) {
	s, _ := newTestServer(t, config.DefaultConfig())
	rec := do(t, s.Handler(), http.MethodGet, "/api/events?q=tribute&genre=tribute&start=2024-03-16&min_price=5&max_price=40")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[eventsResponse](t, rec)
	assert.Equal(t, "tribute", resp.State.SearchQuery)
	require.NotNil(t, resp.State.Genre)
	assert.Equal(t, model.GenreTribute, *resp.State.Genre)
	require.NotNil(t, resp.State.StartDate)
	assert.Equal(t, "2024-03-16", resp.State.StartDate.In(chicago(t)).Format("2006-01-02"))
	assert.Nil(t, resp.State.EndDate)
	assert.Equal(t, 5.0, resp.State.MinPrice)
	assert.Equal(t, 40.0, resp.State.MaxPrice)
	assert.Equal(t, 1, resp.MatchCount)
}

func TestEventsFiltered(t *testing.T) {
	s, _ := newTestServer(t, config.DefaultConfig())

	tests := []struct {
		query    string
		expected []string
	}{
		{"q=JAZZ", []string{"1"}},
		{"genre=tribute", []string{"2"}},
		{"start=2024-03-16&end=2024-03-31", []string{"2"}},
		{"start=2024-03-15&end=2024-03-15", []string{"1"}},
		{"min_price=30", []string{"2"}},
		{"max_price=22", []string{"2", "3"}},
		{"min_price=0&max_price=10", []string{"3"}},
		{"q=night&genre=tribute", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodGet, "/api/events?"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)

			resp := decode[eventsResponse](t, rec)
			got := []string{}
			for _, ev := range resp.Events {
				got = append(got, ev.ID)
			}
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, len(tt.expected), resp.MatchCount)
			assert.True(t, resp.Active)
		})
	}
}

func TestEventsBadParams(t *testing.T) {
	s, _ := newTestServer(t, config.DefaultConfig())

	for _, query := range []string{"genre=polka", "start=03/15/2024", "end=tomorrow", "min_price=-1", "max_price=cheap", "max_price=NaN"} {
		rec := do(t, s.Handler(), http.MethodGet, "/api/events?"+query)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		assert.Contains(t, rec.Body.String(), `"error"`, query)
	}
}

func TestGenres(t *testing.T) {
	s, _ := newTestServer(t, config.DefaultConfig())
	rec := do(t, s.Handler(), http.MethodGet, "/api/genres?genre=jazz")
	require.Equal(t, http.StatusOK, rec.Code)

	counts := decode[[]genreCount](t, rec)
	require.Len(t, counts, len(model.Genres()))

	total := 0
	byGenre := map[model.Genre]int{}
	for _, c := range counts {
		total += c.Count
		byGenre[c.Genre] = c.Count
	}
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, byGenre[model.GenreTribute])
	assert.Equal(t, 0, byGenre[model.GenreBlues])
}

func TestCalendarDefaultsToCurrentMonth(t *testing.T) {
	s, _ := newTestServer(t, config.DefaultConfig())
	rec := do(t, s.Handler(), http.MethodGet, "/api/calendar")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[calendarResponse](t, rec)
	assert.Equal(t, 2024, resp.Year)
	assert.Equal(t, 3, resp.Month)
	assert.Equal(t, "America/Chicago", resp.Timezone)
	require.Len(t, resp.Days, 42)

	// March 2024 starts on a Friday.
	assert.Equal(t, "2024-03-15", string(resp.Days[19].Key))
	require.Len(t, resp.Days[19].Events, 1)
	assert.Equal(t, "1", resp.Days[19].Events[0].ID)
	assert.True(t, resp.Days[24].IsToday)
	assert.Equal(t, "2024-04-02", string(resp.Days[37].Key))
	assert.Len(t, resp.Days[37].Events, 1)
}

func TestCalendarFilteredMonth(t *testing.T) {
	s, _ := newTestServer(t, config.DefaultConfig())
	rec := do(t, s.Handler(), http.MethodGet, "/api/calendar?year=2024&month=4&genre=jazz")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[calendarResponse](t, rec)
	assert.Equal(t, 1, resp.MatchCount)
	for _, d := range resp.Days {
		assert.Empty(t, d.Events, d.Key)
	}

	for _, query := range []string{"month=13", "month=0", "month=x", "year=abc", "year=2024.5"} {
		rec = do(t, s.Handler(), http.MethodGet, "/api/calendar?"+query)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		assert.Contains(t, rec.Body.String(), `"error"`, query)
	}
}

func TestICSFeed(t *testing.T) {
	s, _ := newTestServer(t, config.DefaultConfig())
	rec := do(t, s.Handler(), http.MethodGet, "/calendar.ics?genre=jazz")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "SUMMARY:Jazz Night with XYZ")
	assert.Contains(t, body, "X-WR-CALNAME:Upcoming shows")
}

func TestRefresh(t *testing.T) {
	s, cat := newTestServer(t, config.DefaultConfig())

	rec := do(t, s.Handler(), http.MethodPost, "/api/refresh")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, cat.reloads)
	assert.JSONEq(t, `{"events": 3}`, rec.Body.String())

	cat.reloadErr = errors.New("tickettailor: file not found")
	rec = do(t, s.Handler(), http.MethodPost, "/api/refresh")
	assert.JSONEq(t, `{"events": 3, "error": "tickettailor: file not found"}`, rec.Body.String())

	rec = do(t, s.Handler(), http.MethodGet, "/api/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "door", Password: "s3cret"}
	s, _ := newTestServer(t, cfg)
	h := s.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health").Code)

	rec := do(t, h, http.MethodGet, "/api/events")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("door", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("door", "s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCompression(t *testing.T) {
	s, _ := newTestServer(t, config.DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/events?genre=jazz", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "br", rec.Header().Get("Content-Encoding"))
	assert.Contains(t, rec.Header().Values("Vary"), "Accept-Encoding")

	plain, err := io.ReadAll(brotli.NewReader(rec.Body))
	require.NoError(t, err)
	var resp eventsResponse
	require.NoError(t, json.Unmarshal(plain, &resp))
	assert.Equal(t, 1, resp.MatchCount)
}

func TestAcceptsBrotli(t *testing.T) {
	tests := map[string]bool{
		"":                  false,
		"gzip":              false,
		"br":                true,
		"gzip, deflate, br": true,
		"br;q=0.5":          true,
		"br; q=0":           false,
		"brotli":            false,
	}
	for header, expected := range tests {
		assert.Equal(t, expected, acceptsBrotli(header), header)
	}
}
