package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigcal/internal/clock"
	"gigcal/internal/config"
	"gigcal/internal/model"
)

func sampleEvents() []model.NormalizedEvent {
	return []model.NormalizedEvent{
		{ID: "1", Name: "Jazz Night", Genre: model.GenreJazz,
			StartDate: time.Date(2024, 3, 15, 19, 0, 0, 0, time.UTC),
			Price:     model.Price{Min: 25, Max: 25, Display: "$25"}, Availability: model.AvailabilitySoldOut},
		{ID: "2", Name: "Blues Jam", Genre: model.GenreBlues,
			StartDate: time.Date(2024, 3, 20, 20, 0, 0, 0, time.UTC),
			Price:     model.Price{Min: 10, Max: 10, Display: "$10"}, Availability: model.AvailabilityAvailable},
		{ID: "3", Name: "Open Mic", Genre: model.GenreOther,
			StartDate: time.Date(2024, 4, 1, 19, 0, 0, 0, time.UTC),
			Price:     model.FreePrice("USD"), Availability: model.AvailabilityAvailable},
	}
}

// syncBuffer is written from debounce timers and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDumpCatalog(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, dump(&out, sampleEvents(), "", clock.NewFixed(time.Now()), time.UTC))

	var events []model.NormalizedEvent
	require.NoError(t, json.Unmarshal(out.Bytes(), &events))
	assert.Len(t, events, 3)
}

func TestDumpMonth(t *testing.T) {
	var out bytes.Buffer
	clk := clock.NewFixed(time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC))
	require.NoError(t, dump(&out, sampleEvents(), "2024-03", clk, time.UTC))

	var days []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &days))
	require.Len(t, days, 42)
	assert.Equal(t, "2024-03-15", days[19]["key"])
	assert.Equal(t, true, days[24]["is_today"])

	assert.Error(t, dump(&out, nil, "March", clk, time.UTC))
}

func TestRunSearch(t *testing.T) {
	out := &syncBuffer{}
	in := strings.NewReader("j\nja\njazz\n:genre blues\n:price 20\n:clear\n")

	require.NoError(t, runSearch(context.Background(), in, out, sampleEvents(), 20*time.Millisecond))

	lines := []string{}
	for _, l := range strings.Split(out.String(), "\n") {
		if strings.HasSuffix(l, "match(es)") {
			lines = append(lines, l)
		}
	}
	// initial, genre, price and clear; the debounced query may or may not
	// land before :clear cancels it.
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Equal(t, "3 match(es)", lines[0])
	assert.Contains(t, out.String(), "Free")
	assert.Contains(t, out.String(), "$25 (soldout)")
}

func TestRunSearchQuit(t *testing.T) {
	out := &syncBuffer{}
	in := strings.NewReader(":quit\njazz\n")

	start := time.Now()
	require.NoError(t, runSearch(context.Background(), in, out, sampleEvents(), time.Hour))
	assert.Less(t, time.Since(start), time.Minute)
	assert.Equal(t, 1, strings.Count(out.String(), "match(es)"))
}

func TestParsePriceArgs(t *testing.T) {
	lo, hi, err := parsePriceArgs([]string{"10"})
	require.NoError(t, err)
	assert.Equal(t, 10.0, lo)
	assert.True(t, hi > 1e300)

	lo, hi, err = parsePriceArgs([]string{"5", "30"})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 30}, []float64{lo, hi})

	_, _, err = parsePriceArgs(nil)
	assert.Error(t, err)
	_, _, err = parsePriceArgs([]string{"ten"})
	assert.Error(t, err)
}

func TestCatalogSources(t *testing.T) {
	conf := config.DefaultConfig()
	conf.Sources[1].Prices = "./data/tickettailor-prices.json"
	sources := catalogSources(conf)

	require.Len(t, sources, 2)
	assert.Equal(t, model.SourceEventbrite, sources[0].Platform)
	assert.Empty(t, sources[0].Prices)
	assert.Equal(t, "./data/tickettailor.json", sources[1].Location)
	assert.Equal(t, "./data/tickettailor-prices.json", sources[1].Prices)
}

func TestRunBrowse(t *testing.T) {
	var out bytes.Buffer
	clk := clock.NewFixed(time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC))
	in := strings.NewReader(strings.Join([]string{
		"Enter",
		":checkout",
		"ArrowLeft",
		"Enter",
		"Bogus",
		":genre jazz",
		"PageDown",
		":checkout",
		":quit",
		"ArrowRight",
	}, "\n"))

	require.NoError(t, runBrowse(in, &out, sampleEvents(), "", clk, time.UTC))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"March 2024  focus 2024-03-20 (1 event(s))",
		"March 2024  focus 2024-03-20 (1 event(s))  selected 2024-03-20 Blues Jam",
		"checkout: Blues Jam ",
		"March 2024  focus 2024-03-19 (0 event(s))  selected 2024-03-20 Blues Jam",
		// Yesterday cannot be selected.
		"March 2024  focus 2024-03-19 (0 event(s))  selected 2024-03-20 Blues Jam",
		"March 2024  focus 2024-03-19 (0 event(s))",
		"April 2024  focus 2024-04-23 (0 event(s))",
		"nothing selected",
	}, lines)
}

func TestRunBrowseMonth(t *testing.T) {
	var out bytes.Buffer
	clk := clock.NewFixed(time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC))

	require.NoError(t, runBrowse(strings.NewReader(""), &out, sampleEvents(), "2024-04", clk, time.UTC))
	assert.Equal(t, "April 2024  focus 2024-04-01 (1 event(s))\n", out.String())

	assert.Error(t, runBrowse(strings.NewReader(""), &out, nil, "April", clk, time.UTC))
}
