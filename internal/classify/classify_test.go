package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigcal/internal/model"
)

var now = time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)

func TestClassifyGenre(t *testing.T) {
	tests := []struct {
		name     string
		event    model.NormalizedEvent
		expected model.Genre
	}{
		{"category jazz", model.NormalizedEvent{Name: "Friday Night", Category: "Jazz"}, model.GenreJazz},
		{"category indie", model.NormalizedEvent{Name: "Showcase", Category: "Indie"}, model.GenreRock},
		{"category country", model.NormalizedEvent{Name: "Hoedown", Category: "Country"}, model.GenreFolk},
		{"category swing", model.NormalizedEvent{Name: "Dance", Category: "Swing"}, model.GenreBigBand},
		{"category outranks name", model.NormalizedEvent{Name: "Eagles Tribute", Category: "Blues"}, model.GenreBlues},
		{"unmatched category falls to name", model.NormalizedEvent{Name: "Blues Jam", Category: "Music"}, model.GenreBlues},
		{"tilde is tribute", model.NormalizedEvent{Name: "Eagles Tribute ~ Live"}, model.GenreTribute},
		{"bare tilde", model.NormalizedEvent{Name: "Fleetwood ~ Mac"}, model.GenreTribute},
		{"tribute before jazz", model.NormalizedEvent{Name: "Jazz Tribute to Ella"}, model.GenreTribute},
		{"big band before jazz", model.NormalizedEvent{Name: "Big Band Jazz Night"}, model.GenreBigBand},
		{"name metal", model.NormalizedEvent{Name: "METAL MONDAY"}, model.GenreRock},
		{"name americana", model.NormalizedEvent{Name: "Americana Sessions"}, model.GenreFolk},
		{"nothing matches", model.NormalizedEvent{Name: "Comedy Hour"}, model.GenreOther},
		{"empty event", model.NormalizedEvent{}, model.GenreOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyGenre(tt.event))
		})
	}
}

func TestClassifyGenrePartitions(t *testing.T) {
	events := []model.NormalizedEvent{
		{Name: "Jazz Night"}, {Name: "Blues"}, {Name: "Punk"}, {Name: "Folk"},
		{Name: "ABBA ~ Tribute"}, {Name: "Swing"}, {Name: "Poetry"}, {Category: "Rock", Name: "x"},
	}

	counts := make(map[model.Genre]int)
	for _, ev := range events {
		counts[ClassifyGenre(ev)]++
	}

	total := 0
	for _, g := range model.Genres() {
		total += counts[g]
	}
	assert.Equal(t, len(events), total)
}

func TestGenreRulesIsACopy(t *testing.T) {
	rules := GenreRules()
	require.NotEmpty(t, rules)
	assert.Equal(t, FieldCategory, rules[0].Field)

	rules[0].Genre = model.GenreOther
	assert.Equal(t, model.GenreJazz, ClassifyGenre(model.NormalizedEvent{Category: "jazz"}))
}

func TestClassifyAvailability(t *testing.T) {
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name     string
		classes  []model.TicketClass
		expected model.Availability
	}{
		{
			name:     "no classes",
			expected: model.AvailabilityAvailable,
		},
		{
			name:     "single class sold out",
			classes:  []model.TicketClass{{QuantityTotal: 100, QuantitySold: 100}},
			expected: model.AvailabilitySoldOut,
		},
		{
			name:     "sales not started",
			classes:  []model.TicketClass{{QuantityTotal: 100, QuantitySold: 0, SalesStart: &future}},
			expected: model.AvailabilityUpcoming,
		},
		{
			name:     "plenty left",
			classes:  []model.TicketClass{{QuantityTotal: 100, QuantitySold: 10, SalesStart: &past}},
			expected: model.AvailabilityAvailable,
		},
		{
			name: "one tier exhausted, another open",
			classes: []model.TicketClass{
				{Name: "Early", QuantityTotal: 50, QuantitySold: 50},
				{Name: "GA", QuantityTotal: 100, QuantitySold: 20},
			},
			expected: model.AvailabilityLimited,
		},
		{
			name: "hidden classes ignored for sold out",
			classes: []model.TicketClass{
				{QuantityTotal: 10, QuantitySold: 10},
				{QuantityTotal: 10, QuantitySold: 0, Hidden: true},
			},
			expected: model.AvailabilitySoldOut,
		},
		{
			name:     "only hidden classes",
			classes:  []model.TicketClass{{QuantityTotal: 10, Hidden: true}},
			expected: model.AvailabilityAvailable,
		},
		{
			name: "exhausted tier whose sales ended is not low stock",
			classes: []model.TicketClass{
				{QuantityTotal: 10, QuantitySold: 10, SalesEnd: &past},
				{QuantityTotal: 10, QuantitySold: 2},
			},
			expected: model.AvailabilityAvailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyAvailability(tt.classes, now, DefaultPolicy()))
		})
	}
}

func TestClassifyAvailabilityLowStockPolicy(t *testing.T) {
	classes := []model.TicketClass{
		{Name: "GA", QuantityTotal: 100, QuantitySold: 95},
		{Name: "VIP", QuantityTotal: 20, QuantitySold: 2},
	}

	assert.Equal(t, model.AvailabilityAvailable, ClassifyAvailability(classes, now, DefaultPolicy()))
	assert.Equal(t, model.AvailabilityLimited, ClassifyAvailability(classes, now, Policy{LowStockRemaining: 5}))
}

func TestPriceRange(t *testing.T) {
	t.Run("no classes is free", func(t *testing.T) {
		p := PriceRange(nil, "USD")
		assert.Equal(t, model.Price{Currency: "USD", Display: "Free", IsFree: true}, p)
	})

	t.Run("all free classes", func(t *testing.T) {
		p := PriceRange([]model.TicketClass{{Free: true}, {Free: true}}, "USD")
		assert.True(t, p.IsFree)
		assert.Equal(t, "Free", p.Display)
	})

	t.Run("min and max over paid classes", func(t *testing.T) {
		p := PriceRange([]model.TicketClass{
			{Cost: model.Cost{MinorValue: 3000, Display: "$30.00"}},
			{Free: true},
			{Cost: model.Cost{MinorValue: 1550}},
			{Cost: model.Cost{MinorValue: 4500}},
		}, "USD")
		assert.Equal(t, 15.5, p.Min)
		assert.Equal(t, 45.0, p.Max)
		assert.Equal(t, "$30.00", p.Display)
		assert.False(t, p.IsFree)
	})

	t.Run("display formatted when missing", func(t *testing.T) {
		p := PriceRange([]model.TicketClass{{Cost: model.Cost{MinorValue: 2500}}}, "GBP")
		assert.Equal(t, "£25", p.Display)
	})

	t.Run("currency from class", func(t *testing.T) {
		p := PriceRange([]model.TicketClass{{Cost: model.Cost{MinorValue: 1050, Currency: "EUR"}}}, "")
		assert.Equal(t, "EUR", p.Currency)
		assert.Equal(t, "€10.50", p.Display)
	})
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$25", FormatAmount(25, "usd"))
	assert.Equal(t, "$25", FormatAmount(25, ""))
	assert.Equal(t, "$7.50", FormatAmount(7.5, "USD"))
	assert.Equal(t, "NZD 12", FormatAmount(12, "NZD"))
}

func TestEnrichJazzNightScenario(t *testing.T) {
	ev := model.NormalizedEvent{
		Name:     "Jazz Night with XYZ",
		Category: "Jazz",
		Price:    model.Price{Currency: "USD"},
		TicketClasses: []model.TicketClass{
			{Cost: model.Cost{MinorValue: 2500}, QuantityTotal: 100, QuantitySold: 100},
		},
	}

	got := Enrich(ev, now, DefaultPolicy())

	assert.Equal(t, model.GenreJazz, got.Genre)
	assert.Equal(t, model.AvailabilitySoldOut, got.Availability)
	assert.Equal(t, 25.0, got.Price.Min)
	assert.Equal(t, 25.0, got.Price.Max)
	assert.Equal(t, "$25", got.Price.Display)
}

func TestEnrichKeepsAdapterPriceWithoutClasses(t *testing.T) {
	ev := model.NormalizedEvent{Name: "Open Mic", Price: model.FreePrice("USD")}

	got := Enrich(ev, now, DefaultPolicy())

	assert.True(t, got.Price.IsFree)
	assert.Equal(t, model.GenreOther, got.Genre)
	assert.Equal(t, model.AvailabilityAvailable, got.Availability)
}

func TestReprice(t *testing.T) {
	ev := Enrich(model.NormalizedEvent{Name: "Blues Brunch", Price: model.FreePrice("USD")}, now, DefaultPolicy())
	require.True(t, ev.Price.IsFree)

	classes := []model.TicketClass{
		{Cost: model.Cost{MinorValue: 2000}, QuantityTotal: 10, QuantitySold: 10},
		{Cost: model.Cost{MinorValue: 4000}, QuantityTotal: 10, QuantitySold: 3},
	}
	got := Reprice(ev, classes, now, DefaultPolicy())

	assert.Equal(t, 20.0, got.Price.Min)
	assert.Equal(t, 40.0, got.Price.Max)
	assert.Equal(t, model.AvailabilityLimited, got.Availability)
	assert.Equal(t, model.GenreBlues, got.Genre)

	classes[0].QuantitySold = 0
	assert.Equal(t, 10, got.TicketClasses[0].QuantitySold)
}
