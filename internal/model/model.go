package model

import "time"

// Source identifies the ticketing platform an event was pulled from.
type Source string

const (
	SourceEventbrite   Source = "eventbrite"
	SourceTicketTailor Source = "tickettailor"
)

// Genre is the single derived classification tag of an event.
type Genre string

const (
	GenreJazz     Genre = "jazz"
	GenreBlues    Genre = "blues"
	GenreRock     Genre = "rock"
	GenreFolk     Genre = "folk"
	GenreTribute  Genre = "tribute"
	GenreBigBand  Genre = "bigband"
	GenreAcoustic Genre = "acoustic"
	GenreOther    Genre = "other"
)

// Genres lists every genre value in display order.
func Genres() []Genre {
	return []Genre{
		GenreJazz, GenreBlues, GenreRock, GenreFolk,
		GenreTribute, GenreBigBand, GenreAcoustic, GenreOther,
	}
}

// ParseGenre maps a user-supplied string to a Genre.
func ParseGenre(s string) (Genre, bool) {
	for _, g := range Genres() {
		if string(g) == s {
			return g, true
		}
	}
	return "", false
}

// Availability is the derived ticket-stock status of an event.
type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityLimited   Availability = "limited"
	AvailabilitySoldOut   Availability = "soldout"
	AvailabilityUpcoming  Availability = "upcoming"
)

// Cost is the price of a single ticket class. MinorValue is in the
// currency's minor unit (cents).
type Cost struct {
	MinorValue int64  `json:"minor_value"`
	Display    string `json:"display"`
	Currency   string `json:"currency,omitempty"`
}

// Major returns the cost in major currency units.
func (c Cost) Major() float64 {
	return float64(c.MinorValue) / 100
}

// TicketClass is one purchasable ticket tier as reported by a platform.
// QuantitySold <= QuantityTotal is trusted, not enforced.
type TicketClass struct {
	Name          string     `json:"name"`
	Cost          Cost       `json:"cost"`
	QuantityTotal int        `json:"quantity_total"`
	QuantitySold  int        `json:"quantity_sold"`
	SalesStart    *time.Time `json:"sales_start,omitempty"`
	SalesEnd      *time.Time `json:"sales_end,omitempty"`
	Hidden        bool       `json:"hidden"`
	Free          bool       `json:"free"`
}

// Remaining returns the unsold quantity of the class.
func (tc TicketClass) Remaining() int {
	return tc.QuantityTotal - tc.QuantitySold
}

// Price is the aggregated price range of an event. Min <= Max.
type Price struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
	Display  string  `json:"display"`
	IsFree   bool    `json:"is_free"`
}

// FreePrice is the price assigned to events without paid ticket classes.
func FreePrice(currency string) Price {
	return Price{Min: 0, Max: 0, Currency: currency, Display: "Free", IsFree: true}
}

// Venue is where an event takes place.
type Venue struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// NormalizedEvent is the canonical, platform-independent event record.
// ID is unique per Source only; Genre and Availability are always set
// once the event has been through classification.
type NormalizedEvent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Organizer   string `json:"organizer,omitempty"`

	// Category is the structured (sub)category label reported by the
	// platform, if any.
	Category string `json:"category,omitempty"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	URL      string `json:"url"`
	ImageURL string `json:"image_url"`

	Price  Price  `json:"price"`
	Venue  Venue  `json:"venue"`
	Status string `json:"status"`
	Source Source `json:"source"`

	Genre        Genre        `json:"genre"`
	Availability Availability `json:"availability"`

	TicketClasses []TicketClass `json:"ticket_classes,omitempty"`
}

// Key returns an identifier unique across sources.
func (e NormalizedEvent) Key() string {
	return string(e.Source) + ":" + e.ID
}
