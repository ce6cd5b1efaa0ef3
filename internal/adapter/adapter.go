package adapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gigcal/internal/classify"
	"gigcal/internal/clock"
	appLog "gigcal/internal/log"
	"gigcal/internal/model"
)

// FallbackVenueAddress is used when a payload carries no venue at all.
const FallbackVenueAddress = "Venue address to be announced"

// Adapter converts one raw platform event into the canonical model.
// Normalize never fails: malformed or missing fields resolve to defaults.
type Adapter interface {
	Source() model.Source
	Normalize(raw json.RawMessage) model.NormalizedEvent
}

// Pricer parses ticket classes published apart from event metadata, such
// as a platform's separate ticket type listing. currency is the event's.
type Pricer interface {
	TicketClasses(raw json.RawMessage, currency string) []model.TicketClass
}

// Options are shared by all adapters.
type Options struct {
	// Venue replaces a missing venue. Address defaults to FallbackVenueAddress.
	Venue model.Venue
	// Currency is assumed when a payload names none.
	Currency string
	// Clock drives availability classification. Defaults to the system clock.
	Clock clock.Clock
	// Policy tunes availability classification.
	Policy classify.Policy
}

func (o Options) withDefaults() Options {
	if o.Venue.Address == "" {
		o.Venue.Address = FallbackVenueAddress
	}
	if o.Currency == "" {
		o.Currency = "USD"
	}
	if o.Clock == nil {
		o.Clock = clock.NewSystem(nil)
	}
	return o
}

// venueOr returns v with any empty field taken from the fallback venue.
func (o Options) venueOr(v model.Venue) model.Venue {
	if v.Name == "" {
		v.Name = o.Venue.Name
	}
	if v.Address == "" {
		v.Address = o.Venue.Address
	}
	return v
}

// finish applies classification so every adapter output carries genre,
// availability and a consistent price.
func (o Options) finish(ev model.NormalizedEvent) model.NormalizedEvent {
	if ev.Price.Currency == "" {
		ev.Price.Currency = o.Currency
	}
	if len(ev.TicketClasses) == 0 {
		ev.Price = model.FreePrice(ev.Price.Currency)
	}
	return classify.Enrich(ev, o.Clock.Now(), o.Policy)
}

// NormalizeAll normalizes raws in input order.
func NormalizeAll(a Adapter, raws []json.RawMessage) []model.NormalizedEvent {
	out := make([]model.NormalizedEvent, 0, len(raws))
	for _, raw := range raws {
		out = append(out, a.Normalize(raw))
	}
	return out
}

// ErrUnsupportedPayload is returned by SplitPayload for payloads that are
// neither an array nor a known envelope.
var ErrUnsupportedPayload = errors.New("unsupported payload shape")

// SplitPayload splits a platform response into raw events. It accepts a
// bare JSON array or an envelope object keyed by "events" (Eventbrite) or
// "data" (Ticket Tailor). Empty input yields no events.
func SplitPayload(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var list []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode event array: %w", err)
		}
		return list, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	for _, key := range []string{"events", "data"} {
		inner, ok := envelope[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(inner, &list); err != nil {
			return nil, fmt.Errorf("decode %q array: %w", key, err)
		}
		return list, nil
	}
	return nil, ErrUnsupportedPayload
}

// SplitPrices splits a pricing payload: an object keyed by event ID whose
// values are arrays of the platform's ticket objects. Empty input yields
// no prices.
func SplitPrices(data []byte) (map[string]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var prices map[string]json.RawMessage
	if err := json.Unmarshal(data, &prices); err != nil {
		return nil, fmt.Errorf("decode prices: %w", err)
	}
	return prices, nil
}

// ForSource returns the adapter for src.
func ForSource(src model.Source, opts Options) (Adapter, error) {
	switch src {
	case model.SourceEventbrite:
		return NewEventbrite(opts), nil
	case model.SourceTicketTailor:
		return NewTicketTailor(opts), nil
	default:
		return nil, fmt.Errorf("unknown source %q", src)
	}
}

// decode unmarshals raw into v, logging rather than failing.
func decode(src model.Source, raw json.RawMessage, v any) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		appLog.Warn("adapter: malformed event payload, using defaults",
			"source", src,
			"err", err,
			"bytes", len(raw),
		)
		return false
	}
	return true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
