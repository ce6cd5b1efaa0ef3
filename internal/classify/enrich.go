package classify

import (
	"time"

	"gigcal/internal/model"
)

// Enrich assigns the derived attributes of ev. Price is recomputed from
// ticket classes when any are present; otherwise the adapter's price stands.
func Enrich(ev model.NormalizedEvent, now time.Time, p Policy) model.NormalizedEvent {
	if len(ev.TicketClasses) > 0 {
		ev.Price = PriceRange(ev.TicketClasses, ev.Price.Currency)
	}
	ev.Genre = ClassifyGenre(ev)
	ev.Availability = ClassifyAvailability(ev.TicketClasses, now, p)
	return ev
}

// Reprice replaces the ticket classes of ev, for platforms where pricing is
// fetched separately from event metadata, and recomputes price and
// availability. A nil or empty classes slice makes the event free.
func Reprice(ev model.NormalizedEvent, classes []model.TicketClass, now time.Time, p Policy) model.NormalizedEvent {
	ev.TicketClasses = append([]model.TicketClass(nil), classes...)
	ev.Price = PriceRange(ev.TicketClasses, ev.Price.Currency)
	ev.Availability = ClassifyAvailability(ev.TicketClasses, now, p)
	if ev.Genre == "" {
		ev.Genre = ClassifyGenre(ev)
	}
	return ev
}
