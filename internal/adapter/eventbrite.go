package adapter

import (
	"encoding/json"
	"strings"
	"time"

	"gigcal/internal/model"
)

type ebText struct {
	Text flexString `json:"text"`
}

type ebNamed struct {
	Name flexString `json:"name"`
}

type ebDateTime struct {
	Timezone flexString `json:"timezone"`
	Local    flexString `json:"local"`
	UTC      flexString `json:"utc"`
}

// instant prefers the UTC instant and falls back to the local wall time in the
// event's own timezone.
func (d ebDateTime) instant() time.Time {
	if t := parseTime(d.UTC.String(), time.UTC); !t.IsZero() {
		return t
	}
	loc := time.UTC
	if name := d.Timezone.String(); name != "" {
		if l, err := time.LoadLocation(name); err == nil {
			loc = l
		}
	}
	return parseTime(d.Local.String(), loc)
}

type ebVenue struct {
	Name    flexString `json:"name"`
	Address *struct {
		LocalizedAddressDisplay flexString `json:"localized_address_display"`
		Address1                flexString `json:"address_1"`
		City                    flexString `json:"city"`
	} `json:"address"`
}

type ebCost struct {
	Value    flexInt    `json:"value"`
	Display  flexString `json:"display"`
	Currency flexString `json:"currency"`
}

type ebTicketClass struct {
	Name          flexString `json:"name"`
	Cost          *ebCost    `json:"cost"`
	Free          flexBool   `json:"free"`
	Hidden        flexBool   `json:"hidden"`
	QuantityTotal flexInt    `json:"quantity_total"`
	QuantitySold  flexInt    `json:"quantity_sold"`
	SalesStart    flexTime   `json:"sales_start"`
	SalesEnd      flexTime   `json:"sales_end"`
}

type ebEvent struct {
	ID            flexString      `json:"id"`
	Name          ebText          `json:"name"`
	Description   ebText          `json:"description"`
	Summary       flexString      `json:"summary"`
	Start         ebDateTime      `json:"start"`
	End           ebDateTime      `json:"end"`
	URL           flexString      `json:"url"`
	Logo          *ebImage        `json:"logo"`
	Venue         *ebVenue        `json:"venue"`
	Status        flexString      `json:"status"`
	Currency      flexString      `json:"currency"`
	Category      *ebNamed        `json:"category"`
	Subcategory   *ebNamed        `json:"subcategory"`
	Organizer     *ebNamed        `json:"organizer"`
	TicketClasses []ebTicketClass `json:"ticket_classes"`
}

type ebImage struct {
	URL flexString `json:"url"`
}

// Eventbrite normalizes Eventbrite v3 event objects, expanded with venue,
// category, subcategory, organizer and ticket_classes.
type Eventbrite struct {
	opts Options
}

func NewEventbrite(opts Options) *Eventbrite {
	return &Eventbrite{opts: opts.withDefaults()}
}

func (a *Eventbrite) Source() model.Source { return model.SourceEventbrite }

func (a *Eventbrite) Normalize(raw json.RawMessage) model.NormalizedEvent {
	var in ebEvent
	decode(model.SourceEventbrite, raw, &in)

	ev := model.NormalizedEvent{
		ID:          in.ID.String(),
		Name:        in.Name.Text.String(),
		Description: firstNonEmpty(in.Description.Text.String(), in.Summary.String()),
		StartDate:   in.Start.instant(),
		EndDate:     in.End.instant(),
		URL:         in.URL.String(),
		Status:      in.Status.String(),
		Source:      model.SourceEventbrite,
		Price:       model.Price{Currency: strings.ToUpper(in.Currency.String())},
	}

	if in.Logo != nil {
		ev.ImageURL = in.Logo.URL.String()
	}
	if in.Organizer != nil {
		ev.Organizer = in.Organizer.Name.String()
	}
	// The subcategory is the more specific label ("Jazz" under "Music").
	if in.Subcategory != nil && in.Subcategory.Name != "" {
		ev.Category = in.Subcategory.Name.String()
	} else if in.Category != nil {
		ev.Category = in.Category.Name.String()
	}

	var venue model.Venue
	if in.Venue != nil {
		venue.Name = in.Venue.Name.String()
		if addr := in.Venue.Address; addr != nil {
			venue.Address = firstNonEmpty(
				addr.LocalizedAddressDisplay.String(),
				joinNonEmpty(", ", addr.Address1.String(), addr.City.String()),
			)
		}
	}
	ev.Venue = a.opts.venueOr(venue)

	for _, tc := range in.TicketClasses {
		ev.TicketClasses = append(ev.TicketClasses, ebTicketClassToModel(tc))
	}

	return a.opts.finish(ev)
}

// TicketClasses decodes an Eventbrite ticket_classes array. Costs carry
// their own currency.
func (a *Eventbrite) TicketClasses(raw json.RawMessage, _ string) []model.TicketClass {
	var in []ebTicketClass
	if !decode(model.SourceEventbrite, raw, &in) {
		return nil
	}
	out := make([]model.TicketClass, 0, len(in))
	for _, tc := range in {
		out = append(out, ebTicketClassToModel(tc))
	}
	return out
}

func ebTicketClassToModel(tc ebTicketClass) model.TicketClass {
	out := model.TicketClass{
		Name:          tc.Name.String(),
		QuantityTotal: int(tc.QuantityTotal),
		QuantitySold:  int(tc.QuantitySold),
		SalesStart:    tc.SalesStart.ptr(),
		SalesEnd:      tc.SalesEnd.ptr(),
		Hidden:        bool(tc.Hidden),
		Free:          bool(tc.Free),
	}
	// A class with no cost object at all is treated as free.
	if tc.Cost == nil {
		out.Free = true
		return out
	}
	out.Cost = model.Cost{
		MinorValue: int64(tc.Cost.Value),
		Display:    tc.Cost.Display.String(),
		Currency:   strings.ToUpper(tc.Cost.Currency.String()),
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
