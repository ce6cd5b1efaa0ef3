package adapter

import (
	"encoding/json"
	"strings"

	"gigcal/internal/model"
)

type ttTicketType struct {
	Name           flexString `json:"name"`
	Price          *flexInt   `json:"price"`
	Status         flexString `json:"status"`
	Quantity       flexInt    `json:"quantity"`
	QuantityTotal  flexInt    `json:"quantity_total"`
	QuantityIssued flexInt    `json:"quantity_issued"`
	SalesStart     flexTime   `json:"sales_start"`
	SalesEnd       flexTime   `json:"sales_end"`
}

type ttEvent struct {
	ID          flexString `json:"id"`
	Name        flexString `json:"name"`
	Description flexString `json:"description"`
	Start       flexTime   `json:"start"`
	End         flexTime   `json:"end"`
	URL         flexString `json:"url"`
	Images      *struct {
		Header    flexString `json:"header"`
		Thumbnail flexString `json:"thumbnail"`
	} `json:"images"`
	Venue *struct {
		Name       flexString `json:"name"`
		PostalCode flexString `json:"postal_code"`
	} `json:"venue"`
	Status      flexString     `json:"status"`
	Currency    flexString     `json:"currency"`
	TicketTypes []ttTicketType `json:"ticket_types"`
}

// TicketTailor normalizes Ticket Tailor event objects. Ticket Tailor
// reports no category, so genre always comes from the event name.
type TicketTailor struct {
	opts Options
}

func NewTicketTailor(opts Options) *TicketTailor {
	return &TicketTailor{opts: opts.withDefaults()}
}

func (a *TicketTailor) Source() model.Source { return model.SourceTicketTailor }

func (a *TicketTailor) Normalize(raw json.RawMessage) model.NormalizedEvent {
	var in ttEvent
	decode(model.SourceTicketTailor, raw, &in)

	currency := strings.ToUpper(in.Currency.String())
	ev := model.NormalizedEvent{
		ID:          in.ID.String(),
		Name:        in.Name.String(),
		Description: in.Description.String(),
		StartDate:   in.Start.Time,
		EndDate:     in.End.Time,
		URL:         in.URL.String(),
		Status:      in.Status.String(),
		Source:      model.SourceTicketTailor,
		Price:       model.Price{Currency: currency},
	}

	if in.Images != nil {
		ev.ImageURL = firstNonEmpty(in.Images.Header.String(), in.Images.Thumbnail.String())
	}

	var venue model.Venue
	if in.Venue != nil {
		venue.Name = in.Venue.Name.String()
		venue.Address = in.Venue.PostalCode.String()
	}
	ev.Venue = a.opts.venueOr(venue)

	for _, tt := range in.TicketTypes {
		ev.TicketClasses = append(ev.TicketClasses, ttTicketTypeToModel(tt, currency))
	}

	return a.opts.finish(ev)
}

// TicketClasses decodes a Ticket Tailor ticket_types array.
func (a *TicketTailor) TicketClasses(raw json.RawMessage, currency string) []model.TicketClass {
	var in []ttTicketType
	if !decode(model.SourceTicketTailor, raw, &in) {
		return nil
	}
	currency = strings.ToUpper(currency)
	out := make([]model.TicketClass, 0, len(in))
	for _, tt := range in {
		out = append(out, ttTicketTypeToModel(tt, currency))
	}
	return out
}

func ttTicketTypeToModel(tt ttTicketType, currency string) model.TicketClass {
	status := strings.ToLower(tt.Status.String())

	total := int(tt.QuantityTotal)
	sold := int(tt.QuantityIssued)
	// Older payloads only carry the remaining quantity.
	if total == 0 && tt.Quantity > 0 {
		total = int(tt.Quantity) + sold
	}
	if status == "sold_out" && sold < total {
		sold = total
	}

	out := model.TicketClass{
		Name:          tt.Name.String(),
		QuantityTotal: total,
		QuantitySold:  sold,
		SalesStart:    tt.SalesStart.ptr(),
		SalesEnd:      tt.SalesEnd.ptr(),
		Hidden:        status == "hidden",
	}

	if tt.Price == nil || *tt.Price <= 0 {
		out.Free = true
		return out
	}
	out.Cost = model.Cost{MinorValue: int64(*tt.Price), Currency: currency}
	return out
}
