package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "gigcal/internal/log"
	"gigcal/internal/model"
)

const productID = "-//gigcal//Event Calendar//EN"

// DefaultDuration is used for events whose payload carries no end time.
const DefaultDuration = 3 * time.Hour

// uidNamespace scopes the name-based UUIDs of exported events, so a given
// source event keeps the same UID across exports.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://gigcal.invalid/events"))

// Options controls feed export.
type Options struct {
	// Name is the calendar display name (X-WR-CALNAME).
	Name string
	// Stamp is written as DTSTAMP on every event. Zero means now.
	Stamp time.Time
}

// UID returns the stable iCalendar UID of ev.
func UID(ev model.NormalizedEvent) string {
	return uuid.NewSHA1(uidNamespace, []byte(ev.Key())).String() + "@gigcal"
}

// Encode renders events as a published iCalendar feed. Events without a
// start date cannot be placed on a calendar and are skipped.
func Encode(events []model.NormalizedEvent, opts Options) string {
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	skipped := 0
	for _, ev := range events {
		if ev.StartDate.IsZero() {
			skipped++
			continue
		}
		addEvent(cal, ev, stamp)
	}

	if skipped > 0 {
		appLog.Debug("ics export skipped undated events", "skipped", skipped)
	}
	return cal.Serialize()
}

func addEvent(cal *ical.Calendar, ev model.NormalizedEvent, stamp time.Time) {
	end := ev.EndDate
	if end.IsZero() || end.Before(ev.StartDate) {
		end = ev.StartDate.Add(DefaultDuration)
	}

	ve := cal.AddEvent(UID(ev))
	ve.SetDtStampTime(stamp)
	ve.SetStartAt(ev.StartDate)
	ve.SetEndAt(end)
	ve.SetSummary(ev.Name)
	if desc := describe(ev); desc != "" {
		ve.SetDescription(desc)
	}
	if loc := location(ev.Venue); loc != "" {
		ve.SetLocation(loc)
	}
	if ev.URL != "" {
		ve.SetURL(ev.URL)
	}
	if ev.Genre != "" {
		ve.AddProperty(ical.ComponentPropertyCategories, string(ev.Genre))
	}
	if isCancelled(ev.Status) {
		ve.SetStatus(ical.ObjectStatusCancelled)
	} else {
		ve.SetStatus(ical.ObjectStatusConfirmed)
	}
}

// describe appends price and availability to the event description.
func describe(ev model.NormalizedEvent) string {
	var parts []string
	if d := strings.TrimSpace(ev.Description); d != "" {
		parts = append(parts, d)
	}

	var line []string
	if ev.Price.IsFree {
		line = append(line, "Free")
	} else if ev.Price.Display != "" {
		line = append(line, "Tickets from "+ev.Price.Display)
	}
	switch ev.Availability {
	case model.AvailabilitySoldOut:
		line = append(line, "sold out")
	case model.AvailabilityLimited:
		line = append(line, "limited availability")
	case model.AvailabilityUpcoming:
		line = append(line, "on sale soon")
	}
	if len(line) > 0 {
		parts = append(parts, strings.Join(line, ", "))
	}
	return strings.Join(parts, "\n\n")
}

func location(v model.Venue) string {
	var parts []string
	for _, s := range []string{v.Name, v.Address} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func isCancelled(status string) bool {
	switch strings.ToLower(status) {
	case "canceled", "cancelled":
		return true
	}
	return false
}
