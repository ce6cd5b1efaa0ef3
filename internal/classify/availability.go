package classify

import (
	"time"

	"gigcal/internal/model"
)

// Policy holds the product-owned knobs of availability classification.
type Policy struct {
	// LowStockRemaining marks an on-sale class as nearly exhausted when its
	// remaining count is at or below this value. It is an absolute count,
	// not a share of capacity.
	LowStockRemaining int `yaml:"low_stock_remaining" json:"low_stock_remaining"`
}

// DefaultPolicy treats only exhausted classes as low stock.
func DefaultPolicy() Policy {
	return Policy{LowStockRemaining: 0}
}

// IsOnSale reports whether tc is inside its sales window at now and visible.
func IsOnSale(tc model.TicketClass, now time.Time) bool {
	if tc.Hidden {
		return false
	}
	if tc.SalesStart != nil && tc.SalesStart.After(now) {
		return false
	}
	if tc.SalesEnd != nil && tc.SalesEnd.Before(now) {
		return false
	}
	return true
}

// ClassifyAvailability derives the stock status of an event from its ticket
// classes. Checks run in order: soldout, upcoming, limited, available.
// Events without visible classes are available.
func ClassifyAvailability(classes []model.TicketClass, now time.Time, p Policy) model.Availability {
	visible := 0
	allGone := true
	anyStarted := false
	stocked := false
	low := false

	for _, tc := range classes {
		if tc.Hidden {
			continue
		}
		visible++

		remaining := tc.Remaining()
		if remaining > 0 {
			allGone = false
		}
		if tc.SalesStart == nil || !tc.SalesStart.After(now) {
			anyStarted = true
		}

		if !IsOnSale(tc, now) {
			continue
		}
		if remaining > 0 {
			stocked = true
		}
		if remaining <= p.LowStockRemaining {
			low = true
		}
	}

	switch {
	case visible == 0:
		return model.AvailabilityAvailable
	case allGone:
		return model.AvailabilitySoldOut
	case !anyStarted:
		return model.AvailabilityUpcoming
	case stocked && low:
		return model.AvailabilityLimited
	default:
		return model.AvailabilityAvailable
	}
}
