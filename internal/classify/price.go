package classify

import (
	"math"
	"strconv"
	"strings"

	"gigcal/internal/model"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"CAD": "$",
	"AUD": "$",
	"GBP": "£",
	"EUR": "€",
}

// FormatAmount renders a major-unit amount the way ticket widgets show it:
// whole amounts drop the decimals ("$25"), others keep two ("$25.50").
func FormatAmount(amount float64, currency string) string {
	code := strings.ToUpper(currency)
	symbol, ok := currencySymbols[code]
	if !ok {
		if code == "" {
			symbol = "$"
		} else {
			symbol = code + " "
		}
	}

	if amount == math.Trunc(amount) {
		return symbol + strconv.FormatFloat(amount, 'f', 0, 64)
	}
	return symbol + strconv.FormatFloat(amount, 'f', 2, 64)
}

// PriceRange aggregates ticket classes into an event price. Only classes not
// flagged free contribute to Min/Max. Display comes from the first class's
// formatted cost, or "Free" when nothing is paid.
func PriceRange(classes []model.TicketClass, currency string) model.Price {
	var (
		paid   bool
		lo, hi float64
	)

	for _, tc := range classes {
		if tc.Free {
			continue
		}
		v := tc.Cost.Major()
		if !paid {
			lo, hi = v, v
			paid = true
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if !paid {
		return model.FreePrice(currency)
	}

	if currency == "" {
		currency = classes[0].Cost.Currency
	}

	display := strings.TrimSpace(classes[0].Cost.Display)
	if display == "" || classes[0].Free {
		display = FormatAmount(lo, currency)
	}

	return model.Price{
		Min:      lo,
		Max:      hi,
		Currency: currency,
		Display:  display,
		IsFree:   false,
	}
}
