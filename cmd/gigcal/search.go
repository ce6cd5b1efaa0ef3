package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"gigcal/internal/filter"
	appLog "gigcal/internal/log"
	"gigcal/internal/model"
)

// runSearch is a line-oriented search session over events. Plain lines are
// typed queries and go through the debouncer; lines starting with ':' are
// commands that apply immediately:
//
//	:genre jazz | :genre       restrict or clear the genre
//	:price 10 30 | :price 10   price bounds (no upper bound if omitted)
//	:clear                     reset every criterion
//	:quit
func runSearch(ctx context.Context, in io.Reader, out io.Writer, events []model.NormalizedEvent, debounce time.Duration) error {
	var mu sync.Mutex
	show := func(res []model.NormalizedEvent, n int) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, "%d match(es)\n", n)
		for _, ev := range res {
			fmt.Fprintf(out, "  %s  %-12s %-40s %s\n",
				ev.StartDate.Format("Mon Jan 02 15:04"),
				ev.Genre,
				ev.Name,
				priceLabel(ev),
			)
		}
	}

	s := filter.NewSearch(events, filter.WithDebounce(debounce), filter.WithOnResult(show))
	defer s.Close()
	show(s.Results(), s.MatchCount())

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, ":") {
			s.SetQuery(line)
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case ":quit":
			return nil
		case ":clear":
			s.Clear()
		case ":genre":
			if len(fields) == 1 {
				s.SetGenre(nil)
				continue
			}
			g, ok := model.ParseGenre(strings.ToLower(fields[1]))
			if !ok {
				appLog.Warn("unknown genre", "genre", fields[1])
				continue
			}
			s.SetGenre(&g)
		case ":price":
			lo, hi, err := parsePriceArgs(fields[1:])
			if err != nil {
				appLog.Warn("bad price range", "err", err)
				continue
			}
			s.SetPriceRange(lo, hi)
		default:
			appLog.Warn("unknown command", "command", fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// Input ended: let a pending query settle before returning.
	select {
	case <-time.After(debounce + 50*time.Millisecond):
	case <-ctx.Done():
	}
	return nil
}

func parsePriceArgs(args []string) (float64, float64, error) {
	if len(args) == 0 || len(args) > 2 {
		return 0, 0, fmt.Errorf("want :price MIN [MAX]")
	}
	lo, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, 0, err
	}
	hi := filter.NoMaxPrice
	if len(args) == 2 {
		if hi, err = strconv.ParseFloat(args[1], 64); err != nil {
			return 0, 0, err
		}
	}
	return lo, hi, nil
}

func priceLabel(ev model.NormalizedEvent) string {
	label := ev.Price.Display
	if ev.Price.IsFree {
		label = "Free"
	}
	if ev.Availability != model.AvailabilityAvailable {
		label += " (" + string(ev.Availability) + ")"
	}
	return label
}
