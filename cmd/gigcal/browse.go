package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"gigcal/internal/calendar"
	"gigcal/internal/clock"
	"gigcal/internal/filter"
	appLog "gigcal/internal/log"
	"gigcal/internal/model"
)

// checkoutPrinter stands in for the ticket widget: it prints where the
// selected event is sold.
type checkoutPrinter struct {
	out io.Writer
}

func (p checkoutPrinter) OpenCheckout(ev model.NormalizedEvent) {
	fmt.Fprintf(p.out, "checkout: %s %s\n", ev.Name, ev.URL)
}

// runBrowse drives the month grid from stdin. Each line is a key name
// (ArrowLeft, ArrowRight, ArrowUp, ArrowDown, Home, End, PageUp, PageDown,
// Enter, Space) or a command:
//
//	:genre jazz | :genre   show only one genre, or all
//	:checkout              hand the selected event to checkout
//	:clear                 drop the selection
//	:quit
func runBrowse(in io.Reader, out io.Writer, events []model.NormalizedEvent, month string, clk clock.Clock, loc *time.Location) error {
	now := clk.Now().In(loc)
	year, mon := now.Year(), now.Month()
	if month != "" {
		first, err := time.ParseInLocation("2006-01", month, loc)
		if err != nil {
			return fmt.Errorf("month %q: want YYYY-MM", month)
		}
		year, mon = first.Year(), first.Month()
	}

	nav := calendar.NewNavigator(year, mon, calendar.IndexByDate(events, loc), clk)
	printNavigator(out, nav)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, ":") {
			if !nav.HandleKey(calendar.Key(line)) {
				appLog.Warn("unbound key", "key", line)
				continue
			}
			printNavigator(out, nav)
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case ":quit":
			return nil
		case ":clear":
			nav.ClearSelection()
			printNavigator(out, nav)
		case ":checkout":
			if !nav.HandOff(checkoutPrinter{out: out}) {
				fmt.Fprintln(out, "nothing selected")
			}
		case ":genre":
			st := filter.DefaultState()
			if len(fields) > 1 {
				g, ok := model.ParseGenre(strings.ToLower(fields[1]))
				if !ok {
					appLog.Warn("unknown genre", "genre", fields[1])
					continue
				}
				st.Genre = &g
			}
			nav.SetIndex(calendar.IndexByDate(filter.Filter(events, st), loc))
			printNavigator(out, nav)
		default:
			appLog.Warn("unknown command", "command", fields[0])
		}
	}
	return scanner.Err()
}

func printNavigator(out io.Writer, nav *calendar.Navigator) {
	day := nav.FocusedDay()
	fmt.Fprintf(out, "%s %d  focus %s (%d event(s))", nav.Month(), nav.Year(), day.Key, len(day.Events))
	if d := nav.SelectedDate(); d != nil {
		fmt.Fprintf(out, "  selected %s", calendar.KeyOf(*d))
		if ev := nav.SelectedEvent(); ev != nil {
			fmt.Fprintf(out, " %s", ev.Name)
		}
	}
	fmt.Fprintln(out)
}
