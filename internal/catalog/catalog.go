package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"gigcal/internal/adapter"
	"gigcal/internal/classify"
	appLog "gigcal/internal/log"
	"gigcal/internal/model"
)

// Source is one snapshot to load: a platform and where its payload lives.
// Prices optionally points at ticket classes published apart from the
// events, keyed by event ID; they replace the inline ones.
type Source struct {
	Platform model.Source
	Location string
	Prices   string
	Name     string
}

// Catalog holds the merged, normalized events of all sources. Reads are
// served from memory; Reload swaps the whole set at once.
type Catalog struct {
	sources []Source
	opts    adapter.Options
	reader  *SnapshotReader

	mu       sync.RWMutex
	events   []model.NormalizedEvent
	loadedAt time.Time

	cronMu sync.Mutex
	cron   *cron.Cron
}

// New creates an empty catalog. Call Reload to populate it.
func New(sources []Source, opts adapter.Options, reader *SnapshotReader) *Catalog {
	if reader == nil {
		reader = NewSnapshotReader(nil)
	}
	return &Catalog{
		sources: sources,
		opts:    opts,
		reader:  reader,
	}
}

// Reload reads and normalizes every source, then replaces the catalog.
// A source that cannot be read or split contributes no events; its error
// is logged and included in the joined error, but the other sources are
// still published.
func (c *Catalog) Reload(ctx context.Context) (int, error) {
	started := time.Now()

	var (
		all  []model.NormalizedEvent
		errs []error
	)
	for _, src := range c.sources {
		events, err := c.loadSource(ctx, src)
		if err != nil {
			appLog.Error("catalog: source failed, treating as empty", err,
				"source", src.Platform,
				"name", src.Name,
			)
			errs = append(errs, fmt.Errorf("%s: %w", sourceLabel(src), err))
			continue
		}
		appLog.Info("catalog: source loaded",
			"source", src.Platform,
			"name", src.Name,
			"events", len(events),
		)
		all = append(all, events...)
	}

	sortByStart(all)

	c.mu.Lock()
	c.events = all
	c.loadedAt = time.Now()
	c.mu.Unlock()

	appLog.Info("catalog: reload finished",
		"sources", len(c.sources),
		"events", len(all),
		"failed", len(errs),
		"took", time.Since(started).Round(time.Millisecond),
	)
	return len(all), errors.Join(errs...)
}

func (c *Catalog) loadSource(ctx context.Context, src Source) ([]model.NormalizedEvent, error) {
	a, err := adapter.ForSource(src.Platform, c.opts)
	if err != nil {
		return nil, err
	}
	body, _, err := c.reader.Read(ctx, src.Location)
	if err != nil {
		return nil, err
	}
	raws, err := adapter.SplitPayload(body)
	if err != nil {
		return nil, err
	}
	events := adapter.NormalizeAll(a, raws)
	if src.Prices == "" {
		return events, nil
	}
	if err := c.reprice(ctx, a, src, events); err != nil {
		return nil, fmt.Errorf("prices: %w", err)
	}
	return events, nil
}

// reprice applies the source's separate ticket listing to events in place.
// Events without an entry keep their inline pricing.
func (c *Catalog) reprice(ctx context.Context, a adapter.Adapter, src Source, events []model.NormalizedEvent) error {
	p, ok := a.(adapter.Pricer)
	if !ok {
		return fmt.Errorf("%s publishes no separate ticket listing", src.Platform)
	}
	body, _, err := c.reader.Read(ctx, src.Prices)
	if err != nil {
		return err
	}
	prices, err := adapter.SplitPrices(body)
	if err != nil {
		return err
	}

	now := time.Now()
	if c.opts.Clock != nil {
		now = c.opts.Clock.Now()
	}
	repriced := 0
	for i, ev := range events {
		raw, ok := prices[ev.ID]
		if !ok {
			continue
		}
		events[i] = classify.Reprice(ev, p.TicketClasses(raw, ev.Price.Currency), now, c.opts.Policy)
		repriced++
	}
	appLog.Debug("catalog: prices applied", "source", src.Platform, "events", repriced, "listed", len(prices))
	return nil
}

// Events returns a copy of the current events, ordered by start date.
func (c *Catalog) Events() []model.NormalizedEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.NormalizedEvent, len(c.events))
	copy(out, c.events)
	return out
}

// LoadedAt returns when the last Reload finished, or the zero time.
func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Start schedules Reload on a standard 5-field cron spec until Stop is
// called. The schedule runs in loc.
func (c *Catalog) Start(ctx context.Context, spec string, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	c.cronMu.Lock()
	defer c.cronMu.Unlock()
	if c.cron != nil {
		return errors.New("catalog: refresh already started")
	}

	cr := cron.New(cron.WithLocation(loc))
	_, err := cr.AddFunc(spec, func() {
		if _, err := c.Reload(ctx); err != nil {
			appLog.Warn("catalog: scheduled reload finished with errors", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("catalog: refresh schedule %q: %w", spec, err)
	}

	cr.Start()
	c.cron = cr
	appLog.Info("catalog: refresh scheduled", "cron", spec, "timezone", loc.String())
	return nil
}

// Stop stops the refresh schedule and waits for a running reload.
func (c *Catalog) Stop() {
	c.cronMu.Lock()
	cr := c.cron
	c.cron = nil
	c.cronMu.Unlock()

	if cr == nil {
		return
	}
	<-cr.Stop().Done()
}

// sortByStart orders events by start date; undated events go last. Ties
// keep source order.
func sortByStart(events []model.NormalizedEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].StartDate, events[j].StartDate
		if a.IsZero() != b.IsZero() {
			return b.IsZero()
		}
		return a.Before(b)
	})
}

func sourceLabel(src Source) string {
	if src.Name != "" {
		return src.Name
	}
	return string(src.Platform)
}
