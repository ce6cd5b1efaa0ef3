package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"gigcal/internal/adapter"
	"gigcal/internal/calendar"
	"gigcal/internal/catalog"
	"gigcal/internal/clock"
	"gigcal/internal/config"
	appLog "gigcal/internal/log"
	"gigcal/internal/model"
	"gigcal/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	envPath    string
	listen     string
	once       bool
	month      string
	search     bool
	browse     bool
}

func main() {
	flags := parseFlags()

	conf, err := loadConfig(flags)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("gigcal starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"debounce", conf.Debounce(),
		"sources", len(conf.Sources),
		"once", flags.once,
	)

	loc := conf.Location()
	clk := clock.NewSystem(loc)
	cat := catalog.New(catalogSources(conf), adapter.Options{
		Venue:    model.Venue{Name: conf.Venue.Name, Address: conf.Venue.Address},
		Currency: conf.Currency,
		Clock:    clk,
		Policy:   conf.Availability,
	}, nil)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := cat.Reload(ctx); err != nil {
		appLog.Warn("initial load finished with errors", "err", err)
	}

	if flags.search {
		if err := runSearch(ctx, os.Stdin, os.Stdout, cat.Events(), conf.Debounce()); err != nil {
			appLog.Error("search failed", err)
			os.Exit(1)
		}
		return
	}

	if flags.browse {
		if err := runBrowse(os.Stdin, os.Stdout, cat.Events(), flags.month, clk, loc); err != nil {
			appLog.Error("browse failed", err)
			os.Exit(1)
		}
		return
	}

	if flags.once {
		if err := dump(os.Stdout, cat.Events(), flags.month, clk, loc); err != nil {
			appLog.Error("dump failed", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, conf, cat, clk); err != nil {
		appLog.Error("server failed", err)
		os.Exit(1)
	}
	appLog.Info("gigcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.envPath, "env", ".env", "Optional .env file with GIGCAL_* overrides")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Load snapshots once, print the catalog as JSON and exit")
	flag.StringVar(&cfg.month, "month", "", "With -once, print the month grid for YYYY-MM instead; with -browse, the month to open")
	flag.BoolVar(&cfg.search, "search", false, "Read search queries from stdin and print matches")
	flag.BoolVar(&cfg.browse, "browse", false, "Navigate the month grid with key names read from stdin")

	flag.Parse()

	return cfg
}

// loadConfig applies, in order: the YAML file, .env / environment
// overrides, then CLI flags, and validates the result.
func loadConfig(flags flagConfig) (*config.Config, error) {
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	env, err := config.ReadEnv(flags.envPath)
	if err != nil {
		return nil, err
	}
	conf.ApplyEnv(env)

	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func catalogSources(conf *config.Config) []catalog.Source {
	out := make([]catalog.Source, 0, len(conf.Sources))
	for _, s := range conf.Sources {
		out = append(out, catalog.Source{
			Platform: model.Source(s.Source),
			Location: s.Path,
			Prices:   s.Prices,
			Name:     s.Name,
		})
	}
	return out
}

// dump writes the catalog, or one month grid of it, as indented JSON.
func dump(w io.Writer, events []model.NormalizedEvent, month string, clk clock.Clock, loc *time.Location) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if month == "" {
		return enc.Encode(events)
	}

	first, err := time.ParseInLocation("2006-01", month, loc)
	if err != nil {
		return fmt.Errorf("month %q: want YYYY-MM", month)
	}
	grid := calendar.BuildGrid(first.Year(), first.Month(), calendar.IndexByDate(events, loc), clk.Now().In(loc))
	return enc.Encode(grid)
}

func serve(ctx context.Context, conf *config.Config, cat *catalog.Catalog, clk clock.Clock) error {
	if err := cat.Start(ctx, conf.RefreshCron, conf.Location()); err != nil {
		return err
	}
	defer cat.Stop()

	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           web.NewServer(conf, cat, clk).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
