package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/robfig/cron/v3"

	"rentalcars-watcher/config"
	"rentalcars-watcher/models"
	"rentalcars-watcher/notify"
	"rentalcars-watcher/scraper/rentalcars"
	"rentalcars-watcher/services"
	"rentalcars-watcher/storage"
	"rentalcars-watcher/utils"
)

func main() {
	watch := flag.Bool("watch", false, "Run on the configured cron schedule")
	statsOnly := flag.Bool("stats", false, "Print stats from stored history (no fetch)")
	jsonOut := flag.Bool("json", false, "Scrape once and print the run as JSON on stdout (no persistence)")
	ingestStdin := flag.Bool("ingest", false, "Read one run record as JSON from stdin, validate and persist")
	dumpHTML := flag.Bool("dump-html", false, "Save search results HTML to a file for selector debugging")
	noHeadless := flag.Bool("no-headless", false, "Show the browser window")
	flag.Parse()

	cfg := config.Load()
	headless := !*noHeadless

	if *jsonOut {
		os.Exit(runJSON(cfg, headless))
	}

	logger := utils.NewLogger()

	if *dumpHTML {
		scr := rentalcars.New(cfg, logger, headless)
		if _, err := scr.DumpHTML(""); err != nil {
			logger.Error("HTML dump failed: %v", err)
			os.Exit(1)
		}
		return
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("Failed to open %s store: %v", cfg.StoreBackend, err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *ingestStdin:
		if err := ingestFromStdin(store, logger); err != nil {
			logger.Error("Ingest failed: %v", err)
			os.Exit(1)
		}
	case *statsOnly:
		showStats(cfg, store, logger)
	case *watch:
		runWatch(cfg, store, logger, headless)
	default:
		if err := runOnce(cfg, store, logger, headless); err != nil {
			logger.Error("Run failed: %v", err)
			os.Exit(1)
		}
	}
}

// runOnce fetches prices, persists the run, prints stats, and notifies when
// the rate is cheap. A scrape failure still records a zero-offer run so the
// history keeps track of blocked attempts.
func runOnce(cfg *config.Config, store storage.RunStore, logger *utils.Logger, headless bool) error {
	logger.Info("=== Rentalcars price watcher — %s (%s, %s) ===",
		cfg.LocationIata, cfg.Transmission, cfg.CarCategory)

	scr := rentalcars.New(cfg, logger, headless)
	obs, err := scr.Fetch()
	if err != nil {
		logger.Error("Scrape failed, recording zero-offer run: %v", err)
	}

	rec := services.BuildRecord(obs)
	ingestor := services.NewIngestor(store, logger)
	if err := ingestor.Ingest(rec); err != nil {
		return err
	}

	if len(obs.Prices) > 0 {
		if err := writeAuditCSV(cfg, obs); err != nil {
			logger.Warn("CSV audit write failed: %v", err)
		} else {
			logger.Info("Raw observation saved to %s", cfg.CSVOutputPath)
		}
	}

	records, err := store.QueryByDateRange(cfg.PickupDate, cfg.DropoffDate)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}

	statsSvc := services.NewStatsService(logger)
	report := statsSvc.Compute(records)
	statsSvc.Print(report, records, cfg.PickupDate, cfg.DropoffDate)

	if rec.MinPricePerDay != nil {
		cheap, threshold := statsSvc.IsCheap(*rec.MinPricePerDay, records, cfg.CheapPercentile)
		if cheap {
			notifier := notify.New(logger, cfg.DesktopNotify)
			notifier.CheapRate(*rec.MinPricePerDay, *rec.MinTotalPrice, rec.RentalDays, threshold, rec.URL)
		}
	}
	return nil
}

// runJSON scrapes once and emits the run record as a single JSON object on
// stdout, progress on stderr — the shape the CI ingestion job consumes.
// Exit code 1 signals a run without prices.
func runJSON(cfg *config.Config, headless bool) int {
	logger := utils.NewStderrLogger()

	scr := rentalcars.New(cfg, logger, headless)
	obs, err := scr.Fetch()
	if err != nil {
		logger.Error("Scrape failed: %v", err)
	}

	rec := services.BuildRecord(obs)
	payload, err := json.Marshal(rec)
	if err != nil {
		logger.Error("Marshal run: %v", err)
		return 2
	}
	fmt.Println(string(payload))

	if rec.MinTotalPrice == nil {
		return 1
	}
	return 0
}

// ingestFromStdin reads one externally-produced run record, validates it,
// and appends it to the store.
func ingestFromStdin(store storage.RunStore, logger *utils.Logger) error {
	var rec models.RunRecord
	if err := json.NewDecoder(os.Stdin).Decode(&rec); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return services.NewIngestor(store, logger).Ingest(&rec)
}

// showStats prints aggregates from stored history without fetching.
func showStats(cfg *config.Config, store storage.RunStore, logger *utils.Logger) {
	records, err := store.QueryByDateRange(cfg.PickupDate, cfg.DropoffDate)
	if err != nil {
		logger.Error("Query history: %v", err)
		os.Exit(1)
	}

	statsSvc := services.NewStatsService(logger)
	report := statsSvc.Compute(records)
	statsSvc.Print(report, records, cfg.PickupDate, cfg.DropoffDate)
}

// runWatch runs once immediately, then on the configured cron schedule.
func runWatch(cfg *config.Config, store storage.RunStore, logger *utils.Logger, headless bool) {
	if err := runOnce(cfg, store, logger, headless); err != nil {
		logger.Error("Run failed: %v", err)
	}

	c := cron.New()
	_, err := c.AddFunc(cfg.WatchCron, func() {
		if err := runOnce(cfg, store, logger, headless); err != nil {
			logger.Error("Scheduled run failed: %v", err)
		}
	})
	if err != nil {
		logger.Error("Bad WATCH_CRON %q: %v", cfg.WatchCron, err)
		os.Exit(1)
	}

	logger.Info("Watching on schedule %q", cfg.WatchCron)
	c.Run()
}

func writeAuditCSV(cfg *config.Config, obs *models.PriceObservation) error {
	w, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		return err
	}
	defer w.Close()
	return w.WriteObservation(obs)
}

// openStore selects the history backend from configuration.
func openStore(cfg *config.Config, logger *utils.Logger) (storage.RunStore, error) {
	switch cfg.StoreBackend {
	case "sqlite", "":
		return storage.NewSQLiteStore(cfg.SQLitePath, cfg.HistoryLimit)
	case "postgres":
		return storage.NewPostgresStore(cfg.DSN(), cfg.HistoryLimit)
	case "redis":
		return storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKey, cfg.HistoryLimit)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
