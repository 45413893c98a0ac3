package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nordicstacks/eventpipeline/internal/aiextractor"
	"github.com/nordicstacks/eventpipeline/internal/browser"
	"github.com/nordicstacks/eventpipeline/internal/config"
	"github.com/nordicstacks/eventpipeline/internal/crawler"
	"github.com/nordicstacks/eventpipeline/internal/orchestrator"
	"github.com/nordicstacks/eventpipeline/internal/storage/sqlite"
)

// app bundles the wired components shared by run, sources, selectors,
// settings, and logs. Every subcommand builds one, uses what it needs,
// and calls close when done.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	db       *sqlite.DB
	events   *sqlite.EventStore
	sources  *sqlite.SourceURLStore
	selsto   *sqlite.SelectorStore
	runlogs  *sqlite.RunLogStore
	settings *sqlite.SettingsStore
}

// loadApp resolves configuration, applies the --log-level/--log-format
// overrides, opens the embedded store (migrating and seeding on first
// run), and returns a ready-to-use app. Call close() on the returned
// cleanup before exiting.
func loadApp() (*app, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, func() {}, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	logger := config.NewLogger(cfg.Logging)

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, func() {}, fmt.Errorf("open store: %w", err)
	}
	cleanup := func() { db.Conn.Close() }

	sources := sqlite.NewSourceURLStore(db)
	settings := sqlite.NewSettingsStore(db)
	if err := sources.SeedDefaults(); err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("seed sources: %w", err)
	}
	if err := settings.SeedDefaults(); err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("seed settings: %w", err)
	}

	return &app{
		cfg:      cfg,
		log:      logger,
		db:       db,
		events:   sqlite.NewEventStore(db),
		sources:  sources,
		selsto:   sqlite.NewSelectorStore(db),
		runlogs:  sqlite.NewRunLogStore(db),
		settings: settings,
	}, cleanup, nil
}

// newDriver launches the headless browser used by every Crawler this
// process runs. Callers are responsible for closing it.
func (a *app) newDriver() (*browser.RodDriver, error) {
	return browser.NewRodDriver("", true)
}

// newExtractor builds the AI fallback extractor from the configured API
// key and model hint.
func (a *app) newExtractor() aiextractor.Extractor {
	return aiextractor.NewOpenAIExtractor(a.cfg.AIAPIKey, a.cfg.AIModelHint, a.log)
}

// newCrawler wires one Crawler sharing this app's store and extractor.
func (a *app) newCrawler(driver browser.Driver, extractor aiextractor.Extractor) *crawler.Crawler {
	return &crawler.Crawler{
		Driver:    driver,
		Extractor: extractor,
		Selectors: a.selsto,
		Now:       time.Now,
		Log:       a.log,
		Options: crawler.Options{
			HorizonDays: a.cfg.HorizonDays,
		},
	}
}

// newOrchestrator wires one Orchestrator run over this app's stores.
func (a *app) newOrchestrator(c *crawler.Crawler) *orchestrator.Orchestrator {
	return &orchestrator.Orchestrator{
		Sources:  a.sources,
		Events:   a.events,
		RunLogs:  a.runlogs,
		Settings: a.settings,
		Crawler:  c,
		Log:      a.log,
		Options: orchestrator.Options{
			Concurrency:   a.cfg.Concurrency,
			WorkerTimeout: a.cfg.PerURLTimeout,
		},
	}
}
