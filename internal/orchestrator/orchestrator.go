// Package orchestrator enumerates enabled SourceURLs, runs one Crawler
// per URL under a bounded-concurrency worker pool with panic-recover
// isolation and a per-worker hard timeout, persists every URL's events,
// and records one RunLog entry for the pass.
package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nordicstacks/eventpipeline/internal/crawler"
	"github.com/nordicstacks/eventpipeline/internal/domain/ids"
	"github.com/nordicstacks/eventpipeline/internal/model"
)

const (
	// DefaultConcurrency is the default worker parallelism cap.
	DefaultConcurrency = 2
	// DefaultWorkerTimeout is the default per-URL hard timeout.
	DefaultWorkerTimeout = 30 * time.Minute

	defaultRetentionDays = 90
)

// SourceLister supplies the snapshot of enabled SourceURLs a run
// enumerates at start.
type SourceLister interface {
	ListEnabled() ([]model.SourceURL, error)
}

// EventStore is the subset of storage/sqlite.EventStore the Orchestrator
// needs: per-event upsert plus the retention sweep.
type EventStore interface {
	Upsert(model.Event) error
	DeleteOlderThan(days int, now time.Time) (int64, error)
}

// RunLogInserter persists one RunLog entry.
type RunLogInserter interface {
	Insert(model.RunLog) error
}

// SettingsReader reads the auto-delete gate and window from the settings
// table.
type SettingsReader interface {
	Get(key, fallback string) (string, error)
}

// Crawler runs the single-URL pipeline; *crawler.Crawler satisfies it.
type Crawler interface {
	Crawl(ctx context.Context, listingURL string) crawler.Result
}

// Options configures one Orchestrator run.
type Options struct {
	Concurrency   int
	WorkerTimeout time.Duration
	Mode          model.RunMode
	Now           func() time.Time
}

func (o Options) concurrency() int {
	if o.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return o.Concurrency
}

func (o Options) workerTimeout() time.Duration {
	if o.WorkerTimeout <= 0 {
		return DefaultWorkerTimeout
	}
	return o.WorkerTimeout
}

func (o Options) mode() model.RunMode {
	if o.Mode == "" {
		return model.RunModeManual
	}
	return o.Mode
}

// Orchestrator wires the components of one extraction pass together.
type Orchestrator struct {
	Sources  SourceLister
	Events   EventStore
	RunLogs  RunLogInserter
	Settings SettingsReader
	Crawler  Crawler
	Log      zerolog.Logger
	Options  Options
}

func (o *Orchestrator) now() time.Time {
	if o.Options.Now != nil {
		return o.Options.Now()
	}
	return time.Now()
}

// urlOutcome is one worker's private result, merged under mu after it
// returns.
type urlOutcome struct {
	url      string
	events   int
	failed   bool
	warnings []string
}

// Run enumerates enabled sources (a snapshot; additions mid-run are not
// observed), fans out bounded-concurrency workers, persists results, and
// returns the aggregated RunLog. It always records a RunLog entry, even
// when the run is cancelled partway through.
func (o *Orchestrator) Run(ctx context.Context) (model.RunLog, error) {
	sources, err := o.Sources.ListEnabled()
	if err != nil {
		return model.RunLog{}, fmt.Errorf("orchestrator: list enabled sources: %w", err)
	}

	var (
		mu       sync.Mutex
		outcomes = make([]urlOutcome, 0, len(sources))
	)

	// errgroup's derived context only cancels on the parent ctx (SIGINT,
	// deadline) since every worker below always returns a nil error to
	// the group — one URL's failure must never cancel its siblings.
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.Options.concurrency())

	for _, src := range sources {
		src := src
		g.Go(func() error {
			outcome := o.runWorker(groupCtx, src)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	runLog := aggregateRunLog(outcomes, o.Options.mode(), o.now())
	if err := o.RunLogs.Insert(runLog); err != nil {
		o.Log.Warn().Err(err).Msg("orchestrator: failed to persist run log")
	}

	o.sweepRetention(o.now())

	return runLog, nil
}

// runWorker isolates one URL's Crawler run: a panic becomes a recorded
// failure instead of crashing the run, and a timeout persists no events
// for that URL.
func (o *Orchestrator) runWorker(parent context.Context, src model.SourceURL) (outcome urlOutcome) {
	outcome.url = src.URL

	defer func() {
		if r := recover(); r != nil {
			outcome.failed = true
			outcome.warnings = append(outcome.warnings, fmt.Sprintf("worker panic for %s: %v", src.URL, r))
		}
	}()

	workerCtx, cancel := context.WithTimeout(parent, o.Options.workerTimeout())
	defer cancel()

	result := o.Crawler.Crawl(workerCtx, src.URL)

	if workerCtx.Err() != nil {
		outcome.failed = true
		outcome.warnings = append(outcome.warnings, fmt.Sprintf("worker timed out for %s", src.URL))
		return outcome
	}

	persisted := 0
	for _, ev := range result.Events {
		if err := o.Events.Upsert(ev); err != nil {
			outcome.warnings = append(outcome.warnings, fmt.Sprintf("upsert failed for %q: %v", ev.EventName, err))
			continue
		}
		persisted++
	}
	outcome.events = persisted
	outcome.warnings = append(outcome.warnings, result.Warnings...)

	if persisted == 0 && len(result.Warnings) > 0 {
		outcome.failed = true
	}

	return outcome
}

func aggregateRunLog(outcomes []urlOutcome, mode model.RunMode, now time.Time) model.RunLog {
	var (
		totalEvents int
		failures    int
		warnings    []string
	)

	for _, o := range outcomes {
		totalEvents += o.events
		if o.failed {
			failures++
		}
		warnings = append(warnings, o.warnings...)
	}

	status := model.RunStatusOK
	switch {
	case failures > 0 && totalEvents == 0:
		status = model.RunStatusError
	case failures > 0:
		status = model.RunStatusWarn
	}

	runID, err := ids.NewULID()
	if err != nil {
		runID = strconv.FormatInt(now.UnixNano(), 36)
	}

	return model.RunLog{
		ID:          runID,
		Timestamp:   now,
		Mode:        mode,
		Status:      status,
		EventsFound: totalEvents,
		Failures:    failures,
		Warnings:    warnings,
	}
}

// sweepRetention calls EventStore.DeleteOlderThan once per run, gated by
// auto_delete_enabled, using auto_delete_days (falling back to
// defaultRetentionDays).
func (o *Orchestrator) sweepRetention(now time.Time) {
	if o.Settings == nil {
		return
	}

	enabled, err := o.Settings.Get("auto_delete_enabled", "false")
	if err != nil || !strings.EqualFold(enabled, "true") {
		return
	}

	daysStr, err := o.Settings.Get("auto_delete_days", strconv.Itoa(defaultRetentionDays))
	if err != nil {
		daysStr = strconv.Itoa(defaultRetentionDays)
	}
	days, err := strconv.Atoi(daysStr)
	if err != nil || days <= 0 {
		days = defaultRetentionDays
	}

	if _, err := o.Events.DeleteOlderThan(days, now); err != nil {
		o.Log.Warn().Err(err).Msg("orchestrator: retention sweep failed")
	}
}
