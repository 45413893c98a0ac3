package siteadapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nordicstacks/eventpipeline/internal/browser"
	"github.com/nordicstacks/eventpipeline/internal/model"
)

// DefaultDaySteps is the number of calendar days a DayStepAdapter walks
// before buffering results.
const DefaultDaySteps = 30

// DayStepAdapter handles listings that expose one day at a time: it
// loops N days, extracting per-day events and buffering by event name,
// then emits each unique name once with date_iso = first_seen_day and
// end_date_iso = last_seen_day (or N/A for a single-day event).
type DayStepAdapter struct {
	HostSuffix string
	Driver     browser.Driver
	URLForDay  func(day time.Time) string
	ExtractDay func(session browser.Session) ([]RawEvent, error)
	Days       int
	Now        func() time.Time
}

func (a *DayStepAdapter) Matches(rawURL string) bool {
	return hostMatches(rawURL, a.HostSuffix)
}

func (a *DayStepAdapter) Run(ctx context.Context, rawURL string) (Result, error) {
	days := a.Days
	if days <= 0 {
		days = DefaultDaySteps
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	today := truncateToDay(now())

	buf := newDayBuffer()
	var warnings []string

	for i := 0; i < days; i++ {
		if err := ctx.Err(); err != nil {
			warnings = append(warnings, fmt.Sprintf("day-stepping aborted after %d/%d days: %v", i, days, err))
			break
		}

		day := today.AddDate(0, 0, i)
		dayURL := a.URLForDay(day)

		session, err := a.Driver.Open(dayURL, browser.DefaultOpenWaits())
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("day-stepping open failed for %s: %v", dayURL, err))
			continue
		}

		events, err := a.ExtractDay(session)
		session.Close()
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("day-stepping extract failed for %s: %v", dayURL, err))
			continue
		}

		buf.add(day, events)
	}

	return Result{Events: buf.flush(), Warnings: warnings}, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// dayBuffer accumulates per-day event sightings keyed by event name and
// collapses them into one record per name spanning [first, last] seen.
type dayBuffer struct {
	order []string
	seen  map[string]*daySighting
}

type daySighting struct {
	first, last time.Time
	fields      RawEvent
}

func newDayBuffer() *dayBuffer {
	return &dayBuffer{seen: map[string]*daySighting{}}
}

func (b *dayBuffer) add(day time.Time, events []RawEvent) {
	for _, ev := range events {
		name := strings.TrimSpace(ev["event_name"])
		if name == "" {
			continue
		}
		existing, ok := b.seen[name]
		if !ok {
			b.order = append(b.order, name)
			b.seen[name] = &daySighting{first: day, last: day, fields: ev}
			continue
		}
		if day.Before(existing.first) {
			existing.first = day
		}
		if day.After(existing.last) {
			existing.last = day
		}
	}
}

func (b *dayBuffer) flush() []RawEvent {
	out := make([]RawEvent, 0, len(b.order))
	for _, name := range b.order {
		s := b.seen[name]
		fields := make(RawEvent, len(s.fields)+2)
		for k, v := range s.fields {
			fields[k] = v
		}
		fields["date_iso"] = s.first.Format("2006-01-02")
		if s.last.After(s.first) {
			fields["end_date_iso"] = s.last.Format("2006-01-02")
		} else {
			fields["end_date_iso"] = model.DateNA
		}
		out = append(out, fields)
	}
	return out
}
