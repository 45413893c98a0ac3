package siteadapter

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordicstacks/eventpipeline/internal/browser"
	"github.com/nordicstacks/eventpipeline/internal/model"
)

func TestDayStepAdapter_BuffersRecurringEventAcrossDays(t *testing.T) {
	now := time.Date(2026, time.August, 1, 9, 0, 0, 0, time.UTC)
	driver := browser.NewFakeDriver()

	for i := 0; i < 5; i++ {
		day := time.Date(2026, time.August, 1+i, 0, 0, 0, 0, time.UTC)
		driver.Pages[fmt.Sprintf("https://kalender.example.com/day/%s", day.Format("2006-01-02"))] = &browser.FakeSession{}
	}

	adapter := &DayStepAdapter{
		HostSuffix: "example.com",
		Driver:     driver,
		Days:       5,
		Now:        func() time.Time { return now },
		URLForDay: func(day time.Time) string {
			return fmt.Sprintf("https://kalender.example.com/day/%s", day.Format("2006-01-02"))
		},
		ExtractDay: func(session browser.Session) ([]RawEvent, error) {
			return []RawEvent{{"event_name": "Sagostund", "time": "10:00"}}, nil
		},
	}

	result, err := adapter.Run(context.Background(), "https://kalender.example.com/day/2026-08-01")
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "2026-08-01", result.Events[0]["date_iso"])
	assert.Equal(t, "2026-08-05", result.Events[0]["end_date_iso"])
}

func TestDayStepAdapter_SingleDayEventGetsNAEndDate(t *testing.T) {
	now := time.Date(2026, time.August, 1, 9, 0, 0, 0, time.UTC)
	driver := browser.NewFakeDriver()
	driver.Pages["https://kalender.example.com/day/2026-08-01"] = &browser.FakeSession{}
	driver.Pages["https://kalender.example.com/day/2026-08-02"] = &browser.FakeSession{}

	calls := 0
	adapter := &DayStepAdapter{
		HostSuffix: "example.com",
		Driver:     driver,
		Days:       2,
		Now:        func() time.Time { return now },
		URLForDay: func(day time.Time) string {
			return fmt.Sprintf("https://kalender.example.com/day/%s", day.Format("2006-01-02"))
		},
		ExtractDay: func(session browser.Session) ([]RawEvent, error) {
			calls++
			if calls == 1 {
				return []RawEvent{{"event_name": "Engångsföreställning"}}, nil
			}
			return nil, nil
		},
	}

	result, err := adapter.Run(context.Background(), "https://kalender.example.com/day/2026-08-01")
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "2026-08-01", result.Events[0]["date_iso"])
	assert.Equal(t, model.DateNA, result.Events[0]["end_date_iso"])
}

func TestDayStepAdapter_OpenFailureRecordsWarningAndContinues(t *testing.T) {
	now := time.Date(2026, time.August, 1, 9, 0, 0, 0, time.UTC)
	driver := browser.NewFakeDriver()
	driver.Pages["https://kalender.example.com/day/2026-08-02"] = &browser.FakeSession{}

	adapter := &DayStepAdapter{
		HostSuffix: "example.com",
		Driver:     driver,
		Days:       2,
		Now:        func() time.Time { return now },
		URLForDay: func(day time.Time) string {
			return fmt.Sprintf("https://kalender.example.com/day/%s", day.Format("2006-01-02"))
		},
		ExtractDay: func(session browser.Session) ([]RawEvent, error) {
			return []RawEvent{{"event_name": "X"}}, nil
		},
	}

	result, err := adapter.Run(context.Background(), "https://kalender.example.com/day/2026-08-01")
	require.NoError(t, err)
	assert.Len(t, result.Warnings, 1)
	assert.Len(t, result.Events, 1)
}
