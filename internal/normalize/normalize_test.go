package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordicstacks/eventpipeline/internal/model"
)

var refNow = time.Date(2026, time.July, 31, 12, 0, 0, 0, time.UTC)

func TestParseDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"iso date", "2026-12-24", "2026-12-24", true},
		{"iso datetime prefix", "2026-12-24T18:00:00", "2026-12-24", true},
		{"swedish day month", "24 december", "2026-12-24", true},
		{"swedish abbreviated with weekday", "tis 24 dec", "2026-12-24", true},
		{"swedish with explicit year", "24 december 2025", "2025-12-24", true},
		{"english month", "24 December", "2026-12-24", true},
		{"past date rolls to next year", "15 januari", "2027-01-15", true},
		{"empty string", "", "", false},
		{"garbage", "not a date at all", "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseDate(tt.in, refNow)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseDateRange(t *testing.T) {
	t.Parallel()

	start, end, hasEnd := ParseDateRange("24 december 2025 - 2 januari 2026", refNow)
	require.True(t, hasEnd)
	assert.Equal(t, "2025-12-24", start)
	assert.Equal(t, "2026-01-02", end)

	start, end, hasEnd = ParseDateRange("2026-03-15 - 2026-03-18", refNow)
	require.True(t, hasEnd)
	assert.Equal(t, "2026-03-15", start)
	assert.Equal(t, "2026-03-18", end)

	start, _, hasEnd = ParseDateRange("24 december", refNow)
	assert.False(t, hasEnd)
	assert.Equal(t, "2026-12-24", start)
}

func TestExtractTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"iso datetime", "2026-03-15T19:30:00", "19:30"},
		{"labeled single time", "Tid: 19:30", "19:30"},
		{"labeled range", "Tid: 19.30-22.00", "19:30-22:00"},
		{"bare time", "Dörrarna öppnas 19:30", "19:30"},
		{"no time present", "Ingen tid angiven", model.TimeNA},
		{"empty", "", model.TimeNA},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractTime(tt.in))
		})
	}
}

func TestClassifyTargetGroup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		ev   string
		ctx  Context
		want model.TargetGroup
	}{
		{"preschool hint wins", "för barn 3-12 år", "Sagostund", Context{SourceHint: "preschool"}, model.TargetGroupPreschoolGroups},
		{"age range within children", "3-8 år", "Sagostund", Context{}, model.TargetGroupChildren},
		{"age range crossing teens boundary", "10-14 år", "Workshop", Context{}, model.TargetGroupChildren},
		{"teen age range", "13-17 år", "Konsert", Context{}, model.TargetGroupTeens},
		{"adult age range", "18-30 år", "Fest", Context{}, model.TargetGroupAdults},
		{"months implies babies", "0-12 manader", "Babysim", Context{}, model.TargetGroupBabies},
		{"keyword family", "", "Familjedag på museet", Context{}, model.TargetGroupFamilies},
		{"keyword children", "", "Barnteater", Context{}, model.TargetGroupChildren},
		{"no signal defaults to all ages", "", "Öppet hus", Context{}, model.TargetGroupAllAges},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ClassifyTargetGroup(tt.raw, tt.ev, tt.ctx))
		})
	}
}

func TestDetectStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, model.StatusCancelled, DetectStatus("INSTÄLLT: Jazz Night", "", ""))
	assert.Equal(t, model.StatusFullbokat, DetectStatus("Jazz Night", "", "Fullbokat"))
	assert.Equal(t, model.StatusScheduled, DetectStatus("Jazz Night", "", ""))
}

func TestExtractBooking(t *testing.T) {
	t.Parallel()

	assert.Equal(t, model.BookingFullbokat, ExtractBooking("Fullbokat"))
	assert.Equal(t, model.BookingRequiresBooking, ExtractBooking("Du behöver boka plats i förväg"))
	assert.Equal(t, model.BookingDropIn, ExtractBooking("Drop-in, ingen föranmälan"))
	assert.Equal(t, model.BookingNA, ExtractBooking("Fritt inträde"))
}

func TestCleanEventName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Jazz Night", CleanEventName("INSTÄLLT: Jazz Night"))
	assert.Equal(t, "Jazz Night", CleanEventName("  Jazz Night  "))
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Welcome to story time!", SanitizeText("<p>Welcome to <b>story time</b>!</p>"))
	assert.Equal(t, "", SanitizeText("<script>alert(1)</script>"))
	assert.Equal(t, "Plain text", SanitizeText("Plain text"))
}
