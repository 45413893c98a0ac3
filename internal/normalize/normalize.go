// Package normalize implements the pure, I/O-free parsing and
// classification rules for event fields. Every exported function
// here returns its zero value (or null/false) rather than panicking or
// returning an error — callers that need to treat a failed parse as a
// skip do so explicitly (see pipeline.NormalizationReject).
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/markusmobius/go-dateparser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/nordicstacks/eventpipeline/internal/model"
)

// htmlSanitizePolicy strips all markup from description/location text
// pulled out of inner_html reads, per the storage-layer HTML sanitization
// rule.
var htmlSanitizePolicy = bluemonday.StrictPolicy()

// SanitizeText strips any HTML markup from s, leaving plain text. Used on
// description and location before an Event reaches EventStore, since
// those fields may carry raw fragments from inner_html reads.
func SanitizeText(s string) string {
	return strings.TrimSpace(htmlSanitizePolicy.Sanitize(s))
}

// swedishMonths maps Swedish month names (and common abbreviations) to
// their calendar number.
var swedishMonths = map[string]time.Month{
	"januari": time.January, "jan": time.January,
	"februari": time.February, "feb": time.February,
	"mars": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"maj": time.May,
	"juni": time.June, "jun": time.June,
	"juli": time.July, "jul": time.July,
	"augusti": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"oktober": time.October, "okt": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var englishMonths = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
}

// isoDateRe matches a YYYY-MM-DD prefix, optionally followed by more text
// (a time, a "T", etc.) — parse_date returns just the date prefix.
var isoDateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)

// swedishDateRe matches "[weekday] D[D] month [year]" in either order of
// day-first Swedish style, with optional leading weekday abbreviation.
var swedishDateRe = regexp.MustCompile(
	`(?i)\b(\d{1,2})\s+([a-zåäö]+)\.?(?:\s+(\d{4}))?\b`,
)

// clean normalizes case and Unicode form so matching is consistent
// regardless of how the source HTML encoded accented characters.
func clean(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

// ParseDate parses a date string into YYYY-MM-DD form. now is the reference instant
// used for year inference and as the fallback parser's current time;
// callers normally pass time.Now().
func ParseDate(s string, now time.Time) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3], true
	}

	if iso, ok := parseNamedMonthDate(s, now); ok {
		return iso, true
	}

	// Fallback: locale-aware fuzzy parse for phrases outside the documented
	// grammar. Never overrides an explicit-grammar match.
	if iso, ok := fallbackParse(s, now); ok {
		return iso, true
	}

	return "", false
}

// parseNamedMonthDate handles "24 december", "tis 24 dec", "24 dec 2025",
// "24 december 2025" and their English equivalents.
func parseNamedMonthDate(s string, now time.Time) (string, bool) {
	lower := clean(s)
	m := swedishDateRe.FindStringSubmatch(lower)
	if m == nil {
		return "", false
	}
	day, err := strconv.Atoi(m[1])
	if err != nil || day < 1 || day > 31 {
		return "", false
	}
	monthName := m[2]
	month, ok := swedishMonths[monthName]
	if !ok {
		month, ok = englishMonths[monthName]
	}
	if !ok {
		return "", false
	}

	year := 0
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	}
	if year == 0 {
		year = inferYear(month, day, now)
	}

	return formatISO(year, month, day), true
}

// inferYear applies the rule that if the resolved (month, day) is
// strictly before today (with the current year), roll forward one year.
func inferYear(month time.Month, day int, now time.Time) int {
	year := now.Year()
	candidate := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if candidate.Before(today) {
		return year + 1
	}
	return year
}

func formatISO(year int, month time.Month, day int) string {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// fallbackParse hands off to a locale-aware parser for phrases that don't
// match the explicit Swedish/ISO grammar above.
func fallbackParse(s string, now time.Time) (string, bool) {
	cfg := &dateparser.Configuration{
		DefaultLanguages: []string{"sv", "en"},
		CurrentTime:      now,
	}
	result, err := dateparser.Parse(cfg, s)
	if err != nil || result == nil || result.Time.IsZero() {
		return "", false
	}
	return result.Time.Format("2006-01-02"), true
}

// rangeSplitRe splits a date-range string on a dash used as a range
// separator. A plain hyphen-minus only counts as a separator when padded
// by whitespace on both sides, so it never matches the internal hyphens
// of an ISO date like "2026-03-15"; en dash and em dash are unambiguous
// either way.
var rangeSplitRe = regexp.MustCompile(`\s+-\s+|\s*[–—]\s*`)

// ParseDateRange splits a date-range string into a start and optional
// end date, including the Dec→Jan wrap rule: when the start half has no
// explicit year and start.month > end.month, the start year is
// end.year - 1, whether the end year was written out or inferred.
func ParseDateRange(s string, now time.Time) (start string, end string, hasEnd bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", false
	}
	parts := rangeSplitRe.Split(s, 2)
	if len(parts) != 2 {
		iso, _ := ParseDate(s, now)
		return iso, "", false
	}

	left, right := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

	endISO, endOK := ParseDate(right, now)
	if !endOK {
		startISO, _ := ParseDate(left, now)
		return startISO, "", false
	}

	// Does the left half carry an explicit year already?
	leftHasYear := regexp.MustCompile(`\d{4}`).MatchString(left)

	startISO, startOK := ParseDate(left, now)
	if !startOK {
		return "", endISO, true
	}

	if !leftHasYear {
		endYear, endMonth, _ := parseISOParts(endISO)
		startYear, startMonth, startDay := parseISOParts(startISO)
		if startMonth > endMonth {
			startYear = endYear - 1
			startISO = formatISO(startYear, time.Month(startMonth), startDay)
		}
	}

	return startISO, endISO, true
}

func parseISOParts(iso string) (year, month, day int) {
	m := isoDateRe.FindStringSubmatch(iso)
	if m == nil {
		return 0, 0, 0
	}
	year, _ = strconv.Atoi(m[1])
	month, _ = strconv.Atoi(m[2])
	day, _ = strconv.Atoi(m[3])
	return
}

var (
	isoTimeRe    = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[ T](\d{2}):(\d{2})`)
	labeledTimeRe = regexp.MustCompile(`(?i)tid:?\s*(\d{1,2})[:.](\d{2})(?:\s*-\s*(\d{1,2})[:.](\d{2}))?`)
	bareTimeRe    = regexp.MustCompile(`\b(\d{1,2})[:.](\d{2})\b`)
)

// ExtractTime pulls an HH:MM-ish time out of free-form text, or
// returns the N/A sentinel.
func ExtractTime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.TimeNA
	}

	if m := isoTimeRe.FindStringSubmatch(s); m != nil {
		return pad2(m[1]) + ":" + m[2]
	}

	if m := labeledTimeRe.FindStringSubmatch(s); m != nil {
		result := pad2(m[1]) + ":" + m[2]
		if m[3] != "" {
			result += "-" + pad2(m[3]) + ":" + m[4]
		}
		return result
	}

	if m := bareTimeRe.FindStringSubmatch(s); m != nil {
		return pad2(m[1]) + ":" + m[2]
	}

	return model.TimeNA
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// Context carries extra signal available to classify_target_group beyond
// the raw text — currently just the "preschool URL" hint.
type Context struct {
	SourceHint string // "preschool" when the listing URL path contains "forskolor"
}

var ageRangeRe = regexp.MustCompile(`(\d{1,2})\s*(?:-|–|till)\s*(\d{1,2})\s*(år|manader|månader|months?|years?)`)
var ageSingleRe = regexp.MustCompile(`(?:för|from|for)\s*(\d{1,2})\s*(år|manader|månader|months?|years?)`)

// ClassifyTargetGroup resolves an event's target-group enum from the
// observed raw text, event name, and crawl context.
func ClassifyTargetGroup(raw, eventName string, ctx Context) model.TargetGroup {
	if ctx.SourceHint == "preschool" {
		return model.TargetGroupPreschoolGroups
	}

	if tg, ok := classifyByAgeRange(raw); ok {
		return tg
	}
	if tg, ok := classifyByAgeRange(eventName); ok {
		return tg
	}

	combined := clean(raw + " " + eventName)
	switch {
	case containsAny(combined, "barn", "bebis", "småbarn", "förskola", "for children", "för barn"):
		return model.TargetGroupChildren
	case containsAny(combined, "ungdom", "teen", "tonåring", "unga"):
		return model.TargetGroupTeens
	case containsAny(combined, "familj", "family"):
		return model.TargetGroupFamilies
	case containsAny(combined, "vuxen", "vuxna", "adult", "senior"):
		return model.TargetGroupAdults
	case containsAny(combined, "alla", "all ages", "general"):
		return model.TargetGroupAllAges
	}

	return model.TargetGroupAllAges
}

func classifyByAgeRange(text string) (model.TargetGroup, bool) {
	lower := clean(text)

	isMonths := func(unit string) bool {
		return strings.HasPrefix(unit, "manad") || strings.HasPrefix(unit, "månad") || strings.HasPrefix(unit, "month")
	}

	if m := ageRangeRe.FindStringSubmatch(lower); m != nil {
		minV, _ := strconv.Atoi(m[1])
		maxV, _ := strconv.Atoi(m[2])
		if minV > maxV {
			minV, maxV = maxV, minV
		}
		if isMonths(m[3]) {
			return model.TargetGroupBabies, true
		}
		return bucketForAgeRange(minV, maxV), true
	}
	if m := ageSingleRe.FindStringSubmatch(lower); m != nil {
		age, _ := strconv.Atoi(m[1])
		if isMonths(m[2]) {
			return model.TargetGroupBabies, true
		}
		return bucketForAgeRange(age, age), true
	}
	return "", false
}

// bucketForAgeRange applies spec's threshold table: max <= 12 -> children;
// min 13-19 -> teens; min >= 18 -> adults; spans crossing a boundary ->
// children (lowest bucket wins).
func bucketForAgeRange(min, max int) model.TargetGroup {
	if max <= 12 {
		return model.TargetGroupChildren
	}
	if min <= 12 {
		// span crosses the children/teens boundary -> lowest bucket wins
		return model.TargetGroupChildren
	}
	if min >= 18 {
		return model.TargetGroupAdults
	}
	if min >= 13 {
		return model.TargetGroupTeens
	}
	return model.TargetGroupChildren
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// DetectStatus classifies an event as scheduled, cancelled, or
// fullbokat from its name, description, and any status text observed.
func DetectStatus(name, description, statusText string) model.EventStatus {
	combined := clean(name + " " + description + " " + statusText)
	if containsAny(combined, "inställt", "inställd", "cancelled", "canceled", "avlyst", "ställs in", "avbokat") {
		return model.StatusCancelled
	}
	if containsAny(combined, "fullbokat", "fullbokad", "fully booked", "sold out", "slutsålt") {
		return model.StatusFullbokat
	}
	return model.StatusScheduled
}

// ExtractBooking classifies the observed booking text into one of the
// recognized booking-info values, or N/A.
func ExtractBooking(text string) string {
	lower := clean(text)
	switch {
	case strings.HasPrefix(lower, "fullbokat") || strings.Contains(lower, "fullbokat"):
		return model.BookingFullbokat
	case containsAny(lower, "boka plats", "du behöver boka", "bokning krävs", "bokningen öppnar"):
		return model.BookingRequiresBooking
	case containsAny(lower, "drop-in", "dropin"):
		return model.BookingDropIn
	default:
		return model.BookingNA
	}
}

var inställtPrefixRe = regexp.MustCompile(`(?i)^\s*inställt:\s*`)

// CleanEventName strips a leading
// "INSTÄLLT:" prefix and trims whitespace.
func CleanEventName(name string) string {
	stripped := inställtPrefixRe.ReplaceAllString(name, "")
	return strings.TrimFunc(stripped, unicode.IsSpace)
}
