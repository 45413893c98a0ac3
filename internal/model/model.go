// Package model holds the data types shared across the extraction engine:
// Event, SelectorBundle, SourceURL, RunLog, and the transient Page. None of
// these types carry behavior beyond simple accessors — parsing, validation
// and persistence live in their owning packages (normalize, storage/sqlite).
package model

import "time"

// TargetGroup enumerates the audience classification assigned to an Event.
type TargetGroup string

const (
	TargetGroupChildren        TargetGroup = "children"
	TargetGroupTeens           TargetGroup = "teens"
	TargetGroupAdults          TargetGroup = "adults"
	TargetGroupFamilies        TargetGroup = "families"
	TargetGroupAllAges         TargetGroup = "all_ages"
	TargetGroupBabies          TargetGroup = "babies"
	TargetGroupPreschoolGroups TargetGroup = "preschool_groups"
)

// EventStatus enumerates the lifecycle state of one occurrence.
type EventStatus string

const (
	StatusScheduled EventStatus = "scheduled"
	StatusCancelled EventStatus = "cancelled"
	StatusFullbokat EventStatus = "fullbokat"
)

// Booking info values. Free text is also accepted. normalize.ExtractBooking
// produces every value below except BookingFreeEntry.
const (
	BookingRequiresBooking = "Requires booking"
	BookingDropIn          = "Drop-in"
	BookingFullbokat       = "Fullbokat"
	BookingFreeEntry       = "Free entry"
	BookingNA              = "N/A"
)

// DateNA is the sentinel used for an absent end_date_iso.
const DateNA = "N/A"

// TimeNA is the sentinel used for an absent time.
const TimeNA = "N/A"

// Event is one occurrence on one date. The triple (EventName, DateISO,
// EventURL) is its identity.
type Event struct {
	EventName       string
	DateISO         string
	EndDateISO      string
	Time            string
	Location        string
	TargetGroupRaw  string
	TargetGroup     TargetGroup
	Description     string
	EventURL        string
	Status          EventStatus
	BookingInfo     string
	LastScraped     time.Time
}

// Identity returns the (name, date, url) triple used as the unique key.
func (e Event) Identity() (string, string, string) {
	return e.EventName, e.DateISO, e.EventURL
}

// SelectorBundle describes how to read one site's event listing page.
type SelectorBundle struct {
	Domain            string
	URLPattern        string
	ContainerSelector string
	ItemSelectors     map[string]ItemSelector
	LastUpdated       time.Time
	Untrusted         bool // set by Discoverer when adjusted_confidence is in [0.3, 0.6)
}

// ItemSelector is a CSS selector with an optional attribute hint (e.g. read
// "href" instead of element text).
type ItemSelector struct {
	Selector  string
	Attribute string // empty means "use text content"
}

// SourceURL is a configured ingestion target managed by the admin collaborator.
type SourceURL struct {
	ID      int64
	URL     string
	Name    string
	Enabled bool
}

// RunMode distinguishes an operator-triggered run from a scheduled one.
type RunMode string

const (
	RunModeAuto   RunMode = "Auto"
	RunModeManual RunMode = "Manual"
)

// RunStatus is the overall outcome recorded for one Orchestrator pass.
type RunStatus string

const (
	RunStatusOK    RunStatus = "OK"
	RunStatusWarn  RunStatus = "Warn"
	RunStatusError RunStatus = "Error"
)

// RunLog is one record of one Orchestrator run.
type RunLog struct {
	ID          string
	Timestamp   time.Time
	Mode        RunMode
	Status      RunStatus
	EventsFound int
	Failures    int
	Warnings    []string
}

// Page is the transient, in-memory representation of one fetched listing
// page. It never reaches the store.
type Page struct {
	URL                     string
	HTML                    string
	RenderedTextForContainers []string
}
