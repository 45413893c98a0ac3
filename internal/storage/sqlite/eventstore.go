package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nordicstacks/eventpipeline/internal/model"
	"github.com/nordicstacks/eventpipeline/internal/pipeline"
)

// EventStore is the idempotent upsert store. The identity triple
// (event_name, date_iso, event_url) is the only thing upsert treats as
// a key — every other column is overwritten.
type EventStore struct {
	db *DB
}

func NewEventStore(db *DB) *EventStore { return &EventStore{db: db} }

// Upsert inserts or replaces one event, keyed by its identity triple.
// It never fails on a duplicate key — that's the whole point.
func (s *EventStore) Upsert(e model.Event) error {
	_, err := s.db.Conn.Exec(`
		INSERT INTO events (
			event_name, date_iso, event_url, end_date_iso, time, location,
			target_group_raw, target_group, status, booking_info, description, last_scraped
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(event_name, date_iso, event_url) DO UPDATE SET
			end_date_iso = excluded.end_date_iso,
			time = excluded.time,
			location = excluded.location,
			target_group_raw = excluded.target_group_raw,
			target_group = excluded.target_group,
			status = excluded.status,
			booking_info = excluded.booking_info,
			description = excluded.description,
			last_scraped = CURRENT_TIMESTAMP
	`,
		e.EventName, e.DateISO, e.EventURL, nullableDate(e.EndDateISO), e.Time, e.Location,
		e.TargetGroupRaw, string(e.TargetGroup), string(e.Status), e.BookingInfo, e.Description,
	)
	if err != nil {
		return &pipeline.StoreBusy{Op: "upsert", Err: err}
	}
	return nil
}

func nullableDate(iso string) any {
	if iso == "" || iso == model.DateNA {
		return nil
	}
	return iso
}

// DateMode selects how Filter interprets the date dimension of a query.
type DateMode string

const (
	DateModeThisWeek   DateMode = "This Week"
	DateModeNext30Days DateMode = "Next 30 Days"
	DateModeAllTime    DateMode = "All Time"
)

// Filter is the recognized query shape — every field is optional; zero
// values mean "no filter on this dimension".
type Filter struct {
	Search         string
	Venue          string // exact match; "" or "All" means unfiltered
	SourceHostLike string // "%domain%" pattern derived by the caller from SourceURL
	DateMode       DateMode
	SpecificDate   string // YYYY-MM-DD; used when DateMode is empty and this is set
	TargetGroups   []model.TargetGroup
	Page           int
	PerPage        int
}

// eventRow is the raw, unexpanded row shape read from the events table.
type eventRow struct {
	model.Event
}

// expansionCapDays bounds multi-day virtual expansion independently of
// any horizon configured elsewhere, so long festivals don't balloon a
// single query's result set.
const expansionCapDays = 30

// Filter runs q against the store, applying multi-day expansion before
// pagination, and returns the expanded page plus the expanded total.
func (s *EventStore) Filter(q Filter, now time.Time) ([]model.Event, int, error) {
	where := []string{"1=1"}
	var args []any

	if q.Search != "" {
		where = append(where, `event_name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q.Search)+"%")
	}
	if q.Venue != "" && q.Venue != "All" && q.Venue != "All Venues" {
		where = append(where, "location = ?")
		args = append(args, q.Venue)
	}
	if q.SourceHostLike != "" {
		where = append(where, "event_url LIKE ?")
		args = append(args, q.SourceHostLike)
	}
	if len(q.TargetGroups) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(q.TargetGroups)), ",")
		where = append(where, fmt.Sprintf("target_group IN (%s)", placeholders))
		for _, tg := range q.TargetGroups {
			args = append(args, string(tg))
		}
	}

	today := now.Format("2006-01-02")
	switch q.DateMode {
	case DateModeThisWeek:
		where = append(where, "date_iso <= ?")
		args = append(args, now.AddDate(0, 0, 7).Format("2006-01-02"))
		where = append(where, "(end_date_iso IS NULL OR end_date_iso >= ?)")
		args = append(args, today)
	case DateModeNext30Days:
		where = append(where, "date_iso <= ?")
		args = append(args, now.AddDate(0, 0, expansionCapDays).Format("2006-01-02"))
		where = append(where, "(end_date_iso IS NULL OR end_date_iso >= ?)")
		args = append(args, today)
	case DateModeAllTime:
		// no date constraint
	default:
		if q.SpecificDate != "" {
			where = append(where, "date_iso <= ? AND (end_date_iso IS NULL OR end_date_iso >= ?)")
			args = append(args, q.SpecificDate, q.SpecificDate)
		}
	}

	query := "SELECT event_name, date_iso, event_url, end_date_iso, time, location, target_group_raw, target_group, status, booking_info, description, last_scraped FROM events WHERE " +
		strings.Join(where, " AND ") + " ORDER BY date_iso ASC"

	rows, err := s.db.Conn.Query(query, args...)
	if err != nil {
		return nil, 0, &pipeline.StoreBusy{Op: "filter", Err: err}
	}
	defer rows.Close()

	var candidates []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, &pipeline.StoreBusy{Op: "filter-scan", Err: err}
		}
		candidates = append(candidates, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &pipeline.StoreBusy{Op: "filter-rows", Err: err}
	}

	expanded := expandAll(candidates, q, now)

	total := len(expanded)
	page, perPage := q.Page, q.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		return expanded, total, nil
	}
	start := (page - 1) * perPage
	if start >= total {
		return []model.Event{}, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return expanded[start:end], total, nil
}

// expandAll applies the multi-day expansion rule to every candidate
// row, producing one virtual event per covered day.
func expandAll(rows []model.Event, q Filter, now time.Time) []model.Event {
	today := truncateDay(now)
	horizonEnd := today.AddDate(0, 0, expansionCapDays)

	var specific time.Time
	hasSpecific := false
	if q.SpecificDate != "" && q.DateMode == "" {
		if t, err := time.Parse("2006-01-02", q.SpecificDate); err == nil {
			specific = t
			hasSpecific = true
		}
	}

	var out []model.Event
	for _, e := range rows {
		start, err := time.Parse("2006-01-02", e.DateISO)
		if err != nil {
			continue
		}
		end := start
		if e.EndDateISO != "" && e.EndDateISO != model.DateNA {
			if t, err := time.Parse("2006-01-02", e.EndDateISO); err == nil && t.After(start) {
				end = t
			}
		}

		rangeStart := start
		if today.After(rangeStart) {
			rangeStart = today
		}
		rangeEnd := end
		if horizonEnd.Before(rangeEnd) {
			rangeEnd = horizonEnd
		}

		if rangeStart.After(rangeEnd) {
			continue
		}

		for d := rangeStart; !d.After(rangeEnd); d = d.AddDate(0, 0, 1) {
			if hasSpecific && !d.Equal(specific) {
				continue
			}
			virtual := e
			virtual.DateISO = d.Format("2006-01-02")
			virtual.EndDateISO = model.DateNA
			out = append(out, virtual)
		}
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DeleteOlderThan removes events with date_iso older than days before now.
func (s *EventStore) DeleteOlderThan(days int, now time.Time) (int64, error) {
	cutoff := now.AddDate(0, 0, -days).Format("2006-01-02")
	res, err := s.db.Conn.Exec("DELETE FROM events WHERE date_iso < ?", cutoff)
	if err != nil {
		return 0, &pipeline.StoreBusy{Op: "delete_older_than", Err: err}
	}
	return res.RowsAffected()
}

// Delete removes one event by its identity triple.
func (s *EventStore) Delete(name, date, url string) error {
	_, err := s.db.Conn.Exec("DELETE FROM events WHERE event_name = ? AND date_iso = ? AND event_url = ?", name, date, url)
	if err != nil {
		return &pipeline.StoreBusy{Op: "delete", Err: err}
	}
	return nil
}

func scanEvent(rows *sql.Rows) (model.Event, error) {
	var e model.Event
	var endDate, timeStr, location, tgRaw, description sql.NullString
	var status, bookingInfo string
	var lastScraped time.Time
	var targetGroup string

	err := rows.Scan(
		&e.EventName, &e.DateISO, &e.EventURL, &endDate, &timeStr, &location,
		&tgRaw, &targetGroup, &status, &bookingInfo, &description, &lastScraped,
	)
	if err != nil {
		return model.Event{}, err
	}

	e.EndDateISO = valueOr(endDate, model.DateNA)
	e.Time = valueOr(timeStr, model.TimeNA)
	e.Location = location.String
	e.TargetGroupRaw = tgRaw.String
	e.TargetGroup = model.TargetGroup(targetGroup)
	e.Status = model.EventStatus(status)
	e.BookingInfo = bookingInfo
	e.Description = description.String
	e.LastScraped = lastScraped
	return e, nil
}

func valueOr(n sql.NullString, fallback string) string {
	if !n.Valid || n.String == "" {
		return fallback
	}
	return n.String
}

// escapeLike escapes SQLite LIKE metacharacters so a user-supplied search
// term can't widen its own match pattern.
func escapeLike(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "%", "\\%", "_", "\\_")
	return r.Replace(s)
}
