package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repoerrors "wellbeing/internal/infrastructure/errors"
	"wellbeing/internal/types"
)

const eventColumns = `id, timestamp, device_type, app_name, window_title, process_name, website_url, duration_seconds`

// AppendEvent inserts one event and sets its ID. Appends use the short retry
// policy so a contended write never outlasts a sampling tick.
func (r *SQLiteRepository) AppendEvent(ctx context.Context, event *types.Event) error {
	if event == nil {
		return repoerrors.New("AppendEvent", errors.New("event is nil"), repoerrors.ErrCodeValidation)
	}
	if strings.TrimSpace(event.AppName) == "" {
		return repoerrors.HandleValidationError("AppendEvent", "app_name", event.AppName, "cannot be empty")
	}
	if event.DurationSeconds <= 0 {
		return repoerrors.HandleValidationError("AppendEvent", "duration_seconds",
			fmt.Sprintf("%d", event.DurationSeconds), "must be positive")
	}
	if event.Timestamp.IsZero() {
		return repoerrors.HandleValidationError("AppendEvent", "timestamp", "", "cannot be zero")
	}
	if event.DeviceType == "" {
		event.DeviceType = types.DefaultDeviceType
	}

	return r.withRetry(ctx, "AppendEvent", r.appendRetry, nil, func() error {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO events (timestamp, device_type, app_name, window_title, process_name, website_url, duration_seconds)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			toMillis(event.Timestamp), event.DeviceType, event.AppName, event.WindowTitle,
			event.ProcessName, event.WebsiteURL, event.DurationSeconds)
		if err != nil {
			return r.fail("AppendEvent", err, map[string]string{"app_name": event.AppName})
		}
		id, err := res.LastInsertId()
		if err != nil {
			return r.fail("AppendEvent.LastInsertId", err, nil)
		}
		event.ID = id
		return nil
	})
}

// EventsInRange returns events with From <= timestamp < To ordered by time
func (r *SQLiteRepository) EventsInRange(ctx context.Context, tr types.TimeRange) ([]types.Event, error) {
	if tr.To.Before(tr.From) {
		return nil, repoerrors.HandleValidationError("EventsInRange", "range",
			tr.From.Format(time.RFC3339)+"/"+tr.To.Format(time.RFC3339), "end precedes start")
	}
	if tr.IsZero() {
		return []types.Event{}, nil
	}

	var events []types.Event
	err := r.withRetry(ctx, "EventsInRange", r.retryConfig, map[string]any{
		"from": tr.From.Format(time.RFC3339),
		"to":   tr.To.Format(time.RFC3339),
	}, func() error {
		var err error
		events, err = r.queryEvents(ctx, r.db, "EventsInRange", `
			SELECT `+eventColumns+` FROM events
			WHERE timestamp >= ? AND timestamp < ?
			ORDER BY timestamp, id`, toMillis(tr.From), toMillis(tr.To))
		return err
	})
	return events, err
}

// EventsForHour returns the events of one local clock hour
func (r *SQLiteRepository) EventsForHour(ctx context.Context, date string, hour int) ([]types.Event, error) {
	if hour < 0 || hour > 23 {
		return nil, repoerrors.HandleValidationError("EventsForHour", "hour", fmt.Sprintf("%d", hour), "must be 0-23")
	}
	day, err := r.parseDate("EventsForHour", date)
	if err != nil {
		return nil, err
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, r.location)
	return r.EventsInRange(ctx, types.TimeRange{From: from, To: from.Add(time.Hour)})
}

// EventsForDate returns the events of one local calendar day
func (r *SQLiteRepository) EventsForDate(ctx context.Context, date string) ([]types.Event, error) {
	tr, err := r.dayRange("EventsForDate", date)
	if err != nil {
		return nil, err
	}
	return r.EventsInRange(ctx, tr)
}

// EarliestEventTime returns the timestamp of the oldest event, or a NotFound error when the log is empty
func (r *SQLiteRepository) EarliestEventTime(ctx context.Context) (time.Time, error) {
	var earliest time.Time
	err := r.withRetry(ctx, "EarliestEventTime", r.retryConfig, nil, func() error {
		var ms sql.NullInt64
		if err := r.db.QueryRowContext(ctx, `SELECT MIN(timestamp) FROM events`).Scan(&ms); err != nil {
			return r.fail("EarliestEventTime", err, nil)
		}
		if !ms.Valid {
			return repoerrors.HandleNotFound("EarliestEventTime", "event", "earliest")
		}
		earliest = r.fromMillis(ms.Int64)
		return nil
	})
	return earliest, err
}

func (r *SQLiteRepository) queryEvents(ctx context.Context, q dbtx, op, query string, args ...any) ([]types.Event, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.fail(op, err, nil)
	}
	defer rows.Close()

	events := []types.Event{}
	for rows.Next() {
		var e types.Event
		var ms int64
		if err := rows.Scan(&e.ID, &ms, &e.DeviceType, &e.AppName, &e.WindowTitle,
			&e.ProcessName, &e.WebsiteURL, &e.DurationSeconds); err != nil {
			return nil, r.fail(op+".Scan", err, nil)
		}
		e.Timestamp = r.fromMillis(ms)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail(op+".Rows", err, nil)
	}
	return events, nil
}
