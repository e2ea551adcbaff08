package repository

import (
	"context"
	"testing"
	"time"

	repoerrors "wellbeing/internal/infrastructure/errors"
	"wellbeing/internal/types"
)

func TestSQLiteRepository_AppendAndRange(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	first := seedEvent(t, repo, base, "firefox", 10)
	seedEvent(t, repo, base.Add(10*time.Second), "firefox", 10)
	seedEvent(t, repo, base.Add(time.Hour), "code", 10)

	if first.ID == 0 {
		t.Error("AppendEvent should set the event ID")
	}

	events, err := repo.EventsInRange(ctx, types.TimeRange{From: base, To: base.Add(time.Hour)})
	if err != nil {
		t.Fatalf("EventsInRange failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events in range (end exclusive), got %d", len(events))
	}
	if !events[0].Timestamp.Equal(base) || events[0].AppName != "firefox" {
		t.Errorf("Unexpected first event %+v", events[0])
	}
	if events[0].DeviceType != types.DefaultDeviceType {
		t.Errorf("Expected device type %q, got %q", types.DefaultDeviceType, events[0].DeviceType)
	}
}

func TestSQLiteRepository_AppendEvent_PreservesFields(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 4, 9, 15, 30, 250*int(time.Millisecond), time.UTC)
	in := &types.Event{
		Timestamp:       at,
		AppName:         "Firefox",
		WindowTitle:     "github.com - Mozilla Firefox",
		ProcessName:     "firefox",
		WebsiteURL:      "github.com",
		DurationSeconds: 12,
	}
	if err := repo.AppendEvent(ctx, in); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	events, err := repo.EventsForDate(ctx, "2024-03-04")
	if err != nil {
		t.Fatalf("EventsForDate failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}

	got := events[0]
	if !got.Timestamp.Equal(at) {
		t.Errorf("Expected millisecond timestamp %v, got %v", at, got.Timestamp)
	}
	if got.WindowTitle != in.WindowTitle || got.WebsiteURL != "github.com" || got.DurationSeconds != 12 {
		t.Errorf("Unexpected round-tripped event %+v", got)
	}
}

func TestSQLiteRepository_AppendEvent_Validation(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		event *types.Event
	}{
		{"nil event", nil},
		{"empty app", &types.Event{Timestamp: now, AppName: "  ", DurationSeconds: 10}},
		{"zero duration", &types.Event{Timestamp: now, AppName: "code", DurationSeconds: 0}},
		{"zero timestamp", &types.Event{AppName: "code", DurationSeconds: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.AppendEvent(ctx, tt.event)
			if !repoerrors.IsValidation(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestSQLiteRepository_EventsForHour(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	seedEvent(t, repo, day.Add(9*time.Hour+59*time.Minute), "a", 10)
	seedEvent(t, repo, day.Add(10*time.Hour), "b", 10)
	seedEvent(t, repo, day.Add(10*time.Hour+59*time.Minute+59*time.Second), "c", 10)
	seedEvent(t, repo, day.Add(11*time.Hour), "d", 10)

	events, err := repo.EventsForHour(ctx, "2024-03-04", 10)
	if err != nil {
		t.Fatalf("EventsForHour failed: %v", err)
	}
	if len(events) != 2 || events[0].AppName != "b" || events[1].AppName != "c" {
		t.Errorf("Expected events b and c, got %+v", events)
	}

	if _, err := repo.EventsForHour(ctx, "2024-03-04", 24); !repoerrors.IsValidation(err) {
		t.Errorf("Expected validation error for hour 24, got %v", err)
	}
	if _, err := repo.EventsForDate(ctx, "03/04/2024"); !repoerrors.IsValidation(err) {
		t.Errorf("Expected validation error for bad date, got %v", err)
	}
}

func TestSQLiteRepository_EventsInRange_Edges(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	events, err := repo.EventsInRange(ctx, types.TimeRange{From: at, To: at})
	if err != nil || len(events) != 0 {
		t.Errorf("Empty range should return no events, got %v, %v", events, err)
	}

	_, err = repo.EventsInRange(ctx, types.TimeRange{From: at, To: at.Add(-time.Second)})
	if !repoerrors.IsValidation(err) {
		t.Errorf("Inverted range should be a validation error, got %v", err)
	}
}

func TestSQLiteRepository_EarliestEventTime(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	if _, err := repo.EarliestEventTime(ctx); !repoerrors.IsNotFound(err) {
		t.Fatalf("Expected NotFound on empty log, got %v", err)
	}

	later := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	earlier := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	seedEvent(t, repo, later, "a", 10)
	seedEvent(t, repo, earlier, "b", 10)

	got, err := repo.EarliestEventTime(ctx)
	if err != nil {
		t.Fatalf("EarliestEventTime failed: %v", err)
	}
	if !got.Equal(earlier) {
		t.Errorf("Expected %v, got %v", earlier, got)
	}
}
