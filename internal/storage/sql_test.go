package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Tiliavir/nt-hours/internal/model"
	"github.com/Tiliavir/nt-hours/internal/storage"
	"github.com/Tiliavir/nt-hours/internal/timecalc"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(storage.DBConfig{
		Driver: storage.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "db", "hours.db"),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func annotated(t *testing.T, events ...model.Event) []model.Event {
	t.Helper()
	out, err := timecalc.Annotate(events)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestWriteAndReadEvents(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	exists, err := s.TableExists(ctx, "event")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("table should not exist yet")
	}

	events := annotated(t,
		model.Event{Timestamp: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), Activity: "#Sleep", DurationHrs: 3.5},
		model.Event{Timestamp: time.Date(2024, 3, 1, 17, 0, 0, 0, time.UTC), Activity: "Work#Acme", DurationHrs: 7, Comment: "deep - push"},
	)
	if err := s.WriteEvents(ctx, "event", events, storage.ModeReplace); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}

	exists, err = s.TableExists(ctx, "event")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("table should exist after write")
	}

	got, err := s.ReadEvents(ctx, "event")
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}
	if got[0].Activity != "Work#Acme" {
		t.Errorf("first event = %q, want ordering by timestamp", got[0].Activity)
	}
	if got[0] != events[1] {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got[0], events[1])
	}
}

func TestWriteEventsReplaceAndAppend(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	a := annotated(t, model.Event{Timestamp: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), Activity: "a", DurationHrs: 1})
	b := annotated(t, model.Event{Timestamp: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), Activity: "b", DurationHrs: 1})

	if err := s.WriteEvents(ctx, "event", a, storage.ModeAppend); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteEvents(ctx, "event", b, storage.ModeAppend); err != nil {
		t.Fatal(err)
	}
	got, err := s.ReadEvents(ctx, "event")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("after append: events = %d, want 2", len(got))
	}

	if err := s.WriteEvents(ctx, "event", b, storage.ModeReplace); err != nil {
		t.Fatal(err)
	}
	got, err = s.ReadEvents(ctx, "event")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Activity != "b" {
		t.Fatalf("after replace: events = %+v, want only b", got)
	}
}

func TestInvalidTableName(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.TableExists(context.Background(), "event; drop"); err == nil {
		t.Error("expected error for invalid table name")
	}
}

func TestReadEventsMissingTable(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ReadEvents(context.Background(), "nope")
	var ioErr *model.ExternalIOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected ExternalIOError, got %v", err)
	}
}
