package reservation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/clayhaus/bookingbot/pkg/logging"
)

func confirmedReservation(t *testing.T, store *MemoryStore, id string, start time.Time) {
	t.Helper()
	r := &Reservation{
		ReservationID: id,
		CustomerID:    "cust-1",
		StartAt:       start.UTC().Format(time.RFC3339),
		DurationHours: 2,
		Headcount:     4,
		Status:        StatusPending,
	}
	if err := store.Create(context.Background(), r); err != nil {
		t.Fatalf("create: %v", err)
	}
	if ok, err := store.MarkDecided(context.Background(), id, StatusConfirmed); err != nil || !ok {
		t.Fatalf("confirm: ok=%v err=%v", ok, err)
	}
}

func TestSweep_RemindsOnceWithin24h(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Warsaw")
	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, loc)

	store := NewMemoryStore()
	msgr := newFakeMessenger()
	confirmedReservation(t, store, "res-soon", now.Add(20*time.Hour))
	confirmedReservation(t, store, "res-later", now.Add(40*time.Hour))

	s := NewSweeper(store, msgr, loc, logging.Default(),
		WithSweeperClock(func() time.Time { return now }),
	)

	s.Sweep(context.Background())
	if got := msgr.count("cust-1"); got != 1 {
		t.Fatalf("expected one reminder, got %d", got)
	}

	// Second run within the same hour: the flag already flipped.
	s.Sweep(context.Background())
	if got := msgr.count("cust-1"); got != 1 {
		t.Fatalf("reminder must fire exactly once, got %d", got)
	}

	r, _ := store.Get(context.Background(), "res-soon")
	if !r.Reminded {
		t.Fatal("reminded flag should be set")
	}
	later, _ := store.Get(context.Background(), "res-later")
	if later.Reminded {
		t.Fatal("reservation outside the window must not be reminded")
	}
}

func TestSweep_MentionsAppointmentTime(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Warsaw")
	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, loc)

	store := NewMemoryStore()
	msgr := newFakeMessenger()
	confirmedReservation(t, store, "res-1", time.Date(2026, time.March, 3, 8, 0, 0, 0, loc))

	s := NewSweeper(store, msgr, loc, logging.Default(),
		WithSweeperClock(func() time.Time { return now }),
	)
	s.Sweep(context.Background())

	msgr.mu.Lock()
	defer msgr.mu.Unlock()
	texts := msgr.texts["cust-1"]
	if len(texts) != 1 {
		t.Fatalf("expected one reminder, got %d", len(texts))
	}
	if !strings.Contains(texts[0], "08:00") || !strings.Contains(texts[0], "03.03") {
		t.Fatalf("reminder should name the slot, got %q", texts[0])
	}
}

func TestSweep_SkipsPendingAndRejected(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Warsaw")
	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, loc)

	store := NewMemoryStore()
	msgr := newFakeMessenger()

	pending := &Reservation{
		ReservationID: "res-pending",
		CustomerID:    "cust-1",
		StartAt:       now.Add(5 * time.Hour).UTC().Format(time.RFC3339),
		Status:        StatusPending,
	}
	if err := store.Create(context.Background(), pending); err != nil {
		t.Fatalf("create: %v", err)
	}

	s := NewSweeper(store, msgr, loc, logging.Default(),
		WithSweeperClock(func() time.Time { return now }),
	)
	s.Sweep(context.Background())

	if got := msgr.count("cust-1"); got != 0 {
		t.Fatalf("pending reservations must not be reminded, got %d", got)
	}
}

func TestSweep_OneFailureDoesNotAbortScan(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Warsaw")
	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, loc)

	store := NewMemoryStore()
	msgr := newFakeMessenger()
	msgr.err = errors.New("channel down")
	confirmedReservation(t, store, "res-a", now.Add(3*time.Hour))
	confirmedReservation(t, store, "res-b", now.Add(4*time.Hour))

	s := NewSweeper(store, msgr, loc, logging.Default(),
		WithSweeperClock(func() time.Time { return now }),
	)
	s.Sweep(context.Background())

	// Both were claimed despite both sends failing.
	a, _ := store.Get(context.Background(), "res-a")
	b, _ := store.Get(context.Background(), "res-b")
	if !a.Reminded || !b.Reminded {
		t.Fatalf("both reservations should be processed, got %v %v", a.Reminded, b.Reminded)
	}
}
