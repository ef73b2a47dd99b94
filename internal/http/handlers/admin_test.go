package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clayhaus/bookingbot/internal/reservation"
	"github.com/clayhaus/bookingbot/pkg/logging"
)

type fakeClearer struct {
	cleared []string
	err     error
}

func (f *fakeClearer) ClearSession(_ context.Context, customerID string) error {
	f.cleared = append(f.cleared, customerID)
	return f.err
}

func newAdminRouter(h *AdminHandler) http.Handler {
	r := chi.NewRouter()
	r.Delete("/admin/sessions/{customerID}", h.ClearSession)
	r.Get("/admin/transcripts/{customerID}", h.GetTranscript)
	r.Get("/admin/reservations/{reservationID}", h.GetReservation)
	return r
}

func TestClearSession(t *testing.T) {
	clearer := &fakeClearer{}
	h := NewAdminHandler(clearer, nil, nil, logging.Default())
	router := newAdminRouter(h)

	req := httptest.NewRequest(http.MethodDelete, "/admin/sessions/cust-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if len(clearer.cleared) != 1 || clearer.cleared[0] != "cust-1" {
		t.Fatalf("cleared = %v, want [cust-1]", clearer.cleared)
	}
}

func TestGetTranscriptWithoutStore(t *testing.T) {
	h := NewAdminHandler(&fakeClearer{}, nil, nil, logging.Default())
	router := newAdminRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/admin/transcripts/cust-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetReservation(t *testing.T) {
	store := reservation.NewMemoryStore()
	start := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	err := store.Create(context.Background(), &reservation.Reservation{
		ReservationID: "res-1",
		CustomerID:    "cust-1",
		StartAt:       start,
		DurationHours: 2,
		Headcount:     4,
		Status:        reservation.StatusPending,
	})
	if err != nil {
		t.Fatal(err)
	}

	h := NewAdminHandler(&fakeClearer{}, nil, store, logging.Default())
	router := newAdminRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/admin/reservations/res-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got reservation.Reservation
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.ReservationID != "res-1" || got.Headcount != 4 {
		t.Fatalf("unexpected reservation: %+v", got)
	}
}

func TestGetReservationNotFound(t *testing.T) {
	h := NewAdminHandler(&fakeClearer{}, nil, reservation.NewMemoryStore(), logging.Default())
	router := newAdminRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/admin/reservations/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
