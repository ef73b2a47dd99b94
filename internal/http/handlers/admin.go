package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clayhaus/bookingbot/internal/history"
	"github.com/clayhaus/bookingbot/internal/reservation"
	"github.com/clayhaus/bookingbot/pkg/logging"
)

// SessionClearer wipes a customer's dialog session.
type SessionClearer interface {
	ClearSession(ctx context.Context, customerID string) error
}

// AdminHandler exposes the operator surface: session resets, transcript
// review and reservation lookups.
type AdminHandler struct {
	sessions     SessionClearer
	transcripts  *history.TranscriptStore
	reservations reservation.Store
	logger       *logging.Logger
}

// NewAdminHandler creates the admin handler. transcripts and reservations
// may be nil; the matching endpoints then return 404.
func NewAdminHandler(sessions SessionClearer, transcripts *history.TranscriptStore, reservations reservation.Store, logger *logging.Logger) *AdminHandler {
	if sessions == nil {
		panic("handlers: session clearer is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{
		sessions:     sessions,
		transcripts:  transcripts,
		reservations: reservations,
		logger:       logger,
	}
}

// ClearSession handles DELETE /admin/sessions/{customerID}.
func (h *AdminHandler) ClearSession(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	if customerID == "" {
		http.Error(w, "customerID required", http.StatusBadRequest)
		return
	}
	if err := h.sessions.ClearSession(r.Context(), customerID); err != nil {
		h.logger.Error("failed to clear session", "customer_id", customerID, "error", err)
		http.Error(w, "failed to clear session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTranscript handles GET /admin/transcripts/{customerID}?limit=N.
func (h *AdminHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	if h.transcripts == nil {
		http.Error(w, "transcripts not configured", http.StatusNotFound)
		return
	}
	customerID := chi.URLParam(r, "customerID")
	if customerID == "" {
		http.Error(w, "customerID required", http.StatusBadRequest)
		return
	}

	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	msgs, err := h.transcripts.List(r.Context(), customerID, limit)
	if err != nil {
		h.logger.Error("failed to list transcript", "customer_id", customerID, "error", err)
		http.Error(w, "failed to list transcript", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []history.Message{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"customer_id": customerID,
		"messages":    msgs,
	})
}

// GetReservation handles GET /admin/reservations/{reservationID}.
func (h *AdminHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	if h.reservations == nil {
		http.Error(w, "reservations not configured", http.StatusNotFound)
		return
	}
	reservationID := chi.URLParam(r, "reservationID")
	if reservationID == "" {
		http.Error(w, "reservationID required", http.StatusBadRequest)
		return
	}

	res, err := h.reservations.Get(r.Context(), reservationID)
	if errors.Is(err, reservation.ErrNotFound) {
		http.Error(w, "reservation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load reservation", "reservation_id", reservationID, "error", err)
		http.Error(w, "failed to load reservation", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
