package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clayhaus/bookingbot/internal/notify/telegram"
	"github.com/clayhaus/bookingbot/internal/reservation"
	"github.com/clayhaus/bookingbot/pkg/logging"
)

type stubDecider struct {
	gotID string
}

func (s *stubDecider) Decide(_ context.Context, reservationID string, _ reservation.Decision) (reservation.Ack, error) {
	s.gotID = reservationID
	return reservation.Ack{Applied: true, Status: reservation.StatusConfirmed}, nil
}

func newTelegramFixture(t *testing.T, secret string) (*TelegramWebhookHandler, *stubDecider) {
	t.Helper()
	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(apiServer.Close)

	bot := telegram.NewBot("token", 42, logging.Default())
	bot.SetAPIBase(apiServer.URL)
	decider := &stubDecider{}
	dispatcher := telegram.NewDispatcher(bot, decider, logging.Default())
	return NewTelegramWebhookHandler(dispatcher, secret, logging.Default()), decider
}

func TestTelegramWebhookDispatchesCallback(t *testing.T) {
	h, decider := newTelegramFixture(t, "")

	update := telegram.Update{
		UpdateID:      1,
		CallbackQuery: &telegram.CallbackQuery{ID: "cb-1", From: telegram.User{ID: 42}, Data: "approve:res-5"},
	}
	body, _ := json.Marshal(update)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/telegram", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleUpdate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if decider.gotID != "res-5" {
		t.Fatalf("decided reservation = %q, want res-5", decider.gotID)
	}
}

func TestTelegramWebhookRejectsBadSecret(t *testing.T) {
	h, decider := newTelegramFixture(t, "hook-secret")

	body, _ := json.Marshal(telegram.Update{UpdateID: 2})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/telegram", bytes.NewReader(body))
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "wrong")
	w := httptest.NewRecorder()
	h.HandleUpdate(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if decider.gotID != "" {
		t.Fatal("decider must not run on bad secret")
	}
}

func TestTelegramWebhookRejectsBadJSON(t *testing.T) {
	h, _ := newTelegramFixture(t, "")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/telegram", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	h.HandleUpdate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
