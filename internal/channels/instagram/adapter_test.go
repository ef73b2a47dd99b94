package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/clayhaus/bookingbot/internal/dialog"
	"github.com/clayhaus/bookingbot/internal/history"
	"github.com/clayhaus/bookingbot/internal/schedule"
	"github.com/clayhaus/bookingbot/internal/session"
	"github.com/clayhaus/bookingbot/pkg/logging"
)

type fakeCalendar struct{}

func (fakeCalendar) ListBusyIntervals(_ context.Context, _ time.Time) ([]schedule.Interval, error) {
	return nil, nil
}

type fakeBooker struct{}

func (fakeBooker) Request(_ context.Context, _ *session.ReservationDraft) (string, error) {
	return "res-1", nil
}

type fakeResponder struct {
	answer  string
	history []string
}

func (f *fakeResponder) Answer(_ context.Context, _ string, history []string) (string, error) {
	f.history = history
	return f.answer, nil
}

type graphCapture struct {
	mu   sync.Mutex
	sent []SendRequest
}

func (g *graphCapture) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SendRequest
		json.NewDecoder(r.Body).Decode(&req)
		g.mu.Lock()
		g.sent = append(g.sent, req)
		g.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(SendResponse{RecipientID: req.Recipient.ID, MessageID: "mid_out"})
	}
}

func (g *graphCapture) messages() []SendRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]SendRequest, len(g.sent))
	copy(out, g.sent)
	return out
}

func newAdapterFixture(t *testing.T, responder *fakeResponder, transcripts *history.TranscriptStore) (*Adapter, *graphCapture) {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Warsaw")
	if err != nil {
		t.Fatal(err)
	}
	hours, err := schedule.ParseWeekSchedule(map[time.Weekday]string{
		time.Monday:    "10-18",
		time.Tuesday:   "10-18",
		time.Wednesday: "10-18",
		time.Thursday:  "10-18",
		time.Friday:    "10-18",
	})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, loc)

	sched := schedule.NewEngine(fakeCalendar{}, hours, loc)
	store := session.NewMemoryStore(2 * time.Hour)
	engine := dialog.NewEngine(store, sched, fakeBooker{}, loc, logging.Default(),
		dialog.WithClock(func() time.Time { return now }))

	capture := &graphCapture{}
	server := httptest.NewServer(capture.handler())
	t.Cleanup(server.Close)

	var adapter *Adapter
	if responder != nil {
		adapter = NewAdapter("page_token", "app_secret", "verify_token", engine, responder, transcripts, logging.Default())
	} else {
		adapter = NewAdapter("page_token", "app_secret", "verify_token", engine, nil, transcripts, logging.Default())
	}
	adapter.SetGraphAPIBase(server.URL)
	return adapter, capture
}

func postWebhook(t *testing.T, adapter *Adapter, senderID, text string) {
	t.Helper()
	event := WebhookEvent{
		Object: "instagram",
		Entry: []Entry{{
			Messaging: []Messaging{{
				Sender:    Sender{ID: senderID},
				Timestamp: time.Now().UnixMilli(),
				Message:   &Message{MID: "mid_in", Text: text},
			}},
		}},
	}
	body, _ := json.Marshal(event)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/instagram", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", signBody("app_secret", body))
	w := httptest.NewRecorder()
	adapter.HandleWebhook(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("webhook returned %d", w.Code)
	}
}

func TestWebhookMessageGetsDialogReply(t *testing.T) {
	adapter, capture := newAdapterFixture(t, nil, nil)

	postWebhook(t, adapter, "user_1", "I want to book a workshop")

	sent := capture.messages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 outbound message, got %d", len(sent))
	}
	if sent[0].Recipient.ID != "user_1" {
		t.Errorf("recipient = %s, want user_1", sent[0].Recipient.ID)
	}
	if !strings.Contains(sent[0].Message.Text, "What day") {
		t.Errorf("expected a date prompt, got %q", sent[0].Message.Text)
	}
}

func TestWebhookQuestionGoesToResponder(t *testing.T) {
	responder := &fakeResponder{answer: "A two hour workshop costs 120 zl per person."}
	adapter, capture := newAdapterFixture(t, responder, nil)

	postWebhook(t, adapter, "user_2", "how much does a workshop cost?")

	sent := capture.messages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 outbound message, got %d", len(sent))
	}
	if sent[0].Message.Text != responder.answer {
		t.Errorf("expected responder answer, got %q", sent[0].Message.Text)
	}
}

func TestQuestionCarriesTranscriptHistory(t *testing.T) {
	mr := miniredis.RunT(t)
	transcripts := history.NewTranscriptStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	responder := &fakeResponder{answer: "Kids workshops are 90 zl per child."}
	adapter, _ := newAdapterFixture(t, responder, transcripts)

	ctx := context.Background()
	transcripts.Append(ctx, "user_6", history.Message{Role: "customer", Body: "do you run workshops for kids?"})
	transcripts.Append(ctx, "user_6", history.Message{Role: "assistant", Body: "We do, every Saturday morning."})

	postWebhook(t, adapter, "user_6", "how much does that cost?")

	want := []string{
		"customer: do you run workshops for kids?",
		"assistant: We do, every Saturday morning.",
	}
	if len(responder.history) != len(want) {
		t.Fatalf("history = %v, want %v", responder.history, want)
	}
	for i := range want {
		if responder.history[i] != want[i] {
			t.Errorf("history[%d] = %q, want %q", i, responder.history[i], want[i])
		}
	}
}

func TestConfirmationPromptCarriesQuickReplies(t *testing.T) {
	adapter, capture := newAdapterFixture(t, nil, nil)

	postWebhook(t, adapter, "user_4", "book for 3 people on 03.03.2026 at 3pm, 2 hours")

	sent := capture.messages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 outbound message, got %d", len(sent))
	}
	msg := sent[0].Message
	if !strings.Contains(msg.Text, "Workshop for 3 people") {
		t.Fatalf("expected booking summary, got %q", msg.Text)
	}
	if len(msg.QuickReplies) != 2 {
		t.Fatalf("expected 2 quick replies, got %d", len(msg.QuickReplies))
	}
	if msg.QuickReplies[0].Payload != "CONFIRM" || msg.QuickReplies[1].Payload != "REJECT" {
		t.Errorf("unexpected payloads: %+v", msg.QuickReplies)
	}
}

func TestConfirmTapSubmitsReservation(t *testing.T) {
	adapter, capture := newAdapterFixture(t, nil, nil)

	postWebhook(t, adapter, "user_5", "book for 3 people on 03.03.2026 at 3pm, 2 hours")

	event := WebhookEvent{
		Object: "instagram",
		Entry: []Entry{{
			Messaging: []Messaging{{
				Sender:    Sender{ID: "user_5"},
				Timestamp: time.Now().UnixMilli(),
				Message: &Message{
					MID:        "mid_tap",
					Text:       "Yes, book it",
					QuickReply: &InboundQuickTap{Payload: "CONFIRM"},
				},
			}},
		}},
	}
	body, _ := json.Marshal(event)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/instagram", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", signBody("app_secret", body))
	w := httptest.NewRecorder()
	adapter.HandleWebhook(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("webhook returned %d", w.Code)
	}

	sent := capture.messages()
	if len(sent) != 2 {
		t.Fatalf("expected 2 outbound messages, got %d", len(sent))
	}
	if !strings.Contains(sent[1].Message.Text, "approval") {
		t.Errorf("expected approval notice after tap, got %q", sent[1].Message.Text)
	}
}

func TestSendTextGoesToGraphAPI(t *testing.T) {
	adapter, capture := newAdapterFixture(t, nil, nil)

	if err := adapter.SendText(context.Background(), "user_3", "Your workshop is confirmed!"); err != nil {
		t.Fatal(err)
	}

	sent := capture.messages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 outbound message, got %d", len(sent))
	}
	if sent[0].Recipient.ID != "user_3" || sent[0].Message.Text != "Your workshop is confirmed!" {
		t.Errorf("unexpected outbound message: %+v", sent[0])
	}
}
