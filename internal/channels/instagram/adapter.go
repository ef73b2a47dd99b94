package instagram

import (
	"context"
	"net/http"
	"time"

	"github.com/clayhaus/bookingbot/internal/dialog"
	"github.com/clayhaus/bookingbot/internal/faq"
	"github.com/clayhaus/bookingbot/internal/history"
	"github.com/clayhaus/bookingbot/internal/observability/metrics"
	"github.com/clayhaus/bookingbot/pkg/logging"
)

const handleTimeout = 30 * time.Second

// historyContextSize caps how many transcript lines accompany an FAQ question.
const historyContextSize = 10

// Quick-reply payloads attached to the confirmation prompt.
const (
	payloadConfirm = "CONFIRM"
	payloadReject  = "REJECT"
)

// Adapter is the Instagram DM channel adapter. It feeds inbound webhooks
// into the dialog engine, answers general questions through the FAQ
// responder, and sends outbound messages via the Graph API.
type Adapter struct {
	client      *Client
	webhook     *WebhookHandler
	engine      *dialog.Engine
	responder   faq.Responder
	transcripts *history.TranscriptStore
	metrics     *metrics.BookingMetrics
	logger      *logging.Logger
}

// NewAdapter creates a new Instagram DM adapter. responder and transcripts
// may be nil; the adapter then falls back to a canned FAQ answer and skips
// transcript recording.
func NewAdapter(pageAccessToken, appSecret, verifyToken string, engine *dialog.Engine, responder faq.Responder, transcripts *history.TranscriptStore, logger *logging.Logger) *Adapter {
	if engine == nil {
		panic("instagram: dialog engine is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	a := &Adapter{
		client:      NewClient(pageAccessToken),
		engine:      engine,
		responder:   responder,
		transcripts: transcripts,
		logger:      logger,
	}
	a.webhook = NewWebhookHandler(verifyToken, appSecret, a.handleInbound)
	return a
}

// SetGraphAPIBase overrides the Graph API base URL (useful for testing).
func (a *Adapter) SetGraphAPIBase(base string) {
	a.client.SetGraphAPIBase(base)
}

// SetMetrics attaches booking metrics.
func (a *Adapter) SetMetrics(m *metrics.BookingMetrics) {
	a.metrics = m
}

// HandleVerification handles GET /webhooks/instagram (Meta challenge).
func (a *Adapter) HandleVerification(w http.ResponseWriter, r *http.Request) {
	a.webhook.HandleVerification(w, r)
}

// HandleWebhook handles POST /webhooks/instagram (inbound messages).
func (a *Adapter) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	a.webhook.HandleInbound(w, r)
}

// SendText sends a plain text DM. Implements the messenger the reservation
// protocol and reminder sweeper notify customers through.
func (a *Adapter) SendText(ctx context.Context, customerID, text string) error {
	if _, err := a.client.SendTextMessage(ctx, customerID, text); err != nil {
		a.metrics.ObserveOutbound("instagram", "failed")
		a.logger.Error("failed to send instagram message", "recipient_id", customerID, "error", err)
		return err
	}
	a.metrics.ObserveOutbound("instagram", "sent")
	a.record(ctx, customerID, "assistant", text)
	return nil
}

func (a *Adapter) handleInbound(msg InboundMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	text := msg.Text
	kind := "message"
	if msg.IsPostback {
		kind = "postback"
		switch msg.PostbackPayload {
		case payloadConfirm:
			text = "yes"
		case payloadReject:
			text = "no"
		case "":
		default:
			text = msg.PostbackPayload
		}
	}
	a.metrics.ObserveInbound("instagram", kind)

	a.logger.Info("instagram inbound message",
		"sender_id", msg.SenderID,
		"is_postback", msg.IsPostback,
	)
	a.record(ctx, msg.SenderID, "customer", text)

	started := time.Now()
	reply, err := a.engine.HandleMessage(ctx, msg.SenderID, text)
	a.metrics.ObserveDialogLatency("instagram", time.Since(started).Seconds())
	if err != nil {
		a.logger.Error("dialog engine failed", "sender_id", msg.SenderID, "error", err)
		a.SendText(ctx, msg.SenderID, "Sorry, something went wrong on our side. Please try again in a moment.")
		return
	}

	switch reply.Kind {
	case dialog.ReplyNone:
		return
	case dialog.ReplyText:
		a.SendText(ctx, msg.SenderID, reply.Text)
	case dialog.ReplyFAQ:
		a.SendText(ctx, msg.SenderID, a.answer(ctx, msg.SenderID, reply.Text))
	case dialog.ReplyConfirm:
		a.sendConfirmPrompt(ctx, msg.SenderID, reply.Text)
	}
}

// sendConfirmPrompt sends the booking summary with one-tap yes/no buttons.
func (a *Adapter) sendConfirmPrompt(ctx context.Context, customerID, text string) {
	replies := []QuickReply{
		{ContentType: "text", Title: "Yes, book it", Payload: payloadConfirm},
		{ContentType: "text", Title: "No, cancel", Payload: payloadReject},
	}
	if _, err := a.client.SendQuickReplies(ctx, customerID, text, replies); err != nil {
		a.metrics.ObserveOutbound("instagram", "failed")
		a.logger.Error("failed to send confirmation prompt", "recipient_id", customerID, "error", err)
		return
	}
	a.metrics.ObserveOutbound("instagram", "sent")
	a.record(ctx, customerID, "assistant", text)
}

func (a *Adapter) answer(ctx context.Context, customerID, question string) string {
	if a.responder == nil {
		return faq.FallbackAnswer
	}
	text, err := a.responder.Answer(ctx, question, a.recentHistory(ctx, customerID))
	if err != nil {
		a.logger.Warn("faq responder failed", "error", err)
	}
	return text
}

// recentHistory formats the customer's latest transcript messages for the FAQ
// responder. The inbound message being handled is already recorded, so it is
// left off the tail.
func (a *Adapter) recentHistory(ctx context.Context, customerID string) []string {
	if a.transcripts == nil {
		return nil
	}
	msgs, err := a.transcripts.List(ctx, customerID, historyContextSize+1)
	if err != nil {
		a.logger.Warn("failed to load transcript history", "customer_id", customerID, "error", err)
		return nil
	}
	if len(msgs) > 0 {
		msgs = msgs[:len(msgs)-1]
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, m.Role+": "+m.Body)
	}
	return lines
}

func (a *Adapter) record(ctx context.Context, customerID, role, body string) {
	if a.transcripts == nil {
		return
	}
	err := a.transcripts.Append(ctx, customerID, history.Message{
		Role:    role,
		Channel: "instagram",
		Body:    body,
	})
	if err != nil {
		a.logger.Warn("failed to record transcript message", "customer_id", customerID, "error", err)
	}
}
