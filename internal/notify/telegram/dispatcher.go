package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/clayhaus/bookingbot/internal/reservation"
	"github.com/clayhaus/bookingbot/pkg/logging"
)

// Decider applies the studio's verdict to a pending reservation.
type Decider interface {
	Decide(ctx context.Context, reservationID string, decision reservation.Decision) (reservation.Ack, error)
}

// Dispatcher routes webhook updates from the owner's chat to the decider.
type Dispatcher struct {
	bot     *Bot
	decider Decider
	logger  *logging.Logger
}

// NewDispatcher creates a Dispatcher. Panics if bot or decider is nil.
func NewDispatcher(bot *Bot, decider Decider, logger *logging.Logger) *Dispatcher {
	if bot == nil {
		panic("telegram: bot is required")
	}
	if decider == nil {
		panic("telegram: decider is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{bot: bot, decider: decider, logger: logger}
}

// HandleUpdate processes a single webhook update. Button taps carry
// "approve:<id>" or "reject:<id>" in their callback data; everything else
// is ignored.
func (d *Dispatcher) HandleUpdate(ctx context.Context, update Update) error {
	if update.CallbackQuery == nil {
		return nil
	}
	cb := update.CallbackQuery

	// Decisions come only from the owner's chat.
	if cb.From.ID != d.bot.OwnerChatID() {
		d.logger.Warn("callback from unexpected sender", "sender_id", cb.From.ID)
		return d.bot.AnswerCallbackQuery(ctx, cb.ID, "Not allowed")
	}

	decision, reservationID, err := parseCallbackData(cb.Data)
	if err != nil {
		d.logger.Warn("unrecognized callback data", "data", cb.Data)
		return d.bot.AnswerCallbackQuery(ctx, cb.ID, "Unknown action")
	}

	ack, err := d.decider.Decide(ctx, reservationID, decision)
	if err != nil {
		d.logger.Error("decision failed", "reservation_id", reservationID, "decision", decision, "error", err)
		return d.bot.AnswerCallbackQuery(ctx, cb.ID, "Something went wrong, try again")
	}

	if !ack.Applied {
		return d.bot.AnswerCallbackQuery(ctx, cb.ID, fmt.Sprintf("Already %s", ack.Status))
	}
	return d.bot.AnswerCallbackQuery(ctx, cb.ID, fmt.Sprintf("Reservation %s", ack.Status))
}

func parseCallbackData(data string) (reservation.Decision, string, error) {
	action, id, ok := strings.Cut(data, ":")
	if !ok || id == "" {
		return "", "", fmt.Errorf("telegram: malformed callback data %q", data)
	}
	switch action {
	case "approve":
		return reservation.DecisionApprove, id, nil
	case "reject":
		return reservation.DecisionReject, id, nil
	}
	return "", "", fmt.Errorf("telegram: unknown callback action %q", action)
}
