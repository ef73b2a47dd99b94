package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/clayhaus/bookingbot/internal/notify/telegram"
	"github.com/clayhaus/bookingbot/pkg/logging"
)

// TelegramWebhookHandler receives Bot API updates for the owner's channel.
type TelegramWebhookHandler struct {
	dispatcher  *telegram.Dispatcher
	secretToken string
	logger      *logging.Logger
}

// NewTelegramWebhookHandler creates the webhook handler. secretToken is the
// value registered with setWebhook; empty disables the header check.
func NewTelegramWebhookHandler(dispatcher *telegram.Dispatcher, secretToken string, logger *logging.Logger) *TelegramWebhookHandler {
	if dispatcher == nil {
		panic("handlers: telegram dispatcher is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TelegramWebhookHandler{
		dispatcher:  dispatcher,
		secretToken: secretToken,
		logger:      logger,
	}
}

// HandleUpdate handles POST /webhooks/telegram.
func (h *TelegramWebhookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if h.secretToken != "" {
		presented := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(h.secretToken)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := h.dispatcher.HandleUpdate(r.Context(), update); err != nil {
		// Telegram retries on non-200; the dispatcher already logged the
		// failure, so acknowledge and move on.
		h.logger.Error("telegram update failed", "update_id", update.UpdateID, "error", err)
	}
	w.WriteHeader(http.StatusOK)
}
