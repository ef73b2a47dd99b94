package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clayhaus/bookingbot/internal/approvals"
	"github.com/clayhaus/bookingbot/pkg/logging"
)

const (
	defaultAPIBase     = "https://api.telegram.org"
	defaultHTTPTimeout = 10 * time.Second
)

// Bot talks to the Telegram Bot API. It delivers approval prompts to the
// studio owner's chat and answers button taps.
type Bot struct {
	token       string
	ownerChatID int64
	apiBase     string
	httpClient  *http.Client
	logger      *logging.Logger
}

// NewBot creates a Bot that sends approval prompts to ownerChatID.
func NewBot(token string, ownerChatID int64, logger *logging.Logger) *Bot {
	if logger == nil {
		logger = logging.Default()
	}
	return &Bot{
		token:       token,
		ownerChatID: ownerChatID,
		apiBase:     defaultAPIBase,
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
		logger:      logger,
	}
}

// SetAPIBase overrides the Bot API base URL (useful for testing).
func (b *Bot) SetAPIBase(base string) {
	b.apiBase = base
}

// OwnerChatID returns the chat the bot treats as the studio owner's.
func (b *Bot) OwnerChatID() int64 {
	return b.ownerChatID
}

// SendMessage sends a plain text message to the given chat.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	return b.call(ctx, "sendMessage", sendMessageRequest{ChatID: chatID, Text: text})
}

// RequestApproval posts the pending reservation to the owner's chat with
// approve and reject buttons. Implements approvals.Notifier.
func (b *Bot) RequestApproval(ctx context.Context, req approvals.Request) error {
	text := fmt.Sprintf("New booking request:\n%s\n\nApprove it?", req.Summary)
	markup := &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{{
			{Text: "Approve", CallbackData: "approve:" + req.ReservationID},
			{Text: "Reject", CallbackData: "reject:" + req.ReservationID},
		}},
	}
	return b.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:      b.ownerChatID,
		Text:        text,
		ReplyMarkup: markup,
	})
}

// AnswerCallbackQuery acknowledges a button tap so the client stops its
// loading spinner.
func (b *Bot) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	return b.call(ctx, "answerCallbackQuery", answerCallbackRequest{
		CallbackQueryID: callbackID,
		Text:            text,
	})
}

func (b *Bot) call(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal %s request: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", b.apiBase, b.token, method)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create %s request: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telegram: read %s response: %w", method, err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return fmt.Errorf("telegram: unmarshal %s response: %w", method, err)
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram: API error %d on %s: %s", apiResp.ErrorCode, method, apiResp.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: unexpected status %d on %s: %s", resp.StatusCode, method, string(respBody))
	}
	return nil
}
