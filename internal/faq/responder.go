package faq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/clayhaus/bookingbot/pkg/logging"
)

const systemPersona = `You are the friendly assistant of a small ceramics studio that runs pottery workshops.
Answer the customer's question briefly and warmly, in at most three sentences.
If you do not know the answer, say so and suggest asking the studio directly.
Never invent prices or opening hours. Do not handle bookings; the booking flow does that.`

// Responder answers free-form questions. history carries recent conversation
// lines, oldest first, already formatted as "role: text"; it may be empty.
// Implementations must respect the context deadline.
type Responder interface {
	Answer(ctx context.Context, question string, history []string) (string, error)
}

// GeminiResponder answers questions with Google's Gemini API.
type GeminiResponder struct {
	client  *genai.Client
	modelID string
	timeout time.Duration
	logger  *logging.Logger
}

var _ Responder = (*GeminiResponder)(nil)

// NewGeminiResponder creates a Gemini-backed responder.
func NewGeminiResponder(ctx context.Context, apiKey, modelID string, timeout time.Duration, logger *logging.Logger) (*GeminiResponder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("faq: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("faq: failed to create gemini client: %w", err)
	}

	return &GeminiResponder{
		client:  client,
		modelID: modelID,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Answer completes the question against the studio persona, prefixing any
// recent conversation history so follow-up questions resolve correctly. On
// any failure it returns the static fallback along with the error so callers
// can still send a polite reply.
func (r *GeminiResponder) Answer(ctx context.Context, question string, history []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	model := r.client.GenerativeModel(r.modelID)
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemPersona))

	prompt := question
	if len(history) > 0 {
		prompt = "Recent conversation:\n" + strings.Join(history, "\n") +
			"\n\nCustomer's question: " + question
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		r.logger.Warn("faq: completion failed", "error", err)
		return FallbackAnswer, fmt.Errorf("faq: completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return FallbackAnswer, errors.New("faq: empty completion")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	answer := strings.TrimSpace(b.String())
	if answer == "" {
		return FallbackAnswer, errors.New("faq: empty completion")
	}
	return answer, nil
}

// Close releases the underlying client.
func (r *GeminiResponder) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
