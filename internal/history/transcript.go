package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const transcriptKeyPrefix = "transcript:"

// defaultTranscriptTTL keeps transcripts around long enough for a human to
// review a conversation without letting abandoned chats pile up forever.
const defaultTranscriptTTL = 30 * 24 * time.Hour

// Message is one line of a customer conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "customer" or "assistant"
	Channel   string    `json:"channel,omitempty"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// TranscriptStore persists conversation transcripts in Redis, one list per
// customer. A nil store is a no-op so callers can run without Redis.
type TranscriptStore struct {
	redis       *redis.Client
	ttl         time.Duration
	maxMessages int64
}

// NewTranscriptStore creates a TranscriptStore. Returns nil when redisClient
// is nil.
func NewTranscriptStore(redisClient *redis.Client) *TranscriptStore {
	if redisClient == nil {
		return nil
	}
	return &TranscriptStore{
		redis:       redisClient,
		ttl:         defaultTranscriptTTL,
		maxMessages: 250,
	}
}

// Append records a message at the end of the customer's transcript.
func (s *TranscriptStore) Append(ctx context.Context, customerID string, msg Message) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if customerID == "" {
		return errors.New("history: customerID required")
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("history: marshal transcript message: %w", err)
	}

	key := transcriptKey(customerID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, s.ttl)
	if s.maxMessages > 0 {
		pipe.LTrim(ctx, key, -s.maxMessages, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("history: append transcript message: %w", err)
	}
	return nil
}

// List returns the most recent messages, oldest first. limit <= 0 returns
// the whole transcript.
func (s *TranscriptStore) List(ctx context.Context, customerID string, limit int64) ([]Message, error) {
	if s == nil || s.redis == nil {
		return nil, nil
	}
	if customerID == "" {
		return nil, errors.New("history: customerID required")
	}

	start := int64(0)
	if limit > 0 {
		start = -limit
	}

	key := transcriptKey(customerID)
	raw, err := s.redis.LRange(ctx, key, start, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("history: list transcript: %w", err)
	}

	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

// Clear removes the customer's transcript.
func (s *TranscriptStore) Clear(ctx context.Context, customerID string) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if customerID == "" {
		return errors.New("history: customerID required")
	}
	if err := s.redis.Del(ctx, transcriptKey(customerID)).Err(); err != nil {
		return fmt.Errorf("history: clear transcript: %w", err)
	}
	return nil
}

func transcriptKey(customerID string) string {
	return transcriptKeyPrefix + customerID
}
