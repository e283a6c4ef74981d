package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sentinela-gateway/internal/domain"
)

const (
	conversationKeyPrefix   = "conversation:"
	maxConversationMessages = 10
	conversationTTL         = 2 * time.Hour
)

// ConversationStore keeps the most recent turns of each conversation as a
// JSON array. Every write refreshes the expiry.
type ConversationStore struct {
	kv     KV
	logger *slog.Logger
}

func NewConversationStore(kv KV, logger *slog.Logger) (*ConversationStore, error) {
	if kv == nil {
		return nil, errors.New("usecase: kv store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationStore{kv: kv, logger: logger}, nil
}

// Read returns the stored turns oldest first. Missing, expired or unreadable
// conversations read as empty.
func (c *ConversationStore) Read(ctx context.Context, id string) ([]domain.ChatMessage, error) {
	raw, ok, err := c.kv.Get(ctx, conversationKeyPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("usecase: Read conversation: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var stored []domain.ChatMessage
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		c.logger.WarnContext(ctx, "discarding unreadable conversation", "conversationId", id, "error", err)
		return nil, nil
	}
	msgs := make([]domain.ChatMessage, 0, len(stored))
	for _, m := range stored {
		if err := m.Validate(); err != nil {
			c.logger.WarnContext(ctx, "dropping invalid conversation message", "conversationId", id, "error", err)
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Append adds msgs in order, keeps the last ten and rewrites the log.
// Concurrent appends to the same id are last-writer-wins.
func (c *ConversationStore) Append(ctx context.Context, id string, msgs ...domain.ChatMessage) error {
	history, err := c.Read(ctx, id)
	if err != nil {
		return err
	}
	history = append(history, msgs...)
	if len(history) > maxConversationMessages {
		history = history[len(history)-maxConversationMessages:]
	}
	b, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("usecase: Append conversation: encode: %w", err)
	}
	if err := c.kv.SetEX(ctx, conversationKeyPrefix+id, string(b), conversationTTL); err != nil {
		return fmt.Errorf("usecase: Append conversation: %w", err)
	}
	return nil
}
