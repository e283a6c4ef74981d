package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sentinela-gateway/internal/domain"
)

const (
	defaultAITimeout    = 25 * time.Second
	chatMessagesCounter = "stats:chatbot:messages"
)

// Fallback is shown to the user whenever a chat turn fails server-side.
const Fallback = "Desculpe, estou temporariamente indisponível. Tente novamente em alguns instantes ou explore os conteúdos do Sentinela Explica."

type AIGateway interface {
	Generate(ctx context.Context, prompt domain.Prompt) (string, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type ChatService struct {
	kv            KV
	ai            AIGateway
	limiter       *RateLimiter
	conversations *ConversationStore
	logger        *slog.Logger
	aiTimeout     time.Duration
	now           func() time.Time
}

type ChatInput struct {
	ClientID       string
	Message        string
	ConversationID string
}

type ChatOutput struct {
	Response       string
	ConversationID string
	Timestamp      string
}

func NewChatService(kv KV, ai AIGateway, logger *slog.Logger, aiTimeout time.Duration) (*ChatService, error) {
	if kv == nil {
		return nil, errors.New("usecase: kv store must not be nil")
	}
	if ai == nil {
		return nil, errors.New("usecase: ai gateway must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if aiTimeout <= 0 {
		aiTimeout = defaultAITimeout
	}
	limiter, err := NewRateLimiter(kv)
	if err != nil {
		return nil, err
	}
	conversations, err := NewConversationStore(kv, logger)
	if err != nil {
		return nil, err
	}
	return &ChatService{
		kv:            kv,
		ai:            ai,
		limiter:       limiter,
		conversations: conversations,
		logger:        logger,
		aiTimeout:     aiTimeout,
		now:           time.Now,
	}, nil
}

// Send runs one chat turn: throttle, validate, load context, ask the model
// and persist both sides of the exchange.
func (s *ChatService) Send(ctx context.Context, in ChatInput) (ChatOutput, error) {
	allowed, err := s.limiter.Allow(ctx, ChatPolicy, in.ClientID)
	if err != nil {
		return ChatOutput{}, newError(ErrorInternal, "rate_limit_store_error", err)
	}
	if !allowed {
		return ChatOutput{}, newUserError(ErrorRateLimited, "chat_rate_limited", ChatPolicy.Message)
	}

	message, verr := validateChatMessage(in.Message)
	if verr != nil {
		return ChatOutput{}, verr
	}

	convID := conversationKeyID(in.ConversationID)

	history, err := s.conversations.Read(ctx, convID)
	if err != nil {
		return ChatOutput{}, newError(ErrorInternal, "conversation_read_error", err)
	}

	aiCtx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	answer, err := s.ai.Generate(aiCtx, buildPrompt(message, history))
	cancel()
	if err != nil {
		return ChatOutput{}, classifyAIError(err)
	}

	timestamp := s.now().UTC().Format(domain.TimeLayout)
	var g errgroup.Group
	g.Go(func() error {
		return s.conversations.Append(ctx, convID,
			domain.ChatMessage{Role: domain.RoleUser, Content: message, Timestamp: timestamp},
			domain.ChatMessage{Role: domain.RoleAssistant, Content: answer, Timestamp: timestamp},
		)
	})
	g.Go(func() error {
		if _, err := s.kv.Incr(ctx, chatMessagesCounter); err != nil {
			s.logger.WarnContext(ctx, "chat counter increment failed", "error", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return ChatOutput{}, newError(ErrorInternal, "conversation_write_error", err)
	}

	return ChatOutput{
		Response:       answer,
		ConversationID: convID,
		Timestamp:      timestamp,
	}, nil
}

func classifyAIError(err error) *Error {
	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		return newError(ErrorConfiguration, "ai_credential_missing", err)
	case errors.Is(err, context.DeadlineExceeded):
		return newError(ErrorUpstream, "ai_timeout", err)
	}
	if status, ok := upstreamStatusCode(err); ok && status == 429 {
		return newError(ErrorUpstream, "ai_rate_limited", err)
	}
	return newError(ErrorUpstream, "ai_error", err)
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

var newUUID = func() string {
	return uuid.NewString()
}
