package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const rateWindow = time.Hour

// RatePolicy describes one fixed-window budget.
type RatePolicy struct {
	Prefix  string
	Ceiling int64
	Message string
}

var (
	ChatPolicy = RatePolicy{
		Prefix:  "chat_rate_limit",
		Ceiling: 20,
		Message: "Muitas mensagens. Aguarde um pouco antes de continuar.",
	}
	ComplaintPolicy = RatePolicy{
		Prefix:  "rate_limit",
		Ceiling: 5,
		Message: "Muitas tentativas. Tente novamente em 1 hora.",
	}
)

// RateLimiter counts requests per client in a window that restarts on every
// allowed write. The read and the write are separate calls, so concurrent
// requests from one client can overshoot the ceiling slightly.
type RateLimiter struct {
	kv     KV
	window time.Duration
}

func NewRateLimiter(kv KV) (*RateLimiter, error) {
	if kv == nil {
		return nil, errors.New("usecase: kv store must not be nil")
	}
	return &RateLimiter{kv: kv, window: rateWindow}, nil
}

// Allow records one request for clientID and reports whether it fits the
// policy. A denied request leaves the counter untouched.
func (r *RateLimiter) Allow(ctx context.Context, p RatePolicy, clientID string) (bool, error) {
	key := p.Prefix + ":" + clientID
	raw, ok, err := r.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("usecase: Allow: %w", err)
	}
	var current int64
	if ok {
		current, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return false, fmt.Errorf("usecase: Allow: decode counter %q: %w", key, err)
		}
	}
	if current >= p.Ceiling {
		return false, nil
	}
	if err := r.kv.SetEX(ctx, key, strconv.FormatInt(current+1, 10), r.window); err != nil {
		return false, fmt.Errorf("usecase: Allow: %w", err)
	}
	return true, nil
}
