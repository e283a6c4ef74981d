package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sentinela-gateway/internal/domain"
)

const (
	newsCacheKey       = "news:latest"
	newsCacheTTL       = 10 * time.Minute
	maxNewsItems       = 24
	defaultNewsTimeout = 8 * time.Second
)

// NewsSource is one upstream headline feed.
type NewsSource interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.NewsItem, error)
}

type NewsDigest struct {
	Items     []domain.NewsItem `json:"items"`
	Timestamp string            `json:"timestamp"`
	Sources   int               `json:"sources"`
}

type NewsService struct {
	sources []NewsSource
	cache   KV
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewNewsService builds the aggregator. cache may be nil to disable caching.
func NewNewsService(sources []NewsSource, cache KV, logger *slog.Logger, timeout time.Duration) (*NewsService, error) {
	for i, src := range sources {
		if src == nil {
			return nil, fmt.Errorf("usecase: news source %d must not be nil", i)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultNewsTimeout
	}
	return &NewsService{
		sources: sources,
		cache:   cache,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
	}, nil
}

// Latest returns the merged headlines of every source that answered in time.
// A failing source is logged and skipped.
func (s *NewsService) Latest(ctx context.Context) (NewsDigest, error) {
	if d, ok := s.cached(ctx); ok {
		return d, nil
	}

	results := make([][]domain.NewsItem, len(s.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range s.sources {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()
			items, err := src.Fetch(fctx)
			if err != nil {
				s.logger.WarnContext(ctx, "news source failed", "source", src.Name(), "error", err)
				return nil
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return NewsDigest{}, err
	}
	if err := ctx.Err(); err != nil {
		return NewsDigest{}, fmt.Errorf("usecase: Latest: %w", err)
	}

	var merged []domain.NewsItem
	for _, items := range results {
		merged = append(merged, items...)
	}
	d := NewsDigest{
		Items:     dedupeByTitle(merged, maxNewsItems),
		Timestamp: s.now().UTC().Format(domain.TimeLayout),
		Sources:   len(s.sources),
	}
	s.store(ctx, d)
	return d, nil
}

func (s *NewsService) cached(ctx context.Context) (NewsDigest, bool) {
	if s.cache == nil {
		return NewsDigest{}, false
	}
	raw, ok, err := s.cache.Get(ctx, newsCacheKey)
	if err != nil {
		s.logger.WarnContext(ctx, "news cache read failed", "error", err)
		return NewsDigest{}, false
	}
	if !ok {
		return NewsDigest{}, false
	}
	var d NewsDigest
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable news cache", "error", err)
		return NewsDigest{}, false
	}
	return d, true
}

// store caches non-empty digests only, so an outage is retried on the next request.
func (s *NewsService) store(ctx context.Context, d NewsDigest) {
	if s.cache == nil || len(d.Items) == 0 {
		return
	}
	b, err := json.Marshal(d)
	if err != nil {
		s.logger.WarnContext(ctx, "news cache encode failed", "error", err)
		return
	}
	if err := s.cache.SetEX(ctx, newsCacheKey, string(b), newsCacheTTL); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "news cache write failed", "error", err)
	}
}

// dedupeByTitle keeps the first item per case-insensitive trimmed title and
// drops untitled items.
func dedupeByTitle(items []domain.NewsItem, limit int) []domain.NewsItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.NewsItem, 0, min(len(items), limit))
	for _, it := range items {
		key := strings.ToLower(strings.TrimSpace(it.Title))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out
}
