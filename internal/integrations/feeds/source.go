package feeds

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"sentinela-gateway/internal/domain"
)

const defaultMaxItems = 12

// Source reads headlines from one RSS or Atom feed.
type Source struct {
	name     string
	url      string
	maxItems int
	parser   *gofeed.Parser
}

type Option func(*Source)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *Source) {
		s.parser.Client = httpClient
	}
}

func WithMaxItems(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.maxItems = n
		}
	}
}

func NewSource(name, url string, opts ...Option) (*Source, error) {
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)
	if name == "" {
		return nil, errors.New("feeds: name must not be empty")
	}
	if url == "" {
		return nil, errors.New("feeds: url must not be empty")
	}
	p := gofeed.NewParser()
	p.UserAgent = "sentinela-gateway/1.0"
	s := &Source{name: name, url: url, maxItems: defaultMaxItems, parser: p}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Source) Name() string { return s.name }

// Fetch downloads and parses the feed. Items without a title or link are skipped.
func (s *Source) Fetch(ctx context.Context) ([]domain.NewsItem, error) {
	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("feeds: %s: %w", s.name, err)
	}
	items := make([]domain.NewsItem, 0, min(len(feed.Items), s.maxItems))
	for _, it := range feed.Items {
		if len(items) == s.maxItems {
			break
		}
		title := strings.TrimSpace(it.Title)
		link := strings.TrimSpace(it.Link)
		if title == "" || link == "" {
			continue
		}
		items = append(items, domain.NewsItem{
			Title:       title,
			Link:        link,
			Source:      s.name,
			PublishedAt: published(it),
			Image:       image(it),
		})
	}
	return items, nil
}

func published(it *gofeed.Item) string {
	switch {
	case it.PublishedParsed != nil:
		return it.PublishedParsed.UTC().Format(domain.TimeLayout)
	case it.UpdatedParsed != nil:
		return it.UpdatedParsed.UTC().Format(domain.TimeLayout)
	}
	return ""
}

func image(it *gofeed.Item) string {
	if it.Image != nil && it.Image.URL != "" {
		return it.Image.URL
	}
	for _, enc := range it.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

// ParseList reads "name=url" pairs separated by commas.
func ParseList(list string, timeout time.Duration) ([]*Source, error) {
	var out []*Source
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, url, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("feeds: entry %q is not name=url", entry)
		}
		src, err := NewSource(name, url, WithHTTPClient(&http.Client{Timeout: timeout}))
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}
