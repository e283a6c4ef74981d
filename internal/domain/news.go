package domain

// NewsItem is one headline pulled from an upstream feed.
type NewsItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Source      string `json:"source"`
	PublishedAt string `json:"publishedAt,omitempty"`
	Image       string `json:"image,omitempty"`
}
