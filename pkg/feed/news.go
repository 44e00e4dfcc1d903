package feed

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/umputun/newsdigest/pkg/config"
	"github.com/umputun/newsdigest/pkg/domain"
)

// NewsSearcher looks up news articles with an RSS search endpoint, Google News by default
type NewsSearcher struct {
	parser   *Parser
	baseURL  string
	maxItems int
}

// NewNewsSearcher creates a news searcher for the given source config
func NewNewsSearcher(cfg config.SourceConfig) *NewsSearcher {
	return &NewsSearcher{
		parser:   NewParser(cfg.Timeout, cfg.UserAgent),
		baseURL:  cfg.URL,
		maxItems: cfg.MaxItems,
	}
}

// Search returns up to maxItems news items for the keywords, in feed order
func (s *NewsSearcher) Search(ctx context.Context, keywords string) ([]domain.Item, error) {
	params := url.Values{}
	params.Set("q", strings.Join(strings.Fields(keywords), " "))

	feed, err := s.parser.Parse(ctx, withQuery(s.baseURL, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("search news for %q: %w", keywords, err)
	}

	items := make([]domain.Item, 0, s.maxItems)
	for _, fi := range feed.Items {
		if len(items) == s.maxItems {
			break
		}
		items = append(items, domain.Item{
			Title:     s.parser.CleanText(fi.Title),
			Link:      fi.Link,
			Published: publishedTime(fi),
		})
	}
	return items, nil
}
