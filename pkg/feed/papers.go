package feed

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/umputun/newsdigest/pkg/config"
	"github.com/umputun/newsdigest/pkg/domain"
)

// PaperSearcher looks up the most recently submitted papers with the arXiv Atom API
type PaperSearcher struct {
	parser   *Parser
	baseURL  string
	maxItems int
}

// NewPaperSearcher creates a paper searcher for the given source config
func NewPaperSearcher(cfg config.SourceConfig) *PaperSearcher {
	return &PaperSearcher{
		parser:   NewParser(cfg.Timeout, cfg.UserAgent),
		baseURL:  cfg.URL,
		maxItems: cfg.MaxItems,
	}
}

// Search returns up to maxItems papers for the keywords, newest submission first.
// Item links are arXiv entry identifiers.
func (s *PaperSearcher) Search(ctx context.Context, keywords string) ([]domain.Item, error) {
	params := url.Values{}
	params.Set("search_query", keywords)
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(s.maxItems))

	feed, err := s.parser.Parse(ctx, withQuery(s.baseURL, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("search papers for %q: %w", keywords, err)
	}

	items := make([]domain.Item, 0, len(feed.Items))
	for _, fi := range feed.Items {
		id := fi.GUID
		if id == "" {
			id = fi.Link
		}
		items = append(items, domain.Item{
			Title:     s.parser.CleanText(fi.Title),
			Link:      id,
			Published: publishedTime(fi),
		})
	}

	// the api sorts already, keep the order stable for entries without dates
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Published.After(items[j].Published)
	})

	if len(items) > s.maxItems {
		items = items[:s.maxItems]
	}
	return items, nil
}
