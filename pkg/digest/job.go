package digest

import (
	"context"
	"fmt"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/newsdigest/pkg/domain"
)

//go:generate moq -out mocks/searcher.go -pkg mocks -skip-ensure -fmt goimports . Searcher
//go:generate moq -out mocks/extractor.go -pkg mocks -skip-ensure -fmt goimports . Extractor
//go:generate moq -out mocks/sender.go -pkg mocks -skip-ensure -fmt goimports . Sender

// Searcher finds items matching keywords
type Searcher interface {
	Search(ctx context.Context, keywords string) ([]domain.Item, error)
}

// Extractor returns a short excerpt of the article behind a link
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Sender delivers a composed digest
type Sender interface {
	Send(ctx context.Context, s domain.Settings, msg Message) error
}

// Job fetches news and papers for the settings' keywords and emails them as one digest
type Job struct {
	JobParams
	composer *Composer
}

// JobParams are collaborators of the digest job, Extractor is optional
type JobParams struct {
	News      Searcher
	Papers    Searcher
	Extractor Extractor
	Sender    Sender
}

// NewJob makes a digest job
func NewJob(params JobParams) *Job {
	return &Job{JobParams: params, composer: NewComposer()}
}

// Run executes one digest cycle: fetch news, fetch papers, add excerpts, compose and send.
// Any fetch or send error aborts the cycle.
func (j *Job) Run(ctx context.Context, s domain.Settings) error {
	news, err := j.News.Search(ctx, s.Keywords)
	if err != nil {
		return fmt.Errorf("fetch news: %w", err)
	}

	papers, err := j.Papers.Search(ctx, s.Keywords)
	if err != nil {
		return fmt.Errorf("fetch papers: %w", err)
	}

	if j.Extractor != nil {
		news = j.withExcerpts(ctx, news)
	}

	msg := j.composer.Compose(s, news, papers)
	if err := j.Sender.Send(ctx, s, msg); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}

	lgr.Printf("[INFO] update sent to %s, %d news, %d papers", s.RecipientEmail, len(news), len(papers))
	return nil
}

// withExcerpts returns a copy of items with excerpts filled, failed extractions are skipped
func (j *Job) withExcerpts(ctx context.Context, items []domain.Item) []domain.Item {
	res := make([]domain.Item, len(items))
	copy(res, items)
	for i := range res {
		excerpt, err := j.Extractor.Extract(ctx, res[i].Link)
		if err != nil {
			lgr.Printf("[WARN] can't extract excerpt for %s: %v", res[i].Link, err)
			continue
		}
		res[i].Excerpt = excerpt
	}
	return res
}
