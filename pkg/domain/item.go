package domain

import "time"

// Item is a single digest entry, a news article or a paper
type Item struct {
	Title     string
	Link      string // article URL for news, entry identifier for papers
	Published time.Time
	Excerpt   string // optional lead text of the article
}

// String returns the digest line for the item
func (i Item) String() string {
	return i.Title + " - " + i.Link
}
