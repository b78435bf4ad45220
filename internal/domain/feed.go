package domain

import "time"

// FeedDescriptor is a single catalog entry describing a syndicated source.
type FeedDescriptor struct {
	Category    string
	Title       string
	Description string
	SourceURL   string
	HTMLURL     string
}

// ArticleCandidate is one parsed feed entry before recency filtering.
// PublishedAt is nil when the feed carried no usable timestamp.
type ArticleCandidate struct {
	Title       string
	Link        string
	Author      string
	PublishedAt *time.Time
}

// Article is an accepted entry together with its summary and chapter slot.
type Article struct {
	Title       string
	Link        string
	Author      string
	PublishedAt time.Time
	Index       int
	Filename    string
	Summary     Summary
}

// Feed aggregates the accepted articles of one descriptor.
// Index is dense over feeds that have at least one article.
type Feed struct {
	Title    string
	Category string
	Index    int
	Filename string
	Articles []Article
}

// Catalog is the parsed feed list plus the title used for the publication.
type Catalog struct {
	Title string
	Feeds []FeedDescriptor
}
