package usecase

import (
	"time"

	"FeedPub/internal/domain"
)

// IsRecent reports whether publishedAt falls strictly inside the window ending at now.
func IsRecent(publishedAt, now time.Time, window time.Duration) bool {
	return publishedAt.After(now.Add(-window))
}

// DaysToDuration converts a fractional day count into a duration.
func DaysToDuration(days float64) time.Duration {
	return time.Duration(days * float64(24*time.Hour))
}

// Accept applies IsRecent to a candidate. Entries without a publication
// timestamp are always rejected.
func Accept(c domain.ArticleCandidate, now time.Time, window time.Duration) bool {
	if c.PublishedAt == nil {
		return false
	}
	return IsRecent(*c.PublishedAt, now, window)
}
