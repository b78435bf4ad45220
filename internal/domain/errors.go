package domain

import "errors"

var (
	ErrFetchFailed              = errors.New("fetch failed")
	ErrSummarizationUnavailable = errors.New("summarization unavailable")
	ErrMalformedResponse        = errors.New("malformed summarization response")
	ErrCatalogUnreadable        = errors.New("catalog unreadable")
	ErrCacheCorrupt             = errors.New("cache entry corrupt")
	ErrCacheLocked              = errors.New("cache directory locked by another run")
)
