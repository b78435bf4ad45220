package domain

import "fmt"

// Usage accumulates remote summarization cost for one run.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	RemoteCalls      int
	CacheHits        int
}

// Add returns the sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
		RemoteCalls:      u.RemoteCalls + other.RemoteCalls,
		CacheHits:        u.CacheHits + other.CacheHits,
	}
}

func (u Usage) String() string {
	return fmt.Sprintf("%d tokens (%d prompt, %d completion) over %d calls, %d cache hits",
		u.TotalTokens, u.PromptTokens, u.CompletionTokens, u.RemoteCalls, u.CacheHits)
}
