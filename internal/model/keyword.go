package model

import "time"

// Keyword is a scheduled search query. A keyword is due when it has never been
// ingested or its cooldown has elapsed.
type Keyword struct {
	ID             int64      `json:"id"`
	Keyword        string     `json:"keyword" yaml:"keyword"`
	Niche          string     `json:"niche" yaml:"niche"`
	Priority       int        `json:"priority" yaml:"priority"`
	LastIngestedAt *time.Time `json:"lastIngestedAt,omitempty" yaml:"-"`
}

// Due reports whether the keyword should be ingested at now.
func (k Keyword) Due(now time.Time, cooldown time.Duration) bool {
	return k.LastIngestedAt == nil || !k.LastIngestedAt.Add(cooldown).After(now)
}
