package models

import "time"

// Link représente un lien raccourci détenu par le registre en mémoire.
type Link struct {
	ID          uint         `json:"id"`
	ShortCode   string       `json:"short_code"`
	LongURL     string       `json:"long_url"`
	CreatedAt   time.Time    `json:"created_at"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	Clicks      int          `json:"clicks"`
	ClickEvents []ClickEvent `json:"click_events,omitempty"`
}

// IsExpired reports whether the link no longer accepts visits at the given
// instant. A nil ExpiresAt means the link never expires, and a link is still
// valid at the exact expiry instant (strict comparison).
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}
