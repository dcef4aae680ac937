package entities

import "time"

// ShortLink represents a short-link record in the database
type ShortLink struct {
	ID             int64      `json:"id"`
	ShortCode      string     `json:"short_code"`
	TargetURL      string     `json:"target_url"`
	CustomAlias    *string    `json:"custom_alias,omitempty"` // Pointer allows nil (no alias)
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"` // Pointer allows nil (no expiration)
	IsActive       bool       `json:"is_active"`
	ClickCount     int64      `json:"click_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	CreatorIP      *string    `json:"creator_ip,omitempty"`
	UserAgent      *string    `json:"user_agent,omitempty"`
	Description    *string    `json:"description,omitempty"`
}

// IsExpired reports whether the link is past its expiration time.
// Expiry is derived at read time, never stored.
func (l *ShortLink) IsExpired() bool {
	if l.ExpiresAt == nil {
		return false
	}
	return time.Now().UTC().After(l.ExpiresAt.UTC())
}
