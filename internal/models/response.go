package models

import "time"

// LinkResponse is the record projection returned after create and lookup.
type LinkResponse struct {
	ID          int64      `json:"id"`
	TargetURL   string     `json:"target_url"`
	ShortURL    string     `json:"short_url"` // base URL + short code
	ShortCode   string     `json:"short_code"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	IsActive    bool       `json:"is_active"`
	ClickCount  int64      `json:"click_count"`
	Description *string    `json:"description,omitempty"`
	CustomAlias *string    `json:"custom_alias,omitempty"`
}

// LinkStatsResponse is the detailed projection for the info endpoint.
type LinkStatsResponse struct {
	LinkResponse
	UpdatedAt      time.Time  `json:"updated_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	IsExpired      bool       `json:"is_expired"`
}

// LinkListResponse is a page of links plus pagination info.
type LinkListResponse struct {
	Links []*LinkResponse `json:"links"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
	Pages int64           `json:"pages"`
}

// TokenResponse carries an issued admin bearer token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
