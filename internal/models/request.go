package models

// CreateLinkRequest is the body for creating a short link.
type CreateLinkRequest struct {
	TargetURL     string  `json:"target_url" binding:"required"`
	CustomAlias   *string `json:"custom_alias,omitempty"`
	Description   *string `json:"description,omitempty"`
	ExpiresInDays *int    `json:"expires_in_days,omitempty" binding:"omitempty,min=1"`
}

// RequestMeta is caller metadata captured by the HTTP layer.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// UpdateExpiryRequest is the body for changing a link's expiration.
// A null expires_at clears the expiry ("never expires").
type UpdateExpiryRequest struct {
	ExpiresAt *string `json:"expires_at"` // RFC 3339 or null
}

// TokenRequest exchanges the admin key for a bearer token.
type TokenRequest struct {
	AdminKey string `json:"admin_key" binding:"required"`
}
