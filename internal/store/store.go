package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linklet/internal/entities"
)

// ErrNotFound is returned when no record matches the lookup key.
var ErrNotFound = errors.New("store: record not found")

// ErrUnavailable wraps driver-level failures so callers can distinguish a
// broken store from a missing record.
var ErrUnavailable = errors.New("store: record store unavailable")

// Conflict field names, matching the table's unique constraints.
const (
	FieldShortCode   = "short_code"
	FieldCustomAlias = "custom_alias"
)

// ConflictError reports a uniqueness violation and which field conflicted,
// so the caller can decide between retrying (random codes) and failing
// outright (custom aliases).
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("store: %s %q already exists", e.Field, e.Value)
}

// UpdateFields is the set of mutable attributes for Update. Nil pointers
// leave the column untouched; SetExpiresAt with a nil ExpiresAt clears the
// expiry ("never expires").
type UpdateFields struct {
	ExpiresAt    *time.Time
	SetExpiresAt bool
	Description  *string
}

// ListFilter selects and paginates records for List.
type ListFilter struct {
	Page     int
	Size     int
	IsActive *bool
}

// RecordStore is the durable home of short-link records. Row-level atomicity
// (unique constraints, conditional updates) is the only serialization
// mechanism; implementations must not require callers to lock.
type RecordStore interface {
	// Insert persists a new record in a single atomic write and returns it
	// with store-assigned id and timestamps. Uniqueness violations come back
	// as *ConflictError.
	Insert(ctx context.Context, link *entities.ShortLink) (*entities.ShortLink, error)

	FindByCode(ctx context.Context, code string) (*entities.ShortLink, error)
	FindByAlias(ctx context.Context, alias string) (*entities.ShortLink, error)

	// FindActiveByTarget returns the newest active, unexpired record for a
	// normalized target URL. Used by the dedup-by-target policy.
	FindActiveByTarget(ctx context.Context, targetURL string) (*entities.ShortLink, error)

	// Update atomically applies fields and returns the fresh record.
	Update(ctx context.Context, id int64, fields UpdateFields) (*entities.ShortLink, error)

	// IncrementClicks bumps click_count and touches last_accessed_at in one
	// store-level statement, never read-modify-write.
	IncrementClicks(ctx context.Context, code string) (bool, error)

	Deactivate(ctx context.Context, code string) (bool, error)
	Delete(ctx context.Context, code string) (bool, error)

	// List returns a page of records ordered by created_at descending plus
	// the total row count for the filter.
	List(ctx context.Context, filter ListFilter) ([]*entities.ShortLink, int64, error)

	// DeactivateExpired flips every active, past-expiry record inactive in
	// one pass and reports how many rows changed. Idempotent.
	DeactivateExpired(ctx context.Context) (int64, error)
}
