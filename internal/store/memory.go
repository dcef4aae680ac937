package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"linklet/internal/entities"
)

// MemoryStore is an in-memory RecordStore mirroring the table's constraint
// semantics (unique short_code and custom_alias, atomic increments). Used in
// tests as the swappable double for the Postgres implementation.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	byCode map[string]*entities.ShortLink
}

// NewMemoryStore creates an empty in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byCode: make(map[string]*entities.ShortLink)}
}

func copyLink(link *entities.ShortLink) *entities.ShortLink {
	dup := *link
	return &dup
}

func (m *MemoryStore) Insert(ctx context.Context, link *entities.ShortLink) (*entities.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byCode[link.ShortCode]; exists {
		return nil, &ConflictError{Field: FieldShortCode, Value: link.ShortCode}
	}
	if link.CustomAlias != nil {
		for _, other := range m.byCode {
			if other.CustomAlias != nil && *other.CustomAlias == *link.CustomAlias {
				return nil, &ConflictError{Field: FieldCustomAlias, Value: *link.CustomAlias}
			}
		}
	}

	m.nextID++
	now := time.Now().UTC()
	stored := copyLink(link)
	stored.ID = m.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.IsActive = true
	stored.ClickCount = 0
	m.byCode[stored.ShortCode] = stored

	return copyLink(stored), nil
}

func (m *MemoryStore) FindByCode(ctx context.Context, code string) (*entities.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return copyLink(link), nil
}

func (m *MemoryStore) FindByAlias(ctx context.Context, alias string) (*entities.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, link := range m.byCode {
		if link.CustomAlias != nil && *link.CustomAlias == alias {
			return copyLink(link), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) FindActiveByTarget(ctx context.Context, targetURL string) (*entities.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var newest *entities.ShortLink
	for _, link := range m.byCode {
		if link.TargetURL != targetURL || !link.IsActive || link.IsExpired() {
			continue
		}
		if newest == nil || link.CreatedAt.After(newest.CreatedAt) {
			newest = link
		}
	}
	if newest == nil {
		return nil, ErrNotFound
	}
	return copyLink(newest), nil
}

func (m *MemoryStore) Update(ctx context.Context, id int64, fields UpdateFields) (*entities.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, link := range m.byCode {
		if link.ID != id {
			continue
		}
		if fields.SetExpiresAt {
			link.ExpiresAt = fields.ExpiresAt
		}
		if fields.Description != nil {
			link.Description = fields.Description
		}
		link.UpdatedAt = time.Now().UTC()
		return copyLink(link), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) IncrementClicks(ctx context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.byCode[code]
	if !ok {
		return false, nil
	}
	now := time.Now().UTC()
	link.ClickCount++
	link.LastAccessedAt = &now
	link.UpdatedAt = now
	return true, nil
}

func (m *MemoryStore) Deactivate(ctx context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.byCode[code]
	if !ok {
		return false, nil
	}
	link.IsActive = false
	link.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *MemoryStore) Delete(ctx context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byCode[code]; !ok {
		return false, nil
	}
	delete(m.byCode, code)
	return true, nil
}

func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]*entities.ShortLink, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*entities.ShortLink
	for _, link := range m.byCode {
		if filter.IsActive != nil && link.IsActive != *filter.IsActive {
			continue
		}
		matched = append(matched, copyLink(link))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Size
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + filter.Size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m *MemoryStore) DeactivateExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var flipped int64
	for _, link := range m.byCode {
		if link.IsActive && link.ExpiresAt != nil && link.ExpiresAt.Before(now) {
			link.IsActive = false
			link.UpdatedAt = now
			flipped++
		}
	}
	return flipped, nil
}
