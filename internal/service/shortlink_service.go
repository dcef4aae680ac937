package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"linklet/internal/entities"
	"linklet/internal/generator"
	"linklet/internal/models"
	"linklet/internal/repository"
	"linklet/internal/store"
	"linklet/internal/validator"
)

// Config carries the allocation policy knobs.
type Config struct {
	BaseURL           string
	CodeLength        int
	MaxURLLength      int
	MaxAttempts       int  // per generation round
	DefaultExpiryDays int  // 0 means no default expiry
	DedupByTarget     bool // reuse an existing record for the same normalized target
}

// ShortLinkService defines the public short-link operations.
type ShortLinkService interface {
	Create(ctx context.Context, req *models.CreateLinkRequest, meta models.RequestMeta) (*models.LinkResponse, error)
	Resolve(ctx context.Context, code string) (string, error)
	Info(ctx context.Context, code string) (*models.LinkStatsResponse, error)
	List(ctx context.Context, page, size int, isActive *bool) (*models.LinkListResponse, error)
	UpdateExpiry(ctx context.Context, code string, expiresAt *time.Time) (*models.LinkResponse, error)
	Deactivate(ctx context.Context, code string) error
	Delete(ctx context.Context, code string) error
	CleanupExpired(ctx context.Context) (int64, error)
}

type shortLinkService struct {
	repo      repository.ShortLinkRepository
	generator *generator.Generator
	validator *validator.URLValidator
	cfg       Config
	logger    *slog.Logger
}

// NewShortLinkService creates the allocation/resolution service.
func NewShortLinkService(repo repository.ShortLinkRepository, cfg Config, logger *slog.Logger) ShortLinkService {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 100
	}
	return &shortLinkService{
		repo:      repo,
		generator: generator.New(cfg.CodeLength),
		validator: validator.New(cfg.MaxURLLength),
		cfg:       cfg,
		logger:    logger,
	}
}

// Aliases that would shadow service routes.
var reservedAliases = map[string]bool{
	"admin":    true,
	"api":      true,
	"auth":     true,
	"health":   true,
	"info":     true,
	"list":     true,
	"qrcode":   true,
	"redirect": true,
	"shorten":  true,
	"urls":     true,
}

var aliasPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func validateAlias(alias string) error {
	if len(alias) < 3 || len(alias) > 50 {
		return fmt.Errorf("%w: must be 3-50 characters", ErrInvalidAlias)
	}
	if !aliasPattern.MatchString(alias) {
		return fmt.Errorf("%w: only letters, numbers, hyphens, and underscores", ErrInvalidAlias)
	}
	if reservedAliases[strings.ToLower(alias)] {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidAlias, alias)
	}
	return nil
}

// Create validates and normalizes the target, reserves a code or custom
// alias, and persists the record.
func (s *shortLinkService) Create(ctx context.Context, req *models.CreateLinkRequest, meta models.RequestMeta) (*models.LinkResponse, error) {
	target := s.validator.Normalize(req.TargetURL)
	if target == "" {
		return nil, ErrInvalidTarget
	}
	if len(target) > s.cfg.MaxURLLength {
		return nil, ErrTargetTooLong
	}
	if !s.validator.IsValid(target) {
		return nil, ErrInvalidTarget
	}

	if s.cfg.DedupByTarget {
		if existing, err := s.repo.GetActiveByTarget(ctx, target); err == nil {
			return s.buildResponse(existing), nil
		}
	}

	link := &entities.ShortLink{
		TargetURL:   target,
		ExpiresAt:   s.computeExpiry(req.ExpiresInDays),
		Description: req.Description,
	}
	if meta.IP != "" {
		link.CreatorIP = &meta.IP
	}
	if meta.UserAgent != "" {
		link.UserAgent = &meta.UserAgent
	}

	var created *entities.ShortLink
	var err error
	if req.CustomAlias != nil && strings.TrimSpace(*req.CustomAlias) != "" {
		created, err = s.createWithAlias(ctx, link, strings.TrimSpace(*req.CustomAlias))
	} else {
		created, err = s.allocate(ctx, link)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("short link created",
		"code", created.ShortCode, "target", created.TargetURL)
	return s.buildResponse(created), nil
}

// createWithAlias reserves a caller-chosen alias. Aliases are never retried:
// a conflict, whether seen on the availability check or on the insert
// itself, surfaces immediately.
func (s *shortLinkService) createWithAlias(ctx context.Context, link *entities.ShortLink, alias string) (*entities.ShortLink, error) {
	if err := validateAlias(alias); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByAlias(ctx, alias); err == nil {
		return nil, &store.ConflictError{Field: store.FieldCustomAlias, Value: alias}
	}

	link.ShortCode = alias
	link.CustomAlias = &alias
	return s.repo.Create(ctx, link)
}

// allocate runs the bounded generate-check-insert loop: MaxAttempts at the
// configured length, then one escalation to length+1 for another round.
// Losing an insert race on short_code counts as a collision and retries;
// exhausting both rounds is a loud, fatal failure.
func (s *shortLinkService) allocate(ctx context.Context, link *entities.ShortLink) (*entities.ShortLink, error) {
	for round, length := range []int{s.cfg.CodeLength, s.cfg.CodeLength + 1} {
		for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
			code, err := s.generator.GenerateWithLength(length)
			if err != nil {
				return nil, err
			}

			if _, err := s.repo.GetByCode(ctx, code); !errors.Is(err, store.ErrNotFound) {
				continue
			}

			link.ShortCode = code
			created, err := s.repo.Create(ctx, link)
			if err == nil {
				return created, nil
			}
			var conflict *store.ConflictError
			if errors.As(err, &conflict) && conflict.Field == store.FieldShortCode {
				// Lost a check-then-insert race; the constraint is the
				// arbiter, try a fresh candidate.
				continue
			}
			return nil, err
		}
		if round == 0 {
			s.logger.Warn("code space congested, escalating code length",
				"length", length, "attempts", s.cfg.MaxAttempts)
		}
	}

	s.logger.Error("short code generation exhausted",
		"length", s.cfg.CodeLength, "attempts_per_round", s.cfg.MaxAttempts)
	return nil, ErrGenerationExhausted
}

func (s *shortLinkService) computeExpiry(override *int) *time.Time {
	days := 0
	switch {
	case override != nil:
		days = *override
	case s.cfg.DefaultExpiryDays > 0:
		days = s.cfg.DefaultExpiryDays
	default:
		return nil
	}
	t := time.Now().UTC().AddDate(0, 0, days)
	return &t
}

// Resolve returns the target URL for a code or alias, applying the
// lifecycle checks: inactive is indistinguishable from absent, expiry is
// derived at read time and reported distinctly.
func (s *shortLinkService) Resolve(ctx context.Context, code string) (string, error) {
	link, err := s.lookup(ctx, code)
	if err != nil {
		return "", err
	}
	if !link.IsActive {
		return "", ErrNotFound
	}
	if link.IsExpired() {
		return "", ErrExpired
	}

	// Click accounting must never block or fail the redirect. Always keyed
	// by the record's own code, even when resolved via alias.
	go s.recordClick(link.ShortCode)

	return link.TargetURL, nil
}

func (s *shortLinkService) recordClick(code string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.repo.IncrementClicks(ctx, code); err != nil {
		s.logger.Warn("click increment failed", "code", code, "error", err)
	}
}

// lookup finds a record by code, falling back to custom alias.
func (s *shortLinkService) lookup(ctx context.Context, code string) (*entities.ShortLink, error) {
	link, err := s.repo.GetByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		link, err = s.repo.GetByAlias(ctx, code)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

// Info returns the full stats projection, including inactive and expired
// records.
func (s *shortLinkService) Info(ctx context.Context, code string) (*models.LinkStatsResponse, error) {
	link, err := s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	return &models.LinkStatsResponse{
		LinkResponse:   *s.buildResponse(link),
		UpdatedAt:      link.UpdatedAt,
		LastAccessedAt: link.LastAccessedAt,
		IsExpired:      link.IsExpired(),
	}, nil
}

// List returns a page of records, newest first.
func (s *shortLinkService) List(ctx context.Context, page, size int, isActive *bool) (*models.LinkListResponse, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	if size > 100 {
		size = 100
	}

	links, total, err := s.repo.List(ctx, store.ListFilter{Page: page, Size: size, IsActive: isActive})
	if err != nil {
		return nil, err
	}

	responses := make([]*models.LinkResponse, len(links))
	for i, link := range links {
		responses[i] = s.buildResponse(link)
	}
	return &models.LinkListResponse{
		Links: responses,
		Total: total,
		Page:  page,
		Size:  size,
		Pages: (total + int64(size) - 1) / int64(size),
	}, nil
}

// UpdateExpiry changes or clears a link's expiration.
func (s *shortLinkService) UpdateExpiry(ctx context.Context, code string, expiresAt *time.Time) (*models.LinkResponse, error) {
	// 2-second grace for clock skew between client and server.
	if expiresAt != nil && expiresAt.Before(time.Now().Add(-2*time.Second)) {
		return nil, fmt.Errorf("%w: expiration cannot be in the past", ErrInvalidTarget)
	}

	link, err := s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, link.ID, store.UpdateFields{
		ExpiresAt:    expiresAt,
		SetExpiresAt: true,
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.buildResponse(updated), nil
}

// Deactivate flips a link inactive. The transition is one-way; reactivation
// does not exist.
func (s *shortLinkService) Deactivate(ctx context.Context, code string) error {
	link, err := s.lookup(ctx, code)
	if err != nil {
		return err
	}

	ok, err := s.repo.Deactivate(ctx, link.ShortCode)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.logger.Info("short link deactivated", "code", link.ShortCode)
	return nil
}

// Delete hard-deletes a link and evicts its cache entry. Inactive records
// can still be deleted.
func (s *shortLinkService) Delete(ctx context.Context, code string) error {
	link, err := s.lookup(ctx, code)
	if err != nil {
		return err
	}

	ok, err := s.repo.Delete(ctx, link.ShortCode)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.logger.Info("short link deleted", "code", link.ShortCode)
	return nil
}

// CleanupExpired flips every active, past-expiry record inactive in one
// pass. Idempotent: a second run touches nothing.
func (s *shortLinkService) CleanupExpired(ctx context.Context) (int64, error) {
	count, err := s.repo.DeactivateExpired(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("expired short links deactivated", "count", count)
	}
	return count, nil
}

func (s *shortLinkService) buildResponse(link *entities.ShortLink) *models.LinkResponse {
	return &models.LinkResponse{
		ID:          link.ID,
		TargetURL:   link.TargetURL,
		ShortURL:    fmt.Sprintf("%s/%s", s.cfg.BaseURL, link.ShortCode),
		ShortCode:   link.ShortCode,
		CreatedAt:   link.CreatedAt,
		ExpiresAt:   link.ExpiresAt,
		IsActive:    link.IsActive,
		ClickCount:  link.ClickCount,
		Description: link.Description,
		CustomAlias: link.CustomAlias,
	}
}
