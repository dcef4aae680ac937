package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"linklet/internal/entities"
)

const linkColumns = `id, short_code, target_url, custom_alias, created_at, updated_at,
	expires_at, is_active, click_count, last_accessed_at, creator_ip, user_agent, description`

type postgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a RecordStore backed by the short_links table.
func NewPostgresStore(db *sql.DB) RecordStore {
	return &postgresStore{db: db}
}

func scanLink(row interface{ Scan(...interface{}) error }) (*entities.ShortLink, error) {
	var link entities.ShortLink
	err := row.Scan(
		&link.ID,
		&link.ShortCode,
		&link.TargetURL,
		&link.CustomAlias,
		&link.CreatedAt,
		&link.UpdatedAt,
		&link.ExpiresAt,
		&link.IsActive,
		&link.ClickCount,
		&link.LastAccessedAt,
		&link.CreatorIP,
		&link.UserAgent,
		&link.Description,
	)
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// translateConflict maps a unique-constraint violation to a ConflictError
// naming the conflicting field. Anything else is a store failure.
func translateConflict(err error, link *entities.ShortLink) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if strings.Contains(pqErr.Constraint, "alias") {
			value := ""
			if link.CustomAlias != nil {
				value = *link.CustomAlias
			}
			return &ConflictError{Field: FieldCustomAlias, Value: value}
		}
		return &ConflictError{Field: FieldShortCode, Value: link.ShortCode}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (s *postgresStore) Insert(ctx context.Context, link *entities.ShortLink) (*entities.ShortLink, error) {
	query := `
		INSERT INTO short_links (short_code, target_url, custom_alias, expires_at, creator_ip, user_agent, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + linkColumns

	created, err := scanLink(s.db.QueryRowContext(ctx, query,
		link.ShortCode,
		link.TargetURL,
		link.CustomAlias,
		nullableUTC(link.ExpiresAt),
		link.CreatorIP,
		link.UserAgent,
		link.Description,
	))
	if err != nil {
		return nil, translateConflict(err, link)
	}
	return created, nil
}

func (s *postgresStore) FindByCode(ctx context.Context, code string) (*entities.ShortLink, error) {
	return s.findBy(ctx, "short_code", code)
}

func (s *postgresStore) FindByAlias(ctx context.Context, alias string) (*entities.ShortLink, error) {
	return s.findBy(ctx, "custom_alias", alias)
}

func (s *postgresStore) findBy(ctx context.Context, column, value string) (*entities.ShortLink, error) {
	query := fmt.Sprintf(`SELECT %s FROM short_links WHERE %s = $1`, linkColumns, column)

	link, err := scanLink(s.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return link, nil
}

func (s *postgresStore) FindActiveByTarget(ctx context.Context, targetURL string) (*entities.ShortLink, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM short_links
		WHERE target_url = $1
		AND is_active = TRUE
		AND (expires_at IS NULL OR expires_at > (NOW() AT TIME ZONE 'UTC'))
		ORDER BY created_at DESC
		LIMIT 1`

	link, err := scanLink(s.db.QueryRowContext(ctx, query, targetURL))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return link, nil
}

func (s *postgresStore) Update(ctx context.Context, id int64, fields UpdateFields) (*entities.ShortLink, error) {
	sets := []string{"updated_at = (NOW() AT TIME ZONE 'UTC')"}
	args := []interface{}{}
	arg := 1

	if fields.SetExpiresAt {
		sets = append(sets, fmt.Sprintf("expires_at = $%d", arg))
		args = append(args, nullableUTC(fields.ExpiresAt))
		arg++
	}
	if fields.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", arg))
		args = append(args, *fields.Description)
		arg++
	}

	query := fmt.Sprintf(`UPDATE short_links SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), arg, linkColumns)
	args = append(args, id)

	link, err := scanLink(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return link, nil
}

func (s *postgresStore) IncrementClicks(ctx context.Context, code string) (bool, error) {
	query := `
		UPDATE short_links
		SET click_count = click_count + 1,
		    last_accessed_at = (NOW() AT TIME ZONE 'UTC'),
		    updated_at = (NOW() AT TIME ZONE 'UTC')
		WHERE short_code = $1`

	return s.execAffected(ctx, query, code)
}

func (s *postgresStore) Deactivate(ctx context.Context, code string) (bool, error) {
	query := `UPDATE short_links SET is_active = FALSE, updated_at = (NOW() AT TIME ZONE 'UTC') WHERE short_code = $1`
	return s.execAffected(ctx, query, code)
}

func (s *postgresStore) Delete(ctx context.Context, code string) (bool, error) {
	query := `DELETE FROM short_links WHERE short_code = $1`
	return s.execAffected(ctx, query, code)
}

func (s *postgresStore) execAffected(ctx context.Context, query string, args ...interface{}) (bool, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return affected > 0, nil
}

func (s *postgresStore) List(ctx context.Context, filter ListFilter) ([]*entities.ShortLink, int64, error) {
	where := ""
	args := []interface{}{}
	if filter.IsActive != nil {
		where = "WHERE is_active = $1"
		args = append(args, *filter.IsActive)
	}

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(id) FROM short_links %s`, where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	offset := (filter.Page - 1) * filter.Size
	query := fmt.Sprintf(`
		SELECT %s FROM short_links %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		linkColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.Size, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var links []*entities.ShortLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return links, total, nil
}

func (s *postgresStore) DeactivateExpired(ctx context.Context) (int64, error) {
	query := `
		UPDATE short_links
		SET is_active = FALSE, updated_at = (NOW() AT TIME ZONE 'UTC')
		WHERE expires_at IS NOT NULL
		AND expires_at < (NOW() AT TIME ZONE 'UTC')
		AND is_active = TRUE`

	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return affected, nil
}

// nullableUTC stores timestamps in UTC and nil as SQL NULL.
func nullableUTC(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
