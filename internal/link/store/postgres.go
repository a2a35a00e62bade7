package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"publink/internal/link/models"
	"publink/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresLinkStore persists links in the links table.
type PostgresLinkStore struct {
	pool *pgxpool.Pool
}

func NewPostgresLinkStore(pool *pgxpool.Pool) *PostgresLinkStore {
	return &PostgresLinkStore{pool: pool}
}

const linkColumns = `id, short_code, destination_url, tenant_id, external, status, expires_at, click_count, created_at, updated_at`

func (s *PostgresLinkStore) Create(ctx context.Context, l *models.Link) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO links (`+linkColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, l.ID, l.ShortCode, l.DestinationURL, l.TenantID, l.External, string(l.Status),
		l.ExpiresAt, l.ClickCount, l.CreatedAt, l.UpdatedAt)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

func (s *PostgresLinkStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Link, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+linkColumns+` FROM links WHERE id = $1`, id)
	return scanLink(row)
}

func (s *PostgresLinkStore) FindByShortCode(ctx context.Context, shortCode string) (*models.Link, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+linkColumns+` FROM links WHERE short_code = $1`, shortCode)
	return scanLink(row)
}

func (s *PostgresLinkStore) Update(ctx context.Context, l *models.Link) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE links
		SET short_code = $2, destination_url = $3, external = $4, status = $5,
		    expires_at = $6, updated_at = $7
		WHERE id = $1
	`, l.ID, l.ShortCode, l.DestinationURL, l.External, string(l.Status), l.ExpiresAt, l.UpdatedAt)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresLinkStore) IncrementClickCount(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `UPDATE links SET click_count = click_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment click count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// PostgresRuleStore persists routing rules. Conditions are stored as a type
// tag plus a JSONB body so unknown types survive round-trips.
type PostgresRuleStore struct {
	pool *pgxpool.Pool
}

func NewPostgresRuleStore(pool *pgxpool.Pool) *PostgresRuleStore {
	return &PostgresRuleStore{pool: pool}
}

func (s *PostgresRuleStore) ListByLink(ctx context.Context, linkID uuid.UUID) ([]models.RoutingRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, link_id, rule_type, condition, target_url, priority, position, created_at
		FROM routing_rules
		WHERE link_id = $1
		ORDER BY priority DESC, position ASC
	`, linkID)
	if err != nil {
		return nil, fmt.Errorf("list routing rules: %w", err)
	}
	defer rows.Close()

	var out []models.RoutingRule
	for rows.Next() {
		var (
			r        models.RoutingRule
			ruleType string
			raw      []byte
		)
		if err := rows.Scan(&r.ID, &r.LinkID, &ruleType, &raw, &r.TargetURL,
			&r.Priority, &r.Position, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan routing rule: %w", err)
		}
		cond, err := models.DecodeCondition(ruleType, raw)
		if err != nil {
			return nil, err
		}
		r.Condition = cond
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresRuleStore) ReplaceForLink(ctx context.Context, linkID uuid.UUID, rules []models.RoutingRule) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM routing_rules WHERE link_id = $1`, linkID); err != nil {
		return fmt.Errorf("clear routing rules: %w", err)
	}
	for i, r := range rules {
		ruleType, raw, err := models.EncodeCondition(r.Condition)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO routing_rules (id, link_id, rule_type, condition, target_url, priority, position, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, r.ID, linkID, ruleType, raw, r.TargetURL, r.Priority, i, r.CreatedAt); err != nil {
			return fmt.Errorf("insert routing rule: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func scanLink(row pgx.Row) (*models.Link, error) {
	var (
		l      models.Link
		status string
	)
	err := row.Scan(&l.ID, &l.ShortCode, &l.DestinationURL, &l.TenantID, &l.External,
		&status, &l.ExpiresAt, &l.ClickCount, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan link: %w", err)
	}
	l.Status = models.LinkStatus(status)
	return &l, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
