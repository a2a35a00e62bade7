package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"publink/internal/privacy"
	"publink/internal/tenant/models"
	"publink/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresTenantStore persists tenants in the tenants table. Whitelist and
// privacy settings are stored as JSONB blobs; they are validated by the
// service layer, the database treats them as opaque.
type PostgresTenantStore struct {
	pool *pgxpool.Pool
}

func NewPostgresTenantStore(pool *pgxpool.Pool) *PostgresTenantStore {
	return &PostgresTenantStore{pool: pool}
}

const tenantColumns = `id, slug, name, domain_whitelist, whitelist_mode, privacy_settings, api_key_hash, status, created_at, updated_at`

func (s *PostgresTenantStore) CreateIfSlugAvailable(ctx context.Context, t *models.Tenant) error {
	whitelist, settings, err := marshalTenantBlobs(t)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO tenants (`+tenantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t.ID, t.Slug, t.Name, whitelist, string(t.WhitelistMode), settings, t.APIKeyHash, string(t.Status), t.CreatedAt, t.UpdatedAt)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

func (s *PostgresTenantStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

func (s *PostgresTenantStore) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = lower($1)`, slug)
	return scanTenant(row)
}

func (s *PostgresTenantStore) Update(ctx context.Context, t *models.Tenant) error {
	whitelist, settings, err := marshalTenantBlobs(t)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE tenants
		SET name = $2, domain_whitelist = $3, whitelist_mode = $4,
		    privacy_settings = $5, api_key_hash = $6, status = $7, updated_at = $8
		WHERE id = $1
	`, t.ID, t.Name, whitelist, string(t.WhitelistMode), settings, t.APIKeyHash, string(t.Status), t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresTenantStore) Execute(ctx context.Context, id uuid.UUID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1 FOR UPDATE`, id)
	t, err := scanTenant(row)
	if err != nil {
		return nil, err
	}
	if err := validate(t); err != nil {
		return nil, err
	}
	mutate(t)

	whitelist, settings, err := marshalTenantBlobs(t)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE tenants
		SET name = $2, domain_whitelist = $3, whitelist_mode = $4,
		    privacy_settings = $5, api_key_hash = $6, status = $7, updated_at = $8
		WHERE id = $1
	`, t.ID, t.Name, whitelist, string(t.WhitelistMode), settings, t.APIKeyHash, string(t.Status), t.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update tenant: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return t, nil
}

func (s *PostgresTenantStore) ListActive(ctx context.Context) ([]*models.Tenant, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE status = 'active' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list active tenants: %w", err)
	}
	defer rows.Close()

	var out []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// PostgresCustomDomainStore persists custom domains.
type PostgresCustomDomainStore struct {
	pool *pgxpool.Pool
}

func NewPostgresCustomDomainStore(pool *pgxpool.Pool) *PostgresCustomDomainStore {
	return &PostgresCustomDomainStore{pool: pool}
}

func (s *PostgresCustomDomainStore) Create(ctx context.Context, d *models.CustomDomain) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO custom_domains (id, tenant_id, domain, verified, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, d.ID, d.TenantID, d.Domain, d.Verified, d.CreatedAt)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert custom domain: %w", err)
	}
	return nil
}

func (s *PostgresCustomDomainStore) MarkVerified(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `UPDATE custom_domains SET verified = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark domain verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresCustomDomainStore) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM custom_domains WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return fmt.Errorf("delete tenant domains: %w", err)
	}
	return nil
}

func (s *PostgresCustomDomainStore) ListActiveWithTenant(ctx context.Context) ([]DomainTenant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT d.domain, t.id, t.slug, t.name, t.domain_whitelist, t.whitelist_mode,
		       t.privacy_settings, t.api_key_hash, t.status, t.created_at, t.updated_at
		FROM custom_domains d
		JOIN tenants t ON t.id = d.tenant_id
		WHERE d.verified AND t.status = 'active'
	`)
	if err != nil {
		return nil, fmt.Errorf("list domains with tenant: %w", err)
	}
	defer rows.Close()

	var out []DomainTenant
	for rows.Next() {
		var (
			domain    string
			t         models.Tenant
			whitelist []byte
			settings  []byte
			mode      string
			status    string
		)
		if err := rows.Scan(&domain, &t.ID, &t.Slug, &t.Name, &whitelist, &mode,
			&settings, &t.APIKeyHash, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan domain row: %w", err)
		}
		if err := unmarshalTenantBlobs(&t, whitelist, settings, mode, status); err != nil {
			return nil, err
		}
		out = append(out, DomainTenant{Domain: domain, Tenant: &t})
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*models.Tenant, error) {
	var (
		t         models.Tenant
		whitelist []byte
		settings  []byte
		mode      string
		status    string
	)
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &whitelist, &mode, &settings,
		&t.APIKeyHash, &status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	if err := unmarshalTenantBlobs(&t, whitelist, settings, mode, status); err != nil {
		return nil, err
	}
	return &t, nil
}

func marshalTenantBlobs(t *models.Tenant) (whitelist, settings []byte, err error) {
	whitelist, err = json.Marshal(t.DomainWhitelist)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal whitelist: %w", err)
	}
	settings, err = json.Marshal(t.PrivacySettings)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal privacy settings: %w", err)
	}
	return whitelist, settings, nil
}

func unmarshalTenantBlobs(t *models.Tenant, whitelist, settings []byte, mode, status string) error {
	t.WhitelistMode = models.WhitelistMode(mode)
	t.Status = models.TenantStatus(status)
	if len(whitelist) > 0 {
		if err := json.Unmarshal(whitelist, &t.DomainWhitelist); err != nil {
			return fmt.Errorf("unmarshal whitelist: %w", err)
		}
	}
	// A tenant row predating privacy settings falls back to the defaults;
	// missing fields on a present entity get defaults, missing entities do not.
	t.PrivacySettings = privacy.DefaultSettings()
	if len(settings) > 0 && string(settings) != "null" {
		if err := json.Unmarshal(settings, &t.PrivacySettings); err != nil {
			return fmt.Errorf("unmarshal privacy settings: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
