package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/peakform/funnel/core/tenant"
)

type tenantRepository struct {
	db *sqlx.DB
}

var _ tenant.Repository = (*tenantRepository)(nil) // interface compliance check

func NewTenantRepository(db *sqlx.DB) tenant.Repository {
	return &tenantRepository{db: db}
}

func (repo *tenantRepository) UpsertAPIKey(ctx context.Context, key tenant.APIKey) (tenant.APIKey, error) {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO api_key (org_id, key_hash, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (org_id) DO UPDATE SET key_hash = $2, created_at = $3`,
		key.OrgID, key.KeyHash, key.CreatedAt.UTC())
	if err != nil {
		return tenant.APIKey{}, errors.Wrap(err, "upserting api key")
	}
	return key, nil
}

func (repo *tenantRepository) GetAPIKeyByOrg(ctx context.Context, orgID string) (tenant.APIKey, error) {
	var key tenant.APIKey
	err := repo.db.QueryRowContext(ctx, `SELECT org_id, key_hash, created_at FROM api_key WHERE org_id = $1`, orgID).
		Scan(&key.OrgID, &key.KeyHash, &key.CreatedAt)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return tenant.APIKey{}, tenant.ErrNotFound
		}
		return tenant.APIKey{}, errors.Wrap(err, "getting api key")
	}
	return key, nil
}
