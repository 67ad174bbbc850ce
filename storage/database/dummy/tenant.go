package dummydb

import (
	"context"

	"github.com/peakform/funnel/core/tenant"
)

type tenantRepository struct {
	db *tenantTable
}

var _ tenant.Repository = (*tenantRepository)(nil) // interface compliance check

func NewTenantRepository(db *DB) tenant.Repository {
	return &tenantRepository{db: db.tenant}
}

func (repo *tenantRepository) UpsertAPIKey(_ context.Context, key tenant.APIKey) (tenant.APIKey, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[key.OrgID] = &key
	return key, nil
}

func (repo *tenantRepository) GetAPIKeyByOrg(_ context.Context, orgID string) (tenant.APIKey, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if key, ok := repo.db.table[orgID]; ok {
		return *key, nil
	}
	return tenant.APIKey{}, tenant.ErrNotFound
}
