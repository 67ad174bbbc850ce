package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/peakform/funnel/core/tenant"
)

type tenantRepository struct {
	db *DB
}

var _ tenant.Repository = (*tenantRepository)(nil) // interface compliance check

func NewTenantRepository(db *DB) tenant.Repository {
	return &tenantRepository{db: db}
}

func (repo *tenantRepository) UpsertAPIKey(ctx context.Context, key tenant.APIKey) (tenant.APIKey, error) {
	ctx, cancel := repo.db.ctx(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{"key_hash": key.KeyHash, "created_at": key.CreatedAt}}
	opts := options.UpdateOne().SetUpsert(true)
	if _, err := repo.db.collection(CollectionAPIKeys).UpdateOne(ctx, bson.M{"_id": key.OrgID}, update, opts); err != nil {
		return tenant.APIKey{}, errors.Wrap(err, "upserting api key")
	}
	return key, nil
}

func (repo *tenantRepository) GetAPIKeyByOrg(ctx context.Context, orgID string) (tenant.APIKey, error) {
	ctx, cancel := repo.db.ctx(ctx)
	defer cancel()

	var key tenant.APIKey
	err := repo.db.collection(CollectionAPIKeys).FindOne(ctx, bson.M{"_id": orgID}).Decode(&key)
	if err != nil {
		if errors.Cause(err) == mongo.ErrNoDocuments {
			return tenant.APIKey{}, tenant.ErrNotFound
		}
		return tenant.APIKey{}, errors.Wrap(err, "getting api key")
	}
	return key, nil
}
