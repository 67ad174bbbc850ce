package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/peakform/funnel/core/funnel"
)

type funnelRepository struct {
	db *DB
}

var _ funnel.Repository = (*funnelRepository)(nil) // interface compliance check

func NewFunnelRepository(db *DB) funnel.Repository {
	return &funnelRepository{db: db}
}

func (repo *funnelRepository) CreateFunnel(ctx context.Context, f funnel.Funnel) (funnel.Funnel, error) {
	ctx, cancel := repo.db.ctx(ctx)
	defer cancel()

	if _, err := repo.db.collection(CollectionFunnels).InsertOne(ctx, f); err != nil {
		return funnel.Funnel{}, errors.Wrap(err, "inserting funnel")
	}
	return f, nil
}

func (repo *funnelRepository) GetFunnelByID(ctx context.Context, id string) (funnel.Funnel, error) {
	ctx, cancel := repo.db.ctx(ctx)
	defer cancel()

	var f funnel.Funnel
	err := repo.db.collection(CollectionFunnels).FindOne(ctx, bson.M{"_id": id}).Decode(&f)
	if err != nil {
		if errors.Cause(err) == mongo.ErrNoDocuments {
			return funnel.Funnel{}, funnel.ErrNotFound
		}
		return funnel.Funnel{}, errors.Wrap(err, "getting funnel")
	}
	return f, nil
}

func (repo *funnelRepository) QueryAllFunnels(ctx context.Context) ([]funnel.Funnel, error) {
	ctx, cancel := repo.db.ctx(ctx)
	defer cancel()

	cur, err := repo.db.collection(CollectionFunnels).Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "querying funnels")
	}
	defer func() { _ = cur.Close(ctx) }()

	funnels := make([]funnel.Funnel, 0)
	if err := cur.All(ctx, &funnels); err != nil {
		return nil, errors.Wrap(err, "decoding funnels")
	}
	return funnels, nil
}
