package dummydb

import (
	"context"

	"github.com/peakform/funnel/core/funnel"
)

type funnelRepository struct {
	db *funnelTable
}

var _ funnel.Repository = (*funnelRepository)(nil) // interface compliance check

func NewFunnelRepository(db *DB) funnel.Repository {
	return &funnelRepository{db: db.funnel}
}

func (repo *funnelRepository) CreateFunnel(_ context.Context, f funnel.Funnel) (funnel.Funnel, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[f.ID] = &f
	return f, nil
}

func (repo *funnelRepository) GetFunnelByID(_ context.Context, id string) (funnel.Funnel, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if f, ok := repo.db.table[id]; ok {
		return *f, nil
	}
	return funnel.Funnel{}, funnel.ErrNotFound
}

func (repo *funnelRepository) QueryAllFunnels(_ context.Context) ([]funnel.Funnel, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	funnels := make([]funnel.Funnel, 0, len(repo.db.table))
	for _, f := range repo.db.table {
		funnels = append(funnels, *f)
	}
	return funnels, nil
}
