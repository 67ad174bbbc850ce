package funnel

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// errors
	ErrNotFound = errors.New("funnel not found")
)

type (
	Repository interface {
		CreateFunnel(ctx context.Context, f Funnel) (Funnel, error)
		GetFunnelByID(ctx context.Context, id string) (Funnel, error)
		QueryAllFunnels(ctx context.Context) ([]Funnel, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create seeds a new funnel definition. The step graph must already have passed
// NewFunnel.Validate.
func (svc *Service) Create(ctx context.Context, nf NewFunnel) (Funnel, error) {
	now := time.Now().UTC()
	f := Funnel{
		ID:          uuid.New().String(),
		OrgID:       nf.OrgID,
		Name:        nf.Name,
		Steps:       nf.Steps,
		Access:      nf.Access,
		InviteCodes: nf.InviteCodes,
		Tracking:    nf.Tracking,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateFunnel(ctx, f)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Funnel, error) {
	return svc.repo.GetFunnelByID(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Funnel, error) {
	return svc.repo.QueryAllFunnels(ctx)
}
