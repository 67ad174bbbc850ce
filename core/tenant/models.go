package tenant

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

var (
	// errors
	ErrNotFound   = errors.New("api key not found")
	ErrInvalidKey = errors.New("invalid api key")
)

type (
	// APIKey authenticates one tenant organization for provisioning calls
	// (funnel seeding). Only the bcrypt hash of the secret is stored.
	APIKey struct {
		OrgID     string    `json:"org_id" bson:"_id"`
		KeyHash   []byte    `json:"-" bson:"key_hash"`
		CreatedAt time.Time `json:"created_at" bson:"created_at"` // UTC
	}

	Repository interface {
		UpsertAPIKey(ctx context.Context, key APIKey) (APIKey, error)
		GetAPIKeyByOrg(ctx context.Context, orgID string) (APIKey, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// IssueKey stores (or rotates) the org's provisioning key.
func (svc *Service) IssueKey(ctx context.Context, orgID, secret string) (APIKey, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return APIKey{}, errors.Wrap(err, "hashing api key")
	}
	key := APIKey{
		OrgID:     orgID,
		KeyHash:   hash,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.UpsertAPIKey(ctx, key)
}

// Verify checks an org's provisioning secret.
func (svc *Service) Verify(ctx context.Context, orgID, secret string) error {
	key, err := svc.repo.GetAPIKeyByOrg(ctx, orgID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return ErrInvalidKey
		}
		return err
	}
	if bcrypt.CompareHashAndPassword(key.KeyHash, []byte(secret)) != nil {
		return ErrInvalidKey
	}
	return nil
}
