package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/peakform/funnel/core/funnel"
)

type funnelRepository struct {
	db *sqlx.DB
}

var _ funnel.Repository = (*funnelRepository)(nil) // interface compliance check

func NewFunnelRepository(db *sqlx.DB) funnel.Repository {
	return &funnelRepository{db: db}
}

type funnelRow struct {
	ID          string    `db:"id"`
	OrgID       string    `db:"org_id"`
	Name        string    `db:"name"`
	Access      string    `db:"access"`
	Steps       []byte    `db:"steps"`
	InviteCodes []byte    `db:"invite_codes"`
	Tracking    []byte    `db:"tracking"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (repo *funnelRepository) row(f funnel.Funnel) (funnelRow, error) {
	steps, err := json.Marshal(f.Steps)
	if err != nil {
		return funnelRow{}, errors.Wrap(err, "encoding steps")
	}
	invites, err := json.Marshal(f.InviteCodes)
	if err != nil {
		return funnelRow{}, errors.Wrap(err, "encoding invite codes")
	}
	tracking, err := json.Marshal(f.Tracking)
	if err != nil {
		return funnelRow{}, errors.Wrap(err, "encoding tracking")
	}
	return funnelRow{
		ID:          f.ID,
		OrgID:       f.OrgID,
		Name:        f.Name,
		Access:      string(f.Access),
		Steps:       steps,
		InviteCodes: invites,
		Tracking:    tracking,
		CreatedAt:   f.CreatedAt.UTC(),
		UpdatedAt:   f.UpdatedAt.UTC(),
	}, nil
}

func (repo *funnelRepository) unrow(row funnelRow) (funnel.Funnel, error) {
	f := funnel.Funnel{
		ID:        row.ID,
		OrgID:     row.OrgID,
		Name:      row.Name,
		Access:    funnel.AccessPolicy(row.Access),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if err := json.Unmarshal(row.Steps, &f.Steps); err != nil {
		return funnel.Funnel{}, errors.Wrap(err, "decoding steps")
	}
	if len(row.InviteCodes) > 0 {
		if err := json.Unmarshal(row.InviteCodes, &f.InviteCodes); err != nil {
			return funnel.Funnel{}, errors.Wrap(err, "decoding invite codes")
		}
	}
	if len(row.Tracking) > 0 {
		if err := json.Unmarshal(row.Tracking, &f.Tracking); err != nil {
			return funnel.Funnel{}, errors.Wrap(err, "decoding tracking")
		}
	}
	return f, nil
}

func (repo *funnelRepository) CreateFunnel(ctx context.Context, f funnel.Funnel) (funnel.Funnel, error) {
	row, err := repo.row(f)
	if err != nil {
		return funnel.Funnel{}, err
	}

	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO funnel (id, org_id, name, access, steps, invite_codes, tracking, created_at, updated_at)
		VALUES (:id, :org_id, :name, :access, :steps, :invite_codes, :tracking, :created_at, :updated_at)`, row)
	if err != nil {
		return funnel.Funnel{}, errors.Wrap(err, "inserting funnel")
	}
	return f, nil
}

func (repo *funnelRepository) GetFunnelByID(ctx context.Context, id string) (funnel.Funnel, error) {
	var row funnelRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM funnel WHERE id = $1`, id)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return funnel.Funnel{}, funnel.ErrNotFound
		}
		return funnel.Funnel{}, errors.Wrap(err, "getting funnel")
	}
	return repo.unrow(row)
}

func (repo *funnelRepository) QueryAllFunnels(ctx context.Context) ([]funnel.Funnel, error) {
	var rows []funnelRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM funnel ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying funnels")
	}

	funnels := make([]funnel.Funnel, 0, len(rows))
	for _, row := range rows {
		f, err := repo.unrow(row)
		if err != nil {
			return nil, err
		}
		funnels = append(funnels, f)
	}
	return funnels, nil
}
