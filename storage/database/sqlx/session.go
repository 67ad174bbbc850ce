package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/peakform/funnel/core/session"
)

type sessionRepository struct {
	db *sqlx.DB
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sqlx.DB) session.Repository {
	return &sessionRepository{db: db}
}

type sessionRow struct {
	ID                 string      `db:"id"`
	FunnelID           string      `db:"funnel_id"`
	OrgID              string      `db:"org_id"`
	CurrentStepIndex   int         `db:"current_step_index"`
	CompletedStepIndex int         `db:"completed_step_index"`
	Data               []byte      `db:"data"`
	UserID             null.String `db:"user_id"`
	SkipPayment        bool        `db:"skip_payment"`
	InviteCode         null.String `db:"invite_code"`
	ReferrerID         null.String `db:"referrer_id"`
	RedirectURL        null.String `db:"redirect_url"`
	CompletedAt        null.Time   `db:"completed_at"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`
	ExpiresAt          time.Time   `db:"expires_at"`
}

func (repo *sessionRepository) row(sess session.Session) (sessionRow, error) {
	data, err := json.Marshal(sess.Data)
	if err != nil {
		return sessionRow{}, errors.Wrap(err, "encoding session data")
	}
	return sessionRow{
		ID:                 sess.ID,
		FunnelID:           sess.FunnelID,
		OrgID:              sess.OrgID,
		CurrentStepIndex:   sess.CurrentStepIndex,
		CompletedStepIndex: sess.CompletedStepIndex,
		Data:               data,
		UserID:             null.NewString(sess.UserID, sess.UserID != ""),
		SkipPayment:        sess.SkipPayment,
		InviteCode:         null.NewString(sess.InviteCode, sess.InviteCode != ""),
		ReferrerID:         null.NewString(sess.ReferrerID, sess.ReferrerID != ""),
		RedirectURL:        null.NewString(sess.RedirectURL, sess.RedirectURL != ""),
		CompletedAt:        null.NewTime(sess.CompletedAt.UTC(), !sess.CompletedAt.IsZero()),
		CreatedAt:          sess.CreatedAt.UTC(),
		UpdatedAt:          sess.UpdatedAt.UTC(),
		ExpiresAt:          sess.ExpiresAt.UTC(),
	}, nil
}

func (repo *sessionRepository) unrow(row sessionRow) (session.Session, error) {
	var data map[string]interface{}
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &data); err != nil {
			return session.Session{}, errors.Wrap(err, "decoding session data")
		}
	}
	return session.Session{
		ID:                 row.ID,
		FunnelID:           row.FunnelID,
		OrgID:              row.OrgID,
		CurrentStepIndex:   row.CurrentStepIndex,
		CompletedStepIndex: row.CompletedStepIndex,
		Data:               data,
		UserID:             row.UserID.String,
		SkipPayment:        row.SkipPayment,
		InviteCode:         row.InviteCode.String,
		ReferrerID:         row.ReferrerID.String,
		RedirectURL:        row.RedirectURL.String,
		CompletedAt:        row.CompletedAt.Time,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
		ExpiresAt:          row.ExpiresAt,
	}, nil
}

// trapNoRowsErr maps psql "no rows" err to session.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return session.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess session.Session) (session.Session, error) {
	row, err := repo.row(sess)
	if err != nil {
		return session.Session{}, err
	}

	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO session (id, funnel_id, org_id, current_step_index, completed_step_index, data,
		                     user_id, skip_payment, invite_code, referrer_id, redirect_url,
		                     completed_at, created_at, updated_at, expires_at)
		VALUES (:id, :funnel_id, :org_id, :current_step_index, :completed_step_index, :data,
		        :user_id, :skip_payment, :invite_code, :referrer_id, :redirect_url,
		        :completed_at, :created_at, :updated_at, :expires_at)`, row)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "inserting session")
	}
	return sess, nil
}

func (repo *sessionRepository) GetSessionByID(ctx context.Context, id string) (session.Session, error) {
	var row sessionRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM session WHERE id = $1`, id)
	if err != nil {
		return session.Session{}, trapNoRowsErr(err, "getting session")
	}
	return repo.unrow(row)
}

func (repo *sessionRepository) PatchSession(ctx context.Context, id string, patch session.SessionPatch) (session.Session, error) {
	data, err := json.Marshal(patch.Data)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "encoding patch data")
	}
	if patch.Data == nil {
		data = []byte("{}")
	}

	// jsonb || overlays new keys without deleting old ones; NULL indexes keep their value
	var row sessionRow
	err = repo.db.GetContext(ctx, &row, `
		UPDATE session
		SET current_step_index   = COALESCE($2, current_step_index),
		    completed_step_index = COALESCE($3, completed_step_index),
		    data                 = data || $4::jsonb,
		    updated_at           = now()
		WHERE id = $1
		RETURNING *`,
		id, patch.CurrentStepIndex, patch.CompletedStepIndex, data)
	if err != nil {
		return session.Session{}, trapNoRowsErr(err, "patching session")
	}
	return repo.unrow(row)
}

func (repo *sessionRepository) LinkSessionUser(ctx context.Context, id, userID string) (session.Session, error) {
	var row sessionRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE session SET user_id = $2, updated_at = now()
		WHERE id = $1
		RETURNING *`, id, userID)
	if err != nil {
		return session.Session{}, trapNoRowsErr(err, "linking session user")
	}
	return repo.unrow(row)
}

func (repo *sessionRepository) MarkSessionCompleted(ctx context.Context, id, redirectURL string) (session.Session, error) {
	// only stamp once
	_, err := repo.db.ExecContext(ctx, `
		UPDATE session SET completed_at = now(), redirect_url = $2, updated_at = now()
		WHERE id = $1 AND completed_at IS NULL`, id, redirectURL)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "marking session completed")
	}
	return repo.GetSessionByID(ctx, id)
}

func (repo *sessionRepository) DeleteSession(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM session WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting session")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return session.ErrNotFound
	}
	return nil
}
