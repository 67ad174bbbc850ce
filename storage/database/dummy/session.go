package dummydb

import (
	"context"
	"time"

	"github.com/peakform/funnel/core/session"
)

type sessionRepository struct {
	db *sessionTable
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *DB) session.Repository {
	return &sessionRepository{db: db.session}
}

// copySession detaches the stored record so callers cannot alias the shared Data map.
func copySession(sess session.Session) session.Session {
	data := make(map[string]interface{}, len(sess.Data))
	for k, v := range sess.Data {
		data[k] = v
	}
	sess.Data = data
	return sess
}

func (repo *sessionRepository) CreateSession(_ context.Context, sess session.Session) (session.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored := copySession(sess)
	repo.db.table[sess.ID] = &stored
	return sess, nil
}

func (repo *sessionRepository) GetSessionByID(_ context.Context, id string) (session.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sess, ok := repo.db.table[id]; ok {
		return copySession(*sess), nil
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) PatchSession(_ context.Context, id string, patch session.SessionPatch) (session.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sess, ok := repo.db.table[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	if patch.CurrentStepIndex != nil {
		sess.CurrentStepIndex = *patch.CurrentStepIndex
	}
	if patch.CompletedStepIndex != nil {
		sess.CompletedStepIndex = *patch.CompletedStepIndex
	}
	if sess.Data == nil {
		sess.Data = make(map[string]interface{}, len(patch.Data))
	}
	for k, v := range patch.Data { // overlay, never delete
		sess.Data[k] = v
	}
	sess.UpdatedAt = time.Now().UTC()
	return copySession(*sess), nil
}

func (repo *sessionRepository) LinkSessionUser(_ context.Context, id, userID string) (session.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sess, ok := repo.db.table[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	sess.UserID = userID
	sess.UpdatedAt = time.Now().UTC()
	return copySession(*sess), nil
}

func (repo *sessionRepository) MarkSessionCompleted(_ context.Context, id, redirectURL string) (session.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sess, ok := repo.db.table[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	if sess.CompletedAt.IsZero() {
		sess.CompletedAt = time.Now().UTC()
		sess.RedirectURL = redirectURL
		sess.UpdatedAt = sess.CompletedAt
	}
	return copySession(*sess), nil
}

func (repo *sessionRepository) DeleteSession(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return session.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
