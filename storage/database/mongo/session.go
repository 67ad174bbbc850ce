package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/peakform/funnel/core/session"
)

type sessionRepository struct {
	db *DB
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *DB) session.Repository {
	return &sessionRepository{db: db}
}

// trapNoDocsErr maps mongo's "no documents" err to session.ErrNotFound
func trapNoDocsErr(err error, msg string) error {
	if errors.Cause(err) == mongo.ErrNoDocuments {
		return session.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess session.Session) (session.Session, error) {
	ctx, cancel := repo.db.ctx(ctx)
	defer cancel()

	if _, err := repo.db.collection(CollectionSessions).InsertOne(ctx, sess); err != nil {
		return session.Session{}, errors.Wrap(err, "inserting session")
	}
	return sess, nil
}

func (repo *sessionRepository) GetSessionByID(ctx context.Context, id string) (session.Session, error) {
	ctx, cancel := repo.db.ctx(ctx)
	defer cancel()

	var sess session.Session
	err := repo.db.collection(CollectionSessions).FindOne(ctx, bson.M{"_id": id}).Decode(&sess)
	if err != nil {
		return session.Session{}, trapNoDocsErr(err, "getting session")
	}
	return sess, nil
}

func (repo *sessionRepository) PatchSession(ctx context.Context, id string, patch session.SessionPatch) (session.Session, error) {
	ctx, cancel := repo.db.ctx(ctx)
	defer cancel()

	// dotted $set keys give native merge semantics on data: overlay, never delete
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.CurrentStepIndex != nil {
		set["current_step_index"] = *patch.CurrentStepIndex
	}
	if patch.CompletedStepIndex != nil {
		set["completed_step_index"] = *patch.CompletedStepIndex
	}
	for k, v := range patch.Data {
		set["data."+k] = v
	}

	return repo.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, "patching session")
}

func (repo *sessionRepository) LinkSessionUser(ctx context.Context, id, userID string) (session.Session, error) {
	ctx, cancel := repo.db.ctx(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{"user_id": userID, "updated_at": time.Now().UTC()}}
	return repo.findOneAndUpdate(ctx, bson.M{"_id": id}, update, "linking session user")
}

func (repo *sessionRepository) MarkSessionCompleted(ctx context.Context, id, redirectURL string) (session.Session, error) {
	ctx, cancel := repo.db.ctx(ctx)
	defer cancel()

	// only stamp once; a concurrent or repeated call leaves the first stamp intact
	now := time.Now().UTC()
	filter := bson.M{"_id": id, "completed_at": bson.M{"$exists": false}}
	update := bson.M{"$set": bson.M{"completed_at": now, "redirect_url": redirectURL, "updated_at": now}}
	if _, err := repo.db.collection(CollectionSessions).UpdateOne(ctx, filter, update); err != nil {
		return session.Session{}, errors.Wrap(err, "marking session completed")
	}

	return repo.GetSessionByID(ctx, id)
}

func (repo *sessionRepository) DeleteSession(ctx context.Context, id string) error {
	ctx, cancel := repo.db.ctx(ctx)
	defer cancel()

	res, err := repo.db.collection(CollectionSessions).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "deleting session")
	}
	if res.DeletedCount == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (repo *sessionRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M, msg string) (session.Session, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var sess session.Session
	err := repo.db.collection(CollectionSessions).FindOneAndUpdate(ctx, filter, update, opts).Decode(&sess)
	if err != nil {
		return session.Session{}, trapNoDocsErr(err, msg)
	}
	return sess, nil
}
