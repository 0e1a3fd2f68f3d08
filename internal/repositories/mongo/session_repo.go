package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/repositories"
	"github.com/yoockh/yoointerview/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const SessionsCollection = "interview_sessions"

type sessionRepo struct {
	col *mongo.Collection
	now func() time.Time
}

func NewSessionRepo(db *mongo.Database) repositories.SessionRepository {
	return &sessionRepo{col: db.Collection(SessionsCollection), now: time.Now}
}

func (r *sessionRepo) Create(ctx context.Context, s *models.Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now().UTC()
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	_, err := r.col.InsertOne(ctx, s)
	return insertErr(err)
}

func insertErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return utils.ErrConflict
	}
	return err
}

// liveFilter matches the token only while the session has not expired. The
// TTL monitor runs about once a minute, so expiry is also checked here.
func liveFilter(token string, now time.Time) bson.M {
	return bson.M{
		"token":      token,
		"expires_at": bson.M{"$gt": now.UTC()},
	}
}

func (r *sessionRepo) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	var s models.Session
	err := r.col.FindOne(ctx, liveFilter(token, r.now())).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) Touch(ctx context.Context, token string, at time.Time) error {
	return r.update(ctx, token, bson.M{"updated_at": at.UTC()})
}

func (r *sessionRepo) SetStatus(ctx context.Context, token string, status models.SessionStatus) error {
	return r.update(ctx, token, bson.M{"status": status, "updated_at": r.now().UTC()})
}

func (r *sessionRepo) update(ctx context.Context, token string, set bson.M) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"token": token}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) Delete(ctx context.Context, token string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"token": token})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}
