package refreshtokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/common"
	"github.com/dmitrijs2005/blogauth/internal/server/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection holding refresh token documents.
const CollectionName = "refresh_tokens"

type tokenDocument struct {
	ID        string     `bson:"_id"`
	Token     string     `bson:"token"`
	UserID    string     `bson:"user_id"`
	Family    string     `bson:"family"`
	Used      bool       `bson:"used"`
	UsedAt    *time.Time `bson:"used_at,omitempty"`
	ExpiresAt time.Time  `bson:"expires_at"`
	CreatedAt time.Time  `bson:"created_at"`
	IPAddress string     `bson:"ip_address,omitempty"`
	UserAgent string     `bson:"user_agent,omitempty"`
}

func (d *tokenDocument) toModel() *models.RefreshToken {
	return &models.RefreshToken{
		ID:        d.ID,
		Token:     d.Token,
		UserID:    d.UserID,
		Family:    d.Family,
		Used:      d.Used,
		UsedAt:    d.UsedAt,
		ExpiresAt: d.ExpiresAt,
		CreatedAt: d.CreatedAt,
		Metadata:  models.SessionMetadata{IPAddress: d.IPAddress, UserAgent: d.UserAgent},
	}
}

// MongoRepository implements Repository on a MongoDB collection. A single
// document update is atomic, so MarkUsed filters on used=false and checks
// MatchedCount instead of reading first.
type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll, now: time.Now}
}

// SetClock replaces the source of creation timestamps.
func (r *MongoRepository) SetClock(now func() time.Time) {
	r.now = now
}

// EnsureIndexes creates the unique token index and the family and user lookups.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "family", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *MongoRepository) Insert(ctx context.Context, userID, family string, expiresAt time.Time, meta models.SessionMetadata) (*models.RefreshToken, error) {
	t, err := newToken(userID, family, expiresAt, meta)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = r.now().UTC()

	doc := tokenDocument{
		ID:        t.ID,
		Token:     t.Token,
		UserID:    t.UserID,
		Family:    t.Family,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *MongoRepository) FindByValue(ctx context.Context, token string) (*models.RefreshToken, error) {
	var doc tokenDocument
	if err := r.coll.FindOne(ctx, bson.M{"token": token}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoRepository) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "used": false},
		bson.M{"$set": bson.M{"used": true, "used_at": at}},
	)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return res.MatchedCount == 1, nil
}

// LockFamily is a no-op: the collection is used without multi-document
// transactions, and Rotate re-checks the consumed token after inserting its
// successor instead.
func (r *MongoRepository) LockFamily(context.Context, string) error { return nil }

func (r *MongoRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *MongoRepository) DeleteFamily(ctx context.Context, family string) (int64, error) {
	return r.deleteMany(ctx, bson.M{"family": family})
}

func (r *MongoRepository) DeleteUserFamily(ctx context.Context, userID, family string) (int64, error) {
	return r.deleteMany(ctx, bson.M{"user_id": userID, "family": family})
}

func (r *MongoRepository) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	return r.deleteMany(ctx, bson.M{"user_id": userID})
}

func (r *MongoRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.deleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": now}})
}

func (r *MongoRepository) ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]models.SessionSummary, error) {
	filter := bson.M{
		"user_id":    userID,
		"used":       false,
		"expires_at": bson.M{"$gt": now},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"token": 0})

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer cur.Close(ctx)

	var docs []tokenDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	sessions := make([]models.SessionSummary, 0, len(docs))
	for i := range docs {
		sessions = append(sessions, docs[i].toModel().Summary())
	}
	return sessions, nil
}

func (r *MongoRepository) deleteMany(ctx context.Context, filter bson.M) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.DeletedCount, nil
}
