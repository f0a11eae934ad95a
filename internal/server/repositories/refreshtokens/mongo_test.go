package refreshtokens

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/common"
	"github.com/dmitrijs2005/blogauth/internal/server/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("insert", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		tok, err := repo.Insert(context.Background(), "u1", "fam", time.Now().Add(time.Hour), models.SessionMetadata{UserAgent: "ua"})
		if err != nil {
			t.Fatalf("Insert error: %v", err)
		}
		if tok.Family != "fam" || len(tok.Token) != 2*common.RefreshTokenBytes || tok.CreatedAt.IsZero() {
			t.Fatalf("unexpected token: %+v", tok)
		}
	})

	mt.Run("insert stamps creation from clock", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.FixedZone("EEST", 3*60*60))
		repo.SetClock(func() time.Time { return at })
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		tok, err := repo.Insert(context.Background(), "u1", "", at.Add(time.Hour), models.SessionMetadata{})
		if err != nil {
			t.Fatalf("Insert error: %v", err)
		}
		if !tok.CreatedAt.Equal(at) || tok.CreatedAt.Location() != time.UTC {
			t.Fatalf("CreatedAt = %v, want %v in UTC", tok.CreatedAt, at)
		}
	})

	mt.Run("lock family is a no-op", func(mt *mtest.T) {
		if err := NewMongoRepository(mt.Coll).LockFamily(context.Background(), "fam"); err != nil {
			t.Fatalf("LockFamily error: %v", err)
		}
	})

	mt.Run("find by value", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		expires := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "blogauth.refresh_tokens", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "id-1"},
			{Key: "token", Value: "tok"},
			{Key: "user_id", Value: "u1"},
			{Key: "family", Value: "fam"},
			{Key: "used", Value: false},
			{Key: "expires_at", Value: expires},
			{Key: "created_at", Value: expires.Add(-time.Hour)},
			{Key: "ip_address", Value: "10.0.0.9"},
		}))

		tok, err := repo.FindByValue(context.Background(), "tok")
		if err != nil {
			t.Fatalf("FindByValue error: %v", err)
		}
		if tok.ID != "id-1" || tok.Used || tok.UsedAt != nil || !tok.ExpiresAt.Equal(expires) || tok.Metadata.IPAddress != "10.0.0.9" {
			t.Fatalf("unexpected token: %+v", tok)
		}
	})

	mt.Run("find missing", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "blogauth.refresh_tokens", mtest.FirstBatch))

		_, err := repo.FindByValue(context.Background(), "nope")
		if !errors.Is(err, common.ErrorNotFound) {
			t.Fatalf("want common.ErrorNotFound, got %v", err)
		}
	})

	mt.Run("mark used matched", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		ok, err := repo.MarkUsed(context.Background(), "id-1", time.Now())
		if err != nil || !ok {
			t.Fatalf("MarkUsed = %v, %v; want true, nil", ok, err)
		}
	})

	mt.Run("mark used lost race", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		ok, err := repo.MarkUsed(context.Background(), "id-1", time.Now())
		if err != nil || ok {
			t.Fatalf("MarkUsed = %v, %v; want false, nil", ok, err)
		}
	})

	mt.Run("delete family", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}))

		n, err := repo.DeleteFamily(context.Background(), "fam")
		if err != nil || n != 3 {
			t.Fatalf("DeleteFamily = %d, %v; want 3, nil", n, err)
		}
	})

	mt.Run("delete expired error", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad value"}))

		if _, err := repo.DeleteExpired(context.Background(), time.Now()); err == nil {
			t.Fatal("expected error")
		}
	})

	mt.Run("list active", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "blogauth.refresh_tokens", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "id-2"}, {Key: "family", Value: "f2"}, {Key: "user_id", Value: "u1"}, {Key: "created_at", Value: now}, {Key: "expires_at", Value: now.Add(time.Hour)}},
			bson.D{{Key: "_id", Value: "id-1"}, {Key: "family", Value: "f1"}, {Key: "user_id", Value: "u1"}, {Key: "created_at", Value: now.Add(-time.Hour)}, {Key: "expires_at", Value: now.Add(time.Hour)}},
		))

		got, err := repo.ListActiveForUser(context.Background(), "u1", now)
		if err != nil {
			t.Fatalf("ListActiveForUser error: %v", err)
		}
		if len(got) != 2 || got[0].ID != "id-2" || got[1].Family != "f1" {
			t.Fatalf("unexpected sessions: %+v", got)
		}
	})
}
