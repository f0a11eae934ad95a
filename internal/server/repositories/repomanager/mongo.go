package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/blogauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/blogauth/internal/server/repositories/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoRepositoryManager vends MongoDB-backed repositories from one database.
type MongoRepositoryManager struct {
	client *mongo.Client
	users  *users.MongoRepository
	tokens *refreshtokens.MongoRepository
}

func NewMongoRepositoryManager(client *mongo.Client, database string) *MongoRepositoryManager {
	db := client.Database(database)
	return &MongoRepositoryManager{
		client: client,
		users:  users.NewMongoRepository(db.Collection(users.CollectionName)),
		tokens: refreshtokens.NewMongoRepository(db.Collection(refreshtokens.CollectionName)),
	}
}

// ConnectMongo dials uri and verifies the primary is reachable.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect error: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping error: %w", err)
	}
	return client, nil
}

func (m *MongoRepositoryManager) Users() users.Repository { return m.users }

func (m *MongoRepositoryManager) RefreshTokens() refreshtokens.Repository { return m.tokens }

// WithTx runs fn directly: every token operation is a single-document write,
// and MarkUsed carries its own used=false guard.
func (m *MongoRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, tokens refreshtokens.Repository) error) error {
	return fn(ctx, m.tokens)
}

// RunMigrations creates the collection indexes.
func (m *MongoRepositoryManager) RunMigrations(ctx context.Context) error {
	if err := m.users.EnsureIndexes(ctx); err != nil {
		return err
	}
	return m.tokens.EnsureIndexes(ctx)
}

func (m *MongoRepositoryManager) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoRepositoryManager) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
