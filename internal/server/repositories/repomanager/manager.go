// Package repomanager vends the user and refresh token repositories of one
// storage backend together with its schema setup, health check and
// transaction boundary.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/blogauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/blogauth/internal/server/repositories/users"
)

type RepositoryManager interface {
	// RunMigrations brings the backend schema (tables or indexes) up to date.
	RunMigrations(ctx context.Context) error
	Users() users.Repository
	RefreshTokens() refreshtokens.Repository
	// WithTx runs fn with a token repository whose writes commit together
	// where the backend supports it. Correctness of rotation never depends on
	// it: the conditional MarkUsed is atomic on every backend.
	WithTx(ctx context.Context, fn func(ctx context.Context, tokens refreshtokens.Repository) error) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
