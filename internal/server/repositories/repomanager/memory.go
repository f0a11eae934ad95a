package repomanager

import (
	"context"

	"github.com/dmitrijs2005/blogauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/blogauth/internal/server/repositories/users"
)

// MemoryRepositoryManager keeps everything in process memory. Single
// instance deployments and tests only.
type MemoryRepositoryManager struct {
	users  *users.MemoryRepository
	tokens *refreshtokens.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:  users.NewMemoryRepository(),
		tokens: refreshtokens.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) Users() users.Repository { return m.users }

func (m *MemoryRepositoryManager) RefreshTokens() refreshtokens.Repository { return m.tokens }

// Tokens exposes the concrete store, e.g. to pin its clock in tests.
func (m *MemoryRepositoryManager) Tokens() *refreshtokens.MemoryRepository { return m.tokens }

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, tokens refreshtokens.Repository) error) error {
	return fn(ctx, m.tokens)
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Ping(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Close(context.Context) error { return nil }
