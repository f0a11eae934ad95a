package repomanager

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/blogauth/internal/server/config"
	"github.com/dmitrijs2005/blogauth/internal/server/repositories/refreshtokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryManager(t *testing.T) {
	m := NewMemoryRepositoryManager()
	ctx := context.Background()

	require.NoError(t, m.RunMigrations(ctx))
	require.NoError(t, m.Ping(ctx))

	var inTx refreshtokens.Repository
	require.NoError(t, m.WithTx(ctx, func(ctx context.Context, tokens refreshtokens.Repository) error {
		inTx = tokens
		return nil
	}))
	assert.Same(t, m.Tokens(), inTx)
	assert.Same(t, m.Tokens(), m.RefreshTokens())
	require.NoError(t, m.Close(ctx))
}

func TestOpen_MemoryAndUnknown(t *testing.T) {
	m, err := Open(context.Background(), &config.Config{StoreBackend: config.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryRepositoryManager{}, m)

	_, err = Open(context.Background(), &config.Config{StoreBackend: "sqlite"})
	assert.EqualError(t, err, `unknown store backend "sqlite"`)
}
