// Package refreshtokens is the Refresh Token Store: the persistent record of
// every issued refresh token, its family and its usage state. Implementations
// exist for PostgreSQL, MongoDB and process memory.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/server/models"
)

// Repository defines operations for issuing, consuming and revoking refresh tokens.
type Repository interface {
	// Insert stores a brand-new unused token for userID and returns it with its
	// freshly generated value. An empty family starts a new one.
	Insert(ctx context.Context, userID, family string, expiresAt time.Time, meta models.SessionMetadata) (*models.RefreshToken, error)

	// FindByValue looks a token up by its opaque value; common.ErrorNotFound
	// when absent.
	FindByValue(ctx context.Context, token string) (*models.RefreshToken, error)

	// MarkUsed flips used from false to true on the row with id. It reports
	// false when the row was already used or no longer exists; of any number
	// of concurrent callers on one row at most one sees true.
	MarkUsed(ctx context.Context, id string, at time.Time) (bool, error)

	// LockFamily holds a write lock on every row of family until the
	// enclosing transaction ends, so a concurrent rotation and a family
	// revocation see each other's committed rows. Stores without multi-row
	// transactions treat it as a no-op.
	LockFamily(ctx context.Context, family string) error

	DeleteByID(ctx context.Context, id string) error
	DeleteFamily(ctx context.Context, family string) (int64, error)
	// DeleteUserFamily removes the family only where it belongs to userID.
	DeleteUserFamily(ctx context.Context, userID, family string) (int64, error)
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
	// DeleteExpired removes every row with expires_at before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// ListActiveForUser returns the user's unused tokens expiring after now,
	// newest first.
	ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]models.SessionSummary, error)
}
