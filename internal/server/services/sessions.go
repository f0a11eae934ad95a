package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/common"
	"github.com/dmitrijs2005/blogauth/internal/logging"
	"github.com/dmitrijs2005/blogauth/internal/server/metrics"
	"github.com/dmitrijs2005/blogauth/internal/server/models"
	"github.com/dmitrijs2005/blogauth/internal/server/repositories/repomanager"
)

// Family id length bounds accepted by RevokeSession.
const (
	MinFamilyLength = 3
	MaxFamilyLength = 50
)

// SessionDirectory lists and revokes a user's sessions. Every operation is
// scoped by user id.
type SessionDirectory struct {
	manager repomanager.RepositoryManager
	log     logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewSessionDirectory(m repomanager.RepositoryManager, log logging.Logger, mtr *metrics.Metrics) *SessionDirectory {
	return &SessionDirectory{
		manager: m,
		log:     log.With("module", "sessions"),
		metrics: mtr,
		now:     time.Now,
	}
}

// ListSessions returns the user's active sessions, newest first.
func (d *SessionDirectory) ListSessions(ctx context.Context, userID string) ([]models.SessionSummary, error) {
	sessions, err := d.manager.RefreshTokens().ListActiveForUser(ctx, userID, d.now())
	if err != nil {
		return nil, fmt.Errorf("error listing sessions: %w", err)
	}
	return sessions, nil
}

// RevokeSession deletes family only where it belongs to userID and returns
// the number of rows removed. Zero is not an error, so callers cannot probe
// for other users' families.
func (d *SessionDirectory) RevokeSession(ctx context.Context, userID, family string) (int64, error) {
	if l := len(family); l < MinFamilyLength || l > MaxFamilyLength {
		return 0, &ValidationError{Problems: []string{
			fmt.Sprintf("family must be between %d and %d characters", MinFamilyLength, MaxFamilyLength),
		}}
	}

	n, err := d.manager.RefreshTokens().DeleteUserFamily(ctx, userID, family)
	if err != nil {
		return 0, fmt.Errorf("error revoking session: %w", err)
	}
	d.metrics.SessionsRevokedTotal.WithLabelValues("session").Add(float64(n))
	d.log.Info(ctx, "session revoked", "user_id", userID, "family", family, "revoked", n)
	return n, nil
}

// RevokeAll deletes every refresh token of userID.
func (d *SessionDirectory) RevokeAll(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, common.ErrorUnauthorized
	}

	n, err := d.manager.RefreshTokens().DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("error revoking sessions: %w", err)
	}
	d.metrics.SessionsRevokedTotal.WithLabelValues("all").Add(float64(n))
	d.log.Info(ctx, "all sessions revoked", "user_id", userID, "revoked", n)
	return n, nil
}
