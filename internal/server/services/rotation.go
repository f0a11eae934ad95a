// Package services contains server-side business logic: the refresh token
// rotation engine, the session directory, the auth orchestrator built on
// them and the expired token sweeper.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/common"
	"github.com/dmitrijs2005/blogauth/internal/logging"
	"github.com/dmitrijs2005/blogauth/internal/server/incidents"
	"github.com/dmitrijs2005/blogauth/internal/server/metrics"
	"github.com/dmitrijs2005/blogauth/internal/server/models"
	"github.com/dmitrijs2005/blogauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/blogauth/internal/server/repositories/repomanager"
)

// errAlreadyConsumed aborts the rotation transaction when the conditional
// mark lost to another caller.
var errAlreadyConsumed = errors.New("refresh token already consumed")

// Rotation is the outcome of a successful rotation.
type Rotation struct {
	Token *models.RefreshToken
	User  *models.User
}

// RotationEngine validates, consumes and re-issues refresh tokens and
// revokes a whole family when a consumed token is presented again.
//
// It holds no lock of its own: two concurrent rotations of one token are
// serialized by the store's conditional MarkUsed, so several server
// instances may share a store.
type RotationEngine struct {
	manager   repomanager.RepositoryManager
	ttl       time.Duration
	log       logging.Logger
	metrics   *metrics.Metrics
	incidents incidents.Reporter
	now       func() time.Time
}

func NewRotationEngine(m repomanager.RepositoryManager, ttl time.Duration, log logging.Logger, mtr *metrics.Metrics, rep incidents.Reporter) *RotationEngine {
	if rep == nil {
		rep = incidents.NopReporter{}
	}
	return &RotationEngine{
		manager:   m,
		ttl:       ttl,
		log:       log.With("module", "rotation"),
		metrics:   mtr,
		incidents: rep,
		now:       time.Now,
	}
}

// TTL is the lifetime given to every issued refresh token.
func (e *RotationEngine) TTL() time.Duration { return e.ttl }

// IssueInitial starts a new family for userID, i.e. a new session.
func (e *RotationEngine) IssueInitial(ctx context.Context, userID string, meta models.SessionMetadata) (*models.RefreshToken, error) {
	t, err := e.manager.RefreshTokens().Insert(ctx, userID, "", e.now().Add(e.ttl), meta)
	if err != nil {
		return nil, fmt.Errorf("error issuing refresh token: %w", err)
	}
	return t, nil
}

// Rotate exchanges presented for a successor in the same family.
//
// Failures: common.ErrInvalidRefreshToken when the value is unknown,
// common.ErrRefreshTokenExpired when it is past expiry (the row is removed),
// common.ErrTokenReuseDetected when it was already consumed (the family is
// removed first). Any other error is a store failure.
func (e *RotationEngine) Rotate(ctx context.Context, presented string, meta models.SessionMetadata) (*Rotation, error) {
	if presented == "" {
		e.count(metrics.StatusInvalid)
		return nil, common.ErrInvalidRefreshToken
	}

	tok, err := e.manager.RefreshTokens().FindByValue(ctx, presented)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			e.count(metrics.StatusInvalid)
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	now := e.now()

	if tok.Expired(now) {
		if err := e.manager.RefreshTokens().DeleteByID(ctx, tok.ID); err != nil {
			e.log.Error(ctx, "failed to delete expired refresh token", "token_id", tok.ID, "error", err)
		}
		e.count(metrics.StatusExpired)
		return nil, common.ErrRefreshTokenExpired
	}

	if tok.Used {
		return nil, e.reuseDetected(ctx, tok, meta, now)
	}

	user, err := e.manager.Users().GetByID(ctx, tok.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			e.count(metrics.StatusInvalid)
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("error loading token owner: %w", err)
	}

	var next *models.RefreshToken
	err = e.manager.WithTx(ctx, func(ctx context.Context, tokens refreshtokens.Repository) error {
		if err := tokens.LockFamily(ctx, tok.Family); err != nil {
			return fmt.Errorf("error locking family: %w", err)
		}
		ok, err := tokens.MarkUsed(ctx, tok.ID, now)
		if err != nil {
			return fmt.Errorf("error consuming refresh token: %w", err)
		}
		if !ok {
			return errAlreadyConsumed
		}
		next, err = tokens.Insert(ctx, tok.UserID, tok.Family, now.Add(e.ttl), meta)
		if err != nil {
			return fmt.Errorf("error issuing refresh token: %w", err)
		}
		return nil
	})
	if errors.Is(err, errAlreadyConsumed) {
		// lost the race: someone else presented this value first
		return nil, e.reuseDetected(ctx, tok, meta, now)
	}
	if err != nil {
		return nil, err
	}

	// A revocation that ran between MarkUsed and Insert removed the consumed
	// row but could not see the successor.
	if err := e.ensureNotRevoked(ctx, presented, tok); err != nil {
		return nil, err
	}

	e.count(metrics.StatusSuccess)
	return &Rotation{Token: next, User: user}, nil
}

// ensureNotRevoked deletes the family again when the consumed row is gone.
func (e *RotationEngine) ensureNotRevoked(ctx context.Context, presented string, tok *models.RefreshToken) error {
	tokens := e.manager.RefreshTokens()
	_, err := tokens.FindByValue(ctx, presented)
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error searching refresh token: %w", err)
	}

	n, err := tokens.DeleteFamily(ctx, tok.Family)
	if err != nil {
		e.log.Error(ctx, "failed to revoke successor after concurrent reuse", "family", tok.Family, "user_id", tok.UserID, "error", err)
		return fmt.Errorf("error revoking family: %w", err)
	}

	e.count(metrics.StatusReuse)
	e.metrics.SessionsRevokedTotal.WithLabelValues("reuse").Add(float64(n))
	e.log.Warn(ctx, "successor revoked after concurrent reuse", "family", tok.Family, "user_id", tok.UserID, "revoked", n)

	return common.ErrTokenReuseDetected
}

// RevokeFamilyOf deletes the family of presented. An unknown value is not
// an error.
func (e *RotationEngine) RevokeFamilyOf(ctx context.Context, presented string) (int64, error) {
	if presented == "" {
		return 0, nil
	}

	tokens := e.manager.RefreshTokens()
	tok, err := tokens.FindByValue(ctx, presented)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("error searching refresh token: %w", err)
	}

	n, err := tokens.DeleteFamily(ctx, tok.Family)
	if err != nil {
		return 0, fmt.Errorf("error revoking family: %w", err)
	}
	e.metrics.SessionsRevokedTotal.WithLabelValues("logout").Add(float64(n))
	return n, nil
}

func (e *RotationEngine) reuseDetected(ctx context.Context, tok *models.RefreshToken, meta models.SessionMetadata, now time.Time) error {
	var n int64
	err := e.manager.WithTx(ctx, func(ctx context.Context, tokens refreshtokens.Repository) error {
		// waits for an in-flight rotation of the family, so its successor is
		// committed before the delete reads the family
		if err := tokens.LockFamily(ctx, tok.Family); err != nil {
			return err
		}
		var err error
		n, err = tokens.DeleteFamily(ctx, tok.Family)
		return err
	})
	if err != nil {
		e.log.Error(ctx, "failed to revoke family after reuse", "family", tok.Family, "user_id", tok.UserID, "error", err)
		return fmt.Errorf("error revoking family: %w", err)
	}

	e.count(metrics.StatusReuse)
	e.metrics.ReuseDetectedTotal.Inc()
	e.metrics.SessionsRevokedTotal.WithLabelValues("reuse").Add(float64(n))

	e.log.Warn(ctx, "refresh token reuse detected",
		"family", tok.Family,
		"user_id", tok.UserID,
		"token_id", tok.ID,
		"ip", meta.IPAddress,
		"user_agent", meta.UserAgent,
		"revoked", n,
	)

	in := incidents.Incident{
		Family:     tok.Family,
		UserID:     tok.UserID,
		TokenID:    tok.ID,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		Revoked:    n,
		DetectedAt: now.UTC(),
	}
	if err := e.incidents.Report(ctx, in); err != nil {
		e.log.Error(ctx, "failed to archive reuse incident", "family", tok.Family, "error", err)
	}

	return common.ErrTokenReuseDetected
}

func (e *RotationEngine) count(status string) {
	e.metrics.TokenRefreshTotal.WithLabelValues(status).Inc()
}
