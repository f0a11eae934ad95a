package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/common"
	"github.com/dmitrijs2005/blogauth/internal/logging"
	"github.com/dmitrijs2005/blogauth/internal/server/metrics"
	"github.com/dmitrijs2005/blogauth/internal/server/models"
	"github.com/dmitrijs2005/blogauth/internal/server/repositories/repomanager"
)

// AccessTokenIssuer mints signed access tokens.
type AccessTokenIssuer interface {
	Issue(userID, email string, role models.Role) (string, error)
}

// PasswordHasher hashes new passwords and verifies presented ones.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// AuthResult is what a client receives after login, registration or refresh.
type AuthResult struct {
	User             *models.User
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AuthService composes credential checks, the access token issuer, the
// rotation engine and the session directory into the public auth flows.
type AuthService struct {
	manager  repomanager.RepositoryManager
	issuer   AccessTokenIssuer
	hasher   PasswordHasher
	rotation *RotationEngine
	sessions *SessionDirectory
	log      logging.Logger
	metrics  *metrics.Metrics

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(m repomanager.RepositoryManager, issuer AccessTokenIssuer, hasher PasswordHasher,
	rotation *RotationEngine, sessions *SessionDirectory, log logging.Logger, mtr *metrics.Metrics) *AuthService {
	return &AuthService{
		manager:  m,
		issuer:   issuer,
		hasher:   hasher,
		rotation: rotation,
		sessions: sessions,
		log:      log.With("module", "auth"),
		metrics:  mtr,
	}
}

// Sessions exposes the session directory used by the service.
func (s *AuthService) Sessions() *SessionDirectory { return s.sessions }

// Register creates a USER account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta models.SessionMetadata) (*AuthResult, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		s.metrics.RegistrationAttemptsTotal.WithLabelValues(metrics.StatusFailure).Inc()
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := s.manager.Users().Create(ctx, &models.User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		Role:         models.RoleUser,
	})
	if err != nil {
		s.metrics.RegistrationAttemptsTotal.WithLabelValues(metrics.StatusFailure).Inc()
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, fmt.Errorf("user with this email or username %w", common.ErrorAlreadyExists)
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.metrics.RegistrationAttemptsTotal.WithLabelValues(metrics.StatusSuccess).Inc()
	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return s.startSession(ctx, user, meta)
}

// CreateAdmin creates an ADMIN account without starting a session.
// created is false when the email or username is already taken.
func (s *AuthService) CreateAdmin(ctx context.Context, in RegisterInput) (user *models.User, created bool, err error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, false, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, false, fmt.Errorf("error hashing password: %w", err)
	}

	user, err = s.manager.Users().Create(ctx, &models.User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "admin created", "user_id", user.ID)
	return user, true, nil
}

// Login verifies credentials and starts a new session. Unknown email and
// wrong password both yield common.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string, meta models.SessionMetadata) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.manager.Users().GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("error loading user: %w", err)
		}
		// keep the timing of unknown emails close to a wrong password
		_, _ = s.hasher.Verify(password, s.dummy())
		s.metrics.LoginAttemptsTotal.WithLabelValues(metrics.StatusFailure).Inc()
		return nil, common.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		s.metrics.LoginAttemptsTotal.WithLabelValues(metrics.StatusFailure).Inc()
		return nil, common.ErrInvalidCredentials
	}

	s.metrics.LoginAttemptsTotal.WithLabelValues(metrics.StatusSuccess).Inc()
	return s.startSession(ctx, user, meta)
}

// Refresh rotates presented and mints a new access token for its owner.
// Callers must discard the presented token on any error.
func (s *AuthService) Refresh(ctx context.Context, presented string, meta models.SessionMetadata) (*AuthResult, error) {
	r, err := s.rotation.Rotate(ctx, presented, meta)
	if err != nil {
		return nil, err
	}

	access, err := s.issuer.Issue(r.User.ID, r.User.Email, r.User.Role)
	if err != nil {
		return nil, fmt.Errorf("error issuing access token: %w", err)
	}

	return &AuthResult{
		User:             r.User,
		AccessToken:      access,
		RefreshToken:     r.Token.Token,
		RefreshExpiresAt: r.Token.ExpiresAt,
	}, nil
}

// Logout ends the session of presented. Unknown or empty values succeed.
func (s *AuthService) Logout(ctx context.Context, presented string) error {
	_, err := s.rotation.RevokeFamilyOf(ctx, presented)
	return err
}

// LogoutAll ends every session of userID.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	_, err := s.sessions.RevokeAll(ctx, userID)
	return err
}

// Profile returns the user record of userID.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.manager.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

func (s *AuthService) startSession(ctx context.Context, user *models.User, meta models.SessionMetadata) (*AuthResult, error) {
	access, err := s.issuer.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("error issuing access token: %w", err)
	}

	rt, err := s.rotation.IssueInitial(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		User:             user,
		AccessToken:      access,
		RefreshToken:     rt.Token,
		RefreshExpiresAt: rt.ExpiresAt,
	}, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(hex.EncodeToString(common.GenerateRandByteArray(16)))
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
