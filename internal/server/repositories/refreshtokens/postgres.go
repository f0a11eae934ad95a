package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/common"
	"github.com/dmitrijs2005/blogauth/internal/dbx"
	"github.com/dmitrijs2005/blogauth/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, userID, family string, expiresAt time.Time, meta models.SessionMetadata) (*models.RefreshToken, error) {
	t, err := newToken(userID, family, expiresAt, meta)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO refresh_tokens (id, token, user_id, family, expires_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err = r.db.QueryRowContext(ctx, query,
		t.ID, t.Token, t.UserID, t.Family, t.ExpiresAt, nullString(meta.IPAddress), nullString(meta.UserAgent),
	).Scan(&t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) FindByValue(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT id, token, user_id, family, used, used_at, expires_at, ip_address, user_agent, created_at
		FROM refresh_tokens
		WHERE token = $1
	`
	var (
		t         models.RefreshToken
		usedAt    sql.NullTime
		ip, agent sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&t.ID, &t.Token, &t.UserID, &t.Family, &t.Used, &usedAt, &t.ExpiresAt, &ip, &agent, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if usedAt.Valid {
		t.UsedAt = &usedAt.Time
	}
	t.Metadata = models.SessionMetadata{IPAddress: ip.String, UserAgent: agent.String}
	return &t, nil
}

// MarkUsed is a single conditional UPDATE; Postgres row locking makes a
// concurrent second UPDATE re-check used after the first commits and match
// nothing.
func (r *PostgresRepository) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET used = true, used_at = $2
		WHERE id = $1 AND used = false
	`
	n, err := dbx.ExecAffected(ctx, r.db, query, id, at)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

// LockFamily takes FOR UPDATE locks in id order. Outside a transaction the
// locks are released as soon as the statement ends.
func (r *PostgresRepository) LockFamily(ctx context.Context, family string) error {
	query := `
		SELECT id FROM refresh_tokens
		WHERE family = $1
		ORDER BY id
		FOR UPDATE
	`
	rows, err := r.db.QueryContext(ctx, query, family)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		// locked, nothing to read
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByID(ctx context.Context, id string) error {
	query := `
		DELETE FROM refresh_tokens
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteFamily(ctx context.Context, family string) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE family = $1
	`
	return r.deleteWhere(ctx, query, family)
}

func (r *PostgresRepository) DeleteUserFamily(ctx context.Context, userID, family string) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE user_id = $1 AND family = $2
	`
	return r.deleteWhere(ctx, query, userID, family)
}

func (r *PostgresRepository) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE user_id = $1
	`
	return r.deleteWhere(ctx, query, userID)
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1
	`
	return r.deleteWhere(ctx, query, now)
}

func (r *PostgresRepository) ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]models.SessionSummary, error) {
	query := `
		SELECT id, family, created_at, expires_at, ip_address, user_agent
		FROM refresh_tokens
		WHERE user_id = $1 AND used = false AND expires_at > $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	sessions := make([]models.SessionSummary, 0)
	for rows.Next() {
		var (
			s         models.SessionSummary
			ip, agent sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Family, &s.CreatedAt, &s.ExpiresAt, &ip, &agent); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		s.IPAddress, s.UserAgent = ip.String, agent.String
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return sessions, nil
}

func (r *PostgresRepository) deleteWhere(ctx context.Context, query string, args ...any) (int64, error) {
	n, err := dbx.ExecAffected(ctx, r.db, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
