package refreshtokens

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/common"
	"github.com/dmitrijs2005/blogauth/internal/server/models"
)

// MemoryRepository keeps tokens in process memory. The mutex is held only
// for the duration of one call, so it gives the same per-call atomicity a
// database would and nothing more. Suitable for a single instance and tests.
type MemoryRepository struct {
	mu      sync.Mutex
	rows    map[string]*memoryRow
	byValue map[string]string
	seq     uint64
	now     func() time.Time
}

type memoryRow struct {
	token models.RefreshToken
	seq   uint64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		rows:    make(map[string]*memoryRow),
		byValue: make(map[string]string),
		now:     time.Now,
	}
}

// SetClock replaces the source of creation timestamps.
func (r *MemoryRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func (r *MemoryRepository) Insert(_ context.Context, userID, family string, expiresAt time.Time, meta models.SessionMetadata) (*models.RefreshToken, error) {
	t, err := newToken(userID, family, expiresAt, meta)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t.CreatedAt = r.now()
	r.seq++
	r.rows[t.ID] = &memoryRow{token: *t, seq: r.seq}
	r.byValue[t.Token] = t.ID

	return t, nil
}

func (r *MemoryRepository) FindByValue(_ context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byValue[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	t := r.rows[id].token
	return &t, nil
}

func (r *MemoryRepository) MarkUsed(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok || row.token.Used {
		return false, nil
	}
	row.token.Used = true
	usedAt := at
	row.token.UsedAt = &usedAt
	return true, nil
}

// LockFamily is a no-op: every call is atomic on its own.
func (r *MemoryRepository) LockFamily(context.Context, string) error { return nil }

func (r *MemoryRepository) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if row, ok := r.rows[id]; ok {
		r.remove(row)
	}
	return nil
}

func (r *MemoryRepository) DeleteFamily(_ context.Context, family string) (int64, error) {
	return r.deleteWhere(func(t *models.RefreshToken) bool { return t.Family == family }), nil
}

func (r *MemoryRepository) DeleteUserFamily(_ context.Context, userID, family string) (int64, error) {
	return r.deleteWhere(func(t *models.RefreshToken) bool {
		return t.UserID == userID && t.Family == family
	}), nil
}

func (r *MemoryRepository) DeleteAllForUser(_ context.Context, userID string) (int64, error) {
	return r.deleteWhere(func(t *models.RefreshToken) bool { return t.UserID == userID }), nil
}

func (r *MemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(func(t *models.RefreshToken) bool { return t.Expired(now) }), nil
}

func (r *MemoryRepository) ListActiveForUser(_ context.Context, userID string, now time.Time) ([]models.SessionSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := make([]*memoryRow, 0)
	for _, row := range r.rows {
		if row.token.UserID == userID && row.token.Active(now) {
			active = append(active, row)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if !a.token.CreatedAt.Equal(b.token.CreatedAt) {
			return a.token.CreatedAt.After(b.token.CreatedAt)
		}
		return a.seq > b.seq
	})

	sessions := make([]models.SessionSummary, 0, len(active))
	for _, row := range active {
		sessions = append(sessions, row.token.Summary())
	}
	return sessions, nil
}

// Len returns the number of stored rows, used and unused.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *MemoryRepository) deleteWhere(match func(*models.RefreshToken) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, row := range r.rows {
		if match(&row.token) {
			r.remove(row)
			n++
		}
	}
	return n
}

func (r *MemoryRepository) remove(row *memoryRow) {
	delete(r.byValue, row.token.Token)
	delete(r.rows, row.token.ID)
}
