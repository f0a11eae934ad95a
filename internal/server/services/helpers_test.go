package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/logging"
	"github.com/dmitrijs2005/blogauth/internal/server/auth"
	"github.com/dmitrijs2005/blogauth/internal/server/incidents"
	"github.com/dmitrijs2005/blogauth/internal/server/metrics"
	"github.com/dmitrijs2005/blogauth/internal/server/models"
	"github.com/dmitrijs2005/blogauth/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Passw0rdOK"

type recordingReporter struct {
	mu   sync.Mutex
	seen []incidents.Incident
}

func (r *recordingReporter) Report(_ context.Context, in incidents.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, in)
	return nil
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

// testClock is a settable time source shared by the engine and the store.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	manager  *repomanager.MemoryRepositoryManager
	issuer   *auth.Issuer
	metrics  *metrics.Metrics
	reporter *recordingReporter
	clock    *testClock
	rotation *RotationEngine
	sessions *SessionDirectory
	svc      *AuthService
}

func newTestEnv(t *testing.T, log logging.Logger) *testEnv {
	t.Helper()
	if log == nil {
		log = logging.Nop()
	}

	clock := &testClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	m := repomanager.NewMemoryRepositoryManager()
	m.Tokens().SetClock(clock.Now)

	mtr := metrics.New()
	rep := &recordingReporter{}
	issuer := auth.NewIssuer([]byte("test-secret"), 15*time.Minute)

	rotation := NewRotationEngine(m, 7*24*time.Hour, log, mtr, rep)
	rotation.now = clock.Now
	sessions := NewSessionDirectory(m, log, mtr)
	sessions.now = clock.Now

	svc := NewAuthService(m, issuer, auth.NewPasswordHasher(bcrypt.MinCost), rotation, sessions, log, mtr)

	return &testEnv{
		manager:  m,
		issuer:   issuer,
		metrics:  mtr,
		reporter: rep,
		clock:    clock,
		rotation: rotation,
		sessions: sessions,
		svc:      svc,
	}
}

// register creates a user and returns its first session.
func (e *testEnv) register(t *testing.T, name string) *AuthResult {
	t.Helper()
	res, err := e.svc.Register(context.Background(), RegisterInput{
		Email:    name + "@example.com",
		Username: name,
		Password: testPassword,
	}, models.SessionMetadata{IPAddress: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	return res
}

// login starts another session for an existing user.
func (e *testEnv) login(t *testing.T, name string) *AuthResult {
	t.Helper()
	e.clock.Advance(time.Second)
	res, err := e.svc.Login(context.Background(), name+"@example.com", testPassword, models.SessionMetadata{})
	require.NoError(t, err)
	return res
}
