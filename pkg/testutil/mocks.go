// Package testutil provides common testing utilities and mock implementations.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/postboard/service_layer/internal/database"
	svcerrors "github.com/postboard/service_layer/internal/errors"
	"github.com/postboard/service_layer/internal/serviceauth"
)

// NewSQLiteDB opens a file-backed sqlite database under t.TempDir().
func NewSQLiteDB(t testing.TB) *sqlx.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	db, err := database.Open(context.Background(), database.Config{Driver: database.DriverSQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// MockValidator is a test implementation of serviceauth.TokenValidator.
// Unknown tokens are rejected as invalid.
type MockValidator struct {
	mu         sync.RWMutex
	identities map[string]*serviceauth.Identity
	expired    map[string]bool
	err        error
	calls      atomic.Int32
}

// NewMockValidator creates a validator with no known tokens.
func NewMockValidator() *MockValidator {
	return &MockValidator{
		identities: make(map[string]*serviceauth.Identity),
		expired:    make(map[string]bool),
	}
}

// AddToken makes token validate as the given user.
func (m *MockValidator) AddToken(token string, userID int64, username string) *MockValidator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[token] = &serviceauth.Identity{UserID: userID, Username: username}
	return m
}

// ExpireToken makes token fail with the expired reason.
func (m *MockValidator) ExpireToken(token string) *MockValidator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expired[token] = true
	return m
}

// SetError makes every call fail with err (e.g. ServiceUnavailable).
func (m *MockValidator) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Validate was invoked.
func (m *MockValidator) Calls() int {
	return int(m.calls.Load())
}

// Validate implements serviceauth.TokenValidator.
func (m *MockValidator) Validate(_ context.Context, token string) (*serviceauth.Identity, error) {
	m.calls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.err != nil {
		return nil, m.err
	}
	if token == "" {
		return nil, svcerrors.Unauthorized("Missing token")
	}
	if m.expired[token] {
		return nil, svcerrors.ExpiredToken(nil)
	}
	id, ok := m.identities[token]
	if !ok {
		return nil, svcerrors.InvalidToken(nil)
	}
	identity := *id
	return &identity, nil
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var _ serviceauth.TokenValidator = (*MockValidator)(nil)
