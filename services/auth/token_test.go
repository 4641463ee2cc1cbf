package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcerrors "github.com/postboard/service_layer/internal/errors"
	"github.com/postboard/service_layer/pkg/testutil"
)

var testSecret = []byte("test-secret")

func newTestTokens(t *testing.T, clock *testutil.Clock) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(testSecret, 0, TokenIssuer, clock.Now)
	require.NoError(t, err)
	return m
}

func TestTokenRoundTripPreservesIdentity(t *testing.T) {
	clock := testutil.NewClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	m := newTestTokens(t, clock)

	token, exp, err := m.Issue(7, "alice")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(24*time.Hour), exp)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, TokenIssuer, claims.Issuer)
}

func TestTokenValidUntilExpiry(t *testing.T) {
	clock := testutil.NewClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	m := newTestTokens(t, clock)

	token, _, err := m.Issue(1, "alice")
	require.NoError(t, err)

	clock.Advance(23*time.Hour + 59*time.Minute + 59*time.Second)
	_, err = m.Verify(token)
	require.NoError(t, err, "token must be valid just before 24h")

	clock.Advance(2 * time.Second)
	_, err = m.Verify(token)
	require.Error(t, err)
	assert.Equal(t, svcerrors.ReasonExpired, svcerrors.GetServiceError(err).Reason())
	assert.True(t, svcerrors.IsUnauthorized(err))
}

func TestTokenIssuedMidSecondLastsFullTTL(t *testing.T) {
	clock := testutil.NewClock(time.Date(2024, 1, 1, 12, 0, 0, 900*int(time.Millisecond), time.UTC))
	m := newTestTokens(t, clock)

	token, _, err := m.Issue(1, "alice")
	require.NoError(t, err)

	clock.Advance(24*time.Hour - 500*time.Millisecond)
	_, err = m.Verify(token)
	require.NoError(t, err, "token must be valid until the full TTL has elapsed")

	clock.Advance(time.Second)
	_, err = m.Verify(token)
	require.Error(t, err)
	assert.Equal(t, svcerrors.ReasonExpired, svcerrors.GetServiceError(err).Reason())
}

func TestTokenInvalidCases(t *testing.T) {
	clock := testutil.NewClock(time.Now())
	m := newTestTokens(t, clock)
	token, _, err := m.Issue(1, "alice")
	require.NoError(t, err)
	mallory, _, err := m.Issue(2, "mallory")
	require.NoError(t, err)
	aliceParts := strings.Split(token, ".")
	malloryParts := strings.Split(mallory, ".")
	tampered := aliceParts[0] + "." + malloryParts[1] + "." + aliceParts[2]

	other, err := NewTokenManager([]byte("other-secret"), 0, TokenIssuer, clock.Now)
	require.NoError(t, err)
	foreign, _, err := other.Issue(1, "alice")
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID:   1,
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: 1, Username: "alice"}).SignedString(testSecret)
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":        "not-a-token",
		"tampered":       tampered,
		"wrong secret":   foreign,
		"alg none":       unsigned,
		"missing expiry": noExpiry,
	}
	for name, tok := range cases {
		_, err := m.Verify(tok)
		require.Error(t, err, name)
		assert.Equal(t, svcerrors.ReasonInvalid, svcerrors.GetServiceError(err).Reason(), name)
	}
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager(nil, 0, TokenIssuer, nil)
	assert.Error(t, err)
}
