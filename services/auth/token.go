package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	svcerrors "github.com/postboard/service_layer/internal/errors"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 24 * time.Hour

func init() {
	// exp and iat keep millisecond precision so a token never expires before its TTL.
	jwt.TimePrecision = time.Millisecond
}

// Claims is the signed payload of a credential token.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 tokens. Verification depends only on
// the token, the secret and the clock.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenManager returns a manager signing with secret. now may be nil.
func NewTokenManager(secret []byte, ttl time.Duration, issuer string, now func() time.Time) (*TokenManager, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if now == nil {
		now = time.Now
	}
	return &TokenManager{secret: secret, ttl: ttl, issuer: issuer, now: now}, nil
}

// Issue signs a token for the user and returns it with its expiry.
func (m *TokenManager) Issue(userID int64, username string) (string, time.Time, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.ttl)

	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry. Failures are TOKEN_EXPIRED or
// INVALID_TOKEN service errors.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, svcerrors.ExpiredToken(err)
		}
		return nil, svcerrors.InvalidToken(err)
	}
	if !token.Valid || claims.Username == "" {
		return nil, svcerrors.InvalidToken(nil)
	}
	if m.issuer != "" && claims.Issuer != m.issuer {
		return nil, svcerrors.InvalidToken(fmt.Errorf("unexpected issuer %q", claims.Issuer))
	}
	return claims, nil
}
