// Package serviceauth validates credential tokens by calling the auth service.
// Callers that mutate state run Validate before touching their own store.
package serviceauth

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	svcerrors "github.com/postboard/service_layer/internal/errors"
	"github.com/postboard/service_layer/internal/httputil"
	"github.com/postboard/service_layer/internal/logging"
	"github.com/postboard/service_layer/internal/metrics"
)

// Identity is the validated caller.
type Identity struct {
	UserID   int64
	Username string
}

// WithIdentity stores the identity on ctx for logging.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return logging.WithUser(ctx, strconv.FormatInt(id.UserID, 10), id.Username)
}

// TokenValidator is implemented by Client and by test fakes.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*Identity, error)
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid    bool   `json:"valid"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Reason   string `json:"reason"`
	Message  string `json:"message"`
}

// Client calls POST /validate on the auth service. Every call is a fresh
// round trip; results are never cached.
type Client struct {
	client *httputil.ServiceClient
	logger *logging.Logger
}

// NewClient wraps a service client pointed at the auth service.
func NewClient(client *httputil.ServiceClient, logger *logging.Logger) *Client {
	return &Client{client: client, logger: logger}
}

// Validate returns the identity encoded in token.
//
// Errors: an empty token or a 401 from auth yields an UNAUTHORIZED-family error
// (with reason "expired" or "invalid" when auth reports one); anything else,
// including a transport failure, yields SERVICE_UNAVAILABLE.
func (c *Client) Validate(ctx context.Context, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		metrics.RecordTokenValidation("missing")
		return nil, svcerrors.Unauthorized("Missing token")
	}

	resp, err := c.client.Post(ctx, "/validate", validateRequest{Token: token})
	if err != nil {
		metrics.RecordTokenValidation("unavailable")
		c.logger.WithContext(ctx).WithError(err).Warn("auth service unreachable")
		return nil, err
	}

	var body validateResponse
	if resp.StatusCode == http.StatusUnauthorized {
		defer resp.Body.Close()
		raw, _, _ := httputil.ReadAllWithLimit(resp.Body, 64<<10)
		_ = json.Unmarshal(raw, &body)
		return nil, c.rejected(ctx, body)
	}

	if err := httputil.DecodeResponse(resp, &body); err != nil {
		// Anything but 200/401 means the validator is broken, not that the
		// caller is unauthenticated.
		metrics.RecordTokenValidation("unavailable")
		if svcerrors.IsUnavailable(err) {
			return nil, err
		}
		return nil, svcerrors.ServiceUnavailable(c.client.Service(), err)
	}

	if !body.Valid || body.Username == "" {
		return nil, c.rejected(ctx, body)
	}

	metrics.RecordTokenValidation("valid")
	return &Identity{UserID: body.UserID, Username: body.Username}, nil
}

func (c *Client) rejected(ctx context.Context, body validateResponse) error {
	if body.Reason == svcerrors.ReasonExpired {
		metrics.RecordTokenValidation("expired")
		return svcerrors.ExpiredToken(nil)
	}
	metrics.RecordTokenValidation("invalid")
	c.logger.LogSecurityEvent(ctx, "token_rejected", map[string]interface{}{"reason": body.Reason})
	return svcerrors.InvalidToken(nil)
}
