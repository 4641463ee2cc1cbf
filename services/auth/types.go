package auth

import (
	"strings"

	svcerrors "github.com/postboard/service_layer/internal/errors"
)

// CredentialsRequest is the body of /register and /login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate trims the username and checks required fields.
func (r *CredentialsRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" {
		return svcerrors.MissingField("username")
	}
	if r.Password == "" {
		return svcerrors.MissingField("password")
	}
	return nil
}

// ValidateRequest is the body of /validate.
type ValidateRequest struct {
	Token string `json:"token"`
}

func (r *ValidateRequest) Validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return svcerrors.MissingField("token")
	}
	return nil
}

type RegisterResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// ValidateResponse is returned with 200 (valid) or 401 (not valid).
type ValidateResponse struct {
	Valid    bool   `json:"valid"`
	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
}
