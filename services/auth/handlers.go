package auth

import (
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	svcerrors "github.com/postboard/service_layer/internal/errors"
	"github.com/postboard/service_layer/internal/httputil"
)

// dummyHash is compared against when the user does not exist so that unknown
// usernames cost the same as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("postboard-dummy-password"), bcrypt.DefaultCost)

// =============================================================================
// HTTP Handlers
// =============================================================================

// handleRegister creates an account with a bcrypt-hashed password.
func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.Logger().WithContext(r.Context()).WithError(err).Error("hash password")
		httputil.WriteServiceError(w, r, svcerrors.Internal("Registration failed", err))
		return
	}

	id, err := s.store.CreateUser(r.Context(), req.Username, string(hash))
	if err != nil {
		if svcerrors.IsConflict(err) {
			httputil.WriteServiceError(w, r, err)
			return
		}
		s.Logger().WithContext(r.Context()).WithError(err).Error("create user")
		httputil.WriteServiceError(w, r, svcerrors.Internal("Registration failed", err))
		return
	}

	s.Logger().WithContext(r.Context()).WithField("username", req.Username).Info("user registered")
	httputil.WriteJSON(w, http.StatusCreated, RegisterResponse{ID: id, Message: "User created successfully"})
}

// handleLogin checks credentials and issues a token.
func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		s.Logger().WithContext(r.Context()).WithError(err).Error("load user")
		httputil.WriteServiceError(w, r, svcerrors.Internal("Login failed", err))
		return
	}

	hash := dummyHash
	if user != nil {
		hash = []byte(user.PasswordHash)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil || user == nil {
		s.Logger().LogSecurityEvent(r.Context(), "login_failed", map[string]interface{}{"username": req.Username})
		httputil.WriteServiceError(w, r, svcerrors.Unauthorized("Invalid credentials"))
		return
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		s.Logger().WithContext(r.Context()).WithError(err).Error("issue token")
		httputil.WriteServiceError(w, r, svcerrors.Internal("Login failed", err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}

// handleValidate verifies a token. It never touches the user store.
func (s *Service) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	claims, err := s.tokens.Verify(req.Token)
	if err != nil {
		se := svcerrors.GetServiceError(err)
		httputil.WriteJSON(w, http.StatusUnauthorized, ValidateResponse{
			Valid:   false,
			Reason:  se.Reason(),
			Message: se.Message,
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ValidateResponse{
		Valid:    true,
		UserID:   claims.UserID,
		Username: claims.Username,
	})
}
