package main

import (
	"net/http"
	"time"

	svcerrors "github.com/postboard/service_layer/internal/errors"
)

const (
	tokenCookieName = "token"
	tokenMaxAge     = 24 * time.Hour
)

// =============================================================================
// Token Cookie
// =============================================================================

func tokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(tokenCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(tokenMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// =============================================================================
// Middleware
// =============================================================================

// requireToken redirects to the login page when the token cookie is absent.
// The token itself is validated downstream, not here.
func (g *Gateway) requireToken(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenFromRequest(r) == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	})
}

// throttled rate limits form submissions per client IP. Page views pass.
func (g *Gateway) throttled(next http.HandlerFunc) http.Handler {
	limited := g.limiter.Handler(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func (g *Gateway) rejectThrottled(w http.ResponseWriter, r *http.Request, err *svcerrors.ServiceError) {
	g.flash.Add(w, r, "Too many attempts. Please wait a moment and try again.")
	http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
}
