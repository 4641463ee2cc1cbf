package main

import (
	"net/http"
	"strings"

	svcerrors "github.com/postboard/service_layer/internal/errors"
)

// =============================================================================
// Auth Handlers
// =============================================================================

func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		g.render(w, r, http.StatusOK, "login.html", nil)
		return
	}

	creds := credentials{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}
	var res loginResult
	if err := g.auth.CallJSON(r.Context(), http.MethodPost, "/login", creds, &res); err != nil || res.Token == "" {
		g.Logger().LogSecurityEvent(r.Context(), "login_failed", map[string]interface{}{
			"username": creds.Username,
			"error":    errString(err),
		})
		g.flash.Add(w, r, "Invalid credentials or service error")
		g.render(w, r, http.StatusOK, "login.html", nil)
		return
	}

	setTokenCookie(w, res.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (g *Gateway) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		g.render(w, r, http.StatusOK, "register.html", nil)
		return
	}

	creds := credentials{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}
	if err := g.auth.CallJSON(r.Context(), http.MethodPost, "/register", creds, nil); err != nil {
		g.Logger().WithContext(r.Context()).WithError(err).Warn("register")
		g.flash.Add(w, r, "Registration failed. "+failureReason(err))
		g.render(w, r, http.StatusOK, "register.html", nil)
		return
	}

	g.flash.Add(w, r, "Registration successful. Please log in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (g *Gateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearTokenCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// failureReason is the user-facing part of a downstream error. Only client
// errors carry a message meant for the user.
func failureReason(err error) string {
	if se := svcerrors.GetServiceError(err); se != nil && se.HTTPStatus >= 400 && se.HTTPStatus < 500 {
		return se.Message
	}
	return "Please try again later."
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
