package main

import (
	"io"
	"net/http"
)

type renderRequest struct {
	Template string                 `json:"template"`
	Context  map[string]interface{} `json:"context"`
}

type renderResponse struct {
	Rendered string `json:"rendered"`
}

// render asks the template service for name and writes it with status.
// Flash messages and the login state are added to data. If the template
// service fails, a plain-text 500 is written instead.
func (g *Gateway) render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["messages"] = g.flash.Pop(w, r)
	data["logged_in"] = tokenFromRequest(r) != ""

	var out renderResponse
	err := g.renderer.CallJSON(r.Context(), http.MethodPost, "/render", renderRequest{Template: name, Context: data}, &out)
	if err != nil {
		g.Logger().WithContext(r.Context()).WithError(err).WithField("template", name).Error("render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, out.Rendered)
}

// serverError logs err and renders the 500 page.
func (g *Gateway) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	g.Logger().WithContext(r.Context()).WithError(err).Error(msg)
	g.render(w, r, http.StatusInternalServerError, "500.html", nil)
}

func (g *Gateway) notFound(w http.ResponseWriter, r *http.Request) {
	g.render(w, r, http.StatusNotFound, "404.html", nil)
}

func (g *Gateway) handlePanic(w http.ResponseWriter, r *http.Request) {
	g.render(w, r, http.StatusInternalServerError, "500.html", nil)
}

// currentUsername resolves the logged-in user for display. Failures are
// treated as anonymous.
func (g *Gateway) currentUsername(r *http.Request) string {
	token := tokenFromRequest(r)
	if token == "" {
		return ""
	}
	id, err := g.validator.Validate(r.Context(), token)
	if err != nil {
		g.Logger().WithContext(r.Context()).WithError(err).Debug("token not usable for display")
		return ""
	}
	return id.Username
}

