package posts

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/postboard/service_layer/internal/httputil"
	"github.com/postboard/service_layer/internal/serviceauth"
)

// =============================================================================
// Read Handlers (unauthenticated passthrough)
// =============================================================================

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	page, perPage := httputil.ParsePagination(r)
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	s.forward(w, r, http.MethodGet, "/posts?"+q.Encode(), nil)
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.forward(w, r, http.MethodGet, fmt.Sprintf("/posts/%d", id), nil)
}

// =============================================================================
// Mutating Handlers (validate, then forward)
// =============================================================================

func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	ctx, ok := s.authorize(w, r, req.Token)
	if !ok {
		return
	}
	s.forward(w, r.WithContext(ctx), http.MethodPost, "/posts", storageBody{Title: req.Title, Content: req.Content})
}

func (s *Service) handleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	ctx, ok := s.authorize(w, r, req.Token)
	if !ok {
		return
	}
	s.forward(w, r.WithContext(ctx), http.MethodPut, fmt.Sprintf("/posts/%d", id), storageBody{Title: req.Title, Content: req.Content})
}

func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req DeleteRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	ctx, ok := s.authorize(w, r, req.Token)
	if !ok {
		return
	}
	s.forward(w, r.WithContext(ctx), http.MethodDelete, fmt.Sprintf("/posts/%d", id), nil)
}

// =============================================================================
// Helpers
// =============================================================================

// authorize validates token via the auth service. On failure the response
// is written and storage is never contacted.
func (s *Service) authorize(w http.ResponseWriter, r *http.Request, token string) (context.Context, bool) {
	id, err := s.validator.Validate(r.Context(), token)
	if err != nil {
		s.Logger().WithContext(r.Context()).WithError(err).Warn("post mutation rejected")
		httputil.WriteServiceError(w, r, err)
		return nil, false
	}
	return serviceauth.WithIdentity(r.Context(), id), true
}

// forward calls storage and relays its status and body unchanged.
func (s *Service) forward(w http.ResponseWriter, r *http.Request, method, path string, body interface{}) {
	resp, err := s.storage.Do(r.Context(), method, path, body)
	if err != nil {
		s.Logger().WithContext(r.Context()).WithError(err).Error("storage call failed")
		httputil.WriteServiceError(w, r, err)
		return
	}
	if err := httputil.Relay(w, resp); err != nil {
		s.Logger().WithContext(r.Context()).WithError(err).Warn("relay storage response")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := httputil.PathInt64(mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return 0, false
	}
	return id, true
}
