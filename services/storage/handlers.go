package storage

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/postboard/service_layer/internal/database"
	svcerrors "github.com/postboard/service_layer/internal/errors"
	"github.com/postboard/service_layer/internal/httputil"
)

// =============================================================================
// HTTP Handlers
// =============================================================================

func (s *Service) handleListPosts(w http.ResponseWriter, r *http.Request) {
	page, perPage := httputil.ParsePagination(r)

	posts, total, err := s.store.ListPosts(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		s.internalError(w, r, "Failed to fetch posts", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ListResponse{
		Posts:      posts,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: database.TotalPages(total, perPage),
	})
}

func (s *Service) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.internalError(w, r, "Failed to fetch post", err)
		return
	}
	if post == nil {
		httputil.NotFound(w, "Post not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, post)
}

func (s *Service) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var in PostInput
	if !httputil.DecodeJSON(w, r, &in) {
		return
	}

	id, err := s.store.CreatePost(r.Context(), in.Title, in.Content)
	if err != nil {
		s.internalError(w, r, "Failed to create post", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, CreateResponse{ID: id, Message: "Post created successfully"})
}

func (s *Service) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}
	var in PostInput
	if !httputil.DecodeJSON(w, r, &in) {
		return
	}

	found, err := s.store.UpdatePost(r.Context(), id, in.Title, in.Content)
	if err != nil {
		s.internalError(w, r, "Failed to update post", err)
		return
	}
	if !found {
		httputil.NotFound(w, "Post not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Post updated successfully"})
}

func (s *Service) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	post, err := s.store.DeletePost(r.Context(), id)
	if err != nil {
		s.internalError(w, r, "Failed to delete post", err)
		return
	}
	if post == nil {
		httputil.NotFound(w, "Post not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Post deleted successfully", Title: post.Title})
}

// =============================================================================
// Helpers
// =============================================================================

func postID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := httputil.PathInt64(mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return 0, false
	}
	return id, true
}

func (s *Service) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	s.Logger().WithContext(r.Context()).WithError(err).Error(message)
	httputil.WriteServiceError(w, r, svcerrors.Internal(message, fmt.Errorf("%s: %w", message, err)))
}
