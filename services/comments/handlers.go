package comments

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/postboard/service_layer/internal/database"
	svcerrors "github.com/postboard/service_layer/internal/errors"
	"github.com/postboard/service_layer/internal/httputil"
	"github.com/postboard/service_layer/internal/logging"
)

// =============================================================================
// HTTP Handlers
// =============================================================================

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	postID, err := httputil.PathInt64(mux.Vars(r)["post_id"])
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	page, perPage := httputil.ParsePagination(r)

	comments, total, err := s.store.ListComments(r.Context(), postID, perPage, (page-1)*perPage)
	if err != nil {
		s.internalError(w, r, "Failed to fetch comments", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ListResponse{
		Comments:   comments,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: database.TotalPages(total, perPage),
	})
}

func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	identity, err := s.validator.Validate(r.Context(), req.Token)
	if err != nil {
		s.Logger().WithContext(r.Context()).WithError(err).Warn("comment create rejected")
		httputil.WriteServiceError(w, r, err)
		return
	}
	ctx := logging.WithUser(r.Context(), fmt.Sprint(identity.UserID), identity.Username)

	id, err := s.store.CreateComment(ctx, req.PostID, req.Content, identity.Username)
	if err != nil {
		s.internalError(w, r.WithContext(ctx), "Failed to add comment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, CreateResponse{ID: id, Message: "Comment added successfully"})
}

func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathInt64(mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	var req DeleteRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	identity, err := s.validator.Validate(r.Context(), req.Token)
	if err != nil {
		s.Logger().WithContext(r.Context()).WithError(err).Warn("comment delete rejected")
		httputil.WriteServiceError(w, r, err)
		return
	}
	ctx := logging.WithUser(r.Context(), fmt.Sprint(identity.UserID), identity.Username)

	if err := s.store.DeleteComment(ctx, id, identity.Username); err != nil {
		if svcerrors.IsForbidden(err) {
			s.Logger().LogSecurityEvent(ctx, "comment_delete_forbidden", map[string]interface{}{"comment_id": id})
		}
		if svcerrors.GetServiceError(err) != nil {
			httputil.WriteServiceError(w, r, err)
			return
		}
		s.internalError(w, r.WithContext(ctx), "Failed to delete comment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Comment deleted successfully"})
}

func (s *Service) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	s.Logger().WithContext(r.Context()).WithError(err).Error(message)
	httputil.WriteServiceError(w, r, svcerrors.Internal(message, err))
}
