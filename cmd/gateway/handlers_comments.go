package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	svcerrors "github.com/postboard/service_layer/internal/errors"
)

// =============================================================================
// Comment Handlers
// =============================================================================

func (g *Gateway) handleAddComment(w http.ResponseWriter, r *http.Request) {
	rawID := mux.Vars(r)["post_id"]
	postID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		g.notFound(w, r)
		return
	}

	in := commentInput{
		PostID:  postID,
		Content: strings.TrimSpace(r.FormValue("content")),
		Token:   tokenFromRequest(r),
	}
	if err := g.comments.CallJSON(r.Context(), http.MethodPost, "/comments", in, nil); err != nil {
		g.Logger().WithContext(r.Context()).WithError(err).Warn("add comment")
		g.flash.Add(w, r, "An error occurred while adding the comment.")
	} else {
		g.flash.Add(w, r, "Comment added successfully.")
	}
	http.Redirect(w, r, "/"+rawID, http.StatusSeeOther)
}

func (g *Gateway) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	err := g.comments.CallJSON(r.Context(), http.MethodDelete, "/comments/"+vars["id"], tokenBody{Token: tokenFromRequest(r)}, nil)
	switch {
	case err == nil:
		g.flash.Add(w, r, "Comment deleted successfully.")
	case svcerrors.IsForbidden(err):
		g.flash.Add(w, r, "You can only delete your own comments.")
	case svcerrors.IsNotFound(err):
		g.flash.Add(w, r, "Comment not found.")
	default:
		g.Logger().WithContext(r.Context()).WithError(err).Warn("delete comment")
		g.flash.Add(w, r, "An error occurred while deleting the comment.")
	}
	http.Redirect(w, r, "/"+vars["post_id"], http.StatusSeeOther)
}
