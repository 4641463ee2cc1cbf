package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	svcerrors "github.com/postboard/service_layer/internal/errors"
	"github.com/postboard/service_layer/internal/httputil"
)

// =============================================================================
// Read Pages
// =============================================================================

func (g *Gateway) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := httputil.QueryInt(r, "page", 1)

	var list postList
	if err := g.posts.CallJSON(r.Context(), http.MethodGet, fmt.Sprintf("/?page=%d", page), nil, &list); err != nil {
		g.serverError(w, r, "fetch posts", err)
		return
	}

	g.render(w, r, http.StatusOK, "index.html", map[string]interface{}{
		"posts":       list.Posts,
		"page":        list.Page,
		"total_pages": list.TotalPages,
	})
}

// handlePost fetches the post and its comments concurrently. Both must succeed.
func (g *Gateway) handlePost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	page := httputil.QueryInt(r, "page", 1)

	var (
		p        post
		comments commentList
		username string
	)
	eg, ctx := errgroup.WithContext(r.Context())
	eg.Go(func() error {
		return g.posts.CallJSON(ctx, http.MethodGet, "/"+id, nil, &p)
	})
	eg.Go(func() error {
		return g.comments.CallJSON(ctx, http.MethodGet, fmt.Sprintf("/comments/%s?page=%d", id, page), nil, &comments)
	})
	eg.Go(func() error {
		username = g.currentUsername(r.WithContext(ctx))
		return nil
	})
	if err := eg.Wait(); err != nil {
		if svcerrors.IsNotFound(err) {
			g.notFound(w, r)
			return
		}
		g.serverError(w, r, "fetch post or comments", err)
		return
	}

	g.render(w, r, http.StatusOK, "post.html", map[string]interface{}{
		"post":        p,
		"comments":    comments.Comments,
		"page":        comments.Page,
		"total_pages": comments.TotalPages,
		"username":    username,
	})
}

// =============================================================================
// Mutating Pages
// =============================================================================

func (g *Gateway) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		g.render(w, r, http.StatusOK, "create.html", nil)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	content := r.FormValue("content")
	form := map[string]interface{}{"title": title, "content": content}

	if title == "" {
		g.flash.Add(w, r, "Title is required!")
		g.render(w, r, http.StatusOK, "create.html", form)
		return
	}

	in := postInput{Title: title, Content: content, Token: tokenFromRequest(r)}
	if err := g.posts.CallJSON(r.Context(), http.MethodPost, "/create", in, nil); err != nil {
		g.Logger().WithContext(r.Context()).WithError(err).Warn("create post")
		g.flash.Add(w, r, "An error occurred while creating the post.")
		g.render(w, r, http.StatusOK, "create.html", form)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (g *Gateway) handleEdit(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var p post
	if err := g.posts.CallJSON(r.Context(), http.MethodGet, "/"+id, nil, &p); err != nil {
		if svcerrors.IsNotFound(err) {
			g.notFound(w, r)
			return
		}
		g.serverError(w, r, "fetch post for edit", err)
		return
	}

	if r.Method != http.MethodPost {
		g.render(w, r, http.StatusOK, "edit.html", map[string]interface{}{"post": p})
		return
	}

	p.Title = strings.TrimSpace(r.FormValue("title"))
	p.Content = r.FormValue("content")
	if p.Title == "" {
		g.flash.Add(w, r, "Title is required!")
		g.render(w, r, http.StatusOK, "edit.html", map[string]interface{}{"post": p})
		return
	}

	in := postInput{Title: p.Title, Content: p.Content, Token: tokenFromRequest(r)}
	if err := g.posts.CallJSON(r.Context(), http.MethodPut, "/"+id+"/edit", in, nil); err != nil {
		g.Logger().WithContext(r.Context()).WithError(err).Warn("update post")
		g.flash.Add(w, r, "An error occurred while updating the post.")
		g.render(w, r, http.StatusOK, "edit.html", map[string]interface{}{"post": p})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (g *Gateway) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var res deleteResult
	err := g.posts.CallJSON(r.Context(), http.MethodDelete, "/"+id+"/delete", tokenBody{Token: tokenFromRequest(r)}, &res)
	if err != nil {
		g.Logger().WithContext(r.Context()).WithError(err).Warn("delete post")
		g.flash.Add(w, r, "An error occurred while deleting the post.")
	} else {
		title := res.Title
		if title == "" {
			title = "Post"
		}
		g.flash.Add(w, r, fmt.Sprintf(`"%s" was successfully deleted!`, title))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
