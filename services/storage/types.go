package storage

import (
	"strings"

	svcerrors "github.com/postboard/service_layer/internal/errors"
)

// Post is a stored blog post.
type Post struct {
	ID      int64  `db:"id" json:"id"`
	Title   string `db:"title" json:"title"`
	Content string `db:"content" json:"content"`
}

// PostInput is the body of create and update.
type PostInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (in *PostInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return svcerrors.MissingField("title")
	}
	return nil
}

type ListResponse struct {
	Posts      []Post `json:"posts"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	TotalPages int    `json:"total_pages"`
}

type CreateResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
	Title   string `json:"title,omitempty"`
}
