package comments

import (
	"strings"

	svcerrors "github.com/postboard/service_layer/internal/errors"
)

// Comment is attached to a post by its opaque id.
type Comment struct {
	ID      int64  `db:"id" json:"id"`
	PostID  int64  `db:"post_id" json:"post_id"`
	Content string `db:"content" json:"content"`
	Author  string `db:"author" json:"author"`
}

// CreateRequest is the body of POST /comments. The author is never taken
// from the body; it comes from the validated token.
type CreateRequest struct {
	PostID  int64  `json:"post_id"`
	Content string `json:"content"`
	Token   string `json:"token"`
}

func (r *CreateRequest) Validate() error {
	if r.PostID <= 0 {
		return svcerrors.MissingField("post_id")
	}
	r.Content = strings.TrimSpace(r.Content)
	if r.Content == "" {
		return svcerrors.MissingField("content")
	}
	return nil
}

// DeleteRequest is the body of DELETE /comments/{id}.
type DeleteRequest struct {
	Token string `json:"token"`
}

type ListResponse struct {
	Comments   []Comment `json:"comments"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	TotalPages int       `json:"total_pages"`
}

type CreateResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
