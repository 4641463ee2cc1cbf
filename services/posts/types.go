package posts

import (
	"strings"

	svcerrors "github.com/postboard/service_layer/internal/errors"
)

// CreateRequest is the body of /create and /{id}/edit.
type CreateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Token   string `json:"token"`
}

func (r *CreateRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return svcerrors.MissingField("title")
	}
	return nil
}

// DeleteRequest is the body of /{id}/delete.
type DeleteRequest struct {
	Token string `json:"token"`
}

// storageBody is what Storage accepts for create and update. The caller's
// identity is not forwarded: posts carry no author.
type storageBody struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}
