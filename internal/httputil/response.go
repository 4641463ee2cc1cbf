package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	svcerrors "github.com/postboard/service_layer/internal/errors"
)

// =============================================================================
// Responses
// =============================================================================

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteErrorResponse writes the standard error body {error, code, details}.
func WriteErrorResponse(w http.ResponseWriter, _ *http.Request, status int, code, message string, details map[string]interface{}) {
	body := map[string]interface{}{
		"error": message,
		"code":  code,
	}
	if len(details) > 0 {
		body["details"] = details
	}
	WriteJSON(w, status, body)
}

// WriteServiceError renders err using its ServiceError mapping.
// Unknown errors become a generic 500 without leaking their text.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	se := svcerrors.GetServiceError(err)
	if se == nil {
		se = svcerrors.Internal("internal error", err)
	}
	WriteErrorResponse(w, r, se.HTTPStatus, string(se.Code), se.Message, se.Details)
}

func BadRequest(w http.ResponseWriter, message string) {
	WriteServiceError(w, nil, svcerrors.BadRequest(message))
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteServiceError(w, nil, svcerrors.Unauthorized(message))
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteServiceError(w, nil, svcerrors.Forbidden(message))
}

func NotFound(w http.ResponseWriter, message string) {
	WriteServiceError(w, nil, svcerrors.NotFound(message))
}

func InternalError(w http.ResponseWriter, message string) {
	WriteServiceError(w, nil, svcerrors.Internal(message, nil))
}

// =============================================================================
// Requests
// =============================================================================

// Validatable is implemented by request types with required fields.
type Validatable interface {
	Validate() error
}

// DecodeJSON decodes the request body into v and runs v.Validate when present.
// On failure it writes a 400 response and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		BadRequest(w, "request body required")
		return false
	}
	body, err := ReadAllStrict(r.Body, 1<<20)
	if err != nil {
		BadRequest(w, "request body too large")
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		BadRequest(w, "request body required")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		BadRequest(w, "invalid JSON body")
		return false
	}
	if val, ok := v.(Validatable); ok {
		if err := val.Validate(); err != nil {
			WriteServiceError(w, r, err)
			return false
		}
	}
	return true
}

// QueryInt parses an integer query parameter, returning def when absent or malformed.
func QueryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// Pagination defaults shared by list endpoints.
const (
	DefaultPerPage = 10
	MaxPerPage     = 100
	// MaxPage keeps (page-1)*per_page within int.
	MaxPage = math.MaxInt / MaxPerPage
)

// ParsePagination reads page and per_page. page < 1 becomes 1 and is capped
// at MaxPage; per_page defaults to DefaultPerPage and is capped at MaxPerPage.
func ParsePagination(r *http.Request) (page, perPage int) {
	page = QueryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	perPage = QueryInt(r, "per_page", DefaultPerPage)
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// PathInt64 parses a numeric path segment.
func PathInt64(raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, svcerrors.BadRequest(fmt.Sprintf("invalid id %q", raw))
	}
	return v, nil
}

// =============================================================================
// Body Reading
// =============================================================================

var errBodyTooLarge = errors.New("body exceeds limit")

// ReadAllWithLimit reads at most limit bytes and reports whether the body was truncated.
func ReadAllWithLimit(r io.Reader, limit int64) ([]byte, bool, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(body)) > limit {
		return body[:limit], true, nil
	}
	return body, false, nil
}

// ReadAllStrict reads the body and fails if it exceeds limit.
func ReadAllStrict(r io.Reader, limit int64) ([]byte, error) {
	body, truncated, err := ReadAllWithLimit(r, limit)
	if err != nil {
		return nil, err
	}
	if truncated {
		return nil, errBodyTooLarge
	}
	return body, nil
}
