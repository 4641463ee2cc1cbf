package render

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postboard/service_layer/internal/logging"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := New(Config{Logger: logging.NewNop()})
	require.NoError(t, err)
	return svc
}

func postRender(t *testing.T, svc *Service, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/render", strings.NewReader(body)))
	return rec
}

func rendered(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out RenderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Rendered
}

func TestEmbeddedTemplatesAreComplete(t *testing.T) {
	templates, err := LoadTemplates()
	require.NoError(t, err)

	for _, name := range []string{"base.html", "index.html", "post.html", "create.html", "edit.html", "login.html", "register.html", "404.html", "500.html"} {
		assert.True(t, templates.Has(name), name)
	}
	assert.False(t, templates.Has("admin.html"))
}

func TestRenderIndex(t *testing.T) {
	svc := newTestService(t)

	html := rendered(t, postRender(t, svc, `{"template":"index.html","context":{
		"posts":[{"id":1,"title":"Hello"},{"id":2,"title":"World"}],
		"page":1,"total_pages":2,"logged_in":true,"messages":["Saved!"]}}`))

	assert.Contains(t, html, `<a href="/1">Hello</a>`)
	assert.Contains(t, html, `<a href="/2/edit">Edit</a>`)
	assert.Contains(t, html, "Page 1 of 2")
	assert.Contains(t, html, `href="?page=2"`)
	assert.Contains(t, html, "Saved!")
	assert.Contains(t, html, "Log Out")
}

func TestRenderEscapesUserContent(t *testing.T) {
	svc := newTestService(t)

	html := rendered(t, postRender(t, svc, `{"template":"post.html","context":{
		"post":{"id":3,"title":"<script>alert(1)</script>","content":"x"},
		"comments":[{"id":9,"content":"nice","author":"alice"}],
		"page":1,"total_pages":1,"logged_in":true,"username":"alice"}}`))

	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, `action="/3/comments/9/delete"`)
	assert.Contains(t, html, `action="/add_comment/3"`)
}

func TestRenderHidesDeleteForOtherAuthors(t *testing.T) {
	svc := newTestService(t)

	html := rendered(t, postRender(t, svc, `{"template":"post.html","context":{
		"post":{"id":3,"title":"t","content":"c"},
		"comments":[{"id":9,"content":"nice","author":"bob"}],
		"page":1,"total_pages":1,"username":"alice"}}`))

	assert.NotContains(t, html, "/comments/9/delete")
	assert.NotContains(t, html, "add_comment")
}

func TestRenderEmptyContext(t *testing.T) {
	svc := newTestService(t)

	html := rendered(t, postRender(t, svc, `{"template":"404.html","context":{}}`))
	assert.Contains(t, html, "Page Not Found")
	assert.Contains(t, html, "Log In")
}

func TestRenderRequestErrors(t *testing.T) {
	svc := newTestService(t)

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"missing template", `{"context":{}}`, http.StatusBadRequest},
		{"missing context", `{"template":"index.html"}`, http.StatusBadRequest},
		{"array context", `{"template":"index.html","context":[1,2]}`, http.StatusBadRequest},
		{"string context", `{"template":"index.html","context":"x"}`, http.StatusBadRequest},
		{"unknown template", `{"template":"nope.html","context":{}}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postRender(t, svc, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestRenderExecutionFailure(t *testing.T) {
	fsys := fstest.MapFS{
		"tpl/base.html":   {Data: []byte(`{{block "content" .}}{{end}}`)},
		"tpl/broken.html": {Data: []byte(`{{define "content"}}{{index .items 5}}{{end}}`)},
	}
	templates, err := loadTemplates(fsys, "tpl")
	require.NoError(t, err)

	svc, err := New(Config{Logger: logging.NewNop(), Templates: templates})
	require.NoError(t, err)

	rec := postRender(t, svc, `{"template":"broken.html","context":{"items":[1]}}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error rendering template")
}

func TestHealthExecutesLayout(t *testing.T) {
	svc := newTestService(t)

	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", bytes.NewReader(nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"templates":"healthy"`)
}
