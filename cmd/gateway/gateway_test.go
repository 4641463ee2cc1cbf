package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postboard/service_layer/internal/httputil"
	"github.com/postboard/service_layer/internal/logging"
	"github.com/postboard/service_layer/services/render"
)

// fakeBackends stands in for the post, comment and auth services. The
// template service is real so pages can be asserted on.
type fakeBackends struct {
	posts    *mux.Router
	comments *mux.Router
	auth     *mux.Router
	calls    atomic.Int32
}

func newFakeBackends() *fakeBackends {
	f := &fakeBackends{posts: mux.NewRouter(), comments: mux.NewRouter(), auth: mux.NewRouter()}
	for _, r := range []*mux.Router{f.posts, f.comments, f.auth} {
		r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		})
	}
	f.auth.HandleFunc("/validate", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusUnauthorized, map[string]interface{}{"valid": false, "reason": "invalid"})
	})
	return f
}

func (f *fakeBackends) counting(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" && r.URL.Path != "/validate" {
			f.calls.Add(1)
		}
		h.ServeHTTP(w, r)
	})
}

func newTestGateway(t *testing.T, f *fakeBackends, tweak func(*GatewayConfig)) *Gateway {
	t.Helper()

	renderer, err := render.New(render.Config{Logger: logging.NewNop()})
	require.NoError(t, err)

	servers := map[string]*httptest.Server{
		"posts":    httptest.NewServer(f.counting(f.posts)),
		"comments": httptest.NewServer(f.counting(f.comments)),
		"auth":     httptest.NewServer(f.counting(f.auth)),
		"render":   httptest.NewServer(renderer),
	}
	for _, s := range servers {
		t.Cleanup(s.Close)
	}

	cfg := GatewayConfig{
		Logger:      logging.NewNop(),
		PostsURL:    servers["posts"].URL,
		CommentsURL: servers["comments"].URL,
		AuthURL:     servers["auth"].URL,
		RenderURL:   servers["render"].URL,
		SecretKey:   []byte("flash-secret"),
	}
	if tweak != nil {
		tweak(&cfg)
	}
	gw, err := NewGateway(cfg)
	require.NoError(t, err)
	return gw
}

func serve(gw *Gateway, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)
	return rec
}

func form(method, target string, values url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}

var tokenCookie = &http.Cookie{Name: tokenCookieName, Value: "tok"}

// =============================================================================
// Auth
// =============================================================================

func TestMutationsWithoutCookieRedirectToLogin(t *testing.T) {
	f := newFakeBackends()
	gw := newTestGateway(t, f, nil)

	for _, target := range []string{"/create", "/1/edit", "/1/delete", "/add_comment/1", "/1/comments/2/delete"} {
		rec := serve(gw, form(http.MethodPost, target, url.Values{"title": {"x"}}))
		assert.Equal(t, http.StatusSeeOther, rec.Code, target)
		assert.Equal(t, "/login", rec.Header().Get("Location"), target)
	}
	assert.Zero(t, f.calls.Load())
}

func TestLoginSetsHardenedCookie(t *testing.T) {
	f := newFakeBackends()
	f.auth.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"token": "signed-token"})
	})
	gw := newTestGateway(t, f, nil)

	rec := serve(gw, form(http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"pw1"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	c := cookieNamed(rec, tokenCookieName)
	require.NotNil(t, c)
	assert.Equal(t, "signed-token", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 86400, c.MaxAge)
}

func TestLoginFailureFlashes(t *testing.T) {
	f := newFakeBackends()
	f.auth.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	})
	gw := newTestGateway(t, f, nil)

	rec := serve(gw, form(http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"bad"}}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials or service error")
	assert.Nil(t, cookieNamed(rec, tokenCookieName))
}

func TestRegisterConflictFlashesReason(t *testing.T) {
	f := newFakeBackends()
	f.auth.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusConflict, map[string]string{"error": "User already exists"})
	})
	gw := newTestGateway(t, f, nil)

	rec := serve(gw, form(http.MethodPost, "/register", url.Values{"username": {"alice"}, "password": {"pw"}}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Registration failed. User already exists")
}

func TestRegisterServerErrorFlashesGenericReason(t *testing.T) {
	f := newFakeBackends()
	f.auth.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "Registration failed", "code": "INTERNAL"})
	})
	gw := newTestGateway(t, f, nil)

	rec := serve(gw, form(http.MethodPost, "/register", url.Values{"username": {"alice"}, "password": {"pw"}}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Registration failed. Please try again later.")
	assert.NotContains(t, rec.Body.String(), "Registration failed. Registration failed")
}

func TestRegisterSuccessFlashSurvivesRedirect(t *testing.T) {
	f := newFakeBackends()
	f.auth.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{"id": 1, "message": "User created successfully"})
	})
	gw := newTestGateway(t, f, nil)

	rec := serve(gw, form(http.MethodPost, "/register", url.Values{"username": {"alice"}, "password": {"pw"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	flash := cookieNamed(rec, flashCookieName)
	require.NotNil(t, flash)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(flash)
	rec = serve(gw, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Registration successful. Please log in.")

	cleared := cookieNamed(rec, flashCookieName)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestLogoutClearsCookie(t *testing.T) {
	gw := newTestGateway(t, newFakeBackends(), nil)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(tokenCookie)
	rec := serve(gw, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	c := cookieNamed(rec, tokenCookieName)
	require.NotNil(t, c)
	assert.Less(t, c.MaxAge, 0)
}

func TestLoginIsRateLimitedPerIP(t *testing.T) {
	f := newFakeBackends()
	var attempts atomic.Int32
	f.auth.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		httputil.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	})
	gw := newTestGateway(t, f, func(c *GatewayConfig) {
		c.AuthRateLimit = 0.001
		c.AuthRateBurst = 1
	})

	first := serve(gw, form(http.MethodPost, "/login", url.Values{"username": {"a"}, "password": {"b"}}))
	assert.Equal(t, http.StatusOK, first.Code)

	second := serve(gw, form(http.MethodPost, "/login", url.Values{"username": {"a"}, "password": {"b"}}))
	assert.Equal(t, http.StatusSeeOther, second.Code)
	assert.Equal(t, "/login", second.Header().Get("Location"))
	assert.EqualValues(t, 1, attempts.Load())

	// Viewing the form is never throttled.
	assert.Equal(t, http.StatusOK, serve(gw, httptest.NewRequest(http.MethodGet, "/login", nil)).Code)
}

// =============================================================================
// Posts
// =============================================================================

func TestIndexRendersPosts(t *testing.T) {
	f := newFakeBackends()
	f.posts.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"posts": []post{{ID: 1, Title: "Hello"}}, "total": 11, "page": 2, "per_page": 10, "total_pages": 2,
		})
	})
	gw := newTestGateway(t, f, nil)

	rec := serve(gw, httptest.NewRequest(http.MethodGet, "/?page=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Hello")
	assert.Contains(t, rec.Body.String(), "Page 2 of 2")
}

func TestIndexDownstreamFailureRenders500(t *testing.T) {
	f := newFakeBackends()
	f.posts.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "storage service unavailable"})
	})
	gw := newTestGateway(t, f, nil)

	rec := serve(gw, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong")
	assert.NotContains(t, rec.Body.String(), "storage service unavailable")
}

func TestPostPageComposesPostAndComments(t *testing.T) {
	f := newFakeBackends()
	f.posts.HandleFunc("/7", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, post{ID: 7, Title: "Seven", Content: "body"})
	})
	f.comments.HandleFunc("/comments/7", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"comments": []comment{{ID: 1, PostID: 7, Content: "first!", Author: "bob"}},
			"total":    1, "page": 1, "per_page": 10, "total_pages": 1,
		})
	})
	gw := newTestGateway(t, f, nil)

	rec := serve(gw, httptest.NewRequest(http.MethodGet, "/7", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Seven")
	assert.Contains(t, rec.Body.String(), "first!")
}

func TestPostPageMissingPostRenders404(t *testing.T) {
	f := newFakeBackends()
	f.posts.HandleFunc("/9", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "Post not found"})
	})
	f.comments.HandleFunc("/comments/9", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"comments": []comment{}})
	})
	gw := newTestGateway(t, f, nil)

	rec := serve(gw, httptest.NewRequest(http.MethodGet, "/9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page Not Found")
}

func TestPostPageCommentFailureRenders500(t *testing.T) {
	f := newFakeBackends()
	f.posts.HandleFunc("/7", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, post{ID: 7, Title: "Seven"})
	})
	f.comments.HandleFunc("/comments/7", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	gw := newTestGateway(t, f, nil)

	rec := serve(gw, httptest.NewRequest(http.MethodGet, "/7", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCreateRequiresTitle(t *testing.T) {
	f := newFakeBackends()
	gw := newTestGateway(t, f, nil)

	rec := serve(gw, form(http.MethodPost, "/create", url.Values{"title": {"  "}, "content": {"draft"}}, tokenCookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Title is required!")
	assert.Contains(t, rec.Body.String(), "draft")
	assert.Zero(t, f.calls.Load())
}

func TestCreateForwardsTokenAndRedirects(t *testing.T) {
	f := newFakeBackends()
	var got postInput
	f.posts.HandleFunc("/create", func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, httputil.DecodeJSON(w, r, &got))
		httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{"id": 1})
	}).Methods(http.MethodPost)
	gw := newTestGateway(t, f, nil)

	rec := serve(gw, form(http.MethodPost, "/create", url.Values{"title": {"Hi"}, "content": {"there"}}, tokenCookie))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, postInput{Title: "Hi", Content: "there", Token: "tok"}, got)
}

func TestCreateDownstreamRejectionRerendersForm(t *testing.T) {
	f := newFakeBackends()
	f.posts.HandleFunc("/create", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "Token has expired"})
	})
	gw := newTestGateway(t, f, nil)

	rec := serve(gw, form(http.MethodPost, "/create", url.Values{"title": {"Hi"}}, tokenCookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "An error occurred while creating the post.")
}

func TestDeleteFlashesDeletedTitle(t *testing.T) {
	f := newFakeBackends()
	f.posts.HandleFunc("/3/delete", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Post deleted successfully", "title": "Hello"})
	}).Methods(http.MethodDelete)
	gw := newTestGateway(t, f, nil)

	rec := serve(gw, form(http.MethodPost, "/3/delete", nil, tokenCookie))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	flash := cookieNamed(rec, flashCookieName)
	require.NotNil(t, flash)
	assert.Equal(t, []string{`"Hello" was successfully deleted!`}, gw.flash.decode(flash.Value))
}

func TestDeleteFailureFlashes(t *testing.T) {
	f := newFakeBackends()
	f.posts.HandleFunc("/3/delete", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "Post not found"})
	})
	gw := newTestGateway(t, f, nil)

	rec := serve(gw, form(http.MethodPost, "/3/delete", nil, tokenCookie))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, []string{"An error occurred while deleting the post."}, gw.flash.decode(cookieNamed(rec, flashCookieName).Value))
}

// =============================================================================
// Comments
// =============================================================================

func TestDeleteCommentDistinguishesForbiddenAndNotFound(t *testing.T) {
	f := newFakeBackends()
	f.comments.HandleFunc("/comments/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch mux.Vars(r)["id"] {
		case "1":
			httputil.WriteJSON(w, http.StatusForbidden, map[string]string{"error": "Unauthorized to delete this comment"})
		case "2":
			httputil.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "Comment not found"})
		default:
			httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Comment deleted successfully"})
		}
	}).Methods(http.MethodDelete)
	gw := newTestGateway(t, f, nil)

	cases := map[string]string{
		"1": "You can only delete your own comments.",
		"2": "Comment not found.",
		"3": "Comment deleted successfully.",
	}
	for id, want := range cases {
		rec := serve(gw, form(http.MethodPost, "/5/comments/"+id+"/delete", nil, tokenCookie))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/5", rec.Header().Get("Location"))
		assert.Equal(t, []string{want}, gw.flash.decode(cookieNamed(rec, flashCookieName).Value), id)
	}
}

func TestAddCommentRedirectsToPost(t *testing.T) {
	f := newFakeBackends()
	var got commentInput
	f.comments.HandleFunc("/comments", func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, httputil.DecodeJSON(w, r, &got))
		httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{"id": 1})
	}).Methods(http.MethodPost)
	gw := newTestGateway(t, f, nil)

	rec := serve(gw, form(http.MethodPost, "/add_comment/4", url.Values{"content": {"nice"}}, tokenCookie))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/4", rec.Header().Get("Location"))
	assert.Equal(t, commentInput{PostID: 4, Content: "nice", Token: "tok"}, got)
	assert.Equal(t, []string{"Comment added successfully."}, gw.flash.decode(cookieNamed(rec, flashCookieName).Value))
}

// =============================================================================
// Errors & Health
// =============================================================================

func TestUnknownRouteRenders404Page(t *testing.T) {
	gw := newTestGateway(t, newFakeBackends(), nil)

	rec := serve(gw, httptest.NewRequest(http.MethodGet, "/no/such/page", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page Not Found")
}

func TestPanicRenders500Page(t *testing.T) {
	gw := newTestGateway(t, newFakeBackends(), nil)
	gw.Router().HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) { panic("boom") })

	rec := serve(gw, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong")
}

func TestRendererDownFallsBackToPlainText(t *testing.T) {
	f := newFakeBackends()
	f.posts.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"posts": []post{}, "page": 1, "total_pages": 0})
	})
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()
	gw := newTestGateway(t, f, func(c *GatewayConfig) { c.RenderURL = deadURL })

	rec := serve(gw, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
}

func TestHealthFansOut(t *testing.T) {
	f := newFakeBackends()
	gw := newTestGateway(t, f, nil)

	rec := serve(gw, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, name := range []string{"post", "auth", "template", "comment"} {
		assert.Contains(t, rec.Body.String(), `"`+name+`":"healthy"`)
	}

	down := newFakeBackends()
	down.comments = mux.NewRouter()
	gw2 := newTestGateway(t, down, nil)
	rec = serve(gw2, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"comment":"unhealthy"`)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)
}

func TestNewGatewayRequiresSecret(t *testing.T) {
	_, err := NewGateway(GatewayConfig{PostsURL: "x", CommentsURL: "x", AuthURL: "x", RenderURL: "x"})
	assert.Error(t, err)
}

func TestStartLaunchesLimiterCleanup(t *testing.T) {
	gw := newTestGateway(t, newFakeBackends(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, gw.Start(ctx))
	assert.Equal(t, 1, gw.WorkerCount())
}
