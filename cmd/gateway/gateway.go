package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/postboard/service_layer/internal/httputil"
	"github.com/postboard/service_layer/internal/logging"
	"github.com/postboard/service_layer/internal/middleware"
	"github.com/postboard/service_layer/internal/serviceauth"
	commonservice "github.com/postboard/service_layer/services/common/service"
)

const (
	ServiceID   = "gateway"
	ServiceName = "Postboard Gateway"
	Version     = "1.0.0"
)

// Gateway serves the HTML front end. It owns no data: every page is composed
// from calls to the post, comment, auth and template services.
type Gateway struct {
	*commonservice.BaseService
	posts     *httputil.ServiceClient
	comments  *httputil.ServiceClient
	auth      *httputil.ServiceClient
	renderer  *httputil.ServiceClient
	validator serviceauth.TokenValidator
	flash     *flashStore
	limiter   *middleware.RateLimiter
}

// GatewayConfig configures the gateway.
type GatewayConfig struct {
	Logger      *logging.Logger
	PostsURL    string
	CommentsURL string
	AuthURL     string
	RenderURL   string
	Timeout     time.Duration
	HTTPClient  *http.Client
	// SecretKey signs the flash cookie.
	SecretKey []byte
	// AuthRateLimit and AuthRateBurst throttle login and register per client IP.
	AuthRateLimit float64
	AuthRateBurst int
}

// NewGateway creates the gateway and registers its routes.
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if cfg.PostsURL == "" || cfg.CommentsURL == "" || cfg.AuthURL == "" || cfg.RenderURL == "" {
		return nil, errors.New("gateway requires post, comment, auth and template service URLs")
	}
	if len(cfg.SecretKey) == 0 {
		return nil, errors.New("gateway requires a secret key")
	}
	if cfg.AuthRateLimit <= 0 {
		cfg.AuthRateLimit = 5
	}
	if cfg.AuthRateBurst <= 0 {
		cfg.AuthRateBurst = 10
	}

	client := func(service, url string) *httputil.ServiceClient {
		return httputil.NewServiceClient(httputil.ServiceClientConfig{
			Service:    service,
			BaseURL:    url,
			Timeout:    cfg.Timeout,
			HTTPClient: cfg.HTTPClient,
		})
	}

	g := &Gateway{
		posts:    client("posts", cfg.PostsURL),
		comments: client("comments", cfg.CommentsURL),
		auth:     client("auth", cfg.AuthURL),
		renderer: client("render", cfg.RenderURL),
		flash:    newFlashStore(cfg.SecretKey),
	}

	g.BaseService = commonservice.NewBase(&commonservice.BaseConfig{
		ID:      ServiceID,
		Name:    ServiceName,
		Version: Version,
		Logger:  cfg.Logger,
		OnPanic: g.handlePanic,
	})
	g.validator = serviceauth.NewClient(g.auth, g.Logger())

	g.limiter = middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst, g.Logger()).
		WithKeyFunc(func(r *http.Request) string { return "ip:" + middleware.ClientIP(r) }).
		WithRejectFunc(g.rejectThrottled)
	g.AddWorker(func(ctx context.Context) { g.limiter.StartCleanup(ctx, time.Minute) })

	g.AddHealthCheck("post", g.posts.CheckHealth)
	g.AddHealthCheck("auth", g.auth.CheckHealth)
	g.AddHealthCheck("template", g.renderer.CheckHealth)
	g.AddHealthCheck("comment", g.comments.CheckHealth)

	g.RegisterStandardRoutes()
	g.registerRoutes()

	return g, nil
}

func (g *Gateway) registerRoutes() {
	router := g.Router()
	router.Use(g.flash.Middleware)

	router.HandleFunc("/", g.handleIndex).Methods("GET")
	router.Handle("/create", g.requireToken(g.handleCreate)).Methods("GET", "POST")
	router.HandleFunc("/{id:[0-9]+}", g.handlePost).Methods("GET")
	router.Handle("/{id:[0-9]+}/edit", g.requireToken(g.handleEdit)).Methods("GET", "POST")
	router.Handle("/{id:[0-9]+}/delete", g.requireToken(g.handleDelete)).Methods("POST")

	router.Handle("/login", g.throttled(g.handleLogin)).Methods("GET", "POST")
	router.Handle("/register", g.throttled(g.handleRegister)).Methods("GET", "POST")
	router.HandleFunc("/logout", g.handleLogout).Methods("GET")

	router.Handle("/add_comment/{post_id:[0-9]+}", g.requireToken(g.handleAddComment)).Methods("POST")
	router.Handle("/{post_id:[0-9]+}/comments/{id:[0-9]+}/delete", g.requireToken(g.handleDeleteComment)).Methods("POST")

	router.NotFoundHandler = g.flash.Middleware(http.HandlerFunc(g.notFound))
}
