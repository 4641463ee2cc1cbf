// Package main provides the Postboard gateway: the HTML front end that
// composes the post, comment, auth and template services.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/postboard/service_layer/internal/config"
	"github.com/postboard/service_layer/internal/logging"
	"github.com/postboard/service_layer/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(config.ServiceGateway, cfg.LogLevel, cfg.LogFormat)
	if err := run(context.Background(), cfg, logger); err != nil {
		logger.WithError(err).Fatal("gateway exited")
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	if err := cfg.Validate(config.ServiceGateway); err != nil {
		return err
	}

	urls := make(map[string]string, 4)
	for _, name := range []string{config.ServicePosts, config.ServiceComments, config.ServiceAuth, config.ServiceRender} {
		url, err := cfg.ServiceURL(name)
		if err != nil {
			return err
		}
		urls[name] = url
	}

	gw, err := NewGateway(GatewayConfig{
		Logger:        logger,
		PostsURL:      urls[config.ServicePosts],
		CommentsURL:   urls[config.ServiceComments],
		AuthURL:       urls[config.ServiceAuth],
		RenderURL:     urls[config.ServiceRender],
		Timeout:       cfg.HTTPTimeout,
		SecretKey:     []byte(cfg.SecretKey),
		AuthRateLimit: cfg.AuthRateLimit,
		AuthRateBurst: cfg.AuthRateBurst,
	})
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := gw.Start(ctx); err != nil {
		return fmt.Errorf("start gateway: %w", err)
	}

	port, err := cfg.ListenPort(config.ServiceGateway)
	if err != nil {
		return err
	}

	return server.Run(ctx, server.Config{
		Port:            port,
		Handler:         gw,
		Logger:          logger,
		ShutdownTimeout: cfg.ShutdownTimeout,
		OnShutdown: func() {
			_ = gw.Stop()
		},
	})
}
