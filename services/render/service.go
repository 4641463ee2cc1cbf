// Package render implements the template renderer: it turns a template name
// and a JSON context into HTML.
package render

import (
	"context"

	"github.com/postboard/service_layer/internal/logging"
	commonservice "github.com/postboard/service_layer/services/common/service"
)

const (
	ServiceID   = "render"
	ServiceName = "Template Service"
	Version     = "1.0.0"
)

// Service renders embedded templates over HTTP.
type Service struct {
	*commonservice.BaseService
	templates *Templates
}

// Config configures the renderer.
type Config struct {
	Logger *logging.Logger
	// Templates overrides the embedded set (tests).
	Templates *Templates
}

// New parses the templates and creates the service.
func New(cfg Config) (*Service, error) {
	templates := cfg.Templates
	if templates == nil {
		var err error
		if templates, err = LoadTemplates(); err != nil {
			return nil, err
		}
	}

	base := commonservice.NewBase(&commonservice.BaseConfig{
		ID:      ServiceID,
		Name:    ServiceName,
		Version: Version,
		Logger:  cfg.Logger,
	})

	s := &Service{BaseService: base, templates: templates}
	base.AddHealthCheck("templates", func(context.Context) error { return templates.Check() })
	base.WithStats(func() map[string]any {
		return map[string]any{"templates": templates.Names()}
	})

	base.RegisterStandardRoutes()
	s.registerRoutes()

	return s, nil
}

func (s *Service) registerRoutes() {
	s.Router().HandleFunc("/render", s.handleRender).Methods("POST")
}
