package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	svcerrors "github.com/postboard/service_layer/internal/errors"
	"github.com/postboard/service_layer/internal/httputil"
)

const invalidRequest = "Invalid request. 'template' and 'context' are required."

// RenderRequest is the body of POST /render.
type RenderRequest struct {
	Template string          `json:"template"`
	Context  json.RawMessage `json:"context"`
}

func (r *RenderRequest) Validate() error {
	if r.Template == "" || len(bytes.TrimSpace(r.Context)) == 0 {
		return svcerrors.BadRequest(invalidRequest)
	}
	return nil
}

// RenderResponse carries the rendered markup.
type RenderResponse struct {
	Rendered string `json:"rendered"`
}

func (s *Service) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	data, ok := decodeContext(req.Context)
	if !ok {
		httputil.BadRequest(w, "Invalid context. Must be a dictionary.")
		return
	}

	if !s.templates.Has(req.Template) {
		s.Logger().WithContext(r.Context()).WithField("template", req.Template).Warn("template not found")
		httputil.NotFound(w, fmt.Sprintf("Template '%s' not found", req.Template))
		return
	}

	out, err := s.templates.Render(req.Template, data)
	if err != nil {
		s.Logger().WithContext(r.Context()).WithError(err).WithField("template", req.Template).Error("render failed")
		httputil.InternalError(w, "Error rendering template")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RenderResponse{Rendered: out})
}

// decodeContext accepts only a JSON object. Numbers are kept as json.Number.
func decodeContext(raw json.RawMessage) (map[string]interface{}, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data map[string]interface{}
	if err := dec.Decode(&data); err != nil || data == nil {
		return nil, false
	}
	return data, true
}
