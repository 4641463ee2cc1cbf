package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"

	svcerrors "github.com/postboard/service_layer/internal/errors"
	"github.com/postboard/service_layer/internal/httputil"
	"github.com/postboard/service_layer/internal/logging"
)

// PanicHandler writes the response after a recovered panic.
type PanicHandler func(w http.ResponseWriter, r *http.Request)

// RecoveryMiddleware turns handler panics into a 500 response. onPanic may be nil,
// in which case a JSON INTERNAL error is written.
func RecoveryMiddleware(logger *logging.Logger, onPanic PanicHandler) mux.MiddlewareFunc {
	if onPanic == nil {
		onPanic = func(w http.ResponseWriter, r *http.Request) {
			httputil.WriteServiceError(w, r, svcerrors.Internal("internal error", nil))
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.WithContext(r.Context()).
						WithField("panic", fmt.Sprint(rec)).
						WithField("stack", string(debug.Stack())).
						Errorf("recovered panic on %s %s", r.Method, r.URL.Path)
					onPanic(w, r)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
