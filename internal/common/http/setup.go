package http

import (
	"net/http"

	"github.com/AlibekovAA/defis-users/internal/common/constants"
	"github.com/AlibekovAA/defis-users/internal/common/httpmetrics"
	"github.com/AlibekovAA/defis-users/internal/common/logger"
)

// BuildBaseHandler wraps handler with the middleware every route shares,
// outermost first: security headers, trace id, panic recovery, body size
// limit and request metrics.
func BuildBaseHandler(serviceName string, log *logger.Logger, handler http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		SecurityHeadersMiddleware,
		TraceIDMiddleware,
		RecoveryMiddleware(log),
		MaxRequestSizeMiddleware(constants.DefaultMaxRequestSize),
		httpmetrics.New(serviceName).Wrap,
	}

	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}
	return handler
}
