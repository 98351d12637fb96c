package http

import (
	"errors"
	"net/http"
	"strconv"

	commonerrors "github.com/AlibekovAA/defis-users/internal/common/errors"
	"github.com/AlibekovAA/defis-users/internal/common/httpmetrics"
	"github.com/AlibekovAA/defis-users/internal/common/logger"
	"github.com/AlibekovAA/defis-users/internal/observability/metrics"
)

type ErrorHandler struct {
	log *logger.Logger
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	return &ErrorHandler{log: log}
}

// HandleError writes err as an error envelope. Domain errors keep their own
// status and code, request decoding errors become 400/413 and anything else
// is reported as 500 without exposing the cause.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	if domainErr, ok := commonerrors.AsDomainError(err); ok {
		h.handleDomainError(w, r, domainErr)
		return
	}

	switch {
	case errors.Is(err, ErrBodyTooLarge):
		h.write(w, r, http.StatusRequestEntityTooLarge, CodeRequestTooLarge, "request body too large")
		return
	case errors.Is(err, ErrEmptyBody):
		h.write(w, r, http.StatusBadRequest, CodeInvalidJSON, "request body is empty")
		return
	}

	ctx := r.Context()
	h.log.WithFields(ctx, logger.Fields{
		"path":   r.URL.Path,
		"action": "unhandled_error",
	}).Errorf("unhandled error: %v", err)

	h.write(w, r, http.StatusInternalServerError, CodeUnknown, "internal server error")
}

// HandleDecodeError reports a request body that could not be decoded.
func (h *ErrorHandler) HandleDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrBodyTooLarge), errors.Is(err, ErrEmptyBody):
		h.HandleError(w, r, err)
	default:
		h.write(w, r, http.StatusBadRequest, CodeInvalidJSON, "invalid JSON body")
	}
}

func (h *ErrorHandler) handleDomainError(w http.ResponseWriter, r *http.Request, domainErr commonerrors.DomainError) {
	ctx := r.Context()
	status := domainErr.HTTPStatus()

	logFields := logger.Fields{
		"error_code": domainErr.Code(),
		"category":   string(domainErr.Category()),
		"status":     status,
		"action":     "domain_error",
	}
	if status >= http.StatusInternalServerError {
		h.log.WithFields(ctx, logFields).Errorf("domain error: %s", domainErr.Error())
	} else if h.log.ShouldLog(logger.DEBUG) {
		h.log.WithFields(ctx, logFields).Debugf("domain error: %s", domainErr.Error())
	}

	metrics.DomainErrorsTotal.WithLabelValues(
		string(domainErr.Category()),
		domainErr.Code(),
		strconv.Itoa(status),
	).Inc()

	h.write(w, r, status, domainErr.Code(), domainErr.Message())
}

func (h *ErrorHandler) write(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	metrics.HTTPErrorsTotal.WithLabelValues(
		strconv.Itoa(status),
		httpmetrics.NormalizePath(r.URL.Path),
		r.Method,
	).Inc()

	WriteErrorEnvelope(w, status, code, message, nil, TraceIDFromContext(r.Context()))
}
