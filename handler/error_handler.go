package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/rafiki-assist/rafiki/pkg/binder"
	"github.com/rafiki-assist/rafiki/pkg/logger"
)

// ErrorMapping translates a domain sentinel into an HTTPError.
type ErrorMapping struct {
	Err  error
	HTTP HTTPError
}

// Map is shorthand for an ErrorMapping.
func Map(err error, code int, key string) ErrorMapping {
	return ErrorMapping{Err: err, HTTP: NewHTTPError(code, key)}
}

var binderMappings = []ErrorMapping{
	{Err: binder.ErrBodyTooLarge, HTTP: ErrRequestTooLarge},
	{Err: binder.ErrUnsupportedMediaType, HTTP: ErrUnsupportedMediaType},
	{Err: binder.ErrMissingContentType, HTTP: ErrUnsupportedMediaType},
	{Err: binder.ErrFailedToParseJSON, HTTP: ErrBadRequest},
	{Err: binder.ErrInvalidPath, HTTP: ErrBadRequest},
}

// Classify returns the HTTPError for err. Explicit HTTPErrors win, then the
// first matching mapping in order, then the binder errors. Anything else is
// an internal error.
func Classify(err error, mappings ...ErrorMapping) HTTPError {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	for _, m := range mappings {
		if errors.Is(err, m.Err) {
			return m.HTTP
		}
	}
	for _, m := range binderMappings {
		if errors.Is(err, m.Err) {
			return m.HTTP
		}
	}
	return ErrInternalServerError
}

// NewErrorHandler returns an ErrorHandler that logs the failure and renders
// the JSON error envelope. Client errors are logged at warn level, server
// errors at error level.
func NewErrorHandler(log *slog.Logger, mappings ...ErrorMapping) ErrorHandler {
	if log == nil {
		log = logger.Discard()
	}

	return func(ctx Context, err error) {
		info := Classify(err, mappings...)
		r := ctx.Request()

		level := slog.LevelWarn
		if info.Code >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.LogAttrs(r.Context(), level, "request failed",
			logger.RequestID(middleware.GetReqID(r.Context())),
			logger.Error(err),
			slog.Int("status_code", info.Code),
			slog.String("error_code", info.Key),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		)

		if renderErr := JSONError(info).Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.ErrorContext(r.Context(), "failed to render error response",
				logger.Error(renderErr),
				logger.Component("error_handler"),
			)
		}
	}
}
