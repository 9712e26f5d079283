// Package logger builds slog loggers for the service: JSON or text output,
// environment defaults, and a handler decorator that copies request scoped
// context values (such as the request id) into every record.
//
//	log := logger.New(
//	    logger.WithEnvironment("production", "rafiki-2fa"),
//	    logger.WithContextValue("request_id", middleware.RequestIDKey),
//	)
//	log.InfoContext(ctx, "two-factor enabled", logger.UserID(uid), logger.Component("twofactor"))
package logger
