// Package logger builds configured slog loggers: JSON or text output,
// environment presets, static attributes, and context extractors that inject
// request-scoped values (user ID, request ID) into every record.
//
//	log := logger.New(
//	    logger.WithProduction("lumeo"),
//	    logger.WithContextValue("request_id", requestIDKey),
//	)
//	logger.SetAsDefault(log)
package logger
