// Package requestid attaches a correlation ID to every HTTP request.
//
// The middleware reuses a valid client-supplied X-Request-ID header or
// generates a UUID, stores it in the request context, and echoes it back in
// the response. LoggerExtractor feeds the ID into structured log records so
// all lines of one request can be correlated.
//
// Usage:
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//
//	r := chi.NewRouter()
//	r.Use(requestid.Middleware)
package requestid
