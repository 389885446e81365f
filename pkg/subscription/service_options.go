package subscription

import (
	"log/slog"
	"time"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*service)

// WithLocker replaces the default in-process keyed mutex. Use a shared
// locker (e.g. Redis-backed) when multiple instances mutate the same store.
func WithLocker(l Locker) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithClock overrides the time source. Useful for testing period math
// against fixed times.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the structured logger used for mutation audit lines.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
