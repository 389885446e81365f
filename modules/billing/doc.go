// Package billing mounts the subscription service as a JSON HTTP API.
//
// The module exposes the plan catalog, the authenticated user's
// subscription, purchase and cancellation endpoints, credit consumption,
// and the Paddle webhook receiver. Authentication is delegated to a
// UserResolver supplied by the caller.
//
// Usage:
//
//	module := billing.NewModule(svc, catalog, resolver)
//
//	r := chi.NewRouter()
//	r.Mount("/billing", module.Handle())
package billing
