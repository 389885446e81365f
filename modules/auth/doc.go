// Package auth mounts delegated sign-in over an external identity provider.
//
// The module redirects to the provider for authentication and issues a
// signed session token on the callback, delivered as an HttpOnly cookie.
// Other modules authenticate requests through ResolveUser, which accepts
// the token from either the Authorization header or the session cookie.
package auth
