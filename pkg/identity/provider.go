package identity

import (
	"context"
	"errors"
	"net/http"
)

// Identity is the normalized result of an external sign-in. The ID is the
// provider-scoped user identifier the rest of the system keys subscription
// records on.
type Identity struct {
	ID            string
	Email         string
	Name          string
	Picture       string
	EmailVerified bool
}

// Provider abstracts an external OAuth identity provider. The application
// never stores passwords; authentication is fully delegated.
type Provider interface {
	// AuthURL returns the provider's authorization URL for the given
	// anti-forgery state.
	AuthURL(state string) string

	// HandleCallback exchanges the authorization code from the callback
	// request and resolves the signed-in identity.
	HandleCallback(ctx context.Context, r *http.Request) (*Identity, error)
}

var (
	ErrMissingAuthCode   = errors.New("identity: missing authorization code")
	ErrExchangeFailed    = errors.New("identity: code exchange failed")
	ErrUserInfoFailed    = errors.New("identity: user info request failed")
	ErrIncompleteProfile = errors.New("identity: provider returned no user ID")
)
