package identity_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/lumeoai/lumeo/pkg/identity"
)

func newFakeGoogle(t *testing.T, userInfoStatus int, userInfoBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(userInfoStatus)
		_, _ = w.Write([]byte(userInfoBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(t *testing.T, srv *httptest.Server) *identity.GoogleProvider {
	t.Helper()
	provider, err := identity.NewGoogleProvider(
		identity.GoogleConfig{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "https://app.example.com/auth/callback",
		},
		identity.WithEndpoint(oauth2.Endpoint{
			AuthURL:  srv.URL + "/auth",
			TokenURL: srv.URL + "/token",
		}),
		identity.WithUserInfoURL(srv.URL+"/userinfo"),
	)
	require.NoError(t, err)
	return provider
}

func callbackRequest(code string) *http.Request {
	q := url.Values{}
	if code != "" {
		q.Set("code", code)
	}
	return httptest.NewRequest(http.MethodGet, "/auth/callback?"+q.Encode(), nil)
}

func TestGoogleProvider(t *testing.T) {
	t.Parallel()

	t.Run("auth URL carries state and client ID", func(t *testing.T) {
		t.Parallel()
		srv := newFakeGoogle(t, http.StatusOK, `{}`)
		provider := newTestProvider(t, srv)

		authURL := provider.AuthURL("state-xyz")
		assert.Contains(t, authURL, "state=state-xyz")
		assert.Contains(t, authURL, "client_id=client")
	})

	t.Run("callback resolves the identity", func(t *testing.T) {
		t.Parallel()
		srv := newFakeGoogle(t, http.StatusOK, `{
			"sub": "google-uid-1",
			"email": "jo@example.com",
			"email_verified": true,
			"name": "Jo Doe",
			"picture": "https://example.com/p.png"
		}`)
		provider := newTestProvider(t, srv)

		id, err := provider.HandleCallback(context.Background(), callbackRequest("auth-code"))
		require.NoError(t, err)

		assert.Equal(t, "google-uid-1", id.ID)
		assert.Equal(t, "jo@example.com", id.Email)
		assert.Equal(t, "Jo Doe", id.Name)
		assert.True(t, id.EmailVerified)
	})

	t.Run("missing code", func(t *testing.T) {
		t.Parallel()
		srv := newFakeGoogle(t, http.StatusOK, `{}`)
		provider := newTestProvider(t, srv)

		_, err := provider.HandleCallback(context.Background(), callbackRequest(""))
		assert.ErrorIs(t, err, identity.ErrMissingAuthCode)
	})

	t.Run("userinfo failure", func(t *testing.T) {
		t.Parallel()
		srv := newFakeGoogle(t, http.StatusForbidden, `{}`)
		provider := newTestProvider(t, srv)

		_, err := provider.HandleCallback(context.Background(), callbackRequest("auth-code"))
		assert.ErrorIs(t, err, identity.ErrUserInfoFailed)
	})

	t.Run("profile without an ID is rejected", func(t *testing.T) {
		t.Parallel()
		srv := newFakeGoogle(t, http.StatusOK, `{"email":"jo@example.com"}`)
		provider := newTestProvider(t, srv)

		_, err := provider.HandleCallback(context.Background(), callbackRequest("auth-code"))
		assert.ErrorIs(t, err, identity.ErrIncompleteProfile)
	})

	t.Run("requires client credentials", func(t *testing.T) {
		t.Parallel()
		_, err := identity.NewGoogleProvider(identity.GoogleConfig{})
		assert.Error(t, err)
	})
}
