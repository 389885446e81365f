package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumeoai/lumeo/modules/auth"
	"github.com/lumeoai/lumeo/pkg/identity"
	"github.com/lumeoai/lumeo/pkg/jwt"
)

type fakeProvider struct {
	identity *identity.Identity
	err      error
}

func (p *fakeProvider) AuthURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (p *fakeProvider) HandleCallback(ctx context.Context, r *http.Request) (*identity.Identity, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.identity, nil
}

func newTestModule(t *testing.T, provider identity.Provider, opts ...auth.ModuleOption) *auth.Module {
	t.Helper()
	tokens, err := jwt.NewFromString("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	return auth.NewModule(provider, tokens, opts...)
}

func stateCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "lumeo_oauth_state" {
			return c
		}
	}
	t.Fatal("state cookie not set")
	return nil
}

func TestModule_Login(t *testing.T) {
	t.Parallel()
	module := newTestModule(t, &fakeProvider{})

	rec := httptest.NewRecorder()
	module.Handle().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/google/login", nil))

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	state := stateCookieFrom(t, rec)
	assert.NotEmpty(t, state.Value)
	assert.True(t, state.HttpOnly)
	assert.Equal(t, "https://accounts.example.com/auth?state="+state.Value,
		rec.Header().Get("Location"))
}

func TestModule_Callback(t *testing.T) {
	t.Parallel()

	t.Run("issues a session on success", func(t *testing.T) {
		t.Parallel()
		provider := &fakeProvider{identity: &identity.Identity{
			ID:    "google-123",
			Email: "user@example.com",
			Name:  "Test User",
		}}
		module := newTestModule(t, provider)
		handler := module.Handle()

		loginRec := httptest.NewRecorder()
		handler.ServeHTTP(loginRec, httptest.NewRequest(http.MethodGet, "/google/login", nil))
		state := stateCookieFrom(t, loginRec)

		req := httptest.NewRequest(http.MethodGet, "/google/callback?state="+state.Value+"&code=abc", nil)
		req.AddCookie(state)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

		var session *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == "lumeo_session" && c.Value != "" {
				session = c
			}
		}
		require.NotNil(t, session, "session cookie not set")

		// The issued token resolves back to the provider identity.
		resolveReq := httptest.NewRequest(http.MethodGet, "/", nil)
		resolveReq.AddCookie(session)
		userID, err := module.ResolveUser(resolveReq)
		require.NoError(t, err)
		assert.Equal(t, "google-123", userID)
	})

	t.Run("rejects a state mismatch", func(t *testing.T) {
		t.Parallel()
		module := newTestModule(t, &fakeProvider{})

		req := httptest.NewRequest(http.MethodGet, "/google/callback?state=forged&code=abc", nil)
		req.AddCookie(&http.Cookie{Name: "lumeo_oauth_state", Value: "original"})
		rec := httptest.NewRecorder()
		module.Handle().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects a failed provider exchange", func(t *testing.T) {
		t.Parallel()
		module := newTestModule(t, &fakeProvider{err: identity.ErrExchangeFailed})
		handler := module.Handle()

		loginRec := httptest.NewRecorder()
		handler.ServeHTTP(loginRec, httptest.NewRequest(http.MethodGet, "/google/login", nil))
		state := stateCookieFrom(t, loginRec)

		req := httptest.NewRequest(http.MethodGet, "/google/callback?state="+state.Value+"&code=bad", nil)
		req.AddCookie(state)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestModule_ResolveUser(t *testing.T) {
	t.Parallel()

	tokens, err := jwt.NewFromString("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	module := auth.NewModule(&fakeProvider{}, tokens)

	issue := func(t *testing.T, claims jwt.StandardClaims) string {
		t.Helper()
		token, err := tokens.Generate(claims)
		require.NoError(t, err)
		return token
	}

	t.Run("accepts a bearer token", func(t *testing.T) {
		t.Parallel()
		token := issue(t, jwt.StandardClaims{
			Subject:   "u1",
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		userID, err := module.ResolveUser(req)
		require.NoError(t, err)
		assert.Equal(t, "u1", userID)
	})

	t.Run("rejects requests without a token", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		_, err := module.ResolveUser(req)
		assert.ErrorIs(t, err, auth.ErrNoToken)
	})

	t.Run("rejects expired tokens", func(t *testing.T) {
		t.Parallel()
		token := issue(t, jwt.StandardClaims{
			Subject:   "u1",
			ExpiresAt: time.Now().Add(-time.Hour).Unix(),
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		_, err := module.ResolveUser(req)
		assert.ErrorIs(t, err, jwt.ErrExpiredToken)
	})

	t.Run("rejects tampered tokens", func(t *testing.T) {
		t.Parallel()
		token := issue(t, jwt.StandardClaims{
			Subject:   "u1",
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token+"x")

		_, err := module.ResolveUser(req)
		assert.ErrorIs(t, err, jwt.ErrInvalidSignature)
	})

	t.Run("rejects tokens without a subject", func(t *testing.T) {
		t.Parallel()
		token := issue(t, jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		_, err := module.ResolveUser(req)
		assert.ErrorIs(t, err, jwt.ErrInvalidClaims)
	})
}
