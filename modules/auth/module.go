package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lumeoai/lumeo/pkg/identity"
	"github.com/lumeoai/lumeo/pkg/jwt"
)

const (
	sessionCookie = "lumeo_session"
	stateCookie   = "lumeo_oauth_state"
	stateTTL      = 10 * time.Minute
)

var (
	ErrInvalidState = errors.New("auth: oauth state mismatch")
	ErrNoToken      = errors.New("auth: no session token")
)

// sessionClaims is the JWT payload issued after a successful sign-in.
type sessionClaims struct {
	jwt.StandardClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Module handles sign-in through an external identity provider and issues
// signed session tokens.
type Module struct {
	provider      identity.Provider
	tokens        *jwt.Service
	tokenTTL      time.Duration
	secureCookies bool
	logger        *slog.Logger
}

// ModuleOption configures a Module.
type ModuleOption func(*Module)

// WithTokenTTL sets the session token lifetime. Default is 30 days.
func WithTokenTTL(ttl time.Duration) ModuleOption {
	return func(m *Module) {
		if ttl > 0 {
			m.tokenTTL = ttl
		}
	}
}

// WithSecureCookies controls the Secure flag on issued cookies.
// Disable only for local development over plain HTTP.
func WithSecureCookies(secure bool) ModuleOption {
	return func(m *Module) { m.secureCookies = secure }
}

// WithLogger sets the logger used for handler errors.
func WithLogger(logger *slog.Logger) ModuleOption {
	return func(m *Module) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewModule creates the auth HTTP module.
// Panics if provider or tokens is nil.
func NewModule(provider identity.Provider, tokens *jwt.Service, opts ...ModuleOption) *Module {
	if provider == nil {
		panic("auth: identity provider is required")
	}
	if tokens == nil {
		panic("auth: token service is required")
	}

	m := &Module{
		provider:      provider,
		tokens:        tokens,
		tokenTTL:      30 * 24 * time.Hour,
		secureCookies: true,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle returns the module's router, ready to be mounted.
func (m *Module) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/google/login", m.login)
	r.Get("/google/callback", m.callback)
	r.Post("/logout", m.logout)

	return r
}

// ResolveUser extracts the authenticated user ID from the request,
// checking the Authorization header first and the session cookie second.
// It satisfies the billing module's UserResolver contract.
func (m *Module) ResolveUser(r *http.Request) (string, error) {
	token, err := tokenFromRequest(r)
	if err != nil {
		return "", err
	}

	var claims sessionClaims
	if err := m.tokens.Parse(token, &claims); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", jwt.ErrInvalidClaims
	}
	return claims.Subject, nil
}

// ResolveEmail extracts the signed-in user's email from the session token.
// Returns an empty string when the request carries no valid session; email
// is advisory data for notifications, not an identity check.
func (m *Module) ResolveEmail(r *http.Request) string {
	token, err := tokenFromRequest(r)
	if err != nil {
		return ""
	}

	var claims sessionClaims
	if err := m.tokens.Parse(token, &claims); err != nil {
		return ""
	}
	return claims.Email
}

func tokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			return "", ErrNoToken
		}
		return token, nil
	}
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", ErrNoToken
}

func (m *Module) login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   m.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, m.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

func (m *Module) callback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		m.writeError(w, r, http.StatusBadRequest, ErrInvalidState)
		return
	}
	clearCookie(w, stateCookie, m.secureCookies)

	ident, err := m.provider.HandleCallback(r.Context(), r)
	if err != nil {
		m.logger.ErrorContext(r.Context(), "oauth callback failed", slog.Any("error", err))
		m.writeError(w, r, http.StatusUnauthorized, err)
		return
	}

	now := time.Now()
	token, err := m.tokens.Generate(sessionClaims{
		StandardClaims: jwt.StandardClaims{
			Subject:   ident.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(m.tokenTTL).Unix(),
		},
		Email: ident.Email,
		Name:  ident.Name,
	})
	if err != nil {
		m.logger.ErrorContext(r.Context(), "failed to issue session token", slog.Any("error", err))
		m.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   m.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (m *Module) logout(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, sessionCookie, m.secureCookies)
	w.WriteHeader(http.StatusNoContent)
}

func (m *Module) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	http.Error(w, err.Error(), status)
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
