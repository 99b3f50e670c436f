// Package auth resolves the caller of every request. A request carries either
// a provider bearer token or a session cookie issued by Login; in header mode
// the X-User-* development headers are accepted too.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/abrezinsky/pizzarate/internal/errors"
	"github.com/abrezinsky/pizzarate/internal/identity"
	"github.com/abrezinsky/pizzarate/internal/logger"
	"github.com/abrezinsky/pizzarate/internal/models"
)

const (
	CookieName    = "pizzarate_session"
	SessionExpiry = 24 * time.Hour
)

type contextKey int

const (
	identityKey contextKey = iota
	profileKey
)

// ProfileEnsurer resolves the application profile for a verified identity
type ProfileEnsurer interface {
	EnsureIdentity(ctx context.Context, id identity.Identity) (*models.UserProfile, error)
}

// ErrorWriter renders a failed authentication
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

type session struct {
	identity identity.Identity
	expires  time.Time
}

// Auth verifies callers and keeps the server-side session table
type Auth struct {
	log      logger.Logger
	provider identity.Provider
	profiles ProfileEnsurer
	onError  ErrorWriter
	now      func() time.Time

	sessions map[string]session
	mu       sync.RWMutex
}

// New creates an Auth backed by provider. Every authenticated request runs
// profiles.EnsureIdentity before reaching the handler.
func New(log logger.Logger, provider identity.Provider, profiles ProfileEnsurer) *Auth {
	return &Auth{
		log:      log,
		provider: provider,
		profiles: profiles,
		onError:  writeUnauthorized,
		now:      time.Now,
		sessions: make(map[string]session),
	}
}

// SetErrorWriter replaces the default 401 response
func (a *Auth) SetErrorWriter(fn ErrorWriter) {
	a.onError = fn
}

// SetClock replaces the clock used for session expiry
func (a *Auth) SetClock(now func() time.Time) {
	a.now = now
}

// Login verifies a bearer token and opens a session for it
func (a *Auth) Login(ctx context.Context, token string) (string, identity.Identity, error) {
	id, err := a.provider.Verify(ctx, token)
	if err != nil {
		return "", identity.Identity{}, err
	}

	sessionToken := generateToken()
	a.mu.Lock()
	a.sessions[sessionToken] = session{identity: id, expires: a.now().Add(SessionExpiry)}
	a.mu.Unlock()

	a.log.Debug("Session opened", "uid", id.UID, "anonymous", id.IsAnonymous)
	return sessionToken, id, nil
}

// Logout invalidates a session token
func (a *Auth) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// ValidateSession returns the identity behind a session token
func (a *Auth) ValidateSession(token string) (identity.Identity, bool) {
	a.mu.RLock()
	s, exists := a.sessions[token]
	a.mu.RUnlock()

	if !exists {
		return identity.Identity{}, false
	}

	if a.now().After(s.expires) {
		a.mu.Lock()
		delete(a.sessions, token)
		a.mu.Unlock()
		return identity.Identity{}, false
	}

	return s.identity, true
}

// Refresh replaces the identity of every session held by id.UID, e.g. after
// a credential was linked to an anonymous account
func (a *Auth) Refresh(id identity.Identity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for token, s := range a.sessions {
		if s.identity.UID == id.UID || (id.PreviousUID != "" && s.identity.UID == id.PreviousUID) {
			s.identity = id
			a.sessions[token] = s
		}
	}
}

// Authenticate works out who sent r. The bearer token wins over the session
// cookie, which wins over development headers.
func (a *Auth) Authenticate(r *http.Request) (identity.Identity, error) {
	if token, ok := BearerToken(r); ok {
		return a.provider.Verify(r.Context(), token)
	}

	if cookie, err := r.Cookie(CookieName); err == nil {
		if id, ok := a.ValidateSession(cookie.Value); ok {
			return id, nil
		}
	}

	if rv, ok := a.provider.(identity.RequestVerifier); ok {
		id, found, err := rv.VerifyRequest(r)
		if err != nil {
			return identity.Identity{}, err
		}
		if found {
			return id, nil
		}
	}

	return identity.Identity{}, errors.Auth(errors.AuthInvalidToken, "authentication required", nil)
}

// RequireUser resolves the caller and its profile before calling next
func (a *Auth) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.Authenticate(r)
		if err != nil {
			a.onError(w, r, err)
			return
		}

		profile, err := a.profiles.EnsureIdentity(r.Context(), id)
		if err != nil {
			a.log.Error("Failed to resolve profile", "uid", id.UID, "error", err)
			a.onError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), id, profile)))
	})
}

// BearerToken extracts the token from an Authorization: Bearer header
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}

// WithUser stores the caller in ctx
func WithUser(ctx context.Context, id identity.Identity, profile *models.UserProfile) context.Context {
	ctx = context.WithValue(ctx, identityKey, id)
	return context.WithValue(ctx, profileKey, profile)
}

// UserFromContext returns the profile stored by RequireUser
func UserFromContext(ctx context.Context) (*models.UserProfile, bool) {
	p, ok := ctx.Value(profileKey).(*models.UserProfile)
	return p, ok && p != nil
}

// IdentityFromContext returns the verified identity stored by RequireUser
func IdentityFromContext(ctx context.Context) (identity.Identity, bool) {
	id, ok := ctx.Value(identityKey).(identity.Identity)
	return id, ok
}

// SetSessionCookie sets the session cookie on the response
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionExpiry.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func writeUnauthorized(w http.ResponseWriter, _ *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"code":"UNAUTHORIZED","error":"Unauthorized - please sign in"}`))
}

// generateToken creates a random session token
func generateToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
