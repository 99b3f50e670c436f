package handlers

import (
	"net/http"

	"github.com/abrezinsky/pizzarate/internal/auth"
	"github.com/abrezinsky/pizzarate/internal/identity"
	"github.com/abrezinsky/pizzarate/internal/models"
	"github.com/abrezinsky/pizzarate/internal/scoring"
	"github.com/abrezinsky/pizzarate/internal/services"
)

// caller returns the signed-in user. RequireUser guarantees both values on
// protected routes.
func caller(r *http.Request) (identity.Identity, *models.UserProfile, error) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return identity.Identity{}, nil, Unauthorized("Sign in required")
	}
	profile, ok := auth.UserFromContext(r.Context())
	if !ok {
		return identity.Identity{}, nil, Unauthorized("Sign in required")
	}
	return id, profile, nil
}

// handleHealth reports liveness and storage reachability
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Storage: "ok"}
	if h.Hub != nil {
		resp.Clients = h.Hub.ClientCount()
	}
	if h.Store != nil {
		if err := h.Store.Ping(r.Context()); err != nil {
			h.Log.Warn("Health check storage ping failed", "error", err)
			resp.Status = "degraded"
			resp.Storage = "unavailable"
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	respondOK(w, resp)
}

// handleGetCriteria lists the rating criteria in presentation order
func (h *Handlers) handleGetCriteria(w http.ResponseWriter, r *http.Request) {
	respondOK(w, CriteriaResponse{Criteria: scoring.Criteria(), DefaultScore: scoring.DefaultScore})
}

// handleCreateAnonymous registers a guest account with the identity provider
func (h *Handlers) handleCreateAnonymous(w http.ResponseWriter, r *http.Request) {
	uid, token, err := h.Provider.CreateAnonymous(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Log.Info("Anonymous account created", "uid", uid)
	respondCreated(w, AnonymousResponse{UID: uid, Token: token})
}

// handleCreateSession exchanges a provider token for a session cookie. The
// caller's profile is created or upgraded on the way.
func (h *Handlers) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.BearerToken(r)
	if !ok {
		var req SessionRequest
		if err := decodeJSON(r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
		token = req.Token
	}

	sessionToken, id, err := h.Auth.Login(r.Context(), token)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	profile, err := h.Identity.EnsureIdentity(r.Context(), id)
	if err != nil {
		h.Auth.Logout(sessionToken)
		h.fail(w, r, err)
		return
	}

	auth.SetSessionCookie(w, sessionToken)
	respondOK(w, SessionResponse{Profile: profile, Degraded: !profile.Persisted})
}

// handleLogout clears the session
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		h.Auth.Logout(cookie.Value)
	}
	auth.ClearSessionCookie(w)
	respondDeleted(w)
}

// handleGetMe returns the caller's profile
func (h *Handlers) handleGetMe(w http.ResponseWriter, r *http.Request) {
	_, profile, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOK(w, SessionResponse{Profile: profile, Degraded: !profile.Persisted})
}

// handleUpdateMe edits the caller's display name or avatar colour
func (h *Handlers) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	id, _, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req ProfileUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	profile, err := h.Identity.UpdateProfile(r.Context(), id.UID, services.ProfileUpdate{
		DisplayName: req.DisplayName,
		AvatarColor: req.AvatarColor,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOK(w, SessionResponse{Profile: profile})
}

// handleUpgradeMe records a permanent credential the provider already holds
func (h *Handlers) handleUpgradeMe(w http.ResponseWriter, r *http.Request) {
	id, _, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	profile, err := h.Identity.Upgrade(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOK(w, SessionResponse{Profile: profile})
}

// handleLinkCredential attaches an email/password credential to the caller's
// anonymous account and upgrades the profile
func (h *Handlers) handleLinkCredential(w http.ResponseWriter, r *http.Request) {
	id, _, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req LinkRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	linked, err := h.Provider.Link(r.Context(), id.UID, identity.LinkRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Auth.Refresh(linked)

	profile, err := h.Identity.Upgrade(r.Context(), linked)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Log.Info("Credential linked", "uid", linked.UID)
	respondOK(w, SessionResponse{Profile: profile})
}
