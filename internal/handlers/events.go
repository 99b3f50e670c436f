package handlers

import (
	"net/http"
	"strings"

	"github.com/abrezinsky/pizzarate/internal/membership"
	"github.com/abrezinsky/pizzarate/internal/models"
	"github.com/abrezinsky/pizzarate/internal/services"
)

// handleListEvents returns the events the caller created or joined
func (h *Handlers) handleListEvents(w http.ResponseWriter, r *http.Request) {
	id, _, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	events, err := h.Events.ListEventsForUser(r.Context(), id.UID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOK(w, EventListResponse{Events: events})
}

// handleCreateEvent creates an event owned by the caller
func (h *Handlers) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	id, _, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req EventCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	e, err := h.Events.CreateEvent(r.Context(), services.EventInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		JoinPolicy:  req.JoinPolicy,
	}, id.UID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondCreated(w, EventResponse{Event: e, Role: membership.RoleOf(e, id.UID)})
}

// handleGetEvent returns an event and the caller's role. Outsiders may load
// it so they can ask to join.
func (h *Handlers) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, _, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	eventID, err := pathParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	e, err := h.Events.GetEvent(r.Context(), eventID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOK(w, EventResponse{Event: e, Role: membership.RoleOf(e, id.UID)})
}

// handleAdvanceStatus moves the event to a later lifecycle stage
func (h *Handlers) handleAdvanceStatus(w http.ResponseWriter, r *http.Request) {
	id, _, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	eventID, err := pathParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req EventStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	e, err := h.Events.AdvanceStatus(r.Context(), eventID, id.UID, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOK(w, EventResponse{Event: e, Role: membership.RoleOf(e, id.UID)})
}

// handleInviteQR serves a PNG QR code of the event's invite link
func (h *Handlers) handleInviteQR(w http.ResponseWriter, r *http.Request) {
	id, _, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	eventID, err := pathParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	png, err := h.Events.InviteQR(r.Context(), eventID, id.UID, h.baseURL(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// baseURL returns the configured public address, or the one the request came in on
func (h *Handlers) baseURL(r *http.Request) string {
	if h.BaseURL != "" {
		return strings.TrimRight(h.BaseURL, "/")
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// handleRequestJoin records the caller's request to join
func (h *Handlers) handleRequestJoin(w http.ResponseWriter, r *http.Request) {
	h.membershipAction(w, r, func(eventID, uid string) (*models.Event, error) {
		return h.Membership.RequestJoin(r.Context(), eventID, uid)
	})
}

// handleDeleteJoinRequest withdraws the caller's own request, or lets the
// creator deny someone else's. It never removes a participant.
func (h *Handlers) handleDeleteJoinRequest(w http.ResponseWriter, r *http.Request) {
	target, err := pathParam(r, "uid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.membershipAction(w, r, func(eventID, uid string) (*models.Event, error) {
		if target == uid {
			return h.Membership.Withdraw(r.Context(), eventID, uid)
		}
		return h.Membership.Deny(r.Context(), eventID, uid, target)
	})
}

// handleAddParticipant joins an open event, or approves a pending user when
// the creator names one
func (h *Handlers) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	var req ParticipantRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.membershipAction(w, r, func(eventID, uid string) (*models.Event, error) {
		target := req.UID
		if target == "" {
			target = uid
		}
		return h.Membership.ApproveOrJoin(r.Context(), eventID, uid, target)
	})
}

// handleLeave removes the caller from the event
func (h *Handlers) handleLeave(w http.ResponseWriter, r *http.Request) {
	h.membershipAction(w, r, func(eventID, uid string) (*models.Event, error) {
		return h.Membership.Leave(r.Context(), eventID, uid)
	})
}

// membershipAction runs fn for the caller and event and answers with the
// updated event
func (h *Handlers) membershipAction(w http.ResponseWriter, r *http.Request, fn func(eventID, uid string) (*models.Event, error)) {
	id, _, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	eventID, err := pathParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	e, err := fn(eventID, id.UID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOK(w, EventResponse{Event: e, Role: membership.RoleOf(e, id.UID)})
}
