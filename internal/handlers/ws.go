package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/abrezinsky/pizzarate/internal/membership"
	"github.com/abrezinsky/pizzarate/internal/services"
)

// handleWebSocket upgrades the connection for the signed-in caller
func (h *Handlers) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id, _, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Hub.ServeWs(w, r, id.UID)
}

// authorizeTopic lets a client follow its own user topic and the topics of
// events it belongs to or has asked to join
func (h *Handlers) authorizeTopic(ctx context.Context, uid, topic string) bool {
	if topic == services.UserTopic(uid) {
		return true
	}

	eventID, ok := strings.CutPrefix(topic, services.EventTopic(""))
	if !ok || eventID == "" {
		return false
	}
	role, err := h.Membership.RoleOf(ctx, eventID, uid)
	if err != nil {
		h.Log.Debug("Topic authorization failed", "uid", uid, "topic", topic, "error", err)
		return false
	}
	return role != membership.Outsider
}
