// Package membership decides who may do what with an event and plans the set
// edits that move a user between roles. It performs no I/O: callers apply the
// returned Change through a store that supports atomic set add/remove.
package membership

import (
	"slices"

	"github.com/abrezinsky/pizzarate/internal/errors"
	"github.com/abrezinsky/pizzarate/internal/models"
)

// Role is a user's standing in one event
type Role int

const (
	Outsider Role = iota
	PendingRequest
	Participant
	Creator
)

func (r Role) String() string {
	switch r {
	case PendingRequest:
		return "pending"
	case Participant:
		return "participant"
	case Creator:
		return "creator"
	default:
		return "outsider"
	}
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// RoleOf derives uid's role from the event's sets. Creator is decided by
// createdBy alone.
func RoleOf(e *models.Event, uid string) Role {
	if e == nil || uid == "" {
		return Outsider
	}
	switch {
	case e.CreatedBy == uid:
		return Creator
	case slices.Contains(e.Participants, uid):
		return Participant
	case slices.Contains(e.PendingRequests, uid):
		return PendingRequest
	}
	return Outsider
}

// IsParticipant reports membership of the participants set. The creator is
// always enrolled there, so this covers the Creator role too.
func IsParticipant(e *models.Event, uid string) bool {
	return e != nil && uid != "" && slices.Contains(e.Participants, uid)
}

func CanViewPizzas(e *models.Event, uid string) bool {
	return IsParticipant(e, uid)
}

func CanAddPizza(e *models.Event, uid string) bool {
	return e != nil && uid != "" && e.CreatedBy == uid
}

func CanRate(e *models.Event, uid string) bool {
	return CanViewPizzas(e, uid)
}

// CanManage reports whether uid may approve or deny join requests
func CanManage(e *models.Event, uid string) bool {
	return CanAddPizza(e, uid)
}

// Change is a set of membership edits for one uid. All flags are applied
// together or not at all.
type Change struct {
	AddParticipant    bool `json:"add_participant,omitempty"`
	RemoveParticipant bool `json:"remove_participant,omitempty"`
	AddPending        bool `json:"add_pending,omitempty"`
	RemovePending     bool `json:"remove_pending,omitempty"`
}

// IsNoop reports whether the change edits nothing
func (c Change) IsNoop() bool {
	return c == Change{}
}

// Apply returns a copy of e with the change applied for uid, using
// add-if-absent and remove-if-present semantics.
func Apply(e models.Event, uid string, c Change) models.Event {
	e.Participants = slices.Clone(e.Participants)
	e.PendingRequests = slices.Clone(e.PendingRequests)

	if c.RemovePending {
		e.PendingRequests = remove(e.PendingRequests, uid)
	}
	if c.RemoveParticipant {
		e.Participants = remove(e.Participants, uid)
	}
	if c.AddParticipant && !slices.Contains(e.Participants, uid) {
		e.Participants = append(e.Participants, uid)
	}
	if c.AddPending && !slices.Contains(e.PendingRequests, uid) {
		e.PendingRequests = append(e.PendingRequests, uid)
	}
	e.Normalize()
	return e
}

func remove(set []string, uid string) []string {
	return slices.DeleteFunc(set, func(s string) bool { return s == uid })
}

// PlanRequestJoin moves an outsider to pending. Pending users and
// participants get a no-op.
func PlanRequestJoin(e *models.Event, uid string) (Change, error) {
	if uid == "" {
		return Change{}, errors.InvalidInput("uid is required")
	}
	if RoleOf(e, uid) != Outsider {
		return Change{}, nil
	}
	return Change{AddPending: true}, nil
}

// PlanApproveOrJoin admits uid to the event. On an open event a user may
// admit themselves. On a gated event only the creator may admit, and only a
// user with a pending request; the pending entry is removed in the same change.
func PlanApproveOrJoin(e *models.Event, actor, uid string) (Change, error) {
	if uid == "" {
		return Change{}, errors.InvalidInput("uid is required")
	}

	role := RoleOf(e, uid)
	if role == Participant || role == Creator {
		return Change{}, nil
	}

	selfJoin := actor == uid
	if e.JoinPolicy == models.JoinOpen && selfJoin {
		return Change{AddParticipant: true, RemovePending: role == PendingRequest}, nil
	}

	if !CanManage(e, actor) {
		if selfJoin {
			return Change{}, errors.Authorization("this event requires the creator's approval to join")
		}
		return Change{}, errors.Authorization("only the event creator can approve join requests")
	}
	if role != PendingRequest {
		return Change{}, errors.Conflictf("user %s has not requested to join", uid)
	}
	return Change{AddParticipant: true, RemovePending: true}, nil
}

// PlanDeny drops uid's pending request. Only the creator may deny; denying a
// user with no request is a no-op.
func PlanDeny(e *models.Event, actor, uid string) (Change, error) {
	if !CanManage(e, actor) {
		return Change{}, errors.Authorization("only the event creator can deny join requests")
	}
	if RoleOf(e, uid) != PendingRequest {
		return Change{}, nil
	}
	return Change{RemovePending: true}, nil
}

// PlanLeave removes uid from the participants. The creator cannot leave.
func PlanLeave(e *models.Event, uid string) (Change, error) {
	switch RoleOf(e, uid) {
	case Creator:
		return Change{}, errors.Authorization("the event creator cannot leave their own event")
	case Participant:
		return Change{RemoveParticipant: true}, nil
	case PendingRequest:
		// withdrawing a request is leaving before being admitted
		return Change{RemovePending: true}, nil
	}
	return Change{}, nil
}

// PlanWithdraw drops uid's own pending request. Anyone else gets a no-op.
func PlanWithdraw(e *models.Event, uid string) (Change, error) {
	if RoleOf(e, uid) != PendingRequest {
		return Change{}, nil
	}
	return Change{RemovePending: true}, nil
}
