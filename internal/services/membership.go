package services

import (
	"context"

	"github.com/abrezinsky/pizzarate/internal/logger"
	"github.com/abrezinsky/pizzarate/internal/membership"
	"github.com/abrezinsky/pizzarate/internal/models"
	"github.com/abrezinsky/pizzarate/internal/repository"
)

// MembershipService applies membership transitions planned by the membership package
type MembershipService struct {
	log         logger.Logger
	repo        repository.EventRepository
	broadcaster Broadcaster
}

// NewMembershipService creates a new MembershipService
func NewMembershipService(log logger.Logger, repo repository.EventRepository, b Broadcaster) *MembershipService {
	if b == nil {
		b = nopBroadcaster{}
	}
	return &MembershipService{log: log, repo: repo, broadcaster: b}
}

type planFunc func(e *models.Event) (membership.Change, error)

// apply loads the event, plans the change and writes it as one repository call
func (s *MembershipService) apply(ctx context.Context, eventID, uid, action string, plan planFunc) (*models.Event, error) {
	e, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, repoError(err, ErrEventNotFound)
	}

	change, err := plan(e)
	if err != nil {
		return nil, err
	}
	if change.IsNoop() {
		return e, nil
	}

	if err := s.repo.ApplyMembership(ctx, eventID, uid, change); err != nil {
		return nil, repoError(err, ErrEventNotFound)
	}

	updated, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		// the write landed; report the locally computed state
		s.log.Warn("Failed to reload event after membership change", "event_id", eventID, "error", err)
		local := membership.Apply(*e, uid, change)
		updated = &local
	}

	s.log.Info("Membership changed", "event_id", eventID, "uid", uid, "action", action)
	s.broadcaster.Publish(models.WSMessage{Type: MsgEventUpdated, Topic: EventTopic(eventID), Payload: updated})
	if membership.RoleOf(e, uid) != membership.Outsider && membership.RoleOf(updated, uid) == membership.Outsider {
		s.broadcaster.Publish(models.WSMessage{Type: MsgTopicRevoked, Topic: UserTopic(uid), Payload: EventTopic(eventID)})
	}
	return updated, nil
}

// RequestJoin adds uid to the event's pending requests
func (s *MembershipService) RequestJoin(ctx context.Context, eventID, uid string) (*models.Event, error) {
	return s.apply(ctx, eventID, uid, "request_join", func(e *models.Event) (membership.Change, error) {
		return membership.PlanRequestJoin(e, uid)
	})
}

// ApproveOrJoin admits uid, either as a self-join on an open event or as the
// creator approving a pending request
func (s *MembershipService) ApproveOrJoin(ctx context.Context, eventID, actor, uid string) (*models.Event, error) {
	return s.apply(ctx, eventID, uid, "approve_or_join", func(e *models.Event) (membership.Change, error) {
		return membership.PlanApproveOrJoin(e, actor, uid)
	})
}

// Deny drops uid's pending request
func (s *MembershipService) Deny(ctx context.Context, eventID, actor, uid string) (*models.Event, error) {
	return s.apply(ctx, eventID, uid, "deny", func(e *models.Event) (membership.Change, error) {
		return membership.PlanDeny(e, actor, uid)
	})
}

// Leave removes uid from the event
func (s *MembershipService) Leave(ctx context.Context, eventID, uid string) (*models.Event, error) {
	return s.apply(ctx, eventID, uid, "leave", func(e *models.Event) (membership.Change, error) {
		return membership.PlanLeave(e, uid)
	})
}

// Withdraw drops uid's own pending request. Participants are left alone.
func (s *MembershipService) Withdraw(ctx context.Context, eventID, uid string) (*models.Event, error) {
	return s.apply(ctx, eventID, uid, "withdraw", func(e *models.Event) (membership.Change, error) {
		return membership.PlanWithdraw(e, uid)
	})
}

// RoleOf returns uid's role in the event
func (s *MembershipService) RoleOf(ctx context.Context, eventID, uid string) (membership.Role, error) {
	e, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return membership.Outsider, repoError(err, ErrEventNotFound)
	}
	return membership.RoleOf(e, uid), nil
}
