// Package lifecycle drives complaints through their status state machine:
// transitions, escalation, assignment, and satisfaction feedback.
//
// Every mutation is a conditional store update keyed on the status (and
// version) the machine observed, with its ledger entry written in the same
// transaction. A concurrent writer therefore surfaces as model.ErrConflict
// rather than a lost update.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/civicdesk/grievance-desk/internal/model"
	"github.com/civicdesk/grievance-desk/internal/store"
)

// transitions lists the legal target states for each state. Resolved is
// terminal. Escalated complaints return to InProgress before resolving.
var transitions = map[model.Status][]model.Status{
	model.StatusPending:    {model.StatusInProgress, model.StatusEscalated},
	model.StatusInProgress: {model.StatusResolved, model.StatusEscalated},
	model.StatusEscalated:  {model.StatusInProgress, model.StatusEscalated},
	model.StatusResolved:   nil,
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to model.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionRequest describes a requested status change.
type TransitionRequest struct {
	To     model.Status
	Reason string // required when To is Escalated
	Note   string // optional, recorded on the ledger entry
}

// Option configures a Machine.
type Option func(*Machine)

// WithHandlingRoles sets the roles that may be assigned complaints.
func WithHandlingRoles(roles ...model.Role) Option {
	return func(m *Machine) {
		m.handlingRoles = make(map[model.Role]bool, len(roles))
		for _, r := range roles {
			m.handlingRoles[r] = true
		}
	}
}

// Machine applies lifecycle operations against a Store.
type Machine struct {
	store         store.Store
	handlingRoles map[model.Role]bool
	now           func() time.Time
	logger        *slog.Logger
}

// New creates a Machine. By default only the department role may be assigned.
func New(s store.Store, logger *slog.Logger, opts ...Option) *Machine {
	m := &Machine{
		store:         s,
		handlingRoles: map[model.Role]bool{model.RoleDepartment: true},
		now:           time.Now,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetClock overrides the time source (for testing).
func (m *Machine) SetClock(now func() time.Time) {
	m.now = now
}

// Transition moves the complaint identified by trackingID to req.To.
// Resolving an already resolved complaint is a no-op that returns the
// complaint unchanged.
func (m *Machine) Transition(ctx context.Context, trackingID string, actor model.Actor, req TransitionRequest) (*model.Complaint, error) {
	if !req.To.Valid() {
		return nil, &model.ValidationError{Message: "invalid transition", Fields: map[string]string{"status": fmt.Sprintf("unknown status %q", req.To)}}
	}

	c, err := m.store.GetComplaintByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, model.Dependency("get complaint", err)
	}
	return m.apply(ctx, c, actor, req)
}

// TransitionComplaint is Transition for a complaint the caller has already
// loaded. The observed status of c is the concurrency precondition.
func (m *Machine) TransitionComplaint(ctx context.Context, c *model.Complaint, actor model.Actor, req TransitionRequest) (*model.Complaint, error) {
	if !req.To.Valid() {
		return nil, &model.ValidationError{Message: "invalid transition", Fields: map[string]string{"status": fmt.Sprintf("unknown status %q", req.To)}}
	}
	cp := *c
	return m.apply(ctx, &cp, actor, req)
}

func (m *Machine) apply(ctx context.Context, c *model.Complaint, actor model.Actor, req TransitionRequest) (*model.Complaint, error) {
	from := c.Status
	if from == model.StatusResolved && req.To == model.StatusResolved {
		return c, nil
	}
	if !CanTransition(from, req.To) {
		return nil, model.NewValidationError("cannot move complaint from %s to %s", from, req.To)
	}
	reason := strings.TrimSpace(req.Reason)
	if req.To == model.StatusEscalated && reason == "" {
		return nil, &model.ValidationError{Message: "escalation requires a reason", Fields: map[string]string{"reason": "is required"}}
	}

	now := m.now().UTC()
	c.Status = req.To
	c.UpdatedAt = now

	kind := model.EntryStatusChange
	message := strings.TrimSpace(req.Note)
	switch req.To {
	case model.StatusInProgress:
		if c.ResponseTime == nil {
			rt := now.Sub(c.DateFiled)
			c.ResponseTime = &rt
		}
	case model.StatusResolved:
		if c.ResolvedAt == nil {
			c.ResolvedAt = &now
		}
		kind = model.EntryResolution
	case model.StatusEscalated:
		c.EscalationLevel++
		c.EscalatedAt = &now
		c.EscalationReason = reason
		c.Priority = c.Priority.Bump()
		message = reason
	}

	entry := &model.LedgerEntry{
		Kind:      kind,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		From:      string(from),
		To:        string(req.To),
		Message:   message,
		CreatedAt: now,
	}
	if err := m.store.UpdateComplaint(ctx, c, from, entry); err != nil {
		return nil, model.Dependency("update complaint", err)
	}

	m.logger.Info("complaint transitioned",
		"tracking_id", c.TrackingID,
		"from", from,
		"to", req.To,
		"actor", actor.ID,
		"escalation_level", c.EscalationLevel,
	)
	return c, nil
}

// Assign sets the complaint's assignee. The assignee's role must be one of
// the machine's handling roles. Reassigning to the current assignee is a
// no-op.
func (m *Machine) Assign(ctx context.Context, trackingID string, actor model.Actor, assignee model.Actor) (*model.Complaint, error) {
	if strings.TrimSpace(assignee.ID) == "" {
		return nil, &model.ValidationError{Message: "invalid assignment", Fields: map[string]string{"assignee": "is required"}}
	}
	if !m.handlingRoles[assignee.Role] {
		return nil, &model.ValidationError{Message: "invalid assignment", Fields: map[string]string{
			"assignee": fmt.Sprintf("role %q cannot handle complaints", assignee.Role),
		}}
	}

	c, err := m.store.GetComplaintByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, model.Dependency("get complaint", err)
	}
	if c.AssignedTo == assignee.ID {
		return c, nil
	}

	now := m.now().UTC()
	prev := c.AssignedTo
	c.AssignedTo = assignee.ID
	c.UpdatedAt = now

	entry := &model.LedgerEntry{
		Kind:      model.EntryAssignmentChange,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		From:      prev,
		To:        assignee.ID,
		Message:   assignee.Name,
		CreatedAt: now,
	}
	if err := m.store.UpdateComplaint(ctx, c, c.Status, entry); err != nil {
		return nil, model.Dependency("update complaint", err)
	}

	m.logger.Info("complaint assigned", "tracking_id", c.TrackingID, "assignee", assignee.ID, "actor", actor.ID)
	return c, nil
}

// AssignUser resolves userID in the user directory and assigns it.
func (m *Machine) AssignUser(ctx context.Context, trackingID string, actor model.Actor, userID string) (*model.Complaint, error) {
	u, err := m.store.GetUser(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, &model.ValidationError{Message: "invalid assignment", Fields: map[string]string{"assignee": "unknown user"}}
	}
	if err != nil {
		return nil, model.Dependency("get user", err)
	}
	return m.Assign(ctx, trackingID, actor, u.Actor())
}

// RecordSatisfaction stores a 1-5 satisfaction score on a resolved complaint.
func (m *Machine) RecordSatisfaction(ctx context.Context, trackingID string, actor model.Actor, score int) (*model.Complaint, error) {
	if score < 1 || score > 5 {
		return nil, &model.ValidationError{Message: "invalid satisfaction", Fields: map[string]string{"score": "must be between 1 and 5"}}
	}

	c, err := m.store.GetComplaintByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, model.Dependency("get complaint", err)
	}
	if c.Status != model.StatusResolved {
		return nil, model.NewValidationError("satisfaction can only be recorded on resolved complaints")
	}

	c.Satisfaction = &score
	c.UpdatedAt = m.now().UTC()
	if err := m.store.UpdateComplaint(ctx, c, model.StatusResolved); err != nil {
		return nil, model.Dependency("update complaint", err)
	}

	m.logger.Info("satisfaction recorded", "tracking_id", c.TrackingID, "score", score, "actor", actor.ID)
	return c, nil
}
