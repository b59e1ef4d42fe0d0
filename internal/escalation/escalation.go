// Package escalation escalates complaints that have sat without progress
// longer than their priority's service level allows.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/civicdesk/grievance-desk/internal/lifecycle"
	"github.com/civicdesk/grievance-desk/internal/model"
)

// StaleLister finds complaints untouched since before a cutoff.
type StaleLister interface {
	ListStaleComplaints(ctx context.Context, priority model.Priority, statuses []model.Status, before time.Time) ([]*model.Complaint, error)
}

// Escalator applies a status transition to a loaded complaint.
type Escalator interface {
	TransitionComplaint(ctx context.Context, c *model.Complaint, actor model.Actor, req lifecycle.TransitionRequest) (*model.Complaint, error)
}

// watchedStatuses are the statuses the sweeper considers stalled.
var watchedStatuses = []model.Status{model.StatusPending, model.StatusInProgress}

// DefaultSLA returns how long a complaint of each priority may go without an
// update before it is escalated.
func DefaultSLA() map[model.Priority]time.Duration {
	const day = 24 * time.Hour
	return map[model.Priority]time.Duration{
		model.PriorityCritical: 1 * day,
		model.PriorityHigh:     3 * day,
		model.PriorityMedium:   7 * day,
		model.PriorityLow:      14 * day,
	}
}

// Engine periodically escalates stalled complaints as the system actor.
type Engine struct {
	store        StaleLister
	escalator    Escalator
	sla          map[model.Priority]time.Duration
	tickInterval time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// NewEngine creates an escalation engine using DefaultSLA.
func NewEngine(s StaleLister, esc Escalator, logger *slog.Logger) *Engine {
	return &Engine{
		store:        s,
		escalator:    esc,
		sla:          DefaultSLA(),
		tickInterval: 1 * time.Hour,
		now:          time.Now,
		logger:       logger,
	}
}

// SetSLA overrides the allowance for one priority. A zero duration disables
// escalation for that priority.
func (e *Engine) SetSLA(p model.Priority, d time.Duration) {
	e.sla[p] = d
}

// SetTickInterval overrides the default tick interval (for testing).
func (e *Engine) SetTickInterval(d time.Duration) {
	e.tickInterval = d
}

// SetClock overrides the time source (for testing).
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Run starts a ticker loop that sweeps on each tick.
// It blocks until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	// Run once immediately on start.
	e.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("escalation engine shutting down")
			return ctx.Err()
		case <-ticker.C:
			e.Sweep(ctx)
		}
	}
}

// Sweep escalates every stalled complaint once and returns how many were
// escalated. Failures on individual complaints are logged and skipped.
func (e *Engine) Sweep(ctx context.Context) int {
	now := e.now().UTC()
	checked, escalated := 0, 0

	for _, p := range model.Priorities {
		allowance := e.sla[p]
		if allowance <= 0 {
			continue
		}

		stale, err := e.store.ListStaleComplaints(ctx, p, watchedStatuses, now.Add(-allowance))
		if err != nil {
			e.logger.Error("listing stale complaints", "priority", p, "error", err)
			continue
		}

		reason := "No progress within " + formatAllowance(allowance)
		for _, c := range stale {
			checked++
			_, err := e.escalator.TransitionComplaint(ctx, c, model.SystemActor, lifecycle.TransitionRequest{
				To:     model.StatusEscalated,
				Reason: reason,
			})
			if errors.Is(err, model.ErrConflict) {
				e.logger.Debug("complaint changed during sweep", "tracking_id", c.TrackingID)
				continue
			}
			if err != nil {
				e.logger.Error("escalating complaint",
					"tracking_id", c.TrackingID,
					"priority", p,
					"error", err,
				)
				continue
			}
			escalated++
		}
	}

	e.logger.Info("escalation sweep complete",
		"complaints_checked", checked,
		"complaints_escalated", escalated,
	)
	return escalated
}

func formatAllowance(d time.Duration) string {
	const day = 24 * time.Hour
	if d%day != 0 {
		return d.String()
	}
	n := int(d / day)
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
