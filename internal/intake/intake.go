// Package intake files new complaints: validation, triage, tracking-ID
// allocation, persistence, and the confirmation notice.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/civicdesk/grievance-desk/internal/classify"
	"github.com/civicdesk/grievance-desk/internal/model"
	"github.com/civicdesk/grievance-desk/internal/notify"
	"github.com/civicdesk/grievance-desk/internal/store"
)

const (
	DefaultMaxIDAttempts = 8
	DefaultNotifyTimeout = 10 * time.Second
)

// Request is a complaint as submitted by a citizen.
type Request struct {
	Name        string `json:"name" validate:"required,max=200"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	Title       string `json:"title" validate:"omitempty,max=200"`
	Department  string `json:"department" validate:"omitempty,max=100"`
	Category    string `json:"category" validate:"omitempty,max=100"`
	Description string `json:"description" validate:"required,max=10000"`
}

func (r *Request) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Title = strings.TrimSpace(r.Title)
	r.Department = strings.TrimSpace(r.Department)
	r.Category = strings.TrimSpace(r.Category)
	r.Description = strings.TrimSpace(r.Description)
}

// Result is returned by File.
type Result struct {
	TrackingID     string           `json:"trackingId"`
	Complaint      *model.Complaint `json:"-"`
	Classification classify.Result  `json:"classification"`
}

// IDGenerator produces candidate tracking IDs.
type IDGenerator interface {
	Generate() string
}

// Classifier triages complaint text.
type Classifier interface {
	Classify(title, description string) classify.Result
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxIDAttempts bounds how many tracking IDs are tried before giving up.
func WithMaxIDAttempts(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxIDAttempts = n
		}
	}
}

// WithNotifyTimeout bounds the confirmation dispatch.
func WithNotifyTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.notifyTimeout = d
		}
	}
}

// WithRetryInterval sets the initial backoff between tracking-ID attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.retryInterval = d
		}
	}
}

// Pipeline files complaints.
type Pipeline struct {
	store         store.Store
	classifier    Classifier
	ids           IDGenerator
	notifier      notify.Notifier
	maxIDAttempts int
	notifyTimeout time.Duration
	retryInterval time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// New creates a Pipeline. notifier may be nil to skip confirmations.
func New(s store.Store, classifier Classifier, ids IDGenerator, notifier notify.Notifier, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:         s,
		classifier:    classifier,
		ids:           ids,
		notifier:      notifier,
		maxIDAttempts: DefaultMaxIDAttempts,
		notifyTimeout: DefaultNotifyTimeout,
		retryInterval: 10 * time.Millisecond,
		now:           time.Now,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetClock overrides the time source (for testing).
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

// File validates, classifies, and persists req as a new Pending complaint.
// A failed confirmation does not fail the filing.
func (p *Pipeline) File(ctx context.Context, actor model.Actor, req Request) (*Result, error) {
	req.normalize()
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	cls := p.classifier.Classify(req.Title, req.Description)

	department := req.Department
	if department == "" {
		department = cls.Department
	}
	category := req.Category
	if category == "" {
		category = cls.Category
	}
	if department == "" || category == "" {
		fields := map[string]string{}
		if department == "" {
			fields["department"] = "is required (could not be inferred from the description)"
		}
		if category == "" {
			fields["category"] = "is required (could not be inferred from the description)"
		}
		return nil, &model.ValidationError{Message: "invalid complaint", Fields: fields}
	}

	now := p.now().UTC()
	c := &model.Complaint{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Title:       req.Title,
		Department:  department,
		Category:    category,
		Description: req.Description,
		Priority:    cls.Priority,
		Sentiment:   cls.Sentiment,
		Urgency:     cls.Urgency,
		Complexity:  cls.Complexity,
		Keywords:    cls.Keywords,
		Tags:        cls.Tags,
		Status:      model.StatusPending,
		DateFiled:   now,
		UpdatedAt:   now,
	}

	if err := p.insertWithUniqueID(ctx, c); err != nil {
		return nil, err
	}

	p.logger.Info("complaint filed",
		"tracking_id", c.TrackingID,
		"department", c.Department,
		"category", c.Category,
		"priority", c.Priority,
		"actor", actor.ID,
	)

	p.confirm(ctx, c)

	return &Result{TrackingID: c.TrackingID, Complaint: c, Classification: cls}, nil
}

// insertWithUniqueID allocates a tracking ID and inserts c. The pre-check
// only avoids a wasted insert; the unique index decides.
func (p *Pipeline) insertWithUniqueID(ctx context.Context, c *model.Complaint) error {
	attempts := 0
	op := func() error {
		attempts++
		id := p.ids.Generate()

		exists, err := p.store.TrackingIDExists(ctx, id)
		if err != nil {
			return backoff.Permanent(model.Dependency("check tracking id", err))
		}
		if exists {
			return fmt.Errorf("tracking id %s taken: %w", id, model.ErrConflict)
		}

		c.TrackingID = id
		err = p.store.InsertComplaint(ctx, c)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, model.ErrConflict):
			return err
		default:
			return backoff.Permanent(model.Dependency("insert complaint", err))
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.retryInterval
	b.MaxInterval = 20 * p.retryInterval
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.maxIDAttempts-1)), ctx)
	err := backoff.Retry(op, policy)
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrConflict) {
		p.logger.Error("tracking id allocation exhausted", "attempts", attempts, "error", err)
		return fmt.Errorf("allocate tracking id after %d attempts: %w", attempts, err)
	}
	return err
}

func (p *Pipeline) confirm(ctx context.Context, c *model.Complaint) {
	if p.notifier == nil {
		return
	}
	// Outlives request cancellation; bounded by notifyTimeout only.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.notifyTimeout)
	defer cancel()

	err := p.notifier.SendComplaintConfirmation(nctx, notify.Confirmation{
		TrackingID:       c.TrackingID,
		Status:           c.Status,
		Department:       c.Department,
		Category:         c.Category,
		ComplainantName:  c.Name,
		ComplainantEmail: c.Email,
		Description:      c.Description,
	})
	if err != nil {
		p.logger.Warn("complaint confirmation failed", "tracking_id", c.TrackingID, "error", err)
	}
}
