// Package ledger records the append-only activity history of complaints:
// status changes, assignments, comments, and attachments.
package ledger

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/civicdesk/grievance-desk/internal/media"
	"github.com/civicdesk/grievance-desk/internal/model"
	"github.com/civicdesk/grievance-desk/internal/store"
)

// MaxCommentLength bounds comment text, in characters.
const MaxCommentLength = 5000

// ListOptions controls what List returns.
type ListOptions struct {
	// IncludeInternal keeps comment entries flagged internal.
	IncludeInternal bool
}

// Ledger appends and reads complaint activity.
type Ledger struct {
	store store.Store
	now   func() time.Time
}

// New creates a Ledger backed by s.
func New(s store.Store) *Ledger {
	return &Ledger{store: s, now: time.Now}
}

// SetClock overrides the time source (for testing).
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// Append records a standalone entry for complaintID. State changes write
// their entries through the store together with the mutation instead.
func (l *Ledger) Append(ctx context.Context, complaintID int64, entry *model.LedgerEntry) error {
	entry.ComplaintID = complaintID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now().UTC()
	}
	if err := l.store.AppendLedgerEntry(ctx, entry); err != nil {
		return model.Dependency("append ledger entry", err)
	}
	return nil
}

// List returns a complaint's entries in insertion order.
func (l *Ledger) List(ctx context.Context, complaintID int64, opts ListOptions) ([]*model.LedgerEntry, error) {
	entries, err := l.store.ListLedger(ctx, complaintID)
	if err != nil {
		return nil, model.Dependency("list ledger", err)
	}
	if opts.IncludeInternal {
		return entries, nil
	}
	out := entries[:0:0]
	for _, e := range entries {
		if e.Kind == model.EntryComment && e.IsInternal {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// ListByTrackingID resolves trackingID and lists its entries.
func (l *Ledger) ListByTrackingID(ctx context.Context, trackingID string, opts ListOptions) ([]*model.LedgerEntry, error) {
	c, err := l.store.GetComplaintByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, model.Dependency("get complaint", err)
	}
	return l.List(ctx, c.ID, opts)
}

// AddComment appends a comment and its ledger entry. Comments are accepted
// in every status, including Resolved. Only staff may write internal
// comments.
func (l *Ledger) AddComment(ctx context.Context, trackingID string, actor model.Actor, text string, internal bool) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &model.ValidationError{Message: "invalid comment", Fields: map[string]string{"text": "is required"}}
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, &model.ValidationError{Message: "invalid comment", Fields: map[string]string{"text": "is too long"}}
	}
	if internal && !actor.Role.IsStaff() {
		return nil, model.NewValidationError("only staff may write internal comments")
	}

	c, err := l.store.GetComplaintByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, model.Dependency("get complaint", err)
	}

	now := l.now().UTC()
	comment := &model.Comment{
		ComplaintID: c.ID,
		Text:        text,
		Author:      authorName(actor),
		AuthorType:  actor.AuthorType(),
		CreatedAt:   now,
		IsInternal:  internal,
	}
	entry := &model.LedgerEntry{
		Kind:       model.EntryComment,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Message:    text,
		IsInternal: internal,
		CreatedAt:  now,
	}
	if err := l.store.AppendComment(ctx, comment, entry); err != nil {
		return nil, model.Dependency("append comment", err)
	}
	return comment, nil
}

// AddAttachment records a stored upload against the complaint.
func (l *Ledger) AddAttachment(ctx context.Context, trackingID string, actor model.Actor, obj *media.Object) (*model.Attachment, error) {
	if obj == nil || obj.URL == "" {
		return nil, model.NewValidationError("attachment reference is required")
	}

	c, err := l.store.GetComplaintByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, model.Dependency("get complaint", err)
	}

	now := l.now().UTC()
	att := &model.Attachment{
		ComplaintID:  c.ID,
		Filename:     obj.Filename,
		OriginalName: obj.OriginalName,
		URL:          obj.URL,
		PublicID:     obj.PublicID,
		FileType:     obj.ContentType,
		FileSize:     obj.Size,
		UploadedAt:   now,
		UploadedBy:   actor.ID,
	}
	entry := &model.LedgerEntry{
		Kind:      model.EntryAttachmentAdded,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		To:        obj.PublicID,
		Message:   obj.OriginalName,
		CreatedAt: now,
	}
	if err := l.store.AppendAttachment(ctx, att, entry); err != nil {
		return nil, model.Dependency("append attachment", err)
	}
	return att, nil
}

// VisibleComments drops internal comments unless includeInternal is set.
func VisibleComments(comments []*model.Comment, includeInternal bool) []*model.Comment {
	if includeInternal {
		return comments
	}
	out := make([]*model.Comment, 0, len(comments))
	for _, c := range comments {
		if !c.IsInternal {
			out = append(out, c)
		}
	}
	return out
}

func authorName(a model.Actor) string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}
