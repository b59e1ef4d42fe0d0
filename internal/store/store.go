package store

import (
	"context"
	"time"

	"github.com/civicdesk/grievance-desk/internal/model"
)

// Store defines the persistence interface for the grievance desk.
//
// Lookups of missing rows return an error wrapping model.ErrNotFound.
// Unique-constraint violations and failed conditional updates return an
// error wrapping model.ErrConflict.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)

	// Complaints
	//
	// InsertComplaint sets c.ID.
	InsertComplaint(ctx context.Context, c *model.Complaint) error
	TrackingIDExists(ctx context.Context, trackingID string) (bool, error)
	GetComplaint(ctx context.Context, id int64) (*model.Complaint, error)
	GetComplaintByTrackingID(ctx context.Context, trackingID string) (*model.Complaint, error)
	// UpdateComplaint writes the mutable fields of c only if the stored row
	// still has status expected and version c.Version. On success c.Version
	// is incremented.
	UpdateComplaint(ctx context.Context, c *model.Complaint, expected model.Status, entries ...*model.LedgerEntry) error
	IncrementViewCount(ctx context.Context, id int64) error
	ListComplaints(ctx context.Context, filter model.ComplaintFilter) ([]*model.Complaint, int, error)
	ListStaleComplaints(ctx context.Context, priority model.Priority, statuses []model.Status, before time.Time) ([]*model.Complaint, error)
	AggregateComplaints(ctx context.Context, from, to time.Time) ([]*model.ComplaintStat, error)

	// Comments and attachments are appended together with their ledger entry.
	AppendComment(ctx context.Context, comment *model.Comment, entry *model.LedgerEntry) error
	ListComments(ctx context.Context, complaintID int64) ([]*model.Comment, error)
	AppendAttachment(ctx context.Context, att *model.Attachment, entry *model.LedgerEntry) error
	ListAttachments(ctx context.Context, complaintID int64) ([]*model.Attachment, error)

	// Activity ledger
	AppendLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error
	ListLedger(ctx context.Context, complaintID int64) ([]*model.LedgerEntry, error)
}
