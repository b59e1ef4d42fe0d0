package model

import "time"

// Status tracks a complaint through its lifecycle.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusResolved   Status = "Resolved"
	StatusEscalated  Status = "Escalated"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusResolved, StatusEscalated}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusEscalated:
		return true
	}
	return false
}

// Priority is the triage priority assigned at intake.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Priorities lists every priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Bump returns the next priority tier, capped at Critical.
func (p Priority) Bump() Priority {
	switch p {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	default:
		return PriorityCritical
	}
}

// Sentiment is the tone detected in the complaint text.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Complexity is a coarse estimate of how much handling a complaint needs.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Role is the role of an already-authenticated actor.
type Role string

const (
	RoleCitizen    Role = "citizen"
	RoleDepartment Role = "department"
	RoleAdmin      Role = "admin"
	RoleSystem     Role = "system"
)

// IsStaff reports whether the role may see internal comments.
func (r Role) IsStaff() bool {
	return r == RoleDepartment || r == RoleAdmin || r == RoleSystem
}

// AuthorType classifies who wrote a comment.
type AuthorType string

const (
	AuthorUser       AuthorType = "user"
	AuthorAdmin      AuthorType = "admin"
	AuthorDepartment AuthorType = "department"
	AuthorSystem     AuthorType = "system"
)

// Actor is the identity performing an operation. Authentication happens
// upstream; the engine only trusts the ID and role it is handed.
type Actor struct {
	ID   string
	Role Role
	Name string
}

// SystemActor is used for automated transitions such as SLA escalation.
var SystemActor = Actor{ID: "system", Role: RoleSystem, Name: "System"}

// AuthorType maps the actor's role to the comment author type.
func (a Actor) AuthorType() AuthorType {
	switch a.Role {
	case RoleAdmin:
		return AuthorAdmin
	case RoleDepartment:
		return AuthorDepartment
	case RoleSystem:
		return AuthorSystem
	default:
		return AuthorUser
	}
}

// User is an entry in the local user directory, used to resolve assignees.
type User struct {
	ID         string
	Email      string
	Name       string
	Role       Role
	Department string
	CreatedAt  time.Time
}

// Actor returns the user as an Actor.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role, Name: u.Name}
}

// Complaint is a citizen grievance.
type Complaint struct {
	ID         int64
	TrackingID string

	Name        string
	Email       string
	Phone       string
	Title       string
	Department  string
	Category    string
	Description string

	Priority   Priority
	Sentiment  Sentiment
	Urgency    int
	Complexity Complexity
	Keywords   []string // stored as JSON in DB
	Tags       []string // stored as JSON in DB

	Status           Status
	AssignedTo       string
	EscalationLevel  int
	EscalationReason string
	EscalatedAt      *time.Time

	ViewCount    int
	ResponseTime *time.Duration
	Satisfaction *int

	DateFiled  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time

	Images    []string // stored as JSON in DB
	Documents []string // stored as JSON in DB

	Attachments []*Attachment
	Comments    []*Comment

	// Version increments on every conditional update; used for optimistic
	// concurrency alongside the observed status.
	Version int64
}

// Attachment is an uploaded file reference owned by a complaint.
type Attachment struct {
	ID           int64
	ComplaintID  int64
	Filename     string
	OriginalName string
	URL          string
	PublicID     string
	FileType     string
	FileSize     int64
	UploadedAt   time.Time
	UploadedBy   string
}

// Comment is a note on a complaint. Internal comments are staff-only.
type Comment struct {
	ID          int64
	ComplaintID int64
	Text        string
	Author      string
	AuthorType  AuthorType
	CreatedAt   time.Time
	IsInternal  bool
}

// EntryKind classifies ledger entries. A freshly filed complaint has no
// entries; its filing time is DateFiled.
type EntryKind string

const (
	EntryStatusChange     EntryKind = "status_change"
	EntryComment          EntryKind = "comment"
	EntryAttachmentAdded  EntryKind = "attachment_added"
	EntryAssignmentChange EntryKind = "assignment_change"
	EntryResolution       EntryKind = "resolution"
)

// LedgerEntry is one append-only activity record for a complaint.
type LedgerEntry struct {
	Seq         int64 // insertion order, assigned by storage
	ComplaintID int64
	Kind        EntryKind
	ActorID     string
	ActorRole   Role
	From        string
	To          string
	Message     string
	IsInternal  bool
	CreatedAt   time.Time
}

// ComplaintFilter narrows complaint listings. Zero values mean "any".
type ComplaintFilter struct {
	Status     Status
	Department string
	Category   string
	Page       int
	Limit      int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Normalized returns f with page and limit clamped to usable values.
func (f ComplaintFilter) Normalized() ComplaintFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	return f
}

// Pages returns the number of pages needed for total rows at limit per page.
func Pages(total, limit int) int {
	if limit < 1 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// ComplaintStat is the projection of a complaint used for analytics.
type ComplaintStat struct {
	DateFiled    time.Time
	Status       Status
	Priority     Priority
	Department   string
	Sentiment    Sentiment
	ResponseTime *time.Duration
	Satisfaction *int
}
