package server

import (
	"time"

	"github.com/civicdesk/grievance-desk/internal/ledger"
	"github.com/civicdesk/grievance-desk/internal/model"
)

// complaintView is the JSON shape of a complaint. Contact details are only
// populated for staff.
type complaintView struct {
	TrackingID  string `json:"trackingId"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Title       string `json:"title,omitempty"`
	Department  string `json:"department"`
	Category    string `json:"category"`
	Description string `json:"description"`

	Priority   model.Priority   `json:"priority"`
	Sentiment  model.Sentiment  `json:"sentiment"`
	Urgency    int              `json:"urgency"`
	Complexity model.Complexity `json:"complexity"`
	Keywords   []string         `json:"keywords"`
	Tags       []string         `json:"tags"`

	Status           model.Status `json:"status"`
	AssignedTo       string       `json:"assignedTo,omitempty"`
	EscalationLevel  int          `json:"escalationLevel"`
	EscalationReason string       `json:"escalationReason,omitempty"`
	EscalatedAt      *time.Time   `json:"escalatedAt,omitempty"`

	ViewCount         int      `json:"viewCount"`
	ResponseTimeHours *float64 `json:"responseTimeHours,omitempty"`
	Satisfaction      *int     `json:"satisfaction,omitempty"`

	DateFiled  time.Time  `json:"dateFiled"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`

	Attachments []attachmentView `json:"attachments,omitempty"`
	Comments    []commentView    `json:"comments,omitempty"`
}

type attachmentView struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	URL          string    `json:"url"`
	PublicID     string    `json:"publicId"`
	FileType     string    `json:"fileType"`
	FileSize     int64     `json:"fileSize"`
	UploadedAt   time.Time `json:"uploadedAt"`
	UploadedBy   string    `json:"uploadedBy"`
}

type commentView struct {
	Text       string           `json:"text"`
	Author     string           `json:"author"`
	AuthorType model.AuthorType `json:"authorType"`
	CreatedAt  time.Time        `json:"createdAt"`
	IsInternal bool             `json:"isInternal,omitempty"`
}

type entryView struct {
	Seq        int64           `json:"seq"`
	Kind       model.EntryKind `json:"kind"`
	ActorID    string          `json:"actorId"`
	ActorRole  model.Role      `json:"actorRole"`
	From       string          `json:"from,omitempty"`
	To         string          `json:"to,omitempty"`
	Message    string          `json:"message,omitempty"`
	IsInternal bool            `json:"isInternal,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type pageView struct {
	Items []complaintView `json:"items"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Total int             `json:"total"`
	Pages int             `json:"pages"`
}

func newComplaintView(c *model.Complaint, staff bool) complaintView {
	v := complaintView{
		TrackingID:       c.TrackingID,
		Name:             c.Name,
		Title:            c.Title,
		Department:       c.Department,
		Category:         c.Category,
		Description:      c.Description,
		Priority:         c.Priority,
		Sentiment:        c.Sentiment,
		Urgency:          c.Urgency,
		Complexity:       c.Complexity,
		Keywords:         nonNil(c.Keywords),
		Tags:             nonNil(c.Tags),
		Status:           c.Status,
		AssignedTo:       c.AssignedTo,
		EscalationLevel:  c.EscalationLevel,
		EscalationReason: c.EscalationReason,
		EscalatedAt:      c.EscalatedAt,
		ViewCount:        c.ViewCount,
		Satisfaction:     c.Satisfaction,
		DateFiled:        c.DateFiled,
		UpdatedAt:        c.UpdatedAt,
		ResolvedAt:       c.ResolvedAt,
	}
	if staff {
		v.Email = c.Email
		v.Phone = c.Phone
	}
	if c.ResponseTime != nil {
		h := c.ResponseTime.Hours()
		v.ResponseTimeHours = &h
	}
	for _, a := range c.Attachments {
		v.Attachments = append(v.Attachments, attachmentView{
			Filename:     a.Filename,
			OriginalName: a.OriginalName,
			URL:          a.URL,
			PublicID:     a.PublicID,
			FileType:     a.FileType,
			FileSize:     a.FileSize,
			UploadedAt:   a.UploadedAt,
			UploadedBy:   a.UploadedBy,
		})
	}
	for _, cm := range ledger.VisibleComments(c.Comments, staff) {
		v.Comments = append(v.Comments, newCommentView(cm))
	}
	return v
}

func newCommentView(c *model.Comment) commentView {
	return commentView{
		Text:       c.Text,
		Author:     c.Author,
		AuthorType: c.AuthorType,
		CreatedAt:  c.CreatedAt,
		IsInternal: c.IsInternal,
	}
}

func newEntryViews(entries []*model.LedgerEntry) []entryView {
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryView{
			Seq:        e.Seq,
			Kind:       e.Kind,
			ActorID:    e.ActorID,
			ActorRole:  e.ActorRole,
			From:       e.From,
			To:         e.To,
			Message:    e.Message,
			IsInternal: e.IsInternal,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
