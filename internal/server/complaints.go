package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/civicdesk/grievance-desk/internal/analytics"
	"github.com/civicdesk/grievance-desk/internal/intake"
	"github.com/civicdesk/grievance-desk/internal/ledger"
	"github.com/civicdesk/grievance-desk/internal/lifecycle"
	"github.com/civicdesk/grievance-desk/internal/media"
	"github.com/civicdesk/grievance-desk/internal/model"
	"github.com/civicdesk/grievance-desk/internal/tracking"
)

// maxUploadBody bounds the whole multipart request, leaving room for
// headers around a maximum-size file.
const maxUploadBody = media.MaxFileSize + 1<<20

type classifyRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Classifier.Classify(req.Title, req.Description))
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	var req intake.Request
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		actor = model.Actor{ID: "anonymous", Role: model.RoleCitizen, Name: req.Name}
	}
	res, err := s.deps.Intake.File(r.Context(), actor, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/complaints/"+res.TrackingID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"trackingId":     res.TrackingID,
		"status":         res.Complaint.Status,
		"department":     res.Complaint.Department,
		"category":       res.Complaint.Category,
		"classification": res.Classification,
		"dateFiled":      res.Complaint.DateFiled,
	})
}

// trackingIDParam returns the route's tracking ID, writing a 404 and
// returning false when it cannot name a complaint.
func (s *Server) trackingIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "trackingID")
	if !tracking.Valid(id) {
		writeProblem(w, http.StatusNotFound, kindNotFound, "complaint not found", nil)
		return "", false
	}
	return id, true
}

func (s *Server) handleGetComplaint(w http.ResponseWriter, r *http.Request) {
	id, ok := s.trackingIDParam(w, r)
	if !ok {
		return
	}
	c, err := s.deps.Store.GetComplaintByTrackingID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, model.Dependency("get complaint", err))
		return
	}
	if err := s.deps.Store.IncrementViewCount(r.Context(), c.ID); err != nil {
		s.logger.Warn("increment view count", append(logAttrs(r), "tracking_id", id, "error", err)...)
	} else {
		c.ViewCount++
	}
	writeJSON(w, http.StatusOK, newComplaintView(c, isStaff(r)))
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.trackingIDParam(w, r)
	if !ok {
		return
	}
	entries, err := s.deps.Ledger.ListByTrackingID(r.Context(), id, ledger.ListOptions{IncludeInternal: isStaff(r)})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trackingId": id, "entries": newEntryViews(entries)})
}

type commentRequest struct {
	Text     string `json:"text"`
	Internal bool   `json:"internal"`
}

func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.trackingIDParam(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	actor, _ := ActorFromContext(r.Context())
	c, err := s.deps.Ledger.AddComment(r.Context(), id, actor, req.Text, req.Internal)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("comment added", append(logAttrs(r), "tracking_id", id, "internal", req.Internal)...)
	writeJSON(w, http.StatusCreated, newCommentView(c))
}

func (s *Server) handleAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.trackingIDParam(w, r)
	if !ok {
		return
	}
	// Check the complaint first so no upload is stored for a missing one.
	if _, err := s.deps.Store.GetComplaintByTrackingID(r.Context(), id); err != nil {
		s.writeError(w, r, model.Dependency("get complaint", err))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	mr, err := r.MultipartReader()
	if err != nil {
		s.writeError(w, r, model.NewValidationError("expected a multipart/form-data upload"))
		return
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			s.writeError(w, r, &model.ValidationError{Message: "invalid upload", Fields: map[string]string{"file": "is required"}})
			return
		}
		if err != nil {
			s.uploadError(w, r, fmt.Errorf("read multipart: %w", err))
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		contentType := part.Header.Get("Content-Type")
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			contentType = mt
		}
		obj, err := s.deps.Media.Put(r.Context(), part.FileName(), contentType, part)
		part.Close()
		if err != nil {
			s.uploadError(w, r, err)
			return
		}

		actor, _ := ActorFromContext(r.Context())
		att, err := s.deps.Ledger.AddAttachment(r.Context(), id, actor, obj)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.logger.Info("attachment added", append(logAttrs(r), "tracking_id", id, "public_id", obj.PublicID, "bytes", obj.Size)...)
		writeJSON(w, http.StatusCreated, attachmentView{
			Filename:     att.Filename,
			OriginalName: att.OriginalName,
			URL:          att.URL,
			PublicID:     att.PublicID,
			FileType:     att.FileType,
			FileSize:     att.FileSize,
			UploadedAt:   att.UploadedAt,
			UploadedBy:   att.UploadedBy,
		})
		return
	}
}

func (s *Server) uploadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		writeProblem(w, http.StatusRequestEntityTooLarge, kindValidation, media.ErrFileTooLarge.Error(), nil)
		return
	}
	if errors.Is(err, model.ErrValidation) {
		writeProblem(w, http.StatusBadRequest, kindValidation, err.Error(), nil)
		return
	}
	s.writeError(w, r, model.Dependency("store upload", err))
}

type satisfactionRequest struct {
	Score int `json:"score"`
}

func (s *Server) handleSatisfaction(w http.ResponseWriter, r *http.Request) {
	id, ok := s.trackingIDParam(w, r)
	if !ok {
		return
	}
	var req satisfactionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	actor, _ := ActorFromContext(r.Context())
	c, err := s.deps.Lifecycle.RecordSatisfaction(r.Context(), id, actor, req.Score)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newComplaintView(c, isStaff(r)))
}

type statusRequest struct {
	Status model.Status `json:"status"`
	Reason string       `json:"reason"`
	Note   string       `json:"note"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.trackingIDParam(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	actor, _ := ActorFromContext(r.Context())
	c, err := s.deps.Lifecycle.Transition(r.Context(), id, actor, lifecycle.TransitionRequest{
		To:     req.Status,
		Reason: req.Reason,
		Note:   req.Note,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newComplaintView(c, true))
}

type assignRequest struct {
	AssigneeID string `json:"assigneeId"`
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	id, ok := s.trackingIDParam(w, r)
	if !ok {
		return
	}
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.AssigneeID == "" {
		s.writeError(w, r, &model.ValidationError{Message: "invalid assignment", Fields: map[string]string{"assigneeId": "is required"}})
		return
	}
	actor, _ := ActorFromContext(r.Context())
	c, err := s.deps.Lifecycle.AssignUser(r.Context(), id, actor, req.AssigneeID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newComplaintView(c, true))
}

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req lifecycle.UserRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	actor, _ := ActorFromContext(r.Context())
	u, err := s.deps.Lifecycle.RegisterUser(r.Context(), actor, req)
	if errors.Is(err, model.ErrConflict) {
		writeProblem(w, http.StatusConflict, kindConflict, "a user with this id or email already exists", nil)
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"name":       u.Name,
		"role":       u.Role,
		"department": u.Department,
		"createdAt":  u.CreatedAt,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.ComplaintFilter{
		Status:     model.Status(q.Get("status")),
		Department: q.Get("department"),
		Category:   q.Get("category"),
	}
	fields := map[string]string{}
	if filter.Status != "" && !filter.Status.Valid() {
		fields["status"] = fmt.Sprintf("unknown status %q", filter.Status)
	}
	for name, dst := range map[string]*int{"page": &filter.Page, "limit": &filter.Limit} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			fields[name] = "must be a positive integer"
			continue
		}
		*dst = n
	}
	if len(fields) > 0 {
		s.writeError(w, r, &model.ValidationError{Message: "invalid query", Fields: fields})
		return
	}

	filter = filter.Normalized()
	rows, total, err := s.deps.Store.ListComplaints(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, model.Dependency("list complaints", err))
		return
	}
	page := pageView{
		Items: make([]complaintView, 0, len(rows)),
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
		Pages: model.Pages(total, filter.Limit),
	}
	for _, c := range rows {
		page.Items = append(page.Items, newComplaintView(c, true))
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	period, err := analytics.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sum, err := s.deps.Analytics.Summarize(r.Context(), period)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
