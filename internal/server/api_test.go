package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/civicdesk/grievance-desk/internal/analytics"
	"github.com/civicdesk/grievance-desk/internal/classify"
	"github.com/civicdesk/grievance-desk/internal/intake"
	"github.com/civicdesk/grievance-desk/internal/ledger"
	"github.com/civicdesk/grievance-desk/internal/lifecycle"
	"github.com/civicdesk/grievance-desk/internal/media"
	"github.com/civicdesk/grievance-desk/internal/model"
	"github.com/civicdesk/grievance-desk/internal/store"
	"github.com/civicdesk/grievance-desk/internal/tracking"
)

var (
	citizen = model.Actor{ID: "citizen-1", Role: model.RoleCitizen, Name: "Asha Rao"}
	officer = model.Actor{ID: "dept-1", Role: model.RoleDepartment, Name: "Ravi Kumar"}
	admin   = model.Actor{ID: "admin-1", Role: model.RoleAdmin, Name: "Meera Iyer"}
)

type testAPI struct {
	t      *testing.T
	srv    *Server
	store  *store.SQLiteStore
	upload string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWith(t, nil)
}

// newTestAPIWith lets a test adjust the server config and dependencies
// before the server is built.
func newTestAPIWith(t *testing.T, adjust func(*Config, *Deps)) *testAPI {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	s, err := store.NewSQLiteStore(ctx, filepath.Join(dir, "api.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	for _, u := range []*model.User{
		{ID: officer.ID, Name: officer.Name, Email: "ravi@city.gov", Role: model.RoleDepartment, Department: "Public Works Department"},
		{ID: citizen.ID, Name: citizen.Name, Email: "asha@example.com", Role: model.RoleCitizen},
	} {
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}

	logger := testLogger()
	uploads := filepath.Join(dir, "uploads")
	ms, err := media.NewLocalStore(uploads, "http://localhost/uploads")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	classifier := classify.Default()

	cfg := Config{
		JWTSecret: string(testSecret),
		UploadDir: uploads,
		RateLimit: RateLimiterConfig{RequestsPerSecond: 1000, Burst: 1000, FilingsPerSecond: 1000, FilingBurst: 1000},
	}
	deps := Deps{
		Store:      s,
		Intake:     intake.New(s, classifier, tracking.New("GRV"), nil, logger),
		Lifecycle:  lifecycle.New(s, logger),
		Ledger:     ledger.New(s),
		Analytics:  analytics.New(s, analytics.NewMemoryCache(time.Minute), logger),
		Classifier: classifier,
		Media:      ms,
	}
	if adjust != nil {
		adjust(&cfg, &deps)
	}
	srv, err := NewServer(cfg, deps, logger)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(srv.Stop)
	return &testAPI{t: t, srv: srv, store: s, upload: uploads}
}

func (a *testAPI) token(actor model.Actor) string {
	a.t.Helper()
	tok, err := IssueToken(testSecret, actor, time.Hour, time.Now())
	if err != nil {
		a.t.Fatalf("IssueToken: %v", err)
	}
	return tok
}

// do sends a JSON request as actor (anonymous when actor.ID is empty).
func (a *testAPI) do(method, path string, actor model.Actor, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor.ID != "" {
		req.Header.Set("Authorization", "Bearer "+a.token(actor))
	}
	rec := httptest.NewRecorder()
	a.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

type errorBody struct {
	Error problem `json:"error"`
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, kind string) errorBody {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	body := decode[errorBody](t, rec)
	if body.Error.Kind != kind {
		t.Errorf("error kind = %q, want %q", body.Error.Kind, kind)
	}
	return body
}

func (a *testAPI) file(description string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/complaints", model.Actor{}, map[string]string{
		"name":        "Asha Rao",
		"email":       "asha@example.com",
		"description": description,
	})
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("file: status %d, body %s", rec.Code, rec.Body.String())
	}
	return decode[map[string]any](a.t, rec)["trackingId"].(string)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/healthz", model.Actor{}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestClassifyPreview(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodPost, "/api/classify", model.Actor{}, map[string]string{
		"description": "Water supply has been cut for 3 days, emergency for elderly residents",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decode[classify.Result](t, rec)
	if got.Category != "infrastructure" || got.Priority != model.PriorityCritical {
		t.Errorf("classification = %+v", got)
	}
}

func TestFileComplaint(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodPost, "/api/complaints", model.Actor{}, map[string]string{
		"name":        "Asha Rao",
		"email":       "asha@example.com",
		"phone":       "+91 98450 00000",
		"description": "Water supply has been cut for 3 days, emergency for elderly residents",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decode[map[string]any](t, rec)
	id, _ := body["trackingId"].(string)
	if !tracking.Valid(id) {
		t.Fatalf("tracking id %q is not valid", id)
	}
	if body["status"] != string(model.StatusPending) {
		t.Errorf("status = %v, want Pending", body["status"])
	}
	if body["department"] != "Public Works Department" {
		t.Errorf("department = %v", body["department"])
	}
	if loc := rec.Header().Get("Location"); loc != "/api/complaints/"+id {
		t.Errorf("Location = %q", loc)
	}
}

func TestFileComplaintValidation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/complaints", model.Actor{}, map[string]string{
		"name":        "Asha Rao",
		"email":       "not-an-email",
		"description": "Streetlight broken",
	})
	body := expectError(t, rec, http.StatusBadRequest, "validation")
	if body.Error.Fields["email"] == "" {
		t.Errorf("expected email field error, got %+v", body.Error.Fields)
	}

	rec = api.do(http.MethodPost, "/api/complaints", model.Actor{}, map[string]any{"name": 42})
	expectError(t, rec, http.StatusBadRequest, "validation")

	rec = api.do(http.MethodPost, "/api/complaints", model.Actor{}, map[string]string{"nickname": "x"})
	expectError(t, rec, http.StatusBadRequest, "validation")
}

func TestGetComplaintVisibility(t *testing.T) {
	api := newTestAPI(t)
	id := api.file("Garbage has not been collected on our street for two weeks")

	if rec := api.do(http.MethodPost, "/api/complaints/"+id+"/comments", officer,
		map[string]any{"text": "Crew scheduled for Tuesday", "internal": true}); rec.Code != http.StatusCreated {
		t.Fatalf("internal comment: %d %s", rec.Code, rec.Body.String())
	}
	if rec := api.do(http.MethodPost, "/api/complaints/"+id+"/comments", citizen,
		map[string]any{"text": "Still waiting"}); rec.Code != http.StatusCreated {
		t.Fatalf("public comment: %d %s", rec.Code, rec.Body.String())
	}

	public := decode[complaintView](t, api.do(http.MethodGet, "/api/complaints/"+id, model.Actor{}, nil))
	if len(public.Comments) != 1 || public.Comments[0].Text != "Still waiting" {
		t.Errorf("public comments = %+v", public.Comments)
	}
	if public.Email != "" || public.Phone != "" {
		t.Error("contact details leaked to anonymous reader")
	}
	if public.ViewCount != 1 {
		t.Errorf("view count = %d, want 1", public.ViewCount)
	}

	staff := decode[complaintView](t, api.do(http.MethodGet, "/api/complaints/"+id, officer, nil))
	if len(staff.Comments) != 2 {
		t.Errorf("staff sees %d comments, want 2", len(staff.Comments))
	}
	if staff.Email != "asha@example.com" {
		t.Errorf("staff email = %q", staff.Email)
	}
	if staff.ViewCount != 2 {
		t.Errorf("view count = %d, want 2", staff.ViewCount)
	}

	type activity struct {
		Entries []entryView `json:"entries"`
	}
	if got := decode[activity](t, api.do(http.MethodGet, "/api/complaints/"+id+"/activity", model.Actor{}, nil)); len(got.Entries) != 1 {
		t.Errorf("public activity has %d entries, want 1", len(got.Entries))
	}
	if got := decode[activity](t, api.do(http.MethodGet, "/api/complaints/"+id+"/activity", admin, nil)); len(got.Entries) != 2 {
		t.Errorf("staff activity has %d entries, want 2", len(got.Entries))
	}
}

// stallingStore blocks complaint lookups until the request context ends.
type stallingStore struct {
	*store.SQLiteStore
}

func (stallingStore) GetComplaintByTrackingID(ctx context.Context, _ string) (*model.Complaint, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRequestTimeoutBoundsStorage(t *testing.T) {
	api := newTestAPIWith(t, func(cfg *Config, deps *Deps) {
		cfg.RequestTimeout = 50 * time.Millisecond
		deps.Store = stallingStore{deps.Store.(*store.SQLiteStore)}
	})

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- api.do(http.MethodGet, "/api/complaints/GRV-0LQ1Z8K2M-7K3M9QXZ", model.Actor{}, nil)
	}()
	select {
	case rec := <-done:
		expectError(t, rec, http.StatusGatewayTimeout, "dependency")
	case <-time.After(5 * time.Second):
		t.Fatal("request was not bounded by the timeout")
	}
}

func TestGetComplaintNotFound(t *testing.T) {
	api := newTestAPI(t)
	expectError(t, api.do(http.MethodGet, "/api/complaints/GRV-000000000-00000000", model.Actor{}, nil), http.StatusNotFound, "not_found")
	expectError(t, api.do(http.MethodGet, "/api/complaints/nonsense", model.Actor{}, nil), http.StatusNotFound, "not_found")
}

func TestCitizenCannotWriteInternalComment(t *testing.T) {
	api := newTestAPI(t)
	id := api.file("Streetlight broken near the park")
	rec := api.do(http.MethodPost, "/api/complaints/"+id+"/comments", citizen, map[string]any{"text": "secret", "internal": true})
	expectError(t, rec, http.StatusBadRequest, "validation")
}

func TestAuthorization(t *testing.T) {
	api := newTestAPI(t)
	id := api.file("Streetlight broken near the park")

	tests := []struct {
		name   string
		method string
		path   string
		actor  model.Actor
		body   any
		status int
		kind   string
	}{
		{"anonymous comment", http.MethodPost, "/api/complaints/" + id + "/comments", model.Actor{}, map[string]string{"text": "hi"}, http.StatusUnauthorized, "unauthorized"},
		{"anonymous list", http.MethodGet, "/api/complaints", model.Actor{}, nil, http.StatusUnauthorized, "unauthorized"},
		{"citizen list", http.MethodGet, "/api/complaints", citizen, nil, http.StatusForbidden, "forbidden"},
		{"citizen status", http.MethodPost, "/api/complaints/" + id + "/status", citizen, map[string]string{"status": "Resolved"}, http.StatusForbidden, "forbidden"},
		{"citizen assign", http.MethodPost, "/api/complaints/" + id + "/assign", citizen, map[string]string{"assigneeId": officer.ID}, http.StatusForbidden, "forbidden"},
		{"citizen analytics", http.MethodGet, "/api/analytics", citizen, nil, http.StatusForbidden, "forbidden"},
		{"anonymous register user", http.MethodPost, "/api/users", model.Actor{}, map[string]string{"id": "x"}, http.StatusUnauthorized, "unauthorized"},
		{"department register user", http.MethodPost, "/api/users", officer, map[string]string{"id": "x"}, http.StatusForbidden, "forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, api.do(tt.method, tt.path, tt.actor, tt.body), tt.status, tt.kind)
		})
	}

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/complaints/"+id, nil)
		req.Header.Set("Authorization", "Bearer forged")
		rec := httptest.NewRecorder()
		api.srv.Handler().ServeHTTP(rec, req)
		expectError(t, rec, http.StatusUnauthorized, "unauthorized")
	})
}

func TestLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	id := api.file("Garbage has not been collected on our street for two weeks")
	base := "/api/complaints/" + id

	// Pending cannot jump to Resolved.
	expectError(t, api.do(http.MethodPost, base+"/status", officer, map[string]string{"status": "Resolved"}),
		http.StatusBadRequest, "validation")
	// Escalation needs a reason.
	expectError(t, api.do(http.MethodPost, base+"/status", officer, map[string]string{"status": "Escalated"}),
		http.StatusBadRequest, "validation")
	// Unknown status.
	expectError(t, api.do(http.MethodPost, base+"/status", officer, map[string]string{"status": "Closed"}),
		http.StatusBadRequest, "validation")

	// Citizens cannot be assignees; department users can.
	expectError(t, api.do(http.MethodPost, base+"/assign", admin, map[string]string{"assigneeId": citizen.ID}),
		http.StatusBadRequest, "validation")
	expectError(t, api.do(http.MethodPost, base+"/assign", admin, map[string]string{"assigneeId": "ghost"}),
		http.StatusBadRequest, "validation")
	rec := api.do(http.MethodPost, base+"/assign", admin, map[string]string{"assigneeId": officer.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("assign: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[complaintView](t, rec); got.AssignedTo != officer.ID {
		t.Errorf("assignedTo = %q", got.AssignedTo)
	}

	// Satisfaction is only accepted once resolved.
	expectError(t, api.do(http.MethodPost, base+"/satisfaction", citizen, map[string]int{"score": 4}),
		http.StatusBadRequest, "validation")

	for _, st := range []model.Status{model.StatusInProgress, model.StatusResolved} {
		rec := api.do(http.MethodPost, base+"/status", officer, map[string]string{"status": string(st), "note": "done"})
		if rec.Code != http.StatusOK {
			t.Fatalf("transition to %s: %d %s", st, rec.Code, rec.Body.String())
		}
	}
	resolved := decode[complaintView](t, api.do(http.MethodGet, base, officer, nil))
	if resolved.Status != model.StatusResolved || resolved.ResolvedAt == nil || resolved.ResponseTimeHours == nil {
		t.Fatalf("resolved complaint = %+v", resolved)
	}

	// Resolving again is a no-op; reopening is not allowed.
	if rec := api.do(http.MethodPost, base+"/status", officer, map[string]string{"status": "Resolved"}); rec.Code != http.StatusOK {
		t.Errorf("repeat resolve: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, api.do(http.MethodPost, base+"/status", officer, map[string]string{"status": "Pending"}),
		http.StatusBadRequest, "validation")

	expectError(t, api.do(http.MethodPost, base+"/satisfaction", citizen, map[string]int{"score": 9}),
		http.StatusBadRequest, "validation")
	rec = api.do(http.MethodPost, base+"/satisfaction", citizen, map[string]int{"score": 4})
	if rec.Code != http.StatusOK {
		t.Fatalf("satisfaction: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[complaintView](t, rec); got.Satisfaction == nil || *got.Satisfaction != 4 {
		t.Errorf("satisfaction = %v", got.Satisfaction)
	}
}

func TestRegisteredUserCanBeAssigned(t *testing.T) {
	api := newTestAPI(t)
	id := api.file("Streetlight broken near the park")
	base := "/api/complaints/" + id

	// Not in the directory yet.
	expectError(t, api.do(http.MethodPost, base+"/assign", admin, map[string]string{"assigneeId": "d-2"}),
		http.StatusBadRequest, "validation")

	body := expectError(t, api.do(http.MethodPost, "/api/users", admin, map[string]string{
		"id": "d-2", "email": "not-an-email", "name": "Kiran", "role": "department",
	}), http.StatusBadRequest, "validation")
	for _, f := range []string{"email", "department"} {
		if body.Error.Fields[f] == "" {
			t.Errorf("expected %s field error, got %+v", f, body.Error.Fields)
		}
	}
	expectError(t, api.do(http.MethodPost, "/api/users", admin, map[string]string{
		"id": "d-2", "email": "kiran@city.gov", "name": "Kiran", "role": "citizen",
	}), http.StatusBadRequest, "validation")

	user := map[string]string{
		"id": "d-2", "email": "Kiran@City.gov", "name": "Kiran", "role": "department", "department": "Public Works Department",
	}
	rec := api.do(http.MethodPost, "/api/users", admin, user)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register user: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[map[string]any](t, rec); got["email"] != "kiran@city.gov" {
		t.Errorf("email = %v, want lowercased", got["email"])
	}
	expectError(t, api.do(http.MethodPost, "/api/users", admin, user), http.StatusConflict, "conflict")

	rec = api.do(http.MethodPost, base+"/assign", admin, map[string]string{"assigneeId": "d-2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("assign: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[complaintView](t, rec); got.AssignedTo != "d-2" {
		t.Errorf("assignedTo = %q", got.AssignedTo)
	}
}

func TestListComplaints(t *testing.T) {
	api := newTestAPI(t)
	for range 3 {
		api.file("Garbage has not been collected on our street for two weeks")
	}
	api.file("Water supply has been cut for 3 days, emergency for elderly residents")

	rec := api.do(http.MethodGet, "/api/complaints?limit=2&page=1", officer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	page := decode[pageView](t, rec)
	if page.Total != 4 || page.Pages != 2 || page.Limit != 2 || len(page.Items) != 2 {
		t.Errorf("page = total %d pages %d limit %d items %d", page.Total, page.Pages, page.Limit, len(page.Items))
	}

	page = decode[pageView](t, api.do(http.MethodGet, "/api/complaints?category=infrastructure", officer, nil))
	if page.Total != 1 {
		t.Errorf("infrastructure total = %d, want 1", page.Total)
	}

	page = decode[pageView](t, api.do(http.MethodGet, "/api/complaints?limit=1000", officer, nil))
	if page.Limit != model.MaxPageLimit {
		t.Errorf("limit = %d, want clamp to %d", page.Limit, model.MaxPageLimit)
	}

	body := expectError(t, api.do(http.MethodGet, "/api/complaints?status=Closed&page=zero", officer, nil),
		http.StatusBadRequest, "validation")
	if body.Error.Fields["status"] == "" || body.Error.Fields["page"] == "" {
		t.Errorf("fields = %+v", body.Error.Fields)
	}
}

func TestAnalytics(t *testing.T) {
	api := newTestAPI(t)
	api.file("Garbage has not been collected on our street for two weeks")
	api.file("Water supply has been cut for 3 days, emergency for elderly residents")

	rec := api.do(http.MethodGet, "/api/analytics?period=7d", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	sum := decode[analytics.Summary](t, rec)
	if sum.Total != 2 || sum.Period != analytics.PeriodWeek {
		t.Errorf("summary total %d period %q", sum.Total, sum.Period)
	}
	if sum.ByStatus[model.StatusPending] != 2 {
		t.Errorf("pending = %d", sum.ByStatus[model.StatusPending])
	}

	expectError(t, api.do(http.MethodGet, "/api/analytics?period=2w", admin, nil), http.StatusBadRequest, "validation")
}

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func multipartBody(t *testing.T, field, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	pw, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	pw.Write(content)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadAttachment(t *testing.T) {
	api := newTestAPI(t)
	id := api.file("Streetlight broken near the park")

	upload := func(field, name, ct string, content []byte) *httptest.ResponseRecorder {
		body, contentType := multipartBody(t, field, name, ct, content)
		req := httptest.NewRequest(http.MethodPost, "/api/complaints/"+id+"/attachments", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+api.token(citizen))
		rec := httptest.NewRecorder()
		api.srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	content := append(append([]byte{}, pngHeader...), []byte("rest of the image")...)
	rec := upload("file", "../../light.png", "image/png", content)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	att := decode[attachmentView](t, rec)
	if att.OriginalName != "light.png" || att.FileSize != int64(len(content)) || att.UploadedBy != citizen.ID {
		t.Errorf("attachment = %+v", att)
	}
	if _, err := os.Stat(filepath.Join(api.upload, att.Filename)); err != nil {
		t.Errorf("stored file missing: %v", err)
	}

	got := decode[complaintView](t, api.do(http.MethodGet, "/api/complaints/"+id, model.Actor{}, nil))
	if len(got.Attachments) != 1 {
		t.Errorf("complaint has %d attachments, want 1", len(got.Attachments))
	}

	served := httptest.NewRecorder()
	api.srv.Handler().ServeHTTP(served, httptest.NewRequest(http.MethodGet, "/uploads/"+att.Filename, nil))
	if served.Code != http.StatusOK || !bytes.Equal(served.Body.Bytes(), content) {
		t.Errorf("serving upload: status %d", served.Code)
	}

	expectError(t, upload("file", "evil.png", "image/png", []byte("MZ not a png")), http.StatusBadRequest, "validation")
	expectError(t, upload("file", "page.html", "text/html", []byte("<script>")), http.StatusBadRequest, "validation")
	expectError(t, upload("other", "light.png", "image/png", content), http.StatusBadRequest, "validation")
}
