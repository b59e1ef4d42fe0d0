package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/civicdesk/grievance-desk/internal/model"
)

// Fixed width so that lexical order in SQL matches time order.
const timeFormat = "2006-01-02 15:04:05.000000"

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens a SQLite database at the given path and runs migrations.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename to ensure order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("execute migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

// --- Users ---

func (s *SQLiteStore) CreateUser(ctx context.Context, user *model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, department, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, string(user.Role), nullString(user.Department),
		user.CreatedAt.UTC().Format(timeFormat))
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", user.ID, model.ErrConflict)
	}
	return err
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	var role, createdAt string
	var department sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, role, department, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.Name, &role, &department, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	u.Department = department.String
	u.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	return &u, nil
}

// --- Complaints ---

const complaintColumns = `id, tracking_id, name, email, phone, title, department, category, description,
	priority, sentiment, urgency, complexity, keywords, tags, status, assigned_to,
	escalation_level, escalation_reason, escalated_at, view_count, response_time_ms, satisfaction,
	images, documents, version, date_filed, updated_at, resolved_at`

func (s *SQLiteStore) InsertComplaint(ctx context.Context, c *model.Complaint) error {
	keywords, err := marshalList(c.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}
	tags, err := marshalList(c.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	images, err := marshalList(c.Images)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}
	documents, err := marshalList(c.Documents)
	if err != nil {
		return fmt.Errorf("marshal documents: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO complaints (tracking_id, name, email, phone, title, department, category, description,
		 priority, sentiment, urgency, complexity, keywords, tags, status, assigned_to,
		 escalation_level, escalation_reason, escalated_at, view_count, response_time_ms, satisfaction,
		 images, documents, version, date_filed, updated_at, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.TrackingID, c.Name, c.Email, nullString(c.Phone), nullString(c.Title),
		c.Department, c.Category, c.Description,
		string(c.Priority), string(c.Sentiment), c.Urgency, string(c.Complexity), keywords, tags,
		string(c.Status), nullString(c.AssignedTo),
		c.EscalationLevel, nullString(c.EscalationReason), nullTime(c.EscalatedAt),
		c.ViewCount, nullDuration(c.ResponseTime), nullInt(c.Satisfaction),
		images, documents, c.Version,
		c.DateFiled.UTC().Format(timeFormat), c.UpdatedAt.UTC().Format(timeFormat), nullTime(c.ResolvedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("tracking id %s: %w", c.TrackingID, model.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert complaint: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("complaint id: %w", err)
	}
	c.ID = id
	return nil
}

func (s *SQLiteStore) TrackingIDExists(ctx context.Context, trackingID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM complaints WHERE tracking_id = ?`, trackingID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) GetComplaint(ctx context.Context, id int64) (*model.Complaint, error) {
	c, err := scanComplaint(s.db.QueryRowContext(ctx,
		`SELECT `+complaintColumns+` FROM complaints WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("complaint %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return c, s.loadChildren(ctx, c)
}

func (s *SQLiteStore) GetComplaintByTrackingID(ctx context.Context, trackingID string) (*model.Complaint, error) {
	c, err := scanComplaint(s.db.QueryRowContext(ctx,
		`SELECT `+complaintColumns+` FROM complaints WHERE tracking_id = ?`, trackingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("complaint %s: %w", trackingID, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return c, s.loadChildren(ctx, c)
}

func (s *SQLiteStore) loadChildren(ctx context.Context, c *model.Complaint) error {
	var err error
	if c.Comments, err = s.ListComments(ctx, c.ID); err != nil {
		return fmt.Errorf("list comments: %w", err)
	}
	if c.Attachments, err = s.ListAttachments(ctx, c.ID); err != nil {
		return fmt.Errorf("list attachments: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateComplaint(ctx context.Context, c *model.Complaint, expected model.Status, entries ...*model.LedgerEntry) error {
	tags, err := marshalList(c.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE complaints SET department = ?, category = ?, priority = ?, tags = ?, status = ?,
		 assigned_to = ?, escalation_level = ?, escalation_reason = ?, escalated_at = ?,
		 response_time_ms = ?, satisfaction = ?, updated_at = ?, resolved_at = ?, version = version + 1
		 WHERE id = ? AND status = ? AND version = ?`,
		c.Department, c.Category, string(c.Priority), tags, string(c.Status),
		nullString(c.AssignedTo), c.EscalationLevel, nullString(c.EscalationReason), nullTime(c.EscalatedAt),
		nullDuration(c.ResponseTime), nullInt(c.Satisfaction),
		c.UpdatedAt.UTC().Format(timeFormat), nullTime(c.ResolvedAt),
		c.ID, string(expected), c.Version)
	if err != nil {
		return fmt.Errorf("update complaint %d: %w", c.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM complaints WHERE id = ?`, c.ID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("complaint %d: %w", c.ID, model.ErrNotFound)
		}
		return fmt.Errorf("complaint %d changed since it was read: %w", c.ID, model.ErrConflict)
	}

	for _, e := range entries {
		e.ComplaintID = c.ID
		if err := insertLedgerEntry(ctx, tx, e); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	c.Version++
	return nil
}

func (s *SQLiteStore) IncrementViewCount(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE complaints SET view_count = view_count + 1 WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) ListComplaints(ctx context.Context, filter model.ComplaintFilter) ([]*model.Complaint, int, error) {
	filter = filter.Normalized()

	var where []string
	var args []any
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Department != "" {
		where = append(where, "department = ?")
		args = append(args, filter.Department)
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM complaints`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count complaints: %w", err)
	}

	pageArgs := append(append([]any{}, args...), filter.Limit, (filter.Page-1)*filter.Limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+complaintColumns+` FROM complaints`+clause+` ORDER BY date_filed DESC, id DESC LIMIT ? OFFSET ?`,
		pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list complaints: %w", err)
	}
	defer rows.Close()

	complaints, err := scanComplaints(rows)
	if err != nil {
		return nil, 0, err
	}
	return complaints, total, nil
}

func (s *SQLiteStore) ListStaleComplaints(ctx context.Context, priority model.Priority, statuses []model.Status, before time.Time) ([]*model.Complaint, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	args := []any{string(priority)}
	for _, st := range statuses {
		args = append(args, string(st))
	}
	args = append(args, before.UTC().Format(timeFormat))

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+complaintColumns+` FROM complaints
		 WHERE priority = ? AND status IN (`+placeholders+`) AND updated_at < ?
		 ORDER BY updated_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func (s *SQLiteStore) AggregateComplaints(ctx context.Context, from, to time.Time) ([]*model.ComplaintStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date_filed, status, priority, department, sentiment, response_time_ms, satisfaction
		 FROM complaints WHERE date_filed >= ? AND date_filed < ? ORDER BY date_filed`,
		from.UTC().Format(timeFormat), to.UTC().Format(timeFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*model.ComplaintStat
	for rows.Next() {
		var st model.ComplaintStat
		var dateFiled, status, priority, sentiment string
		var responseMS, satisfaction sql.NullInt64
		if err := rows.Scan(&dateFiled, &status, &priority, &st.Department, &sentiment, &responseMS, &satisfaction); err != nil {
			return nil, err
		}
		st.DateFiled, _ = time.Parse(timeFormat, dateFiled)
		st.Status = model.Status(status)
		st.Priority = model.Priority(priority)
		st.Sentiment = model.Sentiment(sentiment)
		st.ResponseTime = parseNullDuration(responseMS)
		st.Satisfaction = parseNullInt(satisfaction)
		stats = append(stats, &st)
	}
	return stats, rows.Err()
}

func scanComplaint(row scannable) (*model.Complaint, error) {
	var c model.Complaint
	var keywords, tags, images, documents string
	var priority, sentiment, complexity, status, dateFiled, updatedAt string
	var phone, title, assignedTo, escalationReason, escalatedAt, resolvedAt sql.NullString
	var responseMS, satisfaction sql.NullInt64
	err := row.Scan(&c.ID, &c.TrackingID, &c.Name, &c.Email, &phone, &title, &c.Department, &c.Category, &c.Description,
		&priority, &sentiment, &c.Urgency, &complexity, &keywords, &tags, &status, &assignedTo,
		&c.EscalationLevel, &escalationReason, &escalatedAt, &c.ViewCount, &responseMS, &satisfaction,
		&images, &documents, &c.Version, &dateFiled, &updatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	c.Phone = phone.String
	c.Title = title.String
	c.Priority = model.Priority(priority)
	c.Sentiment = model.Sentiment(sentiment)
	c.Complexity = model.Complexity(complexity)
	c.Status = model.Status(status)
	c.AssignedTo = assignedTo.String
	c.EscalationReason = escalationReason.String
	c.EscalatedAt = parseNullTime(escalatedAt)
	c.ResponseTime = parseNullDuration(responseMS)
	c.Satisfaction = parseNullInt(satisfaction)
	_ = json.Unmarshal([]byte(keywords), &c.Keywords)
	_ = json.Unmarshal([]byte(tags), &c.Tags)
	_ = json.Unmarshal([]byte(images), &c.Images)
	_ = json.Unmarshal([]byte(documents), &c.Documents)
	c.DateFiled, _ = time.Parse(timeFormat, dateFiled)
	c.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)
	c.ResolvedAt = parseNullTime(resolvedAt)
	return &c, nil
}

func scanComplaints(rows *sql.Rows) ([]*model.Complaint, error) {
	var complaints []*model.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		complaints = append(complaints, c)
	}
	return complaints, rows.Err()
}

// --- Comments ---

func (s *SQLiteStore) AppendComment(ctx context.Context, comment *model.Comment, entry *model.LedgerEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := touchComplaint(ctx, tx, comment.ComplaintID, comment.CreatedAt, ""); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO comments (complaint_id, text, author, author_type, is_internal, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		comment.ComplaintID, comment.Text, comment.Author, string(comment.AuthorType),
		boolToInt(comment.IsInternal), comment.CreatedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("comment id: %w", err)
	}
	if entry != nil {
		entry.ComplaintID = comment.ComplaintID
		if err := insertLedgerEntry(ctx, tx, entry); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	comment.ID = id
	return nil
}

func (s *SQLiteStore) ListComments(ctx context.Context, complaintID int64) ([]*model.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, complaint_id, text, author, author_type, is_internal, created_at
		 FROM comments WHERE complaint_id = ? ORDER BY id`, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*model.Comment
	for rows.Next() {
		var c model.Comment
		var authorType, createdAt string
		var internal int
		if err := rows.Scan(&c.ID, &c.ComplaintID, &c.Text, &c.Author, &authorType, &internal, &createdAt); err != nil {
			return nil, err
		}
		c.AuthorType = model.AuthorType(authorType)
		c.IsInternal = internal != 0
		c.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

// --- Attachments ---

func (s *SQLiteStore) AppendAttachment(ctx context.Context, att *model.Attachment, entry *model.LedgerEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Images and documents keep the ordered list of upload references.
	list := "documents"
	if strings.HasPrefix(att.FileType, "image/") {
		list = "images"
	}
	if err := touchComplaint(ctx, tx, att.ComplaintID, att.UploadedAt, list, att.URL); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO attachments (complaint_id, filename, original_name, url, public_id, file_type, file_size, uploaded_by, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		att.ComplaintID, att.Filename, att.OriginalName, att.URL, att.PublicID,
		att.FileType, att.FileSize, att.UploadedBy, att.UploadedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("attachment id: %w", err)
	}
	if entry != nil {
		entry.ComplaintID = att.ComplaintID
		if err := insertLedgerEntry(ctx, tx, entry); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	att.ID = id
	return nil
}

func (s *SQLiteStore) ListAttachments(ctx context.Context, complaintID int64) ([]*model.Attachment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, complaint_id, filename, original_name, url, public_id, file_type, file_size, uploaded_by, uploaded_at
		 FROM attachments WHERE complaint_id = ? ORDER BY id`, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var atts []*model.Attachment
	for rows.Next() {
		var a model.Attachment
		var uploadedAt string
		if err := rows.Scan(&a.ID, &a.ComplaintID, &a.Filename, &a.OriginalName, &a.URL, &a.PublicID,
			&a.FileType, &a.FileSize, &a.UploadedBy, &uploadedAt); err != nil {
			return nil, err
		}
		a.UploadedAt, _ = time.Parse(timeFormat, uploadedAt)
		atts = append(atts, &a)
	}
	return atts, rows.Err()
}

// touchComplaint bumps updated_at and optionally appends ref to a JSON list
// column. It is the first write of its transaction so the write lock is taken
// up front.
func touchComplaint(ctx context.Context, tx *sql.Tx, id int64, at time.Time, list string, ref ...string) error {
	var res sql.Result
	var err error
	switch {
	case list == "":
		res, err = tx.ExecContext(ctx, `UPDATE complaints SET updated_at = ? WHERE id = ?`,
			at.UTC().Format(timeFormat), id)
	case len(ref) == 1 && (list == "images" || list == "documents"):
		res, err = tx.ExecContext(ctx,
			`UPDATE complaints SET `+list+` = json_insert(`+list+`, '$[#]', ?), updated_at = ? WHERE id = ?`,
			ref[0], at.UTC().Format(timeFormat), id)
	default:
		return fmt.Errorf("touch complaint: unsupported list %q", list)
	}
	if err != nil {
		return fmt.Errorf("touch complaint %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("complaint %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// --- Activity ledger ---

func (s *SQLiteStore) AppendLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertLedgerEntry(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListLedger(ctx context.Context, complaintID int64) ([]*model.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, complaint_id, kind, actor_id, actor_role, from_value, to_value, message, is_internal, created_at
		 FROM activity WHERE complaint_id = ? ORDER BY seq`, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		var kind, role, createdAt string
		var from, to, message sql.NullString
		var internal int
		if err := rows.Scan(&e.Seq, &e.ComplaintID, &kind, &e.ActorID, &role, &from, &to, &message, &internal, &createdAt); err != nil {
			return nil, err
		}
		e.Kind = model.EntryKind(kind)
		e.ActorRole = model.Role(role)
		e.From = from.String
		e.To = to.String
		e.Message = message.String
		e.IsInternal = internal != 0
		e.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func insertLedgerEntry(ctx context.Context, tx *sql.Tx, e *model.LedgerEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO activity (complaint_id, kind, actor_id, actor_role, from_value, to_value, message, is_internal, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ComplaintID, string(e.Kind), e.ActorID, string(e.ActorRole),
		nullString(e.From), nullString(e.To), nullString(e.Message),
		boolToInt(e.IsInternal), e.CreatedAt.UTC().Format(timeFormat))
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("ledger entry for complaint %d: %w", e.ComplaintID, model.ErrNotFound)
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("ledger seq: %w", err)
	}
	e.Seq = seq
	return nil
}

// --- Helpers ---

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "FOREIGN KEY constraint failed")
	}
	return false
}

func marshalList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	return string(b), err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeFormat), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, _ := time.Parse(timeFormat, s.String)
	return &t
}

func nullDuration(d *time.Duration) sql.NullInt64 {
	if d == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: d.Milliseconds(), Valid: true}
}

func parseNullDuration(n sql.NullInt64) *time.Duration {
	if !n.Valid {
		return nil
	}
	d := time.Duration(n.Int64) * time.Millisecond
	return &d
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func parseNullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	i := int(n.Int64)
	return &i
}
