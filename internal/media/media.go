// Package media stores complaint attachments and returns opaque references
// to them. The engine never inspects stored content; it only records the
// returned reference.
package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Reference is the opaque handle returned by a media backend.
type Reference struct {
	URL      string
	PublicID string
}

// Object describes a stored upload.
type Object struct {
	Reference
	Filename     string // stored name
	OriginalName string // sanitized client-supplied name
	ContentType  string
	Size         int64
	SHA256       string
}

// Store persists upload content.
type Store interface {
	Put(ctx context.Context, originalName, contentType string, r io.Reader) (*Object, error)
}

// prepare validates an upload and returns its sanitized name, normalized
// content type, and a reader positioned at the start of the content.
func prepare(originalName, contentType string, r io.Reader) (string, string, io.Reader, error) {
	name, err := SanitizeFilename(originalName)
	if err != nil {
		return "", "", nil, err
	}
	if err := ValidateContentType(contentType); err != nil {
		return "", "", nil, err
	}
	ct := normalizeContentType(contentType)
	body, err := ValidateFileMagic(r, ct)
	if err != nil {
		return "", "", nil, err
	}
	return name, ct, body, nil
}

// objectName returns a random stored name keeping the original extension.
func objectName(originalName string) string {
	return uuid.New().String() + strings.ToLower(filepath.Ext(originalName))
}

// LocalStore writes uploads to a directory and serves them under baseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore returns a LocalStore rooted at dir, creating it if needed.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Dir returns the upload directory.
func (s *LocalStore) Dir() string { return s.dir }

// Put streams r to disk, hashing it as it goes.
func (s *LocalStore) Put(ctx context.Context, originalName, contentType string, r io.Reader) (*Object, error) {
	name, ct, body, err := prepare(originalName, contentType, r)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stored := objectName(name)
	path := filepath.Join(s.dir, stored)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating upload file: %w", err)
	}
	defer f.Close()

	hasher := sha256.New()
	written, err := io.Copy(f, io.TeeReader(io.LimitReader(body, MaxFileSize+1), hasher))
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing upload file: %w", err)
	}
	if written > MaxFileSize {
		os.Remove(path)
		return nil, ErrFileTooLarge
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("closing upload file: %w", err)
	}

	return &Object{
		Reference:    Reference{URL: s.baseURL + "/" + stored, PublicID: stored},
		Filename:     stored,
		OriginalName: name,
		ContentType:  ct,
		Size:         written,
		SHA256:       hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}
