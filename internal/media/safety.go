package media

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/civicdesk/grievance-desk/internal/model"
)

// MaxFileSize is the per-upload size limit.
const MaxFileSize int64 = 20 << 20 // 20 MiB

// AllowedContentTypes is the allowlist of MIME types accepted for complaint
// attachments. Arbitrary image/* subtypes are not accepted (SVG can carry
// script).
var AllowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
	"text/plain":      true,
	"audio/mpeg":      true,
	"audio/wav":       true,
	"audio/webm":      true,
}

// magicHeaders maps content types to their file magic byte signatures.
var magicHeaders = map[string][]byte{
	"image/jpeg":      {0xFF, 0xD8, 0xFF},
	"image/png":       {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"image/gif":       {0x47, 0x49, 0x46, 0x38}, // GIF8
	"image/webp":      {0x52, 0x49, 0x46, 0x46}, // RIFF
	"audio/wav":       {0x52, 0x49, 0x46, 0x46}, // RIFF
	"application/pdf": {0x25, 0x50, 0x44, 0x46}, // %PDF
}

// Upload rejections. All of them satisfy errors.Is(err, model.ErrValidation).
var (
	ErrFileTooLarge          = fmt.Errorf("%w: file exceeds maximum size of 20MB", model.ErrValidation)
	ErrContentTypeEmpty      = fmt.Errorf("%w: content type must not be empty", model.ErrValidation)
	ErrContentTypeNotAllowed = fmt.Errorf("%w: content type not allowed", model.ErrValidation)
	ErrMagicBytesMismatch    = fmt.Errorf("%w: file content does not match declared content type", model.ErrValidation)
	ErrFilenameDangerous     = fmt.Errorf("%w: filename is empty or invalid", model.ErrValidation)
)

// ValidateContentType checks whether a MIME type is in the allowlist. It
// strips parameters (e.g. charset) before checking.
func ValidateContentType(contentType string) error {
	ct := normalizeContentType(contentType)
	if ct == "" {
		return ErrContentTypeEmpty
	}
	if !AllowedContentTypes[ct] {
		return fmt.Errorf("%w: %s", ErrContentTypeNotAllowed, contentType)
	}
	return nil
}

// ValidateFileMagic verifies the leading bytes of r match the declared
// content type. For text/plain it rejects null bytes. The returned reader
// replays the bytes that were inspected.
func ValidateFileMagic(r io.Reader, declaredType string) (io.Reader, error) {
	ct := normalizeContentType(declaredType)

	if ct == "text/plain" {
		return validateTextContent(r)
	}

	expected, ok := magicHeaders[ct]
	if !ok {
		return r, nil
	}

	header := make([]byte, len(expected))
	n, err := io.ReadFull(r, header)
	if err != nil {
		return nil, fmt.Errorf("%w: expected %s", ErrMagicBytesMismatch, ct)
	}
	for i := 0; i < n; i++ {
		if header[i] != expected[i] {
			return nil, fmt.Errorf("%w: expected %s", ErrMagicBytesMismatch, ct)
		}
	}
	return io.MultiReader(strings.NewReader(string(header[:n])), r), nil
}

func validateTextContent(r io.Reader) (io.Reader, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("reading text content: %w", err)
	}
	for _, b := range buf[:n] {
		if b == 0 {
			return nil, fmt.Errorf("%w: null bytes in text/plain file", ErrMagicBytesMismatch)
		}
	}
	return io.MultiReader(strings.NewReader(string(buf[:n])), r), nil
}

// SanitizeFilename strips directory components and control characters from
// a user-provided filename.
func SanitizeFilename(filename string) (string, error) {
	filename = strings.ReplaceAll(filename, "\\", "/")
	name := filepath.Base(filename)
	if name == "." || name == "/" || name == "" {
		return "", ErrFilenameDangerous
	}

	var sb strings.Builder
	for _, r := range name {
		if r == 0 || unicode.IsControl(r) {
			continue
		}
		sb.WriteRune(r)
	}
	name = sb.String()
	if name == "" || name == "." || name == ".." {
		return "", ErrFilenameDangerous
	}

	if len(name) > 255 {
		ext := filepath.Ext(name)
		name = name[:255-len(ext)] + ext
	}
	return name, nil
}

func normalizeContentType(ct string) string {
	ct = strings.TrimSpace(strings.ToLower(ct))
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}
	return ct
}
