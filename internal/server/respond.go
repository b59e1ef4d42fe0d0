package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/civicdesk/grievance-desk/internal/model"
)

// Wire error kinds beyond those produced by model.Kind.
const (
	kindValidation   = "validation"
	kindNotFound     = "not_found"
	kindConflict     = "conflict"
	kindUnauthorized = "unauthorized"
	kindForbidden    = "forbidden"
	kindRateLimited  = "rate_limited"
	kindInternal     = "internal"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

type problem struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, kind, message string, fields map[string]string) {
	writeJSON(w, status, map[string]problem{"error": {Kind: kind, Message: message, Fields: fields}})
}

// writeError maps err onto the API error taxonomy. Internal and dependency
// failures are logged and their details withheld from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := model.Kind(err)
	var status int
	message := err.Error()
	var fields map[string]string

	switch kind {
	case "validation":
		status = http.StatusBadRequest
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			fields = ve.Fields
			if ve.Message != "" {
				message = ve.Message
			}
		}
	case "not_found":
		status = http.StatusNotFound
		message = "complaint not found"
	case "conflict":
		status = http.StatusConflict
		message = "the complaint was modified concurrently; reload and retry"
	case "dependency":
		status = http.StatusBadGateway
		message = "a backing service failed"
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
			message = "a backing service timed out"
		}
	default:
		status = http.StatusInternalServerError
		message = "internal server error"
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"kind", kind,
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
		)
	} else {
		s.logger.Debug("request rejected", "kind", kind, "error", err, "path", r.URL.Path)
	}
	writeProblem(w, status, kind, message, fields)
}

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &model.ValidationError{Message: "malformed JSON body", Fields: map[string]string{"body": err.Error()}}
	}
	if dec.More() {
		return model.NewValidationError("request body must contain a single JSON object")
	}
	return nil
}

func logAttrs(r *http.Request) []any {
	attrs := []any{"request_id", RequestIDFromContext(r.Context())}
	if a, ok := ActorFromContext(r.Context()); ok {
		attrs = append(attrs, "actor", a.ID)
	}
	return attrs
}
