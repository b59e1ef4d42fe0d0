package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/civicdesk/grievance-desk/internal/model"
)

// actorClaims is the bearer token payload. Identity is issued upstream; the
// server only verifies the signature and reads who the caller is.
type actorClaims struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

var errBadToken = errors.New("invalid bearer token")

// IssueToken signs an HS256 token for actor, valid for ttl.
func IssueToken(secret []byte, actor model.Actor, ttl time.Duration, now time.Time) (string, error) {
	if actor.ID == "" {
		return "", errors.New("token subject is required")
	}
	claims := actorClaims{
		Role: string(actor.Role),
		Name: actor.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// parseToken verifies raw and returns the actor it names.
func parseToken(secret []byte, raw string, now func() time.Time) (model.Actor, error) {
	var claims actorClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return model.Actor{}, fmt.Errorf("%w: %w", errBadToken, err)
	}
	if claims.Subject == "" {
		return model.Actor{}, fmt.Errorf("%w: missing subject", errBadToken)
	}
	role := model.Role(claims.Role)
	switch role {
	case model.RoleCitizen, model.RoleDepartment, model.RoleAdmin:
	default:
		// The system role is reserved for background jobs.
		return model.Actor{}, fmt.Errorf("%w: role %q not accepted", errBadToken, claims.Role)
	}
	return model.Actor{ID: claims.Subject, Role: role, Name: claims.Name}, nil
}

// ActorMiddleware reads an optional bearer token and injects the actor into
// the request context. Requests without a token continue anonymously; a
// token that fails verification is rejected with 401.
func (s *Server) ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if h == "" {
			next.ServeHTTP(w, r)
			return
		}
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			writeProblem(w, http.StatusUnauthorized, kindUnauthorized, "authorization header must be a bearer token", nil)
			return
		}
		actor, err := parseToken(s.jwtSecret, strings.TrimSpace(raw), s.now)
		if err != nil {
			s.logger.Info("rejected bearer token",
				"error", err,
				"request_id", RequestIDFromContext(r.Context()),
			)
			writeProblem(w, http.StatusUnauthorized, kindUnauthorized, "invalid or expired token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
	})
}

// RequireActor returns 401 if the request carries no authenticated actor.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ActorFromContext(r.Context()); !ok {
			writeProblem(w, http.StatusUnauthorized, kindUnauthorized, "authentication required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStaff returns 401 for anonymous requests and 403 unless the actor is
// department or admin staff.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeProblem(w, http.StatusUnauthorized, kindUnauthorized, "authentication required", nil)
			return
		}
		if !actor.Role.IsStaff() {
			writeProblem(w, http.StatusForbidden, kindForbidden, "staff access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin returns 401 for anonymous requests and 403 for any role but
// admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeProblem(w, http.StatusUnauthorized, kindUnauthorized, "authentication required", nil)
			return
		}
		if actor.Role != model.RoleAdmin {
			writeProblem(w, http.StatusForbidden, kindForbidden, "admin access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isStaff(r *http.Request) bool {
	a, ok := ActorFromContext(r.Context())
	return ok && a.Role.IsStaff()
}
