package server

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/civicdesk/grievance-desk/internal/model"
)

var testSecret = []byte("test-secret-key-for-actor-tokens")

func TestParseToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	sign := func(t *testing.T, secret []byte, method jwt.SigningMethod, claims actorClaims) string {
		t.Helper()
		tok, err := jwt.NewWithClaims(method, claims).SignedString(secret)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return tok
	}
	valid := func(role, sub string) actorClaims {
		return actorClaims{
			Role: role,
			Name: "Ravi",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   sub,
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
	}

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		want    model.Actor
		wantErr bool
	}{
		{
			name:  "department token",
			token: func(t *testing.T) string { return sign(t, testSecret, jwt.SigningMethodHS256, valid("department", "u-1")) },
			want:  model.Actor{ID: "u-1", Role: model.RoleDepartment, Name: "Ravi"},
		},
		{
			name:  "citizen token",
			token: func(t *testing.T) string { return sign(t, testSecret, jwt.SigningMethodHS256, valid("citizen", "c-9")) },
			want:  model.Actor{ID: "c-9", Role: model.RoleCitizen, Name: "Ravi"},
		},
		{
			name:    "wrong secret",
			token:   func(t *testing.T) string { return sign(t, []byte("other"), jwt.SigningMethodHS256, valid("admin", "a-1")) },
			wantErr: true,
		},
		{
			name:    "wrong algorithm",
			token:   func(t *testing.T) string { return sign(t, testSecret, jwt.SigningMethodHS512, valid("admin", "a-1")) },
			wantErr: true,
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				c := valid("admin", "a-1")
				c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
				return sign(t, testSecret, jwt.SigningMethodHS256, c)
			},
			wantErr: true,
		},
		{
			name: "no expiry",
			token: func(t *testing.T) string {
				c := valid("admin", "a-1")
				c.ExpiresAt = nil
				return sign(t, testSecret, jwt.SigningMethodHS256, c)
			},
			wantErr: true,
		},
		{
			name:    "missing subject",
			token:   func(t *testing.T) string { return sign(t, testSecret, jwt.SigningMethodHS256, valid("admin", "")) },
			wantErr: true,
		},
		{
			name:    "system role not accepted",
			token:   func(t *testing.T) string { return sign(t, testSecret, jwt.SigningMethodHS256, valid("system", "s")) },
			wantErr: true,
		},
		{
			name:    "unknown role",
			token:   func(t *testing.T) string { return sign(t, testSecret, jwt.SigningMethodHS256, valid("mayor", "m")) },
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   func(*testing.T) string { return "not.a.token" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseToken(testSecret, tt.token(t), clock)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got actor %+v", got)
				}
				if !errors.Is(err, errBadToken) {
					t.Errorf("error %v does not wrap errBadToken", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIssueTokenRoundTrip(t *testing.T) {
	now := time.Now()
	actor := model.Actor{ID: "admin-1", Role: model.RoleAdmin, Name: "Meera"}
	tok, err := IssueToken(testSecret, actor, time.Hour, now)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	got, err := parseToken(testSecret, tok, func() time.Time { return now })
	if err != nil {
		t.Fatalf("parseToken: %v", err)
	}
	if got != actor {
		t.Errorf("got %+v, want %+v", got, actor)
	}

	if _, err := IssueToken(testSecret, model.Actor{Role: model.RoleAdmin}, time.Hour, now); err == nil {
		t.Error("expected error for empty subject")
	}
}
