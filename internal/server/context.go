package server

import (
	"context"

	"github.com/civicdesk/grievance-desk/internal/model"
)

type contextKey int

const (
	ctxKeyActor contextKey = iota
	ctxKeyScope
)

// requestScope is shared by the middleware chain of one request. The scope
// middleware creates it; later middleware fills in what it learns so the
// access log can report it once the handler returns.
type requestScope struct {
	id    string
	actor *model.Actor
}

func scopeFrom(ctx context.Context) *requestScope {
	sc, _ := ctx.Value(ctxKeyScope).(*requestScope)
	return sc
}

func withActor(ctx context.Context, a model.Actor) context.Context {
	if sc := scopeFrom(ctx); sc != nil {
		sc.actor = &a
	}
	return context.WithValue(ctx, ctxKeyActor, a)
}

// ActorFromContext returns the authenticated actor, if any.
func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	a, ok := ctx.Value(ctxKeyActor).(model.Actor)
	return a, ok
}

// RequestIDFromContext returns the request ID from the context, if present.
func RequestIDFromContext(ctx context.Context) string {
	if sc := scopeFrom(ctx); sc != nil {
		return sc.id
	}
	return ""
}
