package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	contextActorIDKey   ctxKey = "actorID"
	contextActorNameKey ctxKey = "actorName"
)

// ActorFromContext returns the id and username of the authenticated caller, if any.
func ActorFromContext(ctx context.Context) (id, username string) {
	if ctx == nil {
		return "", ""
	}
	id, _ = ctx.Value(contextActorIDKey).(string)
	username, _ = ctx.Value(contextActorNameKey).(string)
	return id, username
}

func ContextWithActor(ctx context.Context, id, username string) context.Context {
	ctx = context.WithValue(ctx, contextActorIDKey, id)
	return context.WithValue(ctx, contextActorNameKey, username)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
