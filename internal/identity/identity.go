package identity

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Actor is the trusted request identity every authorization decision runs on.
// UserID and OrganizationID are mandatory; both resolver variants fail closed
// when they cannot produce them.
type Actor struct {
	UserID         uuid.UUID
	UserName       string
	Email          string
	OrganizationID uuid.UUID
}

// Resolver derives an Actor from an incoming request. Implementations must
// never fall back to an anonymous or default actor.
type Resolver interface {
	Resolve(r *http.Request) (Actor, error)
}

type ctxKey string

const actorKey ctxKey = "actor"

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}
