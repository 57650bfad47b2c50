package auditctx

import "context"

// SystemActor labels changes that did not originate from an authenticated request,
// such as configuration seeding.
const SystemActor = "system"

// Actor captures who initiated an administrative change and from where.
type Actor struct {
	UserID    string
	Username  string
	IPAddress string
	UserAgent string
	SessionID string
}

// Label returns the most human-friendly identifier for the actor.
func (a Actor) Label() string {
	switch {
	case a.Username != "":
		return a.Username
	case a.UserID != "":
		return a.UserID
	default:
		return SystemActor
	}
}

type actorContextKey struct{}

// WithActor injects actor metadata into the supplied context so stores can attach it
// to the domain events they publish.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// FromContext extracts previously stored actor metadata from the context.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// ActorOrSystem returns the context actor, or a system actor when none is attached.
func ActorOrSystem(ctx context.Context) Actor {
	if actor, ok := FromContext(ctx); ok {
		return actor
	}
	return Actor{Username: SystemActor}
}
