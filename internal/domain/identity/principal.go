package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/schoolms/backend/internal/domain/shared"
)

// Principal is the authenticated end-user identity supplied by the external
// session system. It is used only as the lookup key into tenant resolution
// and is never cached beyond the current session.
type Principal struct {
	ID    uuid.UUID
	Email string
}

// NewPrincipal creates a principal, normalizing the email address
func NewPrincipal(id uuid.UUID, email string) (Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if id == uuid.Nil {
		return Principal{}, shared.NewDomainError("INVALID_PRINCIPAL", "Principal ID cannot be empty")
	}
	if email == "" {
		return Principal{}, shared.NewDomainError("INVALID_PRINCIPAL", "Principal email cannot be empty")
	}
	return Principal{ID: id, Email: email}, nil
}

// SessionProvider supplies the authenticated principal. A nil principal with
// a nil error means the session is not established yet.
type SessionProvider interface {
	// Principal returns the current authenticated principal, or nil when
	// no session is established
	Principal(ctx context.Context) (*Principal, error)
}

// Session lifecycle event types published on the event bus
const (
	EventTypeSignedIn  = "session.signed_in"
	EventTypeSignedOut = "session.signed_out"
)

// SignedInEvent is published when a principal signs in
type SignedInEvent struct {
	shared.BaseDomainEvent
	Principal Principal `json:"principal"`
}

// NewSignedInEvent creates a signed-in event for the given principal
func NewSignedInEvent(p Principal) *SignedInEvent {
	return &SignedInEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSignedIn),
		Principal:       p,
	}
}

// SignedOutEvent is published when the current principal signs out
type SignedOutEvent struct {
	shared.BaseDomainEvent
}

// NewSignedOutEvent creates a signed-out event
func NewSignedOutEvent() *SignedOutEvent {
	return &SignedOutEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSignedOut),
	}
}
