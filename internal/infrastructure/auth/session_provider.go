package auth

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/schoolms/backend/internal/domain/identity"
	"github.com/schoolms/backend/internal/domain/shared"
)

// SessionProvider implements identity.SessionProvider. It holds the
// current principal and publishes session lifecycle events when it
// changes. Events are published synchronously so subscribers (the tenant
// context) have finished before SignIn/SignOut returns.
type SessionProvider struct {
	mu        sync.RWMutex
	principal *identity.Principal
	bus       shared.EventPublisher
}

// NewSessionProvider creates a provider with no established session
func NewSessionProvider(bus shared.EventPublisher) *SessionProvider {
	return &SessionProvider{bus: bus}
}

// Principal returns the current authenticated principal, or nil when no
// session is established
func (p *SessionProvider) Principal(ctx context.Context) (*identity.Principal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.principal == nil {
		return nil, nil
	}
	principal := *p.principal
	return &principal, nil
}

// SignIn establishes a session for the principal and publishes the
// signed-in event
func (p *SessionProvider) SignIn(ctx context.Context, accountID uuid.UUID, email string) error {
	principal, err := identity.NewPrincipal(accountID, email)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.principal = &principal
	p.mu.Unlock()

	return p.bus.Publish(ctx, identity.NewSignedInEvent(principal))
}

// SignOut tears down the session and publishes the signed-out event.
// Publication is synchronous: by the time SignOut returns, subscribers
// have already cleared any per-tenant state.
func (p *SessionProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.principal = nil
	p.mu.Unlock()

	return p.bus.Publish(ctx, identity.NewSignedOutEvent())
}

// Ensure SessionProvider implements identity.SessionProvider
var _ identity.SessionProvider = (*SessionProvider)(nil)
