package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolms/backend/internal/domain/identity"
	"github.com/schoolms/backend/internal/domain/shared"
)

type mockPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *mockPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *mockPublisher) published() []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]shared.DomainEvent(nil), p.events...)
}

func TestSessionProvider_Principal(t *testing.T) {
	t.Run("returns nil before sign-in", func(t *testing.T) {
		provider := NewSessionProvider(&mockPublisher{})

		principal, err := provider.Principal(context.Background())
		require.NoError(t, err)
		assert.Nil(t, principal)
	})

	t.Run("returns a copy of the current principal", func(t *testing.T) {
		provider := NewSessionProvider(&mockPublisher{})
		accountID := uuid.New()
		require.NoError(t, provider.SignIn(context.Background(), accountID, "teacher@greenhill.edu"))

		principal, err := provider.Principal(context.Background())
		require.NoError(t, err)
		require.NotNil(t, principal)

		principal.Email = "mutated@example.com"

		again, err := provider.Principal(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "teacher@greenhill.edu", again.Email)
	})
}

func TestSessionProvider_SignIn(t *testing.T) {
	t.Run("establishes the session and publishes the signed-in event", func(t *testing.T) {
		bus := &mockPublisher{}
		provider := NewSessionProvider(bus)
		accountID := uuid.New()

		err := provider.SignIn(context.Background(), accountID, " Teacher@Greenhill.EDU ")
		require.NoError(t, err)

		principal, err := provider.Principal(context.Background())
		require.NoError(t, err)
		require.NotNil(t, principal)
		assert.Equal(t, accountID, principal.ID)
		assert.Equal(t, "teacher@greenhill.edu", principal.Email)

		events := bus.published()
		require.Len(t, events, 1)
		signedIn, ok := events[0].(*identity.SignedInEvent)
		require.True(t, ok)
		assert.Equal(t, identity.EventTypeSignedIn, signedIn.EventType())
		assert.Equal(t, "teacher@greenhill.edu", signedIn.Principal.Email)
	})

	t.Run("rejects an invalid principal without publishing", func(t *testing.T) {
		bus := &mockPublisher{}
		provider := NewSessionProvider(bus)

		err := provider.SignIn(context.Background(), uuid.Nil, "teacher@greenhill.edu")
		require.Error(t, err)

		principal, err2 := provider.Principal(context.Background())
		require.NoError(t, err2)
		assert.Nil(t, principal)
		assert.Empty(t, bus.published())
	})
}

func TestSessionProvider_SignOut(t *testing.T) {
	t.Run("clears the session and publishes the signed-out event", func(t *testing.T) {
		bus := &mockPublisher{}
		provider := NewSessionProvider(bus)
		require.NoError(t, provider.SignIn(context.Background(), uuid.New(), "teacher@greenhill.edu"))

		err := provider.SignOut(context.Background())
		require.NoError(t, err)

		principal, err := provider.Principal(context.Background())
		require.NoError(t, err)
		assert.Nil(t, principal)

		events := bus.published()
		require.Len(t, events, 2)
		assert.Equal(t, identity.EventTypeSignedOut, events[1].EventType())
	})

	t.Run("is safe to call without a session", func(t *testing.T) {
		bus := &mockPublisher{}
		provider := NewSessionProvider(bus)

		err := provider.SignOut(context.Background())
		require.NoError(t, err)

		events := bus.published()
		require.Len(t, events, 1)
		assert.Equal(t, identity.EventTypeSignedOut, events[0].EventType())
	})
}
