package tenantctx

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/schoolms/backend/internal/domain/identity"
	"github.com/schoolms/backend/internal/domain/shared"
	"github.com/schoolms/backend/internal/infrastructure/config"
)

// State is the lifecycle state of the tenant context
type State string

const (
	StateUninitialized State = "uninitialized"
	StateResolving     State = "resolving"
	StateReady         State = "ready"
	StateFailed        State = "failed"
)

// resolveKey is the singleflight key; there is exactly one logical
// resolution per context, so a single key is enough.
const resolveKey = "resolve"

// Result is the outcome of one Initialize call
type Result struct {
	Success     bool
	FromCache   bool // satisfied from an already-resolved identity
	IsAuthError bool // session not established; caller should retry after sign-in
	TimedOut    bool // budget elapsed; resolution continues in the background
	Identity    *identity.TenantIdentity
	Err         error
}

// Context owns the current tenant identity for the process. It resolves the
// identity at most once at a time, shares the in-flight resolution between
// concurrent callers, and replaces the identity atomically. All derived
// tenant-scoped work must obtain the tenant id from here and from nowhere
// else.
type Context struct {
	session  identity.SessionProvider
	resolver *Resolver
	cache    identity.TenantCache
	timeout  time.Duration
	logger   *zap.Logger

	group singleflight.Group

	mu      sync.RWMutex
	state   State
	ident   *identity.TenantIdentity
	lastErr error
	// knownTenant is the most recently loaded tenant record. The durable
	// cache is only trusted when it agrees with this record; a cached id
	// with no matching loaded record goes through the resolver again.
	knownTenant *identity.Tenant
	// epoch guards against a resolution started before Clear committing
	// after it. Clear bumps the epoch; stale resolutions are discarded.
	epoch uint64
}

// NewContext creates an uninitialized tenant context
func NewContext(
	session identity.SessionProvider,
	resolver *Resolver,
	cache identity.TenantCache,
	cfg config.TenantConfig,
	logger *zap.Logger,
) *Context {
	return &Context{
		session:  session,
		resolver: resolver,
		cache:    cache,
		timeout:  cfg.ResolveTimeout,
		logger:   logger,
		state:    StateUninitialized,
	}
}

// Initialize resolves the tenant identity if it is not already resolved.
// The call is idempotent: a READY context returns immediately, and
// concurrent callers share one in-flight resolution instead of issuing
// duplicate lookups. The call never blocks past the configured timeout;
// on timeout the underlying resolution keeps running and commits its
// result when it completes, so a later Initialize can succeed from memory.
func (c *Context) Initialize(ctx context.Context) Result {
	c.mu.RLock()
	if c.state == StateReady && c.ident != nil {
		ident := *c.ident
		c.mu.RUnlock()
		return Result{Success: true, FromCache: true, Identity: &ident}
	}
	epoch := c.epoch
	c.mu.RUnlock()

	// The resolution runs on a context detached from the caller so that a
	// caller timing out does not abort the shared lookup for everyone else.
	ch := c.group.DoChan(resolveKey, func() (interface{}, error) {
		return c.resolve(context.WithoutCancel(ctx), epoch)
	})

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			return c.failureResult(res.Err)
		}
		// res.Shared is true for every caller of a shared result, including
		// the one that executed the resolver, so it says nothing about cache
		// hits. FromCache is reserved for the READY fast path above.
		ident := res.Val.(identity.TenantIdentity)
		return Result{Success: true, Identity: &ident}
	case <-timer.C:
		c.logger.Warn("tenant resolution exceeded budget, continuing in background",
			zap.Duration("timeout", c.timeout))
		return Result{TimedOut: true, Err: identity.NewTransientError("resolve", context.DeadlineExceeded)}
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

func (c *Context) failureResult(err error) Result {
	if identity.IsAuthNotReady(err) {
		return Result{IsAuthError: true, Err: err}
	}
	return Result{Err: err}
}

// resolve performs one full resolution attempt. It is only ever executed by
// the singleflight group, so at most one instance runs at a time.
func (c *Context) resolve(ctx context.Context, epoch uint64) (identity.TenantIdentity, error) {
	// The session check happens before any state transition: an absent
	// session is an expected condition during startup, not a failure.
	principal, err := c.session.Principal(ctx)
	if err != nil {
		return identity.TenantIdentity{}, identity.NewTransientError("session", err)
	}
	if principal == nil {
		return identity.TenantIdentity{}, identity.ErrAuthNotReady
	}

	c.setResolving(epoch)

	if ident, ok := c.fromDurableCache(ctx); ok {
		if !c.commit(ident, epoch) {
			return identity.TenantIdentity{}, identity.ErrAuthNotReady
		}
		return ident, nil
	}

	tenant, err := c.resolver.Resolve(ctx, principal.Email)
	if err != nil {
		c.setFailure(err, epoch)
		return identity.TenantIdentity{}, err
	}

	ident := identity.NewTenantIdentity(tenant, identity.IdentitySourceResolver)
	if !c.commit(ident, epoch) {
		// A Clear landed while we were resolving; the result belongs to a
		// signed-out session and is discarded.
		c.logger.Info("discarding tenant resolution superseded by sign-out",
			zap.String("tenant_id", ident.TenantID.String()))
		return identity.TenantIdentity{}, identity.ErrAuthNotReady
	}

	// Cache write is best effort; a durable store hiccup must not fail a
	// resolution that already succeeded.
	if err := c.cache.Set(ctx, ident.TenantID.String()); err != nil {
		c.logger.Warn("failed to persist tenant id to durable cache", zap.Error(err))
	}

	return ident, nil
}

// fromDurableCache checks the durable cache for a tenant id. The cached id
// is only accepted when it matches a tenant record this process has already
// loaded; a bare id from storage is never trusted on its own.
func (c *Context) fromDurableCache(ctx context.Context) (identity.TenantIdentity, bool) {
	raw, err := c.cache.Get(ctx)
	if err != nil {
		c.logger.Warn("durable tenant cache read failed", zap.Error(err))
		return identity.TenantIdentity{}, false
	}
	if raw == "" {
		return identity.TenantIdentity{}, false
	}
	cachedID, err := uuid.Parse(raw)
	if err != nil {
		c.logger.Warn("durable tenant cache holds malformed id", zap.String("value", raw))
		return identity.TenantIdentity{}, false
	}

	c.mu.RLock()
	known := c.knownTenant
	c.mu.RUnlock()
	if known == nil || known.ID != cachedID {
		return identity.TenantIdentity{}, false
	}
	return identity.NewTenantIdentity(known, identity.IdentitySourceDurableCache), true
}

// commit installs the identity atomically. It returns false when the epoch
// moved (a Clear happened since the resolution started).
func (c *Context) commit(ident identity.TenantIdentity, epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return false
	}
	c.ident = &ident
	c.knownTenant = ident.Tenant
	c.state = StateReady
	c.lastErr = nil
	c.logger.Info("tenant context ready",
		zap.String("tenant_id", ident.TenantID.String()),
		zap.String("source", string(ident.Source)),
	)
	return true
}

func (c *Context) setFailure(err error, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return
	}
	c.state = StateFailed
	c.lastErr = err
	c.logger.Error("tenant resolution failed", zap.Error(err))
}

// setResolving marks the context RESOLVING on behalf of the resolution that
// started in the given epoch. A stale resolution (Clear bumped the epoch
// underneath it) must not touch the state: Clear already reset it, and a
// fresh resolution may own it by now.
func (c *Context) setResolving(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return
	}
	c.state = StateResolving
}

// Clear wipes the tenant identity synchronously: in-memory state, the
// loaded tenant record, and the durable cache entry are all gone before
// Clear returns. A resolution in flight at the time of the call can no
// longer commit. After Clear the context behaves exactly like a fresh one.
func (c *Context) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.ident = nil
	c.knownTenant = nil
	c.lastErr = nil
	c.state = StateUninitialized
	c.epoch++
	c.mu.Unlock()

	c.group.Forget(resolveKey)

	if err := c.cache.Remove(ctx); err != nil {
		return identity.NewTransientError("cache remove", err)
	}
	c.logger.Info("tenant context cleared")
	return nil
}

// TenantID returns the resolved tenant id. The second return is false
// whenever the context is not READY; callers must not fall back to any
// other source of a tenant id.
func (c *Context) TenantID() (uuid.UUID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateReady || c.ident == nil {
		return uuid.Nil, false
	}
	return c.ident.TenantID, true
}

// Identity returns a copy of the current identity, or nil when not READY
func (c *Context) Identity() *identity.TenantIdentity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateReady || c.ident == nil {
		return nil
	}
	ident := *c.ident
	return &ident
}

// State returns the current lifecycle state
func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// LastError returns the error from the most recent failed resolution
func (c *Context) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Handle reacts to session lifecycle events: sign-in triggers resolution,
// sign-out clears the context before the publisher regains control.
func (c *Context) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch event.EventType() {
	case identity.EventTypeSignedIn:
		res := c.Initialize(ctx)
		if res.Err != nil && !res.IsAuthError && !res.TimedOut {
			return res.Err
		}
		return nil
	case identity.EventTypeSignedOut:
		return c.Clear(ctx)
	default:
		return nil
	}
}

// EventTypes returns the session events the context subscribes to
func (c *Context) EventTypes() []string {
	return []string{identity.EventTypeSignedIn, identity.EventTypeSignedOut}
}

var _ shared.EventHandler = (*Context)(nil)
