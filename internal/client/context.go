package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/merchkit/storefront-core/internal/authz"
	"github.com/merchkit/storefront-core/internal/identity"
	"github.com/merchkit/storefront-core/internal/infrastructure/logging"
	"github.com/merchkit/storefront-core/internal/profile"
)

// resolveTimeout bounds a single background resolution.
const resolveTimeout = 10 * time.Second

// watchBufferSize is the per-watcher notification buffer.
const watchBufferSize = 4

// Deps are the collaborators a UserContext observes and drives.
type Deps struct {
	// Resolve returns the current identity, or nil when signed out.
	Resolve func(ctx context.Context) (*identity.Identity, error)

	// FetchProfile loads the caller's own profile.
	FetchProfile func(ctx context.Context, userID string) (*profile.Profile, error)

	// SignOut terminates the current session.
	SignOut func(ctx context.Context) error

	// Events is the provider event stream feeding the context. May be nil
	// in tests that drive refreshes directly.
	Events <-chan identity.Event

	// CancelEvents releases the event subscription on Close. May be nil.
	CancelEvents func()

	Logger *logging.Logger
}

// UserContext is a long-lived, observable snapshot of who the current user
// is. It subscribes to session-change events, re-resolves on each one, and
// notifies watchers after every committed state change.
//
// Every resolution is stamped with a generation number when it starts; only
// the most recently started resolution may commit, so a slow stale lookup
// can never overwrite a newer result. Profile is committed in the same
// critical section as user, never on its own.
type UserContext struct {
	deps Deps

	mu      sync.Mutex
	user    *identity.Identity
	profile *profile.Profile
	loading bool

	generation atomic.Uint64
	closed     atomic.Bool

	watchersMu sync.Mutex
	watchers   map[chan struct{}]struct{}

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a UserContext and starts its event loop. The initial state is
// loading until the first resolution commits. Call Close when done.
func New(deps Deps) *UserContext {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	uc := &UserContext{
		deps:     deps,
		loading:  true,
		watchers: make(map[chan struct{}]struct{}),
		done:     make(chan struct{}),
	}
	uc.deps.Logger = deps.Logger.With("component", "user_context")

	uc.wg.Add(1)
	go uc.run()

	return uc
}

// run performs the initial resolution and then serializes event handling.
func (uc *UserContext) run() {
	defer uc.wg.Done()

	uc.refresh()

	if uc.deps.Events == nil {
		return
	}

	for {
		select {
		case <-uc.done:
			return
		case ev, ok := <-uc.deps.Events:
			if !ok {
				return
			}
			switch ev.Type {
			case identity.EventSignedIn, identity.EventTokenRefreshed:
				uc.refresh()
			case identity.EventSignedOut:
				uc.clear()
			}
		}
	}
}

// Close stops the event loop and releases the subscription. In-flight
// resolutions are discarded; no state commits after Close returns.
func (uc *UserContext) Close() {
	if !uc.closed.CompareAndSwap(false, true) {
		return
	}
	// Invalidate any in-flight resolution before waiting.
	uc.generation.Add(1)
	close(uc.done)
	if uc.deps.CancelEvents != nil {
		uc.deps.CancelEvents()
	}
	uc.wg.Wait()
}

// RefreshUser re-resolves identity and profile from scratch. Any failure on
// the way clears the state to signed-out rather than leaving it stale.
func (uc *UserContext) RefreshUser(ctx context.Context) {
	uc.doRefresh(ctx)
}

// refresh is the event-loop entry point with its own timeout.
func (uc *UserContext) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	uc.doRefresh(ctx)
}

func (uc *UserContext) doRefresh(ctx context.Context) {
	gen := uc.generation.Add(1)

	uc.mu.Lock()
	// A newer resolution may already have committed; only the newest one
	// may flip loading.
	if gen == uc.generation.Load() {
		uc.loading = true
	}
	uc.mu.Unlock()
	uc.notify()

	user, prof := uc.resolveOnce(ctx)
	uc.commit(gen, user, prof)
}

// resolveOnce walks session then profile. A missing profile is a valid
// signed-in state; any other failure clears to signed-out.
func (uc *UserContext) resolveOnce(ctx context.Context) (*identity.Identity, *profile.Profile) {
	user, err := uc.deps.Resolve(ctx)
	if err != nil {
		uc.deps.Logger.Error("identity resolution failed", "error", err)
		return nil, nil
	}
	if user == nil {
		return nil, nil
	}

	prof, err := uc.deps.FetchProfile(ctx, user.ID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		// Authenticated but role-less. The permission model denies
		// everything for a nil profile, which is the intended floor.
		prof = nil
	}
	return user, prof
}

// clear drops to the signed-out state.
func (uc *UserContext) clear() {
	gen := uc.generation.Add(1)
	uc.commit(gen, nil, nil)
}

// commit installs a resolution result if it is still the newest one.
func (uc *UserContext) commit(gen uint64, user *identity.Identity, prof *profile.Profile) {
	uc.mu.Lock()
	if gen != uc.generation.Load() || uc.closed.Load() {
		uc.mu.Unlock()
		return
	}
	uc.user = user
	if user == nil {
		prof = nil
	}
	uc.profile = prof
	uc.loading = false
	uc.mu.Unlock()

	uc.notify()
}

// SignOut terminates the session and clears local state before returning.
// Dependents observing the context right after SignOut see signed-out,
// whatever the provider round-trip did.
func (uc *UserContext) SignOut(ctx context.Context) error {
	var err error
	if uc.deps.SignOut != nil {
		err = uc.deps.SignOut(ctx)
		if err != nil {
			uc.deps.Logger.Error("sign-out failed", "error", err)
		}
	}
	uc.clear()
	return err
}

// User returns the current identity, or nil.
func (uc *UserContext) User() *identity.Identity {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.user
}

// Profile returns the current profile, or nil. A non-nil profile implies a
// non-nil user.
func (uc *UserContext) Profile() *profile.Profile {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.profile
}

// IsLoading reports whether a resolution is in flight.
func (uc *UserContext) IsLoading() bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.loading
}

// HasPermission checks the permission matrix for the current profile.
// False while loading and false without a profile.
func (uc *UserContext) HasPermission(feature authz.Feature, action authz.Action) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.loading || uc.profile == nil {
		return false
	}
	return authz.IsAllowed(feature, action, uc.profile.Role)
}

// Watch returns a channel that receives a signal after every committed state
// change. Slow watchers miss signals rather than blocking commits. The
// cancel func releases the watcher.
func (uc *UserContext) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, watchBufferSize)

	uc.watchersMu.Lock()
	uc.watchers[ch] = struct{}{}
	uc.watchersMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			uc.watchersMu.Lock()
			delete(uc.watchers, ch)
			uc.watchersMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// notify signals every watcher without blocking.
func (uc *UserContext) notify() {
	uc.watchersMu.Lock()
	defer uc.watchersMu.Unlock()
	for ch := range uc.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
