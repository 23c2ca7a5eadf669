// Package dashboard implements the process-wide cache of the user's
// dashboard payload (wallet balance, transactions, profile). Every mounted
// screen reads the same instance, so the cache owns the rules that keep one
// user's money from ever rendering in another user's view: an owning-user
// tag checked before reads, an epoch bumped on every invalidation, and a
// generation counter that lets a superseded fetch be detected and discarded.
package dashboard

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/padipay/padipay-go/internal/models"
)

// Fetcher retrieves the authoritative dashboard payload from the backend.
type Fetcher interface {
	FetchDashboard(ctx context.Context) (*models.DashboardSnapshot, error)
}

// Sessions is the slice of the session store the cache depends on.
type Sessions interface {
	CurrentUserID() string
	IsAuthenticated() bool
}

var (
	// ErrNotAuthenticated is returned when a fetch is attempted while
	// logged out. Callers must gate on Sessions.IsAuthenticated.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSuperseded is returned to the initiator of a fetch whose result
	// was discarded because the session changed, the cache was reset, or
	// a newer fetch already committed.
	ErrSuperseded = errors.New("fetch superseded")
)

// Cache is the shared snapshot store. All fields are guarded by mu; network
// fetches run outside the lock and re-validate the world before committing.
type Cache struct {
	fetcher  Fetcher
	sessions Sessions
	log      *zap.Logger

	mu         sync.Mutex
	snapshot   *models.DashboardSnapshot
	hasFetched bool
	lastUserID string
	lastErr    error
	loading    bool
	refreshing bool

	// epoch increments on every reset; a fetch started under an older
	// epoch is never committed.
	epoch uint64
	// fetchGen numbers fetches by initiation; committedGen records the
	// newest fetch that has written. A fetch resolving after a
	// newer-initiated one has committed is stale and is dropped.
	fetchGen     uint64
	committedGen uint64
	// inflight is closed when the most recently started fetch resolves,
	// letting mount-path callers join instead of duplicating the request.
	inflight chan struct{}
}

// New constructs the cache. One instance is shared per running app.
func New(fetcher Fetcher, sessions Sessions, log *zap.Logger) *Cache {
	return &Cache{fetcher: fetcher, sessions: sessions, log: log}
}

// Data returns the current snapshot, or nil. No side effects. Callers must
// have called ResetForNewUser for the current user first; Ensure does this
// internally.
func (c *Cache) Data() *models.DashboardSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// SetData atomically replaces the snapshot.
func (c *Cache) SetData(snap *models.DashboardSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = snap
}

// HasFetched reports whether at least one snapshot has been committed for
// the current owning user.
func (c *Cache) HasFetched() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasFetched
}

// SetHasFetched overrides the fetched flag.
func (c *Cache) SetHasFetched(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasFetched = v
}

// IsLoading reports whether an initial fetch is in flight.
func (c *Cache) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// IsRefreshing reports whether a pull-to-refresh fetch is in flight.
func (c *Cache) IsRefreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}

// LastErr returns the most recent fetch error, cleared on success and reset.
func (c *Cache) LastErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ResetForNewUser invalidates the cache when the owning user changes, and
// records the new owner. Calling it again with the same user is a no-op, so
// duplicate mount effects cannot cause spurious data loss.
func (c *Cache) ResetForNewUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastUserID == userID && userID != "" {
		return
	}
	c.log.Debug("cache owner changed",
		zap.String("from", c.lastUserID),
		zap.String("to", userID))
	c.clearLocked()
	c.lastUserID = userID
}

// Reset unconditionally clears the cache. Used on logout and expiry.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
	c.lastUserID = ""
}

// clearLocked drops the snapshot and bumps the epoch so in-flight fetches
// started before the clear can never commit. mu must be held.
func (c *Cache) clearLocked() {
	c.snapshot = nil
	c.hasFetched = false
	c.lastErr = nil
	c.epoch++
}

// Ensure is the mount path: it returns the cached snapshot when one exists
// for the current user, joins an in-flight fetch when one is running, and
// otherwise starts a fetch. Screens call it on every mount.
func (c *Cache) Ensure(ctx context.Context) (*models.DashboardSnapshot, error) {
	c.mu.Lock()
	if !c.sessions.IsAuthenticated() {
		c.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	uid := c.sessions.CurrentUserID()
	if c.lastUserID != uid {
		c.clearLocked()
		c.lastUserID = uid
	}
	if c.hasFetched {
		snap := c.snapshot
		c.mu.Unlock()
		return snap, nil
	}
	if ch := c.inflight; ch != nil {
		c.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		c.mu.Lock()
		snap, err := c.snapshot, c.lastErr
		c.mu.Unlock()
		return snap, err
	}
	return c.fetch(ctx, uid, false)
}

// Refresh is the pull-to-refresh path: it always issues a fetch, even while
// another is in flight. Commits apply under the stale guards below, so the
// newest-initiated fetch determines the final state.
func (c *Cache) Refresh(ctx context.Context) (*models.DashboardSnapshot, error) {
	c.mu.Lock()
	if !c.sessions.IsAuthenticated() {
		c.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	uid := c.sessions.CurrentUserID()
	if c.lastUserID != uid {
		c.clearLocked()
		c.lastUserID = uid
	}
	return c.fetch(ctx, uid, true)
}

// fetch runs one dashboard request. Entered with mu held; the network call
// itself runs unlocked. Before committing, the world is re-validated: the
// epoch and owning user must be unchanged and no newer fetch may have
// committed already.
func (c *Cache) fetch(ctx context.Context, uid string, refresh bool) (*models.DashboardSnapshot, error) {
	epoch := c.epoch
	c.fetchGen++
	gen := c.fetchGen
	if refresh && c.hasFetched {
		c.refreshing = true
	} else {
		c.loading = true
	}
	ch := make(chan struct{})
	c.inflight = ch
	c.mu.Unlock()

	snap, err := c.fetcher.FetchDashboard(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight == ch {
		c.inflight = nil
		c.loading = false
		c.refreshing = false
	}
	defer close(ch)

	if c.epoch != epoch || c.sessions.CurrentUserID() != uid {
		c.log.Info("discarding stale dashboard fetch",
			zap.String("fetched_for", uid),
			zap.String("current_user", c.sessions.CurrentUserID()))
		return nil, ErrSuperseded
	}
	if gen < c.committedGen {
		// A later-initiated fetch already wrote; this result is outdated.
		return nil, ErrSuperseded
	}

	if err != nil {
		// Stale-but-present beats empty: the old snapshot stays.
		c.lastErr = err
		return nil, err
	}

	c.snapshot = snap
	c.hasFetched = true
	c.lastErr = nil
	c.committedGen = gen
	c.log.Debug("dashboard snapshot committed", zap.String("user_id", uid))
	return snap, nil
}
