// Package screens implements the headless controllers behind the Home,
// Wallet and Profile screens. A controller decides what a screen renders:
// it gates fetches on the session, reads the shared dashboard cache, and
// reacts to session changes so no stale balance flashes after logout or
// expiry. Layout and navigation belong to the UI layer, not here.
package screens

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/padipay/padipay-go/internal/models"
	"github.com/padipay/padipay-go/internal/session"
)

// Cache is the slice of the dashboard cache a controller uses.
type Cache interface {
	Ensure(ctx context.Context) (*models.DashboardSnapshot, error)
	Refresh(ctx context.Context) (*models.DashboardSnapshot, error)
	ResetForNewUser(userID string)
	Data() *models.DashboardSnapshot
	HasFetched() bool
}

// Sessions is the slice of the session store a controller uses.
type Sessions interface {
	IsAuthenticated() bool
	CurrentUserID() string
	OnChange(fn func(session.Event))
}

// View is what a screen renders on its next frame.
type View struct {
	// RedirectToLogin is set when the screen must hand off to the auth
	// flow instead of rendering financial data.
	RedirectToLogin bool
	Fullname        string
	Email           string
	EmailVerified   bool
	Balance         string
	Transactions    []models.Transaction
	// Err is the last fetch error, if the screen should show a retry state.
	Err error
}

// Controller drives one screen. Multiple controllers share the same cache
// and session store; each keeps only its own rendered view.
type Controller struct {
	name     string
	cache    Cache
	sessions Sessions
	log      *zap.Logger

	// txLimit bounds how many transactions the view carries:
	// -1 hides them, 0 keeps all, n>0 keeps the newest n.
	txLimit int

	mu   sync.Mutex
	view View
}

// NewHome builds the home screen controller: balance plus recent activity.
func NewHome(cache Cache, sessions Sessions, log *zap.Logger) *Controller {
	return newController("home", cache, sessions, log, 5)
}

// NewWallet builds the wallet screen controller: balance plus full history.
func NewWallet(cache Cache, sessions Sessions, log *zap.Logger) *Controller {
	return newController("wallet", cache, sessions, log, 0)
}

// NewProfile builds the profile screen controller: identity fields only.
func NewProfile(cache Cache, sessions Sessions, log *zap.Logger) *Controller {
	return newController("profile", cache, sessions, log, -1)
}

func newController(name string, cache Cache, sessions Sessions, log *zap.Logger, txLimit int) *Controller {
	c := &Controller{name: name, cache: cache, sessions: sessions, log: log, txLimit: txLimit}
	sessions.OnChange(c.onSessionChange)
	return c
}

// onSessionChange clears the rendered view the moment the session ends, so
// the transition to the login screen never shows the previous user's data.
func (c *Controller) onSessionChange(ev session.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ev.Kind {
	case session.EventLogout, session.EventExpired:
		c.view = View{RedirectToLogin: true}
	case session.EventLogin:
		c.view = View{}
	}
}

// Mount is the screen's mount effect: tag the cache with the current user,
// then render from cache, fetching only when nothing valid is cached.
func (c *Controller) Mount(ctx context.Context) View {
	if !c.sessions.IsAuthenticated() {
		return c.setView(View{RedirectToLogin: true})
	}
	c.cache.ResetForNewUser(c.sessions.CurrentUserID())

	if c.cache.HasFetched() {
		return c.setView(c.buildView(c.cache.Data(), nil))
	}
	snap, err := c.cache.Ensure(ctx)
	return c.setView(c.buildView(snap, err))
}

// PullToRefresh always re-fetches, regardless of what is cached. Other
// mounted screens observe the new snapshot on their next render.
func (c *Controller) PullToRefresh(ctx context.Context) View {
	if !c.sessions.IsAuthenticated() {
		return c.setView(View{RedirectToLogin: true})
	}
	snap, err := c.cache.Refresh(ctx)
	if err != nil {
		// Keep rendering the stale snapshot with the error attached.
		return c.setView(c.buildView(c.cache.Data(), err))
	}
	return c.setView(c.buildView(snap, nil))
}

// View returns what the screen currently renders.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// StartAutoRefresh re-fetches the dashboard on an interval while the screen
// stays mounted. It stops when ctx is cancelled.
func (c *Controller) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !c.sessions.IsAuthenticated() {
					continue
				}
				if _, err := c.cache.Refresh(ctx); err != nil {
					c.log.Warn("auto refresh failed",
						zap.String("screen", c.name), zap.Error(err))
					continue
				}
				c.setView(c.buildView(c.cache.Data(), nil))
			}
		}
	}()
}

func (c *Controller) setView(v View) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = v
	return v
}

func (c *Controller) buildView(snap *models.DashboardSnapshot, err error) View {
	if snap == nil {
		return View{Err: err}
	}
	v := View{
		Fullname:      snap.User.Fullname,
		Email:         snap.User.Email,
		EmailVerified: snap.User.EmailVerified,
		Balance:       snap.User.Balance,
		Err:           err,
	}
	switch {
	case c.txLimit < 0:
		// Profile renders no transactions.
	case c.txLimit == 0 || len(snap.Transactions) <= c.txLimit:
		v.Transactions = snap.Transactions
	default:
		v.Transactions = snap.Transactions[:c.txLimit]
	}
	return v
}
