// Package app assembles the client: gateway, session store, dashboard
// cache, product services and screen controllers, with the cross-component
// invalidation wiring between them. One App per running process.
package app

import (
	"go.uber.org/zap"

	"github.com/padipay/padipay-go/internal/api"
	"github.com/padipay/padipay-go/internal/billpay"
	"github.com/padipay/padipay-go/internal/config"
	"github.com/padipay/padipay-go/internal/dashboard"
	"github.com/padipay/padipay-go/internal/screens"
	"github.com/padipay/padipay-go/internal/session"
)

// App owns the shared singletons and the controllers built on them.
type App struct {
	Gateway  *api.Client
	Sessions *session.Store
	Cache    *dashboard.Cache
	Billpay  *billpay.Service
	Admin    *billpay.Admin

	Home    *screens.Controller
	Wallet  *screens.Controller
	Profile *screens.Controller

	tokens *session.TokenStore
}

// New builds the application graph for the given configuration.
func New(opts *config.Options, log *zap.Logger) (*App, error) {
	gw := api.New(opts.ServerURL, log)

	tokens, err := session.OpenTokenStore(opts.DataDir)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(gw, tokens, log)
	svc := billpay.New(gw, log)
	cache := dashboard.New(svc, sessions, log)

	// Invalidation wiring: a new login re-tags the cache for its owner;
	// logout and expiry purge it outright. This is the only place the
	// session store and the cache are connected.
	sessions.OnChange(func(ev session.Event) {
		switch ev.Kind {
		case session.EventLogin:
			cache.ResetForNewUser(ev.UserID)
		default:
			cache.Reset()
		}
	})

	return &App{
		Gateway:  gw,
		Sessions: sessions,
		Cache:    cache,
		Billpay:  svc,
		Admin:    billpay.NewAdmin(gw, log),
		Home:     screens.NewHome(cache, sessions, log),
		Wallet:   screens.NewWallet(cache, sessions, log),
		Profile:  screens.NewProfile(cache, sessions, log),
		tokens:   tokens,
	}, nil
}

// Close releases the local session database.
func (a *App) Close() error {
	return a.tokens.Close()
}
