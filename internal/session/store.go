// Package session coordinates the client's authentication lifecycle: who is
// logged in, with what credential, and who needs to know when that changes.
// There is at most one active session per process.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/padipay/padipay-go/internal/api"
	"github.com/padipay/padipay-go/internal/models"
)

// State is the session's lifecycle state.
type State int

const (
	// LoggedOut means no credential is held.
	LoggedOut State = iota
	// LoggedIn means a user is authenticated and the gateway carries
	// their token.
	LoggedIn
)

// EventKind says why the session changed.
type EventKind int

const (
	// EventLogin fires after a successful login or register.
	EventLogin EventKind = iota
	// EventLogout fires after an explicit logout or data wipe.
	EventLogout
	// EventExpired fires when the backend invalidated the session.
	EventExpired
)

// Event is delivered synchronously to subscribers on every transition.
type Event struct {
	Kind   EventKind
	UserID string
}

// ErrLoginFailed wraps a rejected login or register attempt.
var ErrLoginFailed = errors.New("authentication failed")

// Gateway is the surface the store needs from the API client.
type Gateway interface {
	SetToken(token string)
	ClearToken()
	SetTokenExpiredCallback(fn func())
	Post(ctx context.Context, path string, body any) api.Result
}

// CredentialStore persists the credential across restarts.
type CredentialStore interface {
	Save(ctx context.Context, userID, token string) error
	Load(ctx context.Context) (userID, token string, err error)
	Clear(ctx context.Context) error
}

// Store is the session state machine. All mutation is serialized by mu;
// subscriber callbacks run outside the lock so they may call back in.
type Store struct {
	gw    Gateway
	creds CredentialStore
	log   *zap.Logger

	mu     sync.Mutex
	state  State
	userID string
	token  string
	subs   []func(Event)
}

// NewStore wires a session store to the gateway and registers itself as the
// gateway's expiry callback, making backend invalidation the third teardown
// path next to explicit logout and data wipe.
func NewStore(gw Gateway, creds CredentialStore, log *zap.Logger) *Store {
	s := &Store{gw: gw, creds: creds, log: log}
	gw.SetTokenExpiredCallback(s.handleTokenExpired)
	return s
}

// OnChange registers a subscriber notified on every transition. Subscribers
// are invoked synchronously, in registration order.
func (s *Store) OnChange(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsAuthenticated reports whether a user is currently logged in.
func (s *Store) IsAuthenticated() bool {
	return s.State() == LoggedIn
}

// CurrentUserID returns the authenticated user's ID, or "" when logged out.
func (s *Store) CurrentUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Restore loads a persisted session, if any, and transitions to LoggedIn
// without a network call. It returns false when nothing was persisted.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	userID, token, err := s.creds.Load(ctx)
	if errors.Is(err, ErrTokenNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.establish(ctx, userID, token, false)
	s.log.Info("session restored", zap.String("user_id", userID))
	return true, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates against the backend and transitions to LoggedIn.
// A rejected attempt returns an error wrapping ErrLoginFailed and leaves
// the current state untouched.
func (s *Store) Login(ctx context.Context, email, password string) (*models.AuthUser, error) {
	return s.authenticate(ctx, "/auth/login", loginRequest{Email: email, Password: password})
}

// Register creates an account and transitions to LoggedIn, mirroring Login.
func (s *Store) Register(ctx context.Context, fullname, email, password string) (*models.AuthUser, error) {
	return s.authenticate(ctx, "/auth/register", registerRequest{Fullname: fullname, Email: email, Password: password})
}

func (s *Store) authenticate(ctx context.Context, path string, body any) (*models.AuthUser, error) {
	res := s.gw.Post(ctx, path, body)
	if !res.OK {
		return nil, fmt.Errorf("%w: %s", ErrLoginFailed, res.Message)
	}

	var auth models.AuthData
	if err := res.Decode(&auth); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	if auth.Token == "" || auth.User.ID == "" {
		return nil, fmt.Errorf("%w: incomplete auth payload", ErrLoginFailed)
	}

	s.establish(ctx, auth.User.ID, auth.Token, true)
	s.log.Info("session established", zap.String("user_id", auth.User.ID))
	return &auth.User, nil
}

// establish replaces the active session. A new login over an existing
// session is a full replacement: subscribers see the login event and must
// drop anything cached under the previous identity.
func (s *Store) establish(ctx context.Context, userID, token string, persist bool) {
	s.mu.Lock()
	s.state = LoggedIn
	s.userID = userID
	s.token = token
	s.mu.Unlock()

	s.gw.SetToken(token)
	if persist {
		if err := s.creds.Save(ctx, userID, token); err != nil {
			// The live session is still valid; it just won't survive restart.
			s.log.Warn("persist session", zap.Error(err))
		}
	}
	s.notify(Event{Kind: EventLogin, UserID: userID})
}

// Logout tears the session down on explicit user action.
func (s *Store) Logout(ctx context.Context) {
	s.teardown(ctx, EventLogout)
}

// ClearAllData is the dev/test utility wipe. State-wise it is a logout.
func (s *Store) ClearAllData(ctx context.Context) {
	s.teardown(ctx, EventLogout)
}

// handleTokenExpired is installed as the gateway's expiry callback. It runs
// synchronously inside the failing request's resolution.
func (s *Store) handleTokenExpired() {
	s.log.Info("session expired by backend")
	s.teardown(context.Background(), EventExpired)
}

func (s *Store) teardown(ctx context.Context, kind EventKind) {
	s.mu.Lock()
	if s.state == LoggedOut {
		s.mu.Unlock()
		return
	}
	userID := s.userID
	s.state = LoggedOut
	s.userID = ""
	s.token = ""
	s.mu.Unlock()

	s.gw.ClearToken()
	if err := s.creds.Clear(ctx); err != nil {
		s.log.Warn("clear persisted session", zap.Error(err))
	}
	s.log.Info("session ended", zap.String("user_id", userID))
	s.notify(Event{Kind: kind, UserID: userID})
}

func (s *Store) notify(ev Event) {
	s.mu.Lock()
	subs := make([]func(Event), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}
