package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/padipay/padipay-go/internal/api"
)

// mockGateway records token mutations and serves canned auth responses.
type mockGateway struct {
	mu        sync.Mutex
	token     string
	onExpired func()
	PostFunc  func(ctx context.Context, path string, body any) api.Result
}

func (m *mockGateway) SetToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

func (m *mockGateway) ClearToken() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
}

func (m *mockGateway) currentToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *mockGateway) SetTokenExpiredCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpired = fn
}

func (m *mockGateway) Post(ctx context.Context, path string, body any) api.Result {
	return m.PostFunc(ctx, path, body)
}

// memCreds is an in-memory CredentialStore.
type memCreds struct {
	mu      sync.Mutex
	userID  string
	token   string
	saved   bool
	saveErr error
}

func (m *memCreds) Save(ctx context.Context, userID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.userID, m.token, m.saved = userID, token, true
	return nil
}

func (m *memCreds) Load(ctx context.Context) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.saved {
		return "", "", ErrTokenNotFound
	}
	return m.userID, m.token, nil
}

func (m *memCreds) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userID, m.token, m.saved = "", "", false
	return nil
}

func okAuthResult(userID, fullname, token string) api.Result {
	data, _ := json.Marshal(map[string]any{
		"user":  map[string]any{"id": userID, "fullname": fullname, "email": "a@b.c"},
		"token": token,
	})
	return api.Result{OK: true, Message: "Login successful", Data: data}
}

func TestLogin_Success(t *testing.T) {
	gw := &mockGateway{PostFunc: func(ctx context.Context, path string, body any) api.Result {
		assert.Equal(t, "/auth/login", path)
		return okAuthResult("1001", "Ada", "tok-1")
	}}
	creds := &memCreds{}
	store := NewStore(gw, creds, zap.NewNop())

	var events []Event
	store.OnChange(func(ev Event) { events = append(events, ev) })

	user, err := store.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Fullname)

	assert.Equal(t, LoggedIn, store.State())
	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, "1001", store.CurrentUserID())
	assert.Equal(t, "tok-1", gw.currentToken())
	assert.True(t, creds.saved)
	require.Len(t, events, 1)
	assert.Equal(t, EventLogin, events[0].Kind)
	assert.Equal(t, "1001", events[0].UserID)
}

func TestLogin_Rejected(t *testing.T) {
	gw := &mockGateway{PostFunc: func(ctx context.Context, path string, body any) api.Result {
		return api.Result{OK: false, Message: "Invalid email or password", Kind: api.ErrDomain}
	}}
	store := NewStore(gw, &memCreds{}, zap.NewNop())

	_, err := store.Login(context.Background(), "a@b.c", "wrong")
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Equal(t, LoggedOut, store.State())
	assert.Empty(t, gw.currentToken())
}

func TestRegister_Success(t *testing.T) {
	gw := &mockGateway{PostFunc: func(ctx context.Context, path string, body any) api.Result {
		assert.Equal(t, "/auth/register", path)
		return okAuthResult("2002", "Bayo", "tok-2")
	}}
	store := NewStore(gw, &memCreds{}, zap.NewNop())

	user, err := store.Register(context.Background(), "Bayo", "b@c.d", "pw")
	require.NoError(t, err)
	assert.Equal(t, "2002", user.ID)
	assert.Equal(t, LoggedIn, store.State())
}

func TestLogout_ClearsEverything(t *testing.T) {
	gw := &mockGateway{PostFunc: func(ctx context.Context, path string, body any) api.Result {
		return okAuthResult("1001", "Ada", "tok-1")
	}}
	creds := &memCreds{}
	store := NewStore(gw, creds, zap.NewNop())
	_, err := store.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	var events []Event
	store.OnChange(func(ev Event) { events = append(events, ev) })

	store.Logout(context.Background())
	assert.Equal(t, LoggedOut, store.State())
	assert.Empty(t, gw.currentToken())
	assert.False(t, creds.saved)
	require.Len(t, events, 1)
	assert.Equal(t, EventLogout, events[0].Kind)
	assert.Equal(t, "1001", events[0].UserID)

	// Repeated logout is a no-op, not a second event.
	store.Logout(context.Background())
	assert.Len(t, events, 1)
}

func TestExpiryCallback_TearsSessionDown(t *testing.T) {
	gw := &mockGateway{PostFunc: func(ctx context.Context, path string, body any) api.Result {
		return okAuthResult("1001", "Ada", "tok-1")
	}}
	creds := &memCreds{}
	store := NewStore(gw, creds, zap.NewNop())
	_, err := store.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	var events []Event
	store.OnChange(func(ev Event) { events = append(events, ev) })

	// Simulate the gateway detecting a 401 expiry response.
	require.NotNil(t, gw.onExpired)
	gw.onExpired()

	assert.Equal(t, LoggedOut, store.State())
	assert.Empty(t, gw.currentToken())
	assert.False(t, creds.saved)
	require.Len(t, events, 1)
	assert.Equal(t, EventExpired, events[0].Kind)
}

func TestRestore(t *testing.T) {
	gw := &mockGateway{}
	creds := &memCreds{}
	require.NoError(t, creds.Save(context.Background(), "1001", "tok-1"))

	store := NewStore(gw, creds, zap.NewNop())
	restored, err := store.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, restored)
	assert.Equal(t, LoggedIn, store.State())
	assert.Equal(t, "1001", store.CurrentUserID())
	assert.Equal(t, "tok-1", gw.currentToken())
}

func TestRestore_NothingPersisted(t *testing.T) {
	store := NewStore(&mockGateway{}, &memCreds{}, zap.NewNop())
	restored, err := store.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, restored)
	assert.Equal(t, LoggedOut, store.State())
}

func TestLogin_PersistFailureKeepsSessionLive(t *testing.T) {
	gw := &mockGateway{PostFunc: func(ctx context.Context, path string, body any) api.Result {
		return okAuthResult("1001", "Ada", "tok-1")
	}}
	creds := &memCreds{saveErr: errors.New("disk full")}
	store := NewStore(gw, creds, zap.NewNop())

	_, err := store.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, LoggedIn, store.State())
	assert.Equal(t, "tok-1", gw.currentToken())
}

func TestNewLoginReplacesPreviousSession(t *testing.T) {
	tokens := []string{"tok-A", "tok-B"}
	users := []string{"userA", "userB"}
	call := 0
	gw := &mockGateway{}
	gw.PostFunc = func(ctx context.Context, path string, body any) api.Result {
		res := okAuthResult(users[call], "U", tokens[call])
		call++
		return res
	}
	store := NewStore(gw, &memCreds{}, zap.NewNop())

	var events []Event
	store.OnChange(func(ev Event) { events = append(events, ev) })

	_, err := store.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	_, err = store.Login(context.Background(), "b@c.d", "pw")
	require.NoError(t, err)

	assert.Equal(t, "userB", store.CurrentUserID())
	assert.Equal(t, "tok-B", gw.currentToken())
	// Both logins notify, so subscribers can invalidate per-user state.
	require.Len(t, events, 2)
	assert.Equal(t, "userA", events[0].UserID)
	assert.Equal(t, "userB", events[1].UserID)
}
