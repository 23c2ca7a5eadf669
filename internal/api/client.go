// Package api implements the single HTTP gateway between the client and the
// PadiPay backend. It attaches the bearer credential to every request, sends
// exactly one network attempt per call, normalizes the backend's response
// envelope, and detects server-side session invalidation.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// expiryPhrases are the backend messages that signal server-side session
// invalidation. The backend has no dedicated status code for this, so a 401
// whose message contains one of these (case-insensitive) is treated as
// token expiry.
var expiryPhrases = []string{
	"token expired",
	"token has expired",
	"unauthenticated",
	"token is invalid",
	"unauthorized",
	"logged out due to inactivity",
}

// Client is the process-wide HTTP gateway. It holds a single bearer
// credential; concurrent requests for different sessions are not supported
// because the application has at most one active session.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger

	mu        sync.Mutex
	token     string
	onExpired func()
}

// New constructs a gateway for the given base URL.
func New(baseURL string, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

// SetToken installs the credential used by all subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// ClearToken removes the credential.
func (c *Client) ClearToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

// HasToken reports whether a credential is currently installed.
func (c *Client) HasToken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != ""
}

// SetTokenExpiredCallback registers the function invoked when a response
// matches the expiry detection rule. Last registration wins. The callback
// runs synchronously within the failing request's resolution.
func (c *Client) SetTokenExpiredCallback(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpired = fn
}

// Get issues a GET request against path.
func (c *Client) Get(ctx context.Context, path string) Result {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST request with a JSON body against path.
func (c *Client) Post(ctx context.Context, path string, body any) Result {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Do sends exactly one request and returns the normalized result. Transport
// failures never surface as Go errors; they map to a Result with
// Kind=ErrNetwork so callers always branch on the same value.
func (c *Client) Do(ctx context.Context, method, path string, body any) Result {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			c.log.Error("marshal request body", zap.String("path", path), zap.Error(err))
			return networkError()
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		c.log.Error("build request", zap.String("path", path), zap.Error(err))
		return networkError()
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req)
}

// FilePart is a single file attached to a multipart request.
type FilePart struct {
	// Field is the multipart form field name.
	Field string
	// Name is the filename reported to the backend.
	Name string
	// Content is the raw file content.
	Content []byte
}

// DoMultipart sends a multipart/form-data POST, used by the document upload
// endpoints. Field values and files are encoded in one body; response
// handling is identical to Do.
func (c *Client) DoMultipart(ctx context.Context, path string, fields map[string]string, files []FilePart) Result {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			c.log.Error("write multipart field", zap.String("path", path), zap.Error(err))
			return networkError()
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.Field, f.Name)
		if err != nil {
			c.log.Error("create multipart file", zap.String("path", path), zap.Error(err))
			return networkError()
		}
		if _, err := part.Write(f.Content); err != nil {
			c.log.Error("write multipart file", zap.String("path", path), zap.Error(err))
			return networkError()
		}
	}
	if err := mw.Close(); err != nil {
		c.log.Error("finalize multipart body", zap.String("path", path), zap.Error(err))
		return networkError()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		c.log.Error("build request", zap.String("path", path), zap.Error(err))
		return networkError()
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req)
}

// send performs the single network attempt and normalizes the response.
func (c *Client) send(req *http.Request) Result {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err))
		return networkError()
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Warn("read response body", zap.String("path", req.URL.Path), zap.Error(err))
		return networkError()
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Non-JSON body: keep the raw text as the message so the expiry
		// rule can still match plain-text 401 responses.
		env = envelope{Message: strings.TrimSpace(string(raw))}
	}

	if resp.StatusCode == http.StatusUnauthorized && token != "" && matchesExpiry(env.Message) {
		c.log.Info("session invalidated by backend",
			zap.String("path", req.URL.Path),
			zap.String("message", env.Message))
		c.fireExpired()
		return Result{
			Message:      env.Message,
			TokenExpired: true,
			Kind:         ErrAuthExpired,
			StatusCode:   resp.StatusCode,
		}
	}

	res := Result{
		OK:         env.ok(),
		Message:    env.Message,
		Data:       env.Data,
		StatusCode: resp.StatusCode,
	}
	if !res.OK {
		res.Kind = ErrDomain
	}
	c.log.Debug("request completed",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Bool("ok", res.OK))
	return res
}

// fireExpired invokes the registered expiry callback, if any. It is called
// at most once per failing request because each request resolves exactly
// once.
func (c *Client) fireExpired() {
	c.mu.Lock()
	fn := c.onExpired
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func matchesExpiry(message string) bool {
	lower := strings.ToLower(message)
	for _, phrase := range expiryPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func networkError() Result {
	return Result{Message: "network error", Kind: ErrNetwork}
}
