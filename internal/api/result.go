package api

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrorKind classifies what went wrong with a gateway call.
type ErrorKind int

const (
	// ErrNone means the call succeeded.
	ErrNone ErrorKind = iota
	// ErrNetwork means no usable response was received (DNS failure,
	// timeout, connection refused). Retryable by the user, never by us.
	ErrNetwork
	// ErrDomain means the backend answered with a business-level failure.
	ErrDomain
	// ErrAuthExpired means the backend invalidated the current session.
	ErrAuthExpired
)

// Result is the normalized outcome of a single gateway call. The backend
// uses two success conventions (`success: bool` and `status: "success"`);
// both are folded into OK here so nothing downstream duck-types the wire
// envelope.
type Result struct {
	// OK reports whether the backend marked the call successful.
	OK bool
	// Message is the backend's human-readable message, or "network error"
	// when no response was received.
	Message string
	// Data is the raw payload under the envelope's "data" key.
	Data json.RawMessage
	// TokenExpired is set when the response matched the session-invalid
	// detection rule. The expiry callback has already fired by the time
	// the caller sees this.
	TokenExpired bool
	// Kind classifies the failure; ErrNone on success.
	Kind ErrorKind
	// StatusCode is the HTTP status, 0 when no response was received.
	StatusCode int
}

// ErrNoData is returned by Decode when the result carries no payload.
var ErrNoData = errors.New("result has no data payload")

// Decode unmarshals the result's data payload into v.
func (r Result) Decode(v any) error {
	if len(r.Data) == 0 {
		return ErrNoData
	}
	return json.Unmarshal(r.Data, v)
}

// envelope mirrors the backend's wire response. Different endpoints use
// either the Success boolean or the Status string; ok() accepts both.
type envelope struct {
	Success *bool           `json:"success"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) ok() bool {
	if e.Success != nil {
		return *e.Success
	}
	return strings.EqualFold(e.Status, "success")
}
