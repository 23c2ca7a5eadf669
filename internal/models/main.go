// Package models defines the core data structures shared by the PadiPay client.
package models

// TransactionType identifies the direction of a wallet transaction.
type TransactionType string

const (
	// Credit represents money entering the wallet (funding, refunds).
	Credit TransactionType = "credit"
	// Debit represents money leaving the wallet (purchases, fees).
	Debit TransactionType = "debit"
)

// TransactionStatus is the settlement state reported by the backend.
type TransactionStatus string

const (
	// StatusPending means the transaction has not settled yet.
	StatusPending TransactionStatus = "pending"
	// StatusSuccess means the transaction settled successfully.
	StatusSuccess TransactionStatus = "success"
	// StatusFailed means the transaction was rejected or reversed.
	StatusFailed TransactionStatus = "failed"
)

// Account holds the profile fields returned by the dashboard endpoint.
type Account struct {
	// Fullname is the account holder's display name.
	Fullname string `json:"fullname"`
	// Balance is the wallet balance as a decimal string, e.g. "500.00".
	// It is never parsed into a float client-side.
	Balance string `json:"balance"`
	// Email is the account email address.
	Email string `json:"email"`
	// EmailVerified reports whether the email has been confirmed.
	EmailVerified bool `json:"email_verified"`
}

// Transaction is a single wallet movement as reported by the backend.
type Transaction struct {
	// ID is the backend's identifier for the transaction.
	ID string `json:"id"`
	// Type is credit or debit.
	Type TransactionType `json:"type"`
	// Amount is a decimal string, same convention as Account.Balance.
	Amount string `json:"amount"`
	// Status is the settlement state.
	Status TransactionStatus `json:"status"`
	// Description is the human-readable narration.
	Description string `json:"description"`
	// Timestamp is the backend-formatted creation time, passed through as-is.
	Timestamp string `json:"timestamp"`
}

// DashboardSnapshot is the full authoritative payload of the dashboard
// endpoint: profile plus transactions, newest first. It is treated as an
// atomic unit and always replaced wholesale, never merged.
type DashboardSnapshot struct {
	User         Account       `json:"user"`
	Transactions []Transaction `json:"transactions"`
}

// AuthData is the payload of a successful login or register response.
type AuthData struct {
	User  AuthUser `json:"user"`
	Token string   `json:"token"`
}

// AuthUser carries the identity fields the client keeps from authentication.
type AuthUser struct {
	ID       string `json:"id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}
