// Package apitest provides an in-process fake of the PadiPay backend for
// package tests. It serves the auth, dashboard, bill-payment and admin
// endpoints with canned envelopes, a mutable wallet balance, and a switch
// that forces 401 session-expiry responses.
package apitest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/padipay/padipay-go/internal/models"
)

// userRecord is one seeded account.
type userRecord struct {
	ID       string
	Fullname string
	Email    string
	Password string
	Verified bool
}

// Server is the fake backend. Zero value is not usable; construct with New.
type Server struct {
	mu           sync.Mutex
	users        map[string]*userRecord // keyed by email
	tokens       map[string]string      // token -> user ID
	balances     map[string]string      // user ID -> decimal string
	transactions map[string][]models.Transaction

	forceExpiry   bool
	expiryMessage string
}

// New returns an empty fake backend.
func New() *Server {
	return &Server{
		users:        make(map[string]*userRecord),
		tokens:       make(map[string]string),
		balances:     make(map[string]string),
		transactions: make(map[string][]models.Transaction),
	}
}

// Seed registers an account and returns its user ID.
func (s *Server) Seed(email, password, fullname, balance string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.users[email] = &userRecord{ID: id, Fullname: fullname, Email: email, Password: password, Verified: true}
	s.balances[id] = balance
	return id
}

// SetBalance overwrites a user's wallet balance.
func (s *Server) SetBalance(userID, balance string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = balance
}

// AddTransaction appends a transaction to a user's history (newest first).
func (s *Server) AddTransaction(userID string, tx models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[userID] = append([]models.Transaction{tx}, s.transactions[userID]...)
}

// ForceExpiry makes every authenticated endpoint answer 401 with the given
// message until the next successful login.
func (s *Server) ForceExpiry(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forceExpiry = true
	s.expiryMessage = message
}

// Router builds the HTTP handler. Mount it on an httptest.Server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/register", s.handleRegister)

	// Protected group: requires a bearer token issued by login/register.
	r.Group(func(r chi.Router) {
		r.Use(s.bearerAuth)
		r.Get("/user/dashboard", s.handleDashboard)
		r.Post("/billpay/airtime", s.handlePurchase("Airtime purchase"))
		r.Post("/billpay/data", s.handlePurchase("Data purchase"))
		r.Post("/billpay/electricity", s.handlePurchase("Electricity token"))
		r.Post("/billpay/cable", s.handlePurchase("Cable subscription"))
		r.Post("/identity/nin/verify", s.handleNINVerify)
		r.Post("/identity/nin/slip", s.handleUpload)
		r.Post("/business/cac", s.handleUpload)
		r.Post("/wallet/fund", s.handleFund)
		r.Get("/wallet/fund/verify/{reference}", s.handleFundVerify)
		r.Get("/admin/users", s.handleAdminUsers)
		r.Post("/admin/credit", s.handleAdminCredit)
		r.Get("/admin/transactions", s.handleAdminTransactions)
	})

	return r
}

type ctxKey string

const userKey ctxKey = "user"

// bearerAuth validates the Authorization header and stores the resolved
// user ID in the request context, mirroring how the real backend rejects
// invalidated tokens with a 401 plus a message body.
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		forced := s.forceExpiry
		message := s.expiryMessage
		s.mu.Unlock()
		if forced {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": message})
			return
		}

		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		s.mu.Lock()
		userID, ok := s.tokens[token]
		s.mu.Unlock()
		if header == "" || !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Token is invalid"})
			return
		}

		ctx := contextWithUser(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[req.Email]
	if !ok || user.Password != req.Password {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Invalid email or password"})
		return
	}
	token := uuid.NewString()
	s.tokens[token] = user.ID
	s.forceExpiry = false
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"data": map[string]any{
			"user":  map[string]any{"id": user.ID, "fullname": user.Fullname, "email": user.Email},
			"token": token,
		},
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Fullname string `json:"fullname"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Email]; exists {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Email already registered"})
		return
	}
	id := uuid.NewString()
	s.users[req.Email] = &userRecord{ID: id, Fullname: req.Fullname, Email: req.Email, Password: req.Password}
	s.balances[id] = "0.00"
	token := uuid.NewString()
	s.tokens[token] = id
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Registration successful",
		"data": map[string]any{
			"user":  map[string]any{"id": id, "fullname": req.Fullname, "email": req.Email},
			"token": token,
		},
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID := userFromContext(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	var user *userRecord
	for _, u := range s.users {
		if u.ID == userID {
			user = u
			break
		}
	}
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "User not found"})
		return
	}
	txs := s.transactions[userID]
	if txs == nil {
		txs = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Dashboard fetched",
		"data": map[string]any{
			"user": map[string]any{
				"fullname":       user.Fullname,
				"balance":        s.balances[userID],
				"email":          user.Email,
				"email_verified": user.Verified,
			},
			"transactions": txs,
		},
	})
}

// handlePurchase serves the four bill-payment endpoints. These respond with
// the backend's other envelope convention (status: "success") to keep the
// gateway's dual-convention parsing honest.
func (s *Server) handlePurchase(narration string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"status": "error", "message": "invalid request"})
			return
		}
		reference, _ := req["reference"].(string)
		if reference == "" {
			reference = uuid.NewString()
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "success",
			"message": narration + " successful",
			"data": map[string]any{
				"reference": reference,
				"status":    "success",
				"message":   narration + " successful",
			},
		})
	}
}

func (s *Server) handleNINVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NIN string `json:"nin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.NIN) != 11 {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Invalid NIN"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "NIN verified",
		"data":    map[string]any{"nin": req.NIN, "fullname": "Seeded Holder", "date_of_birth": "1990-01-01"},
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid upload"})
		return
	}
	count := 0
	if r.MultipartForm != nil {
		for _, files := range r.MultipartForm.File {
			count += len(files)
		}
	}
	if count == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "No document attached"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Submission received",
		"data":    map[string]any{"reference": uuid.NewString(), "status": "pending", "message": "Submission received"},
	})
}

func (s *Server) handleFund(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount == "" {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Amount is required"})
		return
	}
	reference := uuid.NewString()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Funding initialized",
		"data": map[string]any{
			"reference":         reference,
			"authorization_url": fmt.Sprintf("https://checkout.example.com/%s", reference),
		},
	})
}

func (s *Server) handleFundVerify(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Funding verified",
		"data":    map[string]any{"reference": reference, "status": "success", "message": "Funding verified"},
	})
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]map[string]any, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, map[string]any{
			"id":       u.ID,
			"fullname": u.Fullname,
			"email":    u.Email,
			"balance":  s.balances[u.ID],
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Users fetched", "data": users})
}

func (s *Server) handleAdminCredit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid request"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.balances[req.UserID]; !ok {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "User not found"})
		return
	}
	// Test fixture: the credited amount replaces the balance outright.
	s.balances[req.UserID] = req.Amount
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Wallet credited"})
}

func (s *Server) handleAdminTransactions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := []models.Transaction{}
	for _, txs := range s.transactions {
		all = append(all, txs...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Transactions fetched", "data": all})
}

func contextWithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

func userFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(userKey).(string); ok {
		return s
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
