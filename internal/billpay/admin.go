package billpay

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/padipay/padipay-go/internal/models"
)

// Admin exposes the companion admin-console endpoints. Same gateway, same
// call-once semantics, same expiry handling as the user-facing services.
type Admin struct {
	gw  Gateway
	log *zap.Logger
}

// NewAdmin constructs an Admin service over the shared gateway.
func NewAdmin(gw Gateway, log *zap.Logger) *Admin {
	return &Admin{gw: gw, log: log}
}

// AdminUser is one row of the admin user listing.
type AdminUser struct {
	ID       string `json:"id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Balance  string `json:"balance"`
}

// ListUsers returns all registered users.
func (a *Admin) ListUsers(ctx context.Context) ([]AdminUser, error) {
	res := a.gw.Get(ctx, "/admin/users")
	if !res.OK {
		return nil, resultErr("list users", res)
	}
	var users []AdminUser
	if err := res.Decode(&users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

// CreditWallet credits a user's wallet.
func (a *Admin) CreditWallet(ctx context.Context, userID, amount string) error {
	res := a.gw.Post(ctx, "/admin/credit", map[string]string{"user_id": userID, "amount": amount})
	if !res.OK {
		return resultErr("credit wallet", res)
	}
	a.log.Info("wallet credited", zap.String("user_id", userID), zap.String("amount", amount))
	return nil
}

// ListAllTransactions returns every transaction across users.
func (a *Admin) ListAllTransactions(ctx context.Context) ([]models.Transaction, error) {
	res := a.gw.Get(ctx, "/admin/transactions")
	if !res.OK {
		return nil, resultErr("list transactions", res)
	}
	var txs []models.Transaction
	if err := res.Decode(&txs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return txs, nil
}
