package billpay_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/padipay/padipay-go/internal/api"
	"github.com/padipay/padipay-go/internal/api/apitest"
	"github.com/padipay/padipay-go/internal/billpay"
)

func setup(t *testing.T) (*apitest.Server, *billpay.Service, *billpay.Admin, string) {
	t.Helper()
	backend := apitest.New()
	srv := httptest.NewServer(backend.Router())
	t.Cleanup(srv.Close)

	log := zap.NewNop()
	gw := api.New(srv.URL, log)
	userID := backend.Seed("ada@example.com", "pw", "Ada", "500.00")

	// Authenticate directly through the gateway to obtain a token.
	res := gw.Post(context.Background(), "/auth/login", map[string]string{
		"email": "ada@example.com", "password": "pw",
	})
	require.True(t, res.OK)
	var auth struct {
		Token string `json:"token"`
	}
	require.NoError(t, res.Decode(&auth))
	gw.SetToken(auth.Token)

	return backend, billpay.New(gw, log), billpay.NewAdmin(gw, log), userID
}

func TestFetchDashboard(t *testing.T) {
	_, svc, _, _ := setup(t)

	snap, err := svc.FetchDashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada", snap.User.Fullname)
	assert.Equal(t, "500.00", snap.User.Balance)
	assert.True(t, snap.User.EmailVerified)
	assert.NotNil(t, snap.Transactions)
}

func TestBuyAirtime_GeneratesReference(t *testing.T) {
	_, svc, _, _ := setup(t)

	receipt, err := svc.BuyAirtime(context.Background(), billpay.AirtimeRequest{
		Network: "mtn", Phone: "08030000000", Amount: "100.00",
	})
	require.NoError(t, err)
	// Client-side idempotency reference, echoed by the backend.
	assert.NotEmpty(t, receipt.Reference)
	assert.Equal(t, "success", receipt.Status)
}

func TestBuyAirtime_KeepsCallerReference(t *testing.T) {
	_, svc, _, _ := setup(t)

	receipt, err := svc.BuyAirtime(context.Background(), billpay.AirtimeRequest{
		Network: "glo", Phone: "08030000000", Amount: "100.00", Reference: "my-ref-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "my-ref-1", receipt.Reference)
}

func TestBuyData_StatusConventionIsNormalized(t *testing.T) {
	_, svc, _, _ := setup(t)

	// The billpay endpoints answer with {status:"success"} rather than
	// {success:true}; the gateway must treat both the same.
	receipt, err := svc.BuyData(context.Background(), billpay.DataRequest{
		Network: "airtel", Phone: "08030000000", PlanID: "plan-2gb",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.Reference)
}

func TestPayElectricityAndCable(t *testing.T) {
	_, svc, _, _ := setup(t)
	ctx := context.Background()

	receipt, err := svc.PayElectricity(ctx, billpay.ElectricityRequest{
		Disco: "ikeja", MeterNumber: "0123456789", MeterType: "prepaid", Amount: "2000.00", Phone: "08030000000",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.Reference)

	receipt, err = svc.PayCable(ctx, billpay.CableRequest{
		Provider: "dstv", Smartcard: "7023456789", PlanID: "compact", Phone: "08030000000",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.Reference)
}

func TestVerifyNIN(t *testing.T) {
	_, svc, _, _ := setup(t)

	record, err := svc.VerifyNIN(context.Background(), "12345678901")
	require.NoError(t, err)
	assert.Equal(t, "12345678901", record.NIN)
	assert.NotEmpty(t, record.Fullname)

	_, err = svc.VerifyNIN(context.Background(), "123")
	assert.ErrorContains(t, err, "Invalid NIN")
}

func TestUploadNINSlip(t *testing.T) {
	_, svc, _, _ := setup(t)

	receipt, err := svc.UploadNINSlip(context.Background(), "12345678901", "slip.png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "pending", receipt.Status)
}

func TestSubmitCACRegistration(t *testing.T) {
	_, svc, _, _ := setup(t)

	receipt, err := svc.SubmitCACRegistration(context.Background(), billpay.CACRequest{
		BusinessName: "Ada Ventures",
		Nature:       "General merchandise",
		OwnerNIN:     "12345678901",
		Documents: []billpay.CACDocument{
			{Name: "id-card.png", Content: []byte("png-bytes")},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.Reference)

	// Without documents the backend rejects the submission.
	_, err = svc.SubmitCACRegistration(context.Background(), billpay.CACRequest{
		BusinessName: "Ada Ventures", Nature: "General merchandise", OwnerNIN: "12345678901",
	})
	assert.Error(t, err)
}

func TestFundWalletFlow(t *testing.T) {
	_, svc, _, _ := setup(t)
	ctx := context.Background()

	intent, err := svc.FundWallet(ctx, "250.00")
	require.NoError(t, err)
	assert.NotEmpty(t, intent.Reference)
	assert.Contains(t, intent.AuthorizationURL, intent.Reference)

	receipt, err := svc.VerifyFunding(ctx, intent.Reference)
	require.NoError(t, err)
	assert.Equal(t, intent.Reference, receipt.Reference)
	assert.Equal(t, "success", receipt.Status)

	_, err = svc.FundWallet(ctx, "")
	assert.ErrorContains(t, err, "Amount is required")
}

func TestAdmin(t *testing.T) {
	_, _, admin, userID := setup(t)
	ctx := context.Background()

	users, err := admin.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Ada", users[0].Fullname)

	require.NoError(t, admin.CreditWallet(ctx, userID, "900.00"))
	users, err = admin.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "900.00", users[0].Balance)

	assert.Error(t, admin.CreditWallet(ctx, "missing-user", "1.00"))

	txs, err := admin.ListAllTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestUnauthenticatedCallFailsCleanly(t *testing.T) {
	backend := apitest.New()
	srv := httptest.NewServer(backend.Router())
	t.Cleanup(srv.Close)

	svc := billpay.New(api.New(srv.URL, zap.NewNop()), zap.NewNop())
	_, err := svc.FetchDashboard(context.Background())
	assert.ErrorContains(t, err, "Token is invalid")
}
