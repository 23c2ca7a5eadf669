// Package billpay provides typed wrappers over the PadiPay API for the
// individual product flows. Every method is a single request/response pair:
// call once, return the normalized outcome or its error. Caching and retry
// live elsewhere or nowhere.
package billpay

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/padipay/padipay-go/internal/api"
	"github.com/padipay/padipay-go/internal/models"
)

// Gateway is the surface the services need from the API client.
type Gateway interface {
	Get(ctx context.Context, path string) api.Result
	Post(ctx context.Context, path string, body any) api.Result
	DoMultipart(ctx context.Context, path string, fields map[string]string, files []api.FilePart) api.Result
}

// Service exposes the user-facing endpoints.
type Service struct {
	gw  Gateway
	log *zap.Logger
}

// New constructs a Service over the shared gateway.
func New(gw Gateway, log *zap.Logger) *Service {
	return &Service{gw: gw, log: log}
}

// FetchDashboard retrieves the authoritative dashboard payload. It
// implements dashboard.Fetcher.
func (s *Service) FetchDashboard(ctx context.Context) (*models.DashboardSnapshot, error) {
	res := s.gw.Get(ctx, "/user/dashboard")
	if !res.OK {
		return nil, resultErr("fetch dashboard", res)
	}
	var snap models.DashboardSnapshot
	if err := res.Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode dashboard: %w", err)
	}
	return &snap, nil
}

// Receipt is the backend's acknowledgement of a purchase or submission.
type Receipt struct {
	// Reference is the idempotency reference echoed by the backend.
	Reference string `json:"reference"`
	// Status is pending, success or failed.
	Status string `json:"status"`
	// Message is the backend's narration.
	Message string `json:"message"`
}

// AirtimeRequest buys phone airtime.
type AirtimeRequest struct {
	Network string `json:"network"`
	Phone   string `json:"phone"`
	Amount  string `json:"amount"`
	// Reference is generated client-side when empty.
	Reference string `json:"reference"`
}

// BuyAirtime purchases airtime for a phone number.
func (s *Service) BuyAirtime(ctx context.Context, req AirtimeRequest) (*Receipt, error) {
	req.Reference = orNewReference(req.Reference)
	return s.purchase(ctx, "/billpay/airtime", req, req.Reference)
}

// DataRequest buys a mobile data plan.
type DataRequest struct {
	Network   string `json:"network"`
	Phone     string `json:"phone"`
	PlanID    string `json:"plan_id"`
	Reference string `json:"reference"`
}

// BuyData purchases a data plan.
func (s *Service) BuyData(ctx context.Context, req DataRequest) (*Receipt, error) {
	req.Reference = orNewReference(req.Reference)
	return s.purchase(ctx, "/billpay/data", req, req.Reference)
}

// ElectricityRequest buys an electricity token or postpaid credit.
type ElectricityRequest struct {
	Disco       string `json:"disco"`
	MeterNumber string `json:"meter_number"`
	MeterType   string `json:"meter_type"`
	Amount      string `json:"amount"`
	Phone       string `json:"phone"`
	Reference   string `json:"reference"`
}

// PayElectricity pays an electricity bill.
func (s *Service) PayElectricity(ctx context.Context, req ElectricityRequest) (*Receipt, error) {
	req.Reference = orNewReference(req.Reference)
	return s.purchase(ctx, "/billpay/electricity", req, req.Reference)
}

// CableRequest renews a cable TV subscription.
type CableRequest struct {
	Provider  string `json:"provider"`
	Smartcard string `json:"smartcard_number"`
	PlanID    string `json:"plan_id"`
	Phone     string `json:"phone"`
	Reference string `json:"reference"`
}

// PayCable renews a cable TV subscription.
func (s *Service) PayCable(ctx context.Context, req CableRequest) (*Receipt, error) {
	req.Reference = orNewReference(req.Reference)
	return s.purchase(ctx, "/billpay/cable", req, req.Reference)
}

func (s *Service) purchase(ctx context.Context, path string, body any, reference string) (*Receipt, error) {
	res := s.gw.Post(ctx, path, body)
	if !res.OK {
		return nil, resultErr("purchase", res)
	}
	var receipt Receipt
	if err := res.Decode(&receipt); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	s.log.Info("purchase completed",
		zap.String("path", path),
		zap.String("reference", reference),
		zap.String("status", receipt.Status))
	return &receipt, nil
}

// NINRecord is the identity record returned by NIN verification.
type NINRecord struct {
	NIN         string `json:"nin"`
	Fullname    string `json:"fullname"`
	DateOfBirth string `json:"date_of_birth"`
}

// VerifyNIN looks up a National Identification Number.
func (s *Service) VerifyNIN(ctx context.Context, nin string) (*NINRecord, error) {
	res := s.gw.Post(ctx, "/identity/nin/verify", map[string]string{"nin": nin})
	if !res.OK {
		return nil, resultErr("verify NIN", res)
	}
	var record NINRecord
	if err := res.Decode(&record); err != nil {
		return nil, fmt.Errorf("decode NIN record: %w", err)
	}
	return &record, nil
}

// UploadNINSlip submits a NIN slip image for printing.
func (s *Service) UploadNINSlip(ctx context.Context, nin, filename string, content []byte) (*Receipt, error) {
	res := s.gw.DoMultipart(ctx, "/identity/nin/slip",
		map[string]string{"nin": nin},
		[]api.FilePart{{Field: "slip", Name: filename, Content: content}})
	if !res.OK {
		return nil, resultErr("upload NIN slip", res)
	}
	var receipt Receipt
	if err := res.Decode(&receipt); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &receipt, nil
}

// CACDocument is one document attached to a business registration.
type CACDocument struct {
	Name    string
	Content []byte
}

// CACRequest submits a business-name registration to CAC.
type CACRequest struct {
	BusinessName string
	Nature       string
	OwnerNIN     string
	Documents    []CACDocument
}

// SubmitCACRegistration submits the registration with its documents.
func (s *Service) SubmitCACRegistration(ctx context.Context, req CACRequest) (*Receipt, error) {
	files := make([]api.FilePart, 0, len(req.Documents))
	for _, doc := range req.Documents {
		files = append(files, api.FilePart{Field: "documents", Name: doc.Name, Content: doc.Content})
	}
	res := s.gw.DoMultipart(ctx, "/business/cac",
		map[string]string{
			"business_name": req.BusinessName,
			"nature":        req.Nature,
			"owner_nin":     req.OwnerNIN,
		}, files)
	if !res.OK {
		return nil, resultErr("submit CAC registration", res)
	}
	var receipt Receipt
	if err := res.Decode(&receipt); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &receipt, nil
}

// FundingIntent is the checkout handle returned by wallet funding.
type FundingIntent struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
}

// FundWallet initializes a wallet top-up and returns the checkout URL.
func (s *Service) FundWallet(ctx context.Context, amount string) (*FundingIntent, error) {
	res := s.gw.Post(ctx, "/wallet/fund", map[string]string{"amount": amount})
	if !res.OK {
		return nil, resultErr("fund wallet", res)
	}
	var intent FundingIntent
	if err := res.Decode(&intent); err != nil {
		return nil, fmt.Errorf("decode funding intent: %w", err)
	}
	return &intent, nil
}

// VerifyFunding confirms whether a funding reference settled.
func (s *Service) VerifyFunding(ctx context.Context, reference string) (*Receipt, error) {
	res := s.gw.Get(ctx, "/wallet/fund/verify/"+reference)
	if !res.OK {
		return nil, resultErr("verify funding", res)
	}
	var receipt Receipt
	if err := res.Decode(&receipt); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &receipt, nil
}

func orNewReference(ref string) string {
	if ref != "" {
		return ref
	}
	return uuid.NewString()
}

func resultErr(op string, res api.Result) error {
	if res.TokenExpired {
		return fmt.Errorf("%s: session expired", op)
	}
	return fmt.Errorf("%s: %s", op, res.Message)
}
