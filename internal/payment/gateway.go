// Package payment defines the payment gateway contract used to charge brands
// for campaigns, plus a Paystack-compatible implementation.
package payment

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
)

const EventChargeSuccess = "charge.success"

type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
	ValidateWebhook(headers http.Header, body []byte) (*WebhookEvent, error)
}

type InitializeRequest struct {
	Email     string
	Amount    decimal.Decimal
	Reference string
	Metadata  map[string]interface{}
}

type InitializeResponse struct {
	AuthorizationURL string
	Reference        string
}

type VerifyResult struct {
	Success bool
	Amount  decimal.Decimal
	Status  string
}

type WebhookEvent struct {
	IsValid bool
	Event   string
	Data    WebhookData
}

type WebhookData struct {
	Reference string
	Amount    decimal.Decimal
	Status    string
}
