package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const SignatureHeader = "X-Paystack-Signature"

var (
	ErrGatewayRequest   = errors.New("payment gateway request failed")
	ErrMissingSignature = errors.New("missing webhook signature")
)

// subunits per currency unit; Paystack amounts are sent in kobo/cents.
var subunit = decimal.NewFromInt(100)

type PaystackGateway struct {
	client      *resty.Client
	secretKey   string
	callbackURL string
}

func NewPaystackGateway(baseURL, secretKey, callbackURL string) *PaystackGateway {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(secretKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second).
		SetRetryCount(2)

	return &PaystackGateway{
		client:      client,
		secretKey:   secretKey,
		callbackURL: callbackURL,
	}
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitData struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

type paystackTransaction struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
}

func (g *PaystackGateway) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	body := map[string]interface{}{
		"email":     req.Email,
		"amount":    req.Amount.Mul(subunit).Round(0).IntPart(),
		"reference": req.Reference,
		"metadata":  req.Metadata,
	}
	if g.callbackURL != "" {
		body["callback_url"] = g.callbackURL
	}

	var env paystackEnvelope
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&env).
		SetError(&env).
		Post("/transaction/initialize")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayRequest, err)
	}
	if resp.IsError() || !env.Status {
		return nil, fmt.Errorf("%w: status=%d message=%s", ErrGatewayRequest, resp.StatusCode(), env.Message)
	}

	var data paystackInitData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode initialize response: %w", err)
	}
	return &InitializeResponse{AuthorizationURL: data.AuthorizationURL, Reference: data.Reference}, nil
}

func (g *PaystackGateway) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	var env paystackEnvelope
	resp, err := g.client.R().
		SetContext(ctx).
		SetPathParam("reference", reference).
		SetResult(&env).
		SetError(&env).
		Get("/transaction/verify/{reference}")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayRequest, err)
	}
	if resp.IsError() || !env.Status {
		return &VerifyResult{Success: false, Status: "failed"},
			fmt.Errorf("%w: status=%d message=%s", ErrGatewayRequest, resp.StatusCode(), env.Message)
	}

	var data paystackTransaction
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode verify response: %w", err)
	}
	return &VerifyResult{
		Success: data.Status == "success",
		Amount:  fromSubunits(data.Amount),
		Status:  data.Status,
	}, nil
}

// ValidateWebhook checks the HMAC-SHA512 signature of the raw body against
// the secret key before decoding the event.
func (g *PaystackGateway) ValidateWebhook(headers http.Header, body []byte) (*WebhookEvent, error) {
	signature := headers.Get(SignatureHeader)
	if signature == "" {
		return &WebhookEvent{IsValid: false}, ErrMissingSignature
	}
	if !hmac.Equal([]byte(signature), []byte(Sign(g.secretKey, body))) {
		return &WebhookEvent{IsValid: false}, nil
	}

	var payload struct {
		Event string              `json:"event"`
		Data  paystackTransaction `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode webhook body: %w", err)
	}

	return &WebhookEvent{
		IsValid: true,
		Event:   payload.Event,
		Data: WebhookData{
			Reference: payload.Data.Reference,
			Amount:    fromSubunits(payload.Data.Amount),
			Status:    payload.Data.Status,
		},
	}, nil
}

// Sign returns the hex HMAC-SHA512 of body keyed by secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func fromSubunits(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Div(subunit).Round(2)
}
