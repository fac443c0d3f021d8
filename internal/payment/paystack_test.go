package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newStubServer(t *testing.T, handler http.HandlerFunc) *PaystackGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPaystackGateway(srv.URL, "sk_test", "")
}

func TestInitializeSendsSubunits(t *testing.T) {
	var got map[string]interface{}
	g := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transaction/initialize", r.URL.Path)
		require.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"authorization_url":"https://pay/abc","reference":"ref-1"}}`))
	})

	res, err := g.Initialize(context.Background(), InitializeRequest{
		Email:     "brand@example.com",
		Amount:    decimal.NewFromInt(12600),
		Reference: "ref-1",
	})
	require.NoError(t, err)
	require.Equal(t, "https://pay/abc", res.AuthorizationURL)
	require.Equal(t, float64(1260000), got["amount"])
	require.Equal(t, "ref-1", got["reference"])
}

func TestVerifySuccess(t *testing.T) {
	g := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transaction/verify/ref-2", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"status":"success","reference":"ref-2","amount":700000}}`))
	})

	res, err := g.Verify(context.Background(), "ref-2")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.True(t, res.Amount.Equal(decimal.NewFromInt(7000)))
}

func TestVerifyAbandoned(t *testing.T) {
	g := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"status":"abandoned","reference":"ref-3","amount":0}}`))
	})

	res, err := g.Verify(context.Background(), "ref-3")
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, "abandoned", res.Status)
}

func TestVerifyGatewayError(t *testing.T) {
	g := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"Transaction reference not found"}`))
	})

	res, err := g.Verify(context.Background(), "missing")
	require.ErrorIs(t, err, ErrGatewayRequest)
	require.NotNil(t, res)
	require.False(t, res.Success)
}

func TestValidateWebhook(t *testing.T) {
	g := NewPaystackGateway("http://unused", "sk_test", "")
	body := []byte(`{"event":"charge.success","data":{"status":"success","reference":"ref-4","amount":1800000}}`)

	headers := http.Header{}
	headers.Set(SignatureHeader, Sign("sk_test", body))
	ev, err := g.ValidateWebhook(headers, body)
	require.NoError(t, err)
	require.True(t, ev.IsValid)
	require.Equal(t, EventChargeSuccess, ev.Event)
	require.Equal(t, "ref-4", ev.Data.Reference)
	require.True(t, ev.Data.Amount.Equal(decimal.NewFromInt(18000)))

	headers.Set(SignatureHeader, Sign("other", body))
	ev, err = g.ValidateWebhook(headers, body)
	require.NoError(t, err)
	require.False(t, ev.IsValid)

	_, err = g.ValidateWebhook(http.Header{}, body)
	require.ErrorIs(t, err, ErrMissingSignature)
}
