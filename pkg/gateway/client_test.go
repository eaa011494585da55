package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"storefront/pkg/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, url string) *gateway.Client {
	t.Helper()
	c, err := gateway.NewClient(gateway.Config{
		BaseURL: url, KeyID: "rzp_test", KeySecret: "s3cret",
		Timeout: time.Second, BaseBackoff: time.Millisecond,
	}, nil, nil)
	require.NoError(t, err)
	return c
}

func TestClient_CreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test", user)
		assert.Equal(t, "s3cret", pass)

		var req gateway.CreateOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(123450), req.Amount)
		_ = json.NewEncoder(w).Encode(gateway.Order{ID: "order_abc", Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Status: "created"})
	}))
	defer srv.Close()

	order, err := newClient(t, srv.URL).CreateOrder(context.Background(), gateway.CreateOrderRequest{Amount: 123450, Currency: "INR", Receipt: "ORD-1"})
	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, "ORD-1", order.Receipt)
}

func TestClient_CreateOrderRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).CreateOrder(context.Background(), gateway.CreateOrderRequest{Amount: 100, Currency: "INR"})
	assert.ErrorIs(t, err, gateway.ErrUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_CreateOrderRejected(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"description":"amount must be at least 100"}}`))
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).CreateOrder(context.Background(), gateway.CreateOrderRequest{Amount: 1, Currency: "INR"})
	assert.ErrorIs(t, err, gateway.ErrRejected)
	assert.Contains(t, err.Error(), "amount must be at least 100")
	assert.Equal(t, int32(1), calls.Load())
}

func TestSignature(t *testing.T) {
	sig := gateway.Sign("secret", "order_1", "pay_1")
	assert.Len(t, sig, 64)
	assert.True(t, gateway.VerifySignature("secret", "order_1", "pay_1", sig))
	assert.False(t, gateway.VerifySignature("secret", "order_1", "pay_2", sig))
	assert.False(t, gateway.VerifySignature("other", "order_1", "pay_1", sig))
	assert.False(t, gateway.VerifySignature("secret", "order_1", "pay_1", ""))
}
