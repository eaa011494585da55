package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

var (
	// ErrUnavailable means the gateway could not be reached or answered 5xx after retries.
	ErrUnavailable = errors.New("gateway: unavailable")
	// ErrAuthentication means the gateway rejected our API key.
	ErrAuthentication = errors.New("gateway: authentication failed")
	// ErrRejected means the gateway refused the request as invalid.
	ErrRejected = errors.New("gateway: request rejected")
)

// Config holds gateway credentials.
type Config struct {
	BaseURL     string
	KeyID       string
	KeySecret   string
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
}

// CreateOrderRequest opens a gateway order the customer then pays against.
// Amount is in the currency's minor unit.
type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is the gateway-side order.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Client is a minimal payment gateway REST client.
type Client struct {
	cfg     Config
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a gateway client.
func NewClient(cfg Config, hc *http.Client, logger *zap.Logger) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 200 * time.Millisecond
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("gateway: invalid base URL %q", cfg.BaseURL)
	}
	if hc == nil {
		hc = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, baseURL: base, http: hc, logger: logger.Named("gateway")}, nil
}

// CreateOrder registers a new payable order with the gateway.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (Order, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Order{}, fmt.Errorf("gateway: encode order: %w", err)
	}

	var order Order
	op := func() error {
		raw, err := c.post(ctx, "orders", payload)
		if err != nil {
			if errors.Is(err, ErrUnavailable) {
				c.logger.Warn("gateway order creation failed, will retry", zap.String("receipt", req.Receipt), zap.Error(err))
				return err
			}
			return backoff.Permanent(err)
		}
		if err := json.Unmarshal(raw, &order); err != nil || order.ID == "" {
			return backoff.Permanent(fmt.Errorf("%w: malformed order response", ErrRejected))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.BaseBackoff
	b.MaxElapsedTime = 0
	b.Reset()
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxAttempts-1)), ctx)); err != nil {
		return Order{}, err
	}
	return order, nil
}

func (c *Client) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	target := c.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, target.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", ErrAuthentication, strings.TrimSpace(string(raw)))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
}

// Sign computes the callback signature the gateway attaches to a successful payment:
// hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a callback signature in constant time.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	expected := Sign(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
