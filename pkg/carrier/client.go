package carrier

import (
	"bytes"
	"context"
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
	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultTokenTTL    = 24 * time.Hour
	defaultMaxAttempts = 3
	defaultBaseBackoff = 200 * time.Millisecond
	maxResponseBytes   = 4 << 20
)

// Verb is the HTTP method of a carrier endpoint.
type Verb int

const (
	VerbGet Verb = iota
	VerbPost
)

var verbMethods = map[Verb]string{
	VerbGet:  http.MethodGet,
	VerbPost: http.MethodPost,
}

func (v Verb) String() string {
	if m, ok := verbMethods[v]; ok {
		return m
	}
	return fmt.Sprintf("Verb(%d)", int(v))
}

// Config holds the carrier account and transport settings.
type Config struct {
	BaseURL     string
	Email       string
	Password    string
	Timeout     time.Duration // per HTTP attempt
	TokenTTL    time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
}

// Client talks to the carrier REST API. It is safe for concurrent use.
type Client struct {
	cfg     Config
	baseURL *url.URL
	http    *http.Client
	tokens  TokenCache
	flight  singleflight.Group
	logger  *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenCache injects a shared token cache.
func WithTokenCache(cache TokenCache) Option {
	return func(c *Client) { c.tokens = cache }
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a carrier client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = defaultBaseBackoff
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("carrier: invalid base URL %q", cfg.BaseURL)
	}

	c := &Client{
		cfg:     cfg,
		baseURL: base,
		http:    &http.Client{},
		tokens:  NewMemoryTokenCache(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("carrier")
	return c, nil
}

// call performs one authenticated carrier operation and decodes its body into T.
func call[T any](ctx context.Context, c *Client, verb Verb, path string, query url.Values, body any) Result[T] {
	raw, failure := c.execute(ctx, verb, path, query, body)
	if failure != nil {
		return failed[T](failure)
	}
	var data T
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return failed[T](&Failure{
				Kind:    KindPermanent,
				Message: fmt.Sprintf("decode %s response: %v", path, err),
				Payload: raw,
			})
		}
	}
	return success(data)
}

// execute obtains a token, sends the request with retries and, on an auth rejection,
// refreshes the token and replays the request exactly once.
func (c *Client) execute(ctx context.Context, verb Verb, path string, query url.Values, body any) ([]byte, *Failure) {
	token, failure := c.token(ctx)
	if failure != nil {
		return nil, failure
	}

	raw, failure := c.sendWithRetry(ctx, verb, path, query, body, token)
	if failure == nil || failure.Kind != KindAuthentication {
		return raw, failure
	}

	c.logger.Info("carrier token rejected, re-authenticating",
		zap.String("path", path), zap.Int("status", failure.StatusCode))
	c.tokens.Invalidate(token)

	token, refreshFailure := c.token(ctx)
	if refreshFailure != nil {
		return nil, refreshFailure
	}
	return c.sendWithRetry(ctx, verb, path, query, body, token)
}

// token returns a valid bearer token. Concurrent callers that miss the cache share one
// login request.
func (c *Client) token(ctx context.Context) (string, *Failure) {
	if tok, ok := c.tokens.Get(); ok {
		return tok, nil
	}

	v, err, _ := c.flight.Do(c.cfg.Email, func() (any, error) {
		if tok, ok := c.tokens.Get(); ok {
			return tok, nil
		}
		// The login outlives any single caller's cancellation; other callers wait on it.
		tok, failure := c.login(context.WithoutCancel(ctx))
		if failure != nil {
			return "", failure
		}
		c.tokens.Set(tok, c.cfg.TokenTTL)
		return tok, nil
	})
	if err != nil {
		var failure *Failure
		if errors.As(err, &failure) {
			return "", failure
		}
		return "", &Failure{Kind: KindAuthentication, Message: err.Error()}
	}
	return v.(string), nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (c *Client) login(ctx context.Context) (string, *Failure) {
	c.logger.Info("carrier login", zap.String("account", c.cfg.Email))
	raw, failure := c.sendWithRetry(ctx, VerbPost, "auth/login", nil, loginRequest{Email: c.cfg.Email, Password: c.cfg.Password}, "")
	if failure != nil {
		if failure.Kind == KindPermanent {
			failure.Kind = KindAuthentication
		}
		c.logger.Error("carrier login failed", zap.String("kind", string(failure.Kind)), zap.String("message", failure.Message))
		return "", failure
	}
	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Token == "" {
		return "", &Failure{Kind: KindAuthentication, Message: "login response carried no token", Payload: raw}
	}
	return resp.Token, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.BaseBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0.2
	b.MaxInterval = 10 * c.cfg.BaseBackoff
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxAttempts-1)), ctx)
}

// sendWithRetry retries transient failures with bounded exponential backoff.
func (c *Client) sendWithRetry(ctx context.Context, verb Verb, path string, query url.Values, body any, token string) ([]byte, *Failure) {
	var (
		raw     []byte
		last    *Failure
		attempt int
	)
	op := func() error {
		attempt++
		r, failure := c.send(ctx, verb, path, query, body, token)
		if failure == nil {
			raw = r
			return nil
		}
		last = failure
		if failure.Kind == KindTransient {
			c.logger.Warn("carrier call failed, will retry",
				zap.String("method", verb.String()), zap.String("path", path),
				zap.Int("attempt", attempt), zap.String("message", failure.Message))
			return failure
		}
		return backoff.Permanent(failure)
	}

	if err := backoff.Retry(op, c.newBackOff(ctx)); err != nil {
		if last == nil {
			return nil, &Failure{Kind: KindTransient, Message: err.Error()}
		}
		return nil, last
	}
	return raw, nil
}

// send performs a single HTTP exchange bounded by the configured timeout.
func (c *Client) send(ctx context.Context, verb Verb, path string, query url.Values, body any, token string) ([]byte, *Failure) {
	method, ok := verbMethods[verb]
	if !ok {
		return nil, &Failure{Kind: KindPermanent, Message: fmt.Sprintf("unsupported verb %s", verb)}
	}

	target := c.baseURL.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &Failure{Kind: KindPermanent, Message: fmt.Sprintf("encode request: %v", err)}
		}
		reader = bytes.NewReader(payload)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, target.String(), reader)
	if err != nil {
		return nil, &Failure{Kind: KindPermanent, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Failure{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Failure{Kind: KindTransient, Message: fmt.Sprintf("read response: %v", err), StatusCode: resp.StatusCode}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &Failure{Kind: KindAuthentication, Message: errorMessage(raw, resp.Status), StatusCode: resp.StatusCode, Payload: raw}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &Failure{Kind: KindTransient, Message: errorMessage(raw, resp.Status), StatusCode: resp.StatusCode, Payload: raw}
	default:
		return nil, &Failure{Kind: KindPermanent, Message: errorMessage(raw, resp.Status), StatusCode: resp.StatusCode, Payload: raw}
	}
}

// errorMessage pulls the carrier's "message" field out of an error body.
func errorMessage(raw []byte, fallback string) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return fallback
}
