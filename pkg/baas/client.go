// Package baas is a thin client for the hosted backend: a GoTrue style
// auth API under /auth/v1 and a PostgREST style data API under /rest/v1.
package baas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/etp-gateway/pkg/config"
	"github.com/noah-isme/etp-gateway/pkg/middleware/requestid"
)

// ErrNoRows is returned when a single-row read or write matched nothing.
var ErrNoRows = errors.New("baas: no rows")

// Error is a failure reported by the backend. Message is the backend's own text.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend responded with status %d", e.Status)
}

// Observer receives the latency of every backend call.
type Observer func(operation string, duration time.Duration)

// Client talks to the hosted backend.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	logger   *zap.Logger
	observer Observer
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithObserver registers a latency observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New builds a Client for the configured backend.
func New(cfg config.BaaSConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.AnonKey,
		http:    &http.Client{Timeout: timeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type accessTokenKey struct{}

// WithAccessToken scopes data calls made with ctx to the user's token so
// row level security applies.
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessToken returns the user token carried by ctx, if any.
func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}

type request struct {
	operation string
	method    string
	path      string
	body      interface{}
	bearer    string
	headers   map[string]string
}

func (c *Client) do(ctx context.Context, req request, dest interface{}) (int, error) {
	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return 0, fmt.Errorf("encode %s payload: %w", req.operation, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return 0, fmt.Errorf("build %s request: %w", req.operation, err)
	}
	httpReq.Header.Set("apikey", c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	bearer := req.bearer
	if bearer == "" {
		bearer = c.apiKey
	}
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}
	if id := requestid.FromContext(ctx); id != "" {
		httpReq.Header.Set("X-Request-ID", id)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if c.observer != nil {
		c.observer(req.operation, time.Since(start))
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", req.operation, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read %s response: %w", req.operation, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := decodeError(resp.StatusCode, raw)
		c.logger.Debug("backend call failed",
			zap.String("operation", req.operation),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Code),
			zap.String("message", apiErr.Message),
		)
		if apiErr.Code == "PGRST116" {
			return resp.StatusCode, ErrNoRows
		}
		return resp.StatusCode, apiErr
	}

	if dest != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, dest); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s response: %w", req.operation, err)
		}
	}
	return resp.StatusCode, nil
}

// decodeError understands both PostgREST ({code,message,details}) and
// GoTrue ({error,error_description} or {code,msg}) bodies.
func decodeError(status int, raw []byte) *Error {
	var body struct {
		Code             json.RawMessage `json:"code"`
		ErrorCode        string          `json:"error_code"`
		Message          string          `json:"message"`
		Msg              string          `json:"msg"`
		Error            string          `json:"error"`
		ErrorDescription string          `json:"error_description"`
		Details          string          `json:"details"`
	}
	apiErr := &Error{Status: status}
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}

	var code string
	if len(body.Code) > 0 {
		if err := json.Unmarshal(body.Code, &code); err != nil {
			code = string(body.Code)
		}
	}
	for _, candidate := range []string{body.ErrorCode, code, body.Error} {
		if candidate != "" {
			apiErr.Code = candidate
			break
		}
	}
	for _, candidate := range []string{body.Message, body.Msg, body.ErrorDescription, body.Error} {
		if candidate != "" {
			apiErr.Message = candidate
			break
		}
	}
	apiErr.Details = body.Details
	return apiErr
}
