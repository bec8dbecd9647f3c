package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/me/expensectl/internal/logging"
)

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 10 << 20

// TokenSource supplies the bearer credential for outgoing requests.
// An empty token means the request goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// Client is the single gateway to the expense API. Every call returns an
// Envelope; transport errors, non-2xx statuses and undecodable bodies all
// come back as a Failure rather than a Go error.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
	instrument bool

	mu     sync.RWMutex
	tokens TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithInstrumentation wraps the transport with OpenTelemetry HTTP client
// instrumentation. Spans go to the global tracer provider.
func WithInstrumentation() Option {
	return func(c *Client) { c.instrument = true }
}

// NewClient creates an API client targeting baseURL.
func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Discard()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger.With("component", "api"),
		userAgent:  "expensectl",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.instrument {
		base := c.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		wrapped := *c.httpClient
		wrapped.Transport = otelhttp.NewTransport(base)
		c.httpClient = &wrapped
	}
	return c
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// UseTokens sets the source of the bearer credential.
func (c *Client) UseTokens(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// Get performs a GET request and decodes the JSON response into T.
func Get[T any](ctx context.Context, c *Client, path string) Envelope[T] {
	return do[T](ctx, c, http.MethodGet, path, nil, "")
}

// Post sends body as JSON and decodes the response into T.
func Post[T any](ctx context.Context, c *Client, path string, body any) Envelope[T] {
	return doJSON[T](ctx, c, http.MethodPost, path, body)
}

// Put sends body as JSON and decodes the response into T.
func Put[T any](ctx context.Context, c *Client, path string, body any) Envelope[T] {
	return doJSON[T](ctx, c, http.MethodPut, path, body)
}

// UploadFile posts form as multipart/form-data and decodes the response into T.
func UploadFile[T any](ctx context.Context, c *Client, path string, form *Form) Envelope[T] {
	body, contentType, err := form.encode()
	if err != nil {
		return failure[T](&Failure{Kind: NetworkFailure, Message: "prepare upload: " + err.Error(), Err: err})
	}
	return do[T](ctx, c, http.MethodPost, path, body, contentType)
}

func doJSON[T any](ctx context.Context, c *Client, method, path string, body any) Envelope[T] {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return failure[T](&Failure{Kind: NetworkFailure, Message: "encode request: " + err.Error(), Err: err})
		}
		reader = bytes.NewReader(data)
	}
	return do[T](ctx, c, method, path, reader, "application/json")
}

func do[T any](ctx context.Context, c *Client, method, path string, body io.Reader, contentType string) Envelope[T] {
	status, respBody, f := c.send(ctx, method, path, body, contentType)
	if f != nil {
		return failure[T](f)
	}
	return decode[T](status, respBody)
}

// send performs one HTTP exchange. A non-nil Failure means no usable 2xx
// response was obtained.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string) (int, []byte, *Failure) {
	url := c.url(path)
	reqID := "req_" + uuid.New().String()[:8]
	logger := c.logger.With("method", method, "url", url, "request_id", reqID)

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, &Failure{Kind: NetworkFailure, Message: "create request: " + err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", reqID)
	if body != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	logger.Debug("HTTP request")
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug("HTTP request failed", "error", err)
		return 0, nil, &Failure{Kind: NetworkFailure, Message: "Network error: " + err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, &Failure{Kind: NetworkFailure, Status: resp.StatusCode, Message: "read response: " + err.Error(), Err: err}
	}

	logger.Debug("HTTP response", "status", resp.StatusCode, "bytes", len(respBody), "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, respBody, &Failure{
			Kind:    RejectedRequest,
			Status:  resp.StatusCode,
			Message: rejectionMessage(resp.StatusCode, respBody),
		}
	}
	return resp.StatusCode, respBody, nil
}

func decode[T any](status int, body []byte) Envelope[T] {
	var v T
	if status == http.StatusNoContent {
		return success(&v)
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return failure[T](&Failure{Kind: MalformedResponse, Status: status, Message: "malformed response: empty body"})
	}
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return failure[T](&Failure{
			Kind:    MalformedResponse,
			Status:  status,
			Message: fmt.Sprintf("malformed response (status %d): %v", status, err),
			Err:     err,
		})
	}
	return success(&v)
}

// errorBody is the backend's error shape: detail is either a string or a
// list of validation errors.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type validationError struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// rejectionMessage extracts the human-readable reason from an error body.
func rejectionMessage(status int, body []byte) string {
	fallback := fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return fallback
	}

	var detail string
	if err := json.Unmarshal(eb.Detail, &detail); err == nil {
		if detail == "" {
			return fallback
		}
		return detail
	}

	var list []validationError
	if err := json.Unmarshal(eb.Detail, &list); err == nil && len(list) > 0 {
		msgs := make([]string, 0, len(list))
		for _, ve := range list {
			msgs = append(msgs, formatValidation(ve))
		}
		return strings.Join(msgs, "; ")
	}
	return fallback
}

// formatValidation renders {"loc":["body","amount"],"msg":"Field required"}
// as "amount: Field required".
func formatValidation(ve validationError) string {
	if len(ve.Loc) == 0 {
		return ve.Msg
	}
	field := fmt.Sprint(ve.Loc[len(ve.Loc)-1])
	return field + ": " + ve.Msg
}
