package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	m "github.com/SanAntonik/MRS/models"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mrs_api_requests_total",
		Help: "Outbound catalog API requests by operation and outcome.",
	}, []string{"operation", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mrs_api_request_duration_seconds",
		Help:    "Outbound catalog API request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// TokenSource provides the bearer token for authenticated calls. An empty
// string means no token is attached.
type TokenSource interface {
	Token() string
}

// CatalogService is the remote API surface the console consumes. Handlers
// depend on this interface so tests can substitute a mock.
type CatalogService interface {
	ListItems(ctx context.Context, skip, limit int) (m.ItemCollection, error)
	GetItem(ctx context.Context, id int) (m.Item, error)
	CreateItem(ctx context.Context, in m.ItemCreate) (m.Item, error)
	UpdateItem(ctx context.Context, id int, in m.ItemUpdate) (m.Item, error)
	DeleteItem(ctx context.Context, id int) (m.Message, error)
	FindItemByTitle(ctx context.Context, inputTitle string) (m.Item, error)
	Recommend(ctx context.Context, inputTitle string) (m.ItemCollection, error)
	RegisterUser(ctx context.Context, in m.UserRegister) (m.User, error)
	Login(ctx context.Context, username, password string) (m.AuthToken, error)
	CurrentUser(ctx context.Context) (m.User, error)
}

// APIError is the structured failure of any call: the HTTP status plus the
// decoded "detail" body. Transport failures use status 0. Business failures
// (no match, permission denied) travel the same channel and are only
// distinguished by Status and Detail.
type APIError struct {
	Status    int
	Detail    m.ErrorDetail
	RequestID string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api request failed: %s", e.Detail.String())
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Detail.String())
}

// NotFound reports whether the failure is the 404 specialization.
func (e *APIError) NotFound() bool { return e.Status == http.StatusNotFound }

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.NotFound()
}

// Client talks to the catalog backend. All methods are safe for concurrent
// use; cancellation and timeouts come from the caller's context plus the
// transport timeout.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  zerolog.Logger
}

// New builds a Client for the given base URL (e.g. "http://localhost:8000").
// The "/api/v1" prefix is appended here so call sites use resource paths only.
func New(baseURL string, tokens TokenSource, logger zerolog.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "catalog-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
		limiter: rate.NewLimiter(20, 40),
		breaker: breaker,
		logger:  logger.With().Str("component", "client").Logger(),
	}
}

func (c *Client) ListItems(ctx context.Context, skip, limit int) (m.ItemCollection, error) {
	if limit <= 0 {
		limit = 100
	}
	query := url.Values{}
	query.Set("skip", fmt.Sprint(skip))
	query.Set("limit", fmt.Sprint(limit))

	var out m.ItemCollection
	err := c.do(ctx, "ListItems", http.MethodGet, "/items/?"+query.Encode(), nil, &out)
	return out, err
}

func (c *Client) GetItem(ctx context.Context, id int) (m.Item, error) {
	var out m.Item
	err := c.do(ctx, "GetItem", http.MethodGet, fmt.Sprintf("/items/%d", id), nil, &out)
	return out, err
}

func (c *Client) CreateItem(ctx context.Context, in m.ItemCreate) (m.Item, error) {
	var out m.Item
	err := c.do(ctx, "CreateItem", http.MethodPost, "/items/", in, &out)
	return out, err
}

func (c *Client) UpdateItem(ctx context.Context, id int, in m.ItemUpdate) (m.Item, error) {
	var out m.Item
	err := c.do(ctx, "UpdateItem", http.MethodPut, fmt.Sprintf("/items/%d", id), in, &out)
	return out, err
}

func (c *Client) DeleteItem(ctx context.Context, id int) (m.Message, error) {
	var out m.Message
	err := c.do(ctx, "DeleteItem", http.MethodDelete, fmt.Sprintf("/items/%d", id), nil, &out)
	return out, err
}

// FindItemByTitle resolves free text to the single best-matching item. A
// miss comes back as an APIError with status 404.
func (c *Client) FindItemByTitle(ctx context.Context, inputTitle string) (m.Item, error) {
	var out m.Item
	err := c.do(ctx, "FindItemByTitle", http.MethodGet, "/items/str/"+url.PathEscape(inputTitle), nil, &out)
	return out, err
}

// Recommend fetches titles similar to the raw input text. The backend keys
// the similarity search on the text itself, not on a resolved item id.
func (c *Client) Recommend(ctx context.Context, inputTitle string) (m.ItemCollection, error) {
	var out m.ItemCollection
	err := c.do(ctx, "Recommend", http.MethodGet, "/items/recommender/"+url.PathEscape(inputTitle), nil, &out)
	return out, err
}

func (c *Client) RegisterUser(ctx context.Context, in m.UserRegister) (m.User, error) {
	var out m.User
	err := c.do(ctx, "RegisterUser", http.MethodPost, "/users/signup", in, &out)
	return out, err
}

// Login exchanges credentials for a bearer token. The endpoint expects a
// form-encoded body, unlike the rest of the API.
func (c *Client) Login(ctx context.Context, username, password string) (m.AuthToken, error) {
	form := url.Values{}
	form.Set("grant_type", "")
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login/access-token", strings.NewReader(form.Encode()))
	if err != nil {
		return m.AuthToken{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out m.AuthToken
	if err := c.send("Login", req, &out); err != nil {
		return m.AuthToken{}, err
	}
	return out, nil
}

func (c *Client) CurrentUser(ctx context.Context) (m.User, error) {
	var out m.User
	err := c.do(ctx, "CurrentUser", http.MethodGet, "/users/me", nil, &out)
	return out, err
}

// do performs a JSON request against path and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, op, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(op, req, out)
}

// send executes a prepared request through the rate limiter and circuit
// breaker, converting every failure into *APIError.
func (c *Client) send(op string, req *http.Request, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return &APIError{Detail: m.ErrorDetail{Plain: err.Error()}}
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	var status int
	respBody, err := c.breaker.Execute(func() ([]byte, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		status = resp.StatusCode
		// Server-side failures count against the breaker; business
		// failures (4xx) do not.
		if status >= http.StatusInternalServerError {
			return data, &APIError{Status: status, Detail: decodeDetail(data), RequestID: requestID}
		}
		return data, nil
	})
	requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		requestsTotal.WithLabelValues(op, "error").Inc()
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn().Str("operation", op).Str("request_id", requestID).Int("status", apiErr.Status).Msg("api call failed")
			return apiErr
		}
		c.logger.Warn().Str("operation", op).Str("request_id", requestID).Err(err).Msg("api call failed")
		return &APIError{Detail: m.ErrorDetail{Plain: err.Error()}, RequestID: requestID}
	}

	if status >= http.StatusBadRequest {
		requestsTotal.WithLabelValues(op, "error").Inc()
		apiErr := &APIError{Status: status, Detail: decodeDetail(respBody), RequestID: requestID}
		c.logger.Warn().Str("operation", op).Str("request_id", requestID).Int("status", status).Msg("api call failed")
		return apiErr
	}

	requestsTotal.WithLabelValues(op, "ok").Inc()
	c.logger.Debug().Str("operation", op).Str("request_id", requestID).Int("status", status).Msg("api call ok")

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &APIError{Status: status, Detail: m.ErrorDetail{Plain: "malformed response: " + err.Error()}, RequestID: requestID}
	}
	return nil
}

func decodeDetail(body []byte) m.ErrorDetail {
	var env m.ErrorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && (env.Detail.Plain != "" || env.Detail.Fields != nil) {
		return env.Detail
	}
	return m.ErrorDetail{Plain: strings.TrimSpace(string(body))}
}
