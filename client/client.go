package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-topgg/core"
	"github.com/goliatone/go-topgg/ratelimit"
	"github.com/goliatone/go-topgg/snowflake"
	"github.com/goliatone/go-topgg/transport"
)

type clientOptions struct {
	baseURL        string
	timeout        time.Duration
	doer           transport.HTTPDoer
	logger         core.Logger
	loggerProvider core.LoggerProvider
	metrics        core.MetricsRecorder
	rateLimit      *ratelimit.Policy
	rateLimitSet   bool
}

type Option func(*clientOptions)

func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

func WithHTTPClient(doer transport.HTTPDoer) Option {
	return func(o *clientOptions) {
		o.doer = doer
	}
}

func WithLogger(logger core.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(o *clientOptions) {
		o.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(o *clientOptions) {
		o.metrics = recorder
	}
}

// WithRateLimitPolicy replaces the per-bucket throttle. A nil policy disables
// client side throttling.
func WithRateLimitPolicy(policy *ratelimit.Policy) Option {
	return func(o *clientOptions) {
		o.rateLimit = policy
		o.rateLimitSet = true
	}
}

// Client calls the listing API with a bot token. It is safe for concurrent
// use.
type Client struct {
	baseURL  string
	timeout  time.Duration
	rest     *transport.RESTAdapter
	limits   *ratelimit.Policy
	observer core.Observer
}

func New(token string, options ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, core.BadInput("client: api token is required", nil)
	}
	settings := clientOptions{
		baseURL: core.DefaultAPIBaseURL,
		timeout: core.DefaultAPITimeout * time.Second,
	}
	for _, option := range options {
		if option != nil {
			option(&settings)
		}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(settings.baseURL), "/")
	if baseURL == "" {
		baseURL = core.DefaultAPIBaseURL
	}

	if !settings.rateLimitSet {
		settings.rateLimit = ratelimit.NewPolicy(nil)
	}

	rest := transport.NewRESTAdapter(settings.doer)
	rest.DefaultHeaders["Authorization"] = token
	rest.DefaultHeaders["Accept"] = "application/json"

	return &Client{
		baseURL:  baseURL,
		timeout:  settings.timeout,
		rest:     rest,
		limits:   settings.rateLimit,
		observer: core.NewObserver("topgg.client", settings.loggerProvider, settings.logger, settings.metrics),
	}, nil
}

// NewFromConfig builds a client from the api section of cfg.
func NewFromConfig(cfg core.APIConfig, options ...Option) (*Client, error) {
	options = append([]Option{
		WithBaseURL(cfg.BaseURL),
		WithTimeout(cfg.Timeout()),
	}, options...)
	return New(cfg.Token, options...)
}

// GetUser fetches a user record. id may be any identifier shape accepted by
// snowflake.Resolve.
func (c *Client) GetUser(ctx context.Context, id any) (core.User, error) {
	target, err := snowflake.Resolve(id)
	if err != nil {
		return core.User{}, err
	}
	var user core.User
	err = c.getJSON(ctx, "get_user", "/users/"+target.String(), nil, &user)
	return user, err
}

func (c *Client) GetBot(ctx context.Context, id any) (core.Bot, error) {
	target, err := snowflake.Resolve(id)
	if err != nil {
		return core.Bot{}, err
	}
	var bot core.Bot
	err = c.getJSON(ctx, "get_bot", "/bots/"+target.String(), nil, &bot)
	return bot, err
}

// GetVoters returns one page of recent voters for the token's bot. Pages
// start at 1; lower values are treated as 1.
func (c *Client) GetVoters(ctx context.Context, page int) ([]core.Voter, error) {
	if page < 1 {
		page = 1
	}
	voters := []core.Voter{}
	err := c.getJSON(ctx, "get_voters", "/bots/votes", map[string]string{"page": strconv.Itoa(page)}, &voters)
	if err != nil {
		return nil, err
	}
	return voters, nil
}

type votedResponse struct {
	Voted int `json:"voted"`
}

// HasVoted reports whether user voted for the token's bot in the last 12 hours.
func (c *Client) HasVoted(ctx context.Context, user any) (bool, error) {
	voter, err := snowflake.Resolve(user)
	if err != nil {
		return false, err
	}
	var res votedResponse
	err = c.getJSON(ctx, "has_voted", "/bots/check", map[string]string{"userId": voter.String()}, &res)
	if err != nil {
		return false, err
	}
	return res.Voted != 0, nil
}

type statsRequest struct {
	ServerCount uint64 `json:"server_count"`
}

// PostStats publishes the bot's server count.
func (c *Client) PostStats(ctx context.Context, serverCount uint64) error {
	body, err := json.Marshal(statsRequest{ServerCount: serverCount})
	if err != nil {
		return core.Internal("client: encode stats", nil)
	}
	_, err = c.do(ctx, "post_stats", transport.Request{
		Method:  http.MethodPost,
		URL:     c.baseURL + "/bots/stats",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	return err
}

func (c *Client) getJSON(ctx context.Context, operation string, path string, query map[string]string, out any) error {
	res, err := c.do(ctx, operation, transport.Request{
		Method: http.MethodGet,
		URL:    c.baseURL + path,
		Query:  query,
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(res.Body, out); err != nil {
		return core.WrapError(
			err,
			goerrors.CategoryExternal,
			fmt.Sprintf("client: decode %s response", operation),
			http.StatusBadGateway,
			core.ErrorUpstreamFailed,
			map[string]any{"operation": operation},
		)
	}
	return nil
}

func (c *Client) do(ctx context.Context, operation string, req transport.Request) (transport.Response, error) {
	if c == nil || c.rest == nil {
		return transport.Response{}, core.Internal("client: client is not configured", nil)
	}
	bucket := ratelimit.BucketFor(strings.TrimPrefix(req.URL, c.baseURL))
	if err := c.limits.BeforeCall(ctx, bucket); err != nil {
		c.record(ctx, operation, "throttled")
		var throttled ratelimit.ThrottledError
		if errors.As(err, &throttled) {
			return transport.Response{}, throttled.ToError()
		}
		return transport.Response{}, err
	}

	req.Timeout = c.timeout
	res, err := c.rest.Do(ctx, req)
	if err != nil {
		c.record(ctx, operation, "error")
		c.observer.Warn(ctx, "client: request failed", map[string]any{
			"operation": operation,
			"error":     err.Error(),
		})
		return transport.Response{}, err
	}
	c.record(ctx, operation, strconv.Itoa(res.StatusCode))
	if err := c.limits.AfterCall(ctx, bucket, ratelimit.Response{
		StatusCode: res.StatusCode,
		Headers:    res.Headers,
		RetryAfter: retryAfterFromBody(res),
	}); err != nil {
		c.observer.Warn(ctx, "client: rate limit state not updated", map[string]any{
			"bucket": string(bucket),
			"error":  err.Error(),
		})
	}
	if res.OK() {
		c.observer.Debug(ctx, "client: request completed", map[string]any{
			"operation":   operation,
			"status_code": res.StatusCode,
			"duration_ms": res.Duration.Milliseconds(),
		})
		return res, nil
	}
	return transport.Response{}, statusError(operation, res)
}

// retryAfterFromBody reads the seconds hint sent in 429 bodies.
func retryAfterFromBody(res transport.Response) time.Duration {
	if res.StatusCode != http.StatusTooManyRequests || len(res.Body) == 0 {
		return 0
	}
	var body map[string]any
	if err := json.Unmarshal(res.Body, &body); err != nil {
		return 0
	}
	for _, key := range []string{"retry-after", "retry_after", "retryAfter"} {
		if seconds, ok := body[key].(float64); ok && seconds > 0 {
			return time.Duration(seconds * float64(time.Second))
		}
	}
	return 0
}

func (c *Client) record(ctx context.Context, operation string, status string) {
	c.observer.Count(ctx, core.MetricClientRequests, map[string]string{
		"operation": operation,
		"status":    status,
	})
}

func statusError(operation string, res transport.Response) error {
	metadata := map[string]any{
		"operation":   operation,
		"status_code": res.StatusCode,
	}
	switch res.StatusCode {
	case http.StatusNotFound:
		return core.NewError("client: resource not found", goerrors.CategoryNotFound, http.StatusNotFound, core.ErrorNotFound, metadata)
	case http.StatusTooManyRequests:
		if retry := strings.TrimSpace(res.Headers["Retry-After"]); retry != "" {
			metadata["retry_after"] = retry
		}
		return core.NewError("client: rate limited", goerrors.CategoryRateLimit, http.StatusTooManyRequests, core.ErrorRateLimited, metadata)
	default:
		return core.NewError(
			fmt.Sprintf("client: upstream returned %d", res.StatusCode),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			core.ErrorUpstreamFailed,
			metadata,
		)
	}
}
