package webhook

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goliatone/go-topgg/core"
)

const (
	OutcomeDispatched   = "dispatched"
	OutcomeUnauthorized = "unauthorized"
	OutcomeMalformed    = "malformed"
)

type routerOptions struct {
	logger         core.Logger
	loggerProvider core.LoggerProvider
	metrics        core.MetricsRecorder
	maxBodyBytes   int64
}

type Option func(*routerOptions)

func WithLogger(logger core.Logger) Option {
	return func(o *routerOptions) {
		o.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(o *routerOptions) {
		o.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(o *routerOptions) {
		o.metrics = recorder
	}
}

// WithMaxBodyBytes bounds the request body. Values <= 0 keep the default.
func WithMaxBodyBytes(limit int64) Option {
	return func(o *routerOptions) {
		if limit > 0 {
			o.maxBodyBytes = limit
		}
	}
}

// Router is an http.Handler for vote deliveries. Its fields are fixed at
// construction and shared by every request.
type Router struct {
	auth         Authenticator
	handler      core.VoteHandler
	observer     core.Observer
	maxBodyBytes int64
}

func New(secret string, handler core.VoteHandler, options ...Option) (*Router, error) {
	if handler == nil {
		return nil, core.BadInput("webhook: vote handler is required", nil)
	}
	auth, err := NewAuthenticator(secret)
	if err != nil {
		return nil, err
	}
	settings := routerOptions{maxBodyBytes: core.DefaultMaxBodyBytes}
	for _, option := range options {
		if option != nil {
			option(&settings)
		}
	}
	return &Router{
		auth:         auth,
		handler:      handler,
		observer:     core.NewObserver("topgg.webhook", settings.loggerProvider, settings.logger, settings.metrics),
		maxBodyBytes: settings.maxBodyBytes,
	}, nil
}

// NewFromConfig builds a router from the webhook section of cfg.
func NewFromConfig(cfg core.Config, handler core.VoteHandler, options ...Option) (*Router, error) {
	options = append([]Option{WithMaxBodyBytes(cfg.Webhook.MaxBodyBytes)}, options...)
	return New(cfg.Webhook.Password, handler, options...)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if req.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := r.auth.Authenticate(req.Header); err != nil {
		r.reject(w, req, OutcomeUnauthorized, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, r.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		metadata := map[string]any{"stage": "read"}
		if errors.As(err, &tooLarge) {
			metadata["limit"] = tooLarge.Limit
		}
		r.reject(w, req, OutcomeMalformed, core.MalformedPayload(err, metadata))
		return
	}

	vote, err := DecodeVote(body)
	if err != nil {
		r.reject(w, req, OutcomeMalformed, err)
		return
	}

	started := time.Now()
	r.handler.Voted(ctx, vote)
	elapsed := time.Since(started)

	tags := map[string]string{"outcome": OutcomeDispatched, "type": string(vote.Type)}
	r.observer.Count(ctx, core.MetricWebhookRequests, tags)
	r.observer.Observe(ctx, core.MetricWebhookHandlerDuration, float64(elapsed.Microseconds())/1000, tags)
	r.observer.Debug(ctx, "webhook: vote dispatched", map[string]any{
		"target":      vote.Target().String(),
		"user":        vote.User.String(),
		"type":        string(vote.Type),
		"duration_ms": elapsed.Milliseconds(),
	})
	w.WriteHeader(http.StatusOK)
}

func (r *Router) reject(w http.ResponseWriter, req *http.Request, outcome string, err error) {
	ctx := req.Context()
	r.observer.Count(ctx, core.MetricWebhookRequests, map[string]string{"outcome": outcome})
	fields := map[string]any{
		"outcome": outcome,
		"remote":  req.RemoteAddr,
	}
	if mapped := core.MapError(err); mapped != nil {
		fields["error"] = mapped.Message
		fields["text_code"] = mapped.TextCode
	}
	r.observer.Warn(ctx, "webhook: request rejected", fields)
	w.WriteHeader(http.StatusUnauthorized)
}

var _ http.Handler = (*Router)(nil)
