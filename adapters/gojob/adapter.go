package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	"github.com/goliatone/go-topgg/core"
	"github.com/goliatone/go-topgg/snowflake"
)

const (
	JobIDVote      = "topgg.vote"
	VoteScriptPath = "topgg.vote.process"
)

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// ToExecutionMessage encodes vote as a go-job message. Ids travel as decimal
// strings. Votes carry no idempotency key: every delivery is a new job.
func ToExecutionMessage(vote core.Vote) *job.ExecutionMessage {
	params := map[string]any{
		"user":       vote.User.String(),
		"type":       string(vote.Type),
		"is_weekend": vote.IsWeekend,
		"query":      vote.Query,
	}
	if vote.IsGuild() {
		params["guild"] = vote.Guild.String()
	} else {
		params["bot"] = vote.Bot.String()
	}
	return &job.ExecutionMessage{
		JobID:      JobIDVote,
		ScriptPath: VoteScriptPath,
		Parameters: params,
	}
}

// VoteFromExecutionMessage decodes a message produced by ToExecutionMessage.
func VoteFromExecutionMessage(msg *job.ExecutionMessage) (core.Vote, error) {
	if msg == nil {
		return core.Vote{}, fmt.Errorf("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDVote {
		return core.Vote{}, fmt.Errorf("gojob: unexpected job id %q", msg.JobID)
	}
	params := msg.Parameters
	user, err := snowflake.Resolve(params["user"])
	if err != nil {
		return core.Vote{}, err
	}
	vote := core.Vote{User: user}
	switch {
	case params["bot"] != nil:
		if vote.Bot, err = snowflake.Resolve(params["bot"]); err != nil {
			return core.Vote{}, err
		}
	case params["guild"] != nil:
		if vote.Guild, err = snowflake.Resolve(params["guild"]); err != nil {
			return core.Vote{}, err
		}
	default:
		return core.Vote{}, fmt.Errorf("gojob: vote target is required")
	}
	if value, ok := params["type"].(string); ok {
		vote.Type = core.VoteType(value)
	}
	if value, ok := params["is_weekend"].(bool); ok {
		vote.IsWeekend = value
	}
	if value, ok := params["query"].(string); ok {
		vote.Query = value
	}
	return vote, nil
}

// Handler is a core.VoteHandler that enqueues each vote. The webhook answers
// once the job is queued, so slow processing happens off the request path.
type Handler struct {
	enqueuer queue.Enqueuer
	observer core.Observer
}

func NewHandler(enqueuer queue.Enqueuer, logger core.Logger, metrics core.MetricsRecorder) *Handler {
	return &Handler{
		enqueuer: enqueuer,
		observer: core.NewObserver("topgg.gojob", nil, logger, metrics),
	}
}

func (h *Handler) Voted(ctx context.Context, vote core.Vote) {
	if h == nil || h.enqueuer == nil {
		return
	}
	if err := h.enqueuer.Enqueue(ctx, ToExecutionMessage(vote)); err != nil {
		h.observer.Count(ctx, "topgg.gojob.enqueue", map[string]string{"outcome": "error"})
		h.observer.Error(ctx, "gojob: enqueue vote failed", map[string]any{
			"target": vote.Target().String(),
			"user":   vote.User.String(),
			"error":  err.Error(),
		})
		return
	}
	h.observer.Count(ctx, "topgg.gojob.enqueue", map[string]string{"outcome": "ok"})
}

// Processor runs queued votes through a handler on the worker side.
type Processor struct {
	handler core.VoteHandler
	policy  RetryPolicy
}

func NewProcessor(handler core.VoteHandler, policy RetryPolicy) *Processor {
	return &Processor{handler: handler, policy: policy}
}

// Process acks deliveries that decode and reach the handler. Messages that
// cannot be decoded are dead lettered since retrying cannot fix them.
func (p *Processor) Process(ctx context.Context, delivery queue.Delivery, attempt int) error {
	if p == nil || p.handler == nil {
		return fmt.Errorf("gojob: processor is not configured")
	}
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}
	vote, err := VoteFromExecutionMessage(delivery.Message())
	if err != nil {
		nack := p.policy.NormalizeAttempt(queue.NackOptions{
			DeadLetter: true,
			Reason:     err.Error(),
		}, attempt)
		if nackErr := delivery.Nack(ctx, nack); nackErr != nil {
			return nackErr
		}
		return err
	}
	p.handler.Voted(ctx, vote)
	return delivery.Ack(ctx)
}

// WorkerHook logs go-job worker lifecycle events for vote jobs.
type WorkerHook struct {
	observer core.Observer
}

func NewWorkerHook(logger core.Logger, metrics core.MetricsRecorder) *WorkerHook {
	return &WorkerHook{observer: core.NewObserver("topgg.gojob.worker", nil, logger, metrics)}
}

func (h *WorkerHook) OnStart(ctx context.Context, event worker.Event) {
	h.observer.Debug(ctx, "gojob: vote job started", eventFields(event))
}

func (h *WorkerHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.observer.Count(ctx, "topgg.gojob.jobs", map[string]string{"outcome": "success"})
	h.observer.Observe(ctx, "topgg.gojob.job_duration_ms", float64(event.Duration.Milliseconds()), nil)
}

func (h *WorkerHook) OnFailure(ctx context.Context, event worker.Event) {
	h.observer.Count(ctx, "topgg.gojob.jobs", map[string]string{"outcome": "failure"})
	h.observer.Error(ctx, "gojob: vote job failed", eventFields(event))
}

func (h *WorkerHook) OnRetry(ctx context.Context, event worker.Event) {
	h.observer.Count(ctx, "topgg.gojob.jobs", map[string]string{"outcome": "retry"})
	h.observer.Warn(ctx, "gojob: vote job retrying", eventFields(event))
}

func eventFields(event worker.Event) map[string]any {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	fields := map[string]any{
		"attempt":     event.Attempt,
		"delay_ms":    event.Delay.Milliseconds(),
		"duration_ms": event.Duration.Milliseconds(),
	}
	if message != nil {
		fields["job_id"] = message.JobID
	}
	if event.Err != nil {
		fields["error"] = event.Err.Error()
	}
	return fields
}

var (
	_ core.VoteHandler = (*Handler)(nil)
	_ worker.Hook      = (*WorkerHook)(nil)
)
