package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	"github.com/goliatone/go-topgg/core"
)

const VoteMessageType = "topgg.vote.received"

// VoteMessage carries one vote through the go-command dispatcher.
type VoteMessage struct {
	Vote core.Vote
}

func (VoteMessage) Type() string { return VoteMessageType }

func (m VoteMessage) Validate() error {
	if m.Vote.User.IsZero() {
		return fmt.Errorf("gocommand: vote user is required")
	}
	if m.Vote.Target().IsZero() {
		return fmt.Errorf("gocommand: vote target is required")
	}
	return nil
}

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

// AddQueueResolver mirrors registered commands into a go-job queue registry
// so votes can also be processed out of band.
func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

// RegisterAndSubscribe registers cmd and subscribes it to the dispatcher. The
// subscription is released when registration fails.
func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// SubscribeVotes subscribes fn to VoteMessage dispatches.
func SubscribeVotes(fn func(ctx context.Context, vote core.Vote) error, runnerOpts ...runner.Option) commanddispatcher.Subscription {
	handler := command.CommandFunc[VoteMessage](func(ctx context.Context, msg VoteMessage) error {
		return fn(ctx, msg.Vote)
	})
	return commanddispatcher.SubscribeCommand(handler, runnerOpts...)
}

// Handler is a core.VoteHandler that dispatches each vote as a VoteMessage.
// Dispatch errors are logged because the webhook acknowledges regardless.
type Handler struct {
	observer core.Observer
}

func NewHandler(logger core.Logger, metrics core.MetricsRecorder) *Handler {
	return &Handler{observer: core.NewObserver("topgg.gocommand", nil, logger, metrics)}
}

func (h *Handler) Voted(ctx context.Context, vote core.Vote) {
	msg := VoteMessage{Vote: vote}
	if err := ValidateMessageContract(msg); err != nil {
		h.fail(ctx, vote, err)
		return
	}
	if err := commanddispatcher.Dispatch(ctx, msg); err != nil {
		h.fail(ctx, vote, err)
		return
	}
	h.observer.Count(ctx, "topgg.gocommand.dispatch", map[string]string{"outcome": "ok"})
}

func (h *Handler) fail(ctx context.Context, vote core.Vote, err error) {
	h.observer.Count(ctx, "topgg.gocommand.dispatch", map[string]string{"outcome": "error"})
	h.observer.Error(ctx, "gocommand: dispatch vote failed", map[string]any{
		"target": vote.Target().String(),
		"user":   vote.User.String(),
		"error":  err.Error(),
	})
}

var _ core.VoteHandler = (*Handler)(nil)
