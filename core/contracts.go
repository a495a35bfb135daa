package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// VoteHandler receives decoded vote deliveries. Voted is awaited before the
// webhook acknowledges the request, so slow handlers extend request latency.
type VoteHandler interface {
	Voted(ctx context.Context, vote Vote)
}

type VoteHandlerFunc func(ctx context.Context, vote Vote)

func (f VoteHandlerFunc) Voted(ctx context.Context, vote Vote) {
	if f == nil {
		return
	}
	f(ctx, vote)
}

// VoteHandlers fans a vote out to each handler in order. Nil entries are
// skipped.
type VoteHandlers []VoteHandler

func (h VoteHandlers) Voted(ctx context.Context, vote Vote) {
	for _, handler := range h {
		if handler != nil {
			handler.Voted(ctx, vote)
		}
	}
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

var (
	_ VoteHandler = VoteHandlerFunc(nil)
	_ VoteHandler = VoteHandlers(nil)
)
