package sqlstore

import (
	"context"

	"github.com/goliatone/go-topgg/core"
)

type VoteRecordWriter interface {
	Record(ctx context.Context, vote core.Vote) (VoteRecord, error)
}

// Recorder is a core.VoteHandler that persists every vote. Write failures
// are logged; the webhook still acknowledges the delivery.
type Recorder struct {
	store    VoteRecordWriter
	observer core.Observer
}

func NewRecorder(store VoteRecordWriter, logger core.Logger, metrics core.MetricsRecorder) *Recorder {
	return &Recorder{
		store:    store,
		observer: core.NewObserver("topgg.store", nil, logger, metrics),
	}
}

func (r *Recorder) Voted(ctx context.Context, vote core.Vote) {
	if r == nil || r.store == nil {
		return
	}
	record, err := r.store.Record(ctx, vote)
	if err != nil {
		r.observer.Count(ctx, "topgg.store.record", map[string]string{"outcome": "error"})
		r.observer.Error(ctx, "sqlstore: record vote failed", map[string]any{
			"target": vote.Target().String(),
			"user":   vote.User.String(),
			"error":  err.Error(),
		})
		return
	}
	r.observer.Count(ctx, "topgg.store.record", map[string]string{"outcome": "stored"})
	r.observer.Debug(ctx, "sqlstore: vote recorded", map[string]any{
		"id":     record.ID,
		"target": vote.Target().String(),
	})
}

var _ core.VoteHandler = (*Recorder)(nil)
