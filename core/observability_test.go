package core

import (
	"context"
	"testing"
)

func TestObserverLogsStructuredFields(t *testing.T) {
	logger := newCaptureLogger()
	observer := NewObserver("webhook", stubLoggerProvider{logger: logger}, nil, nil)

	observer.Warn(context.Background(), "vote rejected", map[string]any{"outcome": "unauthorized"})

	records := logger.snapshot()
	if len(records) != 1 {
		t.Fatalf("expected one log record, got %d", len(records))
	}
	if records[0].level != "warn" || records[0].msg != "vote rejected" {
		t.Fatalf("unexpected record %#v", records[0])
	}
	if records[0].fields["outcome"] != "unauthorized" {
		t.Fatalf("expected outcome field, got %#v", records[0].fields)
	}
}

func TestObserverRecordsMetrics(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	observer := NewObserver("webhook", nil, nil, metrics)

	tags := map[string]string{"outcome": "dispatched"}
	observer.Count(context.Background(), MetricWebhookRequests, tags)
	observer.Observe(context.Background(), MetricWebhookHandlerDuration, 12.5, tags)
	tags["outcome"] = "mutated"

	if len(metrics.counters) != 1 || metrics.counters[0].name != MetricWebhookRequests {
		t.Fatalf("expected webhook request counter, got %#v", metrics.counters)
	}
	if metrics.counters[0].tags["outcome"] != "dispatched" {
		t.Fatalf("expected tags to be copied, got %#v", metrics.counters[0].tags)
	}
	if len(metrics.histograms) != 1 || metrics.histograms[0].value != 12.5 {
		t.Fatalf("expected handler duration histogram, got %#v", metrics.histograms)
	}
}

func TestZeroObserverIsSilent(t *testing.T) {
	var observer Observer
	observer.Info(context.Background(), "ignored", nil)
	observer.Count(context.Background(), MetricWebhookRequests, nil)
}
