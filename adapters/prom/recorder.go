package prom

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-topgg/core"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultLabels fixes the label set of the metrics emitted by this module so
// every series of a metric carries the same label names.
var DefaultLabels = map[string][]string{
	core.MetricWebhookRequests:        {"outcome", "type"},
	core.MetricWebhookHandlerDuration: {"outcome", "type"},
	core.MetricClientRequests:         {"operation", "status"},
}

var DefaultBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}

type Option func(*Recorder)

// WithLabels declares the label names of a metric. Tags outside the set are
// dropped and missing tags are recorded as empty strings.
func WithLabels(metric string, labels ...string) Option {
	return func(r *Recorder) {
		r.labels[strings.TrimSpace(metric)] = append([]string(nil), labels...)
	}
}

func WithBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = append([]float64(nil), buckets...)
		}
	}
}

// WithNamespace overrides the leading segment stripped from metric names.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		r.namespace = sanitize(namespace)
	}
}

// Recorder implements core.MetricsRecorder on top of prometheus vectors.
// Vectors are created on first use and registered with the registerer.
type Recorder struct {
	registerer prometheus.Registerer
	namespace  string
	buckets    []float64
	labels     map[string][]string

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

func NewRecorder(registerer prometheus.Registerer, opts ...Option) *Recorder {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		registerer: registerer,
		namespace:  core.DefaultServiceName,
		buckets:    DefaultBuckets,
		labels:     make(map[string][]string, len(DefaultLabels)),
		counters:   map[string]*prometheus.CounterVec{},
		histograms: map[string]*prometheus.HistogramVec{},
	}
	for metric, labels := range DefaultLabels {
		r.labels[metric] = labels
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value < 0 {
		return
	}
	vec, labels := r.counter(name, tags)
	if vec == nil {
		return
	}
	vec.With(labelValues(labels, tags)).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	vec, labels := r.histogram(name, tags)
	if vec == nil {
		return
	}
	vec.With(labelValues(labels, tags)).Observe(value)
}

func (r *Recorder) counter(name string, tags map[string]string) (*prometheus.CounterVec, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	labels := r.labelsFor(name, tags)
	if vec, ok := r.counters[name]; ok {
		return vec, labels
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      r.metricName(name) + "_total",
		Help:      "Counter " + name + ".",
	}, labels)
	if err := r.registerer.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, nil
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, nil
		}
		vec = existing
	}
	r.counters[name] = vec
	return vec, labels
}

func (r *Recorder) histogram(name string, tags map[string]string) (*prometheus.HistogramVec, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	labels := r.labelsFor(name, tags)
	if vec, ok := r.histograms[name]; ok {
		return vec, labels
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      r.metricName(name),
		Help:      "Histogram " + name + ".",
		Buckets:   r.buckets,
	}, labels)
	if err := r.registerer.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, nil
		}
		existing, ok := already.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, nil
		}
		vec = existing
	}
	r.histograms[name] = vec
	return vec, labels
}

// labelsFor returns the declared labels of a metric, or freezes the sorted
// tag keys of the first observation. Callers hold r.mu.
func (r *Recorder) labelsFor(name string, tags map[string]string) []string {
	if labels, ok := r.labels[name]; ok {
		return labels
	}
	labels := make([]string, 0, len(tags))
	for key := range tags {
		if label := sanitize(key); label != "" {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	r.labels[name] = labels
	return labels
}

func (r *Recorder) metricName(name string) string {
	cleaned := sanitize(name)
	if r.namespace != "" {
		cleaned = strings.TrimPrefix(cleaned, r.namespace+"_")
	}
	return cleaned
}

func labelValues(labels []string, tags map[string]string) prometheus.Labels {
	values := make(prometheus.Labels, len(labels))
	for _, label := range labels {
		values[label] = ""
	}
	for key, value := range tags {
		label := sanitize(key)
		if _, ok := values[label]; ok {
			values[label] = value
		}
	}
	return values
}

// sanitize maps a dotted metric or tag name onto the prometheus charset.
func sanitize(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	b.Grow(len(name))
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

var _ core.MetricsRecorder = (*Recorder)(nil)
