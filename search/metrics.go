package search

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics counts cache outcomes per entity type. A nil *Metrics disables
// recording.
type Metrics struct {
	hits     metric.Int64Counter
	misses   metric.Int64Counter
	bypassed metric.Int64Counter
}

// NewMetrics registers the search-cache instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	hits, err := meter.Int64Counter(
		"shop.search.cache.hits",
		metric.WithDescription("Autocomplete lookups served from the cache"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}
	misses, err := meter.Int64Counter(
		"shop.search.cache.misses",
		metric.WithDescription("Autocomplete lookups that queried the backing store"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}
	bypassed, err := meter.Int64Counter(
		"shop.search.cache.bypassed",
		metric.WithDescription("Lookups served uncached because the coordinator was unavailable"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}
	return &Metrics{hits: hits, misses: misses, bypassed: bypassed}, nil
}

func (m *Metrics) hit(ctx context.Context, entity string) {
	if m == nil {
		return
	}
	m.hits.Add(ctx, 1, metric.WithAttributes(attribute.String("entity", entity)))
}

func (m *Metrics) miss(ctx context.Context, entity string) {
	if m == nil {
		return
	}
	m.misses.Add(ctx, 1, metric.WithAttributes(attribute.String("entity", entity)))
}

func (m *Metrics) bypass(ctx context.Context, entity string) {
	if m == nil {
		return
	}
	m.bypassed.Add(ctx, 1, metric.WithAttributes(attribute.String("entity", entity)))
}

// BacklogReporter exposes a coordinator's identity and queued mutation
// count, the surface external tooling observes for liveness.
type BacklogReporter interface {
	Name() string
	Backlog() int
}

// RegisterBacklogGauge publishes each reporter's mutation backlog as an
// observable gauge keyed by coordinator name.
func RegisterBacklogGauge(meter metric.Meter, reporters ...BacklogReporter) error {
	gauge, err := meter.Int64ObservableGauge(
		"shop.search.cache.backlog",
		metric.WithDescription("Queued, not-yet-applied cache mutations per coordinator"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for _, r := range reporters {
			o.ObserveInt64(gauge, int64(r.Backlog()),
				metric.WithAttributes(attribute.String("coordinator", r.Name())))
		}
		return nil
	}, gauge)
	return err
}
