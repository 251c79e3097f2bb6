package provider

import (
	"context"
	"time"

	"github.com/lox/skycast/internal/metrics"
	"github.com/lox/skycast/internal/models"
)

// Instrumented records call counts and latency for the wrapped provider.
type Instrumented struct {
	provider DataProvider
}

func NewInstrumented(provider DataProvider) *Instrumented {
	return &Instrumented{provider: provider}
}

func (i *Instrumented) Name() string {
	return i.provider.Name()
}

func (i *Instrumented) ResolveByCity(ctx context.Context, city string) (*models.Snapshot, error) {
	start := time.Now()
	snap, err := i.provider.ResolveByCity(ctx, city)
	i.observe(models.KindCity, start, err)
	return snap, err
}

func (i *Instrumented) ResolveByCoordinates(ctx context.Context, lat, lon float64) (*models.Snapshot, error) {
	start := time.Now()
	snap, err := i.provider.ResolveByCoordinates(ctx, lat, lon)
	i.observe(models.KindCoordinates, start, err)
	return snap, err
}

func (i *Instrumented) observe(kind string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	name := i.provider.Name()
	metrics.ResolutionsTotal.WithLabelValues(name, kind, status).Inc()
	metrics.ResolutionLatency.WithLabelValues(name, kind).Observe(time.Since(start).Seconds())
}
