package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lox/skycast/internal/metrics"
	"github.com/lox/skycast/internal/models"
)

type stubProvider struct {
	name  string
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) ResolveByCity(ctx context.Context, city string) (*models.Snapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.Snapshot{Current: models.CurrentConditions{City: city}}, nil
}

func (s *stubProvider) ResolveByCoordinates(ctx context.Context, lat, lon float64) (*models.Snapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.Snapshot{Current: models.CurrentConditions{City: FormatCoordinates(lat, lon)}}, nil
}

func TestRateLimited_PassesThrough(t *testing.T) {
	stub := &stubProvider{name: "stub"}
	p := NewRateLimited(stub, 100, 2)

	if p.Name() != "stub" {
		t.Errorf("Name = %q, want stub", p.Name())
	}
	snap, err := p.ResolveByCity(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("ResolveByCity: %v", err)
	}
	if snap.Current.City != "Paris" {
		t.Errorf("City = %q", snap.Current.City)
	}
	if _, err := p.ResolveByCoordinates(context.Background(), 1, 2); err != nil {
		t.Fatalf("ResolveByCoordinates: %v", err)
	}
	if stub.calls != 2 {
		t.Errorf("calls = %d, want 2", stub.calls)
	}
}

func TestRateLimited_ExhaustedBucketFailsWithDeadline(t *testing.T) {
	stub := &stubProvider{name: "stub"}
	p := NewRateLimited(stub, 1.0/3600, 1)

	if _, err := p.ResolveByCity(context.Background(), "Paris"); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.ResolveByCity(ctx, "Paris")
	if !errors.Is(err, ErrUpstreamUnreachable) {
		t.Fatalf("err = %v, want ErrUpstreamUnreachable", err)
	}
	if stub.calls != 1 {
		t.Errorf("calls = %d, want 1", stub.calls)
	}
}

func TestInstrumented_CountsOutcomes(t *testing.T) {
	ok := metrics.ResolutionsTotal.WithLabelValues("instrumented-test", models.KindCity, "ok")
	failed := metrics.ResolutionsTotal.WithLabelValues("instrumented-test", models.KindCoordinates, "error")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	stub := &stubProvider{name: "instrumented-test"}
	p := NewInstrumented(stub)

	if _, err := p.ResolveByCity(context.Background(), "Oslo"); err != nil {
		t.Fatalf("ResolveByCity: %v", err)
	}
	stub.err = unreachable("down")
	if _, err := p.ResolveByCoordinates(context.Background(), 1, 2); !errors.Is(err, ErrUpstreamUnreachable) {
		t.Fatalf("err = %v, want ErrUpstreamUnreachable", err)
	}

	if got := testutil.ToFloat64(ok) - okBefore; got != 1 {
		t.Errorf("ok delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(failed) - failedBefore; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
}
