package provider

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/lox/skycast/internal/models"
)

// RateLimited wraps a DataProvider with a token-bucket limiter so a busy
// dashboard stays inside the upstream's quota.
type RateLimited struct {
	provider DataProvider
	limiter  *rate.Limiter
}

// NewRateLimited allows rps resolutions per second with the given burst.
// rps may be fractional, e.g. 1.0/60 for one call a minute.
func NewRateLimited(provider DataProvider, rps float64, burst int) *RateLimited {
	return &RateLimited{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *RateLimited) Name() string {
	return r.provider.Name()
}

func (r *RateLimited) ResolveByCity(ctx context.Context, city string) (*models.Snapshot, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, unreachable("rate limit wait: %v", err)
	}
	return r.provider.ResolveByCity(ctx, city)
}

func (r *RateLimited) ResolveByCoordinates(ctx context.Context, lat, lon float64) (*models.Snapshot, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, unreachable("rate limit wait: %v", err)
	}
	return r.provider.ResolveByCoordinates(ctx, lat, lon)
}
