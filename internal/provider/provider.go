// Package provider turns a city name or a pair of coordinates into a weather
// snapshot.
package provider

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/lox/skycast/internal/models"
)

// ErrUpstreamUnreachable is the single failure kind every provider reports:
// transport errors, bad status codes, unparseable or invalid payloads.
var ErrUpstreamUnreachable = errors.New("upstream unreachable")

// DataProvider resolves locations into snapshots. Callers trim and validate
// city names; providers do not.
type DataProvider interface {
	Name() string
	ResolveByCity(ctx context.Context, city string) (*models.Snapshot, error)
	ResolveByCoordinates(ctx context.Context, lat, lon float64) (*models.Snapshot, error)
}

func unreachable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUpstreamUnreachable, fmt.Sprintf(format, args...))
}

// finish normalises and validates a freshly built snapshot.
func finish(s *models.Snapshot) (*models.Snapshot, error) {
	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, unreachable("%v", err)
	}
	return s, nil
}

// FormatCoordinates renders a position as "36.79°S, 146.98°E".
func FormatCoordinates(lat, lon float64) string {
	ns, ew := "N", "E"
	if lat < 0 {
		ns = "S"
	}
	if lon < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%.2f°%s, %.2f°%s", math.Abs(lat), ns, math.Abs(lon), ew)
}
