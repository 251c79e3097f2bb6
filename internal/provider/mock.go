package provider

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/lox/skycast/internal/forecast"
	"github.com/lox/skycast/internal/models"
)

// DefaultMockDelay mimics a round trip to a real weather service.
const DefaultMockDelay = 800 * time.Millisecond

// Mock fabricates plausible snapshots from a random source. It does not
// reverse-geocode: coordinate lookups are labelled with the coordinates
// themselves.
type Mock struct {
	delay time.Duration
	loc   *time.Location
	now   func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

type MockOption func(*Mock)

// WithSeed makes the generator deterministic.
func WithSeed(seed uint64) MockOption {
	return func(m *Mock) {
		m.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithClock replaces time.Now for timestamps and day labels.
func WithClock(now func() time.Time) MockOption {
	return func(m *Mock) {
		m.now = now
	}
}

func NewMock(delay time.Duration, loc *time.Location, opts ...MockOption) *Mock {
	if loc == nil {
		loc = time.UTC
	}
	m := &Mock{
		delay: delay,
		loc:   loc,
		now:   time.Now,
		rng:   rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mock) Name() string {
	return "mock"
}

func (m *Mock) ResolveByCity(ctx context.Context, city string) (*models.Snapshot, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return finish(m.generate(capitalize(city)))
}

func (m *Mock) ResolveByCoordinates(ctx context.Context, lat, lon float64) (*models.Snapshot, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return finish(m.generate(FormatCoordinates(lat, lon)))
}

func (m *Mock) wait(ctx context.Context) error {
	if m.delay <= 0 {
		if err := ctx.Err(); err != nil {
			return unreachable("%v", err)
		}
		return nil
	}
	timer := time.NewTimer(m.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return unreachable("%v", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (m *Mock) generate(city string) *models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().In(m.loc)
	condition := m.condition()
	base := float64(m.rng.IntN(30) + 5)

	days := make([]models.ForecastDay, models.ForecastDays)
	for i := range days {
		days[i] = models.ForecastDay{
			Date:      now.AddDate(0, 0, i).Format("Mon"),
			TempMin:   base - float64(m.rng.IntN(5)),
			TempMax:   base + float64(m.rng.IntN(5)),
			Condition: m.condition(),
		}
	}

	return &models.Snapshot{
		Current: models.CurrentConditions{
			City:        city,
			Temp:        base,
			FeelsLike:   base + 2,
			TempMin:     base - 3,
			TempMax:     base + 4,
			Humidity:    m.rng.IntN(40) + 40,
			WindSpeed:   float64(m.rng.IntN(15) + 2),
			Condition:   condition,
			Description: "Scattered " + strings.ToLower(string(condition)),
			Timestamp:   now,
		},
		Forecast: days,
	}
}

func (m *Mock) condition() forecast.Condition {
	return forecast.AllConditions[m.rng.IntN(len(forecast.AllConditions))]
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
