// Package dashboard holds the presentation state of the weather dashboard: the
// last good snapshot, the current phase, the user-visible error and the list of
// recently queried cities.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/lox/skycast/internal/history"
	"github.com/lox/skycast/internal/metrics"
	"github.com/lox/skycast/internal/models"
	"github.com/lox/skycast/internal/provider"
)

var (
	// ErrInvalidInput is returned for an empty or whitespace-only city. The
	// provider is not called and the state is left untouched.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBusy is returned when a resolution is already in flight. The request
	// is dropped, not queued.
	ErrBusy = errors.New("resolution already in progress")

	// ErrLocationUnavailable is returned for coordinates that cannot describe
	// a position on Earth.
	ErrLocationUnavailable = errors.New("location unavailable")
)

// User-visible messages.
const (
	MsgStationUnreachable  = "Station unreachable. Showing last known conditions."
	MsgLocationUnavailable = "Location unavailable"
	MsgLocationDenied      = "Location access denied"
	MsgGeolocationInactive = "Geolocation inactive"
)

// DefaultCity is resolved by Start when no other city is configured.
const DefaultCity = "Beijing"

// HistoryStore loads and persists the recent-city list.
type HistoryStore interface {
	Load(ctx context.Context) []history.Entry
	Persist(ctx context.Context, entries []history.Entry) error
}

// Journal receives one record per resolution attempt.
type Journal interface {
	RecordResolution(ctx context.Context, r models.Resolution) error
}

type Option func(*Dashboard)

// WithClock replaces time.Now for history timestamps and state updates.
func WithClock(now func() time.Time) Option {
	return func(d *Dashboard) {
		d.now = now
	}
}

// WithJournal records every resolution attempt.
func WithJournal(j Journal) Option {
	return func(d *Dashboard) {
		d.journal = j
	}
}

// WithDefaultCity sets the city resolved by Start.
func WithDefaultCity(city string) Option {
	return func(d *Dashboard) {
		if c := strings.TrimSpace(city); c != "" {
			d.defaultCity = c
		}
	}
}

// request is the last successful resolution, replayed by Refresh.
type request struct {
	kind     string
	city     string
	lat, lon float64
}

type Dashboard struct {
	provider    provider.DataProvider
	history     HistoryStore
	journal     Journal
	now         func() time.Time
	defaultCity string

	mu    sync.Mutex
	state State
	last  *request
}

func New(p provider.DataProvider, hs HistoryStore, opts ...Option) *Dashboard {
	d := &Dashboard{
		provider:    p,
		history:     hs,
		now:         time.Now,
		defaultCity: DefaultCity,
		state: State{
			Phase:   PhaseIdle,
			History: []history.Entry{},
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start loads the persisted history and resolves the default city. A failed
// resolution leaves the dashboard in PhaseFailed and is returned for logging.
func (d *Dashboard) Start(ctx context.Context) error {
	n := d.LoadHistory(ctx)
	log.Printf("dashboard: loaded %d history entries, resolving %s", n, d.defaultCity)
	return d.RequestByCity(ctx, d.defaultCity)
}

// LoadHistory replaces the in-memory history with the persisted list and
// returns its length. Call it before the first request so a new entry does
// not overwrite what was stored.
func (d *Dashboard) LoadHistory(ctx context.Context) int {
	entries := d.history.Load(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.History = entries
	d.state.UpdatedAt = d.now()
	return len(entries)
}

// State returns a copy of the current state. The snapshot is shared but never
// mutated once published.
func (d *Dashboard) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.clone()
}

// History returns a copy of the recent-city list, most recent first.
func (d *Dashboard) History() []history.Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]history.Entry{}, d.state.History...)
}

// RequestByCity resolves a city name. On success the city is recorded in the
// history and persisted before the state becomes Loaded.
func (d *Dashboard) RequestByCity(ctx context.Context, name string) error {
	city := strings.TrimSpace(name)
	if city == "" {
		metrics.RequestsDropped.WithLabelValues("invalid").Inc()
		return ErrInvalidInput
	}
	if !d.begin(city) {
		metrics.RequestsDropped.WithLabelValues("busy").Inc()
		return ErrBusy
	}

	started := d.now()
	snap, err := d.provider.ResolveByCity(ctx, city)
	d.record(ctx, models.KindCity, city, started, snap, err)
	if err != nil {
		log.Printf("dashboard: resolve %q: %v", city, err)
		d.fail(MsgStationUnreachable)
		return fmt.Errorf("resolve %q: %w", city, err)
	}

	d.mu.Lock()
	entries := history.Record(d.state.History, snap.Current.City, d.now())
	d.mu.Unlock()

	if err := d.history.Persist(ctx, entries); err != nil {
		metrics.HistoryPersistErrors.Inc()
		log.Printf("dashboard: persist history: %v", err)
	}

	d.mu.Lock()
	d.state.History = entries
	d.last = &request{kind: models.KindCity, city: city}
	d.loaded(snap)
	d.mu.Unlock()
	return nil
}

// RequestByCoordinates resolves a device position. It never touches the
// history: the label of a coordinate lookup is not a city the user typed.
func (d *Dashboard) RequestByCoordinates(ctx context.Context, lat, lon float64) error {
	if !validCoordinates(lat, lon) {
		d.ReportLocationUnavailable(MsgLocationUnavailable)
		return fmt.Errorf("%w: %v, %v", ErrLocationUnavailable, lat, lon)
	}

	query := provider.FormatCoordinates(lat, lon)
	if !d.begin(query) {
		metrics.RequestsDropped.WithLabelValues("busy").Inc()
		return ErrBusy
	}

	started := d.now()
	snap, err := d.provider.ResolveByCoordinates(ctx, lat, lon)
	d.record(ctx, models.KindCoordinates, query, started, snap, err)
	if err != nil {
		log.Printf("dashboard: resolve %s: %v", query, err)
		d.fail(MsgStationUnreachable)
		return fmt.Errorf("resolve %s: %w", query, err)
	}

	d.mu.Lock()
	d.last = &request{kind: models.KindCoordinates, lat: lat, lon: lon}
	d.loaded(snap)
	d.mu.Unlock()
	return nil
}

// ReportLocationUnavailable records that the device could not supply a
// position. The previous snapshot stays visible. Ignored while loading.
func (d *Dashboard) ReportLocationUnavailable(message string) {
	if message == "" {
		message = MsgLocationUnavailable
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Phase == PhaseLoading {
		metrics.RequestsDropped.WithLabelValues("busy").Inc()
		return
	}
	d.state.Phase = PhaseFailed
	d.state.Error = message
	d.state.UpdatedAt = d.now()
}

// Refresh repeats the last successful request, or resolves the default city
// when nothing has loaded yet. It passes through the same loading gate as a
// user request.
func (d *Dashboard) Refresh(ctx context.Context) error {
	d.mu.Lock()
	last := d.last
	d.mu.Unlock()

	if last == nil {
		return d.RequestByCity(ctx, d.defaultCity)
	}
	if last.kind == models.KindCoordinates {
		return d.RequestByCoordinates(ctx, last.lat, last.lon)
	}
	return d.RequestByCity(ctx, last.city)
}

// begin enters PhaseLoading unless a resolution is already running.
func (d *Dashboard) begin(query string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Phase == PhaseLoading {
		return false
	}
	d.state.Phase = PhaseLoading
	d.state.Query = query
	d.state.UpdatedAt = d.now()
	return true
}

// loaded publishes a snapshot. Callers hold d.mu.
func (d *Dashboard) loaded(snap *models.Snapshot) {
	d.state.Phase = PhaseLoaded
	d.state.Snapshot = snap
	d.state.Error = ""
	d.state.Query = ""
	d.state.UpdatedAt = d.now()
}

func (d *Dashboard) fail(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Phase = PhaseFailed
	d.state.Error = message
	d.state.Query = ""
	d.state.UpdatedAt = d.now()
}

func (d *Dashboard) record(ctx context.Context, kind, query string, started time.Time, snap *models.Snapshot, err error) {
	if d.journal == nil {
		return
	}

	r := models.Resolution{
		StartedAt: started,
		Kind:      kind,
		Query:     query,
		Provider:  d.provider.Name(),
		Success:   err == nil,
		Latency:   d.now().Sub(started),
	}
	if err != nil {
		r.ErrorMessage = err.Error()
	} else {
		r.City = snap.Current.City
		r.Condition = snap.Current.Condition
	}

	if err := d.journal.RecordResolution(ctx, r); err != nil {
		log.Printf("dashboard: journal %s %q: %v", kind, query, err)
	}
}

func validCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
