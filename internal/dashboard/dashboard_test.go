package dashboard_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lox/skycast/internal/dashboard"
	"github.com/lox/skycast/internal/history"
	"github.com/lox/skycast/internal/models"
	"github.com/lox/skycast/internal/provider"
	"github.com/lox/skycast/internal/store"
)

var testNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return testNow }

// fakeProvider delegates to a seeded mock. When gate is set it signals entered
// and blocks until release is closed.
type fakeProvider struct {
	mock *provider.Mock

	mu    sync.Mutex
	calls int
	err   error

	entered chan struct{}
	release chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		mock: provider.NewMock(0, time.UTC, provider.WithSeed(1), provider.WithClock(clock)),
	}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) enter() error {
	f.mu.Lock()
	f.calls++
	err := f.err
	entered, release := f.entered, f.release
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-release
	}
	return err
}

func (f *fakeProvider) ResolveByCity(ctx context.Context, city string) (*models.Snapshot, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	return f.mock.ResolveByCity(ctx, city)
}

func (f *fakeProvider) ResolveByCoordinates(ctx context.Context, lat, lon float64) (*models.Snapshot, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	return f.mock.ResolveByCoordinates(ctx, lat, lon)
}

func (f *fakeProvider) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type hookSlot struct {
	*store.Memory
	setErr error
	onSet  func()
}

func (s *hookSlot) Set(ctx context.Context, key string, value []byte) error {
	if s.onSet != nil {
		s.onSet()
	}
	if s.setErr != nil {
		return s.setErr
	}
	return s.Memory.Set(ctx, key, value)
}

type memJournal struct {
	mu      sync.Mutex
	records []models.Resolution
}

func (j *memJournal) RecordResolution(ctx context.Context, r models.Resolution) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, r)
	return nil
}

func setupDashboard(t *testing.T, opts ...dashboard.Option) (*dashboard.Dashboard, *fakeProvider, *hookSlot) {
	t.Helper()
	p := newFakeProvider()
	slot := &hookSlot{Memory: store.NewMemory()}
	opts = append([]dashboard.Option{dashboard.WithClock(clock)}, opts...)
	return dashboard.New(p, history.NewStore(slot), opts...), p, slot
}

func historyCities(entries []history.Entry) []string {
	cities := make([]string, len(entries))
	for i, e := range entries {
		cities[i] = e.City
	}
	return cities
}

func TestRequestByCity_EmptyInputIsNoOp(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "   ", "\t\n"} {
		d, p, _ := setupDashboard(t)
		before := d.State()

		err := d.RequestByCity(context.Background(), input)
		if !errors.Is(err, dashboard.ErrInvalidInput) {
			t.Errorf("RequestByCity(%q) = %v, want ErrInvalidInput", input, err)
		}
		if p.callCount() != 0 {
			t.Errorf("RequestByCity(%q) called the provider", input)
		}
		after := d.State()
		if after.Phase != before.Phase || after.Error != before.Error || after.Snapshot != before.Snapshot {
			t.Errorf("RequestByCity(%q) changed state: %+v -> %+v", input, before, after)
		}
	}
}

func TestRequestByCity_Success(t *testing.T) {
	t.Parallel()
	d, p, slot := setupDashboard(t)

	if err := d.RequestByCity(context.Background(), "  tokyo "); err != nil {
		t.Fatalf("RequestByCity: %v", err)
	}

	st := d.State()
	if st.Phase != dashboard.PhaseLoaded {
		t.Fatalf("Phase = %s, want loaded", st.Phase)
	}
	if st.Error != "" {
		t.Errorf("Error = %q, want empty", st.Error)
	}
	if st.Snapshot == nil || st.Snapshot.Current.City != "Tokyo" {
		t.Fatalf("Snapshot = %+v, want Tokyo", st.Snapshot)
	}
	if p.callCount() != 1 {
		t.Errorf("calls = %d, want 1", p.callCount())
	}

	raw, err := slot.Get(context.Background(), history.Key)
	if err != nil {
		t.Fatalf("slot not written: %v", err)
	}
	var persisted []history.Entry
	if err := json.Unmarshal(raw, &persisted); err != nil {
		t.Fatalf("persisted history: %v", err)
	}
	if len(persisted) != 1 || persisted[0].City != "Tokyo" || persisted[0].Timestamp != testNow.UnixMilli() {
		t.Errorf("persisted = %+v", persisted)
	}
}

func TestRequestByCity_DropsWhileLoading(t *testing.T) {
	t.Parallel()
	d, p, _ := setupDashboard(t)
	p.entered = make(chan struct{})
	p.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- d.RequestByCity(context.Background(), "Paris")
	}()
	<-p.entered

	if st := d.State(); !st.Loading() || st.Query != "Paris" {
		t.Fatalf("state = %+v, want loading Paris", st)
	}
	if err := d.RequestByCity(context.Background(), "Oslo"); !errors.Is(err, dashboard.ErrBusy) {
		t.Errorf("second RequestByCity = %v, want ErrBusy", err)
	}
	if err := d.RequestByCoordinates(context.Background(), 10, 10); !errors.Is(err, dashboard.ErrBusy) {
		t.Errorf("RequestByCoordinates = %v, want ErrBusy", err)
	}
	d.ReportLocationUnavailable(dashboard.MsgLocationDenied)
	if st := d.State(); !st.Loading() {
		t.Errorf("ReportLocationUnavailable while loading changed phase to %s", st.Phase)
	}

	close(p.release)
	if err := <-done; err != nil {
		t.Fatalf("first RequestByCity: %v", err)
	}

	if p.callCount() != 1 {
		t.Errorf("provider calls = %d, want 1", p.callCount())
	}
	if got := historyCities(d.History()); len(got) != 1 || got[0] != "Paris" {
		t.Errorf("history = %v, want [Paris]", got)
	}
}

func TestRequestByCity_FailureKeepsLastSnapshot(t *testing.T) {
	t.Parallel()
	d, p, _ := setupDashboard(t)
	ctx := context.Background()

	if err := d.RequestByCity(ctx, "Lima"); err != nil {
		t.Fatalf("RequestByCity: %v", err)
	}
	good := d.State().Snapshot

	p.setErr(provider.ErrUpstreamUnreachable)
	err := d.RequestByCity(ctx, "Quito")
	if !errors.Is(err, provider.ErrUpstreamUnreachable) {
		t.Fatalf("err = %v, want ErrUpstreamUnreachable", err)
	}

	st := d.State()
	if st.Phase != dashboard.PhaseFailed {
		t.Errorf("Phase = %s, want failed", st.Phase)
	}
	if st.Error != dashboard.MsgStationUnreachable {
		t.Errorf("Error = %q", st.Error)
	}
	if st.Snapshot != good || st.Snapshot.Current.City != "Lima" {
		t.Errorf("snapshot replaced on failure: %+v", st.Snapshot)
	}
	if got := historyCities(st.History); len(got) != 1 || got[0] != "Lima" {
		t.Errorf("history = %v, failed query must not be recorded", got)
	}

	p.setErr(nil)
	if err := d.RequestByCity(ctx, "Quito"); err != nil {
		t.Fatalf("recovery: %v", err)
	}
	if st := d.State(); st.Phase != dashboard.PhaseLoaded || st.Error != "" {
		t.Errorf("after recovery state = %s %q", st.Phase, st.Error)
	}
}

func TestRequestByCity_FailureWithNoPriorSnapshot(t *testing.T) {
	t.Parallel()
	d, p, _ := setupDashboard(t)
	p.setErr(provider.ErrUpstreamUnreachable)

	d.RequestByCity(context.Background(), "Oslo")

	st := d.State()
	if st.Phase != dashboard.PhaseFailed || st.Snapshot != nil {
		t.Errorf("state = %s snapshot=%v, want failed with no snapshot", st.Phase, st.Snapshot)
	}
}

func TestRequestByCity_CaseInsensitiveHistory(t *testing.T) {
	t.Parallel()
	d, _, _ := setupDashboard(t)
	ctx := context.Background()

	for _, q := range []string{"Tokyo", "tokyo", "TOKYO"} {
		if err := d.RequestByCity(ctx, q); err != nil {
			t.Fatalf("RequestByCity(%q): %v", q, err)
		}
	}

	got := d.History()
	if len(got) != 1 {
		t.Fatalf("history = %v, want a single entry", historyCities(got))
	}
	if !strings.EqualFold(got[0].City, "tokyo") {
		t.Errorf("entry = %q", got[0].City)
	}
}

func TestRequestByCity_HistoryCapAndOrder(t *testing.T) {
	t.Parallel()
	d, _, _ := setupDashboard(t)
	ctx := context.Background()

	for _, c := range []string{"Oslo", "Lima", "Rome", "Cairo", "Delhi", "Seoul", "Lima"} {
		if err := d.RequestByCity(ctx, c); err != nil {
			t.Fatalf("RequestByCity(%q): %v", c, err)
		}
	}

	want := []string{"Lima", "Seoul", "Delhi", "Cairo", "Rome"}
	got := historyCities(d.History())
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("history = %v, want %v", got, want)
	}
}

func TestRequestByCity_PersistsBeforeLoaded(t *testing.T) {
	t.Parallel()
	var d *dashboard.Dashboard
	var phaseAtPersist dashboard.Phase
	var snapshotAtPersist *models.Snapshot

	d, _, slot := setupDashboard(t)
	slot.onSet = func() {
		st := d.State()
		phaseAtPersist = st.Phase
		snapshotAtPersist = st.Snapshot
	}

	if err := d.RequestByCity(context.Background(), "Berlin"); err != nil {
		t.Fatalf("RequestByCity: %v", err)
	}
	if phaseAtPersist != dashboard.PhaseLoading {
		t.Errorf("phase at persist = %s, want loading", phaseAtPersist)
	}
	if snapshotAtPersist != nil {
		t.Error("snapshot was visible before history was persisted")
	}
}

func TestRequestByCity_PersistFailureStillLoads(t *testing.T) {
	t.Parallel()
	d, _, slot := setupDashboard(t)
	slot.setErr = errors.New("disk full")

	if err := d.RequestByCity(context.Background(), "Madrid"); err != nil {
		t.Fatalf("RequestByCity: %v", err)
	}
	st := d.State()
	if st.Phase != dashboard.PhaseLoaded {
		t.Errorf("Phase = %s, want loaded", st.Phase)
	}
	if got := historyCities(st.History); len(got) != 1 || got[0] != "Madrid" {
		t.Errorf("history = %v, want [Madrid] in memory", got)
	}
}

func TestRequestByCoordinates(t *testing.T) {
	t.Parallel()
	d, p, slot := setupDashboard(t)

	if err := d.RequestByCoordinates(context.Background(), -36.794, 146.977); err != nil {
		t.Fatalf("RequestByCoordinates: %v", err)
	}
	st := d.State()
	if st.Phase != dashboard.PhaseLoaded {
		t.Fatalf("Phase = %s, want loaded", st.Phase)
	}
	if st.Snapshot.Current.City != "36.79°S, 146.98°E" {
		t.Errorf("City = %q", st.Snapshot.Current.City)
	}
	if len(st.History) != 0 {
		t.Errorf("history = %v, coordinates must not be recorded", historyCities(st.History))
	}
	if _, err := slot.Get(context.Background(), history.Key); !errors.Is(err, history.ErrSlotEmpty) {
		t.Errorf("slot written by coordinate lookup: %v", err)
	}
	if p.callCount() != 1 {
		t.Errorf("calls = %d, want 1", p.callCount())
	}
}

func TestRequestByCoordinates_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		lat, lon float64
	}{
		{"nan latitude", math.NaN(), 0},
		{"nan longitude", 0, math.NaN()},
		{"latitude too large", 91, 0},
		{"longitude too small", 0, -181},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, p, _ := setupDashboard(t)
			err := d.RequestByCoordinates(context.Background(), tt.lat, tt.lon)
			if !errors.Is(err, dashboard.ErrLocationUnavailable) {
				t.Fatalf("err = %v, want ErrLocationUnavailable", err)
			}
			if p.callCount() != 0 {
				t.Error("provider called for invalid coordinates")
			}
			st := d.State()
			if st.Phase != dashboard.PhaseFailed || st.Error != dashboard.MsgLocationUnavailable {
				t.Errorf("state = %s %q", st.Phase, st.Error)
			}
		})
	}
}

func TestReportLocationUnavailable_KeepsSnapshot(t *testing.T) {
	t.Parallel()
	d, _, _ := setupDashboard(t)

	if err := d.RequestByCity(context.Background(), "Hobart"); err != nil {
		t.Fatal(err)
	}
	d.ReportLocationUnavailable(dashboard.MsgLocationDenied)

	st := d.State()
	if st.Phase != dashboard.PhaseFailed || st.Error != dashboard.MsgLocationDenied {
		t.Errorf("state = %s %q", st.Phase, st.Error)
	}
	if st.Snapshot == nil || st.Snapshot.Current.City != "Hobart" {
		t.Error("snapshot dropped")
	}

	d.ReportLocationUnavailable("")
	if got := d.State().Error; got != dashboard.MsgLocationUnavailable {
		t.Errorf("Error = %q, want default message", got)
	}
}

func TestStart_ResolvesDefaultCity(t *testing.T) {
	t.Parallel()
	d, _, _ := setupDashboard(t)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	st := d.State()
	if st.Phase != dashboard.PhaseLoaded {
		t.Fatalf("Phase = %s, want loaded", st.Phase)
	}
	snap := st.Snapshot
	if snap.Current.City != "Beijing" {
		t.Errorf("City = %q, want Beijing", snap.Current.City)
	}
	if len(snap.Forecast) != models.ForecastDays {
		t.Errorf("len(Forecast) = %d, want %d", len(snap.Forecast), models.ForecastDays)
	}
	if err := snap.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	c := snap.Current
	if c.TempMin > c.Temp || c.Temp > c.TempMax {
		t.Errorf("temps out of order: %v <= %v <= %v", c.TempMin, c.Temp, c.TempMax)
	}
	if got := historyCities(st.History); len(got) != 1 || got[0] != "Beijing" {
		t.Errorf("history = %v, want [Beijing]", got)
	}
}

func TestStart_LoadsPersistedHistory(t *testing.T) {
	t.Parallel()
	d, _, slot := setupDashboard(t, dashboard.WithDefaultCity("Oslo"))

	prior := []history.Entry{
		{ID: "a", City: "Paris", Timestamp: 1},
		{ID: "b", City: "oslo", Timestamp: 2},
	}
	raw, _ := json.Marshal(prior)
	slot.Memory.Set(context.Background(), history.Key, raw)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	want := []string{"Oslo", "Paris"}
	if got := historyCities(d.History()); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("history = %v, want %v", got, want)
	}
}

func TestStart_CorruptHistoryIsEmpty(t *testing.T) {
	t.Parallel()
	d, _, slot := setupDashboard(t)
	slot.Memory.Set(context.Background(), history.Key, []byte("{not json"))

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := historyCities(d.History()); len(got) != 1 || got[0] != "Beijing" {
		t.Errorf("history = %v, want [Beijing]", got)
	}
}

func TestRefresh_ReplaysLastRequest(t *testing.T) {
	t.Parallel()
	d, p, _ := setupDashboard(t)
	ctx := context.Background()

	if err := d.Refresh(ctx); err != nil {
		t.Fatalf("Refresh before any request: %v", err)
	}
	if got := d.State().Snapshot.Current.City; got != "Beijing" {
		t.Errorf("first refresh resolved %q, want Beijing", got)
	}

	if err := d.RequestByCoordinates(ctx, 51.5, -0.12); err != nil {
		t.Fatal(err)
	}
	if err := d.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := d.State().Snapshot.Current.City; got != "51.50°N, 0.12°W" {
		t.Errorf("refresh resolved %q, want the coordinates", got)
	}
	if p.callCount() != 3 {
		t.Errorf("calls = %d, want 3", p.callCount())
	}
	if len(d.History()) != 1 {
		t.Errorf("history = %v", historyCities(d.History()))
	}
}

func TestJournal_RecordsAttempts(t *testing.T) {
	t.Parallel()
	j := &memJournal{}
	d, p, _ := setupDashboard(t, dashboard.WithJournal(j))
	ctx := context.Background()

	d.RequestByCity(ctx, "Perth")
	p.setErr(provider.ErrUpstreamUnreachable)
	d.RequestByCoordinates(ctx, 1, 2)
	d.RequestByCity(ctx, " ")

	if len(j.records) != 2 {
		t.Fatalf("records = %d, want 2", len(j.records))
	}
	ok, failed := j.records[0], j.records[1]
	if !ok.Success || ok.Kind != models.KindCity || ok.Query != "Perth" || ok.City != "Perth" || ok.Provider != "fake" {
		t.Errorf("success record = %+v", ok)
	}
	if !ok.Condition.Valid() {
		t.Errorf("condition = %q", ok.Condition)
	}
	if failed.Success || failed.Kind != models.KindCoordinates || !strings.Contains(failed.ErrorMessage, "upstream unreachable") {
		t.Errorf("failure record = %+v", failed)
	}
}

func TestState_ReturnsCopy(t *testing.T) {
	t.Parallel()
	d, _, _ := setupDashboard(t)
	d.RequestByCity(context.Background(), "Nairobi")

	st := d.State()
	st.History[0].City = "mutated"
	if d.History()[0].City != "Nairobi" {
		t.Error("State exposed internal history slice")
	}
}

func TestPhaseString(t *testing.T) {
	tests := map[dashboard.Phase]string{
		dashboard.PhaseIdle:    "idle",
		dashboard.PhaseLoading: "loading",
		dashboard.PhaseLoaded:  "loaded",
		dashboard.PhaseFailed:  "failed",
		dashboard.Phase(9):     "phase(9)",
	}
	for p, want := range tests {
		if got := p.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(p), got, want)
		}
	}
}
