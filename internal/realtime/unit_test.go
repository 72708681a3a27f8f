package realtime

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/clickpulse/internal/audit"
	"github.com/xela07ax/clickpulse/internal/connectors"
	"github.com/xela07ax/clickpulse/internal/domain"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type reply struct {
	env *connectors.Envelope
	err error
}

type call struct {
	endpoint string
	query    url.Values
	ctx      context.Context
	reply    chan reply
}

// fakeTransport либо отвечает сразу через auto, либо отдаёт вызов тесту через incoming.
type fakeTransport struct {
	auto         func(endpoint string, q url.Values) (*connectors.Envelope, error)
	ignoreCancel bool

	incoming chan *call
	calls    atomic.Int64

	mu        sync.Mutex
	endpoints []string
}

func newManualTransport() *fakeTransport {
	return &fakeTransport{incoming: make(chan *call, 16)}
}

func newAutoTransport(fn func(endpoint string, q url.Values) (*connectors.Envelope, error)) *fakeTransport {
	return &fakeTransport{auto: fn}
}

func (f *fakeTransport) Get(ctx context.Context, endpoint string, q url.Values) (*connectors.Envelope, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.endpoints = append(f.endpoints, endpoint)
	f.mu.Unlock()

	if f.auto != nil {
		return f.auto(endpoint, q)
	}

	c := &call{endpoint: endpoint, query: q, ctx: ctx, reply: make(chan reply, 1)}
	f.incoming <- c
	if f.ignoreCancel {
		r := <-c.reply
		return r.env, r.err
	}
	select {
	case r := <-c.reply:
		return r.env, r.err
	case <-ctx.Done():
		return nil, connectors.ErrCancelled
	}
}

func (f *fakeTransport) lastEndpoint() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.endpoints) == 0 {
		return ""
	}
	return f.endpoints[len(f.endpoints)-1]
}

func (f *fakeTransport) next(t *testing.T) *call {
	t.Helper()
	select {
	case c := <-f.incoming:
		return c
	case <-time.After(waitFor):
		t.Fatal("transport was not called")
		return nil
	}
}

func envelope(t *testing.T, v any) *connectors.Envelope {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return &connectors.Envelope{Success: true, Data: raw}
}

type countingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{outcomes: map[string]int{}}
}

func (m *countingMetrics) ObserveLoad(_ domain.Kind, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

func (m *countingMetrics) SetPolling(domain.Kind, bool) {}

func (m *countingMetrics) count(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcomes[outcome]
}

func temporalData(hours ...int64) domain.TemporalData {
	d := domain.TemporalData{}
	for h, c := range hours {
		d.ClicksByHour = append(d.ClicksByHour, domain.HourClicks{Hour: h, Clicks: c})
	}
	return d
}

func link(id string) domain.RequestConfig {
	return domain.RequestConfig{TargetEntityID: id}
}

func TestTemporalUnit_LoadsAndDerivesStats(t *testing.T) {
	var gotQuery url.Values
	var mu sync.Mutex
	ft := newAutoTransport(func(_ string, q url.Values) (*connectors.Envelope, error) {
		mu.Lock()
		gotQuery = q
		mu.Unlock()
		raw, _ := json.Marshal(temporalData(5, 15, 10))
		return &connectors.Envelope{Success: true, Data: raw}, nil
	})

	hours := 24
	cfg := link("42")
	cfg.Filters.Hours = &hours
	u := NewTemporalUnit(ft, cfg)
	defer u.Close()

	require.Eventually(t, func() bool {
		s := u.State()
		return s.RawData != nil && !s.IsLoading
	}, waitFor, tick)

	s := u.State()
	assert.Equal(t, "/api/analytics/link/42/temporal", ft.lastEndpoint())
	assert.Equal(t, "1", s.DerivedStats.PeakHour)
	assert.EqualValues(t, 15, s.DerivedStats.PeakHourClicks)
	assert.InDelta(t, 10.0, s.DerivedStats.AverageHourlyClicks, 1e-9)
	assert.Empty(t, s.LastError)
	require.NotNil(t, s.LastUpdate)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, url.Values{"hours": {"24"}}, gotQuery)
}

func TestGeographicUnit_AggregateWithMinClicks(t *testing.T) {
	ft := newAutoTransport(func(string, url.Values) (*connectors.Envelope, error) {
		raw, _ := json.Marshal(domain.GeographicData{TopCountries: []domain.CountryClicks{
			{Country: "US", Clicks: 3},
			{Country: "BR", Clicks: 7},
		}})
		return &connectors.Envelope{Success: true, Data: raw}, nil
	})

	cfg := domain.RequestConfig{Aggregate: true, Filters: domain.Filters{MinClicks: 5}}
	u := NewGeographicUnit(ft, cfg)
	defer u.Close()

	require.Eventually(t, func() bool { return u.State().RawData != nil }, waitFor, tick)

	s := u.State()
	assert.Equal(t, "/api/analytics/global/geographic", ft.lastEndpoint())
	assert.Equal(t, []domain.CountryClicks{{Country: "BR", Clicks: 7}}, s.RawData.TopCountries)
	assert.NotNil(t, s.RawData.TopCities)
	assert.Equal(t, 1, s.DerivedStats.TotalCountries)
	assert.Equal(t, "BR", s.DerivedStats.TopCountry.Country)
}

// Ответ вытесненной попытки не должен перезаписать данные более новой, даже если пришёл позже.
func TestUnit_StaleResponseIsDiscarded(t *testing.T) {
	ft := newManualTransport()
	ft.ignoreCancel = true
	m := newCountingMetrics()

	u := NewTemporalUnit(ft, link("42"), WithMetrics(m))
	defer u.Close()

	first := ft.next(t)
	go u.Refresh(context.Background())
	second := ft.next(t)

	second.reply <- reply{env: envelope(t, temporalData(1, 2, 30))}
	require.Eventually(t, func() bool { return u.State().RawData != nil }, waitFor, tick)

	first.reply <- reply{env: envelope(t, temporalData(99))}
	require.Eventually(t, func() bool { return m.count(audit.OutcomeStale) == 1 }, waitFor, tick)

	s := u.State()
	assert.Equal(t, "2", s.DerivedStats.PeakHour)
	assert.EqualValues(t, 30, s.DerivedStats.PeakHourClicks)
	assert.False(t, s.IsLoading)
}

func TestUnit_BackToBackRefreshCommitsOnce(t *testing.T) {
	ft := newManualTransport()
	m := newCountingMetrics()

	u := NewTemporalUnit(ft, link("42"), WithMetrics(m))
	defer u.Close()

	ft.next(t).reply <- reply{env: envelope(t, temporalData(1))}
	require.Eventually(t, func() bool { return m.count(audit.OutcomeSuccess) == 1 }, waitFor, tick)

	done1 := make(chan struct{})
	go func() { u.Refresh(context.Background()); close(done1) }()
	c1 := ft.next(t)

	done2 := make(chan struct{})
	go func() { u.Refresh(context.Background()); close(done2) }()
	c2 := ft.next(t)

	// первая попытка отменена второй
	select {
	case <-c1.ctx.Done():
	case <-time.After(waitFor):
		t.Fatal("first attempt was not cancelled")
	}
	<-done1

	c2.reply <- reply{env: envelope(t, temporalData(0, 0, 0, 42))}
	<-done2

	assert.Equal(t, 2, m.count(audit.OutcomeSuccess))
	assert.Equal(t, 1, m.count(audit.OutcomeCancelled))
	assert.Zero(t, m.count(audit.OutcomeStale))
	assert.Equal(t, "3", u.State().DerivedStats.PeakHour)
}

func TestUnit_NoCommitAfterClose(t *testing.T) {
	ft := newManualTransport()
	ft.ignoreCancel = true
	m := newCountingMetrics()

	var notified atomic.Int64
	u := NewAudienceUnit(ft, link("7"), WithMetrics(m), WithObserver(func(domain.Snapshot) { notified.Add(1) }))

	c := ft.next(t)
	u.Close()
	before := notified.Load()

	c.reply <- reply{env: envelope(t, domain.AudienceData{Devices: []domain.NamedClicks{{Name: "mobile", Clicks: 3}}})}
	require.Eventually(t, func() bool { return m.count(audit.OutcomeStale) == 1 }, waitFor, tick)

	s := u.State()
	assert.Nil(t, s.RawData)
	assert.Equal(t, before, notified.Load())

	// после Close операции — no-op
	u.Refresh(context.Background())
	u.Configure(link("8"))
	u.Close()
	assert.EqualValues(t, 1, ft.calls.Load())
	assert.False(t, u.PollingActive())
}

func TestUnit_PollingLifecycle(t *testing.T) {
	ft := newAutoTransport(func(string, url.Values) (*connectors.Envelope, error) {
		raw, _ := json.Marshal(temporalData(1, 2))
		return &connectors.Envelope{Success: true, Data: raw}, nil
	})

	var mu sync.Mutex
	var loadingAfterFirst bool
	var first atomic.Bool
	u := NewTemporalUnit(ft, link("42"), WithObserver(func(s domain.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if first.Load() && s.IsLoading {
			loadingAfterFirst = true
		}
	}))
	defer u.Close()

	require.Eventually(t, func() bool { return u.State().RawData != nil }, waitFor, tick)
	first.Store(true)
	assert.False(t, u.PollingActive())

	cfg := u.Config()
	cfg.Realtime = true
	cfg.PollInterval = 20 * time.Millisecond
	u.Configure(cfg)

	assert.True(t, u.PollingActive())
	assert.True(t, u.Snapshot().IsRealtimeActive)
	require.Eventually(t, func() bool { return ft.calls.Load() >= 4 }, waitFor, tick)

	u.SetRealtime(false)
	assert.False(t, u.PollingActive())
	assert.False(t, u.Snapshot().IsRealtimeActive)

	time.Sleep(30 * time.Millisecond)
	settled := ft.calls.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, ft.calls.Load())

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, loadingAfterFirst, "background loads must not raise IsLoading")
}

func TestUnit_RealtimeAtMountStartsPolling(t *testing.T) {
	ft := newAutoTransport(func(string, url.Values) (*connectors.Envelope, error) {
		return &connectors.Envelope{Success: true, Data: []byte(`{"insights":[]}`)}, nil
	})
	cfg := link("42")
	cfg.Realtime = true
	cfg.PollInterval = 15 * time.Millisecond

	u := NewInsightsUnit(ft, cfg)
	assert.True(t, u.PollingActive())
	require.Eventually(t, func() bool { return ft.calls.Load() >= 3 }, waitFor, tick)

	u.Close()
	assert.False(t, u.PollingActive())
}

func TestHeatmapUnit_EmptyOnError(t *testing.T) {
	var fail atomic.Bool
	ft := newAutoTransport(func(endpoint string, _ url.Values) (*connectors.Envelope, error) {
		if fail.Load() {
			return nil, &connectors.TransportError{Endpoint: endpoint, StatusCode: http.StatusInternalServerError}
		}
		raw, _ := json.Marshal(domain.HeatmapData{Cells: []domain.HeatmapCell{{Day: 1, Hour: 9, Clicks: 12}}})
		return &connectors.Envelope{Success: true, Data: raw}, nil
	})

	u := NewHeatmapUnit(ft, link("42"))
	defer u.Close()
	require.Eventually(t, func() bool { return u.State().RawData != nil }, waitFor, tick)
	updated := u.State().LastUpdate

	fail.Store(true)
	u.Refresh(context.Background())

	s := u.State()
	require.NotNil(t, s.RawData)
	assert.Empty(t, s.RawData.Cells)
	assert.NotNil(t, s.RawData.Cells)
	assert.Zero(t, s.DerivedStats.TotalClicks)
	assert.Equal(t, -1, s.DerivedStats.PeakDay)
	assert.Equal(t, "Analytics service error (HTTP 500)", s.LastError)
	assert.False(t, s.IsLoading)
	assert.Equal(t, updated, s.LastUpdate)
}

func TestGeographicUnit_KeepsStaleDataOnError(t *testing.T) {
	var fail atomic.Bool
	ft := newAutoTransport(func(endpoint string, _ url.Values) (*connectors.Envelope, error) {
		if fail.Load() {
			return nil, &connectors.TransportError{Endpoint: endpoint, StatusCode: http.StatusNotFound}
		}
		raw, _ := json.Marshal(domain.GeographicData{TopCountries: []domain.CountryClicks{{Country: "DE", Clicks: 4}}})
		return &connectors.Envelope{Success: true, Data: raw}, nil
	})

	u := NewGeographicUnit(ft, link("42"))
	defer u.Close()
	require.Eventually(t, func() bool { return u.State().RawData != nil }, waitFor, tick)

	fail.Store(true)
	u.Refresh(context.Background())

	s := u.State()
	assert.Equal(t, "DE", s.RawData.TopCountries[0].Country)
	assert.Equal(t, "Analytics not found for this link (HTTP 404)", s.LastError)

	// успешная загрузка очищает ошибку
	fail.Store(false)
	u.Refresh(context.Background())
	assert.Empty(t, u.State().LastError)
}

func TestUnit_UnsuccessfulEnvelopeIsMalformed(t *testing.T) {
	ft := newAutoTransport(func(string, url.Values) (*connectors.Envelope, error) {
		return &connectors.Envelope{Success: false, Error: "not ready"}, nil
	})

	u := NewDashboardUnit(ft, link("42"))
	defer u.Close()
	u.Refresh(context.Background())

	s := u.State()
	assert.Nil(t, s.RawData)
	assert.Equal(t, "Invalid response from the analytics API", s.LastError)
}

func TestUnit_WithoutEntityDoesNothing(t *testing.T) {
	ft := newAutoTransport(func(string, url.Values) (*connectors.Envelope, error) {
		t.Error("transport must not be called")
		return nil, nil
	})

	u := NewAudienceUnit(ft, domain.RequestConfig{Realtime: true, PollInterval: 10 * time.Millisecond})
	defer u.Close()

	u.Refresh(context.Background())
	s := u.State()
	assert.False(t, s.IsLoading)
	assert.Nil(t, s.RawData)
	assert.Empty(t, s.LastError)
	assert.False(t, u.PollingActive())

	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, ft.calls.Load())
}

func TestUnit_ConfigureIssuesSingleLoad(t *testing.T) {
	ft := newAutoTransport(func(string, url.Values) (*connectors.Envelope, error) {
		raw, _ := json.Marshal(temporalData(3))
		return &connectors.Envelope{Success: true, Data: raw}, nil
	})

	u := NewTemporalUnit(ft, link("1"))
	defer u.Close()
	require.Eventually(t, func() bool { return u.State().RawData != nil }, waitFor, tick)

	// entity и realtime меняются одновременно — одна загрузка, а не две
	u.Configure(domain.RequestConfig{TargetEntityID: "2", Realtime: true, PollInterval: time.Hour})

	require.Eventually(t, func() bool { return ft.calls.Load() == 2 }, waitFor, tick)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 2, ft.calls.Load())
	assert.Equal(t, "/api/analytics/link/2/temporal", ft.lastEndpoint())
	assert.True(t, u.PollingActive())

	// смена только интервала перезапускает таймер без загрузки
	cfg := u.Config()
	cfg.PollInterval = 2 * time.Hour
	u.Configure(cfg)
	time.Sleep(30 * time.Millisecond)
	assert.EqualValues(t, 2, ft.calls.Load())
}

func TestUnit_RefreshReturnsOnContextCancel(t *testing.T) {
	ft := newManualTransport()
	u := NewTemporalUnit(ft, link("42"))
	defer u.Close()
	ft.next(t).reply <- reply{env: envelope(t, temporalData(1))}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	u.Refresh(ctx)
	assert.Less(t, time.Since(start), waitFor)

	// загрузка продолжается и завершается сама
	ft.next(t).reply <- reply{env: envelope(t, temporalData(0, 8))}
	require.Eventually(t, func() bool {
		s := u.State()
		return !s.IsLoading && s.DerivedStats != nil && s.DerivedStats.PeakHour == "1"
	}, waitFor, tick)
}

func TestUnit_RecordsLoadHistory(t *testing.T) {
	ft := newAutoTransport(func(string, url.Values) (*connectors.Envelope, error) {
		return &connectors.Envelope{Success: true, Data: []byte(`{"cells":[]}`)}, nil
	})
	rec := &memRecorder{}

	u := NewHeatmapUnit(ft, link("42"), WithRecorder(rec))
	defer u.Close()
	require.Eventually(t, func() bool { return rec.len() >= 1 }, waitFor, tick)
	u.Refresh(context.Background())

	ev, ok := rec.find(audit.TriggerRefresh)
	require.True(t, ok)
	assert.Equal(t, "heatmap", ev.Domain)
	assert.Equal(t, "42", ev.EntityID)
	assert.Equal(t, "/api/analytics/link/42/heatmap", ev.Endpoint)
	assert.Equal(t, audit.OutcomeSuccess, ev.Outcome)
	assert.True(t, ev.Visible)
	assert.NotEmpty(t, ev.ID)
}

type memRecorder struct {
	mu     sync.Mutex
	events []audit.LoadEvent
}

func (r *memRecorder) Log(e audit.LoadEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *memRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *memRecorder) find(trigger string) (audit.LoadEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Trigger == trigger {
			return e, true
		}
	}
	return audit.LoadEvent{}, false
}

func TestGeographicUnit_MinClicksDropsSmallCountries(t *testing.T) {
	ft := newAutoTransport(func(string, url.Values) (*connectors.Envelope, error) {
		raw, _ := json.Marshal(domain.GeographicData{TopCountries: []domain.CountryClicks{
			{Country: "BR", Clicks: 10},
			{Country: "US", Clicks: 2},
		}})
		return &connectors.Envelope{Success: true, Data: raw}, nil
	})

	cfg := link("42")
	cfg.Filters.MinClicks = 5
	u := NewGeographicUnit(ft, cfg)
	defer u.Close()

	require.Eventually(t, func() bool { return u.State().RawData != nil }, waitFor, tick)

	s := u.State()
	assert.Equal(t, "/api/analytics/link/42/geographic", ft.lastEndpoint())
	assert.Equal(t, []domain.CountryClicks{{Country: "BR", Clicks: 10}}, s.RawData.TopCountries)
	assert.Equal(t, 1, s.DerivedStats.TotalCountries)
}

// Медленный наблюдатель не должен получить снимки не по порядку и не должен тормозить Refresh.
func TestUnit_ObserversSeeSnapshotsInOrder(t *testing.T) {
	ft := newManualTransport()

	gate := make(chan struct{})
	var (
		mu   sync.Mutex
		seen []domain.Snapshot
	)
	u := NewTemporalUnit(ft, link("42"), WithObserver(func(s domain.Snapshot) {
		mu.Lock()
		first := len(seen) == 0
		seen = append(seen, s)
		mu.Unlock()
		if first {
			<-gate
		}
	}))
	defer u.Close()

	ft.next(t).reply <- reply{env: envelope(t, temporalData(1))}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, waitFor, tick)

	done := make(chan struct{})
	go func() { u.Refresh(context.Background()); close(done) }()
	ft.next(t).reply <- reply{env: envelope(t, temporalData(0, 9))}

	// наблюдатель всё ещё висит на первом снимке, а Refresh уже вернулся
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("refresh blocked by observer")
	}
	close(gate)

	final := u.Snapshot()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, waitFor, tick)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i].Version, seen[i-1].Version)
		assert.GreaterOrEqual(t, seen[i].Seq, seen[i-1].Seq)
	}
	assert.EqualValues(t, 1, seen[0].Seq)
	assert.True(t, seen[1].IsLoading)
	last := seen[len(seen)-1]
	assert.EqualValues(t, 2, last.Seq)
	assert.False(t, last.IsLoading)
	assert.Equal(t, final.Version, last.Version)
}

func TestUnit_NoDeliveryAfterClose(t *testing.T) {
	ft := newAutoTransport(func(string, url.Values) (*connectors.Envelope, error) {
		raw, _ := json.Marshal(temporalData(1))
		return &connectors.Envelope{Success: true, Data: raw}, nil
	})
	var notified atomic.Int64
	u := NewTemporalUnit(ft, link("42"), WithObserver(func(domain.Snapshot) { notified.Add(1) }))

	require.Eventually(t, func() bool { return notified.Load() == 1 }, waitFor, tick)
	v := u.Snapshot().Version
	u.Close()

	u.Refresh(context.Background())
	u.SetRealtime(true)
	time.Sleep(30 * time.Millisecond)
	assert.EqualValues(t, 1, notified.Load())
	assert.Equal(t, v, u.Snapshot().Version)
}

// SetRealtime не должен откатывать конфигурацию, применённую параллельным Configure.
func TestUnit_SetRealtimeKeepsConcurrentConfigure(t *testing.T) {
	ft := newAutoTransport(func(string, url.Values) (*connectors.Envelope, error) {
		raw, _ := json.Marshal(temporalData(1))
		return &connectors.Envelope{Success: true, Data: raw}, nil
	})
	u := NewTemporalUnit(ft, link("42"))
	defer u.Close()

	stop := make(chan struct{})
	toggled := make(chan struct{})
	go func() {
		defer close(toggled)
		for {
			select {
			case <-stop:
				return
			default:
				u.SetRealtime(true)
			}
		}
	}()

	for i := 1; i <= 200; i++ {
		h := i
		cfg := link("42")
		cfg.Realtime = true
		cfg.PollInterval = time.Hour
		cfg.Filters.Hours = &h
		u.Configure(cfg)

		got := u.Config().Filters.Hours
		require.NotNil(t, got)
		require.GreaterOrEqual(t, *got, i, "configuration rolled back")
	}
	close(stop)
	<-toggled

	cfg := u.Config()
	assert.True(t, cfg.Realtime)
	assert.Equal(t, 200, *cfg.Filters.Hours)
	assert.True(t, u.PollingActive())
}

// Отменённая живая попытка не ошибка: данные и LastError остаются прежними, индикатор гаснет.
func TestUnit_CancelledLoadKeepsState(t *testing.T) {
	ft := newManualTransport()
	m := newCountingMetrics()
	rec := &memRecorder{}

	u := NewTemporalUnit(ft, link("42"), WithMetrics(m), WithRecorder(rec))
	defer u.Close()

	ft.next(t).reply <- reply{env: envelope(t, temporalData(4, 8))}
	require.Eventually(t, func() bool { return m.count(audit.OutcomeSuccess) == 1 }, waitFor, tick)
	before := u.State()

	done := make(chan struct{})
	go func() { u.Refresh(context.Background()); close(done) }()
	ft.next(t).reply <- reply{err: connectors.ErrCancelled}
	<-done

	s := u.State()
	assert.False(t, s.IsLoading)
	assert.Empty(t, s.LastError)
	assert.Same(t, before.RawData, s.RawData)
	assert.Equal(t, before.LastUpdate, s.LastUpdate)
	assert.EqualValues(t, 1, u.Snapshot().Seq)
	assert.Equal(t, 1, m.count(audit.OutcomeCancelled))
	assert.Zero(t, m.count(audit.OutcomeFailed))
	_, ok := rec.find(audit.TriggerRefresh)
	assert.False(t, ok)

	// следующая загрузка идёт как обычно
	go u.Refresh(context.Background())
	ft.next(t).reply <- reply{env: envelope(t, temporalData(0, 0, 6))}
	require.Eventually(t, func() bool { return m.count(audit.OutcomeSuccess) == 2 }, waitFor, tick)
	assert.Equal(t, "2", u.State().DerivedStats.PeakHour)
}

func currentPoller[P any, S any](u *Unit[P, S]) *Poller {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.poller
}

func TestUnit_PollerRebuiltOnIntervalChange(t *testing.T) {
	ft := newAutoTransport(func(string, url.Values) (*connectors.Envelope, error) {
		raw, _ := json.Marshal(temporalData(1))
		return &connectors.Envelope{Success: true, Data: raw}, nil
	})
	cfg := link("42")
	cfg.Realtime = true
	cfg.PollInterval = time.Hour
	u := NewTemporalUnit(ft, cfg)
	defer u.Close()

	p1 := currentPoller(u)
	require.NotNil(t, p1)
	assert.Equal(t, time.Hour, p1.Interval())

	cfg.PollInterval = 2 * time.Hour
	u.Configure(cfg)

	p2 := currentPoller(u)
	require.NotNil(t, p2)
	assert.NotSame(t, p1, p2)
	assert.Equal(t, 2*time.Hour, p2.Interval())
	select {
	case <-p1.Done():
	default:
		t.Fatal("old poller still running")
	}

	// тот же интервал и entity: таймер не трогаем
	u.SetRealtime(true)
	assert.Same(t, p2, currentPoller(u))
}

func TestUnit_PollerRebuiltOnEntityChange(t *testing.T) {
	ft := newAutoTransport(func(string, url.Values) (*connectors.Envelope, error) {
		raw, _ := json.Marshal(temporalData(1))
		return &connectors.Envelope{Success: true, Data: raw}, nil
	})
	cfg := link("1")
	cfg.Realtime = true
	cfg.PollInterval = time.Hour
	u := NewTemporalUnit(ft, cfg)
	defer u.Close()
	require.Eventually(t, func() bool { return u.State().RawData != nil }, waitFor, tick)

	p1 := currentPoller(u)
	require.NotNil(t, p1)

	cfg.TargetEntityID = "2"
	u.Configure(cfg)

	p2 := currentPoller(u)
	require.NotNil(t, p2)
	assert.NotSame(t, p1, p2)
	assert.Equal(t, time.Hour, p2.Interval())
	<-p1.Done()
	require.Eventually(t, func() bool {
		return ft.lastEndpoint() == "/api/analytics/link/2/temporal"
	}, waitFor, tick)
	assert.True(t, u.Snapshot().IsRealtimeActive)
}
