package realtime

/*
Файл unit.go — Domain Data Unit: единица, которая владеет состоянием одного аналитического домена.

- Один Unit = один домен + одна конфигурация. Конфигурация меняется только целиком (Configure).
- Каждая загрузка — LoadAttempt с порядковым номером и собственным контекстом. Новая попытка
  отменяет предыдущую, а перед фиксацией результата сверяется номер: ответ устаревшей попытки
  отбрасывается, даже если транспорт отмену проигнорировал.
- Видимая загрузка (initial/refresh/смена данных) поднимает IsLoading, фоновая (poll/включение realtime) — нет.
- После Close состояние больше не меняется и наблюдатели не вызываются.
- Снимки публикуются под мьютексом с растущим Version и доставляются наблюдателям одной горутиной
  строго в порядке публикации. Медленный наблюдатель задерживает только доставку, но не юнит.
*/

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/clickpulse/internal/audit"
	"github.com/xela07ax/clickpulse/internal/connectors"
	"github.com/xela07ax/clickpulse/internal/domain"
)

// Descriptor описывает домен: что запрашивать и как превратить ответ в payload и статистику.
type Descriptor[P any, S any] struct {
	Kind domain.Kind
	// Params поддерживаемые доменом query-параметры
	Params []string
	// Normalize приводит payload к каноническому виду и применяет локальные фильтры.
	// Вход не мутирует.
	Normalize func(P, domain.Filters) P
	Calculate func(P) S
	// EmptyOnError при ошибке сбрасывать данные в пустой payload вместо показа устаревших
	EmptyOnError bool
	Empty        func() P
}

// State типизированное наблюдаемое состояние. Заменяется целиком при каждой фиксации,
// поэтому указатели из State можно читать без блокировок, но нельзя мутировать.
type State[P any, S any] struct {
	RawData          *P
	DerivedStats     *S
	IsLoading        bool
	LastError        string
	LastUpdate       *time.Time
	IsRealtimeActive bool
}

// Observer получает снимок после каждого изменения состояния.
type Observer func(domain.Snapshot)

// LoadMetrics счётчики юнита. Реализуется в engine.
type LoadMetrics interface {
	ObserveLoad(kind domain.Kind, outcome string, d time.Duration)
	SetPolling(kind domain.Kind, active bool)
}

type options struct {
	logger    *zap.Logger
	metrics   LoadMetrics
	recorder  audit.Recorder
	observers []Observer
	now       func() time.Time
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

func WithMetrics(m LoadMetrics) Option { return func(o *options) { o.metrics = m } }

func WithRecorder(r audit.Recorder) Option { return func(o *options) { o.recorder = r } }

func WithObserver(fn Observer) Option {
	return func(o *options) { o.observers = append(o.observers, fn) }
}

// WithClock подменяет источник времени для LastUpdate
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

type Unit[P any, S any] struct {
	desc      Descriptor[P, S]
	transport connectors.Transport
	opts      options
	logger    *zap.Logger

	// base отменяется в Close и является родителем всех попыток
	base     context.Context
	stopBase context.CancelFunc

	mu     sync.Mutex
	cfg    domain.RequestConfig
	state  State[P, S]
	seq    uint64 // номер последней выданной попытки
	commit uint64 // номер попытки, последней изменившей состояние
	cancel context.CancelFunc
	poller *Poller
	closed bool

	// version растёт при каждой публикации снимка; pending ждёт доставки наблюдателям
	version uint64
	pending []domain.Snapshot
	wake    chan struct{}
}

type attempt struct {
	id       string
	seq      uint64
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      domain.RequestConfig
	endpoint string
	query    url.Values
	trigger  string
	visible  bool
	started  time.Time
}

// NewUnit создаёт юнит и сразу запускает видимую загрузку, если конфигурации для неё достаточно.
func NewUnit[P any, S any](desc Descriptor[P, S], transport connectors.Transport, cfg domain.RequestConfig, opts ...Option) *Unit[P, S] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	base, stop := context.WithCancel(context.Background())
	u := &Unit[P, S]{
		desc:      desc,
		transport: transport,
		opts:      o,
		logger:    o.logger.Named("unit").With(zap.String("domain", string(desc.Kind))),
		base:      base,
		stopBase:  stop,
		cfg:       cfg,
		wake:      make(chan struct{}, 1),
	}
	if len(o.observers) > 0 {
		go u.dispatch()
	}

	if !cfg.Loadable() {
		u.logger.Debug("unit created without entity, waiting for configuration")
		return u
	}

	u.mu.Lock()
	if cfg.PollingEnabled() {
		u.startPollingLocked(cfg.PollInterval)
	}
	a, _ := u.beginLocked(true, audit.TriggerInitial)
	u.mu.Unlock()

	go u.run(a)
	return u
}

func (u *Unit[P, S]) Kind() domain.Kind { return u.desc.Kind }

// State возвращает копию текущего состояния.
func (u *Unit[P, S]) State() State[P, S] {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

func (u *Unit[P, S]) Config() domain.RequestConfig {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cfg
}

func (u *Unit[P, S]) Snapshot() domain.Snapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.snapshotLocked()
}

func (u *Unit[P, S]) snapshotLocked() domain.Snapshot {
	s := domain.Snapshot{
		Kind:             u.desc.Kind,
		Config:           u.cfg,
		IsLoading:        u.state.IsLoading,
		LastError:        u.state.LastError,
		LastUpdate:       u.state.LastUpdate,
		IsRealtimeActive: u.state.IsRealtimeActive,
		Seq:              u.commit,
		Version:          u.version,
	}
	// any(nil), а не типизированный nil-указатель
	if u.state.RawData != nil {
		s.RawData = *u.state.RawData
	}
	if u.state.DerivedStats != nil {
		s.DerivedStats = *u.state.DerivedStats
	}
	return s
}

// Refresh запускает видимую перезагрузку и ждёт, пока попытка завершится (успех, ошибка или вытеснение).
// Отмена ctx прекращает только ожидание, сама попытка продолжается.
func (u *Unit[P, S]) Refresh(ctx context.Context) {
	u.mu.Lock()
	a, ok := u.beginLocked(true, audit.TriggerRefresh)
	if !u.closed {
		u.publishLocked()
	}
	u.mu.Unlock()

	if !ok {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		u.run(a)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Configure заменяет конфигурацию целиком. На один вызов — не больше одной загрузки:
// видимой, если поменялось то, что влияет на данные, иначе фоновой при входе в realtime.
func (u *Unit[P, S]) Configure(next domain.RequestConfig) {
	u.mu.Lock()
	old, a, ok := u.configureLocked(next)
	u.mu.Unlock()
	u.afterConfigure(old, a, ok)
}

// SetRealtime Configure с изменённым только флагом realtime. Чтение и замена конфигурации
// идут под одной блокировкой, параллельный Configure не теряется.
func (u *Unit[P, S]) SetRealtime(enabled bool) {
	u.mu.Lock()
	next := u.cfg
	next.Realtime = enabled
	old, a, ok := u.configureLocked(next)
	u.mu.Unlock()
	u.afterConfigure(old, a, ok)
}

// configureLocked применяет конфигурацию и публикует снимок. Возвращает отвязанный таймер,
// который вызывающий останавливает уже без блокировки, и попытку для запуска.
func (u *Unit[P, S]) configureLocked(next domain.RequestConfig) (*Poller, *attempt, bool) {
	if u.closed {
		return nil, nil, false
	}
	prev := u.cfg
	u.cfg = next

	dataChanged := prev.TargetEntityID != next.TargetEntityID ||
		prev.Aggregate != next.Aggregate ||
		!reflect.DeepEqual(prev.Filters, next.Filters)

	wantPolling := next.Loadable() && next.PollingEnabled()
	hadPolling := u.poller != nil
	restart := hadPolling && wantPolling &&
		(prev.PollInterval != next.PollInterval || prev.TargetEntityID != next.TargetEntityID)

	var old *Poller
	if hadPolling && (!wantPolling || restart) {
		old = u.stopPollingLocked()
	}
	if wantPolling && u.poller == nil {
		u.startPollingLocked(next.PollInterval)
	}

	var (
		a  *attempt
		ok bool
	)
	switch {
	case !next.Loadable():
		// entity убрали: текущая попытка запрашивает уже неактуальное, её ответ не должен примениться
		if u.cancel != nil {
			u.cancel()
			u.cancel = nil
			u.seq++
		}
		u.state.IsLoading = false
	case dataChanged:
		a, ok = u.beginLocked(true, audit.TriggerConfigure)
	case wantPolling && !hadPolling:
		a, ok = u.beginLocked(false, audit.TriggerConfigure)
	}
	u.publishLocked()
	return old, a, ok
}

func (u *Unit[P, S]) afterConfigure(old *Poller, a *attempt, ok bool) {
	if old != nil {
		old.Stop()
	}
	if ok {
		go u.run(a)
	}
}

// Close отменяет живую попытку и останавливает таймер. Повторный вызов безопасен.
func (u *Unit[P, S]) Close() {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return
	}
	u.closed = true
	u.pending = nil
	if u.cancel != nil {
		u.cancel()
		u.cancel = nil
	}
	old := u.stopPollingLocked()
	u.mu.Unlock()

	u.stopBase()
	if old != nil {
		old.Stop()
	}
	u.logger.Debug("unit closed")
}

// beginLocked выдаёт новую попытку и вытесняет предыдущую. false — загружать нечего.
func (u *Unit[P, S]) beginLocked(visible bool, trigger string) (*attempt, bool) {
	if u.closed {
		return nil, false
	}
	if !u.cfg.Loadable() {
		u.state.IsLoading = false
		return nil, false
	}
	if u.cancel != nil {
		u.cancel()
	}

	u.seq++
	ctx, cancel := context.WithCancel(u.base)
	u.cancel = cancel
	if visible {
		u.state.IsLoading = true
	}

	return &attempt{
		id:       uuid.NewString(),
		seq:      u.seq,
		ctx:      ctx,
		cancel:   cancel,
		cfg:      u.cfg,
		endpoint: ResolveEndpoint(u.cfg.TargetEntityID, u.desc.Kind),
		query:    BuildQuery(u.cfg.Filters, u.desc.Params),
		trigger:  trigger,
		visible:  visible,
		started:  time.Now(),
	}, true
}

// run выполняет сетевую часть попытки вне блокировки и фиксирует результат, если попытка ещё живая.
func (u *Unit[P, S]) run(a *attempt) {
	defer a.cancel()

	payload, err := u.fetch(a)
	var derived S
	if err == nil {
		derived = u.desc.Calculate(payload)
	}
	elapsed := time.Since(a.started)

	u.mu.Lock()
	live := !u.closed && a.seq == u.seq
	switch {
	case connectors.IsCancelled(err):
		// отмена не результат загрузки: данные и ошибку не трогаем, только гасим индикатор
		if live {
			u.cancel = nil
			if u.state.IsLoading {
				u.state.IsLoading = false
				u.publishLocked()
			}
		}
		u.mu.Unlock()
		u.observe(audit.OutcomeCancelled, elapsed)
		return
	case !live:
		u.mu.Unlock()
		u.logger.Debug("stale response discarded", zap.Uint64("seq", a.seq), zap.String("attempt", a.id))
		u.observe(audit.OutcomeStale, elapsed)
		u.record(a, audit.OutcomeStale, err, elapsed)
		return
	}

	u.cancel = nil
	u.commit = a.seq
	outcome := audit.OutcomeSuccess
	if err == nil {
		now := u.opts.now()
		u.state = State[P, S]{
			RawData:          &payload,
			DerivedStats:     &derived,
			LastUpdate:       &now,
			IsRealtimeActive: u.poller != nil,
		}
	} else {
		outcome = audit.OutcomeFailed
		next := u.state
		next.IsLoading = false
		next.LastError = connectors.Classify(err)
		if u.desc.EmptyOnError {
			empty := u.desc.Empty()
			stats := u.desc.Calculate(empty)
			next.RawData, next.DerivedStats = &empty, &stats
		}
		u.state = next
	}
	u.publishLocked()
	u.mu.Unlock()

	if err != nil {
		u.logger.Warn("analytics load failed",
			zap.String("endpoint", a.endpoint),
			zap.String("attempt", a.id),
			zap.Error(err))
	}
	u.observe(outcome, elapsed)
	u.record(a, outcome, err, elapsed)
}

func (u *Unit[P, S]) fetch(a *attempt) (P, error) {
	var zero P

	env, err := u.transport.Get(a.ctx, a.endpoint, a.query)
	if err != nil {
		return zero, err
	}
	if !env.Success || !env.HasData() {
		msg := env.Error
		if msg == "" {
			msg = "response has no data"
		}
		return zero, fmt.Errorf("%w: %s", connectors.ErrMalformedResponse, msg)
	}

	var payload P
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return zero, fmt.Errorf("%w: decode %s: %v", connectors.ErrMalformedResponse, u.desc.Kind, err)
	}
	if u.desc.Normalize != nil {
		payload = u.desc.Normalize(payload, a.cfg.Filters)
	}
	return payload, nil
}

func (u *Unit[P, S]) startPollingLocked(interval time.Duration) {
	u.poller = StartPoller(interval, u.pollTick)
	u.state.IsRealtimeActive = true
	if u.opts.metrics != nil {
		u.opts.metrics.SetPolling(u.desc.Kind, true)
	}
	u.logger.Debug("polling started", zap.Duration("interval", interval))
}

// stopPollingLocked отвязывает таймер от юнита. Останавливать его нужно уже без блокировки:
// тик, который ждёт мьютекс, иначе не даст горутине выйти.
func (u *Unit[P, S]) stopPollingLocked() *Poller {
	p := u.poller
	if p == nil {
		return nil
	}
	u.poller = nil
	u.state.IsRealtimeActive = false
	if u.opts.metrics != nil {
		u.opts.metrics.SetPolling(u.desc.Kind, false)
	}
	u.logger.Debug("polling stopped")
	return p
}

func (u *Unit[P, S]) pollTick(p *Poller) {
	u.mu.Lock()
	// тик от уже отвязанного таймера
	if u.poller != p {
		u.mu.Unlock()
		return
	}
	a, ok := u.beginLocked(false, audit.TriggerPoll)
	u.mu.Unlock()

	if ok {
		go u.run(a)
	}
}

// PollingActive есть ли у юнита работающий таймер.
func (u *Unit[P, S]) PollingActive() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.poller != nil
}

// publishLocked фиксирует новую версию снимка и ставит его в очередь доставки.
func (u *Unit[P, S]) publishLocked() {
	u.version++
	if len(u.opts.observers) == 0 {
		return
	}
	u.pending = append(u.pending, u.snapshotLocked())
	select {
	case u.wake <- struct{}{}:
	default:
	}
}

// dispatch доставляет снимки наблюдателям по одному, в порядке версий. Живёт до Close.
func (u *Unit[P, S]) dispatch() {
	for {
		select {
		case <-u.wake:
		case <-u.base.Done():
			return
		}
		for {
			u.mu.Lock()
			if u.closed || len(u.pending) == 0 {
				u.mu.Unlock()
				break
			}
			s := u.pending[0]
			u.pending = u.pending[1:]
			u.mu.Unlock()

			for _, fn := range u.opts.observers {
				fn(s)
			}
		}
	}
}

func (u *Unit[P, S]) observe(outcome string, d time.Duration) {
	if u.opts.metrics != nil {
		u.opts.metrics.ObserveLoad(u.desc.Kind, outcome, d)
	}
}

func (u *Unit[P, S]) record(a *attempt, outcome string, err error, d time.Duration) {
	if u.opts.recorder == nil {
		return
	}
	ev := audit.LoadEvent{
		ID:         a.id,
		Domain:     string(u.desc.Kind),
		EntityID:   a.cfg.TargetEntityID,
		Endpoint:   a.endpoint,
		Trigger:    a.trigger,
		Visible:    a.visible,
		Seq:        a.seq,
		Outcome:    outcome,
		Timestamp:  time.Now(),
		DurationMs: d.Milliseconds(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	u.opts.recorder.Log(ev)
}
