package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xela07ax/clickpulse/internal/connectors"
)

// ReliabilitySettings параметры обвязки транспорта. Нулевые значения заменяются дефолтами.
type ReliabilitySettings struct {
	Name           string
	CBMaxRequests  uint32
	CBInterval     time.Duration
	CBTimeout      time.Duration // Время, через которое CB попробует "закрыться"
	CBFailures     uint32        // Сколько ошибок подряд открывают предохранитель
	RetryAttempts  uint
	RetryDelay     time.Duration
	AttemptTimeout time.Duration
	RateLimit      float64 // запросов в секунду, 0 — без ограничения
	RateBurst      int
}

func (s ReliabilitySettings) withDefaults() ReliabilitySettings {
	if s.Name == "" {
		s.Name = "analytics-api"
	}
	if s.CBMaxRequests == 0 {
		s.CBMaxRequests = 3
	}
	if s.CBInterval == 0 {
		s.CBInterval = 5 * time.Second
	}
	if s.CBTimeout == 0 {
		s.CBTimeout = 30 * time.Second
	}
	if s.CBFailures == 0 {
		s.CBFailures = 5
	}
	if s.RetryAttempts == 0 {
		s.RetryAttempts = 3
	}
	if s.RetryDelay == 0 {
		s.RetryDelay = 100 * time.Millisecond
	}
	if s.AttemptTimeout == 0 {
		s.AttemptTimeout = 10 * time.Second
	}
	if s.RateBurst <= 0 {
		s.RateBurst = 20
	}
	return s
}

// ReliabilityWrapper оборачивает любой Transport: лимитер -> предохранитель -> ретраи.
// Юниты о нём не знают, для них это такой же Transport.
type ReliabilityWrapper struct {
	next     connectors.Transport
	settings ReliabilitySettings
	cb       *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	metrics  *Metrics
	logger   *zap.Logger
}

func NewReliabilityWrapper(next connectors.Transport, s ReliabilitySettings, metrics *Metrics, logger *zap.Logger) *ReliabilityWrapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	s = s.withDefaults()
	w := &ReliabilityWrapper{
		next:     next,
		settings: s,
		metrics:  metrics,
		logger:   logger.With(zap.String("mod", "reliability")),
	}

	limit := rate.Inf
	if s.RateLimit > 0 {
		limit = rate.Limit(s.RateLimit)
	}
	w.limiter = rate.NewLimiter(limit, s.RateBurst)

	// Настройка предохранителя
	w.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.CBMaxRequests,
		Interval:    s.CBInterval,
		Timeout:     s.CBTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.CBFailures
		},
		// Отмена и 4xx — не признак больного бэкенда
		IsSuccessful: func(err error) bool {
			return err == nil || !retryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			w.logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			if w.metrics != nil {
				w.metrics.SetBreakerState(name, to)
			}
		},
	})
	return w
}

// Get реализует интерфейс Transport
func (w *ReliabilityWrapper) Get(ctx context.Context, endpoint string, query url.Values) (*connectors.Envelope, error) {
	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, connectors.ErrCancelled
		}
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	// 2. Circuit Breaker
	res, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(w.settings.RetryAttempts),
			retry.Delay(w.settings.RetryDelay),
			retry.LastErrorOnly(true),
			retry.RetryIf(retryable),
			// Умный расчет задержки
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Бэкенд сам сказал, когда приходить (Retry-After)
				var tErr *connectors.ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}
				// В остальных случаях (сетевой лаг, 500-ка) — экспоненциальный бэкофф
				return retry.BackOffDelay(n, err, config)
			}),
		)

		var env *connectors.Envelope
		retryErr := r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, w.settings.AttemptTimeout)
			defer cancel()

			var callErr error
			env, callErr = w.next.Get(tCtx, endpoint, query)
			return callErr
		})
		return env, retryErr
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: %s", connectors.ErrUnavailable, endpoint)
	case err != nil:
		// retry-go при отмене контекста возвращает ctx.Err()
		if ctx.Err() != nil {
			return nil, connectors.ErrCancelled
		}
		return nil, err
	}
	return res.(*connectors.Envelope), nil
}

// State текущее состояние предохранителя (для health-ручки консоли).
func (w *ReliabilityWrapper) State() gobreaker.State { return w.cb.State() }

// retryable: сетевые ошибки, 5xx и 429 повторяем; отмену, 4xx и битые ответы — нет.
func retryable(err error) bool {
	if connectors.IsCancelled(err) || errors.Is(err, connectors.ErrMalformedResponse) {
		return false
	}
	var tErr *connectors.ThrottleError
	if errors.As(err, &tErr) {
		return true
	}
	var trErr *connectors.TransportError
	if errors.As(err, &trErr) {
		return trErr.StatusCode == 0 || trErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}
