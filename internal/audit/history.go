package audit

/*
Файл history.go — журнал попыток загрузки аналитики.

- Неблокирующая запись: юнит отдаёт событие в буферизированный канал и сразу
  возвращается к своей работе, задержки БД на него не влияют.
- Пакетная запись в PostgreSQL по таймеру или при достижении лимита пачки.
- Drain при остановке: Stop закрывает канал, воркер вычитывает остатки и делает финальный flush.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// StorageInterface определяет, куда физически сохраняется история
type StorageInterface interface {
	// WriteBatch сохраняет пачку событий за один раз
	WriteBatch(ctx context.Context, events []LoadEvent) error
}

type Recorder interface {
	Log(event LoadEvent)
}

type HistoryOptions struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

func (o HistoryOptions) withDefaults() HistoryOptions {
	if o.BufferSize <= 0 {
		o.BufferSize = 10000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 500 * time.Millisecond
	}
	return o
}

type History struct {
	ch     chan LoadEvent
	repo   StorageInterface
	opts   HistoryOptions
	logger *zap.Logger
	wg     sync.WaitGroup

	closeMu  sync.RWMutex // Log держит RLock, Stop берёт Lock перед close(ch)
	isClosed atomic.Bool
	dropped  atomic.Int64
}

func NewHistory(repo StorageInterface, opts HistoryOptions, logger *zap.Logger) *History {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &History{
		ch:     make(chan LoadEvent, opts.BufferSize),
		repo:   repo,
		opts:   opts,
		logger: logger.With(zap.String("mod", "history")),
	}
}

func (h *History) Start() {
	h.wg.Add(1)
	go h.worker()
}

// Stop запирает вход в канал и ждёт, пока воркер всё допишет.
func (h *History) Stop() {
	h.closeMu.Lock()
	if h.isClosed.Swap(true) {
		h.closeMu.Unlock()
		return
	}
	h.logger.Info("stopping history: closing channel and flushing buffer...")
	close(h.ch)
	h.closeMu.Unlock()

	h.wg.Wait()
	h.logger.Info("history stopped gracefully", zap.Int64("dropped", h.dropped.Load()))
}

func (h *History) Log(event LoadEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.closeMu.RLock()
	defer h.closeMu.RUnlock()
	if h.isClosed.Load() {
		h.logger.Warn("load event dropped: history is stopping", zap.String("id", event.ID))
		return
	}

	// Load shedding: переполненный буфер не должен тормозить юниты
	select {
	case h.ch <- event:
	default:
		h.dropped.Add(1)
		h.logger.Error("history_buffer_overflow",
			zap.String("domain", event.Domain),
			zap.String("id", event.ID),
		)
	}
}

// Dropped сколько событий потеряно из-за переполнения буфера.
func (h *History) Dropped() int64 { return h.dropped.Load() }

func (h *History) worker() {
	defer h.wg.Done()

	batch := make([]LoadEvent, 0, h.opts.BatchSize)
	ticker := time.NewTicker(h.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст при остановке уже закрыт
		if err := h.repo.WriteBatch(context.Background(), batch); err != nil {
			h.logger.Error("history flush failed", zap.Error(err), zap.Int("events", len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-h.ch:
			if !ok {
				flush() // Финальный сброс
				h.logger.Info("history worker finished")
				return
			}
			batch = append(batch, event)
			if len(batch) >= h.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
