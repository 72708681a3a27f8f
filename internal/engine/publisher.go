package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/clickpulse/internal/domain"
	"github.com/xela07ax/clickpulse/internal/infra"
)

// StatePublisher рассылает снимки юнитов в Redis: последний снимок по ключу и событие в канал.
// Observe не блокирует юнит — запись в Redis идёт из отдельного воркера.
type StatePublisher struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
	ch     chan domain.Snapshot
	wg     sync.WaitGroup

	closeMu  sync.RWMutex
	isClosed atomic.Bool
}

func NewStatePublisher(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *StatePublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatePublisher{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With(zap.String("mod", "publisher")),
		ch:     make(chan domain.Snapshot, 256),
	}
}

func (p *StatePublisher) Start() {
	p.wg.Add(1)
	go p.worker()
}

// Observe подходит как realtime.Observer
func (p *StatePublisher) Observe(s domain.Snapshot) {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.isClosed.Load() {
		return
	}
	select {
	case p.ch <- s:
	default:
		p.logger.Warn("snapshot dropped: publisher buffer is full", zap.String("domain", string(s.Kind)))
	}
}

// Stop дописывает оставшиеся снимки и останавливает воркер.
func (p *StatePublisher) Stop() {
	p.closeMu.Lock()
	if p.isClosed.Swap(true) {
		p.closeMu.Unlock()
		return
	}
	close(p.ch)
	p.closeMu.Unlock()
	p.wg.Wait()
}

func (p *StatePublisher) worker() {
	defer p.wg.Done()
	for s := range p.ch {
		if err := p.publish(s); err != nil {
			p.logger.Error("snapshot publish failed", zap.String("domain", string(s.Kind)), zap.Error(err))
		}
	}
}

func (p *StatePublisher) publish(s domain.Snapshot) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pipe := p.rdb.Pipeline()
	pipe.Set(ctx, infra.SnapshotKey(string(s.Kind)), raw, p.ttl)
	pipe.Publish(ctx, infra.RedisChanSnapshots, raw)
	_, err = pipe.Exec(ctx)
	return err
}
