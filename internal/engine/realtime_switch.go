package engine

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/clickpulse/internal/domain"
	"github.com/xela07ax/clickpulse/internal/infra"
	"github.com/xela07ax/clickpulse/internal/realtime"
)

// RealtimeSwitch удалённое управление юнитами через Redis: включение real-time и принудительный refresh.
// Состояние real-time хранится в Redis-множестве, чтобы все инстансы консоли видели одно и то же.
type RealtimeSwitch struct {
	hub    *realtime.Hub
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRealtimeSwitch(rdb *redis.Client, hub *realtime.Hub, logger *zap.Logger) *RealtimeSwitch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimeSwitch{
		hub:    hub,
		rdb:    rdb,
		logger: logger.With(zap.String("mod", "realtime-switch")),
	}
}

// Init сводит локальные юниты с Redis: пустое множество прогревается из локальной конфигурации,
// затем каждому юниту выставляется флаг из множества.
func (s *RealtimeSwitch) Init(ctx context.Context) error {
	var local []string
	for _, kind := range s.hub.Kinds() {
		u, _ := s.hub.Get(kind)
		if u.Config().Realtime {
			local = append(local, string(kind))
		}
	}
	if err := WarmupState(ctx, s.rdb, s.logger, local, infra.RedisKeyRealtimeUnits, infra.RedisKeyLockRealtime); err != nil {
		s.logger.Warn("realtime warm-up failed", zap.Error(err))
	}

	members, err := s.rdb.SMembers(ctx, infra.RedisKeyRealtimeUnits).Result()
	if err != nil {
		return fmt.Errorf("failed to fetch realtime set from Redis: %w", err)
	}
	enabled := make(map[string]bool, len(members))
	for _, m := range members {
		enabled[m] = true
	}

	for _, kind := range s.hub.Kinds() {
		u, _ := s.hub.Get(kind)
		if want := enabled[string(kind)]; u.Config().Realtime != want {
			u.SetRealtime(want)
		}
	}
	s.logger.Info("realtime state synced", zap.Int("enabled", len(members)))
	return nil
}

// StartListener подписывается на сигналы в реальном времени. Блокирует до отмены ctx.
func (s *RealtimeSwitch) StartListener(ctx context.Context) {
	ListenStateResilient(ctx, s.rdb, s.logger,
		[]string{infra.RedisChanRealtime, infra.RedisChanRefresh},
		func() error { return s.Init(ctx) }, // Переподключение
		func(channel, id, value string) { s.apply(ctx, channel, id, value) },
	)
}

func (s *RealtimeSwitch) apply(ctx context.Context, channel, id, value string) {
	if channel == infra.RedisChanRefresh && id == "all" {
		go s.hub.RefreshAll(ctx)
		return
	}

	kind, ok := domain.ParseKind(id)
	if !ok {
		s.logger.Warn("signal for unknown domain", zap.String("chan", channel), zap.String("domain", id))
		return
	}
	u, err := s.hub.Get(kind)
	if err != nil {
		s.logger.Debug("signal for domain without unit", zap.String("domain", id))
		return
	}

	switch channel {
	case infra.RedisChanRealtime:
		u.SetRealtime(parseSwitch(value))
	case infra.RedisChanRefresh:
		go u.Refresh(ctx)
	}
}

// Announce меняет real-time режим на всех инстансах: обновляет множество и рассылает сигнал.
func (s *RealtimeSwitch) Announce(ctx context.Context, kind domain.Kind, enabled bool) error {
	state := "off"
	pipe := s.rdb.TxPipeline()
	if enabled {
		state = "on"
		pipe.SAdd(ctx, infra.RedisKeyRealtimeUnits, string(kind))
	} else {
		pipe.SRem(ctx, infra.RedisKeyRealtimeUnits, string(kind))
	}
	pipe.Publish(ctx, infra.RedisChanRealtime, string(kind)+":"+state)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("announce realtime %s: %w", kind, err)
	}
	return nil
}

// RequestRefresh рассылает сигнал обновления; kind == "" — все юниты.
func (s *RealtimeSwitch) RequestRefresh(ctx context.Context, kind domain.Kind) error {
	id := string(kind)
	if id == "" {
		id = "all"
	}
	return s.rdb.Publish(ctx, infra.RedisChanRefresh, id+":now").Err()
}
