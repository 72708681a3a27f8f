package realtime

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/xela07ax/clickpulse/internal/connectors"
	"github.com/xela07ax/clickpulse/internal/domain"
)

// ErrUnknownDomain домен не зарегистрирован в хабе.
var ErrUnknownDomain = errors.New("unknown analytics domain")

// Controller нетипизированный доступ к юниту для консоли и сигналов из Redis.
type Controller interface {
	Kind() domain.Kind
	Snapshot() domain.Snapshot
	Config() domain.RequestConfig
	Refresh(ctx context.Context)
	Configure(cfg domain.RequestConfig)
	SetRealtime(enabled bool)
	PollingActive() bool
	Close()
}

// Hub владеет юнитами процесса. Юниты независимы: общего у них только транспорт.
type Hub struct {
	units  map[domain.Kind]Controller
	order  []domain.Kind
	logger *zap.Logger
	once   sync.Once
}

func NewHub(logger *zap.Logger, units ...Controller) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{units: make(map[domain.Kind]Controller, len(units)), logger: logger.Named("hub")}
	for _, u := range units {
		if _, dup := h.units[u.Kind()]; dup {
			h.logger.Warn("duplicate unit ignored", zap.String("domain", string(u.Kind())))
			continue
		}
		h.units[u.Kind()] = u
		h.order = append(h.order, u.Kind())
	}
	return h
}

// BuildHub создаёт юниты для переданных конфигураций. Домены без конфигурации не создаются.
func BuildHub(t connectors.Transport, configs map[domain.Kind]domain.RequestConfig, logger *zap.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]Option{WithLogger(logger)}, opts...)

	var units []Controller
	for _, kind := range domain.AllKinds {
		cfg, ok := configs[kind]
		if !ok {
			continue
		}
		switch kind {
		case domain.KindDashboard:
			units = append(units, NewDashboardUnit(t, cfg, opts...))
		case domain.KindGeographic:
			units = append(units, NewGeographicUnit(t, cfg, opts...))
		case domain.KindTemporal:
			units = append(units, NewTemporalUnit(t, cfg, opts...))
		case domain.KindAudience:
			units = append(units, NewAudienceUnit(t, cfg, opts...))
		case domain.KindHeatmap:
			units = append(units, NewHeatmapUnit(t, cfg, opts...))
		case domain.KindInsights:
			units = append(units, NewInsightsUnit(t, cfg, opts...))
		}
	}
	return NewHub(logger, units...)
}

func (h *Hub) Get(kind domain.Kind) (Controller, error) {
	u, ok := h.units[kind]
	if !ok {
		return nil, ErrUnknownDomain
	}
	return u, nil
}

func (h *Hub) Kinds() []domain.Kind { return append([]domain.Kind(nil), h.order...) }

func (h *Hub) Snapshots() []domain.Snapshot {
	out := make([]domain.Snapshot, 0, len(h.order))
	for _, k := range h.order {
		out = append(out, h.units[k].Snapshot())
	}
	return out
}

// RefreshAll обновляет юниты параллельно и ждёт всех.
func (h *Hub) RefreshAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, k := range h.order {
		wg.Add(1)
		go func(u Controller) {
			defer wg.Done()
			u.Refresh(ctx)
		}(h.units[k])
	}
	wg.Wait()
}

func (h *Hub) CloseAll() {
	h.once.Do(func() {
		for _, k := range h.order {
			h.units[k].Close()
		}
		h.logger.Info("all units closed", zap.Int("units", len(h.order)))
	})
}
