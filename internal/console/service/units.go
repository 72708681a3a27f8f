package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xela07ax/clickpulse/internal/domain"
	"github.com/xela07ax/clickpulse/internal/realtime"
)

var ErrInvalidConfig = errors.New("invalid unit config")

// RealtimeAnnouncer рассылает переключение real-time остальным инстансам.
type RealtimeAnnouncer interface {
	Announce(ctx context.Context, kind domain.Kind, enabled bool) error
}

// ConfigRequest тело PUT /api/v1/units/{domain}/config. Заменяет конфигурацию целиком.
type ConfigRequest struct {
	EntityID       string   `json:"target_entity_id"`
	Aggregate      bool     `json:"aggregate"`
	Realtime       bool     `json:"realtime"`
	PollIntervalMs int64    `json:"poll_interval_ms" validate:"min=0"`
	Hours          *int     `json:"hours" validate:"omitempty,min=1,max=8760"`
	Days           *int     `json:"days" validate:"omitempty,min=1,max=3650"`
	IncludeCharts  *bool    `json:"include_charts"`
	MinClicks      int64    `json:"min_clicks" validate:"min=0"`
	MinConfidence  float64  `json:"min_confidence" validate:"min=0,max=1"`
	Categories     []string `json:"categories" validate:"omitempty,dive,required"`
}

func (r ConfigRequest) RequestConfig() domain.RequestConfig {
	return domain.RequestConfig{
		TargetEntityID: r.EntityID,
		Aggregate:      r.Aggregate,
		Realtime:       r.Realtime,
		PollInterval:   time.Duration(r.PollIntervalMs) * time.Millisecond,
		Filters: domain.Filters{
			Hours:         r.Hours,
			Days:          r.Days,
			IncludeCharts: r.IncludeCharts,
			MinClicks:     r.MinClicks,
			MinConfidence: r.MinConfidence,
			Categories:    r.Categories,
		},
	}
}

type UnitService struct {
	hub       *realtime.Hub
	announcer RealtimeAnnouncer // nil, если Redis не настроен
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewUnitService(hub *realtime.Hub, announcer RealtimeAnnouncer, validate *validator.Validate, logger *zap.Logger) *UnitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return &UnitService{
		hub:       hub,
		announcer: announcer,
		validate:  validate,
		logger:    logger.Named("unit-service"),
	}
}

func (s *UnitService) List() []domain.Snapshot {
	return s.hub.Snapshots()
}

func (s *UnitService) unit(name string) (realtime.Controller, error) {
	kind, ok := domain.ParseKind(name)
	if !ok {
		return nil, realtime.ErrUnknownDomain
	}
	return s.hub.Get(kind)
}

func (s *UnitService) Get(name string) (domain.Snapshot, error) {
	u, err := s.unit(name)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return u.Snapshot(), nil
}

// Refresh ждёт окончания видимой загрузки (или отмены ctx) и отдаёт снимок.
func (s *UnitService) Refresh(ctx context.Context, name string) (domain.Snapshot, error) {
	u, err := s.unit(name)
	if err != nil {
		return domain.Snapshot{}, err
	}
	u.Refresh(ctx)
	return u.Snapshot(), nil
}

func (s *UnitService) Configure(name string, req ConfigRequest) (domain.Snapshot, error) {
	u, err := s.unit(name)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := s.validate.Struct(req); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg := req.RequestConfig()
	u.Configure(cfg)
	s.logger.Info("unit reconfigured",
		zap.String("domain", name),
		zap.String("entity_id", cfg.TargetEntityID),
		zap.Bool("realtime", cfg.Realtime),
		zap.Duration("poll_interval", cfg.PollInterval))
	return u.Snapshot(), nil
}

// SetRealtime применяет флаг локально, затем рассылает его через announcer.
func (s *UnitService) SetRealtime(ctx context.Context, name string, enabled bool) (domain.Snapshot, error) {
	u, err := s.unit(name)
	if err != nil {
		return domain.Snapshot{}, err
	}
	u.SetRealtime(enabled)

	if s.announcer != nil {
		if err := s.announcer.Announce(ctx, u.Kind(), enabled); err != nil {
			// Локально уже применено; остальные инстансы подтянут состояние из Redis при Init
			s.logger.Warn("realtime announce failed", zap.String("domain", name), zap.Error(err))
		}
	}
	return u.Snapshot(), nil
}
