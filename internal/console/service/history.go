package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xela07ax/clickpulse/internal/audit"
)

var ErrHistoryDisabled = errors.New("load history is not configured")

// HistoryProvider описывает контракт для чтения истории загрузок.
// Модель общая с audit, чтобы запись и чтение не расходились.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, f audit.HistoryFilter) ([]audit.LoadEvent, error)
	Summary(ctx context.Context, window time.Duration) ([]audit.LoadSummary, error)
}

type HistoryService struct {
	repo HistoryProvider
}

// NewHistoryService repo может быть nil, если база не настроена.
func NewHistoryService(repo HistoryProvider) *HistoryService {
	return &HistoryService{repo: repo}
}

// Fetch запрашивает историю с фильтрацией. Пустые поля фильтра означают "все".
func (s *HistoryService) Fetch(ctx context.Context, f audit.HistoryFilter) ([]audit.LoadEvent, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	events, err := s.repo.FetchHistory(ctx, f.Normalized())
	if err != nil {
		return nil, fmt.Errorf("history_service: failed to fetch history: %w", err)
	}
	return events, nil
}

func (s *HistoryService) Summary(ctx context.Context, window time.Duration) ([]audit.LoadSummary, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	if window <= 0 {
		window = audit.SummaryWindow
	}
	summary, err := s.repo.Summary(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("history_service: failed to build summary: %w", err)
	}
	return summary, nil
}
