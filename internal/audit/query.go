package audit

import "time"

// HistoryFilter выборка истории загрузок. Пустые поля не фильтруют.
type HistoryFilter struct {
	Domain   string
	EntityID string
	Limit    int
}

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
)

// Normalized ограничивает лимит разумными рамками.
func (f HistoryFilter) Normalized() HistoryFilter {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultHistoryLimit
	case f.Limit > MaxHistoryLimit:
		f.Limit = MaxHistoryLimit
	}
	return f
}

// LoadSummary агрегаты по домену за окно времени.
type LoadSummary struct {
	Domain string  `json:"domain"`
	Total  int64   `json:"total"`
	Failed int64   `json:"failed"`
	Stale  int64   `json:"stale"`
	P95Ms  float64 `json:"p95_ms"`
	Window string  `json:"window"`
}

// SummaryWindow по умолчанию для консоли
const SummaryWindow = time.Hour
