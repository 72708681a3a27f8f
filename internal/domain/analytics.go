package domain

import "time"

// Kind аналитический домен, за который отвечает отдельный юнит.
type Kind string

const (
	KindDashboard  Kind = "dashboard"
	KindGeographic Kind = "geographic"
	KindTemporal   Kind = "temporal"
	KindAudience   Kind = "audience"
	KindHeatmap    Kind = "heatmap"
	KindInsights   Kind = "insights"
)

// AllKinds фиксирует порядок юнитов в списках и ответах консоли.
var AllKinds = []Kind{
	KindDashboard,
	KindGeographic,
	KindTemporal,
	KindAudience,
	KindHeatmap,
	KindInsights,
}

// ParseKind проверяет, что строка из URL/сигнала — известный домен.
func ParseKind(s string) (Kind, bool) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// RequestConfig неизменяемая конфигурация юнита. Меняется только целиком через Configure.
type RequestConfig struct {
	TargetEntityID string        `json:"target_entity_id,omitempty"` // пусто = глобальный режим
	Aggregate      bool          `json:"aggregate"`                  // разрешает глобальный режим без entity
	Realtime       bool          `json:"realtime"`
	PollInterval   time.Duration `json:"poll_interval"`

	Filters Filters `json:"filters"`
}

// Filters доменные параметры. Query-параметры уходят на бэкенд, остальные применяются локально.
type Filters struct {
	// Query-параметры: добавляются к запросу только если заданы
	Hours         *int  `json:"hours,omitempty"`
	Days          *int  `json:"days,omitempty"`
	IncludeCharts *bool `json:"include_charts,omitempty"`

	// Локальная пост-фильтрация
	MinClicks     int64    `json:"min_clicks,omitempty"`
	MinConfidence float64  `json:"min_confidence,omitempty"`
	Categories    []string `json:"categories,omitempty"`
}

// Loadable достаточно ли конфигурации, чтобы понять, что запрашивать.
func (c RequestConfig) Loadable() bool {
	return c.TargetEntityID != "" || c.Aggregate
}

// PollingEnabled условие перехода планировщика в Active.
func (c RequestConfig) PollingEnabled() bool {
	return c.Realtime && c.PollInterval > 0
}
