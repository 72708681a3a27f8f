package realtime

import (
	"github.com/xela07ax/clickpulse/internal/connectors"
	"github.com/xela07ax/clickpulse/internal/domain"
	"github.com/xela07ax/clickpulse/internal/stats"
)

type (
	DashboardUnit  = Unit[domain.DashboardData, domain.DashboardStats]
	GeographicUnit = Unit[domain.GeographicData, domain.GeographicStats]
	TemporalUnit   = Unit[domain.TemporalData, domain.TemporalStats]
	AudienceUnit   = Unit[domain.AudienceData, domain.AudienceStats]
	HeatmapUnit    = Unit[domain.HeatmapData, domain.HeatmapStats]
	InsightsUnit   = Unit[domain.InsightsData, domain.InsightsStats]
)

var (
	DashboardDescriptor = Descriptor[domain.DashboardData, domain.DashboardStats]{
		Kind:      domain.KindDashboard,
		Params:    []string{ParamHours, ParamIncludeCharts},
		Normalize: normalizeDashboard,
		Calculate: stats.Dashboard,
	}
	GeographicDescriptor = Descriptor[domain.GeographicData, domain.GeographicStats]{
		Kind:      domain.KindGeographic,
		Params:    []string{ParamDays},
		Normalize: normalizeGeographic,
		Calculate: stats.Geographic,
	}
	TemporalDescriptor = Descriptor[domain.TemporalData, domain.TemporalStats]{
		Kind:      domain.KindTemporal,
		Params:    []string{ParamHours, ParamDays},
		Normalize: normalizeTemporal,
		Calculate: stats.Temporal,
	}
	AudienceDescriptor = Descriptor[domain.AudienceData, domain.AudienceStats]{
		Kind:      domain.KindAudience,
		Params:    []string{ParamDays},
		Normalize: normalizeAudience,
		Calculate: stats.Audience,
	}
	// Heatmap при ошибке показывает пустую сетку, а не устаревшую
	HeatmapDescriptor = Descriptor[domain.HeatmapData, domain.HeatmapStats]{
		Kind:         domain.KindHeatmap,
		Params:       []string{ParamDays},
		Normalize:    normalizeHeatmap,
		Calculate:    stats.Heatmap,
		EmptyOnError: true,
		Empty:        func() domain.HeatmapData { return domain.HeatmapData{Cells: []domain.HeatmapCell{}} },
	}
	InsightsDescriptor = Descriptor[domain.InsightsData, domain.InsightsStats]{
		Kind:      domain.KindInsights,
		Params:    []string{ParamDays},
		Normalize: normalizeInsights,
		Calculate: stats.Insights,
	}
)

func NewDashboardUnit(t connectors.Transport, cfg domain.RequestConfig, opts ...Option) *DashboardUnit {
	return NewUnit(DashboardDescriptor, t, cfg, opts...)
}

func NewGeographicUnit(t connectors.Transport, cfg domain.RequestConfig, opts ...Option) *GeographicUnit {
	return NewUnit(GeographicDescriptor, t, cfg, opts...)
}

func NewTemporalUnit(t connectors.Transport, cfg domain.RequestConfig, opts ...Option) *TemporalUnit {
	return NewUnit(TemporalDescriptor, t, cfg, opts...)
}

func NewAudienceUnit(t connectors.Transport, cfg domain.RequestConfig, opts ...Option) *AudienceUnit {
	return NewUnit(AudienceDescriptor, t, cfg, opts...)
}

func NewHeatmapUnit(t connectors.Transport, cfg domain.RequestConfig, opts ...Option) *HeatmapUnit {
	return NewUnit(HeatmapDescriptor, t, cfg, opts...)
}

func NewInsightsUnit(t connectors.Transport, cfg domain.RequestConfig, opts ...Option) *InsightsUnit {
	return NewUnit(InsightsDescriptor, t, cfg, opts...)
}
