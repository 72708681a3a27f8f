package realtime

import (
	"strings"

	"github.com/xela07ax/clickpulse/internal/domain"
)

// Нормализация: nil-слайсы становятся пустыми, локальные фильтры отбрасывают записи.
// Всегда возвращается новый слайс, ответ транспорта не мутируется.

func keep[T any](items []T, pass func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if pass(it) {
			out = append(out, it)
		}
	}
	return out
}

func all[T any](T) bool { return true }

func normalizeDashboard(d domain.DashboardData, _ domain.Filters) domain.DashboardData {
	d.ClicksByDay = keep(d.ClicksByDay, all[domain.DayClicks])
	d.TopCountries = keep(d.TopCountries, all[domain.CountryClicks])
	d.Devices = keep(d.Devices, all[domain.NamedClicks])
	d.Referrers = keep(d.Referrers, all[domain.NamedClicks])
	return d
}

func normalizeGeographic(d domain.GeographicData, f domain.Filters) domain.GeographicData {
	d.TopCountries = keep(d.TopCountries, func(c domain.CountryClicks) bool { return c.Clicks >= f.MinClicks })
	d.TopCities = keep(d.TopCities, func(c domain.CityClicks) bool { return c.Clicks >= f.MinClicks })
	return d
}

func normalizeTemporal(d domain.TemporalData, _ domain.Filters) domain.TemporalData {
	d.ClicksByHour = keep(d.ClicksByHour, func(h domain.HourClicks) bool { return h.Hour >= 0 && h.Hour < 24 })
	d.ClicksByDay = keep(d.ClicksByDay, all[domain.DayClicks])
	d.ClicksByWeekday = keep(d.ClicksByWeekday, all[domain.WeekdayClicks])
	return d
}

func normalizeAudience(d domain.AudienceData, f domain.Filters) domain.AudienceData {
	enough := func(n domain.NamedClicks) bool { return n.Clicks >= f.MinClicks }
	d.Devices = keep(d.Devices, enough)
	d.Browsers = keep(d.Browsers, enough)
	d.OperatingSystems = keep(d.OperatingSystems, enough)
	d.Referrers = keep(d.Referrers, enough)
	return d
}

// Ячейки вне сетки 7x24 отбрасываются
func normalizeHeatmap(d domain.HeatmapData, _ domain.Filters) domain.HeatmapData {
	d.Cells = keep(d.Cells, func(c domain.HeatmapCell) bool {
		return c.Day >= 0 && c.Day < 7 && c.Hour >= 0 && c.Hour < 24
	})
	return d
}

func normalizeInsights(d domain.InsightsData, f domain.Filters) domain.InsightsData {
	d.Insights = keep(d.Insights, func(in domain.Insight) bool {
		if in.Confidence < f.MinConfidence {
			return false
		}
		if len(f.Categories) == 0 {
			return true
		}
		for _, c := range f.Categories {
			if strings.EqualFold(c, in.Category) {
				return true
			}
		}
		return false
	})
	return d
}
