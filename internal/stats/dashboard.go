package stats

import "github.com/xela07ax/clickpulse/internal/domain"

// Dashboard сводит общую картину. Если бэкенд не прислал total_clicks, берём сумму по дням.
func Dashboard(d domain.DashboardData) domain.DashboardStats {
	total := d.TotalClicks
	if total == 0 {
		total = Total(d.ClicksByDay, dayClicks)
	}

	top := topCountry(d.TopCountries)
	series := daySeries(d.ClicksByDay)

	return domain.DashboardStats{
		TotalClicks:        total,
		UniqueVisitors:     d.UniqueVisitors,
		UniqueRate:         Percentage(d.UniqueVisitors, total),
		ClicksToday:        d.ClicksToday,
		TopCountry:         top,
		TopCountryShare:    Percentage(top.Clicks, Total(d.TopCountries, countryClicks)),
		TopDevice:          topNamed(d.Devices),
		TopReferrer:        topNamed(d.Referrers),
		TotalCountries:     Distinct(d.TopCountries, countryKey),
		Trend:              TrendOf(series),
		GrowthRate:         GrowthRate(series),
		AverageDailyClicks: Mean(series),
	}
}
