package stats

import (
	"strconv"

	"github.com/xela07ax/clickpulse/internal/domain"
)

func hourClicks(h domain.HourClicks) int64 { return h.Clicks }

// Temporal пики и ритм активности по часам, дням и дням недели.
func Temporal(d domain.TemporalData) domain.TemporalStats {
	total := Total(d.ClicksByHour, hourClicks)
	if len(d.ClicksByHour) == 0 {
		total = Total(d.ClicksByDay, dayClicks)
	}

	st := domain.TemporalStats{
		TotalClicks: total,
		PeakHour:    domain.Placeholder,
		PeakDay:     domain.DayClicks{Date: domain.Placeholder},
		PeakWeekday: domain.Placeholder,
		Trend:       TrendOf(daySeries(d.ClicksByDay)),
	}

	if peak, ok := Peak(d.ClicksByHour, hourClicks); ok {
		st.PeakHour = strconv.Itoa(peak.Hour)
		st.PeakHourClicks = peak.Clicks
	}
	if len(d.ClicksByHour) > 0 {
		// Среднее по присутствующим часам, а не по 24: бэкенд не присылает пустые часы
		st.AverageHourlyClicks = float64(Total(d.ClicksByHour, hourClicks)) / float64(len(d.ClicksByHour))
	}
	if peak, ok := Peak(d.ClicksByDay, dayClicks); ok {
		st.PeakDay = peak
	}
	if peak, ok := Peak(d.ClicksByWeekday, func(w domain.WeekdayClicks) int64 { return w.Clicks }); ok {
		st.PeakWeekday = peak.Weekday
	}

	for _, h := range d.ClicksByHour {
		switch {
		case h.Hour < 6:
			st.PartOfDay.Night += h.Clicks
		case h.Hour < 12:
			st.PartOfDay.Morning += h.Clicks
		case h.Hour < 18:
			st.PartOfDay.Afternoon += h.Clicks
		default:
			st.PartOfDay.Evening += h.Clicks
		}
	}

	return st
}
