package domain

// TemporalData временные ряды кликов (/temporal).
type TemporalData struct {
	ClicksByHour    []HourClicks    `json:"clicks_by_hour"`
	ClicksByDay     []DayClicks     `json:"clicks_by_day"`
	ClicksByWeekday []WeekdayClicks `json:"clicks_by_weekday"`
}

// PartOfDay корзины суток для распределения активности.
type PartOfDay struct {
	Night     int64 `json:"night"`     // 00-05
	Morning   int64 `json:"morning"`   // 06-11
	Afternoon int64 `json:"afternoon"` // 12-17
	Evening   int64 `json:"evening"`   // 18-23
}

type TemporalStats struct {
	TotalClicks         int64     `json:"total_clicks"`
	PeakHour            string    `json:"peak_hour"`
	PeakHourClicks      int64     `json:"peak_hour_clicks"`
	AverageHourlyClicks float64   `json:"average_hourly_clicks"`
	PeakDay             DayClicks `json:"peak_day"`
	PeakWeekday         string    `json:"peak_weekday"`
	Trend               Trend     `json:"trend"`
	PartOfDay           PartOfDay `json:"part_of_day"`
}
