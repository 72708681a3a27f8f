package domain

// DashboardData сводка по ссылке или по всем ссылкам (/dashboard).
type DashboardData struct {
	TotalClicks    int64           `json:"total_clicks"`
	UniqueVisitors int64           `json:"unique_visitors"`
	ClicksToday    int64           `json:"clicks_today"`
	ClicksByDay    []DayClicks     `json:"clicks_by_day"`
	TopCountries   []CountryClicks `json:"top_countries"`
	Devices        []NamedClicks   `json:"devices"`
	Referrers      []NamedClicks   `json:"referrers"`

	// Готовые серии для графиков, приходят только при include_charts=true
	Charts map[string]any `json:"charts,omitempty"`
}

type DashboardStats struct {
	TotalClicks        int64         `json:"total_clicks"`
	UniqueVisitors     int64         `json:"unique_visitors"`
	UniqueRate         float64       `json:"unique_rate"` // уникальные / всего, %
	ClicksToday        int64         `json:"clicks_today"`
	TopCountry         CountryClicks `json:"top_country"`
	TopCountryShare    float64       `json:"top_country_share"`
	TopDevice          NamedClicks   `json:"top_device"`
	TopReferrer        NamedClicks   `json:"top_referrer"`
	TotalCountries     int           `json:"total_countries"`
	Trend              Trend         `json:"trend"`
	GrowthRate         float64       `json:"growth_rate"` // вторая половина периода против первой, %
	AverageDailyClicks float64       `json:"average_daily_clicks"`
}
