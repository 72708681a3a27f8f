package domain

// Trend направление ряда по сравнению первой и второй половины.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Placeholder подставляется вместо метки, когда пиковой записи нет (пустой ввод).
const Placeholder = "N/A"

// NamedClicks универсальная пара "категория -> клики" (устройства, браузеры, источники).
type NamedClicks struct {
	Name   string `json:"name"`
	Clicks int64  `json:"clicks"`
}

// Share доля категории от общего числа кликов.
type Share struct {
	Key        string  `json:"key"`
	Clicks     int64   `json:"clicks"`
	Percentage float64 `json:"percentage"`
}

type CountryClicks struct {
	Country     string `json:"country"`
	CountryName string `json:"country_name,omitempty"`
	Clicks      int64  `json:"clicks"`
}

type CityClicks struct {
	City    string `json:"city"`
	Country string `json:"country,omitempty"`
	Clicks  int64  `json:"clicks"`
}

type HourClicks struct {
	Hour   int   `json:"hour"`
	Clicks int64 `json:"clicks"`
}

type DayClicks struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}

type WeekdayClicks struct {
	Weekday string `json:"weekday"`
	Clicks  int64  `json:"clicks"`
}
