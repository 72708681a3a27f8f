package connectors

import (
	"context"
	"fmt"
	"math/rand/v2" // Используем v2 для Go 1.25
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/xela07ax/clickpulse/internal/domain"
)

// MockAnalyticsConnector отдаёт правдоподобные случайные данные для демо-режима и локальной разработки.
// Entity "unstable" всегда отвечает 503 — удобно смотреть, как юниты переживают сбои.
type MockAnalyticsConnector struct {
	MinLatency time.Duration
	MaxLatency time.Duration
}

func (c *MockAnalyticsConnector) Get(ctx context.Context, endpoint string, query url.Values) (*Envelope, error) {
	// Имитируем задержку сети
	latency := c.MinLatency
	if spread := c.MaxLatency - c.MinLatency; spread > 0 {
		latency += time.Duration(rand.Int64N(int64(spread)))
	}

	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return nil, ErrCancelled
	}

	if strings.Contains(endpoint, "/link/unstable/") {
		return nil, &TransportError{Endpoint: endpoint, StatusCode: http.StatusServiceUnavailable, Cause: fmt.Errorf("service internal error")}
	}

	var payload any
	switch domain.Kind(path.Base(endpoint)) {
	case domain.KindDashboard:
		payload = mockDashboard()
	case domain.KindGeographic:
		payload = mockGeographic()
	case domain.KindTemporal:
		payload = mockTemporal()
	case domain.KindAudience:
		payload = mockAudience()
	case domain.KindHeatmap:
		payload = mockHeatmap()
	case domain.KindInsights:
		payload = mockInsights()
	default:
		return nil, &TransportError{Endpoint: endpoint, StatusCode: http.StatusNotFound, Cause: fmt.Errorf("domain not supported by mock connector")}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Success: true, Data: raw}, nil
}

func clicks(base int) int64 { return int64(base + rand.IntN(base+1)) }

var mockCountries = []struct{ code, name string }{
	{"US", "United States"}, {"BR", "Brazil"}, {"DE", "Germany"}, {"IN", "India"}, {"GB", "United Kingdom"},
}

func mockDays(n int) []domain.DayClicks {
	days := make([]domain.DayClicks, 0, n)
	start := time.Now().AddDate(0, 0, -n+1)
	for i := 0; i < n; i++ {
		days = append(days, domain.DayClicks{Date: start.AddDate(0, 0, i).Format("2006-01-02"), Clicks: clicks(40 + i*3)})
	}
	return days
}

func mockDashboard() domain.DashboardData {
	d := domain.DashboardData{
		ClicksByDay: mockDays(14),
		Devices:     mockNamed("desktop", "mobile", "tablet"),
		Referrers:   mockNamed("direct", "google.com", "t.co", "news.ycombinator.com"),
	}
	for _, c := range mockCountries {
		d.TopCountries = append(d.TopCountries, domain.CountryClicks{Country: c.code, CountryName: c.name, Clicks: clicks(50)})
	}
	for _, day := range d.ClicksByDay {
		d.TotalClicks += day.Clicks
	}
	d.UniqueVisitors = d.TotalClicks * 7 / 10
	d.ClicksToday = d.ClicksByDay[len(d.ClicksByDay)-1].Clicks
	return d
}

func mockGeographic() domain.GeographicData {
	var d domain.GeographicData
	for _, c := range mockCountries {
		d.TopCountries = append(d.TopCountries, domain.CountryClicks{Country: c.code, CountryName: c.name, Clicks: clicks(3)})
	}
	d.TopCities = []domain.CityClicks{
		{City: "New York", Country: "US", Clicks: clicks(4)},
		{City: "São Paulo", Country: "BR", Clicks: clicks(4)},
		{City: "Berlin", Country: "DE", Clicks: clicks(2)},
	}
	return d
}

func mockTemporal() domain.TemporalData {
	d := domain.TemporalData{ClicksByDay: mockDays(7)}
	for h := 0; h < 24; h++ {
		d.ClicksByHour = append(d.ClicksByHour, domain.HourClicks{Hour: h, Clicks: clicks(5 + h%12)})
	}
	for _, wd := range []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"} {
		d.ClicksByWeekday = append(d.ClicksByWeekday, domain.WeekdayClicks{Weekday: wd, Clicks: clicks(30)})
	}
	return d
}

func mockAudience() domain.AudienceData {
	d := domain.AudienceData{
		Devices:          mockNamed("desktop", "mobile", "tablet"),
		Browsers:         mockNamed("Chrome", "Safari", "Firefox", "Edge"),
		OperatingSystems: mockNamed("Windows", "iOS", "Android", "macOS", "Linux"),
		Referrers:        mockNamed("direct", "google.com", "t.co"),
	}
	d.UniqueVisitors = clicks(100)
	d.ReturningVisitors = d.UniqueVisitors / 4
	return d
}

func mockHeatmap() domain.HeatmapData {
	d := domain.HeatmapData{Cells: make([]domain.HeatmapCell, 0, domain.HeatmapGridSize)}
	for day := 0; day < 7; day++ {
		for hour := 0; hour < 24; hour++ {
			d.Cells = append(d.Cells, domain.HeatmapCell{Day: day, Hour: hour, Clicks: int64(rand.IntN(10))})
		}
	}
	return d
}

func mockInsights() domain.InsightsData {
	return domain.InsightsData{Insights: []domain.Insight{
		{ID: "peak-hours", Category: "temporal", Title: "Evening peak", Message: "Most clicks arrive between 18:00 and 21:00", Priority: domain.PriorityHigh, Confidence: 0.86},
		{ID: "mobile-share", Category: "audience", Title: "Mobile audience", Message: "Over half of visitors use mobile devices", Priority: domain.PriorityMedium, Confidence: 0.72},
		{ID: "new-market", Category: "geographic", Title: "Emerging market", Message: "Traffic from Brazil doubled this week", Priority: domain.PriorityMedium, Confidence: 0.58},
		{ID: "referrer-drop", Category: "traffic", Title: "Referrer decline", Message: "Clicks from t.co dropped by 30%", Priority: domain.PriorityLow, Confidence: 0.41},
	}}
}

func mockNamed(names ...string) []domain.NamedClicks {
	out := make([]domain.NamedClicks, 0, len(names))
	for i, n := range names {
		out = append(out, domain.NamedClicks{Name: n, Clicks: clicks(60 / (i + 1))})
	}
	return out
}
