package domain

// Priority важность автоматически сгенерированного инсайта.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type Insight struct {
	ID         string   `json:"id"`
	Category   string   `json:"category"`
	Title      string   `json:"title"`
	Message    string   `json:"message"`
	Priority   Priority `json:"priority"`
	Confidence float64  `json:"confidence"` // 0..1
	Clicks     int64    `json:"clicks,omitempty"`
}

// InsightsData бизнес-инсайты (/insights).
type InsightsData struct {
	Insights []Insight `json:"insights"`
}

type InsightsStats struct {
	TotalInsights     int              `json:"total_insights"`
	ByPriority        map[Priority]int `json:"by_priority"`
	HighPriority      int              `json:"high_priority"`
	Categories        int              `json:"categories"`
	AverageConfidence float64          `json:"average_confidence"`
}
