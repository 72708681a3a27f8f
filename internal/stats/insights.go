package stats

import "github.com/xela07ax/clickpulse/internal/domain"

// Insights счётчики по уже отфильтрованным инсайтам.
func Insights(d domain.InsightsData) domain.InsightsStats {
	st := domain.InsightsStats{
		TotalInsights: len(d.Insights),
		ByPriority: map[domain.Priority]int{
			domain.PriorityHigh:   0,
			domain.PriorityMedium: 0,
			domain.PriorityLow:    0,
		},
		Categories: Distinct(d.Insights, func(i domain.Insight) string { return i.Category }),
	}

	var confidence float64
	for _, in := range d.Insights {
		st.ByPriority[in.Priority]++
		confidence += in.Confidence
	}
	st.HighPriority = st.ByPriority[domain.PriorityHigh]
	if len(d.Insights) > 0 {
		st.AverageConfidence = confidence / float64(len(d.Insights))
	}
	return st
}
