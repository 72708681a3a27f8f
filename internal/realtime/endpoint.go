package realtime

import (
	"net/url"
	"strconv"

	"github.com/xela07ax/clickpulse/internal/domain"
)

// Имена query-параметров бэкенда
const (
	ParamHours         = "hours"
	ParamDays          = "days"
	ParamIncludeCharts = "include_charts"
)

// ResolveEndpoint чистая функция (entity, domain) -> путь. Формат зафиксирован контрактом с бэкендом.
func ResolveEndpoint(entityID string, kind domain.Kind) string {
	if entityID == "" {
		return "/api/analytics/global/" + string(kind)
	}
	return "/api/analytics/link/" + url.PathEscape(entityID) + "/" + string(kind)
}

// BuildQuery добавляет только заданные фильтры и только те, что поддерживает домен.
func BuildQuery(f domain.Filters, supported []string) url.Values {
	q := url.Values{}
	for _, p := range supported {
		switch p {
		case ParamHours:
			if f.Hours != nil {
				q.Set(ParamHours, strconv.Itoa(*f.Hours))
			}
		case ParamDays:
			if f.Days != nil {
				q.Set(ParamDays, strconv.Itoa(*f.Days))
			}
		case ParamIncludeCharts:
			if f.IncludeCharts != nil {
				q.Set(ParamIncludeCharts, strconv.FormatBool(*f.IncludeCharts))
			}
		}
	}
	return q
}
