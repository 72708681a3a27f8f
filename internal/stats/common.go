// Package stats содержит чистые калькуляторы производных метрик для каждого аналитического домена.
// Никакого I/O и скрытого состояния: один и тот же payload всегда даёт один и тот же результат.
package stats

import "github.com/xela07ax/clickpulse/internal/domain"

// trendBand порог в 10%, ниже которого изменение считается шумом.
const trendBand = 0.10

// Total суммирует клики по всем записям. Пустой ввод = 0.
func Total[T any](items []T, clicks func(T) int64) int64 {
	var sum int64
	for _, it := range items {
		sum += clicks(it)
	}
	return sum
}

// Peak возвращает запись с максимумом кликов. При равенстве побеждает первая.
// ok == false для пустого ввода — вызывающий подставляет свой placeholder.
func Peak[T any](items []T, clicks func(T) int64) (best T, ok bool) {
	for i, it := range items {
		if i == 0 || clicks(it) > clicks(best) {
			best = it
		}
	}
	return best, len(items) > 0
}

// Percentage part / total * 100, при нулевом total всегда 0 (никаких NaN/Inf).
func Percentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// Mean среднее арифметическое, 0 для пустого ряда.
func Mean(series []int64) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum int64
	for _, v := range series {
		sum += v
	}
	return float64(sum) / float64(len(series))
}

// Distinct мощность множества ключей, присутствующих во вводе.
func Distinct[T any](items []T, key func(T) string) int {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[key(it)] = struct{}{}
	}
	return len(seen)
}

// Shares считает долю каждой записи от total в исходном порядке.
func Shares[T any](items []T, key func(T) string, clicks func(T) int64) []domain.Share {
	total := Total(items, clicks)
	out := make([]domain.Share, 0, len(items))
	for _, it := range items {
		out = append(out, domain.Share{
			Key:        key(it),
			Clicks:     clicks(it),
			Percentage: Percentage(clicks(it), total),
		})
	}
	return out
}

// halves делит ряд пополам; при нечётной длине лишняя точка уходит во вторую половину.
func halves(series []int64) (first, second float64) {
	mid := len(series) / 2
	return Mean(series[:mid]), Mean(series[mid:])
}

// TrendOf сравнивает средние первой и второй половины ряда с полосой ±10%.
func TrendOf(series []int64) domain.Trend {
	if len(series) < 2 {
		return domain.TrendStable
	}
	first, second := halves(series)
	if first == 0 {
		if second > 0 {
			return domain.TrendUp
		}
		return domain.TrendStable
	}

	change := (second - first) / first
	switch {
	case change > trendBand:
		return domain.TrendUp
	case change < -trendBand:
		return domain.TrendDown
	default:
		return domain.TrendStable
	}
}

// GrowthRate изменение среднего второй половины относительно первой, в процентах.
func GrowthRate(series []int64) float64 {
	if len(series) < 2 {
		return 0
	}
	first, second := halves(series)
	if first == 0 {
		return 0
	}
	return (second - first) / first * 100
}

func namedClicks(n domain.NamedClicks) int64     { return n.Clicks }
func namedKey(n domain.NamedClicks) string       { return n.Name }
func countryClicks(c domain.CountryClicks) int64 { return c.Clicks }
func countryKey(c domain.CountryClicks) string   { return c.Country }
func dayClicks(d domain.DayClicks) int64         { return d.Clicks }

func daySeries(days []domain.DayClicks) []int64 {
	out := make([]int64, len(days))
	for i, d := range days {
		out[i] = d.Clicks
	}
	return out
}

func topNamed(items []domain.NamedClicks) domain.NamedClicks {
	if top, ok := Peak(items, namedClicks); ok {
		return top
	}
	return domain.NamedClicks{Name: domain.Placeholder}
}

func topCountry(items []domain.CountryClicks) domain.CountryClicks {
	if top, ok := Peak(items, countryClicks); ok {
		return top
	}
	return domain.CountryClicks{Country: domain.Placeholder}
}
