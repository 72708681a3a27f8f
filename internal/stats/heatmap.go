package stats

import "github.com/xela07ax/clickpulse/internal/domain"

// noPeak значение PeakDay/PeakHour и координаты PeakCell для пустой карты.
const noPeak = -1

func cellClicks(c domain.HeatmapCell) int64 { return c.Clicks }

// Heatmap плотность сетки "день x час".
func Heatmap(d domain.HeatmapData) domain.HeatmapStats {
	st := domain.HeatmapStats{
		TotalClicks: Total(d.Cells, cellClicks),
		PeakCell:    domain.HeatmapCell{Day: noPeak, Hour: noPeak},
		PeakDay:     noPeak,
		PeakHour:    noPeak,
	}
	if peak, ok := Peak(d.Cells, cellClicks); ok {
		st.PeakCell = peak
	}

	active := make(map[[2]int]struct{})
	for _, c := range d.Cells {
		if c.Clicks > 0 {
			active[[2]int{c.Day, c.Hour}] = struct{}{}
		}
	}
	st.ActiveCells = len(active)
	st.Coverage = Percentage(int64(st.ActiveCells), domain.HeatmapGridSize)
	if st.ActiveCells > 0 {
		st.AverageCellClicks = float64(st.TotalClicks) / float64(st.ActiveCells)
	}

	if day, ok := peakBucket(d.Cells, func(c domain.HeatmapCell) int { return c.Day }); ok {
		st.PeakDay = day
	}
	if hour, ok := peakBucket(d.Cells, func(c domain.HeatmapCell) int { return c.Hour }); ok {
		st.PeakHour = hour
	}
	return st
}

// peakBucket суммирует клики по ключу и возвращает ключ-максимум.
// Порядок ключей — порядок первого появления во вводе, поэтому ничья уходит первому.
func peakBucket(cells []domain.HeatmapCell, key func(domain.HeatmapCell) int) (int, bool) {
	type bucket struct {
		key    int
		clicks int64
	}
	var order []bucket
	index := make(map[int]int)
	for _, c := range cells {
		k := key(c)
		i, ok := index[k]
		if !ok {
			i = len(order)
			index[k] = i
			order = append(order, bucket{key: k})
		}
		order[i].clicks += c.Clicks
	}

	best, ok := Peak(order, func(b bucket) int64 { return b.clicks })
	return best.key, ok
}
