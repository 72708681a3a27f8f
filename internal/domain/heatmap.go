package domain

// HeatmapCell ячейка сетки "день недели x час". Day: 0 = воскресенье.
type HeatmapCell struct {
	Day    int   `json:"day"`
	Hour   int   `json:"hour"`
	Clicks int64 `json:"clicks"`
}

// HeatmapData тепловая карта активности (/heatmap).
type HeatmapData struct {
	Cells []HeatmapCell `json:"cells"`
}

// HeatmapGridSize 7 дней x 24 часа.
const HeatmapGridSize = 7 * 24

type HeatmapStats struct {
	TotalClicks       int64       `json:"total_clicks"`
	PeakCell          HeatmapCell `json:"peak_cell"`
	ActiveCells       int         `json:"active_cells"`
	Coverage          float64     `json:"coverage"` // доля активных ячеек сетки, %
	AverageCellClicks float64     `json:"average_cell_clicks"`
	PeakDay           int         `json:"peak_day"`
	PeakHour          int         `json:"peak_hour"`
}
