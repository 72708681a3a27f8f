package domain

import "time"

// Snapshot нетипизированная копия состояния юнита для консоли, Redis и WebSocket.
// RawData == nil означает "данных ещё нет"; пустые слайсы внутри payload — "загружено, но пусто".
type Snapshot struct {
	Kind             Kind          `json:"domain"`
	Config           RequestConfig `json:"config"`
	RawData          any           `json:"raw_data"`
	DerivedStats     any           `json:"derived_stats"`
	IsLoading        bool          `json:"is_loading"`
	LastError        string        `json:"last_error,omitempty"`
	LastUpdate       *time.Time    `json:"last_update"`
	IsRealtimeActive bool          `json:"is_realtime_active"`
	Seq              uint64        `json:"seq"`     // номер попытки, последней изменившей состояние
	Version          uint64        `json:"version"` // растёт при каждой публикации снимка юнитом
}
