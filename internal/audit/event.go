package audit

import "time"

// Исход попытки загрузки
const (
	OutcomeSuccess   = "SUCCESS"
	OutcomeFailed    = "FAILED"
	OutcomeStale     = "STALE"     // ответ пришёл, но попытка уже не живая
	OutcomeCancelled = "CANCELLED" // в историю не пишется, только в метрики
)

// Что запустило попытку
const (
	TriggerInitial   = "initial"
	TriggerRefresh   = "refresh"
	TriggerConfigure = "configure"
	TriggerPoll      = "poll"
)

type LoadEvent struct {
	ID       string `json:"id"`        // UUID попытки
	Domain   string `json:"domain"`    // Какой юнит
	EntityID string `json:"entity_id"` // Пусто для глобального режима
	Endpoint string `json:"endpoint"`
	Trigger  string `json:"trigger"`
	Visible  bool   `json:"visible"` // Показывал ли юнит индикатор загрузки
	Seq      uint64 `json:"seq"`

	// Результат
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
}
