package connectors

import (
	"context"
	"net/url"

	"github.com/goccy/go-json"
)

// Transport контракт клиента аналитического API. Реализации обязаны уважать ctx:
// отмена возвращается как ErrCancelled, всё остальное — как *TransportError / *ThrottleError.
type Transport interface {
	Get(ctx context.Context, endpoint string, query url.Values) (*Envelope, error)
}

// Envelope стандартная обёртка ответа бэкенда {success, data, error}.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

// HasData data присутствует и не равна null.
func (e *Envelope) HasData() bool {
	return e != nil && len(e.Data) > 0 && string(e.Data) != "null"
}
