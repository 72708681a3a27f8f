package connectors

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// DefaultGRPCMethod unary-метод аналитического сервиса. Запрос и ответ — google.protobuf.Struct,
// поэтому сгенерированный клиент не нужен.
const DefaultGRPCMethod = "/clickpulse.analytics.v1.AnalyticsService/Get"

type GRPCAdapter struct {
	conn   grpc.ClientConnInterface
	method string
}

// NewGRPCAdapter создает экземпляр адаптера
func NewGRPCAdapter(conn grpc.ClientConnInterface, method string) *GRPCAdapter {
	if method == "" {
		method = DefaultGRPCMethod
	}
	return &GRPCAdapter{
		conn:   conn,
		method: method,
	}
}

// Get реализует интерфейс Transport
func (a *GRPCAdapter) Get(ctx context.Context, endpoint string, query url.Values) (*Envelope, error) {
	// 1. Упаковываем endpoint и query в Protobuf Struct
	q := make(map[string]interface{}, len(query))
	for k := range query {
		q[k] = query.Get(k)
	}
	req, err := structpb.NewStruct(map[string]interface{}{
		"endpoint": endpoint,
		"query":    q,
	})
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Cause: fmt.Errorf("failed to create proto struct: %w", err)}
	}

	// 2. Выполняем вызов
	resp := &structpb.Struct{}
	if err := a.conn.Invoke(ctx, a.method, req, resp); err != nil {
		code := status.Code(err)
		if code == codes.Canceled {
			return nil, ErrCancelled
		}
		if code == codes.DeadlineExceeded {
			return nil, &TransportError{Endpoint: endpoint, Cause: context.DeadlineExceeded}
		}
		return nil, &TransportError{
			Endpoint:   endpoint,
			StatusCode: httpStatus(code),
			Message:    status.Convert(err).Message(),
			Cause:      err,
		}
	}

	// 3. Разбираем ответ в ту же обёртку, что и HTTP
	m := resp.AsMap()
	env := &Envelope{}
	env.Success, _ = m["success"].(bool)
	env.Error, _ = m["error"].(string)
	if data, ok := m["data"]; ok {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, endpoint, err)
		}
		env.Data = raw
	}
	return env, nil
}

// httpStatus сводит gRPC-коды к HTTP, чтобы Classify работал одинаково для обоих транспортов.
// Сетевые коды (Unavailable) остаются 0 — это "нет связи", а не ответ сервера.
func httpStatus(code codes.Code) int {
	switch code {
	case codes.NotFound:
		return http.StatusNotFound
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable:
		return 0
	default:
		return http.StatusInternalServerError
	}
}
