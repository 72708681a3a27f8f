package connectors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// maxBodySize ограничивает чтение ответа: аналитика с графиками укладывается с запасом.
const maxBodySize = 8 << 20

type HTTPClient struct {
	base   string
	token  string
	http   *http.Client
	logger *zap.Logger
}

// NewHTTPClient создает клиента JSON API. token опционален и уходит как Bearer.
func NewHTTPClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		base:   strings.TrimRight(baseURL, "/"),
		token:  token,
		http:   &http.Client{Timeout: timeout},
		logger: logger.Named("http-transport"),
	}
}

// Get реализует интерфейс Transport
func (c *HTTPClient) Get(ctx context.Context, endpoint string, query url.Values) (*Envelope, error) {
	u := c.base + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ErrCancelled
		}
		return nil, &TransportError{Endpoint: endpoint, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ErrCancelled
		}
		return nil, &TransportError{Endpoint: endpoint, Cause: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode/100 != 2 {
		trErr := &TransportError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
			Cause:      fmt.Errorf("unexpected status %s", resp.Status),
		}
		c.logger.Debug("analytics api returned non-2xx",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode))

		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, &ThrottleError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")), Cause: trErr}
		}
		return nil, trErr
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, endpoint, err)
	}
	return &env, nil
}

// errorMessage достаёт поле error из тела ошибки, если оно там есть.
func errorMessage(body []byte) string {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Error
}

// parseRetryAfter поддерживает оба формата заголовка: секунды и HTTP-дату.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Second
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return time.Second
}
