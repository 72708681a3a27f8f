package connectors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrCancelled запрос отменён вызывающей стороной. Не является пользовательской ошибкой.
	ErrCancelled = errors.New("request cancelled")
	// ErrMalformedResponse success:false, нет data или тело не разбирается.
	ErrMalformedResponse = errors.New("malformed analytics response")
	// ErrUnavailable предохранитель разомкнут, запросы временно не отправляются.
	ErrUnavailable = errors.New("analytics api temporarily unavailable")
)

// TransportError сетевой сбой (StatusCode == 0) или не-2xx ответ.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Message    string // error из тела ответа, если бэкенд его прислал
	Cause      error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transport: GET %s failed: %v", e.Endpoint, e.Cause)
	}
	if e.Message != "" {
		return fmt.Sprintf("transport: GET %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("transport: GET %s: HTTP %d", e.Endpoint, e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Cause }

type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

func (e *ThrottleError) Unwrap() error { return e.Cause }

// IsCancelled распознаёт отмену в любом виде: наш sentinel или голый context.Canceled.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// Classify превращает ошибку в человекочитаемое сообщение для State.LastError.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var tErr *ThrottleError
	if errors.As(err, &tErr) {
		return fmt.Sprintf("Too many requests to the analytics API, retry in %s", tErr.RetryAfter.Round(time.Second))
	}

	switch {
	case errors.Is(err, ErrUnavailable):
		return "Analytics API is temporarily unavailable, retrying later"
	case errors.Is(err, ErrMalformedResponse):
		return "Invalid response from the analytics API"
	case errors.Is(err, context.DeadlineExceeded):
		return "Analytics request timed out"
	}

	var trErr *TransportError
	if errors.As(err, &trErr) {
		switch {
		case trErr.StatusCode == 0:
			return "Network error: cannot reach the analytics API"
		case trErr.StatusCode == http.StatusNotFound:
			return "Analytics not found for this link (HTTP 404)"
		case trErr.StatusCode == http.StatusUnauthorized || trErr.StatusCode == http.StatusForbidden:
			return fmt.Sprintf("Access to analytics denied (HTTP %d)", trErr.StatusCode)
		case trErr.StatusCode >= http.StatusInternalServerError:
			return fmt.Sprintf("Analytics service error (HTTP %d)", trErr.StatusCode)
		default:
			return fmt.Sprintf("Analytics request failed (HTTP %d)", trErr.StatusCode)
		}
	}

	return "Failed to load analytics: " + err.Error()
}
