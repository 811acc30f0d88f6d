package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Sentinel errors wrapped by Error for common statuses.
var (
	ErrAuthExpired = errors.New("authentication expired, please log in again")
	ErrNotFound    = errors.New("not found")
)

// Error is a request the server answered with an error.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes ErrAuthExpired for 401 and ErrNotFound for 404.
func (e *Error) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrAuthExpired
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// IsRetryable reports whether another attempt could succeed: transport failures,
// timeouts, 408, 429 and 5xx. Validation and business-rule rejections are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusRequestTimeout ||
			apiErr.StatusCode == http.StatusTooManyRequests ||
			apiErr.StatusCode >= http.StatusInternalServerError
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// errorMessage extracts the server's message from an error response body.
// Formats are tried in order: {success:false, error:{message|details}},
// {detail: string | [{msg}]}, {code != 200, message}.
func errorMessage(status int, path string, body map[string]any) string {
	if body != nil {
		if msg, ok := envelopeError(body); ok {
			return msg
		}
		if detail, ok := body["detail"]; ok && detail != nil {
			msg := detailMessage(detail)
			if status == http.StatusNotFound && strings.Contains(msg, "Not Found") {
				return "endpoint not found: " + path
			}
			return msg
		}
		if msg, ok := legacyError(body); ok {
			return msg
		}
	}
	switch status {
	case http.StatusNotFound:
		return "endpoint not found: " + path
	case http.StatusUnauthorized:
		return ErrAuthExpired.Error()
	}
	return fmt.Sprintf("HTTP error! status: %d", status)
}

func envelopeError(body map[string]any) (string, bool) {
	success, ok := body["success"].(bool)
	if !ok || success {
		return "", false
	}
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		if s, isStr := body["error"].(string); isStr && s != "" {
			return s, true
		}
		return "request failed", true
	}
	for _, key := range []string{"message", "details"} {
		if v, found := errObj[key]; found && v != nil {
			return stringify(v), true
		}
	}
	return "request failed", true
}

func detailMessage(detail any) string {
	switch d := detail.(type) {
	case string:
		return d
	case []any:
		if len(d) > 0 {
			if first, ok := d[0].(map[string]any); ok {
				if msg, isStr := first["msg"].(string); isStr {
					return msg
				}
			}
		}
	}
	return stringify(detail)
}

// legacyError reads {code, message} from an error response. A zero code carries
// no information there and is ignored.
func legacyError(body map[string]any) (string, bool) {
	code, ok := body["code"].(float64)
	if !ok || code == 0 || code == http.StatusOK {
		return "", false
	}
	if msg, isStr := body["message"].(string); isStr && msg != "" {
		return msg, true
	}
	return "request failed", true
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
