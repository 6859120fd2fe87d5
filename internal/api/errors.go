package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError represents a non-2xx response.
type APIError struct {
	StatusCode int
	Status     string         // Status description, e.g. "Bad Request"
	Message    string         // Human-readable message derived from the body
	Data       map[string]any // Decoded error body (nil when not a JSON object)
	Body       []byte
}

func (e *APIError) Error() string {
	return e.Message
}

// Field returns the raw "error" field of the body, if present.
func (e *APIError) Field() any {
	if e.Data == nil {
		return nil
	}
	return e.Data["error"]
}

// newAPIError builds an APIError from a failed response. The message is the
// first of: the "error" list joined by newlines (empty for an empty list),
// the "error" value, the "detail" value, the status description.
func newAPIError(statusCode int, status string, body []byte) *APIError {
	e := &APIError{
		StatusCode: statusCode,
		Status:     statusText(statusCode, status),
		Body:       body,
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err == nil {
		e.Data = data
	}

	e.Message = e.Status
	if list, ok := e.Data["error"].([]any); ok {
		lines := make([]string, len(list))
		for i, item := range list {
			lines[i] = stringify(item)
		}
		e.Message = strings.Join(lines, "\n")
	} else if v := e.Data["error"]; present(v) {
		e.Message = stringify(v)
	} else if v := e.Data["detail"]; present(v) {
		e.Message = stringify(v)
	}

	return e
}

// statusText strips the numeric code from resp.Status ("404 Not Found").
func statusText(code int, status string) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	if _, text, ok := strings.Cut(status, " "); ok && text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", code)
}

// present reports whether v carries a usable value.
func present(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case float64:
		return val != 0
	case []any:
		return len(val) > 0
	default:
		return true
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64, bool:
		return fmt.Sprint(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
