package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnexpectedBody is returned when a JSON search response has no results list.
var ErrUnexpectedBody = errors.New("unexpected server response: no results list")

// HTTPError is a non-2xx response with the message extracted from its body.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// TransportError means no response was received at all.
type TransportError struct {
	Op  string // "POST /_read/lectura"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsHTTP reports whether err wraps an *HTTPError.
func IsHTTP(err error) bool {
	var he *HTTPError
	return errors.As(err, &he)
}

// IsTransport reports whether err wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsCanceled reports whether err came from a cancelled context rather than a
// genuine failure. Cancelled calls are never surfaced to users.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// FallbackMessage is used when an error body cannot be read or parsed.
const FallbackMessage = "request failed"

// ErrorMessage extracts a human-readable message from an error response.
//
// JSON bodies are searched in order for:
//   - detail as an array: each item's msg (or its JSON) joined with " | "
//   - detail as an object: its msg, else its JSON
//   - detail as a string
//   - message
//
// and fall back to the whole body re-encoded. Non-JSON bodies are returned
// verbatim.
func ErrorMessage(resp *Response) string {
	if resp == nil {
		return FallbackMessage
	}
	if !resp.IsJSON() {
		return string(resp.Body)
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return FallbackMessage
	}

	if detail, ok := body["detail"]; ok && detail != nil {
		switch d := detail.(type) {
		case []any:
			parts := make([]string, 0, len(d))
			for _, item := range d {
				parts = append(parts, detailItemMessage(item))
			}
			return strings.Join(parts, " | ")
		case map[string]any:
			if msg, ok := d["msg"].(string); ok && msg != "" {
				return msg
			}
			return compactJSON(d)
		case string:
			if d != "" {
				return d
			}
		default:
			return compactJSON(d)
		}
	}

	if msg, ok := body["message"].(string); ok && msg != "" {
		return msg
	}
	return compactJSON(body)
}

func detailItemMessage(item any) string {
	if m, ok := item.(map[string]any); ok {
		if msg, ok := m["msg"].(string); ok && msg != "" {
			return msg
		}
	}
	return compactJSON(item)
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return FallbackMessage
	}
	return string(b)
}
