package httpclient

import (
	"encoding/json"
	"fmt"
	"strings"
)

// UpstreamError is a non-2xx reply from a vendor API.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d from %s", e.StatusCode, e.URL)
}

// Message extracts the human-readable message from the common vendor error
// envelopes ({"error":{"message":...}} and {"error":"..."}), falling back
// to the raw body.
func (e *UpstreamError) Message() string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(e.Body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}

	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(e.Body, &flat) == nil && flat.Error != "" {
		return flat.Error
	}

	if msg := strings.TrimSpace(string(e.Body)); msg != "" {
		return msg
	}
	return fmt.Sprintf("status %d", e.StatusCode)
}
