package httpjson

import (
	"fmt"
	"net/http"
	"strings"
)

const maxErrorBody = 512

// StatusError reports a non-2xx response from an upstream API.
type StatusError struct {
	Status int
	Body   string
}

func NewStatusError(status int, body []byte) *StatusError {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	return &StatusError{Status: status, Body: text}
}

func (e *StatusError) Error() string {
	status := fmt.Sprintf("%d", e.Status)
	if text := http.StatusText(e.Status); text != "" {
		status += " " + text
	}
	if e.Body == "" {
		return "upstream status " + status
	}
	return "upstream status " + status + ": " + e.Body
}
