package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("rejected by server")
	ErrServer       = errors.New("server error")

	errCredentialStore = errors.New("credential store")
)

// APIError is a response with status >= 400. Detail holds the server's
// human-readable message when it sent one.
type APIError struct {
	Status int
	Detail string
	Body   []byte
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, http.StatusText(e.Status))
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrValidation:
		return e.Status >= 400 && e.Status < 500 && e.Status != http.StatusUnauthorized
	case ErrServer:
		return e.Status >= 500
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Detail returns the server-provided message carried by err, or "".
func Detail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{Status: status, Detail: extractDetail(body), Body: body}
}

// extractDetail reads {"detail": ...} (or {"message": ...}). Structured
// details such as validation error lists are returned as compact JSON.
func extractDetail(body []byte) string {
	var envelope struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}

	if len(envelope.Detail) > 0 && string(envelope.Detail) != "null" {
		var s string
		if err := json.Unmarshal(envelope.Detail, &s); err == nil {
			return s
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, envelope.Detail); err == nil {
			return buf.String()
		}
	}
	return strings.TrimSpace(envelope.Message)
}

// Kind is the diagnostic class of a failed call.
type Kind string

const (
	KindNone    Kind = ""
	KindNetwork Kind = "network"
	KindServer  Kind = "server"
	KindClient  Kind = "client"
)

// Classify tells whether err never reached the server (network), was
// answered with an error status (server) or failed locally (client).
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnavailable):
		return KindNetwork
	case StatusCode(err) != 0:
		return KindServer
	default:
		return KindClient
	}
}
