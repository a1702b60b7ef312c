package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized means the session token was rejected; it has been cleared.
	ErrUnauthorized = errors.New("session expired, sign in again")

	// ErrServer matches any 5xx response other than AI capacity.
	ErrServer = errors.New("server error")
)

// QuotaScope tells which AI limit was hit.
type QuotaScope string

const (
	ScopePersonal QuotaScope = "personal"
	ScopeServer   QuotaScope = "server"
)

// QuotaExceededError is returned when an AI request is refused for quota.
type QuotaExceededError struct {
	Scope  QuotaScope
	Detail string
}

func (e *QuotaExceededError) Error() string {
	if e.Scope == ScopePersonal {
		return "daily AI analysis quota used up: " + e.Detail
	}
	return "AI analysis is busy, try again later: " + e.Detail
}

// NetworkError wraps transport failures and undecodable responses.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is any other error response.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Detail)
}

// Is makes 401 responses match ErrUnauthorized and 5xx match ErrServer.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrServer:
		return e.Status >= 500
	}
	return false
}

// personalQuotaHints mark a 403 as the daily image quota rather than a plain
// permission error.
var personalQuotaHints = []string{"image", "이미지"}

// classify turns an error response into one of the client error kinds.
func classify(status int, body []byte) error {
	detail := responseDetail(body)

	switch {
	case status == http.StatusForbidden && hasHint(detail):
		return &QuotaExceededError{Scope: ScopePersonal, Detail: detail}
	case status == http.StatusServiceUnavailable:
		return &QuotaExceededError{Scope: ScopeServer, Detail: detail}
	default:
		return &APIError{Status: status, Detail: detail}
	}
}

func hasHint(detail string) bool {
	lower := strings.ToLower(detail)
	for _, h := range personalQuotaHints {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

// responseDetail extracts {"detail": ...}. Some endpoints send a list of
// validation objects instead of a string; those are flattened.
func responseDetail(body []byte) string {
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var s string
	if err := json.Unmarshal(parsed.Detail, &s); err == nil {
		return s
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(parsed.Detail, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, item := range list {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(parsed.Detail)
}
