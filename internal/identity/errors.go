package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// APIError is a non-2xx response from the identity provider.
type APIError struct {
	StatusCode int
	Code       string // Provider error code, e.g. "resource_not_found"
	Message    string
	Body       []byte
	RetryAfter time.Duration // From the Retry-After header, if any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the request may succeed if sent again.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsNotFound reports whether err is a 404 from the provider.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// errorPayload is the provider's error envelope.
type errorPayload struct {
	Errors []struct {
		Code        string `json:"code"`
		Message     string `json:"message"`
		LongMessage string `json:"long_message"`
	} `json:"errors"`
}

// newAPIError builds an APIError from a failed response, preferring the
// provider's own message over the status text.
func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
		Body:       body,
	}

	var payload errorPayload
	if json.Unmarshal(body, &payload) == nil && len(payload.Errors) > 0 {
		first := payload.Errors[0]
		apiErr.Code = first.Code
		switch {
		case first.LongMessage != "":
			apiErr.Message = first.LongMessage
		case first.Message != "":
			apiErr.Message = first.Message
		}
	}

	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}

	return apiErr
}
