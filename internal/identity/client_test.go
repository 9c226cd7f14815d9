package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("https://idp.example.test/v1", "sk_test")

		if c.baseURL != "https://idp.example.test/v1" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "https://idp.example.test/v1")
		}
		if c.secretKey != "sk_test" {
			t.Errorf("secretKey = %q, want %q", c.secretKey, "sk_test")
		}
		if c.httpClient.Timeout != 10*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 10*time.Second)
		}
		if c.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 3)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		hc := &http.Client{}
		c := NewClient("https://idp.example.test/v1", "",
			WithHTTPClient(hc),
			WithTimeout(2*time.Second),
			WithRetries(5, 10*time.Millisecond),
			WithLogger(logger),
		)
		if c.httpClient != hc {
			t.Error("custom HTTP client not set")
		}
		if hc.Timeout != 2*time.Second {
			t.Errorf("Timeout = %v, want %v", hc.Timeout, 2*time.Second)
		}
		if c.maxRetries != 5 || c.retryBackoff != 10*time.Millisecond {
			t.Errorf("retries = %d/%v, want 5/10ms", c.maxRetries, c.retryBackoff)
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
	})
}

func TestWithLogger_Nil(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"id":"user_1"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "", WithLogger(nil), WithRetries(1, time.Millisecond))
	if c.logger == nil {
		t.Fatal("WithLogger(nil) should keep the default logger")
	}
	// The retry path logs; it must not panic.
	if _, err := c.GetUser(context.Background(), "user_1"); err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
}

func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 404, Message: "Not Found"}
	if err.Error() != "identity api error 404: Not Found" {
		t.Errorf("Error() = %q", err.Error())
	}

	tests := []struct {
		code     int
		expected bool
	}{
		{500, true},
		{503, true},
		{429, true},
		{400, false},
		{401, false},
		{404, false},
	}
	for _, tt := range tests {
		if got := (&APIError{StatusCode: tt.code}).IsRetryable(); got != tt.expected {
			t.Errorf("IsRetryable() for status %d = %v, want %v", tt.code, got, tt.expected)
		}
	}
}

func TestGetUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/users/user_123" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/v1/users/user_123")
		}
		if r.Header.Get("Authorization") != "Bearer sk_test" {
			t.Errorf("Authorization header = %q, want %q", r.Header.Get("Authorization"), "Bearer sk_test")
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept header = %q, want %q", r.Header.Get("Accept"), "application/json")
		}
		w.Write([]byte(`{
			"id": "user_123",
			"first_name": "Ada",
			"last_name": "Lovelace",
			"image_url": "https://img.example.test/ada.png",
			"primary_email_address_id": "email_2",
			"email_addresses": [
				{"id": "email_1", "email_address": "old@example.test"},
				{"id": "email_2", "email_address": "ada@example.test"}
			]
		}`))
	}))
	defer server.Close()

	c := NewClient(server.URL+"/v1", "sk_test")
	user, err := c.GetUser(context.Background(), "user_123")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}

	if user.ID != "user_123" {
		t.Errorf("ID = %q, want %q", user.ID, "user_123")
	}
	if user.FirstName != "Ada" || user.LastName != "Lovelace" {
		t.Errorf("name = %q %q", user.FirstName, user.LastName)
	}
	if got := user.PrimaryEmail(); got != "ada@example.test" {
		t.Errorf("PrimaryEmail() = %q, want %q", got, "ada@example.test")
	}
}

func TestGetUser_NotFound(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors":[{"code":"resource_not_found"}]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "sk_test", WithRetries(3, time.Millisecond))
	_, err := c.GetUser(context.Background(), "user_missing")
	if !IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("404 should not be retried, got %d calls", calls.Load())
	}
}

func TestDoWithRetry(t *testing.T) {
	t.Run("retries server errors then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`{"id":"user_1"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "", WithRetries(3, time.Millisecond))
		user, err := c.GetUser(context.Background(), "user_1")
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if user.ID != "user_1" {
			t.Errorf("ID = %q, want %q", user.ID, "user_1")
		}
		if calls.Load() != 3 {
			t.Errorf("calls = %d, want 3", calls.Load())
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		c := NewClient(server.URL, "", WithRetries(2, time.Millisecond))
		_, err := c.GetUser(context.Background(), "user_1")
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "max retries exceeded") {
			t.Errorf("error = %v, want max retries exceeded", err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
			t.Errorf("expected wrapped 429 APIError, got %v", err)
		}
		if calls.Load() != 3 {
			t.Errorf("calls = %d, want 3", calls.Load())
		}
	})

	t.Run("context cancelled during backoff", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		c := NewClient(server.URL, "", WithRetries(5, time.Second))
		_, err := c.GetUser(ctx, "user_1")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("error = %v, want context.DeadlineExceeded", err)
		}
	})
}

func TestGetUser_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	if _, err := c.GetUser(context.Background(), "user_1"); err == nil {
		t.Error("expected unmarshal error")
	}
}

func TestPrimaryEmail_Fallbacks(t *testing.T) {
	u := &User{EmailAddresses: []EmailAddress{{ID: "a", EmailAddress: "first@example.test"}}}
	if got := u.PrimaryEmail(); got != "first@example.test" {
		t.Errorf("PrimaryEmail() = %q, want first address", got)
	}
	if got := (&User{}).PrimaryEmail(); got != "" {
		t.Errorf("PrimaryEmail() = %q, want empty", got)
	}
}

func TestAPIError_ProviderPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "huddle-test" {
			t.Errorf("User-Agent = %q, want %q", got, "huddle-test")
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors":[{"code":"form_param_invalid","message":"is invalid","long_message":"user_id is invalid"}]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "", WithUserAgent("huddle-test"))
	_, err := c.GetUser(context.Background(), "bad id")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "form_param_invalid" {
		t.Errorf("Code = %q, want %q", apiErr.Code, "form_param_invalid")
	}
	if apiErr.Message != "user_id is invalid" {
		t.Errorf("Message = %q, want long message", apiErr.Message)
	}
	if apiErr.IsRetryable() {
		t.Error("422 should not be retryable")
	}
}

func TestRetryAfterHonoured(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"id":"user_1"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "", WithRetries(1, time.Millisecond))
	start := time.Now()
	if _, err := c.GetUser(context.Background(), "user_1"); err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("retried after %v, want at least the 1s Retry-After", elapsed)
	}
}
