package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("https://api.example.com", "test-token")

		if c.baseURL != "https://api.example.com" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "https://api.example.com")
		}
		if c.authToken != "test-token" {
			t.Errorf("authToken = %q, want %q", c.authToken, "test-token")
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
		if c.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 3)
		}
	})

	t.Run("with options", func(t *testing.T) {
		c := NewClient("https://api.example.com", "",
			WithTimeout(5*time.Second),
			WithRetries(5, 2*time.Second),
		)
		if c.httpClient.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 5*time.Second)
		}
		if c.maxRetries != 5 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 5)
		}
		if c.retryBackoff != 2*time.Second {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, 2*time.Second)
		}
	})
}

// TestAPIError tests the APIError type.
func TestAPIError(t *testing.T) {
	t.Run("Error method", func(t *testing.T) {
		err := &APIError{
			StatusCode: 404,
			Message:    "Not Found",
		}
		expected := "calldeck api error 404: Not Found"
		if err.Error() != expected {
			t.Errorf("Error() = %q, want %q", err.Error(), expected)
		}
	})

	t.Run("IsRetryable", func(t *testing.T) {
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
			err := &APIError{StatusCode: tt.code}
			if got := err.IsRetryable(); got != tt.expected {
				t.Errorf("IsRetryable() for status %d = %v, want %v", tt.code, got, tt.expected)
			}
		}
	})
}

// TestDoRequest tests the HTTP request functionality.
func TestDoRequest(t *testing.T) {
	t.Run("sends auth header", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Accept") != "application/json" {
				t.Errorf("Accept header = %q, want %q", r.Header.Get("Accept"), "application/json")
			}
			if r.Header.Get("Authorization") != "Bearer test-token" {
				t.Errorf("Authorization header = %q, want %q", r.Header.Get("Authorization"), "Bearer test-token")
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status": "ok"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "test-token")
		body, err := c.doRequest(context.Background(), http.MethodGet, "/test", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"status": "ok"}` {
			t.Errorf("body = %q, want %q", string(body), `{"status": "ok"}`)
		}
	})

	t.Run("no auth header without token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "" {
				t.Errorf("Authorization header should be empty, got %q", r.Header.Get("Authorization"))
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		if _, err := c.doRequest(context.Background(), http.MethodGet, "/test", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("4xx error returns APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error": "call not found"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "token")
		_, err := c.doRequest(context.Background(), http.MethodGet, "/test", nil)
		if err == nil {
			t.Fatal("expected error, got nil")
		}

		apiErr, ok := err.(*APIError)
		if !ok {
			t.Fatalf("expected *APIError, got %T", err)
		}
		if apiErr.StatusCode != 404 {
			t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, 404)
		}
		if !strings.Contains(string(apiErr.Body), "call not found") {
			t.Errorf("Body should contain 'call not found', got %q", string(apiErr.Body))
		}
	})
}

// TestDoWithRetry tests the retry logic.
func TestDoWithRetry(t *testing.T) {
	t.Run("retries on 5xx and succeeds", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&attempts, 1)
			if n < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"ok": true}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "token", WithRetries(3, 10*time.Millisecond))
		body, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"ok": true}` {
			t.Errorf("body = %q, want %q", string(body), `{"ok": true}`)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("does not retry on 4xx (except 429)", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		c := NewClient(server.URL, "token", WithRetries(3, 10*time.Millisecond))
		_, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		c := NewClient(server.URL, "token", WithRetries(2, 10*time.Millisecond))
		_, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "max retries exceeded") {
			t.Errorf("error should contain 'max retries exceeded', got %v", err)
		}
		// 1 initial + 2 retries = 3 attempts
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})
}

// TestGetCalls tests the GetCalls method.
func TestGetCalls(t *testing.T) {
	t.Run("basic request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/calls" {
				t.Errorf("path = %q, want %q", r.URL.Path, "/calls")
			}
			json.NewEncoder(w).Encode(CallsResponse{
				Calls: []APICall{
					{ID: "c1", Status: "in_progress"},
					{ID: "c2", Status: "ringing"},
				},
			})
		}))
		defer server.Close()

		c := NewClient(server.URL, "token")
		resp, err := c.GetCalls(context.Background(), GetCallsOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resp.Calls) != 2 {
			t.Errorf("len(Calls) = %d, want 2", len(resp.Calls))
		}
		if resp.Calls[0].ID != "c1" {
			t.Errorf("Calls[0].ID = %q, want c1", resp.Calls[0].ID)
		}
	})

	t.Run("with options", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("limit") != "100" {
				t.Errorf("limit = %q, want 100", q.Get("limit"))
			}
			if q.Get("status") != "escalated" {
				t.Errorf("status = %q, want escalated", q.Get("status"))
			}
			if q.Get("active") != "true" {
				t.Errorf("active = %q, want true", q.Get("active"))
			}
			json.NewEncoder(w).Encode(CallsResponse{})
		}))
		defer server.Close()

		c := NewClient(server.URL, "token")
		_, err := c.GetCalls(context.Background(), GetCallsOptions{
			Limit:  100,
			Status: "escalated",
			Active: true,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

// TestGetAllCalls tests pagination through all calls.
func TestGetAllCalls(t *testing.T) {
	t.Run("multiple pages", func(t *testing.T) {
		var requestCount int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count := atomic.AddInt32(&requestCount, 1)
			cursor := r.URL.Query().Get("cursor")

			switch {
			case count == 1 && cursor == "":
				json.NewEncoder(w).Encode(CallsResponse{
					Calls:  []APICall{{ID: "c1"}, {ID: "c2"}},
					Cursor: "page2",
				})
			case count == 2 && cursor == "page2":
				json.NewEncoder(w).Encode(CallsResponse{
					Calls:  []APICall{{ID: "c3"}},
					Cursor: "",
				})
			default:
				t.Errorf("unexpected request: count=%d cursor=%q", count, cursor)
			}
		}))
		defer server.Close()

		c := NewClient(server.URL, "token")
		calls, err := c.GetAllCalls(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(calls) != 3 {
			t.Errorf("len(calls) = %d, want 3", len(calls))
		}
		if requestCount != 2 {
			t.Errorf("requestCount = %d, want 2", requestCount)
		}
	})
}

// TestGetCall tests fetching a single call.
func TestGetCall(t *testing.T) {
	t.Run("successful fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/calls/c1" {
				t.Errorf("path = %q, want %q", r.URL.Path, "/calls/c1")
			}
			json.NewEncoder(w).Encode(SingleCallResponse{
				Call: APICall{ID: "c1", Status: "on_hold", AssignedAgent: "agent-2"},
			})
		}))
		defer server.Close()

		c := NewClient(server.URL, "token")
		call, err := c.GetCall(context.Background(), "c1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if call.Status != "on_hold" {
			t.Errorf("Status = %q, want on_hold", call.Status)
		}
	})

	t.Run("not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		c := NewClient(server.URL, "token", WithRetries(0, time.Millisecond))
		_, err := c.GetCall(context.Background(), "nope")
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError in wrapped error, got %T: %v", err, err)
		}
		if apiErr.StatusCode != 404 {
			t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
		}
	})
}

// TestGetInteractions tests fetching an interaction history.
func TestGetInteractions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calls/c1/interactions" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/calls/c1/interactions")
		}
		json.NewEncoder(w).Encode(InteractionsResponse{
			Interactions: []APIInteraction{
				{ID: "i1", CallID: "c1", Speaker: "caller", Content: "hello"},
				{ID: "i2", CallID: "c1", Speaker: "agent", Content: "hi"},
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "token")
	list, err := c.GetInteractions(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[1].Speaker != "agent" {
		t.Errorf("Speaker = %q, want agent", list[1].Speaker)
	}
}

// TestGetNotifications tests the notification list endpoint.
func TestGetNotifications(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/notifications" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/notifications")
		}
		if r.URL.Query().Get("unread") != "true" {
			t.Errorf("unread = %q, want true", r.URL.Query().Get("unread"))
		}
		json.NewEncoder(w).Encode(NotificationsResponse{
			Notifications: []APINotification{
				{ID: "n1", Kind: "export_ready", Message: "export done"},
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "token")
	resp, err := c.GetNotifications(context.Background(), GetNotificationsOptions{Unread: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Notifications) != 1 {
		t.Fatalf("len = %d, want 1", len(resp.Notifications))
	}
	if resp.Notifications[0].Kind != "export_ready" {
		t.Errorf("Kind = %q, want export_ready", resp.Notifications[0].Kind)
	}
}
