package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexrabarts/ceo-agent/internal/apperr"
	"github.com/alexrabarts/ceo-agent/internal/config"
)

type usageRecorder struct {
	calls  int
	errors int
	tokens int
}

func (u *usageRecorder) LogUsage(service, action string, tokens int, duration time.Duration, err error) error {
	u.calls++
	u.tokens += tokens
	if err != nil {
		u.errors++
	}
	return nil
}

func completion(content string, tokens int) map[string]interface{} {
	return map[string]interface{}{
		"id":    "cmpl-1",
		"model": "deepseek/deepseek-chat",
		"choices": []map[string]interface{}{
			{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]int{"total_tokens": tokens},
	}
}

func newTestServer(t *testing.T, handler func(call int32, w http.ResponseWriter, r *http.Request)) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		handler(atomic.AddInt32(&calls, 1), w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testClient(url string, retries int, usage UsageLogger) *OpenRouterClient {
	return NewOpenRouterClient(config.AI{
		APIKey:     "test-key",
		BaseURL:    url + "/",
		Model:      "deepseek/deepseek-chat",
		MaxRetries: retries,
	}, usage)
}

func TestOpenRouterGenerate(t *testing.T) {
	srv, _ := newTestServer(t, func(_ int32, w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "привет" {
			t.Errorf("messages = %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(completion("  Здравствуйте!  ", 42))
	})

	usage := &usageRecorder{}
	text, err := testClient(srv.URL, 0, usage).Generate(context.Background(), Conversation("persona", "привет"))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "Здравствуйте!" {
		t.Errorf("Generate() = %q", text)
	}
	if usage.calls != 1 || usage.tokens != 42 {
		t.Errorf("usage = %+v", usage)
	}
}

func TestOpenRouterRetriesRateLimit(t *testing.T) {
	srv, calls := newTestServer(t, func(call int32, w http.ResponseWriter, _ *http.Request) {
		if call == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
			return
		}
		json.NewEncoder(w).Encode(completion("ok", 1))
	})

	text, err := testClient(srv.URL, 2, nil).Generate(context.Background(), Conversation("", "hi"))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "ok" || atomic.LoadInt32(calls) != 2 {
		t.Errorf("text = %q after %d calls", text, *calls)
	}
}

func TestOpenRouterDoesNotRetryClientErrors(t *testing.T) {
	srv, calls := newTestServer(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	})

	_, err := testClient(srv.URL, 3, nil).Generate(context.Background(), Conversation("", "hi"))
	if !errors.Is(err, apperr.ErrUpstreamUnavailable) {
		t.Fatalf("Generate() error = %v, want ErrUpstreamUnavailable", err)
	}
	if atomic.LoadInt32(calls) != 1 {
		t.Errorf("server called %d times, want 1", *calls)
	}
}

func TestOpenRouterEmptyChoices(t *testing.T) {
	srv, _ := newTestServer(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"id":"x","choices":[]}`))
	})

	usage := &usageRecorder{}
	_, err := testClient(srv.URL, 0, usage).Generate(context.Background(), Conversation("", "hi"))
	if !errors.Is(err, apperr.ErrUpstreamUnavailable) {
		t.Fatalf("Generate() error = %v, want ErrUpstreamUnavailable", err)
	}
	if usage.errors != 1 {
		t.Errorf("usage errors = %d, want 1", usage.errors)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("unexpected EOF"), true},
		{errors.New("invalid api key"), false},
	}
	for _, tt := range tests {
		if got := isRetryable(tt.err); got != tt.want {
			t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
