package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/docintel/internal/core/domain"
)

func TestGenerateRequestsJSONObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		format, _ := req["response_format"].(map[string]any)
		if format["type"] != "json_object" || req["model"] != "gpt-test" {
			t.Errorf("unexpected request: %v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"summary\":\"s\"}"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	out, err := New(server.URL+"/v1", "gpt-test", "sk-test", time.Second, nil).Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != `{"summary":"s"}` {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestGenerateMapsStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		kind   error
	}{
		{http.StatusServiceUnavailable, domain.ErrTemporary},
		{http.StatusUnauthorized, domain.ErrProviderUnavailable},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"server_error"}}`))
		}))
		_, err := New(server.URL+"/v1", "m", "k", time.Second, nil).Generate(context.Background(), "p")
		server.Close()
		if !errors.Is(err, tc.kind) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.kind, err)
		}
	}
}

func TestGenerateNoChoicesIsParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","choices":[]}`))
	}))
	defer server.Close()

	_, err := New(server.URL+"/v1", "m", "k", time.Second, nil).Generate(context.Background(), "p")
	if !errors.Is(err, domain.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}
