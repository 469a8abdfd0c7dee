package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tourguide/internal/domain"
)

func newTestGenerator(url string) *Generator {
	return NewGenerator(ClientConfig{APIKey: "test-key", BaseURL: url}, zap.NewNop())
}

func TestGenerator_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[
			{"index":0,"message":{"role":"assistant","content":"tour_query"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":12,"completion_tokens":2,"total_tokens":14}}`)
	}))
	defer srv.Close()

	out, err := newTestGenerator(srv.URL).Complete(context.Background(),
		[]domain.ChatMessage{{Role: domain.RoleUser, Content: "Tour Đà Nẵng"}},
		domain.GenerationParams{Model: "m", Temperature: 0.1, MaxTokens: 10, JSON: true},
	)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "tour_query" {
		t.Errorf("out = %q", out)
	}
	if got["model"] != "m" || got["max_tokens"] != float64(10) {
		t.Errorf("request = %v", got)
	}
	rf, _ := got["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("response_format = %v", got["response_format"])
	}
}

func TestGenerator_CompleteNoJSONFormat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	if _, err := newTestGenerator(srv.URL).Complete(context.Background(), nil,
		domain.GenerationParams{Model: "m"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, ok := got["response_format"]; ok {
		t.Errorf("response_format must be omitted: %v", got["response_format"])
	}
}

func TestGenerator_CompleteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"upstream 500", http.StatusInternalServerError, `{"error":{"message":"secret upstream detail"}}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestGenerator(srv.URL).Complete(context.Background(), nil, domain.GenerationParams{Model: "m"})
			if !errors.Is(err, domain.ErrGenerationFailed) {
				t.Fatalf("expected ErrGenerationFailed, got %v", err)
			}
		})
	}
}

func sseServer(t *testing.T, deltas []string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			chunk := map[string]any{
				"id":      "1",
				"object":  "chat.completion.chunk",
				"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": d}}},
			}
			b, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", b)
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerator_Stream(t *testing.T) {
	srv := sseServer(t, []string{"Xin ", "", "chào", "!"})

	s, err := newTestGenerator(srv.URL).Stream(context.Background(),
		[]domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
		domain.GenerationParams{Model: "m"})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer s.Close()

	var parts []string
	for {
		frag, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		parts = append(parts, frag)
	}
	if strings.Join(parts, "|") != "Xin |chào|!" {
		t.Errorf("fragments = %q", parts)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestGenerator_StreamOpenError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key"}}`)
	}))
	defer srv.Close()

	_, err := newTestGenerator(srv.URL).Stream(context.Background(), nil, domain.GenerationParams{Model: "m"})
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}
