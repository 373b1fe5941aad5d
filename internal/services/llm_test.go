package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"autoreply/internal/config"
)

func chatResponse(content string) ChatResponse {
	resp := ChatResponse{
		Choices: []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}{{}},
	}
	resp.Choices[0].Message.Content = content
	return resp
}

func TestGenerateReply(t *testing.T) {
	// 模拟 API 服务器
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("Expected Bearer test-token, got %s", r.Header.Get("Authorization"))
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("Expected test-model, got %s", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Fatalf("unexpected messages: %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[1].Content, "@alice") || !strings.Contains(req.Messages[1].Content, "nice post!") {
			t.Errorf("user prompt missing author or text: %q", req.Messages[1].Content)
		}

		json.NewEncoder(w).Encode(chatResponse("  Thanks!  "))
	}))
	defer server.Close()

	s := NewLLMService(config.LLMConfig{BaseURL: server.URL + "/", Token: "test-token", Model: "test-model"})

	reply, err := s.GenerateReply(context.Background(), "nice post!", "alice")
	if err != nil {
		t.Fatalf("GenerateReply failed: %v", err)
	}
	if reply != "Thanks!" {
		t.Errorf("Expected Thanks!, got %q", reply)
	}
}

func TestGenerateReplyFailures(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusInternalServerError)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if code := int(status.Load()); code != http.StatusOK {
			http.Error(w, "upstream broke", code)
			return
		}
		json.NewEncoder(w).Encode(chatResponse(""))
	}))
	defer server.Close()

	s := NewLLMService(config.LLMConfig{BaseURL: server.URL, Model: "m"})
	if _, err := s.GenerateReply(context.Background(), "hi", ""); err == nil {
		t.Fatal("expected error on 500")
	}

	status.Store(http.StatusOK)
	if _, err := s.GenerateReply(context.Background(), "hi", ""); err != ErrEmptyReply {
		t.Fatalf("expected ErrEmptyReply, got %v", err)
	}

	// 配置了兜底回复时，失败返回兜底文本
	status.Store(http.StatusBadGateway)
	s = NewLLMService(config.LLMConfig{BaseURL: server.URL, Model: "m", FallbackReply: "Thanks for your comment!"})
	reply, err := s.GenerateReply(context.Background(), "hi", "")
	if err != nil {
		t.Fatalf("expected fallback, got error %v", err)
	}
	if reply != "Thanks for your comment!" {
		t.Errorf("unexpected fallback %q", reply)
	}
}
