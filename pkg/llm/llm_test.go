package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMockProvider(t *testing.T) {
	mock := &MockProvider{Response: "Hello world"}
	resp, err := mock.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "Hello world" {
		t.Errorf("Expected 'Hello world', got '%s'", resp.Content)
	}
}

func TestMockProviderStream(t *testing.T) {
	mock := &MockProvider{Response: "streamed"}
	chunks, err := mock.ChatStream(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	var content string
	var done bool
	for chunk := range chunks {
		if chunk.Error != nil {
			t.Fatalf("unexpected chunk error: %v", chunk.Error)
		}
		content += chunk.Content
		if chunk.Done {
			done = true
			if chunk.Usage == nil {
				t.Errorf("expected usage on terminal chunk")
			}
		}
	}
	if content != "streamed" {
		t.Errorf("expected 'streamed', got %q", content)
	}
	if !done {
		t.Errorf("expected terminal chunk")
	}
}

func TestFailingMockProvider(t *testing.T) {
	mock := &FailingMockProvider{}
	if _, err := mock.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestScriptedMockProvider(t *testing.T) {
	mock := NewScriptedMockProvider("first", "second")

	resp, err := mock.Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "first" {
		t.Errorf("expected 'first', got %q", resp.Content)
	}

	resp, err = mock.Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "second" {
		t.Errorf("expected 'second', got %q", resp.Content)
	}

	if _, err := mock.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatal("expected error when script exhausted")
	}
	if mock.CallCount != 3 {
		t.Errorf("expected 3 calls, got %d", mock.CallCount)
	}
}

func TestOpenAIProviderOptions(t *testing.T) {
	p := NewOpenAI(WithModel("gpt-4o"), WithAPIKey("test-key"))
	if p.model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %s", p.model)
	}
	if len(p.reqOpts) != 1 {
		t.Errorf("expected 1 request option, got %d", len(p.reqOpts))
	}
}

// A cancelled stream with a full buffer and no reader must still terminate:
// the producer drops the error chunk instead of blocking on the send.
func TestOpenAIStreamAbandonedConsumer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 150; i++ {
			fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"x"}}]}`+"\n\n")
		}
		w.(http.Flusher).Flush()
		// Hold the stream open so the producer stays blocked on a full
		// buffer until the context is cancelled.
		<-r.Context().Done()
	}))
	defer srv.Close()

	p := NewOpenAI(WithAPIKey("test-key"), WithBaseURL(srv.URL))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chunks, err := p.ChatStream(ctx, ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	// No reads: let the producer fill its buffer, then cancel.
	time.Sleep(100 * time.Millisecond)
	cancel()
	time.Sleep(100 * time.Millisecond)

	timeout := time.After(5 * time.Second)
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			if chunk.Error != nil {
				t.Fatalf("unexpected error chunk: %v", chunk.Error)
			}
		case <-timeout:
			t.Fatal("stream channel never closed")
		}
	}
}
