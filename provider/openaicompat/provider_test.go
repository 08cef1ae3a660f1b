package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okonen/relay"
)

func TestClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth = %q", got)
		}
		var body ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model != "gpt-test" || len(body.Messages) != 1 {
			t.Errorf("body = %+v", body)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"hello"}}],"usage":{"prompt_tokens":4,"completion_tokens":1}}`)
	}))
	defer srv.Close()

	c := New("test-key", srv.URL)
	resp, err := c.Complete(context.Background(), relay.Request{
		Model: "gpt-test",
		Turns: []relay.Turn{relay.UserTurn("hi")},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "hello" || resp.Usage.InputTokens != 4 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestClientCompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New("", srv.URL)
	_, err := c.Complete(context.Background(), relay.Request{Model: "m"})

	var te *relay.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TransportError", err)
	}
	var he *relay.HTTPError
	if !errors.As(err, &he) || he.Status != http.StatusTooManyRequests {
		t.Fatalf("err = %v, want wrapped HTTPError 429", err)
	}
}

func TestClientCompleteConnectionRefused(t *testing.T) {
	c := New("", "http://127.0.0.1:1")
	_, err := c.Complete(context.Background(), relay.Request{Model: "m"})
	var te *relay.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TransportError", err)
	}
}

func TestClientCompleteStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body ChatRequest
		json.NewDecoder(r.Body).Decode(&body)
		if !body.Stream {
			t.Error("stream flag not set")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"he"}}]}`+"\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"y"}}]}`+"\n")
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer srv.Close()

	c := New("", srv.URL)
	stream, err := c.CompleteStream(context.Background(), relay.Request{
		Model: "gpt-test",
		Turns: []relay.Turn{relay.UserTurn("hi")},
	})
	if err != nil {
		t.Fatalf("CompleteStream: %v", err)
	}
	defer stream.Close()

	asm := relay.NewAssembler(nil)
	if err := asm.Drain(stream); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	text, calls := asm.Finalize()
	if text != "hey" || calls != nil {
		t.Fatalf("text=%q calls=%v", text, calls)
	}
}

func TestClientCompleteStreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New("", srv.URL)
	_, err := c.CompleteStream(context.Background(), relay.Request{Model: "m"})
	var he *relay.HTTPError
	if !errors.As(err, &he) || he.Status != http.StatusBadRequest {
		t.Fatalf("err = %v, want wrapped HTTPError 400", err)
	}
}
