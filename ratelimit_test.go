package relay

import (
	"context"
	"testing"
	"time"
)

func TestWithRateLimit_RPM_AllowsWithinLimit(t *testing.T) {
	stub := &stubRequester{results: []stubResult{
		{resp: Response{Content: "a"}},
		{resp: Response{Content: "b"}},
	}}
	r := WithRateLimit(stub, RPM(10))

	for i := 0; i < 2; i++ {
		if _, err := r.Complete(context.Background(), Request{}); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if stub.calls != 2 {
		t.Errorf("got %d calls, want 2", stub.calls)
	}
}

func TestWithRateLimit_RPM_BlocksWhenExceeded(t *testing.T) {
	stub := &stubRequester{results: make([]stubResult, 3)}
	r := WithRateLimit(stub, RPM(2))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	for i := 0; i < 2; i++ {
		if _, err := r.Complete(ctx, Request{}); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}

	// Third request exceeds the budget and must block until the ctx expires.
	_, err := r.Complete(ctx, Request{})
	if err != context.DeadlineExceeded {
		t.Errorf("got %v, want context.DeadlineExceeded", err)
	}
	if stub.calls != 2 {
		t.Errorf("got %d calls, want 2 (third blocked)", stub.calls)
	}
}

func TestWithRateLimit_TPM_BlocksWhenExceeded(t *testing.T) {
	stub := &stubRequester{results: []stubResult{
		{resp: Response{Content: "a", Usage: Usage{InputTokens: 60, OutputTokens: 50}}},
		{resp: Response{Content: "b"}},
	}}
	r := WithRateLimit(stub, TPM(100))

	if _, err := r.Complete(context.Background(), Request{}); err != nil {
		t.Fatalf("first request: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := r.Complete(ctx, Request{})
	if err != context.DeadlineExceeded {
		t.Errorf("got %v, want context.DeadlineExceeded", err)
	}
	if stub.calls != 1 {
		t.Errorf("got %d calls, want 1 (second blocked by token budget)", stub.calls)
	}
}

func TestWithRateLimit_TPM_AllowsWithinLimit(t *testing.T) {
	stub := &stubRequester{results: []stubResult{
		{resp: Response{Usage: Usage{InputTokens: 10, OutputTokens: 10}}},
		{resp: Response{Usage: Usage{InputTokens: 10, OutputTokens: 10}}},
	}}
	r := WithRateLimit(stub, TPM(1000))

	for i := 0; i < 2; i++ {
		if _, err := r.Complete(context.Background(), Request{}); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if stub.calls != 2 {
		t.Errorf("got %d calls, want 2", stub.calls)
	}
}

func TestWithRateLimit_CompleteStream(t *testing.T) {
	stub := &stubRequester{results: []stubResult{
		{deltas: []Delta{{Content: "hi"}}},
	}}
	r := WithRateLimit(stub, RPM(5))

	stream, err := r.CompleteStream(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	d, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if d.Content != "hi" {
		t.Errorf("delta = %q, want %q", d.Content, "hi")
	}
}

func TestWithRateLimit_Name(t *testing.T) {
	r := WithRateLimit(&stubRequester{})
	if r.Name() != "stub" {
		t.Errorf("Name() = %q, want %q", r.Name(), "stub")
	}
}
