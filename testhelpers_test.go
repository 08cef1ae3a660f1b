package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"
)

// mockRequester pops scripted responses in order. Streaming requests
// replay the same scripted response as a delta sequence.
type mockRequester struct {
	name      string
	responses []Response
	streams   [][]Delta // used by CompleteStream when set
	err       error     // returned on every call when set
	idx       int
	requests  []Request // every request received, in order
}

func (m *mockRequester) Name() string { return m.name }

func (m *mockRequester) Complete(_ context.Context, req Request) (Response, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return Response{}, m.err
	}
	return m.next(), nil
}

func (m *mockRequester) CompleteStream(_ context.Context, req Request) (Stream, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if m.idx < len(m.streams) {
		deltas := m.streams[m.idx]
		m.idx++
		return &scriptedStream{deltas: deltas}, nil
	}
	resp := m.next()
	var deltas []Delta
	if resp.Content != "" {
		deltas = append(deltas, Delta{Content: resp.Content})
	}
	for i, tc := range resp.ToolCalls {
		deltas = append(deltas, Delta{ToolCalls: []ToolCallDelta{{
			Index: i, ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments,
		}}})
	}
	return &scriptedStream{deltas: deltas}, nil
}

func (m *mockRequester) next() Response {
	if m.idx >= len(m.responses) {
		return Response{Content: "exhausted"}
	}
	resp := m.responses[m.idx]
	m.idx++
	return resp
}

// scriptedStream replays a fixed delta sequence, then io.EOF (or failErr
// when set).
type scriptedStream struct {
	deltas  []Delta
	pos     int
	failErr error
	closed  bool
}

func (s *scriptedStream) Recv() (Delta, error) {
	if s.pos >= len(s.deltas) {
		if s.failErr != nil {
			return Delta{}, s.failErr
		}
		return Delta{}, io.EOF
	}
	d := s.deltas[s.pos]
	s.pos++
	return d, nil
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

// recordingHooks captures every hook invocation for assertions.
type recordingHooks struct {
	mu       sync.Mutex
	starts   []string // run ids
	updates  []hookUpdate
	calls    []hookCall
	ends     []string // final texts
}

type hookUpdate struct {
	status  string
	partial string
}

type hookCall struct {
	name, args, result string
}

func (h *recordingHooks) OnRunStart(runID string, _ time.Time, _ string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts = append(h.starts, runID)
}

func (h *recordingHooks) OnRunUpdate(_, status, partial string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, hookUpdate{status: status, partial: partial})
}

func (h *recordingHooks) OnFunctionCallProcessed(_, name, args, result string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, hookCall{name: name, args: args, result: result})
}

func (h *recordingHooks) OnRunEnd(_ string, _ time.Time, finalText string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ends = append(h.ends, finalText)
}

// --- Tool mocks ---

type weatherTool struct{}

func (weatherTool) Definitions() []ToolDefinition {
	return []ToolDefinition{{
		Name:        "get_weather",
		Description: "Get current weather for a city",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}`),
	}}
}

func (weatherTool) Execute(_ context.Context, _ string, args json.RawMessage) (ToolResult, error) {
	var params struct {
		City string `json:"city"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return ToolResult{Error: "invalid args: " + err.Error()}, nil
	}
	return ToolResult{Content: "sunny"}, nil
}

type errTool struct{}

func (errTool) Definitions() []ToolDefinition {
	return []ToolDefinition{{Name: "fail", Description: "Always fails"}}
}

func (errTool) Execute(_ context.Context, _ string, _ json.RawMessage) (ToolResult, error) {
	return ToolResult{}, errors.New("tool broken")
}

type panicTool struct{}

func (panicTool) Definitions() []ToolDefinition {
	return []ToolDefinition{{Name: "explode", Description: "Panics"}}
}

func (panicTool) Execute(_ context.Context, _ string, _ json.RawMessage) (ToolResult, error) {
	panic("boom")
}

// memSink is an in-memory ConversationStore.
type memSink struct {
	mu      sync.Mutex
	threads map[string][]Turn
}

func newMemSink() *memSink {
	return &memSink{threads: make(map[string][]Turn)}
}

func (s *memSink) AppendMessage(_ context.Context, thread string, role Role, content string, _ map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[thread] = append(s.threads[thread], Turn{Role: role, Content: content})
	return nil
}

func (s *memSink) Retrieve(_ context.Context, thread string, maxRecent int) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.threads[thread]
	if maxRecent > 0 && len(turns) > maxRecent {
		turns = turns[len(turns)-maxRecent:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}
