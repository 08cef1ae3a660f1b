package openaicompat

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/okonen/relay"
)

// maxSSELine bounds the scanner buffer for large SSE payloads.
const maxSSELine = 1024 * 1024

// sseStream adapts a server-sent-event body to relay.Stream. Each Recv
// call reads lines until it finds the next data chunk carrying content or
// tool-call fragments, translating it to a relay.Delta.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[...]}\n
//	data: [DONE]\n
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func newSSEStream(body io.ReadCloser) *sseStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, maxSSELine), maxSSELine)
	return &sseStream{body: body, scanner: scanner}
}

func (s *sseStream) Recv() (relay.Delta, error) {
	if s.done {
		return relay.Delta{}, io.EOF
	}

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// SSE lines that carry data start with "data: ".
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}

		// End-of-stream sentinel.
		if data == "[DONE]" {
			s.done = true
			return relay.Delta{}, io.EOF
		}

		var chunk ChatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Skip malformed chunks.
			continue
		}
		if len(chunk.Choices) == 0 {
			// Usage-only chunk (some providers send this).
			continue
		}
		cd := chunk.Choices[0].Delta
		if cd == nil {
			continue
		}

		d := relay.Delta{Content: cd.Content}
		for _, tc := range cd.ToolCalls {
			d.ToolCalls = append(d.ToolCalls, relay.ToolCallDelta{
				Index:     tc.Index,
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		if d.Content == "" && len(d.ToolCalls) == 0 {
			// Role-only or otherwise empty delta.
			continue
		}
		return d, nil
	}

	s.done = true
	if err := s.scanner.Err(); err != nil {
		return relay.Delta{}, &relay.TransportError{Op: "stream", Err: err}
	}
	return relay.Delta{}, io.EOF
}

func (s *sseStream) Close() error {
	return s.body.Close()
}

var _ relay.Stream = (*sseStream)(nil)
