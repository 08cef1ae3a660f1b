package relay

import (
	"io"
	"strings"
)

// Assembler reconstructs a complete response from an ordered sequence of
// deltas. Processing is strictly sequential and single-pass: deltas are
// folded as they arrive, with no reordering or lookahead.
//
// Text fragments concatenate in arrival order; each one is also surfaced
// immediately through onText for live progress reporting. Tool-call
// fragments merge by index: the first fragment seen for an index opens the
// call (capturing its id), and every fragment appends its name and
// argument pieces to that call's running buffers.
//
// An Assembler is scoped to one streamed response and discarded after
// Finalize.
type Assembler struct {
	text   strings.Builder
	calls  []*partialCall
	onText func(fragment string)
}

type partialCall struct {
	id   string
	name strings.Builder
	args strings.Builder
}

// NewAssembler creates an assembler for one streamed response. onText may
// be nil when no live progress is wanted.
func NewAssembler(onText func(fragment string)) *Assembler {
	return &Assembler{onText: onText}
}

// Feed folds one delta into the accumulated state.
func (a *Assembler) Feed(d Delta) {
	if d.Content != "" {
		a.text.WriteString(d.Content)
		if a.onText != nil {
			a.onText(d.Content)
		}
	}
	for _, tc := range d.ToolCalls {
		// Growing the slice must not copy partialCall values: their
		// builders reject use after a copy.
		for len(a.calls) <= tc.Index {
			a.calls = append(a.calls, &partialCall{})
		}
		pc := a.calls[tc.Index]
		if tc.ID != "" {
			pc.id = tc.ID
		}
		pc.name.WriteString(tc.Name)
		pc.args.WriteString(tc.Arguments)
	}
}

// Drain consumes a stream to completion, feeding every delta. It stops on
// io.EOF and returns any other receive error unchanged.
func (a *Assembler) Drain(s Stream) error {
	for {
		d, err := s.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		a.Feed(d)
	}
}

// Finalize yields the accumulated text and the tool calls ordered by
// index. Both may be empty: that is a valid no-op response.
func (a *Assembler) Finalize() (string, []ToolCall) {
	var calls []ToolCall
	for _, pc := range a.calls {
		calls = append(calls, ToolCall{
			ID:        pc.id,
			Name:      pc.name.String(),
			Arguments: pc.args.String(),
		})
	}
	return a.text.String(), calls
}
