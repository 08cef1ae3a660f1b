package relay

import "context"

// Requester abstracts the completion backend. Implementations must return
// a *TransportError for network, timeout, and protocol faults rather than
// panicking; retry policy, if any, belongs inside the implementation.
type Requester interface {
	// Complete sends a request and returns the backend's full answer.
	Complete(ctx context.Context, req Request) (Response, error)
	// CompleteStream sends a request and returns the answer as a lazy,
	// finite, single-pass delta sequence. The caller must drain the stream
	// and call Close when done.
	CompleteStream(ctx context.Context, req Request) (Stream, error)
	// Name identifies the backend (e.g. "openai") for logging.
	Name() string
}

// Stream is a single-pass sequence of response deltas. Recv returns io.EOF
// after the final delta; any other error is a transport fault.
type Stream interface {
	Recv() (Delta, error)
	Close() error
}
