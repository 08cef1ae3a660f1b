package relay

import "context"

// ConversationStore persists conversation turns under human-readable
// thread names. Implementations own the mapping from thread name to a
// backend thread identifier. The store/sqlite and store/postgres packages
// provide implementations.
type ConversationStore interface {
	// AppendMessage persists one turn on the named thread, creating the
	// thread on first use. Metadata is free-form and stored alongside.
	AppendMessage(ctx context.Context, thread string, role Role, content string, metadata map[string]string) error
	// Retrieve returns the thread's turns in chronological order. When
	// maxRecent > 0 only the most recent maxRecent turns are returned.
	Retrieve(ctx context.Context, thread string, maxRecent int) ([]Turn, error)
}
