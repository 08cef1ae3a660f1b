package relay

import "log/slog"

// History is the ordered, mutable turn log for one session, with
// token-budget accounting and oldest-first eviction.
//
// The token count is maintained incrementally: it grows when a user turn is
// appended (by the tokenized length of its content) and shrinks only when a
// user or assistant turn is evicted. System and tool turns are never
// counted and never evicted. Callers must not read the count as the true
// tokenized size of the full history.
//
// History is not safe for concurrent use; each session owns its own.
type History struct {
	turns      []Turn
	tokenCount int
	tokenLimit int
	tokenizer  Tokenizer
	logger     *slog.Logger
}

// HistoryOption configures a History.
type HistoryOption func(*History)

// WithHistoryLogger sets a structured logger for eviction events.
func WithHistoryLogger(l *slog.Logger) HistoryOption {
	return func(h *History) { h.logger = l }
}

// NewHistory creates an empty history with the given token limit. The
// tokenizer is fixed at construction so that append-time accounting and
// eviction subtract with the same measure; pass ApproxTokenizer() unless a
// model-exact encoder is available.
func NewHistory(tokenLimit int, tok Tokenizer, opts ...HistoryOption) *History {
	h := &History{
		tokenLimit: tokenLimit,
		tokenizer:  tok,
		logger:     nopLogger,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Append adds a turn to the end of the log. User turns increase the token
// count; all other roles are appended uncounted.
func (h *History) Append(t Turn) {
	h.turns = append(h.turns, t)
	if t.Role == RoleUser {
		h.tokenCount += h.tokenizer.Count(t.Content)
	}
}

// Len returns the number of turns currently held.
func (h *History) Len() int { return len(h.turns) }

// TokenCount returns the current incremental token count.
func (h *History) TokenCount() int { return h.tokenCount }

// Snapshot returns a copy of the turn log for handing to a requester.
// The copy keeps a later eviction from racing a request already built.
func (h *History) Snapshot() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// EnforceBudget evicts oldest user/assistant turns until the token count
// fits the limit. System and tool turns are skipped, never removed; when
// the count is still over the limit and nothing evictable remains, it
// returns ErrBudgetExceeded instead of spinning.
func (h *History) EnforceBudget() error {
	for h.tokenCount > h.tokenLimit {
		evicted := false
		for i, t := range h.turns {
			if t.Role != RoleUser && t.Role != RoleAssistant {
				continue
			}
			h.tokenCount -= h.tokenizer.Count(t.Content)
			h.logger.Info("token limit exceeded, evicting oldest turn",
				"role", t.Role, "tokens_freed", h.tokenizer.Count(t.Content))
			h.turns = append(h.turns[:i], h.turns[i+1:]...)
			evicted = true
			break
		}
		if !evicted {
			return ErrBudgetExceeded
		}
	}
	return nil
}
