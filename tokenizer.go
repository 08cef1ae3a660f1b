package relay

import "unicode/utf8"

// Tokenizer estimates the token length of a piece of text for budget
// accounting. The accounting is approximate on purpose: History documents
// that its token count is not the true tokenized size of the full history.
type Tokenizer interface {
	Count(text string) int
}

// TokenizerFunc adapts a function to the Tokenizer interface.
type TokenizerFunc func(text string) int

func (f TokenizerFunc) Count(text string) int { return f(text) }

// runesPerToken is the rough rune-to-token ratio used by the default
// tokenizer. Four characters per token is the common estimate for English
// prose under BPE vocabularies.
const runesPerToken = 4

// ApproxTokenizer estimates tokens as ceil(runes/4). Good enough for
// eviction decisions; swap in a real encoder via the Tokenizer interface
// when exact counts matter.
func ApproxTokenizer() Tokenizer {
	return TokenizerFunc(func(text string) int {
		n := utf8.RuneCountInString(text)
		return (n + runesPerToken - 1) / runesPerToken
	})
}
