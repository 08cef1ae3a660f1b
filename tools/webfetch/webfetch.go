// Package webfetch provides a tool that fetches URLs and extracts
// readable content for use inside a session.
package webfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/okonen/relay"
)

const maxResultChars = 8000

// Tool fetches URLs and extracts readable content.
type Tool struct {
	client *http.Client
}

var _ relay.Tool = (*Tool)(nil)

// New creates a Tool with a 15-second timeout.
func New() *Tool {
	return &Tool{
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (t *Tool) Definitions() []relay.ToolDefinition {
	return []relay.ToolDefinition{{
		Name:        "web_fetch",
		Description: "Fetch a URL and extract its readable text content. Use for reading web pages, articles, documentation.",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"url":{"type":"string","description":"URL to fetch"}},"required":["url"]}`),
	}}
}

func (t *Tool) Execute(ctx context.Context, _ string, args json.RawMessage) (relay.ToolResult, error) {
	var params struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return relay.ToolResult{Error: "invalid args: " + err.Error()}, nil
	}

	content, err := t.Fetch(ctx, params.URL)
	if err != nil {
		return relay.ToolResult{Error: err.Error()}, nil
	}

	if len(content) > maxResultChars {
		content = content[:maxResultChars] + "\n... (truncated)"
	}

	return relay.ToolResult{Content: content}, nil
}

// Fetch downloads a URL and extracts readable text.
func (t *Tool) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; RelayBot/1.0)")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1MB limit
	if err != nil {
		return "", fmt.Errorf("read error: %w", err)
	}

	html := string(body)

	parsedURL, _ := url.Parse(rawURL)
	article, err := readability.FromReader(strings.NewReader(html), parsedURL)
	if err == nil && article.TextContent != "" {
		return strings.TrimSpace(article.TextContent), nil
	}

	// Fallback for pages readability cannot parse.
	return stripTags(html), nil
}

// stripTags removes markup, leaving whitespace-normalized text. Script and
// style bodies are dropped entirely.
func stripTags(content string) string {
	var b strings.Builder
	b.Grow(len(content))

	inTag := false
	skipBody := false
	var tagName strings.Builder
	collecting := false

	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
			collecting = true
			tagName.Reset()
		case inTag:
			if collecting && (r == '>' || r == ' ' || r == '\t' || r == '\n') {
				collecting = false
				switch strings.ToLower(tagName.String()) {
				case "script", "style":
					skipBody = true
				case "/script", "/style":
					skipBody = false
				}
			} else if collecting {
				tagName.WriteRune(r)
			}
			if r == '>' {
				inTag = false
				b.WriteByte(' ')
			}
		case skipBody:
		default:
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
