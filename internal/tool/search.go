package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"searchagent/internal/netutil"
)

const (
	searchTimeout   = 15 * time.Second
	searchMaxBytes  = 1 << 20
	searchMaxOutput = 10000
	userAgentString = "searchagent/0.1"

	// noSearchResult is what the generic web search tools answer with
	// when a provider returns nothing usable.
	noSearchResult = "No good search result found"
)

// searchHTTP is the plumbing shared by the web search tools.
type searchHTTP struct {
	client *http.Client
	retry  netutil.RetryPolicy
}

func newSearchHTTP() searchHTTP {
	return searchHTTP{
		client: netutil.SharedHTTPClient(searchTimeout),
		retry:  netutil.RetryPolicy{MaxRetries: 1, BaseDelay: 500 * time.Millisecond},
	}
}

// get performs a GET and returns the body of a 2xx response. Other
// statuses come back as *netutil.StatusError.
func (s searchHTTP) get(ctx context.Context, endpoint string, header map[string]string) ([]byte, error) {
	resp, err := netutil.DoWithRetry(ctx, s.client, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgentString)
		for k, v := range header {
			req.Header.Set(k, v)
		}
		return req, nil
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, searchMaxBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &netutil.StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, nil
}

func (s searchHTTP) getJSON(ctx context.Context, endpoint string, header map[string]string, out any) error {
	body, err := s.get(ctx, endpoint, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// WebSearchTool searches the web using DuckDuckGo Instant Answer API.
type WebSearchTool struct {
	http     searchHTTP
	endpoint string
}

func NewWebSearchTool() *WebSearchTool {
	return &WebSearchTool{http: newSearchHTTP(), endpoint: "https://api.duckduckgo.com/"}
}

func (t *WebSearchTool) Name() string { return "web_search" }
func (t *WebSearchTool) Description() string {
	return "Search the web for instant answers and topic summaries. No API key needed. Input should be a search query."
}
func (t *WebSearchTool) Parameters() map[string]any {
	return queryParameters("Search query to look up on the web")
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	req, err := DecodeArgs[queryArgs](args)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("q", req.Query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")

	var ddg ddgResponse
	if err := t.http.getJSON(ctx, t.endpoint+"?"+q.Encode(), nil, &ddg); err != nil {
		return "", err
	}

	var results []string

	if ddg.Abstract != "" {
		results = append(results, fmt.Sprintf("## %s\n%s\nSource: %s", ddg.Heading, ddg.Abstract, ddg.AbstractURL))
	}

	if ddg.Answer != "" {
		results = append(results, fmt.Sprintf("Answer: %s", ddg.Answer))
	}

	for i, topic := range ddg.RelatedTopics {
		if i >= 5 {
			break
		}
		if topic.Text != "" {
			results = append(results, fmt.Sprintf("- %s", topic.Text))
		}
	}

	if len(results) == 0 {
		return fmt.Sprintf("No instant results found for: %s. Try a more specific query.", req.Query), nil
	}

	return strings.Join(results, "\n\n"), nil
}

// stripHTMLTags removes HTML tags from a string (simple approach).
func stripHTMLTags(s string) string {
	var result strings.Builder
	inTag := false
	for _, r := range s {
		if r == '<' {
			inTag = true
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}
	text := result.String()
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n... (truncated)"
}

// joinSnippets joins non-empty snippets with a space and caps the result.
func joinSnippets(snippets []string) string {
	var kept []string
	for _, s := range snippets {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return truncate(strings.Join(kept, " "), searchMaxOutput)
}

// DuckDuckGo response types
type ddgResponse struct {
	Abstract      string     `json:"Abstract"`
	AbstractURL   string     `json:"AbstractURL"`
	Heading       string     `json:"Heading"`
	Answer        string     `json:"Answer"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

type ddgTopic struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}
