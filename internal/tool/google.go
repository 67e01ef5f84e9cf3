package tool

import (
	"context"
	"net/url"
	"strconv"
)

// currentSearchDescription is shared by the general purpose web search
// tools; only one of them is expected to be enabled at a time.
const currentSearchDescription = "useful for when you need to answer questions about " +
	"current events or the current state of the world. " +
	"the input to this should be a single search term."

// GoogleSearchTool queries a Google Programmable Search Engine.
type GoogleSearchTool struct {
	apiKey     string
	engineID   string
	numResults int
	endpoint   string
	http       searchHTTP
}

func NewGoogleSearchTool(apiKey, engineID string) *GoogleSearchTool {
	return &GoogleSearchTool{
		apiKey:     apiKey,
		engineID:   engineID,
		numResults: 10,
		endpoint:   "https://www.googleapis.com/customsearch/v1",
		http:       newSearchHTTP(),
	}
}

func (t *GoogleSearchTool) Name() string        { return "google_search" }
func (t *GoogleSearchTool) Description() string { return currentSearchDescription }
func (t *GoogleSearchTool) Parameters() map[string]any {
	return queryParameters("A single search term")
}

func (t *GoogleSearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	req, err := DecodeArgs[queryArgs](args)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("key", t.apiKey)
	q.Set("cx", t.engineID)
	q.Set("q", req.Query)
	q.Set("num", strconv.Itoa(t.numResults))

	var res struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := t.http.getJSON(ctx, t.endpoint+"?"+q.Encode(), nil, &res); err != nil {
		return "", err
	}

	snippets := make([]string, 0, len(res.Items))
	for _, item := range res.Items {
		snippets = append(snippets, item.Snippet)
	}
	if out := joinSnippets(snippets); out != "" {
		return out, nil
	}
	return "No good Google Search Result was found", nil
}
