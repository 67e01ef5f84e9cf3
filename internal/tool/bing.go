package tool

import (
	"context"
	"net/url"
	"strconv"
)

// BingSearchTool queries the Bing Web Search v7 API.
type BingSearchTool struct {
	apiKey     string
	numResults int
	endpoint   string
	http       searchHTTP
}

func NewBingSearchTool(apiKey string) *BingSearchTool {
	return &BingSearchTool{
		apiKey:     apiKey,
		numResults: 10,
		endpoint:   "https://api.bing.microsoft.com/v7.0/search",
		http:       newSearchHTTP(),
	}
}

func (t *BingSearchTool) Name() string { return "bing_search" }
func (t *BingSearchTool) Description() string {
	return "useful when you need to answer questions about the world around you."
}
func (t *BingSearchTool) Parameters() map[string]any {
	return queryParameters("A search query")
}

func (t *BingSearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	req, err := DecodeArgs[queryArgs](args)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("q", req.Query)
	q.Set("count", strconv.Itoa(t.numResults))
	q.Set("textDecorations", "true")
	q.Set("textFormat", "HTML")

	var res struct {
		WebPages struct {
			Value []struct {
				Name    string `json:"name"`
				URL     string `json:"url"`
				Snippet string `json:"snippet"`
			} `json:"value"`
		} `json:"webPages"`
	}
	header := map[string]string{"Ocp-Apim-Subscription-Key": t.apiKey}
	if err := t.http.getJSON(ctx, t.endpoint+"?"+q.Encode(), header, &res); err != nil {
		return "", err
	}

	snippets := make([]string, 0, len(res.WebPages.Value))
	for _, page := range res.WebPages.Value {
		snippets = append(snippets, stripHTMLTags(page.Snippet))
	}
	if out := joinSnippets(snippets); out != "" {
		return out, nil
	}
	return "No good Bing Search Result was found", nil
}
