package tool

import (
	"context"
	"net/url"
	"strings"
)

// DefaultSearxHost is the local SearxNG instance used when none is configured.
const DefaultSearxHost = "http://localhost:8080"

// SearxSearchTool queries a SearxNG meta search instance.
type SearxSearchTool struct {
	host       string
	engines    []string
	categories []string
	numResults int
	http       searchHTTP
}

type SearxConfig struct {
	Host       string
	Engines    []string // e.g. ["google"]
	Categories []string // e.g. ["news"]
}

func NewSearxSearchTool(cfg SearxConfig) *SearxSearchTool {
	if cfg.Host == "" {
		cfg.Host = DefaultSearxHost
	}
	return &SearxSearchTool{
		host:       strings.TrimRight(cfg.Host, "/"),
		engines:    cfg.Engines,
		categories: cfg.Categories,
		numResults: 10,
		http:       newSearchHTTP(),
	}
}

func (t *SearxSearchTool) Name() string { return "searx_search" }
func (t *SearxSearchTool) Description() string {
	return "A meta search engine. " +
		"Useful for when you need to answer questions about current events. " +
		"Input should be a search query."
}
func (t *SearxSearchTool) Parameters() map[string]any {
	return queryParameters("A search query")
}

func (t *SearxSearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	req, err := DecodeArgs[queryArgs](args)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("q", req.Query)
	q.Set("format", "json")
	q.Set("lang", "en")
	if len(t.engines) > 0 {
		q.Set("engines", strings.Join(t.engines, ","))
	}
	if len(t.categories) > 0 {
		q.Set("categories", strings.Join(t.categories, ","))
	}

	var res struct {
		Answers []string `json:"answers"`
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := t.http.getJSON(ctx, t.host+"/search?"+q.Encode(), nil, &res); err != nil {
		return "", err
	}

	if len(res.Answers) > 0 {
		return res.Answers[0], nil
	}

	snippets := make([]string, 0, t.numResults)
	for i, r := range res.Results {
		if i >= t.numResults {
			break
		}
		snippets = append(snippets, stripHTMLTags(r.Content))
	}
	if out := joinSnippets(snippets); out != "" {
		return out, nil
	}
	return noSearchResult, nil
}
