package tool

import (
	"context"
	"encoding/json"
	"net/url"
)

// SerpAPITool queries Google through serpapi.com and returns the most
// direct answer the result page offers.
type SerpAPITool struct {
	apiKey   string
	endpoint string
	http     searchHTTP
}

func NewSerpAPITool(apiKey string) *SerpAPITool {
	return &SerpAPITool{
		apiKey:   apiKey,
		endpoint: "https://serpapi.com/search",
		http:     newSearchHTTP(),
	}
}

func (t *SerpAPITool) Name() string        { return "current_search" }
func (t *SerpAPITool) Description() string { return currentSearchDescription }
func (t *SerpAPITool) Parameters() map[string]any {
	return queryParameters("A single search term")
}

type serpResponse struct {
	Error     string `json:"error"`
	AnswerBox *struct {
		Answer      string   `json:"answer"`
		Snippet     string   `json:"snippet"`
		SnippetList []string `json:"snippet_highlighted_words"`
	} `json:"answer_box"`
	SportsResults *struct {
		GameSpotlight json.RawMessage `json:"game_spotlight"`
	} `json:"sports_results"`
	KnowledgeGraph *struct {
		Description string `json:"description"`
	} `json:"knowledge_graph"`
	OrganicResults []struct {
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

func (t *SerpAPITool) Execute(ctx context.Context, args map[string]any) (string, error) {
	req, err := DecodeArgs[queryArgs](args)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", req.Query)
	q.Set("api_key", t.apiKey)
	q.Set("google_domain", "google.com")
	q.Set("gl", "us")
	q.Set("hl", "en")

	var res serpResponse
	if err := t.http.getJSON(ctx, t.endpoint+"?"+q.Encode(), nil, &res); err != nil {
		return "", err
	}
	return serpAnswer(res), nil
}

// serpAnswer picks, in order: the answer box, a sports spotlight, the
// knowledge graph description, then the first organic snippet.
func serpAnswer(res serpResponse) string {
	if res.Error != "" {
		return "Got error from SerpAPI: " + res.Error
	}
	if box := res.AnswerBox; box != nil {
		switch {
		case box.Answer != "":
			return box.Answer
		case box.Snippet != "":
			return box.Snippet
		case len(box.SnippetList) > 0:
			return box.SnippetList[0]
		}
	}
	if sr := res.SportsResults; sr != nil && len(sr.GameSpotlight) > 0 && string(sr.GameSpotlight) != "null" {
		return string(sr.GameSpotlight)
	}
	if kg := res.KnowledgeGraph; kg != nil && kg.Description != "" {
		return kg.Description
	}
	if len(res.OrganicResults) > 0 && res.OrganicResults[0].Snippet != "" {
		return res.OrganicResults[0].Snippet
	}
	return noSearchResult
}
