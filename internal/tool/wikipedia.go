package tool

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const wikipediaMaxSummary = 4000

// WikipediaTool returns the lead section of the best matching articles.
type WikipediaTool struct {
	lang     string
	topK     int
	endpoint string
	http     searchHTTP
}

func NewWikipediaTool(lang string) *WikipediaTool {
	if lang == "" {
		lang = "en"
	}
	return &WikipediaTool{
		lang:     lang,
		topK:     3,
		endpoint: fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang),
		http:     newSearchHTTP(),
	}
}

func (t *WikipediaTool) Name() string { return "wikipedia" }
func (t *WikipediaTool) Description() string {
	return "Useful for searching information on historical information on Wikipedia"
}
func (t *WikipediaTool) Parameters() map[string]any {
	return queryParameters("Topic or title to look up on Wikipedia")
}

type wikiPage struct {
	Title   string `json:"title"`
	Index   int    `json:"index"`
	Extract string `json:"extract"`
}

func (t *WikipediaTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	req, err := DecodeArgs[queryArgs](args)
	if err != nil {
		return "", err
	}

	// generator=search ranks pages and returns their intro extracts in one call.
	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("generator", "search")
	q.Set("gsrsearch", req.Query)
	q.Set("gsrlimit", strconv.Itoa(t.topK))
	q.Set("prop", "extracts")
	q.Set("exintro", "1")
	q.Set("explaintext", "1")
	q.Set("exlimit", strconv.Itoa(t.topK))

	var res struct {
		Query struct {
			Pages map[string]wikiPage `json:"pages"`
		} `json:"query"`
	}
	if err := t.http.getJSON(ctx, t.endpoint+"?"+q.Encode(), nil, &res); err != nil {
		return "", err
	}

	pages := make([]wikiPage, 0, len(res.Query.Pages))
	for _, p := range res.Query.Pages {
		if strings.TrimSpace(p.Extract) != "" {
			pages = append(pages, p)
		}
	}
	if len(pages) == 0 {
		return "No good Wikipedia Search Result was found", nil
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })

	summaries := make([]string, 0, len(pages))
	for _, p := range pages {
		summaries = append(summaries, fmt.Sprintf("Page: %s\nSummary: %s", p.Title, strings.TrimSpace(p.Extract)))
	}
	return truncate(strings.Join(summaries, "\n\n"), wikipediaMaxSummary), nil
}
