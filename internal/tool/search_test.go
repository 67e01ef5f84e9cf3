package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newSearchServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestWebSearch_InstantAnswer(t *testing.T) {
	srv := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "golang" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"Heading":"Go","Abstract":"Go is a programming language.","AbstractURL":"https://go.dev",
			"RelatedTopics":[{"Text":"Gopher"},{"Text":""}]}`))
	})
	tool := NewWebSearchTool()
	tool.endpoint = srv.URL

	out, err := tool.Execute(context.Background(), map[string]any{"query": "golang"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "## Go\nGo is a programming language.") || !strings.Contains(out, "- Gopher") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestWebSearch_MissingQuery(t *testing.T) {
	if _, err := NewWebSearchTool().Execute(context.Background(), map[string]any{}); err == nil {
		t.Fatal("expected error for missing query")
	}
}

func TestGoogleSearch_JoinsSnippets(t *testing.T) {
	srv := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "gkey" || q.Get("cx") != "cse" {
			t.Errorf("missing credentials: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"items":[{"snippet":"first"},{"snippet":" second "},{"snippet":""}]}`))
	})
	tool := NewGoogleSearchTool("gkey", "cse")
	tool.endpoint = srv.URL

	out, err := tool.Execute(context.Background(), map[string]any{"query": "news"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "first second" {
		t.Fatalf("expected 'first second', got %q", out)
	}
}

func TestGoogleSearch_NoResults(t *testing.T) {
	srv := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	tool := NewGoogleSearchTool("k", "c")
	tool.endpoint = srv.URL

	out, err := tool.Execute(context.Background(), map[string]any{"query": "zzz"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "No good Google Search Result was found" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestGoogleSearch_HTTPError(t *testing.T) {
	srv := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	tool := NewGoogleSearchTool("k", "c")
	tool.endpoint = srv.URL

	if _, err := tool.Execute(context.Background(), map[string]any{"query": "x"}); err == nil {
		t.Fatal("expected error for HTTP 403")
	}
}

func TestBingSearch_SendsKeyAndStripsMarkup(t *testing.T) {
	srv := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "bkey" {
			t.Errorf("missing subscription key header")
		}
		w.Write([]byte(`{"webPages":{"value":[{"snippet":"<b>Paris</b> is the capital"}]}}`))
	})
	tool := NewBingSearchTool("bkey")
	tool.endpoint = srv.URL

	out, err := tool.Execute(context.Background(), map[string]any{"query": "capital of france"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "Paris is the capital" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestSerpAnswer_Priority(t *testing.T) {
	var res serpResponse
	if got := serpAnswer(res); got != noSearchResult {
		t.Fatalf("expected fallback, got %q", got)
	}

	res.OrganicResults = append(res.OrganicResults, struct {
		Snippet string `json:"snippet"`
	}{Snippet: "organic"})
	if got := serpAnswer(res); got != "organic" {
		t.Fatalf("expected organic snippet, got %q", got)
	}

	res.KnowledgeGraph = &struct {
		Description string `json:"description"`
	}{Description: "graph"}
	if got := serpAnswer(res); got != "graph" {
		t.Fatalf("expected knowledge graph, got %q", got)
	}

	res.Error = "Invalid API key"
	if got := serpAnswer(res); !strings.Contains(got, "Invalid API key") {
		t.Fatalf("expected error passthrough, got %q", got)
	}
}

func TestSerpAPI_AnswerBox(t *testing.T) {
	srv := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "skey" {
			t.Errorf("missing api key")
		}
		w.Write([]byte(`{"answer_box":{"answer":"42"},"organic_results":[{"snippet":"other"}]}`))
	})
	tool := NewSerpAPITool("skey")
	tool.endpoint = srv.URL

	out, err := tool.Execute(context.Background(), map[string]any{"query": "meaning of life"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "42" {
		t.Fatalf("expected '42', got %q", out)
	}
}

func TestSearx_AnswersFirst(t *testing.T) {
	srv := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/search" || q.Get("format") != "json" || q.Get("engines") != "google" || q.Get("categories") != "news" {
			t.Errorf("unexpected request %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		w.Write([]byte(`{"answers":["direct answer"],"results":[{"content":"ignored"}]}`))
	})
	tool := NewSearxSearchTool(SearxConfig{Host: srv.URL + "/", Engines: []string{"google"}, Categories: []string{"news"}})

	out, err := tool.Execute(context.Background(), map[string]any{"query": "top news"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "direct answer" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestSearx_Results(t *testing.T) {
	srv := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"content":"one <em>two</em>"},{"content":"three"}]}`))
	})
	tool := NewSearxSearchTool(SearxConfig{Host: srv.URL})

	out, err := tool.Execute(context.Background(), map[string]any{"query": "q"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "one two three" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestWikipedia_OrdersByRank(t *testing.T) {
	srv := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("gsrsearch") != "world cup 2022" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"query":{"pages":{
			"2":{"title":"Second","index":2,"extract":"Runner up."},
			"1":{"title":"2022 FIFA World Cup","index":1,"extract":"Argentina won."},
			"3":{"title":"Empty","index":3,"extract":""}}}}`))
	})
	tool := NewWikipediaTool("en")
	tool.endpoint = srv.URL

	out, err := tool.Execute(context.Background(), map[string]any{"query": "world cup 2022"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := "Page: 2022 FIFA World Cup\nSummary: Argentina won.\n\nPage: Second\nSummary: Runner up."
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestWikipedia_NoPages(t *testing.T) {
	srv := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"batchcomplete":""}`))
	})
	tool := NewWikipediaTool("")
	tool.endpoint = srv.URL

	out, err := tool.Execute(context.Background(), map[string]any{"query": "qwertyuiop"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "No good Wikipedia Search Result was found" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestWolfram_ShortAnswer(t *testing.T) {
	srv := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("appid") != "app" {
			t.Errorf("missing appid")
		}
		w.Write([]byte("Michelle Yeoh\n"))
	})
	tool := NewWolframAlphaTool("app")
	tool.endpoint = srv.URL

	out, err := tool.Execute(context.Background(), map[string]any{"query": "Oscar for best actress 2023"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "Question: Oscar for best actress 2023\nAnswer: Michelle Yeoh" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestWolfram_NoAnswer(t *testing.T) {
	srv := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
		w.Write([]byte("No short answer available"))
	})
	tool := NewWolframAlphaTool("app")
	tool.endpoint = srv.URL
	tool.http.retry.MaxRetries = 0

	out, err := tool.Execute(context.Background(), map[string]any{"query": "???"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "Wolfram Alpha wasn't able to answer it" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestStripHTMLTags(t *testing.T) {
	got := stripHTMLTags("<p>Hello <b>world</b></p>\n\n  <br/> next ")
	if got != "Hello world\nnext" {
		t.Fatalf("unexpected: %q", got)
	}
}
