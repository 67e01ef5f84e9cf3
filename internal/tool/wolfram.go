package tool

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"searchagent/internal/netutil"
)

// WolframAlphaTool asks the Wolfram|Alpha Short Answers API.
type WolframAlphaTool struct {
	appID    string
	endpoint string
	http     searchHTTP
}

func NewWolframAlphaTool(appID string) *WolframAlphaTool {
	return &WolframAlphaTool{
		appID:    appID,
		endpoint: "https://api.wolframalpha.com/v1/result",
		http:     newSearchHTTP(),
	}
}

func (t *WolframAlphaTool) Name() string { return "wolfram_alpha" }
func (t *WolframAlphaTool) Description() string {
	return "Useful for when you need to answer questions about Math, " +
		"Science, Technology, Culture, people, Society and Everyday Life. " +
		"Input should be a search query"
}
func (t *WolframAlphaTool) Parameters() map[string]any {
	return queryParameters("A question or expression for Wolfram Alpha")
}

func (t *WolframAlphaTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	req, err := DecodeArgs[queryArgs](args)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("appid", t.appID)
	q.Set("i", req.Query)
	q.Set("units", "metric")

	body, err := t.http.get(ctx, t.endpoint+"?"+q.Encode(), nil)
	var se *netutil.StatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusNotImplemented || se.StatusCode == http.StatusBadRequest) {
		// 501: no short answer exists for the input; 400: the input was not understood.
		return "Wolfram Alpha wasn't able to answer it", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Question: %s\nAnswer: %s", req.Query, strings.TrimSpace(string(body))), nil
}
