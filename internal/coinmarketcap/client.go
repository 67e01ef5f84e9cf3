package coinmarketcap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"searchagent/internal/netutil"
)

const (
	defaultAPIBase     = "https://pro-api.coinmarketcap.com"
	apiKeyHeader       = "X-CMC_PRO_API_KEY"
	defaultHTTPTimeout = 30 * time.Second
	userAgentString    = "searchagent/0.1"
)

// Client talks to the CoinMarketCap Pro API. It is safe for concurrent use;
// construct one per process and hand it to the Catalog and the Searcher.
type Client struct {
	apiKey  string
	apiBase string
	client  *http.Client
	limiter *rate.Limiter
	retry   netutil.RetryPolicy
	logger  *slog.Logger
}

type ClientConfig struct {
	APIKey             string
	APIBase            string
	HTTPClient         *http.Client
	RateLimitPerMinute int // 0 disables client-side pacing
	MaxRetries         int // retries for transport errors and 5xx
	Logger             *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = netutil.SharedHTTPClient(defaultHTTPTimeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimitPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RateLimitPerMinute)), 1)
	}
	return &Client{
		apiKey:  cfg.APIKey,
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		client:  cfg.HTTPClient,
		limiter: limiter,
		retry: netutil.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  time.Second,
			RetryOn429: false, // quota errors surface as APIError
		},
		logger: cfg.Logger,
	}
}

// envelope is the common response wrapper of every Pro API endpoint.
type envelope struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
		CreditCount  int    `json:"credit_count"`
	} `json:"status"`
	Data json.RawMessage `json:"data"`
}

// ListCatalog returns one page of the identifier catalog. start is 1-based.
// An empty page means the catalog has been exhausted.
func (c *Client) ListCatalog(ctx context.Context, start, limit int) ([]CatalogEntry, error) {
	q := url.Values{}
	q.Set("start", strconv.Itoa(start))
	q.Set("limit", strconv.Itoa(limit))

	var page []CatalogEntry
	if err := c.get(ctx, "/v1/cryptocurrency/map", q, &page); err != nil {
		return nil, err
	}
	return page, nil
}

// GetInfo fetches detail records for a comma-separated id list, keyed by id.
func (c *Client) GetInfo(ctx context.Context, ids string) (map[string]DetailRecord, error) {
	q := url.Values{}
	q.Set("id", ids)

	records := make(map[string]DetailRecord)
	if err := c.get(ctx, "/v2/cryptocurrency/info", q, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetQuotes fetches the latest quotes for a comma-separated id list,
// converted into the given currency symbol (e.g. "USD").
func (c *Client) GetQuotes(ctx context.Context, ids, convert string) (map[string]Quote, error) {
	q := url.Values{}
	q.Set("id", ids)
	if convert != "" {
		q.Set("convert", convert)
	}

	quotes := make(map[string]Quote)
	if err := c.get(ctx, "/v2/cryptocurrency/quotes/latest", q, &quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	endpoint := c.apiBase + path + "?" + query.Encode()
	c.logger.Debug("coinmarketcap request", "path", path, "query", query.Encode())

	resp, err := netutil.DoWithRetry(ctx, c.client, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgentString)
		req.Header.Set(apiKeyHeader, c.apiKey)
		return req, nil
	}, c.logger)
	if err != nil {
		var se *netutil.StatusError
		if errors.As(err, &se) {
			return apiErrorFromBody(se.StatusCode, []byte(se.Body))
		}
		return fmt.Errorf("coinmarketcap %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiErrorFromBody(resp.StatusCode, body)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	if env.Status.ErrorCode != 0 {
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorCode:  env.Status.ErrorCode,
			Message:    env.Status.ErrorMessage,
		}
	}
	c.logger.Debug("coinmarketcap response", "path", path, "credits", env.Status.CreditCount)

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", path, err)
	}
	return nil
}

// apiErrorFromBody builds an APIError from a failed response, using the
// envelope status when the body carries one.
func apiErrorFromBody(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode, Message: http.StatusText(statusCode)}
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Status.ErrorCode != 0 {
		apiErr.ErrorCode = env.Status.ErrorCode
		apiErr.Message = env.Status.ErrorMessage
	}
	return apiErr
}
