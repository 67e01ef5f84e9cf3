package coinmarketcap

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

const (
	// NoResultMessage is returned by Run when nothing could be resolved or fetched.
	NoResultMessage = "No good Coinmarketcap Search Result was found"
	// NoPriceResultMessage is the Prices counterpart of NoResultMessage.
	NoPriceResultMessage = "No good Coinmarketcap Price Result was found"

	defaultConvert = "USD"
)

// CatalogSource provides the identifier catalog in upstream order.
type CatalogSource interface {
	Entries(ctx context.Context) ([]CatalogEntry, error)
}

// DetailFetcher is the batched "info" endpoint.
type DetailFetcher interface {
	GetInfo(ctx context.Context, ids string) (map[string]DetailRecord, error)
}

// QuoteFetcher is the batched latest-quotes endpoint.
type QuoteFetcher interface {
	GetQuotes(ctx context.Context, ids, convert string) (map[string]Quote, error)
}

// Searcher turns a free-form list of coin names or symbols into a text report.
type Searcher struct {
	catalog    CatalogSource
	details    DetailFetcher
	quotes     QuoteFetcher
	renderURLs bool
	convert    string
	logger     *slog.Logger
}

type SearcherConfig struct {
	Catalog    CatalogSource
	Details    DetailFetcher
	Quotes     QuoteFetcher // optional, required only by Prices
	RenderURLs bool         // append the coin's URL list to each block
	Convert    string       // quote currency for Prices (default USD)
	Logger     *slog.Logger
}

func NewSearcher(cfg SearcherConfig) *Searcher {
	if cfg.Convert == "" {
		cfg.Convert = defaultConvert
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Searcher{
		catalog:    cfg.Catalog,
		details:    cfg.Details,
		quotes:     cfg.Quotes,
		renderURLs: cfg.RenderURLs,
		convert:    strings.ToUpper(cfg.Convert),
		logger:     cfg.Logger,
	}
}

// Resolve matches each comma-separated term, case-insensitively, against
// catalog names and symbols. Matches are returned in catalog order with
// duplicate ids collapsed. The scan stops once every distinct term has
// matched at least once.
func (s *Searcher) Resolve(ctx context.Context, term string) ([]CatalogEntry, error) {
	if strings.TrimSpace(term) == "" {
		return nil, ErrEmptyQuery
	}

	wanted := make(map[string]struct{})
	for _, part := range strings.Split(term, ",") {
		if t := strings.ToLower(strings.TrimSpace(part)); t != "" {
			wanted[t] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return nil, ErrNotFound
	}

	entries, err := s.catalog.Entries(ctx)
	if err != nil {
		return nil, err
	}

	var selected []CatalogEntry
	seen := make(map[int]struct{})
	covered := make(map[string]struct{}, len(wanted))
	for _, e := range entries {
		name := strings.ToLower(e.Name)
		symbol := strings.ToLower(e.Symbol)
		_, byName := wanted[name]
		_, bySymbol := wanted[symbol]
		if !byName && !bySymbol {
			continue
		}
		if _, dup := seen[e.ID]; !dup {
			seen[e.ID] = struct{}{}
			selected = append(selected, e)
		}
		if byName {
			covered[name] = struct{}{}
		}
		if bySymbol {
			covered[symbol] = struct{}{}
		}
		if len(covered) == len(wanted) {
			break
		}
	}

	if len(selected) == 0 {
		return nil, ErrNotFound
	}
	return selected, nil
}

// ParseQuery resolves term and returns the matched ids joined by commas,
// or ErrNotFound.
func (s *Searcher) ParseQuery(ctx context.Context, term string) (string, error) {
	selected, err := s.Resolve(ctx, term)
	if err != nil {
		return "", err
	}
	ids := make([]string, len(selected))
	for i, e := range selected {
		ids[i] = strconv.Itoa(e.ID)
	}
	keyIDs := strings.Join(ids, ",")
	s.logger.Debug("found key ids", "ids", keyIDs)
	return keyIDs, nil
}

// FetchResults resolves query and fetches detail records keyed by id.
// A query that matches nothing yields an empty map. Service errors, blank
// queries and unreadable snapshots are returned; every other failure is
// logged and reported as an empty map.
func (s *Searcher) FetchResults(ctx context.Context, query string) (map[string]DetailRecord, error) {
	s.logger.Debug("search term", "term", query)
	records, err := s.fetchDetails(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Error("coinmarketcap lookup failed", "err", err)
		if fatal := classifyFetchError(err); fatal != nil {
			return nil, fatal
		}
		return map[string]DetailRecord{}, nil
	}
	return records, nil
}

func (s *Searcher) fetchDetails(ctx context.Context, query string) (map[string]DetailRecord, error) {
	ids, err := s.ParseQuery(ctx, query)
	if errors.Is(err, ErrNotFound) {
		return map[string]DetailRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	records, err := s.details.GetInfo(ctx, ids)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = map[string]DetailRecord{}
	}
	return records, nil
}

// Run resolves query and renders one block per coin, or NoResultMessage.
func (s *Searcher) Run(ctx context.Context, query string) (string, error) {
	records, err := s.FetchResults(ctx, query)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return NoResultMessage, nil
	}

	blocks := make([]string, 0, len(records))
	for _, id := range sortedIDs(records) {
		blocks = append(blocks, renderDetail(records[id], s.renderURLs))
	}
	s.logger.Debug("found data", "blocks", len(blocks))
	return strings.Join(blocks, "\n"), nil
}

// Prices resolves query the same way as Run and renders the latest quote
// per coin, or NoPriceResultMessage.
func (s *Searcher) Prices(ctx context.Context, query string) (string, error) {
	quotes, err := s.fetchQuotes(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		s.logger.Error("coinmarketcap price lookup failed", "err", err)
		if fatal := classifyFetchError(err); fatal != nil {
			return "", fatal
		}
		return NoPriceResultMessage, nil
	}
	if len(quotes) == 0 {
		return NoPriceResultMessage, nil
	}

	lines := make([]string, 0, len(quotes))
	for _, id := range sortedIDs(quotes) {
		lines = append(lines, renderQuote(quotes[id], s.convert))
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Searcher) fetchQuotes(ctx context.Context, query string) (map[string]Quote, error) {
	if s.quotes == nil {
		return nil, errors.New("coinmarketcap: price lookups are not configured")
	}
	ids, err := s.ParseQuery(ctx, query)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.quotes.GetQuotes(ctx, ids, s.convert)
}
