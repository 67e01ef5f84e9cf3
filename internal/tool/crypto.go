package tool

import (
	"context"

	"searchagent/internal/domain"
)

// CryptoLookup is the part of coinmarketcap.Searcher the crypto tools use.
type CryptoLookup interface {
	Run(ctx context.Context, query string) (string, error)
	Prices(ctx context.Context, query string) (string, error)
}

// CryptoSearchTool answers questions about specific coins from CoinMarketCap.
type CryptoSearchTool struct {
	lookup CryptoLookup
}

func NewCryptoSearchTool(lookup CryptoLookup) *CryptoSearchTool {
	return &CryptoSearchTool{lookup: lookup}
}

var _ domain.AsyncTool = (*CryptoSearchTool)(nil)

func (t *CryptoSearchTool) Name() string { return "crypto_search" }
func (t *CryptoSearchTool) Description() string {
	return "Use this tool when you need to answer questions about Cryptocurrency prices or altcoins prices " +
		"Input should be the Cryptocurrency coin name only or the ticker symbol"
}
func (t *CryptoSearchTool) Parameters() map[string]any {
	return queryParameters("Coin names or ticker symbols, comma separated (e.g. \"btc,xrp\")")
}

func (t *CryptoSearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	// An empty query is passed through so the lookup reports it.
	return t.lookup.Run(ctx, ArgsString(args, "query"))
}

// ExecuteAsync is not supported; the lookup is synchronous.
func (t *CryptoSearchTool) ExecuteAsync(ctx context.Context, args map[string]any) (<-chan domain.ToolResult, error) {
	return nil, domain.ErrAsyncNotSupported
}

// CryptoPriceTool renders the latest market quote for each matched coin.
type CryptoPriceTool struct {
	lookup CryptoLookup
}

func NewCryptoPriceTool(lookup CryptoLookup) *CryptoPriceTool {
	return &CryptoPriceTool{lookup: lookup}
}

func (t *CryptoPriceTool) Name() string { return "crypto_price" }
func (t *CryptoPriceTool) Description() string {
	return "Use this tool for the latest known market price, 24h change and market cap of cryptocurrencies. " +
		"Input should be coin names or ticker symbols separated by commas"
}
func (t *CryptoPriceTool) Parameters() map[string]any {
	return queryParameters("Coin names or ticker symbols, comma separated")
}

func (t *CryptoPriceTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return t.lookup.Prices(ctx, ArgsString(args, "query"))
}
