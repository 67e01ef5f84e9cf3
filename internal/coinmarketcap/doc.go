// Package coinmarketcap resolves cryptocurrency names and ticker symbols
// against the CoinMarketCap identifier catalog and renders coin details.
//
// The catalog (id, name, symbol for every listed coin) is large and changes
// slowly, so it is downloaded page by page and persisted in a CacheStore.
// A snapshot younger than the configured freshness window is served from the
// store; an older one is removed and downloaded again.
//
//	client := coinmarketcap.NewClient(coinmarketcap.ClientConfig{APIKey: key, Logger: logger})
//	catalog := coinmarketcap.NewCatalog(coinmarketcap.CatalogConfig{
//	    Store:  coinmarketcap.NewFileStore("cryptocurrency_map.json"),
//	    Lister: client,
//	    Logger: logger,
//	})
//	searcher := coinmarketcap.NewSearcher(coinmarketcap.SearcherConfig{
//	    Catalog: catalog,
//	    Details: client,
//	    Logger:  logger,
//	})
//	report, err := searcher.Run(ctx, "btc, xrp")
package coinmarketcap
