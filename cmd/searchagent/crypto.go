package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"searchagent/internal/coinmarketcap"
	"searchagent/internal/config"
	"searchagent/internal/tool"
)

// cryptoStack is the wired CoinMarketCap lookup.
type cryptoStack struct {
	catalog  *coinmarketcap.Catalog
	searcher *coinmarketcap.Searcher
	close    func()
}

func newCryptoStack(cfg config.CoinMarketCapConfig) (*cryptoStack, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("coinmarketcap: apiKey is required (set COINMARKETCAP_API_KEY or coinmarketcap.apiKey)")
	}

	client := coinmarketcap.NewClient(coinmarketcap.ClientConfig{
		APIKey:             cfg.APIKey,
		APIBase:            cfg.APIBase,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxRetries:         cfg.MaxRetries,
		Logger:             logger,
	})

	var (
		store coinmarketcap.CacheStore
		closeStore = func() {}
	)
	switch cfg.CacheBackend {
	case "sqlite":
		s, err := coinmarketcap.NewSQLiteStore(cfg.CacheDB)
		if err != nil {
			return nil, fmt.Errorf("coinmarketcap cache: %w", err)
		}
		store = s
		closeStore = func() { s.Close() }
	default:
		store = coinmarketcap.NewFileStore(cfg.CacheFile)
	}

	catalog := coinmarketcap.NewCatalog(coinmarketcap.CatalogConfig{
		Store:         store,
		Lister:        client,
		FreshnessDays: cfg.CacheDurationDays,
		Logger:        logger,
	})
	searcher := coinmarketcap.NewSearcher(coinmarketcap.SearcherConfig{
		Catalog:    catalog,
		Details:    client,
		Quotes:     client,
		RenderURLs: cfg.RenderURLs,
		Convert:    cfg.Convert,
		Logger:     logger,
	})
	return &cryptoStack{catalog: catalog, searcher: searcher, close: closeStore}, nil
}

// registerTools builds the registry from the search toggles. The returned
// func releases resources held by the tools.
func registerTools(cfg *config.Config) (*tool.Registry, func(), error) {
	reg := tool.NewRegistry(logger)
	closer := func() {}
	s := cfg.Search

	if s.Google {
		if s.GoogleAPIKey == "" || s.GoogleCSEID == "" {
			return nil, closer, fmt.Errorf("google search: GOOGLE_API_KEY and GOOGLE_CSE_ID are required")
		}
		reg.Register(tool.NewGoogleSearchTool(s.GoogleAPIKey, s.GoogleCSEID))
	}
	if s.SerpAPI {
		if s.SerpAPIKey == "" {
			return nil, closer, fmt.Errorf("serpapi: SERPAPI_API_KEY is required")
		}
		reg.Register(tool.NewSerpAPITool(s.SerpAPIKey))
	}
	if s.Bing {
		if s.BingAPIKey == "" {
			return nil, closer, fmt.Errorf("bing search: BING_API_KEY is required")
		}
		reg.Register(tool.NewBingSearchTool(s.BingAPIKey))
	}
	if s.Searx {
		reg.Register(tool.NewSearxSearchTool(tool.SearxConfig{
			Host:       s.SearxHost,
			Engines:    s.SearxEngines,
			Categories: s.SearxCategories,
		}))
	}
	if s.DuckDuckGo {
		reg.Register(tool.NewWebSearchTool())
	}
	if s.Wikipedia {
		reg.Register(tool.NewWikipediaTool(s.WikipediaLang))
	}
	if s.Wolfram {
		if s.WolframAppID == "" {
			return nil, closer, fmt.Errorf("wolfram alpha: WOLFRAM_ALPHA_APPID is required")
		}
		reg.Register(tool.NewWolframAlphaTool(s.WolframAppID))
	}
	if s.CoinMarketCap {
		stack, err := newCryptoStack(cfg.CoinMarketCap)
		if err != nil {
			return nil, closer, err
		}
		reg.Register(tool.NewCryptoSearchTool(stack.searcher))
		reg.Register(tool.NewCryptoPriceTool(stack.searcher))
		closer = stack.close
	}
	if s.Calculator {
		reg.Register(tool.NewCalculatorTool())
	}
	return reg, closer, nil
}

func cryptoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crypto",
		Short: "Query CoinMarketCap directly, without the LLM",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "search [coins]",
		Short: `Describe coins by name or symbol (e.g. "bitcoin, xrp")`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCrypto(func(ctx context.Context, st *cryptoStack) error {
				out, err := st.searcher.Run(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "price [coins]",
		Short: "Show the latest quote for coins by name or symbol",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCrypto(func(ctx context.Context, st *cryptoStack) error {
				out, err := st.searcher.Prices(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	})

	catalog := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the cached coin catalog",
	}
	catalog.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Download the full catalog again",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCrypto(func(ctx context.Context, st *cryptoStack) error {
				entries, err := st.catalog.Refresh(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "catalog refreshed: %d coins\n", len(entries))
				return nil
			})
		},
	})
	catalog.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show where the catalog is cached and whether it is fresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCrypto(func(ctx context.Context, st *cryptoStack) error {
				status, err := st.catalog.Status(ctx)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), formatCatalogStatus(status))
				return nil
			})
		},
	})
	cmd.AddCommand(catalog)
	return cmd
}

func withCrypto(fn func(ctx context.Context, st *cryptoStack) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := newCryptoStack(cfg.CoinMarketCap)
	if err != nil {
		return err
	}
	defer st.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, st)
}

func formatCatalogStatus(st coinmarketcap.CatalogStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "store:   %s\n", st.Store)
	if !st.Exists {
		b.WriteString("state:   missing (downloaded on next lookup)\n")
		return b.String()
	}
	state := "stale"
	if st.Fresh {
		state = "fresh"
	}
	fmt.Fprintf(&b, "state:   %s\n", state)
	fmt.Fprintf(&b, "age:     %s\n", st.Age.Round(time.Second))
	fmt.Fprintf(&b, "entries: %d\n", st.Entries)
	return b.String()
}
