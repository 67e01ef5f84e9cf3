package coinmarketcap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// CatalogPageSize is the number of entries requested per catalog page.
const CatalogPageSize = 5000

// CatalogLister is the paginated remote catalog endpoint.
type CatalogLister interface {
	ListCatalog(ctx context.Context, start, limit int) ([]CatalogEntry, error)
}

// Catalog serves the identifier catalog from a CacheStore and downloads it
// again when the snapshot is missing or older than the freshness window.
//
// There is no locking around the store: two processes refreshing at the
// same time both download, and the last write wins.
type Catalog struct {
	store    CacheStore
	lister   CatalogLister
	freshFor time.Duration
	logger   *slog.Logger
}

type CatalogConfig struct {
	Store         CacheStore
	Lister        CatalogLister
	FreshnessDays int // whole days a snapshot stays fresh (default 1)
	Logger        *slog.Logger
}

func NewCatalog(cfg CatalogConfig) *Catalog {
	if cfg.FreshnessDays <= 0 {
		cfg.FreshnessDays = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Catalog{
		store:    cfg.Store,
		lister:   cfg.Lister,
		freshFor: time.Duration(cfg.FreshnessDays) * 24 * time.Hour,
		logger:   cfg.Logger,
	}
}

// Entries returns the full catalog in upstream order.
func (c *Catalog) Entries(ctx context.Context) ([]CatalogEntry, error) {
	age, err := c.store.Age(ctx)
	switch {
	case err == nil && age < c.freshFor:
		entries, err := c.store.Read(ctx)
		if errors.Is(err, ErrSnapshotMissing) {
			// Removed by another process since Age was checked.
			return c.download(ctx)
		}
		if err != nil {
			return nil, &CacheCorruptError{Store: c.store.String(), Err: err}
		}
		c.logger.Info("total cached coins", "count", len(entries), "age", age.Round(time.Second))
		return entries, nil
	case err == nil:
		c.logger.Debug("catalog snapshot is stale", "age", age.Round(time.Second), "window", c.freshFor)
		if rmErr := c.store.Remove(ctx); rmErr != nil {
			c.logger.Warn("cannot remove stale catalog snapshot", "store", c.store.String(), "err", rmErr)
		}
	case errors.Is(err, ErrSnapshotMissing):
		c.logger.Debug("no catalog snapshot", "store", c.store.String())
	default:
		c.logger.Warn("cannot determine catalog snapshot age, downloading", "store", c.store.String(), "err", err)
	}

	return c.download(ctx)
}

// Refresh discards the current snapshot and downloads the catalog again.
func (c *Catalog) Refresh(ctx context.Context) ([]CatalogEntry, error) {
	if err := c.store.Remove(ctx); err != nil {
		c.logger.Warn("cannot remove catalog snapshot", "store", c.store.String(), "err", err)
	}
	return c.download(ctx)
}

func (c *Catalog) download(ctx context.Context) ([]CatalogEntry, error) {
	var entries []CatalogEntry
	for start := 1; ; start += CatalogPageSize {
		page, err := c.lister.ListCatalog(ctx, start, CatalogPageSize)
		if err != nil {
			return nil, fmt.Errorf("list catalog from %d: %w", start, err)
		}
		if len(page) == 0 {
			break
		}
		entries = append(entries, page...)
	}

	if err := c.store.Write(ctx, entries); err != nil {
		return nil, fmt.Errorf("persist catalog to %s: %w", c.store.String(), err)
	}
	c.logger.Info("total cached coins", "count", len(entries), "store", c.store.String())
	return entries, nil
}

// CatalogStatus describes the persisted snapshot.
type CatalogStatus struct {
	Store   string
	Exists  bool
	Age     time.Duration
	Fresh   bool
	Entries int
}

// Status inspects the snapshot without downloading anything.
func (c *Catalog) Status(ctx context.Context) (CatalogStatus, error) {
	st := CatalogStatus{Store: c.store.String()}
	age, err := c.store.Age(ctx)
	if errors.Is(err, ErrSnapshotMissing) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	st.Exists = true
	st.Age = age
	st.Fresh = age < c.freshFor

	entries, err := c.store.Read(ctx)
	if err != nil {
		return st, &CacheCorruptError{Store: c.store.String(), Err: err}
	}
	st.Entries = len(entries)
	return st, nil
}
