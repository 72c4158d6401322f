package main

import (
	"context"
	"time"

	"github.com/flatfind-sg/flatfind-cli/internal/amenity"
	"github.com/flatfind-sg/flatfind-cli/internal/fetcher"
	"github.com/flatfind-sg/flatfind-cli/internal/geocode"
	"github.com/flatfind-sg/flatfind-cli/internal/proximity"
	"github.com/flatfind-sg/flatfind-cli/internal/scorer"
	"github.com/flatfind-sg/flatfind-cli/internal/store"
)

// coreEnv bundles the geodata services most commands need.
type coreEnv struct {
	Index  *geocode.Index
	Engine *proximity.Engine
	Scorer *scorer.Scorer
}

func initCore() *coreEnv {
	index := geocode.NewIndex(cfg.Data.BlocksCSV)
	engine := proximity.NewEngine(amenity.NewCatalog(cfg.AmenitySources()))
	return &coreEnv{
		Index:  index,
		Engine: engine,
		Scorer: scorer.New(index, engine, scorer.Options{
			Caps:              cfg.Scorer.Caps,
			BatchTTL:          cfg.Scorer.BatchTTL(),
			AnnualInterestPct: cfg.Afford.AnnualInterestPct,
		}),
	}
}

func openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}

func newHTTPFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    cfg.Resale.UserAgent,
		Timeout:      60 * time.Second,
		MaxRetries:   3,
		RateLimiters: fetcher.DefaultRateLimiters(),
	})
}

func newResaleClient() *fetcher.ResaleClient {
	return fetcher.NewResaleClient(newHTTPFetcher(), fetcher.ResaleOptions{
		BaseURL:    cfg.Resale.BaseURL,
		ResourceID: cfg.Resale.ResourceID,
		PageSize:   cfg.Resale.PageSize,
	})
}
