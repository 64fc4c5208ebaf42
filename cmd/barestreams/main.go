package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nanstate/barestreams/pkg/aggregator"
	"github.com/nanstate/barestreams/pkg/httpclient"
	"github.com/nanstate/barestreams/pkg/scrape"
	"github.com/nanstate/barestreams/pkg/titleindex"
)

func main() {
	cfg := parseConfig()
	logger := buildLogger(cfg.LogLevel)
	defer logger.Sync()

	ensureTitleIndex(cfg.TitleIndexPath, logger)
	titles := titleindex.New(cfg.TitleIndexPath)

	httpClient := httpclient.New(httpclient.Config{
		BypassURL:       cfg.FlareSolverrURL,
		SessionsPerPool: cfg.FlareSolverrSessions,
		RefreshInterval: cfg.FlareSolverrRefreshEvery,
	}, logger)

	yts := scrape.YTS{BaseURLs: cfg.BaseURLsYTS, HTTP: httpClient}
	eztv := scrape.EZTV{BaseURLs: cfg.BaseURLsEZTV, HTTP: httpClient}
	tgx := scrape.TorrentGalaxy{BaseURLs: cfg.BaseURLsTGX, DetailLimit: cfg.TGXDetailLimit, HTTP: httpClient}
	apibayMovies := scrape.ApiBay{BaseURLs: cfg.BaseURLsApibay, Series: false, HTTP: httpClient}
	apibaySeries := scrape.ApiBay{BaseURLs: cfg.BaseURLsApibay, Series: true, HTTP: httpClient}
	x1337 := scrape.X1337X{BaseURLs: cfg.BaseURLs1337X, HTTP: httpClient}

	probeScrapers(httpClient, map[string][]string{
		"yts":           cfg.BaseURLsYTS,
		"eztv":          cfg.BaseURLsEZTV,
		"torrentgalaxy": cfg.BaseURLsTGX,
		"apibay":        cfg.BaseURLsApibay,
		"1337x":         cfg.BaseURLs1337X,
	})

	agg := &aggregator.Aggregator{
		Titles:   titles,
		Cache:    newResultCache(cfg, logger),
		CacheTTL: time.Duration(cfg.RedisTTLHours) * time.Hour,
		MaxWait:  cfg.MaxRequestWait,
		Logger:   logger,

		MovieScrapers:  []scrape.Scraper{yts, tgx, apibayMovies, x1337},
		SeriesScrapers: []scrape.Scraper{eztv, tgx, apibaySeries, x1337},
	}

	app := fiber.New()
	app.Use(recoveryMiddleware())
	app.Use(loggingMiddleware(logger))
	app.Use(corsMiddleware())

	app.Get("/manifest.json", manifestHandler())
	app.Get("/stream/:type/:id", streamHandler(agg, logger))
	app.Get("/status", statusHandler(agg))

	addr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.Port)
	logger.Info("Starting barestreams", zap.String("addr", addr))
	logger.Fatal("Server stopped", zap.Error(app.Listen(addr)))
}

// probeScrapers runs each scraper's startup bypass-pool probe against
// its first configured base URL, so a site that's already behind an
// anti-bot challenge starts in force-bypass mode instead of eating a
// 401/403 on its first real request.
func probeScrapers(httpClient *httpclient.Client, baseURLsByScraper map[string][]string) {
	for scraper, baseURLs := range baseURLsByScraper {
		if len(baseURLs) == 0 {
			continue
		}
		go httpClient.Probe(context.Background(), scraper, baseURLs[0], baseURLs[0])
	}
}

func buildLogger(level string) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := zapCfg.Build()
	if err != nil {
		logger = fatalLogger()
	}
	return logger
}
