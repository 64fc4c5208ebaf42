package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nanstate/barestreams/pkg/aggregator"
	"github.com/nanstate/barestreams/pkg/rcache"
	"github.com/nanstate/barestreams/pkg/scrape"
	"github.com/nanstate/barestreams/pkg/stremiotype"
	"github.com/nanstate/barestreams/pkg/titleindex"
)

type stubScraper struct {
	name    string
	streams []stremiotype.Stream
}

func (s stubScraper) Name() string { return s.name }

func (s stubScraper) Scrape(ctx context.Context, req scrape.Request) []stremiotype.Stream {
	return s.streams
}

func testAggregator(scrapers ...scrape.Scraper) *aggregator.Aggregator {
	return &aggregator.Aggregator{
		Titles:         titleindex.New("/nonexistent/for-tests.tsv"),
		Cache:          rcache.NewInMemory(),
		CacheTTL:       time.Minute,
		Logger:         zap.NewNop(),
		MovieScrapers:  scrapers,
		SeriesScrapers: scrapers,
	}
}

func TestManifestHandler(t *testing.T) {
	app := fiber.New()
	app.Get("/manifest.json", manifestHandler())

	resp, err := app.Test(httptest.NewRequest("GET", "/manifest.json", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var m stremiotype.Manifest
	require.NoError(t, json.Unmarshal(body, &m))
	require.Equal(t, "dev.nanstate.barestreams", m.ID)
	require.ElementsMatch(t, []string{"movie", "series"}, m.Types)
}

func TestStreamHandlerSuccess(t *testing.T) {
	agg := testAggregator(stubScraper{name: "YTS", streams: []stremiotype.Stream{
		{InfoHash: "08ada5a7a6183aae1e09d831df6748d566095a10", Seeders: 10},
	}})

	app := fiber.New()
	app.Get("/stream/:type/:id", streamHandler(agg, zap.NewNop()))

	resp, err := app.Test(httptest.NewRequest("GET", "/stream/movie/tt0133093.json", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var out stremiotype.Response
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Streams, 1)
}

func TestStreamHandlerInvalidIDReturns400(t *testing.T) {
	agg := testAggregator()

	app := fiber.New()
	app.Get("/stream/:type/:id", streamHandler(agg, zap.NewNop()))

	resp, err := app.Test(httptest.NewRequest("GET", "/stream/movie/not-an-id.json", nil))
	require.NoError(t, err)
	require.Equal(t, 400, resp.StatusCode)
}

func TestStatusHandlerReportsPerScraperCounts(t *testing.T) {
	agg := testAggregator(
		stubScraper{name: "YTS", streams: []stremiotype.Stream{{InfoHash: "08ada5a7a6183aae1e09d831df6748d566095a10"}}},
		stubScraper{name: "ApiBay"},
	)

	app := fiber.New()
	app.Get("/status", statusHandler(agg))

	resp, err := app.Test(httptest.NewRequest("GET", "/status?imdbid=tt0133093", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var out statusResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Equal(t, "tt0133093", out.IMDbID)
	require.Len(t, out.Scrapers, 2)
}

func TestStatusHandlerRequiresIMDbID(t *testing.T) {
	app := fiber.New()
	app.Get("/status", statusHandler(testAggregator()))

	resp, err := app.Test(httptest.NewRequest("GET", "/status", nil))
	require.NoError(t, err)
	require.Equal(t, 400, resp.StatusCode)
}
