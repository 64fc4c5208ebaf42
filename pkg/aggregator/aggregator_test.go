package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nanstate/barestreams/pkg/rcache"
	"github.com/nanstate/barestreams/pkg/reqerr"
	"github.com/nanstate/barestreams/pkg/reqid"
	"github.com/nanstate/barestreams/pkg/scrape"
	"github.com/nanstate/barestreams/pkg/stremiotype"
	"github.com/nanstate/barestreams/pkg/titleindex"
)

type fakeScraper struct {
	name    string
	streams []stremiotype.Stream
	delay   time.Duration
}

func (f fakeScraper) Name() string { return f.name }

func (f fakeScraper) Scrape(ctx context.Context, req scrape.Request) []stremiotype.Stream {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil
		}
	}
	return f.streams
}

func newAggregator(scrapers ...scrape.Scraper) *Aggregator {
	return &Aggregator{
		Titles:         titleindex.New("/nonexistent/for-tests.tsv"),
		Cache:          rcache.NewInMemory(),
		CacheTTL:       time.Minute,
		MovieScrapers:  scrapers,
		SeriesScrapers: scrapers,
	}
}

func mustParse(t *testing.T, id string) reqid.Parsed {
	t.Helper()
	p, err := reqid.Parse(id)
	require.NoError(t, err)
	return p
}

func TestHandleStreamInvalidType(t *testing.T) {
	a := newAggregator()
	_, err := a.HandleStream(context.Background(), "episode", "tt0133093")
	require.ErrorIs(t, err, reqerr.ErrInvalidRequest)
}

func TestHandleStreamInvalidID(t *testing.T) {
	a := newAggregator()
	_, err := a.HandleStream(context.Background(), "movie", "not-an-id")
	require.ErrorIs(t, err, reqerr.ErrInvalidRequest)
}

func TestHandleStreamMergesAndSortsBySeeders(t *testing.T) {
	low := stremiotype.Stream{InfoHash: "1111111111111111111111111111111111111111", Seeders: 5}
	high := stremiotype.Stream{InfoHash: "2222222222222222222222222222222222222222", Seeders: 50}

	a := newAggregator(
		fakeScraper{name: "A", streams: []stremiotype.Stream{low}},
		fakeScraper{name: "B", streams: []stremiotype.Stream{high}},
	)

	resp, err := a.HandleStream(context.Background(), "movie", "tt0133093")
	require.NoError(t, err)
	require.Len(t, resp.Streams, 2)
	require.Equal(t, high.InfoHash, resp.Streams[0].InfoHash)
	require.Equal(t, low.InfoHash, resp.Streams[1].InfoHash)
}

func TestHandleStreamDedupesByInfoHashAndUnionsSources(t *testing.T) {
	hash := "3333333333333333333333333333333333333333"
	s1 := stremiotype.Stream{InfoHash: hash, Seeders: 10, Sources: []string{"tracker:a"}}
	s2 := stremiotype.Stream{InfoHash: hash, Seeders: 20, Sources: []string{"tracker:a", "tracker:b"}}

	a := newAggregator(
		fakeScraper{name: "A", streams: []stremiotype.Stream{s1}},
		fakeScraper{name: "B", streams: []stremiotype.Stream{s2}},
	)

	resp, err := a.HandleStream(context.Background(), "movie", "tt0133093")
	require.NoError(t, err)
	require.Len(t, resp.Streams, 1)
	require.Equal(t, []string{"tracker:a", "tracker:b"}, resp.Streams[0].Sources)
}

func TestHandleStreamFiltersDeadMagnets(t *testing.T) {
	dead := stremiotype.Stream{InfoHash: "4444444444444444444444444444444444444444", Seeders: 0}
	alive := stremiotype.Stream{InfoHash: "5555555555555555555555555555555555555555", Seeders: 1}

	a := newAggregator(fakeScraper{name: "A", streams: []stremiotype.Stream{dead, alive}})

	resp, err := a.HandleStream(context.Background(), "movie", "tt0133093")
	require.NoError(t, err)
	require.Len(t, resp.Streams, 1)
	require.Equal(t, alive.InfoHash, resp.Streams[0].InfoHash)
}

func TestHandleStreamSeriesGetsBingeGroup(t *testing.T) {
	s := stremiotype.Stream{InfoHash: "6666666666666666666666666666666666666666", Seeders: 10, Name: "EZTV"}
	a := newAggregator(fakeScraper{name: "EZTV", streams: []stremiotype.Stream{s}})

	resp, err := a.HandleStream(context.Background(), "series", "tt0944947:1:2")
	require.NoError(t, err)
	require.Len(t, resp.Streams, 1)
	require.NotNil(t, resp.Streams[0].BehaviorHints)
	require.Equal(t, "barestreams-eztv-unknown", resp.Streams[0].BehaviorHints.BingeGroup)
}

func TestHandleStreamCacheHitSkipsScraping(t *testing.T) {
	called := false
	scraper := fakeScraper{name: "A", streams: []stremiotype.Stream{
		{InfoHash: "7777777777777777777777777777777777777777", Seeders: 1},
	}}
	a := newAggregator(countingScraper{fakeScraper: scraper, called: &called})

	_, err := a.HandleStream(context.Background(), "movie", "tt0133093")
	require.NoError(t, err)
	require.True(t, called)

	called = false
	_, err = a.HandleStream(context.Background(), "movie", "tt0133093")
	require.NoError(t, err)
	require.False(t, called, "second request should be served from cache without re-scraping")
}

type countingScraper struct {
	fakeScraper
	called *bool
}

func (c countingScraper) Scrape(ctx context.Context, req scrape.Request) []stremiotype.Stream {
	*c.called = true
	return c.fakeScraper.Scrape(ctx, req)
}

func TestHandleStreamEmptyResultIsNotCached(t *testing.T) {
	a := newAggregator(fakeScraper{name: "A"})

	resp, err := a.HandleStream(context.Background(), "movie", "tt0133093")
	require.NoError(t, err)
	require.Empty(t, resp.Streams)

	_, ok, _ := a.Cache.Get(buildCacheKey("movie", mustParse(t, "tt0133093")))
	require.False(t, ok, "an empty result must not be cached")
}

func TestHandleStreamRespectsMaxWait(t *testing.T) {
	a := newAggregator(fakeScraper{name: "slow", delay: time.Second, streams: []stremiotype.Stream{
		{InfoHash: "8888888888888888888888888888888888888888", Seeders: 1},
	}})
	a.MaxWait = 20 * time.Millisecond

	start := time.Now()
	resp, err := a.HandleStream(context.Background(), "movie", "tt0133093")
	require.NoError(t, err)
	require.Less(t, time.Since(start), 500*time.Millisecond)
	require.Empty(t, resp.Streams)
}
