// Package aggregator implements the on-demand fan-out: it dispatches
// every configured scraper for a request, merges what comes back, and
// caches the result.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nanstate/barestreams/pkg/query"
	"github.com/nanstate/barestreams/pkg/quality"
	"github.com/nanstate/barestreams/pkg/rcache"
	"github.com/nanstate/barestreams/pkg/reqerr"
	"github.com/nanstate/barestreams/pkg/reqid"
	"github.com/nanstate/barestreams/pkg/scrape"
	"github.com/nanstate/barestreams/pkg/stremiotype"
	"github.com/nanstate/barestreams/pkg/titleindex"
)

// Aggregator wires the title index, the per-type scraper lists, and the
// result cache together behind a single HandleStream operation.
type Aggregator struct {
	Titles   *titleindex.Index
	Cache    rcache.Cache
	CacheTTL time.Duration
	MaxWait  time.Duration // 0 disables the request-wide deadline
	Logger   *zap.Logger

	MovieScrapers  []scrape.Scraper
	SeriesScrapers []scrape.Scraper
}

// HandleStream resolves the streams for a Stremio "/stream/<type>/<id>"
// request.
func (a *Aggregator) HandleStream(ctx context.Context, streamType, id string) (stremiotype.Response, error) {
	if streamType != "movie" && streamType != "series" {
		return stremiotype.Response{}, reqerr.ErrInvalidRequest
	}
	parsed, err := reqid.Parse(id)
	if err != nil {
		return stremiotype.Response{}, reqerr.ErrInvalidRequest
	}

	start := time.Now()
	cacheKey := buildCacheKey(streamType, parsed)

	if raw, ok, _ := a.Cache.Get(cacheKey); ok {
		var resp stremiotype.Response
		if json.Unmarshal([]byte(raw), &resp) == nil {
			a.logOutcome(streamType, id, "", true, time.Since(start), resp.Streams, nil)
			return resp, nil
		}
	}

	reqCtx := ctx
	if a.MaxWait > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, a.MaxWait)
		defer cancel()
	}

	scrapers := a.MovieScrapers
	if streamType == "series" {
		scrapers = a.SeriesScrapers
	}

	titleDone := make(chan struct{})
	var basics *titleindex.Basics
	go func() {
		basics = a.Titles.Lookup(parsed.BaseID)
		close(titleDone)
	}()

	results := make([][]stremiotype.Stream, len(scrapers))
	var wg sync.WaitGroup
	for i, s := range scrapers {
		wg.Add(1)
		go func(i int, s scrape.Scraper) {
			defer wg.Done()
			select {
			case <-titleDone:
			case <-reqCtx.Done():
				return
			}
			queries := query.Build(parsed, basics)
			results[i] = s.Scrape(reqCtx, scrape.Request{
				Parsed:    parsed,
				Queries:   queries,
				IMDbTitle: displayTitle(basics, parsed),
			})
		}(i, s)
	}
	wg.Wait()
	<-titleDone

	sources := make(map[string]int, len(scrapers))
	merged := mergeResults(scrapers, results, sources)
	merged = filterDeadMagnets(merged)
	sortBySeeders(merged)

	if streamType == "series" {
		for i := range merged {
			merged[i].BehaviorHints = withBingeGroup(merged[i].BehaviorHints, bingeGroup(sourceLabel(merged[i]), qualityLabel(merged[i])))
		}
	}

	resp := stremiotype.Response{Streams: merged}

	if len(merged) > 0 {
		if raw, err := json.Marshal(resp); err == nil {
			_ = a.Cache.Set(cacheKey, string(raw), a.CacheTTL)
		}
	}

	a.logOutcome(streamType, id, displayTitle(basics, parsed), false, time.Since(start), merged, sources)
	return resp, nil
}

func buildCacheKey(streamType string, p reqid.Parsed) string {
	if streamType == "series" {
		if p.HasEpisode() {
			return fmt.Sprintf("stream:series:%s:%d:%d", p.BaseID, p.Season, p.Episode)
		}
		return "stream:series:" + p.BaseID
	}
	return "stream:movie:" + p.BaseID
}

func displayTitle(basics *titleindex.Basics, p reqid.Parsed) string {
	if basics == nil {
		return p.BaseID
	}
	if basics.PrimaryTitle != "" {
		return basics.PrimaryTitle
	}
	if basics.OriginalTitle != "" {
		return basics.OriginalTitle
	}
	return p.BaseID
}

// mergeResults dedupes by infoHash/url across scrapers in call order,
// union-merging sources for any repeat, and records per-scraper counts
// into sources (keyed by scraper name, mutated in place).
func mergeResults(scrapers []scrape.Scraper, results [][]stremiotype.Stream, sourceCounts map[string]int) []stremiotype.Stream {
	seen := make(map[string]int) // identity key -> index into merged
	var merged []stremiotype.Stream

	for i, streams := range results {
		name := ""
		if i < len(scrapers) {
			name = scrapers[i].Name()
		}
		sourceCounts[name] += len(streams)

		for _, s := range streams {
			key := s.IdentityKey()
			if key == "" {
				merged = append(merged, s)
				continue
			}
			if idx, ok := seen[key]; ok {
				merged[idx].Sources = unionSources(merged[idx].Sources, s.Sources)
				continue
			}
			seen[key] = len(merged)
			merged = append(merged, s)
		}
	}
	return merged
}

func unionSources(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func filterDeadMagnets(streams []stremiotype.Stream) []stremiotype.Stream {
	out := streams[:0]
	for _, s := range streams {
		dead := s.Seeders == 0 && (s.InfoHash != "" || strings.HasPrefix(s.URL, "magnet:"))
		if dead {
			continue
		}
		out = append(out, s)
	}
	return out
}

func sortBySeeders(streams []stremiotype.Stream) {
	sort.SliceStable(streams, func(i, j int) bool {
		return streams[i].Seeders > streams[j].Seeders
	})
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func bingeGroup(source, quality string) string {
	slug := strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(source), "-"), "-")
	if quality == "" {
		quality = "unknown"
	}
	return fmt.Sprintf("barestreams-%s-%s", slug, strings.ToLower(quality))
}

func sourceLabel(s stremiotype.Stream) string {
	if s.Name != "" {
		return s.Name
	}
	return "unknown"
}

func qualityLabel(s stremiotype.Stream) string {
	return quality.Extract(s.Description)
}

func withBingeGroup(hints *stremiotype.StreamBehaviorHints, group string) *stremiotype.StreamBehaviorHints {
	if hints == nil {
		hints = &stremiotype.StreamBehaviorHints{}
	}
	hints.BingeGroup = group
	return hints
}

func (a *Aggregator) logOutcome(streamType, id, imdbTitle string, cacheHit bool, dur time.Duration, streams []stremiotype.Stream, sources map[string]int) {
	if a.Logger == nil {
		return
	}
	magnetLinks := 0
	for _, s := range streams {
		if s.InfoHash != "" {
			magnetLinks++
		}
	}
	fields := []zap.Field{
		zap.String("type", streamType),
		zap.String("id", id),
		zap.String("imdbTitle", imdbTitle),
		zap.Bool("cacheHit", cacheHit),
		zap.Int64("durationMs", dur.Milliseconds()),
		zap.Int("magnetLinks", magnetLinks),
	}
	if sources != nil {
		fields = append(fields, zap.Any("sources", sources))
	}
	a.Logger.Info("aggregated stream request", fields...)
}
