// Package scrape implements the per-site scrapers: each turns a search
// query into a set of stremiotype.Stream candidates. The HTML scrapers
// (TorrentGalaxy, 1337x, EZTV's HTML fallback) fetch a search page and
// then detail pages for the magnet; the JSON APIs (YTS, EZTV, ApiBay)
// carry the info hash in the search response itself.
package scrape

import (
	"context"
	"encoding/json"

	"github.com/nanstate/barestreams/pkg/display"
	"github.com/nanstate/barestreams/pkg/magnet"
	"github.com/nanstate/barestreams/pkg/query"
	"github.com/nanstate/barestreams/pkg/reqid"
	"github.com/nanstate/barestreams/pkg/stremiotype"
)

// decodeJSONLoose unmarshals body into v, reporting whether it
// succeeded. Scrapers use it instead of httpclient.FetchJSON when they
// already have the body in hand (e.g. from pagination bookkeeping that
// also needs the raw text).
func decodeJSONLoose(body string, v interface{}) bool {
	return json.Unmarshal([]byte(body), v) == nil
}

// Request is everything a scraper needs to run one search.
type Request struct {
	Parsed  reqid.Parsed
	Queries query.Queries
	// IMDbTitle is the resolved display title, "" if resolution missed.
	IMDbTitle string
}

// Scraper is implemented by every site-specific package member.
type Scraper interface {
	// Name is the source label carried into Stream.Name / bingeGroup.
	Name() string
	// Scrape runs a full search -> detail pass, respecting ctx
	// cancellation. It returns an empty slice (never an error) on
	// failure or cancellation before any result is found.
	Scrape(ctx context.Context, req Request) []stremiotype.Stream
}

// candidate is the intermediate shape every scraper fills in before
// handing off to buildStream.
type candidate struct {
	Title       string
	InfoHash    string
	MagnetURL   string
	DetailURL   string
	Seeders     int
	HasSeeders  bool
	SizeBytes   int64
	SizeLabel   string
	Quality     string
	Filename    string
}

// filterByEpisode drops candidates whose title doesn't name the
// requested season/episode, when the request names one. Every scraper
// whose search can return mixed-episode hits (a fuzzy keyword search,
// not a per-episode API) applies this right after gathering results,
// per the shared scraper outline's episode-filter step.
func filterByEpisode(cands []candidate, req Request) []candidate {
	if !req.Parsed.HasEpisode() {
		return cands
	}
	out := cands[:0]
	for _, c := range cands {
		if query.MatchesEpisode(c.Title, req.Parsed.Season, req.Parsed.Episode) {
			out = append(out, c)
		}
	}
	return out
}

func dedupeCandidates(cands []candidate) []candidate {
	seen := make(map[string]struct{}, len(cands))
	out := make([]candidate, 0, len(cands))
	for _, c := range cands {
		key := c.DetailURL
		if c.MagnetURL != "" {
			key = c.MagnetURL
		}
		if key == "" {
			out = append(out, c)
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// buildStream turns a resolved candidate (one with either an InfoHash or
// a MagnetURL already populated) into the Stream the aggregator deals
// with, filling in the display text and dropping entries whose info
// hash can't be determined at all.
func buildStream(source string, c candidate, req Request) *stremiotype.Stream {
	infoHash := c.InfoHash
	var extraSources []string
	if infoHash == "" && c.MagnetURL != "" {
		if info := magnet.Parse(c.MagnetURL); info != nil {
			infoHash = info.InfoHash
			extraSources = info.Sources
		}
	}
	if infoHash == "" {
		return nil
	}

	out := display.Format(display.Input{
		IMDbTitle:   req.IMDbTitle,
		Season:      req.Parsed.Season,
		Episode:     req.Parsed.Episode,
		TorrentName: c.Title,
		Quality:     c.Quality,
		Source:      source,
		Seeders:     c.Seeders,
		HasSeeders:  c.HasSeeders,
		SizeBytes:   c.SizeBytes,
		SizeLabel:   c.SizeLabel,
	})

	var hints *stremiotype.StreamBehaviorHints
	if c.Filename != "" || c.SizeBytes > 0 {
		hints = &stremiotype.StreamBehaviorHints{Filename: c.Filename, VideoSize: c.SizeBytes}
	}

	return &stremiotype.Stream{
		Name:          out.Name,
		Description:   out.Title + "\n" + out.Description,
		InfoHash:      infoHash,
		Sources:       extraSources,
		BehaviorHints: hints,
		Seeders:       c.Seeders,
	}
}

func rankBySeeders(cands []candidate) {
	// Stable insertion sort is plenty; candidate lists per scraper are
	// small (tens, not thousands).
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0 && cands[j].Seeders > cands[j-1].Seeders; j-- {
			cands[j], cands[j-1] = cands[j-1], cands[j]
		}
	}
}
