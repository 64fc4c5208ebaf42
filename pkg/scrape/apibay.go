package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nanstate/barestreams/pkg/httpclient"
	"github.com/nanstate/barestreams/pkg/quality"
	"github.com/nanstate/barestreams/pkg/stremiotype"
)

var (
	apibayMovieCategories = []string{"207", "201"}
	apibaySeriesCategories = []string{"208", "205"}
)

type apibayRow struct {
	Name     string `json:"name"`
	InfoHash string `json:"info_hash"`
	Seeders  string `json:"seeders"`
	Size     string `json:"size"`
}

// ApiBay scrapes apibay.org / The Pirate Bay's JSON search endpoint.
// It fans a query across every configured base and category in one
// settle. Its bypass pool key is "apibay", for every base URL and
// category alike.
type ApiBay struct {
	BaseURLs []string
	Series   bool
	HTTP     *httpclient.Client
}

func (a ApiBay) Name() string { return "ApiBay" }

func (a ApiBay) Scrape(ctx context.Context, req Request) []stremiotype.Stream {
	if len(a.BaseURLs) == 0 || ctx.Err() != nil {
		return nil
	}

	categories := apibayMovieCategories
	if a.Series {
		categories = apibaySeriesCategories
	}

	q := req.Queries.Query
	var cands []candidate
	for _, base := range a.BaseURLs {
		for _, cat := range categories {
			if ctx.Err() != nil {
				break
			}
			cands = append(cands, a.searchOne(ctx, base, q, cat)...)
		}
	}
	if len(cands) == 0 && req.Queries.FallbackQuery != "" {
		for _, base := range a.BaseURLs {
			for _, cat := range categories {
				if ctx.Err() != nil {
					break
				}
				cands = append(cands, a.searchOne(ctx, base, req.Queries.FallbackQuery, cat)...)
			}
		}
	}

	cands = dedupeCandidates(cands)
	cands = filterByEpisode(cands, req)
	rankBySeeders(cands)

	streams := make([]stremiotype.Stream, 0, len(cands))
	for _, c := range cands {
		if s := buildStream(a.Name(), c, req); s != nil {
			streams = append(streams, *s)
		}
	}
	return streams
}

func (a ApiBay) searchOne(ctx context.Context, base, q, category string) []candidate {
	u := fmt.Sprintf("%s/q.php?q=%s&cat=%s", base, url.QueryEscape(q), category)
	body := a.HTTP.FetchText(ctx, u, httpclient.Options{Scraper: "apibay", WarmupURL: base})
	if body == "" {
		return nil
	}

	var rows []apibayRow
	if !decodeJSONLoose(body, &rows) {
		return nil
	}

	cands := make([]candidate, 0, len(rows))
	for _, r := range rows {
		hash := strings.ToLower(r.InfoHash)
		// apibay returns a single placeholder row with info_hash "0000..."
		// when a search has no matches.
		if hash == "" || strings.Trim(hash, "0") == "" {
			continue
		}
		seeders, _ := strconv.Atoi(r.Seeders)
		size, _ := strconv.ParseInt(r.Size, 10, 64)
		cands = append(cands, candidate{
			Title:      r.Name,
			InfoHash:   hash,
			MagnetURL:  "magnet:?xt=urn:btih:" + hash,
			Seeders:    seeders,
			HasSeeders: true,
			SizeBytes:  size,
			Quality:    quality.Extract(r.Name),
		})
	}
	return cands
}
