package scrape

import (
	"context"
	"fmt"
	"strings"

	"github.com/nanstate/barestreams/pkg/httpclient"
	"github.com/nanstate/barestreams/pkg/stremiotype"
	"github.com/tidwall/gjson"
)

// YTS scrapes yts.mx-style trackers, which expose a plain JSON API and
// serve infoHash directly - no detail-page fetch required.
type YTS struct {
	BaseURLs []string
	HTTP     *httpclient.Client
}

func (y YTS) Name() string { return "YTS" }

func (y YTS) Scrape(ctx context.Context, req Request) []stremiotype.Stream {
	if len(y.BaseURLs) == 0 || ctx.Err() != nil {
		return nil
	}
	// YTS only serves movies; the request id's base IMDb id is the query.
	if req.Parsed.HasEpisode() {
		return nil
	}

	var cands []candidate
	for _, base := range y.BaseURLs {
		if ctx.Err() != nil {
			break
		}
		cands = append(cands, y.searchOne(ctx, base, req.Parsed.BaseID)...)
	}

	cands = dedupeCandidates(cands)
	rankBySeeders(cands)

	streams := make([]stremiotype.Stream, 0, len(cands))
	for _, c := range cands {
		if s := buildStream(y.Name(), c, req); s != nil {
			streams = append(streams, *s)
		}
	}
	return streams
}

func (y YTS) searchOne(ctx context.Context, base, imdbID string) []candidate {
	url := fmt.Sprintf("%s/api/v2/list_movies.json?query_term=%s&limit=1", base, imdbID)
	body := y.HTTP.FetchText(ctx, url, httpclient.Options{Scraper: "yts", WarmupURL: base})
	if body == "" {
		return nil
	}

	var cands []candidate
	movies := gjson.Get(body, "data.movies")
	if !movies.Exists() {
		return nil
	}
	movies.ForEach(func(_, movie gjson.Result) bool {
		if movie.Get("imdb_code").String() != imdbID {
			return true
		}
		title := movie.Get("title_long").String()
		movie.Get("torrents").ForEach(func(_, t gjson.Result) bool {
			hash := strings.ToLower(t.Get("hash").String())
			if hash == "" {
				return true
			}
			quality := strings.TrimSpace(t.Get("quality").String() + " " + t.Get("type").String())
			cands = append(cands, candidate{
				Title:      title,
				InfoHash:   hash,
				Seeders:    int(t.Get("seeds").Int()),
				HasSeeders: true,
				SizeBytes:  t.Get("size_bytes").Int(),
				Quality:    quality,
			})
			return true
		})
		return true
	})
	return cands
}
