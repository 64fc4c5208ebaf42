package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nanstate/barestreams/pkg/httpclient"
	"github.com/nanstate/barestreams/pkg/quality"
	"github.com/nanstate/barestreams/pkg/stremiotype"
	"golang.org/x/sync/errgroup"
)

// tgxDetailConcurrency bounds how many detail pages are fetched at once
// to recover a magnet link, independent of how many rows TGX_DETAIL_LIMIT
// lets through.
const tgxDetailConcurrency = 5

// TorrentGalaxy scrapes torrentgalaxy-style trackers: an HTML result
// listing followed by a bounded number of detail-page fetches to
// recover each magnet link.
type TorrentGalaxy struct {
	BaseURLs    []string
	DetailLimit int
	HTTP        *httpclient.Client
}

func (t TorrentGalaxy) Name() string { return "TorrentGalaxy" }

func (t TorrentGalaxy) Scrape(ctx context.Context, req Request) []stremiotype.Stream {
	if len(t.BaseURLs) == 0 || ctx.Err() != nil {
		return nil
	}

	q := req.Queries.Query
	var rows []candidate
	for _, base := range t.BaseURLs {
		if ctx.Err() != nil {
			break
		}
		rows = append(rows, t.search(ctx, base, q)...)
		if len(rows) == 0 && req.Queries.FallbackQuery != "" {
			rows = append(rows, t.search(ctx, base, req.Queries.FallbackQuery)...)
		}
	}

	rows = dedupeCandidates(rows)
	rows = filterByEpisode(rows, req)
	rankBySeeders(rows)

	limit := t.DetailLimit
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}
	rows = t.fetchMagnets(ctx, rows[:limit])

	streams := make([]stremiotype.Stream, 0, len(rows))
	for _, c := range rows {
		if s := buildStream(t.Name(), c, req); s != nil {
			streams = append(streams, *s)
		}
	}
	return streams
}

func (t TorrentGalaxy) search(ctx context.Context, base, q string) []candidate {
	u := fmt.Sprintf("%s/lmsearch?q=%s&category=lmsearch&page=1", base, url.QueryEscape(q))
	body := t.HTTP.FetchText(ctx, u, httpclient.Options{Scraper: "torrentgalaxy", WarmupURL: base})
	if body == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var cands []candidate
	doc.Find(".table-list-wrap tbody tr").Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find("a[title]").First().AttrOr("title", ""))
		if title == "" {
			title = strings.TrimSpace(s.Find("a").First().Text())
		}
		href, ok := s.Find("a[href^='/torrent/']").First().Attr("href")
		if !ok {
			return
		}
		seedText := s.Find(".badge-success").First().Text()
		if seedText == "" {
			seedText = s.Find(".tgxseeds").First().Text()
		}
		seeders, hasSeeders := parseSeeders(seedText)
		cands = append(cands, candidate{
			Title:      title,
			DetailURL:  base + href,
			Quality:    quality.Extract(title),
			SizeBytes:  parseSize(s.Find("td").Eq(3).Text()),
			Seeders:    seeders,
			HasSeeders: hasSeeders,
		})
	})
	return cands
}

// fetchMagnets fetches each candidate's detail page in parallel to
// recover the magnet link the listing doesn't carry.
func (t TorrentGalaxy) fetchMagnets(ctx context.Context, rows []candidate) []candidate {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tgxDetailConcurrency)
	for i := range rows {
		if rows[i].DetailURL == "" {
			continue
		}
		i := i
		g.Go(func() error {
			body := t.HTTP.FetchText(gctx, rows[i].DetailURL, httpclient.Options{Scraper: "torrentgalaxy"})
			if body == "" {
				return nil
			}
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
			if err != nil {
				return nil
			}
			if href, ok := doc.Find("a[href^='magnet:?']").First().Attr("href"); ok {
				rows[i].MagnetURL = href
			}
			return nil
		})
	}
	_ = g.Wait()

	out := rows[:0]
	for _, c := range rows {
		if c.MagnetURL != "" {
			out = append(out, c)
		}
	}
	return out
}
