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

const x1337xDetailConcurrency = 5

// X1337X scrapes 1337x-style trackers. It's the heaviest user of the
// bypass pool in the set, since this family of sites is most often
// behind an anti-bot challenge.
type X1337X struct {
	BaseURLs []string
	HTTP     *httpclient.Client
}

func (x X1337X) Name() string { return "1337x" }

func (x X1337X) Scrape(ctx context.Context, req Request) []stremiotype.Stream {
	if len(x.BaseURLs) == 0 || ctx.Err() != nil {
		return nil
	}

	q := req.Queries.Query
	var rows []candidate
	for _, base := range x.BaseURLs {
		if ctx.Err() != nil {
			break
		}
		rows = append(rows, x.search(ctx, base, q)...)
		if len(rows) == 0 && req.Queries.FallbackQuery != "" {
			rows = append(rows, x.search(ctx, base, req.Queries.FallbackQuery)...)
		}
	}

	rows = dedupeCandidates(rows)
	rows = filterByEpisode(rows, req)
	rankBySeeders(rows)
	rows = x.fetchMagnets(ctx, rows)

	streams := make([]stremiotype.Stream, 0, len(rows))
	for _, c := range rows {
		if s := buildStream(x.Name(), c, req); s != nil {
			streams = append(streams, *s)
		}
	}
	return streams
}

func (x X1337X) search(ctx context.Context, base, q string) []candidate {
	u := fmt.Sprintf("%s/search/%s/1/", base, url.PathEscape(q))
	body := x.HTTP.FetchText(ctx, u, httpclient.Options{Scraper: "1337x", WarmupURL: base})
	if body == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var cands []candidate
	doc.Find(".table-list tbody tr").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a").Next()
		title := strings.TrimSpace(link.Text())
		href, ok := link.Attr("href")
		if !ok || !strings.HasPrefix(href, "/torrent/") {
			return
		}
		seedText := s.Find("td.coll-2").First().Text()
		if seedText == "" {
			seedText = s.Find("td.seeds").First().Text()
		}
		seeders, hasSeeders := parseSeeders(seedText)
		cands = append(cands, candidate{
			Title:      title,
			DetailURL:  base + href,
			Quality:    quality.Extract(title),
			Seeders:    seeders,
			HasSeeders: hasSeeders,
		})
	})
	return cands
}

func (x X1337X) fetchMagnets(ctx context.Context, rows []candidate) []candidate {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x1337xDetailConcurrency)
	for i := range rows {
		if rows[i].DetailURL == "" {
			continue
		}
		i := i
		g.Go(func() error {
			body := x.HTTP.FetchText(gctx, rows[i].DetailURL, httpclient.Options{Scraper: "1337x"})
			if body == "" {
				return nil
			}
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
			if err != nil {
				return nil
			}
			if href, ok := doc.Find("a[href^='magnet:']").First().Attr("href"); ok {
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
