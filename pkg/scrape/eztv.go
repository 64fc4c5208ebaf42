package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/nanstate/barestreams/pkg/httpclient"
	"github.com/nanstate/barestreams/pkg/query"
	"github.com/nanstate/barestreams/pkg/stremiotype"
	"golang.org/x/sync/errgroup"
)

const (
	eztvMaxPages       = 50
	eztvPageConcurrency = 5
	eztvHTMLLinkLimit  = 15
)

type eztvTorrent struct {
	Hash      string `json:"hash"`
	Title     string `json:"title"`
	Season    string `json:"season"`
	Episode   string `json:"episode"`
	Seeds     int    `json:"seeds"`
	SizeBytes string `json:"size_bytes"`
}

type eztvResponse struct {
	TorrentsCount int           `json:"torrents_count"`
	Torrents      []eztvTorrent `json:"torrents"`
}

// EZTV scrapes eztv.re/eztvx.to-style trackers: a paginated JSON API,
// falling back to an HTML search page when the API has nothing for the
// requested episode.
type EZTV struct {
	BaseURLs []string
	HTTP     *httpclient.Client
}

func (e EZTV) Name() string { return "EZTV" }

func (e EZTV) Scrape(ctx context.Context, req Request) []stremiotype.Stream {
	if len(e.BaseURLs) == 0 || ctx.Err() != nil {
		return nil
	}

	var cands []candidate
	for _, base := range e.BaseURLs {
		if ctx.Err() != nil {
			break
		}
		cands = append(cands, e.searchOne(ctx, base, req)...)
	}

	cands = filterByEpisode(cands, req)
	if len(cands) == 0 && req.Parsed.HasEpisode() {
		cands = e.htmlFallback(ctx, e.BaseURLs[0], req)
	}

	cands = dedupeCandidates(cands)
	rankBySeeders(cands)

	streams := make([]stremiotype.Stream, 0, len(cands))
	for _, c := range cands {
		if s := buildStream(e.Name(), c, req); s != nil {
			streams = append(streams, *s)
		}
	}
	return streams
}

// searchOne tries both the digits-only and "tt"-prefixed id forms
// against base, paginating until torrents_count is satisfied or the
// page cap is hit.
func (e EZTV) searchOne(ctx context.Context, base string, req Request) []candidate {
	digits := strings.TrimPrefix(req.Parsed.BaseID, "tt")
	for _, id := range []string{digits, req.Parsed.BaseID} {
		if cands := e.paginate(ctx, base, id); len(cands) > 0 {
			return cands
		}
	}
	return nil
}

func (e EZTV) paginate(ctx context.Context, base, imdbID string) []candidate {
	first, total := e.fetchPage(ctx, base, imdbID, 1)
	if len(first) == 0 {
		return nil
	}
	cands := first
	gotten := len(first)
	pages := 2

	for gotten < total && pages <= eztvMaxPages && ctx.Err() == nil {
		batch := make([]int, 0, eztvPageConcurrency)
		for len(batch) < eztvPageConcurrency && pages <= eztvMaxPages {
			batch = append(batch, pages)
			pages++
		}

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		for _, p := range batch {
			page := p
			g.Go(func() error {
				results, _ := e.fetchPage(gctx, base, imdbID, page)
				if len(results) == 0 {
					return nil
				}
				mu.Lock()
				cands = append(cands, results...)
				gotten += len(results)
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}
	return cands
}

func (e EZTV) fetchPage(ctx context.Context, base, imdbID string, page int) ([]candidate, int) {
	u := fmt.Sprintf("%s/api/get-torrents?imdb_id=%s&page=%d", base, imdbID, page)
	body := e.HTTP.FetchText(ctx, u, httpclient.Options{Scraper: "eztv", WarmupURL: base})
	if body == "" {
		return nil, 0
	}

	var resp eztvResponse
	if !decodeJSONLoose(body, &resp) {
		return nil, 0
	}

	cands := make([]candidate, 0, len(resp.Torrents))
	for _, t := range resp.Torrents {
		if t.Hash == "" {
			continue
		}
		season, _ := strconv.Atoi(t.Season)
		episode, _ := strconv.Atoi(t.Episode)
		size, _ := strconv.ParseInt(t.SizeBytes, 10, 64)
		title := t.Title
		if season > 0 && episode > 0 && query.ParseEpisode(title) == nil {
			title = fmt.Sprintf("%s S%02dE%02d", title, season, episode)
		}
		cands = append(cands, candidate{
			Title:      title,
			InfoHash:   strings.ToLower(t.Hash),
			Seeders:    t.Seeds,
			HasSeeders: true,
			SizeBytes:  size,
		})
	}
	return cands, resp.TorrentsCount
}

// htmlFallback scrapes the HTML search page when the JSON API has
// nothing for this title/episode combination.
func (e EZTV) htmlFallback(ctx context.Context, base string, req Request) []candidate {
	term := req.Queries.Query
	if req.Queries.EpisodeSuffix != "" {
		term = req.Queries.BaseTitle + " " + req.Queries.EpisodeSuffix
	}
	searchURL := base + "/search/" + url.PathEscape(strings.ReplaceAll(term, " ", "-"))

	body := e.HTTP.FetchText(ctx, searchURL, httpclient.Options{Scraper: "eztv", WarmupURL: base})
	if body == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href^='/ep/']").Each(func(_ int, s *goquery.Selection) {
		if len(links) >= eztvHTMLLinkLimit {
			return
		}
		if href, ok := s.Attr("href"); ok {
			links = append(links, base+href)
		}
	})

	var cands []candidate
	for _, link := range links {
		if ctx.Err() != nil {
			break
		}
		page := e.HTTP.FetchText(ctx, link, httpclient.Options{Scraper: "eztv", WarmupURL: base})
		if page == "" {
			continue
		}
		pdoc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
		if err != nil {
			continue
		}
		magnetHref, ok := pdoc.Find("a[href^='magnet:']").First().Attr("href")
		if !ok {
			continue
		}
		title := strings.TrimSpace(pdoc.Find("title").First().Text())
		if !query.MatchesEpisode(title, req.Parsed.Season, req.Parsed.Episode) {
			continue
		}
		seedText := pdoc.Find(".stat-seeds").First().Text()
		if seedText == "" {
			pdoc.Find("td, li, span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if strings.Contains(strings.ToLower(s.Text()), "seed") {
					seedText = s.Next().Text()
					return false
				}
				return true
			})
		}
		seeders, hasSeeders := parseSeeders(seedText)
		cands = append(cands, candidate{
			Title:      title,
			MagnetURL:  magnetHref,
			Seeders:    seeders,
			HasSeeders: hasSeeders,
		})
	}
	return cands
}
