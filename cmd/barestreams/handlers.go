package main

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nanstate/barestreams/pkg/aggregator"
	"github.com/nanstate/barestreams/pkg/query"
	"github.com/nanstate/barestreams/pkg/reqerr"
	"github.com/nanstate/barestreams/pkg/reqid"
	"github.com/nanstate/barestreams/pkg/scrape"
	"github.com/nanstate/barestreams/pkg/stremiotype"
	"github.com/nanstate/barestreams/pkg/titleindex"
)

func buildManifest() stremiotype.Manifest {
	return stremiotype.Manifest{
		ID:          "dev.nanstate.barestreams",
		Version:     "0.1.0",
		Name:        "barestreams",
		Description: "Resolves movie and series streams from public torrent trackers, on demand.",
		Resources:   []string{"stream"},
		Types:       []string{"movie", "series"},
		IDPrefixes:  []string{"tt"},
		Catalogs:    []stremiotype.CatalogItem{},
		BehaviorHints: stremiotype.BehaviorHints{
			P2P: true,
		},
	}
}

// manifestHandler serves the addon manifest. The manifest is static for
// the life of the process, so it's built once up front.
func manifestHandler() fiber.Handler {
	manifest := buildManifest()
	return func(c *fiber.Ctx) error {
		return c.JSON(manifest)
	}
}

// streamHandler resolves GET /stream/:type/:id.json, stripping the
// ".json" suffix Stremio's addon protocol appends to the id segment.
func streamHandler(agg *aggregator.Aggregator, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		streamType := c.Params("type")
		id := strings.TrimSuffix(c.Params("id"), ".json")

		resp, err := agg.HandleStream(c.Context(), streamType, id)
		if err != nil {
			if errors.Is(err, reqerr.ErrInvalidRequest) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"err": "invalid stream request"})
			}
			logger.Error("stream handler failed", zap.Error(err), zap.String("type", streamType), zap.String("id", id))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"err": "internal error"})
		}
		return c.JSON(resp)
	}
}

type scraperStatus struct {
	Scraper     string `json:"scraper"`
	StreamCount int    `json:"streamCount"`
	DurationMs  int64  `json:"durationMs"`
}

type statusResponse struct {
	IMDbID   string          `json:"imdbId"`
	Type     string          `json:"type"`
	Scrapers []scraperStatus `json:"scrapers"`
}

// statusHandler is the debug endpoint SPEC_FULL.md adds beyond the base
// addon protocol: it fans the id out across every scraper configured for
// the given type, bypassing the result cache entirely, and reports how
// many candidates and how long each scraper took. Useful for telling a
// dead upstream apart from a genuinely empty result.
func statusHandler(agg *aggregator.Aggregator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		imdbID := c.Query("imdbid")
		streamType := c.Query("type", "movie")
		if imdbID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"err": "imdbid query parameter is required"})
		}
		if streamType != "movie" && streamType != "series" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"err": `type must be "movie" or "series"`})
		}

		parsed, err := reqid.Parse(imdbID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"err": "invalid imdbid"})
		}

		scrapers := agg.MovieScrapers
		if streamType == "series" {
			scrapers = agg.SeriesScrapers
		}

		basics := agg.Titles.Lookup(parsed.BaseID)
		queries := query.Build(parsed, basics)
		req := scrape.Request{Parsed: parsed, Queries: queries, IMDbTitle: statusDisplayTitle(basics, parsed)}

		results := make([]scraperStatus, len(scrapers))
		var wg sync.WaitGroup
		for i, s := range scrapers {
			wg.Add(1)
			go func(i int, s scrape.Scraper) {
				defer wg.Done()
				start := time.Now()
				streams := s.Scrape(c.Context(), req)
				results[i] = scraperStatus{
					Scraper:     s.Name(),
					StreamCount: len(streams),
					DurationMs:  time.Since(start).Milliseconds(),
				}
			}(i, s)
		}
		wg.Wait()

		return c.JSON(statusResponse{IMDbID: parsed.BaseID, Type: streamType, Scrapers: results})
	}
}

func statusDisplayTitle(basics *titleindex.Basics, p reqid.Parsed) string {
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
