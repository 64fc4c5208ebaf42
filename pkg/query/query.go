// Package query builds scraper-facing search queries from a resolved
// title and recognizes episode markers in free text.
package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nanstate/barestreams/pkg/reqid"
	"github.com/nanstate/barestreams/pkg/titleindex"
)

// Queries is the search-term pair derived from a title.
type Queries struct {
	BaseTitle      string
	Query          string
	FallbackQuery  string // "" when there's no useful fallback
	EpisodeSuffix  string // "" unless season+episode are both set
}

var seriesTypes = map[string]struct{}{
	"tvseries":     {},
	"tvminiseries": {},
	"tvepisode":    {},
}

// Build derives the primary and fallback search queries for a parsed
// request id, given the resolved title basics (nil if the lookup
// missed).
func Build(p reqid.Parsed, basics *titleindex.Basics) Queries {
	baseTitle := p.BaseID
	titleType := ""
	startYear := 0
	if basics != nil {
		titleType = basics.TitleType
		startYear = basics.StartYear
		switch {
		case basics.PrimaryTitle != "":
			baseTitle = basics.PrimaryTitle
		case basics.OriginalTitle != "":
			baseTitle = basics.OriginalTitle
		}
	}

	var episodeSuffix string
	if p.HasEpisode() {
		episodeSuffix = fmt.Sprintf("S%02dE%02d", p.Season, p.Episode)
	}

	isSeries := episodeSuffix != ""
	if !isSeries && titleType != "" {
		_, isSeries = seriesTypes[strings.ToLower(titleType)]
	}

	q := Queries{BaseTitle: baseTitle, EpisodeSuffix: episodeSuffix}

	if isSeries && episodeSuffix != "" {
		q.Query = normalize(baseTitle + " " + episodeSuffix)
		q.FallbackQuery = normalize(baseTitle)
		return q
	}

	if startYear > 0 {
		q.Query = normalize(baseTitle + " " + strconv.Itoa(startYear))
	} else {
		q.Query = normalize(baseTitle)
	}
	fallback := normalize(baseTitle)
	if fallback != q.Query {
		q.FallbackQuery = fallback
	}
	return q
}

var (
	nonAlnumRun  = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	multiSpace   = regexp.MustCompile(`\s+`)
	severedPossessive = regexp.MustCompile(`(\w) s\b`)
)

// normalize collapses punctuation into single spaces, trims, and
// re-attaches possessives that punctuation stripping severed (e.g.
// "Tale s" -> "Tales" after "Tale's" lost its apostrophe).
func normalize(s string) string {
	s = nonAlnumRun.ReplaceAllString(s, " ")
	s = multiSpace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = severedPossessive.ReplaceAllString(s, "${1}s")
	return s
}

var (
	episodeReVerbose = regexp.MustCompile(`(?i)S(?:eason)?\s*0?(\d{1,2})\s*E(?:pisode)?\s*0?(\d{1,2})`)
	episodeReShort   = regexp.MustCompile(`(?i)S(\d{1,2})E(\d{1,2})`)
	episodeReX       = regexp.MustCompile(`(?i)(\d{1,2})x(\d{1,2})`)
)

// Episode is a recognized season/episode pair parsed out of free text.
type Episode struct {
	Season  int
	Episode int
}

// ParseEpisode tries, in order, "S01E02"/"Season 1 Episode 2", "S1E2",
// then "1x02" forms. It returns nil if none match.
func ParseEpisode(text string) *Episode {
	for _, re := range []*regexp.Regexp{episodeReVerbose, episodeReShort, episodeReX} {
		if m := re.FindStringSubmatch(text); m != nil {
			season, errS := strconv.Atoi(m[1])
			episode, errE := strconv.Atoi(m[2])
			if errS == nil && errE == nil {
				return &Episode{Season: season, Episode: episode}
			}
		}
	}
	return nil
}

// MatchesEpisode reports whether name's season/episode (if any can be
// parsed) matches the target season/episode. If season and episode are
// both 0, any name matches. If they're set but name carries no recognizable
// episode marker, it doesn't match.
func MatchesEpisode(name string, season, episode int) bool {
	if season == 0 && episode == 0 {
		return true
	}
	got := ParseEpisode(name)
	if got == nil {
		return false
	}
	return got.Season == season && got.Episode == episode
}
