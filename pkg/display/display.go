// Package display builds the user-visible name/title/description lines
// for a stream, the way the addon protocol's clients expect them.
package display

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// titlePattern builds a regex that matches title's words wherever they
// appear in a release name, however the words are joined (dots,
// underscores, spaces, ...), so it matches "The.Handmaid's.Tale" against
// the space-separated IMDb title "The Handmaid's Tale".
func titlePattern(title string) *regexp.Regexp {
	words := strings.Fields(title)
	if len(words) == 0 {
		return nil
	}
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(parts, `[\W_]+`))
}

// Input is everything DisplayFormatter needs to build the three display
// lines for one candidate.
type Input struct {
	IMDbTitle   string
	Season      int // 0 if not applicable
	Episode     int // 0 if not applicable
	TorrentName string
	Quality     string // "" if unknown
	Source      string // "" becomes "Unknown" in the slug / "Stream" in Name
	Seeders     int
	HasSeeders  bool
	SizeBytes   int64 // 0 if unknown
	SizeLabel   string // preferred over SizeBytes when non-empty
}

// Output is the formatted display triple.
type Output struct {
	Name        string
	Title       string
	Description string
}

var (
	episodeSegment = regexp.MustCompile(`(?i)S\d{1,2}E\d{1,2}`)
	punctuation    = regexp.MustCompile(`[._\[\]()]+`)
	multiSpace     = regexp.MustCompile(`\s+`)
)

// Format builds the Name/Title/Description triple for one candidate.
func Format(in Input) Output {
	name := in.Source
	if name == "" {
		name = "Stream"
	}

	title := "Watch " + titleQuality(in.Quality)

	var lines []string
	if in.IMDbTitle != "" {
		lines = append(lines, in.IMDbTitle)
	}
	if in.Season > 0 && in.Episode > 0 {
		lines = append(lines, fmt.Sprintf("Season %d Episode %d", in.Season, in.Episode))
	}

	source := in.Source
	if source == "" {
		source = "Unknown"
	}
	lines = append(lines, fmt.Sprintf("%s (%s)", slug(in), source))

	lines = append(lines, infoLine(in))

	return Output{Name: name, Title: title, Description: strings.Join(lines, "\n")}
}

// titleQuality renders the "Watch <Q>" quality token.
func titleQuality(q string) string {
	switch strings.ToLower(q) {
	case "2160p", "4k", "uhd":
		return "4K"
	case "":
		return "480p"
	default:
		return strings.ToLower(q)
	}
}

// slug builds the release-name line: the torrent name with the IMDb
// title and any SxxEyy segment stripped and punctuation collapsed,
// falling back to the raw quality string or "Unknown release".
func slug(in Input) string {
	s := in.TorrentName
	if s == "" {
		if in.Quality != "" {
			return in.Quality
		}
		return "Unknown release"
	}

	if re := titlePattern(in.IMDbTitle); re != nil {
		s = re.ReplaceAllString(s, "")
	}
	s = episodeSegment.ReplaceAllString(s, "")
	s = punctuation.ReplaceAllString(s, " ")
	s = multiSpace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if s == "" {
		if in.Quality != "" {
			return in.Quality
		}
		return "Unknown release"
	}
	return s
}

// infoLine builds the "🌱 <seeders> • 💾 <size>" line.
func infoLine(in Input) string {
	seeders := "0"
	if in.HasSeeders {
		seeders = strconv.Itoa(in.Seeders)
	}

	size := "Unknown size"
	switch {
	case in.SizeLabel != "":
		size = in.SizeLabel
	case in.SizeBytes > 0:
		size = formatBytes(in.SizeBytes)
	}

	return fmt.Sprintf("🌱 %s • 💾 %s", seeders, size)
}

var units = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// formatBytes picks the greatest unit for which value >= 1, with zero
// decimals at unit B or when value >= 10, otherwise two decimals.
func formatBytes(n int64) string {
	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(units)-1 {
		value /= 1024
		unit++
	}

	if units[unit] == "B" || value >= 10 {
		return fmt.Sprintf("%.0f %s", value, units[unit])
	}
	return fmt.Sprintf("%.2f %s", value, units[unit])
}
