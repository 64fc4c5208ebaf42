// Package reqid parses and formats the addon's stream request id.
package reqid

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Sentinel errors for the ways an id can fail to parse. Wrap with %w so
// callers can match via errors.Is.
var (
	ErrInvalidSegmentCount = errors.New("reqid: id must have 1 or 3 colon-separated segments")
	ErrInvalidBaseID       = errors.New("reqid: base id must match tt\\d+")
	ErrInvalidSeason       = errors.New("reqid: season must be a positive integer")
	ErrInvalidEpisode      = errors.New("reqid: episode must be a positive integer")
)

var baseIDRe = regexp.MustCompile(`^tt\d+$`)

// Parsed is the decoded form of a request id.
type Parsed struct {
	BaseID  string
	Season  int // 0 if not set
	Episode int // 0 if not set
}

// HasEpisode reports whether both season and episode are set.
func (p Parsed) HasEpisode() bool {
	return p.Season > 0 && p.Episode > 0
}

// Parse decodes "tt1234567" or "tt1234567:season:episode" into a Parsed
// value. Any other shape returns a wrapped sentinel error.
func Parse(id string) (Parsed, error) {
	parts := strings.Split(id, ":")
	switch len(parts) {
	case 1:
		if !baseIDRe.MatchString(parts[0]) {
			return Parsed{}, fmt.Errorf("%w: %q", ErrInvalidBaseID, id)
		}
		return Parsed{BaseID: parts[0]}, nil
	case 3:
		if !baseIDRe.MatchString(parts[0]) {
			return Parsed{}, fmt.Errorf("%w: %q", ErrInvalidBaseID, id)
		}
		season, err := strconv.Atoi(parts[1])
		if err != nil || season <= 0 {
			return Parsed{}, fmt.Errorf("%w: %q", ErrInvalidSeason, id)
		}
		episode, err := strconv.Atoi(parts[2])
		if err != nil || episode <= 0 {
			return Parsed{}, fmt.Errorf("%w: %q", ErrInvalidEpisode, id)
		}
		return Parsed{BaseID: parts[0], Season: season, Episode: episode}, nil
	default:
		return Parsed{}, fmt.Errorf("%w: %q", ErrInvalidSegmentCount, id)
	}
}

// Format reverses Parse for well-formed values: Format(Parse(id)) == id.
func Format(p Parsed) string {
	if p.HasEpisode() {
		return fmt.Sprintf("%s:%d:%d", p.BaseID, p.Season, p.Episode)
	}
	return p.BaseID
}
