package scrape

import (
	"regexp"
	"strconv"
	"strings"
)

var sizeRe = regexp.MustCompile(`(?i)([\d.,]+)\s*(B|KB|KIB|MB|MIB|GB|GIB|TB|TIB)`)

var sizeMultiplier = map[string]int64{
	"B":   1,
	"KB":  1024,
	"KIB": 1024,
	"MB":  1024 * 1024,
	"MIB": 1024 * 1024,
	"GB":  1024 * 1024 * 1024,
	"GIB": 1024 * 1024 * 1024,
	"TB":  1024 * 1024 * 1024 * 1024,
	"TIB": 1024 * 1024 * 1024 * 1024,
}

// parseSize reads a human size like "1.4 GB" or "700 MiB" into bytes.
// It deliberately uses 1024 as the base for both SI and binary units -
// known inaccurate for the SI ones, but matches what every scraped site
// actually means by "GB" in practice. Returns 0 if text carries no
// recognizable size.
func parseSize(text string) int64 {
	m := sizeRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	numStr := strings.ReplaceAll(m[1], ",", "")
	f, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0
	}
	mult, ok := sizeMultiplier[strings.ToUpper(m[2])]
	if !ok {
		return 0
	}
	return int64(f * float64(mult))
}

var digitsRe = regexp.MustCompile(`\d+`)

// parseSeeders reads a listing row's seed-count cell into an int. It
// reports false when the text carries no digits at all (a layout miss,
// not a real zero), so callers can tell "unparseable" apart from a
// genuine zero-seed row.
func parseSeeders(text string) (int, bool) {
	m := digitsRe.FindString(strings.TrimSpace(text))
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}
