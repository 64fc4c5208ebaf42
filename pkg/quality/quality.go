// Package quality extracts a normalized resolution label from free text.
package quality

import "regexp"

var tagRe = regexp.MustCompile(`(?i)\b(2160p|1080p|720p|480p|4k|uhd)\b`)

// Extract scans text case-insensitively for the first word-bounded
// quality token and canonicalizes 4K/UHD to 2160p. It returns "" when no
// tag is found.
func Extract(text string) string {
	match := tagRe.FindString(text)
	if match == "" {
		return ""
	}
	switch match {
	case "4k", "4K", "uhd", "UHD", "Uhd", "uHD":
		return "2160p"
	}
	// Already one of 2160p/1080p/720p/480p in some casing, or a mixed-case
	// 4k/uhd variant not covered above.
	lower := []rune(match)
	for i, r := range lower {
		if r >= 'A' && r <= 'Z' {
			lower[i] = r + ('a' - 'A')
		}
	}
	normalized := string(lower)
	if normalized == "4k" || normalized == "uhd" {
		return "2160p"
	}
	return normalized
}
