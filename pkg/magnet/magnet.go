// Package magnet parses magnet: URIs into a normalized info hash and
// tracker list.
package magnet

import (
	"encoding/base32"
	"encoding/hex"
	"net/url"
	"strings"
)

// Info is the normalized content of a magnet URI.
type Info struct {
	// InfoHash is always 40 lowercase hex characters.
	InfoHash string
	// Sources is the deduplicated, "tracker:"-prefixed tracker list, in
	// first-occurrence order.
	Sources []string
}

const btihPrefix = "urn:btih:"

// Parse extracts the info hash and trackers from a magnet URI.
// It returns nil if uri isn't a magnet: URI or doesn't carry a
// recognizable xt=urn:btih value.
func Parse(uri string) *Info {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "magnet" {
		return nil
	}
	q := u.Query()

	infoHash := ""
	for _, xt := range q["xt"] {
		hash, ok := extractHash(xt)
		if ok {
			infoHash = hash
			break
		}
	}
	if infoHash == "" {
		return nil
	}

	seen := make(map[string]struct{}, len(q["tr"]))
	var sources []string
	for _, tr := range q["tr"] {
		if tr == "" {
			continue
		}
		if !strings.HasPrefix(tr, "tracker:") {
			tr = "tracker:" + tr
		}
		if _, dup := seen[tr]; dup {
			continue
		}
		seen[tr] = struct{}{}
		sources = append(sources, tr)
	}

	return &Info{InfoHash: infoHash, Sources: sources}
}

// extractHash checks whether xt carries a urn:btih value (case-insensitive
// on the prefix) and, if so, normalizes it to 40 lowercase hex characters.
func extractHash(xt string) (string, bool) {
	if len(xt) < len(btihPrefix) || !strings.EqualFold(xt[:len(btihPrefix)], btihPrefix) {
		return "", false
	}
	rest := xt[len(btihPrefix):]

	switch len(rest) {
	case 40:
		if !isHex(rest) {
			return "", false
		}
		return strings.ToLower(rest), true
	case 32:
		decoded, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(rest))
		if err != nil || len(decoded) != 20 {
			return "", false
		}
		return hex.EncodeToString(decoded), true
	default:
		return "", false
	}
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
