// Package stremiotype holds the wire types the addon protocol's
// front-end exchanges with a client: the manifest and the stream
// response envelope.
//
// See https://github.com/Stremio/stremio-addon-sdk/blob/master/docs/api/responses/manifest.md
// and https://github.com/Stremio/stremio-addon-sdk/blob/master/docs/api/responses/stream.md
package stremiotype

// Manifest describes the addon's capabilities.
type Manifest struct {
	ID          string `json:"id"`
	Version     string `json:"version"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	Resources  []string      `json:"resources"`
	Types      []string      `json:"types"`
	IDPrefixes []string      `json:"idPrefixes"`
	Catalogs   []CatalogItem `json:"catalogs"`

	// Optional display extras, carried for parity with the wider addon
	// ecosystem's manifests even though spec.md §6 only requires the
	// fields above.
	Background    string        `json:"background,omitempty"`
	Logo          string        `json:"logo,omitempty"`
	ContactEmail  string        `json:"contactEmail,omitempty"`
	BehaviorHints BehaviorHints `json:"behaviorHints,omitempty"`
}

// CatalogItem represents an entry in Manifest.Catalogs. The resolver
// never populates this (it offers no catalogs), but the field must
// still serialize as an empty array, not null.
type CatalogItem struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BehaviorHints is the manifest-level behavior block.
type BehaviorHints struct {
	P2P bool `json:"p2p,omitempty"`
}

// StreamBehaviorHints is the per-stream behavior block. Every field is
// optional; only the ones the resolver actually fills are non-empty.
type StreamBehaviorHints struct {
	CountryWhitelist []string `json:"countryWhitelist,omitempty"`
	NotWebReady      bool     `json:"notWebReady,omitempty"`
	BingeGroup       string   `json:"bingeGroup,omitempty"`
	ProxyHeaders     *ProxyHeaders `json:"proxyHeaders,omitempty"`
	VideoHash        string   `json:"videoHash,omitempty"`
	VideoSize        int64    `json:"videoSize,omitempty"`
	Filename         string   `json:"filename,omitempty"`
}

// ProxyHeaders lets a stream carry request headers for a proxied URL.
// Nothing in this resolver populates it today; it exists because
// spec.md §6 names it as part of the exact response shape.
type ProxyHeaders struct {
	Request  map[string]string `json:"request,omitempty"`
	Response map[string]string `json:"response,omitempty"`
}

// Stream is one playable candidate. Exactly one of InfoHash or URL is
// set; when InfoHash is set, URL is absent and the player synthesizes
// the magnet URI itself.
//
// Seeders is carried internally through the aggregation pipeline (for
// ranking and the dead-magnet filter) but is never serialized — its
// JSON tag is "-", so it is dropped whenever a Stream is marshaled.
type Stream struct {
	Name          string               `json:"name,omitempty"`
	Description   string               `json:"description,omitempty"`
	URL           string               `json:"url,omitempty"`
	InfoHash      string               `json:"infoHash,omitempty"`
	Sources       []string             `json:"sources,omitempty"`
	BehaviorHints *StreamBehaviorHints `json:"behaviorHints,omitempty"`

	Seeders int `json:"-"`
}

// IdentityKey returns the value streams are deduplicated on: InfoHash if
// set, else URL.
func (s Stream) IdentityKey() string {
	if s.InfoHash != "" {
		return s.InfoHash
	}
	return s.URL
}

// Response is the exact `{streams: [...]}` envelope returned by the
// stream endpoint.
type Response struct {
	Streams []Stream `json:"streams"`
}
