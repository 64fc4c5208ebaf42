package scrape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDedupeCandidatesByMagnetURL(t *testing.T) {
	cands := []candidate{
		{Title: "a", MagnetURL: "magnet:?xt=urn:btih:aaaa"},
		{Title: "b", MagnetURL: "magnet:?xt=urn:btih:aaaa"},
		{Title: "c", MagnetURL: "magnet:?xt=urn:btih:bbbb"},
	}
	out := dedupeCandidates(cands)
	require.Len(t, out, 2)
}

func TestDedupeCandidatesKeepsUnidentifiable(t *testing.T) {
	cands := []candidate{{Title: "a"}, {Title: "b"}}
	out := dedupeCandidates(cands)
	require.Len(t, out, 2)
}

func TestRankBySeedersStableDescending(t *testing.T) {
	cands := []candidate{
		{Title: "low", Seeders: 1},
		{Title: "high-a", Seeders: 10},
		{Title: "high-b", Seeders: 10},
		{Title: "mid", Seeders: 5},
	}
	rankBySeeders(cands)
	require.Equal(t, []string{"high-a", "high-b", "mid", "low"}, []string{
		cands[0].Title, cands[1].Title, cands[2].Title, cands[3].Title,
	})
}

func TestBuildStreamDropsWithoutResolvableHash(t *testing.T) {
	c := candidate{Title: "no hash at all"}
	require.Nil(t, buildStream("YTS", c, Request{}))
}

func TestBuildStreamResolvesFromMagnetURL(t *testing.T) {
	c := candidate{
		Title:     "Movie.2021.1080p",
		MagnetURL: "magnet:?xt=urn:btih:08ada5a7a6183aae1e09d831df6748d566095a10&tr=udp://tracker.example/announce",
		Seeders:   42,
		HasSeeders: true,
	}
	s := buildStream("YTS", c, Request{})
	require.NotNil(t, s)
	require.Equal(t, "08ada5a7a6183aae1e09d831df6748d566095a10", s.InfoHash)
	require.Equal(t, []string{"tracker:udp://tracker.example/announce"}, s.Sources)
	require.Equal(t, 42, s.Seeders)
	require.Equal(t, "YTS", s.Name)
}
