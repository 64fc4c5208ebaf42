package magnet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const hexHash = "08ada5a7a6183aae1e09d831df6748d566095a10"

func TestParseHexHash(t *testing.T) {
	uri := "magnet:?xt=urn:btih:" + hexHash + "&dn=Example&tr=udp://tracker.example:80/announce"
	info := Parse(uri)
	require.NotNil(t, info)
	require.Equal(t, hexHash, info.InfoHash)
	require.Equal(t, []string{"tracker:udp://tracker.example:80/announce"}, info.Sources)
}

func TestParseBase32Hash(t *testing.T) {
	// Same 20 raw bytes as hexHash, base32-encoded without padding.
	uri := "magnet:?xt=urn:btih:BCW2LJ5GDA5K4HQJ3AY56Z2I2VTASWQQ"
	info := Parse(uri)
	require.NotNil(t, info)
	require.Len(t, info.InfoHash, 40)
	require.Equal(t, hexHash, info.InfoHash)
}

func TestParseTrackerDedup(t *testing.T) {
	uri := "magnet:?xt=urn:btih:" + hexHash +
		"&tr=udp://a.example/announce&tr=tracker:udp://a.example/announce&tr=udp://b.example/announce"
	info := Parse(uri)
	require.NotNil(t, info)
	require.Equal(t, []string{
		"tracker:udp://a.example/announce",
		"tracker:udp://b.example/announce",
	}, info.Sources)
}

func TestParseRejectsNonMagnet(t *testing.T) {
	require.Nil(t, Parse("https://example.com/not-a-magnet"))
}

func TestParseRejectsMissingHash(t *testing.T) {
	require.Nil(t, Parse("magnet:?dn=Example"))
}

func TestParseRejectsMalformedHash(t *testing.T) {
	require.Nil(t, Parse("magnet:?xt=urn:btih:tooshort"))
}
