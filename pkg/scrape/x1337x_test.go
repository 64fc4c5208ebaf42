package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanstate/barestreams/pkg/query"
	"github.com/nanstate/barestreams/pkg/reqid"
)

const x1337xListingHTML = `
<html><body>
<div class="table-list"><table><tbody>
<tr>
  <td class="coll-1 name"><a href="/user/uploader/">icon</a><a href="/torrent/99999/the-matrix-1999-1080p/">The Matrix 1999 1080p</a></td>
  <td class="coll-2 seeds">64</td>
  <td class="coll-3 leeches">2</td>
  <td class="coll-date">Yesterday</td>
  <td class="coll-4 size">1.3 GB</td>
</tr>
</tbody></table></div>
</body></html>`

const x1337xDetailHTML = `<html><body><a href="magnet:?xt=urn:btih:1EE7CAFEDEADBEEFDEADBEEFDEADBEEFDEADBEEF&dn=The+Matrix">magnet</a></body></html>`

const x1337xListingHTMLTwoEpisodes = `
<html><body>
<div class="table-list"><table><tbody>
<tr>
  <td class="coll-1 name"><a href="/user/uploader/">icon</a><a href="/torrent/11111/the-handmaids-tale-s02e02/">The Handmaid's Tale S02E02</a></td>
  <td class="coll-2 seeds">200</td>
  <td class="coll-3 leeches">2</td>
  <td class="coll-date">Yesterday</td>
  <td class="coll-4 size">1.0 GB</td>
</tr>
<tr>
  <td class="coll-1 name"><a href="/user/uploader/">icon</a><a href="/torrent/22222/the-handmaids-tale-s02e03/">The Handmaid's Tale S02E03</a></td>
  <td class="coll-2 seeds">100</td>
  <td class="coll-3 leeches">2</td>
  <td class="coll-date">Yesterday</td>
  <td class="coll-4 size">1.0 GB</td>
</tr>
</tbody></table></div>
</body></html>`

func TestX1337XScrapeFiltersToRequestedEpisode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/torrent/11111"):
			w.Write([]byte(`<html><body><a href="magnet:?xt=urn:btih:AAAABEEFDEADBEEFDEADBEEFDEADBEEFDEADBEEF">magnet</a></body></html>`))
		case strings.Contains(r.URL.Path, "/torrent/22222"):
			w.Write([]byte(`<html><body><a href="magnet:?xt=urn:btih:BBBBBEEFDEADBEEFDEADBEEFDEADBEEFDEADBEEF">magnet</a></body></html>`))
		default:
			w.Write([]byte(x1337xListingHTMLTwoEpisodes))
		}
	}))
	defer srv.Close()

	x := X1337X{BaseURLs: []string{srv.URL}, HTTP: newTestClient()}
	req := Request{
		Parsed:  reqid.Parsed{BaseID: "tt5834204", Season: 2, Episode: 3},
		Queries: query.Queries{Query: "The Handmaid's Tale S02E03"},
	}
	streams := x.Scrape(context.Background(), req)

	require.Len(t, streams, 1)
	require.Equal(t, "bbbbbeefdeadbeefdeadbeefdeadbeefdeadbeef", streams[0].InfoHash)
}

func TestX1337XScrapeRecoversMagnetAndSeeders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/torrent/99999") {
			w.Write([]byte(x1337xDetailHTML))
			return
		}
		w.Write([]byte(x1337xListingHTML))
	}))
	defer srv.Close()

	x := X1337X{BaseURLs: []string{srv.URL}, HTTP: newTestClient()}
	req := Request{Parsed: reqid.Parsed{BaseID: "tt0133093"}, Queries: query.Queries{Query: "The Matrix 1999"}}
	streams := x.Scrape(context.Background(), req)

	require.Len(t, streams, 1)
	require.Equal(t, 64, streams[0].Seeders)
	require.NotEmpty(t, streams[0].InfoHash)
	require.Equal(t, "1337x", streams[0].Name)
}
