package titleindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const fixtureTSV = "tconst\ttitleType\tprimaryTitle\toriginalTitle\tisAdult\tstartYear\tendYear\truntimeMinutes\tgenres\n" +
	"tt0000001\tshort\tCarmencita\tCarmencita\t0\t1894\t\\N\t1\tDocumentary,Short\n" +
	"tt0000005\tshort\tBlacksmith Scene\tBlacksmith Scene\t0\t1893\t\\N\t1\tComedy,Short\n" +
	"tt0133093\tmovie\tThe Matrix\tThe Matrix\t0\t1999\t\\N\t136\tAction,Sci-Fi\n" +
	"tt0944947\ttvSeries\tGame of Thrones\tGame of Thrones\t0\t2011\t2019\t60\tAction,Adventure,Drama\n" +
	"tt9999999\tmovie\tLast Row\tLast Row\t0\t2020\t\\N\t90\tDrama\n"

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "title.basics.tsv")
	require.NoError(t, os.WriteFile(path, []byte(fixtureTSV), 0o644))
	return path
}

func TestLookupFindsEveryRow(t *testing.T) {
	idx := New(writeFixture(t))

	b := idx.Lookup("tt0133093")
	require.NotNil(t, b)
	require.Equal(t, "The Matrix", b.PrimaryTitle)
	require.Equal(t, 1999, b.StartYear)
	require.Equal(t, 0, b.EndYear)
	require.Equal(t, []string{"Action", "Sci-Fi"}, b.Genres)

	series := idx.Lookup("tt0944947")
	require.NotNil(t, series)
	require.Equal(t, 2019, series.EndYear)

	first := idx.Lookup("tt0000001")
	require.NotNil(t, first)
	require.Equal(t, "Carmencita", first.PrimaryTitle)

	last := idx.Lookup("tt9999999")
	require.NotNil(t, last)
	require.Equal(t, "Last Row", last.PrimaryTitle)
}

func TestLookupMiss(t *testing.T) {
	idx := New(writeFixture(t))
	require.Nil(t, idx.Lookup("tt0000002"))
}

func TestLookupMemoizesMisses(t *testing.T) {
	path := writeFixture(t)
	idx := New(path)

	require.Nil(t, idx.Lookup("tt0000002"))

	// Corrupting the file on disk shouldn't affect the cached miss.
	require.NoError(t, os.WriteFile(path, []byte("not a tsv"), 0o644))
	require.Nil(t, idx.Lookup("tt0000002"))
}

func TestLookupMissingFileDegradesToNilForever(t *testing.T) {
	idx := New(filepath.Join(t.TempDir(), "does-not-exist.tsv"))
	require.Nil(t, idx.Lookup("tt0133093"))
	require.Nil(t, idx.Lookup("tt0133093"))
}
