// Package titleindex resolves IMDb title basics from a local, sorted TSV
// file via binary search over byte offsets, so a lookup never has to read
// the whole dataset.
package titleindex

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"

	gocache "github.com/patrickmn/go-cache"
)

// Basics mirrors the columns of an IMDb title.basics.tsv row that the
// resolver cares about.
type Basics struct {
	Tconst        string
	TitleType     string
	PrimaryTitle  string
	OriginalTitle string
	IsAdult       bool
	StartYear     int // 0 when unknown
	EndYear       int // 0 when unknown
	RuntimeMins   int // 0 when unknown
	Genres        []string
}

// Index performs binary search over a tconst-sorted TSV file. Every
// lookup opens its own file handle, so concurrent callers never share a
// mutable cursor. Resolved rows (including misses) are memoized by
// tconst in a go-cache instance with no expiration, since the dataset is
// immutable for the life of the process.
type Index struct {
	path string

	cache    *gocache.Cache
	fileSize int64
	// dataStart is the byte offset right after the header line. It is
	// computed lazily on first use and then clamps all subsequent
	// binary searches, so they never drift back into the header.
	dataStart int64
	statOnce  sync.Once
	statErr   error
}

// New returns an Index reading from path. The file is not opened until
// the first Lookup call.
func New(path string) *Index {
	return &Index{
		path:  path,
		cache: gocache.New(gocache.NoExpiration, gocache.NoExpiration),
	}
}

// Lookup resolves tconst to its TitleBasics row, or nil if the dataset
// has no such row (or can't be read at all — filesystem errors degrade
// silently to a miss). Results, including misses, are memoized for the
// lifetime of the Index.
func (idx *Index) Lookup(tconst string) *Basics {
	if cached, ok := idx.cache.Get(tconst); ok {
		b, _ := cached.(*Basics)
		return b
	}

	b := idx.lookupUncached(tconst)
	idx.cache.Set(tconst, b, gocache.NoExpiration)
	return b
}

func (idx *Index) lookupUncached(tconst string) *Basics {
	idx.statOnce.Do(func() {
		f, err := os.Open(idx.path)
		if err != nil {
			idx.statErr = err
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			idx.statErr = err
			return
		}
		idx.fileSize = info.Size()

		reader := bufio.NewReader(f)
		header, err := reader.ReadString('\n')
		if err != nil {
			idx.statErr = err
			return
		}
		idx.dataStart = int64(len(header))
	})
	if idx.statErr != nil {
		return nil
	}

	f, err := os.Open(idx.path)
	if err != nil {
		return nil
	}
	defer f.Close()

	low, high := idx.dataStart, idx.fileSize
	for low <= high {
		mid := low + (high-low)/2
		line, lineStart, ok := readLineAt(f, mid, idx.dataStart)
		if !ok {
			break
		}
		key := firstField(line)
		switch {
		case key == tconst:
			return parseBasics(line)
		case key < tconst:
			low = lineStart + int64(len(line)) + 1
		default:
			high = lineStart - 1
		}
	}
	return nil
}

// readLineAt seeks to offset, scans backwards to the preceding newline to
// find the start of the line that contains offset, then reads forward to
// the next newline. It returns the line (without its trailing newline),
// the byte offset the line starts at, and whether a line was found.
func readLineAt(f *os.File, offset, dataStart int64) (string, int64, bool) {
	if offset < dataStart {
		offset = dataStart
	}

	lineStart := offset
	const chunk = 4096
	buf := make([]byte, chunk)
	for lineStart > dataStart {
		readFrom := lineStart - chunk
		if readFrom < dataStart {
			readFrom = dataStart
		}
		n, err := f.ReadAt(buf[:lineStart-readFrom], readFrom)
		if err != nil && n == 0 {
			return "", 0, false
		}
		segment := buf[:n]
		if idx := strings.LastIndexByte(string(segment), '\n'); idx != -1 {
			lineStart = readFrom + int64(idx) + 1
			break
		}
		lineStart = readFrom
	}

	reader := bufio.NewReader(&offsetReader{f: f, off: lineStart})
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", 0, false
	}
	line = strings.TrimRight(line, "\n")
	line = strings.TrimRight(line, "\r")
	return line, lineStart, true
}

type offsetReader struct {
	f   *os.File
	off int64
}

func (r *offsetReader) Read(p []byte) (int, error) {
	n, err := r.f.ReadAt(p, r.off)
	r.off += int64(n)
	return n, err
}

func firstField(line string) string {
	if i := strings.IndexByte(line, '\t'); i != -1 {
		return line[:i]
	}
	return line
}

func parseBasics(line string) *Basics {
	cols := strings.Split(line, "\t")
	get := func(i int) string {
		if i >= len(cols) {
			return ""
		}
		return cols[i]
	}
	toNil := func(s string) string {
		if s == `\N` {
			return ""
		}
		return s
	}
	toYear := func(s string) int {
		s = toNil(s)
		if s == "" {
			return 0
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0
		}
		return n
	}

	b := &Basics{
		Tconst:        get(0),
		TitleType:     toNil(get(1)),
		PrimaryTitle:  toNil(get(2)),
		OriginalTitle: toNil(get(3)),
		IsAdult:       get(4) == "1",
		StartYear:     toYear(get(5)),
		EndYear:       toYear(get(6)),
		RuntimeMins:   toYear(get(7)),
	}
	if genres := toNil(get(8)); genres != "" {
		b.Genres = strings.Split(genres, ",")
	}
	return b
}
