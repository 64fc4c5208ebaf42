package main

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

const (
	imdbDatasetURL    = "https://datasets.imdbws.com/title.basics.tsv.gz"
	datasetStaleAfter = 24 * time.Hour
)

// ensureTitleIndex makes sure a tconst-sorted title.basics.tsv file
// exists at path and is no older than datasetStaleAfter, downloading and
// gunzipping a fresh copy from IMDb's public dataset mirror when it's
// missing or stale. IMDb ships the file already sorted by tconst, so no
// local sort step is needed before titleindex.Index can binary search it.
func ensureTitleIndex(path string, logger *zap.Logger) {
	if path == "" {
		logger.Warn("titleIndexPath not set, title resolution will always miss")
		return
	}

	if info, err := os.Stat(path); err == nil && time.Since(info.ModTime()) < datasetStaleAfter {
		return
	}

	logger.Info("Refreshing IMDb title dataset", zap.String("path", path), zap.String("url", imdbDatasetURL))
	if err := downloadAndGunzip(imdbDatasetURL, path); err != nil {
		logger.Warn("Couldn't refresh IMDb title dataset, continuing with the existing file if any", zap.Error(err))
	}
}

// downloadAndGunzip streams url's gzipped body straight through gunzip
// into a temp file next to dest, then renames it into place so a reader
// never observes a partially-written dataset.
func downloadAndGunzip(url, dest string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("downloading dataset: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading dataset: unexpected status %s", resp.Status)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	tmp := dest + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := io.Copy(f, gz); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing dataset: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing dataset file: %w", err)
	}
	return os.Rename(tmp, dest)
}
