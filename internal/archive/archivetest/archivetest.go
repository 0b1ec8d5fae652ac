// Package archivetest writes small spelling archives for tests.
package archivetest

import (
	"os"
	"path/filepath"
	"testing"

	"speller/internal/archive"
)

// Write builds an archive from words in a fresh temporary directory and
// returns its path. Every word has weight zero.
func Write(tb testing.TB, locale string, words ...string) string {
	tb.Helper()
	ww := make([]archive.WeightedWord, len(words))
	for i, w := range words {
		ww[i] = archive.WeightedWord{Word: w}
	}
	return WriteMeta(tb, archive.Metadata{Locale: locale, Keyboard: "qwerty"}, ww)
}

// WriteMeta is Write with full control over metadata and weights.
func WriteMeta(tb testing.TB, meta archive.Metadata, words []archive.WeightedWord) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "test.zhfst")
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create archive: %v", err)
	}
	defer f.Close()
	if err := archive.Build(f, words, meta); err != nil {
		tb.Fatalf("build archive: %v", err)
	}
	return path
}
