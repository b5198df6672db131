package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, s *Scanner, opts *ScanOptions) []ScanResult {
	t.Helper()
	ch, err := s.Scan(context.Background(), opts)
	require.NoError(t, err)
	var out []ScanResult
	for r := range ch {
		out = append(out, r)
	}
	return out
}

func TestScanFindsSupportedDocuments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# hi"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0, 1, 2}, 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "report.txt"), []byte("body"), 0644))

	s, err := New()
	require.NoError(t, err)

	results := collect(t, s, &ScanOptions{RootDir: dir})

	var paths []string
	for _, r := range results {
		require.NoError(t, r.Error)
		paths = append(paths, r.File.Path)
	}
	assert.ElementsMatch(t, []string{"notes.md", "sub/report.txt"}, paths)
}

func TestScanSkipsExcludedPatterns(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "archive"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "archive", "old.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0644))

	s, err := New()
	require.NoError(t, err)

	results := collect(t, s, &ScanOptions{RootDir: dir, ExcludePatterns: []string{"archive/"}})

	var paths []string
	for _, r := range results {
		paths = append(paths, r.File.Path)
	}
	assert.Equal(t, []string{"keep.txt"}, paths)
}

func TestScanSkipsFilesOverMaxSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.txt"), []byte("0123456789"), 0644))

	s, err := New()
	require.NoError(t, err)

	results := collect(t, s, &ScanOptions{RootDir: dir, MaxFileSize: 5})
	assert.Empty(t, results)
}

func TestScanGuardsSymlinkCycles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.txt"), []byte("x"), 0644))

	loop := filepath.Join(sub, "loop")
	if err := os.Symlink(dir, loop); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	s, err := New()
	require.NoError(t, err)

	results := collect(t, s, &ScanOptions{RootDir: dir, FollowSymlinks: true})

	var paths []string
	for _, r := range results {
		if r.File != nil {
			paths = append(paths, r.File.Path)
		}
	}
	assert.Contains(t, paths, "sub/a.txt")
}

func TestFingerprintStableAcrossRescans(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("stable content"), 0644))

	s, err := New()
	require.NoError(t, err)

	first := collect(t, s, &ScanOptions{RootDir: dir})
	second := collect(t, s, &ScanOptions{RootDir: dir})

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].File.ContentHash, second[0].File.ContentHash)
}
