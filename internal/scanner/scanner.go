package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/foldermcp/folderd/internal/ignore"
)

// excludeMatcherCacheSize bounds how many compiled exclude-pattern
// matchers are cached across folders, preventing unbounded memory
// growth in a daemon that may have many folders registered over its
// lifetime.
const excludeMatcherCacheSize = 256

// Scanner performs depth-first (recursive) fingerprint scans of a
// folder; the walk is not breadth-first.
type Scanner struct {
	excludeCache *lru.Cache[string, *ignore.Matcher]
	cacheMu      sync.RWMutex
}

// New creates a new Scanner.
func New() (*Scanner, error) {
	cache, err := lru.New[string, *ignore.Matcher](excludeMatcherCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create exclude-pattern cache: %w", err)
	}
	return &Scanner{excludeCache: cache}, nil
}

// Scan walks the folder rooted at opts.RootDir and streams a
// Fingerprint for every indexable document found. The channel is closed
// when the scan completes or ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions) (<-chan ScanResult, error) {
	if opts == nil {
		opts = &ScanOptions{}
	}

	rootDir := opts.RootDir
	if rootDir == "" {
		rootDir = "."
	}
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve folder root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat folder root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("folder root is not a directory: %s", absRoot)
	}

	maxFileSize := opts.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	matcher := s.excludeMatcher(opts.ExcludePatterns)
	results := make(chan ScanResult, workers*4)

	go func() {
		defer close(results)
		w := &walk{
			scanner:     s,
			absRoot:     absRoot,
			matcher:     matcher,
			maxFileSize: maxFileSize,
			opts:        opts,
			visited:     make(map[string]bool),
			results:     results,
			scanned:     0,
		}
		w.run(ctx)
	}()

	return results, nil
}

// walk carries the mutable state of a single scan pass.
type walk struct {
	scanner     *Scanner
	absRoot     string
	matcher     *ignore.Matcher
	maxFileSize int64
	opts        *ScanOptions
	visited     map[string]bool // resolved real paths of visited directories, guards symlink cycles
	results     chan<- ScanResult
	scanned     int
}

func (w *walk) run(ctx context.Context) {
	w.visitDir(ctx, w.absRoot)
}

// visitDir recursively walks dir, emitting a ScanResult for every
// indexable file and recursing into subdirectories (including symlinked
// ones when FollowSymlinks is set), guarding against symlink loops via
// the resolved real path of each directory visited.
func (w *walk) visitDir(ctx context.Context, dir string) {
	select {
	case <-ctx.Done():
		return
	default:
	}

	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return // unreadable or dangling symlink; skip silently like a permission-denied entry
	}
	if w.visited[real] {
		return
	}
	w.visited[real] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		select {
		case w.results <- ScanResult{Error: fmt.Errorf("failed to read directory %s: %w", dir, err)}:
		case <-ctx.Done():
		}
		return
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}

		path := filepath.Join(dir, entry.Name())
		relPath, err := filepath.Rel(w.absRoot, path)
		if err != nil {
			continue
		}
		relPath = filepath.ToSlash(relPath)

		isSymlink := entry.Type()&fs.ModeSymlink != 0
		isDir := entry.IsDir()
		if isSymlink {
			target, err := os.Stat(path)
			if err != nil {
				continue // dangling symlink
			}
			if !w.opts.FollowSymlinks {
				continue
			}
			isDir = target.IsDir()
		}

		if isDir {
			if w.shouldExcludeDir(relPath) {
				continue
			}
			w.visitDir(ctx, path)
			continue
		}

		if w.shouldExcludeFile(relPath) {
			continue
		}

		format := DetectFormat(relPath)
		if format == FormatUnknown {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Size() > w.maxFileSize {
			continue
		}

		hash, ok := w.reusableHash(relPath, info)
		if !ok {
			hash, err = contentHash(path)
			if err != nil {
				select {
				case w.results <- ScanResult{Error: fmt.Errorf("failed to hash %s: %w", relPath, err)}:
				case <-ctx.Done():
					return
				}
				continue
			}
		}

		fp := &Fingerprint{
			Path:        relPath,
			AbsPath:     path,
			Size:        info.Size(),
			ModTime:     info.ModTime(),
			ContentHash: hash,
			Format:      format,
		}

		select {
		case w.results <- ScanResult{File: fp}:
		case <-ctx.Done():
			return
		}

		w.scanned++
		if w.opts.ProgressFunc != nil {
			w.opts.ProgressFunc(w.scanned)
		}
	}
}

// reusableHash returns the previous scan's content hash for relPath
// without reading the file, when size and mtime both match the stored
// fingerprint. A sync tool that only rewrites file content without
// bumping mtime is rare enough that this daemon accepts the small risk
// in exchange for not rehashing every unchanged file on every cycle.
func (w *walk) reusableHash(relPath string, info fs.FileInfo) (string, bool) {
	if w.opts.Previous == nil {
		return "", false
	}
	prev, ok := w.opts.Previous[relPath]
	if !ok {
		return "", false
	}
	if prev.Size != info.Size() || !prev.ModTime.Equal(info.ModTime()) {
		return "", false
	}
	return prev.ContentHash, true
}

// contentHash computes the hex-encoded SHA-256 digest of a file's
// contents.
func contentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (w *walk) shouldExcludeDir(relPath string) bool {
	base := filepath.Base(relPath)
	for _, d := range defaultExcludeDirs {
		if base == d {
			return true
		}
	}
	return w.matcher.Match(relPath, true)
}

func (w *walk) shouldExcludeFile(relPath string) bool {
	base := filepath.Base(relPath)
	for _, pattern := range sensitiveFilePatterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return w.matcher.Match(relPath, false)
}

// excludeMatcher returns a cached Matcher for the given pattern set,
// compiling and caching a new one on first use. Folders reuse their
// pattern set across every scan cycle, so the cache avoids recompiling
// the same regexes on each poll.
func (s *Scanner) excludeMatcher(patterns []string) *ignore.Matcher {
	key := strings.Join(patterns, "\x00")

	s.cacheMu.RLock()
	m, ok := s.excludeCache.Get(key)
	s.cacheMu.RUnlock()
	if ok {
		return m
	}

	m = ignore.New()
	m.AddPatterns(patterns)

	s.cacheMu.Lock()
	s.excludeCache.Add(key, m)
	s.cacheMu.Unlock()

	return m
}

// defaultExcludeDirs are directory basenames never descended into,
// regardless of folder-level exclude configuration.
var defaultExcludeDirs = []string{
	".git",
	"node_modules",
	"__pycache__",
	".aws",
	".gcp",
	".azure",
	".ssh",
}

// sensitiveFilePatterns are basename globs never indexed, even if a
// document with a supported extension happens to match.
var sensitiveFilePatterns = []string{
	".env",
	".env.*",
	"*.pem",
	"*.key",
	"*.p12",
	"*.pfx",
	"*credentials*",
	"*secrets*",
	"*password*",
}
