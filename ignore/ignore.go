package ignore

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// Matcher decides which files and directories a scan leaves out.
// It combines the extension block-list, the directory prefix block-list,
// extra doublestar patterns and, optionally, the root .gitignore.
// Thread-safe: Reload() takes the write lock, the Excludes* methods take the read lock.
type Matcher struct {
	mu           sync.RWMutex
	rootDir      string
	extensions   []string
	dirPrefixes  []string
	patterns     []string
	useGitignore bool
	gitIgnore    gitignore.GitIgnore
}

// MatcherOptions configures the matcher. Nil slices fall back to the defaults;
// an empty non-nil slice disables that block-list.
type MatcherOptions struct {
	RootDir             string
	ExcludedExtensions  []string
	ExcludedDirPrefixes []string
	ExcludePatterns     []string
	UseGitignore        bool
}

// NewMatcher builds a matcher. It fails only on a malformed exclude pattern.
func NewMatcher(options MatcherOptions) (*Matcher, error) {
	extensions := options.ExcludedExtensions
	if extensions == nil {
		extensions = DefaultExcludedExtensions
	}
	dirPrefixes := options.ExcludedDirPrefixes
	if dirPrefixes == nil {
		dirPrefixes = DefaultExcludedDirPrefixes
	}

	matcher := &Matcher{
		rootDir:      options.RootDir,
		extensions:   normalizeExtensions(extensions),
		dirPrefixes:  normalizePrefixes(dirPrefixes),
		useGitignore: options.UseGitignore,
	}

	for _, pattern := range options.ExcludePatterns {
		pattern = strings.ReplaceAll(pattern, "\\", "/")
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
		matcher.patterns = append(matcher.patterns, pattern)
	}

	if matcher.useGitignore {
		matcher.gitIgnore = loadIgnoreFile(filepath.Join(options.RootDir, ".gitignore"), options.RootDir)
	}

	return matcher, nil
}

// ExcludesFile reports whether a file, given by its path relative to the root
// (forward slashes), is left out of the scan.
func (m *Matcher) ExcludesFile(relativePath string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	baseName := strings.ToLower(path.Base(relativePath))
	for _, ext := range m.extensions {
		if strings.HasSuffix(baseName, ext) {
			return true
		}
	}

	if m.hasExcludedPrefix(path.Dir(relativePath)) {
		return true
	}
	if m.matchesPatterns(relativePath) {
		return true
	}
	return m.gitignored(relativePath, false)
}

// ExcludesDir reports whether a whole directory can be skipped during traversal.
// The root itself ("." or "") is never excluded.
func (m *Matcher) ExcludesDir(relativePath string) bool {
	if relativePath == "" || relativePath == "." {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.hasExcludedPrefix(relativePath) {
		return true
	}
	if m.matchesPatterns(relativePath) {
		return true
	}
	return m.gitignored(relativePath, true)
}

// Extensions returns the effective extension block-list.
func (m *Matcher) Extensions() []string {
	return append([]string(nil), m.extensions...)
}

// DirPrefixes returns the effective directory prefix block-list.
func (m *Matcher) DirPrefixes() []string {
	return append([]string(nil), m.dirPrefixes...)
}

// hasExcludedPrefix runs the case-insensitive prefix test on a relative directory path.
func (m *Matcher) hasExcludedPrefix(relativeDir string) bool {
	if relativeDir == "." {
		relativeDir = ""
	}
	relativeDir = strings.ToLower(relativeDir)
	for _, prefix := range m.dirPrefixes {
		if strings.HasPrefix(relativeDir, prefix) {
			return true
		}
	}
	return false
}

// matchesPatterns checks the relative path and its basename against the extra patterns.
func (m *Matcher) matchesPatterns(relativePath string) bool {
	baseName := path.Base(relativePath)
	for _, pattern := range m.patterns {
		if matched, err := doublestar.Match(pattern, relativePath); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, baseName); err == nil && matched {
			return true
		}
	}
	return false
}

func (m *Matcher) gitignored(relativePath string, isDir bool) bool {
	if m.gitIgnore == nil {
		return false
	}
	match := m.gitIgnore.Relative(relativePath, isDir)
	return match != nil && match.Ignore()
}

// Reload re-reads the root .gitignore. It is a no-op when gitignore support is off.
func (m *Matcher) Reload() {
	if !m.useGitignore {
		return
	}
	newGitIgnore := loadIgnoreFile(filepath.Join(m.rootDir, ".gitignore"), m.rootDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gitIgnore = newGitIgnore
}

// loadIgnoreFile parses an ignore file, returning nil when it cannot be opened.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}

func normalizeExtensions(extensions []string) []string {
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return normalized
}

// normalizePrefixes lowercases prefixes, converts them to forward slashes and
// strips a leading "./" so they compare against root-relative paths.
func normalizePrefixes(prefixes []string) []string {
	normalized := make([]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		prefix = strings.ToLower(strings.TrimSpace(prefix))
		prefix = strings.ReplaceAll(prefix, "\\", "/")
		prefix = strings.TrimPrefix(prefix, "./")
		if prefix == "" {
			continue
		}
		normalized = append(normalized, prefix)
	}
	return normalized
}
