package scan

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/lexandro/toplines/ignore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deniedFS fails Open for the listed paths, like a file without read permission.
type deniedFS struct {
	billy.Filesystem
	denied map[string]bool
}

func (d *deniedFS) Open(filename string) (billy.File, error) {
	if d.denied[filepath.ToSlash(filename)] {
		return nil, &os.PathError{Op: "open", Path: filename, Err: os.ErrPermission}
	}
	return d.Filesystem.Open(filename)
}

func writeLines(t *testing.T, rootDir string, relativePath string, lines int) {
	t.Helper()
	fullPath := filepath.Join(rootDir, filepath.FromSlash(relativePath))
	require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0755))
	require.NoError(t, os.WriteFile(fullPath, []byte(strings.Repeat("x\n", lines)), 0644))
}

func testMatcher(t *testing.T, rootDir string) *ignore.Matcher {
	t.Helper()
	matcher, err := ignore.NewMatcher(ignore.MatcherOptions{RootDir: rootDir})
	require.NoError(t, err)
	return matcher
}

func newTestScanner(t *testing.T, rootDir string, workers int) *Scanner {
	t.Helper()
	return NewDirScanner(rootDir, testMatcher(t, rootDir), Options{Workers: workers})
}

func Test_Scanner_ExcludesByExtensionAndDirectory(t *testing.T) {
	rootDir := t.TempDir()
	writeLines(t, rootDir, "big.txt", 500)
	writeLines(t, rootDir, "skip.md", 10000)
	writeLines(t, rootDir, "data/hidden.py", 9999)
	writeLines(t, rootDir, "small.py", 5)

	records, err := newTestScanner(t, rootDir, 1).Scan(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, []FileRecord{
		{Path: "big.txt", LineCount: 500},
		{Path: "small.py", LineCount: 5},
	}, records)
}

func Test_Scanner_SortsDescendingAndTruncates(t *testing.T) {
	rootDir := t.TempDir()
	writeLines(t, rootDir, "a.go", 10)
	writeLines(t, rootDir, "src/b.go", 30)
	writeLines(t, rootDir, "src/deep/c.go", 20)
	writeLines(t, rootDir, "d.go", 40)

	records, err := newTestScanner(t, rootDir, 1).Scan(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, []FileRecord{
		{Path: "d.go", LineCount: 40},
		{Path: "src/b.go", LineCount: 30},
		{Path: "src/deep/c.go", LineCount: 20},
	}, records)
}

func Test_Scanner_TopNZero(t *testing.T) {
	rootDir := t.TempDir()
	writeLines(t, rootDir, "a.go", 10)

	records, err := newTestScanner(t, rootDir, 1).Scan(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func Test_Scanner_NegativeTopN(t *testing.T) {
	_, err := newTestScanner(t, t.TempDir(), 1).Scan(context.Background(), -1)
	assert.ErrorIs(t, err, ErrNegativeTopN)
}

func Test_Scanner_TopNLargerThanTree(t *testing.T) {
	rootDir := t.TempDir()
	writeLines(t, rootDir, "a.go", 1)

	records, err := newTestScanner(t, rootDir, 1).Scan(context.Background(), DefaultTopN)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func Test_Scanner_TerminatorCountSemantics(t *testing.T) {
	rootDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "abc.txt"), []byte("a\nb\nc"), 0644))

	records, err := newTestScanner(t, rootDir, 1).Scan(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].LineCount)
}

func Test_Scanner_TiesKeepDiscoveryOrder(t *testing.T) {
	rootDir := t.TempDir()
	writeLines(t, rootDir, "c.go", 3)
	writeLines(t, rootDir, "a.go", 3)
	writeLines(t, rootDir, "b.go", 3)

	records, err := newTestScanner(t, rootDir, 4).Scan(context.Background(), 10)
	require.NoError(t, err)

	paths := make([]string, 0, len(records))
	for _, r := range records {
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{"a.go", "b.go", "c.go"}, paths)
}

func Test_Scanner_WorkerCountDoesNotChangeResult(t *testing.T) {
	rootDir := t.TempDir()
	for i := 0; i < 60; i++ {
		writeLines(t, rootDir, filepath.ToSlash(filepath.Join("pkg", string(rune('a'+i%26)), "f"+strings.Repeat("x", i%5)+".go")), i%17)
	}

	sequential, err := newTestScanner(t, rootDir, 1).Scan(context.Background(), 25)
	require.NoError(t, err)
	parallel, err := newTestScanner(t, rootDir, 8).Scan(context.Background(), 25)
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
}

func Test_Scanner_Idempotent(t *testing.T) {
	rootDir := t.TempDir()
	writeLines(t, rootDir, "a.go", 7)
	writeLines(t, rootDir, "lib/b.py", 7)
	writeLines(t, rootDir, "lib/c.py", 12)

	scanner := newTestScanner(t, rootDir, 1)
	first, err := scanner.Scan(context.Background(), 10)
	require.NoError(t, err)
	second, err := scanner.Scan(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func Test_Scanner_UnreadableFileIsSkipped(t *testing.T) {
	rootDir := t.TempDir()
	writeLines(t, rootDir, "locked.go", 900)
	writeLines(t, rootDir, "open.go", 3)

	fsys := &deniedFS{Filesystem: osfs.New(rootDir), denied: map[string]bool{"locked.go": true}}
	scanner := NewScanner(fsys, testMatcher(t, rootDir), Options{})

	result, err := scanner.Run(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, []FileRecord{{Path: "open.go", LineCount: 3}}, result.Files)
	assert.Equal(t, 1, result.Stats.Skipped)
	assert.Equal(t, 1, result.Stats.Counted)
}

func Test_Scanner_Stats(t *testing.T) {
	rootDir := t.TempDir()
	writeLines(t, rootDir, "main.go", 4)
	writeLines(t, rootDir, "README.md", 4)
	writeLines(t, rootDir, "docs/guide.txt", 4)
	writeLines(t, rootDir, "node_modules/x/index.js", 4)

	result, err := newTestScanner(t, rootDir, 1).Run(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.Counted)
	assert.Equal(t, 1, result.Stats.Excluded)
	assert.Equal(t, 2, result.Stats.ExcludedDirs)
	assert.Zero(t, result.Stats.Skipped)
}

func Test_Scanner_MissingRoot(t *testing.T) {
	rootDir := filepath.Join(t.TempDir(), "does-not-exist")

	_, err := newTestScanner(t, rootDir, 1).Scan(context.Background(), 10)
	require.Error(t, err)

	var rootErr *RootError
	require.True(t, errors.As(err, &rootErr))
	assert.Equal(t, rootDir, rootErr.Root)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func Test_Scanner_RootIsFile(t *testing.T) {
	rootDir := t.TempDir()
	writeLines(t, rootDir, "file.go", 1)

	scanner := newTestScanner(t, filepath.Join(rootDir, "file.go"), 1)
	_, err := scanner.Scan(context.Background(), 10)
	assert.ErrorIs(t, err, ErrRootNotDir)
}

func Test_Scanner_CancelledContext(t *testing.T) {
	rootDir := t.TempDir()
	writeLines(t, rootDir, "a.go", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestScanner(t, rootDir, 1).Scan(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_Scanner_SkipsSymlinks(t *testing.T) {
	rootDir := t.TempDir()
	writeLines(t, rootDir, "real.go", 5)
	if err := os.Symlink(filepath.Join(rootDir, "real.go"), filepath.Join(rootDir, "link.go")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	records, err := newTestScanner(t, rootDir, 1).Scan(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []FileRecord{{Path: "real.go", LineCount: 5}}, records)
}
