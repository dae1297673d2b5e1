package scan

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// DefaultTopN is the report size used when the caller does not pick one.
const DefaultTopN = 10

// Filter decides which entries a scan leaves out. Paths are relative to the
// scan root and use forward slashes. *ignore.Matcher satisfies it.
type Filter interface {
	ExcludesDir(relativePath string) bool
	ExcludesFile(relativePath string) bool
}

// Options configures a Scanner.
type Options struct {
	// Workers > 1 counts files on a bounded worker pool. The result does not
	// depend on the worker count.
	Workers int
	Logger  *slog.Logger
}

// Scanner counts lines of every non-excluded regular file under a root.
type Scanner struct {
	fs      billy.Filesystem
	filter  Filter
	workers int
	logger  *slog.Logger
}

// NewScanner creates a scanner reading through fsys, whose root is the scan root.
func NewScanner(fsys billy.Filesystem, filter Filter, options Options) *Scanner {
	workers := options.Workers
	if workers < 1 {
		workers = 1
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scanner{
		fs:      fsys,
		filter:  filter,
		workers: workers,
		logger:  logger,
	}
}

// NewDirScanner creates a scanner over a directory on the local filesystem.
func NewDirScanner(rootDir string, filter Filter, options Options) *Scanner {
	return NewScanner(osfs.New(rootDir), filter, options)
}

// Scan returns the topN files with the most lines, sorted descending.
// Only a failure to enumerate the root is returned as an error; unreadable
// files are skipped.
func (s *Scanner) Scan(ctx context.Context, topN int) ([]FileRecord, error) {
	result, err := s.Run(ctx, topN)
	if err != nil {
		return nil, err
	}
	return result.Files, nil
}

// Run is Scan plus the statistics of the pass.
func (s *Scanner) Run(ctx context.Context, topN int) (*Result, error) {
	if topN < 0 {
		return nil, ErrNegativeTopN
	}
	start := time.Now()

	info, err := s.fs.Stat(".")
	if err != nil {
		return nil, &RootError{Root: s.fs.Root(), Err: err}
	}
	if !info.IsDir() {
		return nil, &RootError{Root: s.fs.Root(), Err: ErrRootNotDir}
	}

	var stats Stats
	paths, err := s.discover(ctx, &stats)
	if err != nil {
		return nil, err
	}

	counts, errs := s.countAll(ctx, paths)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]FileRecord, 0, len(paths))
	for i, filePath := range paths {
		if errs[i] != nil {
			s.logger.Debug("skipped file", "path", filePath, "error", errs[i])
			stats.Skipped++
			continue
		}
		records = append(records, FileRecord{Path: filepath.ToSlash(filePath), LineCount: counts[i]})
	}
	stats.Counted = len(records)

	// Stable sort keeps discovery order among equal counts.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].LineCount > records[j].LineCount
	})
	if len(records) > topN {
		records = records[:topN]
	}

	stats.Duration = time.Since(start)
	s.logger.Debug("scan complete",
		"root", s.fs.Root(),
		"counted", stats.Counted,
		"excluded", stats.Excluded,
		"skipped", stats.Skipped,
		"duration", stats.Duration,
	)

	return &Result{Files: records, Stats: stats}, nil
}

// discover walks the tree in lexical order and returns the files to count.
func (s *Scanner) discover(ctx context.Context, stats *Stats) ([]string, error) {
	var paths []string
	err := util.Walk(s.fs, ".", func(walkPath string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		relativePath := filepath.ToSlash(walkPath)
		if err != nil {
			if relativePath == "." {
				return &RootError{Root: s.fs.Root(), Err: err}
			}
			s.logger.Debug("skipped path", "path", relativePath, "error", err)
			stats.Skipped++
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if s.filter.ExcludesDir(relativePath) {
				stats.ExcludedDirs++
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if s.filter.ExcludesFile(relativePath) {
			stats.Excluded++
			return nil
		}
		paths = append(paths, walkPath)
		return nil
	})
	return paths, err
}

// countAll counts every path. Slot i of both slices belongs to paths[i], so
// workers never share a write target and the merge keeps discovery order.
func (s *Scanner) countAll(ctx context.Context, paths []string) ([]int, []error) {
	counts := make([]int, len(paths))
	errs := make([]error, len(paths))

	if s.workers == 1 {
		for i, filePath := range paths {
			if ctx.Err() != nil {
				break
			}
			counts[i], errs[i] = s.countFile(filePath)
		}
		return counts, errs
	}

	jobs := make(chan int, 100)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				counts[idx], errs[idx] = s.countFile(paths[idx])
			}
		}()
	}

	for i := range paths {
		if ctx.Err() != nil {
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return counts, errs
}

// countFile opens, counts and closes one file.
func (s *Scanner) countFile(filePath string) (int, error) {
	f, err := s.fs.Open(filePath)
	if err != nil {
		return 0, &FileError{Path: filepath.ToSlash(filePath), Err: err}
	}
	defer f.Close()

	lineCount, err := CountLines(f)
	if err != nil {
		return 0, &FileError{Path: filepath.ToSlash(filePath), Err: err}
	}
	return lineCount, nil
}
