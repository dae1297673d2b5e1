package scan

import "time"

// FileRecord is one counted file.
type FileRecord struct {
	Path      string // Path relative to the scan root (forward slashes)
	LineCount int    // Number of '\n' bytes in the file
}

// Stats summarizes a single scan.
type Stats struct {
	Counted      int // files whose lines were counted
	Excluded     int // files left out by the block-lists
	ExcludedDirs int // directories pruned during traversal
	Skipped      int // files or directories that could not be read
	Duration     time.Duration
}

// Result is the outcome of Scanner.Run.
type Result struct {
	Files []FileRecord // top-N, sorted by LineCount descending
	Stats Stats
}
