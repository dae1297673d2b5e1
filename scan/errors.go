package scan

import (
	"errors"
	"fmt"
)

var (
	// ErrRootNotDir is wrapped in a RootError when the scan root is a file.
	ErrRootNotDir = errors.New("not a directory")
	// ErrNegativeTopN is returned for a negative result limit.
	ErrNegativeTopN = errors.New("topN must not be negative")
)

// RootError means the scan root could not be enumerated. It aborts the scan.
type RootError struct {
	Root string
	Err  error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("scanning root %s: %v", e.Root, e.Err)
}

func (e *RootError) Unwrap() error { return e.Err }

// FileError means a single file or subdirectory could not be read.
// The scan skips the entry and carries on; the error only reaches the logger.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }
