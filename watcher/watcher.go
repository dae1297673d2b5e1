package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultQuiet is how long the tree must stay unchanged before a batch is released.
const DefaultQuiet = 300 * time.Millisecond

// Filter is consulted with root-relative, forward-slash paths.
type Filter interface {
	ExcludesDir(relativePath string) bool
	ExcludesFile(relativePath string) bool
}

// Watcher watches a directory tree recursively and reports debounced changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	filter    Filter
	rootDir   string
	logger    *slog.Logger
	done      chan struct{}
}

// New registers every non-excluded directory under rootDir.
func New(rootDir string, filter Filter, quiet time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if quiet <= 0 {
		quiet = DefaultQuiet
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(quiet),
		filter:    filter,
		rootDir:   rootDir,
		logger:    logger,
		done:      make(chan struct{}),
	}

	err = filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != rootDir && filter.ExcludesDir(w.relative(path)) {
			return filepath.SkipDir
		}
		if watchErr := fsWatcher.Add(path); watchErr != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", watchErr)
		}
		return nil
	})
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// Changes returns the channel of debounced change batches.
func (w *Watcher) Changes() <-chan []Change {
	return w.debouncer.Batches()
}

// Run pumps fsnotify events into the debouncer until Close. Call it in a goroutine.
func (w *Watcher) Run() {
	defer w.debouncer.Close()
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	relativePath := w.relative(event.Name)

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.filter.ExcludesDir(relativePath) {
				return
			}
			if err := w.fsWatcher.Add(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			// Files copied in together with the directory produce no events of their own.
			w.debouncer.Add(relativePath, OpCreate)
			return
		}
	}

	// .gitignore edits matter even though the block-lists may hide the file.
	if filepath.Base(event.Name) != ".gitignore" && w.filter.ExcludesFile(relativePath) {
		return
	}

	var op Op
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}
	w.debouncer.Add(relativePath, op)
}

func (w *Watcher) relative(path string) string {
	relativePath, err := filepath.Rel(w.rootDir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(relativePath)
}

// Close stops Run and releases the fsnotify watcher.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	return w.fsWatcher.Close()
}
