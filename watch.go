package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/lexandro/toplines/ignore"
	"github.com/lexandro/toplines/scan"
	"github.com/lexandro/toplines/watcher"
)

// watchAndReport rescans the whole tree after every debounced batch of changes
// and prints a fresh report. It returns nil when ctx is cancelled and an error
// when the root can no longer be scanned.
func watchAndReport(
	ctx context.Context,
	scanner *scan.Scanner,
	matcher *ignore.Matcher,
	cfg *config,
	stdout io.Writer,
	logger *slog.Logger,
) error {
	fileWatcher, err := watcher.New(cfg.rootDir, matcher, watcher.DefaultQuiet, logger)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer fileWatcher.Close()
	go fileWatcher.Run()

	logger.Info("watching for changes", "root", cfg.rootDir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-fileWatcher.Changes():
			if !ok {
				return nil
			}
			if touchesGitignore(batch) {
				matcher.Reload()
				logger.Info("reloaded ignore rules")
			}
			logger.Info("changes detected, rescanning", "changes", len(batch))

			if _, err := fmt.Fprintln(stdout); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			if err := scanAndReport(ctx, scanner, cfg, stdout, logger); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

func touchesGitignore(batch []watcher.Change) bool {
	for _, change := range batch {
		if path.Base(change.Path) == ".gitignore" {
			return true
		}
	}
	return false
}
