package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/lexandro/toplines/ignore"
	"github.com/lexandro/toplines/report"
	"github.com/lexandro/toplines/scan"
	"github.com/lexandro/toplines/server"
	"github.com/lexandro/toplines/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// listFlag is a repeatable CLI flag. It stays nil until set, so an unset flag
// keeps the default block-list.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ", ") }
func (l *listFlag) Set(value string) error {
	*l = append(*l, value)
	return nil
}

// config is the parsed command line.
type config struct {
	rootDir     string
	topN        int
	excludeExts listFlag
	excludeDirs listFlag
	excludes    listFlag
	gitignore   bool
	workers     int
	watch       bool
	logLevel    string
	logFile     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var code int
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		code = serve(ctx, os.Args[2:])
	} else {
		code = run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	}
	stop()
	os.Exit(code)
}

// parseFlags parses the report command line and resolves the root to an absolute path.
func parseFlags(name string, args []string, stderr io.Writer) (*config, error) {
	cfg := &config{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.rootDir, "root", "", "Directory to scan (default: current working directory)")
	fs.IntVar(&cfg.topN, "top", scan.DefaultTopN, "Number of files to report")
	fs.Var(&cfg.excludeExts, "exclude-ext", "File extension to skip, replaces the defaults (repeatable)")
	fs.Var(&cfg.excludeDirs, "exclude-dir", "Directory path prefix to skip, replaces the defaults (repeatable)")
	fs.Var(&cfg.excludes, "exclude", "Extra glob pattern to skip, e.g. **/*_test.go (repeatable)")
	fs.BoolVar(&cfg.gitignore, "gitignore", false, "Also skip files matched by the root .gitignore")
	fs.IntVar(&cfg.workers, "workers", 1, "Number of files counted in parallel")
	fs.BoolVar(&cfg.watch, "watch", false, "Keep running and print a new report after every change")
	fs.StringVar(&cfg.logLevel, "log-level", "warn", "Log level: debug|info|warn|error")
	fs.StringVar(&cfg.logFile, "log-file", "", "Log file path (default: stderr)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if cfg.topN < 0 {
		return nil, fmt.Errorf("-top must not be negative, got %d", cfg.topN)
	}

	if cfg.rootDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		cfg.rootDir = wd
	}
	absRoot, err := filepath.Abs(cfg.rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", cfg.rootDir, err)
	}
	cfg.rootDir = absRoot
	return cfg, nil
}

// run executes the report command and returns the process exit code.
func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) int {
	cfg, err := parseFlags("toplines", args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	logger := setupLogger(cfg.logLevel, cfg.logFile, stderr)

	matcher, err := ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:             cfg.rootDir,
		ExcludedExtensions:  cfg.excludeExts,
		ExcludedDirPrefixes: cfg.excludeDirs,
		ExcludePatterns:     cfg.excludes,
		UseGitignore:        cfg.gitignore,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	scanner := scan.NewDirScanner(cfg.rootDir, matcher, scan.Options{Workers: cfg.workers, Logger: logger})

	if err := scanAndReport(ctx, scanner, cfg, stdout, logger); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if cfg.watch {
		if err := watchAndReport(ctx, scanner, matcher, cfg, stdout, logger); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	return 0
}

// scanAndReport prints the header, scans, then prints the table.
func scanAndReport(ctx context.Context, scanner *scan.Scanner, cfg *config, stdout io.Writer, logger *slog.Logger) error {
	if err := report.WriteHeader(stdout, cfg.rootDir); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	result, err := scanner.Run(ctx, cfg.topN)
	if err != nil {
		return err
	}
	logger.Info("scan complete",
		"root", cfg.rootDir,
		"counted", result.Stats.Counted,
		"excluded", result.Stats.Excluded,
		"skipped", result.Stats.Skipped,
		"duration", result.Stats.Duration,
	)

	if err := report.WriteTable(stdout, cfg.topN, result.Files); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// serve runs the MCP server on stdio.
func serve(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("toplines serve", flag.ContinueOnError)
	var rootDir, logLevel, logFile string
	var workers int
	fs.StringVar(&rootDir, "root", "", "Default scan root (default: current working directory)")
	fs.IntVar(&workers, "workers", 4, "Number of files counted in parallel")
	fs.StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if rootDir == "" {
		var err error
		rootDir, err = os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
			return 1
		}
	}
	rootDir, _ = filepath.Abs(rootDir)

	// Never log to stdout here: stdout carries the MCP stdio stream.
	logger := setupLogger(logLevel, logFile, os.Stderr)
	logger.Info("starting toplines MCP server", "root", rootDir, "workers", workers)

	mcpServer := server.Setup(&tools.ScanHandler{
		RootDir: rootDir,
		Workers: workers,
		Logger:  logger,
	})
	if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("MCP server error", "error", err)
		return 1
	}
	return 0
}

// setupLogger creates an slog.Logger writing to fallback or to a file.
func setupLogger(level string, logFile string, fallback io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelWarn
	}

	writer := fallback
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(fallback, "Warning: cannot open log file %s: %v, falling back to stderr\n", logFile, err)
		} else {
			writer = f
		}
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}
