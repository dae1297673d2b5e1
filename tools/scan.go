package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/lexandro/toplines/ignore"
	"github.com/lexandro/toplines/report"
	"github.com/lexandro/toplines/scan"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ScanArgs defines the input parameters for the toplines_scan tool.
type ScanArgs struct {
	Root              string   `json:"root,omitempty" jsonschema:"Directory to scan; relative paths resolve against the server root (default: server root)"`
	TopN              int      `json:"topN,omitempty" jsonschema:"Number of files to report (default 10)"`
	ExcludeExtensions []string `json:"excludeExtensions,omitempty" jsonschema:"File extensions to skip, replacing the default list (.md .png .pdf .json .xml .pack .jpg)"`
	ExcludeDirs       []string `json:"excludeDirs,omitempty" jsonschema:"Directory path prefixes to skip, replacing the default list (data node_modules docs .git)"`
	Exclude           []string `json:"exclude,omitempty" jsonschema:"Extra glob patterns to skip (e.g. **/*_test.go)"`
	Gitignore         bool     `json:"gitignore,omitempty" jsonschema:"Also skip files matched by the root .gitignore"`
}

// ScanHandler holds the dependencies for the scan tool.
type ScanHandler struct {
	RootDir string // absolute; default scan root
	Workers int
	Logger  *slog.Logger
}

// Handle processes a toplines_scan request.
func (h *ScanHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ScanArgs) (*mcp.CallToolResult, any, error) {
	if args.TopN < 0 {
		h.Logger.Warn("toplines_scan called with negative topN", "topN", args.TopN)
		return errorResult("Error: topN must not be negative"), nil, nil
	}
	topN := args.TopN
	if topN == 0 {
		topN = scan.DefaultTopN
	}

	rootDir := h.resolveRoot(args.Root)

	matcher, err := ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:             rootDir,
		ExcludedExtensions:  args.ExcludeExtensions,
		ExcludedDirPrefixes: args.ExcludeDirs,
		ExcludePatterns:     args.Exclude,
		UseGitignore:        args.Gitignore,
	})
	if err != nil {
		h.Logger.Warn("toplines_scan rejected arguments", "error", err)
		return errorResult(fmt.Sprintf("Error: %v", err)), nil, nil
	}

	scanner := scan.NewDirScanner(rootDir, matcher, scan.Options{Workers: h.Workers, Logger: h.Logger})
	result, err := scanner.Run(ctx, topN)
	if err != nil {
		var rootErr *scan.RootError
		if errors.As(err, &rootErr) {
			h.Logger.Warn("toplines_scan root not readable", "root", rootDir, "error", err)
			return errorResult(fmt.Sprintf("Scan error: %v", err)), nil, nil
		}
		h.Logger.Error("toplines_scan failed", "root", rootDir, "error", err)
		return nil, nil, err
	}

	h.Logger.Info("toplines_scan",
		"root", rootDir,
		"topN", topN,
		"counted", result.Stats.Counted,
		"skipped", result.Stats.Skipped,
		"elapsed", result.Stats.Duration,
	)

	var builder strings.Builder
	builder.WriteString(report.String(rootDir, topN, result.Files))
	builder.WriteString("\n")
	builder.WriteString(report.FormatStats(result.Stats))
	builder.WriteString("\n")

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: builder.String()}},
	}, nil, nil
}

func (h *ScanHandler) resolveRoot(root string) string {
	if root == "" {
		return h.RootDir
	}
	if !filepath.IsAbs(root) {
		root = filepath.Join(h.RootDir, root)
	}
	return filepath.Clean(root)
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
