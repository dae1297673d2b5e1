package server

import (
	"github.com/lexandro/toplines/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients.
const Version = "0.2.0"

// Setup creates the MCP server and registers the scan tool.
func Setup(scanHandler *tools.ScanHandler) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "toplines",
			Version: Version,
		},
		&mcp.ServerOptions{
			Instructions: `This server ranks the files of a directory tree by line count. Use toplines_scan to find the largest source files, for example before deciding what to split or refactor.`,
		},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "toplines_scan",
		Description: `List the files with the most lines under a directory.

Lines are counted as newline bytes, so a last line without a trailing newline is not counted.

Skipped by default:
  - files ending in .md .png .pdf .json .xml .pack .jpg (case-insensitive)
  - directories whose path starts with data, node_modules, docs or .git

Options:
  - topN: number of files to report (default 10)
  - excludeExtensions / excludeDirs: replace the default lists
  - exclude: extra glob patterns (e.g. "**/*_test.go")
  - gitignore: also honour the root .gitignore`,
	}, scanHandler.Handle)

	return mcpServer
}
