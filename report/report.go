package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lexandro/toplines/scan"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const ruleWidth = 60

// printer groups digits with commas ("12,345").
var printer = message.NewPrinter(language.English)

// WriteHeader writes the line printed before a scan starts.
func WriteHeader(w io.Writer, absoluteRoot string) error {
	_, err := fmt.Fprintf(w, "Scanning %s...\n", absoluteRoot)
	return err
}

// WriteTable writes the ranked file list.
func WriteTable(w io.Writer, topN int, records []scan.FileRecord) error {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("\nTop %d Files by Line Count (excluding .md):\n", topN))
	builder.WriteString(strings.Repeat("-", ruleWidth))
	builder.WriteString("\n")
	for _, record := range records {
		builder.WriteString(FormatRecord(record))
		builder.WriteString("\n")
	}
	_, err := io.WriteString(w, builder.String())
	return err
}

// Write renders the full report: header, then table.
func Write(w io.Writer, absoluteRoot string, topN int, records []scan.FileRecord) error {
	if err := WriteHeader(w, absoluteRoot); err != nil {
		return err
	}
	return WriteTable(w, topN, records)
}

// String is Write into a string.
func String(absoluteRoot string, topN int, records []scan.FileRecord) string {
	var builder strings.Builder
	_ = Write(&builder, absoluteRoot, topN, records)
	return builder.String()
}

// FormatRecord renders one line, e.g. "1,234 lines: src/main.go".
func FormatRecord(record scan.FileRecord) string {
	return printer.Sprintf("%d lines: %s", record.LineCount, record.Path)
}

// FormatStats renders a one-line scan summary.
func FormatStats(stats scan.Stats) string {
	return printer.Sprintf("counted %d files, excluded %d files and %d directories, skipped %d unreadable in %s",
		stats.Counted, stats.Excluded, stats.ExcludedDirs, stats.Skipped, stats.Duration.Round(time.Millisecond).String())
}
