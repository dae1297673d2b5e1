package ignore

// DefaultExcludedExtensions are file name suffixes that never show up in a report.
// Matching is case-insensitive.
var DefaultExcludedExtensions = []string{
	".md",
	".png",
	".pdf",
	".json",
	".xml",
	".pack",
	".jpg",
}

// DefaultExcludedDirPrefixes are prefixes of the directory path, relative to the
// scan root, under which files are skipped. This is a plain string prefix test,
// so "data" also covers "database/".
var DefaultExcludedDirPrefixes = []string{
	"data",
	"node_modules",
	"docs",
	".git",
}
