// Package report writes assessment runs for people and tools.
//
// This package contains writers for different output formats:
//   - SimpleWriter: plain text for terminal display
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: GitHub Flavored Markdown with a risk pie chart
//
// Design decision: report data structures live in the model package and
// writers only render them, so a new format never touches the data.
package report
