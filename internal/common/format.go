package common

import (
	"fmt"
	"strings"
)

// ReportWidth is the line width used by the command-line reports.
const ReportWidth = 80

// PrintBanner opens a report: the title framed by rule lines.
func PrintBanner(title string) {
	fmt.Printf("\n%s\n%s\n%s\n", rule(), title, rule())
}

// PrintSummary closes a report with a framed summary line.
func PrintSummary(message string) {
	fmt.Printf("\n%s\n%s\n%s\n\n", rule(), message, rule())
}

func rule() string {
	return strings.Repeat("=", ReportWidth)
}

// TreePrefix draws the branch glyph for a report line; the last entry
// closes the branch.
func TreePrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}
