package autotest

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// printSummary renders the per-node outcome table. Status cells are
// colored when the writer supports it; termenv degrades to plain text
// on dumb terminals and pipes.
func printSummary(w io.Writer, results []Result) {
	if len(results) == 0 {
		return
	}
	const title = "Settable Nodes Summary"
	width := 24
	for _, r := range results {
		if l := len(r.Path) + 4; l > width {
			width = l
		}
	}
	out := termenv.NewOutput(w)
	pass := out.String("✔ PASS").Foreground(out.Color("2"))
	fail := out.String("✖ FAIL").Foreground(out.Color("1"))

	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
	fmt.Fprintf(w, "%-7s %-*s Note\n", "Status", width, "Path")
	fmt.Fprintf(w, "%s %s %s\n", strings.Repeat("-", 7), strings.Repeat("-", width), strings.Repeat("-", 20))
	for _, r := range results {
		status := fail
		if r.Success {
			status = pass
		}
		fmt.Fprintf(w, "%s %-*s %s\n", status, width, r.Path, r.Note)
	}
}
