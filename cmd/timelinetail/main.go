// Command timelinetail is the one user-facing surface this core ships: a
// live-scrolling, filterable viewer over the observability timeline's
// append-only JSONL log, built on the same replay reader the core uses
// internally for session-replay summaries.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	path := flag.String("path", "", "path to the timeline JSONL log (default: $NULLCLAW_CONFIG timeline.data_dir/events.jsonl)")
	flag.Parse()

	resolved, err := resolvePath(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "timelinetail: %v\n", err)
		os.Exit(1)
	}

	m, err := newModel(resolved)
	if err != nil {
		fmt.Fprintf(os.Stderr, "timelinetail: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "timelinetail: %v\n", err)
		os.Exit(1)
	}
}
