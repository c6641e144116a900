// Package notify renders store notifications for an operator.
package notify

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	"marketsync/internal/models"
	"marketsync/internal/store"
)

// TerminalRenderer prints each notification once as it enters the store.
// It is a passive reader: it never dispatches and never blocks dispatch
// beyond the print itself.
type TerminalRenderer struct {
	out  io.Writer
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewTerminalRenderer creates a renderer writing to stdout.
func NewTerminalRenderer() *TerminalRenderer {
	return &TerminalRenderer{
		out:  os.Stdout,
		seen: make(map[string]struct{}),
	}
}

// Attach subscribes the renderer to the store and returns the
// unsubscribe func.
func (r *TerminalRenderer) Attach(s *store.Store) func() {
	return s.Subscribe(r.onState)
}

func (r *TerminalRenderer) onState(state store.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range state.UI.Notifications {
		if _, ok := r.seen[n.ID]; ok {
			continue
		}
		r.seen[n.ID] = struct{}{}
		r.print(n)
	}
}

func (r *TerminalRenderer) print(n models.Notification) {
	label := severityLabel(n.Severity)
	if n.Title != "" {
		fmt.Fprintf(r.out, "%s %s: %s\n", label, n.Title, n.Message)
		return
	}
	fmt.Fprintf(r.out, "%s %s\n", label, n.Message)
}

func severityLabel(s models.Severity) string {
	switch s {
	case models.SeveritySuccess:
		return color.GreenString("[ok]")
	case models.SeverityWarning:
		return color.YellowString("[warn]")
	case models.SeverityError:
		return color.RedString("[error]")
	default:
		return color.CyanString("[info]")
	}
}
