// Package surface renders scorecard evaluation results for people and tools.
// Implementations handle different output targets: terminal, Markdown, JSON.
package surface

import (
	"fmt"
	"io"

	"github.com/cardscore/cardscore/pkg/scoring"
)

// Renderer produces formatted output from a Result.
type Renderer interface {
	// Render writes the formatted result to the writer.
	Render(w io.Writer, result *scoring.Result) error
}

// ForFormat returns the renderer for an output format name.
func ForFormat(format string) (Renderer, error) {
	switch format {
	case "", "text":
		return &TerminalRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, json or markdown)", format)
	}
}

func formatValue(v *float64) string {
	if v == nil {
		return "missing"
	}
	return fmt.Sprintf("%.2f", *v)
}

func signed(f float64) string {
	if f < 0 {
		return fmt.Sprintf("%.1f", f)
	}
	return fmt.Sprintf("+%.1f", f)
}
