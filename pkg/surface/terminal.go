package surface

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cardscore/cardscore/pkg/scoring"
)

// TerminalRenderer renders a Result as colored terminal output.
type TerminalRenderer struct{}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func bold(s string) string {
	if noColor() {
		return s
	}
	return colorBold + s + colorReset
}

func dim(s string) string {
	if noColor() {
		return s
	}
	return colorDim + s + colorReset
}

func colored(s, color string) string {
	if noColor() || color == "" {
		return s
	}
	return color + s + colorReset
}

func pointsColor(points float64) string {
	if points < 0 {
		return colorRed
	}
	return colorGreen
}

func (r *TerminalRenderer) Render(w io.Writer, result *scoring.Result) error {
	name := result.Model
	if result.Version != "" {
		name += "@" + result.Version
	}

	valueColor := colorGreen
	if result.Defaulted {
		valueColor = colorYellow
	}
	fmt.Fprintf(w, "%s\n\n",
		bold(fmt.Sprintf("Scorecard %s: %s = %s",
			name, result.Target, colored(formatValue(result.Value), valueColor))))

	if result.Defaulted {
		fmt.Fprintln(w, "Input incomplete: default prediction returned.")
		fmt.Fprintln(w)
		return nil
	}

	fmt.Fprintf(w, "Raw score: %.2f\n\n", result.RawScore)

	if len(result.Breakdown) > 0 {
		fmt.Fprintln(w, "Characteristics:")
		for _, cr := range result.Breakdown {
			fmt.Fprintf(w, "  (%s) %s", signed(cr.PartialScore), bold(cr.Characteristic))
			fmt.Fprintf(w, " %s", dim(fmt.Sprintf("attribute %d", cr.Attribute)))
			if cr.ReasonCode != "" {
				fmt.Fprintf(w, " [%s %s]", cr.ReasonCode, colored(signed(cr.Points), pointsColor(cr.Points)))
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}

	if result.Explanation != nil {
		ranked := result.Explanation.Ranked()
		if len(ranked) == 0 {
			fmt.Fprintln(w, "No reason codes.")
		} else {
			fmt.Fprintln(w, "Reason codes:")
			for i, rc := range ranked {
				fmt.Fprintf(w, "  %d. %s %s\n", i+1, bold(rc.Code), dim(fmt.Sprintf("%.2f points", rc.Points)))
			}
		}
		fmt.Fprintln(w)
	}

	if len(result.Outputs) > 0 {
		fmt.Fprintln(w, "Outputs:")
		keys := make([]string, 0, len(result.Outputs))
		for k := range result.Outputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := result.Outputs[k]
			if v == nil {
				v = dim("missing")
			}
			fmt.Fprintf(w, "  %s = %v\n", k, v)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// RenderError writes a failed evaluation in the same style.
func (r *TerminalRenderer) RenderError(w io.Writer, err error) {
	label := "evaluation failed"
	if kind, ok := scoring.KindOf(err); ok {
		label = kind.String()
	}
	fmt.Fprintf(w, "%s %s\n", colored("✗", colorRed), bold(label))
	for _, line := range wrapText(err.Error(), 70) {
		fmt.Fprintf(w, "    %s\n", dim(line))
	}
}

// wrapText wraps a string at the given width, returning lines.
func wrapText(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]

	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
		} else {
			current += " " + word
		}
	}
	lines = append(lines, current)
	return lines
}
