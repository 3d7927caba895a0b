package surface

import (
	"fmt"
	"io"
	"strings"

	"github.com/cardscore/cardscore/pkg/scoring"
)

// MarkdownRenderer renders a Result as a Markdown report.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(w io.Writer, result *scoring.Result) error {
	_, err := io.WriteString(w, BuildMarkdownSummary(result))
	return err
}

// BuildMarkdownSummary creates the Markdown body for a Result.
func BuildMarkdownSummary(result *scoring.Result) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Scorecard %s: %s = %s\n\n", result.Model, result.Target, formatValue(result.Value)))

	if result.Defaulted {
		sb.WriteString("_Input incomplete: default prediction returned._\n")
		return sb.String()
	}

	sb.WriteString("### Characteristics\n\n")
	sb.WriteString("| Characteristic | Attribute | Partial score | Reason code | Points |\n")
	sb.WriteString("|----------------|-----------|---------------|-------------|--------|\n")
	for _, cr := range result.Breakdown {
		code, points := "", ""
		if cr.ReasonCode != "" {
			code = "`" + cr.ReasonCode + "`"
			points = signed(cr.Points)
		}
		sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s | %s |\n",
			cr.Characteristic, cr.Attribute, signed(cr.PartialScore), code, points))
	}
	sb.WriteString(fmt.Sprintf("\nRaw score: **%.2f**\n", result.RawScore))

	if result.Explanation != nil && len(result.Explanation.ReasonCodes) > 0 {
		sb.WriteString("\n### Reason codes\n\n")
		for i, rc := range result.Explanation.Ranked() {
			sb.WriteString(fmt.Sprintf("%d. **%s** (%.2f)\n", i+1, rc.Code, rc.Points))
		}
	}

	return sb.String()
}
