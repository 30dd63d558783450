package brief

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/TobiSchelling/VoCIntel/internal/store"
)

// RenderMarkdown renders a brief as a Markdown document. The output depends
// only on the brief.
func RenderMarkdown(b store.Brief) string {
	var sb strings.Builder

	sb.WriteString("# Product Intelligence Brief\n\n")
	fmt.Fprintf(&sb, "**Generated:** %s\n", b.GeneratedAt.UTC().Format("Jan 2, 2006"))
	fmt.Fprintf(&sb, "**Feedback Analyzed:** %d items\n\n", b.FeedbackCount)
	sb.WriteString("---\n\n")
	fmt.Fprintf(&sb, "## Executive Summary\n\n%s\n\n", b.ExecutiveSummary)

	if len(b.Themes) > 0 {
		sb.WriteString("## Top Themes\n\n")
		for i, t := range b.Themes {
			fmt.Fprintf(&sb, "### %d. %s\n\n", i+1, t.Theme)
			fmt.Fprintf(&sb, "- **Frequency:** %d mentions\n", t.Frequency)
			fmt.Fprintf(&sb, "- **ARR Impact:** %s\n", FormatImpact(t.ARRImpact))
			fmt.Fprintf(&sb, "- **Recommended Action:** %s\n\n", t.RecommendedAction)
			if len(t.Evidence) > 0 {
				sb.WriteString("**Evidence:**\n")
				for _, e := range t.Evidence {
					fmt.Fprintf(&sb, "> \"%s\"\n\n", e)
				}
			}
		}
	}

	if b.WebCorrelation != "" {
		fmt.Fprintf(&sb, "## Web Signal Correlation\n\n%s\n\n", b.WebCorrelation)
	}
	if b.PriorityRecommendation != "" {
		fmt.Fprintf(&sb, "## Priority Recommendation\n\n%s\n\n", b.PriorityRecommendation)
	}

	sb.WriteString("---\n\n*Generated by VoCIntel*\n")
	return sb.String()
}

// FormatImpact renders an ARR impact as $1,234,567, or N/A when unknown.
func FormatImpact(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return "$" + groupThousands(int64(math.Round(*v)))
}

// ExportFilename is the download name of a brief's Markdown export.
func ExportFilename(b store.Brief) string {
	return fmt.Sprintf("product-brief-%s.md", b.GeneratedAt.UTC().Format("2006-01-02"))
}

func groupThousands(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + s
}
