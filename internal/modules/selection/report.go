package selection

import (
	"fmt"
	"strings"
)

// maxReportCandidates keeps textual reports readable for large spaces.
const maxReportCandidates = 16

// FormatReport renders a selection result as a plain-text report.
func FormatReport(res *Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Portfolio Selection Report\n")
	fmt.Fprintf(&b, "==========================\n")
	fmt.Fprintf(&b, "Run:      %s\n", res.RunID)
	fmt.Fprintf(&b, "Solver:   %s\n", res.SolverName)
	fmt.Fprintf(&b, "Universe: %s (%d assets)\n", strings.Join(res.Symbols, ", "), len(res.Symbols))
	fmt.Fprintf(&b, "Selected: %s\n", formatSelected(res.Selected))
	fmt.Fprintf(&b, "Solution: %v  objective=%.6g\n", res.Assignment, res.Objective)

	if len(res.Candidates) > 0 {
		fmt.Fprintf(&b, "\nCandidates (by probability)\n")
		shown := res.Candidates
		if len(shown) > maxReportCandidates {
			shown = shown[:maxReportCandidates]
		}
		for _, c := range shown {
			fmt.Fprintf(&b, "  %v  p=%.4f  f=%.6g\n", c.Assignment, c.Probability, c.Objective)
		}
		if omitted := len(res.Candidates) - len(shown); omitted > 0 {
			fmt.Fprintf(&b, "  ... %d more\n", omitted)
		}
	}

	fmt.Fprintf(&b, "\nPerformance            %12s  %12s\n", "selected", "universe")
	fmt.Fprintf(&b, "Information ratio      %12s  %12s\n",
		metricOrDash(res.SelectedMetrics != nil, func() string { return fmt.Sprintf("%.4f", res.SelectedMetrics.InformationRatio) }),
		fmt.Sprintf("%.4f", res.UniverseMetrics.InformationRatio))
	fmt.Fprintf(&b, "CAGR                   %12s  %12s\n",
		metricOrDash(res.SelectedMetrics != nil, func() string { return fmt.Sprintf("%.2f%%", res.SelectedMetrics.CAGR*100) }),
		fmt.Sprintf("%.2f%%", res.UniverseMetrics.CAGR*100))
	fmt.Fprintf(&b, "Final equity           %12s  %12s\n",
		metricOrDash(res.SelectedMetrics != nil, func() string { return fmt.Sprintf("%.2f", res.SelectedMetrics.FinalEquity) }),
		fmt.Sprintf("%.2f", res.UniverseMetrics.FinalEquity))
	fmt.Fprintf(&b, "Observations           %12s  %12d\n",
		metricOrDash(res.SelectedMetrics != nil, func() string { return fmt.Sprintf("%d", res.SelectedMetrics.Observations) }),
		res.UniverseMetrics.Observations)

	return b.String()
}

func formatSelected(selected []string) string {
	if len(selected) == 0 {
		return "(none)"
	}
	return strings.Join(selected, ", ")
}

func metricOrDash(ok bool, render func() string) string {
	if !ok {
		return "-"
	}
	return render()
}
