package tui

import (
	"fmt"
	"strings"
)

type SummaryRow struct {
	Label string
	Value string
}

// RenderSummary lays rows out as an aligned two-column table.
func RenderSummary(rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, len(row.Label))
		valueWidth = max(valueWidth, len(row.Value))
	}

	hline := strings.Repeat("-", labelWidth+valueWidth+3)
	lines := []string{hline}

	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		lines = append(lines, fmt.Sprintf("%s | %s", labelStyle.Render(label), valueStyle.Render(value)))
	}

	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

// RenderErrors lists per-image failures, one per line.
func RenderErrors(errs []string) string {
	if len(errs) == 0 {
		return ""
	}
	lines := make([]string, 0, len(errs)+1)
	lines = append(lines, errorStyle.Render(fmt.Sprintf("%d image(s) failed:", len(errs))))
	for _, e := range errs {
		lines = append(lines, errorStyle.Render("  "+e))
	}
	return strings.Join(lines, "\n")
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
