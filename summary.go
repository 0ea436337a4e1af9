package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
)

var summaryHeaders = []string{"n", "μ(n)", "α(n)", "ε(n)", "Δ(n)+α(n)", "result"}

// scanStatus describes how result i took part in the n_eff scan.
func scanStatus(a *Analysis, i int) string {
	r := a.Results[i]
	verdict := "fail"
	if r.Passed {
		verdict = "pass"
	}
	switch {
	case i < a.NEff-1:
		return verdict
	case i == a.NEff-1:
		return verdict + " (stop)"
	default:
		return verdict + " (ignored)"
	}
}

func summaryRow(a *Analysis, i int) []string {
	r := a.Results[i]
	return []string{
		fmt.Sprint(r.N),
		fmt.Sprintf("%.3e", r.MeanError),
		fmt.Sprintf("%.3e", r.StdError),
		fmt.Sprintf("%.3e", r.Gain),
		fmt.Sprintf("%.3e", r.Loss+r.StdError),
		scanStatus(a, i),
	}
}

// RenderSummary prints the per-count results as a bordered table followed by n_eff.
func RenderSummary(a *Analysis) string {
	t := ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(summaryHeaders...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == ltable.HeaderRow {
				return style.Inherit(titleStyle)
			}
			if col == len(summaryHeaders)-1 && row >= 0 && row < len(a.Results) {
				if a.Results[row].Passed {
					return style.Inherit(passStyle)
				}
				return style.Inherit(failStyle)
			}
			return style
		})
	for i := range a.Results {
		t.Row(summaryRow(a, i)...)
	}

	return fmt.Sprintf("%s\n%s %d  (n_epsilon = %d)\n",
		t.String(),
		titleStyle.Render("n_eff ="),
		a.NEff,
		a.Repetitions)
}
