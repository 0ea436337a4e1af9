package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// chart cell layers, later layers drawn over earlier ones
type chartLayer int

const (
	layerEmpty chartLayer = iota
	layerBand
	layerEpsilonLine
	layerMeanLine
	layerEpsilon
	layerMean
	layerNEff
)

const chartLabelW = 9 // "1.0e-03 ┤"

var layerGlyph = map[chartLayer]string{
	layerEmpty:       " ",
	layerBand:        "░",
	layerEpsilonLine: "·",
	layerMeanLine:    "─",
	layerEpsilon:     "○",
	layerMean:        "●",
	layerNEff:        "◎",
}

func layerStyle(l chartLayer) lipgloss.Style {
	switch l {
	case layerBand:
		return bandStyle
	case layerEpsilonLine, layerEpsilon:
		return epsilonStyle
	case layerMeanLine, layerMean:
		return meanStyle
	case layerNEff:
		return neffStyle
	default:
		return lipgloss.NewStyle()
	}
}

// logScale maps positive values onto chart rows, row 0 at the top.
type logScale struct {
	lo, hi float64 // log10 bounds
	rows   int
}

func newLogScale(values []float64, rows int) logScale {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lv := math.Log10(v)
		lo = math.Min(lo, lv)
		hi = math.Max(hi, lv)
	}
	if math.IsInf(lo, 1) {
		lo, hi = -3, 0
	}
	if hi-lo < 1e-9 {
		lo, hi = lo-0.5, hi+0.5
	}
	return logScale{lo: lo, hi: hi, rows: rows}
}

// row returns the row for v; non-positive values sit on the bottom row.
func (s logScale) row(v float64) int {
	if v <= 0 || math.IsNaN(v) {
		return s.rows - 1
	}
	frac := (math.Log10(v) - s.lo) / (s.hi - s.lo)
	r := (s.rows - 1) - int(math.Round(frac*float64(s.rows-1)))
	return min(max(r, 0), s.rows-1)
}

func (s logScale) value(row int) float64 {
	frac := float64(s.rows-1-row) / float64(max(s.rows-1, 1))
	return math.Pow(10, s.lo+frac*(s.hi-s.lo))
}

// RenderChart draws the mean error mu(n), its standard-error band, the theoretical
// epsilon(n) = 1/2^(n+2) curve and the n_eff marker on a log axis.
func RenderChart(a *Analysis, width, height int) string {
	if a == nil || len(a.Results) == 0 {
		return dimStyle.Render("no results")
	}
	plotW := max(width-chartLabelW-4, 2*len(a.Results))
	rows := max(height-3, 4) // x labels + axis + legend

	var values []float64
	for _, r := range a.Results {
		values = append(values, r.Gain, r.MeanError, r.MeanError+r.StdError, r.MeanError-r.StdError)
	}
	scale := newLogScale(values, rows)

	grid := make([][]chartLayer, rows)
	for i := range grid {
		grid[i] = make([]chartLayer, plotW)
	}
	put := func(row, col int, l chartLayer) {
		if row < 0 || row >= rows || col < 0 || col >= plotW {
			return
		}
		if l > grid[row][col] {
			grid[row][col] = l
		}
	}

	cols := make([]int, len(a.Results))
	for i := range a.Results {
		if len(a.Results) == 1 {
			cols[i] = plotW / 2
		} else {
			cols[i] = i * (plotW - 1) / (len(a.Results) - 1)
		}
	}

	for i, r := range a.Results {
		top, bottom := scale.row(r.MeanError+r.StdError), scale.row(r.MeanError-r.StdError)
		for row := top; row <= bottom; row++ {
			put(row, cols[i], layerBand)
		}
		if i == 0 {
			continue
		}
		prev := a.Results[i-1]
		for col := cols[i-1] + 1; col < cols[i]; col++ {
			t := float64(col-cols[i-1]) / float64(cols[i]-cols[i-1])
			put(scale.row(logLerp(prev.Gain, r.Gain, t)), col, layerEpsilonLine)
			put(scale.row(logLerp(prev.MeanError, r.MeanError, t)), col, layerMeanLine)
			lo := logLerp(prev.MeanError-prev.StdError, r.MeanError-r.StdError, t)
			hi := logLerp(prev.MeanError+prev.StdError, r.MeanError+r.StdError, t)
			for row := scale.row(hi); row <= scale.row(lo); row++ {
				put(row, col, layerBand)
			}
		}
	}
	for i, r := range a.Results {
		put(scale.row(r.Gain), cols[i], layerEpsilon)
		put(scale.row(r.MeanError), cols[i], layerMean)
		if r.N == a.NEff {
			put(scale.row(r.MeanError), cols[i], layerNEff)
		}
	}

	var sb strings.Builder
	for row := range rows {
		label := strings.Repeat(" ", chartLabelW-2)
		if row == 0 || row == rows-1 || row == rows/2 {
			label = fmt.Sprintf("%7.1e", scale.value(row))
		}
		sb.WriteString(dimStyle.Render(label + " ┤"))
		for col := range plotW {
			l := grid[row][col]
			sb.WriteString(layerStyle(l).Render(layerGlyph[l]))
		}
		sb.WriteString("\n")
	}

	axis := []rune(strings.Repeat("─", plotW))
	ticks := []rune(strings.Repeat(" ", plotW+2))
	for i, r := range a.Results {
		axis[cols[i]] = '┬'
		for k, ch := range fmt.Sprint(r.N) {
			if cols[i]+k < len(ticks) {
				ticks[cols[i]+k] = ch
			}
		}
	}
	sb.WriteString(dimStyle.Render(strings.Repeat(" ", chartLabelW-1) + "└" + string(axis)))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(strings.Repeat(" ", chartLabelW) + string(ticks) + " n"))
	sb.WriteString("\n")

	legend := []string{
		epsilonStyle.Render("○ ε(n)"),
		meanStyle.Render("● μ(n)"),
		bandStyle.Render("░ ±α(n)"),
		neffStyle.Render(fmt.Sprintf("◎ n_eff = %d", a.NEff)),
	}
	sb.WriteString(strings.Repeat(" ", chartLabelW) + strings.Join(legend, "  "))

	return sb.String()
}

// logLerp interpolates between a and b in log space; non-positive ends fall back to
// linear interpolation.
func logLerp(a, b, t float64) float64 {
	if a <= 0 || b <= 0 {
		return a + (b-a)*t
	}
	return math.Pow(10, math.Log10(a)+(math.Log10(b)-math.Log10(a))*t)
}
