package visuals

import (
	"fmt"
	"math"
	"strings"

	"outbreak-mcp/internal/epi"
)

// Significance threshold drawn on the p-value chart.
const alpha = 0.05

// maxBars keeps the text chart readable for wide questionnaires.
const maxBars = 30

// GenerateEffectChart creates a Mermaid bar chart of the numeric effect measures (OR or RR)
// per factor with a reference line at 1.0. Factors whose measure is a sentinel are left out.
func GenerateEffectChart(resp epi.AnalysisResponse) string {
	var labels []string
	var values []string
	var refs []string
	maxVal := 1.0

	for _, r := range resp.Results {
		if len(labels) == maxBars {
			break
		}
		v, ok := r.EffectMeasure.Float()
		if !ok {
			continue
		}
		labels = append(labels, quoteLabel(r.Factor.Name()))
		values = append(values, fmt.Sprintf("%.3f", v))
		refs = append(refs, "1")
		if v > maxVal {
			maxVal = v
		}
	}
	if len(labels) == 0 {
		return ""
	}

	measure := "Odds Ratio"
	if resp.Layout == epi.Cohort {
		measure = "Risk Ratio"
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"%s by Factor\"\n", measure))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"%s\" 0 --> %d\n", measure, int(math.Ceil(maxVal*1.2))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(refs, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GeneratePValueChart creates a Mermaid bar chart of -log10(p) per factor with a line at
// the 0.05 significance threshold. Factors without a p-value are left out.
func GeneratePValueChart(resp epi.AnalysisResponse) string {
	threshold := -math.Log10(alpha)

	var labels []string
	var values []string
	var limits []string
	maxVal := threshold

	for _, r := range resp.Results {
		if len(labels) == maxBars {
			break
		}
		if r.PValue == nil {
			continue
		}
		score := pScore(*r.PValue)
		labels = append(labels, quoteLabel(r.Factor.Name()))
		values = append(values, fmt.Sprintf("%.2f", score))
		limits = append(limits, fmt.Sprintf("%.2f", threshold))
		if score > maxVal {
			maxVal = score
		}
	}
	if len(labels) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Strength of Association (-log10 p)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"-log10(p)\" 0 --> %d\n", int(math.Ceil(maxVal*1.2))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(limits, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// pScore caps p = 0 at 300 so the axis stays finite.
func pScore(p float64) float64 {
	if p <= 0 {
		return 300
	}
	return -math.Log10(p)
}

func quoteLabel(name string) string {
	// Mermaid has no escape for double quotes inside labels.
	return fmt.Sprintf("\"%s\"", strings.ReplaceAll(name, "\"", "'"))
}
