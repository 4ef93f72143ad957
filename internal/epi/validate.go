package epi

import (
	"fmt"
	"math"
)

// Validate returns advisory issues found in a completed result. It never modifies the result.
func Validate(r AnalysisResult) []string {
	var issues []string

	if r.PValue != nil && (*r.PValue < 0 || *r.PValue > 1 || math.IsNaN(*r.PValue)) {
		issues = append(issues, fmt.Sprintf("p-value %v outside [0,1]", *r.PValue))
	}

	if m, ok := r.EffectMeasure.Float(); ok && m < 0 {
		issues = append(issues, fmt.Sprintf("effect measure %s is negative", r.EffectMeasure))
	}

	lo, okLo := r.CILower.Float()
	hi, okHi := r.CIUpper.Float()
	if okLo && okHi && lo > hi {
		issues = append(issues, fmt.Sprintf("confidence interval inverted: lower %s > upper %s", r.CILower, r.CIUpper))
	}

	if r.TestMethod == MethodFisherExact && r.ChiSquareStatistic != nil {
		issues = append(issues, "chi-square statistic reported for Fisher's exact test")
	}

	return issues
}
