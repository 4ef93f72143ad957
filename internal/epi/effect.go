package epi

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

// z975 is the 97.5th percentile of the standard normal distribution.
const z975 = 1.959964

// haldaneIncrement is added to every cell when any observed cell is zero.
const haldaneIncrement = 0.5

// Effect is the effect measure and its 95% confidence interval.
type Effect struct {
	Measure               Value
	Lower                 Value
	Upper                 Value
	HasZeroCellCorrection bool
}

// EstimateEffect computes the odds ratio (case-control) or relative risk (cohort) and its
// log-scale confidence interval. It never panics: a failure mid-computation is reported as
// "Error" in all three values.
func EstimateEffect(t Table2x2) (eff Effect) {
	eff.HasZeroCellCorrection = t.HasZeroCell()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Effect estimation failed")
			eff.Measure = Sentinel(Failed)
			eff.Lower = Sentinel(Failed)
			eff.Upper = Sentinel(Failed)
		}
	}()

	na := Effect{
		Measure:               Sentinel(NotApplicable),
		Lower:                 Sentinel(NotApplicable),
		Upper:                 Sentinel(NotApplicable),
		HasZeroCellCorrection: eff.HasZeroCellCorrection,
	}

	// Without both exposure groups and both outcome groups there is nothing to compare.
	if t.HasEmptyMargin() {
		return na
	}

	cells := t.Cells()
	if eff.HasZeroCellCorrection {
		for i := range cells {
			cells[i] += haldaneIncrement
		}
	}
	a, b, c, d := cells[0], cells[1], cells[2], cells[3]

	var num, den float64
	switch t.Layout {
	case Cohort:
		num = a / (a + b)
		den = c / (c + d)
	case CaseControl:
		num = a * d
		den = b * c
	default:
		panic(fmt.Sprintf("unsupported layout %q", t.Layout))
	}

	measure := num / den
	switch {
	case den == 0 && num > 0:
		eff.Measure = Sentinel(Infinite)
	case measure == 0:
		eff.Measure = Sentinel(ExactZero)
	case !math.IsNaN(measure) && !math.IsInf(measure, 0) && measure > 0:
		eff.Measure = Number(measure)
	default:
		eff.Measure = Sentinel(NotApplicable)
	}

	if !eff.Measure.IsNumeric() {
		eff.Lower = Sentinel(NotApplicable)
		eff.Upper = Sentinel(NotApplicable)
		return eff
	}

	se := math.Sqrt(1/a + 1/b + 1/c + 1/d)
	if math.IsNaN(se) || math.IsInf(se, 0) {
		eff.Lower = Sentinel(NotApplicable)
		eff.Upper = Sentinel(NotApplicable)
		return eff
	}

	logMeasure := math.Log(measure)
	eff.Lower = boundValue(math.Exp(logMeasure - z975*se))
	eff.Upper = boundValue(math.Exp(logMeasure + z975*se))
	return eff
}

func boundValue(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Sentinel(NotApplicable)
	}
	return Number(v)
}
