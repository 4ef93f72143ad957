package epi

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// minExpected is the smallest expected cell count for which chi-square is trusted.
	minExpected = 5.0
	// fisherTieTolerance admits tables whose probability equals the observed one up to rounding.
	fisherTieTolerance = 1e-9
)

// Significance is the outcome of the test selection for one table.
type Significance struct {
	Method    TestMethod
	Statistic *float64
	PValue    *float64
}

// ExpectedCounts returns the expected frequencies of A, B, C, D under independence.
// ok is false when the grand total is zero.
func ExpectedCounts(t Table2x2) (expected [4]float64, ok bool) {
	n := float64(t.GrandTotal())
	if n == 0 {
		return expected, false
	}
	r1, r2 := float64(t.ExposedTotal()), float64(t.UnexposedTotal())
	c1, c2 := float64(t.OutcomeTotal()), float64(t.NonOutcomeTotal())
	expected = [4]float64{r1 * c1 / n, r1 * c2 / n, r2 * c1 / n, r2 * c2 / n}
	return expected, true
}

// TestSignificance picks Fisher's exact test when any expected count is below five and
// chi-square otherwise. Tables without usable marginals get MethodNone.
func TestSignificance(t Table2x2, yates bool) Significance {
	inapplicable := Significance{Method: MethodNone}

	expected, ok := ExpectedCounts(t)
	if !ok || t.HasEmptyMargin() {
		return inapplicable
	}

	small := false
	for _, e := range expected {
		if e == 0 {
			return inapplicable
		}
		if e < minExpected {
			small = true
		}
	}

	if small {
		p := FisherExact(t)
		return Significance{Method: MethodFisherExact, PValue: &p}
	}

	stat := ChiSquareStatistic(t, expected, yates)
	if math.IsNaN(stat) || math.IsInf(stat, 0) || stat < 0 {
		return inapplicable
	}
	p := distuv.ChiSquared{K: 1}.Survival(stat)
	p = clampProbability(p)

	method := MethodChiSquare
	if yates {
		method = MethodChiSquareYates
	}
	return Significance{Method: method, Statistic: &stat, PValue: &p}
}

// ChiSquareStatistic sums (o-e)^2/e over the four cells, optionally Yates-corrected.
func ChiSquareStatistic(t Table2x2, expected [4]float64, yates bool) float64 {
	observed := t.Cells()
	var stat float64
	for i := range observed {
		diff := math.Abs(observed[i] - expected[i])
		if yates {
			diff = math.Max(0, diff-0.5)
		}
		stat += diff * diff / expected[i]
	}
	return stat
}

// FisherExact returns the two-sided p-value: the total probability of every table with the
// observed marginals that is no more likely than the observed table. Probabilities are
// accumulated from log-binomials so large tables do not overflow.
func FisherExact(t Table2x2) float64 {
	r1, r2 := t.ExposedTotal(), t.UnexposedTotal()
	c1 := t.OutcomeTotal()
	n := t.GrandTotal()
	if n == 0 {
		return 1
	}

	logDenom := combin.LogGeneralizedBinomial(float64(n), float64(c1))
	logProb := func(a int) float64 {
		return combin.LogGeneralizedBinomial(float64(r1), float64(a)) +
			combin.LogGeneralizedBinomial(float64(r2), float64(c1-a)) -
			logDenom
	}

	logObserved := logProb(t.A)
	threshold := math.Log1p(fisherTieTolerance)

	lo := max(0, c1-r2)
	hi := min(r1, c1)

	var p float64
	for a := lo; a <= hi; a++ {
		lp := logProb(a)
		if lp-logObserved <= threshold {
			p += math.Exp(lp)
		}
	}
	return clampProbability(p)
}

func clampProbability(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return p
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
