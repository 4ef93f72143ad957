package epi

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultPlaceholderFactors is how many factors are invented when a dataset arrives
// without factor definitions.
const DefaultPlaceholderFactors = 10

// Options tune the orchestrator. The zero value is usable.
type Options struct {
	// PlaceholderFactors is the number of "Factor N" definitions synthesized when the
	// request has subjects but no factors.
	PlaceholderFactors int
	// Workers bounds how many factors are evaluated concurrently. Values below 1 mean
	// sequential evaluation.
	Workers int
}

// Engine runs the univariate screening pipeline. It holds no state between runs.
type Engine struct {
	opts Options
}

// NewEngine creates an engine with the given options.
func NewEngine(opts Options) *Engine {
	if opts.PlaceholderFactors <= 0 {
		opts.PlaceholderFactors = DefaultPlaceholderFactors
	}
	return &Engine{opts: opts}
}

// Analyze builds one table per factor, tests and estimates each independently and returns
// the results in factor order. It never fails: per-factor problems are encoded in the
// result values.
func (e *Engine) Analyze(req AnalysisRequest) AnalysisResponse {
	layout := req.Layout
	if layout == "" {
		layout = CaseControl
	}

	factors := req.Factors
	if len(factors) == 0 && len(req.Subjects) > 0 {
		factors = PlaceholderFactors(e.opts.PlaceholderFactors)
		log.Warn().
			Int("count", len(factors)).
			Int("subjects", len(req.Subjects)).
			Msg("No factor definitions supplied, synthesized placeholder factors")
	}

	results := make([]AnalysisResult, len(factors))

	var g errgroup.Group
	if e.opts.Workers > 0 {
		g.SetLimit(e.opts.Workers)
	} else {
		g.SetLimit(1)
	}
	for i, f := range factors {
		g.Go(func() error {
			results[i] = analyzeFactor(req.Subjects, i, f, layout, req.YatesCorrectionEnabled)
			return nil
		})
	}
	_ = g.Wait()

	resp := AnalysisResponse{
		Layout:  layout,
		Results: results,
		Summary: Summarize(results),
	}

	for _, r := range results {
		if issues := Validate(r); len(issues) > 0 {
			log.Warn().Str("factor", r.Factor.Name()).Strs("issues", issues).Msg("Result failed validation")
			resp.Warnings = append(resp.Warnings, ValidationWarning{Factor: r.Factor.Name(), Issues: issues})
		}
	}

	log.Debug().
		Str("layout", string(layout)).
		Int("subjects", len(req.Subjects)).
		Int("factors", len(factors)).
		Bool("yates", req.YatesCorrectionEnabled).
		Bool("fisherUsed", resp.Summary.FisherUsed).
		Bool("haldaneUsed", resp.Summary.HaldaneUsed).
		Msg("Association analysis complete")

	return resp
}

// AnalyzeTable runs the test and the estimator on a prepared table.
func AnalyzeTable(f Factor, t Table2x2, yates bool) AnalysisResult {
	sig := TestSignificance(t, yates)
	eff := EstimateEffect(t)

	res := AnalysisResult{
		Factor:                f,
		Table:                 t,
		TestMethod:            sig.Method,
		ChiSquareStatistic:    sig.Statistic,
		PValue:                sig.PValue,
		EffectMeasure:         eff.Measure,
		CILower:               eff.Lower,
		CIUpper:               eff.Upper,
		HasZeroCellCorrection: eff.HasZeroCellCorrection,
	}
	if t.Layout == Cohort {
		res.AttackRateExposed = ratio(t.A, t.ExposedTotal())
		res.AttackRateUnexposed = ratio(t.C, t.UnexposedTotal())
	} else {
		res.ExposedAmongCases = ratio(t.A, t.OutcomeTotal())
		res.ExposedAmongControls = ratio(t.B, t.NonOutcomeTotal())
	}
	return res
}

func analyzeFactor(subjects []Subject, idx int, f Factor, layout Layout, yates bool) AnalysisResult {
	return AnalyzeTable(f, BuildTable(subjects, idx, layout), yates)
}

func ratio(num, den int) *float64 {
	if den == 0 {
		return nil
	}
	v := float64(num) / float64(den)
	return &v
}

// PlaceholderFactors returns n factors named "Factor 1" … "Factor n".
func PlaceholderFactors(n int) []Factor {
	factors := make([]Factor, n)
	for i := range factors {
		factors[i] = Factor{
			ID:          fmt.Sprintf("factor_%d", i+1),
			DisplayName: fmt.Sprintf("Factor %d", i+1),
		}
	}
	return factors
}

// Summarize reports whether any result used Fisher's test, Yates' correction or the
// Haldane-Anscombe correction.
func Summarize(results []AnalysisResult) Summary {
	var s Summary
	for _, r := range results {
		switch r.TestMethod {
		case MethodFisherExact:
			s.FisherUsed = true
		case MethodChiSquareYates:
			s.YatesUsed = true
		}
		if r.HasZeroCellCorrection {
			s.HaldaneUsed = true
		}
	}
	return s
}

// RankByPValue returns a copy of results ordered by ascending p-value. Results without a
// p-value sort last; ties keep their input order.
func RankByPValue(results []AnalysisResult) []AnalysisResult {
	ranked := make([]AnalysisResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := ranked[i].PValue, ranked[j].PValue
		if pi == nil {
			return false
		}
		if pj == nil {
			return true
		}
		return *pi < *pj
	})
	return ranked
}
