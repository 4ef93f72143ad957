package epi

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// subjectsForTable expands a case-control table into subject rows for a single factor.
func subjectsForTable(exposedCase, unexposedCase, exposedControl, unexposedControl int) []Subject {
	var subjects []Subject
	add := func(n int, outcome, exposure Answer) {
		for i := 0; i < n; i++ {
			subjects = append(subjects, Subject{Outcome: outcome, Exposures: []Answer{exposure}})
		}
	}
	add(exposedCase, Yes, Yes)
	add(unexposedCase, Yes, No)
	add(exposedControl, No, Yes)
	add(unexposedControl, No, No)
	return subjects
}

// mergeFactors lays several single-factor subject lists side by side. All lists must be the
// same length.
func mergeFactors(columns ...[]Subject) []Subject {
	out := make([]Subject, len(columns[0]))
	for i := range out {
		out[i].Outcome = columns[0][i].Outcome
		for _, col := range columns {
			out[i].Exposures = append(out[i].Exposures, col[i].Exposures[0])
		}
	}
	return out
}

func TestBuildTable(t *testing.T) {
	subjects := []Subject{
		{Outcome: Yes, Exposures: []Answer{Yes, No}},
		{Outcome: Yes, Exposures: []Answer{No, Missing}},
		{Outcome: No, Exposures: []Answer{Yes, Yes}},
		{Outcome: No, Exposures: []Answer{No}},
		{Outcome: Missing, Exposures: []Answer{Yes, Yes}},
		{Outcome: Yes, Exposures: []Answer{Missing, Yes}},
	}

	first := BuildTable(subjects, 0, CaseControl)
	if first.ExposedCase() != 1 || first.UnexposedCase() != 1 || first.ExposedControl() != 1 || first.UnexposedControl() != 1 {
		t.Errorf("unexpected table for factor 0: %+v", first)
	}
	if first.GrandTotal() != 4 {
		t.Errorf("GrandTotal = %d, want 4", first.GrandTotal())
	}

	// Subject 2 is missing factor 1 and subject 4 has no column for it.
	second := BuildTable(subjects, 1, CaseControl)
	if second.GrandTotal() != 3 {
		t.Errorf("GrandTotal = %d, want 3", second.GrandTotal())
	}
	if second.ExposedCase() != 1 || second.UnexposedCase() != 1 || second.ExposedControl() != 1 {
		t.Errorf("unexpected table for factor 1: %+v", second)
	}

	none := BuildTable(subjects, 7, CaseControl)
	if none.GrandTotal() != 0 {
		t.Errorf("expected empty table for absent factor, got %+v", none)
	}
}

func TestBuildTable_TotalsInvariant(t *testing.T) {
	subjects := mergeFactors(
		subjectsForTable(10, 10, 5, 15),
		subjectsForTable(3, 17, 15, 5),
	)
	for idx := 0; idx < 2; idx++ {
		for _, layout := range []Layout{CaseControl, Cohort} {
			table := BuildTable(subjects, idx, layout)
			assert.Equal(t, table.GrandTotal(), table.ExposedTotal()+table.UnexposedTotal())
			assert.Equal(t, table.GrandTotal(), table.OutcomeTotal()+table.NonOutcomeTotal())
			assert.Equal(t, 40, table.GrandTotal())
		}
	}
}

func TestAnalyze_ModerateAssociation(t *testing.T) {
	req := AnalysisRequest{
		Layout:   CaseControl,
		Subjects: subjectsForTable(10, 10, 5, 15),
		Factors:  []Factor{{ID: "potato_salad", DisplayName: "Potato salad"}},
	}

	resp := NewEngine(Options{}).Analyze(req)
	require.Len(t, resp.Results, 1)

	r := resp.Results[0]
	assert.Equal(t, MethodChiSquare, r.TestMethod)
	assert.Equal(t, "3.000", r.EffectMeasure.String())
	require.NotNil(t, r.ChiSquareStatistic)
	assert.InDelta(t, 2.667, *r.ChiSquareStatistic, 1e-3)
	assert.False(t, resp.Summary.YatesUsed)
	assert.False(t, resp.Summary.FisherUsed)
	assert.False(t, resp.Summary.HaldaneUsed)
	assert.Empty(t, resp.Warnings)

	require.NotNil(t, r.ExposedAmongCases)
	require.NotNil(t, r.ExposedAmongControls)
	assert.InDelta(t, 0.5, *r.ExposedAmongCases, 1e-12)
	assert.InDelta(t, 0.25, *r.ExposedAmongControls, 1e-12)
	assert.Nil(t, r.AttackRateExposed)

	req.YatesCorrectionEnabled = true
	resp = NewEngine(Options{}).Analyze(req)
	assert.Equal(t, MethodChiSquareYates, resp.Results[0].TestMethod)
	assert.InDelta(t, 1.707, *resp.Results[0].ChiSquareStatistic, 1e-3)
	assert.True(t, resp.Summary.YatesUsed)
}

func TestAnalyze_SummaryFlags(t *testing.T) {
	req := AnalysisRequest{
		Layout: CaseControl,
		Subjects: mergeFactors(
			subjectsForTable(10, 10, 5, 15),
			subjectsForTable(0, 20, 5, 15),
		),
		Factors: []Factor{{ID: "a"}, {ID: "b"}},
	}

	resp := NewEngine(Options{Workers: 4}).Analyze(req)
	require.Len(t, resp.Results, 2)
	assert.True(t, resp.Summary.HaldaneUsed)
	assert.True(t, resp.Summary.FisherUsed)
	assert.True(t, resp.Results[1].HasZeroCellCorrection)
	assert.Equal(t, MethodFisherExact, resp.Results[1].TestMethod)
}

func TestAnalyze_PlaceholderFactors(t *testing.T) {
	req := AnalysisRequest{
		Layout:   Cohort,
		Subjects: subjectsForTable(4, 4, 4, 4),
	}

	resp := NewEngine(Options{}).Analyze(req)
	require.Len(t, resp.Results, DefaultPlaceholderFactors)
	assert.Equal(t, "Factor 1", resp.Results[0].Factor.DisplayName)
	assert.Equal(t, "Factor 10", resp.Results[9].Factor.DisplayName)

	// Columns with no data yield an inapplicable test rather than a failure.
	assert.Equal(t, MethodNone, resp.Results[9].TestMethod)
	assert.Equal(t, NotApplicable, resp.Results[9].EffectMeasure.String())

	resp = NewEngine(Options{PlaceholderFactors: 3}).Analyze(req)
	assert.Len(t, resp.Results, 3)

	empty := NewEngine(Options{}).Analyze(AnalysisRequest{Layout: Cohort})
	assert.Empty(t, empty.Results)
}

func TestAnalyze_OrderPreservedAndPermutable(t *testing.T) {
	columns := [][]Subject{
		subjectsForTable(10, 10, 5, 15),
		subjectsForTable(0, 20, 5, 15),
		subjectsForTable(12, 8, 9, 11),
		subjectsForTable(20, 0, 20, 0),
	}
	factors := []Factor{{ID: "f0"}, {ID: "f1"}, {ID: "f2"}, {ID: "f3"}}

	engine := NewEngine(Options{Workers: 8})
	resp := engine.Analyze(AnalysisRequest{Layout: CaseControl, Subjects: mergeFactors(columns...), Factors: factors})
	require.Len(t, resp.Results, 4)
	for i, r := range resp.Results {
		assert.Equal(t, factors[i].ID, r.Factor.ID)
	}

	perm := []int{2, 0, 3, 1}
	var permCols [][]Subject
	var permFactors []Factor
	for _, p := range perm {
		permCols = append(permCols, columns[p])
		permFactors = append(permFactors, factors[p])
	}
	permuted := engine.Analyze(AnalysisRequest{Layout: CaseControl, Subjects: mergeFactors(permCols...), Factors: permFactors})

	for i, p := range perm {
		want, _ := json.Marshal(resp.Results[p])
		got, _ := json.Marshal(permuted.Results[i])
		assert.JSONEq(t, string(want), string(got))
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	req := AnalysisRequest{
		Layout: Cohort,
		Subjects: mergeFactors(
			subjectsForTable(30, 10, 70, 90),
			subjectsForTable(2, 38, 1, 159),
			subjectsForTable(40, 0, 160, 0),
		),
		Factors:                []Factor{{ID: "x"}, {ID: "y"}, {ID: "z"}},
		YatesCorrectionEnabled: true,
	}

	first, err := json.Marshal(NewEngine(Options{Workers: 3}).Analyze(req))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(NewEngine(Options{Workers: i}).Analyze(req))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again), "run %d", i)
	}
}

func TestAnalyze_ResultInvariants(t *testing.T) {
	var columns [][]Subject
	var factors []Factor
	for i := 0; i < 12; i++ {
		columns = append(columns, subjectsForTable(i, 12-i, 12-i/2, i/2))
		factors = append(factors, Factor{ID: fmt.Sprintf("f%d", i)})
	}
	resp := NewEngine(Options{Workers: 4}).Analyze(AnalysisRequest{
		Layout:   CaseControl,
		Subjects: mergeFactors(columns...),
		Factors:  factors,
	})

	for _, r := range resp.Results {
		if r.PValue != nil {
			assert.GreaterOrEqual(t, *r.PValue, 0.0)
			assert.LessOrEqual(t, *r.PValue, 1.0)
		}
		if r.TestMethod == MethodFisherExact {
			assert.Nil(t, r.ChiSquareStatistic)
		}
		lo, okLo := r.CILower.Float()
		hi, okHi := r.CIUpper.Float()
		if okLo && okHi {
			assert.LessOrEqual(t, lo, hi)
		}
		assert.Empty(t, Validate(r))
	}
}

func TestRankByPValue(t *testing.T) {
	p := func(v float64) *float64 { return &v }
	results := []AnalysisResult{
		{Factor: Factor{ID: "none"}},
		{Factor: Factor{ID: "weak"}, PValue: p(0.4)},
		{Factor: Factor{ID: "strong"}, PValue: p(0.001)},
		{Factor: Factor{ID: "also-none"}},
		{Factor: Factor{ID: "tied"}, PValue: p(0.4)},
	}

	ranked := RankByPValue(results)
	var ids []string
	for _, r := range ranked {
		ids = append(ids, r.Factor.ID)
	}
	assert.Equal(t, []string{"strong", "weak", "tied", "none", "also-none"}, ids)
	assert.Equal(t, "none", results[0].Factor.ID, "input must not be reordered")
}

func TestValidate_FlagsAnomalies(t *testing.T) {
	bad := 1.5
	r := AnalysisResult{
		Factor:        Factor{ID: "x"},
		PValue:        &bad,
		EffectMeasure: Number(-2),
		CILower:       Number(4),
		CIUpper:       Number(1),
	}

	issues := Validate(r)
	assert.Len(t, issues, 3)
}
