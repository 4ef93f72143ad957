package epi

import "encoding/json"

// Table2x2 holds the four cell counts in one canonical order regardless of layout:
//
//	            outcome   no outcome
//	exposed        A          B
//	unexposed      C          D
//
// "Outcome" means case (case-control) or diseased (cohort).
type Table2x2 struct {
	Layout Layout
	A      int
	B      int
	C      int
	D      int
}

// BuildTable classifies subjects for one factor. Subjects missing either the outcome or
// this factor's exposure contribute to no cell.
func BuildTable(subjects []Subject, factorIdx int, layout Layout) Table2x2 {
	t := Table2x2{Layout: layout}
	for _, s := range subjects {
		exp := s.Exposure(factorIdx)
		if s.Outcome == Missing || exp == Missing {
			continue
		}
		switch {
		case exp == Yes && s.Outcome == Yes:
			t.A++
		case exp == Yes && s.Outcome == No:
			t.B++
		case exp == No && s.Outcome == Yes:
			t.C++
		default:
			t.D++
		}
	}
	return t
}

// NewCaseControlTable builds a table from case-control cell names.
func NewCaseControlTable(exposedCase, unexposedCase, exposedControl, unexposedControl int) Table2x2 {
	return Table2x2{Layout: CaseControl, A: exposedCase, B: exposedControl, C: unexposedCase, D: unexposedControl}
}

// NewCohortTable builds a table from cohort cell names.
func NewCohortTable(exposedDiseased, exposedHealthy, unexposedDiseased, unexposedHealthy int) Table2x2 {
	return Table2x2{Layout: Cohort, A: exposedDiseased, B: exposedHealthy, C: unexposedDiseased, D: unexposedHealthy}
}

func (t Table2x2) ExposedCase() int      { return t.A }
func (t Table2x2) UnexposedCase() int    { return t.C }
func (t Table2x2) ExposedControl() int   { return t.B }
func (t Table2x2) UnexposedControl() int { return t.D }

func (t Table2x2) ExposedDiseased() int   { return t.A }
func (t Table2x2) ExposedHealthy() int    { return t.B }
func (t Table2x2) UnexposedDiseased() int { return t.C }
func (t Table2x2) UnexposedHealthy() int  { return t.D }

func (t Table2x2) ExposedTotal() int    { return t.A + t.B }
func (t Table2x2) UnexposedTotal() int  { return t.C + t.D }
func (t Table2x2) OutcomeTotal() int    { return t.A + t.C }
func (t Table2x2) NonOutcomeTotal() int { return t.B + t.D }
func (t Table2x2) GrandTotal() int      { return t.A + t.B + t.C + t.D }

// Cells returns A, B, C, D as floats.
func (t Table2x2) Cells() [4]float64 {
	return [4]float64{float64(t.A), float64(t.B), float64(t.C), float64(t.D)}
}

// HasZeroCell reports whether any observed cell is exactly zero.
func (t Table2x2) HasZeroCell() bool {
	return t.A == 0 || t.B == 0 || t.C == 0 || t.D == 0
}

// HasEmptyMargin reports whether a whole row or column is empty.
func (t Table2x2) HasEmptyMargin() bool {
	return t.ExposedTotal() == 0 || t.UnexposedTotal() == 0 || t.OutcomeTotal() == 0 || t.NonOutcomeTotal() == 0
}

type caseControlJSON struct {
	ExposedCase      int `json:"exposedCase"`
	UnexposedCase    int `json:"unexposedCase"`
	ExposedControl   int `json:"exposedControl"`
	UnexposedControl int `json:"unexposedControl"`
	ExposedTotal     int `json:"exposedTotal"`
	UnexposedTotal   int `json:"unexposedTotal"`
	CaseTotal        int `json:"caseTotal"`
	ControlTotal     int `json:"controlTotal"`
	GrandTotal       int `json:"grandTotal"`
}

type cohortJSON struct {
	ExposedDiseased   int `json:"exposedDiseased"`
	ExposedHealthy    int `json:"exposedHealthy"`
	UnexposedDiseased int `json:"unexposedDiseased"`
	UnexposedHealthy  int `json:"unexposedHealthy"`
	ExposedTotal      int `json:"exposedTotal"`
	UnexposedTotal    int `json:"unexposedTotal"`
	DiseasedTotal     int `json:"diseasedTotal"`
	HealthyTotal      int `json:"healthyTotal"`
	GrandTotal        int `json:"grandTotal"`
}

// MarshalJSON names cells after the table's layout.
func (t Table2x2) MarshalJSON() ([]byte, error) {
	if t.Layout == Cohort {
		return json.Marshal(cohortJSON{
			ExposedDiseased:   t.A,
			ExposedHealthy:    t.B,
			UnexposedDiseased: t.C,
			UnexposedHealthy:  t.D,
			ExposedTotal:      t.ExposedTotal(),
			UnexposedTotal:    t.UnexposedTotal(),
			DiseasedTotal:     t.OutcomeTotal(),
			HealthyTotal:      t.NonOutcomeTotal(),
			GrandTotal:        t.GrandTotal(),
		})
	}
	return json.Marshal(caseControlJSON{
		ExposedCase:      t.A,
		UnexposedCase:    t.C,
		ExposedControl:   t.B,
		UnexposedControl: t.D,
		ExposedTotal:     t.ExposedTotal(),
		UnexposedTotal:   t.UnexposedTotal(),
		CaseTotal:        t.OutcomeTotal(),
		ControlTotal:     t.NonOutcomeTotal(),
		GrandTotal:       t.GrandTotal(),
	})
}
