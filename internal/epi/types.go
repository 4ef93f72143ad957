package epi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Layout selects the study design, which fixes the cell semantics and the effect measure.
type Layout string

const (
	CaseControl Layout = "caseControl"
	Cohort      Layout = "cohort"
)

var ErrUnknownLayout = errors.New("unknown study layout")

// ParseLayout accepts the canonical names plus a few common spellings.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "casecontrol", "case-control", "case_control", "cc":
		return CaseControl, nil
	case "cohort":
		return Cohort, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLayout, s)
}

func (l *Layout) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*l = ""
		return nil
	}
	parsed, err := ParseLayout(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Answer is a single yes/no observation that may be missing.
type Answer int8

const (
	Missing Answer = iota
	Yes
	No
)

// ParseAnswer maps "1"/"0" to Yes/No. Everything else is Missing.
func ParseAnswer(s string) Answer {
	switch strings.TrimSpace(s) {
	case "1":
		return Yes
	case "0":
		return No
	}
	return Missing
}

func (a Answer) String() string {
	switch a {
	case Yes:
		return "1"
	case No:
		return "0"
	}
	return ""
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a == Missing {
		return []byte("null"), nil
	}
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts "1", "0", 1, 0, true, false and null.
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null", `""`:
		*a = Missing
	case "1", `"1"`, "true":
		*a = Yes
	case "0", `"0"`, "false":
		*a = No
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid answer %s", data)
		}
		*a = ParseAnswer(s)
	}
	return nil
}

// Subject is one person in the dataset.
type Subject struct {
	Outcome   Answer   `json:"outcome"`
	Exposures []Answer `json:"exposures"`
}

// Exposure returns the subject's answer for a factor, Missing when the column is absent.
func (s Subject) Exposure(idx int) Answer {
	if idx < 0 || idx >= len(s.Exposures) {
		return Missing
	}
	return s.Exposures[idx]
}

// Factor is a candidate exposure (a food, an activity).
type Factor struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Name prefers the display name and falls back to the ID.
func (f Factor) Name() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return f.ID
}

// AnalysisRequest is everything a single run depends on.
type AnalysisRequest struct {
	Layout                 Layout    `json:"layout"`
	Subjects               []Subject `json:"subjects"`
	Factors                []Factor  `json:"factors"`
	YatesCorrectionEnabled bool      `json:"yatesCorrectionEnabled"`
}

// DecodeRequest parses a JSON request. A missing layout defaults to case-control.
func DecodeRequest(data []byte) (AnalysisRequest, error) {
	var req AnalysisRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return AnalysisRequest{}, fmt.Errorf("failed to decode analysis request: %w", err)
	}
	if req.Layout == "" {
		req.Layout = CaseControl
	}
	return req, nil
}

// TestMethod records which significance test produced the p-value.
type TestMethod string

const (
	MethodNone           TestMethod = "none"
	MethodChiSquare      TestMethod = "chiSquare"
	MethodChiSquareYates TestMethod = "chiSquareYates"
	MethodFisherExact    TestMethod = "fisherExact"
)

// AnalysisResult is the per-factor output.
type AnalysisResult struct {
	Factor                Factor     `json:"factor"`
	Table                 Table2x2   `json:"table"`
	TestMethod            TestMethod `json:"testMethod"`
	ChiSquareStatistic    *float64   `json:"chiSquareStatistic"`
	PValue                *float64   `json:"pValue"`
	EffectMeasure         Value      `json:"effectMeasure"`
	CILower               Value      `json:"ciLower"`
	CIUpper               Value      `json:"ciUpper"`
	HasZeroCellCorrection bool       `json:"hasZeroCellCorrection"`

	ExposedAmongCases    *float64 `json:"exposedAmongCases,omitempty"`
	ExposedAmongControls *float64 `json:"exposedAmongControls,omitempty"`
	AttackRateExposed    *float64 `json:"attackRateExposed,omitempty"`
	AttackRateUnexposed  *float64 `json:"attackRateUnexposed,omitempty"`
}

// Summary flags which special-case paths were taken by at least one factor.
type Summary struct {
	FisherUsed  bool `json:"fisherUsed"`
	YatesUsed   bool `json:"yatesUsed"`
	HaldaneUsed bool `json:"haldaneUsed"`
}

// ValidationWarning carries advisory findings for one factor.
type ValidationWarning struct {
	Factor string   `json:"factor"`
	Issues []string `json:"issues"`
}

// AnalysisResponse is the complete output of one run.
type AnalysisResponse struct {
	Layout   Layout              `json:"layout"`
	Results  []AnalysisResult    `json:"results"`
	Summary  Summary             `json:"summary"`
	Warnings []ValidationWarning `json:"warnings,omitempty"`
}
