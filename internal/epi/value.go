package epi

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Sentinels used in place of a number when an effect measure or bound cannot be expressed.
const (
	NotApplicable = "N/A"
	Infinite      = "Inf"
	ExactZero     = "0.000"
	Failed        = "Error"
)

// Value is either a number rounded to three decimals or one of the sentinel strings.
// Consumers must not assume every Value is numeric.
type Value struct {
	num      float64
	sentinel string
}

// Number rounds v to three decimals.
func Number(v float64) Value {
	return Value{num: math.Round(v*1000) / 1000}
}

// Sentinel builds a non-numeric Value.
func Sentinel(s string) Value {
	return Value{sentinel: s}
}

// Float returns the numeric value and whether the Value is numeric.
func (v Value) Float() (float64, bool) {
	if v.sentinel != "" {
		return 0, false
	}
	return v.num, true
}

func (v Value) IsNumeric() bool {
	return v.sentinel == ""
}

func (v Value) String() string {
	if v.sentinel != "" {
		return v.sentinel
	}
	return strconv.FormatFloat(v.num, 'f', 3, 64)
}

// MarshalJSON writes numbers with exactly three decimals and sentinels as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.sentinel != "" {
		return json.Marshal(v.sentinel)
	}
	return []byte(v.String()), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = Number(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid value %s", data)
	}
	switch s {
	case NotApplicable, Infinite, ExactZero, Failed:
		*v = Sentinel(s)
	default:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid value %q", s)
		}
		*v = Number(f)
	}
	return nil
}
