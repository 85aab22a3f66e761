// Package assessment implements the clinical assessment submission flow:
// the five-step form, parsing of the clinical indicators, the call to the
// prediction service and the mapping of its response to a displayable result.
package assessment

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// StepCount is the number of form steps, one per clinical indicator.
const StepCount = 5

// StepData holds the raw text typed into each step of the form.
type StepData struct {
	Step1 string `json:"step1"`
	Step2 string `json:"step2"`
	Step3 string `json:"step3"`
	Step4 string `json:"step4"`
	Step5 string `json:"step5"`
}

// ClinicalInput is the payload sent to the prediction service.
type ClinicalInput struct {
	FunctionalAssessment float64 `json:"FunctionalAssessment"`
	ADL                  float64 `json:"ADL"`
	MemoryComplaints     float64 `json:"MemoryComplaints"`
	MMSE                 float64 `json:"MMSE"`
	BehavioralProblems   float64 `json:"BehavioralProblems"`
}

// FieldNames lists the clinical indicators in step order.
var FieldNames = [StepCount]string{
	"FunctionalAssessment",
	"ADL",
	"MemoryComplaints",
	"MMSE",
	"BehavioralProblems",
}

// ParseField converts free text to a number. Decimal and exponent forms are
// accepted, as are unsigned 0x, 0o and 0b integers. Blank, unparseable and
// non-finite values yield 0.
func ParseField(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	v, prefixed := parsePrefixedInt(s)
	if !prefixed {
		var err error
		if v, err = strconv.ParseFloat(s, 64); err != nil {
			return 0
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// parsePrefixedInt handles 0x/0o/0b literals. prefixed is false when s has
// none of those prefixes; malformed digits after a prefix give 0.
func parsePrefixedInt(s string) (v float64, prefixed bool) {
	if len(s) < 2 || s[0] != '0' {
		return 0, false
	}
	var base int
	switch s[1] {
	case 'x', 'X':
		base = 16
	case 'o', 'O':
		base = 8
	case 'b', 'B':
		base = 2
	default:
		return 0, false
	}

	digits := s[2:]
	if digits == "" || digits[0] == '+' || digits[0] == '-' {
		return 0, true
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return 0, true
	}
	v, _ = new(big.Float).SetInt(n).Float64()
	return v, true
}

// Get returns the raw value of step n (1-based). Out of range steps are blank.
func (d StepData) Get(n int) string {
	switch n {
	case 1:
		return d.Step1
	case 2:
		return d.Step2
	case 3:
		return d.Step3
	case 4:
		return d.Step4
	case 5:
		return d.Step5
	}
	return ""
}

// Set stores the raw value of step n (1-based). Out of range steps are ignored.
func (d *StepData) Set(n int, value string) {
	switch n {
	case 1:
		d.Step1 = value
	case 2:
		d.Step2 = value
	case 3:
		d.Step3 = value
	case 4:
		d.Step4 = value
	case 5:
		d.Step5 = value
	}
}

// AllBlank reports whether every step is empty or whitespace.
func (d StepData) AllBlank() bool {
	for n := 1; n <= StepCount; n++ {
		if strings.TrimSpace(d.Get(n)) != "" {
			return false
		}
	}
	return true
}

func (d StepData) Input() ClinicalInput {
	return ClinicalInput{
		FunctionalAssessment: ParseField(d.Step1),
		ADL:                  ParseField(d.Step2),
		MemoryComplaints:     ParseField(d.Step3),
		MMSE:                 ParseField(d.Step4),
		BehavioralProblems:   ParseField(d.Step5),
	}
}
