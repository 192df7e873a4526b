package formkit

import (
	"testing"
	"time"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestSumFormula(t *testing.T) {
	tests := []struct {
		name    string
		parents []any
		want    float64
	}{
		{"numeric strings with junk", []any{"2", "3.5", "abc"}, 5.5},
		{"numbers", []any{float64(1), float64(2)}, 3},
		{"missing and empty", []any{nil, ""}, 0},
		{"padded string", []any{" 4 "}, 4},
		{"negative", []any{"-1.5", "1"}, -0.5},
		{"no parents", nil, 0},
		{"booleans are not numbers", []any{true}, 0},
		{"inf is not a number", []any{"inf", "2"}, 2},
		{"Infinity is not a number", []any{"Infinity", "-Infinity", "+Inf"}, 0},
		{"NaN is not a number", []any{"NaN", "1"}, 1},
		{"overflow collapses to zero", []any{"1e308", "1e308"}, 0},
		{"negative overflow collapses to zero", []any{"-1e308", float64(-1e308)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateAt(FormulaSum, tt.parents, fixedNow)
			if got != tt.want {
				t.Errorf("sum(%v) = %v, want %v", tt.parents, got, tt.want)
			}
		})
	}
}

func TestConcatenateFormula(t *testing.T) {
	tests := []struct {
		name    string
		parents []any
		want    string
	}{
		{"inner spacing preserved", []any{"Jane", "", "Doe"}, "Jane  Doe"},
		{"outer spacing trimmed", []any{"", "Jane", ""}, "Jane"},
		{"missing as empty", []any{nil, "Doe"}, "Doe"},
		{"numbers rendered", []any{"Room", float64(12.5)}, "Room 12.5"},
		{"lists comma joined", []any{[]string{"a", "b"}}, "a,b"},
		{"no parents", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateAt(FormulaConcatenate, tt.parents, fixedNow)
			if got != tt.want {
				t.Errorf("concatenate(%v) = %q, want %q", tt.parents, got, tt.want)
			}
		})
	}
}

func TestAgeFromDobFormula(t *testing.T) {
	tests := []struct {
		name    string
		parents []any
		want    any
	}{
		{"empty", []any{""}, ""},
		{"missing", []any{nil}, ""},
		{"not a date", []any{"not-a-date"}, ""},
		{"whole years", []any{"2000-01-01"}, 25},
		{"birthday later this year", []any{"2000-06-02"}, 24},
		{"birthday today", []any{"2000-06-01"}, 25},
		{"datetime input", []any{"2000-01-01T08:30:00"}, 25},
		{"rfc3339 input", []any{"2000-01-01T08:30:00Z"}, 25},
		{"born this year", []any{"2025-01-01"}, 0},
		{"future date", []any{"2030-01-01"}, ""},
		{"too many parents", []any{"2000-01-01", "2001-01-01"}, ""},
		{"no parents", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateAt(FormulaAgeFromDob, tt.parents, fixedNow)
			if got != tt.want {
				t.Errorf("ageFromDob(%v) = %#v, want %#v", tt.parents, got, tt.want)
			}
		})
	}
}

func TestUnknownFormula(t *testing.T) {
	for _, f := range []Formula{"", "product", "SUM"} {
		if got := EvaluateAt(f, []any{"1"}, fixedNow); got != InvalidFormula {
			t.Errorf("EvaluateAt(%q) = %v, want %q", f, got, InvalidFormula)
		}
		if f.Valid() {
			t.Errorf("Formula(%q).Valid() = true", f)
		}
	}
	for _, f := range Formulas {
		if !f.Valid() {
			t.Errorf("Formula(%q).Valid() = false", f)
		}
	}
}

func TestEvaluateUsesWallClock(t *testing.T) {
	dob := time.Now().AddDate(-30, 0, -1).Format("2006-01-02")
	if got := Evaluate(FormulaAgeFromDob, []any{dob}); got != 30 {
		t.Errorf("Evaluate(ageFromDob, %s) = %v, want 30", dob, got)
	}
}
