package formkit

import (
	"strings"
	"time"
)

// Formula identifies one of the fixed derivations a field can use.
type Formula string

const (
	FormulaAgeFromDob  Formula = "ageFromDob"
	FormulaConcatenate Formula = "concatenate"
	FormulaSum         Formula = "sum"
)

// InvalidFormula is the value a derived field shows when its formula is unknown.
const InvalidFormula = "Invalid Formula"

// Formulas lists the supported formulas in display order.
var Formulas = []Formula{FormulaAgeFromDob, FormulaConcatenate, FormulaSum}

// Valid reports whether f is a supported formula.
func (f Formula) Valid() bool {
	switch f {
	case FormulaAgeFromDob, FormulaConcatenate, FormulaSum:
		return true
	default:
		return false
	}
}

// Evaluate computes a formula over the ordered parent values using the wall
// clock for date arithmetic.
func Evaluate(formula Formula, parents []any) any {
	return EvaluateAt(formula, parents, time.Now())
}

// EvaluateAt computes a formula with an explicit "now".
// It never fails: bad input degrades to "" and an unknown formula yields
// InvalidFormula.
func EvaluateAt(formula Formula, parents []any, now time.Time) any {
	switch formula {
	case FormulaAgeFromDob:
		return ageFromDob(parents, now)
	case FormulaConcatenate:
		return concatenate(parents)
	case FormulaSum:
		return sum(parents)
	default:
		return InvalidFormula
	}
}

// ageFromDob returns whole years between the single parent date and now.
func ageFromDob(parents []any, now time.Time) any {
	if len(parents) != 1 || !IsTruthy(parents[0]) {
		return ""
	}
	birth, ok := parseDate(parents[0])
	if !ok {
		return ""
	}

	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return ""
	}
	return age
}

func concatenate(parents []any) any {
	parts := make([]string, len(parents))
	for i, p := range parents {
		parts[i] = toText(p)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func sum(parents []any) any {
	var total float64
	for _, p := range parents {
		if n, ok := toFloat(p); ok {
			total += n
		}
	}
	if !isFinite(total) {
		return float64(0)
	}
	return total
}
