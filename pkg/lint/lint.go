// Package lint provides static analysis for form schemas.
// It detects potential issues without running the schema.
package lint

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dlovans/formkit/pkg/formkit"
)

// Severity levels reported by the linter.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Issue represents a problem found during static analysis.
type Issue struct {
	Severity string `json:"severity"` // "error", "warning", "info"
	Field    string `json:"field,omitempty"`
	Rule     string `json:"rule,omitempty"`
	Message  string `json:"message"`
}

// Result contains all issues found by the linter.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// Run parses a JSON or YAML schema and lints it.
func Run(text string) (*Result, error) {
	schema, err := formkit.DecodeSchema([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return Check(schema), nil
}

// Check performs static analysis on a decoded schema.
// Errors make the schema unusable as intended (Valid=false); warnings flag
// definitions the runtime tolerates but that are almost certainly mistakes.
func Check(schema formkit.FormSchema) *Result {
	result := &Result{
		Valid:  true,
		Issues: make([]Issue, 0),
	}

	byID := make(map[string]formkit.FieldDefinition, len(schema.Fields))
	for i, f := range schema.Fields {
		if strings.TrimSpace(f.ID) == "" {
			result.addError("", "id", fmt.Sprintf("field %d has no id", i))
			continue
		}
		if _, dup := byID[f.ID]; dup {
			result.addError(f.ID, "id", fmt.Sprintf("duplicate field id '%s'", f.ID))
			continue
		}
		byID[f.ID] = f
	}

	for _, f := range schema.Fields {
		if f.ID == "" {
			continue
		}
		checkField(result, f)
		if f.IsDerived() {
			checkDerived(result, f, byID)
		}
	}

	for _, cycle := range formkit.NewGraph(schema.Fields).Cycles() {
		if len(cycle) == 1 {
			result.addError(cycle[0], "cycle", fmt.Sprintf(
				"field '%s' lists itself as a parent; it keeps its previous value", cycle[0]))
			continue
		}
		result.addError(cycle[0], "cycle", fmt.Sprintf(
			"dependency cycle between %s; these fields keep their previous value",
			strings.Join(quote(cycle), ", ")))
	}

	return result
}

func checkField(r *Result, f formkit.FieldDefinition) {
	if !f.Type.Valid() {
		r.addError(f.ID, "type", fmt.Sprintf("field '%s' has unknown type '%s'", f.ID, f.Type))
	}
	if strings.TrimSpace(f.Label) == "" {
		r.addWarning(f.ID, "label", fmt.Sprintf("field '%s' has no label", f.ID))
	}

	if f.Type.HasOptions() && len(f.Options) == 0 {
		r.addWarning(f.ID, "options", fmt.Sprintf("%s field '%s' has no options", f.Type, f.ID))
	}
	if !f.Type.HasOptions() && len(f.Options) > 0 {
		r.addInfo(f.ID, "options", fmt.Sprintf("options on %s field '%s' are ignored", f.Type, f.ID))
	}

	if list, ok := f.DefaultValue.([]string); ok {
		if f.Type != formkit.FieldCheckbox {
			r.addWarning(f.ID, "defaultValue", fmt.Sprintf("list default on %s field '%s'", f.Type, f.ID))
		}
		for _, v := range list {
			if len(f.Options) > 0 && !slices.Contains(f.Options, v) {
				r.addWarning(f.ID, "defaultValue", fmt.Sprintf("default '%s' of field '%s' is not an option", v, f.ID))
			}
		}
	} else if s, ok := f.DefaultValue.(string); ok && s != "" && f.Type.HasOptions() && len(f.Options) > 0 && !slices.Contains(f.Options, s) {
		r.addWarning(f.ID, "defaultValue", fmt.Sprintf("default '%s' of field '%s' is not an option", s, f.ID))
	}

	if v := f.Validations; v != nil {
		if v.MinLength < 0 || v.MaxLength < 0 {
			r.addWarning(f.ID, "length", fmt.Sprintf("field '%s' has a negative length bound", f.ID))
		}
		if v.MinLength > 0 && v.MaxLength > 0 && v.MinLength > v.MaxLength {
			r.addWarning(f.ID, "length", fmt.Sprintf(
				"field '%s' minLength %d exceeds maxLength %d; no value can pass", f.ID, v.MinLength, v.MaxLength))
		}
		if v.Required && f.Type == formkit.FieldNumber {
			r.addInfo(f.ID, "required", fmt.Sprintf("required number field '%s' rejects 0", f.ID))
		}
	}
}

func checkDerived(r *Result, f formkit.FieldDefinition, byID map[string]formkit.FieldDefinition) {
	spec := f.Derived

	if !spec.Formula.Valid() {
		r.addWarning(f.ID, "formula", fmt.Sprintf(
			"field '%s' uses unknown formula '%s'; it will show %q", f.ID, spec.Formula, formkit.InvalidFormula))
	}
	if spec.Formula == formkit.FormulaAgeFromDob && len(spec.Parents) != 1 {
		r.addWarning(f.ID, "formula", fmt.Sprintf(
			"ageFromDob on field '%s' needs exactly one parent, got %d", f.ID, len(spec.Parents)))
	}
	if len(spec.Parents) == 0 {
		r.addWarning(f.ID, "parents", fmt.Sprintf("derived field '%s' has no parents", f.ID))
	}

	seen := make(map[string]bool, len(spec.Parents))
	for _, p := range spec.Parents {
		if seen[p] {
			r.addInfo(f.ID, "parents", fmt.Sprintf("parent '%s' listed more than once on field '%s'", p, f.ID))
		}
		seen[p] = true

		if p == f.ID {
			// reported by the cycle check
			continue
		}
		parent, ok := byID[p]
		if !ok {
			r.addError(f.ID, "parents", fmt.Sprintf("undefined parent '%s' on field '%s'; it reads as empty", p, f.ID))
			continue
		}
		if parent.IsDerived() {
			r.addInfo(f.ID, "parents", fmt.Sprintf("field '%s' depends on derived field '%s'", f.ID, p))
		}
		if spec.Formula == formkit.FormulaAgeFromDob && parent.Type != formkit.FieldDate {
			r.addWarning(f.ID, "formula", fmt.Sprintf(
				"ageFromDob parent '%s' of field '%s' is a %s field, not a date", p, f.ID, parent.Type))
		}
	}

	if f.DefaultValue != nil {
		r.addInfo(f.ID, "defaultValue", fmt.Sprintf("default of derived field '%s' is overwritten on load", f.ID))
	}
}

func (r *Result) addError(field, rule, message string) {
	r.Valid = false
	r.Issues = append(r.Issues, Issue{
		Severity: SeverityError,
		Field:    field,
		Rule:     rule,
		Message:  message,
	})
}

func (r *Result) addWarning(field, rule, message string) {
	r.Issues = append(r.Issues, Issue{
		Severity: SeverityWarning,
		Field:    field,
		Rule:     rule,
		Message:  message,
	})
}

func (r *Result) addInfo(field, rule, message string) {
	r.Issues = append(r.Issues, Issue{
		Severity: SeverityInfo,
		Field:    field,
		Rule:     rule,
		Message:  message,
	})
}

// Count returns the number of issues with the given severity.
func (r *Result) Count(severity string) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			n++
		}
	}
	return n
}

func quote(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = "'" + id + "'"
	}
	return out
}
