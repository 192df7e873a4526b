package formkit

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Document is a schema plus the values entered into it.
// Run fills in the computed values, errors and status.
type Document struct {
	Schema        FormSchema `json:"schema"`
	Values        Values     `json:"values,omitempty"`
	EffectiveDate string     `json:"effective_date,omitempty"` // ISO date used for date formulas

	// Output fields (populated by Run)
	Errors Errors    `json:"errors,omitempty"`
	Status DocStatus `json:"status,omitempty"`
}

// Run executes a document for a given effective date.
// User-entered values are applied in schema order through ChangeValue, then
// the form is submitted. Returns the document with every value (derived ones
// included), the error map and the status.
//
// Only a malformed document returns an error; invalid values end up in the
// error map.
func Run(jsonText string, date time.Time) (string, error) {
	// 1. Unmarshal
	doc, err := decodeDocument(jsonText)
	if err != nil {
		return "", err
	}

	// 2. Replay the entered values
	rt := replay(doc.Schema, doc.Values, date)

	// 3. Submit
	rt.Submit(nil)

	// 4. Attach values, errors and status
	snap := rt.Snapshot()
	doc.Values = snap.Values
	doc.Errors = snap.Errors
	doc.EffectiveDate = date.Format("2006-01-02")
	doc.Status = StatusInvalid
	if snap.SubmitSuccessful {
		doc.Status = StatusReady
	}
	if len(doc.Errors) == 0 {
		doc.Errors = nil
	}

	// 5. Marshal result
	result, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	return string(result), nil
}

// Verify checks that newJson's values are a legal derivation of baseJson's
// schema. It replays newJson's user-entered values against the base schema at
// newJson's effective date and compares every resulting value.
func Verify(newJson, baseJson string) (bool, error) {
	newDoc, err := decodeDocument(newJson)
	if err != nil {
		return false, fmt.Errorf("newJson: %w", err)
	}
	baseDoc, err := decodeDocument(baseJson)
	if err != nil {
		return false, fmt.Errorf("baseJson: %w", err)
	}

	effectiveDate := time.Now()
	if newDoc.EffectiveDate != "" {
		if parsed, ok := parseDate(newDoc.EffectiveDate); ok {
			effectiveDate = parsed
		}
	}

	rt := replay(baseDoc.Schema, newDoc.Values, effectiveDate)
	replayed := rt.Snapshot().Values

	for _, field := range baseDoc.Schema.Fields {
		got, ok := newDoc.Values[field.ID]
		if !ok {
			return false, fmt.Errorf("field '%s' missing in document", field.ID)
		}
		want := replayed[field.ID]
		if !valuesEqual(NormalizeValue(got), want) {
			return false, fmt.Errorf("field '%s' value mismatch: got %v, expected %v", field.ID, got, want)
		}
	}

	return true, nil
}

// replay builds a runtime at date and applies every entered value for a
// non-derived field, in schema order.
func replay(schema FormSchema, values Values, date time.Time) *Runtime {
	rt := NewRuntime(schema, WithClock(func() time.Time { return date }))
	for _, field := range schema.Fields {
		if field.IsDerived() {
			continue
		}
		if v, ok := values[field.ID]; ok {
			rt.ChangeValue(field.ID, v)
		}
	}
	return rt
}

func decodeDocument(jsonText string) (*Document, error) {
	if len(jsonText) == 0 {
		return nil, ErrEmptyDocument
	}
	var doc Document
	if err := json.Unmarshal([]byte(jsonText), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	doc.Schema.Fields = NormalizeFields(doc.Schema.Fields)
	for k, v := range doc.Values {
		doc.Values[k] = NormalizeValue(v)
	}
	return &doc, nil
}
