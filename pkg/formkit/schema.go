// Package formkit evaluates form schemas built from typed fields.
// It validates field values against declarative rules and recomputes derived
// (read-only) fields whenever one of their parents changes.
package formkit

// FieldType names the kind of input a field renders as.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldRadio    FieldType = "radio"
	FieldCheckbox FieldType = "checkbox"
	FieldDate     FieldType = "date"
)

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldNumber, FieldTextarea, FieldSelect, FieldRadio, FieldCheckbox, FieldDate:
		return true
	default:
		return false
	}
}

// HasOptions reports whether the type picks its value from Options.
func (t FieldType) HasOptions() bool {
	return t == FieldSelect || t == FieldRadio || t == FieldCheckbox
}

// FieldDefinition describes one field of a form.
// Definitions are immutable once handed to a Runtime; edits replace them wholesale.
type FieldDefinition struct {
	ID           string       `json:"id" yaml:"id" msgpack:"id"`
	Type         FieldType    `json:"type" yaml:"type" msgpack:"type"`
	Label        string       `json:"label" yaml:"label" msgpack:"label"`
	DefaultValue any          `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty" msgpack:"defaultValue,omitempty"` // scalar, or []string for checkbox
	Options      []string     `json:"options,omitempty" yaml:"options,omitempty" msgpack:"options,omitempty"`                // select, radio and checkbox only
	Validations  *Validations `json:"validations,omitempty" yaml:"validations,omitempty" msgpack:"validations,omitempty"`
	Derived      *DerivedSpec `json:"derived,omitempty" yaml:"derived,omitempty" msgpack:"derived,omitempty"` // non-nil = read-only, computed
}

// IsDerived reports whether the field's value is computed from other fields.
func (f FieldDefinition) IsDerived() bool {
	return f.Derived != nil
}

// Clone returns a deep copy so callers can never mutate a definition the
// runtime holds.
func (f FieldDefinition) Clone() FieldDefinition {
	out := f
	out.DefaultValue = cloneValue(f.DefaultValue)
	if f.Options != nil {
		out.Options = append([]string(nil), f.Options...)
	}
	if f.Validations != nil {
		v := *f.Validations
		out.Validations = &v
	}
	if f.Derived != nil {
		d := *f.Derived
		d.Parents = append([]string(nil), f.Derived.Parents...)
		out.Derived = &d
	}
	return out
}

// Validations holds the declarative rules checked by Validate.
// Zero MinLength/MaxLength means the rule is not set.
type Validations struct {
	Required     bool `json:"required,omitempty" yaml:"required,omitempty" msgpack:"required,omitempty"`
	MinLength    int  `json:"minLength,omitempty" yaml:"minLength,omitempty" msgpack:"minLength,omitempty"`
	MaxLength    int  `json:"maxLength,omitempty" yaml:"maxLength,omitempty" msgpack:"maxLength,omitempty"`
	Email        bool `json:"email,omitempty" yaml:"email,omitempty" msgpack:"email,omitempty"`
	PasswordRule bool `json:"passwordRule,omitempty" yaml:"passwordRule,omitempty" msgpack:"passwordRule,omitempty"`
}

// DerivedSpec declares how a read-only field is computed.
type DerivedSpec struct {
	Parents []string `json:"parents" yaml:"parents" msgpack:"parents"` // ordered; values are passed to the formula in this order
	Formula Formula  `json:"formula" yaml:"formula" msgpack:"formula"`
}

// FormSchema is an ordered list of fields plus identity.
// Order is only meaningful for display; evaluation follows the dependency graph.
type FormSchema struct {
	ID     string            `json:"id,omitempty" yaml:"id,omitempty" msgpack:"id,omitempty"`
	Name   string            `json:"name,omitempty" yaml:"name,omitempty" msgpack:"name,omitempty"`
	Fields []FieldDefinition `json:"fields" yaml:"fields" msgpack:"fields"`
}

// Field returns the definition with the given id.
func (s FormSchema) Field(id string) (FieldDefinition, bool) {
	for _, f := range s.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// Clone deep-copies the schema.
func (s FormSchema) Clone() FormSchema {
	out := s
	out.Fields = CloneFields(s.Fields)
	return out
}

// CloneFields deep-copies a field list.
func CloneFields(fields []FieldDefinition) []FieldDefinition {
	if fields == nil {
		return nil
	}
	out := make([]FieldDefinition, len(fields))
	for i, f := range fields {
		out[i] = f.Clone()
	}
	return out
}

// Values maps field ids to their current value.
type Values map[string]any

// Errors maps field ids to a validation message. A missing key means valid.
type Errors map[string]string

// DocStatus is the outcome of a batch Run.
type DocStatus string

const (
	StatusReady   DocStatus = "READY"   // submit succeeded
	StatusInvalid DocStatus = "INVALID" // at least one field failed validation
)
