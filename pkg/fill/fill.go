// Package fill walks a user through a form in the terminal, feeding every
// answer through a formkit runtime so derived fields and validation behave
// exactly as they do in the browser.
package fill

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dlovans/formkit/pkg/formkit"
	"github.com/dlovans/formkit/pkg/log"
)

// DefaultMaxRounds is the number of prompt rounds before Fill gives up.
const DefaultMaxRounds = 3

// Filler prompts for field values and submits the form.
type Filler struct {
	driver    PromptDriver
	maxRounds int
	logger    log.Logger
}

// Option configures a Filler.
type Option func(*Filler)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(f *Filler) {
		if driver != nil {
			f.driver = driver
		}
	}
}

// WithMaxRounds caps the number of prompt rounds, the first full pass included.
func WithMaxRounds(n int) Option {
	return func(f *Filler) {
		if n > 0 {
			f.maxRounds = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(f *Filler) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New constructs a Filler with the survey driver.
func New(opts ...Option) *Filler {
	f := &Filler{
		driver:    NewSurveyDriver(),
		maxRounds: DefaultMaxRounds,
		logger:    log.Discard(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(f)
	}
	return f
}

// Fill prompts every editable field in schema order, submits, and re-prompts
// only the failing fields until the form is valid or the rounds run out.
// The returned snapshot is the runtime's final state in every case.
func (f *Filler) Fill(ctx context.Context, rt *formkit.Runtime) (formkit.Snapshot, error) {
	fields := rt.Fields()
	pending := editable(fields)

	for round := 1; ; round++ {
		for _, field := range pending {
			if err := f.promptField(ctx, rt, field); err != nil {
				return rt.Snapshot(), err
			}
		}

		if rt.Submit(nil) {
			f.logger.InfoContext(ctx, "form submitted", "rounds", round)
			return rt.Snapshot(), nil
		}

		snap := rt.Snapshot()
		pending = failing(fields, snap.Errors)
		if err := f.reportErrors(ctx, fields, snap.Errors); err != nil {
			return snap, err
		}
		if round >= f.maxRounds || len(pending) == 0 {
			return snap, fmt.Errorf("%w: %d field(s) invalid after %d round(s)", ErrIncomplete, len(snap.Errors), round)
		}

		again, err := f.driver.Confirm(ctx, ConfirmConfig{
			Message: fmt.Sprintf("Fix %d field(s)?", len(pending)),
			Default: true,
		})
		if err != nil {
			return snap, err
		}
		if !again {
			return snap, fmt.Errorf("%w: stopped by user", ErrIncomplete)
		}
	}
}

func (f *Filler) promptField(ctx context.Context, rt *formkit.Runtime, field formkit.FieldDefinition) error {
	current, _ := rt.Value(field.ID)
	help := rt.Error(field.ID)

	var value any
	switch field.Type {
	case formkit.FieldSelect, formkit.FieldRadio:
		idx, err := f.driver.Select(ctx, SelectConfig{
			Message:      field.Label,
			Options:      field.Options,
			DefaultIndex: indexOf(field.Options, text(current)),
			Help:         help,
		})
		if err != nil {
			return err
		}
		value = ""
		if idx >= 0 && idx < len(field.Options) {
			value = field.Options[idx]
		}

	case formkit.FieldCheckbox:
		selected, _ := current.([]string)
		indices, err := f.driver.MultiSelect(ctx, SelectConfig{
			Message:      field.Label,
			Options:      field.Options,
			DefaultIndex: -1,
			Defaults:     indicesOf(field.Options, selected),
			Help:         help,
		})
		if err != nil {
			return err
		}
		value = valuesAt(field.Options, indices)

	case formkit.FieldTextarea:
		s, err := f.driver.TextArea(ctx, TextAreaConfig{
			Message: field.Label,
			Default: text(current),
			Help:    help,
		})
		if err != nil {
			return err
		}
		value = s

	default:
		cfg := InputConfig{
			Message:   field.Label,
			Default:   text(current),
			Help:      help,
			Validator: inputValidator(field.Type),
		}
		var s string
		var err error
		if field.Validations != nil && field.Validations.PasswordRule {
			s, err = f.driver.Password(ctx, cfg)
		} else {
			s, err = f.driver.Input(ctx, cfg)
		}
		if err != nil {
			return err
		}
		value = parseInput(field.Type, s)
	}

	before := rt.Snapshot().Values
	rt.ChangeValue(field.ID, value)
	return f.reportDerived(ctx, rt, before)
}

// reportDerived prints every derived field whose value moved.
func (f *Filler) reportDerived(ctx context.Context, rt *formkit.Runtime, before formkit.Values) error {
	after := rt.Snapshot().Values
	for _, field := range rt.Fields() {
		if !field.IsDerived() {
			continue
		}
		if text(before[field.ID]) == text(after[field.ID]) {
			continue
		}
		if err := f.driver.Info(ctx, fmt.Sprintf("  %s = %s", field.Label, text(after[field.ID]))); err != nil {
			return err
		}
	}
	return nil
}

func (f *Filler) reportErrors(ctx context.Context, fields []formkit.FieldDefinition, errs formkit.Errors) error {
	for _, field := range fields {
		msg, ok := errs[field.ID]
		if !ok {
			continue
		}
		if err := f.driver.Info(ctx, fmt.Sprintf("! %s: %s", field.Label, msg)); err != nil {
			return err
		}
	}
	return nil
}

func editable(fields []formkit.FieldDefinition) []formkit.FieldDefinition {
	var out []formkit.FieldDefinition
	for _, f := range fields {
		if !f.IsDerived() {
			out = append(out, f)
		}
	}
	return out
}

// failing lists the editable fields with an error. Derived fields cannot be
// fixed by prompting them and are left out.
func failing(fields []formkit.FieldDefinition, errs formkit.Errors) []formkit.FieldDefinition {
	var out []formkit.FieldDefinition
	for _, f := range editable(fields) {
		if _, ok := errs[f.ID]; ok {
			out = append(out, f)
		}
	}
	return out
}

func inputValidator(t formkit.FieldType) func(string) error {
	switch t {
	case formkit.FieldNumber:
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return nil
			}
			if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
				return fmt.Errorf("%q is not a number", s)
			}
			return nil
		}
	case formkit.FieldDate:
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return nil
			}
			if _, err := time.Parse("2006-01-02", strings.TrimSpace(s)); err != nil {
				return fmt.Errorf("%q is not a date (YYYY-MM-DD)", s)
			}
			return nil
		}
	default:
		return nil
	}
}

// parseInput turns a typed answer into the value a browser input would hold.
func parseInput(t formkit.FieldType, s string) any {
	switch t {
	case formkit.FieldNumber:
		trimmed := strings.TrimSpace(s)
		if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return n
		}
		return trimmed
	case formkit.FieldDate:
		return strings.TrimSpace(s)
	default:
		return s
	}
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case []string:
		return strings.Join(x, ", ")
	default:
		return fmt.Sprint(x)
	}
}
