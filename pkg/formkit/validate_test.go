package formkit

import (
	"math"
	"testing"
)

func requiredField(label string) FieldDefinition {
	return FieldDefinition{
		ID:          "f",
		Type:        FieldText,
		Label:       label,
		Validations: &Validations{Required: true},
	}
}

// TestRequiredValidation covers the truthiness-based required check.
func TestRequiredValidation(t *testing.T) {
	field := requiredField("Name")

	t.Run("falsy values fail", func(t *testing.T) {
		falsy := []any{nil, "", []string{}, []any{}, false, float64(0), 0, math.NaN()}
		for _, v := range falsy {
			if got := Validate(field, v); got != "Name is required." {
				t.Errorf("Validate(%#v) = %q, want %q", v, got, "Name is required.")
			}
		}
	})

	t.Run("truthy values pass", func(t *testing.T) {
		truthy := []any{"x", []string{"a"}, true, float64(3), " "}
		for _, v := range truthy {
			if got := Validate(field, v); got != "" {
				t.Errorf("Validate(%#v) = %q, want valid", v, got)
			}
		}
	})

	t.Run("zero of any numeric type fails", func(t *testing.T) {
		zeros := []any{int64(0), int32(0), uint8(0), float32(0)}
		for _, v := range zeros {
			if got := Validate(field, v); got != "Name is required." {
				t.Errorf("Validate(%T) = %q, want %q", v, got, "Name is required.")
			}
		}
		if got := Validate(field, int64(7)); got != "" {
			t.Errorf("Validate(int64(7)) = %q, want valid", got)
		}
	})

	// Zero fails a required number: kept for compatibility with existing forms.
	t.Run("zero fails required number", func(t *testing.T) {
		num := requiredField("Quantity")
		num.Type = FieldNumber
		if got := Validate(num, float64(0)); got == "" {
			t.Error("expected zero to fail a required number field")
		}
	})
}

func TestNoValidationsAlwaysValid(t *testing.T) {
	field := FieldDefinition{ID: "notes", Type: FieldTextarea, Label: "Notes"}
	for _, v := range []any{nil, "", "anything", float64(0)} {
		if got := Validate(field, v); got != "" {
			t.Errorf("Validate(%#v) = %q, want valid", v, got)
		}
	}
}

// TestLengthValidation tests that length constraints are enforced.
func TestLengthValidation(t *testing.T) {
	field := FieldDefinition{
		ID:          "username",
		Type:        FieldText,
		Label:       "Username",
		Validations: &Validations{MinLength: 3, MaxLength: 5},
	}

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"too short", "ab", "Must be at least 3 characters."},
		{"at minimum", "abc", ""},
		{"at maximum", "abcde", ""},
		{"too long", "abcdef", "Must be no more than 5 characters."},
		{"multibyte counts runes", "åäö", ""},
		{"list length applies", []string{"a"}, "Must be at least 3 characters."},
		{"number has no length", float64(1), ""},
		{"nil has no length", nil, ""},
		{"bool has no length", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(field, tt.value); got != tt.want {
				t.Errorf("Validate(%#v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestEmailValidation(t *testing.T) {
	field := FieldDefinition{
		ID:          "email",
		Type:        FieldText,
		Label:       "Email",
		Validations: &Validations{Email: true},
	}

	tests := []struct {
		value any
		valid bool
	}{
		{"ann@example.com", true},
		{"ANN@EXAMPLE.COM", true},
		{"a@b.c", true},
		{"ann@example", false},
		{"ann example@x.com", false},
		{"@example.com", false},
		{"", false},
		{nil, false},
		{float64(42), false},
	}

	for _, tt := range tests {
		got := Validate(field, tt.value)
		if (got == "") != tt.valid {
			t.Errorf("Validate(%#v) = %q, want valid=%v", tt.value, got, tt.valid)
		}
		if !tt.valid && got != "Invalid email address." {
			t.Errorf("Validate(%#v) message = %q", tt.value, got)
		}
	}
}

func TestPasswordRuleValidation(t *testing.T) {
	field := FieldDefinition{
		ID:          "pw",
		Type:        FieldText,
		Label:       "Password",
		Validations: &Validations{PasswordRule: true},
	}

	tests := []struct {
		value string
		valid bool
	}{
		{"abcdefg1", true},
		{"12345678a", true},
		{"abc1234!", true},
		{"abcdefgh", false},
		{"12345678", false},
		{"abc123", false},
		{"", false},
	}

	for _, tt := range tests {
		got := Validate(field, tt.value)
		if (got == "") != tt.valid {
			t.Errorf("Validate(%q) = %q, want valid=%v", tt.value, got, tt.valid)
		}
	}
}

func TestRuleOrderFirstFailureWins(t *testing.T) {
	field := FieldDefinition{
		ID:    "email",
		Type:  FieldText,
		Label: "Email",
		Validations: &Validations{
			Required:  true,
			MinLength: 10,
			Email:     true,
		},
	}

	if got := Validate(field, ""); got != "Email is required." {
		t.Errorf("empty: got %q", got)
	}
	if got := Validate(field, "a@b.c"); got != "Must be at least 10 characters." {
		t.Errorf("short: got %q", got)
	}
	if got := Validate(field, "not-an-email"); got != "Invalid email address." {
		t.Errorf("bad email: got %q", got)
	}
	if got := Validate(field, "ann@example.com"); got != "" {
		t.Errorf("valid: got %q", got)
	}
}

func TestValidateAll(t *testing.T) {
	fields := []FieldDefinition{
		requiredField("Name"),
		{ID: "age", Type: FieldNumber, Label: "Age"},
	}
	fields[0].ID = "name"

	errs := ValidateAll(fields, Values{"name": "", "age": ""})
	if len(errs) != 1 || errs["name"] != "Name is required." {
		t.Errorf("ValidateAll = %v", errs)
	}

	errs = ValidateAll(fields, Values{"name": "Ann"})
	if len(errs) != 0 {
		t.Errorf("ValidateAll = %v, want empty", errs)
	}
}
