package formkit

import (
	"fmt"
	"regexp"
)

var emailPattern = regexp.MustCompile(`(?i)^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 8

// Validate checks value against the field's rules and returns the first
// failure message, or "" when the value is valid.
//
// Rules run in a fixed order: required, minLength, maxLength, email,
// passwordRule. The required check is a truthiness test, so 0 and false fail
// a required field just like an empty string does. value is normalised
// first, so any Go integer or float type behaves like float64.
func Validate(field FieldDefinition, value any) string {
	rules := field.Validations
	if rules == nil {
		return ""
	}
	value = NormalizeValue(value)

	if rules.Required && !IsTruthy(value) {
		return fmt.Sprintf("%s is required.", field.Label)
	}
	if rules.MinLength > 0 {
		if n, ok := valueLength(value); ok && n < rules.MinLength {
			return fmt.Sprintf("Must be at least %d characters.", rules.MinLength)
		}
	}
	if rules.MaxLength > 0 {
		if n, ok := valueLength(value); ok && n > rules.MaxLength {
			return fmt.Sprintf("Must be no more than %d characters.", rules.MaxLength)
		}
	}
	if rules.Email && !emailPattern.MatchString(toText(value)) {
		return "Invalid email address."
	}
	if rules.PasswordRule && !isStrongPassword(toText(value)) {
		return "Password must be 8+ characters with at least one letter and one number."
	}
	return ""
}

// ValidateAll runs Validate over every field and collects the failures.
func ValidateAll(fields []FieldDefinition, values Values) Errors {
	errs := make(Errors)
	for _, field := range fields {
		if msg := Validate(field, values[field.ID]); msg != "" {
			errs[field.ID] = msg
		}
	}
	return errs
}

// isStrongPassword requires at least 8 characters with one ASCII letter and
// one digit. Other characters are allowed.
func isStrongPassword(s string) bool {
	var count int
	var letter, digit bool
	for _, r := range s {
		count++
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return count >= minPasswordLength && letter && digit
}
