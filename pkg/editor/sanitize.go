package editor

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/dlovans/formkit/pkg/formkit"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// sanitizeText strips every tag from a display string. Entities produced by
// the policy are decoded again so "Terms & Conditions" survives unchanged.
func sanitizeText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	cleaned := html.UnescapeString(textSanitizer().Sanitize(trimmed))
	return strings.TrimSpace(cleaned)
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}

// sanitizeField returns a copy of def with label and options cleaned.
// Options that sanitise to nothing are dropped.
func sanitizeField(def formkit.FieldDefinition) formkit.FieldDefinition {
	out := def.Clone()
	out.Label = sanitizeText(def.Label)
	if def.Options != nil {
		options := make([]string, 0, len(def.Options))
		for _, opt := range def.Options {
			if cleaned := sanitizeText(opt); cleaned != "" {
				options = append(options, cleaned)
			}
		}
		out.Options = options
	}
	return out
}
