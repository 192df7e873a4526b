//go:build js && wasm

// Package main provides WASM bindings for the formkit engine so browsers can
// run, verify and lint form documents locally.
package main

import (
	"syscall/js"
	"time"

	"github.com/goccy/go-json"

	"github.com/dlovans/formkit/pkg/formkit"
	"github.com/dlovans/formkit/pkg/lint"
)

func main() {
	js.Global().Set("FormRun", js.FuncOf(formRun))
	js.Global().Set("FormVerify", js.FuncOf(formVerify))
	js.Global().Set("FormLint", js.FuncOf(formLint))

	// Keep the Go runtime alive
	select {}
}

// formRun wraps formkit.Run.
// Usage: FormRun(jsonString, isoDateString) -> { result: object, error?: string }
func formRun(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return makeError("FormRun requires 2 arguments: jsonText, dateString")
	}

	jsonText := args[0].String()
	dateStr := args[1].String()

	effectiveDate, err := time.Parse(time.RFC3339, dateStr)
	if err != nil {
		effectiveDate, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			return makeError("Invalid date format. Use ISO 8601 (YYYY-MM-DD or RFC3339)")
		}
	}

	result, err := formkit.Run(jsonText, effectiveDate)
	if err != nil {
		return makeError(err.Error())
	}

	return makeResult(result)
}

// formVerify wraps formkit.Verify.
// Usage: FormVerify(newJsonString, baseJsonString) -> { valid: boolean, error?: string }
func formVerify(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return makeError("FormVerify requires 2 arguments: newJson, baseJson")
	}

	valid, err := formkit.Verify(args[0].String(), args[1].String())
	if err != nil {
		return map[string]any{
			"valid": false,
			"error": err.Error(),
		}
	}

	return map[string]any{
		"valid": valid,
	}
}

// formLint wraps lint.Run.
// Usage: FormLint(schemaString) -> { result: { valid, issues }, error?: string }
func formLint(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return makeError("FormLint requires 1 argument: schemaText")
	}

	result, err := lint.Run(args[0].String())
	if err != nil {
		return makeError(err.Error())
	}

	out, err := json.Marshal(result)
	if err != nil {
		return makeError(err.Error())
	}
	return makeResult(string(out))
}

func makeError(msg string) map[string]any {
	return map[string]any{
		"error": msg,
	}
}

// makeResult returns jsonStr as a JS object, or as a string if it does not
// parse.
func makeResult(jsonStr string) map[string]any {
	var result any
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return map[string]any{
			"result": jsonStr,
		}
	}

	return map[string]any{
		"result": result,
	}
}
