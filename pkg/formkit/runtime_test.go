package formkit

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func fixedClock() time.Time { return fixedNow }

func greetingSchema() FormSchema {
	return FormSchema{
		ID:   "greeting",
		Name: "Greeting",
		Fields: []FieldDefinition{
			{
				ID:          "Name",
				Type:        FieldText,
				Label:       "Name",
				Validations: &Validations{Required: true},
			},
			{
				ID:      "Greeting",
				Type:    FieldText,
				Label:   "Greeting",
				Derived: &DerivedSpec{Parents: []string{"Name"}, Formula: FormulaConcatenate},
			},
		},
	}
}

// TestRuntimeEndToEnd walks one session: load, type a name, submit, clear it,
// submit again.
func TestRuntimeEndToEnd(t *testing.T) {
	rt := NewRuntime(greetingSchema(), WithClock(fixedClock))

	snap := rt.Snapshot()
	assertValues(t, snap.Values, Values{"Name": "", "Greeting": ""})
	assertErrors(t, snap.Errors, Errors{})
	assertEqual(t, snap.State, StateReady)

	if !rt.ChangeValue("Name", "Ann") {
		t.Fatal("ChangeValue(Name) refused")
	}
	snap = rt.Snapshot()
	assertValues(t, snap.Values, Values{"Name": "Ann", "Greeting": "Ann"})
	assertErrors(t, snap.Errors, Errors{})

	called := 0
	if !rt.Submit(func() { called++ }) {
		t.Fatal("Submit with name populated failed")
	}
	assertEqual(t, called, 1)
	snap = rt.Snapshot()
	assertEqual(t, snap.SubmitSuccessful, true)
	assertEqual(t, snap.Submitting, false)

	rt.ChangeValue("Name", "")
	assertEqual(t, rt.Snapshot().SubmitSuccessful, false)
	assertErrors(t, rt.Snapshot().Errors, Errors{"Name": "Name is required."})

	if rt.Submit(func() { called++ }) {
		t.Fatal("Submit with empty name succeeded")
	}
	assertEqual(t, called, 1)
	snap = rt.Snapshot()
	assertErrors(t, snap.Errors, Errors{"Name": "Name is required."})
	assertEqual(t, snap.State, StateInvalid)
	assertEqual(t, snap.SubmitSuccessful, false)
}

func TestRuntimeInitialize(t *testing.T) {
	t.Run("defaults and type-appropriate empties", func(t *testing.T) {
		rt := NewRuntime(FormSchema{Fields: []FieldDefinition{
			{ID: "first", Type: FieldText, Label: "First", DefaultValue: "Jane"},
			{ID: "last", Type: FieldText, Label: "Last"},
			{ID: "tags", Type: FieldCheckbox, Label: "Tags", Options: []string{"a", "b"}},
			{ID: "picked", Type: FieldCheckbox, Label: "Picked", Options: []string{"a", "b"}, DefaultValue: []any{"b"}},
			{ID: "qty", Type: FieldNumber, Label: "Qty", DefaultValue: 2},
			derived("full", FormulaConcatenate, "first", "last"),
			derived("total", FormulaSum, "qty", "qty"),
		}}, WithClock(fixedClock))

		assertValues(t, rt.Snapshot().Values, Values{
			"first":  "Jane",
			"last":   "",
			"tags":   []string{},
			"picked": []string{"b"},
			"qty":    float64(2),
			"full":   "Jane",
			"total":  float64(4),
		})
		assertErrors(t, rt.Snapshot().Errors, Errors{})
	})

	t.Run("no eager validation", func(t *testing.T) {
		rt := NewRuntime(greetingSchema())
		if len(rt.Snapshot().Errors) != 0 {
			t.Errorf("errors on load = %v", rt.Snapshot().Errors)
		}
	})

	t.Run("derived chain settles on load", func(t *testing.T) {
		rt := NewRuntime(FormSchema{Fields: []FieldDefinition{
			derived("C", FormulaConcatenate, "B", "A"),
			derived("B", FormulaConcatenate, "A"),
			{ID: "A", Type: FieldText, Label: "A", DefaultValue: "x"},
		}})
		assertValues(t, rt.Snapshot().Values, Values{"A": "x", "B": "x", "C": "x x"})
	})

	t.Run("load replaces prior session", func(t *testing.T) {
		rt := NewRuntime(greetingSchema())
		rt.ChangeValue("Name", "")
		rt.Submit(nil)

		rt.Load(FormSchema{Fields: []FieldDefinition{plain("other")}})
		snap := rt.Snapshot()
		assertValues(t, snap.Values, Values{"other": ""})
		assertErrors(t, snap.Errors, Errors{})
		assertEqual(t, snap.State, StateReady)
	})
}

// TestDependencyOrdering checks that chained derived fields see the value
// their parent computed for this change, not the previous one.
func TestDependencyOrdering(t *testing.T) {
	rt := NewRuntime(FormSchema{Fields: []FieldDefinition{
		plain("A"),
		derived("B", FormulaConcatenate, "A"),
		derived("C", FormulaConcatenate, "B"),
	}})

	var seen []Values
	rt.Subscribe(func(s Snapshot) { seen = append(seen, s.Values) })

	rt.ChangeValue("A", "x")
	assertValues(t, rt.Snapshot().Values, Values{"A": "x", "B": "x", "C": "x"})

	rt.ChangeValue("A", "y")
	assertValues(t, rt.Snapshot().Values, Values{"A": "y", "B": "y", "C": "y"})

	// One notification per change, never a half-updated map.
	if len(seen) != 2 {
		t.Fatalf("notifications = %d, want 2", len(seen))
	}
	for _, v := range seen {
		if v["B"] != v["A"] || v["C"] != v["A"] {
			t.Errorf("listener saw stale derived values: %v", v)
		}
	}
}

func TestChangeValueIdempotent(t *testing.T) {
	once := NewRuntime(greetingSchema(), WithClock(fixedClock))
	twice := NewRuntime(greetingSchema(), WithClock(fixedClock))

	once.ChangeValue("Name", "Bo")
	twice.ChangeValue("Name", "Bo")
	twice.ChangeValue("Name", "Bo")

	if diff := cmp.Diff(once.Snapshot(), twice.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-once +twice):\n%s", diff)
	}
}

func TestChangeValueRefusals(t *testing.T) {
	rt := NewRuntime(greetingSchema())
	rt.ChangeValue("Name", "Ann")

	if rt.ChangeValue("Greeting", "Hacked") {
		t.Error("derived field accepted a direct write")
	}
	if rt.ChangeValue("nope", "x") {
		t.Error("unknown field accepted a write")
	}
	assertValues(t, rt.Snapshot().Values, Values{"Name": "Ann", "Greeting": "Ann"})
}

func TestChangeValueValidatesOnlyChangedField(t *testing.T) {
	rt := NewRuntime(FormSchema{Fields: []FieldDefinition{
		{ID: "a", Type: FieldText, Label: "A", Validations: &Validations{Required: true}},
		{ID: "b", Type: FieldText, Label: "B", Validations: &Validations{Required: true}},
		{
			ID:          "full",
			Type:        FieldText,
			Label:       "Full",
			Validations: &Validations{MinLength: 50},
			Derived:     &DerivedSpec{Parents: []string{"a"}, Formula: FormulaConcatenate},
		},
	}})

	rt.ChangeValue("a", "")
	assertErrors(t, rt.Snapshot().Errors, Errors{"a": "A is required."})

	rt.ChangeValue("a", "ok")
	assertErrors(t, rt.Snapshot().Errors, Errors{})

	// Submit validates everything, derived fields included.
	rt.Submit(nil)
	assertErrors(t, rt.Snapshot().Errors, Errors{
		"b":    "B is required.",
		"full": "Must be at least 50 characters.",
	})
}

func TestSubmitStates(t *testing.T) {
	rt := NewRuntime(greetingSchema())

	var states []State
	var submittingFlags []bool
	rt.Subscribe(func(s Snapshot) {
		states = append(states, s.State)
		submittingFlags = append(submittingFlags, s.Submitting)
	})

	rt.ChangeValue("Name", "Ann")
	var inCallback Snapshot
	rt.Submit(func() { inCallback = rt.Snapshot() })

	if diff := cmp.Diff([]State{StateReady, StateSubmitting, StateReady}, states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{false, true, false}, submittingFlags); diff != "" {
		t.Errorf("submitting mismatch (-want +got):\n%s", diff)
	}
	assertEqual(t, inCallback.Submitting, true)
}

func TestSubmitDoesNotMutateValues(t *testing.T) {
	rt := NewRuntime(greetingSchema())
	rt.ChangeValue("Name", "Ann")
	before := rt.Snapshot().Values
	rt.Submit(nil)
	assertValues(t, rt.Snapshot().Values, before)
}

func TestUnsubscribe(t *testing.T) {
	rt := NewRuntime(greetingSchema())
	calls := 0
	unsubscribe := rt.Subscribe(func(Snapshot) { calls++ })
	rt.ChangeValue("Name", "a")
	unsubscribe()
	rt.ChangeValue("Name", "b")
	assertEqual(t, calls, 1)
}

// TestMalformedDependencies covers schemas the editor would never produce.
func TestMalformedDependencies(t *testing.T) {
	t.Run("missing parent reads as empty", func(t *testing.T) {
		rt := NewRuntime(FormSchema{Fields: []FieldDefinition{
			plain("A"),
			derived("B", FormulaConcatenate, "A", "ghost"),
			derived("S", FormulaSum, "ghost"),
		}})
		rt.ChangeValue("A", "x")
		assertValues(t, rt.Snapshot().Values, Values{"A": "x", "B": "x", "S": float64(0)})
	})

	t.Run("cycle leaves prior values", func(t *testing.T) {
		rt := NewRuntime(FormSchema{Fields: []FieldDefinition{
			plain("A"),
			{ID: "B", Type: FieldText, Label: "B", DefaultValue: "stale", Derived: &DerivedSpec{Parents: []string{"A", "C"}, Formula: FormulaConcatenate}},
			derived("C", FormulaConcatenate, "B"),
			derived("E", FormulaConcatenate, "A"),
		}})
		rt.ChangeValue("A", "x")
		assertValues(t, rt.Snapshot().Values, Values{"A": "x", "B": "stale", "C": "", "E": "x"})
	})

	t.Run("self reference does not hang", func(t *testing.T) {
		rt := NewRuntime(FormSchema{Fields: []FieldDefinition{
			derived("S", FormulaSum, "S"),
		}})
		assertValues(t, rt.Snapshot().Values, Values{"S": ""})
	})

	t.Run("duplicate derived id after a plain field is ignored", func(t *testing.T) {
		rt := NewRuntime(FormSchema{Fields: []FieldDefinition{
			plain("a"),
			plain("x"),
			derived("x", FormulaConcatenate, "a"),
		}})
		assertValues(t, rt.Snapshot().Values, Values{"a": "", "x": ""})

		if !rt.ChangeValue("x", "typed") {
			t.Fatal("first definition of x is plain and must accept changes")
		}
		rt.ChangeValue("a", "z")
		assertValues(t, rt.Snapshot().Values, Values{"a": "z", "x": "typed"})
	})

	t.Run("duplicate plain id after a derived field is ignored", func(t *testing.T) {
		rt := NewRuntime(FormSchema{Fields: []FieldDefinition{
			plain("a"),
			derived("x", FormulaConcatenate, "a"),
			plain("x"),
		}})
		if rt.ChangeValue("x", "typed") {
			t.Error("first definition of x is derived and must refuse changes")
		}
		rt.ChangeValue("a", "z")
		assertValues(t, rt.Snapshot().Values, Values{"a": "z", "x": "z"})
	})

	t.Run("derived parent is honoured", func(t *testing.T) {
		rt := NewRuntime(FormSchema{Fields: []FieldDefinition{
			{ID: "dob", Type: FieldDate, Label: "DOB"},
			derived("age", FormulaAgeFromDob, "dob"),
			{ID: "bonus", Type: FieldNumber, Label: "Bonus"},
			derived("score", FormulaSum, "age", "bonus"),
		}}, WithClock(fixedClock))
		rt.ChangeValue("dob", "2000-01-01")
		rt.ChangeValue("bonus", "5")
		assertValues(t, rt.Snapshot().Values, Values{
			"dob":   "2000-01-01",
			"age":   25,
			"bonus": "5",
			"score": float64(30),
		})
	})

	t.Run("unknown formula shows marker and does not block submit", func(t *testing.T) {
		rt := NewRuntime(FormSchema{Fields: []FieldDefinition{
			plain("A"),
			derived("B", Formula("product"), "A"),
		}})
		rt.ChangeValue("A", "x")
		v, _ := rt.Value("B")
		assertEqual[any](t, v, InvalidFormula)
		if !rt.Submit(nil) {
			t.Error("unknown formula blocked submit")
		}
	})
}

func TestRuntimeDoesNotAliasSchema(t *testing.T) {
	schema := greetingSchema()
	rt := NewRuntime(schema)

	schema.Fields[0].Validations.Required = false
	schema.Fields[1].Derived.Parents[0] = "other"

	rt.ChangeValue("Name", "")
	assertErrors(t, rt.Snapshot().Errors, Errors{"Name": "Name is required."})

	f, _ := rt.Field("Greeting")
	assertEqual(t, f.Derived.Parents[0], "Name")

	snap := rt.Snapshot()
	snap.Values["Name"] = "mutated"
	v, _ := rt.Value("Name")
	assertEqual[any](t, v, "")
}

// TestAgeScoreScenario mirrors a sign-up form with an age computed from the
// date of birth and a full name joined from two fields.
func TestAgeScoreScenario(t *testing.T) {
	schema := FormSchema{Fields: []FieldDefinition{
		{ID: "first", Type: FieldText, Label: "First name", Validations: &Validations{Required: true}},
		{ID: "last", Type: FieldText, Label: "Last name"},
		{ID: "email", Type: FieldText, Label: "Email", Validations: &Validations{Required: true, Email: true}},
		{ID: "dob", Type: FieldDate, Label: "Date of birth"},
		derived("full", FormulaConcatenate, "first", "last"),
		derived("age", FormulaAgeFromDob, "dob"),
	}}
	rt := NewRuntime(schema, WithClock(fixedClock))

	rt.ChangeValue("first", "Jane")
	rt.ChangeValue("last", "Doe")
	rt.ChangeValue("email", "jane@")
	rt.ChangeValue("dob", "1990-12-24")

	snap := rt.Snapshot()
	assertValues(t, snap.Values, Values{
		"first": "Jane",
		"last":  "Doe",
		"email": "jane@",
		"dob":   "1990-12-24",
		"full":  "Jane Doe",
		"age":   34,
	})
	assertErrors(t, snap.Errors, Errors{"email": "Invalid email address."})

	rt.ChangeValue("email", "jane@example.com")
	if !rt.Submit(nil) {
		t.Fatalf("submit failed: %v", rt.Snapshot().Errors)
	}
}

func assertValues(t *testing.T, got, want Values) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func assertErrors(t *testing.T, got, want Errors) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func assertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
