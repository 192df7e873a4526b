package formkit

import (
	"sort"
	"time"

	"github.com/dlovans/formkit/pkg/log"
)

// State is the lifecycle position of a Runtime.
type State string

const (
	StateUninitialized State = "UNINITIALIZED"
	StateReady         State = "READY"
	StateSubmitting    State = "SUBMITTING"
	StateInvalid       State = "INVALID" // ready, but the last submit found errors
)

// Snapshot is a copy of the runtime's observable state.
type Snapshot struct {
	Values           Values `json:"values"`
	Errors           Errors `json:"errors"`
	State            State  `json:"state"`
	Submitting       bool   `json:"isSubmitting"`
	SubmitSuccessful bool   `json:"isSubmitSuccessful"`
}

// Listener receives a snapshot after every completed transition.
type Listener func(Snapshot)

// Runtime owns the live value and error maps of one form session.
//
// It is not safe for concurrent use: every call runs to completion before the
// next one is accepted, and a ChangeValue applies its write and every
// downstream recomputation before any listener runs.
type Runtime struct {
	schema FormSchema
	index  map[string]int // field id -> position in schema.Fields
	graph  *Graph

	values           Values
	errors           Errors
	state            State
	submitSuccessful bool

	clock  func() time.Time
	logger log.Logger

	listeners map[int]Listener
	nextSub   int
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithClock fixes the "now" used by date formulas.
func WithClock(clock func() time.Time) Option {
	return func(r *Runtime) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithLogger sets the logger for refused changes and broken dependencies.
func WithLogger(logger log.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRuntime creates a runtime and initialises it with schema.
func NewRuntime(schema FormSchema, opts ...Option) *Runtime {
	r := &Runtime{
		state:     StateUninitialized,
		clock:     time.Now,
		logger:    log.Discard(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Load(schema)
	return r
}

// Load discards all session state and initialises the runtime for schema:
// defaults are written, every derived field is computed in dependency order,
// and the error map starts empty.
func (r *Runtime) Load(schema FormSchema) {
	r.schema = schema.Clone()
	r.schema.Fields = NormalizeFields(r.schema.Fields)
	r.graph = NewGraph(r.schema.Fields)
	r.index = make(map[string]int, len(r.schema.Fields))
	r.values = make(Values, len(r.schema.Fields))
	r.errors = make(Errors)
	r.submitSuccessful = false

	for i, f := range r.schema.Fields {
		if _, dup := r.index[f.ID]; dup {
			r.logger.Warn("duplicate field id ignored", "field", f.ID)
			continue
		}
		r.index[f.ID] = i
		r.values[f.ID] = initialValue(f)
	}

	r.recompute(r.graph.PlanAll())
	r.state = StateReady
	r.notify()
}

// initialValue is the field's default, or "" ([]string{} for checkboxes).
func initialValue(f FieldDefinition) any {
	if f.DefaultValue != nil {
		return cloneValue(f.DefaultValue)
	}
	if f.Type == FieldCheckbox {
		return []string{}
	}
	return ""
}

// ChangeValue writes a user-entered value, recomputes every derived field
// downstream of it, and revalidates the changed field only.
// Derived and unknown fields are refused and false is returned.
func (r *Runtime) ChangeValue(id string, value any) bool {
	pos, ok := r.index[id]
	if !ok {
		r.logger.Debug("change refused: unknown field", "field", id)
		return false
	}
	field := r.schema.Fields[pos]
	if field.IsDerived() {
		r.logger.Debug("change refused: derived field is read-only", "field", id)
		return false
	}

	value = NormalizeValue(value)
	r.values[id] = value
	r.recompute(r.graph.Plan(id))

	if msg := Validate(field, value); msg != "" {
		r.errors[id] = msg
	} else {
		delete(r.errors, id)
	}
	r.submitSuccessful = false
	r.state = StateReady
	r.notify()
	return true
}

// Submit validates every field against the current values and replaces the
// error map. onSuccess runs only when no field fails. Values are not touched.
func (r *Runtime) Submit(onSuccess func()) bool {
	r.state = StateSubmitting
	r.submitSuccessful = false
	r.notify()

	r.errors = ValidateAll(r.schema.Fields, r.values)
	if len(r.errors) > 0 {
		r.state = StateInvalid
		r.notify()
		return false
	}

	if onSuccess != nil {
		onSuccess()
	}
	r.submitSuccessful = true
	r.state = StateReady
	r.notify()
	return true
}

// recompute evaluates the plan in order against the in-progress value map.
func (r *Runtime) recompute(plan Plan) {
	if len(plan.Skipped) > 0 {
		r.logger.Warn("derived fields left unchanged: dependency cycle", "fields", plan.Skipped)
	}
	now := r.clock()
	for _, id := range plan.Order {
		pos, ok := r.index[id]
		if !ok {
			continue
		}
		spec := r.schema.Fields[pos].Derived
		if spec == nil {
			continue
		}
		parents := make([]any, len(spec.Parents))
		for i, p := range spec.Parents {
			parents[i] = r.parentValue(p)
		}
		r.values[id] = EvaluateAt(spec.Formula, parents, now)
	}
}

// parentValue reads a parent for a formula. Missing and falsy values read as "".
func (r *Runtime) parentValue(id string) any {
	v, ok := r.values[id]
	if !ok || !IsTruthy(v) {
		return ""
	}
	return v
}

// Subscribe registers a listener and returns a function that removes it.
func (r *Runtime) Subscribe(fn Listener) func() {
	id := r.nextSub
	r.nextSub++
	r.listeners[id] = fn
	return func() {
		delete(r.listeners, id)
	}
}

func (r *Runtime) notify() {
	if len(r.listeners) == 0 {
		return
	}
	ids := make([]int, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := r.listeners[id]; ok {
			fn(r.Snapshot())
		}
	}
}

// Snapshot returns a deep copy of the observable state.
func (r *Runtime) Snapshot() Snapshot {
	values := make(Values, len(r.values))
	for k, v := range r.values {
		values[k] = cloneValue(v)
	}
	errs := make(Errors, len(r.errors))
	for k, v := range r.errors {
		errs[k] = v
	}
	return Snapshot{
		Values:           values,
		Errors:           errs,
		State:            r.state,
		Submitting:       r.state == StateSubmitting,
		SubmitSuccessful: r.submitSuccessful,
	}
}

// Value returns the current value of a field.
func (r *Runtime) Value(id string) (any, bool) {
	v, ok := r.values[id]
	return cloneValue(v), ok
}

// Error returns the current validation message of a field ("" = valid).
func (r *Runtime) Error(id string) string {
	return r.errors[id]
}

// State returns the lifecycle state.
func (r *Runtime) State() State {
	return r.state
}

// Fields returns a copy of the loaded field list.
func (r *Runtime) Fields() []FieldDefinition {
	return CloneFields(r.schema.Fields)
}

// Field returns a copy of one loaded field.
func (r *Runtime) Field(id string) (FieldDefinition, bool) {
	pos, ok := r.index[id]
	if !ok {
		return FieldDefinition{}, false
	}
	return r.schema.Fields[pos].Clone(), true
}

// Schema returns a copy of the loaded schema.
func (r *Runtime) Schema() FormSchema {
	return r.schema.Clone()
}
