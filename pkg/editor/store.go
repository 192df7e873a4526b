// Package editor holds the field list of a form while it is being built.
// Every mutation replaces definitions wholesale and notifies subscribers with
// a fresh copy of the list.
package editor

import (
	"sort"

	"github.com/google/uuid"

	"github.com/dlovans/formkit/pkg/formkit"
	"github.com/dlovans/formkit/pkg/log"
)

// Listener receives the field list after every mutation.
type Listener func([]formkit.FieldDefinition)

// Store is the ordered field list of the form under construction.
// It is not safe for concurrent use.
type Store struct {
	fields []formkit.FieldDefinition
	newID  func() string
	logger log.Logger

	listeners map[int]Listener
	nextSub   int
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the UUID v4 generator used by AddField.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger sets the logger for ignored mutations.
func WithLogger(logger log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFields seeds the store, for example from a saved record.
// Seeded fields keep their ids.
func WithFields(fields []formkit.FieldDefinition) Option {
	return func(s *Store) {
		for _, f := range fields {
			s.fields = append(s.fields, sanitizeField(f))
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		newID:     uuid.NewString,
		logger:    log.Discard(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddField appends def under a newly generated id and returns that id.
// Any id on def is ignored.
func (s *Store) AddField(def formkit.FieldDefinition) string {
	field := sanitizeField(def)
	field.ID = s.newID()
	s.fields = append(s.fields, field)
	s.logger.Debug("field added", "field", field.ID, "type", field.Type)
	s.notify()
	return field.ID
}

// UpdateField replaces the field whose id matches def.ID.
// Unknown ids are ignored and false is returned.
func (s *Store) UpdateField(def formkit.FieldDefinition) bool {
	i := s.indexOf(def.ID)
	if i < 0 {
		s.logger.Debug("update ignored: unknown field", "field", def.ID)
		return false
	}
	s.fields[i] = sanitizeField(def)
	s.notify()
	return true
}

// DeleteField removes the field with the given id.
// Derived fields that named it as a parent keep the stale reference; it reads
// as empty until the parent list is edited.
func (s *Store) DeleteField(id string) bool {
	i := s.indexOf(id)
	if i < 0 {
		s.logger.Debug("delete ignored: unknown field", "field", id)
		return false
	}
	s.fields = append(s.fields[:i:i], s.fields[i+1:]...)
	s.notify()
	return true
}

// ReorderFields moves the field at start so that it ends up at position end.
// An end past the last position moves the field to the back.
func (s *Store) ReorderFields(start, end int) bool {
	if start < 0 || start >= len(s.fields) || end < 0 {
		s.logger.Debug("reorder ignored: index out of range", "start", start, "end", end, "len", len(s.fields))
		return false
	}
	moved := s.fields[start]
	rest := append(append([]formkit.FieldDefinition{}, s.fields[:start]...), s.fields[start+1:]...)
	if end > len(rest) {
		end = len(rest)
	}
	out := make([]formkit.FieldDefinition, 0, len(s.fields))
	out = append(out, rest[:end]...)
	out = append(out, moved)
	out = append(out, rest[end:]...)
	s.fields = out
	s.notify()
	return true
}

// Reset empties the field list.
func (s *Store) Reset() {
	s.fields = nil
	s.notify()
}

// Fields returns a deep copy of the field list.
func (s *Store) Fields() []formkit.FieldDefinition {
	return formkit.CloneFields(s.fields)
}

// Field returns a copy of one field.
func (s *Store) Field(id string) (formkit.FieldDefinition, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return formkit.FieldDefinition{}, false
	}
	return s.fields[i].Clone(), true
}

// Len returns the number of fields.
func (s *Store) Len() int {
	return len(s.fields)
}

// ParentCandidates lists the fields that id may derive from: every other
// field that is not itself derived, in list order.
func (s *Store) ParentCandidates(id string) []formkit.FieldDefinition {
	var out []formkit.FieldDefinition
	for _, f := range s.fields {
		if f.ID == id || f.IsDerived() {
			continue
		}
		out = append(out, f.Clone())
	}
	return out
}

// Schema packages the current field list for the runtime or the store.
func (s *Store) Schema(id, name string) formkit.FormSchema {
	return formkit.FormSchema{
		ID:     id,
		Name:   sanitizeText(name),
		Fields: s.Fields(),
	}
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	return func() {
		delete(s.listeners, id)
	}
}

func (s *Store) notify() {
	if len(s.listeners) == 0 {
		return
	}
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := s.listeners[id]; ok {
			fn(s.Fields())
		}
	}
}

func (s *Store) indexOf(id string) int {
	for i, f := range s.fields {
		if f.ID == id {
			return i
		}
	}
	return -1
}
