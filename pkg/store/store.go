// Package store persists named form schemas as records of
// {id, name, dateCreated, fields}.
package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/dlovans/formkit/pkg/formkit"
	"github.com/dlovans/formkit/pkg/log"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("record not found")
)

// DateLayout is the ISO-8601 layout of Record.DateCreated (UTC, milliseconds).
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is one saved form.
type Record struct {
	ID          string                    `json:"id" msgpack:"id" validate:"required,numeric"`
	Name        string                    `json:"name" msgpack:"name" validate:"required,max=200"`
	DateCreated string                    `json:"dateCreated" msgpack:"dateCreated" validate:"required"`
	Fields      []formkit.FieldDefinition `json:"fields" msgpack:"fields"`
}

// Schema returns the record as a runtime schema.
func (r Record) Schema() formkit.FormSchema {
	return formkit.FormSchema{
		ID:     r.ID,
		Name:   r.Name,
		Fields: formkit.CloneFields(r.Fields),
	}
}

// Created parses DateCreated.
func (r Record) Created() (time.Time, error) {
	t, err := time.Parse(DateLayout, r.DateCreated)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse dateCreated %q", r.DateCreated)
	}
	return t, nil
}

// Store is a collection of saved form records.
type Store interface {
	// Save stores fields under name and returns the new record.
	Save(ctx context.Context, name string, fields []formkit.FieldDefinition) (Record, error)
	// Get returns the record with id, or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)
	// List returns every record in creation order.
	List(ctx context.Context) ([]Record, error)
	// Delete removes the record with id, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
	Close() error
}

type options struct {
	clock  func() time.Time
	logger log.Logger
}

// Option configures a Store implementation.
type Option func(*options)

// WithClock sets the time source for ids and creation dates.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger for writes.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		clock:  time.Now,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// idGenerator hands out millisecond timestamps as decimal strings, bumped so
// that every id is strictly greater than the one before.
type idGenerator struct {
	mu    sync.Mutex
	clock func() time.Time
	last  int64
}

func (g *idGenerator) next() (string, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock().UTC()
	ms := now.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10), now
}

// observe raises the floor so ids loaded from disk are never reissued.
func (g *idGenerator) observe(id string) {
	ms, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return
	}
	g.mu.Lock()
	if ms > g.last {
		g.last = ms
	}
	g.mu.Unlock()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func newRecord(ids *idGenerator, name string, fields []formkit.FieldDefinition) (Record, error) {
	id, now := ids.next()
	rec := Record{
		ID:          id,
		Name:        name,
		DateCreated: now.Format(DateLayout),
		Fields:      formkit.CloneFields(fields),
	}
	if rec.Fields == nil {
		rec.Fields = []formkit.FieldDefinition{}
	}
	if err := validate.Struct(rec); err != nil {
		return Record{}, errors.Wrap(err, "invalid record")
	}
	return rec, nil
}

// lessID orders decimal ids numerically.
func lessID(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
