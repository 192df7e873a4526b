package store

import (
	"context"
	"sort"
	"sync"

	"github.com/dlovans/formkit/pkg/formkit"
)

// MemoryStore keeps records in a map. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	ids     *idGenerator
	opts    *options
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	o := newOptions(opts)
	return &MemoryStore{
		records: make(map[string]Record),
		ids:     &idGenerator{clock: o.clock},
		opts:    o,
	}
}

func (s *MemoryStore) Save(ctx context.Context, name string, fields []formkit.FieldDefinition) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	rec, err := newRecord(s.ids, name, fields)
	if err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()

	s.opts.logger.DebugContext(ctx, "record saved", "id", rec.ID, "name", rec.Name, "fields", len(rec.Fields))
	return copyRecord(rec), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return Record{}, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, copyRecord(rec))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	s.opts.logger.DebugContext(ctx, "record deleted", "id", id)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func copyRecord(rec Record) Record {
	rec.Fields = formkit.CloneFields(rec.Fields)
	return rec
}
