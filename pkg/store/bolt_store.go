package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/dlovans/formkit/pkg/formkit"
)

type BoltStoreOptions struct {
	// Path of the database file. Parent directories are created.
	Path string `yaml:"path" toml:"path" json:"path" ini:"path" validate:"required"`

	// Bucket holding the records. Defaults to "forms".
	Bucket string `yaml:"bucket" toml:"bucket" json:"bucket" ini:"bucket"`

	// Serializer is "json" (default) or "msgpack".
	Serializer string `yaml:"serializer" toml:"serializer" json:"serializer" ini:"serializer" validate:"omitempty,oneof=json msgpack"`

	// Timeout waiting for the file lock. Zero waits forever.
	Timeout time.Duration `yaml:"timeout" toml:"timeout" json:"timeout" ini:"timeout"`
}

// BoltStore keeps records in a bbolt database keyed by id.
type BoltStore struct {
	db         *bolt.DB
	bucketName []byte
	serializer Serializer
	ids        *idGenerator
	opts       *options
}

func NewBoltStoreWithOptions(options *BoltStoreOptions, opts ...Option) (*BoltStore, error) {
	if options == nil {
		return nil, errors.New("bolt store options are required")
	}
	if err := validate.Struct(options); err != nil {
		return nil, errors.Wrap(err, "invalid bolt store options")
	}

	serializer, err := NewSerializer(options.Serializer)
	if err != nil {
		return nil, err
	}

	directory := filepath.Dir(options.Path)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, errors.Wrapf(err, "os.MkdirAll failed. directory: %s", directory)
	}

	db, err := bolt.Open(options.Path, 0600, &bolt.Options{Timeout: options.Timeout})
	if err != nil {
		return nil, errors.Wrapf(err, "bolt.Open failed. path: %s", options.Path)
	}

	bucketName := "forms"
	if options.Bucket != "" {
		bucketName = options.Bucket
	}

	o := newOptions(opts)
	s := &BoltStore{
		db:         db,
		bucketName: []byte(bucketName),
		serializer: serializer,
		ids:        &idGenerator{clock: o.clock},
		opts:       o,
	}

	err = db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(s.bucketName)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(k, _ []byte) error {
			s.ids.observe(string(k))
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create bucket failed")
	}

	return s, nil
}

func (s *BoltStore) Save(ctx context.Context, name string, fields []formkit.FieldDefinition) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	rec, err := newRecord(s.ids, name, fields)
	if err != nil {
		return Record{}, err
	}

	data, err := s.serializer.Serialize(rec)
	if err != nil {
		return Record{}, errors.Wrap(err, "marshal record failed")
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucketName)
		if bucket == nil {
			return errors.New("bucket not found")
		}
		return bucket.Put([]byte(rec.ID), data)
	})
	if err != nil {
		return Record{}, errors.Wrapf(err, "save record %s failed", rec.ID)
	}

	s.opts.logger.DebugContext(ctx, "record saved", "id", rec.ID, "name", rec.Name, "fields", len(rec.Fields), "bytes", len(data))
	return rec, nil
}

func (s *BoltStore) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucketName)
		if bucket == nil {
			return errors.New("bucket not found")
		}
		v := bucket.Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		// bbolt reuses the memory once the transaction ends.
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	if err != nil {
		return Record{}, err
	}

	rec, err := s.serializer.Deserialize(data)
	if err != nil {
		return Record{}, errors.Wrapf(err, "unmarshal record %s failed", id)
	}
	return rec, nil
}

func (s *BoltStore) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucketName)
		if bucket == nil {
			return errors.New("bucket not found")
		}
		return bucket.ForEach(func(k, v []byte) error {
			rec, err := s.serializer.Deserialize(v)
			if err != nil {
				return errors.Wrapf(err, "unmarshal record %s failed", k)
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out, nil
}

func (s *BoltStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucketName)
		if bucket == nil {
			return errors.New("bucket not found")
		}
		if bucket.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return bucket.Delete([]byte(id))
	})
	if err != nil {
		return err
	}
	s.opts.logger.DebugContext(ctx, "record deleted", "id", id)
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
