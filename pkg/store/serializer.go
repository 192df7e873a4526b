package store

import (
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dlovans/formkit/pkg/formkit"
)

// Serializer converts records to and from their stored bytes.
type Serializer interface {
	Serialize(rec Record) ([]byte, error)
	Deserialize(data []byte) (Record, error)
}

// NewSerializer returns the serializer registered under name ("json" or "msgpack").
func NewSerializer(name string) (Serializer, error) {
	switch name {
	case "", "json":
		return JSONSerializer{}, nil
	case "msgpack":
		return MsgPackSerializer{}, nil
	default:
		return nil, errors.Errorf("unknown serializer %q", name)
	}
}

// JSONSerializer stores records as JSON, the layout of an exported form.
type JSONSerializer struct{}

func (JSONSerializer) Serialize(rec Record) ([]byte, error) {
	return json.Marshal(rec)
}

func (JSONSerializer) Deserialize(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	rec.Fields = formkit.NormalizeFields(rec.Fields)
	return rec, nil
}

// MsgPackSerializer stores records as MessagePack.
type MsgPackSerializer struct{}

func (MsgPackSerializer) Serialize(rec Record) ([]byte, error) {
	return msgpack.Marshal(rec)
}

func (MsgPackSerializer) Deserialize(data []byte) (Record, error) {
	var rec Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	rec.Fields = formkit.NormalizeFields(rec.Fields)
	return rec, nil
}
