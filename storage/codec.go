package storage

import "github.com/goccy/go-json"

// JSONCodec implements Codec on top of goccy/go-json, a drop-in,
// allocation-lighter replacement for encoding/json used as the default
// wire and data-model codec throughout syncdb.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// DefaultCodec is the Codec every backend falls back to when the
// caller doesn't supply one.
var DefaultCodec Codec = JSONCodec{}
