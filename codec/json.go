package codec

import (
	"encoding/json"
	"io"
)

// JSON is the standard-library JSON codec. Output is byte-compatible with
// GoJSON, so either can read what the other wrote.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Decode decodes one JSON value from r.
func (JSON) Decode(r io.Reader, v any) error { return json.NewDecoder(r).Decode(v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the codec used for newly created indexes.
var Default Codec = GoJSON{}
