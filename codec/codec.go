// Package codec centralizes encoding of index metadata and signature files.
//
// An index records the name of the codec that wrote its manifest, so an
// index written with one codec keeps opening after the default changes.
package codec

import (
	"fmt"
	"io"
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// StreamDecoder is implemented by codecs able to decode straight from a reader.
type StreamDecoder interface {
	Decode(r io.Reader, v any) error
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// Decode reads all of r and unmarshals it with c, streaming when c supports it.
func Decode(c Codec, r io.Reader, v any) error {
	if c == nil {
		c = Default
	}
	if sd, ok := c.(StreamDecoder); ok {
		return sd.Decode(r, v)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return c.Unmarshal(data, v)
}

// MustMarshal is a helper for tests.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
