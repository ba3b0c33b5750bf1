package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var (
	defaultCBOR      = mustCBOR()
	mapStringAnyType = reflect.TypeOf(map[string]any(nil))
)

// CBOR returns a deterministic CBOR codec (RFC 8949, core deterministic encoding).
func CBOR() Codec { return defaultCBOR }

func mustCBOR() Codec {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	dm, err := cbor.DecOptions{
		// Decode maps inside `any` payloads as map[string]any so they match JSON.
		DefaultMapType: mapStringAnyType,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return cborCodec{enc: em, dec: dm}
}

func (c cborCodec) ContentType() string                { return ContentTypeCBOR }
func (c cborCodec) Binary() bool                       { return true }
func (c cborCodec) Marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c cborCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }
