// Package wirebin implements the reflection-based binary wire codec used
// to serialize transactions, packets and pools for both on-disk storage
// and network transport. Encoding walks a value's reflect.Value exactly
// once; types that need custom framing implement WireMarshaler /
// WireUnmarshaler to bypass the generic struct/slice rules below.
//
// Fixed-width integers are little-endian. Slices and strings are
// prefixed with a variable-length (1-4 byte) length tag; byte slices and
// arrays are copied verbatim. Struct fields are encoded in declaration
// order, skipping unexported and anonymous fields.
package wirebin

import (
	"bytes"
	"fmt"
	"io"
	"reflect"

	"github.com/Stoner19/node/build"
)

// WireMarshaler can encode and write itself to a stream, bypassing the
// generic reflection-based encoding below.
type WireMarshaler interface {
	MarshalWire(io.Writer) error
}

// Marshal returns the wire encoding of v.
func Marshal(v interface{}) ([]byte, error) {
	b := new(bytes.Buffer)
	if err := NewEncoder(b).Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// MarshalAll encodes all of its inputs and returns their concatenation.
func MarshalAll(vs ...interface{}) ([]byte, error) {
	b := new(bytes.Buffer)
	if err := NewEncoder(b).EncodeAll(vs...); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Encoder writes objects to an output stream.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w}
}

// Encode writes the encoding of v to the stream.
func (e *Encoder) Encode(v interface{}) error {
	return e.encode(reflect.ValueOf(v))
}

// EncodeAll encodes a variable number of arguments.
func (e *Encoder) EncodeAll(vs ...interface{}) error {
	for _, v := range vs {
		if err := e.Encode(v); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) write(p []byte) error {
	n, err := e.w.Write(p)
	if n != len(p) && err == nil {
		return io.ErrShortWrite
	}
	return err
}

func (e *Encoder) encode(val reflect.Value) error {
	if val.CanInterface() {
		if m, ok := val.Interface().(WireMarshaler); ok {
			return m.MarshalWire(e.w)
		}
	}

	switch val.Kind() {
	case reflect.Ptr:
		isDefined := !val.IsNil()
		if err := MarshalBool(e.w, isDefined); err != nil || !isDefined {
			return err
		}
		return e.encode(val.Elem())

	case reflect.Bool:
		return MarshalBool(e.w, val.Bool())

	case reflect.Uint8:
		return MarshalUint8(e.w, uint8(val.Uint()))
	case reflect.Uint32:
		return MarshalUint32(e.w, uint32(val.Uint()))
	case reflect.Int:
		return MarshalUint64(e.w, uint64(val.Int()))
	case reflect.Int64:
		return MarshalUint64(e.w, uint64(val.Int()))
	case reflect.Uint64:
		return MarshalUint64(e.w, val.Uint())
	case reflect.Uint:
		return MarshalUint64(e.w, val.Uint())
	case reflect.Int32:
		return MarshalUint32(e.w, uint32(val.Int()))
	case reflect.Uint16:
		return MarshalUint16(e.w, uint16(val.Uint()))
	case reflect.Int16:
		return MarshalUint16(e.w, uint16(val.Int()))
	case reflect.Int8:
		return MarshalUint8(e.w, uint8(val.Int()))

	case reflect.String:
		length := val.Len()
		if err := encodeSliceLength(e.w, length); err != nil || length == 0 {
			return err
		}
		return e.write([]byte(val.String()))

	case reflect.Slice:
		length := val.Len()
		if err := encodeSliceLength(e.w, length); err != nil || length == 0 {
			return err
		}
		fallthrough
	case reflect.Array:
		if val.Type().Elem().Kind() == reflect.Uint8 {
			if val.CanAddr() {
				return e.write(val.Slice(0, val.Len()).Bytes())
			}
			slice := reflect.MakeSlice(reflect.SliceOf(val.Type().Elem()), val.Len(), val.Len())
			reflect.Copy(slice, val)
			return e.write(slice.Bytes())
		}
		for i := 0; i < val.Len(); i++ {
			if err := e.encode(val.Index(i)); err != nil {
				return err
			}
		}
		return nil

	case reflect.Map:
		keys := val.MapKeys()
		if err := encodeSliceLength(e.w, len(keys)); err != nil {
			return err
		}
		for _, k := range keys {
			if err := e.encode(k); err != nil {
				return err
			}
			if err := e.encode(val.MapIndex(k)); err != nil {
				return err
			}
		}
		return nil

	case reflect.Struct:
		for i := 0; i < val.NumField(); i++ {
			if isFieldHidden(val, i) {
				continue
			}
			if err := e.encode(val.Field(i)); err != nil {
				return err
			}
		}
		return nil

	default:
		err := fmt.Errorf("wirebin: cannot marshal unsupported type %s/%s",
			val.Type().String(), val.Kind().String())
		build.Severe(err)
		return err
	}
}
