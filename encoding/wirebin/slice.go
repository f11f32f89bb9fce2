package wirebin

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
)

const (
	// MaxSliceSize is the maximum size a decoded slice may occupy, 5 MB.
	MaxSliceSize = 5e6
)

// ErrSliceTooLarge is returned when an encoded slice length exceeds
// MaxSliceSize.
var ErrSliceTooLarge = errors.New("encoded slice is too large")

// MarshalTinySlice marshals slices with a length of at most 255 elements,
// using a single-byte length prefix instead of the tiered variable-length
// prefix used by the general-purpose encoder. Used for wire structures
// such as a packet's signature list, which is bounded by the confidant
// count and never approaches the general slice-size ceiling.
//
// Supported types: []byte, []x, string.
func MarshalTinySlice(w io.Writer, v interface{}) error {
	val := reflect.ValueOf(v)
	switch k := val.Kind(); k {
	case reflect.Slice:
		l := val.Len()
		if l > math.MaxUint8 {
			return fmt.Errorf("a tiny slice can have a maximum of %d elements", math.MaxUint8)
		}
		if err := MarshalUint8(w, uint8(l)); err != nil {
			return err
		}
		if l == 0 {
			return nil
		}
		if val.Type().Elem().Kind() == reflect.Uint8 {
			if val.CanAddr() {
				return marshalBytes(w, val.Slice(0, val.Len()).Bytes())
			}
			slice := reflect.MakeSlice(reflect.SliceOf(val.Type().Elem()), val.Len(), val.Len())
			reflect.Copy(slice, val)
			return marshalBytes(w, slice.Bytes())
		}
		e := NewEncoder(w)
		for i := 0; i < l; i++ {
			if err := e.Encode(val.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil

	case reflect.String:
		return MarshalTinySlice(w, []byte(val.String()))

	default:
		return fmt.Errorf("MarshalTinySlice: non-slice type %s (kind: %s) is not supported",
			val.Type().String(), k.String())
	}
}

// UnmarshalTinySlice is the inverse of MarshalTinySlice.
//
// Supported types: *[]byte, *[]x, *string.
func UnmarshalTinySlice(r io.Reader, v interface{}) error {
	pval := reflect.ValueOf(v)
	if pval.Kind() != reflect.Ptr || pval.IsNil() {
		return errors.New("cannot unmarshal tiny slice into invalid pointer")
	}
	val := pval.Elem()
	switch k := val.Kind(); k {
	case reflect.Slice:
		sliceLen, err := UnmarshalUint8(r)
		if err != nil {
			return err
		}
		if uint64(sliceLen)*uint64(val.Type().Elem().Size()) > MaxSliceSize {
			return ErrSliceTooLarge
		}
		if sliceLen == 0 {
			val.Set(reflect.MakeSlice(val.Type(), 0, 0))
			return nil
		}
		val.Set(reflect.MakeSlice(val.Type(), int(sliceLen), int(sliceLen)))

		if val.Type().Elem().Kind() == reflect.Uint8 {
			b := val.Slice(0, val.Len())
			_, err := io.ReadFull(r, b.Bytes())
			return err
		}
		d := NewDecoder(r)
		for i := 0; i < val.Len(); i++ {
			if err := d.Decode(val.Index(i).Addr().Interface()); err != nil {
				return fmt.Errorf("UnmarshalTinySlice failed to unmarshal element %d: %v", i, err)
			}
		}
		return nil

	case reflect.String:
		var b []byte
		if err := UnmarshalTinySlice(r, &b); err != nil {
			return err
		}
		val.SetString(string(b))
		return nil

	default:
		return fmt.Errorf("UnmarshalTinySlice: non-slice type %s (kind: %s) is not supported",
			val.Type().String(), k.String())
	}
}

// encodeSliceLength writes a variable-length (1-4 byte) length prefix,
// using 1-3 low tag bits to signal the prefix width.
func encodeSliceLength(w io.Writer, length int) error {
	const (
		inclusiveUpperLimitOneByte   = math.MaxUint8 >> 1
		inclusiveUpperLimitTwoBytes  = math.MaxUint16 >> 2
		inclusiveUpperLimitThreeByte = math.MaxUint32 >> 11
		inclusiveUpperLimitFourByte  = math.MaxUint32 >> 3
	)
	switch {
	case length <= inclusiveUpperLimitOneByte:
		return MarshalUint8(w, uint8(length<<1))
	case length <= inclusiveUpperLimitTwoBytes:
		return MarshalUint16(w, uint16(1)|uint16(length<<2))
	case length <= inclusiveUpperLimitThreeByte:
		return MarshalUint24(w, uint32(3)|uint32(length<<3))
	case length <= inclusiveUpperLimitFourByte:
		return MarshalUint32(w, uint32(7)|uint32(length<<3))
	default:
		return fmt.Errorf(
			"slice length encode overflow: a length of %d is the maximum supported slice length",
			inclusiveUpperLimitFourByte)
	}
}

func decodeSliceLength(r io.Reader) (int, error) {
	b := make([]byte, 1)
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	switch {
	case b[0]&1 == 0:
		return int(b[0] >> 1), nil
	case b[0]&3 == 1:
		b = append(b, 0)
		if _, err := io.ReadFull(r, b[1:2]); err != nil {
			return 0, err
		}
		return int(binary.LittleEndian.Uint16(b[:]) >> 2), nil
	case b[0]&7 == 3:
		b = append(b, 0, 0, 0)
		if _, err := io.ReadFull(r, b[1:3]); err != nil {
			return 0, err
		}
		return int(binary.LittleEndian.Uint32(b[:]) >> 3), nil
	case b[0]&7 == 7:
		b = append(b, 0, 0, 0)
		if _, err := io.ReadFull(r, b[1:4]); err != nil {
			return 0, err
		}
		return int(binary.LittleEndian.Uint32(b[:]) >> 3), nil
	default:
		return 0, fmt.Errorf("invalid slice length prefix byte %#x", b[0])
	}
}

func marshalBytes(w io.Writer, p []byte) error {
	n, err := w.Write(p)
	if n != len(p) && err == nil {
		return io.ErrShortWrite
	}
	return err
}
